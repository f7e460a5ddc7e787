package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ==================== 状态常量 ====================

const (
	// 报告状态
	ReportStatusDraft     = "draft"
	ReportStatusPublished = "published"
	ReportStatusArchived  = "archived"

	// 周期类型
	PeriodTypeMonthly         = "monthly"
	PeriodTypeWeekly          = "weekly"
	PeriodTypeCustom          = "custom"
	PeriodTypeClientGenerated = "client_generated"
)

// 内容域（报告可包含的固定版块）
const (
	DomainOverview   = "overview"
	DomainKeywords   = "keywords"
	DomainCategories = "categories"
	DomainProducts   = "products"
	DomainAuctions   = "auctions"
)

// AllDomains 所有合法内容域（顺序即展示顺序）
var AllDomains = []string{
	DomainOverview,
	DomainKeywords,
	DomainCategories,
	DomainProducts,
	DomainAuctions,
}

// IsValidDomain 校验内容域名称
func IsValidDomain(domain string) bool {
	for _, d := range AllDomains {
		if d == domain {
			return true
		}
	}
	return false
}

// IsValidPeriodType 校验周期类型
func IsValidPeriodType(pt string) bool {
	switch pt {
	case PeriodTypeMonthly, PeriodTypeWeekly, PeriodTypeCustom, PeriodTypeClientGenerated:
		return true
	}
	return false
}

// IsValidReportStatus 校验报告状态
func IsValidReportStatus(status string) bool {
	switch status {
	case ReportStatusDraft, ReportStatusPublished, ReportStatusArchived:
		return true
	}
	return false
}

// ==================== 冻结展示配置 ====================

// VisibilityConfig 报告创建时从零售商实时配置冻结下来的展示快照
// 创建后不可改写，只能原样读回，后续修改零售商配置不影响已分享的报告
type VisibilityConfig struct {
	VisibleTabs     []string        `json:"visible_tabs"`
	VisibleMetrics  []string        `json:"visible_metrics"`
	KeywordFilters  []string        `json:"keyword_filters"`
	FeaturesEnabled map[string]bool `json:"features_enabled"`
}

// Value 必须是值接收者：Report.Visibility 按值存储，GORM 绑定的是值而非指针
func (v VisibilityConfig) Value() (driver.Value, error) {
	return json.Marshal(v)
}

func (v *VisibilityConfig) Scan(value interface{}) error {
	if value == nil {
		*v = VisibilityConfig{}
		return nil
	}
	bytes, err := toBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, v)
}

// IsFrozen 是否已有冻结内容（零值视为未冻结）
func (v *VisibilityConfig) IsFrozen() bool {
	return len(v.VisibleTabs) > 0 || len(v.VisibleMetrics) > 0 ||
		len(v.KeywordFilters) > 0 || len(v.FeaturesEnabled) > 0
}

// ==================== 数据库模型 ====================

// Report 报告
type Report struct {
	BaseModel
	RetailerID  int64     `gorm:"index;not null;comment:零售商ID"`
	Title       string    `gorm:"size:255;comment:报告标题"`
	PeriodStart time.Time `gorm:"type:date;not null;comment:周期开始"`
	PeriodEnd   time.Time `gorm:"type:date;not null;comment:周期结束"`
	PeriodType  string    `gorm:"size:32;not null;comment:周期类型"`

	Status             string `gorm:"size:32;index;default:draft;comment:报告状态"`
	IsArchived         bool   `gorm:"default:false;index;comment:软归档标记"`
	HiddenFromRetailer bool   `gorm:"default:false;comment:发布后对零售商隐藏"`

	// 审批配置（创建时计算并固化，之后不再重新推导）
	IncludeInsights         bool `gorm:"default:false;comment:是否包含AI洞察"`
	InsightsRequireApproval bool `gorm:"default:false;comment:洞察是否需要审批"`
	AutoApprove             bool `gorm:"default:false;comment:创建时计算的自动审批标记"`

	CreatedBy   int64      `gorm:"index;comment:创建人ID"`
	PublishedAt *time.Time `gorm:"comment:发布时间"`
	PublishedBy *int64     `gorm:"comment:发布人ID"`

	// 冻结展示配置，创建时写入一次
	Visibility VisibilityConfig `gorm:"type:json;comment:冻结的展示配置"`

	// 关联
	Domains []ReportDomain `gorm:"foreignKey:ReportID"`
}

func (*Report) TableName() string {
	return "reports"
}

// ReportDomain 报告内容域（子表，(report_id, domain) 唯一）
type ReportDomain struct {
	ID        int64     `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ReportID int64  `gorm:"uniqueIndex:idx_report_domain;not null;comment:报告ID" json:"report_id"`
	Domain   string `gorm:"uniqueIndex:idx_report_domain;size:32;not null;comment:内容域" json:"domain"`

	// 仅在洞察生成成功后由生成任务写入
	AIInsightID *int64 `gorm:"index;comment:关联的洞察ID" json:"ai_insight_id"`
}

func (*ReportDomain) TableName() string {
	return "report_domains"
}

// ==================== 辅助方法 ====================

// IsPublished 是否已发布（发布状态同时充当数据审批信号）
func (r *Report) IsPublished() bool {
	return r.Status == ReportStatusPublished
}

// CanPublish 检查状态机是否允许发布
func (r *Report) CanPublish() error {
	switch r.Status {
	case ReportStatusPublished:
		return errors.New("报告已发布")
	case ReportStatusArchived:
		return errors.New("已归档的报告不能发布")
	}
	return nil
}

// MarkPublished 标记为已发布
func (r *Report) MarkPublished(by int64, at time.Time) {
	r.Status = ReportStatusPublished
	r.PublishedAt = &at
	r.PublishedBy = &by
}

// DomainNames 当前关联的内容域名称
func (r *Report) DomainNames() []string {
	names := make([]string, 0, len(r.Domains))
	for _, d := range r.Domains {
		names = append(names, d.Domain)
	}
	return names
}
