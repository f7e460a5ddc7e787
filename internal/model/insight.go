package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 状态常量 ====================

const (
	// 洞察审批状态
	InsightStatusPending  = "pending"
	InsightStatusApproved = "approved"
	InsightStatusRejected = "rejected"

	// 洞察类型
	InsightKindPanel          = "insight_panel"
	InsightKindMarketAnalysis = "market_analysis"
	InsightKindRecommendation = "recommendation"
)

// IsValidInsightStatus 校验洞察状态
func IsValidInsightStatus(status string) bool {
	switch status {
	case InsightStatusPending, InsightStatusApproved, InsightStatusRejected:
		return true
	}
	return false
}

// ==================== 数据库模型 ====================

// Insight AI 生成的洞察内容块，按 零售商/周期/内容域 归属，独立走审批
type Insight struct {
	BaseModel
	RetailerID  int64     `gorm:"index;not null;comment:零售商ID"`
	PeriodStart time.Time `gorm:"type:date;index;not null;comment:周期开始"`
	PeriodEnd   time.Time `gorm:"type:date;not null;comment:周期结束"`
	Domain      string    `gorm:"size:32;index;comment:内容域"`
	Kind        string    `gorm:"size:32;index;not null;comment:洞察类型"`
	Status      string    `gorm:"size:32;index;default:pending;comment:审批状态"`

	Title   string         `gorm:"size:255;comment:洞察标题"`
	Content datatypes.JSON `gorm:"comment:洞察正文(JSON)"`

	ApprovedBy *int64     `gorm:"comment:审批人ID"`
	ApprovedAt *time.Time `gorm:"comment:审批时间"`
}

func (*Insight) TableName() string {
	return "ai_insights"
}

// MatchesPeriod 洞察的零售商/周期是否与给定报告一致
func (i *Insight) MatchesPeriod(retailerID int64, periodStart, periodEnd time.Time) bool {
	return i.RetailerID == retailerID &&
		i.PeriodStart.Equal(periodStart) &&
		i.PeriodEnd.Equal(periodEnd)
}
