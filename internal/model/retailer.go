package model

import (
	"database/sql/driver"
	"encoding/json"
)

// ==================== 功能开关 ====================

// 功能开关名称（签发令牌时用于给出可操作的错误提示）
const (
	FeatureCanAccessShareview = "can_access_shareview"
	FeatureEnableLiveData     = "enable_live_data"
	FeatureEnableReports      = "enable_reports"
)

// FeatureSet 零售商功能开关，存储为 JSON 列，读取时一次性解码为具名字段
type FeatureSet struct {
	CanAccessShareview      bool `json:"can_access_shareview"`
	EnableLiveData          bool `json:"enable_live_data"`
	EnableReports           bool `json:"enable_reports"`
	DataRequiresApproval    bool `json:"data_requires_approval"`
	IncludeAIInsights       bool `json:"include_ai_insights"`
	InsightsRequireApproval bool `json:"insights_require_approval"`
}

// Value 必须是值接收者：字段按值嵌入模型，GORM 绑定的是值而非指针
func (f FeatureSet) Value() (driver.Value, error) {
	return json.Marshal(f)
}

func (f *FeatureSet) Scan(value interface{}) error {
	if value == nil {
		*f = FeatureSet{}
		return nil
	}
	bytes, err := toBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, f)
}

// AsMap 转为 map，供冻结进报告的展示快照
func (f FeatureSet) AsMap() map[string]bool {
	return map[string]bool{
		FeatureCanAccessShareview: f.CanAccessShareview,
		FeatureEnableLiveData:     f.EnableLiveData,
		FeatureEnableReports:      f.EnableReports,
	}
}

// ==================== 实时展示配置 ====================

// DisplayConfig 零售商实时展示配置（可随时被后台修改）
type DisplayConfig struct {
	VisibleTabs    []string `json:"visible_tabs"`
	VisibleMetrics []string `json:"visible_metrics"`
	KeywordFilters []string `json:"keyword_filters"`
}

func (d DisplayConfig) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *DisplayConfig) Scan(value interface{}) error {
	if value == nil {
		*d = DisplayConfig{}
		return nil
	}
	bytes, err := toBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, d)
}

// ==================== 数据库模型 ====================

// Retailer 零售商
type Retailer struct {
	BaseModel
	Name     string `gorm:"size:255;not null;comment:名称"`
	IsActive bool   `gorm:"default:true;index;comment:是否启用"`

	Features FeatureSet    `gorm:"type:json;comment:功能开关"`
	Display  DisplayConfig `gorm:"type:json;comment:实时展示配置"`
}

func (*Retailer) TableName() string {
	return "retailers"
}

// FreezeVisibility 把当前实时配置冻结为报告展示快照
func (r *Retailer) FreezeVisibility() VisibilityConfig {
	return VisibilityConfig{
		VisibleTabs:     append([]string{}, r.Display.VisibleTabs...),
		VisibleMetrics:  append([]string{}, r.Display.VisibleMetrics...),
		KeywordFilters:  append([]string{}, r.Display.KeywordFilters...),
		FeaturesEnabled: r.Features.AsMap(),
	}
}
