package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 数据库模型 ====================

// DomainSnapshot 内容域指标快照
// 由生成任务整零售商一次性重建，(retailer_id, domain, period_start) 唯一，重复生成走 upsert
type DomainSnapshot struct {
	ID        int64     `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RetailerID  int64     `gorm:"uniqueIndex:idx_snapshot_scope;not null;comment:零售商ID" json:"retailer_id"`
	Domain      string    `gorm:"uniqueIndex:idx_snapshot_scope;size:32;not null;comment:内容域" json:"domain"`
	PeriodStart time.Time `gorm:"uniqueIndex:idx_snapshot_scope;type:date;not null;comment:周期开始" json:"period_start"`
	PeriodEnd   time.Time `gorm:"type:date;not null;comment:周期结束" json:"period_end"`

	Metrics     datatypes.JSON `gorm:"comment:聚合指标(JSON)" json:"metrics"`
	GeneratedAt time.Time      `gorm:"comment:生成时间" json:"generated_at"`
}

func (*DomainSnapshot) TableName() string {
	return "domain_snapshots"
}

// AdMetricDaily 广告指标日汇总行（上游聚合管道写入，本服务只读）
type AdMetricDaily struct {
	ID         int64     `gorm:"primary_key;AUTO_INCREMENT"`
	RetailerID int64     `gorm:"index:idx_metric_scope;not null;comment:零售商ID"`
	Domain     string    `gorm:"index:idx_metric_scope;size:32;not null;comment:内容域"`
	Date       time.Time `gorm:"type:date;index;not null;comment:日期"`

	Impressions int64 `gorm:"default:0;comment:曝光量"`
	Clicks      int64 `gorm:"default:0;comment:点击量"`
	SpendCents  int64 `gorm:"default:0;comment:花费(分)"`
	SalesCents  int64 `gorm:"default:0;comment:成交额(分)"`
}

func (*AdMetricDaily) TableName() string {
	return "ad_metric_dailies"
}
