package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"adboard_dev_v1_202601/internal/model"
)

// ==================== 接口定义 ====================

// SnapshotRepository 内容域快照仓储接口
type SnapshotRepository interface {
	// Upsert 按 (retailer_id, domain, period_start) 幂等写入
	Upsert(ctx context.Context, snapshot *model.DomainSnapshot) error
	GetByScope(ctx context.Context, retailerID int64, domain string, periodStart time.Time) (*model.DomainSnapshot, error)
	ListByRetailerPeriod(ctx context.Context, retailerID int64, periodStart time.Time) ([]model.DomainSnapshot, error)

	// 日汇总指标读取（上游写入的只读数据源）
	SumDailyMetrics(ctx context.Context, retailerID int64, domain string, periodStart, periodEnd time.Time) ([]model.AdMetricDaily, error)
}

// ==================== 仓储实现 ====================

type snapshotRepo struct {
	db *gorm.DB
}

// NewSnapshotRepository 创建快照仓储
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepo{db: db}
}

func (r *snapshotRepo) Upsert(ctx context.Context, snapshot *model.DomainSnapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "retailer_id"},
				{Name: "domain"},
				{Name: "period_start"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"period_end", "metrics", "generated_at", "updated_at"}),
		}).
		Create(snapshot).Error
}

func (r *snapshotRepo) GetByScope(ctx context.Context, retailerID int64, domain string, periodStart time.Time) (*model.DomainSnapshot, error) {
	var snapshot model.DomainSnapshot
	err := r.db.WithContext(ctx).
		Where("retailer_id = ? AND domain = ? AND period_start = ?", retailerID, domain, periodStart).
		First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *snapshotRepo) ListByRetailerPeriod(ctx context.Context, retailerID int64, periodStart time.Time) ([]model.DomainSnapshot, error) {
	var snapshots []model.DomainSnapshot
	err := r.db.WithContext(ctx).
		Where("retailer_id = ? AND period_start = ?", retailerID, periodStart).
		Order("domain ASC").
		Find(&snapshots).Error
	return snapshots, err
}

func (r *snapshotRepo) SumDailyMetrics(ctx context.Context, retailerID int64, domain string, periodStart, periodEnd time.Time) ([]model.AdMetricDaily, error) {
	var rows []model.AdMetricDaily
	err := r.db.WithContext(ctx).
		Where("retailer_id = ? AND domain = ?", retailerID, domain).
		Where("date >= ? AND date <= ?", periodStart, periodEnd).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}
