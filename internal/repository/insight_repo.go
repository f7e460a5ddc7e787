package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"adboard_dev_v1_202601/internal/model"
)

// ==================== 接口定义 ====================

// InsightRepository AI 洞察仓储接口
type InsightRepository interface {
	CreateBatch(ctx context.Context, insights []model.Insight) error
	GetByID(ctx context.Context, id int64) (*model.Insight, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Insight, error)

	// LatestPanel 取指定零售商/周期/内容域下最新的面板洞察
	LatestPanel(ctx context.Context, retailerID int64, domain string, periodStart, periodEnd time.Time) (*model.Insight, error)

	UpdateStatus(ctx context.Context, id int64, status string, reviewerID int64) error

	WithTx(tx *gorm.DB) InsightRepository
	Transaction(ctx context.Context, fn func(txRepo InsightRepository) error) error
}

// ==================== 仓储实现 ====================

type insightRepo struct {
	db *gorm.DB
}

// NewInsightRepository 创建洞察仓储
func NewInsightRepository(db *gorm.DB) InsightRepository {
	return &insightRepo{db: db}
}

func (r *insightRepo) CreateBatch(ctx context.Context, insights []model.Insight) error {
	if len(insights) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&insights).Error
}

func (r *insightRepo) GetByID(ctx context.Context, id int64) (*model.Insight, error) {
	var insight model.Insight
	if err := r.db.WithContext(ctx).First(&insight, id).Error; err != nil {
		return nil, err
	}
	return &insight, nil
}

func (r *insightRepo) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Insight, error) {
	result := make(map[int64]*model.Insight, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var insights []model.Insight
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&insights).Error; err != nil {
		return nil, err
	}
	for i := range insights {
		result[insights[i].ID] = &insights[i]
	}
	return result, nil
}

func (r *insightRepo) LatestPanel(ctx context.Context, retailerID int64, domain string, periodStart, periodEnd time.Time) (*model.Insight, error) {
	var insight model.Insight
	err := r.db.WithContext(ctx).
		Where("retailer_id = ? AND domain = ? AND kind = ?", retailerID, domain, model.InsightKindPanel).
		Where("period_start = ? AND period_end = ?", periodStart, periodEnd).
		Order("created_at DESC, id DESC").
		First(&insight).Error
	if err != nil {
		return nil, err
	}
	return &insight, nil
}

func (r *insightRepo) UpdateStatus(ctx context.Context, id int64, status string, reviewerID int64) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.Insight{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"approved_by": reviewerID,
			"approved_at": now,
		}).Error
}

func (r *insightRepo) WithTx(tx *gorm.DB) InsightRepository {
	return &insightRepo{db: tx}
}

func (r *insightRepo) Transaction(ctx context.Context, fn func(txRepo InsightRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
