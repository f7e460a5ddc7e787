package repository

import (
	"context"

	"gorm.io/gorm"

	"adboard_dev_v1_202601/internal/model"
)

// ==================== 接口定义 ====================

// RetailerRepository 零售商仓储接口
type RetailerRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Retailer, error)
	ListActive(ctx context.Context) ([]model.Retailer, error)
	UpdateFeatures(ctx context.Context, id int64, features model.FeatureSet) error
	UpdateDisplay(ctx context.Context, id int64, display model.DisplayConfig) error
}

// ==================== 仓储实现 ====================

type retailerRepo struct {
	db *gorm.DB
}

// NewRetailerRepository 创建零售商仓储
func NewRetailerRepository(db *gorm.DB) RetailerRepository {
	return &retailerRepo{db: db}
}

func (r *retailerRepo) GetByID(ctx context.Context, id int64) (*model.Retailer, error) {
	var retailer model.Retailer
	if err := r.db.WithContext(ctx).First(&retailer, id).Error; err != nil {
		return nil, err
	}
	return &retailer, nil
}

func (r *retailerRepo) ListActive(ctx context.Context) ([]model.Retailer, error) {
	var retailers []model.Retailer
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&retailers).Error
	return retailers, err
}

func (r *retailerRepo) UpdateFeatures(ctx context.Context, id int64, features model.FeatureSet) error {
	return r.db.WithContext(ctx).
		Model(&model.Retailer{}).
		Where("id = ?", id).
		Update("features", features).Error
}

func (r *retailerRepo) UpdateDisplay(ctx context.Context, id int64, display model.DisplayConfig) error {
	return r.db.WithContext(ctx).
		Model(&model.Retailer{}).
		Where("id = ?", id).
		Update("display", display).Error
}
