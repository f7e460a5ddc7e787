package repository

import (
	"context"

	"gorm.io/gorm"

	"adboard_dev_v1_202601/internal/model"
)

// ==================== 接口定义 ====================

// AccessTokenRepository 访问令牌仓储接口
type AccessTokenRepository interface {
	GetByValue(ctx context.Context, token string) (*model.AccessToken, error)
	GetByID(ctx context.Context, id int64) (*model.AccessToken, error)
	List(ctx context.Context, filter TokenFilter) ([]model.AccessToken, int64, error)

	// IssueExclusive 签发新令牌并停用同作用域旧令牌（同一事务）
	IssueExclusive(ctx context.Context, token *model.AccessToken) error

	DeactivateByID(ctx context.Context, id int64) error
	DeactivateByRetailer(ctx context.Context, retailerID int64, tokenType string) error
	DeactivateByReport(ctx context.Context, reportID int64) error

	WithTx(tx *gorm.DB) AccessTokenRepository
	Transaction(ctx context.Context, fn func(txRepo AccessTokenRepository) error) error
}

// ==================== 过滤条件 ====================

// TokenFilter 令牌过滤条件
type TokenFilter struct {
	RetailerID int64
	TokenType  string
	ActiveOnly bool
	Page       int
	PageSize   int
}

// ==================== 仓储实现 ====================

type accessTokenRepo struct {
	db *gorm.DB
}

// NewAccessTokenRepository 创建访问令牌仓储
func NewAccessTokenRepository(db *gorm.DB) AccessTokenRepository {
	return &accessTokenRepo{db: db}
}

func (r *accessTokenRepo) GetByValue(ctx context.Context, token string) (*model.AccessToken, error) {
	var record model.AccessToken
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *accessTokenRepo) GetByID(ctx context.Context, id int64) (*model.AccessToken, error) {
	var record model.AccessToken
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *accessTokenRepo) List(ctx context.Context, filter TokenFilter) ([]model.AccessToken, int64, error) {
	var tokens []model.AccessToken
	var total int64

	query := r.db.WithContext(ctx).Model(&model.AccessToken{})

	if filter.RetailerID > 0 {
		query = query.Where("retailer_id = ?", filter.RetailerID)
	}
	if filter.TokenType != "" {
		query = query.Where("token_type = ?", filter.TokenType)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.
		Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&tokens).Error

	return tokens, total, err
}

func (r *accessTokenRepo) IssueExclusive(ctx context.Context, token *model.AccessToken) error {
	// 先停用同作用域旧令牌再插入新令牌，整体一个事务，任一失败全部回滚
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scope := tx.Model(&model.AccessToken{}).
			Where("retailer_id = ? AND is_active = ?", token.RetailerID, true)
		if token.ReportID != nil {
			scope = scope.Where("report_id = ?", *token.ReportID)
		} else {
			scope = scope.Where("report_id IS NULL AND token_type = ?", token.TokenType)
		}
		if err := scope.Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
}

func (r *accessTokenRepo) DeactivateByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.AccessToken{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

func (r *accessTokenRepo) DeactivateByRetailer(ctx context.Context, retailerID int64, tokenType string) error {
	query := r.db.WithContext(ctx).
		Model(&model.AccessToken{}).
		Where("retailer_id = ? AND is_active = ?", retailerID, true)
	if tokenType != "" {
		query = query.Where("token_type = ?", tokenType)
	}
	return query.Update("is_active", false).Error
}

func (r *accessTokenRepo) DeactivateByReport(ctx context.Context, reportID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.AccessToken{}).
		Where("report_id = ? AND is_active = ?", reportID, true).
		Update("is_active", false).Error
}

func (r *accessTokenRepo) WithTx(tx *gorm.DB) AccessTokenRepository {
	return &accessTokenRepo{db: tx}
}

func (r *accessTokenRepo) Transaction(ctx context.Context, fn func(txRepo AccessTokenRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
