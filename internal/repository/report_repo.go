package repository

import (
	"context"

	"gorm.io/gorm"

	"adboard_dev_v1_202601/internal/model"
)

// ==================== 接口定义 ====================

// ReportRepository 报告仓储接口
type ReportRepository interface {
	// 基础 CRUD
	Create(ctx context.Context, report *model.Report) error
	GetByID(ctx context.Context, id int64) (*model.Report, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ReportFilter) ([]model.Report, int64, error)

	// 内容域
	GetDomains(ctx context.Context, reportID int64) ([]model.ReportDomain, error)
	SyncDomains(ctx context.Context, reportID int64, toAdd, toRemove []string) error
	LinkInsight(ctx context.Context, reportID int64, domain string, insightID int64) error

	// 事务
	WithTx(tx *gorm.DB) ReportRepository
	Transaction(ctx context.Context, fn func(txRepo ReportRepository) error) error
}

// ==================== 过滤条件 ====================

// ReportFilter 报告过滤条件
type ReportFilter struct {
	RetailerID int64
	Status     string
	Archived   *bool
	Page       int
	PageSize   int
}

// ==================== 仓储实现 ====================

type reportRepo struct {
	db *gorm.DB
}

// NewReportRepository 创建报告仓储
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepo{db: db}
}

func (r *reportRepo) Create(ctx context.Context, report *model.Report) error {
	// 报告与内容域一并写入（gorm 关联创建，同一事务）
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepo) GetByID(ctx context.Context, id int64) (*model.Report, error) {
	var report model.Report
	err := r.db.WithContext(ctx).
		Preload("Domains").
		First(&report, id).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Report{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *reportRepo) Delete(ctx context.Context, id int64) error {
	// 硬删除，内容域行级联移除
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", id).Delete(&model.ReportDomain{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.Report{}, id).Error
	})
}

func (r *reportRepo) List(ctx context.Context, filter ReportFilter) ([]model.Report, int64, error) {
	var reports []model.Report
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Report{})

	if filter.RetailerID > 0 {
		query = query.Where("retailer_id = ?", filter.RetailerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Archived != nil {
		query = query.Where("is_archived = ?", *filter.Archived)
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
		Preload("Domains").
		Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&reports).Error

	return reports, total, err
}

func (r *reportRepo) GetDomains(ctx context.Context, reportID int64) ([]model.ReportDomain, error) {
	var domains []model.ReportDomain
	err := r.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("id ASC").
		Find(&domains).Error
	return domains, err
}

func (r *reportRepo) SyncDomains(ctx context.Context, reportID int64, toAdd, toRemove []string) error {
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return nil
	}
	// 增删在同一事务内落库，提交之后调用方才允许派发生成任务
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(toRemove) > 0 {
			if err := tx.Where("report_id = ? AND domain IN ?", reportID, toRemove).
				Delete(&model.ReportDomain{}).Error; err != nil {
				return err
			}
		}
		if len(toAdd) > 0 {
			rows := make([]model.ReportDomain, 0, len(toAdd))
			for _, d := range toAdd {
				rows = append(rows, model.ReportDomain{ReportID: reportID, Domain: d})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *reportRepo) LinkInsight(ctx context.Context, reportID int64, domain string, insightID int64) error {
	return r.db.WithContext(ctx).
		Model(&model.ReportDomain{}).
		Where("report_id = ? AND domain = ?", reportID, domain).
		Update("ai_insight_id", insightID).Error
}

func (r *reportRepo) WithTx(tx *gorm.DB) ReportRepository {
	return &reportRepo{db: tx}
}

func (r *reportRepo) Transaction(ctx context.Context, fn func(txRepo ReportRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
