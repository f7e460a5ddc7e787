package repository

import (
	"context"

	"gorm.io/gorm"
)

// ==================== 工作单元 ====================

// ReportUnitOfWork 报告工作单元
// 生成任务需要在同一事务里写入洞察并回填内容域链接，跨两个仓储
type ReportUnitOfWork struct {
	db       *gorm.DB
	Reports  ReportRepository
	Insights InsightRepository
}

// NewReportUnitOfWork 创建报告工作单元
func NewReportUnitOfWork(db *gorm.DB, reports ReportRepository, insights InsightRepository) *ReportUnitOfWork {
	return &ReportUnitOfWork{
		db:       db,
		Reports:  reports,
		Insights: insights,
	}
}

// Transaction 在同一事务中执行，回调拿到的是绑定事务的仓储
func (u *ReportUnitOfWork) Transaction(ctx context.Context, fn func(reports ReportRepository, insights InsightRepository) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(u.Reports.WithTx(tx), u.Insights.WithTx(tx))
	})
}
