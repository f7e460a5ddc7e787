package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"adboard_dev_v1_202601/internal/model"
	"adboard_dev_v1_202601/internal/repository"
)

// ==================== 外部服务依赖 ====================

// SnapshotBuilderInterface 指标快照构建接口（实现见 snapshot_svc.go）
type SnapshotBuilderInterface interface {
	BuildForPeriod(ctx context.Context, retailerID int64, periodStart, periodEnd time.Time) error
}

// InsightBuilderInterface 洞察生成接口（实现见 ai_svc.go）
type InsightBuilderInterface interface {
	BuildInsightsForDomain(ctx context.Context, retailerID int64, domain string, periodStart, periodEnd time.Time) ([]model.Insight, error)
}

// ==================== 服务实现 ====================

// GenerationService 后台生成编排
// 报告事务提交后被派发；各内容域并行生成、彼此隔离，单域失败不影响其他域
type GenerationService struct {
	reportRepo repository.ReportRepository
	uow        *repository.ReportUnitOfWork
	snapshots  SnapshotBuilderInterface
	insights   InsightBuilderInterface

	// 单次派发的总超时
	timeout time.Duration
}

// NewGenerationService 创建生成编排服务
func NewGenerationService(
	reportRepo repository.ReportRepository,
	uow *repository.ReportUnitOfWork,
	snapshots SnapshotBuilderInterface,
	insights InsightBuilderInterface,
) *GenerationService {
	return &GenerationService{
		reportRepo: reportRepo,
		uow:        uow,
		snapshots:  snapshots,
		insights:   insights,
		timeout:    10 * time.Minute,
	}
}

// DispatchReport 派发生成任务（立即返回，后台执行）
func (s *GenerationService) DispatchReport(reportID int64, domains []string) {
	go s.run(reportID, domains)
}

// run 生成任务主流程
func (s *GenerationService) run(reportID int64, domains []string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.reportRepo.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 派发后报告被删，任务静默结束
			log.Printf("[Generation] 报告 %d 已不存在，跳过生成", reportID)
			return
		}
		log.Printf("[Generation] 加载报告 %d 失败: %v", reportID, err)
		return
	}

	// 快照先行：失败仅记录，洞察生成照常进行
	if err := s.snapshots.BuildForPeriod(ctx, report.RetailerID, report.PeriodStart, report.PeriodEnd); err != nil {
		log.Printf("[Generation] 报告 %d 快照构建失败: %v", reportID, err)
	}

	// 未启用洞察的报告只刷新快照
	if !report.IncludeInsights {
		log.Printf("[Generation] 报告 %d 未启用洞察，仅构建快照", reportID)
		return
	}

	var wg sync.WaitGroup
	for _, domain := range domains {
		wg.Add(1)
		go func(domain string) {
			defer wg.Done()
			if err := s.generateDomain(ctx, report, domain); err != nil {
				// 单域失败：对应内容域保持未链接，可通过重新生成补齐
				log.Printf("[Generation] 报告 %d 内容域 %s 生成失败: %v", reportID, domain, err)
			}
		}(domain)
	}
	wg.Wait()

	log.Printf("[Generation] 报告 %d 生成任务完成 (%d 个内容域)", reportID, len(domains))
}

// generateDomain 生成单个内容域的洞察并回填链接
func (s *GenerationService) generateDomain(ctx context.Context, report *model.Report, domain string) error {
	insights, err := s.insights.BuildInsightsForDomain(ctx, report.RetailerID, domain, report.PeriodStart, report.PeriodEnd)
	if err != nil {
		return err
	}
	if len(insights) == 0 {
		return errors.New("生成结果为空")
	}

	// 归属字段统一规整到报告的零售商/周期，生成侧返回不一致时仅告警
	for i := range insights {
		if !insights[i].MatchesPeriod(report.RetailerID, report.PeriodStart, report.PeriodEnd) {
			log.Printf("[Generation] 洞察归属与报告 %d 不一致，已规整 (domain=%s)", report.ID, domain)
		}
		insights[i].RetailerID = report.RetailerID
		insights[i].PeriodStart = report.PeriodStart
		insights[i].PeriodEnd = report.PeriodEnd
		insights[i].Domain = domain
		if insights[i].Status == "" {
			insights[i].Status = model.InsightStatusPending
		}
	}

	// 洞察写入与链接回填在同一事务，避免出现指向不存在洞察的链接
	return s.uow.Transaction(ctx, func(reports repository.ReportRepository, insightRepo repository.InsightRepository) error {
		if err := insightRepo.CreateBatch(ctx, insights); err != nil {
			return err
		}
		panel, err := insightRepo.LatestPanel(ctx, report.RetailerID, domain, report.PeriodStart, report.PeriodEnd)
		if err != nil {
			return err
		}
		return reports.LinkInsight(ctx, report.ID, domain, panel.ID)
	})
}
