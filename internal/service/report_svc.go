package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"adboard_dev_v1_202601/internal/api/dto"
	"adboard_dev_v1_202601/internal/model"
	"adboard_dev_v1_202601/internal/repository"
)

// ==================== 外部服务依赖 ====================

// GenerationDispatcher 生成任务派发接口
// 实现见 generation_svc.go，报告服务只在事务提交后调用
type GenerationDispatcher interface {
	DispatchReport(reportID int64, domains []string)
}

// ==================== 服务实现 ====================

// ReportService 报告生命周期服务
type ReportService struct {
	reportRepo   repository.ReportRepository
	retailerRepo repository.RetailerRepository
	insightRepo  repository.InsightRepository
	tokenRepo    repository.AccessTokenRepository
	dispatcher   GenerationDispatcher
}

// NewReportService 创建报告服务
func NewReportService(
	reportRepo repository.ReportRepository,
	retailerRepo repository.RetailerRepository,
	insightRepo repository.InsightRepository,
	tokenRepo repository.AccessTokenRepository,
	dispatcher GenerationDispatcher,
) *ReportService {
	return &ReportService{
		reportRepo:   reportRepo,
		retailerRepo: retailerRepo,
		insightRepo:  insightRepo,
		tokenRepo:    tokenRepo,
		dispatcher:   dispatcher,
	}
}

// ==================== 创建 ====================

// CreateReport 创建报告
// 创建时一次性固化：审批配置、自动发布标记、冻结的展示配置
func (s *ReportService) CreateReport(ctx context.Context, req *dto.CreateReportRequest, creatorID int64) (*model.Report, error) {
	periodStart, err := parseDate(req.PeriodStart)
	if err != nil {
		return nil, ErrInvalidPeriod
	}
	periodEnd, err := parseDate(req.PeriodEnd)
	if err != nil {
		return nil, ErrInvalidPeriod
	}
	if periodEnd.Before(periodStart) {
		return nil, ErrInvalidPeriod
	}
	if !model.IsValidPeriodType(req.PeriodType) {
		return nil, fmt.Errorf("非法的周期类型: %s", req.PeriodType)
	}

	domains, err := normalizeDomains(req.Domains)
	if err != nil {
		return nil, err
	}

	retailer, err := s.retailerRepo.GetByID(ctx, req.RetailerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRetailerNotFound
		}
		return nil, err
	}
	if !retailer.Features.EnableReports {
		return nil, &FeatureDisabledError{Flag: model.FeatureEnableReports}
	}

	// 报告级覆盖，缺省继承零售商功能开关
	includeInsights := retailer.Features.IncludeAIInsights
	if req.IncludeInsights != nil {
		includeInsights = *req.IncludeInsights
	}
	insightsRequireApproval := retailer.Features.InsightsRequireApproval
	if req.InsightsRequireApproval != nil {
		insightsRequireApproval = *req.InsightsRequireApproval
	}

	report := &model.Report{
		RetailerID:              req.RetailerID,
		Title:                   req.Title,
		PeriodStart:             periodStart,
		PeriodEnd:               periodEnd,
		PeriodType:              req.PeriodType,
		Status:                  model.ReportStatusDraft,
		HiddenFromRetailer:      req.HiddenFromRetailer,
		IncludeInsights:         includeInsights,
		InsightsRequireApproval: insightsRequireApproval,
		AutoApprove:             ShouldAutoApprove(retailer.Features, includeInsights, insightsRequireApproval),
		CreatedBy:               creatorID,
		Visibility:              retailer.FreezeVisibility(),
	}
	for _, d := range domains {
		report.Domains = append(report.Domains, model.ReportDomain{Domain: d})
	}

	if err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, err
	}

	// 自动发布：创建人同时记为发布人
	if report.AutoApprove {
		now := time.Now()
		if err := s.reportRepo.UpdateFields(ctx, report.ID, map[string]interface{}{
			"status":       model.ReportStatusPublished,
			"published_at": now,
			"published_by": creatorID,
		}); err != nil {
			return nil, err
		}
		report.MarkPublished(creatorID, now)
	}

	// 事务已提交，派发生成任务（异步，不阻塞创建响应）
	// 快照构建不依赖洞察开关；是否生成洞察由编排侧按报告配置判断
	if s.dispatcher != nil {
		s.dispatcher.DispatchReport(report.ID, domains)
	}

	return report, nil
}

// ==================== 更新 ====================

// UpdateReport 更新报告基本信息并同步内容域
func (s *ReportService) UpdateReport(ctx context.Context, id int64, req *dto.UpdateReportRequest) (*model.Report, error) {
	report, err := s.getReport(ctx, id)
	if err != nil {
		return nil, err
	}
	// 已归档报告只接受解除归档，其余修改一律拒绝
	if report.IsArchived && (req.IsArchived == nil || *req.IsArchived) {
		return nil, ErrReportArchived
	}
	// 报告至少保留一个内容域，空集合在任何写入前拒绝
	if req.Domains != nil && len(req.Domains) == 0 {
		return nil, ErrEmptyDomains
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.HiddenFromRetailer != nil {
		fields["hidden_from_retailer"] = *req.HiddenFromRetailer
	}
	// 洞察开关可随时改写；固化的 auto_approve 只在创建时生效，
	// 改写后的开关由发布门按当前值重新评估
	if req.IncludeInsights != nil {
		fields["include_insights"] = *req.IncludeInsights
	}
	if req.InsightsRequireApproval != nil {
		fields["insights_require_approval"] = *req.InsightsRequireApproval
	}
	if req.IsArchived != nil && *req.IsArchived != report.IsArchived {
		fields["is_archived"] = *req.IsArchived
		if *req.IsArchived {
			fields["status"] = model.ReportStatusArchived
		} else if report.PublishedAt != nil {
			fields["status"] = model.ReportStatusPublished
		} else {
			fields["status"] = model.ReportStatusDraft
		}
	}
	if len(fields) > 0 {
		if err := s.reportRepo.UpdateFields(ctx, id, fields); err != nil {
			return nil, err
		}
	}

	// Domains 为 nil 表示不动内容域
	if req.Domains != nil {
		desired, err := normalizeDomains(req.Domains)
		if err != nil {
			return nil, err
		}
		toAdd, toRemove := computeDomainDiff(report.DomainNames(), desired)
		if err := s.reportRepo.SyncDomains(ctx, id, toAdd, toRemove); err != nil {
			return nil, err
		}
		// 只为新增内容域派发生成，保留域不重复生成
		if len(toAdd) > 0 && s.dispatcher != nil {
			s.dispatcher.DispatchReport(id, toAdd)
		}
	}

	return s.getReport(ctx, id)
}

// computeDomainDiff 计算目标集合与当前集合的差异
func computeDomainDiff(current, desired []string) (toAdd, toRemove []string) {
	currentSet := make(map[string]bool, len(current))
	for _, d := range current {
		currentSet[d] = true
	}
	desiredSet := make(map[string]bool, len(desired))
	for _, d := range desired {
		desiredSet[d] = true
	}

	for _, d := range desired {
		if !currentSet[d] {
			toAdd = append(toAdd, d)
		}
	}
	for _, d := range current {
		if !desiredSet[d] {
			toRemove = append(toRemove, d)
		}
	}
	return toAdd, toRemove
}

// ==================== 状态流转 ====================

// Publish 手工发布
// 发布动作本身即数据审批信号；洞察轴不通过时给出可操作的域列表
func (s *ReportService) Publish(ctx context.Context, id int64, publisherID int64) (*model.Report, error) {
	report, err := s.getReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := report.CanPublish(); err != nil {
		return nil, err
	}

	state, err := s.evaluateGate(ctx, report)
	if err != nil {
		return nil, err
	}
	if !state.InsightsApproved {
		return nil, fmt.Errorf("以下内容域的洞察尚未审批通过: %s", strings.Join(state.PendingInsights, ", "))
	}

	now := time.Now()
	if err := s.reportRepo.UpdateFields(ctx, id, map[string]interface{}{
		"status":       model.ReportStatusPublished,
		"published_at": now,
		"published_by": publisherID,
	}); err != nil {
		return nil, err
	}
	report.MarkPublished(publisherID, now)
	log.Printf("[Report] 报告 %d 已发布 (发布人 %d)", id, publisherID)
	return report, nil
}

// Archive 软归档，归档后对外分享视图不可见
func (s *ReportService) Archive(ctx context.Context, id int64) error {
	report, err := s.getReport(ctx, id)
	if err != nil {
		return err
	}
	if report.IsArchived {
		return nil
	}
	return s.reportRepo.UpdateFields(ctx, id, map[string]interface{}{
		"is_archived": true,
		"status":      model.ReportStatusArchived,
	})
}

// Unarchive 取消归档，按发布记录恢复原状态
func (s *ReportService) Unarchive(ctx context.Context, id int64) error {
	report, err := s.getReport(ctx, id)
	if err != nil {
		return err
	}
	if !report.IsArchived {
		return nil
	}
	status := model.ReportStatusDraft
	if report.PublishedAt != nil {
		status = model.ReportStatusPublished
	}
	return s.reportRepo.UpdateFields(ctx, id, map[string]interface{}{
		"is_archived": false,
		"status":      status,
	})
}

// Delete 删除报告：级联移除内容域，并停用锁定该报告的令牌
func (s *ReportService) Delete(ctx context.Context, id int64) error {
	if _, err := s.getReport(ctx, id); err != nil {
		return err
	}
	if err := s.reportRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.tokenRepo.DeactivateByReport(ctx, id); err != nil {
		// 报告已删，令牌停用失败仅记录，校验路径会因报告缺失而拒绝
		log.Printf("[Report] 停用报告 %d 的访问令牌失败: %v", id, err)
	}
	return nil
}

// RegenerateDomain 对单个内容域重新派发生成
func (s *ReportService) RegenerateDomain(ctx context.Context, id int64, domain string) error {
	report, err := s.getReport(ctx, id)
	if err != nil {
		return err
	}
	if !report.IncludeInsights {
		return ErrInsightsNotEnabled
	}
	for _, d := range report.Domains {
		if d.Domain == domain {
			s.dispatcher.DispatchReport(id, []string{domain})
			return nil
		}
	}
	return fmt.Errorf("报告不包含内容域: %s", domain)
}

// ==================== 查询 ====================

// GetDetail 报告详情（含审批门状态）
func (s *ReportService) GetDetail(ctx context.Context, id int64) (*dto.ReportDetailVO, error) {
	report, err := s.getReport(ctx, id)
	if err != nil {
		return nil, err
	}
	state, err := s.evaluateGate(ctx, report)
	if err != nil {
		return nil, err
	}

	detail := &dto.ReportDetailVO{
		ReportVO:                toReportVO(report),
		HiddenFromRetailer:      report.HiddenFromRetailer,
		IncludeInsights:         report.IncludeInsights,
		InsightsRequireApproval: report.InsightsRequireApproval,
		AutoApprove:             report.AutoApprove,
		Approval: dto.ApprovalStateVO{
			DataApproved:     state.DataApproved,
			InsightsApproved: state.InsightsApproved,
			PendingInsights:  state.PendingInsights,
		},
		Visibility: report.Visibility,
	}
	return detail, nil
}

// List 报告列表
func (s *ReportService) List(ctx context.Context, req *dto.ListReportsRequest) (*dto.ListReportsResponse, error) {
	reports, total, err := s.reportRepo.List(ctx, repository.ReportFilter{
		RetailerID: req.RetailerID,
		Status:     req.Status,
		Archived:   req.Archived,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.ListReportsResponse{Total: total, Items: make([]dto.ReportVO, 0, len(reports))}
	for i := range reports {
		resp.Items = append(resp.Items, toReportVO(&reports[i]))
	}
	return resp, nil
}

// ==================== 内部方法 ====================

func (s *ReportService) getReport(ctx context.Context, id int64) (*model.Report, error) {
	report, err := s.reportRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}

// evaluateGate 加载已链接洞察并计算审批门
func (s *ReportService) evaluateGate(ctx context.Context, report *model.Report) (ApprovalState, error) {
	ids := make([]int64, 0, len(report.Domains))
	for _, d := range report.Domains {
		if d.AIInsightID != nil {
			ids = append(ids, *d.AIInsightID)
		}
	}
	insights, err := s.insightRepo.GetByIDs(ctx, ids)
	if err != nil {
		return ApprovalState{}, err
	}
	return EvaluateApproval(report, insights), nil
}

func toReportVO(report *model.Report) dto.ReportVO {
	vo := dto.ReportVO{
		ID:          report.ID,
		RetailerID:  report.RetailerID,
		Title:       report.Title,
		PeriodStart: report.PeriodStart.Format("2006-01-02"),
		PeriodEnd:   report.PeriodEnd.Format("2006-01-02"),
		PeriodType:  report.PeriodType,
		Status:      report.Status,
		IsArchived:  report.IsArchived,
		PublishedAt: report.PublishedAt,
		CreatedAt:   report.CreatedAt,
	}
	for _, d := range report.Domains {
		vo.Domains = append(vo.Domains, dto.ReportDomainVO{
			Domain:      d.Domain,
			AIInsightID: d.AIInsightID,
			HasInsight:  d.AIInsightID != nil,
		})
	}
	return vo
}

// normalizeDomains 校验并去重内容域，保持固定展示顺序
func normalizeDomains(domains []string) ([]string, error) {
	seen := make(map[string]bool, len(domains))
	for _, d := range domains {
		if !model.IsValidDomain(d) {
			return nil, fmt.Errorf("非法的内容域: %s", d)
		}
		seen[d] = true
	}
	result := make([]string, 0, len(seen))
	for _, d := range model.AllDomains {
		if seen[d] {
			result = append(result, d)
		}
	}
	return result, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// ==================== 错误定义 ====================

var (
	ErrReportNotFound     = errors.New("报告不存在")
	ErrRetailerNotFound   = errors.New("零售商不存在")
	ErrInvalidPeriod      = errors.New("非法的报告周期")
	ErrEmptyDomains       = errors.New("内容域不能为空")
	ErrReportArchived     = errors.New("已归档的报告不可修改")
	ErrInsightsNotEnabled = errors.New("报告未启用AI洞察")
)
