package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"adboard_dev_v1_202601/internal/api/dto"
	"adboard_dev_v1_202601/internal/model"
	"adboard_dev_v1_202601/internal/repository"
)

// ==================== Mock 实现 ====================

type dispatchCall struct {
	reportID int64
	domains  []string
}

type mockDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (m *mockDispatcher) DispatchReport(reportID int64, domains []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, dispatchCall{reportID: reportID, domains: domains})
}

func (m *mockDispatcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockDispatcher) lastCall() dispatchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

// ==================== 测试辅助函数 ====================

func setupServiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	err = db.AutoMigrate(
		&model.Retailer{},
		&model.Report{}, &model.ReportDomain{},
		&model.Insight{},
		&model.AccessToken{},
		&model.DomainSnapshot{}, &model.AdMetricDaily{},
	)
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	return db
}

func seedRetailer(t *testing.T, db *gorm.DB, features model.FeatureSet) *model.Retailer {
	retailer := &model.Retailer{
		Name:     "测试零售商",
		IsActive: true,
		Features: features,
		Display: model.DisplayConfig{
			VisibleTabs:    []string{"overview", "keywords"},
			VisibleMetrics: []string{"impressions", "clicks"},
			KeywordFilters: []string{"brand"},
		},
	}
	if err := db.Create(retailer).Error; err != nil {
		t.Fatalf("创建零售商失败: %v", err)
	}
	return retailer
}

type reportTestEnv struct {
	db         *gorm.DB
	svc        *ReportService
	dispatcher *mockDispatcher
	reports    repository.ReportRepository
	insights   repository.InsightRepository
	tokens     repository.AccessTokenRepository
}

func newReportTestEnv(t *testing.T) *reportTestEnv {
	db := setupServiceTestDB(t)
	reports := repository.NewReportRepository(db)
	insights := repository.NewInsightRepository(db)
	tokens := repository.NewAccessTokenRepository(db)
	dispatcher := &mockDispatcher{}

	svc := NewReportService(reports, repository.NewRetailerRepository(db), insights, tokens, dispatcher)
	return &reportTestEnv{
		db:         db,
		svc:        svc,
		dispatcher: dispatcher,
		reports:    reports,
		insights:   insights,
		tokens:     tokens,
	}
}

func createRequest(retailerID int64, domains ...string) *dto.CreateReportRequest {
	return &dto.CreateReportRequest{
		RetailerID:  retailerID,
		Title:       "一月报告",
		PeriodStart: "2026-01-01",
		PeriodEnd:   "2026-01-31",
		PeriodType:  model.PeriodTypeMonthly,
		Domains:     domains,
	}
}

// ==================== 创建测试 ====================

func TestReportService_CreateAutoPublish(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{EnableReports: true})

	report, err := env.svc.CreateReport(context.Background(), createRequest(retailer.ID, model.DomainOverview), 7)
	if err != nil {
		t.Fatalf("CreateReport() 失败: %v", err)
	}

	if report.Status != model.ReportStatusPublished {
		t.Errorf("无审批要求时应自动发布, 实际状态 %s", report.Status)
	}
	if report.PublishedBy == nil || *report.PublishedBy != 7 {
		t.Error("自动发布应记录创建人为发布人")
	}
	if !report.AutoApprove {
		t.Error("AutoApprove 标记应为 true")
	}
	// 未启用洞察也要派发：快照构建不依赖洞察开关
	if env.dispatcher.callCount() != 1 {
		t.Errorf("创建后应派发一次生成任务, 实际 %d 次", env.dispatcher.callCount())
	}

	// 冻结配置来自零售商当前展示配置
	stored, _ := env.reports.GetByID(context.Background(), report.ID)
	if len(stored.Visibility.VisibleTabs) != 2 {
		t.Errorf("冻结的 VisibleTabs = %v", stored.Visibility.VisibleTabs)
	}
}

func TestReportService_CreateDraftWhenApprovalRequired(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{
		EnableReports:        true,
		DataRequiresApproval: true,
	})

	report, err := env.svc.CreateReport(context.Background(), createRequest(retailer.ID, model.DomainOverview), 1)
	if err != nil {
		t.Fatalf("CreateReport() 失败: %v", err)
	}
	if report.Status != model.ReportStatusDraft {
		t.Errorf("数据需审批时应保持草稿, 实际 %s", report.Status)
	}
	if report.AutoApprove {
		t.Error("AutoApprove 标记应为 false")
	}
}

func TestReportService_CreateDispatchesGeneration(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{
		EnableReports:     true,
		IncludeAIInsights: true,
	})

	report, err := env.svc.CreateReport(context.Background(),
		createRequest(retailer.ID, model.DomainKeywords, model.DomainOverview), 1)
	if err != nil {
		t.Fatalf("CreateReport() 失败: %v", err)
	}

	if env.dispatcher.callCount() != 1 {
		t.Fatalf("应派发一次生成任务, 实际 %d 次", env.dispatcher.callCount())
	}
	call := env.dispatcher.lastCall()
	if call.reportID != report.ID {
		t.Errorf("派发的报告ID = %d, 期望 %d", call.reportID, report.ID)
	}
	// 内容域按固定展示顺序规整
	if len(call.domains) != 2 || call.domains[0] != model.DomainOverview {
		t.Errorf("派发的内容域 = %v", call.domains)
	}
}

func TestReportService_CreateRejectsInvalidInput(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{EnableReports: true})

	req := createRequest(retailer.ID, "unknown_domain")
	if _, err := env.svc.CreateReport(context.Background(), req, 1); err == nil {
		t.Error("非法内容域应报错")
	}

	req = createRequest(retailer.ID, model.DomainOverview)
	req.PeriodEnd = "2025-12-01" // 早于开始
	if _, err := env.svc.CreateReport(context.Background(), req, 1); err == nil {
		t.Error("结束早于开始应报错")
	}

	// 功能未开启 fail-closed
	disabled := seedRetailer(t, env.db, model.FeatureSet{})
	if _, err := env.svc.CreateReport(context.Background(), createRequest(disabled.ID, model.DomainOverview), 1); err == nil {
		t.Error("未开启报告功能应拒绝创建")
	}
}

func TestReportService_SnapshotDispatchWithoutInsights(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{EnableReports: true})

	// 零售商未开启洞察：创建仍要派发快照构建
	report, err := env.svc.CreateReport(context.Background(), createRequest(retailer.ID, model.DomainOverview), 1)
	if err != nil {
		t.Fatalf("CreateReport() 失败: %v", err)
	}
	if env.dispatcher.callCount() != 1 {
		t.Fatalf("创建应派发一次, 实际 %d 次", env.dispatcher.callCount())
	}

	// 新增内容域同样要派发快照构建
	_, err = env.svc.UpdateReport(context.Background(), report.ID, &dto.UpdateReportRequest{
		Domains: []string{model.DomainOverview, model.DomainProducts},
	})
	if err != nil {
		t.Fatalf("UpdateReport() 失败: %v", err)
	}
	if env.dispatcher.callCount() != 2 {
		t.Fatalf("新增域应再派发一次, 实际共 %d 次", env.dispatcher.callCount())
	}
	call := env.dispatcher.lastCall()
	if len(call.domains) != 1 || call.domains[0] != model.DomainProducts {
		t.Errorf("只应派发新增域, 实际 %v", call.domains)
	}
}

// ==================== 冻结配置测试 ====================

func TestReportService_VisibilityFrozenAtCreation(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{EnableReports: true})

	report, err := env.svc.CreateReport(context.Background(), createRequest(retailer.ID, model.DomainOverview), 1)
	if err != nil {
		t.Fatalf("CreateReport() 失败: %v", err)
	}

	// 创建后修改零售商实时配置
	retailerRepo := repository.NewRetailerRepository(env.db)
	err = retailerRepo.UpdateDisplay(context.Background(), retailer.ID, model.DisplayConfig{
		VisibleTabs: []string{"everything", "changed", "now"},
	})
	if err != nil {
		t.Fatalf("UpdateDisplay() 失败: %v", err)
	}

	stored, err := env.reports.GetByID(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("GetByID() 失败: %v", err)
	}
	if len(stored.Visibility.VisibleTabs) != 2 || stored.Visibility.VisibleTabs[0] != "overview" {
		t.Errorf("冻结配置不应随零售商修改而变化: %v", stored.Visibility.VisibleTabs)
	}
}

// ==================== 内容域同步测试 ====================

func TestReportService_UpdateSyncsDomains(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{
		EnableReports:     true,
		IncludeAIInsights: true,
	})

	report, err := env.svc.CreateReport(context.Background(),
		createRequest(retailer.ID, model.DomainOverview, model.DomainKeywords), 1)
	if err != nil {
		t.Fatalf("CreateReport() 失败: %v", err)
	}
	baseCalls := env.dispatcher.callCount()

	// keywords 保留，overview 移除，products 新增
	updated, err := env.svc.UpdateReport(context.Background(), report.ID, &dto.UpdateReportRequest{
		Domains: []string{model.DomainKeywords, model.DomainProducts},
	})
	if err != nil {
		t.Fatalf("UpdateReport() 失败: %v", err)
	}

	names := updated.DomainNames()
	if len(names) != 2 {
		t.Fatalf("内容域数量 = %d, 期望 2", len(names))
	}
	for _, n := range names {
		if n == model.DomainOverview {
			t.Error("overview 应已被移除")
		}
	}

	// 仅为新增域派发
	if env.dispatcher.callCount() != baseCalls+1 {
		t.Fatalf("应为新增域派发一次, 实际新增 %d 次", env.dispatcher.callCount()-baseCalls)
	}
	call := env.dispatcher.lastCall()
	if len(call.domains) != 1 || call.domains[0] != model.DomainProducts {
		t.Errorf("只应派发新增域 products, 实际 %v", call.domains)
	}

	// 同样的目标集合再同步一次：幂等，无新派发
	_, err = env.svc.UpdateReport(context.Background(), report.ID, &dto.UpdateReportRequest{
		Domains: []string{model.DomainKeywords, model.DomainProducts},
	})
	if err != nil {
		t.Fatalf("重复同步失败: %v", err)
	}
	if env.dispatcher.callCount() != baseCalls+1 {
		t.Error("集合未变化时不应再派发")
	}

	var count int64
	env.db.Model(&model.ReportDomain{}).Where("report_id = ?", report.ID).Count(&count)
	if count != 2 {
		t.Errorf("数据库中内容域行数 = %d, 期望 2", count)
	}
}

func TestReportService_UpdateRejectsEmptyDomains(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{EnableReports: true})

	report, err := env.svc.CreateReport(context.Background(),
		createRequest(retailer.ID, model.DomainOverview, model.DomainKeywords), 1)
	if err != nil {
		t.Fatalf("CreateReport() 失败: %v", err)
	}

	// 空集合拒绝：报告不允许没有内容域
	_, err = env.svc.UpdateReport(context.Background(), report.ID, &dto.UpdateReportRequest{
		Domains: []string{},
	})
	if err != ErrEmptyDomains {
		t.Fatalf("空内容域集合应返回 ErrEmptyDomains, 实际 %v", err)
	}

	// 现有内容域保持不动
	var count int64
	env.db.Model(&model.ReportDomain{}).Where("report_id = ?", report.ID).Count(&count)
	if count != 2 {
		t.Errorf("内容域行数 = %d, 期望 2", count)
	}
}

func TestReportService_UpdateMutableFlags(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{
		EnableReports:        true,
		DataRequiresApproval: true,
	})

	report, err := env.svc.CreateReport(context.Background(), createRequest(retailer.ID, model.DomainOverview), 1)
	if err != nil {
		t.Fatalf("CreateReport() 失败: %v", err)
	}

	// 补开洞察并要求审批
	on := true
	updated, err := env.svc.UpdateReport(context.Background(), report.ID, &dto.UpdateReportRequest{
		IncludeInsights:         &on,
		InsightsRequireApproval: &on,
	})
	if err != nil {
		t.Fatalf("UpdateReport() 失败: %v", err)
	}
	if !updated.IncludeInsights || !updated.InsightsRequireApproval {
		t.Error("洞察开关应已改写")
	}
	// 固化的 auto_approve 不随开关改写而重算
	if updated.AutoApprove {
		t.Error("AutoApprove 不应被重新推导")
	}

	// 改写后的开关立即作用于发布门：待审洞察阻塞发布
	insight := model.Insight{
		RetailerID:  retailer.ID,
		PeriodStart: report.PeriodStart,
		PeriodEnd:   report.PeriodEnd,
		Domain:      model.DomainOverview,
		Kind:        model.InsightKindPanel,
		Status:      model.InsightStatusPending,
	}
	if err := env.db.Create(&insight).Error; err != nil {
		t.Fatalf("创建洞察失败: %v", err)
	}
	if err := env.reports.LinkInsight(context.Background(), report.ID, model.DomainOverview, insight.ID); err != nil {
		t.Fatalf("LinkInsight() 失败: %v", err)
	}
	if _, err := env.svc.Publish(context.Background(), report.ID, 2); err == nil {
		t.Fatal("补开审批要求后待审洞察应阻塞发布")
	}

	// 关掉审批要求即解除阻塞
	off := false
	if _, err := env.svc.UpdateReport(context.Background(), report.ID, &dto.UpdateReportRequest{
		InsightsRequireApproval: &off,
	}); err != nil {
		t.Fatalf("UpdateReport() 失败: %v", err)
	}
	if _, err := env.svc.Publish(context.Background(), report.ID, 2); err != nil {
		t.Fatalf("关闭审批要求后发布失败: %v", err)
	}
}

func TestReportService_UpdateArchiveFlag(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{EnableReports: true})

	report, _ := env.svc.CreateReport(context.Background(), createRequest(retailer.ID, model.DomainOverview), 1)

	on := true
	updated, err := env.svc.UpdateReport(context.Background(), report.ID, &dto.UpdateReportRequest{IsArchived: &on})
	if err != nil {
		t.Fatalf("UpdateReport() 失败: %v", err)
	}
	if !updated.IsArchived || updated.Status != model.ReportStatusArchived {
		t.Errorf("归档后状态 = (%v, %s)", updated.IsArchived, updated.Status)
	}

	// 归档中只接受解除归档
	title := "改名"
	if _, err := env.svc.UpdateReport(context.Background(), report.ID, &dto.UpdateReportRequest{Title: &title}); err != ErrReportArchived {
		t.Errorf("归档报告改标题应返回 ErrReportArchived, 实际 %v", err)
	}

	off := false
	updated, err = env.svc.UpdateReport(context.Background(), report.ID, &dto.UpdateReportRequest{IsArchived: &off})
	if err != nil {
		t.Fatalf("解除归档失败: %v", err)
	}
	// 已发布过的报告恢复为 published
	if updated.IsArchived || updated.Status != model.ReportStatusPublished {
		t.Errorf("解除归档后状态 = (%v, %s), 期望恢复 published", updated.IsArchived, updated.Status)
	}
}

// ==================== 发布门测试 ====================

func TestReportService_PublishBlockedByPendingInsight(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{
		EnableReports:           true,
		DataRequiresApproval:    true,
		IncludeAIInsights:       true,
		InsightsRequireApproval: true,
	})

	report, err := env.svc.CreateReport(context.Background(), createRequest(retailer.ID, model.DomainOverview), 1)
	if err != nil {
		t.Fatalf("CreateReport() 失败: %v", err)
	}

	// 写入待审洞察并链接
	insight := model.Insight{
		RetailerID:  retailer.ID,
		PeriodStart: report.PeriodStart,
		PeriodEnd:   report.PeriodEnd,
		Domain:      model.DomainOverview,
		Kind:        model.InsightKindPanel,
		Status:      model.InsightStatusPending,
	}
	if err := env.db.Create(&insight).Error; err != nil {
		t.Fatalf("创建洞察失败: %v", err)
	}
	if err := env.reports.LinkInsight(context.Background(), report.ID, model.DomainOverview, insight.ID); err != nil {
		t.Fatalf("LinkInsight() 失败: %v", err)
	}

	_, err = env.svc.Publish(context.Background(), report.ID, 2)
	if err == nil {
		t.Fatal("待审洞察应阻塞发布")
	}
	if !strings.Contains(err.Error(), model.DomainOverview) {
		t.Errorf("错误信息应包含待审的内容域: %v", err)
	}

	// 审批通过后可发布
	if err := env.insights.UpdateStatus(context.Background(), insight.ID, model.InsightStatusApproved, 2); err != nil {
		t.Fatalf("UpdateStatus() 失败: %v", err)
	}
	published, err := env.svc.Publish(context.Background(), report.ID, 2)
	if err != nil {
		t.Fatalf("审批后发布失败: %v", err)
	}
	if published.Status != model.ReportStatusPublished {
		t.Errorf("状态 = %s, 期望 published", published.Status)
	}
	if published.PublishedBy == nil || *published.PublishedBy != 2 {
		t.Error("应记录发布人")
	}
}

func TestReportService_PublishUnlinkedDomainsPass(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{
		EnableReports:           true,
		DataRequiresApproval:    true,
		IncludeAIInsights:       true,
		InsightsRequireApproval: true,
	})

	report, err := env.svc.CreateReport(context.Background(),
		createRequest(retailer.ID, model.DomainOverview, model.DomainKeywords), 1)
	if err != nil {
		t.Fatalf("CreateReport() 失败: %v", err)
	}

	// 所有内容域都未链接洞察：生成未完成不阻塞发布
	if _, err := env.svc.Publish(context.Background(), report.ID, 2); err != nil {
		t.Fatalf("未链接的内容域不应阻塞发布: %v", err)
	}
}

func TestReportService_PublishTwiceRejected(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{EnableReports: true})

	report, _ := env.svc.CreateReport(context.Background(), createRequest(retailer.ID, model.DomainOverview), 1)
	// 自动发布后再次发布应报错
	if _, err := env.svc.Publish(context.Background(), report.ID, 1); err == nil {
		t.Error("重复发布应报错")
	}
}

// ==================== 归档与删除测试 ====================

func TestReportService_ArchiveUnarchive(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{EnableReports: true})

	report, _ := env.svc.CreateReport(context.Background(), createRequest(retailer.ID, model.DomainOverview), 1)

	if err := env.svc.Archive(context.Background(), report.ID); err != nil {
		t.Fatalf("Archive() 失败: %v", err)
	}
	stored, _ := env.reports.GetByID(context.Background(), report.ID)
	if !stored.IsArchived || stored.Status != model.ReportStatusArchived {
		t.Errorf("归档后状态 = (%v, %s)", stored.IsArchived, stored.Status)
	}

	// 已发布过的报告取消归档应恢复为 published
	if err := env.svc.Unarchive(context.Background(), report.ID); err != nil {
		t.Fatalf("Unarchive() 失败: %v", err)
	}
	stored, _ = env.reports.GetByID(context.Background(), report.ID)
	if stored.IsArchived || stored.Status != model.ReportStatusPublished {
		t.Errorf("取消归档后状态 = (%v, %s), 期望恢复 published", stored.IsArchived, stored.Status)
	}
}

func TestReportService_DeleteCascades(t *testing.T) {
	env := newReportTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{EnableReports: true})

	report, _ := env.svc.CreateReport(context.Background(), createRequest(retailer.ID, model.DomainOverview), 1)

	// 挂一个锁定该报告的活跃令牌
	token := &model.AccessToken{
		RetailerID: retailer.ID,
		Token:      "report-scoped-token",
		TokenType:  model.TokenTypeReportAccess,
		ReportID:   &report.ID,
		IsActive:   true,
	}
	if err := env.db.Create(token).Error; err != nil {
		t.Fatalf("创建令牌失败: %v", err)
	}

	if err := env.svc.Delete(context.Background(), report.ID); err != nil {
		t.Fatalf("Delete() 失败: %v", err)
	}

	if _, err := env.svc.GetDetail(context.Background(), report.ID); err != ErrReportNotFound {
		t.Errorf("删除后查询应返回 ErrReportNotFound, 实际 %v", err)
	}

	var domainCount int64
	env.db.Model(&model.ReportDomain{}).Where("report_id = ?", report.ID).Count(&domainCount)
	if domainCount != 0 {
		t.Errorf("内容域应级联删除, 剩余 %d", domainCount)
	}

	var stored model.AccessToken
	env.db.First(&stored, token.ID)
	if stored.IsActive {
		t.Error("报告删除后关联令牌应被停用")
	}
}
