package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"adboard_dev_v1_202601/internal/model"
	"adboard_dev_v1_202601/internal/repository"
)

// ==================== Mock 实现 ====================

type mockSnapshotBuilder struct {
	buildFn func(ctx context.Context, retailerID int64, periodStart, periodEnd time.Time) error
}

func (m *mockSnapshotBuilder) BuildForPeriod(ctx context.Context, retailerID int64, periodStart, periodEnd time.Time) error {
	if m.buildFn != nil {
		return m.buildFn(ctx, retailerID, periodStart, periodEnd)
	}
	return nil
}

type mockInsightBuilder struct {
	buildFn func(ctx context.Context, retailerID int64, domain string, periodStart, periodEnd time.Time) ([]model.Insight, error)
}

func (m *mockInsightBuilder) BuildInsightsForDomain(ctx context.Context, retailerID int64, domain string, periodStart, periodEnd time.Time) ([]model.Insight, error) {
	if m.buildFn != nil {
		return m.buildFn(ctx, retailerID, domain, periodStart, periodEnd)
	}
	return []model.Insight{{
		RetailerID:  retailerID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Domain:      domain,
		Kind:        model.InsightKindPanel,
		Status:      model.InsightStatusPending,
		Title:       domain + " 洞察",
		Content:     []byte(`{"summary":"generated"}`),
	}}, nil
}

// ==================== 测试辅助函数 ====================

type generationTestEnv struct {
	db      *gorm.DB
	svc     *GenerationService
	reports repository.ReportRepository
	builder *mockInsightBuilder
	snaps   *mockSnapshotBuilder
}

func newGenerationTestEnv(t *testing.T) *generationTestEnv {
	db := setupServiceTestDB(t)
	reports := repository.NewReportRepository(db)
	insights := repository.NewInsightRepository(db)
	builder := &mockInsightBuilder{}
	snaps := &mockSnapshotBuilder{}

	svc := NewGenerationService(reports, repository.NewReportUnitOfWork(db, reports, insights), snaps, builder)
	return &generationTestEnv{db: db, svc: svc, reports: reports, builder: builder, snaps: snaps}
}

func seedDraftReport(t *testing.T, db *gorm.DB, retailerID int64, domains ...string) *model.Report {
	report := &model.Report{
		RetailerID:      retailerID,
		PeriodStart:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:       time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		PeriodType:      model.PeriodTypeMonthly,
		Status:          model.ReportStatusDraft,
		IncludeInsights: true,
	}
	for _, d := range domains {
		report.Domains = append(report.Domains, model.ReportDomain{Domain: d})
	}
	if err := db.Create(report).Error; err != nil {
		t.Fatalf("创建报告失败: %v", err)
	}
	return report
}

func domainLinks(t *testing.T, db *gorm.DB, reportID int64) map[string]*int64 {
	var rows []model.ReportDomain
	if err := db.Where("report_id = ?", reportID).Find(&rows).Error; err != nil {
		t.Fatalf("读取内容域失败: %v", err)
	}
	links := make(map[string]*int64, len(rows))
	for _, r := range rows {
		links[r.Domain] = r.AIInsightID
	}
	return links
}

// ==================== 测试 ====================

func TestGenerationService_LinksPanelInsight(t *testing.T) {
	env := newGenerationTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{})
	report := seedDraftReport(t, env.db, retailer.ID, model.DomainOverview, model.DomainKeywords)

	env.svc.run(report.ID, []string{model.DomainOverview, model.DomainKeywords})

	links := domainLinks(t, env.db, report.ID)
	for _, domain := range []string{model.DomainOverview, model.DomainKeywords} {
		id := links[domain]
		if id == nil {
			t.Fatalf("内容域 %s 未链接洞察", domain)
		}
		var insight model.Insight
		if err := env.db.First(&insight, *id).Error; err != nil {
			t.Fatalf("链接指向不存在的洞察: %v", err)
		}
		if insight.Kind != model.InsightKindPanel {
			t.Errorf("链接的洞察类型 = %s, 期望面板", insight.Kind)
		}
		if insight.Status != model.InsightStatusPending {
			t.Errorf("新洞察状态 = %s, 期望待审", insight.Status)
		}
	}
}

func TestGenerationService_DomainFailureIsolated(t *testing.T) {
	env := newGenerationTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{})
	report := seedDraftReport(t, env.db, retailer.ID, model.DomainOverview, model.DomainKeywords)

	env.builder.buildFn = func(ctx context.Context, retailerID int64, domain string, ps, pe time.Time) ([]model.Insight, error) {
		if domain == model.DomainKeywords {
			return nil, errors.New("模型超时")
		}
		return (&mockInsightBuilder{}).BuildInsightsForDomain(ctx, retailerID, domain, ps, pe)
	}

	env.svc.run(report.ID, []string{model.DomainOverview, model.DomainKeywords})

	links := domainLinks(t, env.db, report.ID)
	if links[model.DomainOverview] == nil {
		t.Error("成功的内容域应正常链接")
	}
	if links[model.DomainKeywords] != nil {
		t.Error("失败的内容域应保持未链接")
	}

	// 失败域不应留下孤儿洞察
	var count int64
	env.db.Model(&model.Insight{}).Where("domain = ?", model.DomainKeywords).Count(&count)
	if count != 0 {
		t.Errorf("失败域的洞察行数 = %d, 期望 0", count)
	}
}

func TestGenerationService_NormalizesOwnership(t *testing.T) {
	env := newGenerationTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{})
	report := seedDraftReport(t, env.db, retailer.ID, model.DomainOverview)

	// 生成侧返回错误的归属信息
	env.builder.buildFn = func(ctx context.Context, retailerID int64, domain string, ps, pe time.Time) ([]model.Insight, error) {
		return []model.Insight{{
			RetailerID:  999,
			PeriodStart: ps.AddDate(0, -1, 0),
			PeriodEnd:   pe,
			Domain:      domain,
			Kind:        model.InsightKindPanel,
			Content:     []byte(`{}`),
		}}, nil
	}

	env.svc.run(report.ID, []string{model.DomainOverview})

	links := domainLinks(t, env.db, report.ID)
	id := links[model.DomainOverview]
	if id == nil {
		t.Fatal("内容域未链接洞察")
	}

	var insight model.Insight
	env.db.First(&insight, *id)
	if insight.RetailerID != retailer.ID {
		t.Errorf("洞察归属零售商 = %d, 应规整为 %d", insight.RetailerID, retailer.ID)
	}
	if !insight.PeriodStart.Equal(report.PeriodStart) {
		t.Errorf("洞察周期 = %v, 应规整为报告周期", insight.PeriodStart)
	}
}

func TestGenerationService_SnapshotOnlyWhenInsightsDisabled(t *testing.T) {
	env := newGenerationTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{})

	report := &model.Report{
		RetailerID:  retailer.ID,
		PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		PeriodType:  model.PeriodTypeMonthly,
		Status:      model.ReportStatusDraft,
		Domains:     []model.ReportDomain{{Domain: model.DomainOverview}},
	}
	if err := env.db.Create(report).Error; err != nil {
		t.Fatalf("创建报告失败: %v", err)
	}

	snapshotBuilt := false
	env.snaps.buildFn = func(ctx context.Context, retailerID int64, ps, pe time.Time) error {
		snapshotBuilt = true
		return nil
	}
	env.builder.buildFn = func(ctx context.Context, retailerID int64, domain string, ps, pe time.Time) ([]model.Insight, error) {
		t.Error("未启用洞察的报告不应触发洞察生成")
		return nil, nil
	}

	env.svc.run(report.ID, []string{model.DomainOverview})

	if !snapshotBuilt {
		t.Error("快照构建不应依赖洞察开关")
	}
	links := domainLinks(t, env.db, report.ID)
	if links[model.DomainOverview] != nil {
		t.Error("未启用洞察时内容域应保持未链接")
	}
}

func TestGenerationService_SnapshotFailureNonFatal(t *testing.T) {
	env := newGenerationTestEnv(t)
	retailer := seedRetailer(t, env.db, model.FeatureSet{})
	report := seedDraftReport(t, env.db, retailer.ID, model.DomainOverview)

	env.snaps.buildFn = func(ctx context.Context, retailerID int64, ps, pe time.Time) error {
		return errors.New("指标库不可用")
	}

	env.svc.run(report.ID, []string{model.DomainOverview})

	links := domainLinks(t, env.db, report.ID)
	if links[model.DomainOverview] == nil {
		t.Error("快照失败不应阻断洞察生成")
	}
}

func TestGenerationService_DeletedReportSkipped(t *testing.T) {
	env := newGenerationTestEnv(t)

	// 不存在的报告：静默结束，不写入任何洞察
	env.svc.run(99999, []string{model.DomainOverview})

	var count int64
	env.db.Model(&model.Insight{}).Count(&count)
	if count != 0 {
		t.Errorf("不应写入洞察, 实际 %d 条", count)
	}
}
