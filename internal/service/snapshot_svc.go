package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"adboard_dev_v1_202601/internal/model"
	"adboard_dev_v1_202601/internal/repository"
)

// ==================== 指标来源 ====================

// DomainMetrics 单个内容域在一个周期内的聚合指标
type DomainMetrics struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	SpendCents  int64   `json:"spend_cents"`
	SalesCents  int64   `json:"sales_cents"`
	CTR         float64 `json:"ctr"`
	ROAS        float64 `json:"roas"`
}

// MetricSourceInterface 聚合指标来源
type MetricSourceInterface interface {
	SumForScope(ctx context.Context, retailerID int64, domain string, periodStart, periodEnd time.Time) (*DomainMetrics, error)
}

// liveMetricSource 从日汇总表读取并在内存累加
type liveMetricSource struct {
	snapshotRepo repository.SnapshotRepository
}

// NewLiveMetricSource 创建日汇总指标来源
func NewLiveMetricSource(snapshotRepo repository.SnapshotRepository) MetricSourceInterface {
	return &liveMetricSource{snapshotRepo: snapshotRepo}
}

func (s *liveMetricSource) SumForScope(ctx context.Context, retailerID int64, domain string, periodStart, periodEnd time.Time) (*DomainMetrics, error) {
	rows, err := s.snapshotRepo.SumDailyMetrics(ctx, retailerID, domain, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	metrics := &DomainMetrics{}
	for _, row := range rows {
		metrics.Impressions += row.Impressions
		metrics.Clicks += row.Clicks
		metrics.SpendCents += row.SpendCents
		metrics.SalesCents += row.SalesCents
	}
	if metrics.Impressions > 0 {
		metrics.CTR = float64(metrics.Clicks) / float64(metrics.Impressions)
	}
	if metrics.SpendCents > 0 {
		metrics.ROAS = float64(metrics.SalesCents) / float64(metrics.SpendCents)
	}
	return metrics, nil
}

// ==================== 服务实现 ====================

// SnapshotService 内容域指标快照服务
type SnapshotService struct {
	snapshotRepo repository.SnapshotRepository
	source       MetricSourceInterface
}

// NewSnapshotService 创建快照服务
func NewSnapshotService(snapshotRepo repository.SnapshotRepository, source MetricSourceInterface) *SnapshotService {
	return &SnapshotService{
		snapshotRepo: snapshotRepo,
		source:       source,
	}
}

// BuildForPeriod 重建指定零售商在一个周期内所有内容域的快照（幂等）
func (s *SnapshotService) BuildForPeriod(ctx context.Context, retailerID int64, periodStart, periodEnd time.Time) error {
	for _, domain := range model.AllDomains {
		metrics, err := s.source.SumForScope(ctx, retailerID, domain, periodStart, periodEnd)
		if err != nil {
			return fmt.Errorf("聚合 %s 指标失败: %w", domain, err)
		}
		payload, err := json.Marshal(metrics)
		if err != nil {
			return err
		}
		snapshot := &model.DomainSnapshot{
			RetailerID:  retailerID,
			Domain:      domain,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			Metrics:     payload,
			GeneratedAt: time.Now(),
		}
		if err := s.snapshotRepo.Upsert(ctx, snapshot); err != nil {
			return fmt.Errorf("写入 %s 快照失败: %w", domain, err)
		}
	}
	return nil
}

// BuildCurrentMonth 重建当月快照，供定时任务调用
func (s *SnapshotService) BuildCurrentMonth(ctx context.Context, retailerID int64) error {
	now := time.Now()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, -1)
	return s.BuildForPeriod(ctx, retailerID, periodStart, periodEnd)
}
