package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"adboard_dev_v1_202601/internal/repository"
	"adboard_dev_v1_202601/internal/service"
)

// ==================== SnapshotTask 快照刷新任务 ====================

// SnapshotTask 定时重建所有活跃零售商的当月指标快照
// 实时分享视图读取的就是这份数据，刷新失败只影响新鲜度，不影响可用性
type SnapshotTask struct {
	retailerRepo repository.RetailerRepository
	snapshotSvc  *service.SnapshotService
	cron         *cron.Cron

	// 并发控制
	concurrencyLimit int
}

// NewSnapshotTask 创建快照刷新任务
func NewSnapshotTask(retailerRepo repository.RetailerRepository, snapshotSvc *service.SnapshotService) *SnapshotTask {
	return &SnapshotTask{
		retailerRepo:     retailerRepo,
		snapshotSvc:      snapshotSvc,
		cron:             cron.New(cron.WithSeconds()),
		concurrencyLimit: 5,
	}
}

// Start 启动定时任务
func (t *SnapshotTask) Start() {
	// 定时策略：每天凌晨 3 点重建
	_, err := t.cron.AddFunc("0 0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		t.execute(ctx)
	})
	if err != nil {
		log.Fatalf("[SnapshotTask] 无法启动定时任务: %v", err)
	}

	t.cron.Start()
	log.Println("[SnapshotTask] 快照刷新任务已启动 (每日 03:00)")

	// 启动后先跑一轮，避免首日无数据
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		t.execute(ctx)
	}()
}

// Stop 停止任务
func (t *SnapshotTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[SnapshotTask] 快照刷新任务已停止")
}

// execute 刷新一轮
func (t *SnapshotTask) execute(ctx context.Context) {
	retailers, err := t.retailerRepo.ListActive(ctx)
	if err != nil {
		log.Printf("[SnapshotTask] 加载零售商失败: %v", err)
		return
	}

	log.Printf("[SnapshotTask] 开始刷新 %d 个零售商的当月快照", len(retailers))

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup
	for i := range retailers {
		retailer := retailers[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := t.snapshotSvc.BuildCurrentMonth(ctx, retailer.ID); err != nil {
				// 单个零售商失败不影响其他
				log.Printf("[SnapshotTask] 零售商 %d 快照刷新失败: %v", retailer.ID, err)
			}
		}()
	}
	wg.Wait()

	log.Println("[SnapshotTask] 本轮快照刷新完成")
}
