package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"adboard_dev_v1_202601/internal/controller"
	"adboard_dev_v1_202601/internal/middleware"
	"adboard_dev_v1_202601/internal/model"
	"adboard_dev_v1_202601/internal/repository"
	"adboard_dev_v1_202601/internal/router"
	"adboard_dev_v1_202601/internal/service"
	"adboard_dev_v1_202601/internal/task"
	"adboard_dev_v1_202601/pkg/database"
)

// @title Adboard 报告与分享服务
// @version 1.0
// @description 零售商广告看板的报告生命周期与外部安全访问
// @BasePath /api
func main() {
	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	tasks := initTasks(deps)
	defer stopTasks(tasks)

	// 4. 初始化路由
	r := gin.Default()
	router.InitRoutes(r, deps.Controllers)

	// 5. 启动服务
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *router.Controllers
}

// Repositories 仓库集合
type Repositories struct {
	User     repository.UserRepository
	Retailer repository.RetailerRepository
	Report   repository.ReportRepository
	Insight  repository.InsightRepository
	Token    repository.AccessTokenRepository
	Snapshot repository.SnapshotRepository
	Uow      *repository.ReportUnitOfWork
}

// Services 服务集合
type Services struct {
	User       *service.UserService
	Report     *service.ReportService
	Insight    *service.InsightService
	Token      *service.TokenService
	AI         *service.AIService
	Snapshot   *service.SnapshotService
	Generation *service.GenerationService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	dsn := getEnv("DATABASE_DSN", fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "adboard"),
		getEnv("DB_PASSWORD", "adboard"),
		getEnv("DB_NAME", "adboard"),
		getEnv("DB_PORT", "5432"),
	))

	return database.InitDB(dsn,
		// Manager
		&model.SysUser{},
		// Retailer
		&model.Retailer{},
		// Report
		&model.Report{}, &model.ReportDomain{},
		// Insight
		&model.Insight{},
		// Access
		&model.AccessToken{},
		// Metrics
		&model.DomainSnapshot{}, &model.AdMetricDaily{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- JWT 配置 --------
	jwtCfg := middleware.DefaultJWTConfig()
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		jwtCfg.SecretKey = secret
	}
	middleware.SetJWTConfig(jwtCfg)

	// -------- Repo 层 --------
	repos := initRepositories(db)

	// -------- 业务服务 --------
	aiSvc := service.NewAIService(&service.AIConfig{
		ApiKey: getEnv("GEMINI_API_KEY", ""),
	}, repos.Snapshot)

	snapshotSvc := service.NewSnapshotService(repos.Snapshot, service.NewLiveMetricSource(repos.Snapshot))
	generationSvc := service.NewGenerationService(repos.Report, repos.Uow, snapshotSvc, aiSvc)

	services := &Services{
		User:       service.NewUserService(repos.User),
		Insight:    service.NewInsightService(repos.Insight),
		AI:         aiSvc,
		Snapshot:   snapshotSvc,
		Generation: generationSvc,
	}
	services.Report = service.NewReportService(repos.Report, repos.Retailer, repos.Insight, repos.Token, generationSvc)
	services.Token = service.NewTokenService(
		repos.Token, repos.Retailer, repos.Report, repos.Insight, repos.Snapshot,
		getEnv("SHARE_BASE_URL", "http://localhost:8080"),
	)

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		User:    controller.NewUserController(services.User),
		Report:  controller.NewReportController(services.Report),
		Token:   controller.NewTokenController(services.Token),
		Insight: controller.NewInsightController(services.Insight),
		Share:   controller.NewShareController(services.Token),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
	}
}

// initRepositories 初始化所有仓库
func initRepositories(db *gorm.DB) *Repositories {
	reportRepo := repository.NewReportRepository(db)
	insightRepo := repository.NewInsightRepository(db)
	return &Repositories{
		User:     repository.NewUserRepository(db),
		Retailer: repository.NewRetailerRepository(db),
		Report:   reportRepo,
		Insight:  insightRepo,
		Token:    repository.NewAccessTokenRepository(db),
		Snapshot: repository.NewSnapshotRepository(db),
		Uow:      repository.NewReportUnitOfWork(db, reportRepo, insightRepo),
	}
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) []*task.SnapshotTask {
	snapshotTask := task.NewSnapshotTask(deps.Repos.Retailer, deps.Services.Snapshot)
	snapshotTask.Start()

	log.Println("定时任务已启动")
	return []*task.SnapshotTask{snapshotTask}
}

// stopTasks 停止定时任务
func stopTasks(tasks []*task.SnapshotTask) {
	for _, t := range tasks {
		t.Stop()
	}
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
