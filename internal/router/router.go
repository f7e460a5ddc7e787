package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"adboard_dev_v1_202601/internal/controller"
	"adboard_dev_v1_202601/internal/middleware"
	"adboard_dev_v1_202601/internal/model"

	_ "adboard_dev_v1_202601/docs"
)

// Controllers 路由依赖的控制器集合
type Controllers struct {
	User    *controller.UserController
	Report  *controller.ReportController
	Token   *controller.TokenController
	Insight *controller.InsightController
	Share   *controller.ShareController
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctls *Controllers) {
	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. 外部分享路由（无后台登录态，靠访问令牌）
	share := r.Group("/share")
	{
		// GET /share/:token
		share.GET("/:token", ctls.Share.View)
		// POST /share/:token/password
		share.POST("/:token/password", ctls.Share.VerifyPassword)
	}

	// 3. API 路由组
	api := r.Group("/api")
	{
		// auth 鉴权组
		auth := api.Group("/auth")
		{
			auth.POST("/login", ctls.User.Login)
			auth.POST("/refresh", ctls.User.RefreshToken)
			auth.PUT("/password", middleware.JWTAuth(), ctls.User.ChangePassword)
		}

		// reports 报告生命周期
		reports := api.Group("/reports", middleware.JWTAuth())
		{
			reports.GET("", ctls.Report.List)
			reports.GET("/:id", ctls.Report.Get)

			// 写操作仅限 admin/operator
			elevated := middleware.RequireRole(model.RoleAdmin, model.RoleOperator)
			reports.POST("", elevated, ctls.Report.Create)
			reports.PUT("/:id", elevated, ctls.Report.Update)
			reports.DELETE("/:id", elevated, ctls.Report.Delete)
			reports.POST("/:id/publish", elevated, ctls.Report.Publish)
			reports.POST("/:id/archive", elevated, ctls.Report.Archive)
			reports.POST("/:id/unarchive", elevated, ctls.Report.Unarchive)
			reports.POST("/:id/domains/:domain/regenerate", elevated, ctls.Report.RegenerateDomain)
		}

		// insights 洞察审批
		insights := api.Group("/insights", middleware.JWTAuth(), middleware.RequireRole(model.RoleAdmin, model.RoleOperator))
		{
			insights.POST("/:id/approve", ctls.Insight.Approve)
			insights.POST("/:id/reject", ctls.Insight.Reject)
		}

		// access-tokens 访问令牌管理
		tokens := api.Group("/access-tokens", middleware.JWTAuth(), middleware.RequireRole(model.RoleAdmin, model.RoleOperator))
		{
			tokens.POST("", ctls.Token.Issue)
			tokens.GET("", ctls.Token.List)
			tokens.DELETE("", ctls.Token.RevokeByRetailer)
			tokens.DELETE("/:id", ctls.Token.Revoke)
		}
	}
}
