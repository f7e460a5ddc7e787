package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"adboard_dev_v1_202601/internal/api/dto"
	"adboard_dev_v1_202601/internal/middleware"
	"adboard_dev_v1_202601/internal/service"
)

// ==================== ReportController 报告控制器 ====================

// ReportController 报告控制器
type ReportController struct {
	reportService *service.ReportService
}

// NewReportController 创建报告控制器
func NewReportController(reportService *service.ReportService) *ReportController {
	return &ReportController{reportService: reportService}
}

// ==================== CRUD ====================

// Create 创建报告
// @Summary 创建报告
// @Tags Report
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateReportRequest true "报告配置"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /reports [post]
func (c *ReportController) Create(ctx *gin.Context) {
	var req dto.CreateReportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	report, err := c.reportService.CreateReport(ctx.Request.Context(), &req, middleware.GetUserID(ctx))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    gin.H{"id": report.ID, "status": report.Status},
	})
}

// Get 报告详情
// @Summary 报告详情（含审批门状态）
// @Tags Report
// @Produce json
// @Security BearerAuth
// @Param id path int true "报告ID"
// @Success 200 {object} dto.ReportDetailVO
// @Failure 404 {object} map[string]interface{}
// @Router /reports/{id} [get]
func (c *ReportController) Get(ctx *gin.Context) {
	id, err := parseIDParam(ctx)
	if err != nil {
		return
	}

	detail, err := c.reportService.GetDetail(ctx.Request.Context(), id)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    detail,
	})
}

// List 报告列表
// @Summary 报告列表
// @Tags Report
// @Produce json
// @Security BearerAuth
// @Param retailer_id query int false "零售商ID"
// @Param status query string false "状态过滤"
// @Success 200 {object} dto.ListReportsResponse
// @Router /reports [get]
func (c *ReportController) List(ctx *gin.Context) {
	var req dto.ListReportsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	resp, err := c.reportService.List(ctx.Request.Context(), &req)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    resp,
	})
}

// Update 更新报告
// @Summary 更新报告基本信息并同步内容域
// @Tags Report
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "报告ID"
// @Param request body dto.UpdateReportRequest true "更新内容"
// @Success 200 {object} map[string]interface{}
// @Router /reports/{id} [put]
func (c *ReportController) Update(ctx *gin.Context) {
	id, err := parseIDParam(ctx)
	if err != nil {
		return
	}

	var req dto.UpdateReportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	report, err := c.reportService.UpdateReport(ctx.Request.Context(), id, &req)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    gin.H{"id": report.ID, "domains": report.DomainNames()},
	})
}

// Delete 删除报告
// @Summary 删除报告（级联移除内容域并停用关联令牌）
// @Tags Report
// @Produce json
// @Security BearerAuth
// @Param id path int true "报告ID"
// @Success 200 {object} map[string]interface{}
// @Router /reports/{id} [delete]
func (c *ReportController) Delete(ctx *gin.Context) {
	id, err := parseIDParam(ctx)
	if err != nil {
		return
	}

	if err := c.reportService.Delete(ctx.Request.Context(), id); err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "删除成功",
	})
}

// ==================== 状态流转 ====================

// Publish 发布报告
// @Summary 发布报告
// @Tags Report
// @Produce json
// @Security BearerAuth
// @Param id path int true "报告ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /reports/{id}/publish [post]
func (c *ReportController) Publish(ctx *gin.Context) {
	id, err := parseIDParam(ctx)
	if err != nil {
		return
	}

	report, err := c.reportService.Publish(ctx.Request.Context(), id, middleware.GetUserID(ctx))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "发布成功",
		"data":    gin.H{"id": report.ID, "published_at": report.PublishedAt},
	})
}

// Archive 归档报告
// @Summary 归档报告
// @Tags Report
// @Produce json
// @Security BearerAuth
// @Param id path int true "报告ID"
// @Success 200 {object} map[string]interface{}
// @Router /reports/{id}/archive [post]
func (c *ReportController) Archive(ctx *gin.Context) {
	id, err := parseIDParam(ctx)
	if err != nil {
		return
	}

	if err := c.reportService.Archive(ctx.Request.Context(), id); err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "归档成功",
	})
}

// Unarchive 取消归档
// @Summary 取消归档
// @Tags Report
// @Produce json
// @Security BearerAuth
// @Param id path int true "报告ID"
// @Success 200 {object} map[string]interface{}
// @Router /reports/{id}/unarchive [post]
func (c *ReportController) Unarchive(ctx *gin.Context) {
	id, err := parseIDParam(ctx)
	if err != nil {
		return
	}

	if err := c.reportService.Unarchive(ctx.Request.Context(), id); err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "已取消归档",
	})
}

// RegenerateDomain 重新生成单个内容域
// @Summary 重新生成单个内容域的洞察
// @Tags Report
// @Produce json
// @Security BearerAuth
// @Param id path int true "报告ID"
// @Param domain path string true "内容域"
// @Success 200 {object} map[string]interface{}
// @Router /reports/{id}/domains/{domain}/regenerate [post]
func (c *ReportController) RegenerateDomain(ctx *gin.Context) {
	id, err := parseIDParam(ctx)
	if err != nil {
		return
	}

	if err := c.reportService.RegenerateDomain(ctx.Request.Context(), id, ctx.Param("domain")); err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "已派发生成任务",
	})
}

// ==================== 内部方法 ====================

func (c *ReportController) handleError(ctx *gin.Context, err error) {
	var featureErr *service.FeatureDisabledError
	switch {
	case errors.Is(err, service.ErrReportNotFound), errors.Is(err, service.ErrRetailerNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": err.Error()})
	case errors.As(err, &featureErr):
		ctx.JSON(http.StatusForbidden, gin.H{"code": 403, "message": err.Error(), "flag": featureErr.Flag})
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
	}
}

// parseIDParam 解析路径中的 :id，非法时直接写响应
func parseIDParam(ctx *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "非法的ID",
		})
		return 0, errors.New("invalid id")
	}
	return id, nil
}
