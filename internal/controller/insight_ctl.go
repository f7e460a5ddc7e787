package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"adboard_dev_v1_202601/internal/middleware"
	"adboard_dev_v1_202601/internal/service"
)

// ==================== InsightController 洞察审批控制器 ====================

// InsightController 洞察审批控制器
type InsightController struct {
	insightService *service.InsightService
}

// NewInsightController 创建洞察控制器
func NewInsightController(insightService *service.InsightService) *InsightController {
	return &InsightController{insightService: insightService}
}

// Approve 审批通过
// @Summary 洞察审批通过
// @Tags Insight
// @Produce json
// @Security BearerAuth
// @Param id path int true "洞察ID"
// @Success 200 {object} map[string]interface{}
// @Router /insights/{id}/approve [post]
func (c *InsightController) Approve(ctx *gin.Context) {
	c.review(ctx, true)
}

// Reject 审批拒绝
// @Summary 洞察审批拒绝
// @Tags Insight
// @Produce json
// @Security BearerAuth
// @Param id path int true "洞察ID"
// @Success 200 {object} map[string]interface{}
// @Router /insights/{id}/reject [post]
func (c *InsightController) Reject(ctx *gin.Context) {
	c.review(ctx, false)
}

func (c *InsightController) review(ctx *gin.Context, approve bool) {
	id, err := parseIDParam(ctx)
	if err != nil {
		return
	}

	reviewerID := middleware.GetUserID(ctx)
	var insight interface{}
	var svcErr error
	if approve {
		insight, svcErr = c.insightService.Approve(ctx.Request.Context(), id, reviewerID)
	} else {
		insight, svcErr = c.insightService.Reject(ctx.Request.Context(), id, reviewerID)
	}
	if svcErr != nil {
		if errors.Is(svcErr, service.ErrInsightNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": svcErr.Error()})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": svcErr.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    insight,
	})
}
