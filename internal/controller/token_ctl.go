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

// ==================== TokenController 访问令牌控制器 ====================

// TokenController 访问令牌控制器
type TokenController struct {
	tokenService *service.TokenService
}

// NewTokenController 创建令牌控制器
func NewTokenController(tokenService *service.TokenService) *TokenController {
	return &TokenController{tokenService: tokenService}
}

// Issue 签发访问令牌
// @Summary 签发访问令牌（明文仅本次响应返回）
// @Tags AccessToken
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.IssueTokenRequest true "签发配置"
// @Success 200 {object} dto.IssueTokenResponse
// @Failure 403 {object} map[string]interface{}
// @Router /access-tokens [post]
func (c *TokenController) Issue(ctx *gin.Context) {
	var req dto.IssueTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	resp, err := c.tokenService.Issue(ctx.Request.Context(), &req, middleware.GetUserID(ctx))
	if err != nil {
		var featureErr *service.FeatureDisabledError
		switch {
		case errors.As(err, &featureErr):
			ctx.JSON(http.StatusForbidden, gin.H{"code": 403, "message": err.Error(), "flag": featureErr.Flag})
		case errors.Is(err, service.ErrRetailerNotFound), errors.Is(err, service.ErrReportNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": err.Error()})
		default:
			ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    resp,
	})
}

// List 令牌列表
// @Summary 令牌列表（脱敏）
// @Tags AccessToken
// @Produce json
// @Security BearerAuth
// @Param retailer_id query int false "零售商ID"
// @Param token_type query string false "令牌类型"
// @Success 200 {object} dto.ListTokensResponse
// @Router /access-tokens [get]
func (c *TokenController) List(ctx *gin.Context) {
	var req dto.ListTokensRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	resp, err := c.tokenService.List(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    resp,
	})
}

// RevokeByRetailer 批量停用零售商令牌
// @Summary 批量停用零售商令牌（可按类型过滤）
// @Tags AccessToken
// @Produce json
// @Security BearerAuth
// @Param retailer_id query int true "零售商ID"
// @Param token_type query string false "令牌类型过滤"
// @Success 200 {object} map[string]interface{}
// @Router /access-tokens [delete]
func (c *TokenController) RevokeByRetailer(ctx *gin.Context) {
	retailerID, err := strconv.ParseInt(ctx.Query("retailer_id"), 10, 64)
	if err != nil || retailerID <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "非法的零售商ID",
		})
		return
	}

	if err := c.tokenService.RevokeByRetailer(ctx.Request.Context(), retailerID, ctx.Query("token_type")); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "令牌已批量停用",
	})
}

// Revoke 停用令牌
// @Summary 停用单个令牌
// @Tags AccessToken
// @Produce json
// @Security BearerAuth
// @Param id path int true "令牌ID"
// @Success 200 {object} map[string]interface{}
// @Router /access-tokens/{id} [delete]
func (c *TokenController) Revoke(ctx *gin.Context) {
	id, err := parseIDParam(ctx)
	if err != nil {
		return
	}

	if err := c.tokenService.Revoke(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrTokenNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": err.Error()})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "令牌已停用",
	})
}
