package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"adboard_dev_v1_202601/internal/api/dto"
	"adboard_dev_v1_202601/internal/middleware"
	"adboard_dev_v1_202601/internal/service"
	"adboard_dev_v1_202601/pkg/utils"
)

// ==================== ShareController 外部分享控制器 ====================

// 会话 Cookie 有效期（秒），与服务端会话缓存保持一致
const shareCookieMaxAge = 24 * 60 * 60

// ShareController 外部分享控制器（无后台登录态）
type ShareController struct {
	tokenService *service.TokenService
	limiter      *middleware.AttemptLimiter
}

// NewShareController 创建分享控制器
func NewShareController(tokenService *service.TokenService) *ShareController {
	return &ShareController{
		tokenService: tokenService,
		limiter:      middleware.GetAttemptLimiter(),
	}
}

// View 外部访问分享视图
// @Summary 通过令牌访问只读分享视图
// @Tags Share
// @Produce json
// @Param token path string true "访问令牌"
// @Success 200 {object} dto.ShareViewVO
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 410 {object} map[string]interface{}
// @Router /share/{token} [get]
func (c *ShareController) View(ctx *gin.Context) {
	tokenValue := ctx.Param("token")
	sessionID, _ := ctx.Cookie(shareCookieName(tokenValue))

	view, err := c.tokenService.ResolveShareView(ctx.Request.Context(), tokenValue, sessionID)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    view,
	})
}

// VerifyPassword 口令质询
// @Summary 提交分享口令，通过后种会话 Cookie
// @Tags Share
// @Accept json
// @Produce json
// @Param token path string true "访问令牌"
// @Param request body dto.SharePasswordRequest true "口令"
// @Success 200 {object} dto.SharePasswordResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Router /share/{token}/password [post]
func (c *ShareController) VerifyPassword(ctx *gin.Context) {
	tokenValue := ctx.Param("token")

	var req dto.SharePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    400,
			"message": "参数错误: " + err.Error(),
		})
		return
	}

	// 连续失败进入冷却，限流键带客户端 IP
	limitKey := fmt.Sprintf("share_pwd:%s:%s", utils.MaskToken(tokenValue), ctx.ClientIP())
	if result := c.limiter.Check(limitKey); !result.Allowed {
		ctx.JSON(http.StatusTooManyRequests, gin.H{
			"code":        429,
			"message":     "尝试过于频繁，请稍后再试",
			"retry_after": int(result.RetryAfter.Seconds()),
		})
		return
	}

	sessionID, err := c.tokenService.VerifyPassword(ctx.Request.Context(), tokenValue, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrPasswordInvalid) {
			c.limiter.RecordFailure(limitKey)
		}
		c.handleError(ctx, err)
		return
	}
	c.limiter.Reset(limitKey)

	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(shareCookieName(tokenValue), sessionID, shareCookieMaxAge, "/", "", true, true)

	ctx.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    dto.SharePasswordResponse{SessionID: sessionID},
	})
}

// ==================== 内部方法 ====================

// shareCookieName 按令牌前缀区分 Cookie，同一浏览器可同时持有多个分享会话
func shareCookieName(tokenValue string) string {
	prefix := tokenValue
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return "share_sess_" + prefix
}

func (c *ShareController) handleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTokenNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"code": 404, "message": err.Error()})
	case errors.Is(err, service.ErrTokenExpired):
		ctx.JSON(http.StatusGone, gin.H{"code": 410, "message": err.Error()})
	case errors.Is(err, service.ErrAccessNotAvailable):
		ctx.JSON(http.StatusForbidden, gin.H{"code": 403, "message": err.Error()})
	case errors.Is(err, service.ErrPasswordRequired):
		ctx.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": err.Error(), "password_required": true})
	case errors.Is(err, service.ErrPasswordInvalid):
		ctx.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"code": 500, "message": err.Error()})
	}
}
