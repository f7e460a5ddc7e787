package dto

import "time"

// ==================== 请求 ====================

// IssueTokenRequest 签发访问令牌请求
type IssueTokenRequest struct {
	RetailerID int64 `json:"retailer_id" binding:"required"`

	// 显式指定令牌类型；为空时由作用域推导
	TokenType string `json:"token_type"`

	// 非空则锁定单份报告，缺省类型由此推导为 report_access
	ReportID *int64 `json:"report_id"`

	// 明文口令，存库前做 bcrypt；为空表示不设口令
	Password string `json:"password"`

	// 有效天数，0 表示永不过期
	ExpiresInDays int `json:"expires_in_days"`
}

// ListTokensRequest 令牌列表查询
type ListTokensRequest struct {
	RetailerID int64  `form:"retailer_id"`
	TokenType  string `form:"token_type"`
	ActiveOnly bool   `form:"active_only"`
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=20"`
}

// ==================== 响应 ====================

// IssueTokenResponse 签发结果，明文令牌只在这里出现一次
type IssueTokenResponse struct {
	ID        int64      `json:"id"`
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	ShareURL  string     `json:"share_url"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// TokenVO 令牌列表视图（脱敏）
type TokenVO struct {
	ID          int64      `json:"id"`
	RetailerID  int64      `json:"retailer_id"`
	TokenMasked string     `json:"token_masked"`
	TokenType   string     `json:"token_type"`
	ReportID    *int64     `json:"report_id"`
	HasPassword bool       `json:"has_password"`
	ExpiresAt   *time.Time `json:"expires_at"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ListTokensResponse 令牌列表响应
type ListTokensResponse struct {
	Total int64     `json:"total"`
	Items []TokenVO `json:"items"`
}
