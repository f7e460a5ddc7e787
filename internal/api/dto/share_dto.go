package dto

// ==================== 请求 ====================

// SharePasswordRequest 口令质询请求
type SharePasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// ==================== 响应 ====================

// ShareInsightVO 分享视图内的洞察块（仅已审批内容）
type ShareInsightVO struct {
	Domain  string      `json:"domain"`
	Title   string      `json:"title"`
	Content interface{} `json:"content"`
}

// ShareDomainVO 分享视图内的内容域
type ShareDomainVO struct {
	Domain  string      `json:"domain"`
	Metrics interface{} `json:"metrics"`
}

// ShareViewVO 外部访问者拿到的只读视图
type ShareViewVO struct {
	Mode        string `json:"mode"` // live_data | report_access
	RetailerID  int64  `json:"retailer_id"`
	ReportID    *int64 `json:"report_id,omitempty"`
	Title       string `json:"title,omitempty"`
	PeriodStart string `json:"period_start,omitempty"`
	PeriodEnd   string `json:"period_end,omitempty"`

	VisibleTabs    []string `json:"visible_tabs"`
	VisibleMetrics []string `json:"visible_metrics"`
	KeywordFilters []string `json:"keyword_filters"`

	Domains  []ShareDomainVO  `json:"domains"`
	Insights []ShareInsightVO `json:"insights"`
}

// SharePasswordResponse 口令通过后返回会话标识
type SharePasswordResponse struct {
	SessionID string `json:"session_id"`
}
