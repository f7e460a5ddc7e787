package dto

import "time"

// ==================== 请求 ====================

// CreateReportRequest 创建报告请求
type CreateReportRequest struct {
	RetailerID  int64    `json:"retailer_id" binding:"required"`
	Title       string   `json:"title"`
	PeriodStart string   `json:"period_start" binding:"required"` // 格式 2006-01-02
	PeriodEnd   string   `json:"period_end" binding:"required"`
	PeriodType  string   `json:"period_type" binding:"required"`
	Domains     []string `json:"domains" binding:"required,min=1"`

	// 报告级覆盖，缺省时继承零售商功能开关
	IncludeInsights         *bool `json:"include_insights"`
	InsightsRequireApproval *bool `json:"insights_require_approval"`

	HiddenFromRetailer bool `json:"hidden_from_retailer"`
}

// UpdateReportRequest 更新报告请求（指针字段区分"未提交"与"置空"）
type UpdateReportRequest struct {
	Title              *string `json:"title"`
	HiddenFromRetailer *bool   `json:"hidden_from_retailer"`

	// 洞察开关改写后由发布门按当前值重新评估，不影响固化的 auto_approve
	IncludeInsights         *bool `json:"include_insights"`
	InsightsRequireApproval *bool `json:"insights_require_approval"`

	// true 归档，false 解除归档（按发布记录恢复原状态）
	IsArchived *bool `json:"is_archived"`

	// 非 nil 时按目标集合同步内容域；空集合拒绝（报告至少保留一个内容域）
	Domains []string `json:"domains"`
}

// ListReportsRequest 报告列表查询
type ListReportsRequest struct {
	RetailerID int64  `form:"retailer_id"`
	Status     string `form:"status"`
	Archived   *bool  `form:"archived"`
	Page       int    `form:"page,default=1"`
	PageSize   int    `form:"page_size,default=20"`
}

// ==================== 响应 ====================

// ReportDomainVO 报告内容域视图
type ReportDomainVO struct {
	Domain      string `json:"domain"`
	AIInsightID *int64 `json:"ai_insight_id"`
	HasInsight  bool   `json:"has_insight"`
}

// ReportVO 报告视图
type ReportVO struct {
	ID          int64      `json:"id"`
	RetailerID  int64      `json:"retailer_id"`
	Title       string     `json:"title"`
	PeriodStart string     `json:"period_start"`
	PeriodEnd   string     `json:"period_end"`
	PeriodType  string     `json:"period_type"`
	Status      string     `json:"status"`
	IsArchived  bool       `json:"is_archived"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`

	Domains []ReportDomainVO `json:"domains"`
}

// ApprovalStateVO 审批门视图（两条轴线各自给出结论）
type ApprovalStateVO struct {
	DataApproved     bool     `json:"data_approved"`
	InsightsApproved bool     `json:"insights_approved"`
	PendingInsights  []string `json:"pending_insights"`
}

// ReportDetailVO 报告详情视图
type ReportDetailVO struct {
	ReportVO
	HiddenFromRetailer      bool            `json:"hidden_from_retailer"`
	IncludeInsights         bool            `json:"include_insights"`
	InsightsRequireApproval bool            `json:"insights_require_approval"`
	AutoApprove             bool            `json:"auto_approve"`
	Approval                ApprovalStateVO `json:"approval"`
	Visibility              interface{}     `json:"visibility"`
}

// ListReportsResponse 报告列表响应
type ListReportsResponse struct {
	Total int64      `json:"total"`
	Items []ReportVO `json:"items"`
}
