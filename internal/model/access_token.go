package model

import "time"

// ==================== 类型常量 ====================

const (
	// 令牌类型
	TokenTypeLiveData     = "live_data"     // 零售商实时视图
	TokenTypeReportAccess = "report_access" // 锁定单份报告
)

// IsValidTokenType 校验令牌类型
func IsValidTokenType(tt string) bool {
	return tt == TokenTypeLiveData || tt == TokenTypeReportAccess
}

// ==================== 数据库模型 ====================

// AccessToken 外部访问令牌
// 同一作用域 (retailer_id, report_id | token_type) 下最多只允许一个活跃令牌
type AccessToken struct {
	BaseModel
	RetailerID int64  `gorm:"index;not null;comment:零售商ID"`
	Token      string `gorm:"size:128;uniqueIndex;not null;comment:令牌值"`
	TokenType  string `gorm:"size:32;index;not null;comment:令牌类型"`

	// 非空表示锁定到单份报告；为空表示整个零售商的实时视图
	ReportID *int64 `gorm:"index;comment:锁定的报告ID"`

	// 设置后仅持有令牌不足以访问，还需通过口令质询；不存明文
	PasswordHash string `gorm:"size:255;comment:口令哈希"`

	ExpiresAt *time.Time `gorm:"comment:过期时间(空为永不过期)"`
	IsActive  bool       `gorm:"default:true;index;comment:是否活跃(逻辑停用)"`

	CreatedBy int64 `gorm:"comment:签发人ID"`
}

func (*AccessToken) TableName() string {
	return "access_tokens"
}

// ==================== 辅助方法 ====================

// IsExpired 是否已过期（过期在校验时惰性判定，不做后台清扫）
func (t *AccessToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// HasPassword 是否启用口令保护
func (t *AccessToken) HasPassword() bool {
	return t.PasswordHash != ""
}

// Masked 脱敏展示，签发后不再提供明文
func (t *AccessToken) Masked() string {
	if len(t.Token) <= 8 {
		return "********"
	}
	return t.Token[:8] + "****"
}
