package model

import "time"

// ==================== 角色与状态 ====================

// 系统角色：admin (管理员), operator (运营), viewer (只读)
// 令牌签发与报告状态流转要求 admin/operator
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

const (
	UserStatusDisabled = 0
	UserStatusActive   = 1
)

// ==================== 数据库模型 ====================

// SysUser 后台员工账号
type SysUser struct {
	BaseModel
	Username string `gorm:"size:100;uniqueIndex;not null"`
	Password string `gorm:"size:255;not null"` // bcrypt 哈希
	Email    string `gorm:"size:100"`
	Role     string `gorm:"size:20;default:'viewer'"`
	Status   int    `gorm:"default:1;comment:1启用 0停用"`

	LastLoginAt *time.Time `gorm:"comment:最后登录时间"`
}

func (*SysUser) TableName() string {
	return "sys_users"
}

// IsElevated 是否具备提升权限（签发分享令牌等）
func (u *SysUser) IsElevated() bool {
	return u.Role == RoleAdmin || u.Role == RoleOperator
}
