package model

// 角色
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// 账户状态（由账户系统维护，预约准入只读取）
const (
	AccountActive         = "active"
	AccountOverdue        = "overdue"
	AccountOverduePayment = "overdue_payment"
	AccountBlocked        = "blocked"
)

// User 用户表 — 对应 users
type User struct {
	UserID        string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name          string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email         string `gorm:"type:varchar(255);not null"                     json:"email"`
	Role          string `gorm:"type:varchar(20);not null;default:'member'"     json:"role"`
	AccountStatus string `gorm:"type:varchar(20);not null;default:'active'"     json:"account_status"`
	SoftDeleteModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsElevated 是否为管理员角色
func IsElevated(role string) bool { return role == RoleAdmin }
