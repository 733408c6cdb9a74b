package model

// 用户角色
const (
	RoleStaff   = "staff"
	RoleManager = "manager"
)

// User 员工表 — 对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'staff'"      json:"role"` // staff | manager
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsManager 判断是否为经理角色
func (u *User) IsManager() bool { return u.Role == RoleManager }
