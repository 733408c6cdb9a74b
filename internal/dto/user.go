package dto

// CreateUserRequest 创建用户请求（仅经理）
type CreateUserRequest struct {
	Name     string `json:"name"     binding:"required,max=100"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"     binding:"required,oneof=staff manager"`
}

// AssignRoleRequest 调整用户角色请求（仅经理）
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=staff manager"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=staff manager"`
	Keyword string `form:"keyword" binding:"omitempty,max=100"`
}
