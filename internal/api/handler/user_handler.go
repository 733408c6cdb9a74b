package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shift-swap/backend/internal/dto"
	"shift-swap/backend/internal/service"
	"shift-swap/backend/pkg/response"
)

// UserHandler 用户模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Create 创建用户（仅经理）
// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 11001, "参数校验失败")
		return
	}

	callerID, _ := c.Get("user_id")

	user, err := h.userSvc.Create(c.Request.Context(), &req, callerID.(string))
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.Created(c, user)
}

// GetByID 获取用户详情
// GET /api/v1/users/:id
func (h *UserHandler) GetByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 11001, "用户ID不能为空")
		return
	}

	user, err := h.userSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// List 用户列表（仅经理）
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 11001, "参数校验失败")
		return
	}

	users, total, err := h.userSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OKPage(c, users, total, req.GetPage(), req.GetPageSize())
}

// AssignRole 调整用户角色（仅经理）
// PUT /api/v1/users/:id/role
func (h *UserHandler) AssignRole(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 11001, "用户ID不能为空")
		return
	}

	var req dto.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 11001, "参数校验失败")
		return
	}

	callerID, _ := c.Get("user_id")

	if err := h.userSvc.AssignRole(c.Request.Context(), id, req.Role, callerID.(string)); err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleUserError 统一处理用户模块业务错误
func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 11101, "用户不存在")
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, 11102, "邮箱已被注册")
	case errors.Is(err, service.ErrUserSelfRoleChange):
		response.BadRequest(c, 11103, "不能修改自己的角色")
	default:
		response.InternalError(c)
	}
}
