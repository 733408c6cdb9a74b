package handler

import "shift-swap/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth        *AuthHandler
	User        *UserHandler
	Shift       *ShiftHandler
	Swap        *SwapHandler
	ActivityLog *ActivityLogHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(svc.Auth),
		User:        NewUserHandler(svc.User),
		Shift:       NewShiftHandler(svc.Shift),
		Swap:        NewSwapHandler(svc.Swap),
		ActivityLog: NewActivityLogHandler(svc.ActivityLog),
	}
}
