package service

import (
	"go.uber.org/zap"

	"shift-swap/backend/config"
	"shift-swap/backend/internal/repository"
	"shift-swap/backend/pkg/jwt"
	"shift-swap/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth        AuthService
	User        UserService
	Shift       ShiftService
	Swap        SwapService
	ActivityLog ActivityLogService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	activityLog := NewActivityLogService(repo, logger)
	return &Service{
		Auth:        NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		User:        NewUserService(repo, activityLog, logger),
		Shift:       NewShiftService(repo, logger),
		Swap:        NewSwapService(cfg, repo, activityLog, logger),
		ActivityLog: activityLog,
	}
}
