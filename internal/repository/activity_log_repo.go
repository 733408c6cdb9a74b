package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shift-swap/backend/internal/model"
)

// ActivityLogFilters 操作日志过滤条件
type ActivityLogFilters struct {
	ActorID  string
	DateFrom *time.Time
	DateTo   *time.Time
}

// ActivityLogRepository 操作日志数据访问接口
//
// 仅追加：接口刻意不提供 Update / Delete。
type ActivityLogRepository interface {
	Create(ctx context.Context, log *model.ActivityLog) error
	List(ctx context.Context, filters *ActivityLogFilters, offset, limit int) ([]model.ActivityLog, int64, error)
	// ListAll 无分页全量查询，供 CSV 导出使用
	ListAll(ctx context.Context) ([]model.ActivityLog, error)
	// ListByEntity 按实体查询，按创建时间正序（审计回放）
	ListByEntity(ctx context.Context, entityType, entityID string) ([]model.ActivityLog, error)
}

// activityLogRepo ActivityLogRepository 的 GORM 实现
type activityLogRepo struct {
	db *gorm.DB
}

// NewActivityLogRepo 创建 ActivityLogRepository 实例
func NewActivityLogRepo(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepo{db: db}
}

func (r *activityLogRepo) Create(ctx context.Context, log *model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *activityLogRepo) List(ctx context.Context, filters *ActivityLogFilters, offset, limit int) ([]model.ActivityLog, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.ActivityLog{})
	if filters != nil {
		if filters.ActorID != "" {
			db = db.Where("user_id = ?", filters.ActorID)
		}
		if filters.DateFrom != nil {
			db = db.Where("created_at >= ?", *filters.DateFrom)
		}
		if filters.DateTo != nil {
			db = db.Where("created_at < ?", *filters.DateTo)
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []model.ActivityLog
	if err := db.Preload("Actor").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *activityLogRepo) ListAll(ctx context.Context) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog
	err := r.db.WithContext(ctx).
		Preload("Actor").
		Order("created_at DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *activityLogRepo) ListByEntity(ctx context.Context, entityType, entityID string) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog
	err := r.db.WithContext(ctx).
		Preload("Actor").
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
