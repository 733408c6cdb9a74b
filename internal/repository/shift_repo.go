package repository

import (
	"context"

	"gorm.io/gorm"

	"shift-swap/backend/internal/model"
)

// ShiftRepository 班次数据访问接口
type ShiftRepository interface {
	Create(ctx context.Context, shift *model.Shift) error
	BatchCreate(ctx context.Context, shifts []model.Shift) error
	GetByID(ctx context.Context, id string) (*model.Shift, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]model.Shift, error)
	List(ctx context.Context, offset, limit int) ([]model.Shift, int64, error)
	Update(ctx context.Context, shift *model.Shift) error
	Delete(ctx context.Context, id string) error
}

// shiftRepo ShiftRepository 的 GORM 实现
type shiftRepo struct {
	db *gorm.DB
}

// NewShiftRepo 创建 ShiftRepository 实例
func NewShiftRepo(db *gorm.DB) ShiftRepository {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) Create(ctx context.Context, shift *model.Shift) error {
	return r.db.WithContext(ctx).Create(shift).Error
}

func (r *shiftRepo) BatchCreate(ctx context.Context, shifts []model.Shift) error {
	return r.db.WithContext(ctx).Create(&shifts).Error
}

func (r *shiftRepo) GetByID(ctx context.Context, id string) (*model.Shift, error) {
	var shift model.Shift
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Where("shift_id = ?", id).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *shiftRepo) ListByEmployee(ctx context.Context, employeeID string) ([]model.Shift, error) {
	var shifts []model.Shift
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("date ASC, start_time ASC").
		Find(&shifts).Error
	if err != nil {
		return nil, err
	}
	return shifts, nil
}

func (r *shiftRepo) List(ctx context.Context, offset, limit int) ([]model.Shift, int64, error) {
	var shifts []model.Shift
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Shift{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Employee").
		Offset(offset).Limit(limit).
		Order("date ASC, start_time ASC").
		Find(&shifts).Error; err != nil {
		return nil, 0, err
	}

	return shifts, total, nil
}

func (r *shiftRepo) Update(ctx context.Context, shift *model.Shift) error {
	return r.db.WithContext(ctx).Save(shift).Error
}

func (r *shiftRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("shift_id = ?", id).
		Delete(&model.Shift{}).Error
}
