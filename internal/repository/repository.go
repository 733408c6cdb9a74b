package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db          *gorm.DB
	User        UserRepository
	Shift       ShiftRepository
	SwapRequest SwapRequestRepository
	ActivityLog ActivityLogRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:          db,
		User:        NewUserRepo(db),
		Shift:       NewShiftRepo(db),
		SwapRequest: NewSwapRequestRepo(db),
		ActivityLog: NewActivityLogRepo(db),
	}
}

// BeginTx 开启事务，返回事务句柄
func (r *Repository) BeginTx() *gorm.DB {
	return r.db.Begin()
}

// WithTx 返回绑定到指定事务的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}
