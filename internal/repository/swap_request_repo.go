package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shift-swap/backend/internal/model"
	pkgerrors "shift-swap/backend/pkg/errors"
)

// swapPreloads GetByID / 列表查询统一预加载的关联
var swapPreloads = []string{"Shift", "Requester", "Volunteer", "VolunteerShift", "Manager"}

// SwapListFilters 换班申请列表过滤条件
type SwapListFilters struct {
	Status string
}

// SwapRequestRepository 换班申请数据访问接口
//
// 状态迁移一律通过条件更新实现（UPDATE ... WHERE status = ?），
// 以 RowsAffected 判定是否命中；并发竞争下未命中者收到 ErrStateConflict，
// 绝不做读取-修改-写回。
type SwapRequestRepository interface {
	Create(ctx context.Context, swap *model.SwapRequest) error
	GetByID(ctx context.Context, id string) (*model.SwapRequest, error)
	// HasActiveByShift 判断班次是否已存在 open/pending 申请（重复申请策略）
	HasActiveByShift(ctx context.Context, shiftID string) (bool, error)
	// HasActiveInvolvingShift 判断班次是否被任一活跃申请占用（作为原班次或交换班次）
	HasActiveInvolvingShift(ctx context.Context, shiftID string) (bool, error)
	// ClaimVolunteer open → pending 的条件更新，志愿者三字段整体写入
	ClaimVolunteer(ctx context.Context, swapID, volunteerID, volunteerShiftID string) error
	// Approve pending → approved 的条件更新
	Approve(ctx context.Context, swapID, managerID string, approvedAt time.Time) error
	// Reject pending → rejected 的条件更新
	Reject(ctx context.Context, swapID, managerID, reason string, rejectedAt time.Time) error
	// ListOpenExcluding 列出他人发布的 open 申请
	ListOpenExcluding(ctx context.Context, userID string, offset, limit int) ([]model.SwapRequest, int64, error)
	// ListByUser 列出用户作为申请人或志愿者参与的申请
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.SwapRequest, int64, error)
	List(ctx context.Context, filters *SwapListFilters, offset, limit int) ([]model.SwapRequest, int64, error)
}

// swapRequestRepo SwapRequestRepository 的 GORM 实现
type swapRequestRepo struct {
	db *gorm.DB
}

// NewSwapRequestRepo 创建 SwapRequestRepository 实例
func NewSwapRequestRepo(db *gorm.DB) SwapRequestRepository {
	return &swapRequestRepo{db: db}
}

func (r *swapRequestRepo) Create(ctx context.Context, swap *model.SwapRequest) error {
	return r.db.WithContext(ctx).Create(swap).Error
}

func (r *swapRequestRepo) GetByID(ctx context.Context, id string) (*model.SwapRequest, error) {
	var swap model.SwapRequest
	db := r.db.WithContext(ctx)
	for _, p := range swapPreloads {
		db = db.Preload(p)
	}
	if err := db.Where("swap_request_id = ?", id).First(&swap).Error; err != nil {
		return nil, err
	}
	return &swap, nil
}

func (r *swapRequestRepo) HasActiveByShift(ctx context.Context, shiftID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where("shift_id = ? AND status IN ?", shiftID,
			[]string{model.SwapStatusOpen, model.SwapStatusPending}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *swapRequestRepo) HasActiveInvolvingShift(ctx context.Context, shiftID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where("(shift_id = ? OR volunteer_shift_id = ?) AND status IN ?", shiftID, shiftID,
			[]string{model.SwapStatusOpen, model.SwapStatusPending}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *swapRequestRepo) ClaimVolunteer(ctx context.Context, swapID, volunteerID, volunteerShiftID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where("swap_request_id = ? AND status = ?", swapID, model.SwapStatusOpen).
		Updates(map[string]interface{}{
			"status":             model.SwapStatusPending,
			"volunteer_id":       volunteerID,
			"volunteer_shift_id": volunteerShiftID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStateConflict
	}
	return nil
}

func (r *swapRequestRepo) Approve(ctx context.Context, swapID, managerID string, approvedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where("swap_request_id = ? AND status = ?", swapID, model.SwapStatusPending).
		Updates(map[string]interface{}{
			"status":      model.SwapStatusApproved,
			"manager_id":  managerID,
			"approved_at": approvedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStateConflict
	}
	return nil
}

func (r *swapRequestRepo) Reject(ctx context.Context, swapID, managerID, reason string, rejectedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where("swap_request_id = ? AND status = ?", swapID, model.SwapStatusPending).
		Updates(map[string]interface{}{
			"status":           model.SwapStatusRejected,
			"manager_id":       managerID,
			"rejected_at":      rejectedAt,
			"rejection_reason": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStateConflict
	}
	return nil
}

func (r *swapRequestRepo) ListOpenExcluding(ctx context.Context, userID string, offset, limit int) ([]model.SwapRequest, int64, error) {
	db := r.db.WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where("status = ? AND requester_id <> ?", model.SwapStatusOpen, userID)
	return r.paginate(db, offset, limit)
}

func (r *swapRequestRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]model.SwapRequest, int64, error) {
	db := r.db.WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where("requester_id = ? OR volunteer_id = ?", userID, userID)
	return r.paginate(db, offset, limit)
}

func (r *swapRequestRepo) List(ctx context.Context, filters *SwapListFilters, offset, limit int) ([]model.SwapRequest, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.SwapRequest{})
	if filters != nil && filters.Status != "" {
		db = db.Where("status = ?", filters.Status)
	}
	return r.paginate(db, offset, limit)
}

// paginate 统一的计数 + 预加载 + 分页查询，按创建时间倒序
func (r *swapRequestRepo) paginate(db *gorm.DB, offset, limit int) ([]model.SwapRequest, int64, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	for _, p := range swapPreloads {
		db = db.Preload(p)
	}

	var swaps []model.SwapRequest
	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&swaps).Error; err != nil {
		return nil, 0, err
	}

	return swaps, total, nil
}
