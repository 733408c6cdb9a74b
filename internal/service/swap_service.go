package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shift-swap/backend/config"
	"shift-swap/backend/internal/dto"
	"shift-swap/backend/internal/model"
	"shift-swap/backend/internal/repository"
	pkgerrors "shift-swap/backend/pkg/errors"
)

// ── 换班模块业务错误 ──

var (
	ErrSwapNotFound     = errors.New("换班申请不存在")
	ErrShiftNotOwned    = errors.New("只能为本人的班次发起换班")
	ErrDuplicateRequest = errors.New("该班次已存在进行中的换班申请")

	ErrSelfSwap               = errors.New("不能认领自己发起的换班申请")
	ErrManagerCannotVolunteer = errors.New("经理不能认领换班申请")
	ErrNotManager             = errors.New("仅经理可审批换班申请")

	ErrSwapNotOpen        = errors.New("该换班申请当前不可认领")
	ErrSwapAlreadyClaimed = errors.New("该换班申请已被他人认领")
	ErrSwapNotPending     = errors.New("该换班申请尚未进入待审批状态")
	ErrSwapAlreadyDecided = errors.New("该换班申请已完成审批")

	ErrVolunteerShiftNotOwned = errors.New("交换班次不属于认领人")
	ErrVolunteerShiftPast     = errors.New("交换班次必须是未来的班次")
	ErrVolunteerShiftBusy     = errors.New("交换班次已被其他换班申请占用")

	// ErrActivityLogFailed 状态迁移已生效，但审计日志写入失败。
	// 迁移不回滚：状态正确性优先于审计完整性。调用方应将业务结果视为成功，
	// 同时向运维上报审计缺口。
	ErrActivityLogFailed = errors.New("操作已生效，但操作日志写入失败")
)

// SwapService 换班申请业务接口
//
// 状态机：open → pending → approved | rejected。
// 每个迁移操作先重读当前状态做前置校验，再以条件更新提交，
// 保证并发竞争下至多一次成功迁移；校验与提交之间的竞态由
// Repository 层的 RowsAffected 判定兜底。
type SwapService interface {
	Create(ctx context.Context, requesterID string, req *dto.CreateSwapRequest) (*dto.SwapResponse, error)
	Volunteer(ctx context.Context, swapID, volunteerID, callerRole string, req *dto.VolunteerRequest) (*dto.SwapResponse, error)
	Approve(ctx context.Context, swapID, managerID, callerRole string) (*dto.SwapResponse, error)
	Reject(ctx context.Context, swapID, managerID, callerRole string, req *dto.RejectSwapRequest) (*dto.SwapResponse, error)

	GetByID(ctx context.Context, id string) (*dto.SwapResponse, error)
	ListOpen(ctx context.Context, callerID string, page *dto.PaginationRequest) ([]dto.SwapResponse, int64, error)
	ListMine(ctx context.Context, callerID string, page *dto.PaginationRequest) ([]dto.SwapResponse, int64, error)
	// List 全量列表（仅经理），可按状态过滤
	List(ctx context.Context, req *dto.SwapListRequest) ([]dto.SwapResponse, int64, error)
}

type swapService struct {
	cfg     *config.Config
	repo    *repository.Repository
	audit   ActivityLogService
	logger  *zap.Logger
	timeNow func() time.Time
}

// NewSwapService 创建 SwapService 实例
func NewSwapService(cfg *config.Config, repo *repository.Repository, audit ActivityLogService, logger *zap.Logger) SwapService {
	return &swapService{
		cfg:     cfg,
		repo:    repo,
		audit:   audit,
		logger:  logger,
		timeNow: time.Now,
	}
}

// ────────────────────── Create ──────────────────────

func (s *swapService) Create(ctx context.Context, requesterID string, req *dto.CreateSwapRequest) (*dto.SwapResponse, error) {
	// 班次存在且归申请人所有
	shift, err := s.repo.Shift.GetByID(ctx, req.ShiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.String("shift_id", req.ShiftID), zap.Error(err))
		return nil, err
	}
	if shift.EmployeeID != requesterID {
		return nil, ErrShiftNotOwned
	}

	// 重复申请策略（功能开关，默认开启；数据库部分唯一索引兜底）
	if s.cfg.Feature.DuplicateRequestCheck {
		exists, err := s.repo.SwapRequest.HasActiveByShift(ctx, req.ShiftID)
		if err != nil {
			s.logger.Error("检查重复申请失败", zap.Error(err))
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateRequest
		}
	}

	swap := &model.SwapRequest{
		ShiftID:                req.ShiftID,
		RequesterID:            requesterID,
		Status:                 model.SwapStatusOpen,
		Note:                   req.Note,
		PreferredVolunteerName: req.PreferredVolunteerName,
		PreferredTime:          req.PreferredTime,
	}
	if err := s.repo.SwapRequest.Create(ctx, swap); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateRequest
		}
		s.logger.Error("创建换班申请失败", zap.Error(err))
		return nil, err
	}

	created, err := s.repo.SwapRequest.GetByID(ctx, swap.SwapRequestID)
	if err != nil {
		return nil, err
	}

	resp := toSwapResponse(created)
	return s.finishTransition(ctx, resp, &requesterID, model.ActionCreated, created.SwapRequestID, map[string]interface{}{
		"shift_id":       created.ShiftID,
		"requester_id":   created.RequesterID,
		"requester_name": resp.RequesterName,
		"date":           resp.Date,
	})
}

// ────────────────────── Volunteer ──────────────────────

func (s *swapService) Volunteer(ctx context.Context, swapID, volunteerID, callerRole string, req *dto.VolunteerRequest) (*dto.SwapResponse, error) {
	swap, err := s.getSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}

	// 自换与角色校验先于状态校验：无论申请处于何种状态都直接拒绝
	if swap.RequesterID == volunteerID {
		return nil, ErrSelfSwap
	}
	if callerRole == model.RoleManager {
		return nil, ErrManagerCannotVolunteer
	}

	if swap.Status != model.SwapStatusOpen {
		if swap.Status == model.SwapStatusPending {
			return nil, ErrSwapAlreadyClaimed
		}
		return nil, ErrSwapNotOpen
	}

	// 交换班次校验：归认领人所有、未过期、未被其他申请占用
	volunteerShift, err := s.repo.Shift.GetByID(ctx, req.VolunteerShiftID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询交换班次失败", zap.String("shift_id", req.VolunteerShiftID), zap.Error(err))
		return nil, err
	}
	if volunteerShift.EmployeeID != volunteerID {
		return nil, ErrVolunteerShiftNotOwned
	}
	if !s.isFutureShift(volunteerShift) {
		return nil, ErrVolunteerShiftPast
	}
	busy, err := s.repo.SwapRequest.HasActiveInvolvingShift(ctx, req.VolunteerShiftID)
	if err != nil {
		s.logger.Error("检查交换班次占用失败", zap.Error(err))
		return nil, err
	}
	if busy {
		return nil, ErrVolunteerShiftBusy
	}

	// 条件更新：status 仍为 open 才能抢到；并发下至多一人成功
	if err := s.repo.SwapRequest.ClaimVolunteer(ctx, swapID, volunteerID, req.VolunteerShiftID); err != nil {
		if errors.Is(err, pkgerrors.ErrStateConflict) {
			return nil, ErrSwapAlreadyClaimed
		}
		s.logger.Error("认领换班申请失败", zap.String("swap_id", swapID), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.SwapRequest.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}

	resp := toSwapResponse(updated)
	return s.finishTransition(ctx, resp, &volunteerID, model.ActionVolunteered, swapID, map[string]interface{}{
		"swap_id":            swapID,
		"volunteer_id":       volunteerID,
		"volunteer_name":     resp.VolunteerName,
		"volunteer_shift_id": req.VolunteerShiftID,
	})
}

// ────────────────────── Approve ──────────────────────

func (s *swapService) Approve(ctx context.Context, swapID, managerID, callerRole string) (*dto.SwapResponse, error) {
	if callerRole != model.RoleManager {
		return nil, ErrNotManager
	}

	swap, err := s.getSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if err := checkDecidable(swap); err != nil {
		return nil, err
	}

	// 条件更新：status 仍为 pending 才能落定；保证至多一次审批
	if err := s.repo.SwapRequest.Approve(ctx, swapID, managerID, s.timeNow()); err != nil {
		if errors.Is(err, pkgerrors.ErrStateConflict) {
			return nil, ErrSwapAlreadyDecided
		}
		s.logger.Error("批准换班申请失败", zap.String("swap_id", swapID), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.SwapRequest.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}

	resp := toSwapResponse(updated)
	return s.finishTransition(ctx, resp, &managerID, model.ActionApproved, swapID, map[string]interface{}{
		"swap_id":        swapID,
		"requester_id":   updated.RequesterID,
		"requester_name": resp.RequesterName,
		"volunteer_id":   resp.VolunteerID,
		"volunteer_name": resp.VolunteerName,
		"manager_id":     managerID,
	})
}

// ────────────────────── Reject ──────────────────────

func (s *swapService) Reject(ctx context.Context, swapID, managerID, callerRole string, req *dto.RejectSwapRequest) (*dto.SwapResponse, error) {
	if callerRole != model.RoleManager {
		return nil, ErrNotManager
	}

	swap, err := s.getSwap(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if err := checkDecidable(swap); err != nil {
		return nil, err
	}

	if err := s.repo.SwapRequest.Reject(ctx, swapID, managerID, req.Reason, s.timeNow()); err != nil {
		if errors.Is(err, pkgerrors.ErrStateConflict) {
			return nil, ErrSwapAlreadyDecided
		}
		s.logger.Error("驳回换班申请失败", zap.String("swap_id", swapID), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.SwapRequest.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}

	resp := toSwapResponse(updated)
	return s.finishTransition(ctx, resp, &managerID, model.ActionRejected, swapID, map[string]interface{}{
		"swap_id":        swapID,
		"requester_id":   updated.RequesterID,
		"volunteer_id":   resp.VolunteerID,
		"manager_id":     managerID,
		"reason":         req.Reason,
	})
}

// ────────────────────── 查询 ──────────────────────

func (s *swapService) GetByID(ctx context.Context, id string) (*dto.SwapResponse, error) {
	swap, err := s.getSwap(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSwapResponse(swap), nil
}

func (s *swapService) ListOpen(ctx context.Context, callerID string, page *dto.PaginationRequest) ([]dto.SwapResponse, int64, error) {
	swaps, total, err := s.repo.SwapRequest.ListOpenExcluding(ctx, callerID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询可认领换班申请失败", zap.Error(err))
		return nil, 0, err
	}
	return toSwapResponses(swaps), total, nil
}

func (s *swapService) ListMine(ctx context.Context, callerID string, page *dto.PaginationRequest) ([]dto.SwapResponse, int64, error) {
	swaps, total, err := s.repo.SwapRequest.ListByUser(ctx, callerID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询个人换班记录失败", zap.Error(err))
		return nil, 0, err
	}
	return toSwapResponses(swaps), total, nil
}

func (s *swapService) List(ctx context.Context, req *dto.SwapListRequest) ([]dto.SwapResponse, int64, error) {
	filters := &repository.SwapListFilters{Status: req.Status}
	swaps, total, err := s.repo.SwapRequest.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询换班申请列表失败", zap.Error(err))
		return nil, 0, err
	}
	return toSwapResponses(swaps), total, nil
}

// ── 内部辅助方法 ──

func (s *swapService) getSwap(ctx context.Context, id string) (*model.SwapRequest, error) {
	swap, err := s.repo.SwapRequest.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapNotFound
		}
		s.logger.Error("查询换班申请失败", zap.String("swap_id", id), zap.Error(err))
		return nil, err
	}
	return swap, nil
}

// checkDecidable 审批前置：必须处于 pending
func checkDecidable(swap *model.SwapRequest) error {
	switch swap.Status {
	case model.SwapStatusPending:
		return nil
	case model.SwapStatusOpen:
		return ErrSwapNotPending
	default:
		return ErrSwapAlreadyDecided
	}
}

// isFutureShift 判断班次日期晚于今天
func (s *swapService) isFutureShift(shift *model.Shift) bool {
	d, err := time.Parse("2006-01-02", shift.Date)
	if err != nil {
		return false
	}
	now := s.timeNow()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return d.After(today)
}

// finishTransition 状态迁移的收尾：追加操作日志。
// 日志写入失败不回滚迁移，返回已生效的结果和 ErrActivityLogFailed，
// 由 Handler 层以"成功 + 警告"形式上报。
func (s *swapService) finishTransition(ctx context.Context, resp *dto.SwapResponse, actorID *string, action, swapID string, details map[string]interface{}) (*dto.SwapResponse, error) {
	if err := s.audit.Record(ctx, actorID, action, model.EntitySwapRequest, swapID, details); err != nil {
		s.logger.Error("状态迁移已生效但审计日志写入失败",
			zap.String("swap_id", swapID),
			zap.String("action", action),
			zap.Error(err),
		)
		return resp, ErrActivityLogFailed
	}
	return resp, nil
}

// toSwapResponse 将 model.SwapRequest 转换为 dto.SwapResponse，展开关联展示字段
func toSwapResponse(swap *model.SwapRequest) *dto.SwapResponse {
	resp := &dto.SwapResponse{
		ID:                     swap.SwapRequestID,
		ShiftID:                swap.ShiftID,
		RequesterID:            swap.RequesterID,
		Status:                 swap.Status,
		Note:                   swap.Note,
		PreferredVolunteerName: swap.PreferredVolunteerName,
		PreferredTime:          swap.PreferredTime,
		RejectionReason:        swap.RejectionReason,
		CreatedAt:              swap.CreatedAt.Format(time.RFC3339),
	}

	if swap.Requester != nil {
		resp.RequesterName = swap.Requester.Name
	}
	if swap.Shift != nil {
		resp.Date = swap.Shift.Date
		resp.StartTime = swap.Shift.StartTime
		resp.EndTime = swap.Shift.EndTime
	}
	if swap.VolunteerID != nil {
		resp.VolunteerID = *swap.VolunteerID
	}
	if swap.Volunteer != nil {
		resp.VolunteerName = swap.Volunteer.Name
	}
	if swap.VolunteerShiftID != nil {
		resp.VolunteerShiftID = *swap.VolunteerShiftID
	}
	if swap.VolunteerShift != nil {
		resp.VolunteerShiftDate = swap.VolunteerShift.Date
		resp.VolunteerShiftStartTime = swap.VolunteerShift.StartTime
		resp.VolunteerShiftEndTime = swap.VolunteerShift.EndTime
	}
	if swap.ManagerID != nil {
		resp.ManagerID = *swap.ManagerID
	}
	if swap.Manager != nil {
		resp.ManagerName = swap.Manager.Name
	}
	if swap.ApprovedAt != nil {
		resp.ApprovedAt = swap.ApprovedAt.Format(time.RFC3339)
	}
	if swap.RejectedAt != nil {
		resp.RejectedAt = swap.RejectedAt.Format(time.RFC3339)
	}

	return resp
}

func toSwapResponses(swaps []model.SwapRequest) []dto.SwapResponse {
	result := make([]dto.SwapResponse, 0, len(swaps))
	for i := range swaps {
		result = append(result, *toSwapResponse(&swaps[i]))
	}
	return result
}
