package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"shift-swap/backend/internal/model"
	"shift-swap/backend/internal/repository"
	pkgerrors "shift-swap/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%03d", m.seq)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	if _, ok := m.users[user.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var matched []model.User
	for _, u := range m.users {
		if filters != nil && filters.Role != "" && u.Role != filters.Role {
			continue
		}
		if filters != nil && filters.Keyword != "" &&
			!strings.Contains(u.Name, filters.Keyword) && !strings.Contains(u.Email, filters.Keyword) {
			continue
		}
		matched = append(matched, *u)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

// ── Mock ShiftRepository ──

type mockShiftRepo struct {
	shifts map[string]*model.Shift
	users  *mockUserRepo // 模拟 Preload Employee
	seq    int
}

func newMockShiftRepo(users *mockUserRepo) *mockShiftRepo {
	return &mockShiftRepo{shifts: make(map[string]*model.Shift), users: users}
}

func (m *mockShiftRepo) Create(_ context.Context, shift *model.Shift) error {
	if shift.ShiftID == "" {
		m.seq++
		shift.ShiftID = fmt.Sprintf("shift-%03d", m.seq)
	}
	stored := *shift
	m.shifts[shift.ShiftID] = &stored
	return nil
}

func (m *mockShiftRepo) BatchCreate(ctx context.Context, shifts []model.Shift) error {
	for i := range shifts {
		if err := m.Create(ctx, &shifts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockShiftRepo) GetByID(_ context.Context, id string) (*model.Shift, error) {
	s, ok := m.shifts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *s
	if m.users != nil {
		if emp, ok := m.users.users[s.EmployeeID]; ok {
			out.Employee = emp
		}
	}
	return &out, nil
}

func (m *mockShiftRepo) ListByEmployee(_ context.Context, employeeID string) ([]model.Shift, error) {
	var result []model.Shift
	for _, s := range m.shifts {
		if s.EmployeeID == employeeID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockShiftRepo) List(_ context.Context, offset, limit int) ([]model.Shift, int64, error) {
	var all []model.Shift
	for _, s := range m.shifts {
		all = append(all, *s)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockShiftRepo) Update(_ context.Context, shift *model.Shift) error {
	if _, ok := m.shifts[shift.ShiftID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *shift
	stored.Employee = nil
	m.shifts[shift.ShiftID] = &stored
	return nil
}

func (m *mockShiftRepo) Delete(_ context.Context, id string) error {
	delete(m.shifts, id)
	return nil
}

// ── Mock SwapRequestRepository ──
//
// 互斥锁保护全部状态迁移，迁移方法重现 GORM 实现的条件更新语义：
// WHERE status = <前置状态> 未命中任何行时返回 ErrStateConflict。
// 并发认领测试依赖这一语义保证至多一人成功。

type mockSwapRepo struct {
	mu     sync.Mutex
	swaps  map[string]*model.SwapRequest
	users  *mockUserRepo
	shifts *mockShiftRepo
	seq    int
}

func newMockSwapRepo(users *mockUserRepo, shifts *mockShiftRepo) *mockSwapRepo {
	return &mockSwapRepo{
		swaps:  make(map[string]*model.SwapRequest),
		users:  users,
		shifts: shifts,
	}
}

func (m *mockSwapRepo) Create(_ context.Context, swap *model.SwapRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 部分唯一索引：同一班次至多一个 open/pending 申请
	for _, s := range m.swaps {
		if s.ShiftID == swap.ShiftID && (s.Status == model.SwapStatusOpen || s.Status == model.SwapStatusPending) {
			return gorm.ErrDuplicatedKey
		}
	}

	if swap.SwapRequestID == "" {
		m.seq++
		swap.SwapRequestID = fmt.Sprintf("swap-%03d", m.seq)
	}
	if swap.CreatedAt.IsZero() {
		swap.CreatedAt = time.Now()
	}
	stored := *swap
	m.swaps[swap.SwapRequestID] = &stored
	return nil
}

func (m *mockSwapRepo) GetByID(_ context.Context, id string) (*model.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.swaps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.withPreloads(s), nil
}

// withPreloads 模拟 GORM 的关联预加载，调用方须持有锁
func (m *mockSwapRepo) withPreloads(s *model.SwapRequest) *model.SwapRequest {
	out := *s
	if m.users != nil {
		if u, ok := m.users.users[s.RequesterID]; ok {
			out.Requester = u
		}
		if s.VolunteerID != nil {
			if u, ok := m.users.users[*s.VolunteerID]; ok {
				out.Volunteer = u
			}
		}
		if s.ManagerID != nil {
			if u, ok := m.users.users[*s.ManagerID]; ok {
				out.Manager = u
			}
		}
	}
	if m.shifts != nil {
		if sh, ok := m.shifts.shifts[s.ShiftID]; ok {
			out.Shift = sh
		}
		if s.VolunteerShiftID != nil {
			if sh, ok := m.shifts.shifts[*s.VolunteerShiftID]; ok {
				out.VolunteerShift = sh
			}
		}
	}
	return &out
}

func (m *mockSwapRepo) HasActiveByShift(_ context.Context, shiftID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.swaps {
		if s.ShiftID == shiftID && (s.Status == model.SwapStatusOpen || s.Status == model.SwapStatusPending) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSwapRepo) HasActiveInvolvingShift(_ context.Context, shiftID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.swaps {
		if s.Status != model.SwapStatusOpen && s.Status != model.SwapStatusPending {
			continue
		}
		if s.ShiftID == shiftID {
			return true, nil
		}
		if s.VolunteerShiftID != nil && *s.VolunteerShiftID == shiftID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSwapRepo) ClaimVolunteer(_ context.Context, swapID, volunteerID, volunteerShiftID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.swaps[swapID]
	if !ok || s.Status != model.SwapStatusOpen {
		return pkgerrors.ErrStateConflict
	}
	s.Status = model.SwapStatusPending
	s.VolunteerID = &volunteerID
	s.VolunteerShiftID = &volunteerShiftID
	return nil
}

func (m *mockSwapRepo) Approve(_ context.Context, swapID, managerID string, approvedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.swaps[swapID]
	if !ok || s.Status != model.SwapStatusPending {
		return pkgerrors.ErrStateConflict
	}
	s.Status = model.SwapStatusApproved
	s.ManagerID = &managerID
	s.ApprovedAt = &approvedAt
	return nil
}

func (m *mockSwapRepo) Reject(_ context.Context, swapID, managerID, reason string, rejectedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.swaps[swapID]
	if !ok || s.Status != model.SwapStatusPending {
		return pkgerrors.ErrStateConflict
	}
	s.Status = model.SwapStatusRejected
	s.ManagerID = &managerID
	s.RejectedAt = &rejectedAt
	s.RejectionReason = reason
	return nil
}

func (m *mockSwapRepo) ListOpenExcluding(_ context.Context, userID string, offset, limit int) ([]model.SwapRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []model.SwapRequest
	for _, s := range m.swaps {
		if s.Status == model.SwapStatusOpen && s.RequesterID != userID {
			matched = append(matched, *m.withPreloads(s))
		}
	}
	return pageSwaps(matched, offset, limit)
}

func (m *mockSwapRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.SwapRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []model.SwapRequest
	for _, s := range m.swaps {
		if s.RequesterID == userID || (s.VolunteerID != nil && *s.VolunteerID == userID) {
			matched = append(matched, *m.withPreloads(s))
		}
	}
	return pageSwaps(matched, offset, limit)
}

func (m *mockSwapRepo) List(_ context.Context, filters *repository.SwapListFilters, offset, limit int) ([]model.SwapRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []model.SwapRequest
	for _, s := range m.swaps {
		if filters != nil && filters.Status != "" && s.Status != filters.Status {
			continue
		}
		matched = append(matched, *m.withPreloads(s))
	}
	return pageSwaps(matched, offset, limit)
}

func pageSwaps(matched []model.SwapRequest, offset, limit int) ([]model.SwapRequest, int64, error) {
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

// ── Mock ActivityLogRepository ──

type mockActivityLogRepo struct {
	mu      sync.Mutex
	logs    []model.ActivityLog
	users   *mockUserRepo
	failAll bool // 注入写入故障，验证审计契约
	seq     int
}

func newMockActivityLogRepo(users *mockUserRepo) *mockActivityLogRepo {
	return &mockActivityLogRepo{users: users}
}

func (m *mockActivityLogRepo) Create(_ context.Context, log *model.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return errors.New("模拟日志写入失败")
	}
	if log.LogID == "" {
		m.seq++
		log.LogID = fmt.Sprintf("log-%03d", m.seq)
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockActivityLogRepo) List(_ context.Context, filters *repository.ActivityLogFilters, offset, limit int) ([]model.ActivityLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []model.ActivityLog
	for i := range m.logs {
		log := m.logs[i]
		if filters != nil {
			if filters.ActorID != "" && (log.UserID == nil || *log.UserID != filters.ActorID) {
				continue
			}
			if filters.DateFrom != nil && log.CreatedAt.Before(*filters.DateFrom) {
				continue
			}
			if filters.DateTo != nil && !log.CreatedAt.Before(*filters.DateTo) {
				continue
			}
		}
		m.fillActor(&log)
		matched = append(matched, log)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *mockActivityLogRepo) ListAll(_ context.Context) ([]model.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]model.ActivityLog, 0, len(m.logs))
	for i := range m.logs {
		log := m.logs[i]
		m.fillActor(&log)
		result = append(result, log)
	}
	return result, nil
}

func (m *mockActivityLogRepo) ListByEntity(_ context.Context, entityType, entityID string) ([]model.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []model.ActivityLog
	for i := range m.logs {
		log := m.logs[i]
		if log.EntityType == entityType && log.EntityID == entityID {
			m.fillActor(&log)
			result = append(result, log)
		}
	}
	return result, nil
}

func (m *mockActivityLogRepo) fillActor(log *model.ActivityLog) {
	if m.users != nil && log.UserID != nil {
		if u, ok := m.users.users[*log.UserID]; ok {
			log.Actor = u
		}
	}
}

// countByAction 统计指定动作的日志条数（测试辅助）
func (m *mockActivityLogRepo) countByAction(action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for i := range m.logs {
		if m.logs[i].Action == action {
			n++
		}
	}
	return n
}
