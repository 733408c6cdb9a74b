//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	pkgerrors "shift-swap/backend/pkg/errors"

	"shift-swap/backend/internal/model"
	"shift-swap/backend/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=shift_swap password=shift_swap_password dbname=shift_swap_test sslmode=disable TimeZone=Asia/Shanghai"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	err = testDB.AutoMigrate(
		&model.User{},
		&model.Shift{},
		&model.SwapRequest{},
		&model.ActivityLog{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AutoMigrate 失败: %v\n", err)
		os.Exit(1)
	}

	// AutoMigrate 不产生部分唯一索引，手动补齐（与正式迁移一致）
	testDB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uniq_swap_requests_active_shift
		ON swap_requests (shift_id) WHERE status IN ('open', 'pending')`)

	code := m.Run()
	os.Exit(code)
}

// setupSwapFixture 创建申请人、若干志愿者及各自班次，返回一个 open 申请
func setupSwapFixture(t *testing.T, volunteerCount int) (repo *repository.Repository, swap *model.SwapRequest, volunteers []*model.User, volunteerShifts []*model.Shift) {
	t.Helper()
	ctx := context.Background()
	repo = repository.NewRepository(testDB)

	nano := time.Now().UnixNano()
	requester := &model.User{
		Name:         "申请人",
		Email:        fmt.Sprintf("req%d@example.com", nano),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleStaff,
	}
	if err := repo.User.Create(ctx, requester); err != nil {
		t.Fatalf("创建申请人失败: %v", err)
	}

	shift := &model.Shift{EmployeeID: requester.UserID, Date: "2099-06-01", StartTime: "09:00", EndTime: "17:00"}
	if err := repo.Shift.Create(ctx, shift); err != nil {
		t.Fatalf("创建班次失败: %v", err)
	}

	swap = &model.SwapRequest{ShiftID: shift.ShiftID, RequesterID: requester.UserID, Status: model.SwapStatusOpen}
	if err := repo.SwapRequest.Create(ctx, swap); err != nil {
		t.Fatalf("创建换班申请失败: %v", err)
	}

	for i := 0; i < volunteerCount; i++ {
		v := &model.User{
			Name:         fmt.Sprintf("志愿者%d", i),
			Email:        fmt.Sprintf("vol%d-%d@example.com", i, nano),
			PasswordHash: "$2a$10$placeholder",
			Role:         model.RoleStaff,
		}
		if err := repo.User.Create(ctx, v); err != nil {
			t.Fatalf("创建志愿者失败: %v", err)
		}
		vs := &model.Shift{EmployeeID: v.UserID, Date: "2099-06-02", StartTime: "09:00", EndTime: "17:00"}
		if err := repo.Shift.Create(ctx, vs); err != nil {
			t.Fatalf("创建志愿者班次失败: %v", err)
		}
		volunteers = append(volunteers, v)
		volunteerShifts = append(volunteerShifts, vs)
	}

	return repo, swap, volunteers, volunteerShifts
}

// ═══════════════════════════════════════════════════════════
// 条件更新语义
// ═══════════════════════════════════════════════════════════

// 并发认领同一 open 申请：数据库层面恰好一次条件更新命中
func TestSwapRequestRepo_ClaimVolunteer_Race(t *testing.T) {
	const n = 8
	repo, swap, volunteers, shifts := setupSwapFixture(t, n)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.SwapRequest.ClaimVolunteer(ctx, swap.SwapRequestID, volunteers[i].UserID, shifts[i].ShiftID)
		}(i)
	}
	wg.Wait()

	success := 0
	for i, err := range errs {
		switch err {
		case nil:
			success++
		case pkgerrors.ErrStateConflict:
			// 预期的落败结果
		default:
			t.Errorf("第 %d 个认领返回意外错误: %v", i, err)
		}
	}
	if success != 1 {
		t.Fatalf("并发条件更新应恰好一次命中，实际=%d", success)
	}

	final, err := repo.SwapRequest.GetByID(ctx, swap.SwapRequestID)
	if err != nil {
		t.Fatalf("重读失败: %v", err)
	}
	if final.Status != model.SwapStatusPending {
		t.Errorf("期望 pending，实际=%s", final.Status)
	}
	if final.VolunteerID == nil || final.VolunteerShiftID == nil {
		t.Error("志愿者字段应整体填充")
	}
}

// 批准与驳回互斥：pending 上的两个条件更新只有一个命中
func TestSwapRequestRepo_Decide_MutualExclusion(t *testing.T) {
	repo, swap, volunteers, shifts := setupSwapFixture(t, 1)
	ctx := context.Background()

	if err := repo.SwapRequest.ClaimVolunteer(ctx, swap.SwapRequestID, volunteers[0].UserID, shifts[0].ShiftID); err != nil {
		t.Fatalf("认领失败: %v", err)
	}

	manager := &model.User{
		Name:         "经理",
		Email:        fmt.Sprintf("mgr%d@example.com", time.Now().UnixNano()),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleManager,
	}
	if err := repo.User.Create(ctx, manager); err != nil {
		t.Fatalf("创建经理失败: %v", err)
	}

	var wg sync.WaitGroup
	var approveErr, rejectErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		approveErr = repo.SwapRequest.Approve(ctx, swap.SwapRequestID, manager.UserID, time.Now())
	}()
	go func() {
		defer wg.Done()
		rejectErr = repo.SwapRequest.Reject(ctx, swap.SwapRequestID, manager.UserID, "", time.Now())
	}()
	wg.Wait()

	succeeded := 0
	for _, err := range []error{approveErr, rejectErr} {
		if err == nil {
			succeeded++
		} else if err != pkgerrors.ErrStateConflict {
			t.Errorf("落败方应返回 ErrStateConflict，实际: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("批准与驳回应恰好一方命中，实际=%d", succeeded)
	}

	final, err := repo.SwapRequest.GetByID(ctx, swap.SwapRequestID)
	if err != nil {
		t.Fatalf("重读失败: %v", err)
	}
	if final.ApprovedAt != nil && final.RejectedAt != nil {
		t.Error("approved_at 与 rejected_at 不应同时存在")
	}
}

// 部分唯一索引：同一班次的第二个活跃申请被数据库拒绝
func TestSwapRequestRepo_ActiveUniqueIndex(t *testing.T) {
	repo, swap, _, _ := setupSwapFixture(t, 0)
	ctx := context.Background()

	dup := &model.SwapRequest{ShiftID: swap.ShiftID, RequesterID: swap.RequesterID, Status: model.SwapStatusOpen}
	err := repo.SwapRequest.Create(ctx, dup)
	if err != gorm.ErrDuplicatedKey {
		t.Errorf("期望 gorm.ErrDuplicatedKey，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// 操作日志
// ═══════════════════════════════════════════════════════════

func TestActivityLogRepo_AppendAndReplay(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	entityID := fmt.Sprintf("00000000-0000-0000-0000-%012d", time.Now().UnixNano()%1e12)
	for _, action := range []string{model.ActionCreated, model.ActionVolunteered, model.ActionApproved} {
		if err := repo.ActivityLog.Create(ctx, &model.ActivityLog{
			Action:     action,
			EntityType: model.EntitySwapRequest,
			EntityID:   entityID,
		}); err != nil {
			t.Fatalf("写入日志失败: %v", err)
		}
	}

	logs, err := repo.ActivityLog.ListByEntity(ctx, model.EntitySwapRequest, entityID)
	if err != nil {
		t.Fatalf("回放失败: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("期望 3 条日志，实际=%d", len(logs))
	}
	for i, want := range []string{model.ActionCreated, model.ActionVolunteered, model.ActionApproved} {
		if logs[i].Action != want {
			t.Errorf("第 %d 条动作期望=%s，实际=%s", i, want, logs[i].Action)
		}
	}
}
