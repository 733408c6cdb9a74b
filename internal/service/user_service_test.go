package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"shift-swap/backend/internal/dto"
	"shift-swap/backend/internal/model"
	"shift-swap/backend/internal/repository"
)

// ── 测试辅助 ──

func setupTestUserService() (UserService, *mockUserRepo, *mockActivityLogRepo) {
	users := newMockUserRepo()
	logs := newMockActivityLogRepo(users)
	repo := &repository.Repository{
		User:        users,
		Shift:       newMockShiftRepo(users),
		SwapRequest: newMockSwapRepo(users, nil),
		ActivityLog: logs,
	}
	logger := zap.NewNop()
	audit := NewActivityLogService(repo, logger)
	svc := NewUserService(repo, audit, logger)

	users.users["carol"] = &model.User{UserID: "carol", Name: "Carol", Email: "carol@example.com", Role: model.RoleManager}

	return svc, users, logs
}

// ── Create 测试 ──

func TestUserService_Create_Success(t *testing.T) {
	svc, users, logs := setupTestUserService()

	resp, err := svc.Create(context.Background(), &dto.CreateUserRequest{
		Name: "Bob", Email: "bob@example.com", Password: "password123", Role: model.RoleStaff,
	}, "carol")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Name != "Bob" || resp.Role != model.RoleStaff {
		t.Errorf("响应不符: %+v", resp)
	}

	stored := users.users[resp.ID]
	if stored == nil {
		t.Fatal("用户应已落库")
	}
	if stored.PasswordHash == "password123" {
		t.Error("密码不应明文存储")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")); err != nil {
		t.Error("密码哈希应可验证")
	}

	// 建档进入审计日志
	if n := logs.countByAction(model.ActionCreated); n != 1 {
		t.Errorf("建档应产生 1 条日志，实际=%d", n)
	}
}

func TestUserService_Create_EmailExists(t *testing.T) {
	svc, _, _ := setupTestUserService()

	_, err := svc.Create(context.Background(), &dto.CreateUserRequest{
		Name: "Carol 2", Email: "carol@example.com", Password: "password123", Role: model.RoleStaff,
	}, "carol")
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("期望 ErrEmailExists，实际: %v", err)
	}
}

func TestUserService_Create_AuditFailureTolerated(t *testing.T) {
	svc, _, logs := setupTestUserService()
	logs.failAll = true

	// 建档日志失败不阻断用户创建
	resp, err := svc.Create(context.Background(), &dto.CreateUserRequest{
		Name: "Bob", Email: "bob@example.com", Password: "password123", Role: model.RoleStaff,
	}, "carol")
	if err != nil {
		t.Fatalf("日志失败不应影响建档: %v", err)
	}
	if resp == nil {
		t.Fatal("应返回创建结果")
	}
}

// ── AssignRole 测试 ──

func TestUserService_AssignRole(t *testing.T) {
	svc, users, _ := setupTestUserService()
	users.users["bob"] = &model.User{UserID: "bob", Name: "Bob", Email: "bob@example.com", Role: model.RoleStaff}

	if err := svc.AssignRole(context.Background(), "bob", model.RoleManager, "carol"); err != nil {
		t.Fatalf("AssignRole 应成功: %v", err)
	}
	if users.users["bob"].Role != model.RoleManager {
		t.Errorf("角色应已更新，实际=%s", users.users["bob"].Role)
	}
}

func TestUserService_AssignRole_Self(t *testing.T) {
	svc, _, _ := setupTestUserService()

	err := svc.AssignRole(context.Background(), "carol", model.RoleStaff, "carol")
	if !errors.Is(err, ErrUserSelfRoleChange) {
		t.Errorf("修改自身角色应返回 ErrUserSelfRoleChange，实际: %v", err)
	}
}

func TestUserService_AssignRole_NotFound(t *testing.T) {
	svc, _, _ := setupTestUserService()

	err := svc.AssignRole(context.Background(), "ghost", model.RoleManager, "carol")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

// ── List 测试 ──

func TestUserService_List_Filters(t *testing.T) {
	svc, users, _ := setupTestUserService()
	users.users["bob"] = &model.User{UserID: "bob", Name: "Bob", Email: "bob@example.com", Role: model.RoleStaff}
	users.users["dave"] = &model.User{UserID: "dave", Name: "Dave", Email: "dave@example.com", Role: model.RoleStaff}

	staff, total, err := svc.List(context.Background(), &dto.UserListRequest{Role: model.RoleStaff})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 2 || len(staff) != 2 {
		t.Errorf("按角色过滤应命中 2 人，实际 total=%d", total)
	}

	byKeyword, total, err := svc.List(context.Background(), &dto.UserListRequest{Keyword: "dave@"})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || byKeyword[0].ID != "dave" {
		t.Errorf("按关键词过滤应命中 dave，实际 total=%d", total)
	}
}
