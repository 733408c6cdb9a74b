package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"shift-swap/backend/internal/dto"
	"shift-swap/backend/internal/model"
	"shift-swap/backend/internal/repository"
)

// ── 测试辅助 ──

type shiftTestEnv struct {
	svc    ShiftService
	users  *mockUserRepo
	shifts *mockShiftRepo
	swaps  *mockSwapRepo
}

func newShiftTestEnv() *shiftTestEnv {
	users := newMockUserRepo()
	shifts := newMockShiftRepo(users)
	swaps := newMockSwapRepo(users, shifts)
	repo := &repository.Repository{
		User:        users,
		Shift:       shifts,
		SwapRequest: swaps,
		ActivityLog: newMockActivityLogRepo(users),
	}
	svc := NewShiftService(repo, zap.NewNop())

	users.users["alice"] = &model.User{UserID: "alice", Name: "Alice", Email: "alice@example.com", Role: model.RoleStaff}
	users.users["carol"] = &model.User{UserID: "carol", Name: "Carol", Email: "carol@example.com", Role: model.RoleManager}

	return &shiftTestEnv{svc: svc, users: users, shifts: shifts, swaps: swaps}
}

// buildImportExcel 构建内存中的导入 Excel 文件
func buildImportExcel(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("构建Excel失败: %v", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("写出Excel失败: %v", err)
	}
	return buf
}

// ── Create 测试 ──

func TestShiftService_Create_Self(t *testing.T) {
	env := newShiftTestEnv()

	resp, err := env.svc.Create(context.Background(), &dto.CreateShiftRequest{
		Date: "2099-03-01", StartTime: "09:00", EndTime: "17:00", Position: "前台",
	}, "alice", model.RoleStaff)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.EmployeeID != "alice" {
		t.Errorf("未指定员工时应排给本人，实际=%s", resp.EmployeeID)
	}
	if resp.EmployeeName != "Alice" {
		t.Errorf("期望员工姓名展开为 Alice，实际=%s", resp.EmployeeName)
	}
}

func TestShiftService_Create_ForOther_StaffForbidden(t *testing.T) {
	env := newShiftTestEnv()
	env.users.users["bob"] = &model.User{UserID: "bob", Name: "Bob", Email: "bob@example.com", Role: model.RoleStaff}

	_, err := env.svc.Create(context.Background(), &dto.CreateShiftRequest{
		EmployeeID: "bob", Date: "2099-03-01", StartTime: "09:00", EndTime: "17:00",
	}, "alice", model.RoleStaff)
	if !errors.Is(err, ErrShiftForbidden) {
		t.Errorf("员工替他人排班应返回 ErrShiftForbidden，实际: %v", err)
	}
}

func TestShiftService_Create_ForOther_ManagerAllowed(t *testing.T) {
	env := newShiftTestEnv()

	resp, err := env.svc.Create(context.Background(), &dto.CreateShiftRequest{
		EmployeeID: "alice", Date: "2099-03-01", StartTime: "09:00", EndTime: "17:00",
	}, "carol", model.RoleManager)
	if err != nil {
		t.Fatalf("经理替他人排班应成功: %v", err)
	}
	if resp.EmployeeID != "alice" {
		t.Errorf("期望员工=alice，实际=%s", resp.EmployeeID)
	}
}

func TestShiftService_Create_TimeOrder(t *testing.T) {
	env := newShiftTestEnv()

	_, err := env.svc.Create(context.Background(), &dto.CreateShiftRequest{
		Date: "2099-03-01", StartTime: "17:00", EndTime: "09:00",
	}, "alice", model.RoleStaff)
	if !errors.Is(err, ErrShiftTimeOrder) {
		t.Errorf("期望 ErrShiftTimeOrder，实际: %v", err)
	}
}

// ── Update / Delete 测试 ──

func TestShiftService_Update_OwnerOnly(t *testing.T) {
	env := newShiftTestEnv()
	env.users.users["bob"] = &model.User{UserID: "bob", Name: "Bob", Email: "bob@example.com", Role: model.RoleStaff}
	env.shifts.shifts["s1"] = &model.Shift{ShiftID: "s1", EmployeeID: "alice", Date: "2099-03-01", StartTime: "09:00", EndTime: "17:00"}

	newDate := "2099-03-02"
	_, err := env.svc.Update(context.Background(), "s1", &dto.UpdateShiftRequest{Date: &newDate}, "bob", model.RoleStaff)
	if !errors.Is(err, ErrShiftForbidden) {
		t.Errorf("非本人修改应返回 ErrShiftForbidden，实际: %v", err)
	}

	resp, err := env.svc.Update(context.Background(), "s1", &dto.UpdateShiftRequest{Date: &newDate}, "carol", model.RoleManager)
	if err != nil {
		t.Fatalf("经理修改应成功: %v", err)
	}
	if resp.Date != newDate {
		t.Errorf("期望日期=%s，实际=%s", newDate, resp.Date)
	}
}

func TestShiftService_Delete_InActiveSwap(t *testing.T) {
	env := newShiftTestEnv()
	env.shifts.shifts["s1"] = &model.Shift{ShiftID: "s1", EmployeeID: "alice", Date: "2099-03-01", StartTime: "09:00", EndTime: "17:00"}
	env.swaps.swaps["sw1"] = &model.SwapRequest{SwapRequestID: "sw1", ShiftID: "s1", RequesterID: "alice", Status: model.SwapStatusOpen}

	err := env.svc.Delete(context.Background(), "s1", "alice", model.RoleStaff)
	if !errors.Is(err, ErrShiftInSwap) {
		t.Errorf("被活跃申请引用的班次删除应返回 ErrShiftInSwap，实际: %v", err)
	}
}

// ── ParseImportFile 测试 ──

func TestShiftService_ParseImportFile_Success(t *testing.T) {
	env := newShiftTestEnv()

	buf := buildImportExcel(t, [][]interface{}{
		{"邮箱", "日期", "开始时间", "结束时间", "岗位"},
		{"alice@example.com", "2099-03-01", "09:00", "17:00", "前台"},
		{"bob@example.com", "2099-03-02", "13:00", "21:00", ""},
	})

	rows, err := env.svc.ParseImportFile(buf)
	if err != nil {
		t.Fatalf("ParseImportFile 应成功: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望解析出 2 行，实际=%d", len(rows))
	}
	if rows[0].Email != "alice@example.com" || rows[0].Position != "前台" {
		t.Errorf("第 1 行解析不符: %+v", rows[0])
	}
	if rows[0].Row != 2 {
		t.Errorf("行号应从 Excel 实际行计（表头为第 1 行），实际=%d", rows[0].Row)
	}
}

func TestShiftService_ParseImportFile_EnglishHeader(t *testing.T) {
	env := newShiftTestEnv()

	buf := buildImportExcel(t, [][]interface{}{
		{"Email", "Date", "Start Time", "End Time"},
		{"alice@example.com", "2099-03-01", "09:00", "17:00"},
	})

	rows, err := env.svc.ParseImportFile(buf)
	if err != nil {
		t.Fatalf("英文表头应被识别: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("期望 1 行，实际=%d", len(rows))
	}
}

func TestShiftService_ParseImportFile_BadHeader(t *testing.T) {
	env := newShiftTestEnv()

	buf := buildImportExcel(t, [][]interface{}{
		{"姓名", "日期", "开始时间", "结束时间"},
		{"Alice", "2099-03-01", "09:00", "17:00"},
	})

	_, err := env.svc.ParseImportFile(buf)
	if !errors.Is(err, ErrImportBadHeader) {
		t.Errorf("缺少邮箱列应返回 ErrImportBadHeader，实际: %v", err)
	}
}

func TestShiftService_ParseImportFile_NoData(t *testing.T) {
	env := newShiftTestEnv()

	buf := buildImportExcel(t, [][]interface{}{
		{"邮箱", "日期", "开始时间", "结束时间"},
	})

	_, err := env.svc.ParseImportFile(buf)
	if !errors.Is(err, ErrImportNoData) {
		t.Errorf("仅表头应返回 ErrImportNoData，实际: %v", err)
	}
}

// ── ImportShifts 测试 ──

func TestShiftService_ImportShifts_ValidationErrors(t *testing.T) {
	env := newShiftTestEnv()

	resp, err := env.svc.ImportShifts(context.Background(), []ImportShiftRow{
		{Row: 2, Email: "", Date: "2099-03-01", StartTime: "09:00", EndTime: "17:00"},
		{Row: 3, Email: "alice@example.com", Date: "03/01/2099", StartTime: "09:00", EndTime: "17:00"},
		{Row: 4, Email: "alice@example.com", Date: "2099-03-01", StartTime: "9am", EndTime: "17:00"},
		{Row: 5, Email: "alice@example.com", Date: "2099-03-01", StartTime: "17:00", EndTime: "09:00"},
		{Row: 6, Email: "ghost@example.com", Date: "2099-03-01", StartTime: "09:00", EndTime: "17:00"},
	})
	if err != nil {
		t.Fatalf("ImportShifts 应成功返回逐行结果: %v", err)
	}

	if resp.Total != 5 || resp.Failed != 5 || resp.Success != 0 {
		t.Errorf("期望 total=5 failed=5 success=0，实际 %+v", resp)
	}
	if len(resp.Errors) != 5 {
		t.Fatalf("每个失败行应有错误信息，实际=%d", len(resp.Errors))
	}
	for i, wantRow := range []int{2, 3, 4, 5, 6} {
		if resp.Errors[i].Row != wantRow {
			t.Errorf("错误行号期望=%d，实际=%d", wantRow, resp.Errors[i].Row)
		}
	}
}

// ── ExportICS 测试 ──

func TestShiftService_ExportICS(t *testing.T) {
	env := newShiftTestEnv()
	env.shifts.shifts["s1"] = &model.Shift{ShiftID: "s1", EmployeeID: "alice", Date: "2099-03-01", StartTime: "09:00", EndTime: "17:00", Position: "前台"}
	env.shifts.shifts["s2"] = &model.Shift{ShiftID: "s2", EmployeeID: "alice", Date: "2099-03-02", StartTime: "13:00", EndTime: "21:00"}

	buf, filename, err := env.svc.ExportICS(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ExportICS 应成功: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "BEGIN:VCALENDAR") || !strings.Contains(out, "END:VCALENDAR") {
		t.Error("输出应为完整的 VCALENDAR")
	}
	if n := strings.Count(out, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("应有 2 个 VEVENT，实际=%d", n)
	}
	if !strings.Contains(out, "UID:s1@shift-swap") {
		t.Error("VEVENT 的 UID 应由班次 ID 派生")
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("文件名应以 .ics 结尾，实际=%s", filename)
	}
}

func TestShiftService_ExportICS_Empty(t *testing.T) {
	env := newShiftTestEnv()

	_, _, err := env.svc.ExportICS(context.Background(), "alice")
	if !errors.Is(err, ErrShiftNoExport) {
		t.Errorf("无班次导出应返回 ErrShiftNoExport，实际: %v", err)
	}
}
