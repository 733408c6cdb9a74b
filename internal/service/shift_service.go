package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shift-swap/backend/internal/dto"
	"shift-swap/backend/internal/model"
	"shift-swap/backend/internal/repository"
)

// ── 班次模块业务错误 ──

var (
	ErrShiftNotFound  = errors.New("班次不存在")
	ErrShiftForbidden = errors.New("无权操作该班次")
	ErrShiftInSwap    = errors.New("班次存在进行中的换班申请，无法删除")
	ErrShiftTimeOrder = errors.New("班次结束时间必须晚于开始时间")
	ErrShiftNoExport  = errors.New("暂无可导出的班次")
)

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（邮箱/日期/开始时间/结束时间）")
)

// ImportShiftRow Excel 导入解析后的单行数据
type ImportShiftRow struct {
	Row       int
	Email     string
	Date      string
	StartTime string
	EndTime   string
	Position  string
}

// ShiftService 班次业务接口
type ShiftService interface {
	Create(ctx context.Context, req *dto.CreateShiftRequest, callerID, callerRole string) (*dto.ShiftResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ShiftResponse, error)
	ListMine(ctx context.Context, callerID string) ([]dto.ShiftResponse, error)
	// List 全量列表（仅经理）
	List(ctx context.Context, page *dto.PaginationRequest) ([]dto.ShiftResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateShiftRequest, callerID, callerRole string) (*dto.ShiftResponse, error)
	Delete(ctx context.Context, id string, callerID, callerRole string) error
	// ParseImportFile 解析批量导入的 Excel 文件
	ParseImportFile(reader io.Reader) ([]ImportShiftRow, error)
	// ImportShifts 批量导入班次（仅经理），逐行校验后在事务中写入
	ImportShifts(ctx context.Context, rows []ImportShiftRow) (*dto.ImportShiftResponse, error)
	// ExportICS 导出个人班次为 iCalendar，返回内容与建议文件名
	ExportICS(ctx context.Context, userID string) (*bytes.Buffer, string, error)
}

type shiftService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewShiftService 创建 ShiftService 实例
func NewShiftService(repo *repository.Repository, logger *zap.Logger) ShiftService {
	return &shiftService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *shiftService) Create(ctx context.Context, req *dto.CreateShiftRequest, callerID, callerRole string) (*dto.ShiftResponse, error) {
	employeeID := callerID
	if req.EmployeeID != "" && req.EmployeeID != callerID {
		// 仅经理可替他人排班
		if callerRole != model.RoleManager {
			return nil, ErrShiftForbidden
		}
		if _, err := s.repo.User.GetByID(ctx, req.EmployeeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		employeeID = req.EmployeeID
	}

	if req.EndTime <= req.StartTime {
		return nil, ErrShiftTimeOrder
	}

	shift := &model.Shift{
		EmployeeID: employeeID,
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Position:   req.Position,
	}
	if err := s.repo.Shift.Create(ctx, shift); err != nil {
		s.logger.Error("创建班次失败", zap.Error(err))
		return nil, err
	}

	created, err := s.repo.Shift.GetByID(ctx, shift.ShiftID)
	if err != nil {
		return nil, err
	}

	return toShiftResponse(created), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *shiftService) GetByID(ctx context.Context, id string) (*dto.ShiftResponse, error) {
	shift, err := s.repo.Shift.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toShiftResponse(shift), nil
}

// ────────────────────── ListMine / List ──────────────────────

func (s *shiftService) ListMine(ctx context.Context, callerID string) ([]dto.ShiftResponse, error) {
	shifts, err := s.repo.Shift.ListByEmployee(ctx, callerID)
	if err != nil {
		s.logger.Error("查询个人班次失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ShiftResponse, 0, len(shifts))
	for i := range shifts {
		result = append(result, *toShiftResponse(&shifts[i]))
	}
	return result, nil
}

func (s *shiftService) List(ctx context.Context, page *dto.PaginationRequest) ([]dto.ShiftResponse, int64, error) {
	shifts, total, err := s.repo.Shift.List(ctx, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询班次列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ShiftResponse, 0, len(shifts))
	for i := range shifts {
		result = append(result, *toShiftResponse(&shifts[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *shiftService) Update(ctx context.Context, id string, req *dto.UpdateShiftRequest, callerID, callerRole string) (*dto.ShiftResponse, error) {
	shift, err := s.repo.Shift.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}

	// 本人或经理可修改
	if shift.EmployeeID != callerID && callerRole != model.RoleManager {
		return nil, ErrShiftForbidden
	}

	if req.Date != nil {
		shift.Date = *req.Date
	}
	if req.StartTime != nil {
		shift.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		shift.EndTime = *req.EndTime
	}
	if req.Position != nil {
		shift.Position = *req.Position
	}
	if shift.EndTime <= shift.StartTime {
		return nil, ErrShiftTimeOrder
	}

	if err := s.repo.Shift.Update(ctx, shift); err != nil {
		s.logger.Error("更新班次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.Shift.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toShiftResponse(updated), nil
}

// ────────────────────── Delete ──────────────────────

func (s *shiftService) Delete(ctx context.Context, id string, callerID, callerRole string) error {
	shift, err := s.repo.Shift.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrShiftNotFound
		}
		return err
	}

	if shift.EmployeeID != callerID && callerRole != model.RoleManager {
		return ErrShiftForbidden
	}

	// 被活跃换班申请引用的班次不可删除
	busy, err := s.repo.SwapRequest.HasActiveInvolvingShift(ctx, id)
	if err != nil {
		s.logger.Error("检查班次占用失败", zap.Error(err))
		return err
	}
	if busy {
		return ErrShiftInSwap
	}

	if err := s.repo.Shift.Delete(ctx, id); err != nil {
		s.logger.Error("删除班次失败", zap.String("id", id), zap.Error(err))
		return err
	}

	return nil
}

// ────────────────────── ParseImportFile ──────────────────────

// ParseImportFile 解析导入 Excel 文件，返回解析后的行数据
func (s *shiftService) ParseImportFile(reader io.Reader) ([]ImportShiftRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := parseShiftHeaderIndex(excelRows[0])
	if colIndex["email"] < 0 || colIndex["date"] < 0 || colIndex["start_time"] < 0 || colIndex["end_time"] < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []ImportShiftRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportShiftRow{Row: i + 1}

		if idx := colIndex["email"]; idx < len(row) {
			item.Email = strings.TrimSpace(row[idx])
		}
		if idx := colIndex["date"]; idx < len(row) {
			item.Date = strings.TrimSpace(row[idx])
		}
		if idx := colIndex["start_time"]; idx < len(row) {
			item.StartTime = strings.TrimSpace(row[idx])
		}
		if idx := colIndex["end_time"]; idx < len(row) {
			item.EndTime = strings.TrimSpace(row[idx])
		}
		if idx := colIndex["position"]; idx >= 0 && idx < len(row) {
			item.Position = strings.TrimSpace(row[idx])
		}

		// 跳过全空行
		if item.Email == "" && item.Date == "" && item.StartTime == "" && item.EndTime == "" {
			continue
		}

		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}

	return rows, nil
}

// parseShiftHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseShiftHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"email":      -1,
		"date":       -1,
		"start_time": -1,
		"end_time":   -1,
		"position":   -1,
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		switch {
		case lower == "邮箱" || lower == "email":
			idx["email"] = i
		case lower == "日期" || lower == "date":
			idx["date"] = i
		case lower == "开始时间" || lower == "start_time" || lower == "start time":
			idx["start_time"] = i
		case lower == "结束时间" || lower == "end_time" || lower == "end time":
			idx["end_time"] = i
		case lower == "岗位" || lower == "position":
			idx["position"] = i
		}
	}
	return idx
}

// ────────────────────── ImportShifts ──────────────────────

func (s *shiftService) ImportShifts(ctx context.Context, rows []ImportShiftRow) (*dto.ImportShiftResponse, error) {
	resp := &dto.ImportShiftResponse{Total: len(rows)}

	// 第一阶段：数据预校验（不接触数据库写操作）
	type validatedRow struct {
		row        ImportShiftRow
		employeeID string
	}
	var validRows []validatedRow

	for _, row := range rows {
		if row.Email == "" || row.Date == "" || row.StartTime == "" || row.EndTime == "" {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportShiftError{
				Row: row.Row, Reason: "必填字段为空",
			})
			continue
		}

		if _, err := time.Parse("2006-01-02", row.Date); err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportShiftError{
				Row: row.Row, Reason: fmt.Sprintf("日期格式无效: %s", row.Date),
			})
			continue
		}
		if !validClock(row.StartTime) || !validClock(row.EndTime) {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportShiftError{
				Row: row.Row, Reason: "时间格式无效（应为 HH:MM）",
			})
			continue
		}
		if row.EndTime <= row.StartTime {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportShiftError{
				Row: row.Row, Reason: "结束时间必须晚于开始时间",
			})
			continue
		}

		user, err := s.repo.User.GetByEmail(ctx, row.Email)
		if err != nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportShiftError{
				Row: row.Row, Reason: fmt.Sprintf("员工不存在: %s", row.Email),
			})
			continue
		}

		validRows = append(validRows, validatedRow{row: row, employeeID: user.UserID})
	}

	// 第二阶段：在事务中批量创建所有通过校验的班次
	if len(validRows) > 0 {
		tx := s.repo.BeginTx()
		if tx.Error != nil {
			s.logger.Error("开启事务失败", zap.Error(tx.Error))
			return nil, tx.Error
		}
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			}
		}()

		txRepo := s.repo.WithTx(tx)

		for _, vr := range validRows {
			shift := &model.Shift{
				EmployeeID: vr.employeeID,
				Date:       vr.row.Date,
				StartTime:  vr.row.StartTime,
				EndTime:    vr.row.EndTime,
				Position:   vr.row.Position,
			}
			if err := txRepo.Shift.Create(ctx, shift); err != nil {
				// 事务中任一写入失败则全部回滚
				tx.Rollback()
				s.logger.Error("导入班次写入失败，事务回滚",
					zap.Int("row", vr.row.Row), zap.Error(err))
				return nil, fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", vr.row.Row, err)
			}
			resp.Success++
		}

		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	return resp, nil
}

// ────────────────────── ExportICS ──────────────────────
//
// 输出标准 iCalendar (RFC 5545)：每个班次一个 VEVENT，
// DTSTART/DTEND 由 date + start_time/end_time 组合，按本地时区解释。

func (s *shiftService) ExportICS(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	shifts, err := s.repo.Shift.ListByEmployee(ctx, userID)
	if err != nil {
		s.logger.Error("查询个人班次失败", zap.Error(err))
		return nil, "", err
	}
	if len(shifts) == 0 {
		return nil, "", ErrShiftNoExport
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//shift-swap//backend//EN")

	for i := range shifts {
		shift := &shifts[i]

		start, err := time.ParseInLocation("2006-01-02 15:04", shift.Date+" "+shift.StartTime, time.Local)
		if err != nil {
			continue // 历史脏数据不阻断导出
		}
		end, err := time.ParseInLocation("2006-01-02 15:04", shift.Date+" "+shift.EndTime, time.Local)
		if err != nil {
			continue
		}

		event := cal.AddEvent(shift.ShiftID + "@shift-swap")
		event.SetCreatedTime(shift.CreatedAt)
		event.SetDtStampTime(time.Now())
		event.SetStartAt(start)
		event.SetEndAt(end)

		summary := "班次"
		if shift.Position != "" {
			summary = fmt.Sprintf("班次 — %s", shift.Position)
		}
		event.SetSummary(summary)
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("shifts_%s.ics", time.Now().Format("2006-01-02"))
	return buf, filename, nil
}

// ── 内部辅助方法 ──

// validClock 校验 HH:MM 格式
func validClock(v string) bool {
	_, err := time.Parse("15:04", v)
	return err == nil
}

// toShiftResponse 将 model.Shift 转换为 dto.ShiftResponse
func toShiftResponse(shift *model.Shift) *dto.ShiftResponse {
	resp := &dto.ShiftResponse{
		ID:         shift.ShiftID,
		EmployeeID: shift.EmployeeID,
		Date:       shift.Date,
		StartTime:  shift.StartTime,
		EndTime:    shift.EndTime,
		Position:   shift.Position,
	}
	if shift.Employee != nil {
		resp.EmployeeName = shift.Employee.Name
	}
	return resp
}
