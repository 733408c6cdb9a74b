package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"shift-swap/backend/internal/dto"
	"shift-swap/backend/internal/model"
	"shift-swap/backend/internal/repository"
)

// ── 操作日志模块业务错误 ──

var ErrLogExportEmpty = errors.New("暂无可导出的操作日志")

// ActivityLogService 操作日志业务接口
//
// 设计说明：
//   - Record 是每个状态迁移的最后一个副作用，与迁移同属一次逻辑操作；
//     写入失败由调用方决定如何上报（见 SwapService 的审计契约）
//   - 日志仅追加，不提供任何修改或删除入口
type ActivityLogService interface {
	// Record 追加一条操作日志；actorID 为 nil 表示系统动作
	Record(ctx context.Context, actorID *string, action, entityType, entityID string, details map[string]interface{}) error
	List(ctx context.Context, req *dto.ActivityLogListRequest) ([]dto.ActivityLogResponse, int64, error)
	// ListByEntity 按实体回放全部日志（按时间正序）
	ListByEntity(ctx context.Context, entityType, entityID string) ([]dto.ActivityLogResponse, error)
	// ExportCSV 导出全部日志为 CSV，返回内容与建议文件名
	ExportCSV(ctx context.Context) (*bytes.Buffer, string, error)
}

type activityLogService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewActivityLogService 创建 ActivityLogService 实例
func NewActivityLogService(repo *repository.Repository, logger *zap.Logger) ActivityLogService {
	return &activityLogService{repo: repo, logger: logger}
}

// ────────────────────── Record ──────────────────────

func (s *activityLogService) Record(ctx context.Context, actorID *string, action, entityType, entityID string, details map[string]interface{}) error {
	entry := &model.ActivityLog{
		UserID:     actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}

	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("序列化日志详情失败: %w", err)
		}
		entry.Details = datatypes.JSON(raw)
	}

	if err := s.repo.ActivityLog.Create(ctx, entry); err != nil {
		s.logger.Error("写入操作日志失败",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// ────────────────────── List ──────────────────────

func (s *activityLogService) List(ctx context.Context, req *dto.ActivityLogListRequest) ([]dto.ActivityLogResponse, int64, error) {
	filters := &repository.ActivityLogFilters{ActorID: req.ActorID}

	// 日期过滤按整天处理：date_to 含当天 → 上界为次日零点
	if req.DateFrom != "" {
		t, err := time.Parse("2006-01-02", req.DateFrom)
		if err == nil {
			filters.DateFrom = &t
		}
	}
	if req.DateTo != "" {
		t, err := time.Parse("2006-01-02", req.DateTo)
		if err == nil {
			upper := t.AddDate(0, 0, 1)
			filters.DateTo = &upper
		}
	}

	logs, total, err := s.repo.ActivityLog.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询操作日志失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.ActivityLogResponse, 0, len(logs))
	for i := range logs {
		result = append(result, *toActivityLogResponse(&logs[i]))
	}

	return result, total, nil
}

// ────────────────────── ListByEntity ──────────────────────

func (s *activityLogService) ListByEntity(ctx context.Context, entityType, entityID string) ([]dto.ActivityLogResponse, error) {
	logs, err := s.repo.ActivityLog.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		s.logger.Error("查询实体日志失败",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		return nil, err
	}

	result := make([]dto.ActivityLogResponse, 0, len(logs))
	for i := range logs {
		result = append(result, *toActivityLogResponse(&logs[i]))
	}

	return result, nil
}

// ────────────────────── ExportCSV ──────────────────────
//
// 列序固定：id, 操作人（无则 "System"）, action, entity type, entity id,
// details 的 JSON 文本, 时间戳。含逗号或引号的字段加引号并将内部引号翻倍
// （encoding/csv 的标准行为）。

func (s *activityLogService) ExportCSV(ctx context.Context) (*bytes.Buffer, string, error) {
	logs, err := s.repo.ActivityLog.ListAll(ctx)
	if err != nil {
		s.logger.Error("导出操作日志失败", zap.Error(err))
		return nil, "", err
	}
	if len(logs) == 0 {
		return nil, "", ErrLogExportEmpty
	}

	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)

	header := []string{"ID", "User", "Action", "Entity Type", "Entity ID", "Details", "Created At"}
	if err := w.Write(header); err != nil {
		return nil, "", fmt.Errorf("写入 CSV 表头失败: %w", err)
	}

	for i := range logs {
		log := &logs[i]

		actor := "System"
		if log.Actor != nil {
			actor = log.Actor.Name
		}

		details := "{}"
		if len(log.Details) > 0 {
			details = string(log.Details)
		}

		record := []string{
			log.LogID,
			actor,
			log.Action,
			log.EntityType,
			log.EntityID,
			details,
			log.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, "", fmt.Errorf("写入 CSV 行失败: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("刷出 CSV 失败: %w", err)
	}

	filename := fmt.Sprintf("activity_logs_%s.csv", time.Now().Format("2006-01-02"))
	return buf, filename, nil
}

// ── 内部辅助方法 ──

// toActivityLogResponse 将 model.ActivityLog 转换为 dto.ActivityLogResponse
func toActivityLogResponse(log *model.ActivityLog) *dto.ActivityLogResponse {
	resp := &dto.ActivityLogResponse{
		ID:         log.LogID,
		Action:     log.Action,
		EntityType: log.EntityType,
		EntityID:   log.EntityID,
		CreatedAt:  log.CreatedAt.Format(time.RFC3339),
	}
	if log.UserID != nil {
		resp.ActorID = *log.UserID
	}
	if log.Actor != nil {
		resp.ActorName = log.Actor.Name
	}
	if len(log.Details) > 0 {
		var payload interface{}
		if err := json.Unmarshal(log.Details, &payload); err == nil {
			resp.Details = payload
		}
	}
	return resp
}
