package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"shift-swap/backend/internal/dto"
	"shift-swap/backend/internal/service"
	"shift-swap/backend/pkg/response"
)

// ActivityLogHandler 操作日志模块 HTTP 处理器
type ActivityLogHandler struct {
	logSvc service.ActivityLogService
}

// NewActivityLogHandler 创建 ActivityLogHandler
func NewActivityLogHandler(logSvc service.ActivityLogService) *ActivityLogHandler {
	return &ActivityLogHandler{logSvc: logSvc}
}

// List 操作日志列表（仅经理），支持按操作人与日期范围过滤
// GET /api/v1/logs
func (h *ActivityLogHandler) List(c *gin.Context) {
	var req dto.ActivityLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 14001, "参数校验失败")
		return
	}

	logs, total, err := h.logSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, logs, total, req.GetPage(), req.GetPageSize())
}

// ListByEntity 按实体回放操作日志（按时间正序）
// GET /api/v1/logs/entity/:type/:id
func (h *ActivityLogHandler) ListByEntity(c *gin.Context) {
	entityType := c.Param("type")
	entityID := c.Param("id")
	if entityType == "" || entityID == "" {
		response.BadRequest(c, 14001, "实体类型与ID不能为空")
		return
	}

	logs, err := h.logSvc.ListByEntity(c.Request.Context(), entityType, entityID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": logs})
}

// Export 导出全部操作日志为 CSV（仅经理）
// GET /api/v1/logs/export
func (h *ActivityLogHandler) Export(c *gin.Context) {
	buf, filename, err := h.logSvc.ExportCSV(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrLogExportEmpty) {
			response.NotFound(c, 14101, "暂无可导出的操作日志")
			return
		}
		response.InternalError(c)
		return
	}

	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
