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

// ShiftHandler 班次模块 HTTP 处理器
type ShiftHandler struct {
	shiftSvc service.ShiftService
}

// NewShiftHandler 创建 ShiftHandler
func NewShiftHandler(shiftSvc service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shiftSvc: shiftSvc}
}

// Create 创建班次
// POST /api/v1/shifts
func (h *ShiftHandler) Create(c *gin.Context) {
	var req dto.CreateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	callerID, _ := c.Get("user_id")
	callerRole, _ := c.Get("role")

	shift, err := h.shiftSvc.Create(c.Request.Context(), &req, callerID.(string), callerRole.(string))
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.Created(c, shift)
}

// GetByID 获取班次详情
// GET /api/v1/shifts/:id
func (h *ShiftHandler) GetByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "班次ID不能为空")
		return
	}

	shift, err := h.shiftSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, shift)
}

// ListMine 获取我的班次
// GET /api/v1/shifts/my
func (h *ShiftHandler) ListMine(c *gin.Context) {
	userID, _ := c.Get("user_id")

	shifts, err := h.shiftSvc.ListMine(c.Request.Context(), userID.(string))
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, gin.H{"list": shifts})
}

// List 班次列表（仅经理）
// GET /api/v1/shifts
func (h *ShiftHandler) List(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	shifts, total, err := h.shiftSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OKPage(c, shifts, total, req.GetPage(), req.GetPageSize())
}

// Update 修改班次
// PUT /api/v1/shifts/:id
func (h *ShiftHandler) Update(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "班次ID不能为空")
		return
	}

	var req dto.UpdateShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 12001, "参数校验失败")
		return
	}

	callerID, _ := c.Get("user_id")
	callerRole, _ := c.Get("role")

	shift, err := h.shiftSvc.Update(c.Request.Context(), id, &req, callerID.(string), callerRole.(string))
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, shift)
}

// Delete 删除班次
// DELETE /api/v1/shifts/:id
func (h *ShiftHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 12001, "班次ID不能为空")
		return
	}

	callerID, _ := c.Get("user_id")
	callerRole, _ := c.Get("role")

	if err := h.shiftSvc.Delete(c.Request.Context(), id, callerID.(string), callerRole.(string)); err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, nil)
}

// Import 批量导入班次（仅经理）
// POST /api/v1/shifts/import
// multipart/form-data, field="file"，Excel 格式见模板
func (h *ShiftHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 12001, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	rows, err := h.shiftSvc.ParseImportFile(file)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	result, err := h.shiftSvc.ImportShifts(c.Request.Context(), rows)
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	response.OK(c, result)
}

// ExportICS 导出我的班次为 iCalendar
// GET /api/v1/shifts/export/ics
func (h *ShiftHandler) ExportICS(c *gin.Context) {
	userID, _ := c.Get("user_id")

	buf, filename, err := h.shiftSvc.ExportICS(c.Request.Context(), userID.(string))
	if err != nil {
		h.handleShiftError(c, err)
		return
	}

	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

// handleShiftError 统一处理班次模块业务错误
func (h *ShiftHandler) handleShiftError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrShiftNotFound):
		response.NotFound(c, 12101, "班次不存在")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12102, "员工不存在")
	case errors.Is(err, service.ErrShiftForbidden):
		response.Forbidden(c, 12103, "无权操作该班次")
	case errors.Is(err, service.ErrShiftInSwap):
		response.Conflict(c, 12104, "班次存在进行中的换班申请，无法删除")
	case errors.Is(err, service.ErrShiftTimeOrder):
		response.BadRequest(c, 12105, "班次结束时间必须晚于开始时间")
	case errors.Is(err, service.ErrShiftNoExport):
		response.NotFound(c, 12106, "暂无可导出的班次")
	case errors.Is(err, service.ErrImportNoData):
		response.ErrorWithDetails(c, http.StatusBadRequest, 12107, "Excel文件无数据行", err.Error())
	case errors.Is(err, service.ErrImportTooManyRows):
		response.ErrorWithDetails(c, http.StatusBadRequest, 12108, "数据行数超过上限", err.Error())
	case errors.Is(err, service.ErrImportBadHeader):
		response.ErrorWithDetails(c, http.StatusBadRequest, 12109, "Excel表头缺少必要列", err.Error())
	default:
		response.InternalError(c)
	}
}
