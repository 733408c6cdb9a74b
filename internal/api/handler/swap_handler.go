package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"shift-swap/backend/internal/dto"
	"shift-swap/backend/internal/service"
	"shift-swap/backend/pkg/response"
)

// SwapHandler 换班申请模块 HTTP 处理器
type SwapHandler struct {
	swapSvc service.SwapService
}

// NewSwapHandler 创建 SwapHandler
func NewSwapHandler(swapSvc service.SwapService) *SwapHandler {
	return &SwapHandler{swapSvc: swapSvc}
}

// Create 发起换班申请
// POST /api/v1/swaps
func (h *SwapHandler) Create(c *gin.Context) {
	var req dto.CreateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	callerID, _ := c.Get("user_id")

	swap, err := h.swapSvc.Create(c.Request.Context(), callerID.(string), &req)
	if err != nil {
		// 状态已写入但日志落盘失败：按成功返回并附带告警
		if errors.Is(err, service.ErrActivityLogFailed) {
			response.OKWithWarning(c, swap, "操作已生效，但操作日志写入失败")
			return
		}
		h.handleSwapError(c, err)
		return
	}

	response.Created(c, swap)
}

// Volunteer 认领换班申请
// POST /api/v1/swaps/:id/volunteer
func (h *SwapHandler) Volunteer(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 13001, "换班申请ID不能为空")
		return
	}

	var req dto.VolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	callerID, _ := c.Get("user_id")
	callerRole, _ := c.Get("role")

	swap, err := h.swapSvc.Volunteer(c.Request.Context(), id, callerID.(string), callerRole.(string), &req)
	if err != nil {
		if errors.Is(err, service.ErrActivityLogFailed) {
			response.OKWithWarning(c, swap, "操作已生效，但操作日志写入失败")
			return
		}
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, swap)
}

// Approve 批准换班申请（仅经理）
// POST /api/v1/swaps/:id/approve
func (h *SwapHandler) Approve(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 13001, "换班申请ID不能为空")
		return
	}

	callerID, _ := c.Get("user_id")
	callerRole, _ := c.Get("role")

	swap, err := h.swapSvc.Approve(c.Request.Context(), id, callerID.(string), callerRole.(string))
	if err != nil {
		if errors.Is(err, service.ErrActivityLogFailed) {
			response.OKWithWarning(c, swap, "操作已生效，但操作日志写入失败")
			return
		}
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, swap)
}

// Reject 驳回换班申请（仅经理）
// POST /api/v1/swaps/:id/reject
func (h *SwapHandler) Reject(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 13001, "换班申请ID不能为空")
		return
	}

	// 驳回原因可选，body 可以为空
	var req dto.RejectSwapRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 13001, "参数校验失败")
			return
		}
	}

	callerID, _ := c.Get("user_id")
	callerRole, _ := c.Get("role")

	swap, err := h.swapSvc.Reject(c.Request.Context(), id, callerID.(string), callerRole.(string), &req)
	if err != nil {
		if errors.Is(err, service.ErrActivityLogFailed) {
			response.OKWithWarning(c, swap, "操作已生效，但操作日志写入失败")
			return
		}
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, swap)
}

// GetByID 获取换班申请详情
// GET /api/v1/swaps/:id
func (h *SwapHandler) GetByID(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 13001, "换班申请ID不能为空")
		return
	}

	swap, err := h.swapSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, swap)
}

// ListOpen 获取可认领的换班申请（排除本人发起的）
// GET /api/v1/swaps/open
func (h *SwapHandler) ListOpen(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	callerID, _ := c.Get("user_id")

	swaps, total, err := h.swapSvc.ListOpen(c.Request.Context(), callerID.(string), &req)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OKPage(c, swaps, total, req.GetPage(), req.GetPageSize())
}

// ListMine 获取我参与的换班申请（发起或认领）
// GET /api/v1/swaps/my
func (h *SwapHandler) ListMine(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	callerID, _ := c.Get("user_id")

	swaps, total, err := h.swapSvc.ListMine(c.Request.Context(), callerID.(string), &req)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OKPage(c, swaps, total, req.GetPage(), req.GetPageSize())
}

// List 换班申请列表（仅经理），可按状态过滤
// GET /api/v1/swaps?status=pending
func (h *SwapHandler) List(c *gin.Context) {
	var req dto.SwapListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	swaps, total, err := h.swapSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OKPage(c, swaps, total, req.GetPage(), req.GetPageSize())
}

// handleSwapError 统一处理换班模块业务错误
func (h *SwapHandler) handleSwapError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSwapNotFound):
		response.NotFound(c, 13101, "换班申请不存在")
	case errors.Is(err, service.ErrShiftNotFound):
		response.NotFound(c, 13102, "班次不存在")
	case errors.Is(err, service.ErrShiftNotOwned):
		response.Forbidden(c, 13103, "只能为本人的班次发起换班")
	case errors.Is(err, service.ErrDuplicateRequest):
		response.Conflict(c, 13104, "该班次已存在进行中的换班申请")
	case errors.Is(err, service.ErrSelfSwap):
		response.Forbidden(c, 13105, "不能认领自己发起的换班申请")
	case errors.Is(err, service.ErrManagerCannotVolunteer):
		response.Forbidden(c, 13106, "经理不能认领换班申请")
	case errors.Is(err, service.ErrNotManager):
		response.Forbidden(c, 13107, "仅经理可审批换班申请")
	case errors.Is(err, service.ErrSwapNotOpen):
		response.Conflict(c, 13108, "该换班申请当前不可认领")
	case errors.Is(err, service.ErrSwapAlreadyClaimed):
		response.Conflict(c, 13109, "该换班申请已被他人认领")
	case errors.Is(err, service.ErrSwapNotPending):
		response.Conflict(c, 13110, "该换班申请尚未进入待审批状态")
	case errors.Is(err, service.ErrSwapAlreadyDecided):
		response.Conflict(c, 13111, "该换班申请已完成审批")
	case errors.Is(err, service.ErrVolunteerShiftNotOwned):
		response.Forbidden(c, 13112, "交换班次不属于认领人")
	case errors.Is(err, service.ErrVolunteerShiftPast):
		response.BadRequest(c, 13113, "交换班次必须是未来的班次")
	case errors.Is(err, service.ErrVolunteerShiftBusy):
		response.Conflict(c, 13114, "交换班次已被其他换班申请占用")
	default:
		response.InternalError(c)
	}
}
