package dto

// CreateSwapRequest 发起换班申请
type CreateSwapRequest struct {
	ShiftID                string `json:"shift_id"                 binding:"required,uuid"`
	Note                   string `json:"note"                     binding:"omitempty,max=500"`
	PreferredVolunteerName string `json:"preferred_volunteer_name" binding:"omitempty,max=100"`
	PreferredTime          string `json:"preferred_time"           binding:"omitempty,max=100"`
}

// VolunteerRequest 认领换班申请
type VolunteerRequest struct {
	VolunteerShiftID string `json:"volunteer_shift_id" binding:"required,uuid"`
}

// RejectSwapRequest 驳回换班申请
// 驳回原因为可选项：核心契约不强制非空，由前端按需约束
type RejectSwapRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// SwapResponse 换班申请响应
// 原班次与交换班次的展示字段由关联数据展开，不落库
type SwapResponse struct {
	ID            string `json:"id"`
	ShiftID       string `json:"shift_id"`
	RequesterID   string `json:"requester_id"`
	RequesterName string `json:"requester_name,omitempty"`
	Status        string `json:"status"`
	Note          string `json:"note,omitempty"`

	PreferredVolunteerName string `json:"preferred_volunteer_name,omitempty"`
	PreferredTime          string `json:"preferred_time,omitempty"`

	Date      string `json:"date,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`

	VolunteerID             string `json:"volunteer_id,omitempty"`
	VolunteerName           string `json:"volunteer_name,omitempty"`
	VolunteerShiftID        string `json:"volunteer_shift_id,omitempty"`
	VolunteerShiftDate      string `json:"volunteer_shift_date,omitempty"`
	VolunteerShiftStartTime string `json:"volunteer_shift_start_time,omitempty"`
	VolunteerShiftEndTime   string `json:"volunteer_shift_end_time,omitempty"`

	ManagerID       string `json:"manager_id,omitempty"`
	ManagerName     string `json:"manager_name,omitempty"`
	ApprovedAt      string `json:"approved_at,omitempty"`
	RejectedAt      string `json:"rejected_at,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`

	CreatedAt string `json:"created_at"`
}

// SwapListRequest 换班申请列表查询参数
type SwapListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=open pending approved rejected"`
}
