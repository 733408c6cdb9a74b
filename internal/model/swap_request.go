package model

import "time"

// 换班申请状态机：open → pending → approved | rejected
const (
	SwapStatusOpen     = "open"     // 已发布，等待他人认领
	SwapStatusPending  = "pending"  // 已有人认领，等待经理审批
	SwapStatusApproved = "approved" // 经理批准（终态）
	SwapStatusRejected = "rejected" // 经理驳回（终态）
)

// SwapRequest 换班申请表 — 对应 swap_requests
//
// 字段填充由 status 唯一决定：
//   - open:     无志愿者字段、无经理字段
//   - pending:  志愿者三字段整体填充，无经理字段
//   - approved: 志愿者字段 + manager_id + approved_at
//   - rejected: 志愿者字段 + manager_id + rejected_at (+ 可选 rejection_reason)
//
// approved_at 与 rejected_at 互斥，由数据库 CHECK 约束兜底。
type SwapRequest struct {
	SwapRequestID          string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"swap_request_id"`
	ShiftID                string     `gorm:"type:uuid;not null;index"                       json:"shift_id"`
	RequesterID            string     `gorm:"type:uuid;not null;index"                       json:"requester_id"`
	Status                 string     `gorm:"type:varchar(20);not null;default:'open'"       json:"status"`
	Note                   string     `gorm:"type:varchar(500)"                              json:"note,omitempty"`
	PreferredVolunteerName string     `gorm:"type:varchar(100)"                              json:"preferred_volunteer_name,omitempty"`
	PreferredTime          string     `gorm:"type:varchar(100)"                              json:"preferred_time,omitempty"`
	VolunteerID            *string    `gorm:"type:uuid;index"                                json:"volunteer_id,omitempty"`
	VolunteerShiftID       *string    `gorm:"type:uuid"                                      json:"volunteer_shift_id,omitempty"`
	ManagerID              *string    `gorm:"type:uuid"                                      json:"manager_id,omitempty"`
	ApprovedAt             *time.Time `json:"approved_at,omitempty"`
	RejectedAt             *time.Time `json:"rejected_at,omitempty"`
	RejectionReason        string     `gorm:"type:varchar(500)"                              json:"rejection_reason,omitempty"`
	CreatedAt              time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`

	// 关联
	Shift          *Shift `gorm:"foreignKey:ShiftID;references:ShiftID"          json:"shift,omitempty"`
	Requester      *User  `gorm:"foreignKey:RequesterID;references:UserID"       json:"requester,omitempty"`
	Volunteer      *User  `gorm:"foreignKey:VolunteerID;references:UserID"       json:"volunteer,omitempty"`
	VolunteerShift *Shift `gorm:"foreignKey:VolunteerShiftID;references:ShiftID" json:"volunteer_shift,omitempty"`
	Manager        *User  `gorm:"foreignKey:ManagerID;references:UserID"        json:"manager,omitempty"`
}

// TableName 指定表名
func (SwapRequest) TableName() string { return "swap_requests" }

// IsTerminal 判断是否已进入终态（批准或驳回）
func (s *SwapRequest) IsTerminal() bool {
	return s.Status == SwapStatusApproved || s.Status == SwapStatusRejected
}
