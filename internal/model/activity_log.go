package model

import (
	"time"

	"gorm.io/datatypes"
)

// 操作日志动作
const (
	ActionCreated     = "created"
	ActionVolunteered = "volunteered"
	ActionApproved    = "approved"
	ActionRejected    = "rejected"
)

// 操作日志实体类型
const (
	EntitySwapRequest = "swap_request"
	EntityShift       = "shift"
	EntityUser        = "user"
)

// ActivityLog 操作日志表 — 对应 activity_logs
//
// 仅追加：全仓库不存在任何更新或删除该表的路径。
// user_id 为 NULL 表示系统发起的动作。
type ActivityLog struct {
	LogID      string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"log_id"`
	UserID     *string        `gorm:"type:uuid;index"                                json:"user_id,omitempty"`
	Action     string         `gorm:"type:varchar(50);not null"                      json:"action"`
	EntityType string         `gorm:"type:varchar(50);not null"                      json:"entity_type"`
	EntityID   string         `gorm:"type:uuid;not null;index"                       json:"entity_id"`
	Details    datatypes.JSON `gorm:"type:jsonb"                                     json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index"       json:"created_at"`

	// 关联
	Actor *User `gorm:"foreignKey:UserID;references:UserID" json:"actor,omitempty"`
}

// TableName 指定表名
func (ActivityLog) TableName() string { return "activity_logs" }
