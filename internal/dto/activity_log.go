package dto

// ActivityLogListRequest 操作日志查询参数（仅经理）
type ActivityLogListRequest struct {
	PaginationRequest
	ActorID  string `form:"actor_id"  binding:"omitempty,uuid"`
	DateFrom string `form:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"date_to"   binding:"omitempty,datetime=2006-01-02"`
}

// ActivityLogResponse 操作日志响应
type ActivityLogResponse struct {
	ID         string      `json:"id"`
	ActorID    string      `json:"actor_id,omitempty"`
	ActorName  string      `json:"actor_name,omitempty"` // 为空表示系统动作
	Action     string      `json:"action"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	Details    interface{} `json:"details,omitempty"`
	CreatedAt  string      `json:"created_at"`
}
