package dto

// CreateShiftRequest 创建班次请求
type CreateShiftRequest struct {
	EmployeeID string `json:"employee_id" binding:"omitempty,uuid"` // 仅经理可替他人排班；留空默认本人
	Date       string `json:"date"        binding:"required,datetime=2006-01-02"`
	StartTime  string `json:"start_time"  binding:"required,datetime=15:04"`
	EndTime    string `json:"end_time"    binding:"required,datetime=15:04"`
	Position   string `json:"position"    binding:"omitempty,max=100"`
}

// UpdateShiftRequest 更新班次请求（仅更新非 nil 字段）
type UpdateShiftRequest struct {
	Date      *string `json:"date"       binding:"omitempty,datetime=2006-01-02"`
	StartTime *string `json:"start_time" binding:"omitempty,datetime=15:04"`
	EndTime   *string `json:"end_time"   binding:"omitempty,datetime=15:04"`
	Position  *string `json:"position"   binding:"omitempty,max=100"`
}

// ShiftResponse 班次响应
type ShiftResponse struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name,omitempty"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Position     string `json:"position,omitempty"`
}

// ImportShiftError 批量导入的单行失败信息
type ImportShiftError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportShiftResponse 批量导入结果
type ImportShiftResponse struct {
	Total   int                `json:"total"`
	Success int                `json:"success"`
	Failed  int                `json:"failed"`
	Errors  []ImportShiftError `json:"errors,omitempty"`
}
