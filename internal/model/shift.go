package model

// Shift 班次表 — 对应 shifts
//
// date 使用 YYYY-MM-DD，start_time / end_time 使用 HH:MM；
// 与前端及导入文件的文本格式保持一致，不做时区换算。
type Shift struct {
	ShiftID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_id"`
	EmployeeID string `gorm:"type:uuid;not null;index"                       json:"employee_id"`
	Date       string `gorm:"type:varchar(10);not null"                      json:"date"`
	StartTime  string `gorm:"type:varchar(5);not null"                       json:"start_time"`
	EndTime    string `gorm:"type:varchar(5);not null"                       json:"end_time"`
	Position   string `gorm:"type:varchar(100)"                              json:"position,omitempty"`
	BaseModel

	// 关联
	Employee *User `gorm:"foreignKey:EmployeeID;references:UserID" json:"employee,omitempty"`
}

// TableName 指定表名
func (Shift) TableName() string { return "shifts" }
