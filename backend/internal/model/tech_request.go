package model

// 请求状态
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// 紧急程度
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
	UrgencyUrgent = "urgent"
)

// IsValidStatus 状态取值校验
func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminalStatus completed / cancelled 为终态
func IsTerminalStatus(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValidUrgency 紧急程度取值校验
func IsValidUrgency(u string) bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent:
		return true
	}
	return false
}

// TechRequest 上门技术支持请求，对应 tech_requests
// BookedSlotID 非空 ⇔ 对应时间段 is_booked=true 且 (date,start_time) = (ScheduledDate,ScheduledTime)
type TechRequest struct {
	ID                 int64   `gorm:"primaryKey;autoIncrement"                 json:"id"`
	FullName           string  `gorm:"type:varchar(100);not null"               json:"full_name"`
	Phone              string  `gorm:"type:varchar(30);not null"                json:"phone"`
	Email              string  `gorm:"type:varchar(255);not null"               json:"email"`
	Address            string  `gorm:"type:text;not null"                       json:"address"`
	ProblemDescription string  `gorm:"type:text;not null"                       json:"problem_description"`
	UrgencyLevel       string  `gorm:"type:varchar(10);not null;default:'medium'" json:"urgency_level"`
	Status             string  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Notes              *string `gorm:"type:text"                                json:"notes,omitempty"`
	ScheduledDate      *string `gorm:"type:varchar(10)"                         json:"scheduled_date,omitempty"`
	ScheduledTime      *string `gorm:"type:varchar(5)"                          json:"scheduled_time,omitempty"`
	AssignedAdminID    *int64  `gorm:"index"                                    json:"assigned_admin_id,omitempty"`
	BookedSlotID       *int64  `gorm:"uniqueIndex"                              json:"booked_slot_id,omitempty"`
	BaseModel

	// 关联
	AssignedAdmin *Admin         `gorm:"foreignKey:AssignedAdminID" json:"assigned_admin,omitempty"`
	BookedSlot    *AvailableSlot `gorm:"foreignKey:BookedSlotID"    json:"booked_slot,omitempty"`
}

// TableName 指定表名
func (TechRequest) TableName() string { return "tech_requests" }
