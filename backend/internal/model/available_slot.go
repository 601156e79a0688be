package model

// AvailableSlot 可预约上门时间段，对应 available_slots
// (date, start_time, end_time) 唯一
type AvailableSlot struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"                                  json:"id"`
	Date      string `gorm:"type:varchar(10);not null;uniqueIndex:uk_available_slots_triple,priority:1" json:"date"`
	StartTime string `gorm:"type:varchar(5);not null;uniqueIndex:uk_available_slots_triple,priority:2"  json:"start_time"`
	EndTime   string `gorm:"type:varchar(5);not null;uniqueIndex:uk_available_slots_triple,priority:3"  json:"end_time"`
	IsBooked  bool   `gorm:"not null;default:false"                                    json:"is_booked"`
	BaseModel
}

// TableName 指定表名
func (AvailableSlot) TableName() string { return "available_slots" }
