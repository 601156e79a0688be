package model

import "time"

// 通知渠道
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelLog      = "log"
)

// NotificationLog 状态变更通知投递记录，对应 notification_logs
// 请求被删除后记录保留，因此 RequestID 不设外键
type NotificationLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"              json:"id"`
	RequestID int64     `gorm:"not null;index"                        json:"request_id"`
	Channel   string    `gorm:"type:varchar(20);not null"             json:"channel"`
	Recipient string    `gorm:"type:varchar(255);not null;default:''" json:"recipient"`
	Status    string    `gorm:"type:varchar(20);not null"             json:"status"`
	Success   bool      `gorm:"not null"                              json:"success"`
	Error     *string   `gorm:"type:text"                             json:"error,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"    json:"created_at"`
}

// TableName 指定表名
func (NotificationLog) TableName() string { return "notification_logs" }
