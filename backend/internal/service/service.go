package service

import (
	"go.uber.org/zap"

	"tech-visit/backend/config"
	"tech-visit/backend/internal/notify"
	"tech-visit/backend/internal/repository"
	"tech-visit/backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth     AuthService
	Admin    AdminService
	Request  RequestService
	Slot     SlotService
	Export   ExportService
	Calendar CalendarService
}

// NewService 创建 Service 聚合
// channels 为 nil 或未启用通知时不发送任何通知
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	channels *notify.Multi,
	logger *zap.Logger,
) *Service {
	var d Deliverer
	if channels != nil && channels.Len() > 0 {
		d = channels
	}
	trigger := NewNotificationTrigger(repo, d, cfg.Notify.Enabled, cfg.Notify.Timeout, logger)

	return &Service{
		Auth:     NewAuthService(repo, jwtMgr, blacklist, logger),
		Admin:    NewAdminService(repo, logger),
		Request:  NewRequestService(repo, trigger, cfg.Booking.TxTimeout, logger),
		Slot:     NewSlotService(repo, cfg.Booking.TxTimeout, cfg.Booking.AvailableDaysAhead, cfg.Database.Timezone, logger),
		Export:   NewExportService(repo, logger),
		Calendar: NewCalendarService(repo, cfg.Database.Timezone, logger),
	}
}
