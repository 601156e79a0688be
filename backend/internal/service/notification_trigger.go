package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tech-visit/backend/internal/model"
	"tech-visit/backend/internal/notify"
	"tech-visit/backend/internal/repository"
)

// Deliverer 多渠道投递（*notify.Multi 实现）
type Deliverer interface {
	Deliver(ctx context.Context, change notify.StatusChange) []notify.Result
}

// NotificationTrigger 事务提交后发送状态通知，并记录每个渠道的投递结果
// 失败只记录，不向调用方返回
type NotificationTrigger struct {
	repo     *repository.Repository
	channels Deliverer
	enabled  bool
	timeout  time.Duration
	logger   *zap.Logger
}

// NewNotificationTrigger 创建通知触发器；channels 为 nil 时不发送
func NewNotificationTrigger(repo *repository.Repository, channels Deliverer, enabled bool, timeout time.Duration, logger *zap.Logger) *NotificationTrigger {
	return &NotificationTrigger{
		repo:     repo,
		channels: channels,
		enabled:  enabled && channels != nil,
		timeout:  timeout,
		logger:   logger,
	}
}

// fire 同步投递，总耗时受 timeout 约束
func (t *NotificationTrigger) fire(ctx context.Context, req *model.TechRequest) {
	if t == nil || !t.enabled || req == nil {
		return
	}

	// 请求已返回结果，通知不受客户端断开影响
	nctx := context.WithoutCancel(ctx)
	if t.timeout > 0 {
		var cancel context.CancelFunc
		nctx, cancel = context.WithTimeout(nctx, t.timeout)
		defer cancel()
	}

	change := notify.StatusChange{
		Email:         req.Email,
		Name:          req.FullName,
		RequestID:     req.ID,
		Status:        req.Status,
		ScheduledDate: req.ScheduledDate,
		ScheduledTime: req.ScheduledTime,
	}

	for _, r := range t.channels.Deliver(nctx, change) {
		entry := &model.NotificationLog{
			RequestID: req.ID,
			Channel:   r.Channel,
			Recipient: r.Recipient,
			Status:    req.Status,
			Success:   r.Err == nil,
			CreatedAt: time.Now(),
		}
		if r.Err != nil {
			msg := r.Err.Error()
			entry.Error = &msg
			t.logger.Warn("发送状态通知失败",
				zap.Int64("request_id", req.ID),
				zap.String("channel", r.Channel),
				zap.Error(r.Err),
			)
		}
		if err := t.repo.Notification.Create(context.WithoutCancel(ctx), entry); err != nil {
			t.logger.Error("写入通知记录失败", zap.Int64("request_id", req.ID), zap.Error(err))
		}
	}
}
