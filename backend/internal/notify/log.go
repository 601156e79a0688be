package notify

import (
	"context"

	"go.uber.org/zap"

	"tech-visit/backend/internal/model"
)

// LogNotifier 仅写日志（未配置 SMTP/Telegram 时的兜底渠道）
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 创建日志通知渠道
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Channel() string { return model.ChannelLog }

func (n *LogNotifier) Recipient(StatusChange) string { return "" }

func (n *LogNotifier) NotifyStatusChange(_ context.Context, change StatusChange) error {
	n.logger.Info("请求状态变更",
		zap.Int64("request_id", change.RequestID),
		zap.String("status", change.Status),
		zap.String("email", change.Email),
	)
	return nil
}
