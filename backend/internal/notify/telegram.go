package notify

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tech-visit/backend/internal/model"
)

// messageSender Telegram 发送抽象（*tgbotapi.BotAPI 实现）
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier 向志愿者协调群推送状态变更
type TelegramNotifier struct {
	api    messageSender
	chatID int64
}

// NewTelegramNotifier 使用 Bot Token 创建通知渠道（会调用 getMe 校验 Token）
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("创建 Telegram Bot 失败: %w", err)
	}
	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

func (n *TelegramNotifier) Channel() string { return model.ChannelTelegram }

func (n *TelegramNotifier) Recipient(StatusChange) string {
	return strconv.FormatInt(n.chatID, 10)
}

// NotifyStatusChange BotAPI 不接受 ctx，超时后放弃等待
func (n *TelegramNotifier) NotifyStatusChange(ctx context.Context, change StatusChange) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatTelegram(change))

	done := make(chan error, 1)
	go func() {
		_, err := n.api.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FormatTelegram 群消息文本
func FormatTelegram(change StatusChange) string {
	text := fmt.Sprintf("请求 #%d（%s）%s", change.RequestID, change.Name, statusLabel(change.Status))
	if change.ScheduledDate != nil && change.ScheduledTime != nil {
		text += fmt.Sprintf("\n预约时间: %s %s", *change.ScheduledDate, *change.ScheduledTime)
	}
	return text
}
