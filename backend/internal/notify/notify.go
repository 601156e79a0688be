// Package notify 请求状态变更通知。
//
// 每个渠道实现 Notifier；Multi 依次投递到所有渠道并返回逐渠道结果，
// 调用方据此记录投递日志。通知是尽力而为的，失败不影响业务结果。
package notify

import (
	"context"
	"errors"
	"fmt"
)

// StatusChange 一次状态变更通知的内容
type StatusChange struct {
	Email         string
	Name          string
	RequestID     int64
	Status        string
	ScheduledDate *string
	ScheduledTime *string
}

// Notifier 单一通知渠道
type Notifier interface {
	// Channel 渠道名，写入投递日志
	Channel() string
	// Recipient 该渠道对本次通知的接收方标识
	Recipient(change StatusChange) string
	NotifyStatusChange(ctx context.Context, change StatusChange) error
}

// Result 单个渠道的投递结果
type Result struct {
	Channel   string
	Recipient string
	Err       error
}

// Multi 多渠道扇出
type Multi struct {
	notifiers []Notifier
}

// NewMulti 创建多渠道通知器，nil 渠道被忽略
func NewMulti(notifiers ...Notifier) *Multi {
	m := &Multi{}
	for _, n := range notifiers {
		if n != nil {
			m.notifiers = append(m.notifiers, n)
		}
	}
	return m
}

// Len 已配置的渠道数
func (m *Multi) Len() int {
	return len(m.notifiers)
}

// Deliver 顺序投递到每个渠道，单个渠道失败不影响后续渠道
func (m *Multi) Deliver(ctx context.Context, change StatusChange) []Result {
	results := make([]Result, 0, len(m.notifiers))
	for _, n := range m.notifiers {
		err := n.NotifyStatusChange(ctx, change)
		results = append(results, Result{
			Channel:   n.Channel(),
			Recipient: n.Recipient(change),
			Err:       err,
		})
	}
	return results
}

// NotifyStatusChange 投递到所有渠道，合并各渠道错误
func (m *Multi) NotifyStatusChange(ctx context.Context, change StatusChange) error {
	var errs []error
	for _, r := range m.Deliver(ctx, change) {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Channel, r.Err))
		}
	}
	return errors.Join(errs...)
}

// statusLabel 状态的展示文案
func statusLabel(status string) string {
	switch status {
	case "pending":
		return "已受理"
	case "in_progress":
		return "处理中"
	case "completed":
		return "已完成"
	case "cancelled":
		return "已取消"
	default:
		return status
	}
}
