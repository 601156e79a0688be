package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"tech-visit/backend/internal/model"
	"tech-visit/backend/pkg/mailer"
)

// ErrNoRecipient 请求未填写邮箱
var ErrNoRecipient = errors.New("缺少收件人邮箱")

// mailSender 邮件发送抽象（*mailer.Mailer 实现）
type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

var emailBody = template.Must(template.New("status").Parse(
	`{{.Name}}，您好：

您的上门技术支持请求（编号 #{{.RequestID}}）状态已更新为：{{.Label}}。
{{- if .When}}
预约时间：{{.When}}
{{- end}}

如有疑问请直接回复本邮件。
`))

// EmailNotifier 向请求人发送状态变更邮件
type EmailNotifier struct {
	sender mailSender
}

// NewEmailNotifier 创建邮件通知渠道
func NewEmailNotifier(m *mailer.Mailer) *EmailNotifier {
	return &EmailNotifier{sender: m}
}

func (n *EmailNotifier) Channel() string { return model.ChannelEmail }

func (n *EmailNotifier) Recipient(change StatusChange) string { return change.Email }

func (n *EmailNotifier) NotifyStatusChange(ctx context.Context, change StatusChange) error {
	if change.Email == "" {
		return ErrNoRecipient
	}

	body, err := RenderEmail(change)
	if err != nil {
		return err
	}

	return n.sender.Send(ctx, mailer.Message{
		To:      change.Email,
		ToName:  change.Name,
		Subject: fmt.Sprintf("技术支持请求 #%d %s", change.RequestID, statusLabel(change.Status)),
		Body:    body,
	})
}

// RenderEmail 渲染邮件正文
func RenderEmail(change StatusChange) (string, error) {
	var when string
	if change.ScheduledDate != nil && change.ScheduledTime != nil {
		when = *change.ScheduledDate + " " + *change.ScheduledTime
	}

	var buf bytes.Buffer
	err := emailBody.Execute(&buf, struct {
		Name      string
		RequestID int64
		Label     string
		When      string
	}{
		Name:      change.Name,
		RequestID: change.RequestID,
		Label:     statusLabel(change.Status),
		When:      when,
	})
	if err != nil {
		return "", fmt.Errorf("渲染邮件模板失败: %w", err)
	}
	return buf.String(), nil
}
