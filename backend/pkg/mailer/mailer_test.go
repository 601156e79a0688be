package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tech-visit/backend/config"
)

func TestBuild_Headers(t *testing.T) {
	m := New(&config.MailConfig{SMTPHost: "smtp.example.org", From: "noreply@example.org", FromName: "Tech Visit"})

	raw := string(m.Build(Message{
		To:      "ann@example.org",
		ToName:  "Ann",
		Subject: "请求 #12 状态更新",
		Body:    "hello",
	}, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)))

	for _, want := range []string{
		"From: \"Tech Visit\" <noreply@example.org>\r\n",
		"To: \"Ann\" <ann@example.org>\r\n",
		"Subject: =?utf-8?q?",
		"Content-Type: text/plain; charset=UTF-8\r\n",
		"\r\n\r\nhello",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("邮件原文缺少 %q\n%s", want, raw)
		}
	}
}

func TestSend_NotConfigured(t *testing.T) {
	m := New(&config.MailConfig{})
	err := m.Send(context.Background(), Message{To: "a@example.org"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("期望 ErrNotConfigured，实际: %v", err)
	}
}
