package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"tech-visit/backend/config"
)

// ErrNotConfigured SMTP 未配置
var ErrNotConfigured = errors.New("SMTP 未配置")

// Message 待发送邮件
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string // 纯文本
}

// Mailer SMTP 发送器（单一服务商，无重试队列）
type Mailer struct {
	cfg *config.MailConfig
}

// New 创建 Mailer
func New(cfg *config.MailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send 发送一封邮件；连接与会话受 ctx 截止时间约束
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled() {
		return ErrNotConfigured
	}

	addr := net.JoinHostPort(m.cfg.SMTPHost, strconv.Itoa(m.cfg.SMTPPort))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("连接 SMTP 服务器失败: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.cfg.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("建立 SMTP 会话失败: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.cfg.SMTPHost}); err != nil {
			return fmt.Errorf("STARTTLS 失败: %w", err)
		}
	}
	if m.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)); err != nil {
			return fmt.Errorf("SMTP 认证失败: %w", err)
		}
	}

	if err := c.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("MAIL FROM 失败: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("RCPT TO 失败: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA 失败: %w", err)
	}
	if _, err := w.Write(m.Build(msg, time.Now())); err != nil {
		w.Close()
		return fmt.Errorf("写入邮件内容失败: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("提交邮件失败: %w", err)
	}

	return c.Quit()
}

// Build 生成 RFC 5322 邮件原文
func (m *Mailer) Build(msg Message, now time.Time) []byte {
	from := mail.Address{Name: m.cfg.FromName, Address: m.cfg.From}
	to := mail.Address{Name: msg.ToName, Address: msg.To}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", to.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.Body)
	return buf.Bytes()
}
