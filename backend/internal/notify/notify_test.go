package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tech-visit/backend/pkg/mailer"
)

func strPtr(s string) *string { return &s }

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

type fakeBot struct {
	texts []string
	delay time.Duration
	err   error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.texts = append(f.texts, m.Text)
	}
	return tgbotapi.Message{}, f.err
}

type stubNotifier struct {
	channel string
	err     error
	calls   int
}

func (s *stubNotifier) Channel() string                 { return s.channel }
func (s *stubNotifier) Recipient(c StatusChange) string { return c.Email }
func (s *stubNotifier) NotifyStatusChange(context.Context, StatusChange) error {
	s.calls++
	return s.err
}

func TestEmailNotifier_Send(t *testing.T) {
	fm := &fakeMailer{}
	n := &EmailNotifier{sender: fm}

	err := n.NotifyStatusChange(context.Background(), StatusChange{
		Email:         "ann@example.org",
		Name:          "Ann",
		RequestID:     42,
		Status:        "in_progress",
		ScheduledDate: strPtr("2025-03-10"),
		ScheduledTime: strPtr("10:00"),
	})
	require.NoError(t, err)
	require.Len(t, fm.sent, 1)

	msg := fm.sent[0]
	assert.Equal(t, "ann@example.org", msg.To)
	assert.Contains(t, msg.Subject, "#42")
	assert.Contains(t, msg.Body, "处理中")
	assert.Contains(t, msg.Body, "2025-03-10 10:00")
	assert.Equal(t, "ann@example.org", n.Recipient(StatusChange{Email: "ann@example.org"}))
}

func TestEmailNotifier_NoRecipient(t *testing.T) {
	fm := &fakeMailer{}
	n := &EmailNotifier{sender: fm}

	err := n.NotifyStatusChange(context.Background(), StatusChange{RequestID: 1, Status: "pending"})
	assert.ErrorIs(t, err, ErrNoRecipient)
	assert.Empty(t, fm.sent)
}

func TestRenderEmail_WithoutSchedule(t *testing.T) {
	body, err := RenderEmail(StatusChange{Name: "Bob", RequestID: 7, Status: "pending"})
	require.NoError(t, err)
	assert.Contains(t, body, "Bob")
	assert.Contains(t, body, "#7")
	assert.Contains(t, body, "已受理")
	assert.NotContains(t, body, "预约时间")
}

func TestTelegramNotifier_Send(t *testing.T) {
	bot := &fakeBot{}
	n := &TelegramNotifier{api: bot, chatID: -100123}

	err := n.NotifyStatusChange(context.Background(), StatusChange{RequestID: 5, Name: "Cy", Status: "in_progress"})
	require.NoError(t, err)
	require.Len(t, bot.texts, 1)
	assert.Contains(t, bot.texts[0], "#5")
	assert.Equal(t, "-100123", n.Recipient(StatusChange{}))
}

func TestTelegramNotifier_Timeout(t *testing.T) {
	bot := &fakeBot{delay: 200 * time.Millisecond}
	n := &TelegramNotifier{api: bot, chatID: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := n.NotifyStatusChange(ctx, StatusChange{RequestID: 5, Status: "pending"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(zap.NewNop())
	assert.NoError(t, n.NotifyStatusChange(context.Background(), StatusChange{RequestID: 1, Status: "pending"}))
	assert.Equal(t, "log", n.Channel())
	assert.Empty(t, n.Recipient(StatusChange{Email: "x@example.org"}))
}

func TestMulti_DeliverContinuesAfterFailure(t *testing.T) {
	boom := errors.New("smtp down")
	a := &stubNotifier{channel: "email", err: boom}
	b := &stubNotifier{channel: "log"}
	m := NewMulti(a, nil, b)

	require.Equal(t, 2, m.Len())

	results := m.Deliver(context.Background(), StatusChange{Email: "x@example.org"})
	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, boom)
	assert.Equal(t, "x@example.org", results[0].Recipient)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 1, b.calls)

	err := m.NotifyStatusChange(context.Background(), StatusChange{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "email")
}
