package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"portfolio-api/internal/observability"
)

func TestSMTPNotifier_BuildMessage(t *testing.T) {
	n := NewSMTPNotifier("smtp.example.com", 587, "user", "pass", "noreply@example.com")

	m, err := n.buildMessage(" admin@x.com ", "Your admin verification code", "code <123456>")
	require.NoError(t, err)

	assert.Equal(t, []string{"noreply@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"admin@x.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Your admin verification code"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "code &lt;123456&gt;")
}

func TestSMTPNotifier_RejectsHeaderInjection(t *testing.T) {
	n := NewSMTPNotifier("smtp.example.com", 587, "", "", "noreply@example.com")

	_, err := n.buildMessage("admin@x.com\r\nBcc: evil@x.com", "s", "b")
	assert.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestSMTPNotifier_HonoursCancelledContext(t *testing.T) {
	n := NewSMTPNotifier("127.0.0.1", 1, "", "", "noreply@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, n.Send(ctx, "admin@x.com", "s", "b"), context.Canceled)
}

func stalledNotifier(t *testing.T) *SMTPNotifier {
	t.Helper()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	n := NewSMTPNotifier("smtp.example.com", 587, "", "", "noreply@example.com")
	n.send = func(*gomail.Message) error {
		<-release
		return nil
	}
	return n
}

func TestSMTPNotifier_StalledServerHonoursDeadline(t *testing.T) {
	n := stalledNotifier(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	started := time.Now()
	err := n.Send(ctx, "admin@x.com", "s", "b")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestSMTPNotifier_DefaultTimeoutWithoutDeadline(t *testing.T) {
	n := stalledNotifier(t)
	n.timeout = 20 * time.Millisecond

	assert.ErrorIs(t, n.Send(context.Background(), "admin@x.com", "s", "b"), context.DeadlineExceeded)
}

func TestSMTPNotifier_ReportsSendFailure(t *testing.T) {
	n := NewSMTPNotifier("smtp.example.com", 587, "", "", "noreply@example.com")
	n.send = func(*gomail.Message) error { return errors.New("535 auth failed") }

	err := n.Send(context.Background(), "admin@x.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth failed")
}

func TestLogNotifier_WritesEvent(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(observability.NewLoggerTo(&buf))

	require.NoError(t, n.Send(context.Background(), "admin@x.com", "subject", "body 123456"))
	assert.Contains(t, buf.String(), "notification_logged")
	assert.Contains(t, buf.String(), "admin@x.com")

	assert.ErrorIs(t, n.Send(context.Background(), "", "s", "b"), ErrInvalidRecipient)
}
