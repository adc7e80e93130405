// Package notify delivers out-of-band messages such as admin verification codes and
// contact-form alerts.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"portfolio-api/internal/observability"
)

var ErrInvalidRecipient = errors.New("invalid recipient")

// DefaultSendTimeout bounds a send whose context carries no deadline.
const DefaultSendTimeout = 15 * time.Second

type SMTPNotifier struct {
	dialer  *gomail.Dialer
	from    string
	timeout time.Duration
	send    func(m *gomail.Message) error
}

func NewSMTPNotifier(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) *SMTPNotifier {
	n := &SMTPNotifier{
		dialer:  gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword),
		from:    fromEmail,
		timeout: DefaultSendTimeout,
	}
	n.send = func(m *gomail.Message) error { return n.dialer.DialAndSend(m) }
	return n
}

// Send returns once the message is handed to the server or ctx is done. gomail takes no
// context, so a send abandoned on timeout finishes in the background.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := n.buildMessage(to, subject, body)
	if err != nil {
		return err
	}

	if _, ok := ctx.Deadline(); !ok && n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- n.send(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}
}

func (n *SMTPNotifier) buildMessage(to, subject, body string) (*gomail.Message, error) {
	to = strings.TrimSpace(to)
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return nil, ErrInvalidRecipient
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	m.AddAlternative("text/html", "<p>"+strings.ReplaceAll(html.EscapeString(body), "\n", "<br>")+"</p>")

	return m, nil
}

// LogNotifier writes messages to the structured log instead of sending them. Used in
// development when no SMTP server is configured.
type LogNotifier struct {
	logger *observability.Logger
}

func NewLogNotifier(logger *observability.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return ErrInvalidRecipient
	}
	n.logger.Info("notification_logged", map[string]any{
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	return nil
}
