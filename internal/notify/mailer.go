package notify

import (
	"context"
	"errors"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/geethasandesh/articket/internal/config"
)

// Mailer sends plaintext notification email over SMTP.
type Mailer struct {
	cfg    config.NotifyConfig
	dialer *gomail.Dialer
}

// NewMailer builds the mailer from notify configuration.
func NewMailer(cfg config.NotifyConfig) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

// Enabled reports whether sending is configured.
func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Enabled
}

// Send dispatches one message to all recipients, bounded by the configured
// timeout and the context deadline, whichever is sooner.
func (m *Mailer) Send(ctx context.Context, to []string, subject, body string) error {
	if !m.Enabled() {
		return nil
	}
	if len(to) == 0 {
		return errors.New("no recipients")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	wait := m.cfg.Timeout()
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until > 0 && until < wait {
			wait = until
		}
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}
