package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"plaksha/ocr-api/config"

	"gopkg.in/gomail.v2"
)

// Sender is the part of gomail's dialer the mailer needs
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	from   string
	dialer Sender
}

func NewMailer(cfg config.Mail) *Mailer {
	return &Mailer{
		from:   cfg.Sender,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// NewMailerWithSender is used by tests to capture outgoing messages
func NewMailerWithSender(from string, s Sender) *Mailer {
	return &Mailer{from: from, dialer: s}
}

func (m *Mailer) SendVerificationCode(ctx context.Context, to, name, code string, expiresAt time.Time) error {
	if to == m.from {
		return errors.New("invalid email address")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildVerificationMessage(m.from, to, name, code, expiresAt)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail, %w", err)
	}

	return nil
}

func buildVerificationMessage(from, to, name, code string, expiresAt time.Time) *gomail.Message {
	msg := gomail.NewMessage()

	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your verification code")

	greeting := "Hi"
	if name != "" {
		greeting += " " + name
	}

	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())
	if minutes <= 0 {
		minutes = int(time.Hour.Minutes())
	}

	msg.SetBody("text/plain", fmt.Sprintf("%s,\n\nYour verification code is %s\n\nThis code will expire in %d minutes.", greeting, code, minutes))
	msg.AddAlternative("text/html", fmt.Sprintf("<p>%s,</p><p>Your verification code is <b>%s</b></p><p>This code will expire in %d minutes.</p>",
		html.EscapeString(greeting), code, minutes))

	return msg
}
