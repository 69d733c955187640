// Package mailer provides Mailer implementations for the email action
// handler. The SMTP mailer covers real delivery; the log mailer is the
// fallback for environments without an SMTP relay.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// SMTPMailer delivers mail through a single SMTP relay.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPMailer creates a mailer for the relay at addr (host:port). Username
// may be empty for relays that accept unauthenticated senders.
func NewSMTPMailer(addr, from, username, password string) *SMTPMailer {
	m := &SMTPMailer{addr: addr, from: from}

	if username != "" {
		host, _, _ := strings.Cut(addr, ":")
		m.auth = smtp.PlainAuth("", username, password, host)
	}

	return m
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.from, to, subject, body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	return nil
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "mailer")}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.InfoContext(ctx, "mail delivery skipped, no SMTP relay configured",
		"to", to, "subject", subject, "body_bytes", len(body))

	return nil
}
