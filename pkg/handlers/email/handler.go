// Package email provides the email action handler. Delivery goes through an
// injected Mailer so the transport (SMTP, API provider, test double) stays
// out of the handler.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

const Subtype = "email"

// Handler sends a single message per node execution.
type Handler struct {
	mailer protocol.Mailer
}

// NewHandler creates an email handler using the given mailer.
func NewHandler(mailer protocol.Mailer) *Handler {
	return &Handler{mailer: mailer}
}

// Execute sends the message and returns {to, subject, sent_at}.
func (h *Handler) Execute(ctx context.Context, req protocol.Request) (map[string]any, error) {
	to, subject, body, err := parseConfig(req.Config)
	if err != nil {
		return nil, protocol.NewActionError(Subtype, err)
	}

	if err := h.mailer.Send(ctx, to, subject, body); err != nil {
		return nil, protocol.NewActionError(Subtype, fmt.Errorf("send to %s: %w", to, err))
	}

	req.Logger.Info("email sent", "to", to, "subject", subject)

	return map[string]any{
		"to":      to,
		"subject": subject,
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func parseConfig(raw map[string]any) (to, subject, body string, err error) {
	to, ok := raw["to"].(string)
	if !ok || strings.TrimSpace(to) == "" {
		return "", "", "", errors.New("missing required field 'to'")
	}

	subject, ok = raw["subject"].(string)
	if !ok || subject == "" {
		return "", "", "", errors.New("missing required field 'subject'")
	}

	// Body is optional; an empty notification is still a notification.
	body, _ = raw["body"].(string)

	return to, subject, body, nil
}
