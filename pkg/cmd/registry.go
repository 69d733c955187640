package cmd

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fluxion-dev/fluxion/pkg/mailer"
	"github.com/fluxion-dev/fluxion/pkg/protocol"
	"github.com/fluxion-dev/fluxion/pkg/registry"
)

const defaultHTTPTimeout = 30 * time.Second

// NewRegistry builds the handler registry with the default node types wired
// to real collaborators. The SMTP relay comes from SMTP_ADDR/SMTP_FROM (plus
// optional SMTP_USERNAME/SMTP_PASSWORD); without one, email nodes log
// instead of sending.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	return registry.NewDefaultRegistry(logger, protocol.Dependencies{
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
		Mailer:     newMailer(logger),
	})
}

func newMailer(logger *slog.Logger) protocol.Mailer {
	addr := os.Getenv("SMTP_ADDR")
	if addr == "" {
		return mailer.NewLogMailer(logger)
	}

	return mailer.NewSMTPMailer(
		addr,
		os.Getenv("SMTP_FROM"),
		os.Getenv("SMTP_USERNAME"),
		os.Getenv("SMTP_PASSWORD"),
	)
}
