package registry

import (
	"log/slog"

	"github.com/fluxion-dev/fluxion/pkg/handlers/condition"
	"github.com/fluxion-dev/fluxion/pkg/handlers/email"
	"github.com/fluxion-dev/fluxion/pkg/handlers/httprequest"
	"github.com/fluxion-dev/fluxion/pkg/handlers/logmsg"
	"github.com/fluxion-dev/fluxion/pkg/handlers/transform"
	"github.com/fluxion-dev/fluxion/pkg/handlers/trigger"
	"github.com/fluxion-dev/fluxion/pkg/protocol"
)

// NewDefaultRegistry creates a registry with every built-in node type wired
// to the given collaborators.
func NewDefaultRegistry(logger *slog.Logger, deps protocol.Dependencies) *Registry {
	r := NewRegistry(logger)

	r.Register(trigger.NewManualFactory())
	r.Register(trigger.NewWebhookFactory())
	r.Register(trigger.NewScheduleFactory())

	r.Register(condition.NewFactory())
	r.Register(transform.NewFactory())

	r.Register(httprequest.NewFactory(deps.HTTPClient))
	r.Register(email.NewFactory(deps.Mailer))
	r.Register(logmsg.NewFactory())

	return r
}
