// Package main provides the Fluxion API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/fluxion-dev/fluxion/pkg/eventbus"
	"github.com/fluxion-dev/fluxion/pkg/orchestrator"
	"github.com/fluxion-dev/fluxion/pkg/persistence"
	"github.com/fluxion-dev/fluxion/pkg/registry"
	"github.com/fluxion-dev/fluxion/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	registry    *registry.Registry
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	registry *registry.Registry,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		registry:    registry,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) Start(port int) error {
	orch := orchestrator.NewOrchestrator(a.persistence, a.eventBus, a.registry, a.logger)
	handlers := web.NewAPIHandlers(orch, a.persistence, a.registry, a.validate)

	return web.NewApp(handlers).Listen(":" + strconv.Itoa(port))
}
