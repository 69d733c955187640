package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fluxion-dev/fluxion/pkg/persistence"
	"github.com/fluxion-dev/fluxion/pkg/persistence/file"
	"github.com/fluxion-dev/fluxion/pkg/persistence/postgresql"
)

// NewPersistence creates the persistence backend for the given database URL.
// postgres:// URLs select PostgreSQL; anything else is treated as a file root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL persistence: %w", err))
		}

		return p
	default:
		p, err := file.NewPersistence(databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create file persistence: %w", err))
		}

		return p
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
