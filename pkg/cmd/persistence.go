package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jobdeck/automata/pkg/persistence"
	"github.com/jobdeck/automata/pkg/persistence/file"
	"github.com/jobdeck/automata/pkg/persistence/postgresql"
)

// NewPersistence picks the storage backend from the database URL scheme.
// Postgres in production, a plain directory everywhere else.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		persist, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgres persistence: %w", err))
		}

		return persist
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
