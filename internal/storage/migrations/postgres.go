package migrations

import (
	"context"
	"fmt"

	"copytrader-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order and
// returns the names of the applied files. Migrations are idempotent.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(files))
	for _, m := range files {
		// Simple protocol (no args) accepts several statements per Exec.
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		applied = append(applied, m.name)
	}

	return applied, nil
}
