package migrations

import (
	"context"
	"fmt"

	"revora-ledger/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded Postgres schema. pgx runs
// each file as one multi-statement exec.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	scripts, err := sqlScripts(postgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, s := range scripts {
		if _, err := pool.Exec(ctx, s.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", s.name, err)
		}
	}
	return nil
}
