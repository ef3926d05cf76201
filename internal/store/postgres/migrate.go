package postgres

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const (
	migrationsTable     = "vaxbook_migrations"
	migrationLocksTable = "vaxbook_migration_locks"
)

func discoverMigrations(fsys fs.FS) (*migrate.Migrations, error) {
	ms := migrate.NewMigrations()
	if err := ms.Discover(fsys); err != nil {
		return nil, fmt.Errorf("discover migrations: %w", err)
	}
	return ms, nil
}

// Migrate applies the pending migrations found in fsys and returns their names.
// Concurrent callers are rejected by the migrator's lock table.
func Migrate(ctx context.Context, db *bun.DB, fsys fs.FS) (applied []string, err error) {
	ms, err := discoverMigrations(fsys)
	if err != nil {
		return nil, err
	}

	m := migrate.NewMigrator(db, ms,
		migrate.WithTableName(migrationsTable),
		migrate.WithLocksTableName(migrationLocksTable),
		migrate.WithMarkAppliedOnSuccess(true),
	)
	if err := m.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Lock(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if uErr := m.Unlock(ctx); uErr != nil && err == nil {
			err = fmt.Errorf("unlock migrations: %w", uErr)
		}
	}()

	group, err := m.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	for _, mig := range group.Migrations {
		applied = append(applied, mig.String())
	}
	return applied, nil
}
