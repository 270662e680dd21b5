package auth

import (
	"context"
	"database/sql"
	"io/fs"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// SetupPersistence opens the record store, registers models and migrations,
// and brings the schema up to date. The returned handle feeds
// NewRepositoryManager.
func SetupPersistence(ctx context.Context, cfg persistence.Config, dsn string) (*bun.DB, error) {
	db, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	persistence.RegisterModel((*User)(nil))
	persistence.RegisterModel((*Invite)(nil))
	persistence.RegisterModel((*Organization)(nil))

	dialect := sqlitedialect.New()
	client, err := persistence.New(cfg, db, dialect)
	if err != nil {
		return nil, err
	}

	migrations, err := fs.Sub(GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}

	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return nil, err
	}

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	return client.DB(), nil
}
