package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/mediagate/internal/client/migrations"
	"github.com/dmitrijs2005/mediagate/internal/client/repositories/journal"
	"github.com/dmitrijs2005/mediagate/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/mediagate/internal/dbx"
	"github.com/pressly/goose/v3"
)

// Repositories groups the journal stores backed by one database.
type Repositories struct {
	DB       *sql.DB
	Journal  journal.Repository
	Metadata metadata.Repository
}

// Close releases the underlying database.
func (r *Repositories) Close() error {
	return r.DB.Close()
}

// RunMigrations brings db up to the latest embedded schema version.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InitDatabase opens (creating if needed) the journal at dsn and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := dbx.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repositories{
		DB:       db,
		Journal:  journal.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
	}, nil
}
