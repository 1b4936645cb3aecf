package store

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"
	"path"
	"strings"

	"github.com/pkg/errors"
)

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the full schema applied to fresh installations.
const LatestSchemaFileName = "LATEST.sql"

// Migrate brings the database schema up to date. A fresh database gets the
// full latest schema; an initialized one is left untouched (the schema has a
// single version so far).
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return nil
	}

	filePath := path.Join("migration", s.profile.Driver, LatestSchemaFileName)
	buf, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read schema file %s", filePath)
	}

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := s.execute(ctx, tx, string(buf)); err != nil {
		return errors.Wrapf(err, "failed to apply schema %s", filePath)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit schema")
	}

	slog.Info("database schema initialized", slog.String("driver", s.profile.Driver))
	return nil
}

// execute runs a schema file within a transaction. PostgreSQL does not accept
// multiple statements in a single ExecContext call, so statements are split
// and executed one by one there.
func (s *Store) execute(ctx context.Context, tx *sql.Tx, stmts string) error {
	if s.profile.Driver != "postgres" {
		if _, err := tx.ExecContext(ctx, stmts); err != nil {
			return errors.Wrap(err, "failed to execute statement")
		}
		return nil
	}

	for _, stmt := range strings.Split(stmts, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement: %s", stmt)
		}
	}
	return nil
}
