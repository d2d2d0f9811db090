package store

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the schema up to the newest embedded migration and returns
// the resulting schema version.
func Migrate(ctx context.Context, db *sql.DB) (int64, error) {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, errors.Wrap(err, "migration dialect")
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return 0, errors.Wrap(err, "migrating database")
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	return version, errors.Wrap(err, "read schema version")
}
