package database

import (
	"context"
	"database/sql"
	_ "embed"
	"strings"

	"github.com/pkg/errors"
)

//go:embed schema.sql
var schema string

// statements splits the embedded schema on its "---" separators.
func statements() []string {
	var out []string
	for _, part := range strings.Split(schema, "\n---\n") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Migrate creates any missing tables.  Every statement is idempotent, so
// it is safe to run on each start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migrate: statement %d", i+1)
		}
	}
	return nil
}
