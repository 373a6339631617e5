package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "embed"
)

//go:embed schema.sql
var Schema string

//go:embed schema_postgres.sql
var SchemaPostgres string

type Dialect int

const (
	DIALECT_SQLITE Dialect = iota
	DIALECT_POSTGRES
)

func (d Dialect) Schema() string {
	if d == DIALECT_POSTGRES {
		return SchemaPostgres
	}
	return Schema
}

// Migrate creates every table that does not exist yet, it is safe to run on
// every start.
func Migrate(ctx context.Context, database *sql.DB, dialect Dialect) error {
	for _, stmt := range strings.Split(dialect.Schema(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		_, err := database.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
