package db

import (
	"context"
	"database/sql"
)

// DBTX abstracts the query surface shared by *sql.DB and *sql.Tx. Ledger
// repositories take a DBTX so the same code serves plain reads and the
// conditional updates that run inside a unit of work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Both handle types must keep satisfying DBTX.
var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)
