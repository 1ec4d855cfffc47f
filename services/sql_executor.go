package services

import (
	"context"
	"database/sql"

	"floordesign/database"
)

// SQLExecutor decouples services from *sql.DB and from the driver's
// placeholder style. Queries are written with '?' and rebound on the way out.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	// Rebind is for statements run on a *sql.Tx obtained from BeginTx.
	Rebind(query string) string
}

type sqlDBExecutor struct {
	db     *sql.DB
	driver string
}

// NewSQLExecutor wraps db for the given driver ("sqlite", "mysql", "postgres").
func NewSQLExecutor(db *sql.DB, driver string) SQLExecutor {
	return &sqlDBExecutor{db: db, driver: driver}
}

func (s *sqlDBExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.Rebind(query), args...)
}

func (s *sqlDBExecutor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.Rebind(query), args...)
}

func (s *sqlDBExecutor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.Rebind(query), args...)
}

func (s *sqlDBExecutor) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, opts)
}

func (s *sqlDBExecutor) Rebind(query string) string {
	return database.Rebind(s.driver, query)
}
