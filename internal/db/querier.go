package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the slice of pgx used by the stores. *pgxpool.Pool and
// pgxmock pools both satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IsNoRows reports whether err means the queried row does not exist.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

const foreignKeyViolation = "23503"

// IsForeignKeyViolation reports whether err is Postgres rejecting a row
// that references a missing parent.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

var ErrUnavailable = errors.New("database unavailable")

// Offline stands in for the pool when Postgres could not be reached at
// startup. Every call fails with ErrUnavailable.
type Offline struct{}

func (Offline) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, ErrUnavailable
}

func (Offline) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, ErrUnavailable
}

func (Offline) QueryRow(context.Context, string, ...any) pgx.Row {
	return offlineRow{}
}

type offlineRow struct{}

func (offlineRow) Scan(...any) error { return ErrUnavailable }
