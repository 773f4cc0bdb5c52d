package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"
)

// SQLDB is the database interface used by all stores.
// Both *sql.DB and *TimedDB satisfy it.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var (
	_ SQLDB = (*sql.DB)(nil)
	_ SQLDB = (*TimedDB)(nil)
)

// DefaultSlowQuery is the default threshold for slow query warnings.
const DefaultSlowQuery = 50 * time.Millisecond

// maxLoggedQuery caps the SQL text attached to a slow_query record.
const maxLoggedQuery = 200

// TimedDB wraps a *sql.DB and logs every statement's duration.
// Records are logged with the caller's context so request-scoped log handlers
// can attach the request id.
type TimedDB struct {
	db        *sql.DB
	threshold time.Duration
}

// NewTimedDB wraps db with timing instrumentation.
// PRE: db is an open connection pool
// POST: Statements at or over threshold log slow_query at WARN (DefaultSlowQuery if threshold <= 0)
func NewTimedDB(db *sql.DB, threshold time.Duration) *TimedDB {
	if threshold <= 0 {
		threshold = DefaultSlowQuery
	}
	return &TimedDB{db: db, threshold: threshold}
}

// observe logs one completed statement.
func (t *TimedDB) observe(ctx context.Context, op, query string, nargs int, start time.Time, err error) {
	elapsed := time.Since(start)
	attrs := []slog.Attr{
		slog.String("op", op),
		slog.Float64("duration_ms", float64(elapsed.Microseconds())/1000.0),
	}
	if err != nil && err != sql.ErrNoRows {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	if elapsed < t.threshold {
		slog.LogAttrs(ctx, slog.LevelDebug, "query", attrs...)
		return
	}
	attrs = append(attrs, slog.String("query", compactQuery(query)), slog.Int("args", nargs))
	slog.LogAttrs(ctx, slog.LevelWarn, "slow_query", attrs...)
}

// compactQuery folds whitespace so multi-line SQL fits on one log line.
func compactQuery(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	if len(q) > maxLoggedQuery {
		q = q[:maxLoggedQuery] + "..."
	}
	return q
}

// ExecContext runs a statement and logs its duration.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := t.db.ExecContext(ctx, query, args...)
	t.observe(ctx, "exec", query, len(args), start, err)
	return res, err
}

// QueryContext runs a query and logs the time to the first result set.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.observe(ctx, "query", query, len(args), start, err)
	return rows, err
}

// QueryRowContext runs a single-row query and logs its duration.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.observe(ctx, "query_row", query, len(args), start, row.Err())
	return row
}

// BeginTx starts a transaction. Statements run on the returned *sql.Tx are not timed.
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.observe(ctx, "begin", "BEGIN", 0, start, err)
	return tx, err
}
