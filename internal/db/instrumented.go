package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fr0stylo/abacate/internal/db/queries"
	"github.com/fr0stylo/abacate/internal/observability"
)

// instrumentedDBTX traces and times every statement sqlc issues, keyed by
// the "-- name:" annotation of the query.
type instrumentedDBTX struct {
	inner   queries.DBTX
	metrics *queryMetrics
}

func newInstrumentedDBTX(inner queries.DBTX, metrics *queryMetrics) queries.DBTX {
	if metrics == nil {
		return inner
	}
	return &instrumentedDBTX{inner: inner, metrics: metrics}
}

func (d *instrumentedDBTX) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, finish := d.begin(ctx, query, "exec")
	result, err := d.inner.ExecContext(ctx, query, args...)
	finish(err)
	return result, err
}

func (d *instrumentedDBTX) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	ctx, finish := d.begin(ctx, query, "prepare")
	stmt, err := d.inner.PrepareContext(ctx, query)
	finish(err)
	return stmt, err
}

func (d *instrumentedDBTX) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	ctx, finish := d.begin(ctx, query, "query")
	rows, err := d.inner.QueryContext(ctx, query, args...)
	finish(err)
	return rows, err
}

func (d *instrumentedDBTX) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	ctx, finish := d.begin(ctx, query, "query_row")
	row := d.inner.QueryRowContext(ctx, query, args...)
	// ErrNoRows only surfaces on Scan and is not a query failure.
	finish(row.Err())
	return row
}

func (d *instrumentedDBTX) begin(ctx context.Context, query, operation string) (context.Context, func(error)) {
	name := queryName(query)
	ctx, span := observability.StartDBSpan(ctx, name, operation)
	started := time.Now()
	return ctx, func(err error) {
		d.metrics.observe(ctx, name, time.Since(started), err)
		span.RecordError(err)
		span.End()
	}
}

func queryName(query string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(query), "\n")
	rest, ok := strings.CutPrefix(strings.TrimSpace(first), "-- name:")
	if !ok {
		return "unknown"
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "unknown"
	}
	return fields[0]
}
