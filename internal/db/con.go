package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	// SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/fr0stylo/abacate/internal/db/queries"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	driverName = "sqlite"
	// DefaultPath is used when no path is configured. The file is DefaultPath + ".sqlite".
	DefaultPath = "data/abacate"
)

// Database is the SQLite handle shared by the order, product and webhook
// audit stores. Embedded queries run outside a transaction.
type Database struct {
	*queries.Queries
	db      *sql.DB
	metrics *queryMetrics
}

// New opens path + ".sqlite", creating the parent directory, and applies
// pending migrations. openParams are key=value pairs that override the
// default DSN parameters.
func New(path string, openParams ...string) (*Database, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open(driverName, sqliteDSN(path, openParams...))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := migrate(context.Background(), conn); err != nil {
		return nil, errors.Join(err, conn.Close())
	}

	metrics := newQueryMetrics()
	return &Database{
		db:      conn,
		Queries: queries.New(newInstrumentedDBTX(conn, metrics)),
		metrics: metrics,
	}, nil
}

func migrate(ctx context.Context, conn *sql.DB) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// sqliteDSN builds the modernc DSN. Transactions begin IMMEDIATE so the
// read-check-write sequence in an order change holds the write lock from
// its first statement; concurrent writers wait on busy_timeout.
func sqliteDSN(path string, openParams ...string) string {
	values := url.Values{}
	values.Add("_pragma", "foreign_keys(ON)")
	values.Add("_pragma", "journal_mode(WAL)")
	values.Add("_pragma", "synchronous(NORMAL)")
	values.Add("_pragma", "busy_timeout(5000)")
	values.Add("_pragma", "temp_store(MEMORY)")
	values.Set("_txlock", "immediate")

	for _, param := range openParams {
		part := strings.TrimSpace(strings.TrimPrefix(param, "&"))
		key, value, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		if key == "_pragma" {
			values.Add(key, strings.TrimSpace(value))
			continue
		}
		values.Set(key, strings.TrimSpace(value))
	}

	return fmt.Sprintf("file:%s.sqlite?%s", path, values.Encode())
}

// Close closes the underlying database connection.
func (c *Database) Close() error {
	return c.db.Close()
}
