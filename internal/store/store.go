// Package store persists users and mind maps in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/starford/mindmaps/internal/apperr"
	"github.com/starford/mindmaps/internal/dbx"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

//go:embed migrations
var migrations embed.FS

// goose keeps its base FS and dialect in package state.
var migrateMu sync.Mutex

// DB wraps a sql.DB together with the SQL dialect it speaks.
type DB struct {
	conn   *sql.DB
	driver string
}

// Open connects to the database and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := migrate(ctx, conn, driver); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn, driver: driver}, nil
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
}

func migrate(ctx context.Context, conn *sql.DB, driver string) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("store: migrations dialect: %w", err)
	}
	if err := goose.UpContext(ctx, conn, "migrations/"+driver); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	slog.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "migrations"))
}

func (gooseLogger) Fatalf(format string, v ...any) {
	slog.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "migrations"))
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Users returns the user repository bound to the connection pool.
func (db *DB) Users() *Users {
	return NewUsers(db.conn, db.driver)
}

// Maps returns the mind-map repository bound to the connection pool.
func (db *DB) Maps() *Maps {
	return NewMaps(db.conn, db.driver)
}

// WithTx runs fn with repositories sharing one transaction.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context, users *Users, maps *Maps) error) error {
	return dbx.WithTx(ctx, db.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewUsers(tx, db.driver), NewMaps(tx, db.driver))
	})
}

// querier issues queries written with '?' placeholders, rewriting them for
// drivers that expect numbered ones.
type querier struct {
	q      dbx.DBTX
	driver string
}

func (r querier) rebind(query string) string {
	if r.driver != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r querier) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, r.rebind(query), args...)
}

func (r querier) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, r.rebind(query), args...)
}

func (r querier) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.q.QueryRowContext(ctx, r.rebind(query), args...)
}

// execOne runs a write that must touch exactly one row.
func (r querier) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.exec(ctx, query, args...)
	if err != nil {
		return wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: %s: %w", op, err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// wrap maps driver errors onto apperr kinds.
func wrap(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("store: %s: %w", op, apperr.ErrAlreadyExists)
	default:
		return fmt.Errorf("store: %s: %w", op, err)
	}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// searchKey folds s for the *_key search columns.
func searchKey(s string) string {
	return strings.ToLower(s)
}

// textKey folds indexed text, which is stored entity-escaped.
func textKey(s string) string {
	return searchKey(html.UnescapeString(s))
}

// likePattern builds a substring pattern over searchKey values for
// LIKE ... ESCAPE '\'.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + searchKey(r.Replace(q)) + "%"
}
