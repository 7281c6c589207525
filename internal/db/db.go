package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

type DB struct {
	SQL *sql.DB
	// Dialect is "postgres" or "sqlite".
	Dialect string
}

type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// Open connects to a PostgreSQL (driver "postgres") or SQLite (driver
// "sqlite") database, pings it and applies the embedded migrations.
func Open(ctx context.Context, driver, databaseURL string, pool Pool) (*DB, error) {
	var (
		sqlDriver string
		dsn       = databaseURL
		dialect   string
	)
	switch driver {
	case "postgres":
		sqlDriver, dialect = "pgx", "postgres"
	case "sqlite":
		sqlDriver, dialect = "sqlite", "sqlite3"
		dsn = sqliteDSN(databaseURL)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if driver == "sqlite" && databaseURL == ":memory:" {
		// every connection to :memory: is a separate database
		pool.MaxOpen = 1
	}
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)
	db.SetConnMaxIdleTime(pool.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := migrate(ctx, db, dialect, driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{SQL: db, Dialect: driver}, nil
}

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

// sqliteDSN appends the connection pragmas, keeping any query the URL
// already carries.
func sqliteDSN(databaseURL string) string {
	if strings.Contains(databaseURL, "?") {
		return databaseURL + "&" + sqlitePragmas
	}
	return databaseURL + "?" + sqlitePragmas
}

func migrate(ctx context.Context, db *sql.DB, dialect, dir string) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations/"+dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
