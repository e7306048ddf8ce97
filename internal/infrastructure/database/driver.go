package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/eslsoft/storyquest/internal/infrastructure/config"
)

// NewEntDriver opens the configured database behind an ent SQL driver.
func NewEntDriver(cfg *config.Config) (*entsql.Driver, func(), error) {
	return Open(cfg.DatabaseDriver(), cfg.DatabaseURL())
}

// Open connects with a database/sql driver name and DSN.
func Open(driver, dsn string) (*entsql.Driver, func(), error) {
	switch driver {
	case "postgres", "pgx":
		return openPostgres(driver, dsn)
	case "sqlite3":
		return openSQLite(dsn)
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func openPostgres(driver, dsn string) (*entsql.Driver, func(), error) {
	rawDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sql db: %w", err)
	}
	rawDB.SetMaxOpenConns(20)
	rawDB.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rawDB.PingContext(ctx); err != nil {
		rawDB.Close()
		return nil, nil, fmt.Errorf("ping sql db: %w", err)
	}

	drv := entsql.OpenDB(dialect.Postgres, rawDB)
	return drv, func() { _ = drv.Close() }, nil
}

func openSQLite(dsn string) (*entsql.Driver, func(), error) {
	rawDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite db: %w", err)
	}
	rawDB.SetMaxOpenConns(1)
	rawDB.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rawDB.PingContext(ctx); err != nil {
		rawDB.Close()
		return nil, nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := rawDB.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		rawDB.Close()
		return nil, nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, rawDB)
	return drv, func() { _ = drv.Close() }, nil
}
