package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/swa/agilemetrics/internal/config"
)

// Supported database/sql driver names
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

/* PoolConfig controls the connection pool */
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

/* Open connects to the configured data source and pings it */
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	return OpenDSN(ctx, cfg.Driver, dsn, PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, cfg.ConnectTimeout)
}

/* OpenDSN opens driver with dsn, applies the pool settings and pings within timeout */
func OpenDSN(ctx context.Context, driver, dsn string, pool PoolConfig, timeout time.Duration) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	case "":
		driver = DriverPostgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if pool.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return conn, nil
}
