// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"marketplace-workers/internal/common/config"
)

const pingTimeout = 5 * time.Second

// OpenPostgres returns a pooled handle to the bids database once the server
// has answered a ping.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := preparePool(ctx, db, cfg); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func preparePool(ctx context.Context, db *sql.DB, cfg config.PostgresConfig) error {
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres %s:%d unreachable: %w", cfg.Host, cfg.Port, err)
	}
	return nil
}
