package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

const (
	maxConnectRetries = 10
	connectRetryDelay = 3 * time.Second
)

// Connect opens a pool for dbURL and waits until Postgres answers a ping.
func Connect(ctx context.Context, dbURL string, logger *zap.Logger) (*sql.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("database url is empty")
	}

	// sql.Open only prepares the pool
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection (driver error): %w", err)
	}

	var pingErr error
	for i := 1; i <= maxConnectRetries; i++ {
		if pingErr = db.PingContext(ctx); pingErr == nil {
			return db, nil
		}
		logger.Warn("database not ready",
			zap.Int("attempt", i),
			zap.Int("max_attempts", maxConnectRetries),
			zap.Error(pingErr))

		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(connectRetryDelay):
		}
	}

	db.Close()
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxConnectRetries, pingErr)
}

// Migrate applies the schema in one transaction. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return tx.Commit()
}
