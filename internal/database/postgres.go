package database

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/labeldesk/backend/internal/config"
	_ "github.com/lib/pq"
)

// Connect opens the Postgres pool and verifies it with a ping.
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	slog.Info("database connection established", "host", cfg.Host, "name", cfg.Name)
	return db, nil
}
