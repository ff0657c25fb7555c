// internal/infrastructure/persistence/postgres/connection.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"smart-money-screener/internal/infrastructure/config"
	"smart-money-screener/pkg/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect открывает пул, ждет готовности базы и применяет миграции
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	r := NewRetrier(cfg)
	if err := r.Do(ctx, "ping", func() error { return db.PingContext(ctx) }); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	logger.Info("✅ [Postgres] Подключено к %s:%d/%s", cfg.Host, cfg.Port, cfg.Name)

	if cfg.EnableAutoMigrate {
		m, err := NewMigrator(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := m.Migrate(migrateCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}
	return db, nil
}

// DSN - строка подключения lib/pq
func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)
}
