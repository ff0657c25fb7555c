// internal/infrastructure/persistence/postgres/migrator.go
package postgres

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"smart-money-screener/pkg/logger"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migration - одна миграция из файла 001_name.sql
type Migration struct {
	ID          int
	Name        string
	Description string
	SQL         string
	Checksum    string
}

// MigrationRecord - запись о примененной миграции
type MigrationRecord struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	Checksum  string    `db:"checksum"`
	AppliedAt time.Time `db:"applied_at"`
}

// Migrator управляет миграциями базы данных
type Migrator struct {
	db         *sqlx.DB
	migrations []Migration
}

// NewMigrator создает мигратор со встроенными миграциями
func NewMigrator(db *sqlx.DB) (*Migrator, error) {
	list, err := LoadMigrations(embeddedMigrations, "migrations")
	if err != nil {
		return nil, err
	}
	return &Migrator{db: db, migrations: list}, nil
}

// LoadMigrations читает *.sql из fsys/dir, упорядочивая по ID
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var out []Migration
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		id, name, err := parseMigrationFilename(e.Name())
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate migration id %d: %s and %s", id, prev, e.Name())
		}
		seen[id] = e.Name()

		content, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		sql := string(content)
		out = append(out, Migration{
			ID:          id,
			Name:        name,
			Description: extractDescription(sql),
			SQL:         sql,
			Checksum:    calculateChecksum(sql),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Migrate применяет новые миграции, каждую в своей транзакции
func (m *Migrator) Migrate(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id         INTEGER PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		checksum   VARCHAR(64)  NOT NULL,
		applied_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var records []MigrationRecord
	if err := m.db.SelectContext(ctx, &records,
		`SELECT id, name, checksum, applied_at FROM schema_migrations`); err != nil {
		return fmt.Errorf("load applied migrations: %w", err)
	}

	pending, err := pendingMigrations(m.migrations, records)
	if err != nil {
		return err
	}

	for _, mg := range pending {
		if err := m.apply(ctx, mg); err != nil {
			return fmt.Errorf("apply migration %03d_%s: %w", mg.ID, mg.Name, err)
		}
		logger.Info("📄 [Migrator] Применена миграция %03d: %s", mg.ID, mg.Description)
	}
	if len(pending) == 0 {
		logger.Info("✅ [Migrator] Схема актуальна (%d миграций)", len(m.migrations))
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, mg Migration) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mg.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (id, name, checksum) VALUES ($1, $2, $3)`,
		mg.ID, mg.Name, mg.Checksum); err != nil {
		return err
	}
	return tx.Commit()
}

// pendingMigrations - неприменённые миграции; расхождение контрольной суммы - ошибка
func pendingMigrations(all []Migration, applied []MigrationRecord) ([]Migration, error) {
	done := make(map[int]MigrationRecord, len(applied))
	for _, r := range applied {
		done[r.ID] = r
	}

	var out []Migration
	for _, mg := range all {
		rec, ok := done[mg.ID]
		if !ok {
			out = append(out, mg)
			continue
		}
		if rec.Checksum != mg.Checksum {
			return nil, fmt.Errorf("checksum mismatch for migration %03d_%s", mg.ID, mg.Name)
		}
	}
	return out, nil
}

// parseMigrationFilename: 001_create_signals.sql → 1, "create signals"
func parseMigrationFilename(filename string) (int, string, error) {
	base := strings.TrimSuffix(filename, ".sql")
	parts := strings.SplitN(base, "_", 2)
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", fmt.Errorf("invalid migration filename format: %s (expected: 001_name.sql)", filename)
	}

	var id int
	if _, err := fmt.Sscanf(parts[0], "%d", &id); err != nil || id <= 0 {
		return 0, "", fmt.Errorf("invalid migration ID in filename: %s", filename)
	}
	return id, strings.ReplaceAll(parts[1], "_", " "), nil
}

func extractDescription(sql string) string {
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "-- Description:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "-- Description:"))
		}
	}
	return "No description"
}

func calculateChecksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
