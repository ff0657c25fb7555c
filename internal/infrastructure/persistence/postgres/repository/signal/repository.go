// internal/infrastructure/persistence/postgres/repository/signal/repository.go
package signal_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smart-money-screener/internal/core/domain/signals"
	"smart-money-screener/internal/infrastructure/persistence/postgres"
	"smart-money-screener/internal/infrastructure/persistence/postgres/models"
	"smart-money-screener/pkg/logger"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const openStatuses = `('pending', 'active')`

// openSignalIndex - частичный уникальный индекс из 001_create_signals.sql
const openSignalIndex = "uq_signals_open_symbol_direction"

// повтор уже зафиксированной вставки с тем же id ничего не делает
const insertSignalQuery = `
	INSERT INTO signals (` + models.SignalColumns + `)
	VALUES (:id, :symbol, :direction, :entry_price, :entry_zone_from, :entry_zone_to,
		:stop_loss, :take_profit, :confidence, :final_score, :reasoning, :status,
		:created_at, :activated_at, :closed_at, :expires_at, :exit_price, :pnl, :pnl_percent, :market_conditions)
	ON CONFLICT (id) DO NOTHING
`

// Repository - хранилище сигналов в PostgreSQL.
// Единственность открытого сигнала по (symbol, direction) держит частичный уникальный индекс.
type Repository struct {
	db    *sqlx.DB
	retry postgres.Retrier
}

// NewRepository создает репозиторий
func NewRepository(db *sqlx.DB, retry postgres.Retrier) *Repository {
	return &Repository{db: db, retry: retry}
}

// InsertOpen вставляет сигнал; при конфликте возвращает существующий открытый
func (r *Repository) InsertOpen(ctx context.Context, sig *signals.Signal) (*signals.Signal, error) {
	row, err := models.NewSignalRow(sig)
	if err != nil {
		return nil, fmt.Errorf("SignalRepo.InsertOpen: %w", err)
	}

	err = r.retry.Do(ctx, "SignalRepo.InsertOpen", func() error {
		_, err := r.db.NamedExecContext(ctx, insertSignalQuery, row)
		return err
	})
	if isOpenConflict(err) {
		existing, ferr := r.findOpen(ctx, sig.Symbol, sig.Direction)
		if ferr != nil {
			return nil, fmt.Errorf("SignalRepo.InsertOpen: %w", ferr)
		}
		if existing == nil {
			// открытый сигнал закрылся между INSERT и SELECT
			return nil, fmt.Errorf("SignalRepo.InsertOpen: %w", err)
		}
		return existing, signals.ErrOpenSignalExists
	}
	if err != nil {
		return nil, fmt.Errorf("SignalRepo.InsertOpen: %w", err)
	}

	logger.Debug("💾 [SignalRepo] Сохранен сигнал %s %s %s", sig.ID, sig.Symbol, sig.Direction)
	return sig.Clone(), nil
}

// isOpenConflict - уже есть открытый сигнал по (symbol, direction)
func isOpenConflict(err error) bool {
	return postgres.IsConstraintViolation(err, openSignalIndex)
}

func (r *Repository) findOpen(ctx context.Context, symbol string, dir signals.Direction) (*signals.Signal, error) {
	query := `SELECT ` + models.SignalColumns + ` FROM signals
		WHERE symbol = $1 AND direction = $2 AND status IN ` + openStatuses + `
		ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, query, symbol, string(dir))
}

// FindOpenSince - последний открытый сигнал, созданный не раньше since
func (r *Repository) FindOpenSince(ctx context.Context, symbol string, dir signals.Direction, since time.Time) (*signals.Signal, error) {
	query := `SELECT ` + models.SignalColumns + ` FROM signals
		WHERE symbol = $1 AND direction = $2 AND status IN ` + openStatuses + ` AND created_at >= $3
		ORDER BY created_at DESC LIMIT 1`
	sig, err := r.getOne(ctx, query, symbol, string(dir), since.UTC())
	if err != nil {
		return nil, fmt.Errorf("SignalRepo.FindOpenSince: %w", err)
	}
	return sig, nil
}

// GetByID - сигнал по идентификатору
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*signals.Signal, error) {
	sig, err := r.getOne(ctx, `SELECT `+models.SignalColumns+` FROM signals WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("SignalRepo.GetByID: %w", err)
	}
	if sig == nil {
		return nil, fmt.Errorf("SignalRepo.GetByID %s: %w", id, signals.ErrSignalNotFound)
	}
	return sig, nil
}

// ListOpen - все pending/active сигналы
func (r *Repository) ListOpen(ctx context.Context) ([]*signals.Signal, error) {
	query := `SELECT ` + models.SignalColumns + ` FROM signals
		WHERE status IN ` + openStatuses + ` ORDER BY created_at`
	list, err := r.selectMany(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("SignalRepo.ListOpen: %w", err)
	}
	return list, nil
}

// Transition - compare-and-set по статусу одной командой UPDATE
func (r *Repository) Transition(ctx context.Context, sig *signals.Signal, from signals.Status) (bool, error) {
	row, err := models.NewSignalRow(sig)
	if err != nil {
		return false, fmt.Errorf("SignalRepo.Transition: %w", err)
	}

	query := `
		UPDATE signals
		SET status = $1, activated_at = $2, closed_at = $3, exit_price = $4, pnl = $5, pnl_percent = $6
		WHERE id = $7 AND status = $8
	`
	var affected int64
	err = r.retry.Do(ctx, "SignalRepo.Transition", func() error {
		res, err := r.db.ExecContext(ctx, query,
			row.Status, row.ActivatedAt, row.ClosedAt, row.ExitPrice, row.PnL, row.PnLPercent,
			row.ID, string(from))
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("SignalRepo.Transition %s: %w", sig.ID, err)
	}
	return affected == 1, nil
}

// ListClosedSince - терминальные сигналы, закрытые не раньше since
func (r *Repository) ListClosedSince(ctx context.Context, since time.Time) ([]*signals.Signal, error) {
	query := `SELECT ` + models.SignalColumns + ` FROM signals
		WHERE status IN ('hit_tp', 'hit_sl', 'expired') AND closed_at >= $1
		ORDER BY closed_at`
	list, err := r.selectMany(ctx, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("SignalRepo.ListClosedSince: %w", err)
	}
	return list, nil
}

// ListBySymbol - последние сигналы по символу
func (r *Repository) ListBySymbol(ctx context.Context, symbol string, limit int) ([]*signals.Signal, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + models.SignalColumns + ` FROM signals
		WHERE symbol = $1 ORDER BY created_at DESC LIMIT $2`
	list, err := r.selectMany(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("SignalRepo.ListBySymbol: %w", err)
	}
	return list, nil
}

// DeleteExpiredBefore удаляет expired сигналы, закрытые раньше before
func (r *Repository) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.retry.Do(ctx, "SignalRepo.DeleteExpiredBefore", func() error {
		res, err := r.db.ExecContext(ctx,
			`DELETE FROM signals WHERE status = 'expired' AND closed_at < $1`, before.UTC())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("SignalRepo.DeleteExpiredBefore: %w", err)
	}
	return n, nil
}

// getOne - nil, nil если строки нет
func (r *Repository) getOne(ctx context.Context, query string, args ...interface{}) (*signals.Signal, error) {
	var row models.SignalRow
	err := r.retry.Do(ctx, "SignalRepo.get", func() error {
		return r.db.GetContext(ctx, &row, query, args...)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.ToDomain()
}

func (r *Repository) selectMany(ctx context.Context, query string, args ...interface{}) ([]*signals.Signal, error) {
	var rows []models.SignalRow
	err := r.retry.Do(ctx, "SignalRepo.select", func() error {
		rows = rows[:0]
		return r.db.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return models.ToDomainList(rows)
}
