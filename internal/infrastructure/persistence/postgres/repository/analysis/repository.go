// internal/infrastructure/persistence/postgres/repository/analysis/repository.go
package analysis_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"smart-money-screener/internal/core/domain/signals"
	"smart-money-screener/internal/infrastructure/persistence/postgres"
	"smart-money-screener/internal/infrastructure/persistence/postgres/models"

	"github.com/jmoiron/sqlx"
)

// Repository - последний анализ по символу (upsert)
type Repository struct {
	db    *sqlx.DB
	retry postgres.Retrier
	now   func() time.Time
}

// NewRepository создает репозиторий анализов
func NewRepository(db *sqlx.DB, retry postgres.Retrier) *Repository {
	return &Repository{db: db, retry: retry, now: time.Now}
}

// SaveAnalysis сохраняет или обновляет анализ символа
func (r *Repository) SaveAnalysis(ctx context.Context, cand signals.Candidate) error {
	row, err := models.NewAnalysisRow(cand, r.now())
	if err != nil {
		return fmt.Errorf("AnalysisRepo.SaveAnalysis: %w", err)
	}

	query := `
		INSERT INTO analysis_results (symbol, recommendation, confidence, bias, final_score,
			technical_score, price, reasoning, analysis, analyzed_at)
		VALUES (:symbol, :recommendation, :confidence, :bias, :final_score,
			:technical_score, :price, :reasoning, :analysis, :analyzed_at)
		ON CONFLICT (symbol) DO UPDATE SET
			recommendation  = EXCLUDED.recommendation,
			confidence      = EXCLUDED.confidence,
			bias            = EXCLUDED.bias,
			final_score     = EXCLUDED.final_score,
			technical_score = EXCLUDED.technical_score,
			price           = EXCLUDED.price,
			reasoning       = EXCLUDED.reasoning,
			analysis        = EXCLUDED.analysis,
			analyzed_at     = EXCLUDED.analyzed_at
	`
	err = r.retry.Do(ctx, "AnalysisRepo.SaveAnalysis", func() error {
		_, err := r.db.NamedExecContext(ctx, query, row)
		return err
	})
	if err != nil {
		return fmt.Errorf("AnalysisRepo.SaveAnalysis %s: %w", cand.Symbol, err)
	}
	return nil
}

// Get - последний анализ символа; nil, nil если его нет
func (r *Repository) Get(ctx context.Context, symbol string) (*models.AnalysisRow, error) {
	var row models.AnalysisRow
	err := r.retry.Do(ctx, "AnalysisRepo.Get", func() error {
		return r.db.GetContext(ctx, &row, `
			SELECT symbol, recommendation, confidence, bias, final_score,
				technical_score, price, reasoning, analysis, analyzed_at
			FROM analysis_results WHERE symbol = $1`, strings.ToUpper(symbol))
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("AnalysisRepo.Get: %w", err)
	}
	return &row, nil
}
