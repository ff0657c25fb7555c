// internal/infrastructure/persistence/postgres/models/signal.go
package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"smart-money-screener/internal/core/domain/signals"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SignalRow - строка таблицы signals
type SignalRow struct {
	ID               uuid.UUID       `db:"id"`
	Symbol           string          `db:"symbol"`
	Direction        string          `db:"direction"`
	EntryPrice       float64         `db:"entry_price"`
	EntryZoneFrom    float64         `db:"entry_zone_from"`
	EntryZoneTo      float64         `db:"entry_zone_to"`
	StopLoss         float64         `db:"stop_loss"`
	TakeProfit       float64         `db:"take_profit"`
	Confidence       float64         `db:"confidence"`
	FinalScore       int             `db:"final_score"`
	Reasoning        pq.StringArray  `db:"reasoning"`
	Status           string          `db:"status"`
	CreatedAt        time.Time       `db:"created_at"`
	ActivatedAt      sql.NullTime    `db:"activated_at"`
	ClosedAt         sql.NullTime    `db:"closed_at"`
	ExpiresAt        time.Time       `db:"expires_at"`
	ExitPrice        sql.NullFloat64 `db:"exit_price"`
	PnL              sql.NullFloat64 `db:"pnl"`
	PnLPercent       sql.NullFloat64 `db:"pnl_percent"`
	MarketConditions string          `db:"market_conditions"`
}

// SignalColumns - порядок колонок для SELECT
const SignalColumns = `id, symbol, direction, entry_price, entry_zone_from, entry_zone_to,
	stop_loss, take_profit, confidence, final_score, reasoning, status,
	created_at, activated_at, closed_at, expires_at, exit_price, pnl, pnl_percent, market_conditions`

// NewSignalRow - доменный сигнал → строка
func NewSignalRow(s *signals.Signal) (*SignalRow, error) {
	cond, err := json.Marshal(s.Conditions)
	if err != nil {
		return nil, fmt.Errorf("marshal market conditions: %w", err)
	}
	row := &SignalRow{
		ID:               s.ID,
		Symbol:           s.Symbol,
		Direction:        string(s.Direction),
		EntryPrice:       s.EntryPrice,
		EntryZoneFrom:    s.EntryZone.From,
		EntryZoneTo:      s.EntryZone.To,
		StopLoss:         s.StopLoss,
		TakeProfit:       s.TakeProfit,
		Confidence:       s.Confidence,
		FinalScore:       s.FinalScore,
		Reasoning:        pq.StringArray(append([]string{}, s.Reasoning...)),
		Status:           string(s.Status),
		CreatedAt:        s.CreatedAt.UTC(),
		ExpiresAt:        s.ExpiresAt.UTC(),
		MarketConditions: string(cond),
	}
	if s.ActivatedAt != nil {
		row.ActivatedAt = sql.NullTime{Time: s.ActivatedAt.UTC(), Valid: true}
	}
	if s.ClosedAt != nil {
		row.ClosedAt = sql.NullTime{Time: s.ClosedAt.UTC(), Valid: true}
	}
	if s.Result != nil {
		row.ExitPrice = sql.NullFloat64{Float64: s.Result.ExitPrice, Valid: true}
		row.PnL = sql.NullFloat64{Float64: s.Result.PnL, Valid: true}
		row.PnLPercent = sql.NullFloat64{Float64: s.Result.PnLPercent, Valid: true}
	}
	return row, nil
}

// ToDomain - строка → доменный сигнал
func (r *SignalRow) ToDomain() (*signals.Signal, error) {
	s := &signals.Signal{
		ID:         r.ID,
		Symbol:     r.Symbol,
		Direction:  signals.Direction(r.Direction),
		EntryPrice: r.EntryPrice,
		EntryZone:  signals.EntryZone{From: r.EntryZoneFrom, To: r.EntryZoneTo},
		StopLoss:   r.StopLoss,
		TakeProfit: r.TakeProfit,
		Confidence: r.Confidence,
		FinalScore: r.FinalScore,
		Reasoning:  []string(r.Reasoning),
		Status:     signals.Status(r.Status),
		CreatedAt:  r.CreatedAt,
		ExpiresAt:  r.ExpiresAt,
	}
	if r.ActivatedAt.Valid {
		t := r.ActivatedAt.Time
		s.ActivatedAt = &t
	}
	if r.ClosedAt.Valid {
		t := r.ClosedAt.Time
		s.ClosedAt = &t
	}
	if r.PnLPercent.Valid {
		s.Result = &signals.Result{
			PnL:        r.PnL.Float64,
			PnLPercent: r.PnLPercent.Float64,
			ExitPrice:  r.ExitPrice.Float64,
		}
	}
	if len(r.MarketConditions) > 0 {
		if err := json.Unmarshal([]byte(r.MarketConditions), &s.Conditions); err != nil {
			return nil, fmt.Errorf("signal %s: decode market conditions: %w", r.ID, err)
		}
	}
	return s, nil
}

// ToDomainList - пакетное преобразование
func ToDomainList(rows []SignalRow) ([]*signals.Signal, error) {
	out := make([]*signals.Signal, 0, len(rows))
	for i := range rows {
		s, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
