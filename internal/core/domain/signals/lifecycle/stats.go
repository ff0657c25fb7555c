// internal/core/domain/signals/lifecycle/stats.go
package lifecycle

import (
	"context"
	"fmt"
	"math"
	"time"

	"smart-money-screener/internal/core/domain/signals"
)

// PerformanceStats - результативность закрытых сигналов за окно
type PerformanceStats struct {
	Days            int       `json:"days"`
	Since           time.Time `json:"since"`
	TotalSignals    int       `json:"total_signals"`
	Winning         int       `json:"winning_signals"`
	Losing          int       `json:"losing_signals"`
	WinRate         float64   `json:"win_rate"`
	AvgWin          float64   `json:"avg_win"`
	AvgLoss         float64   `json:"avg_loss"`
	ProfitFactor    float64   `json:"profit_factor"`
	TotalPnLPercent float64   `json:"total_pnl_percent"`
	Expired         int       `json:"expired"`
}

// Stats считает статистику по hit_tp/hit_sl, закрытым за последние days дней
func (t *Tracker) Stats(ctx context.Context, days int) (PerformanceStats, error) {
	if days <= 0 {
		days = 7
	}
	since := t.now().Add(-time.Duration(days) * 24 * time.Hour)

	closed, err := t.store.ListClosedSince(ctx, since)
	if err != nil {
		return PerformanceStats{}, fmt.Errorf("Tracker.Stats: %w", err)
	}
	st := Summarize(closed)
	st.Days = days
	st.Since = since
	return st, nil
}

// Summarize - чистая агрегация по набору терминальных сигналов
func Summarize(closed []*signals.Signal) PerformanceStats {
	var st PerformanceStats
	var wins, losses float64

	for _, s := range closed {
		switch s.Status {
		case signals.StatusExpired:
			st.Expired++
			continue
		case signals.StatusHitTP, signals.StatusHitSL:
		default:
			continue
		}

		st.TotalSignals++
		if s.Result == nil {
			continue
		}
		pct := s.Result.PnLPercent
		st.TotalPnLPercent += pct
		if pct > 0 {
			st.Winning++
			wins += pct
		} else {
			st.Losing++
			losses += math.Abs(pct)
		}
	}

	if st.Winning > 0 {
		st.AvgWin = wins / float64(st.Winning)
	}
	if st.Losing > 0 {
		st.AvgLoss = losses / float64(st.Losing)
	}
	if st.TotalSignals > 0 {
		st.WinRate = float64(st.Winning) / float64(st.TotalSignals) * 100
	}
	if losses > 0 {
		st.ProfitFactor = wins / losses
	}
	return st
}
