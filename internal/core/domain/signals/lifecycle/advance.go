// internal/core/domain/signals/lifecycle/advance.go
package lifecycle

import (
	"time"

	"smart-money-screener/internal/core/domain/signals"

	"github.com/shopspring/decimal"
)

// Advance - один шаг автомата состояний. Возвращает новую копию сигнала
// и true, если переход произошел; исходный сигнал не меняется.
//
// pending → expired (время истекло) | active (цена в зоне входа)
// active  → hit_tp | hit_sl
//
// hasPrice=false проверяет только истечение.
func Advance(sig *signals.Signal, price float64, hasPrice bool, now time.Time, notional float64) (*signals.Signal, bool) {
	switch sig.Status {
	case signals.StatusPending:
		if now.After(sig.ExpiresAt) {
			next := sig.Clone()
			next.Status = signals.StatusExpired
			next.ClosedAt = &now
			next.Result = nil
			return next, true
		}
		if hasPrice && sig.EntryZone.Contains(price) {
			next := sig.Clone()
			next.Status = signals.StatusActive
			next.ActivatedAt = &now
			return next, true
		}

	case signals.StatusActive:
		if !hasPrice {
			return sig, false
		}
		to, ok := exitStatus(sig, price)
		if !ok {
			return sig, false
		}
		next := sig.Clone()
		next.Status = to
		next.ClosedAt = &now
		r := ComputeResult(sig, price, notional)
		next.Result = &r
		return next, true
	}
	return sig, false
}

func exitStatus(sig *signals.Signal, price float64) (signals.Status, bool) {
	switch sig.Direction {
	case signals.DirectionBuy:
		if price >= sig.TakeProfit {
			return signals.StatusHitTP, true
		}
		if price <= sig.StopLoss {
			return signals.StatusHitSL, true
		}
	case signals.DirectionSell:
		if price <= sig.TakeProfit {
			return signals.StatusHitTP, true
		}
		if price >= sig.StopLoss {
			return signals.StatusHitSL, true
		}
	}
	return "", false
}

var hundred = decimal.NewFromInt(100)

// ComputeResult - PnL со знаком относительно ReferencePrice.
// pnl = notional * pct / 100
func ComputeResult(sig *signals.Signal, exitPrice, notional float64) signals.Result {
	ref := decimal.NewFromFloat(sig.ReferencePrice())
	exit := decimal.NewFromFloat(exitPrice)
	if ref.IsZero() {
		return signals.Result{ExitPrice: exitPrice}
	}

	move := exit.Sub(ref)
	if sig.Direction == signals.DirectionSell {
		move = move.Neg()
	}
	pct := move.Div(ref).Mul(hundred).Round(8)
	pnl := decimal.NewFromFloat(notional).Mul(pct).Div(hundred).Round(4)

	return signals.Result{
		PnL:        pnl.InexactFloat64(),
		PnLPercent: pct.InexactFloat64(),
		ExitPrice:  exitPrice,
	}
}
