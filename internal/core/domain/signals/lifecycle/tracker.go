// internal/core/domain/signals/lifecycle/tracker.go
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"smart-money-screener/internal/core/domain/signals"
	"smart-money-screener/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const eventSource = "signal_tracker"

// Config - параметры трекера
type Config struct {
	SignalTTL           time.Duration
	ExistenceWindow     time.Duration
	PositionNotionalUSD float64
	MonitorConcurrency  int
	CleanupRetention    time.Duration
}

// DefaultConfig - значения по умолчанию
func DefaultConfig() Config {
	return Config{
		SignalTTL:           24 * time.Hour,
		ExistenceWindow:     30 * time.Minute,
		PositionNotionalUSD: 1000,
		MonitorConcurrency:  8,
		CleanupRetention:    90 * 24 * time.Hour,
	}
}

// Tracker - единственный владелец изменений сигналов
type Tracker struct {
	store     Store
	prices    PriceProvider
	publisher signals.Publisher
	cfg       Config
	now       func() time.Time
}

// NewTracker создает трекер; publisher и prices могут быть nil
func NewTracker(store Store, prices PriceProvider, publisher signals.Publisher, cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.SignalTTL <= 0 {
		cfg.SignalTTL = def.SignalTTL
	}
	if cfg.ExistenceWindow <= 0 {
		cfg.ExistenceWindow = def.ExistenceWindow
	}
	if cfg.PositionNotionalUSD <= 0 {
		cfg.PositionNotionalUSD = def.PositionNotionalUSD
	}
	if cfg.MonitorConcurrency <= 0 {
		cfg.MonitorConcurrency = def.MonitorConcurrency
	}
	if cfg.CleanupRetention <= 0 {
		cfg.CleanupRetention = def.CleanupRetention
	}
	return &Tracker{
		store:     store,
		prices:    prices,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Create сохраняет сигнал со статусом pending.
// Если открытый сигнал уже есть, возвращает его и signals.ErrOpenSignalExists.
func (t *Tracker) Create(ctx context.Context, cand signals.Candidate) (*signals.Signal, error) {
	dir, ok := cand.Direction()
	if !ok {
		return nil, signals.ErrNotActionable
	}
	a := cand.Analysis
	if !a.HasTradeLevels() {
		return nil, fmt.Errorf("%w: %s has no trade levels", signals.ErrNotActionable, cand.Symbol)
	}

	now := t.now()
	symbol := strings.ToUpper(cand.Symbol)

	existing, err := t.store.FindOpenSince(ctx, symbol, dir, now.Add(-t.cfg.ExistenceWindow))
	if err != nil {
		return nil, fmt.Errorf("Tracker.Create: %w", err)
	}
	if existing != nil {
		return existing, signals.ErrOpenSignalExists
	}

	sig := &signals.Signal{
		ID:         uuid.New(),
		Symbol:     symbol,
		Direction:  dir,
		EntryPrice: cand.Snapshot.Price,
		EntryZone:  *a.EntryZone,
		StopLoss:   a.StopLoss,
		TakeProfit: a.TakeProfit,
		Confidence: a.Confidence,
		FinalScore: cand.FinalScore,
		Reasoning:  append([]string(nil), a.Reasoning...),
		Status:     signals.StatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(t.cfg.SignalTTL),
		Conditions: signals.ConditionsFrom(cand.Snapshot, cand.TechnicalScore),
	}

	stored, err := t.store.InsertOpen(ctx, sig)
	if errors.Is(err, signals.ErrOpenSignalExists) {
		return stored, err
	}
	if err != nil {
		return nil, fmt.Errorf("Tracker.Create: %w", err)
	}

	logger.Signal(stored.Symbol, string(stored.Direction), stored.Confidence, stored.FinalScore)
	t.publish(signals.EventSignalCreated, signals.Transition{Signal: stored.Clone(), Price: cand.Snapshot.Price})
	return stored, nil
}

// UpdateStatus применяет переходы для сигнала при цене price до неподвижной точки.
// Повторный вызов с той же ценой и временем ничего не меняет.
func (t *Tracker) UpdateStatus(ctx context.Context, id uuid.UUID, price float64) (*signals.Signal, error) {
	sig, err := t.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Tracker.UpdateStatus: %w", err)
	}
	cur, _, err := t.advance(ctx, sig, price, true)
	return cur, err
}

// advance шагает по автомату; каждый шаг - отдельный CAS в хранилище
func (t *Tracker) advance(ctx context.Context, sig *signals.Signal, price float64, hasPrice bool) (*signals.Signal, []signals.Status, error) {
	var steps []signals.Status
	cur := sig
	now := t.now()

	// pending → active → terminal: больше трех шагов не бывает
	for i := 0; i < 4; i++ {
		next, ok := Advance(cur, price, hasPrice, now, t.cfg.PositionNotionalUSD)
		if !ok {
			return cur, steps, nil
		}

		applied, err := t.store.Transition(ctx, next, cur.Status)
		if err != nil {
			return cur, steps, fmt.Errorf("Tracker.advance %s %s→%s: %w", cur.ID, cur.Status, next.Status, err)
		}
		if !applied {
			// статус уже изменили параллельно - перечитываем
			fresh, err := t.store.GetByID(ctx, cur.ID)
			if err != nil {
				return cur, steps, fmt.Errorf("Tracker.advance reload %s: %w", cur.ID, err)
			}
			cur = fresh
			continue
		}

		t.logTransition(cur.Status, next, price)
		t.publish(signals.EventTypeFor(next.Status), signals.Transition{Signal: next.Clone(), From: cur.Status, Price: price})
		steps = append(steps, next.Status)
		cur = next
	}
	return cur, steps, nil
}

func (t *Tracker) logTransition(from signals.Status, sig *signals.Signal, price float64) {
	switch sig.Status {
	case signals.StatusActive:
		logger.Info("✅ [Tracker] %s %s активирован по $%.6g", sig.Symbol, strings.ToUpper(string(sig.Direction)), price)
	case signals.StatusHitTP:
		logger.Info("🎯 [Tracker] %s достиг TP: %+.2f%%", sig.Symbol, sig.Result.PnLPercent)
	case signals.StatusHitSL:
		logger.Info("❌ [Tracker] %s закрыт по SL: %+.2f%%", sig.Symbol, sig.Result.PnLPercent)
	case signals.StatusExpired:
		logger.Info("⏰ [Tracker] %s истек без входа (был %s)", sig.Symbol, from)
	}
}

func (t *Tracker) publish(typ signals.EventType, payload signals.Transition) {
	if t.publisher == nil {
		return
	}
	err := t.publisher.Publish(signals.Event{
		Type:      typ,
		Source:    eventSource,
		Data:      payload,
		Timestamp: t.now(),
	})
	if err != nil {
		logger.Warn("⚠️ [Tracker] Событие %s не опубликовано: %v", typ, err)
	}
}

// MonitorReport - итог одного прохода мониторинга
type MonitorReport struct {
	Signals     int `json:"signals"`
	Symbols     int `json:"symbols"`
	PriceErrors int `json:"price_errors"`
	Activated   int `json:"activated"`
	Closed      int `json:"closed"`
	Expired     int `json:"expired"`
}

func (r *MonitorReport) count(steps []signals.Status) {
	for _, s := range steps {
		switch s {
		case signals.StatusActive:
			r.Activated++
		case signals.StatusHitTP, signals.StatusHitSL:
			r.Closed++
		case signals.StatusExpired:
			r.Expired++
		}
	}
}

// MonitorOnce - один проход: цена по каждому уникальному символу, затем переходы.
// Ошибка цены одного символа не блокирует остальные; для него проверяется только истечение.
func (t *Tracker) MonitorOnce(ctx context.Context) (MonitorReport, error) {
	open, err := t.store.ListOpen(ctx)
	if err != nil {
		return MonitorReport{}, fmt.Errorf("Tracker.MonitorOnce: %w", err)
	}

	bySymbol := make(map[string][]*signals.Signal)
	for _, s := range open {
		bySymbol[s.Symbol] = append(bySymbol[s.Symbol], s)
	}
	report := MonitorReport{Signals: len(open), Symbols: len(bySymbol)}
	if len(open) == 0 {
		return report, nil
	}

	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	g.SetLimit(t.cfg.MonitorConcurrency)

	for symbol, sigs := range bySymbol {
		symbol, sigs := symbol, sigs
		g.Go(func() error {
			price, hasPrice := t.priceFor(ctx, symbol)

			var local MonitorReport
			var localErr error
			if !hasPrice {
				local.PriceErrors++
			}
			for _, s := range sigs {
				_, steps, err := t.advance(ctx, s, price, hasPrice)
				local.count(steps)
				localErr = multierr.Append(localErr, err)
			}

			mu.Lock()
			report.PriceErrors += local.PriceErrors
			report.Activated += local.Activated
			report.Closed += local.Closed
			report.Expired += local.Expired
			errs = multierr.Append(errs, localErr)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if report.Activated+report.Closed+report.Expired > 0 {
		logger.Info("📊 [Tracker] Мониторинг: %d сигналов, активировано %d, закрыто %d, истекло %d",
			report.Signals, report.Activated, report.Closed, report.Expired)
	}
	return report, errs
}

func (t *Tracker) priceFor(ctx context.Context, symbol string) (float64, bool) {
	if t.prices == nil {
		return 0, false
	}
	price, err := t.prices.GetPrice(ctx, symbol)
	if err != nil {
		logger.Warn("⚠️ [Tracker] Нет цены для %s: %v", symbol, err)
		return 0, false
	}
	if price <= 0 {
		logger.Warn("⚠️ [Tracker] Некорректная цена для %s: %v", symbol, price)
		return 0, false
	}
	return price, true
}

// Cleanup удаляет expired сигналы старше срока хранения
func (t *Tracker) Cleanup(ctx context.Context) (int64, error) {
	before := t.now().Add(-t.cfg.CleanupRetention)
	n, err := t.store.DeleteExpiredBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("Tracker.Cleanup: %w", err)
	}
	if n > 0 {
		logger.Info("🧹 [Tracker] Удалено %d истекших сигналов старше %s", n, before.Format(time.RFC3339))
	}
	return n, nil
}

// TopOpen - открытые сигналы по убыванию итогового балла
func (t *Tracker) TopOpen(ctx context.Context, limit int) ([]*signals.Signal, error) {
	open, err := t.store.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("Tracker.TopOpen: %w", err)
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].FinalScore != open[j].FinalScore {
			return open[i].FinalScore > open[j].FinalScore
		}
		return open[i].CreatedAt.After(open[j].CreatedAt)
	})
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

// BySymbol - последние сигналы по символу
func (t *Tracker) BySymbol(ctx context.Context, symbol string, limit int) ([]*signals.Signal, error) {
	list, err := t.store.ListBySymbol(ctx, strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("Tracker.BySymbol: %w", err)
	}
	return list, nil
}
