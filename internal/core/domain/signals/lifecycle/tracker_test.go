// internal/core/domain/signals/lifecycle/tracker_test.go
package lifecycle

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"smart-money-screener/internal/core/domain/market"
	"smart-money-screener/internal/core/domain/signals"

	"github.com/google/uuid"
)

type memStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*signals.Signal
	// failTransition заставляет Transition возвращать ошибку
	failTransition error
	transitions    int
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[uuid.UUID]*signals.Signal)}
}

func (m *memStore) InsertOpen(ctx context.Context, sig *signals.Signal) (*signals.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.Symbol == sig.Symbol && s.Direction == sig.Direction && s.Status.IsOpen() {
			return s.Clone(), signals.ErrOpenSignalExists
		}
	}
	m.byID[sig.ID] = sig.Clone()
	return sig.Clone(), nil
}

func (m *memStore) FindOpenSince(ctx context.Context, symbol string, dir signals.Direction, since time.Time) (*signals.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.Symbol == symbol && s.Direction == dir && s.Status.IsOpen() && !s.CreatedAt.Before(since) {
			return s.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*signals.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, signals.ErrSignalNotFound
	}
	return s.Clone(), nil
}

func (m *memStore) ListOpen(ctx context.Context) ([]*signals.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*signals.Signal
	for _, s := range m.byID {
		if s.Status.IsOpen() {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *memStore) Transition(ctx context.Context, sig *signals.Signal, from signals.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTransition != nil {
		return false, m.failTransition
	}
	cur, ok := m.byID[sig.ID]
	if !ok || cur.Status != from {
		return false, nil
	}
	m.byID[sig.ID] = sig.Clone()
	m.transitions++
	return true, nil
}

func (m *memStore) ListClosedSince(ctx context.Context, since time.Time) ([]*signals.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*signals.Signal
	for _, s := range m.byID {
		if s.Status.IsTerminal() && s.ClosedAt != nil && !s.ClosedAt.Before(since) {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *memStore) ListBySymbol(ctx context.Context, symbol string, limit int) ([]*signals.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*signals.Signal
	for _, s := range m.byID {
		if s.Symbol == symbol {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (m *memStore) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.byID {
		if s.Status == signals.StatusExpired && s.ClosedAt != nil && s.ClosedAt.Before(before) {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) put(s *signals.Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[s.ID] = s.Clone()
}

type mapPrices map[string]float64

func (p mapPrices) GetPrice(ctx context.Context, symbol string) (float64, error) {
	v, ok := p[symbol]
	if !ok {
		return 0, errors.New("no quote")
	}
	return v, nil
}

type recorder struct {
	mu     sync.Mutex
	events []signals.Event
}

func (r *recorder) Publish(e signals.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []signals.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]signals.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestTracker(store Store, prices PriceProvider, pub signals.Publisher, now *time.Time) *Tracker {
	tr := NewTracker(store, prices, pub, DefaultConfig())
	tr.now = func() time.Time { return *now }
	return tr
}

func buyCandidate() signals.Candidate {
	return signals.Candidate{
		Symbol:     "solusdt",
		FinalScore: 80,
		Analysis: signals.AnalysisResult{
			Recommendation: signals.RecommendationBuy,
			Confidence:     0.85,
			Reasoning:      []string{"a", "b"},
			EntryZone:      &signals.EntryZone{From: 99.2, To: 100.8},
			TakeProfit:     103,
			StopLoss:       98.5,
		},
		Snapshot:       market.Snapshot{Symbol: "SOLUSDT", Price: 100, AvgFundingRate: -0.002},
		TechnicalScore: 25,
	}
}

func TestCreate(t *testing.T) {
	now := t0
	store := newMemStore()
	rec := &recorder{}
	tr := newTestTracker(store, nil, rec, &now)
	ctx := context.Background()

	sig, err := tr.Create(ctx, buyCandidate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sig.Symbol != "SOLUSDT" || sig.Status != signals.StatusPending || sig.Direction != signals.DirectionBuy {
		t.Errorf("unexpected signal %+v", sig)
	}
	if !sig.ExpiresAt.Equal(t0.Add(24 * time.Hour)) {
		t.Errorf("ExpiresAt = %v", sig.ExpiresAt)
	}
	if sig.Conditions.TechnicalScore != 25 || sig.Conditions.FundingRate != -0.002 {
		t.Errorf("conditions = %+v", sig.Conditions)
	}

	now = now.Add(10 * time.Minute)
	again, err := tr.Create(ctx, buyCandidate())
	if !errors.Is(err, signals.ErrOpenSignalExists) || again.ID != sig.ID {
		t.Errorf("second create: %v, %v", again, err)
	}

	// вне окна проверки срабатывает атомарная вставка
	now = now.Add(time.Hour)
	_, err = tr.Create(ctx, buyCandidate())
	if !errors.Is(err, signals.ErrOpenSignalExists) {
		t.Errorf("insert guard: %v", err)
	}

	if got := rec.types(); len(got) != 1 || got[0] != signals.EventSignalCreated {
		t.Errorf("events = %v", got)
	}
}

func TestCreateRejectsWait(t *testing.T) {
	now := t0
	tr := newTestTracker(newMemStore(), nil, nil, &now)
	c := buyCandidate()
	c.Analysis.Recommendation = signals.RecommendationWait
	if _, err := tr.Create(context.Background(), c); !errors.Is(err, signals.ErrNotActionable) {
		t.Errorf("err = %v", err)
	}
}

func pending(dir signals.Direction, zone signals.EntryZone, tp, sl float64) *signals.Signal {
	return &signals.Signal{
		ID:         uuid.New(),
		Symbol:     "ETHUSDT",
		Direction:  dir,
		EntryPrice: zone.Mid(),
		EntryZone:  zone,
		TakeProfit: tp,
		StopLoss:   sl,
		Status:     signals.StatusPending,
		CreatedAt:  t0,
		ExpiresAt:  t0.Add(24 * time.Hour),
	}
}

func TestPendingExpires(t *testing.T) {
	now := t0.Add(25 * time.Hour)
	store := newMemStore()
	rec := &recorder{}
	sig := pending(signals.DirectionBuy, signals.EntryZone{From: 99, To: 101}, 103, 98)
	store.put(sig)
	tr := newTestTracker(store, nil, rec, &now)

	got, err := tr.UpdateStatus(context.Background(), sig.ID, 150)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != signals.StatusExpired || got.ClosedAt == nil || got.Result != nil {
		t.Errorf("got %+v", got)
	}
	if types := rec.types(); len(types) != 1 || types[0] != signals.EventSignalExpired {
		t.Errorf("events = %v", types)
	}
}

func TestExpiryWinsOverActivation(t *testing.T) {
	now := t0.Add(25 * time.Hour)
	store := newMemStore()
	sig := pending(signals.DirectionBuy, signals.EntryZone{From: 99, To: 101}, 103, 98)
	store.put(sig)
	tr := newTestTracker(store, nil, nil, &now)

	got, _ := tr.UpdateStatus(context.Background(), sig.ID, 100)
	if got.Status != signals.StatusExpired {
		t.Errorf("status = %s, want expired", got.Status)
	}
}

func TestSellHitsTakeProfit(t *testing.T) {
	now := t0.Add(time.Hour)
	store := newMemStore()
	sig := pending(signals.DirectionSell, signals.EntryZone{From: 100.8, To: 99.2}, 90, 110)
	sig.EntryPrice = 100
	sig.Status = signals.StatusActive
	at := t0.Add(30 * time.Minute)
	sig.ActivatedAt = &at
	store.put(sig)
	tr := newTestTracker(store, nil, nil, &now)

	got, err := tr.UpdateStatus(context.Background(), sig.ID, 89)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != signals.StatusHitTP || got.Result == nil || got.Result.PnLPercent <= 0 {
		t.Fatalf("got %+v", got)
	}
	if got.Result.PnLPercent != 11 || got.Result.PnL != 110 || got.Result.ExitPrice != 89 {
		t.Errorf("result = %+v", got.Result)
	}
}

func TestUpdateIsIdempotent(t *testing.T) {
	now := t0.Add(time.Hour)
	store := newMemStore()
	rec := &recorder{}
	sig := pending(signals.DirectionBuy, signals.EntryZone{From: 99, To: 101}, 103, 98)
	store.put(sig)
	tr := newTestTracker(store, nil, rec, &now)
	ctx := context.Background()

	first, _ := tr.UpdateStatus(ctx, sig.ID, 100)
	second, _ := tr.UpdateStatus(ctx, sig.ID, 100)
	if first.Status != signals.StatusActive || second.Status != signals.StatusActive {
		t.Fatalf("statuses %s/%s", first.Status, second.Status)
	}
	if store.transitions != 1 || len(rec.types()) != 1 {
		t.Errorf("transitions=%d events=%d", store.transitions, len(rec.types()))
	}

	closed, _ := tr.UpdateStatus(ctx, sig.ID, 104)
	again, _ := tr.UpdateStatus(ctx, sig.ID, 104)
	if closed.Status != signals.StatusHitTP || again.Status != signals.StatusHitTP {
		t.Errorf("statuses %s/%s", closed.Status, again.Status)
	}
	if store.transitions != 2 {
		t.Errorf("terminal must be absorbing, transitions=%d", store.transitions)
	}
}

func TestAdvanceNeverSkipsActivation(t *testing.T) {
	sig := pending(signals.DirectionBuy, signals.EntryZone{From: 99, To: 101}, 103, 98)
	for _, price := range []float64{50, 98, 104, 200} {
		next, ok := Advance(sig, price, true, t0.Add(time.Hour), 1000)
		if ok {
			t.Errorf("price %v moved pending to %s", price, next.Status)
		}
	}
	next, ok := Advance(sig, 99, true, t0.Add(time.Hour), 1000)
	if !ok || next.Status != signals.StatusActive || sig.Status != signals.StatusPending {
		t.Errorf("activation: %v %v, original %s", ok, next.Status, sig.Status)
	}
}

func TestComputeResult(t *testing.T) {
	sig := pending(signals.DirectionBuy, signals.EntryZone{From: 98, To: 102}, 110, 90)
	// не активирован: база - середина зоны
	r := ComputeResult(sig, 105, 1000)
	if r.PnLPercent != 5 || r.PnL != 50 {
		t.Errorf("result = %+v", r)
	}
	sig.Direction = signals.DirectionSell
	if r := ComputeResult(sig, 105, 1000); r.PnLPercent != -5 {
		t.Errorf("sell result = %+v", r)
	}
}

func TestMonitorOnceIsolatesPriceErrors(t *testing.T) {
	now := t0.Add(25 * time.Hour)
	store := newMemStore()

	eth := pending(signals.DirectionBuy, signals.EntryZone{From: 99, To: 101}, 103, 98)
	eth.ExpiresAt = t0.Add(48 * time.Hour)
	btc := pending(signals.DirectionBuy, signals.EntryZone{From: 99, To: 101}, 103, 98)
	btc.Symbol = "BTCUSDT"
	sol := pending(signals.DirectionSell, signals.EntryZone{From: 101, To: 99}, 95, 103)
	sol.Symbol = "SOLUSDT"
	sol.ExpiresAt = t0.Add(48 * time.Hour)
	for _, s := range []*signals.Signal{eth, btc, sol} {
		store.put(s)
	}

	// BTCUSDT без котировки: истекает по времени; SOLUSDT без котировки и не истек
	tr := newTestTracker(store, mapPrices{"ETHUSDT": 100}, nil, &now)
	rep, err := tr.MonitorOnce(context.Background())
	if err != nil {
		t.Fatalf("MonitorOnce: %v", err)
	}
	if rep.Signals != 3 || rep.Symbols != 3 || rep.PriceErrors != 2 {
		t.Errorf("report = %+v", rep)
	}
	if rep.Activated != 1 || rep.Expired != 1 {
		t.Errorf("report = %+v", rep)
	}

	got, _ := store.GetByID(context.Background(), sol.ID)
	if got.Status != signals.StatusPending {
		t.Errorf("SOLUSDT = %s", got.Status)
	}
}

func TestMonitorSurfacesStoreErrors(t *testing.T) {
	now := t0.Add(time.Hour)
	store := newMemStore()
	store.put(pending(signals.DirectionBuy, signals.EntryZone{From: 99, To: 101}, 103, 98))
	store.failTransition = errors.New("connection reset")

	tr := newTestTracker(store, mapPrices{"ETHUSDT": 100}, nil, &now)
	if _, err := tr.MonitorOnce(context.Background()); err == nil {
		t.Error("persistence errors must be returned")
	}
}

func TestStatsAndCleanup(t *testing.T) {
	now := t0.Add(72 * time.Hour)
	store := newMemStore()
	closedAt := t0.Add(48 * time.Hour)
	oldClose := t0.Add(-100 * 24 * time.Hour)

	mk := func(status signals.Status, pct float64, at *time.Time) *signals.Signal {
		s := pending(signals.DirectionBuy, signals.EntryZone{From: 99, To: 101}, 103, 98)
		s.Status = status
		s.ClosedAt = at
		if status != signals.StatusExpired {
			s.Result = &signals.Result{PnLPercent: pct}
		}
		return s
	}
	for _, s := range []*signals.Signal{
		mk(signals.StatusHitTP, 4, &closedAt),
		mk(signals.StatusHitTP, 2, &closedAt),
		mk(signals.StatusHitSL, -3, &closedAt),
		mk(signals.StatusExpired, 0, &closedAt),
		mk(signals.StatusExpired, 0, &oldClose),
	} {
		store.put(s)
	}

	tr := newTestTracker(store, nil, nil, &now)
	st, err := tr.Stats(context.Background(), 7)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalSignals != 3 || st.Winning != 2 || st.Losing != 1 || st.Expired != 1 {
		t.Errorf("stats = %+v", st)
	}
	if math.Abs(st.WinRate-200.0/3) > 1e-9 || st.AvgWin != 3 || st.AvgLoss != 3 || st.ProfitFactor != 2 || st.TotalPnLPercent != 3 {
		t.Errorf("stats = %+v", st)
	}

	n, err := tr.Cleanup(context.Background())
	if err != nil || n != 1 {
		t.Errorf("Cleanup = %d, %v", n, err)
	}
}

func TestTopOpen(t *testing.T) {
	now := t0
	store := newMemStore()
	for i, score := range []int{70, 90, 80} {
		s := pending(signals.DirectionBuy, signals.EntryZone{From: 99, To: 101}, 103, 98)
		s.FinalScore = score
		s.CreatedAt = t0.Add(time.Duration(i) * time.Minute)
		store.put(s)
	}
	tr := newTestTracker(store, nil, nil, &now)
	top, err := tr.TopOpen(context.Background(), 2)
	if err != nil || len(top) != 2 || top[0].FinalScore != 90 || top[1].FinalScore != 80 {
		t.Errorf("top = %+v, %v", top, err)
	}
}
