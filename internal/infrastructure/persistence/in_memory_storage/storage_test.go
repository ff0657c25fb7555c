// internal/infrastructure/persistence/in_memory_storage/storage_test.go
package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"smart-money-screener/internal/core/domain/market"
	"smart-money-screener/internal/core/domain/signals"

	"github.com/google/uuid"
)

func newSignal(symbol string, dir signals.Direction, status signals.Status, created time.Time) *signals.Signal {
	return &signals.Signal{
		ID:         uuid.New(),
		Symbol:     symbol,
		Direction:  dir,
		EntryPrice: 100,
		EntryZone:  signals.EntryZone{From: 99, To: 101},
		StopLoss:   95,
		TakeProfit: 110,
		Reasoning:  []string{"funding extreme"},
		Status:     status,
		CreatedAt:  created,
		ExpiresAt:  created.Add(24 * time.Hour),
	}
}

func TestInsertOpenRejectsSecondOpenSignal(t *testing.T) {
	ctx := context.Background()
	s := NewSignalStore()
	now := time.Now()

	first := newSignal("BTCUSDT", signals.DirectionBuy, signals.StatusPending, now)
	if _, err := s.InsertOpen(ctx, first); err != nil {
		t.Fatalf("InsertOpen: %v", err)
	}

	got, err := s.InsertOpen(ctx, newSignal("BTCUSDT", signals.DirectionBuy, signals.StatusPending, now))
	if !errors.Is(err, signals.ErrOpenSignalExists) {
		t.Fatalf("err = %v, want ErrOpenSignalExists", err)
	}
	if got == nil || got.ID != first.ID {
		t.Errorf("existing = %+v, want %s", got, first.ID)
	}

	// противоположное направление допустимо
	if _, err := s.InsertOpen(ctx, newSignal("BTCUSDT", signals.DirectionSell, signals.StatusPending, now)); err != nil {
		t.Errorf("sell InsertOpen: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestInsertOpenConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewSignalStore()
	now := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.InsertOpen(ctx, newSignal("ETHUSDT", signals.DirectionSell, signals.StatusPending, now)); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != 1 || s.Len() != 1 {
		t.Errorf("created = %d, len = %d", created, s.Len())
	}
}

func TestTransitionCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := NewSignalStore()
	sig := newSignal("SOLUSDT", signals.DirectionBuy, signals.StatusPending, time.Now())
	_, _ = s.InsertOpen(ctx, sig)

	next := sig.Clone()
	next.Status = signals.StatusActive
	ok, err := s.Transition(ctx, next, signals.StatusPending)
	if err != nil || !ok {
		t.Fatalf("Transition = %v, %v", ok, err)
	}

	// устаревший from
	stale := sig.Clone()
	stale.Status = signals.StatusExpired
	ok, err = s.Transition(ctx, stale, signals.StatusPending)
	if err != nil || ok {
		t.Errorf("stale Transition = %v, %v", ok, err)
	}

	got, _ := s.GetByID(ctx, sig.ID)
	if got.Status != signals.StatusActive {
		t.Errorf("status = %s", got.Status)
	}

	missing := newSignal("XRPUSDT", signals.DirectionBuy, signals.StatusActive, time.Now())
	if _, err := s.Transition(ctx, missing, signals.StatusPending); !errors.Is(err, signals.ErrSignalNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := NewSignalStore()
	sig := newSignal("BNBUSDT", signals.DirectionBuy, signals.StatusPending, time.Now())
	_, _ = s.InsertOpen(ctx, sig)

	sig.Reasoning[0] = "mutated"
	got, _ := s.GetByID(ctx, sig.ID)
	got.Status = signals.StatusHitTP

	again, _ := s.GetByID(ctx, sig.ID)
	if again.Status != signals.StatusPending || again.Reasoning[0] != "funding extreme" {
		t.Errorf("stored signal leaked: %+v", again)
	}
}

func TestFindOpenSince(t *testing.T) {
	ctx := context.Background()
	s := NewSignalStore()
	now := time.Now()
	old := newSignal("ADAUSDT", signals.DirectionBuy, signals.StatusActive, now.Add(-2*time.Hour))
	_, _ = s.InsertOpen(ctx, old)

	got, err := s.FindOpenSince(ctx, "ADAUSDT", signals.DirectionBuy, now.Add(-30*time.Minute))
	if err != nil || got != nil {
		t.Errorf("outside window = %+v, %v", got, err)
	}
	got, _ = s.FindOpenSince(ctx, "ADAUSDT", signals.DirectionBuy, now.Add(-3*time.Hour))
	if got == nil || got.ID != old.ID {
		t.Errorf("inside window = %+v", got)
	}
}

func TestListingsAndCleanup(t *testing.T) {
	ctx := context.Background()
	s := NewSignalStore()
	now := time.Now()

	closedAt := func(d time.Duration) *time.Time { t := now.Add(-d); return &t }

	open := newSignal("DOTUSDT", signals.DirectionBuy, signals.StatusActive, now.Add(-time.Hour))
	tp := newSignal("DOTUSDT", signals.DirectionSell, signals.StatusHitTP, now.Add(-3*time.Hour))
	tp.ClosedAt = closedAt(2 * time.Hour)
	expiredOld := newSignal("LINKUSDT", signals.DirectionBuy, signals.StatusExpired, now.Add(-100*24*time.Hour))
	expiredOld.ClosedAt = closedAt(99 * 24 * time.Hour)
	expiredNew := newSignal("LINKUSDT", signals.DirectionSell, signals.StatusExpired, now.Add(-48*time.Hour))
	expiredNew.ClosedAt = closedAt(24 * time.Hour)

	for _, sig := range []*signals.Signal{open, tp, expiredOld, expiredNew} {
		s.signals[sig.ID] = sig.Clone()
	}

	openList, _ := s.ListOpen(ctx)
	if len(openList) != 1 || openList[0].ID != open.ID {
		t.Errorf("ListOpen = %d", len(openList))
	}

	closed, _ := s.ListClosedSince(ctx, now.Add(-7*24*time.Hour))
	if len(closed) != 2 {
		t.Errorf("ListClosedSince = %d, want 2", len(closed))
	}

	bySymbol, _ := s.ListBySymbol(ctx, "DOTUSDT", 1)
	if len(bySymbol) != 1 || bySymbol[0].ID != open.ID {
		t.Errorf("ListBySymbol = %+v", bySymbol)
	}

	n, _ := s.DeleteExpiredBefore(ctx, now.Add(-90*24*time.Hour))
	if n != 1 || s.Len() != 3 {
		t.Errorf("deleted = %d, len = %d", n, s.Len())
	}
}

func TestAnalysisStoreUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewAnalysisStore()

	c := signals.Candidate{Symbol: "btcusdt", FinalScore: 40}
	c.Analysis.Recommendation = signals.RecommendationWait
	_ = s.SaveAnalysis(ctx, c)

	c.FinalScore = 80
	c.Analysis.Recommendation = signals.RecommendationBuy
	_ = s.SaveAnalysis(ctx, c)

	got, ok := s.Get("BTCUSDT")
	if !ok || got.Candidate.FinalScore != 80 || got.Candidate.Analysis.Recommendation != signals.RecommendationBuy {
		t.Errorf("record = %+v", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestSnapshotStoreLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshots.json")
	data := `[
	  {"symbol":"BTCUSDT","price":65000,"avg_funding_rate":0.0001,"avg_open_interest_usd":1e9,"total_volume_usd":5e9},
	  {"symbol":"BADUSDT","price":1,"technical_indicators":{"rsi_signal":"sideways"}},
	  {"price":3}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSnapshotStore()
	n, err := s.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if n != 2 {
		t.Errorf("loaded = %d, want 2", n)
	}

	ctx := context.Background()
	symbols, _ := s.ListSymbols(ctx)
	if len(symbols) != 2 || symbols[0] != "BADUSDT" || symbols[1] != "BTCUSDT" {
		t.Errorf("symbols = %v", symbols)
	}

	snap, err := s.GetSnapshot(ctx, "btcusdt")
	if err != nil || snap.Price != 65000 {
		t.Errorf("snapshot = %+v, %v", snap, err)
	}
	if _, err := s.GetSnapshot(ctx, "BADUSDT"); !errors.Is(err, market.ErrInvalidSnapshot) {
		t.Errorf("bad snapshot err = %v", err)
	}
	if _, err := s.GetSnapshot(ctx, "NONEUSDT"); err == nil || errors.Is(err, market.ErrInvalidSnapshot) {
		t.Errorf("missing snapshot err = %v", err)
	}
}

func TestSnapshotStoreLoadFileErrors(t *testing.T) {
	s := NewSnapshotStore()
	if _, err := s.LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "obj.json")
	_ = os.WriteFile(path, []byte(`{"symbol":"BTCUSDT"}`), 0o644)
	if _, err := s.LoadFile(path); err == nil {
		t.Error("expected error for non-array")
	}
}

func TestSnapshotStorePut(t *testing.T) {
	s := NewSnapshotStore()
	if err := s.Put(market.Snapshot{Symbol: "ethusdt", Price: 3000}); err != nil {
		t.Fatal(err)
	}
	snap, err := s.GetSnapshot(context.Background(), "ETHUSDT")
	if err != nil || snap.Price != 3000 {
		t.Errorf("snapshot = %+v, %v", snap, err)
	}
}
