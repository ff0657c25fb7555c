// internal/core/domain/analysis/sr_engine/engine_test.go
package sr_engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smart-money-screener/internal/core/domain/analysis/sr_levels"
)

type fakeProvider struct {
	mu         sync.Mutex
	bookCalls  int
	book       *sr_levels.OrderBook
	tradesErr  error
	candlesErr error
}

func (f *fakeProvider) GetOrderBook(ctx context.Context, symbol string, depth int) (*sr_levels.OrderBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookCalls++
	return f.book, nil
}

func (f *fakeProvider) GetRecentTrades(ctx context.Context, symbol string, limit int) ([]sr_levels.Trade, error) {
	if f.tradesErr != nil {
		return nil, f.tradesErr
	}
	return []sr_levels.Trade{{Price: 100.1, Size: 2}}, nil
}

func (f *fakeProvider) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]sr_levels.Candle, error) {
	return nil, f.candlesErr
}

type memLevelStore struct {
	saved map[string][]sr_levels.Level
}

func (m *memLevelStore) SaveLevels(ctx context.Context, symbol string, levels []sr_levels.Level, ttl time.Duration) error {
	m.saved[symbol] = levels
	return nil
}

func (m *memLevelStore) GetLevels(ctx context.Context, symbol string) ([]sr_levels.Level, bool, error) {
	l, ok := m.saved[symbol]
	return l, ok, nil
}

func testBook() *sr_levels.OrderBook {
	return &sr_levels.OrderBook{
		Bids: []sr_levels.OrderLevel{{Price: 99, Size: 1}, {Price: 98, Size: 1}, {Price: 97, Size: 1}, {Price: 96, Size: 50}},
	}
}

func TestLevelsDegradesOnSourceErrors(t *testing.T) {
	p := &fakeProvider{book: testBook(), tradesErr: errors.New("timeout"), candlesErr: errors.New("boom")}
	e := NewEngine(p, nil, nil, Config{})

	levels, err := e.Levels(context.Background(), "BTCUSDT", 100)
	if err != nil {
		t.Fatalf("Levels: %v", err)
	}
	if len(levels) != 1 || levels[0].Price != 96 {
		t.Errorf("expected only the order book wall, got %+v", levels)
	}
}

func TestOrderBookCacheTTL(t *testing.T) {
	p := &fakeProvider{book: testBook()}
	e := NewEngine(p, nil, nil, Config{OrderBookTTL: time.Minute})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }

	ctx := context.Background()
	_, _ = e.Levels(ctx, "BTCUSDT", 100)
	_, _ = e.Levels(ctx, "BTCUSDT", 100)
	if p.bookCalls != 1 {
		t.Fatalf("second call should hit cache, calls = %d", p.bookCalls)
	}

	now = now.Add(2 * time.Minute)
	_, _ = e.Levels(ctx, "BTCUSDT", 100)
	if p.bookCalls != 2 {
		t.Fatalf("expired entry should refetch, calls = %d", p.bookCalls)
	}

	now = now.Add(2 * time.Minute)
	if removed := e.PurgeExpired(); removed != 1 {
		t.Errorf("PurgeExpired removed %d", removed)
	}
}

func TestLevelStoreShortCircuits(t *testing.T) {
	p := &fakeProvider{book: testBook()}
	store := &memLevelStore{saved: map[string][]sr_levels.Level{}}
	e := NewEngine(p, store, nil, Config{LevelsTTL: time.Minute})

	ctx := context.Background()
	first, _ := e.Levels(ctx, "ETHUSDT", 100)
	if len(store.saved["ETHUSDT"]) != len(first) {
		t.Fatalf("levels were not saved")
	}
	_, _ = e.Levels(ctx, "ETHUSDT", 100)
	if p.bookCalls != 1 {
		t.Errorf("stored levels should skip provider, calls = %d", p.bookCalls)
	}
}

func TestLevelsWithoutProvider(t *testing.T) {
	e := NewEngine(nil, nil, nil, Config{})
	levels, err := e.Levels(context.Background(), "BTCUSDT", 100)
	if err != nil || len(levels) != 0 {
		t.Errorf("expected empty levels, got %+v %v", levels, err)
	}
}
