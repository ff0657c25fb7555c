// internal/core/domain/analysis/sr_engine/engine.go
package sr_engine

import (
	"context"
	"sync"
	"time"

	"smart-money-screener/internal/core/domain/analysis/sr_levels"
	"smart-money-screener/pkg/logger"
)

// MarketDataProvider - источник стакана, ленты сделок и свечей.
type MarketDataProvider interface {
	GetOrderBook(ctx context.Context, symbol string, depth int) (*sr_levels.OrderBook, error)
	GetRecentTrades(ctx context.Context, symbol string, limit int) ([]sr_levels.Trade, error)
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]sr_levels.Candle, error)
}

// LevelStore - кэш рассчитанных уровней (Redis ZSET).
type LevelStore interface {
	SaveLevels(ctx context.Context, symbol string, levels []sr_levels.Level, ttl time.Duration) error
	GetLevels(ctx context.Context, symbol string) ([]sr_levels.Level, bool, error)
}

// Config - параметры сбора данных
type Config struct {
	OrderBookDepth int
	TradesLimit    int
	KlineInterval  string
	KlineLimit     int
	OrderBookTTL   time.Duration
	LevelsTTL      time.Duration
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		OrderBookDepth: 20,
		TradesLimit:    500,
		KlineInterval:  "15m",
		KlineLimit:     100,
		OrderBookTTL:   60 * time.Second,
		LevelsTTL:      time.Minute,
	}
}

// Engine - движок расчёта S/R уровней для цикла анализа.
type Engine struct {
	provider MarketDataProvider
	store    LevelStore
	analyzer *sr_levels.Analyzer
	cfg      Config
	now      func() time.Time

	// Кэш стакана: symbol → (book, expiry)
	obCacheMu sync.RWMutex
	obCache   map[string]obCacheEntry
}

type obCacheEntry struct {
	book   *sr_levels.OrderBook
	expiry time.Time
}

// NewEngine создаёт движок; store может быть nil.
func NewEngine(provider MarketDataProvider, store LevelStore, analyzer *sr_levels.Analyzer, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.OrderBookDepth <= 0 {
		cfg.OrderBookDepth = def.OrderBookDepth
	}
	if cfg.TradesLimit <= 0 {
		cfg.TradesLimit = def.TradesLimit
	}
	if cfg.KlineInterval == "" {
		cfg.KlineInterval = def.KlineInterval
	}
	if cfg.KlineLimit <= 0 {
		cfg.KlineLimit = def.KlineLimit
	}
	if cfg.OrderBookTTL <= 0 {
		cfg.OrderBookTTL = def.OrderBookTTL
	}
	if analyzer == nil {
		analyzer = sr_levels.NewAnalyzer(sr_levels.DefaultConfig())
	}
	return &Engine{
		provider: provider,
		store:    store,
		analyzer: analyzer,
		cfg:      cfg,
		now:      time.Now,
		obCache:  make(map[string]obCacheEntry),
	}
}

// Levels возвращает уровни для символа. Ошибки источников не фатальны:
// упавший источник просто не даёт уровней.
func (e *Engine) Levels(ctx context.Context, symbol string, lastPrice float64) ([]sr_levels.Level, error) {
	if e.store != nil {
		if levels, ok, err := e.store.GetLevels(ctx, symbol); err != nil {
			logger.Debug("⚠️ [SREngine] кэш уровней %s недоступен: %v", symbol, err)
		} else if ok {
			return levels, nil
		}
	}

	data := sr_levels.MarketData{Symbol: symbol, LastPrice: lastPrice}
	if e.provider != nil {
		data.OrderBook = e.getOrderBookCached(ctx, symbol)

		trades, err := e.provider.GetRecentTrades(ctx, symbol, e.cfg.TradesLimit)
		if err != nil {
			logger.Debug("⚠️ [SREngine] %s: лента сделок недоступна: %v", symbol, err)
		}
		data.Trades = trades

		candles, err := e.provider.GetCandles(ctx, symbol, e.cfg.KlineInterval, e.cfg.KlineLimit)
		if err != nil {
			logger.Debug("⚠️ [SREngine] %s: свечи недоступны: %v", symbol, err)
		}
		data.Candles = candles
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	levels := e.analyzer.Analyze(data)

	if e.store != nil && e.cfg.LevelsTTL > 0 && len(levels) > 0 {
		if err := e.store.SaveLevels(ctx, symbol, levels, e.cfg.LevelsTTL); err != nil {
			logger.Warn("⚠️ [SREngine] ошибка сохранения уровней %s: %v", symbol, err)
		}
	}

	logger.Debug("📐 [SREngine] %s → %d уровней", symbol, len(levels))
	return levels, nil
}

// getOrderBookCached возвращает стакан из кэша или запрашивает у биржи.
func (e *Engine) getOrderBookCached(ctx context.Context, symbol string) *sr_levels.OrderBook {
	now := e.now()

	e.obCacheMu.RLock()
	if entry, ok := e.obCache[symbol]; ok && now.Before(entry.expiry) {
		e.obCacheMu.RUnlock()
		return entry.book
	}
	e.obCacheMu.RUnlock()

	book, err := e.provider.GetOrderBook(ctx, symbol, e.cfg.OrderBookDepth)
	if err != nil {
		logger.Debug("⚠️ [SREngine] %s: стакан недоступен: %v", symbol, err)
		return nil
	}

	e.obCacheMu.Lock()
	e.obCache[symbol] = obCacheEntry{book: book, expiry: now.Add(e.cfg.OrderBookTTL)}
	e.obCacheMu.Unlock()

	return book
}

// PurgeExpired чистит просроченные записи кэша стакана
func (e *Engine) PurgeExpired() int {
	now := e.now()
	e.obCacheMu.Lock()
	defer e.obCacheMu.Unlock()

	removed := 0
	for symbol, entry := range e.obCache {
		if !now.Before(entry.expiry) {
			delete(e.obCache, symbol)
			removed++
		}
	}
	return removed
}
