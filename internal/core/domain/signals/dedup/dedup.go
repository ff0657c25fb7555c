// internal/core/domain/signals/dedup/dedup.go
package dedup

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"smart-money-screener/internal/core/domain/signals"
	"smart-money-screener/pkg/logger"
)

// SignalFinder - авторитетный поиск открытого сигнала в хранилище.
// Возвращает nil, nil если сигнала нет.
type SignalFinder interface {
	FindOpenSince(ctx context.Context, symbol string, dir signals.Direction, since time.Time) (*signals.Signal, error)
}

// Config - параметры дедупликации
type Config struct {
	Window              time.Duration
	SimilarityThreshold float64
}

// DefaultConfig: окно 2 часа, порог сходства 0.6
func DefaultConfig() Config {
	return Config{Window: 2 * time.Hour, SimilarityThreshold: 0.6}
}

// Stats - счетчики дедупликатора
type Stats struct {
	Checked    int64 `json:"checked"`
	Duplicates int64 `json:"duplicates"`
	CacheHits  int64 `json:"cache_hits"`
	StoreHits  int64 `json:"store_hits"`
	Errors     int64 `json:"errors"`
}

// Deduplicator подавляет повторные сигналы по (символ, направление) в окне.
// Любая ошибка трактуется как "не дубликат".
type Deduplicator struct {
	cache  RecencyCache
	finder SignalFinder
	cfg    Config
	now    func() time.Time

	checked    atomic.Int64
	duplicates atomic.Int64
	cacheHits  atomic.Int64
	storeHits  atomic.Int64
	errors     atomic.Int64
}

// New создает дедупликатор; cache и finder могут быть nil
func New(cache RecencyCache, finder SignalFinder, cfg Config) *Deduplicator {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	return &Deduplicator{cache: cache, finder: finder, cfg: cfg, now: time.Now}
}

// Key - ключ кэша для пары символ/направление
func Key(symbol string, dir signals.Direction) string {
	return strings.ToUpper(symbol) + "_" + string(dir)
}

// IsDuplicate проверяет кэш, затем хранилище
func (d *Deduplicator) IsDuplicate(ctx context.Context, symbol string, dir signals.Direction, analysis signals.AnalysisResult) bool {
	d.checked.Add(1)
	now := d.now()
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	key := Key(symbol, dir)

	if d.cache != nil {
		at, ok, err := d.cache.Get(ctx, key)
		switch {
		case err != nil:
			d.errors.Add(1)
			logger.Warn("⚠️ [Dedup] Ошибка кэша для %s: %v", key, err)
		case ok && now.Sub(at) < d.cfg.Window:
			d.cacheHits.Add(1)
			d.duplicates.Add(1)
			logger.Debug("🔁 [Dedup] %s найден в кэше (%s назад)", key, now.Sub(at).Round(time.Second))
			return true
		}
	}

	if d.finder == nil {
		return false
	}

	prev, err := d.finder.FindOpenSince(ctx, symbol, dir, now.Add(-d.cfg.Window))
	if err != nil {
		d.errors.Add(1)
		logger.Warn("⚠️ [Dedup] Ошибка поиска сигнала %s: %v", key, err)
		return false
	}
	if prev == nil {
		return false
	}

	if !d.sameReasoning(prev.Reasoning, analysis.Reasoning) {
		logger.Debug("🔄 [Dedup] %s: обоснование изменилось, сигнал пропускается дальше", key)
		return false
	}

	d.storeHits.Add(1)
	d.duplicates.Add(1)
	d.remember(ctx, key, now)
	return true
}

func (d *Deduplicator) sameReasoning(prev, next []string) bool {
	if len(prev) == 0 || len(next) == 0 {
		return false
	}
	return Jaccard(prev, next) >= d.cfg.SimilarityThreshold
}

// Filter возвращает не-дубликаты в исходном порядке; wait отбрасывается
func (d *Deduplicator) Filter(ctx context.Context, cands []signals.Candidate) []signals.Candidate {
	out := make([]signals.Candidate, 0, len(cands))
	for _, c := range cands {
		dir, ok := c.Direction()
		if !ok {
			continue
		}
		if d.IsDuplicate(ctx, c.Symbol, dir, c.Analysis) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Remember отмечает созданный сигнал в кэше
func (d *Deduplicator) Remember(ctx context.Context, symbol string, dir signals.Direction) {
	d.remember(ctx, Key(symbol, dir), d.now())
}

func (d *Deduplicator) remember(ctx context.Context, key string, at time.Time) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Set(ctx, key, at, d.cfg.Window); err != nil {
		d.errors.Add(1)
		logger.Warn("⚠️ [Dedup] Не удалось обновить кэш %s: %v", key, err)
	}
}

// Stats возвращает снимок счетчиков
func (d *Deduplicator) Stats() Stats {
	return Stats{
		Checked:    d.checked.Load(),
		Duplicates: d.duplicates.Load(),
		CacheHits:  d.cacheHits.Load(),
		StoreHits:  d.storeHits.Load(),
		Errors:     d.errors.Load(),
	}
}

// Jaccard - мера сходства множеств строк: |A∩B| / |A∪B|
func Jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}

	inter := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}
