// internal/core/domain/signals/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"smart-money-screener/internal/core/domain/analysis/sr_levels"
	"smart-money-screener/internal/core/domain/market"
	"smart-money-screener/internal/core/domain/signals"
	"smart-money-screener/internal/core/domain/signals/finalscore"
	"smart-money-screener/internal/core/domain/signals/scorer"
	"smart-money-screener/internal/core/domain/signals/selector"
	"smart-money-screener/pkg/logger"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const eventSource = "analysis_engine"

// SnapshotProvider - источник снапшотов рынка
type SnapshotProvider interface {
	ListSymbols(ctx context.Context) ([]string, error)
	GetSnapshot(ctx context.Context, symbol string) (market.Snapshot, error)
}

// LevelProvider - S/R уровни для символа
type LevelProvider interface {
	Levels(ctx context.Context, symbol string, lastPrice float64) ([]sr_levels.Level, error)
}

// Creator - создание сигнала (трекер)
type Creator interface {
	Create(ctx context.Context, cand signals.Candidate) (*signals.Signal, error)
}

// AnalysisSaver - upsert последнего анализа по символу
type AnalysisSaver interface {
	SaveAnalysis(ctx context.Context, cand signals.Candidate) error
}

// Deduper - подавление повторов
type Deduper interface {
	Filter(ctx context.Context, cands []signals.Candidate) []signals.Candidate
	Remember(ctx context.Context, symbol string, dir signals.Direction)
}

// Config - параметры цикла
type Config struct {
	MaxWorkers        int
	CandidateMinScore int
	MinVolumeUSD      float64
	Symbols           []string // пусто - все символы провайдера
	ExcludeSymbols    []string
	Selection         selector.Options
	Filters           selector.Filters // применяются к не-дубликатам перед отбором
}

// DefaultConfig - значения по умолчанию
func DefaultConfig() Config {
	return Config{
		MaxWorkers:        8,
		CandidateMinScore: 60,
		MinVolumeUSD:      1_000_000,
		Selection:         selector.DefaultOptions(),
	}
}

// Dependencies - зависимости движка; Levels, Saver, Dedup, Publisher опциональны
type Dependencies struct {
	Snapshots  SnapshotProvider
	Levels     LevelProvider
	Scorer     *scorer.Scorer
	Calculator *finalscore.Calculator
	Dedup      Deduper
	Creator    Creator
	Saver      AnalysisSaver
	Publisher  signals.Publisher
}

// CycleReport - итог одного цикла анализа
type CycleReport struct {
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration"`
	Symbols    int              `json:"symbols"`
	Analyzed   int              `json:"analyzed"`
	Skipped    int              `json:"skipped"`
	Errors     int              `json:"errors"`
	Candidates int              `json:"candidates"`
	Duplicates int              `json:"duplicates"`
	Filtered   int              `json:"filtered"`
	Selected   int              `json:"selected"`
	Created    int              `json:"created"`
	Existing   int              `json:"existing"`
	Signals    []signals.Signal `json:"signals,omitempty"`
	Analytics  selector.Report  `json:"analytics"`
}

// Engine - цикл: снапшоты → скоринг → кандидаты → дедупликация → отбор → создание
type Engine struct {
	deps    Dependencies
	cfg     Config
	exclude map[string]struct{}
	now     func() time.Time
	running atomic.Bool
}

// ErrCycleInProgress - предыдущий цикл еще не завершен
var ErrCycleInProgress = errors.New("analysis cycle already running")

// New создает движок
func New(deps Dependencies, cfg Config) (*Engine, error) {
	if deps.Snapshots == nil || deps.Creator == nil {
		return nil, fmt.Errorf("engine: snapshot provider and creator are required")
	}
	if deps.Scorer == nil {
		deps.Scorer = scorer.New(scorer.DefaultThresholds())
	}
	if deps.Calculator == nil {
		deps.Calculator = finalscore.New(finalscore.DefaultWeights())
	}

	def := DefaultConfig()
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = def.MaxWorkers
	}
	if cfg.Selection.MaxSignals <= 0 {
		cfg.Selection = def.Selection
	}

	exclude := make(map[string]struct{}, len(cfg.ExcludeSymbols))
	for _, s := range cfg.ExcludeSymbols {
		exclude[strings.ToUpper(s)] = struct{}{}
	}
	return &Engine{deps: deps, cfg: cfg, exclude: exclude, now: time.Now}, nil
}

type outcome struct {
	cand    *signals.Candidate
	skipped bool
	err     error
}

// RunCycle выполняет один цикл. Пустой пул кандидатов - не ошибка.
// Ошибки создания сигналов агрегируются и возвращаются вместе с отчетом.
func (e *Engine) RunCycle(ctx context.Context) (CycleReport, error) {
	if !e.running.CompareAndSwap(false, true) {
		return CycleReport{}, ErrCycleInProgress
	}
	defer e.running.Store(false)

	start := e.now()
	report := CycleReport{StartedAt: start}

	symbols, err := e.symbols(ctx)
	if err != nil {
		e.publish(signals.EventError, err.Error())
		return report, fmt.Errorf("Engine.RunCycle: %w", err)
	}
	report.Symbols = len(symbols)

	outcomes := make([]outcome, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxWorkers)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			if gctx.Err() != nil {
				outcomes[i] = outcome{err: gctx.Err()}
				return nil
			}
			outcomes[i] = e.analyze(gctx, sym)
			return nil
		})
	}
	_ = g.Wait()

	var pool []signals.Candidate
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			report.Errors++
		case o.skipped:
			report.Skipped++
		case o.cand != nil:
			report.Analyzed++
			if _, ok := o.cand.Direction(); ok && o.cand.FinalScore >= e.cfg.CandidateMinScore {
				pool = append(pool, *o.cand)
			}
		}
	}
	report.Candidates = len(pool)
	report.Analytics = selector.Analytics(pool)

	fresh := pool
	if e.deps.Dedup != nil {
		fresh = e.deps.Dedup.Filter(ctx, pool)
	}
	report.Duplicates = len(pool) - len(fresh)

	passed := selector.ApplyFilters(fresh, e.cfg.Filters)
	report.Filtered = len(fresh) - len(passed)

	selected := selector.Select(passed, e.cfg.Selection)
	report.Selected = len(selected)

	var errs error
	for _, c := range selected {
		sig, err := e.deps.Creator.Create(ctx, c)
		switch {
		case errors.Is(err, signals.ErrOpenSignalExists):
			report.Existing++
			logger.Debug("🔁 [Engine] %s: открытый сигнал уже есть", c.Symbol)
		case err != nil:
			errs = multierr.Append(errs, fmt.Errorf("create %s: %w", c.Symbol, err))
		default:
			report.Created++
			report.Signals = append(report.Signals, *sig)
			if e.deps.Dedup != nil {
				e.deps.Dedup.Remember(ctx, sig.Symbol, sig.Direction)
			}
		}
	}

	report.Duration = e.now().Sub(start)
	logger.Info("🔄 [Engine] Цикл завершен за %v: символов %d, проанализировано %d, пропущено %d, ошибок %d, кандидатов %d, дублей %d, отфильтровано %d, создано %d",
		report.Duration.Round(time.Millisecond), report.Symbols, report.Analyzed, report.Skipped,
		report.Errors, report.Candidates, report.Duplicates, report.Filtered, report.Created)

	if errs != nil {
		e.publish(signals.EventError, errs.Error())
	}
	e.publish(signals.EventCycleCompleted, report)
	return report, errs
}

func (e *Engine) symbols(ctx context.Context) ([]string, error) {
	list := e.cfg.Symbols
	if len(list) == 0 {
		var err error
		if list, err = e.deps.Snapshots.ListSymbols(ctx); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := e.exclude[s]; ok {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// analyze - один актив; ошибки изолированы
func (e *Engine) analyze(ctx context.Context, symbol string) outcome {
	started := e.now()

	snap, err := e.deps.Snapshots.GetSnapshot(ctx, symbol)
	if err != nil {
		if errors.Is(err, market.ErrInvalidSnapshot) {
			logger.Debug("⏭️ [Engine] %s пропущен: %v", symbol, err)
			return outcome{skipped: true}
		}
		logger.Warn("⚠️ [Engine] Снапшот %s недоступен: %v", symbol, err)
		return outcome{err: err}
	}
	if err := snap.Validate(); err != nil {
		logger.Debug("⏭️ [Engine] %s пропущен: %v", symbol, err)
		return outcome{skipped: true}
	}
	if reason := market.SkipReason(snap, e.cfg.MinVolumeUSD); reason != "" {
		logger.Debug("⏭️ [Engine] %s пропущен: %s", symbol, reason)
		return outcome{skipped: true}
	}
	snap.Symbol = symbol

	var levels []sr_levels.Level
	if e.deps.Levels != nil {
		if levels, err = e.deps.Levels.Levels(ctx, snap.Symbol, snap.Price); err != nil {
			logger.Warn("⚠️ [Engine] S/R уровни %s недоступны: %v", symbol, err)
			levels = nil
		}
	}

	cand := signals.Candidate{
		Symbol:         snap.Symbol,
		Analysis:       e.deps.Scorer.Analyze(snap, levels),
		Snapshot:       snap,
		Levels:         levels,
		TechnicalScore: market.TechnicalScore(snap.Indicators),
	}
	cand.FinalScore = e.deps.Calculator.Calculate(cand)
	cand.ProcessingTime = e.now().Sub(started)

	if e.deps.Saver != nil {
		if err := e.deps.Saver.SaveAnalysis(ctx, cand); err != nil {
			logger.Warn("⚠️ [Engine] Не удалось сохранить анализ %s: %v", symbol, err)
		}
	}
	return outcome{cand: &cand}
}

func (e *Engine) publish(typ signals.EventType, data interface{}) {
	if e.deps.Publisher == nil {
		return
	}
	if err := e.deps.Publisher.Publish(signals.Event{
		Type:      typ,
		Source:    eventSource,
		Data:      data,
		Timestamp: e.now(),
	}); err != nil {
		logger.Warn("⚠️ [Engine] Событие %s не опубликовано: %v", typ, err)
	}
}

// Explain - разбор скоринга одного символа без создания сигналов
func (e *Engine) Explain(ctx context.Context, symbol string) (Explanation, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	snap, err := e.deps.Snapshots.GetSnapshot(ctx, symbol)
	if err != nil {
		return Explanation{}, fmt.Errorf("Engine.Explain: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return Explanation{}, fmt.Errorf("Engine.Explain: %w", err)
	}
	snap.Symbol = symbol

	var levels []sr_levels.Level
	if e.deps.Levels != nil {
		if levels, err = e.deps.Levels.Levels(ctx, snap.Symbol, snap.Price); err != nil {
			logger.Warn("⚠️ [Engine] S/R уровни %s недоступны: %v", symbol, err)
			levels = nil
		}
	}
	res, steps := e.deps.Scorer.Explain(snap, levels)
	cand := signals.Candidate{
		Symbol:         snap.Symbol,
		Analysis:       res,
		Snapshot:       snap,
		Levels:         levels,
		TechnicalScore: market.TechnicalScore(snap.Indicators),
	}
	return Explanation{
		Candidate: cand,
		Steps:     steps,
		Score:     e.deps.Calculator.Explain(cand),
	}, nil
}

// Explanation - полный разбор оценки символа
type Explanation struct {
	Candidate signals.Candidate    `json:"candidate"`
	Steps     []scorer.Step        `json:"steps"`
	Score     finalscore.Breakdown `json:"score"`
}
