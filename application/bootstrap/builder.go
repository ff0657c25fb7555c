// application/bootstrap/builder.go
package bootstrap

import (
	"context"
	"fmt"

	"smart-money-screener/application/scheduler"
	"smart-money-screener/internal/core/domain/analysis/sr_engine"
	"smart-money-screener/internal/core/domain/analysis/sr_levels"
	"smart-money-screener/internal/core/domain/signals"
	"smart-money-screener/internal/core/domain/signals/dedup"
	"smart-money-screener/internal/core/domain/signals/engine"
	"smart-money-screener/internal/core/domain/signals/finalscore"
	"smart-money-screener/internal/core/domain/signals/lifecycle"
	"smart-money-screener/internal/core/domain/signals/scorer"
	"smart-money-screener/internal/core/domain/signals/selector"
	"smart-money-screener/internal/delivery/api"
	"smart-money-screener/internal/infrastructure/api/exchanges/binance"
	"smart-money-screener/internal/infrastructure/config"
	"smart-money-screener/internal/infrastructure/metrics"
	events "smart-money-screener/internal/infrastructure/transport/event_bus"
	"smart-money-screener/pkg/logger"
)

// MarketData - котировки и рыночные данные биржи
type MarketData interface {
	lifecycle.PriceProvider
	sr_engine.MarketDataProvider
}

// AppBuilder строитель приложения
type AppBuilder struct {
	config     *config.Config
	marketData MarketData
	options    []AppOption
}

// AppOption опция для настройки приложения
type AppOption func(*Application) error

// NewAppBuilder создает новый строитель приложений
func NewAppBuilder() *AppBuilder {
	return &AppBuilder{}
}

// WithConfig устанавливает конфигурацию
func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	b.config = cfg
	return b
}

// WithMarketData подменяет клиент Binance
func (b *AppBuilder) WithMarketData(md MarketData) *AppBuilder {
	b.marketData = md
	return b
}

// WithOption добавляет опцию настройки
func (b *AppBuilder) WithOption(option AppOption) *AppBuilder {
	b.options = append(b.options, option)
	return b
}

// Build подключает хранилища и собирает граф зависимостей
func (b *AppBuilder) Build(ctx context.Context) (*Application, error) {
	if b.config == nil {
		cfg, err := config.LoadConfig(".env")
		if err != nil {
			return nil, fmt.Errorf("загрузка конфигурации: %w", err)
		}
		b.config = cfg
	}
	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	be, err := buildBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("хранилища: %w", err)
	}

	app := &Application{
		config:    cfg,
		collector: metrics.New(),
		closers:   be.closers,
		stopChan:  make(chan struct{}),
	}

	factory := &events.Factory{}
	app.bus = factory.NewEventBusFromConfig(cfg, app.collector)
	factory.RegisterDefaultSubscribers(app.bus, app.collector)

	md := b.marketData
	if md == nil {
		md = binance.NewClient(cfg.Binance)
	}

	app.srEngine = sr_engine.NewEngine(md, be.levels, sr_levels.NewAnalyzer(sr_levels.Config{
		Depth:            cfg.SR.OrderBookDepth,
		VolumeRatio:      cfg.SR.VolumeRatio,
		ClusterThreshold: cfg.SR.ClusterThreshold,
		PivotWindow:      cfg.SR.PivotWindow,
		MaxPivotLevels:   cfg.SR.MaxPivotLevels,
	}), sr_engine.Config{
		OrderBookDepth: cfg.SR.OrderBookDepth,
		TradesLimit:    cfg.SR.TradesLimit,
		KlineInterval:  cfg.SR.KlineInterval,
		KlineLimit:     cfg.SR.KlineLimit,
		LevelsTTL:      cfg.SR.LevelsTTL,
	})

	app.tracker = lifecycle.NewTracker(be.signals, md, app.bus, lifecycle.Config{
		SignalTTL:           cfg.Lifecycle.SignalTTL,
		ExistenceWindow:     cfg.Lifecycle.ExistenceWindow,
		PositionNotionalUSD: cfg.Lifecycle.PositionNotionalUSD,
		MonitorConcurrency:  cfg.Lifecycle.MonitorConcurrency,
		CleanupRetention:    cfg.Lifecycle.CleanupRetention,
	})

	app.dedup = dedup.New(be.recency, be.signals, dedup.Config{
		Window:              cfg.Dedup.Window,
		SimilarityThreshold: cfg.Dedup.Similarity,
	})
	app.memoryDedup = be.memoryDedup

	app.engine, err = engine.New(engine.Dependencies{
		Snapshots:  be.snapshots,
		Levels:     app.srEngine,
		Scorer:     scorer.New(thresholdsFrom(cfg.Strategy)),
		Calculator: finalscore.New(finalscore.DefaultWeights()),
		Dedup:      app.dedup,
		Creator:    app.tracker,
		Saver:      be.analysis,
		Publisher:  app.bus,
	}, engine.Config{
		MaxWorkers:        cfg.Selection.MaxWorkers,
		CandidateMinScore: cfg.Selection.CandidateMinScore,
		MinVolumeUSD:      cfg.Selection.MinVolumeUSD,
		Symbols:           cfg.Selection.Symbols,
		ExcludeSymbols:    cfg.Selection.ExcludeSymbols,
		Selection: selector.Options{
			MinScore:          cfg.Selection.MinScoreToSelect,
			MaxSignals:        cfg.Selection.MaxSignalsPerCycle,
			BalanceDirections: cfg.Selection.BalanceDirections,
		},
		Filters: selector.Filters{
			MinConfidence:     cfg.Selection.MinConfidence,
			Direction:         signals.Direction(cfg.Selection.Direction),
			MinTechnicalScore: cfg.Selection.MinTechnicalScore,
		},
	})
	if err != nil {
		closeAll(app.closers)
		return nil, err
	}

	app.scheduler = scheduler.New(cfg.SchedulerResolution)
	app.scheduler.OnRun = app.collector.ObserveJob
	app.registerJobs()

	if cfg.HTTP.Enabled {
		h := api.NewHandler(app.tracker, app.collector.Handler())
		for name, check := range be.checks {
			h.AddHealthCheck(name, check)
		}
		h.AddHealthCheck("event_bus", app.busHealth)
		if be.cache != nil {
			h.UseStatsCache(be.cache, cfg.HTTP.StatsCacheTTL)
			h.UseRateLimit(be.cache, cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
		}
		app.server = api.NewServer(cfg.HTTP.Port, h)
	}

	for _, option := range b.options {
		if err := option(app); err != nil {
			closeAll(app.closers)
			return nil, fmt.Errorf("применение опции: %w", err)
		}
	}

	logger.Info("🏗️ [Bootstrap] Приложение собрано: хранилище %s, Redis %v, HTTP %v",
		storageName(cfg), cfg.Redis.Enabled, cfg.HTTP.Enabled)
	return app, nil
}

func thresholdsFrom(s config.StrategyConfig) scorer.Thresholds {
	return scorer.Thresholds{
		ExtremeFundingThreshold: s.ExtremeFundingThreshold,
		MinLiquidationsUSD:      s.MinLiquidationsUSD,
		LiquidationBiasRatio:    s.LiquidationBiasRatio,
		MinOpenInterestUSD:      s.MinOpenInterestUSD,
		TakeProfitPercent:       s.TPRatio,
		StopLossPercent:         s.SLRatio,
		EntryDeviationPercent:   s.EntryDeviationPercent,
	}
}

func storageName(cfg *config.Config) string {
	if cfg.StorageBackend == "" {
		return "postgres"
	}
	return cfg.StorageBackend
}

// WithoutHTTP отключает HTTP сервер
func WithoutHTTP() AppOption {
	return func(app *Application) error {
		app.server = nil
		return nil
	}
}
