// application/bootstrap/jobs.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	"smart-money-screener/application/scheduler"
	"smart-money-screener/internal/core/domain/signals/engine"
	"smart-money-screener/pkg/logger"
)

const (
	jobAnalysis     = "analysis"
	jobMonitor      = "monitor"
	jobCleanup      = "cleanup"
	jobCacheCleanup = "cache_cleanup"

	cacheCleanupInterval = 10 * time.Minute
)

func (app *Application) registerJobs() {
	cfg := app.config

	app.scheduler.Register(&scheduler.Job{
		Name:      jobAnalysis,
		Schedule:  scheduler.Every(cfg.Selection.RunInterval),
		Handler:   app.RunAnalysis,
		Timeout:   cfg.Selection.RunInterval,
		Immediate: true,
	})
	app.scheduler.Register(&scheduler.Job{
		Name:     jobMonitor,
		Schedule: scheduler.Every(cfg.Lifecycle.MonitorInterval),
		Handler:  app.Monitor,
		Timeout:  cfg.Lifecycle.MonitorInterval,
	})
	app.scheduler.Register(&scheduler.Job{
		Name:     jobCleanup,
		Schedule: scheduler.DailyAt(cfg.Lifecycle.CleanupHourUTC, 0),
		Handler:  app.Cleanup,
		Timeout:  10 * time.Minute,
	})
	app.scheduler.Register(&scheduler.Job{
		Name:     jobCacheCleanup,
		Schedule: scheduler.Every(cacheCleanupInterval),
		Handler:  app.purgeCaches,
	})
}

// RunAnalysis - один цикл анализа; метрики цикла пишет подписчик шины
func (app *Application) RunAnalysis(ctx context.Context) error {
	_, err := app.engine.RunCycle(ctx)
	if errors.Is(err, engine.ErrCycleInProgress) {
		logger.Debug("⏭️ [App] Цикл анализа еще идет")
		return nil
	}
	return err
}

// Monitor - проход по открытым сигналам
func (app *Application) Monitor(ctx context.Context) error {
	rep, err := app.tracker.MonitorOnce(ctx)
	if rep.PriceErrors > 0 {
		app.collector.PriceErrors.Add(float64(rep.PriceErrors))
	}
	return err
}

// Cleanup удаляет старые expired сигналы
func (app *Application) Cleanup(ctx context.Context) error {
	_, err := app.tracker.Cleanup(ctx)
	return err
}

func (app *Application) purgeCaches(ctx context.Context) error {
	books := app.srEngine.PurgeExpired()
	keys, left := 0, 0
	if app.memoryDedup != nil {
		keys = app.memoryDedup.Cleanup()
		left = app.memoryDedup.Len()
	}
	if books+keys > 0 {
		logger.Debug("🧹 [App] Кэши очищены: стаканов %d, ключей дедупликации %d (осталось %d)", books, keys, left)
	}
	return nil
}
