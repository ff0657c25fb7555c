// application/bootstrap/app.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"smart-money-screener/application/scheduler"
	"smart-money-screener/internal/core/domain/analysis/sr_engine"
	"smart-money-screener/internal/core/domain/signals/dedup"
	"smart-money-screener/internal/core/domain/signals/engine"
	"smart-money-screener/internal/core/domain/signals/lifecycle"
	"smart-money-screener/internal/delivery/api"
	"smart-money-screener/internal/infrastructure/config"
	"smart-money-screener/internal/infrastructure/metrics"
	events "smart-money-screener/internal/infrastructure/transport/event_bus"
	"smart-money-screener/pkg/logger"

	"go.uber.org/multierr"
)

// Application - основное приложение
type Application struct {
	config    *config.Config
	collector *metrics.Collector
	bus       *events.EventBus
	srEngine  *sr_engine.Engine
	tracker   *lifecycle.Tracker
	dedup     *dedup.Deduplicator
	engine    *engine.Engine
	scheduler *scheduler.Scheduler
	server    *api.Server

	memoryDedup *dedup.MemoryCache
	closers     []closer

	mu        sync.RWMutex
	running   bool
	startTime time.Time
	stopOnce  sync.Once
	stopChan  chan struct{}
}

// Run запускает шину, планировщик и HTTP и ждет SIGINT/SIGTERM или Stop
func (app *Application) Run(ctx context.Context) error {
	app.mu.Lock()
	if app.running {
		app.mu.Unlock()
		return errors.New("приложение уже запущено")
	}
	app.running = true
	app.startTime = time.Now()
	app.mu.Unlock()

	logger.Info("🚀 [App] Запуск приложения...")
	app.bus.Start()
	if app.server != nil {
		if err := app.server.Start(); err != nil {
			return multierr.Append(fmt.Errorf("запуск HTTP: %w", err), app.shutdown())
		}
	}
	app.scheduler.Start()
	logger.Info("✅ [App] Приложение запущено и работает")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("🛑 [App] Получен сигнал %v", sig)
	case <-ctx.Done():
		logger.Info("🛑 [App] Контекст завершен")
	case <-app.stopChan:
		logger.Info("🛑 [App] Запрошена остановка")
	}
	return app.shutdown()
}

// Stop просит Run завершиться
func (app *Application) Stop() {
	app.stopOnce.Do(func() { close(app.stopChan) })
}

// shutdown: планировщик (с grace), HTTP, шина, затем хранилища
func (app *Application) shutdown() error {
	app.mu.Lock()
	defer app.mu.Unlock()
	if !app.running {
		return nil
	}

	grace := app.config.ShutdownGrace
	logger.Info("⏳ [App] Graceful shutdown (таймаут: %v)...", grace)

	var errs error
	errs = multierr.Append(errs, app.scheduler.Stop(grace))

	if app.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = multierr.Append(errs, app.server.Stop(ctx))
		cancel()
	}

	app.bus.Stop()
	errs = multierr.Append(errs, closeAll(app.closers))

	app.running = false
	if errs != nil {
		logger.Warn("⚠️ [App] Остановка с ошибками: %v", errs)
	}
	logger.Info("✅ [App] Приложение остановлено. Время работы: %v", time.Since(app.startTime).Round(time.Second))
	return errs
}

// RunOnce - один цикл анализа без планировщика; ресурсы закрываются после
func (app *Application) RunOnce(ctx context.Context) (engine.CycleReport, error) {
	app.bus.Start()
	rep, err := app.engine.RunCycle(ctx)
	app.bus.Stop()
	return rep, multierr.Append(err, app.Close())
}

// Close закрывает хранилища, если приложение не запущено
func (app *Application) Close() error {
	app.mu.Lock()
	defer app.mu.Unlock()
	if app.running {
		return errors.New("приложение запущено, используйте Stop")
	}
	closers := app.closers
	app.closers = nil
	return closeAll(closers)
}

// Status - состояние приложения и задач
func (app *Application) Status() map[string]interface{} {
	app.mu.RLock()
	defer app.mu.RUnlock()

	return map[string]interface{}{
		"running":    app.running,
		"uptime":     time.Since(app.startTime).String(),
		"start_time": app.startTime.Format(time.RFC3339),
		"jobs":       app.scheduler.Jobs(),
		"dedup":      app.dedup.Stats(),
		"event_bus":  app.bus.GetMetrics(),
	}
}

// Engine - движок анализа
func (app *Application) Engine() *engine.Engine { return app.engine }

// Tracker - трекер сигналов
func (app *Application) Tracker() *lifecycle.Tracker { return app.tracker }

// Metrics - коллектор метрик
func (app *Application) Metrics() *metrics.Collector { return app.collector }

func (app *Application) busHealth(ctx context.Context) error {
	if !app.bus.HealthCheck() {
		return errors.New("event bus is not running")
	}
	return nil
}

// closeAll закрывает ресурсы в обратном порядке
func closeAll(closers []closer) error {
	var errs error
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errs
}
