// internal/infrastructure/transport/event_bus/factory.go
package events

import (
	"smart-money-screener/internal/core/domain/signals"
	"smart-money-screener/internal/infrastructure/config"
	"smart-money-screener/internal/infrastructure/metrics"
)

// Factory - фабрика для создания EventBus
type Factory struct{}

// NewEventBusFromConfig создает шину и подключает метрики потерь
func (f *Factory) NewEventBusFromConfig(cfg *config.Config, collector *metrics.Collector) *EventBus {
	bus := NewEventBus(EventBusConfig{
		BufferSize:     cfg.EventBus.BufferSize,
		WorkerCount:    cfg.EventBus.WorkerCount,
		EnableLogging:  true,
		MetricsLogRate: DefaultConfig.MetricsLogRate,
	})

	if cfg.Logging.DebugMode || cfg.Logging.Level == "debug" {
		bus.AddMiddleware(&LoggingMiddleware{})
	}
	bus.AddMiddleware(&ValidationMiddleware{})

	if collector != nil {
		bus.OnDrop = func(signals.Event) { collector.EventsDropped.Inc() }
		bus.OnFailure = func(subscriber string, _ signals.Event, _ error) {
			collector.EventsFailed.WithLabelValues(subscriber).Inc()
		}
	}
	return bus
}

// RegisterDefaultSubscribers регистрирует журнал и метрики
func (f *Factory) RegisterDefaultSubscribers(bus *EventBus, collector *metrics.Collector) {
	bus.SubscribeAll(NewJournalSubscriber())
	if collector != nil {
		bus.SubscribeAll(NewMetricsSubscriber(collector))
	}
}
