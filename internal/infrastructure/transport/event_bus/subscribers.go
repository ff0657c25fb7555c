// internal/infrastructure/transport/event_bus/subscribers.go
package events

import (
	"fmt"
	"strings"

	"smart-money-screener/internal/core/domain/signals"
	"smart-money-screener/internal/core/domain/signals/engine"
	"smart-money-screener/internal/infrastructure/metrics"
	"smart-money-screener/pkg/logger"
)

// BaseSubscriber - базовая реализация подписчика
type BaseSubscriber struct {
	name             string
	subscribedEvents []signals.EventType
	handler          func(signals.Event) error
}

// NewBaseSubscriber создает нового подписчика
func NewBaseSubscriber(name string, events []signals.EventType, handler func(signals.Event) error) *BaseSubscriber {
	return &BaseSubscriber{
		name:             name,
		subscribedEvents: events,
		handler:          handler,
	}
}

// HandleEvent обрабатывает событие
func (s *BaseSubscriber) HandleEvent(event signals.Event) error {
	return s.handler(event)
}

// GetName возвращает имя подписчика
func (s *BaseSubscriber) GetName() string {
	return s.name
}

// GetSubscribedEvents возвращает типы событий
func (s *BaseSubscriber) GetSubscribedEvents() []signals.EventType {
	return s.subscribedEvents
}

var lifecycleEvents = []signals.EventType{
	signals.EventSignalCreated,
	signals.EventSignalActivated,
	signals.EventSignalClosed,
	signals.EventSignalExpired,
}

// NewJournalSubscriber - журнал жизненного цикла сигналов в лог
func NewJournalSubscriber() *BaseSubscriber {
	return NewBaseSubscriber(
		"signal_journal",
		append(append([]signals.EventType(nil), lifecycleEvents...), signals.EventError),
		func(event signals.Event) error {
			if event.Type == signals.EventError {
				logger.Warn("🚨 [Journal] Ошибка от %s: %v", event.Source, event.Data)
				return nil
			}
			tr, ok := event.Data.(signals.Transition)
			if !ok || tr.Signal == nil {
				return fmt.Errorf("unexpected payload %T for %s", event.Data, event.Type)
			}
			s := tr.Signal
			logger.Info("📒 [Journal] %s %s %s: %s → %s, score %d, id %s",
				event.Type, s.Symbol, strings.ToUpper(string(s.Direction)),
				fromStatus(tr.From), s.Status, s.FinalScore, s.ID)
			return nil
		},
	)
}

func fromStatus(s signals.Status) string {
	if s == "" {
		return "new"
	}
	return string(s)
}

// NewMetricsSubscriber - переводит события в prometheus метрики
func NewMetricsSubscriber(c *metrics.Collector) *BaseSubscriber {
	return NewBaseSubscriber(
		"prometheus_metrics",
		append(append([]signals.EventType(nil), lifecycleEvents...), signals.EventCycleCompleted),
		func(event signals.Event) error {
			switch data := event.Data.(type) {
			case signals.Transition:
				if data.Signal == nil {
					return nil
				}
				s := data.Signal
				if event.Type == signals.EventSignalCreated {
					c.CreatedTotal.WithLabelValues(string(s.Direction)).Inc()
					return nil
				}
				c.Transitions.WithLabelValues(string(s.Status)).Inc()
				if s.Result != nil && s.Status.IsTerminal() {
					c.PnLPercent.WithLabelValues(string(s.Status)).Observe(s.Result.PnLPercent)
				}
			case engine.CycleReport:
				c.ObserveCycle(metrics.CycleStats{
					Duration:   data.Duration,
					Analyzed:   data.Analyzed,
					Skipped:    data.Skipped,
					Errors:     data.Errors,
					Candidates: data.Candidates,
					Duplicates: data.Duplicates,
					Selected:   data.Selected,
				})
			}
			return nil
		},
	)
}
