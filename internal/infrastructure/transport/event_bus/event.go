// internal/infrastructure/transport/event_bus/event.go
package events

import (
	"sync"
	"time"

	"smart-money-screener/internal/core/domain/signals"
)

// Middleware - промежуточное ПО для обработки событий
type Middleware interface {
	Process(event signals.Event, next HandlerFunc) error
}

// HandlerFunc - функция обработки события
type HandlerFunc func(event signals.Event) error

// EventSubscriber - подписчик шины
type EventSubscriber interface {
	HandleEvent(event signals.Event) error
	GetName() string
	GetSubscribedEvents() []signals.EventType
}

// BusMetrics - внутренние счетчики шины
type BusMetrics struct {
	EventsPublished  int64                     `json:"events_published"`
	EventsProcessed  int64                     `json:"events_processed"`
	EventsFailed     int64                     `json:"events_failed"`
	EventsDropped    int64                     `json:"events_dropped"`
	PanicsRecovered  int64                     `json:"panics_recovered"`
	ProcessingTime   time.Duration             `json:"processing_time"`
	SubscribersCount map[signals.EventType]int `json:"subscribers_count"`
}

// busCounters - BusMetrics под мьютексом
type busCounters struct {
	mu sync.RWMutex
	m  BusMetrics
}

func (c *busCounters) snapshot() BusMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := &c.m
	out := BusMetrics{
		EventsPublished:  m.EventsPublished,
		EventsProcessed:  m.EventsProcessed,
		EventsFailed:     m.EventsFailed,
		EventsDropped:    m.EventsDropped,
		PanicsRecovered:  m.PanicsRecovered,
		ProcessingTime:   m.ProcessingTime,
		SubscribersCount: make(map[signals.EventType]int, len(m.SubscribersCount)),
	}
	for k, v := range m.SubscribersCount {
		out.SubscribersCount[k] = v
	}
	return out
}

func (c *busCounters) update(fn func(m *BusMetrics)) {
	c.mu.Lock()
	fn(&c.m)
	c.mu.Unlock()
}
