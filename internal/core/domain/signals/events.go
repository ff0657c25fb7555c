// internal/core/domain/signals/events.go
package signals

import "time"

// EventType - тип события жизненного цикла
type EventType string

const (
	EventSignalCreated   EventType = "signal_created"
	EventSignalActivated EventType = "signal_activated"
	EventSignalClosed    EventType = "signal_closed"
	EventSignalExpired   EventType = "signal_expired"
	EventCycleCompleted  EventType = "cycle_completed"
	EventError           EventType = "error"
)

// Event - событие шины. Доставка at-most-once, подписчики обязаны быть идемпотентными.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Transition - полезная нагрузка событий сигнала
type Transition struct {
	Signal *Signal `json:"signal"`
	From   Status  `json:"from,omitempty"`
	Price  float64 `json:"price,omitempty"`
}

// Publisher - порт публикации событий
type Publisher interface {
	Publish(event Event) error
}

// EventTypeFor - тип события для перехода в статус
func EventTypeFor(to Status) EventType {
	switch to {
	case StatusActive:
		return EventSignalActivated
	case StatusHitTP, StatusHitSL:
		return EventSignalClosed
	case StatusExpired:
		return EventSignalExpired
	}
	return EventSignalCreated
}
