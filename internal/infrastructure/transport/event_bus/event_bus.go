// internal/infrastructure/transport/event_bus/event_bus.go
package events

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"smart-money-screener/internal/core/domain/signals"
	"smart-money-screener/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrBusNotRunning = errors.New("event bus is not running")
	ErrBufferFull    = errors.New("event buffer is full")
)

// EventBus - внутрипроцессная шина событий. Доставка at-most-once:
// при переполнении буфера событие отбрасывается.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[signals.EventType][]EventSubscriber
	middlewares []Middleware
	eventBuffer chan signals.Event
	metrics     *busCounters
	config      EventBusConfig
	running     bool
	stopChan    chan struct{}
	wg          sync.WaitGroup

	// OnDrop вызывается для каждого отброшенного события
	OnDrop func(event signals.Event)
	// OnFailure вызывается при ошибке или панике подписчика
	OnFailure func(subscriber string, event signals.Event, err error)
}

// EventBusConfig - конфигурация EventBus
type EventBusConfig struct {
	BufferSize     int           `json:"buffer_size"`
	WorkerCount    int           `json:"worker_count"`
	EnableLogging  bool          `json:"enable_logging"`
	MetricsLogRate time.Duration `json:"metrics_log_rate"` // 0 - не логировать
}

// DefaultConfig - конфигурация по умолчанию
var DefaultConfig = EventBusConfig{
	BufferSize:     1000,
	WorkerCount:    4,
	EnableLogging:  true,
	MetricsLogRate: 5 * time.Minute,
}

// NewEventBus создает новую шину событий
func NewEventBus(config ...EventBusConfig) *EventBus {
	cfg := DefaultConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig.BufferSize
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultConfig.WorkerCount
	}

	return &EventBus{
		subscribers: make(map[signals.EventType][]EventSubscriber),
		eventBuffer: make(chan signals.Event, cfg.BufferSize),
		metrics: &busCounters{m: BusMetrics{
			SubscribersCount: make(map[signals.EventType]int),
		}},
		config: cfg,
	}
}

// Start запускает обработчиков
func (b *EventBus) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return
	}
	b.running = true
	b.stopChan = make(chan struct{})

	for i := 0; i < b.config.WorkerCount; i++ {
		b.wg.Add(1)
		go b.eventWorker(i, b.stopChan)
	}
	if b.config.MetricsLogRate > 0 {
		b.wg.Add(1)
		go b.metricsLoop(b.stopChan)
	}

	if b.config.EnableLogging {
		logger.Info("🚀 [EventBus] Запущен с %d обработчиками, буфер %d", b.config.WorkerCount, b.config.BufferSize)
	}
}

// Stop останавливает шину; события, уже лежащие в буфере, обрабатываются
func (b *EventBus) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	close(b.stopChan)
	b.mu.Unlock()

	b.wg.Wait()

	if b.config.EnableLogging {
		logger.Info("🛑 [EventBus] Остановлен")
	}
}

// Subscribe подписывает обработчик на тип события
func (b *EventBus) Subscribe(eventType signals.EventType, subscriber EventSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	found := false
	for _, et := range subscriber.GetSubscribedEvents() {
		if et == eventType {
			found = true
			break
		}
	}
	if !found {
		logger.Warn("⚠️ [EventBus] %s не объявлял подписку на %s", subscriber.GetName(), eventType)
		return
	}

	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber)
	count := len(b.subscribers[eventType])
	b.metrics.update(func(m *BusMetrics) { m.SubscribersCount[eventType] = count })

	if b.config.EnableLogging {
		logger.Debug("✅ [EventBus] %s подписался на %s", subscriber.GetName(), eventType)
	}
}

// SubscribeAll подписывает на все объявленные подписчиком типы
func (b *EventBus) SubscribeAll(subscriber EventSubscriber) {
	for _, et := range subscriber.GetSubscribedEvents() {
		b.Subscribe(et, subscriber)
	}
}

// Unsubscribe отписывает обработчик от типа события
func (b *EventBus) Unsubscribe(eventType signals.EventType, subscriber EventSubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, sub := range subs {
		if sub != subscriber {
			continue
		}
		// копия, чтобы не портить срез, который читает воркер
		next := make([]EventSubscriber, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		b.subscribers[eventType] = next

		count := len(next)
		b.metrics.update(func(m *BusMetrics) { m.SubscribersCount[eventType] = count })
		if b.config.EnableLogging {
			logger.Debug("❌ [EventBus] %s отписался от %s", subscriber.GetName(), eventType)
		}
		return
	}
}

// Publish ставит событие в буфер и не блокируется
func (b *EventBus) Publish(event signals.Event) error {
	b.mu.RLock()
	running := b.running
	b.mu.RUnlock()
	if !running {
		return ErrBusNotRunning
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventBuffer <- event:
		b.metrics.update(func(m *BusMetrics) { m.EventsPublished++ })
		return nil
	default:
		b.metrics.update(func(m *BusMetrics) { m.EventsDropped++ })
		if b.OnDrop != nil {
			b.OnDrop(event)
		}
		if b.config.EnableLogging {
			logger.Warn("⚠️ [EventBus] Буфер полон, событие отброшено: %s", event.Type)
		}
		return ErrBufferFull
	}
}

// PublishSync обрабатывает событие в вызывающей горутине
func (b *EventBus) PublishSync(event signals.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return b.processEvent(event)
}

// AddMiddleware добавляет middleware
func (b *EventBus) AddMiddleware(middleware Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middlewares = append(b.middlewares, middleware)
}

func (b *EventBus) eventWorker(id int, stop <-chan struct{}) {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.eventBuffer:
			_ = b.processEvent(event)
		case <-stop:
			// дочитываем то, что уже в буфере
			for {
				select {
				case event := <-b.eventBuffer:
					_ = b.processEvent(event)
				default:
					logger.Debug("🔍 [EventWorker %d] Остановлен", id)
					return
				}
			}
		}
	}
}

// processEvent обрабатывает одно событие
func (b *EventBus) processEvent(event signals.Event) error {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		b.metrics.update(func(m *BusMetrics) {
			m.ProcessingTime += elapsed
			m.EventsProcessed++
		})
	}()

	b.mu.RLock()
	subs := b.subscribers[event.Type]
	mws := b.middlewares
	b.mu.RUnlock()

	if len(subs) == 0 {
		return nil
	}
	return executeWithMiddleware(mws, event, b.createHandlerChain(subs))
}

// createHandlerChain - все подписчики; ошибка одного не мешает остальным
func (b *EventBus) createHandlerChain(subs []EventSubscriber) HandlerFunc {
	return func(event signals.Event) error {
		var lastErr error
		for _, sub := range subs {
			if err := b.safeHandle(sub, event); err != nil {
				lastErr = err
				b.metrics.update(func(m *BusMetrics) { m.EventsFailed++ })
				if b.OnFailure != nil {
					b.OnFailure(sub.GetName(), event, err)
				}
				logger.Warn("❌ [EventBus] %s не обработал %s: %v", sub.GetName(), event.Type, err)
			}
		}
		return lastErr
	}
}

// safeHandle вызывает подписчика, превращая панику в ошибку
func (b *EventBus) safeHandle(sub EventSubscriber, event signals.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.update(func(m *BusMetrics) { m.PanicsRecovered++ })
			logger.Error("⚠️ [EventBus] Паника в %s: %v\n%s", sub.GetName(), r, debug.Stack())
			err = fmt.Errorf("subscriber %s panicked: %v", sub.GetName(), r)
		}
	}()
	return sub.HandleEvent(event)
}

func executeWithMiddleware(mws []Middleware, event signals.Event, handler HandlerFunc) error {
	chain := handler
	for i := len(mws) - 1; i >= 0; i-- {
		mw, next := mws[i], chain
		chain = func(e signals.Event) error {
			return mw.Process(e, next)
		}
	}
	return chain(event)
}

// GetMetrics возвращает копию счетчиков
func (b *EventBus) GetMetrics() BusMetrics {
	return b.metrics.snapshot()
}

// GetSubscriberCount возвращает количество подписчиков
func (b *EventBus) GetSubscriberCount(eventType signals.EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}

// GetEventTypes возвращает типы событий с подписчиками
func (b *EventBus) GetEventTypes() []signals.EventType {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]signals.EventType, 0, len(b.subscribers))
	for et, subs := range b.subscribers {
		if len(subs) > 0 {
			out = append(out, et)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *EventBus) metricsLoop(stop <-chan struct{}) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.config.MetricsLogRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m := b.GetMetrics()
			var avg time.Duration
			if m.EventsProcessed > 0 {
				avg = m.ProcessingTime / time.Duration(m.EventsProcessed)
			}
			logger.Info("📊 [EventBus] Опубликовано %d, обработано %d, ошибок %d, отброшено %d, среднее время %v",
				m.EventsPublished, m.EventsProcessed, m.EventsFailed, m.EventsDropped, avg)
		case <-stop:
			return
		}
	}
}

// IsRunning возвращает true если шина запущена
func (b *EventBus) IsRunning() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.running
}

// Name возвращает имя сервиса
func (b *EventBus) Name() string {
	return "EventBus"
}

// HealthCheck - шина запущена и буфер не забит полностью
func (b *EventBus) HealthCheck() bool {
	if !b.IsRunning() {
		return false
	}
	return len(b.eventBuffer) < cap(b.eventBuffer)
}
