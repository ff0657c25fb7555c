// internal/infrastructure/persistence/in_memory_storage/signal_store.go
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"smart-money-screener/internal/core/domain/signals"

	"github.com/google/uuid"
)

// SignalStore - хранилище сигналов в памяти процесса.
// Проверка существования и вставка выполняются под одной блокировкой.
type SignalStore struct {
	mu      sync.RWMutex
	signals map[uuid.UUID]*signals.Signal
}

// NewSignalStore создает пустое хранилище
func NewSignalStore() *SignalStore {
	return &SignalStore{signals: make(map[uuid.UUID]*signals.Signal)}
}

// InsertOpen сохраняет копию сигнала или возвращает уже открытый
func (s *SignalStore) InsertOpen(ctx context.Context, sig *signals.Signal) (*signals.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.latestOpenLocked(sig.Symbol, sig.Direction, time.Time{}); existing != nil {
		return existing.Clone(), signals.ErrOpenSignalExists
	}
	if _, dup := s.signals[sig.ID]; dup {
		return nil, fmt.Errorf("signal %s already stored", sig.ID)
	}
	s.signals[sig.ID] = sig.Clone()
	return sig.Clone(), nil
}

// FindOpenSince - последний открытый сигнал, созданный не раньше since
func (s *SignalStore) FindOpenSince(ctx context.Context, symbol string, dir signals.Direction, since time.Time) (*signals.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestOpenLocked(symbol, dir, since).Clone(), nil
}

func (s *SignalStore) latestOpenLocked(symbol string, dir signals.Direction, since time.Time) *signals.Signal {
	var best *signals.Signal
	for _, sig := range s.signals {
		if sig.Symbol != symbol || sig.Direction != dir || !sig.Status.IsOpen() {
			continue
		}
		if sig.CreatedAt.Before(since) {
			continue
		}
		if best == nil || sig.CreatedAt.After(best.CreatedAt) {
			best = sig
		}
	}
	return best
}

// GetByID - сигнал по идентификатору
func (s *SignalStore) GetByID(ctx context.Context, id uuid.UUID) (*signals.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signals[id]
	if !ok {
		return nil, fmt.Errorf("SignalStore.GetByID %s: %w", id, signals.ErrSignalNotFound)
	}
	return sig.Clone(), nil
}

// ListOpen - pending/active по времени создания
func (s *SignalStore) ListOpen(ctx context.Context) ([]*signals.Signal, error) {
	return s.filter(func(sig *signals.Signal) bool { return sig.Status.IsOpen() }, byCreated), nil
}

// Transition - compare-and-set по статусу
func (s *SignalStore) Transition(ctx context.Context, sig *signals.Signal, from signals.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.signals[sig.ID]
	if !ok {
		return false, fmt.Errorf("SignalStore.Transition %s: %w", sig.ID, signals.ErrSignalNotFound)
	}
	if cur.Status != from {
		return false, nil
	}
	s.signals[sig.ID] = sig.Clone()
	return true, nil
}

// ListClosedSince - терминальные сигналы с closedAt >= since
func (s *SignalStore) ListClosedSince(ctx context.Context, since time.Time) ([]*signals.Signal, error) {
	return s.filter(func(sig *signals.Signal) bool {
		return sig.Status.IsTerminal() && sig.ClosedAt != nil && !sig.ClosedAt.Before(since)
	}, func(a, b *signals.Signal) bool { return a.ClosedAt.Before(*b.ClosedAt) }), nil
}

// ListBySymbol - последние сигналы по символу
func (s *SignalStore) ListBySymbol(ctx context.Context, symbol string, limit int) ([]*signals.Signal, error) {
	list := s.filter(func(sig *signals.Signal) bool { return sig.Symbol == symbol },
		func(a, b *signals.Signal) bool { return a.CreatedAt.After(b.CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// DeleteExpiredBefore удаляет expired сигналы, закрытые раньше before
func (s *SignalStore) DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sig := range s.signals {
		if sig.Status == signals.StatusExpired && sig.ClosedAt != nil && sig.ClosedAt.Before(before) {
			delete(s.signals, id)
			n++
		}
	}
	return n, nil
}

// Len - количество сигналов
func (s *SignalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.signals)
}

func byCreated(a, b *signals.Signal) bool { return a.CreatedAt.Before(b.CreatedAt) }

func (s *SignalStore) filter(keep func(*signals.Signal) bool, less func(a, b *signals.Signal) bool) []*signals.Signal {
	s.mu.RLock()
	out := make([]*signals.Signal, 0)
	for _, sig := range s.signals {
		if keep(sig) {
			out = append(out, sig.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
