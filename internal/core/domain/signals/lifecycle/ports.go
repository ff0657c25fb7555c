// internal/core/domain/signals/lifecycle/ports.go
package lifecycle

import (
	"context"
	"time"

	"smart-money-screener/internal/core/domain/signals"

	"github.com/google/uuid"
)

// Store - хранилище сигналов.
// Каждый переход статуса - одно атомарное обновление записи (compare-and-set по статусу).
type Store interface {
	// InsertOpen сохраняет новый сигнал. Если открытый сигнал по (symbol, direction)
	// уже есть, возвращает его вместе с signals.ErrOpenSignalExists.
	InsertOpen(ctx context.Context, sig *signals.Signal) (*signals.Signal, error)
	// FindOpenSince - последний открытый сигнал, созданный не раньше since; nil, nil если нет
	FindOpenSince(ctx context.Context, symbol string, dir signals.Direction, since time.Time) (*signals.Signal, error)
	GetByID(ctx context.Context, id uuid.UUID) (*signals.Signal, error)
	ListOpen(ctx context.Context) ([]*signals.Signal, error)
	// Transition записывает sig, только если текущий статус в хранилище равен from
	Transition(ctx context.Context, sig *signals.Signal, from signals.Status) (bool, error)
	// ListClosedSince - терминальные сигналы с closedAt >= since
	ListClosedSince(ctx context.Context, since time.Time) ([]*signals.Signal, error)
	ListBySymbol(ctx context.Context, symbol string, limit int) ([]*signals.Signal, error)
	// DeleteExpiredBefore удаляет expired сигналы, закрытые раньше before
	DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
}

// PriceProvider - текущая цена символа
type PriceProvider interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
}
