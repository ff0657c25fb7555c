// internal/infrastructure/persistence/redis_storage/snapshot_storage/storage.go
package snapshot_storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"smart-money-screener/internal/core/domain/market"

	"github.com/go-redis/redis/v8"
)

const (
	snapshotKeyPrefix = "snapshot:"
	symbolsKey        = "snapshot:symbols"
)

// ErrSnapshotNotFound - снапшота символа нет
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Storage - снапшоты, которые пишет внешний агрегатор.
// {prefix}snapshot:{SYMBOL} - JSON снапшота, {prefix}snapshot:symbols - SET символов.
type Storage struct {
	client *redis.Client
	prefix string
}

// NewStorage создает хранилище
func NewStorage(client *redis.Client, prefix string) *Storage {
	return &Storage{client: client, prefix: prefix}
}

func (s *Storage) snapshotKey(symbol string) string {
	return s.prefix + snapshotKeyPrefix + strings.ToUpper(symbol)
}

func (s *Storage) symbolsKey() string {
	return s.prefix + symbolsKey
}

// ListSymbols - символы с опубликованными снапшотами, по алфавиту
func (s *Storage) ListSymbols(ctx context.Context) ([]string, error) {
	symbols, err := s.client.SMembers(ctx, s.symbolsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("snapshot_storage: список символов: %w", err)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// GetSnapshot читает и разбирает снапшот; битый JSON - market.ErrInvalidSnapshot
func (s *Storage) GetSnapshot(ctx context.Context, symbol string) (market.Snapshot, error) {
	raw, err := s.client.Get(ctx, s.snapshotKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return market.Snapshot{}, fmt.Errorf("%s: %w", symbol, ErrSnapshotNotFound)
	}
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("snapshot_storage: чтение %s: %w", symbol, err)
	}
	return market.Decode(raw)
}

// SaveSnapshot публикует снапшот; используется агрегатором и тестовыми стендами
func (s *Storage) SaveSnapshot(ctx context.Context, snap market.Snapshot, ttl time.Duration) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	symbol := strings.ToUpper(snap.Symbol)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.snapshotKey(symbol), data, ttl)
	pipe.SAdd(ctx, s.symbolsKey(), symbol)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("snapshot_storage: запись %s: %w", symbol, err)
	}
	return nil
}

func encodeSnapshot(snap market.Snapshot) ([]byte, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(snap)
}
