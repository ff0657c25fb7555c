// internal/infrastructure/persistence/in_memory_storage/snapshot_store.go
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"smart-money-screener/internal/core/domain/market"
	"smart-money-screener/pkg/logger"
)

// SnapshotStore - снапшоты в памяти: офлайн-прогоны и запуск без Redis
type SnapshotStore struct {
	mu    sync.RWMutex
	snaps map[string]json.RawMessage
}

// NewSnapshotStore создает пустое хранилище
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snaps: make(map[string]json.RawMessage)}
}

// Put сохраняет снапшот
func (s *SnapshotStore) Put(snap market.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.PutRaw(snap.Symbol, raw)
	return nil
}

// PutRaw сохраняет JSON как есть; разбор откладывается до GetSnapshot
func (s *SnapshotStore) PutRaw(symbol string, raw json.RawMessage) {
	s.mu.Lock()
	s.snaps[strings.ToUpper(symbol)] = append(json.RawMessage(nil), raw...)
	s.mu.Unlock()
}

// LoadFile читает JSON-массив снапшотов
func (s *SnapshotStore) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("SnapshotStore.LoadFile: %w", err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return 0, fmt.Errorf("SnapshotStore.LoadFile %s: %w", path, err)
	}

	n := 0
	for i, raw := range items {
		var head struct {
			Symbol string `json:"symbol"`
		}
		if err := json.Unmarshal(raw, &head); err != nil || strings.TrimSpace(head.Symbol) == "" {
			logger.Warn("⚠️ [SnapshotStore] Запись %d без символа пропущена", i)
			continue
		}
		s.PutRaw(head.Symbol, raw)
		n++
	}
	logger.Info("📥 [SnapshotStore] Загружено %d снапшотов из %s", n, path)
	return n, nil
}

// ListSymbols - символы по алфавиту
func (s *SnapshotStore) ListSymbols(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	out := make([]string, 0, len(s.snaps))
	for sym := range s.snaps {
		out = append(out, sym)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}

// GetSnapshot разбирает сохраненный JSON; битые данные - market.ErrInvalidSnapshot
func (s *SnapshotStore) GetSnapshot(ctx context.Context, symbol string) (market.Snapshot, error) {
	s.mu.RLock()
	raw, ok := s.snaps[strings.ToUpper(symbol)]
	s.mu.RUnlock()
	if !ok {
		return market.Snapshot{}, fmt.Errorf("snapshot %s not found", symbol)
	}
	return market.Decode(raw)
}
