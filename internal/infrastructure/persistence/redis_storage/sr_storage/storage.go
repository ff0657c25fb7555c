// internal/infrastructure/persistence/redis_storage/sr_storage/storage.go
package sr_storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"smart-money-screener/internal/core/domain/analysis/sr_levels"
	"smart-money-screener/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const levelsKeyPrefix = "sr:levels:"

// LevelStorage - Redis-хранилище S/R уровней.
// Ключ: {prefix}sr:levels:{symbol}, ZSET, score = цена, value = JSON уровня.
type LevelStorage struct {
	client *redis.Client
	prefix string
}

// NewLevelStorage создает хранилище
func NewLevelStorage(client *redis.Client, prefix string) (*LevelStorage, error) {
	if client == nil {
		return nil, fmt.Errorf("redis клиент недоступен")
	}
	return &LevelStorage{client: client, prefix: prefix}, nil
}

func (s *LevelStorage) key(symbol string) string {
	return s.prefix + levelsKeyPrefix + strings.ToUpper(symbol)
}

// SaveLevels заменяет уровни символа и выставляет TTL
func (s *LevelStorage) SaveLevels(ctx context.Context, symbol string, levels []sr_levels.Level, ttl time.Duration) error {
	key := s.key(symbol)
	members := encodeLevels(levels)

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(members) > 0 {
		pipe.ZAdd(ctx, key, members...)
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sr_storage: сохранение уровней %s: %w", symbol, err)
	}

	logger.Debug("💾 [SRStorage] %s: сохранено %d уровней (TTL %v)", symbol, len(members), ttl)
	return nil
}

// GetLevels - уровни по возрастанию цены; false если ключа нет
func (s *LevelStorage) GetLevels(ctx context.Context, symbol string) ([]sr_levels.Level, bool, error) {
	raw, err := s.client.ZRangeByScore(ctx, s.key(symbol), &redis.ZRangeBy{Min: "-inf", Max: "+inf"}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sr_storage: чтение уровней %s: %w", symbol, err)
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	return decodeLevels(raw), true, nil
}

func encodeLevels(levels []sr_levels.Level) []*redis.Z {
	out := make([]*redis.Z, 0, len(levels))
	for _, l := range levels {
		data, err := json.Marshal(l)
		if err != nil {
			logger.Warn("⚠️ [SRStorage] Ошибка сериализации уровня: %v", err)
			continue
		}
		out = append(out, &redis.Z{Score: l.Price, Member: string(data)})
	}
	return out
}

func decodeLevels(raw []string) []sr_levels.Level {
	levels := make([]sr_levels.Level, 0, len(raw))
	for _, r := range raw {
		var l sr_levels.Level
		if err := json.Unmarshal([]byte(r), &l); err != nil {
			logger.Warn("⚠️ [SRStorage] Ошибка десериализации уровня: %v", err)
			continue
		}
		levels = append(levels, l)
	}
	return levels
}
