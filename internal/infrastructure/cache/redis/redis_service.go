// internal/infrastructure/cache/redis/redis_service.go
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"smart-money-screener/internal/infrastructure/config"
	"smart-money-screener/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// ServiceState состояние сервиса
type ServiceState string

const (
	StateStopped  ServiceState = "stopped"
	StateStarting ServiceState = "starting"
	StateRunning  ServiceState = "running"
	StateError    ServiceState = "error"
)

// RedisService - подключение к Redis и общий префикс ключей
type RedisService struct {
	cfg    config.RedisConfig
	mu     sync.RWMutex
	client *redis.Client
	state  ServiceState
}

// NewRedisService создает сервис; подключение в Start
func NewRedisService(cfg config.RedisConfig) *RedisService {
	return &RedisService{cfg: cfg, state: StateStopped}
}

// Options - опции клиента из конфигурации
func Options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		IdleTimeout:  cfg.IdleTimeout,

		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,

		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: cfg.MinRetryBackoff,
		MaxRetryBackoff: cfg.MaxRetryBackoff,
	}
}

// Start подключается и проверяет соединение
func (rs *RedisService) Start(ctx context.Context) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.state == StateRunning {
		return fmt.Errorf("Redis service already running")
	}
	rs.state = StateStarting

	opts := Options(rs.cfg)
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	logger.Info("📡 [Redis] Подключение к %s (DB: %d)", opts.Addr, rs.cfg.DB)
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		rs.state = StateError
		logger.Error("❌ [Redis] Нет подключения к %s: %v", opts.Addr, err)
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	rs.client = client
	rs.state = StateRunning
	logger.Info("✅ [Redis] Подключено: %s, пул %d, префикс %q", opts.Addr, rs.cfg.PoolSize, rs.cfg.KeyPrefix)
	return nil
}

// Stop закрывает клиент
func (rs *RedisService) Stop() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.client == nil {
		rs.state = StateStopped
		return nil
	}
	err := rs.client.Close()
	rs.client = nil
	rs.state = StateStopped
	logger.Info("🛑 [Redis] Соединение закрыто")
	return err
}

// GetClient возвращает клиент или nil до Start
func (rs *RedisService) GetClient() *redis.Client {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.client
}

// KeyPrefix - общий префикс всех ключей приложения
func (rs *RedisService) KeyPrefix() string {
	return rs.cfg.KeyPrefix
}

// State - текущее состояние
func (rs *RedisService) State() ServiceState {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.state
}

// Name возвращает имя сервиса
func (rs *RedisService) Name() string {
	return "RedisService"
}

// HealthCheck - ping с коротким таймаутом
func (rs *RedisService) HealthCheck(ctx context.Context) error {
	client := rs.GetClient()
	if client == nil {
		return fmt.Errorf("Redis service is not running")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis health check failed: %w", err)
	}
	return nil
}

// GetStats - статистика пула
func (rs *RedisService) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"state": rs.State(),
		"host":  rs.cfg.Host,
		"port":  rs.cfg.Port,
		"db":    rs.cfg.DB,
	}
	if client := rs.GetClient(); client != nil {
		ps := client.PoolStats()
		stats["pool_hits"] = ps.Hits
		stats["pool_misses"] = ps.Misses
		stats["pool_timeouts"] = ps.Timeouts
		stats["pool_total_conns"] = ps.TotalConns
		stats["pool_idle_conns"] = ps.IdleConns
	}
	return stats
}

// GetCache - JSON-кэш поверх клиента
func (rs *RedisService) GetCache() *Cache {
	client := rs.GetClient()
	if client == nil {
		return nil
	}
	return NewCacheWithClient(client, rs.cfg.KeyPrefix)
}
