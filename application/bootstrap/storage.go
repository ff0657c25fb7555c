// application/bootstrap/storage.go
package bootstrap

import (
	"context"
	"fmt"

	"smart-money-screener/internal/core/domain/analysis/sr_engine"
	"smart-money-screener/internal/core/domain/signals/dedup"
	"smart-money-screener/internal/core/domain/signals/engine"
	"smart-money-screener/internal/core/domain/signals/lifecycle"
	"smart-money-screener/internal/delivery/api"
	redis_cache "smart-money-screener/internal/infrastructure/cache/redis"
	"smart-money-screener/internal/infrastructure/config"
	storage "smart-money-screener/internal/infrastructure/persistence/in_memory_storage"
	"smart-money-screener/internal/infrastructure/persistence/postgres"
	analysis_repo "smart-money-screener/internal/infrastructure/persistence/postgres/repository/analysis"
	signal_repo "smart-money-screener/internal/infrastructure/persistence/postgres/repository/signal"
	"smart-money-screener/internal/infrastructure/persistence/redis_storage/snapshot_storage"
	"smart-money-screener/internal/infrastructure/persistence/redis_storage/sr_storage"
	"smart-money-screener/pkg/logger"
)

// closer - ресурс, закрываемый при остановке
type closer struct {
	name  string
	close func() error
}

// backend - хранилища, выбранные конфигурацией
type backend struct {
	signals     lifecycle.Store
	analysis    engine.AnalysisSaver
	snapshots   engine.SnapshotProvider
	levels      sr_engine.LevelStore
	recency     dedup.RecencyCache
	memoryDedup *dedup.MemoryCache
	cache       *redis_cache.Cache // кэш ответов API и лимитер, nil без Redis

	checks  map[string]api.HealthCheck
	closers []closer
}

func newBackend() *backend {
	return &backend{checks: make(map[string]api.HealthCheck)}
}

func (b *backend) addCloser(name string, fn func() error) {
	b.closers = append(b.closers, closer{name: name, close: fn})
}

// buildBackend подключает хранилища. При ошибке уже открытые ресурсы закрываются.
func buildBackend(ctx context.Context, cfg *config.Config) (b *backend, err error) {
	b = newBackend()
	defer func() {
		if err != nil {
			closeAll(b.closers)
		}
	}()

	if err = b.buildSignalStore(ctx, cfg); err != nil {
		return nil, err
	}
	if err = b.buildRedis(ctx, cfg); err != nil {
		return nil, err
	}
	if err = b.buildSnapshots(cfg); err != nil {
		return nil, err
	}

	if b.recency == nil {
		b.memoryDedup = dedup.NewMemoryCache()
		b.recency = b.memoryDedup
	}
	return b, nil
}

func (b *backend) buildSignalStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.StorageBackend {
	case "memory":
		b.signals = storage.NewSignalStore()
		b.analysis = storage.NewAnalysisStore()
		logger.Info("💾 [Bootstrap] Хранилище сигналов: память процесса")
		return nil
	case "postgres", "":
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	b.addCloser("postgres", db.Close)
	b.checks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }

	retry := postgres.NewRetrier(cfg.Database)
	b.signals = signal_repo.NewRepository(db, retry)
	b.analysis = analysis_repo.NewRepository(db, retry)
	logger.Info("💾 [Bootstrap] Хранилище сигналов: PostgreSQL %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	return nil
}

func (b *backend) buildRedis(ctx context.Context, cfg *config.Config) error {
	if !cfg.Redis.Enabled {
		return nil
	}

	rs := redis_cache.NewRedisService(cfg.Redis)
	if err := rs.Start(ctx); err != nil {
		return err
	}
	b.addCloser("redis", rs.Stop)
	b.checks["redis"] = rs.HealthCheck

	client := rs.GetClient()
	levels, err := sr_storage.NewLevelStorage(client, rs.KeyPrefix())
	if err != nil {
		return err
	}
	b.levels = levels
	b.snapshots = snapshot_storage.NewStorage(client, rs.KeyPrefix())
	b.cache = rs.GetCache()

	if cfg.Dedup.Cache == "redis" {
		b.recency = redis_cache.NewRecencyCache(client, rs.KeyPrefix())
		logger.Info("🧠 [Bootstrap] Кэш дедупликации: Redis")
	}
	return nil
}

// buildSnapshots: файл снапшотов имеет приоритет над Redis
func (b *backend) buildSnapshots(cfg *config.Config) error {
	if cfg.SnapshotsFile == "" {
		if b.snapshots == nil {
			return fmt.Errorf("snapshot source is not configured")
		}
		return nil
	}

	store := storage.NewSnapshotStore()
	if _, err := store.LoadFile(cfg.SnapshotsFile); err != nil {
		return err
	}
	b.snapshots = store
	return nil
}
