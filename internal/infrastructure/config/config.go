// /internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ============================================
// КОНФИГУРАЦИЯ БАЗЫ ДАННЫХ
// ============================================

// DatabaseConfig - конфигурация базы данных
type DatabaseConfig struct {
	// Основные параметры подключения
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`

	// Настройки пула соединений
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`

	EnableAutoMigrate bool `yaml:"enable_auto_migrate"`

	// Повторы при временных ошибках
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryMinDelay time.Duration `yaml:"retry_min_delay"`
	RetryMaxDelay time.Duration `yaml:"retry_max_delay"`
}

// RedisConfig конфигурация Redis
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`     // localhost
	Port     int    `yaml:"port"`     // 6379
	Password string `yaml:"password"` // пустой или пароль
	DB       int    `yaml:"db"`       // 0

	// Настройки пула соединений
	PoolSize        int           `yaml:"pool_size"`         // 10
	MinIdleConns    int           `yaml:"min_idle_conns"`    // 5
	MaxRetries      int           `yaml:"max_retries"`       // 3
	MinRetryBackoff time.Duration `yaml:"min_retry_backoff"` // 8ms
	MaxRetryBackoff time.Duration `yaml:"max_retry_backoff"` // 512ms
	DialTimeout     time.Duration `yaml:"dial_timeout"`      // 5s
	ReadTimeout     time.Duration `yaml:"read_timeout"`      // 3s
	WriteTimeout    time.Duration `yaml:"write_timeout"`     // 3s
	PoolTimeout     time.Duration `yaml:"pool_timeout"`      // 4s
	IdleTimeout     time.Duration `yaml:"idle_timeout"`      // 5m

	// Префикс ключей
	KeyPrefix string `yaml:"key_prefix"`
}

// ============================================
// СТРАТЕГИЯ
// ============================================

// StrategyConfig - пороги скоринга и риск-менеджмента
type StrategyConfig struct {
	ExtremeFundingThreshold float64 `yaml:"extreme_funding_threshold"`
	MinLiquidationsUSD      float64 `yaml:"min_liquidations_usd"`
	LiquidationBiasRatio    float64 `yaml:"liquidation_bias_ratio"`
	MinOpenInterestUSD      float64 `yaml:"min_open_interest_usd"`
	TPRatio                 float64 `yaml:"tp_ratio"`
	SLRatio                 float64 `yaml:"sl_ratio"`
	EntryDeviationPercent   float64 `yaml:"entry_deviation_percent"`
}

// SelectionConfig - отбор кандидатов за цикл
type SelectionConfig struct {
	RunInterval        time.Duration `yaml:"run_interval"`
	MaxSignalsPerCycle int           `yaml:"max_signals_per_cycle"`
	MinScoreToSelect   int           `yaml:"min_score_to_select"`
	CandidateMinScore  int           `yaml:"candidate_min_score"`
	BalanceDirections  bool          `yaml:"balance_directions"`
	MaxWorkers         int           `yaml:"max_workers"`
	MinVolumeUSD       float64       `yaml:"min_volume_usd"`
	Symbols            []string      `yaml:"symbols"`
	ExcludeSymbols     []string      `yaml:"exclude_symbols"`

	// дополнительные фильтры перед отбором
	MinConfidence     float64  `yaml:"min_confidence"`
	Direction         string   `yaml:"direction"` // пусто | buy | sell
	MinTechnicalScore *float64 `yaml:"min_technical_score"`
}

// DedupConfig - окно подавления повторов
type DedupConfig struct {
	Window     time.Duration `yaml:"window"`
	Similarity float64       `yaml:"similarity"`
	Cache      string        `yaml:"cache"` // memory | redis
}

// LifecycleConfig - трекер сигналов
type LifecycleConfig struct {
	SignalTTL           time.Duration `yaml:"signal_ttl"`
	ExistenceWindow     time.Duration `yaml:"existence_window"`
	MonitorInterval     time.Duration `yaml:"monitor_interval"`
	MonitorConcurrency  int           `yaml:"monitor_concurrency"`
	PositionNotionalUSD float64       `yaml:"position_notional_usd"`
	CleanupRetention    time.Duration `yaml:"cleanup_retention"`
	CleanupHourUTC      int           `yaml:"cleanup_hour_utc"`
}

// SRConfig - уровни поддержки/сопротивления
type SRConfig struct {
	OrderBookDepth   int           `yaml:"orderbook_depth"`
	VolumeRatio      float64       `yaml:"volume_ratio"`
	ClusterThreshold float64       `yaml:"cluster_threshold"`
	PivotWindow      int           `yaml:"pivot_window"`
	MaxPivotLevels   int           `yaml:"max_pivot_levels"`
	LevelsTTL        time.Duration `yaml:"levels_ttl"`
	KlineInterval    string        `yaml:"kline_interval"`
	KlineLimit       int           `yaml:"kline_limit"`
	TradesLimit      int           `yaml:"trades_limit"`
}

// BinanceConfig - REST клиент биржи
type BinanceConfig struct {
	APIKey    string  `yaml:"-"`
	APISecret string  `yaml:"-"`
	Testnet   bool    `yaml:"testnet"`
	RPS       float64 `yaml:"rps"`
	Burst     int     `yaml:"burst"`
}

// EventBusConfig - шина событий
type EventBusConfig struct {
	BufferSize  int `yaml:"buffer_size"`
	WorkerCount int `yaml:"worker_count"`
}

// LoggingConfig - логирование
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	DebugMode  bool   `yaml:"debug"`
}

// HTTPConfig - read-only API и /metrics
type HTTPConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Port          int           `yaml:"port"`
	RateLimit     int           `yaml:"rate_limit"` // запросов на клиента за окно, 0 - без лимита
	RateWindow    time.Duration `yaml:"rate_window"`
	StatsCacheTTL time.Duration `yaml:"stats_cache_ttl"`
}

// ============================================
// ОСНОВНАЯ КОНФИГУРАЦИЯ ПРИЛОЖЕНИЯ
// ============================================

// Config - основная структура конфигурации
type Config struct {
	Environment    string
	StorageBackend string // postgres | memory
	StrategyFile   string
	SnapshotsFile  string // JSON со снапшотами, если Redis выключен

	Database  DatabaseConfig
	Redis     RedisConfig
	Strategy  StrategyConfig
	Selection SelectionConfig
	Dedup     DedupConfig
	Lifecycle LifecycleConfig
	SR        SRConfig
	Binance   BinanceConfig
	EventBus  EventBusConfig
	Logging   LoggingConfig
	HTTP      HTTPConfig

	ShutdownGrace       time.Duration
	SchedulerResolution time.Duration
}

// ============================================
// ЗАГРУЗКА КОНФИГУРАЦИИ
// ============================================

// LoadConfig загружает конфигурацию из .env файла и, если задан, из STRATEGY_FILE
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		fmt.Printf("⚠️  Config file not found, using environment variables\n")
	}

	cfg := FromEnv()

	if cfg.StrategyFile != "" {
		if err := cfg.ApplyStrategyFile(cfg.StrategyFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// FromEnv читает переменные окружения без загрузки файлов и без валидации
func FromEnv() *Config {
	cfg := &Config{}

	// ======================
	// ОСНОВНЫЕ НАСТРОЙКИ
	// ======================
	cfg.Environment = getEnv("ENVIRONMENT", "production")
	cfg.StorageBackend = strings.ToLower(getEnv("STORAGE_BACKEND", "postgres"))
	cfg.StrategyFile = getEnv("STRATEGY_FILE", "")
	cfg.SnapshotsFile = getEnv("SNAPSHOTS_FILE", "")
	cfg.ShutdownGrace = getEnvDuration("SHUTDOWN_GRACE", 30*time.Second)
	cfg.SchedulerResolution = getEnvDuration("SCHEDULER_RESOLUTION", 5*time.Second)

	// ======================
	// СТРАТЕГИЯ
	// ======================
	cfg.Strategy.ExtremeFundingThreshold = getEnvFloat("EXTREME_FUNDING_THRESHOLD", 0.01)
	cfg.Strategy.MinLiquidationsUSD = getEnvFloat("MIN_LIQUIDATIONS_USD", 2_000_000)
	cfg.Strategy.LiquidationBiasRatio = getEnvFloat("LIQUIDATION_BIAS_RATIO", 2.5)
	cfg.Strategy.MinOpenInterestUSD = getEnvFloat("MIN_OPEN_INTEREST_USD", 10_000_000)
	cfg.Strategy.TPRatio = getEnvFloat("TP_RATIO", 2.5)
	cfg.Strategy.SLRatio = getEnvFloat("SL_RATIO", 1.2)
	cfg.Strategy.EntryDeviationPercent = getEnvFloat("ENTRY_DEVIATION_PERCENT", 0.8)

	// ======================
	// ОТБОР
	// ======================
	cfg.Selection.RunInterval = getEnvDuration("RUN_INTERVAL", 5*time.Minute)
	cfg.Selection.MaxSignalsPerCycle = getEnvInt("MAX_SIGNALS_PER_CYCLE", 5)
	cfg.Selection.MinScoreToSelect = getEnvInt("MIN_SCORE_TO_SELECT", 70)
	cfg.Selection.CandidateMinScore = getEnvInt("CANDIDATE_MIN_SCORE", 60)
	cfg.Selection.BalanceDirections = getEnvBool("BALANCE_DIRECTIONS", false)
	cfg.Selection.MaxWorkers = getEnvInt("ANALYSIS_MAX_WORKERS", 8)
	cfg.Selection.MinVolumeUSD = getEnvFloat("MIN_VOLUME_USD", 1_000_000)
	cfg.Selection.Symbols = parseList(getEnv("SYMBOLS", ""))
	cfg.Selection.ExcludeSymbols = parseList(getEnv("EXCLUDE_SYMBOLS", ""))
	cfg.Selection.MinConfidence = getEnvFloat("SELECT_MIN_CONFIDENCE", 0)
	cfg.Selection.Direction = strings.ToLower(getEnv("SELECT_DIRECTION", ""))
	cfg.Selection.MinTechnicalScore = getEnvFloatPtr("SELECT_MIN_TECHNICAL_SCORE")

	// ======================
	// ДЕДУПЛИКАЦИЯ
	// ======================
	cfg.Dedup.Window = getEnvDuration("DEDUP_WINDOW", 2*time.Hour)
	cfg.Dedup.Similarity = getEnvFloat("DEDUP_SIMILARITY", 0.6)
	cfg.Dedup.Cache = strings.ToLower(getEnv("DEDUP_CACHE", "memory"))

	// ======================
	// ЖИЗНЕННЫЙ ЦИКЛ СИГНАЛОВ
	// ======================
	cfg.Lifecycle.SignalTTL = getEnvDuration("SIGNAL_TTL", 24*time.Hour)
	cfg.Lifecycle.ExistenceWindow = getEnvDuration("SIGNAL_EXISTENCE_WINDOW", 30*time.Minute)
	cfg.Lifecycle.MonitorInterval = getEnvDuration("MONITOR_INTERVAL", time.Minute)
	cfg.Lifecycle.MonitorConcurrency = getEnvInt("MONITOR_CONCURRENCY", 8)
	cfg.Lifecycle.PositionNotionalUSD = getEnvFloat("POSITION_NOTIONAL_USD", 1000)
	cfg.Lifecycle.CleanupRetention = getEnvDuration("CLEANUP_RETENTION", 90*24*time.Hour)
	cfg.Lifecycle.CleanupHourUTC = getEnvInt("CLEANUP_HOUR_UTC", 3)

	// ======================
	// УРОВНИ S/R
	// ======================
	cfg.SR.OrderBookDepth = getEnvInt("SR_ORDERBOOK_DEPTH", 20)
	cfg.SR.VolumeRatio = getEnvFloat("SR_VOLUME_RATIO", 3.0)
	cfg.SR.ClusterThreshold = getEnvFloat("SR_CLUSTER_THRESHOLD", 0.005)
	cfg.SR.PivotWindow = getEnvInt("SR_PIVOT_WINDOW", 5)
	cfg.SR.MaxPivotLevels = getEnvInt("SR_MAX_PIVOT_LEVELS", 10)
	cfg.SR.LevelsTTL = getEnvDuration("SR_LEVELS_TTL", time.Minute)
	cfg.SR.KlineInterval = getEnv("SR_KLINE_INTERVAL", "15m")
	cfg.SR.KlineLimit = getEnvInt("SR_KLINE_LIMIT", 100)
	cfg.SR.TradesLimit = getEnvInt("SR_TRADES_LIMIT", 500)

	// ======================
	// БАЗА ДАННЫХ
	// ======================
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "")
	cfg.Database.Password = getEnv("DB_PASSWORD", "")
	cfg.Database.Name = getEnv("DB_NAME", "")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 10)
	cfg.Database.MaxConnLifetime = getEnvDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute)
	cfg.Database.MaxConnIdleTime = getEnvDuration("DB_MAX_CONN_IDLE_TIME", 10*time.Minute)
	cfg.Database.EnableAutoMigrate = getEnvBool("DB_ENABLE_AUTO_MIGRATE", true)
	cfg.Database.RetryAttempts = getEnvInt("DB_RETRY_ATTEMPTS", 3)
	cfg.Database.RetryMinDelay = getEnvDuration("DB_RETRY_MIN_DELAY", 100*time.Millisecond)
	cfg.Database.RetryMaxDelay = getEnvDuration("DB_RETRY_MAX_DELAY", 2*time.Second)

	// ======================
	// REDIS
	// ======================
	cfg.Redis.Enabled = getEnvBool("REDIS_ENABLED", true)
	cfg.Redis.Host = getEnv("REDIS_HOST", "localhost")
	cfg.Redis.Port = getEnvInt("REDIS_PORT", 6379)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)
	cfg.Redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", 10)
	cfg.Redis.MinIdleConns = getEnvInt("REDIS_MIN_IDLE_CONNS", 5)
	cfg.Redis.MaxRetries = getEnvInt("REDIS_MAX_RETRIES", 3)
	cfg.Redis.MinRetryBackoff = getEnvDuration("REDIS_MIN_RETRY_BACKOFF", 8*time.Millisecond)
	cfg.Redis.MaxRetryBackoff = getEnvDuration("REDIS_MAX_RETRY_BACKOFF", 512*time.Millisecond)
	cfg.Redis.DialTimeout = getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.Redis.ReadTimeout = getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	cfg.Redis.WriteTimeout = getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	cfg.Redis.PoolTimeout = getEnvDuration("REDIS_POOL_TIMEOUT", 4*time.Second)
	cfg.Redis.IdleTimeout = getEnvDuration("REDIS_IDLE_TIMEOUT", 5*time.Minute)
	cfg.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", "smartmoney:")

	// ======================
	// БИРЖА
	// ======================
	cfg.Binance.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.Binance.APISecret = getEnv("BINANCE_API_SECRET", "")
	cfg.Binance.Testnet = getEnvBool("BINANCE_TESTNET", false)
	cfg.Binance.RPS = getEnvFloat("BINANCE_RPS", 10)
	cfg.Binance.Burst = getEnvInt("BINANCE_BURST", 5)

	// ======================
	// ШИНА СОБЫТИЙ
	// ======================
	cfg.EventBus.BufferSize = getEnvInt("EVENT_BUS_BUFFER_SIZE", 1000)
	cfg.EventBus.WorkerCount = getEnvInt("EVENT_BUS_WORKER_COUNT", 4)

	// ======================
	// ЛОГИРОВАНИЕ И HTTP
	// ======================
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")
	cfg.Logging.File = getEnv("LOG_FILE", "logs/smart_money.log")
	cfg.Logging.MaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", 100)
	cfg.Logging.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", 5)
	cfg.Logging.MaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", 30)
	cfg.Logging.DebugMode = getEnvBool("DEBUG", false)
	cfg.HTTP.Enabled = getEnvBool("HTTP_ENABLED", true)
	cfg.HTTP.Port = getEnvInt("HTTP_PORT", 8080)
	cfg.HTTP.RateLimit = getEnvInt("HTTP_RATE_LIMIT", 120)
	cfg.HTTP.RateWindow = getEnvDuration("HTTP_RATE_WINDOW", time.Minute)
	cfg.HTTP.StatsCacheTTL = getEnvDuration("HTTP_STATS_CACHE_TTL", time.Minute)

	return cfg
}

// ============================================
// ВАЛИДАЦИЯ
// ============================================

// validate проверяет обязательные параметры конфигурации
func (c *Config) validate() error {
	var validationErrors []string

	switch c.StorageBackend {
	case "postgres":
		if c.Database.User == "" {
			validationErrors = append(validationErrors, "DB_USER is required for postgres storage")
		}
		if c.Database.Name == "" {
			validationErrors = append(validationErrors, "DB_NAME is required for postgres storage")
		}
	case "memory":
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("STORAGE_BACKEND must be postgres or memory, got %q", c.StorageBackend))
	}

	switch c.Dedup.Cache {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			validationErrors = append(validationErrors, "DEDUP_CACHE=redis requires REDIS_ENABLED=true")
		}
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("DEDUP_CACHE must be memory or redis, got %q", c.Dedup.Cache))
	}

	if !c.Redis.Enabled && c.SnapshotsFile == "" {
		validationErrors = append(validationErrors, "snapshot source required: REDIS_ENABLED=true or SNAPSHOTS_FILE")
	}

	if c.Strategy.LiquidationBiasRatio <= 1 {
		validationErrors = append(validationErrors, "LIQUIDATION_BIAS_RATIO must be greater than 1")
	}
	if c.Strategy.TPRatio <= 0 || c.Strategy.SLRatio <= 0 {
		validationErrors = append(validationErrors, "TP_RATIO and SL_RATIO must be positive")
	}
	if c.Strategy.EntryDeviationPercent <= 0 || c.Strategy.EntryDeviationPercent >= 100 {
		validationErrors = append(validationErrors, "ENTRY_DEVIATION_PERCENT must be in (0, 100)")
	}
	if c.Selection.MaxSignalsPerCycle <= 0 {
		validationErrors = append(validationErrors, "MAX_SIGNALS_PER_CYCLE must be positive")
	}
	if c.Selection.MinScoreToSelect < 0 || c.Selection.MinScoreToSelect > 100 {
		validationErrors = append(validationErrors, "MIN_SCORE_TO_SELECT must be in [0, 100]")
	}
	if c.Selection.MinConfidence < 0 || c.Selection.MinConfidence > 1 {
		validationErrors = append(validationErrors, "SELECT_MIN_CONFIDENCE must be in [0, 1]")
	}
	switch c.Selection.Direction {
	case "", "buy", "sell":
	default:
		validationErrors = append(validationErrors, "SELECT_DIRECTION must be buy, sell or empty")
	}
	if c.Selection.RunInterval < time.Second {
		validationErrors = append(validationErrors, "RUN_INTERVAL must be at least 1s")
	}
	if c.Dedup.Similarity <= 0 || c.Dedup.Similarity > 1 {
		validationErrors = append(validationErrors, "DEDUP_SIMILARITY must be in (0, 1]")
	}
	if c.Lifecycle.SignalTTL <= 0 {
		validationErrors = append(validationErrors, "SIGNAL_TTL must be positive")
	}
	if c.Lifecycle.MonitorInterval < time.Second {
		validationErrors = append(validationErrors, "MONITOR_INTERVAL must be at least 1s")
	}
	if c.Lifecycle.CleanupHourUTC < 0 || c.Lifecycle.CleanupHourUTC > 23 {
		validationErrors = append(validationErrors, "CLEANUP_HOUR_UTC must be in [0, 23]")
	}
	if c.Binance.RPS <= 0 {
		validationErrors = append(validationErrors, "BINANCE_RPS must be positive")
	}
	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		validationErrors = append(validationErrors, "HTTP_PORT must be a valid port")
	}
	if c.HTTP.RateLimit < 0 {
		validationErrors = append(validationErrors, "HTTP_RATE_LIMIT must not be negative")
	}
	if c.HTTP.RateLimit > 0 && c.HTTP.RateWindow <= 0 {
		validationErrors = append(validationErrors, "HTTP_RATE_WINDOW must be positive")
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("%s", strings.Join(validationErrors, "; "))
	}
	return nil
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	return c.validate()
}

// ============================================
// ВСПОМОГАТЕЛЬНЫЕ МЕТОДЫ
// ============================================

// GetPostgresDSN возвращает DSN для подключения к PostgreSQL
func (c *Config) GetPostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddress возвращает адрес Redis
func (c *Config) GetRedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// ShouldExcludeSymbol проверяет, исключен ли символ
func (c *Config) ShouldExcludeSymbol(symbol string) bool {
	for _, exclude := range c.Selection.ExcludeSymbols {
		if strings.EqualFold(exclude, symbol) {
			return true
		}
	}
	return false
}

// IsDev возвращает true если текущее окружение - разработка
func (c *Config) IsDev() bool {
	return c.Environment == "dev"
}

// PrintSummary выводит действующую конфигурацию
func (c *Config) PrintSummary() {
	log.Printf("📋 Конфигурация приложения:")
	log.Printf("   • Окружение: %s", c.Environment)
	log.Printf("   • Хранилище: %s", c.StorageBackend)
	log.Printf("   • Уровень логирования: %s", c.Logging.Level)
	log.Printf("   • Стратегия:")
	log.Printf("     - Экстремальный фандинг: %.4f", c.Strategy.ExtremeFundingThreshold)
	log.Printf("     - Мин. ликвидации: $%.2fM", c.Strategy.MinLiquidationsUSD/1e6)
	log.Printf("     - Перевес ликвидаций: x%.2f", c.Strategy.LiquidationBiasRatio)
	log.Printf("     - Мин. OI: $%.2fM", c.Strategy.MinOpenInterestUSD/1e6)
	log.Printf("     - TP/SL: %.2f%% / %.2f%%, вход ±%.2f%%",
		c.Strategy.TPRatio, c.Strategy.SLRatio, c.Strategy.EntryDeviationPercent)
	log.Printf("   • Цикл анализа: каждые %s, топ-%d (скор ≥ %d)",
		c.Selection.RunInterval, c.Selection.MaxSignalsPerCycle, c.Selection.MinScoreToSelect)
	log.Printf("   • Дедупликация: окно %s, схожесть %.2f, кэш %s",
		c.Dedup.Window, c.Dedup.Similarity, c.Dedup.Cache)
	log.Printf("   • Сигналы: TTL %s, мониторинг каждые %s", c.Lifecycle.SignalTTL, c.Lifecycle.MonitorInterval)
	if c.StorageBackend == "postgres" {
		log.Printf("   • PostgreSQL: %s:%d/%s", c.Database.Host, c.Database.Port, c.Database.Name)
	}
	if c.Redis.Enabled {
		log.Printf("   • Redis: %s (DB: %d, Pool: %d)", c.GetRedisAddress(), c.Redis.DB, c.Redis.PoolSize)
	}
	log.Printf("   • Binance: testnet=%v, %.0f rps", c.Binance.Testnet, c.Binance.RPS)
	log.Printf("   • HTTP сервер: %v (порт: %d)", c.HTTP.Enabled, c.HTTP.Port)
}

// ============================================
// ВСПОМОГАТЕЛЬНЫЕ ФУНКЦИИ
// ============================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvFloatPtr - nil если переменная не задана или не число
func getEnvFloatPtr(key string) *float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return &floatValue
		}
	}
	return nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func parseList(value string) []string {
	if value == "" {
		return nil
	}

	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.ToUpper(strings.TrimSpace(part)); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
