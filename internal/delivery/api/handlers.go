// internal/delivery/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"smart-money-screener/internal/core/domain/signals"
	"smart-money-screener/internal/core/domain/signals/lifecycle"
	"smart-money-screener/pkg/logger"
)

const (
	defaultTopLimit    = 10
	maxTopLimit        = 100
	defaultSymbolLimit = 50
	defaultStatsDays   = 7
	maxStatsDays       = 365
)

// SignalQueries - запросы к трекеру
type SignalQueries interface {
	TopOpen(ctx context.Context, limit int) ([]*signals.Signal, error)
	BySymbol(ctx context.Context, symbol string, limit int) ([]*signals.Signal, error)
	Stats(ctx context.Context, days int) (lifecycle.PerformanceStats, error)
}

// HealthCheck - проверка одной зависимости
type HealthCheck func(ctx context.Context) error

// ResponseCache - кэш готовых ответов
type ResponseCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RateLimiter - счетчик запросов клиента в окне
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// Handler - HTTP обработчики
type Handler struct {
	queries SignalQueries
	checks  map[string]HealthCheck
	metrics http.Handler
	started time.Time

	cache    ResponseCache
	cacheTTL time.Duration

	limiter    RateLimiter
	rateLimit  int
	rateWindow time.Duration
}

// NewHandler создает обработчики; metrics может быть nil
func NewHandler(queries SignalQueries, metrics http.Handler) *Handler {
	return &Handler{
		queries: queries,
		checks:  make(map[string]HealthCheck),
		metrics: metrics,
		started: time.Now(),
	}
}

// AddHealthCheck регистрирует проверку для /api/health
func (h *Handler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// UseStatsCache кэширует ответы /api/stats на ttl
func (h *Handler) UseStatsCache(cache ResponseCache, ttl time.Duration) {
	if cache == nil || ttl <= 0 {
		return
	}
	h.cache, h.cacheTTL = cache, ttl
}

// UseRateLimit ограничивает число запросов к /api/signals и /api/stats с одного адреса
func (h *Handler) UseRateLimit(limiter RateLimiter, limit int, window time.Duration) {
	if limiter == nil || limit <= 0 || window <= 0 {
		return
	}
	h.limiter, h.rateLimit, h.rateWindow = limiter, limit, window
}

// Routes - маршруты API
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/signals/top", h.handleTop)
	mux.HandleFunc("GET /api/signals/{symbol}", h.handleSymbol)
	mux.HandleFunc("GET /api/stats", h.handleStats)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
	if h.limiter == nil {
		return mux
	}
	return h.rateLimited(mux)
}

// rateLimited пропускает health и metrics без лимита; ошибка счетчика не блокирует запрос
func (h *Handler) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		client := clientIP(r)
		allowed, count, err := h.limiter.CheckRateLimit(r.Context(), "api:"+client, h.rateLimit, h.rateWindow)
		if err != nil {
			logger.Warn("⚠️ [API] Лимитер недоступен: %v", err)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			logger.Debug("🚦 [API] %s превысил лимит: %d запросов за %s", client, count, h.rateWindow)
			w.Header().Set("Retry-After", strconv.Itoa(int(h.rateWindow.Seconds())))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) handleTop(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", defaultTopLimit, 1, maxTopLimit)
	if !ok {
		return
	}
	list, err := h.queries.TopOpen(r.Context(), limit)
	if err != nil {
		internalError(w, "top", err)
		return
	}
	writeJSON(w, http.StatusOK, signalsResponse{Count: len(list), Signals: nonNil(list)})
}

func (h *Handler) handleSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	limit, ok := intParam(w, r, "limit", defaultSymbolLimit, 1, maxTopLimit)
	if !ok {
		return
	}
	list, err := h.queries.BySymbol(r.Context(), symbol, limit)
	if err != nil {
		internalError(w, "symbol", err)
		return
	}
	writeJSON(w, http.StatusOK, signalsResponse{Symbol: symbol, Count: len(list), Signals: nonNil(list)})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	days, ok := intParam(w, r, "days", defaultStatsDays, 1, maxStatsDays)
	if !ok {
		return
	}
	key := "api:stats:" + strconv.Itoa(days)
	if h.cache != nil {
		var cached lifecycle.PerformanceStats
		if err := h.cache.Get(r.Context(), key, &cached); err == nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	st, err := h.queries.Stats(r.Context(), days)
	if err != nil {
		internalError(w, "stats", err)
		return
	}
	if h.cache != nil {
		if err := h.cache.Set(r.Context(), key, st, h.cacheTTL); err != nil {
			logger.Warn("⚠️ [API] Не удалось закэшировать статистику: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{
		Status:     "ok",
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Components: make(map[string]string, len(names)),
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Status = "degraded"
			resp.Components[name] = err.Error()
			continue
		}
		resp.Components[name] = "ok"
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

type signalsResponse struct {
	Symbol  string            `json:"symbol,omitempty"`
	Count   int               `json:"count"`
	Signals []*signals.Signal `json:"signals"`
}

type healthResponse struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	Components map[string]string `json:"components"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// intParam разбирает целый query-параметр; ошибка уже записана, если false
func intParam(w http.ResponseWriter, r *http.Request, name string, def, min, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		writeError(w, http.StatusBadRequest, name+" must be an integer in ["+strconv.Itoa(min)+", "+strconv.Itoa(max)+"]")
		return 0, false
	}
	return v, true
}

func nonNil(list []*signals.Signal) []*signals.Signal {
	if list == nil {
		return []*signals.Signal{}
	}
	return list
}

func internalError(w http.ResponseWriter, route string, err error) {
	logger.Error("❌ [API] %s: %v", route, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("⚠️ [API] Ошибка записи ответа: %v", err)
	}
}
