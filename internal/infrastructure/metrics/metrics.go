// internal/infrastructure/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smart_money"

// Collector - метрики скринера
type Collector struct {
	registry *prometheus.Registry

	CycleDuration   prometheus.Histogram
	CyclesTotal     *prometheus.CounterVec // result: ok | error
	SymbolsTotal    *prometheus.CounterVec // outcome: analyzed | skipped | error
	CandidatesTotal prometheus.Counter
	DuplicatesTotal prometheus.Counter
	SelectedTotal   prometheus.Counter
	CreatedTotal    *prometheus.CounterVec // direction
	Transitions     *prometheus.CounterVec // status
	PnLPercent      *prometheus.HistogramVec
	PriceErrors     prometheus.Counter
	EventsDropped   prometheus.Counter
	EventsFailed    *prometheus.CounterVec // subscriber
	JobRuns         *prometheus.CounterVec // job, result
}

// New создает и регистрирует метрики в собственном реестре
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of analysis cycles",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Analysis cycles by result",
		}, []string{"result"}),
		SymbolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "symbols_total",
			Help:      "Symbols processed by outcome",
		}, []string{"outcome"}),
		CandidatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Candidates passing the score floor",
		}),
		DuplicatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Candidates suppressed as duplicates",
		}),
		SelectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selected_total",
			Help:      "Candidates selected for signal creation",
		}),
		CreatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_created_total",
			Help:      "Signals created by direction",
		}, []string{"direction"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signal_transitions_total",
			Help:      "Signal status transitions by target status",
		}, []string{"status"}),
		PnLPercent: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "signal_pnl_percent",
			Help:      "PnL percent of closed signals",
			Buckets:   []float64{-10, -5, -3, -1.5, 0, 1.5, 3, 5, 10},
		}, []string{"status"}),
		PriceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_fetch_errors_total",
			Help:      "Failed price lookups during monitoring",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because the bus buffer was full",
		}),
		EventsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Subscriber failures by subscriber",
		}, []string{"subscriber"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and result",
		}, []string{"job", "result"}),
	}

	c.registry.MustRegister(
		c.CycleDuration, c.CyclesTotal, c.SymbolsTotal,
		c.CandidatesTotal, c.DuplicatesTotal, c.SelectedTotal, c.CreatedTotal,
		c.Transitions, c.PnLPercent, c.PriceErrors,
		c.EventsDropped, c.EventsFailed, c.JobRuns,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return c
}

// Registry - реестр для экспорта и тестов
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler - http.Handler для /metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// CycleStats - срез отчета цикла, нужный метрикам
type CycleStats struct {
	Duration   time.Duration
	Analyzed   int
	Skipped    int
	Errors     int
	Candidates int
	Duplicates int
	Selected   int
	Failed     bool
}

// ObserveCycle учитывает итог цикла анализа
func (c *Collector) ObserveCycle(s CycleStats) {
	c.CycleDuration.Observe(s.Duration.Seconds())
	result := "ok"
	if s.Failed {
		result = "error"
	}
	c.CyclesTotal.WithLabelValues(result).Inc()
	c.SymbolsTotal.WithLabelValues("analyzed").Add(float64(s.Analyzed))
	c.SymbolsTotal.WithLabelValues("skipped").Add(float64(s.Skipped))
	c.SymbolsTotal.WithLabelValues("error").Add(float64(s.Errors))
	c.CandidatesTotal.Add(float64(s.Candidates))
	c.DuplicatesTotal.Add(float64(s.Duplicates))
	c.SelectedTotal.Add(float64(s.Selected))
}

// ObserveJob - результат запуска задачи планировщика
func (c *Collector) ObserveJob(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.JobRuns.WithLabelValues(job, result).Inc()
}
