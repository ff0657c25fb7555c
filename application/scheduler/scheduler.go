// application/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"smart-money-screener/pkg/logger"
)

// Schedule - когда запускать задачу
type Schedule struct {
	kind     scheduleKind
	hour     int
	minute   int
	interval time.Duration
}

type scheduleKind int

const (
	kindDaily    scheduleKind = iota // раз в сутки в HH:MM UTC
	kindInterval                     // каждые N
)

// DailyAt - "каждый день в HH:MM UTC"
func DailyAt(hour, minute int) Schedule {
	return Schedule{kind: kindDaily, hour: hour, minute: minute}
}

// Every - "каждые d"
func Every(d time.Duration) Schedule {
	return Schedule{kind: kindInterval, interval: d}
}

func (s Schedule) String() string {
	if s.kind == kindDaily {
		return fmt.Sprintf("daily %02d:%02d UTC", s.hour, s.minute)
	}
	return "every " + s.interval.String()
}

// next - время следующего запуска после now
func (s Schedule) next(now time.Time) time.Time {
	now = now.UTC()
	switch s.kind {
	case kindDaily:
		next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}
		return next
	case kindInterval:
		if s.interval <= 0 {
			return now.Add(time.Minute)
		}
		return now.Add(s.interval)
	}
	return now.Add(24 * time.Hour)
}

// Job - одна периодическая задача
type Job struct {
	Name     string
	Schedule Schedule
	Handler  func(ctx context.Context) error
	// Timeout - лимит одного запуска; 0 - без лимита
	Timeout time.Duration
	// Immediate - первый запуск сразу при старте
	Immediate bool

	mu      sync.Mutex
	running bool
	nextRun time.Time
	lastRun time.Time
	lastDur time.Duration
	lastErr error
	runs    int
	skipped int
}

// JobStatus - снапшот состояния задачи
type JobStatus struct {
	Name         string        `json:"name"`
	Schedule     string        `json:"schedule"`
	Running      bool          `json:"running"`
	NextRun      time.Time     `json:"next_run"`
	LastRun      time.Time     `json:"last_run"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
	Runs         int           `json:"runs"`
	Skipped      int           `json:"skipped"`
}

// Status возвращает текущее состояние задачи
func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := JobStatus{
		Name:         j.Name,
		Schedule:     j.Schedule.String(),
		Running:      j.running,
		NextRun:      j.nextRun,
		LastRun:      j.lastRun,
		LastDuration: j.lastDur,
		Runs:         j.runs,
		Skipped:      j.skipped,
	}
	if j.lastErr != nil {
		st.LastError = j.lastErr.Error()
	}
	return st
}

// Scheduler - запуск задач по расписанию.
// Задача не стартует повторно, пока предыдущий запуск не завершился.
type Scheduler struct {
	mu         sync.RWMutex
	jobs       []*Job
	resolution time.Duration
	now        func() time.Time

	// OnRun - хук после каждого запуска (метрики)
	OnRun func(job string, err error)

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	stopChan chan struct{}
	loopWg   sync.WaitGroup
	runWg    sync.WaitGroup
}

// ErrStopTimeout - задачи не уложились в grace период
var ErrStopTimeout = errors.New("scheduler: jobs did not finish within grace period")

// New создает планировщик; resolution - период проверки расписания
func New(resolution time.Duration) *Scheduler {
	if resolution <= 0 {
		resolution = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		resolution: resolution,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Register добавляет задачу. Вызывается до Start.
func (s *Scheduler) Register(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if job.Immediate {
		job.nextRun = now.UTC()
	} else {
		job.nextRun = job.Schedule.next(now)
	}
	s.jobs = append(s.jobs, job)

	logger.Info("📋 [Scheduler] Задача %q (%s), первый запуск %s",
		job.Name, job.Schedule, job.nextRun.Format("2006-01-02 15:04:05 UTC"))
}

// Start запускает цикл планировщика
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	n := len(s.jobs)
	s.mu.Unlock()

	s.loopWg.Add(1)
	go func() {
		defer s.loopWg.Done()
		s.loop(stop)
	}()
	logger.Info("✅ [Scheduler] Запущен (%d задач, шаг %v)", n, s.resolution)
}

// Stop прекращает планирование и ждет текущие запуски не дольше grace.
// По истечении grace контекст задач отменяется.
func (s *Scheduler) Stop(grace time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.cancel()
		return nil
	}
	s.started = false
	close(s.stopChan)
	s.mu.Unlock()
	s.loopWg.Wait()

	done := make(chan struct{})
	go func() {
		s.runWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		logger.Info("🛑 [Scheduler] Остановлен")
		return nil
	case <-time.After(grace):
		s.cancel()
		logger.Warn("⚠️ [Scheduler] Задачи прерваны по истечении %v", grace)
		return ErrStopTimeout
	}
}

// Jobs возвращает статус всех задач
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	jobs := append([]*Job(nil), s.jobs...)
	s.mu.RUnlock()

	out := make([]JobStatus, len(jobs))
	for i, j := range jobs {
		out[i] = j.Status()
	}
	return out
}

// RunNow запускает задачу по имени вне расписания (если она не выполняется)
func (s *Scheduler) RunNow(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.jobs {
		if j.Name == name {
			return s.launch(j)
		}
	}
	return false
}

func (s *Scheduler) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(s.resolution)
	defer ticker.Stop()

	s.tick()
	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-stop:
			return
		}
	}
}

// tick запускает задачи, время которых наступило
func (s *Scheduler) tick() {
	now := s.now().UTC()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, job := range s.jobs {
		job.mu.Lock()
		due := !now.Before(job.nextRun)
		job.mu.Unlock()
		if due {
			s.launch(job)
		}
	}
}

// launch стартует задачу, если она не выполняется; иначе запуск пропускается
func (s *Scheduler) launch(job *Job) bool {
	job.mu.Lock()
	if job.running {
		job.skipped++
		job.nextRun = job.Schedule.next(s.now())
		job.mu.Unlock()
		logger.Warn("⏭️ [Scheduler] %q еще выполняется, запуск пропущен", job.Name)
		return false
	}
	job.running = true
	job.mu.Unlock()

	s.runWg.Add(1)
	go s.run(job)
	return true
}

// run выполняет одну задачу и обновляет ее состояние
func (s *Scheduler) run(job *Job) {
	defer s.runWg.Done()

	ctx := s.ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := s.now()
	err := s.safeRun(ctx, job)
	elapsed := s.now().Sub(start)

	job.mu.Lock()
	job.running = false
	job.lastRun = start
	job.lastDur = elapsed
	job.lastErr = err
	job.runs++
	job.nextRun = job.Schedule.next(s.now())
	nextRun := job.nextRun
	job.mu.Unlock()

	if s.OnRun != nil {
		s.OnRun(job.Name, err)
	}
	if err != nil {
		logger.Error("❌ [Scheduler] %q завершилась с ошибкой за %v: %v", job.Name, elapsed, err)
		return
	}
	logger.Debug("✅ [Scheduler] %q выполнена за %v, следующий запуск %s",
		job.Name, elapsed, nextRun.Format("15:04:05 UTC"))
}

func (s *Scheduler) safeRun(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Handler(ctx)
}
