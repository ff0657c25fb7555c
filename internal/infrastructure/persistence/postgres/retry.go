// internal/infrastructure/persistence/postgres/retry.go
package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"smart-money-screener/internal/infrastructure/config"
	"smart-money-screener/pkg/logger"

	"github.com/jpillora/backoff"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Retrier повторяет операции при временных ошибках базы
type Retrier struct {
	attempts int
	min, max time.Duration
}

// NewRetrier - политика повторов из конфигурации
func NewRetrier(cfg config.DatabaseConfig) Retrier {
	r := Retrier{attempts: cfg.RetryAttempts, min: cfg.RetryMinDelay, max: cfg.RetryMaxDelay}
	if r.attempts <= 0 {
		r.attempts = 1
	}
	if r.min <= 0 {
		r.min = 100 * time.Millisecond
	}
	if r.max < r.min {
		r.max = r.min
	}
	return r
}

// Do выполняет fn, повторяя временные ошибки с экспоненциальной паузой
func (r Retrier) Do(ctx context.Context, op string, fn func() error) error {
	attempts := r.attempts
	if attempts <= 0 {
		attempts = 1
	}
	b := &backoff.Backoff{Min: r.min, Max: r.max, Factor: 2, Jitter: true}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil || !IsTransient(err) || attempt == attempts {
			return err
		}
		d := b.Duration()
		logger.Warn("🔁 [Postgres] %s: временная ошибка (%v), попытка %d/%d через %v", op, err, attempt, attempts, d)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(d):
		}
	}
	return err
}

// IsTransient - ошибки соединения, сериализации и дедлоки
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "08": // connection exception
			return true
		case pqErr.Code == "40001", pqErr.Code == "40P01": // serialization failure, deadlock
			return true
		case pqErr.Code == "57P01", pqErr.Code == "57P03": // admin shutdown, cannot connect now
			return true
		}
		return false
	}
	return false
}

// IsUniqueViolation - нарушение уникального индекса
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// IsConstraintViolation - нарушение конкретного уникального ограничения или индекса
func IsConstraintViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return IsUniqueViolation(err) && errors.As(err, &pqErr) && pqErr.Constraint == constraint
}
