// internal/infrastructure/persistence/in_memory_storage/analysis_store.go
package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"smart-money-screener/internal/core/domain/signals"
)

// AnalysisRecord - последний анализ символа
type AnalysisRecord struct {
	Candidate  signals.Candidate `json:"candidate"`
	AnalyzedAt time.Time         `json:"analyzed_at"`
}

// AnalysisStore - upsert анализа по символу
type AnalysisStore struct {
	mu      sync.RWMutex
	records map[string]AnalysisRecord
	now     func() time.Time
}

// NewAnalysisStore создает хранилище анализов
func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{records: make(map[string]AnalysisRecord), now: time.Now}
}

// SaveAnalysis заменяет предыдущий анализ символа
func (s *AnalysisStore) SaveAnalysis(ctx context.Context, cand signals.Candidate) error {
	cand.Levels = nil
	cand.Analysis.Reasoning = append([]string(nil), cand.Analysis.Reasoning...)

	s.mu.Lock()
	s.records[strings.ToUpper(cand.Symbol)] = AnalysisRecord{Candidate: cand, AnalyzedAt: s.now()}
	s.mu.Unlock()
	return nil
}

// Get - последний анализ символа
func (s *AnalysisStore) Get(symbol string) (AnalysisRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[strings.ToUpper(symbol)]
	return r, ok
}

// Len - число символов
func (s *AnalysisStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
