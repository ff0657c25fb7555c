// internal/infrastructure/persistence/postgres/models/analysis.go
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"smart-money-screener/internal/core/domain/signals"

	"github.com/lib/pq"
)

// AnalysisRow - последний анализ по символу
type AnalysisRow struct {
	Symbol         string         `db:"symbol"`
	Recommendation string         `db:"recommendation"`
	Confidence     float64        `db:"confidence"`
	Bias           string         `db:"bias"`
	FinalScore     int            `db:"final_score"`
	TechnicalScore float64        `db:"technical_score"`
	Price          float64        `db:"price"`
	Reasoning      pq.StringArray `db:"reasoning"`
	Analysis       string         `db:"analysis"` // JSONB; строка, т.к. []byte lib/pq кодирует как bytea
	AnalyzedAt     time.Time      `db:"analyzed_at"`
}

// NewAnalysisRow - кандидат → строка
func NewAnalysisRow(c signals.Candidate, at time.Time) (*AnalysisRow, error) {
	raw, err := json.Marshal(c.Analysis)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	return &AnalysisRow{
		Symbol:         c.Symbol,
		Recommendation: string(c.Analysis.Recommendation),
		Confidence:     c.Analysis.Confidence,
		Bias:           string(c.Analysis.Bias),
		FinalScore:     c.FinalScore,
		TechnicalScore: c.TechnicalScore,
		Price:          c.Snapshot.Price,
		Reasoning:      pq.StringArray(append([]string{}, c.Analysis.Reasoning...)),
		Analysis:       string(raw),
		AnalyzedAt:     at.UTC(),
	}, nil
}

// Result - сохраненный AnalysisResult
func (r *AnalysisRow) Result() (signals.AnalysisResult, error) {
	var res signals.AnalysisResult
	if err := json.Unmarshal([]byte(r.Analysis), &res); err != nil {
		return res, fmt.Errorf("analysis %s: %w", r.Symbol, err)
	}
	return res, nil
}
