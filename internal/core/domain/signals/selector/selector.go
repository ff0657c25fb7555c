// internal/core/domain/signals/selector/selector.go
package selector

import (
	"math"
	"sort"
	"strings"

	"smart-money-screener/internal/core/domain/signals"
)

// Options - параметры отбора лучших сигналов
type Options struct {
	MinScore          int
	MaxSignals        int
	BalanceDirections bool
}

// DefaultOptions: порог 70, не больше 5 сигналов
func DefaultOptions() Options {
	return Options{MinScore: 70, MaxSignals: 5}
}

const balanceShare = 0.8

// Select отбирает лучших кандидатов: порог, сортировка по убыванию, усечение.
// При равенстве баллов сохраняется входной порядок.
func Select(cands []signals.Candidate, opts Options) []signals.Candidate {
	if opts.MaxSignals <= 0 {
		return nil
	}

	passed := make([]signals.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.FinalScore >= opts.MinScore {
			passed = append(passed, c)
		}
	}
	byScore(passed)

	if opts.BalanceDirections {
		passed = balance(passed, opts.MaxSignals)
	}
	if len(passed) > opts.MaxSignals {
		passed = passed[:opts.MaxSignals]
	}
	return passed
}

func byScore(cands []signals.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].FinalScore > cands[j].FinalScore
	})
}

// balance ограничивает каждое направление долей ceil(max*0.8)
func balance(sorted []signals.Candidate, max int) []signals.Candidate {
	limit := int(math.Ceil(float64(max) * balanceShare))

	var buys, sells []signals.Candidate
	for _, c := range sorted {
		switch c.Analysis.Recommendation {
		case signals.RecommendationBuy:
			if len(buys) < limit {
				buys = append(buys, c)
			}
		case signals.RecommendationSell:
			if len(sells) < limit {
				sells = append(sells, c)
			}
		}
	}
	out := append(buys, sells...)
	byScore(out)
	return out
}

// Filters - дополнительные фильтры отбора; нулевые значения не ограничивают
type Filters struct {
	MinConfidence     float64
	Direction         signals.Direction
	MinTechnicalScore *float64
	IncludeSymbols    []string
	ExcludeSymbols    []string
}

// ApplyFilters возвращает кандидатов, прошедших все фильтры, в исходном порядке
func ApplyFilters(cands []signals.Candidate, f Filters) []signals.Candidate {
	include := symbolSet(f.IncludeSymbols)
	exclude := symbolSet(f.ExcludeSymbols)

	out := make([]signals.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Analysis.Confidence < f.MinConfidence {
			continue
		}
		if f.Direction != "" {
			if dir, ok := c.Direction(); !ok || dir != f.Direction {
				continue
			}
		}
		if f.MinTechnicalScore != nil && c.TechnicalScore < *f.MinTechnicalScore {
			continue
		}
		sym := strings.ToUpper(c.Symbol)
		if len(include) > 0 {
			if _, ok := include[sym]; !ok {
				continue
			}
		}
		if _, ok := exclude[sym]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

func symbolSet(symbols []string) map[string]struct{} {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}
