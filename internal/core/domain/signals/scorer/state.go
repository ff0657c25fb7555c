// internal/core/domain/signals/scorer/state.go
package scorer

import (
	"math"

	"smart-money-screener/internal/core/domain/signals"
)

// state - неизменяемый аккумулятор свёртки правил.
// Каждый метод возвращает новую копию; reasoning копируется при дописывании.
type state struct {
	rec        signals.Recommendation
	confidence float64
	side       signals.PositionSide
	bias       signals.Bias
	reasoning  []string
	vetoed     bool
}

func neutral() state {
	return state{
		rec:        signals.RecommendationWait,
		confidence: 0.5,
		side:       signals.SideNone,
		bias:       signals.BiasNeutral,
	}
}

func (s state) note(msg string) state {
	r := make([]string, len(s.reasoning), len(s.reasoning)+1)
	copy(r, s.reasoning)
	s.reasoning = append(r, msg)
	return s
}

func (s state) withConfidence(c float64) state {
	s.confidence = c
	return s
}

// raise: min(limit, c+delta)
func (s state) raise(delta, limit float64) state {
	return s.withConfidence(math.Min(limit, s.confidence+delta))
}

// lower: max(floor, c-delta)
func (s state) lower(delta, floor float64) state {
	return s.withConfidence(math.Max(floor, s.confidence-delta))
}

func (s state) long(confidence float64) state {
	s.rec = signals.RecommendationBuy
	s.side = signals.SideLong
	s.bias = signals.BiasAccumulation
	s.confidence = confidence
	return s
}

func (s state) short(confidence float64) state {
	s.rec = signals.RecommendationSell
	s.side = signals.SideShort
	s.bias = signals.BiasDistribution
	s.confidence = confidence
	return s
}

func (s state) veto(msg string) state {
	s.rec = signals.RecommendationWait
	s.side = signals.SideNone
	s.bias = signals.BiasNeutral
	s.confidence = 0
	s.vetoed = true
	return s.note(msg)
}

func (s state) waiting() bool {
	return s.rec == signals.RecommendationWait
}

func (s state) result() signals.AnalysisResult {
	return signals.AnalysisResult{
		Recommendation: s.rec,
		Confidence:     s.confidence,
		Side:           s.side,
		Bias:           s.bias,
		Reasoning:      append([]string(nil), s.reasoning...),
	}
}
