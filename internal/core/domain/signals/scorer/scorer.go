// internal/core/domain/signals/scorer/scorer.go
package scorer

import (
	"fmt"
	"math"

	"smart-money-screener/internal/core/domain/analysis/sr_levels"
	"smart-money-screener/internal/core/domain/market"
	"smart-money-screener/internal/core/domain/signals"
)

// Thresholds - пороги стратегии
type Thresholds struct {
	ExtremeFundingThreshold float64 // |funding| выше - экстремум
	MinLiquidationsUSD      float64
	LiquidationBiasRatio    float64 // во сколько раз одна сторона должна превышать другую
	MinOpenInterestUSD      float64
	TakeProfitPercent       float64
	StopLossPercent         float64
	EntryDeviationPercent   float64 // полуширина зоны входа
}

// DefaultThresholds возвращает пороги по умолчанию
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExtremeFundingThreshold: 0.005,
		MinLiquidationsUSD:      1_000_000,
		LiquidationBiasRatio:    2.0,
		MinOpenInterestUSD:      5_000_000,
		TakeProfitPercent:       3.0,
		StopLossPercent:         1.5,
		EntryDeviationPercent:   0.8,
	}
}

// Step - запись трассировки одного правила
type Step struct {
	Rule           string                 `json:"rule"`
	Recommendation signals.Recommendation `json:"recommendation"`
	Confidence     float64                `json:"confidence"`
	Added          []string               `json:"added,omitempty"`
	Vetoed         bool                   `json:"vetoed,omitempty"`
}

// Scorer - чистая функция снапшот → рекомендация. Без состояния, потокобезопасен.
type Scorer struct {
	th    Thresholds
	rules []Rule
}

// New создает скорер; нулевые пороги заменяются значениями по умолчанию
func New(th Thresholds) *Scorer {
	def := DefaultThresholds()
	if th.ExtremeFundingThreshold <= 0 {
		th.ExtremeFundingThreshold = def.ExtremeFundingThreshold
	}
	if th.MinLiquidationsUSD <= 0 {
		th.MinLiquidationsUSD = def.MinLiquidationsUSD
	}
	if th.LiquidationBiasRatio <= 1 {
		th.LiquidationBiasRatio = def.LiquidationBiasRatio
	}
	if th.MinOpenInterestUSD <= 0 {
		th.MinOpenInterestUSD = def.MinOpenInterestUSD
	}
	if th.TakeProfitPercent <= 0 {
		th.TakeProfitPercent = def.TakeProfitPercent
	}
	if th.StopLossPercent <= 0 {
		th.StopLossPercent = def.StopLossPercent
	}
	if th.EntryDeviationPercent <= 0 {
		th.EntryDeviationPercent = def.EntryDeviationPercent
	}
	return &Scorer{th: th, rules: DefaultRules()}
}

// Thresholds возвращает действующие пороги
func (sc *Scorer) Thresholds() Thresholds {
	return sc.th
}

// Analyze оценивает снапшот. Никогда не паникует и не возвращает ошибку:
// отсутствующие поля трактуются нейтрально.
func (sc *Scorer) Analyze(snap market.Snapshot, levels []sr_levels.Level) signals.AnalysisResult {
	res, _ := sc.run(snap, levels, false)
	return res
}

// Explain - то же, что Analyze, плюс пошаговая трассировка правил
func (sc *Scorer) Explain(snap market.Snapshot, levels []sr_levels.Level) (signals.AnalysisResult, []Step) {
	return sc.run(snap, levels, true)
}

func (sc *Scorer) run(snap market.Snapshot, levels []sr_levels.Level, trace bool) (signals.AnalysisResult, []Step) {
	if !(snap.Price > 0) || math.IsInf(snap.Price, 0) {
		s := neutral().withConfidence(0).note("⚠️ Нет корректной цены: анализ невозможен")
		return s.result(), nil
	}

	in := &input{
		snap:     snap,
		ind:      snap.Indicators,
		levels:   levels,
		th:       sc.th,
		totalLiq: snap.TotalLiquidationsUSD(),
	}

	var steps []Step
	s := neutral()
	for _, r := range sc.rules {
		before := len(s.reasoning)
		s = r.Apply(s, in)
		if trace {
			steps = append(steps, Step{
				Rule:           r.Name,
				Recommendation: s.rec,
				Confidence:     s.confidence,
				Added:          append([]string(nil), s.reasoning[before:]...),
				Vetoed:         s.vetoed,
			})
		}
		if s.vetoed {
			break
		}
	}

	var res signals.AnalysisResult
	if s.waiting() {
		res = s.result()
	} else {
		res = sc.tradeLevels(s, in).result()
		res.EntryZone, res.TakeProfit, res.StopLoss = sc.levelsFor(s.rec, in)
	}
	res.Confidence = finalizeConfidence(res.Confidence)
	return res, steps
}

// tradeLevels добавляет буст уверенности за соседний уровень под стоп
func (sc *Scorer) tradeLevels(s state, in *input) state {
	price := in.snap.Price
	switch s.rec {
	case signals.RecommendationBuy:
		if sup, ok := sr_levels.NearestBelow(in.levels, price, sr_levels.LevelSupport); ok {
			s = s.raise(0.20, 0.95).note(fmt.Sprintf("🛡 Стоп за поддержкой $%.4f", sup.Price))
		}
	case signals.RecommendationSell:
		if res, ok := sr_levels.NearestAbove(in.levels, price, sr_levels.LevelResistance); ok {
			s = s.raise(0.20, 0.95).note(fmt.Sprintf("🛡 Стоп за сопротивлением $%.4f", res.Price))
		}
	}
	return s
}

// levelsFor считает зону входа, TP и SL. Уровень используется только если
// после сдвига остается по нужную сторону от цены.
func (sc *Scorer) levelsFor(rec signals.Recommendation, in *input) (*signals.EntryZone, float64, float64) {
	p := in.snap.Price
	d := sc.th.EntryDeviationPercent / 100

	switch rec {
	case signals.RecommendationBuy:
		tp := p * (1 + sc.th.TakeProfitPercent/100)
		if res, ok := sr_levels.NearestAbove(in.levels, p, sr_levels.LevelResistance); ok {
			if snapped := res.Price * 0.998; snapped > p {
				tp = snapped
			}
		}
		sl := p * (1 - sc.th.StopLossPercent/100)
		if sup, ok := sr_levels.NearestBelow(in.levels, p, sr_levels.LevelSupport); ok {
			if snapped := sup.Price * 0.998; snapped < p {
				sl = snapped
			}
		}
		return &signals.EntryZone{From: p * (1 - d), To: p * (1 + d)}, tp, sl

	case signals.RecommendationSell:
		tp := p * (1 - sc.th.TakeProfitPercent/100)
		if sup, ok := sr_levels.NearestBelow(in.levels, p, sr_levels.LevelSupport); ok {
			if snapped := sup.Price * 1.002; snapped < p {
				tp = snapped
			}
		}
		sl := p * (1 + sc.th.StopLossPercent/100)
		if res, ok := sr_levels.NearestAbove(in.levels, p, sr_levels.LevelResistance); ok {
			if snapped := res.Price * 1.002; snapped > p {
				sl = snapped
			}
		}
		return &signals.EntryZone{From: p * (1 + d), To: p * (1 - d)}, tp, sl
	}
	return nil, 0, 0
}

func finalizeConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	c = math.Round(c*100) / 100
	return math.Max(0, math.Min(1, c))
}
