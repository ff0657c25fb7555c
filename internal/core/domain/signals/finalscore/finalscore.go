// internal/core/domain/signals/finalscore/finalscore.go
package finalscore

import (
	"fmt"
	"math"

	"smart-money-screener/internal/core/domain/analysis/sr_levels"
	"smart-money-screener/internal/core/domain/market"
	"smart-money-screener/internal/core/domain/signals"
)

// Weights - веса компонент, в сумме 1
type Weights struct {
	Confidence   float64 `json:"confidence"`
	Technical    float64 `json:"technical"`
	SmartMoney   float64 `json:"smart_money"`
	Volume       float64 `json:"volume"`
	Liquidations float64 `json:"liquidations"`
	OpenInterest float64 `json:"open_interest"`
	Funding      float64 `json:"funding"`
	RiskReward   float64 `json:"risk_reward"`
	SRConfluence float64 `json:"sr_confluence"`
}

// DefaultWeights - распределение по умолчанию
func DefaultWeights() Weights {
	return Weights{
		Confidence:   0.15,
		Technical:    0.15,
		SmartMoney:   0.20,
		Volume:       0.10,
		Liquidations: 0.10,
		OpenInterest: 0.05,
		Funding:      0.05,
		RiskReward:   0.05,
		SRConfluence: 0.15,
	}
}

func (w Weights) sum() float64 {
	return w.Confidence + w.Technical + w.SmartMoney + w.Volume + w.Liquidations +
		w.OpenInterest + w.Funding + w.RiskReward + w.SRConfluence
}

// Validate проверяет, что веса неотрицательны и дают 1
func (w Weights) Validate() error {
	for _, v := range []float64{w.Confidence, w.Technical, w.SmartMoney, w.Volume, w.Liquidations,
		w.OpenInterest, w.Funding, w.RiskReward, w.SRConfluence} {
		if v < 0 {
			return fmt.Errorf("negative weight %v", v)
		}
	}
	if s := w.sum(); math.Abs(s-1) > 1e-6 {
		return fmt.Errorf("weights sum to %.4f, want 1", s)
	}
	return nil
}

// Components - оценки компонент, каждая 0..100
type Components struct {
	Confidence   float64 `json:"confidence"`
	Technical    float64 `json:"technical"`
	SmartMoney   float64 `json:"smart_money"`
	Volume       float64 `json:"volume"`
	Liquidations float64 `json:"liquidations"`
	OpenInterest float64 `json:"open_interest"`
	Funding      float64 `json:"funding"`
	RiskReward   float64 `json:"risk_reward"`
	SRConfluence float64 `json:"sr_confluence"`
}

func (c Components) weighted(w Weights) float64 {
	return c.Confidence*w.Confidence +
		c.Technical*w.Technical +
		c.SmartMoney*w.SmartMoney +
		c.Volume*w.Volume +
		c.Liquidations*w.Liquidations +
		c.OpenInterest*w.OpenInterest +
		c.Funding*w.Funding +
		c.RiskReward*w.RiskReward +
		c.SRConfluence*w.SRConfluence
}

// Breakdown - разбор итогового балла
type Breakdown struct {
	Components Components `json:"components"`
	Weighted   float64    `json:"weighted"`
	Bonus      float64    `json:"bonus"`
	Final      int        `json:"final"`
}

// Calculator считает итоговый балл 0..100
type Calculator struct {
	weights Weights
}

// New создает калькулятор; некорректные веса заменяются дефолтными
func New(w Weights) *Calculator {
	if w.Validate() != nil {
		w = DefaultWeights()
	}
	return &Calculator{weights: w}
}

// Weights возвращает действующие веса
func (c *Calculator) Weights() Weights {
	return c.weights
}

// Calculate - итоговый балл кандидата; для wait всегда 0
func (c *Calculator) Calculate(cand signals.Candidate) int {
	return c.Explain(cand).Final
}

// Explain возвращает полный разбор балла
func (c *Calculator) Explain(cand signals.Candidate) Breakdown {
	a := cand.Analysis
	if _, ok := a.Recommendation.Direction(); !ok {
		return Breakdown{}
	}
	snap := cand.Snapshot

	comp := Components{
		Confidence:   ConfidenceScore(a.Confidence),
		Technical:    TechnicalScore(cand.TechnicalScore),
		SmartMoney:   SmartMoneyScore(snap),
		Volume:       tierScore(snap.TotalVolumeUSD),
		Liquidations: LiquidationScore(snap),
		OpenInterest: tierScore(snap.AvgOpenInterestUSD),
		Funding:      FundingScore(snap.AvgFundingRate),
		RiskReward:   RiskRewardScore(a),
		SRConfluence: SRConfluenceScore(a.Recommendation, snap.Price, cand.Levels),
	}
	weighted := comp.weighted(c.weights)
	bonus := Bonus(a, snap)

	final := int(math.Round(weighted + bonus))
	if final < 0 {
		final = 0
	}
	if final > 100 {
		final = 100
	}
	return Breakdown{Components: comp, Weighted: weighted, Bonus: bonus, Final: final}
}

// ConfidenceScore: 0.5..1.0 → 0..100
func ConfidenceScore(confidence float64) float64 {
	if confidence < 0.5 {
		return 0
	}
	return (confidence - 0.5) * 200
}

// TechnicalScore: -100..100 → 0..100
func TechnicalScore(t float64) float64 {
	return math.Max(0, (t+100)/2)
}

// SmartMoneyScore оценивает перекос ликвидаций и масштаб рынка
func SmartMoneyScore(s market.Snapshot) float64 {
	long, short := s.SumLongLiquidationsUSD, s.SumShortLiquidationsUSD
	total := long + short
	if total < 1_000_000 {
		return 0
	}

	score := 0.0
	ratio := 10.0
	if short > 0 {
		ratio = long / short
	}
	if ratio > 3 || ratio < 0.33 {
		score += 40
	} else {
		score += 10
	}

	switch {
	case total > 50_000_000:
		score += 30
	case total > 10_000_000:
		score += 20
	default:
		score += 10
	}

	switch oi := s.AvgOpenInterestUSD; {
	case oi > 100_000_000:
		score += 30
	case oi > 10_000_000:
		score += 20
	default:
		score += 10
	}
	return math.Min(100, score)
}

// tierScore - общая шкала для объема и открытого интереса
func tierScore(usd float64) float64 {
	switch {
	case usd > 1_000_000_000:
		return 100
	case usd > 500_000_000:
		return 80
	case usd > 100_000_000:
		return 60
	case usd > 50_000_000:
		return 40
	case usd > 10_000_000:
		return 20
	}
	return 0
}

// LiquidationScore - масштаб ликвидаций плюс перекос сторон
func LiquidationScore(s market.Snapshot) float64 {
	long, short := s.SumLongLiquidationsUSD, s.SumShortLiquidationsUSD
	total := long + short
	if total < 1_000_000 {
		return 0
	}

	var score float64
	switch {
	case total > 100_000_000:
		score = 40
	case total > 50_000_000:
		score = 30
	case total > 10_000_000:
		score = 20
	default:
		score = 10
	}

	ratio := 10.0
	if short > 0 {
		ratio = long / short
	}
	switch {
	case ratio > 5 || ratio < 0.2:
		score += 60
	case ratio > 2 || ratio < 0.5:
		score += 40
	default:
		score += 20
	}
	return math.Min(100, score)
}

// FundingScore - чем экстремальнее фандинг, тем выше
func FundingScore(rate float64) float64 {
	switch r := math.Abs(rate); {
	case r > 0.01:
		return 100
	case r > 0.005:
		return 80
	case r > 0.002:
		return 60
	case r > 0.001:
		return 40
	}
	return 20
}

// RiskRewardScore - отношение прибыли к риску от середины зоны входа
func RiskRewardScore(a signals.AnalysisResult) float64 {
	if !a.HasTradeLevels() {
		return 50
	}
	entry := a.EntryZone.Mid()
	risk := math.Abs(entry - a.StopLoss)
	if risk == 0 {
		return 0
	}
	switch rr := math.Abs(a.TakeProfit-entry) / risk; {
	case rr > 3:
		return 100
	case rr > 2:
		return 80
	case rr > 1.5:
		return 60
	case rr > 1:
		return 40
	}
	return 20
}

// SRConfluenceScore - близость цены к значимому уровню на стороне сигнала.
// 100 на уровне, 0 при удалении на 1% и дальше.
func SRConfluenceScore(rec signals.Recommendation, price float64, levels []sr_levels.Level) float64 {
	if len(levels) == 0 || price <= 0 {
		return 50
	}
	typ := sr_levels.LevelResistance
	if rec == signals.RecommendationBuy {
		typ = sr_levels.LevelSupport
	}
	nearest, ok := sr_levels.NearestByDistance(levels, price, func(l sr_levels.Level) bool {
		return l.Type == typ && l.Significance != sr_levels.SignificanceLow
	})
	if !ok {
		return 50
	}
	proximity := math.Max(0, 1-(math.Abs(nearest.Price-price)/price)/0.01)
	return proximity * 100
}

// Bonus - надбавки за особые условия
func Bonus(a signals.AnalysisResult, s market.Snapshot) float64 {
	var b float64

	switch n := len(a.Reasoning); {
	case n >= 4:
		b += 5
	case n >= 3:
		b += 3
	}

	switch total := s.TotalLiquidationsUSD(); {
	case total > 200_000_000:
		b += 8
	case total > 100_000_000:
		b += 5
	}

	switch r := math.Abs(s.AvgFundingRate); {
	case r > 0.015:
		b += 10
	case r > 0.01:
		b += 5
	}

	switch {
	case a.Confidence > 0.9:
		b += 8
	case a.Confidence > 0.8:
		b += 5
	}
	return b
}
