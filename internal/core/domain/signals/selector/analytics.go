// internal/core/domain/signals/selector/analytics.go
package selector

import (
	"math"
	"sort"

	"smart-money-screener/internal/core/domain/signals"
)

// Distribution - мин/макс/среднее
type Distribution struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// ScoreDistribution - распределение итоговых баллов
type ScoreDistribution struct {
	Distribution
	Above80 int `json:"above_80"`
	Above70 int `json:"above_70"`
	Above60 int `json:"above_60"`
}

// ConfidenceDistribution - распределение уверенности
type ConfidenceDistribution struct {
	Distribution
	Above90 int `json:"above_90"`
	Above80 int `json:"above_80"`
	Above70 int `json:"above_70"`
}

// TechnicalDistribution - распределение технического балла
type TechnicalDistribution struct {
	Distribution
	Positive int `json:"positive"`
	Negative int `json:"negative"`
}

// TopSymbol - строка топа
type TopSymbol struct {
	Symbol     string            `json:"symbol"`
	Score      int               `json:"score"`
	Direction  signals.Direction `json:"direction"`
	Confidence int               `json:"confidence_pct"`
}

// ReasonCount - частота строки обоснования
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Report - аналитика по набору кандидатов
type Report struct {
	Total      int                    `json:"total"`
	Buy        int                    `json:"buy"`
	Sell       int                    `json:"sell"`
	Score      ScoreDistribution      `json:"score"`
	Confidence ConfidenceDistribution `json:"confidence"`
	Technical  TechnicalDistribution  `json:"technical"`
	TopSymbols []TopSymbol            `json:"top_symbols"`
	TopReasons []ReasonCount          `json:"top_reasons"`
}

const topN = 5

// Analytics строит отчет; для пустого набора возвращает нулевой отчет
func Analytics(cands []signals.Candidate) Report {
	r := Report{Total: len(cands)}
	if len(cands) == 0 {
		return r
	}

	scores := make([]float64, len(cands))
	confs := make([]float64, len(cands))
	techs := make([]float64, len(cands))
	reasons := make(map[string]int)

	for i, c := range cands {
		scores[i] = float64(c.FinalScore)
		confs[i] = c.Analysis.Confidence
		techs[i] = c.TechnicalScore

		switch c.Analysis.Recommendation {
		case signals.RecommendationBuy:
			r.Buy++
		case signals.RecommendationSell:
			r.Sell++
		}

		switch {
		case c.FinalScore > 80:
			r.Score.Above80++
			fallthrough
		case c.FinalScore > 70:
			r.Score.Above70++
			fallthrough
		case c.FinalScore > 60:
			r.Score.Above60++
		}

		switch conf := c.Analysis.Confidence; {
		case conf > 0.9:
			r.Confidence.Above90++
			fallthrough
		case conf > 0.8:
			r.Confidence.Above80++
			fallthrough
		case conf > 0.7:
			r.Confidence.Above70++
		}

		switch {
		case c.TechnicalScore > 0:
			r.Technical.Positive++
		case c.TechnicalScore < 0:
			r.Technical.Negative++
		}

		for _, reason := range c.Analysis.Reasoning {
			reasons[reason]++
		}
	}

	r.Score.Distribution = distribution(scores)
	r.Confidence.Distribution = distribution(confs)
	r.Technical.Distribution = distribution(techs)
	r.TopSymbols = topSymbols(cands)
	r.TopReasons = topReasons(reasons)
	return r
}

func distribution(values []float64) Distribution {
	d := Distribution{Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	for _, v := range values {
		d.Min = math.Min(d.Min, v)
		d.Max = math.Max(d.Max, v)
		sum += v
	}
	d.Avg = sum / float64(len(values))
	return d
}

func topSymbols(cands []signals.Candidate) []TopSymbol {
	sorted := append([]signals.Candidate(nil), cands...)
	byScore(sorted)
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}

	out := make([]TopSymbol, 0, len(sorted))
	for _, c := range sorted {
		dir, _ := c.Direction()
		out = append(out, TopSymbol{
			Symbol:     c.Symbol,
			Score:      c.FinalScore,
			Direction:  dir,
			Confidence: int(math.Round(c.Analysis.Confidence * 100)),
		})
	}
	return out
}

func topReasons(counts map[string]int) []ReasonCount {
	out := make([]ReasonCount, 0, len(counts))
	for reason, n := range counts {
		out = append(out, ReasonCount{Reason: reason, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
