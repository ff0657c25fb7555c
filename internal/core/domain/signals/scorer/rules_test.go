// internal/core/domain/signals/scorer/rules_test.go
package scorer

import (
	"testing"

	"smart-money-screener/internal/core/domain/market"
	"smart-money-screener/internal/core/domain/signals"
)

func ruleInput(snap market.Snapshot) *input {
	return &input{
		snap:     snap,
		ind:      snap.Indicators,
		th:       DefaultThresholds(),
		totalLiq: snap.SumLongLiquidationsUSD + snap.SumShortLiquidationsUSD,
	}
}

func lastNote(s state) string {
	if len(s.reasoning) == 0 {
		return ""
	}
	return s.reasoning[len(s.reasoning)-1]
}

func TestRuleSteps(t *testing.T) {
	spike := &market.FundingQuote{Exchange: "bybit", Value: 0.03}

	tests := []struct {
		name     string
		rule     func(state, *input) state
		start    state
		snap     market.Snapshot
		wantRec  signals.Recommendation
		wantConf float64
		wantNote string
	}{
		{
			name:     "funding spike raises",
			rule:     fundingMomentum,
			start:    neutral(),
			snap:     market.Snapshot{AvgFundingRate: 0.005, BestFundingRate: spike},
			wantRec:  signals.RecommendationWait,
			wantConf: 0.6,
			wantNote: "⚡ Всплеск фандинга на bybit (x6.0 к среднему)",
		},
		{
			name:     "funding spike capped at 0.70",
			rule:     fundingMomentum,
			start:    neutral().long(0.65),
			snap:     market.Snapshot{AvgFundingRate: 0.005, BestFundingRate: spike},
			wantRec:  signals.RecommendationBuy,
			wantConf: 0.70,
			wantNote: "⚡ Всплеск фандинга на bybit (x6.0 к среднему)",
		},
		{
			name:     "funding x5 is not a spike",
			rule:     fundingMomentum,
			start:    neutral(),
			snap:     market.Snapshot{AvgFundingRate: 0.005, BestFundingRate: &market.FundingQuote{Exchange: "okx", Value: 0.025}},
			wantRec:  signals.RecommendationWait,
			wantConf: 0.5,
		},
		{
			name:  "volume dominance scales confidence",
			rule:  volumeDominance,
			start: neutral().long(0.8),
			snap: market.Snapshot{
				TotalVolumeUSD:    100_000_000,
				TopVolumeExchange: &market.VolumeLeader{Exchange: "binance", VolumeUSD: 60_000_000},
			},
			wantRec:  signals.RecommendationBuy,
			wantConf: 0.68,
			wantNote: "⚠️ binance дает 60% объема: риск манипуляции",
		},
		{
			name:  "half of volume is not dominance",
			rule:  volumeDominance,
			start: neutral().long(0.8),
			snap: market.Snapshot{
				TotalVolumeUSD:    100_000_000,
				TopVolumeExchange: &market.VolumeLeader{Exchange: "binance", VolumeUSD: 50_000_000},
			},
			wantRec:  signals.RecommendationBuy,
			wantConf: 0.8,
		},
		{
			name:     "weak volume lowers by 0.4",
			rule:     volumeGate,
			start:    neutral().long(0.75),
			snap:     market.Snapshot{Indicators: &market.Indicators{VolumeStrength: market.VolumeWeak}},
			wantRec:  signals.RecommendationBuy,
			wantConf: 0.35,
			wantNote: "⚠️ Слабый объем: надежность сигнала снижена",
		},
		{
			name:     "weak volume floors at zero",
			rule:     volumeGate,
			start:    neutral().withConfidence(0.3),
			snap:     market.Snapshot{Indicators: &market.Indicators{VolumeStrength: market.VolumeWeak}},
			wantRec:  signals.RecommendationWait,
			wantConf: 0,
			wantNote: "⚠️ Слабый объем: надежность сигнала снижена",
		},
		{
			name:     "low open interest lowers by 0.2",
			rule:     openInterest,
			start:    neutral().long(0.75),
			snap:     market.Snapshot{AvgOpenInterestUSD: 2_000_000},
			wantRec:  signals.RecommendationBuy,
			wantConf: 0.55,
			wantNote: "📉 Открытый интерес низкий ($2.00M): сигнал слабее",
		},
		{
			name:     "low open interest floors at 0.4",
			rule:     openInterest,
			start:    neutral().long(0.5),
			snap:     market.Snapshot{AvgOpenInterestUSD: 2_000_000},
			wantRec:  signals.RecommendationBuy,
			wantConf: 0.4,
			wantNote: "📉 Открытый интерес низкий ($2.00M): сигнал слабее",
		},
		{
			name:     "high open interest capped at 0.90",
			rule:     openInterest,
			start:    neutral().long(0.88),
			snap:     market.Snapshot{AvgOpenInterestUSD: 150_000_000},
			wantRec:  signals.RecommendationBuy,
			wantConf: 0.90,
			wantNote: "📊 Открытый интерес высокий ($150M): интерес крупных игроков",
		},
		{
			name:     "moderate open interest untouched",
			rule:     openInterest,
			start:    neutral().long(0.75),
			snap:     market.Snapshot{AvgOpenInterestUSD: 50_000_000},
			wantRec:  signals.RecommendationBuy,
			wantConf: 0.75,
		},
		{
			name:  "high ATR and neutral indicators",
			rule:  technicalAlignment,
			start: neutral().long(0.75),
			snap: market.Snapshot{Indicators: &market.Indicators{
				ATRSignal: market.ATRHighVolatility, OverallSignal: market.OverallNeutral,
			}},
			wantRec:  signals.RecommendationBuy,
			wantConf: 0.65,
			wantNote: "⚠️ Индикаторы нейтральны",
		},
		{
			name:     "neutral penalty floors at 0.5",
			rule:     technicalAlignment,
			start:    neutral().long(0.52),
			snap:     market.Snapshot{Indicators: &market.Indicators{OverallSignal: market.OverallNeutral}},
			wantRec:  signals.RecommendationBuy,
			wantConf: 0.5,
			wantNote: "⚠️ Индикаторы нейтральны",
		},
		{
			name:     "bullish overall confirms buy",
			rule:     technicalAlignment,
			start:    neutral().long(0.75),
			snap:     market.Snapshot{Indicators: &market.Indicators{OverallSignal: market.OverallBullish}},
			wantRec:  signals.RecommendationBuy,
			wantConf: 0.90,
			wantNote: "✅ Индикаторы в целом бычьи",
		},
		{
			name:     "bearish overall confirm capped at 0.95",
			rule:     technicalAlignment,
			start:    neutral().short(0.9),
			snap:     market.Snapshot{Indicators: &market.Indicators{OverallSignal: market.OverallBearish}},
			wantRec:  signals.RecommendationSell,
			wantConf: 0.95,
			wantNote: "✅ Индикаторы в целом медвежьи",
		},
		{
			name:     "bullish overall ignored for sell",
			rule:     technicalAlignment,
			start:    neutral().short(0.75),
			snap:     market.Snapshot{Indicators: &market.Indicators{OverallSignal: market.OverallBullish}},
			wantRec:  signals.RecommendationSell,
			wantConf: 0.75,
		},
		{
			name:  "technical fallback long",
			rule:  lowLiquidationFallback,
			start: neutral(),
			snap: market.Snapshot{Indicators: &market.Indicators{
				OverallSignal: market.OverallBullish, RSISignal: market.RSIOversold,
			}},
			wantRec:  signals.RecommendationBuy,
			wantConf: 0.6,
			wantNote: "📊 Технический бычий сигнал без ликвидаций",
		},
		{
			name:  "technical fallback short",
			rule:  lowLiquidationFallback,
			start: neutral(),
			snap: market.Snapshot{Indicators: &market.Indicators{
				OverallSignal: market.OverallBearish, BBPosition: market.BBAboveUpper,
			}},
			wantRec:  signals.RecommendationSell,
			wantConf: 0.6,
			wantNote: "📊 Технический медвежий сигнал без ликвидаций",
		},
		{
			name:     "funding fallback long",
			rule:     lowLiquidationFallback,
			start:    neutral(),
			snap:     market.Snapshot{AvgFundingRate: -0.02, AvgOpenInterestUSD: 20_000_000},
			wantRec:  signals.RecommendationBuy,
			wantConf: 0.6,
			wantNote: "🔍 Экстремально отрицательный фандинг при хорошем OI: лонг",
		},
		{
			name:  "no fallback with enough liquidations",
			rule:  lowLiquidationFallback,
			start: neutral(),
			snap: market.Snapshot{
				SumLongLiquidationsUSD: 1_500_000,
				Indicators: &market.Indicators{
					OverallSignal: market.OverallBullish, RSISignal: market.RSIOversold,
				},
			},
			wantRec:  signals.RecommendationWait,
			wantConf: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rule(tt.start, ruleInput(tt.snap))

			if got.rec != tt.wantRec {
				t.Errorf("recommendation = %s, want %s", got.rec, tt.wantRec)
			}
			if !approx(got.confidence, tt.wantConf) {
				t.Errorf("confidence = %v, want %v", got.confidence, tt.wantConf)
			}
			switch {
			case tt.wantNote == "" && len(got.reasoning) != len(tt.start.reasoning):
				t.Errorf("unexpected note %q", lastNote(got))
			case tt.wantNote != "" && lastNote(got) != tt.wantNote:
				t.Errorf("note = %q, want %q", lastNote(got), tt.wantNote)
			}
		})
	}
}
