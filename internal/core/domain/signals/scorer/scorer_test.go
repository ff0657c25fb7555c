// internal/core/domain/signals/scorer/scorer_test.go
package scorer

import (
	"math"
	"math/rand"
	"testing"

	"smart-money-screener/internal/core/domain/analysis/sr_levels"
	"smart-money-screener/internal/core/domain/market"
	"smart-money-screener/internal/core/domain/signals"
)

func liquidationSnapshot() market.Snapshot {
	return market.Snapshot{
		Symbol:                  "SOLUSDT",
		Price:                   100,
		AvgFundingRate:          -0.002,
		SumLongLiquidationsUSD:  12_000_000,
		SumShortLiquidationsUSD: 2_000_000,
		AvgOpenInterestUSD:      50_000_000,
		TotalVolumeUSD:          80_000_000,
		Indicators: &market.Indicators{
			RSI:            25,
			RSISignal:      market.RSIOversold,
			EMATrend:       market.EMAUptrend,
			VolumeStrength: market.VolumeStrong,
		},
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func testScorer() *Scorer {
	th := DefaultThresholds()
	th.MinLiquidationsUSD = 1_000_000
	th.LiquidationBiasRatio = 2.0
	return New(th)
}

func TestLongLiquidationsProduceBuy(t *testing.T) {
	res := testScorer().Analyze(liquidationSnapshot(), nil)

	if res.Recommendation != signals.RecommendationBuy {
		t.Fatalf("recommendation = %s, want buy", res.Recommendation)
	}
	if res.Confidence < 0.75 || res.Confidence > 0.95 {
		t.Errorf("confidence = %v, want [0.75, 0.95]", res.Confidence)
	}
	if res.Side != signals.SideLong || res.Bias != signals.BiasAccumulation {
		t.Errorf("side=%s bias=%s", res.Side, res.Bias)
	}
	if !(res.TakeProfit > 100 && res.StopLoss < 100) {
		t.Errorf("TP=%v SL=%v must bracket price", res.TakeProfit, res.StopLoss)
	}
	if res.EntryZone == nil || !res.EntryZone.Contains(100) {
		t.Errorf("entry zone %+v must contain price", res.EntryZone)
	}
	if len(res.Reasoning) == 0 {
		t.Error("reasoning must not be empty")
	}
}

func TestVeryWeakVolumeVetoes(t *testing.T) {
	snap := liquidationSnapshot()
	snap.Indicators.VolumeStrength = market.VolumeVeryWeak

	res, steps := testScorer().Explain(snap, nil)
	if res.Recommendation != signals.RecommendationWait || res.Confidence != 0 {
		t.Fatalf("got %s/%v, want wait/0", res.Recommendation, res.Confidence)
	}
	if res.EntryZone != nil || res.TakeProfit != 0 || res.StopLoss != 0 {
		t.Error("wait must not carry trade levels")
	}
	last := steps[len(steps)-1]
	if last.Rule != "volume_gate" || !last.Vetoed {
		t.Errorf("fold should stop at volume_gate, last step = %+v", last)
	}
}

func TestSellSnapsToLevels(t *testing.T) {
	snap := liquidationSnapshot()
	snap.SumLongLiquidationsUSD, snap.SumShortLiquidationsUSD = 2_000_000, 12_000_000
	snap.Indicators = &market.Indicators{RSISignal: market.RSINeutral, VolumeStrength: market.VolumeNormal}
	levels := []sr_levels.Level{
		{Price: 102, Type: sr_levels.LevelResistance, Significance: sr_levels.SignificanceHigh},
		{Price: 95, Type: sr_levels.LevelSupport, Significance: sr_levels.SignificanceMedium},
	}

	plain := testScorer().Analyze(snap, nil)
	res := testScorer().Analyze(snap, levels)
	if res.Recommendation != signals.RecommendationSell {
		t.Fatalf("recommendation = %s", res.Recommendation)
	}
	if !approx(res.TakeProfit, 95*1.002) {
		t.Errorf("TP = %v, want support*1.002", res.TakeProfit)
	}
	if !approx(res.StopLoss, 102*1.002) {
		t.Errorf("SL = %v, want resistance*1.002", res.StopLoss)
	}
	if res.Confidence <= plain.Confidence {
		t.Errorf("resistance above should boost confidence: %v <= %v", res.Confidence, plain.Confidence)
	}
	if res.EntryZone.From <= res.EntryZone.To {
		t.Errorf("sell zone goes from above to below price: %+v", res.EntryZone)
	}
}

func TestSnappedTargetOnWrongSideIsIgnored(t *testing.T) {
	levels := []sr_levels.Level{{Price: 100.1, Type: sr_levels.LevelResistance}}
	res := testScorer().Analyze(liquidationSnapshot(), levels)
	if !approx(res.TakeProfit, 103) {
		t.Errorf("TP = %v, want ratio target", res.TakeProfit)
	}
}

func TestBreakout(t *testing.T) {
	base := market.Snapshot{Symbol: "ADAUSDT", Price: 100, TotalVolumeUSD: 20_000_000}

	tests := []struct {
		name   string
		trend  market.EMATrend
		volume market.VolumeStrength
		levels []sr_levels.Level
		want   signals.Recommendation
		conf   float64
	}{
		{"support broken down", market.EMADowntrend, market.VolumeNormal,
			[]sr_levels.Level{{Price: 101, Type: sr_levels.LevelSupport}}, signals.RecommendationSell, 0.70},
		{"resistance broken up on volume", market.EMAUptrend, market.VolumeStrong,
			[]sr_levels.Level{{Price: 99, Type: sr_levels.LevelResistance}}, signals.RecommendationBuy, 0.85},
		{"support still below", market.EMADowntrend, market.VolumeNormal,
			[]sr_levels.Level{{Price: 98, Type: sr_levels.LevelSupport}}, signals.RecommendationWait, 0},
		{"trend disagrees", market.EMAUptrend, market.VolumeNormal,
			[]sr_levels.Level{{Price: 101, Type: sr_levels.LevelSupport}}, signals.RecommendationWait, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := base
			snap.Indicators = &market.Indicators{EMATrend: tt.trend, VolumeStrength: tt.volume}
			res := testScorer().Analyze(snap, tt.levels)
			if res.Recommendation != tt.want {
				t.Fatalf("recommendation = %s, want %s", res.Recommendation, tt.want)
			}
			if tt.want != signals.RecommendationWait && !approx(res.Confidence, tt.conf) {
				t.Errorf("confidence = %v, want %v", res.Confidence, tt.conf)
			}
		})
	}
}

func TestFundingExtremeWithModerateLiquidations(t *testing.T) {
	snap := market.Snapshot{
		Symbol:                 "XRPUSDT",
		Price:                  1,
		AvgFundingRate:         -0.008,
		SumLongLiquidationsUSD: 600_000,
		AvgOpenInterestUSD:     20_000_000,
	}
	res := testScorer().Analyze(snap, nil)
	if res.Recommendation != signals.RecommendationBuy || res.Confidence != 0.65 {
		t.Errorf("got %s/%v, want buy/0.65", res.Recommendation, res.Confidence)
	}
}

func TestInvalidPriceWaits(t *testing.T) {
	res := testScorer().Analyze(market.Snapshot{Symbol: "BTCUSDT"}, nil)
	if res.Recommendation != signals.RecommendationWait || res.Confidence != 0 {
		t.Errorf("got %s/%v", res.Recommendation, res.Confidence)
	}
}

func TestNoSignalsGetsDefaultNote(t *testing.T) {
	res := testScorer().Analyze(market.Snapshot{Symbol: "BTCUSDT", Price: 50_000, AvgOpenInterestUSD: 50_000_000}, nil)
	if res.Recommendation != signals.RecommendationWait || len(res.Reasoning) != 1 {
		t.Errorf("got %s with %d notes", res.Recommendation, len(res.Reasoning))
	}
}

func TestResultInvariantsHoldForRandomInput(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sc := testScorer()

	pick := func(n int) uint8 { return uint8(rng.Intn(n)) }
	for i := 0; i < 2000; i++ {
		price := 0.01 + rng.Float64()*1000
		snap := market.Snapshot{
			Symbol:                  "TESTUSDT",
			Price:                   price,
			AvgFundingRate:          (rng.Float64() - 0.5) * 0.04,
			SumLongLiquidationsUSD:  rng.Float64() * 30_000_000,
			SumShortLiquidationsUSD: rng.Float64() * 30_000_000,
			AvgOpenInterestUSD:      rng.Float64() * 300_000_000,
			TotalVolumeUSD:          rng.Float64() * 1e9,
			Indicators: &market.Indicators{
				RSISignal:      market.RSISignal(pick(6)),
				EMATrend:       market.EMATrend(pick(6)),
				BBPosition:     market.BBPosition(pick(6)),
				ATRSignal:      market.ATRSignal(pick(6)),
				VolumeStrength: market.VolumeStrength(pick(7)),
				OverallSignal:  market.OverallSignal(pick(4)),
			},
		}
		if rng.Intn(2) == 0 {
			snap.BestFundingRate = &market.FundingQuote{Exchange: "binance", Value: (rng.Float64() - 0.5) * 0.1}
			snap.TopVolumeExchange = &market.VolumeLeader{Exchange: "bybit", VolumeUSD: snap.TotalVolumeUSD * rng.Float64()}
		}
		var levels []sr_levels.Level
		for j := rng.Intn(5); j > 0; j-- {
			typ := sr_levels.LevelSupport
			if rng.Intn(2) == 0 {
				typ = sr_levels.LevelResistance
			}
			levels = append(levels, sr_levels.Level{Price: price * (0.9 + rng.Float64()*0.2), Type: typ})
		}

		res := sc.Analyze(snap, levels)
		if res.Confidence < 0 || res.Confidence > 1 {
			t.Fatalf("case %d: confidence %v out of range", i, res.Confidence)
		}
		if len(res.Reasoning) == 0 {
			t.Fatalf("case %d: empty reasoning", i)
		}
		switch res.Recommendation {
		case signals.RecommendationWait:
			if res.HasTradeLevels() {
				t.Fatalf("case %d: wait with trade levels", i)
			}
		case signals.RecommendationBuy:
			if !(res.TakeProfit > price && res.StopLoss < price) {
				t.Fatalf("case %d: buy TP=%v SL=%v price=%v", i, res.TakeProfit, res.StopLoss, price)
			}
		case signals.RecommendationSell:
			if !(res.TakeProfit < price && res.StopLoss > price) {
				t.Fatalf("case %d: sell TP=%v SL=%v price=%v", i, res.TakeProfit, res.StopLoss, price)
			}
		}
	}
}
