// internal/core/domain/market/snapshot_test.go
package market

import (
	"encoding/json"
	"errors"
	"testing"
)

const btcJSON = `{
  "symbol": "BTCUSDT",
  "price": 64000.5,
  "avg_funding_rate": -0.002,
  "best_funding_rate": {"exchange": "bybit", "value": -0.015},
  "sum_long_liquidations_usd": 12000000,
  "sum_short_liquidations_usd": 2000000,
  "avg_open_interest_usd": 50000000,
  "total_volume_usd": 900000000,
  "top_volume_exchange": {"exchange": "binance", "volume_usd": 400000000},
  "technical_indicators": {
    "rsi": 27.4,
    "rsi_signal": "oversold",
    "ema_trend": "uptrend",
    "bb_position": "below_lower",
    "atr_signal": "normal",
    "volume_strength": "strong",
    "overall_signal": "bullish"
  }
}`

func TestDecodeSnapshot(t *testing.T) {
	s, err := Decode([]byte(btcJSON))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Symbol != "BTCUSDT" || s.Price != 64000.5 {
		t.Errorf("unexpected snapshot %+v", s)
	}
	if s.BestFundingRate == nil || s.BestFundingRate.Exchange != "bybit" {
		t.Errorf("best funding not decoded: %+v", s.BestFundingRate)
	}
	ind := s.Indicators
	if ind == nil {
		t.Fatal("indicators missing")
	}
	if ind.RSISignal != RSIOversold || ind.EMATrend != EMAUptrend || ind.BBPosition != BBBelowLower ||
		ind.VolumeStrength != VolumeStrong || ind.OverallSignal != OverallBullish || ind.ATRSignal != ATRNormal {
		t.Errorf("indicators decoded wrong: %+v", ind)
	}
	if s.TotalLiquidationsUSD() != 14_000_000 {
		t.Errorf("TotalLiquidationsUSD = %v", s.TotalLiquidationsUSD())
	}
}

func TestDecodeNormalisesSymbol(t *testing.T) {
	s, err := Decode([]byte(`{"symbol":" solusdt ","price":140}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Symbol != "SOLUSDT" {
		t.Errorf("symbol = %q, want SOLUSDT", s.Symbol)
	}
}

func TestDecodeRejectsUnknownVariant(t *testing.T) {
	data := []byte(`{"symbol":"XUSDT","price":1,"technical_indicators":{"ema_trend":"sideways_up"}}`)
	_, err := Decode(data)
	if !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
}

func TestDecodeEmptyAndUnknownStrings(t *testing.T) {
	data := []byte(`{"symbol":"XUSDT","price":1,"technical_indicators":{"ema_trend":"","rsi_signal":"unknown"}}`)
	s, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Indicators.EMATrend != EMAUnknown || s.Indicators.RSISignal != RSIUnknown {
		t.Errorf("expected unknown variants, got %+v", s.Indicators)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		s    Snapshot
		ok   bool
	}{
		{"valid", Snapshot{Symbol: "ETHUSDT", Price: 3000}, true},
		{"empty symbol", Snapshot{Price: 1}, false},
		{"zero price", Snapshot{Symbol: "ETHUSDT"}, false},
		{"negative liquidations", Snapshot{Symbol: "ETHUSDT", Price: 1, SumLongLiquidationsUSD: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, ok = %v", err, tt.ok)
			}
		})
	}
}

func TestEnumRoundTrip(t *testing.T) {
	ind := Indicators{EMATrend: EMAStrongDowntrend, ATRSignal: ATRExtremeVolatility}
	data, err := json.Marshal(ind)
	if err != nil {
		t.Fatal(err)
	}
	var back Indicators
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != ind {
		t.Errorf("round trip mismatch: %+v vs %+v", back, ind)
	}
	if !back.ATRSignal.IsHighVolatility() || !back.EMATrend.IsDown() {
		t.Error("helpers disagree with variants")
	}
}

func TestTechnicalScore(t *testing.T) {
	tests := []struct {
		name string
		ind  *Indicators
		want float64
	}{
		{"nil", nil, 0},
		{"empty", &Indicators{}, 0},
		{"max bullish", &Indicators{
			RSISignal: RSIOversold, EMATrend: EMAStrongUptrend, BBPosition: BBBelowLower,
			VolumeStrength: VolumeVeryStrong, OverallSignal: OverallBullish,
		}, 87},
		{"max bearish", &Indicators{
			RSISignal: RSIOverbought, EMATrend: EMAStrongDowntrend, BBPosition: BBAboveUpper,
			VolumeStrength: VolumeVeryWeak, OverallSignal: OverallBearish,
		}, -82},
		{"mixed", &Indicators{RSISignal: RSIBullish, EMATrend: EMADowntrend, VolumeStrength: VolumeWeak}, -7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TechnicalScore(tt.ind); got != tt.want {
				t.Errorf("TechnicalScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSkipReason(t *testing.T) {
	ind := &Indicators{}
	tests := []struct {
		name string
		s    Snapshot
		want string
	}{
		{"ok", Snapshot{Symbol: "SOLUSDT", Price: 150, TotalVolumeUSD: 5e6, Indicators: ind}, ""},
		{"stable base", Snapshot{Symbol: "USDCUSDT", Price: 1, TotalVolumeUSD: 5e6, Indicators: ind}, "stablecoin"},
		{"fdusd quote is fine", Snapshot{Symbol: "BTCFDUSD", Price: 1, TotalVolumeUSD: 5e6, Indicators: ind}, ""},
		{"no price", Snapshot{Symbol: "SOLUSDT", TotalVolumeUSD: 5e6, Indicators: ind}, "no price"},
		{"no indicators", Snapshot{Symbol: "SOLUSDT", Price: 1, TotalVolumeUSD: 5e6}, "no technical indicators"},
		{"low volume", Snapshot{Symbol: "SOLUSDT", Price: 1, TotalVolumeUSD: 10, Indicators: ind}, "low volume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SkipReason(tt.s, 1e6); got != tt.want {
				t.Errorf("SkipReason() = %q, want %q", got, tt.want)
			}
		})
	}
}
