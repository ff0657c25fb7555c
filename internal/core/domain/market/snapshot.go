// internal/core/domain/market/snapshot.go
package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidSnapshot = errors.New("invalid market snapshot")

// FundingQuote - ставка финансирования на конкретной бирже
type FundingQuote struct {
	Exchange string  `json:"exchange"`
	Value    float64 `json:"value"`
}

// VolumeLeader - биржа с наибольшим объемом
type VolumeLeader struct {
	Exchange  string  `json:"exchange"`
	VolumeUSD float64 `json:"volume_usd"`
}

// Snapshot - агрегированные метрики одного актива за цикл
type Snapshot struct {
	Symbol                  string        `json:"symbol"`
	Price                   float64       `json:"price"`
	AvgFundingRate          float64       `json:"avg_funding_rate"`
	BestFundingRate         *FundingQuote `json:"best_funding_rate,omitempty"`
	SumLongLiquidationsUSD  float64       `json:"sum_long_liquidations_usd"`
	SumShortLiquidationsUSD float64       `json:"sum_short_liquidations_usd"`
	AvgOpenInterestUSD      float64       `json:"avg_open_interest_usd"`
	TotalVolumeUSD          float64       `json:"total_volume_usd"`
	TopVolumeExchange       *VolumeLeader `json:"top_volume_exchange,omitempty"`
	Indicators              *Indicators   `json:"technical_indicators,omitempty"`
}

// Decode разбирает JSON снапшота; неизвестные значения индикаторов - ошибка
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Validate отсекает снапшоты, которые нельзя скорить
func (s Snapshot) Validate() error {
	if strings.TrimSpace(s.Symbol) == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidSnapshot)
	}
	values := map[string]float64{
		"price":                      s.Price,
		"avg_funding_rate":           s.AvgFundingRate,
		"sum_long_liquidations_usd":  s.SumLongLiquidationsUSD,
		"sum_short_liquidations_usd": s.SumShortLiquidationsUSD,
		"avg_open_interest_usd":      s.AvgOpenInterestUSD,
		"total_volume_usd":           s.TotalVolumeUSD,
	}
	for name, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s %s is not finite", ErrInvalidSnapshot, s.Symbol, name)
		}
	}
	if s.Price <= 0 {
		return fmt.Errorf("%w: %s price must be positive", ErrInvalidSnapshot, s.Symbol)
	}
	if s.SumLongLiquidationsUSD < 0 || s.SumShortLiquidationsUSD < 0 {
		return fmt.Errorf("%w: %s negative liquidations", ErrInvalidSnapshot, s.Symbol)
	}
	return nil
}

// TotalLiquidationsUSD - сумма лонг и шорт ликвидаций
func (s Snapshot) TotalLiquidationsUSD() float64 {
	return s.SumLongLiquidationsUSD + s.SumShortLiquidationsUSD
}

// TechnicalScore сводит индикаторы в балл [-100, 100]
func TechnicalScore(ind *Indicators) float64 {
	if ind == nil {
		return 0
	}

	score := 0.0

	switch ind.RSISignal {
	case RSIOversold:
		score += 15
	case RSIOverbought:
		score -= 15
	case RSIBullish:
		score += 8
	case RSIBearish:
		score -= 8
	}

	switch ind.EMATrend {
	case EMAStrongUptrend:
		score += 20
	case EMAUptrend:
		score += 10
	case EMADowntrend:
		score -= 10
	case EMAStrongDowntrend:
		score -= 20
	}

	switch ind.BBPosition {
	case BBBelowLower:
		score += 12
	case BBAboveUpper:
		score -= 12
	}

	switch ind.VolumeStrength {
	case VolumeVeryStrong:
		score += 15
	case VolumeStrong:
		score += 10
	case VolumeWeak:
		score -= 5
	case VolumeVeryWeak:
		score -= 10
	}

	switch ind.OverallSignal {
	case OverallBullish:
		score += 25
	case OverallBearish:
		score -= 25
	}

	return math.Max(-100, math.Min(100, score))
}

var stablecoins = map[string]bool{
	"USDT": true, "USDC": true, "DAI": true, "BUSD": true,
	"USDE": true, "TUSD": true, "USDD": true, "FDUSD": true,
}

var quoteAssets = []string{"FDUSD", "USDT", "USDC", "BUSD"}

// BaseAsset отрезает котируемую валюту: BTCUSDT -> BTC
func BaseAsset(symbol string) string {
	s := strings.ToUpper(symbol)
	for _, q := range quoteAssets {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q)
		}
	}
	return s
}

// IsStablecoin - базовый актив стейблкоин
func IsStablecoin(symbol string) bool {
	return stablecoins[BaseAsset(symbol)]
}

// SkipReason объясняет, почему актив не анализируется; "" - анализируем
func SkipReason(s Snapshot, minVolumeUSD float64) string {
	switch {
	case IsStablecoin(s.Symbol):
		return "stablecoin"
	case s.Price <= 0:
		return "no price"
	case s.Indicators == nil:
		return "no technical indicators"
	case s.TotalVolumeUSD < minVolumeUSD:
		return "low volume"
	}
	return ""
}

// IsAnalyzable - снапшот проходит фильтр перед скорингом
func IsAnalyzable(s Snapshot, minVolumeUSD float64) bool {
	return SkipReason(s, minVolumeUSD) == ""
}
