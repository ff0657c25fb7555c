// internal/core/domain/market/indicators.go
package market

import "fmt"

// Закрытые наборы значений индикаторов. Нулевое значение = Unknown,
// пустая строка и "unknown" декодируются в него, всё остальное - ошибка.

type RSISignal uint8

const (
	RSIUnknown RSISignal = iota
	RSINeutral
	RSIOversold
	RSIOverbought
	RSIBullish
	RSIBearish
)

var rsiNames = [...]string{"unknown", "neutral", "oversold", "overbought", "bullish", "bearish"}

func (s RSISignal) String() string { return enumName(rsiNames[:], uint8(s)) }

func (s RSISignal) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *RSISignal) UnmarshalText(b []byte) error {
	v, err := parseEnum("rsi_signal", rsiNames[:], string(b))
	*s = RSISignal(v)
	return err
}

type EMATrend uint8

const (
	EMAUnknown EMATrend = iota
	EMASideways
	EMAUptrend
	EMAStrongUptrend
	EMADowntrend
	EMAStrongDowntrend
)

var emaNames = [...]string{"unknown", "sideways", "uptrend", "strong_uptrend", "downtrend", "strong_downtrend"}

func (t EMATrend) String() string { return enumName(emaNames[:], uint8(t)) }

// IsUp - uptrend или strong_uptrend
func (t EMATrend) IsUp() bool { return t == EMAUptrend || t == EMAStrongUptrend }

// IsDown - downtrend или strong_downtrend
func (t EMATrend) IsDown() bool { return t == EMADowntrend || t == EMAStrongDowntrend }

func (t EMATrend) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *EMATrend) UnmarshalText(b []byte) error {
	v, err := parseEnum("ema_trend", emaNames[:], string(b))
	*t = EMATrend(v)
	return err
}

type BBPosition uint8

const (
	BBUnknown BBPosition = iota
	BBMiddle
	BBUpperMiddle
	BBLowerMiddle
	BBAboveUpper
	BBBelowLower
)

var bbNames = [...]string{"unknown", "middle", "upper_middle", "lower_middle", "above_upper", "below_lower"}

func (p BBPosition) String() string { return enumName(bbNames[:], uint8(p)) }

func (p BBPosition) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *BBPosition) UnmarshalText(b []byte) error {
	v, err := parseEnum("bb_position", bbNames[:], string(b))
	*p = BBPosition(v)
	return err
}

type ATRSignal uint8

const (
	ATRUnknown ATRSignal = iota
	ATRNormal
	ATRLowVolatility
	ATRElevatedVolatility
	ATRHighVolatility
	ATRExtremeVolatility
)

var atrNames = [...]string{"unknown", "normal", "low_volatility", "elevated_volatility", "high_volatility", "extreme_volatility"}

func (a ATRSignal) String() string { return enumName(atrNames[:], uint8(a)) }

// IsHighVolatility - high или extreme
func (a ATRSignal) IsHighVolatility() bool {
	return a == ATRHighVolatility || a == ATRExtremeVolatility
}

func (a ATRSignal) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *ATRSignal) UnmarshalText(b []byte) error {
	v, err := parseEnum("atr_signal", atrNames[:], string(b))
	*a = ATRSignal(v)
	return err
}

type VolumeStrength uint8

const (
	VolumeUnknown VolumeStrength = iota
	VolumeVeryWeak
	VolumeWeak
	VolumeNormal
	VolumeAboveAverage
	VolumeStrong
	VolumeVeryStrong
)

var volumeNames = [...]string{"unknown", "very_weak", "weak", "normal", "above_average", "strong", "very_strong"}

func (v VolumeStrength) String() string { return enumName(volumeNames[:], uint8(v)) }

// IsStrong - strong или very_strong
func (v VolumeStrength) IsStrong() bool { return v == VolumeStrong || v == VolumeVeryStrong }

func (v VolumeStrength) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *VolumeStrength) UnmarshalText(b []byte) error {
	x, err := parseEnum("volume_strength", volumeNames[:], string(b))
	*v = VolumeStrength(x)
	return err
}

type OverallSignal uint8

const (
	OverallUnknown OverallSignal = iota
	OverallNeutral
	OverallBullish
	OverallBearish
)

var overallNames = [...]string{"unknown", "neutral", "bullish", "bearish"}

func (o OverallSignal) String() string { return enumName(overallNames[:], uint8(o)) }

func (o OverallSignal) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *OverallSignal) UnmarshalText(b []byte) error {
	v, err := parseEnum("overall_signal", overallNames[:], string(b))
	*o = OverallSignal(v)
	return err
}

// Indicators - готовые технические индикаторы актива
type Indicators struct {
	RSI            float64        `json:"rsi"`
	RSISignal      RSISignal      `json:"rsi_signal"`
	EMATrend       EMATrend       `json:"ema_trend"`
	BBPosition     BBPosition     `json:"bb_position"`
	ATRSignal      ATRSignal      `json:"atr_signal"`
	VolumeStrength VolumeStrength `json:"volume_strength"`
	OverallSignal  OverallSignal  `json:"overall_signal"`
}

func enumName(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("invalid(%d)", v)
}

func parseEnum(field string, names []string, s string) (uint8, error) {
	if s == "" {
		return 0, nil
	}
	for i, n := range names {
		if n == s {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("%s: unknown value %q", field, s)
}
