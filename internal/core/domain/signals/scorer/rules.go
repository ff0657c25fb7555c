// internal/core/domain/signals/scorer/rules.go
package scorer

import (
	"fmt"
	"math"

	"smart-money-screener/internal/core/domain/analysis/sr_levels"
	"smart-money-screener/internal/core/domain/market"
	"smart-money-screener/internal/core/domain/signals"
)

const (
	fundingSpikeMultiple = 5.0
	volumeDominanceShare = 0.5
	highOpenInterestUSD  = 100_000_000
	fallbackMinOIUSD     = 10_000_000
)

// input - неизменяемые данные одного анализа
type input struct {
	snap     market.Snapshot
	ind      *market.Indicators
	levels   []sr_levels.Level
	th       Thresholds
	totalLiq float64
}

// Rule - шаг свёртки: получает текущее состояние, возвращает новое
type Rule struct {
	Name  string
	Apply func(s state, in *input) state
}

// DefaultRules - порядок правил важен
func DefaultRules() []Rule {
	return []Rule{
		{"indicator_notes", indicatorNotes},
		{"funding_momentum", fundingMomentum},
		{"volume_dominance", volumeDominance},
		{"volume_gate", volumeGate},
		{"liquidation_bias", liquidationBias},
		{"funding_extreme", fundingExtreme},
		{"open_interest", openInterest},
		{"technical_alignment", technicalAlignment},
		{"low_liquidation_fallback", lowLiquidationFallback},
		{"sr_breakout", srBreakout},
		{"default_note", defaultNote},
	}
}

func millions(v float64) string {
	return fmt.Sprintf("$%.2fM", v/1e6)
}

func indicatorNotes(s state, in *input) state {
	ind := in.ind
	if ind == nil {
		return s
	}

	switch ind.RSISignal {
	case market.RSIOversold:
		s = s.note(fmt.Sprintf("📊 RSI в зоне перепроданности (%.1f): возможен отскок", ind.RSI))
	case market.RSIOverbought:
		s = s.note(fmt.Sprintf("📊 RSI в зоне перекупленности (%.1f): возможна коррекция", ind.RSI))
	}

	switch ind.EMATrend {
	case market.EMAStrongUptrend:
		s = s.note("📈 EMA: сильный восходящий тренд")
	case market.EMAStrongDowntrend:
		s = s.note("📉 EMA: сильный нисходящий тренд")
	}

	switch ind.BBPosition {
	case market.BBBelowLower:
		s = s.note("📊 Цена под нижней полосой Боллинджера")
	case market.BBAboveUpper:
		s = s.note("📊 Цена над верхней полосой Боллинджера")
	}

	if ind.ATRSignal.IsHighVolatility() {
		s = s.note("⚡ ATR: высокая волатильность")
	}
	if ind.VolumeStrength.IsStrong() {
		s = s.note("📊 Объем выше нормы")
	}
	return s
}

func fundingMomentum(s state, in *input) state {
	best := in.snap.BestFundingRate
	if best == nil || in.snap.AvgFundingRate == 0 {
		return s
	}
	m := best.Value / in.snap.AvgFundingRate
	if math.Abs(m) <= fundingSpikeMultiple {
		return s
	}
	return s.note(fmt.Sprintf("⚡ Всплеск фандинга на %s (x%.1f к среднему)", best.Exchange, m)).
		raise(0.10, 0.70)
}

func volumeDominance(s state, in *input) state {
	top := in.snap.TopVolumeExchange
	if top == nil || top.VolumeUSD <= 0 || in.snap.TotalVolumeUSD <= 0 {
		return s
	}
	share := top.VolumeUSD / in.snap.TotalVolumeUSD
	if share <= volumeDominanceShare {
		return s
	}
	return s.note(fmt.Sprintf("⚠️ %s дает %.0f%% объема: риск манипуляции", top.Exchange, share*100)).
		withConfidence(s.confidence * 0.85)
}

func volumeGate(s state, in *input) state {
	if in.ind == nil {
		return s
	}
	switch {
	case in.ind.VolumeStrength == market.VolumeVeryWeak:
		return s.veto("⛔️ Объем торгов почти нулевой: сигнал отменен")
	case in.ind.VolumeStrength == market.VolumeWeak:
		return s.lower(0.4, 0).note("⚠️ Слабый объем: надежность сигнала снижена")
	case in.ind.VolumeStrength.IsStrong():
		return s.raise(0.25, 0.95).note("📊 Сильный объем подтверждает движение")
	}
	return s
}

func liquidationBias(s state, in *input) state {
	long, short := in.snap.SumLongLiquidationsUSD, in.snap.SumShortLiquidationsUSD
	if in.totalLiq <= in.th.MinLiquidationsUSD {
		return s
	}

	ind := in.ind
	switch {
	case long > short*in.th.LiquidationBiasRatio:
		s = s.long(0.75).note(fmt.Sprintf("💥 Лонг-ликвидации преобладают (%s против %s): ждем отскок вверх",
			millions(long), millions(short)))
		if ind != nil {
			if ind.RSISignal == market.RSIOversold {
				s = s.raise(0.15, 0.90).note("✅ RSI перепродан: подтверждение лонга")
			}
			if ind.EMATrend.IsUp() {
				s = s.raise(0.10, 0.95).note("✅ Тренд EMA вверх: подтверждение лонга")
			}
			if ind.BBPosition == market.BBBelowLower {
				s = s.raise(0.10, 0.90)
			}
		}
	case short > long*in.th.LiquidationBiasRatio:
		s = s.short(0.75).note(fmt.Sprintf("💥 Шорт-ликвидации преобладают (%s против %s): ждем разворот вниз",
			millions(short), millions(long)))
		if ind != nil {
			if ind.RSISignal == market.RSIOverbought {
				s = s.raise(0.15, 0.90).note("✅ RSI перекуплен: подтверждение шорта")
			}
			if ind.EMATrend.IsDown() {
				s = s.raise(0.10, 0.95).note("✅ Тренд EMA вниз: подтверждение шорта")
			}
			if ind.BBPosition == market.BBAboveUpper {
				s = s.raise(0.10, 0.90)
			}
		}
	case in.totalLiq > in.th.MinLiquidationsUSD*2:
		s = s.note(fmt.Sprintf("⚡ Крупные ликвидации (%s) без перевеса сторон: рынок волатилен", millions(in.totalLiq))).
			raise(0.10, 0.60)
	}
	return s
}

func fundingExtreme(s state, in *input) state {
	rate := in.snap.AvgFundingRate
	enough := in.totalLiq > in.th.MinLiquidationsUSD*0.5

	switch {
	case rate < -in.th.ExtremeFundingThreshold:
		s = s.note(fmt.Sprintf("💰 Фандинг отрицательный (%.4f): бычий перекос", rate))
		if s.bias == signals.BiasAccumulation || s.waiting() {
			if s.waiting() && enough {
				return s.long(0.65)
			}
			return s.raise(0.10, 0.85)
		}
	case rate > in.th.ExtremeFundingThreshold:
		s = s.note(fmt.Sprintf("💰 Фандинг положительный (%.4f): рынок перегрет", rate))
		if s.bias == signals.BiasDistribution || s.waiting() {
			if s.waiting() && enough {
				return s.short(0.65)
			}
			return s.raise(0.10, 0.85)
		}
	}
	return s
}

func openInterest(s state, in *input) state {
	oi := in.snap.AvgOpenInterestUSD
	switch {
	case oi < in.th.MinOpenInterestUSD:
		return s.lower(0.2, 0.4).note(fmt.Sprintf("📉 Открытый интерес низкий (%s): сигнал слабее", millions(oi)))
	case oi > highOpenInterestUSD:
		return s.note(fmt.Sprintf("📊 Открытый интерес высокий ($%.0fM): интерес крупных игроков", oi/1e6)).
			raise(0.05, 0.90)
	}
	return s
}

func technicalAlignment(s state, in *input) state {
	ind := in.ind
	if ind == nil || s.waiting() {
		return s
	}

	if ind.ATRSignal.IsHighVolatility() {
		s = s.lower(0.05, 0.5).note("⚡ Волатильность высокая: размер позиции стоит уменьшить")
	}

	switch {
	case ind.OverallSignal == market.OverallBullish && s.rec == signals.RecommendationBuy:
		s = s.raise(0.15, 0.95).note("✅ Индикаторы в целом бычьи")
	case ind.OverallSignal == market.OverallBearish && s.rec == signals.RecommendationSell:
		s = s.raise(0.15, 0.95).note("✅ Индикаторы в целом медвежьи")
	case ind.OverallSignal == market.OverallNeutral:
		s = s.lower(0.05, 0.5).note("⚠️ Индикаторы нейтральны")
	}
	return s
}

func lowLiquidationFallback(s state, in *input) state {
	if !s.waiting() || in.totalLiq >= in.th.MinLiquidationsUSD {
		return s
	}

	rate := in.snap.AvgFundingRate
	if math.Abs(rate) > in.th.ExtremeFundingThreshold*2 && in.snap.AvgOpenInterestUSD > fallbackMinOIUSD {
		if rate < 0 {
			s = s.long(0.6).note("🔍 Экстремально отрицательный фандинг при хорошем OI: лонг")
		} else {
			s = s.short(0.6).note("🔍 Экстремально положительный фандинг при хорошем OI: шорт")
		}
	}

	ind := in.ind
	if ind == nil || !s.waiting() {
		return s
	}
	switch {
	case ind.OverallSignal == market.OverallBullish &&
		(ind.RSISignal == market.RSIOversold || ind.BBPosition == market.BBBelowLower):
		s = s.long(0.6).note("📊 Технический бычий сигнал без ликвидаций")
	case ind.OverallSignal == market.OverallBearish &&
		(ind.RSISignal == market.RSIOverbought || ind.BBPosition == market.BBAboveUpper):
		s = s.short(0.6).note("📊 Технический медвежий сигнал без ликвидаций")
	}
	return s
}

func srBreakout(s state, in *input) state {
	ind := in.ind
	if !s.waiting() || ind == nil || ind.VolumeStrength == market.VolumeVeryWeak {
		return s
	}
	price := in.snap.Price

	if ind.EMATrend.IsDown() {
		if sup, ok := sr_levels.NearestByDistance(in.levels, price, sr_levels.OfType(sr_levels.LevelSupport)); ok && price < sup.Price {
			s = s.short(0.70).note(fmt.Sprintf("💥 Пробита поддержка $%.4f на нисходящем тренде", sup.Price))
			if ind.VolumeStrength.IsStrong() {
				s = s.raise(0.15, 0.85).note("✅ Пробой на сильном объеме")
			}
			return s
		}
	}

	if ind.EMATrend.IsUp() {
		if res, ok := sr_levels.NearestByDistance(in.levels, price, sr_levels.OfType(sr_levels.LevelResistance)); ok && price > res.Price {
			s = s.long(0.70).note(fmt.Sprintf("💥 Пробито сопротивление $%.4f на восходящем тренде", res.Price))
			if ind.VolumeStrength.IsStrong() {
				s = s.raise(0.15, 0.85).note("✅ Пробой на сильном объеме")
			}
		}
	}
	return s
}

func defaultNote(s state, in *input) state {
	if len(s.reasoning) > 0 {
		return s
	}
	return s.note("🔍 Ключевые метрики не дают явного сигнала")
}
