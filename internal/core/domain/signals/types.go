// internal/core/domain/signals/types.go
package signals

import (
	"errors"
	"math"
	"time"

	"smart-money-screener/internal/core/domain/analysis/sr_levels"
	"smart-money-screener/internal/core/domain/market"

	"github.com/google/uuid"
)

var (
	ErrSignalNotFound   = errors.New("signal not found")
	ErrOpenSignalExists = errors.New("open signal already exists for symbol and direction")
	ErrNotActionable    = errors.New("analysis recommends waiting")
	ErrInvalidSnapshot  = market.ErrInvalidSnapshot
)

// Recommendation - итог скоринга
type Recommendation string

const (
	RecommendationBuy  Recommendation = "buy"
	RecommendationSell Recommendation = "sell"
	RecommendationWait Recommendation = "wait"
)

// Direction - направление сигнала (buy/sell)
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Direction возвращает направление для buy/sell; ok=false для wait
func (r Recommendation) Direction() (Direction, bool) {
	switch r {
	case RecommendationBuy:
		return DirectionBuy, true
	case RecommendationSell:
		return DirectionSell, true
	}
	return "", false
}

// PositionSide - сторона позиции
type PositionSide string

const (
	SideNone  PositionSide = ""
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

// Bias - перекос рынка
type Bias string

const (
	BiasNeutral      Bias = "neutral"
	BiasAccumulation Bias = "accumulation"
	BiasDistribution Bias = "distribution"
)

// EntryZone - зона входа; границы могут идти в любом порядке
type EntryZone struct {
	From float64 `json:"from" db:"entry_zone_from"`
	To   float64 `json:"to"   db:"entry_zone_to"`
}

// Bounds возвращает (min, max)
func (z EntryZone) Bounds() (float64, float64) {
	return math.Min(z.From, z.To), math.Max(z.From, z.To)
}

// Contains сравнивает как неупорядоченный интервал
func (z EntryZone) Contains(price float64) bool {
	lo, hi := z.Bounds()
	return price >= lo && price <= hi
}

// Mid - середина зоны
func (z EntryZone) Mid() float64 {
	return (z.From + z.To) / 2
}

// IsZero - зона не задана
func (z EntryZone) IsZero() bool {
	return z.From == 0 && z.To == 0
}

// AnalysisResult - результат скоринга одного снапшота
type AnalysisResult struct {
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	Side           PositionSide   `json:"direction,omitempty"`
	Bias           Bias           `json:"bias"`
	Reasoning      []string       `json:"reasoning"`
	EntryZone      *EntryZone     `json:"entry_zone,omitempty"`
	StopLoss       float64        `json:"stop_loss,omitempty"`
	TakeProfit     float64        `json:"take_profit,omitempty"`
}

// HasTradeLevels - заданы зона входа, TP и SL
func (r AnalysisResult) HasTradeLevels() bool {
	return r.EntryZone != nil && r.TakeProfit > 0 && r.StopLoss > 0
}

// Candidate - оцененный актив в пределах одного цикла
type Candidate struct {
	Symbol         string            `json:"symbol"`
	Analysis       AnalysisResult    `json:"analysis"`
	Snapshot       market.Snapshot   `json:"snapshot"`
	Levels         []sr_levels.Level `json:"-"`
	TechnicalScore float64           `json:"technical_score"`
	FinalScore     int               `json:"final_score"`
	ProcessingTime time.Duration     `json:"processing_time"`
}

// Direction - направление кандидата
func (c Candidate) Direction() (Direction, bool) {
	return c.Analysis.Recommendation.Direction()
}

// Status - состояние сигнала
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusHitTP   Status = "hit_tp"
	StatusHitSL   Status = "hit_sl"
	StatusExpired Status = "expired"
)

// IsTerminal - дальнейших переходов нет
func (s Status) IsTerminal() bool {
	switch s {
	case StatusHitTP, StatusHitSL, StatusExpired:
		return true
	}
	return false
}

// IsOpen - pending или active
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusActive
}

// OpenStatuses - незавершенные состояния
var OpenStatuses = []Status{StatusPending, StatusActive}

// Result - итог закрытого сигнала
type Result struct {
	PnL        float64 `json:"pnl"`
	PnLPercent float64 `json:"pnl_percent"`
	ExitPrice  float64 `json:"exit_price"`
}

// MarketConditions - рынок в момент создания сигнала
type MarketConditions struct {
	FundingRate       float64 `json:"funding_rate"`
	LongLiquidations  float64 `json:"long_liquidations"`
	ShortLiquidations float64 `json:"short_liquidations"`
	OpenInterest      float64 `json:"open_interest"`
	VolumeUSD         float64 `json:"volume_usd"`
	TechnicalScore    float64 `json:"technical_score"`
}

// ConditionsFrom снимает рыночные условия со снапшота
func ConditionsFrom(s market.Snapshot, technicalScore float64) MarketConditions {
	return MarketConditions{
		FundingRate:       s.AvgFundingRate,
		LongLiquidations:  s.SumLongLiquidationsUSD,
		ShortLiquidations: s.SumShortLiquidationsUSD,
		OpenInterest:      s.AvgOpenInterestUSD,
		VolumeUSD:         s.TotalVolumeUSD,
		TechnicalScore:    technicalScore,
	}
}

// Signal - сохраненный торговый сигнал; меняется только трекером
type Signal struct {
	ID          uuid.UUID        `json:"id"`
	Symbol      string           `json:"symbol"`
	Direction   Direction        `json:"direction"`
	EntryPrice  float64          `json:"entry_price"`
	EntryZone   EntryZone        `json:"entry_zone"`
	StopLoss    float64          `json:"stop_loss"`
	TakeProfit  float64          `json:"take_profit"`
	Confidence  float64          `json:"confidence"`
	FinalScore  int              `json:"final_score"`
	Reasoning   []string         `json:"reasoning"`
	Status      Status           `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	ActivatedAt *time.Time       `json:"activated_at,omitempty"`
	ClosedAt    *time.Time       `json:"closed_at,omitempty"`
	ExpiresAt   time.Time        `json:"expires_at"`
	Result      *Result          `json:"result,omitempty"`
	Conditions  MarketConditions `json:"market_conditions"`
}

// Clone - глубокая копия
func (s *Signal) Clone() *Signal {
	if s == nil {
		return nil
	}
	c := *s
	c.Reasoning = append([]string(nil), s.Reasoning...)
	if s.ActivatedAt != nil {
		t := *s.ActivatedAt
		c.ActivatedAt = &t
	}
	if s.ClosedAt != nil {
		t := *s.ClosedAt
		c.ClosedAt = &t
	}
	if s.Result != nil {
		r := *s.Result
		c.Result = &r
	}
	return &c
}

// ReferencePrice - цена входа для PnL: entryPrice после активации, иначе середина зоны
func (s *Signal) ReferencePrice() float64 {
	if s.ActivatedAt != nil {
		return s.EntryPrice
	}
	return s.EntryZone.Mid()
}
