// internal/core/domain/analysis/sr_levels/types.go
package sr_levels

import "time"

// LevelType - тип уровня
type LevelType string

const (
	LevelSupport    LevelType = "support"
	LevelResistance LevelType = "resistance"
	LevelCluster    LevelType = "cluster"
)

// Significance - значимость уровня
type Significance string

const (
	SignificanceLow    Significance = "low"
	SignificanceMedium Significance = "medium"
	SignificanceHigh   Significance = "high"
)

// Источники уровней
const (
	SourceOrderBook   = "OrderBook"
	SourceTrades      = "Trades"
	SourcePriceAction = "PriceAction"
)

// Level - уровень поддержки/сопротивления, пересчитывается каждый цикл
type Level struct {
	Price        float64      `json:"price"`
	Type         LevelType    `json:"type"`
	Significance Significance `json:"significance"`
	Source       string       `json:"source"`
}

// OrderLevel - уровень в стакане ордеров
type OrderLevel struct {
	Price float64
	Size  float64
}

// OrderBook - стакан ордеров, лучшие цены первыми
type OrderBook struct {
	Symbol string
	Bids   []OrderLevel // покупатели (ниже цены)
	Asks   []OrderLevel // продавцы (выше цены)
}

// Trade - сделка из ленты
type Trade struct {
	Price float64
	Size  float64
	Time  time.Time
}

// Candle - свеча, от старых к новым
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// MarketData - входные данные анализатора; любое поле может отсутствовать
type MarketData struct {
	Symbol    string
	LastPrice float64
	OrderBook *OrderBook
	Trades    []Trade
	Candles   []Candle
}
