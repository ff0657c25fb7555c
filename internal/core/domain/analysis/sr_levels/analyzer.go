// internal/core/domain/analysis/sr_levels/analyzer.go
package sr_levels

import (
	"math"
	"sort"
)

const (
	// depth - сколько уровней стакана с каждой стороны анализируем
	defaultDepth = 20
	// volumeRatio - во сколько раз стена больше среднего размера
	defaultVolumeRatio = 3.0
	// clusterThreshold - ширина бина сделок, доля цены (0.5%)
	defaultClusterThreshold = 0.005
	// pivotWindow - свечей до/после для определения pivot
	defaultPivotWindow = 5
	// maxPivotLevels - сколько самых свежих pivot-уровней оставляем
	defaultMaxPivotLevels = 10
	// topClusters - сколько самых объемных бинов становятся уровнями
	topClusters = 5
)

// Config - параметры анализатора
type Config struct {
	Depth            int
	VolumeRatio      float64
	ClusterThreshold float64
	PivotWindow      int
	MaxPivotLevels   int
}

// DefaultConfig возвращает параметры по умолчанию
func DefaultConfig() Config {
	return Config{
		Depth:            defaultDepth,
		VolumeRatio:      defaultVolumeRatio,
		ClusterThreshold: defaultClusterThreshold,
		PivotWindow:      defaultPivotWindow,
		MaxPivotLevels:   defaultMaxPivotLevels,
	}
}

// Analyzer находит уровни в стакане, ленте сделок и свечах.
// Источники не объединяются между собой.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer создаёт анализатор; нулевые поля заменяются значениями по умолчанию.
func NewAnalyzer(cfg Config) *Analyzer {
	def := DefaultConfig()
	if cfg.Depth <= 0 {
		cfg.Depth = def.Depth
	}
	if cfg.VolumeRatio <= 0 {
		cfg.VolumeRatio = def.VolumeRatio
	}
	if cfg.ClusterThreshold <= 0 {
		cfg.ClusterThreshold = def.ClusterThreshold
	}
	if cfg.PivotWindow <= 0 {
		cfg.PivotWindow = def.PivotWindow
	}
	if cfg.MaxPivotLevels <= 0 {
		cfg.MaxPivotLevels = def.MaxPivotLevels
	}
	return &Analyzer{cfg: cfg}
}

// Analyze возвращает все уровни, отсортированные по цене убыванием.
// Недостающие данные дают пустой набор по своему источнику.
func (a *Analyzer) Analyze(data MarketData) []Level {
	levels := make([]Level, 0, 16)
	levels = append(levels, a.OrderBookLevels(data.OrderBook, data.LastPrice)...)
	levels = append(levels, a.TradeClusters(data.Trades, data.LastPrice)...)
	levels = append(levels, a.PivotLevels(data.Candles)...)

	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Price > levels[j].Price
	})
	return levels
}

// OrderBookLevels ищет стены: размер > средний размер топ-K × volumeRatio
func (a *Analyzer) OrderBookLevels(ob *OrderBook, lastPrice float64) []Level {
	if ob == nil || lastPrice <= 0 {
		return nil
	}

	var levels []Level
	levels = append(levels, a.walls(ob.Bids, LevelSupport)...)
	levels = append(levels, a.walls(ob.Asks, LevelResistance)...)
	return levels
}

func (a *Analyzer) walls(side []OrderLevel, typ LevelType) []Level {
	if len(side) > a.cfg.Depth {
		side = side[:a.cfg.Depth]
	}
	if len(side) == 0 {
		return nil
	}

	total := 0.0
	for _, l := range side {
		total += l.Size
	}
	threshold := total / float64(len(side)) * a.cfg.VolumeRatio

	var levels []Level
	for _, l := range side {
		if l.Size > threshold && l.Price > 0 {
			levels = append(levels, Level{
				Price:        l.Price,
				Type:         typ,
				Significance: SignificanceHigh,
				Source:       SourceOrderBook,
			})
		}
	}
	return levels
}

type tradeBin struct {
	key      int64
	volume   float64
	notional float64
	priceSum float64
	count    int
	order    int
}

// TradeClusters группирует сделки в бины шириной refPrice × threshold;
// топ-5 бинов по объёму дают уровни по средневзвешенной цене.
func (a *Analyzer) TradeClusters(trades []Trade, refPrice float64) []Level {
	if len(trades) == 0 {
		return nil
	}

	if refPrice <= 0 {
		sum, n := 0.0, 0
		for _, t := range trades {
			if t.Price > 0 {
				sum += t.Price
				n++
			}
		}
		if n == 0 {
			return nil
		}
		refPrice = sum / float64(n)
	}
	width := refPrice * a.cfg.ClusterThreshold

	bins := make(map[int64]*tradeBin)
	var ordered []*tradeBin
	for _, t := range trades {
		if t.Price <= 0 || t.Size < 0 {
			continue
		}
		key := int64(math.Floor(t.Price / width))
		b, ok := bins[key]
		if !ok {
			b = &tradeBin{key: key, order: len(ordered)}
			bins[key] = b
			ordered = append(ordered, b)
		}
		b.volume += t.Size
		b.notional += t.Price * t.Size
		b.priceSum += t.Price
		b.count++
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].volume > ordered[j].volume
	})
	if len(ordered) > topClusters {
		ordered = ordered[:topClusters]
	}

	levels := make([]Level, 0, len(ordered))
	for _, b := range ordered {
		price := b.priceSum / float64(b.count)
		if b.volume > 0 {
			price = b.notional / b.volume
		}
		levels = append(levels, Level{
			Price:        price,
			Type:         LevelCluster,
			Significance: SignificanceMedium,
			Source:       SourceTrades,
		})
	}
	return levels
}

// PivotLevels ищет локальные экстремумы: high/low строго выше/ниже
// всех соседей в окне до и после. Сканирование от новых свечей к старым.
func (a *Analyzer) PivotLevels(candles []Candle) []Level {
	w := a.cfg.PivotWindow
	n := len(candles)
	if n < 2*w+1 {
		return nil
	}

	var levels []Level
	for i := n - 1 - w; i >= w; i-- {
		if isPivotHigh(candles, i, w) {
			levels = append(levels, Level{
				Price:        candles[i].High,
				Type:         LevelResistance,
				Significance: SignificanceLow,
				Source:       SourcePriceAction,
			})
		}
		if isPivotLow(candles, i, w) {
			levels = append(levels, Level{
				Price:        candles[i].Low,
				Type:         LevelSupport,
				Significance: SignificanceLow,
				Source:       SourcePriceAction,
			})
		}
	}

	if len(levels) > a.cfg.MaxPivotLevels {
		levels = levels[:a.cfg.MaxPivotLevels]
	}
	return levels
}

func isPivotHigh(candles []Candle, i, w int) bool {
	for j := i - w; j <= i+w; j++ {
		if j != i && candles[j].High >= candles[i].High {
			return false
		}
	}
	return true
}

func isPivotLow(candles []Candle, i, w int) bool {
	for j := i - w; j <= i+w; j++ {
		if j != i && candles[j].Low <= candles[i].Low {
			return false
		}
	}
	return true
}
