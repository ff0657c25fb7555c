// internal/infrastructure/api/exchanges/binance/convert.go
package binance

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"smart-money-screener/internal/core/domain/analysis/sr_levels"

	"github.com/adshao/go-binance/v2/futures"
)

// допустимые значения limit у /fapi/v1/depth
var depthLimits = []int{5, 10, 20, 50, 100, 500, 1000}

// depthLimit - ближайший допустимый limit не меньше запрошенного
func depthLimit(depth int) int {
	for _, l := range depthLimits {
		if depth <= l {
			return l
		}
	}
	return depthLimits[len(depthLimits)-1]
}

func parseFloat(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return v, nil
}

func priceFor(symbol string, prices []*futures.SymbolPrice) (float64, error) {
	for _, p := range prices {
		if p == nil || p.Symbol != symbol {
			continue
		}
		v, err := parseFloat("price", p.Price)
		if err != nil {
			return 0, err
		}
		if v <= 0 {
			return 0, fmt.Errorf("non-positive price %v for %s", v, symbol)
		}
		return v, nil
	}
	return 0, fmt.Errorf("no price for %s", symbol)
}

func toOrderBook(symbol string, res *futures.DepthResponse) (*sr_levels.OrderBook, error) {
	if res == nil {
		return nil, fmt.Errorf("empty depth response for %s", symbol)
	}
	book := &sr_levels.OrderBook{
		Symbol: symbol,
		Bids:   make([]sr_levels.OrderLevel, 0, len(res.Bids)),
		Asks:   make([]sr_levels.OrderLevel, 0, len(res.Asks)),
	}
	for _, b := range res.Bids {
		lvl, err := orderLevel(b.Price, b.Quantity)
		if err != nil {
			return nil, err
		}
		book.Bids = append(book.Bids, lvl)
	}
	for _, a := range res.Asks {
		lvl, err := orderLevel(a.Price, a.Quantity)
		if err != nil {
			return nil, err
		}
		book.Asks = append(book.Asks, lvl)
	}
	// биржа отдает лучшие цены первыми, но порядок не гарантирован контрактом
	sort.SliceStable(book.Bids, func(i, j int) bool { return book.Bids[i].Price > book.Bids[j].Price })
	sort.SliceStable(book.Asks, func(i, j int) bool { return book.Asks[i].Price < book.Asks[j].Price })
	return book, nil
}

func orderLevel(price, qty string) (sr_levels.OrderLevel, error) {
	p, err := parseFloat("price", price)
	if err != nil {
		return sr_levels.OrderLevel{}, err
	}
	q, err := parseFloat("quantity", qty)
	if err != nil {
		return sr_levels.OrderLevel{}, err
	}
	return sr_levels.OrderLevel{Price: p, Size: q}, nil
}

func toTrades(list []*futures.Trade) ([]sr_levels.Trade, error) {
	out := make([]sr_levels.Trade, 0, len(list))
	for _, t := range list {
		if t == nil {
			continue
		}
		p, err := parseFloat("price", t.Price)
		if err != nil {
			return nil, err
		}
		q, err := parseFloat("quantity", t.Quantity)
		if err != nil {
			return nil, err
		}
		out = append(out, sr_levels.Trade{Price: p, Size: q, Time: time.UnixMilli(t.Time).UTC()})
	}
	return out, nil
}

func toCandles(klines []*futures.Kline) ([]sr_levels.Candle, error) {
	out := make([]sr_levels.Candle, 0, len(klines))
	for _, k := range klines {
		if k == nil {
			continue
		}
		var c sr_levels.Candle
		var err error
		if c.Open, err = parseFloat("open", k.Open); err != nil {
			return nil, err
		}
		if c.High, err = parseFloat("high", k.High); err != nil {
			return nil, err
		}
		if c.Low, err = parseFloat("low", k.Low); err != nil {
			return nil, err
		}
		if c.Close, err = parseFloat("close", k.Close); err != nil {
			return nil, err
		}
		if c.Volume, err = parseFloat("volume", k.Volume); err != nil {
			return nil, err
		}
		c.OpenTime = time.UnixMilli(k.OpenTime).UTC()
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out, nil
}
