// internal/infrastructure/api/exchanges/binance/client.go
package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smart-money-screener/internal/core/domain/analysis/sr_levels"
	"smart-money-screener/internal/infrastructure/config"
	"smart-money-screener/pkg/logger"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"
)

const maxAttempts = 3

// Client - REST клиент фьючерсов Binance: цены для трекера и данные для S/R
type Client struct {
	futures *futures.Client
	limiter *rate.Limiter
	backoff backoff.Backoff
}

// NewClient создает клиент с ограничением частоты запросов
func NewClient(cfg config.BinanceConfig) *Client {
	// адрес API выбирается в NewClient по глобальному флагу пакета
	futures.UseTestnet = cfg.Testnet
	fc := futures.NewClient(cfg.APIKey, cfg.APISecret)

	rps, burst := cfg.RPS, cfg.Burst
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 1
	}

	logger.Info("🔌 [Binance] Клиент фьючерсов: %.0f rps, burst %d, testnet=%v", rps, burst, cfg.Testnet)
	return &Client{
		futures: fc,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		backoff: backoff.Backoff{Min: 200 * time.Millisecond, Max: 2 * time.Second, Factor: 2, Jitter: true},
	}
}

// call выполняет запрос с лимитером и повторами; ошибки API (4xx) не повторяются
func (c *Client) call(ctx context.Context, op string, fn func() error) error {
	b := c.backoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return fmt.Errorf("%s: %w", op, werr)
		}
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) || attempt == maxAttempts {
			break
		}
		d := b.Duration()
		logger.Debug("🔁 [Binance] %s: попытка %d не удалась (%v), повтор через %v", op, attempt, err, d)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(d):
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if common.IsAPIError(err) {
		return false
	}
	return err != context.Canceled && err != context.DeadlineExceeded
}

// GetPrice - последняя цена символа
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(symbol)
	var prices []*futures.SymbolPrice
	err := c.call(ctx, "GetPrice "+symbol, func() error {
		var err error
		prices, err = c.futures.NewListPricesService().Symbol(symbol).Do(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}
	return priceFor(symbol, prices)
}

// GetOrderBook - стакан, лучшие цены первыми
func (c *Client) GetOrderBook(ctx context.Context, symbol string, depth int) (*sr_levels.OrderBook, error) {
	symbol = strings.ToUpper(symbol)
	var res *futures.DepthResponse
	err := c.call(ctx, "GetOrderBook "+symbol, func() error {
		var err error
		res, err = c.futures.NewDepthService().Symbol(symbol).Limit(depthLimit(depth)).Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toOrderBook(symbol, res)
}

// GetRecentTrades - лента сделок
func (c *Client) GetRecentTrades(ctx context.Context, symbol string, limit int) ([]sr_levels.Trade, error) {
	symbol = strings.ToUpper(symbol)
	var trades []*futures.Trade
	err := c.call(ctx, "GetRecentTrades "+symbol, func() error {
		var err error
		trades, err = c.futures.NewRecentTradesService().Symbol(symbol).Limit(limit).Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toTrades(trades)
}

// GetCandles - свечи от старых к новым
func (c *Client) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]sr_levels.Candle, error) {
	symbol = strings.ToUpper(symbol)
	var klines []*futures.Kline
	err := c.call(ctx, "GetCandles "+symbol, func() error {
		var err error
		klines, err = c.futures.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toCandles(klines)
}
