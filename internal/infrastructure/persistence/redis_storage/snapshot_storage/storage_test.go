// internal/infrastructure/persistence/redis_storage/snapshot_storage/storage_test.go
package snapshot_storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"smart-money-screener/internal/core/domain/market"

	"github.com/go-redis/redis/v8"
)

func TestKeys(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	s := NewStorage(client, "smartmoney:")
	if got := s.snapshotKey("ethusdt"); got != "smartmoney:snapshot:ETHUSDT" {
		t.Errorf("snapshot key = %q", got)
	}
	if got := s.symbolsKey(); got != "smartmoney:snapshot:symbols" {
		t.Errorf("symbols key = %q", got)
	}
}

func TestEncodeSnapshotRoundTrip(t *testing.T) {
	snap := market.Snapshot{
		Symbol:         "SOLUSDT",
		Price:          150,
		AvgFundingRate: -0.0004,
		Indicators: &market.Indicators{
			RSI:       28,
			RSISignal: market.RSIOversold,
			EMATrend:  market.EMAUptrend,
		},
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := market.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Symbol != snap.Symbol || got.Indicators == nil || got.Indicators.RSISignal != market.RSIOversold {
		t.Errorf("decoded = %+v", got)
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	if _, err := encodeSnapshot(market.Snapshot{Symbol: "BTCUSDT"}); !errors.Is(err, market.ErrInvalidSnapshot) {
		t.Errorf("err = %v", err)
	}
}

func TestSaveSnapshotUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	s := NewStorage(client, "")
	err := s.SaveSnapshot(context.Background(), market.Snapshot{Symbol: "BTCUSDT", Price: 1}, time.Minute)
	if err == nil {
		t.Error("expected connection error")
	}
}
