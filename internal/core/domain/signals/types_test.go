// internal/core/domain/signals/types_test.go
package signals

import (
	"testing"
	"time"
)

func TestEntryZoneUnordered(t *testing.T) {
	sell := EntryZone{From: 100.8, To: 99.2}
	buy := EntryZone{From: 99.2, To: 100.8}

	for _, z := range []EntryZone{sell, buy} {
		if !z.Contains(100) || !z.Contains(99.2) || !z.Contains(100.8) {
			t.Errorf("zone %+v must contain its bounds and the middle", z)
		}
		if z.Contains(98) || z.Contains(101) {
			t.Errorf("zone %+v must not contain outside prices", z)
		}
		if z.Mid() != 100 {
			t.Errorf("Mid() = %v", z.Mid())
		}
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		s        Status
		terminal bool
		open     bool
	}{
		{StatusPending, false, true},
		{StatusActive, false, true},
		{StatusHitTP, true, false},
		{StatusHitSL, true, false},
		{StatusExpired, true, false},
	}
	for _, tt := range tests {
		if tt.s.IsTerminal() != tt.terminal || tt.s.IsOpen() != tt.open {
			t.Errorf("%s: terminal=%v open=%v", tt.s, tt.s.IsTerminal(), tt.s.IsOpen())
		}
	}
}

func TestRecommendationDirection(t *testing.T) {
	if d, ok := RecommendationBuy.Direction(); !ok || d != DirectionBuy {
		t.Error("buy")
	}
	if d, ok := RecommendationSell.Direction(); !ok || d != DirectionSell {
		t.Error("sell")
	}
	if _, ok := RecommendationWait.Direction(); ok {
		t.Error("wait has no direction")
	}
}

func TestSignalCloneAndReferencePrice(t *testing.T) {
	at := time.Now()
	s := &Signal{
		EntryPrice: 100,
		EntryZone:  EntryZone{From: 98, To: 104},
		Reasoning:  []string{"a"},
		Result:     &Result{PnL: 1},
	}
	if s.ReferencePrice() != 101 {
		t.Errorf("never activated must use zone mid, got %v", s.ReferencePrice())
	}
	s.ActivatedAt = &at
	if s.ReferencePrice() != 100 {
		t.Errorf("activated must use entry price, got %v", s.ReferencePrice())
	}

	c := s.Clone()
	c.Reasoning[0] = "b"
	c.Result.PnL = 2
	if s.Reasoning[0] != "a" || s.Result.PnL != 1 {
		t.Error("Clone must not share memory")
	}
}
