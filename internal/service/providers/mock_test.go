package providers

import (
	"context"
	"testing"
	"time"

	"Quorum/internal/domain/models"
)

func windowed(prices ...float64) models.MarketContext {
	mc := models.MarketContext{Symbol: "BTCUSDT", Timestamp: time.Now()}
	for i, p := range prices {
		mc.Window = append(mc.Window, models.PricePoint{Price: p, Time: mc.Timestamp.Add(time.Duration(i) * time.Second)})
	}
	if len(prices) > 0 {
		mc.Price = prices[len(prices)-1]
	}
	return mc
}

func TestMockSourceWellFormed(t *testing.T) {
	s := NewMockSource("momentum", 0)

	for i := 0; i < 50; i++ {
		dec, err := s.Recommend(context.Background(), windowed(100, 101, 102))
		if err != nil {
			t.Fatalf("recommend: %v", err)
		}
		if !dec.Action.Valid() {
			t.Fatalf("invalid action %q", dec.Action)
		}
		if dec.Confidence < 0 || dec.Confidence > 100 {
			t.Fatalf("confidence out of range: %v", dec.Confidence)
		}
		if dec.ProviderID != "momentum" {
			t.Fatalf("unexpected provider id %q", dec.ProviderID)
		}
	}
}

func TestMockSourceDeterministicPerID(t *testing.T) {
	a := NewMockSource("quant", 0)
	b := NewMockSource("quant", 0)

	mc := windowed(100, 100.2, 100.5)
	for i := 0; i < 10; i++ {
		d1, err := a.Recommend(context.Background(), mc)
		if err != nil {
			t.Fatalf("recommend: %v", err)
		}
		d2, err := b.Recommend(context.Background(), mc)
		if err != nil {
			t.Fatalf("recommend: %v", err)
		}
		if d1.Action != d2.Action || d1.Confidence != d2.Confidence {
			t.Fatalf("same seed must give same stream: %v/%v vs %v/%v", d1.Action, d1.Confidence, d2.Action, d2.Confidence)
		}
	}
}

func TestMockSourceFlatWindowHolds(t *testing.T) {
	s := NewMockSource("sentiment", 0)

	dec, err := s.Recommend(context.Background(), windowed(100, 100, 100))
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if dec.Action != models.ActionHold {
		t.Fatalf("flat window should hold, got %s", dec.Action)
	}
}

func TestMockSourceRespectsContext(t *testing.T) {
	s := NewMockSource("slowpoke", time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := s.Recommend(ctx, windowed(100, 101))
	if err == nil {
		t.Fatalf("expected context error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("cancellation must short-circuit the simulated latency")
	}
}
