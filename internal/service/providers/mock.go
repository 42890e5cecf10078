package providers

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"Quorum/internal/domain/models"
	domsvc "Quorum/internal/domain/service"
)

// MockSource fabricates recommendations for the mock feed mode. Each
// instance is seeded from its provider id so runs are reproducible; the
// action leans on short-window momentum with seeded jitter on top.
type MockSource struct {
	id      string
	latency time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockSource creates a mock provider with a deterministic seed and a
// fixed simulated latency.
func NewMockSource(id string, latency time.Duration) *MockSource {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return &MockSource{
		id:      id,
		latency: latency,
		rng:     rand.New(rand.NewSource(int64(h.Sum64()))),
	}
}

func (s *MockSource) ProviderID() string { return s.id }

// Recommend simulates a provider call: waits out the configured latency
// (respecting ctx) and derives an action from the window's momentum.
func (s *MockSource) Recommend(ctx context.Context, mc models.MarketContext) (models.IndividualDecision, error) {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return models.IndividualDecision{}, ctx.Err()
		}
	}

	s.mu.Lock()
	jitter := s.rng.Float64()
	conf := 50 + s.rng.Float64()*45
	s.mu.Unlock()

	momentum := windowMomentum(mc)
	action := models.ActionHold
	switch {
	case momentum > 0.0005 && jitter > 0.2:
		action = models.ActionBuy
	case momentum < -0.0005 && jitter > 0.2:
		action = models.ActionSell
	}

	return models.IndividualDecision{
		ProviderID: s.id,
		Action:     action,
		Confidence: conf,
		Rationale:  "simulated momentum signal",
		Timestamp:  time.Now(),
	}, nil
}

// windowMomentum is the relative price change across the snapshot window.
func windowMomentum(mc models.MarketContext) float64 {
	if len(mc.Window) < 2 {
		return 0
	}
	first := mc.Window[0].Price
	last := mc.Window[len(mc.Window)-1].Price
	if first <= 0 {
		return 0
	}
	return (last - first) / first
}

var _ domsvc.RecommendationSource = (*MockSource)(nil)
