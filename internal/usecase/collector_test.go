package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"Quorum/internal/domain/models"
	domsvc "Quorum/internal/domain/service"
	"Quorum/internal/registry"
)

func snapshot() models.MarketContext {
	return models.MarketContext{Symbol: "BTCUSDT", Price: 50000, Timestamp: time.Now()}
}

func buildCollector(t *testing.T, providers []models.Provider, sources map[string]domsvc.RecommendationSource) (*Collector, *registry.Registry, *stubMetrics) {
	t.Helper()
	reg := registry.New(providers, 3)
	m := newStubMetrics()
	return NewCollector(reg, sources, m, testLogger(), 0, 0), reg, m
}

func TestCollectAllRespond(t *testing.T) {
	assertion := assert.New(t)

	providers := []models.Provider{
		{ID: "a", Weight: 0.5},
		{ID: "b", Weight: 0.3},
		{ID: "c", Weight: 0.2},
	}
	sources := map[string]domsvc.RecommendationSource{
		"a": &fixtureSource{id: "a", action: models.ActionBuy, conf: 90},
		"b": &fixtureSource{id: "b", action: models.ActionBuy, conf: 70},
		"c": &fixtureSource{id: "c", action: models.ActionSell, conf: 60},
	}
	c, _, _ := buildCollector(t, providers, sources)

	decisions := c.Collect(context.Background(), snapshot(), 200*time.Millisecond)
	assertion.Len(decisions, 3)
	for _, d := range decisions {
		assertion.NotEmpty(d.ProviderID)
		assertion.False(d.Timestamp.IsZero())
		assertion.GreaterOrEqual(d.Latency, time.Duration(0))
	}
}

func TestCollectSlowProviderExcluded(t *testing.T) {
	assertion := assert.New(t)

	providers := []models.Provider{{ID: "fast", Weight: 0.5}, {ID: "slow", Weight: 0.5}}
	sources := map[string]domsvc.RecommendationSource{
		"fast": &fixtureSource{id: "fast", action: models.ActionBuy, conf: 80},
		"slow": &fixtureSource{id: "slow", action: models.ActionSell, conf: 80, delay: 2 * time.Second},
	}
	c, _, _ := buildCollector(t, providers, sources)

	deadline := 80 * time.Millisecond
	start := time.Now()
	decisions := c.Collect(context.Background(), snapshot(), deadline)
	elapsed := time.Since(start)

	assertion.Len(decisions, 1)
	assertion.Equal("fast", decisions[0].ProviderID)
	assertion.Less(elapsed, deadline+200*time.Millisecond, "collect must return near the deadline")
}

func TestCollectErroringProviderExcluded(t *testing.T) {
	assertion := assert.New(t)

	providers := []models.Provider{{ID: "good", Weight: 0.5}, {ID: "bad", Weight: 0.5}}
	sources := map[string]domsvc.RecommendationSource{
		"good": &fixtureSource{id: "good", action: models.ActionHold, conf: 60},
		"bad":  &fixtureSource{id: "bad", err: fmt.Errorf("upstream 503")},
	}
	c, _, m := buildCollector(t, providers, sources)

	decisions := c.Collect(context.Background(), snapshot(), 200*time.Millisecond)
	assertion.Len(decisions, 1)
	assertion.Equal("good", decisions[0].ProviderID)
	assertion.Equal(1, m.errorCount("provider_call"))
}

func TestCollectMalformedDecisionExcluded(t *testing.T) {
	assertion := assert.New(t)

	providers := []models.Provider{{ID: "ok", Weight: 0.5}, {ID: "junk", Weight: 0.5}}
	sources := map[string]domsvc.RecommendationSource{
		"ok":   &fixtureSource{id: "ok", action: models.ActionBuy, conf: 75},
		"junk": &fixtureSource{id: "junk", action: models.Action("SHRUG"), conf: 150},
	}
	c, _, m := buildCollector(t, providers, sources)

	decisions := c.Collect(context.Background(), snapshot(), 200*time.Millisecond)
	assertion.Len(decisions, 1)
	assertion.Equal("ok", decisions[0].ProviderID)
	assertion.Equal(1, m.errorCount("provider_malformed"))
}

func TestCollectFailureStreakDisablesProvider(t *testing.T) {
	assertion := assert.New(t)

	providers := []models.Provider{{ID: "ok", Weight: 0.5}, {ID: "flaky", Weight: 0.5}}
	sources := map[string]domsvc.RecommendationSource{
		"ok":    &fixtureSource{id: "ok", action: models.ActionBuy, conf: 75},
		"flaky": &fixtureSource{id: "flaky", err: fmt.Errorf("connection reset")},
	}
	c, reg, _ := buildCollector(t, providers, sources)

	for i := 0; i < 3; i++ {
		c.Collect(context.Background(), snapshot(), 200*time.Millisecond)
	}

	p, err := reg.Get("flaky")
	assertion.NoError(err)
	assertion.Equal(models.StatusError, p.Status)

	// subsequent rounds skip the disabled provider entirely
	decisions := c.Collect(context.Background(), snapshot(), 200*time.Millisecond)
	assertion.Len(decisions, 1)
	assertion.Equal("ok", decisions[0].ProviderID)
}

func TestCollectUnwiredProviderSkipped(t *testing.T) {
	assertion := assert.New(t)

	providers := []models.Provider{{ID: "wired", Weight: 0.5}, {ID: "orphan", Weight: 0.5}}
	sources := map[string]domsvc.RecommendationSource{
		"wired": &fixtureSource{id: "wired", action: models.ActionBuy, conf: 75},
	}
	c, _, m := buildCollector(t, providers, sources)

	decisions := c.Collect(context.Background(), snapshot(), 200*time.Millisecond)
	assertion.Len(decisions, 1)
	assertion.Equal(1, m.errorCount("provider_unwired"))
}

func TestCollectNoActiveProviders(t *testing.T) {
	providers := []models.Provider{{ID: "off", Weight: 1, Status: models.StatusInactive}}
	c, _, _ := buildCollector(t, providers, map[string]domsvc.RecommendationSource{})

	decisions := c.Collect(context.Background(), snapshot(), 100*time.Millisecond)
	assert.Empty(t, decisions)
}

func TestCollectRateLimit(t *testing.T) {
	assertion := assert.New(t)

	providers := []models.Provider{{ID: "a", Weight: 1}}
	sources := map[string]domsvc.RecommendationSource{
		"a": &fixtureSource{id: "a", action: models.ActionBuy, conf: 80},
	}
	reg := registry.New(providers, 3)
	m := newStubMetrics()
	// capacity 2, negligible refill: the third round within the window is excluded
	c := NewCollector(reg, sources, m, testLogger(), 2, 0.001)

	for i := 0; i < 2; i++ {
		decisions := c.Collect(context.Background(), snapshot(), 100*time.Millisecond)
		assertion.Len(decisions, 1)
	}
	decisions := c.Collect(context.Background(), snapshot(), 100*time.Millisecond)
	assertion.Empty(decisions)
	assertion.Equal(1, m.errorCount("provider_ratelimited"))

	// exclusion does not flip provider status
	p, err := reg.Get("a")
	assertion.NoError(err)
	assertion.Equal(models.StatusActive, p.Status)
}
