package usecase

import (
	"context"
	"time"

	"Quorum/internal/domain/models"
	domrepo "Quorum/internal/domain/repository"
	domsvc "Quorum/internal/domain/service"
	"Quorum/internal/registry"
	svcmetrics "Quorum/internal/service/metrics"
	"Quorum/internal/service/ratelimit"
	applogger "Quorum/pkg/logger"
)

// joinGrace bounds how long the collector waits past the deadline for task
// bookkeeping before abandoning stragglers.
const joinGrace = 50 * time.Millisecond

// Collector produces the set of individual decisions for one round. Each
// active provider is invoked concurrently under its own deadline-bounded
// context; a slow, erroring, or malformed provider is excluded from the
// round without failing it.
type Collector struct {
	reg     *registry.Registry
	sources map[string]domsvc.RecommendationSource
	limiter *ratelimit.Limiter
	rateCap float64
	rateRef float64
	metrics domrepo.Metrics
	log     *applogger.Logger
}

// NewCollector creates a Collector. rateCap/ratePerSec configure the
// per-provider token bucket; zero disables rate limiting.
func NewCollector(reg *registry.Registry, sources map[string]domsvc.RecommendationSource, metrics domrepo.Metrics, log *applogger.Logger, rateCap, ratePerSec float64) *Collector {
	c := &Collector{
		reg:     reg,
		sources: sources,
		metrics: metrics,
		log:     log,
		rateCap: rateCap,
		rateRef: ratePerSec,
	}
	if rateCap > 0 && ratePerSec > 0 {
		c.limiter = ratelimit.New()
	}
	return c
}

type taskResult struct {
	providerID string
	decision   models.IndividualDecision
	ok         bool
}

// Collect fans out to every active provider and returns whatever usable
// decisions arrived within deadline. Result ordering is insignificant.
// Outstanding tasks are abandoned at deadline plus a small grace; their
// eventual results are discarded.
func (c *Collector) Collect(ctx context.Context, mc models.MarketContext, deadline time.Duration) []models.IndividualDecision {
	active := c.reg.ListActive()
	if len(active) == 0 {
		return nil
	}

	ch := make(chan taskResult, len(active))
	launched := 0
	for _, p := range active {
		src, found := c.sources[p.ID]
		if !found {
			c.metrics.RecordError("provider_unwired")
			c.log.Warn("provider has no recommendation source", applogger.String("provider", p.ID))
			continue
		}
		if c.limiter != nil && !c.limiter.Allow(p.ID, c.rateCap, c.rateRef) {
			// excluded from this round only; status is not flipped here
			c.metrics.RecordError("provider_ratelimited")
			continue
		}
		launched++
		go c.invoke(ctx, src, p.ID, mc, deadline, ch)
	}

	svcmetrics.CollectorFanout.WithLabelValues(mc.Symbol).Observe(float64(launched))

	timer := time.NewTimer(deadline + joinGrace)
	defer timer.Stop()

	decisions := make([]models.IndividualDecision, 0, launched)
	for settled := 0; settled < launched; settled++ {
		select {
		case res := <-ch:
			if res.ok {
				decisions = append(decisions, res.decision)
			}
		case <-timer.C:
			// proceed with what completed; stragglers settle into the
			// buffered channel and are discarded
			svcmetrics.RoundDeadlineExceeded.WithLabelValues(mc.Symbol).Add(float64(launched - settled))
			return decisions
		}
	}
	return decisions
}

// invoke runs one provider task. Usage counters are updated here, at the
// end of the task, so each provider's stats have a single writer per round.
func (c *Collector) invoke(ctx context.Context, src domsvc.RecommendationSource, id string, mc models.MarketContext, deadline time.Duration, ch chan<- taskResult) {
	cctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	start := time.Now()
	dec, err := src.Recommend(cctx, mc)
	latency := time.Since(start)

	ok := err == nil && dec.Action.Valid() && dec.Confidence >= 0 && dec.Confidence <= 100
	if err != nil {
		c.metrics.RecordError("provider_call")
		c.log.Warn("provider call failed",
			applogger.String("provider", id),
			applogger.Duration("latency", latency),
			applogger.Error(err),
		)
	} else if !ok {
		c.metrics.RecordError("provider_malformed")
		c.log.Warn("provider returned malformed decision",
			applogger.String("provider", id),
			applogger.String("action", string(dec.Action)),
		)
	}

	if rerr := c.reg.RecordUsage(id, latency, ok); rerr != nil {
		c.log.Warn("record usage", applogger.Error(rerr))
	}
	c.metrics.RecordProviderLatency(id, latency.Seconds())

	dec.ProviderID = id
	dec.Latency = latency
	if dec.Timestamp.IsZero() {
		dec.Timestamp = time.Now()
	}
	ch <- taskResult{providerID: id, decision: dec, ok: ok}
}
