package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"Quorum/internal/consensus"
	"Quorum/internal/domain/models"
	domrepo "Quorum/internal/domain/repository"
	"Quorum/internal/policy"
	"Quorum/internal/registry"
	applogger "Quorum/pkg/logger"
)

var (
	// ErrNoProvidersAvailable means the registry had zero active providers
	// at round start; the round aborts before any collection.
	ErrNoProvidersAvailable = fmt.Errorf("engine: no active providers")

	// ErrNoConsensus means the collector ran but gathered zero usable
	// decisions. Never reported as a HOLD.
	ErrNoConsensus = fmt.Errorf("engine: no consensus reached")
)

// Engine is the sole entry point of the decision pipeline: one call to
// RunRound executes collect -> aggregate -> derive -> record for a single
// market context.
type Engine struct {
	reg        *registry.Registry
	collector  *Collector
	thresholds consensus.Thresholds
	deriver    *policy.Deriver
	history    domrepo.History
	archive    domrepo.Archive
	publisher  domrepo.Publisher
	metrics    domrepo.Metrics
	log        *applogger.Logger

	deadline time.Duration
	rounds   chan struct{} // caps concurrent rounds across symbols
}

// NewEngine wires the round pipeline. archive and publisher may be nil; the
// engine then keeps history in process only.
func NewEngine(
	reg *registry.Registry,
	collector *Collector,
	thresholds consensus.Thresholds,
	deriver *policy.Deriver,
	history domrepo.History,
	archive domrepo.Archive,
	publisher domrepo.Publisher,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	defaultDeadline time.Duration,
	maxConcurrentRounds int,
) *Engine {
	if defaultDeadline <= 0 {
		defaultDeadline = 800 * time.Millisecond
	}
	if maxConcurrentRounds <= 0 {
		maxConcurrentRounds = 8
	}
	return &Engine{
		reg:        reg,
		collector:  collector,
		thresholds: thresholds,
		deriver:    deriver,
		history:    history,
		archive:    archive,
		publisher:  publisher,
		metrics:    metrics,
		log:        log,
		deadline:   defaultDeadline,
		rounds:     make(chan struct{}, maxConcurrentRounds),
	}
}

// DefaultDeadline returns the configured per-round deadline.
func (e *Engine) DefaultDeadline() time.Duration { return e.deadline }

// RunRound executes one full round. Provider-level failures are absorbed
// inside the collector; round-level outcomes surface as
// ErrNoProvidersAvailable or ErrNoConsensus, both still recorded in history
// so reliability metrics stay accurate. Rounds for different symbols are
// independent; only the shared concurrency cap couples them.
func (e *Engine) RunRound(ctx context.Context, mc models.MarketContext, deadline time.Duration) (*models.ConsensusResult, error) {
	if mc.Symbol == "" || mc.Price <= 0 {
		return nil, fmt.Errorf("%w: symbol %q price %v", policy.ErrInvalidInput, mc.Symbol, mc.Price)
	}
	if deadline <= 0 {
		deadline = e.deadline
	}

	select {
	case e.rounds <- struct{}{}:
		defer func() { <-e.rounds }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	roundID := uuid.NewString()
	start := time.Now()

	if len(e.reg.ListActive()) == 0 {
		e.record(ctx, models.RoundRecord{
			RoundID:   roundID,
			Symbol:    mc.Symbol,
			Outcome:   models.OutcomeNoProviders,
			Latency:   time.Since(start),
			Timestamp: time.Now(),
		})
		return nil, ErrNoProvidersAvailable
	}

	decisions := e.collector.Collect(ctx, mc, deadline)

	res, err := consensus.Aggregate(roundID, mc, decisions, e.reg.Weights(), e.thresholds)
	if err != nil {
		e.record(ctx, models.RoundRecord{
			RoundID:   roundID,
			Symbol:    mc.Symbol,
			Outcome:   models.OutcomeNoConsensus,
			Latency:   time.Since(start),
			Timestamp: time.Now(),
		})
		return nil, ErrNoConsensus
	}

	exec, err := e.deriver.Derive(res, mc)
	if err != nil {
		e.metrics.RecordError("policy_derive")
		return nil, fmt.Errorf("derive execution params: %w", err)
	}
	res.Execution = exec

	latency := time.Since(start)
	e.record(ctx, models.RoundRecord{
		RoundID:   roundID,
		Symbol:    mc.Symbol,
		Outcome:   models.OutcomeConsensus,
		Result:    &res,
		Latency:   latency,
		Timestamp: time.Now(),
	})
	e.metrics.RecordConsensusStrength(mc.Symbol, res.ConsensusStrength)
	e.metrics.RecordLatency("round", latency.Seconds())

	e.log.Info("round complete",
		applogger.String("symbol", mc.Symbol),
		applogger.String("action", string(res.Action)),
		applogger.Any("strength", res.ConsensusStrength),
		applogger.Int("decisions", len(decisions)),
		applogger.Duration("latency", latency),
	)
	return &res, nil
}

// record appends the round attempt to in-process history and forwards it
// best-effort to the archive and publisher. Archive or publish failures are
// logged, never propagated into the round result.
func (e *Engine) record(ctx context.Context, rec models.RoundRecord) {
	e.history.Append(rec)
	e.metrics.RecordRound(string(rec.Outcome), rec.Symbol)

	if e.archive != nil {
		if err := e.archive.Store(ctx, rec); err != nil {
			e.metrics.RecordError("archive_store")
			e.log.Warn("archive round", applogger.Error(err))
		}
	}
	if e.publisher != nil && rec.Outcome == models.OutcomeConsensus {
		if err := e.publisher.Publish(ctx, rec); err != nil {
			e.metrics.RecordError("publish_round")
			e.log.Warn("publish round", applogger.Error(err))
		}
	}
}
