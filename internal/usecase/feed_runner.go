package usecase

import (
	"context"
	"errors"

	"Quorum/internal/domain/models"
	drepo "Quorum/internal/domain/repository"
	mid "Quorum/internal/middleware"
)

// RoundTrigger adapts the engine to the pipeline's Proc interface. Round
// outcomes (no consensus, no providers) are recorded by the engine and are
// not pipeline errors.
type RoundTrigger struct {
	engine *Engine
}

// NewRoundTrigger wraps an engine for use behind the pipeline.
func NewRoundTrigger(engine *Engine) *RoundTrigger { return &RoundTrigger{engine: engine} }

func (t *RoundTrigger) Process(ctx context.Context, mc *models.MarketContext) error {
	_, err := t.engine.RunRound(ctx, *mc, 0)
	if err == nil || errors.Is(err, ErrNoConsensus) || errors.Is(err, ErrNoProvidersAvailable) {
		return nil
	}
	return err
}

var _ mid.Proc = (*RoundTrigger)(nil)

// FeedRunner drives rounds from the live market feed: snapshots stream in,
// the pipeline throttles them per symbol, and each accepted snapshot runs
// one round.
type FeedRunner struct {
	stream  drepo.MarketStream
	pipe    *mid.RoundPipeline
	metrics drepo.Metrics
}

// NewFeedRunner creates a FeedRunner.
func NewFeedRunner(stream drepo.MarketStream, pipe *mid.RoundPipeline, metrics drepo.Metrics) *FeedRunner {
	return &FeedRunner{stream: stream, pipe: pipe, metrics: metrics}
}

// IsConnected reports feed connectivity.
func (r *FeedRunner) IsConnected() bool { return r.stream.IsConnected() }

// Start connects, subscribes, and begins consuming snapshots.
func (r *FeedRunner) Start(ctx context.Context) error {
	if err := r.stream.Connect(ctx); err != nil {
		return err
	}
	if err := r.stream.Subscribe(ctx); err != nil {
		return err
	}
	r.pipe.Start(ctx)
	snapCh, errCh := r.stream.Read(ctx)
	go r.consume(ctx, snapCh, errCh)
	return nil
}

func (r *FeedRunner) consume(ctx context.Context, snapCh <-chan *models.MarketContext, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				r.metrics.RecordError("stream")
				_ = r.stream.Reconnect(ctx)
			}
		case mc := <-snapCh:
			if mc == nil {
				continue
			}
			_ = r.pipe.Process(ctx, mc)
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (r *FeedRunner) Shutdown(ctx context.Context) error {
	r.pipe.Stop()
	return r.stream.Close()
}
