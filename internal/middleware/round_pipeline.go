package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Quorum/internal/domain/models"
	domrepo "Quorum/internal/domain/repository"
)

// Proc is the minimal downstream interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, mc *models.MarketContext) error
}

// RoundPipeline sits between the market feed and the engine. It validates
// snapshots, throttles round cadence per symbol, and buffers snapshots when
// the engine is saturated instead of dropping them outright.
type RoundPipeline struct {
	proc        Proc
	metrics     domrepo.Metrics
	minInterval time.Duration // per-symbol gap between rounds
	bufSize     int
	bufCh       chan *models.MarketContext
	stopCh      chan struct{}
	started     bool
	mu          sync.Mutex
	lastRound   map[string]time.Time
}

type PipelineOption func(*RoundPipeline)

// WithMinInterval sets the minimum gap between rounds for one symbol.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *RoundPipeline) {
		if d > 0 {
			p.minInterval = d
		}
	}
}

// WithBufferSize sets the snapshot buffer used when the engine is busy.
func WithBufferSize(n int) PipelineOption {
	return func(p *RoundPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewRoundPipeline creates a pipeline.
func NewRoundPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *RoundPipeline {
	p := &RoundPipeline{
		proc:        proc,
		metrics:     metrics,
		minInterval: 5 * time.Second,
		bufSize:     256,
		bufCh:       make(chan *models.MarketContext, 256),
		stopCh:      make(chan struct{}),
		lastRound:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *models.MarketContext, p.bufSize)
	}
	return p
}

// Start launches background draining of buffered snapshots.
func (p *RoundPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case mc := <-p.bufCh:
				if mc == nil {
					continue
				}
				if err := p.proc.Process(ctx, mc); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; a stale snapshot is better than none
					select {
					case p.bufCh <- mc:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background draining.
func (p *RoundPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and throttles a snapshot, then forwards it downstream,
// buffering on engine errors.
func (p *RoundPipeline) Process(ctx context.Context, mc *models.MarketContext) error {
	now := time.Now()
	if err := validateSnapshot(mc); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(mc.Symbol, now) {
		// throttled: round cadence is bounded per symbol
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, mc); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- mc:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(now).Seconds())
	return nil
}

func validateSnapshot(mc *models.MarketContext) error {
	if mc == nil {
		return fmt.Errorf("snapshot nil")
	}
	if mc.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if mc.Price <= 0 {
		return fmt.Errorf("price invalid")
	}
	if mc.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	return nil
}

func (p *RoundPipeline) allow(symbol string, now time.Time) bool {
	if p.minInterval <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastRound[symbol]
	if !last.IsZero() && now.Sub(last) < p.minInterval {
		return false
	}
	p.lastRound[symbol] = now
	return true
}
