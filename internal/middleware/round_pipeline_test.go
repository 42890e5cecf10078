package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"Quorum/internal/domain/models"
)

type procSpy struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *procSpy) Process(ctx context.Context, mc *models.MarketContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.calls = append(p.calls, mc.Symbol)
	return nil
}

func (p *procSpy) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type metricsSpy struct {
	mu     sync.Mutex
	errors map[string]int
}

func newMetricsSpy() *metricsSpy { return &metricsSpy{errors: map[string]int{}} }

func (m *metricsSpy) RecordRound(outcome, symbol string) {}
func (m *metricsSpy) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}
func (m *metricsSpy) RecordLatency(op string, seconds float64)                {}
func (m *metricsSpy) RecordProviderLatency(provider string, seconds float64)  {}
func (m *metricsSpy) RecordConsensusStrength(symbol string, strength float64) {}

func (m *metricsSpy) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func snap(symbol string) *models.MarketContext {
	return &models.MarketContext{Symbol: symbol, Price: 100, Timestamp: time.Now()}
}

func TestPipelineForwardsValidSnapshot(t *testing.T) {
	proc := &procSpy{}
	p := NewRoundPipeline(proc, newMetricsSpy())

	if err := p.Process(context.Background(), snap("BTCUSDT")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("expected one downstream call, got %d", proc.count())
	}
}

func TestPipelineRejectsInvalidSnapshot(t *testing.T) {
	proc := &procSpy{}
	m := newMetricsSpy()
	p := NewRoundPipeline(proc, m)

	cases := []*models.MarketContext{
		nil,
		{Symbol: "", Price: 100, Timestamp: time.Now()},
		{Symbol: "BTCUSDT", Price: 0, Timestamp: time.Now()},
		{Symbol: "BTCUSDT", Price: 100},
	}
	for i, mc := range cases {
		if err := p.Process(context.Background(), mc); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if proc.count() != 0 {
		t.Fatalf("invalid snapshots must not reach the engine")
	}
	if m.errorCount("pipeline_validate") != len(cases) {
		t.Fatalf("expected %d validation errors, got %d", len(cases), m.errorCount("pipeline_validate"))
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &procSpy{}
	m := newMetricsSpy()
	p := NewRoundPipeline(proc, m, WithMinInterval(time.Hour))

	_ = p.Process(context.Background(), snap("BTCUSDT"))
	_ = p.Process(context.Background(), snap("BTCUSDT"))
	_ = p.Process(context.Background(), snap("ETHUSDT"))

	if proc.count() != 2 {
		t.Fatalf("expected one round per symbol, got %d", proc.count())
	}
	if m.errorCount("pipeline_throttle") != 1 {
		t.Fatalf("expected one throttled snapshot")
	}
}

func TestPipelineBuffersOnEngineError(t *testing.T) {
	proc := &procSpy{err: fmt.Errorf("engine busy")}
	m := newMetricsSpy()
	p := NewRoundPipeline(proc, m, WithMinInterval(time.Nanosecond), WithBufferSize(4))

	if err := p.Process(context.Background(), snap("BTCUSDT")); err == nil {
		t.Fatalf("expected the downstream error to propagate")
	}
	if m.errorCount("pipeline_process") != 1 {
		t.Fatalf("expected one process error")
	}

	// the failed snapshot was buffered; once the engine recovers, the
	// background drain replays it
	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()

	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for proc.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("buffered snapshot was never replayed")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPipelineBufferFull(t *testing.T) {
	proc := &procSpy{err: fmt.Errorf("engine busy")}
	m := newMetricsSpy()
	p := NewRoundPipeline(proc, m, WithMinInterval(time.Nanosecond), WithBufferSize(1))

	_ = p.Process(context.Background(), snap("BTCUSDT"))
	time.Sleep(time.Millisecond)
	_ = p.Process(context.Background(), snap("BTCUSDT"))

	if m.errorCount("pipeline_buffer_full") != 1 {
		t.Fatalf("expected a buffer-full drop")
	}
}

func TestPipelineStopIdempotentStart(t *testing.T) {
	proc := &procSpy{}
	p := NewRoundPipeline(proc, newMetricsSpy())

	p.Start(context.Background())
	p.Start(context.Background()) // second start is a no-op
	p.Stop()
	p.Stop() // second stop is a no-op
}
