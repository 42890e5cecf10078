package usecase

import (
	"context"
	"sync"
	"time"

	"Quorum/internal/domain/models"
	domsvc "Quorum/internal/domain/service"
	applogger "Quorum/pkg/logger"
)

// fixtureSource is a deterministic recommendation source for tests.
type fixtureSource struct {
	id     string
	action models.Action
	conf   float64
	delay  time.Duration
	err    error
}

func (f *fixtureSource) ProviderID() string { return f.id }

func (f *fixtureSource) Recommend(ctx context.Context, mc models.MarketContext) (models.IndividualDecision, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return models.IndividualDecision{}, ctx.Err()
		}
	}
	if f.err != nil {
		return models.IndividualDecision{}, f.err
	}
	return models.IndividualDecision{Action: f.action, Confidence: f.conf, Rationale: "fixture"}, nil
}

var _ domsvc.RecommendationSource = (*fixtureSource)(nil)

// stubMetrics counts recorder calls.
type stubMetrics struct {
	mu     sync.Mutex
	rounds map[string]int
	errors map[string]int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{rounds: map[string]int{}, errors: map[string]int{}}
}

func (m *stubMetrics) RecordRound(outcome, symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[outcome]++
}

func (m *stubMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *stubMetrics) RecordLatency(op string, seconds float64)                {}
func (m *stubMetrics) RecordProviderLatency(provider string, seconds float64)  {}
func (m *stubMetrics) RecordConsensusStrength(symbol string, strength float64) {}

func (m *stubMetrics) roundCount(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rounds[outcome]
}

func (m *stubMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

// stubArchive records stored rounds, optionally failing.
type stubArchive struct {
	mu     sync.Mutex
	stored []models.RoundRecord
	err    error
}

func (a *stubArchive) Init(ctx context.Context) error { return nil }

func (a *stubArchive) Store(ctx context.Context, rec models.RoundRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.stored = append(a.stored, rec)
	return nil
}

func (a *stubArchive) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.RoundRecord, error) {
	return nil, nil
}

func (a *stubArchive) Health(ctx context.Context) error { return nil }
func (a *stubArchive) Close() error                     { return nil }

// stubPublisher records published rounds.
type stubPublisher struct {
	mu        sync.Mutex
	published []models.RoundRecord
}

func (p *stubPublisher) Publish(ctx context.Context, rec models.RoundRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, rec)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

func (p *stubPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func testLogger() *applogger.Logger {
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		panic(err)
	}
	return l
}
