package repository

import (
	"context"
	"time"

	"Quorum/internal/domain/models"
)

// History is the append-only in-process round log with rolling metrics.
type History interface {
	Append(rec models.RoundRecord)
	Recent(limit int) []models.RoundRecord
	Latest(symbol string) (models.RoundRecord, bool)
	Metrics() models.MetricsSnapshot
}

// Archive persists round records durably, one row per attempt.
type Archive interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, rec models.RoundRecord) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.RoundRecord, error)
	Health(ctx context.Context) error
	Close() error
}

// Publisher emits completed rounds to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, rec models.RoundRecord) error
	Close() error
}

// MarketStream supplies MarketContext snapshots from a live feed.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.MarketContext, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records engine telemetry.
type Metrics interface {
	RecordRound(outcome, symbol string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordProviderLatency(provider string, seconds float64)
	RecordConsensusStrength(symbol string, strength float64)
}
