package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"Quorum/internal/domain/models"
	"Quorum/internal/domain/repository"
	pkgkafka "Quorum/pkg/kafka"
)

// ClickHouseArchive implements Archive for ClickHouse. The payload column
// carries the full record as JSON; indexed columns exist for filtering.
type ClickHouseArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseArchive creates ClickHouse round archive.
func NewClickHouseArchive(db *sql.DB, table string) repository.Archive {
	return &ClickHouseArchive{db: db, table: table}
}

func (a *ClickHouseArchive) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (a *ClickHouseArchive) Store(ctx context.Context, rec models.RoundRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal round: %w", err)
	}
	action, strength := "", 0.0
	if rec.Result != nil {
		action = string(rec.Result.Action)
		strength = rec.Result.ConsensusStrength
	}
	q := fmt.Sprintf("INSERT INTO %s (round_id, symbol, outcome, action, strength, latency_ms, ts, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", a.table)
	_, err = a.db.ExecContext(ctx, q,
		rec.RoundID,
		rec.Symbol,
		string(rec.Outcome),
		action,
		strength,
		float64(rec.Latency.Milliseconds()),
		rec.Timestamp,
		string(payload),
	)
	return err
}

func (a *ClickHouseArchive) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.RoundRecord, error) {
	q := fmt.Sprintf("SELECT payload FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", a.table)
	rows, err := a.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var recs []models.RoundRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		var rec models.RoundRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode round: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return nil // Managed by pkg
}

// KafkaRoundPublisher implements Publisher for Kafka. Messages are keyed by
// symbol so one symbol's rounds stay ordered within a partition.
type KafkaRoundPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaRoundPublisher creates Kafka round publisher.
func NewKafkaRoundPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaRoundPublisher{producer: producer, topic: topic}
}

func (p *KafkaRoundPublisher) Publish(ctx context.Context, rec models.RoundRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.Symbol), rec)
}

func (p *KafkaRoundPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
