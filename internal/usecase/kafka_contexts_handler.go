package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"Quorum/internal/domain/models"
	domrepo "Quorum/internal/domain/repository"
	pkgkafka "Quorum/pkg/kafka"
)

// KafkaContextsHandler runs a round for every MarketContext message arriving
// on the contexts topic, so the engine is reachable behind a messaging
// boundary as well as HTTP.
type KafkaContextsHandler struct {
	topic   string
	engine  *Engine
	metrics domrepo.Metrics
}

func NewKafkaContextsHandler(topic string, engine *Engine, metrics domrepo.Metrics) *KafkaContextsHandler {
	return &KafkaContextsHandler{topic: topic, engine: engine, metrics: metrics}
}

func (h *KafkaContextsHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, price, t, window?}
func (h *KafkaContextsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string              `json:"symbol"`
		Price  float64             `json:"price"`
		T      int64               `json:"t"`
		Window []models.PricePoint `json:"window"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.T > 1e11 { // ms
		m.T = m.T / 1000
	}
	ts := time.Unix(m.T, 0)
	if m.T == 0 {
		ts = time.Now()
	}
	h.metrics.RecordLatency("trigger_e2e_seconds", time.Since(ts).Seconds())

	_, err := h.engine.RunRound(ctx, models.MarketContext{
		Symbol:    m.Symbol,
		Price:     m.Price,
		Window:    m.Window,
		Timestamp: ts,
	}, 0)
	// round outcomes are recorded by the engine; only malformed triggers
	// should hit the consumer's retry path
	if err != nil && !errors.Is(err, ErrNoConsensus) && !errors.Is(err, ErrNoProvidersAvailable) {
		h.metrics.RecordError("consumer_round")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaContextsHandler)(nil)
