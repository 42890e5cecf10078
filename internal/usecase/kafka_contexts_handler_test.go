package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"Quorum/internal/domain/models"
	domsvc "Quorum/internal/domain/service"
)

func TestKafkaContextsHandlerRunsRound(t *testing.T) {
	assertion := assert.New(t)

	providers := []models.Provider{{ID: "a", Weight: 1}}
	sources := map[string]domsvc.RecommendationSource{
		"a": &fixtureSource{id: "a", action: models.ActionBuy, conf: 90},
	}
	f := buildEngine(t, providers, sources)
	h := NewKafkaContextsHandler("quorum.contexts", f.engine, f.metrics)

	assertion.Equal("quorum.contexts", h.Topic())

	payload := []byte(`{"symbol":"BTCUSDT","price":50000,"t":1750000000}`)
	assertion.NoError(h.Handle(context.Background(), payload))

	rec, ok := f.history.Latest("BTCUSDT")
	assertion.True(ok)
	assertion.Equal(models.OutcomeConsensus, rec.Outcome)
}

func TestKafkaContextsHandlerMalformedPayload(t *testing.T) {
	providers := []models.Provider{{ID: "a", Weight: 1}}
	sources := map[string]domsvc.RecommendationSource{
		"a": &fixtureSource{id: "a", action: models.ActionBuy, conf: 90},
	}
	f := buildEngine(t, providers, sources)
	h := NewKafkaContextsHandler("quorum.contexts", f.engine, f.metrics)

	err := h.Handle(context.Background(), []byte(`{not json`))
	assert.Error(t, err)
	assert.Equal(t, 1, f.metrics.errorCount("consumer_unmarshal"))
}

func TestKafkaContextsHandlerAbsorbsOutcomeErrors(t *testing.T) {
	providers := []models.Provider{{ID: "off", Weight: 1, Status: models.StatusInactive}}
	f := buildEngine(t, providers, map[string]domsvc.RecommendationSource{})
	h := NewKafkaContextsHandler("quorum.contexts", f.engine, f.metrics)

	payload := []byte(`{"symbol":"BTCUSDT","price":50000}`)
	assert.NoError(t, h.Handle(context.Background(), payload))
	assert.Equal(t, 1, f.metrics.roundCount("no_providers"))
}
