package consensus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"Quorum/internal/domain/models"
)

func ctxAt(price float64) models.MarketContext {
	return models.MarketContext{
		Symbol:    "BTCUSDT",
		Price:     price,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func dec(id string, a models.Action, conf float64) models.IndividualDecision {
	return models.IndividualDecision{ProviderID: id, Action: a, Confidence: conf}
}

func TestAggregateWeightedMajority(t *testing.T) {
	assertion := assert.New(t)

	weights := map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2}
	decisions := []models.IndividualDecision{
		dec("a", models.ActionBuy, 90),
		dec("b", models.ActionBuy, 70),
		dec("c", models.ActionSell, 60),
	}

	res, err := Aggregate("r1", ctxAt(50000), decisions, weights, DefaultThresholds())
	assertion.NoError(err)
	assertion.Equal(models.ActionBuy, res.Action)
	assertion.InDelta(0.66, res.ConsensusStrength, 1e-9)
	assertion.InDelta(78.0, res.WeightedConfidence, 1e-9)
	assertion.InDelta(1.0/3.0, res.DivergenceScore, 1e-9)
	assertion.Equal([]string{"a", "b", "c"}, res.Participants)
}

func TestAggregateUnanimousFullConfidence(t *testing.T) {
	assertion := assert.New(t)

	weights := map[string]float64{"a": 0.4, "b": 0.4, "c": 0.2}
	decisions := []models.IndividualDecision{
		dec("a", models.ActionSell, 100),
		dec("b", models.ActionSell, 100),
		dec("c", models.ActionSell, 100),
	}

	res, err := Aggregate("r1", ctxAt(50000), decisions, weights, DefaultThresholds())
	assertion.NoError(err)
	assertion.Equal(models.ActionSell, res.Action)
	assertion.InDelta(1.0, res.ConsensusStrength, 1e-9)
	assertion.InDelta(0.0, res.DivergenceScore, 1e-9)
	assertion.Equal(models.RiskLow, res.RiskLevel)
}

func TestAggregateThreeWaySplit(t *testing.T) {
	assertion := assert.New(t)

	weights := map[string]float64{"a": 1, "b": 1, "c": 1}
	decisions := []models.IndividualDecision{
		dec("a", models.ActionBuy, 80),
		dec("b", models.ActionSell, 80),
		dec("c", models.ActionHold, 80),
	}

	res, err := Aggregate("r1", ctxAt(100), decisions, weights, DefaultThresholds())
	assertion.NoError(err)
	assertion.InDelta(2.0/3.0, res.DivergenceScore, 1e-9)
	// three-way score tie resolves to HOLD
	assertion.Equal(models.ActionHold, res.Action)
	assertion.Equal(models.RiskHigh, res.RiskLevel)
}

func TestAggregateTieBreak(t *testing.T) {
	cases := []struct {
		name      string
		decisions []models.IndividualDecision
		want      models.Action
	}{
		{
			name: "buy sell tie goes to sell",
			decisions: []models.IndividualDecision{
				dec("a", models.ActionBuy, 80),
				dec("b", models.ActionSell, 80),
			},
			want: models.ActionSell,
		},
		{
			name: "sell hold tie goes to hold",
			decisions: []models.IndividualDecision{
				dec("a", models.ActionSell, 80),
				dec("b", models.ActionHold, 80),
			},
			want: models.ActionHold,
		},
		{
			name: "buy hold tie goes to hold",
			decisions: []models.IndividualDecision{
				dec("a", models.ActionBuy, 80),
				dec("b", models.ActionHold, 80),
			},
			want: models.ActionHold,
		},
	}

	weights := map[string]float64{"a": 0.5, "b": 0.5}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Aggregate("r1", ctxAt(100), tc.decisions, weights, DefaultThresholds())
			assert.NoError(t, err)
			assert.Equal(t, tc.want, res.Action)
		})
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	assertion := assert.New(t)

	weights := map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2}
	forward := []models.IndividualDecision{
		dec("a", models.ActionBuy, 90),
		dec("b", models.ActionBuy, 70),
		dec("c", models.ActionSell, 60),
	}
	reversed := []models.IndividualDecision{forward[2], forward[1], forward[0]}

	r1, err := Aggregate("r1", ctxAt(50000), forward, weights, DefaultThresholds())
	assertion.NoError(err)
	r2, err := Aggregate("r1", ctxAt(50000), reversed, weights, DefaultThresholds())
	assertion.NoError(err)
	assertion.Equal(r1, r2)
}

func TestAggregateRanges(t *testing.T) {
	assertion := assert.New(t)

	weights := map[string]float64{"a": 0.9, "b": 0.1}
	decisions := []models.IndividualDecision{
		dec("a", models.ActionBuy, 55),
		dec("b", models.ActionSell, 95),
	}

	res, err := Aggregate("r1", ctxAt(100), decisions, weights, DefaultThresholds())
	assertion.NoError(err)
	assertion.GreaterOrEqual(res.ConsensusStrength, 0.0)
	assertion.LessOrEqual(res.ConsensusStrength, 1.0)
	assertion.GreaterOrEqual(res.DivergenceScore, 0.0)
	assertion.Less(res.DivergenceScore, 1.0)
	assertion.GreaterOrEqual(res.WeightedConfidence, 0.0)
	assertion.LessOrEqual(res.WeightedConfidence, 100.0)
}

func TestAggregateMajorityActionSurvivesNonResponders(t *testing.T) {
	assertion := assert.New(t)

	weights := map[string]float64{"a": 0.5, "b": 0.3, "c": 0.2}
	full := []models.IndividualDecision{
		dec("a", models.ActionBuy, 90),
		dec("b", models.ActionBuy, 70),
		dec("c", models.ActionSell, 60),
	}

	// the BUY camp holds 0.8 of the original weight; dropping any strict
	// subset of the other responders cannot flip the final action
	res, err := Aggregate("r1", ctxAt(100), full, weights, DefaultThresholds())
	assertion.NoError(err)
	assertion.Equal(models.ActionBuy, res.Action)

	partial := []models.IndividualDecision{full[0], full[1]}
	res, err = Aggregate("r1", ctxAt(100), partial, weights, DefaultThresholds())
	assertion.NoError(err)
	assertion.Equal(models.ActionBuy, res.Action)

	solo := []models.IndividualDecision{full[0]}
	res, err = Aggregate("r1", ctxAt(100), solo, weights, DefaultThresholds())
	assertion.NoError(err)
	assertion.Equal(models.ActionBuy, res.Action)
}

func TestAggregateEmpty(t *testing.T) {
	_, err := Aggregate("r1", ctxAt(100), nil, map[string]float64{}, DefaultThresholds())
	assert.ErrorIs(t, err, ErrNoDecisions)
}

func TestAggregateZeroWeight(t *testing.T) {
	decisions := []models.IndividualDecision{dec("ghost", models.ActionBuy, 90)}
	_, err := Aggregate("r1", ctxAt(100), decisions, map[string]float64{}, DefaultThresholds())
	assert.Error(t, err)
}

func TestAggregateTimestampFromContext(t *testing.T) {
	mc := ctxAt(100)
	res, err := Aggregate("r1", mc, []models.IndividualDecision{dec("a", models.ActionBuy, 90)}, map[string]float64{"a": 1}, DefaultThresholds())
	assert.NoError(t, err)
	assert.Equal(t, mc.Timestamp, res.Timestamp)
}
