package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"Quorum/internal/domain/models"
)

func result(a models.Action, strength float64, risk models.RiskLevel) models.ConsensusResult {
	return models.ConsensusResult{Action: a, ConsensusStrength: strength, RiskLevel: risk}
}

func TestDeriveBuyBands(t *testing.T) {
	assertion := assert.New(t)

	d := New(DefaultConfig())
	mc := models.MarketContext{Symbol: "BTCUSDT", Price: 50000}

	params, err := d.Derive(result(models.ActionBuy, 0.9, models.RiskLow), mc)
	assertion.NoError(err)
	assertion.InDelta(49000, params.StopLoss, 1e-6)
	assertion.InDelta(52000, params.TakeProfit, 1e-6)
	assertion.Less(params.StopLoss, mc.Price)
	assertion.Greater(params.TakeProfit, mc.Price)
	assertion.Equal(models.PriorityUrgent, params.Priority)
	assertion.InDelta(0.09, params.PositionFraction, 1e-9)
}

func TestDeriveSellBands(t *testing.T) {
	assertion := assert.New(t)

	d := New(DefaultConfig())
	mc := models.MarketContext{Symbol: "BTCUSDT", Price: 50000}

	params, err := d.Derive(result(models.ActionSell, 0.7, models.RiskMedium), mc)
	assertion.NoError(err)
	assertion.Greater(params.StopLoss, mc.Price)
	assertion.Less(params.TakeProfit, mc.Price)
	assertion.Equal(models.PriorityNormal, params.Priority)
}

func TestDeriveHoldNoExposure(t *testing.T) {
	assertion := assert.New(t)

	d := New(DefaultConfig())
	mc := models.MarketContext{Symbol: "ETHUSDT", Price: 3000}

	params, err := d.Derive(result(models.ActionHold, 0.95, models.RiskLow), mc)
	assertion.NoError(err)
	assertion.Zero(params.PositionFraction)
	assertion.Equal(mc.Price, params.StopLoss)
	assertion.Equal(mc.Price, params.TakeProfit)
}

func TestDeriveFractionNeverExceedsCap(t *testing.T) {
	d := New(Config{Posture: PostureAggressive, MaxPositionFraction: 0.10, LossBand: 0.02, GainBand: 0.04})
	mc := models.MarketContext{Symbol: "BTCUSDT", Price: 100}

	params, err := d.Derive(result(models.ActionBuy, 1.0, models.RiskLow), mc)
	assert.NoError(t, err)
	assert.LessOrEqual(t, params.PositionFraction, 0.10)
}

func TestDerivePostureScalesFraction(t *testing.T) {
	assertion := assert.New(t)

	mc := models.MarketContext{Symbol: "BTCUSDT", Price: 100}
	res := result(models.ActionBuy, 0.5, models.RiskMedium)

	conservative, err := New(Config{Posture: PostureConservative}).Derive(res, mc)
	assertion.NoError(err)
	moderate, err := New(Config{Posture: PostureModerate}).Derive(res, mc)
	assertion.NoError(err)
	aggressive, err := New(Config{Posture: PostureAggressive}).Derive(res, mc)
	assertion.NoError(err)

	assertion.Less(conservative.PositionFraction, moderate.PositionFraction)
	assertion.Less(moderate.PositionFraction, aggressive.PositionFraction)
}

func TestDeriveHigherRiskShrinksFraction(t *testing.T) {
	assertion := assert.New(t)

	d := New(DefaultConfig())
	mc := models.MarketContext{Symbol: "BTCUSDT", Price: 100}

	low, err := d.Derive(result(models.ActionBuy, 0.8, models.RiskLow), mc)
	assertion.NoError(err)
	med, err := d.Derive(result(models.ActionBuy, 0.8, models.RiskMedium), mc)
	assertion.NoError(err)
	high, err := d.Derive(result(models.ActionBuy, 0.8, models.RiskHigh), mc)
	assertion.NoError(err)

	assertion.Greater(low.PositionFraction, med.PositionFraction)
	assertion.Greater(med.PositionFraction, high.PositionFraction)
}

func TestDeriveInvalidInput(t *testing.T) {
	d := New(DefaultConfig())

	_, err := d.Derive(result(models.ActionBuy, 0.8, models.RiskLow), models.MarketContext{Symbol: "BTCUSDT", Price: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = d.Derive(result(models.Action("SHRUG"), 0.8, models.RiskLow), models.MarketContext{Symbol: "BTCUSDT", Price: 100})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPriorityCutoffs(t *testing.T) {
	assert.Equal(t, models.PriorityUrgent, priority(0.81))
	assert.Equal(t, models.PriorityNormal, priority(0.7))
	assert.Equal(t, models.PriorityDelayed, priority(0.6))
	assert.Equal(t, models.PriorityDelayed, priority(0.2))
}

func TestNewFallsBackOnBadPosture(t *testing.T) {
	d := New(Config{Posture: "reckless"})
	assert.Equal(t, PostureModerate, d.cfg.Posture)
}
