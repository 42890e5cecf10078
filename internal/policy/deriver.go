package policy

import (
	"fmt"

	"Quorum/internal/domain/models"
)

// ErrInvalidInput marks programmer errors: a non-positive price or an action
// outside the closed enum. The deriver fails fast instead of producing
// plausible-looking but meaningless parameters.
var ErrInvalidInput = fmt.Errorf("policy: invalid input")

// Posture is the externally configured risk appetite.
type Posture string

const (
	PostureConservative Posture = "conservative"
	PostureModerate     Posture = "moderate"
	PostureAggressive   Posture = "aggressive"
)

// Valid reports whether p is a known posture.
func (p Posture) Valid() bool {
	return p == PostureConservative || p == PostureModerate || p == PostureAggressive
}

// Config bounds the derived execution parameters.
type Config struct {
	Posture             Posture `yaml:"posture"`
	MaxPositionFraction float64 `yaml:"max_position_fraction"` // hard cap on portfolio share
	LossBand            float64 `yaml:"loss_band"`             // stop-loss distance as fraction of price
	GainBand            float64 `yaml:"gain_band"`             // take-profit distance as fraction of price
}

// DefaultConfig returns a moderate posture with conservative bounds.
func DefaultConfig() Config {
	return Config{
		Posture:             PostureModerate,
		MaxPositionFraction: 0.10,
		LossBand:            0.02,
		GainBand:            0.04,
	}
}

var postureScale = map[Posture]float64{
	PostureConservative: 0.5,
	PostureModerate:     1.0,
	PostureAggressive:   1.5,
}

var riskScale = map[models.RiskLevel]float64{
	models.RiskLow:    1.0,
	models.RiskMedium: 0.6,
	models.RiskHigh:   0.3,
}

// Deriver turns a ConsensusResult into risk-bounded execution parameters.
// It performs no I/O.
type Deriver struct {
	cfg Config
}

// New creates a Deriver; an invalid posture falls back to moderate.
func New(cfg Config) *Deriver {
	if !cfg.Posture.Valid() {
		cfg.Posture = PostureModerate
	}
	if cfg.MaxPositionFraction <= 0 {
		cfg.MaxPositionFraction = DefaultConfig().MaxPositionFraction
	}
	if cfg.LossBand <= 0 {
		cfg.LossBand = DefaultConfig().LossBand
	}
	if cfg.GainBand <= 0 {
		cfg.GainBand = DefaultConfig().GainBand
	}
	return &Deriver{cfg: cfg}
}

// Derive computes position size, stop-loss, take-profit, and priority for a
// consensus result at the context's current price.
func (d *Deriver) Derive(res models.ConsensusResult, mc models.MarketContext) (models.ExecutionParams, error) {
	if mc.Price <= 0 {
		return models.ExecutionParams{}, fmt.Errorf("%w: non-positive price %v", ErrInvalidInput, mc.Price)
	}
	if !res.Action.Valid() {
		return models.ExecutionParams{}, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, res.Action)
	}

	params := models.ExecutionParams{Priority: priority(res.ConsensusStrength)}

	switch res.Action {
	case models.ActionBuy:
		params.StopLoss = mc.Price * (1 - d.cfg.LossBand)
		params.TakeProfit = mc.Price * (1 + d.cfg.GainBand)
	case models.ActionSell:
		params.StopLoss = mc.Price * (1 + d.cfg.LossBand)
		params.TakeProfit = mc.Price * (1 - d.cfg.GainBand)
	case models.ActionHold:
		// no exposure
		params.StopLoss = mc.Price
		params.TakeProfit = mc.Price
		return params, nil
	}

	// scales monotonically with strength, inversely with risk, never above
	// the configured cap
	frac := d.cfg.MaxPositionFraction * res.ConsensusStrength * riskScale[res.RiskLevel] * postureScale[d.cfg.Posture]
	if frac > d.cfg.MaxPositionFraction {
		frac = d.cfg.MaxPositionFraction
	}
	params.PositionFraction = frac
	return params, nil
}

func priority(strength float64) models.ExecutionPriority {
	switch {
	case strength > 0.8:
		return models.PriorityUrgent
	case strength > 0.6:
		return models.PriorityNormal
	default:
		return models.PriorityDelayed
	}
}
