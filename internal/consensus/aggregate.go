package consensus

import (
	"fmt"
	"sort"

	"Quorum/internal/domain/models"
)

// ErrNoDecisions means the round gathered no usable decisions. Distinct from
// a HOLD: a HOLD is a considered outcome, this means no information at all.
var ErrNoDecisions = fmt.Errorf("consensus: no decisions to aggregate")

// Thresholds parameterize the risk-level heuristic. The defaults mirror the
// original ad hoc cutoffs; they are configuration, not derived constants.
type Thresholds struct {
	LowDivergence  float64 `yaml:"low_divergence"`  // low risk needs divergence below this
	LowStrength    float64 `yaml:"low_strength"`    // and strength above this
	HighDivergence float64 `yaml:"high_divergence"` // high risk when divergence above this
	HighStrength   float64 `yaml:"high_strength"`   // or strength below this
}

// DefaultThresholds returns the standard risk cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowDivergence:  0.3,
		LowStrength:    0.7,
		HighDivergence: 0.6,
		HighStrength:   0.4,
	}
}

// Aggregate reduces one round's decisions into a ConsensusResult. It is a
// pure function of its inputs: identical decisions and weights produce an
// identical result regardless of slice order.
//
// Scoring: score(a) = sum of weight * confidence/100 over decisions with
// action a; the winner takes the max, with ties resolved HOLD over SELL
// over BUY (bias toward inaction under ambiguity). Strength is the winner's
// share of responding weight; divergence is the unweighted action split.
func Aggregate(roundID string, mc models.MarketContext, decisions []models.IndividualDecision, weights map[string]float64, th Thresholds) (models.ConsensusResult, error) {
	if len(decisions) == 0 {
		return models.ConsensusResult{}, ErrNoDecisions
	}

	var (
		totalWeight float64
		confSum     float64
		scores      = map[models.Action]float64{}
		counts      = map[models.Action]int{}
	)
	for _, d := range decisions {
		w := weights[d.ProviderID]
		totalWeight += w
		confSum += d.Confidence * w
		scores[d.Action] += w * d.Confidence / 100
		counts[d.Action]++
	}
	if totalWeight <= 0 {
		return models.ConsensusResult{}, fmt.Errorf("consensus: responding weight is zero")
	}

	// tie-break order: HOLD wins over SELL wins over BUY
	final := models.ActionHold
	for _, a := range []models.Action{models.ActionSell, models.ActionBuy} {
		if scores[a] > scores[final] {
			final = a
		}
	}

	maxCount := 0
	for _, n := range counts {
		if n > maxCount {
			maxCount = n
		}
	}
	strength := scores[final] / totalWeight
	divergence := 1 - float64(maxCount)/float64(len(decisions))

	sorted := make([]models.IndividualDecision, len(decisions))
	copy(sorted, decisions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProviderID < sorted[j].ProviderID })

	participants := make([]string, 0, len(sorted))
	for _, d := range sorted {
		participants = append(participants, d.ProviderID)
	}

	return models.ConsensusResult{
		RoundID:            roundID,
		Context:            mc,
		Action:             final,
		ConsensusStrength:  strength,
		WeightedConfidence: confSum / totalWeight,
		DivergenceScore:    divergence,
		RiskLevel:          riskLevel(strength, divergence, th),
		Participants:       participants,
		Decisions:          sorted,
		Timestamp:          mc.Timestamp,
	}, nil
}

func riskLevel(strength, divergence float64, th Thresholds) models.RiskLevel {
	switch {
	case divergence > th.HighDivergence || strength < th.HighStrength:
		return models.RiskHigh
	case divergence < th.LowDivergence && strength > th.LowStrength:
		return models.RiskLow
	default:
		return models.RiskMedium
	}
}
