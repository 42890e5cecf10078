package models

import "time"

// RiskLevel classifies the dispersion of a round's decisions.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ExecutionPriority orders how quickly a decision should be acted on.
type ExecutionPriority string

const (
	PriorityUrgent  ExecutionPriority = "urgent"
	PriorityNormal  ExecutionPriority = "normal"
	PriorityDelayed ExecutionPriority = "delayed"
)

// ExecutionParams are the risk-bounded execution parameters derived from a
// consensus result and the market price.
type ExecutionParams struct {
	PositionFraction float64           `json:"position_fraction"` // fraction of portfolio, bounded by config
	StopLoss         float64           `json:"stop_loss"`
	TakeProfit       float64           `json:"take_profit"`
	Priority         ExecutionPriority `json:"priority"`
}

// ConsensusResult is the aggregate decision of one round. Created once,
// immutable, appended to history.
type ConsensusResult struct {
	RoundID            string               `json:"round_id"`
	Context            MarketContext        `json:"context"`
	Action             Action               `json:"action"`
	ConsensusStrength  float64              `json:"consensus_strength"`  // [0,1], share of responding weight on Action
	WeightedConfidence float64              `json:"weighted_confidence"` // [0,100], over all responding providers
	DivergenceScore    float64              `json:"divergence_score"`    // [0,1], unweighted action split
	RiskLevel          RiskLevel            `json:"risk_level"`
	Participants       []string             `json:"participants"` // responding provider ids, sorted
	Decisions          []IndividualDecision `json:"decisions"`
	Execution          ExecutionParams      `json:"execution"`
	Timestamp          time.Time            `json:"timestamp"`
}

// RoundOutcome distinguishes how a round ended. No-consensus and no-provider
// rounds are recorded, not dropped, so reliability metrics stay honest.
type RoundOutcome string

const (
	OutcomeConsensus   RoundOutcome = "consensus"
	OutcomeNoConsensus RoundOutcome = "no_consensus"
	OutcomeNoProviders RoundOutcome = "no_providers"
)

// RoundRecord is one append-only history entry. Result is nil unless the
// outcome is OutcomeConsensus.
type RoundRecord struct {
	RoundID   string           `json:"round_id"`
	Symbol    string           `json:"symbol"`
	Outcome   RoundOutcome     `json:"outcome"`
	Result    *ConsensusResult `json:"result,omitempty"`
	Latency   time.Duration    `json:"latency"`
	Timestamp time.Time        `json:"timestamp"`
}

// MetricsSnapshot is the rolling-window view computed from history.
type MetricsSnapshot struct {
	TotalRounds   int     `json:"total_rounds"`
	ConsensusRate float64 `json:"consensus_rate"` // share of rounds above strength threshold
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	AvgConfidence float64 `json:"avg_confidence"`
	AvgAgreement  float64 `json:"avg_agreement"` // 1 - mean divergence
}
