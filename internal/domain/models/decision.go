package models

import "time"

// Action is a trading recommendation.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Valid reports whether a is one of the closed action set.
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionSell || a == ActionHold
}

// IndividualDecision is one provider's recommendation for one round.
// Immutable once created; produced at most once per provider per round.
type IndividualDecision struct {
	ProviderID string        `json:"provider_id"`
	Action     Action        `json:"action"`
	Confidence float64       `json:"confidence"` // [0,100]
	Rationale  string        `json:"rationale,omitempty"`
	Latency    time.Duration `json:"latency"`
	Timestamp  time.Time     `json:"timestamp"`
}
