package models

import "time"

// ProviderStatus is the operational state of a decision source.
type ProviderStatus string

const (
	StatusActive      ProviderStatus = "active"
	StatusInactive    ProviderStatus = "inactive"
	StatusError       ProviderStatus = "error"
	StatusRateLimited ProviderStatus = "rate_limited"
)

// Valid reports whether s is one of the known statuses.
func (s ProviderStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusError, StatusRateLimited:
		return true
	}
	return false
}

// Provider is a configured decision source. Weight is configuration, not
// derived; it does not need to sum to 1 across providers.
type Provider struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Weight      float64        `json:"weight"` // relative weight in (0,1]
	Status      ProviderStatus `json:"status"`
	Accuracy    float64        `json:"accuracy"`    // EWMA hit rate over known outcomes
	AvgLatency  time.Duration  `json:"avg_latency"` // EWMA of call latency
	Calls       uint64         `json:"calls"`
	Failures    uint64         `json:"failures"`
	Specialties []string       `json:"specialties,omitempty"`
}
