package service

import (
	"context"

	"Quorum/internal/domain/models"
)

// RecommendationSource is the opaque per-provider capability: one
// request/response call with provider-specific latency. The engine has no
// insight into how the recommendation is computed.
type RecommendationSource interface {
	ProviderID() string
	Recommend(ctx context.Context, mc models.MarketContext) (models.IndividualDecision, error)
}
