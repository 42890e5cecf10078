package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Quorum/internal/domain/models"
	domsvc "Quorum/internal/domain/service"
	xhttp "Quorum/pkg/http"
)

// HTTPSource calls a remote recommendation endpoint: the provider's
// implementation stays opaque behind a single request/response operation.
type HTTPSource struct {
	id       string
	endpoint string
	headers  map[string]string
	client   *xhttp.Client
}

// NewHTTPSource creates a source for one provider endpoint. apiKey may be
// empty.
func NewHTTPSource(id, endpoint, apiKey string, client *xhttp.Client) *HTTPSource {
	headers := map[string]string{}
	if apiKey != "" {
		headers["Authorization"] = "Bearer " + apiKey
	}
	return &HTTPSource{id: id, endpoint: endpoint, headers: headers, client: client}
}

func (s *HTTPSource) ProviderID() string { return s.id }

// Recommend posts the market context and decodes the provider's decision.
func (s *HTTPSource) Recommend(ctx context.Context, mc models.MarketContext) (models.IndividualDecision, error) {
	var out struct {
		Action     string  `json:"action"`
		Confidence float64 `json:"confidence"`
		Rationale  string  `json:"rationale"`
	}
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     s.endpoint,
		Headers: s.headers,
		Body:    mc,
	}, &out)
	if err != nil {
		return models.IndividualDecision{}, fmt.Errorf("provider %s: %w", s.id, err)
	}
	return models.IndividualDecision{
		ProviderID: s.id,
		Action:     models.Action(strings.ToUpper(strings.TrimSpace(out.Action))),
		Confidence: out.Confidence,
		Rationale:  out.Rationale,
		Timestamp:  time.Now(),
	}, nil
}

var _ domsvc.RecommendationSource = (*HTTPSource)(nil)
