package models

// AnalyzeRequest triggers one round for a symbol ("Analyze Now").
// Price is optional when the feed already has a snapshot for the symbol.
type AnalyzeRequest struct {
	Symbol     string  `json:"symbol" validate:"required"`
	Price      float64 `json:"price" validate:"omitempty,gt=0"`
	DeadlineMS int     `json:"deadline_ms" default:"800" validate:"gte=50,lte=10000"`
}

// LatestRoundRequest fetches the most recent round for a symbol.
type LatestRoundRequest struct {
	Symbol string `query:"symbol" validate:"required"`
}

// HistoryRequest pages through recorded rounds.
type HistoryRequest struct {
	Symbol string `query:"symbol"`
	Limit  int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
}

// ProviderStatusRequest changes a provider's operational status.
type ProviderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive error rate_limited"`
}
