package models

import "time"

// PricePoint is one entry of the recent price/volume window.
type PricePoint struct {
	Price  float64   `json:"price"`
	Volume float64   `json:"volume"`
	Time   time.Time `json:"time"`
}

// MarketContext is an immutable market snapshot passed into one round.
// The window is bounded at construction; the engine never holds a live
// reference to feed state.
type MarketContext struct {
	Symbol    string       `json:"symbol"`
	Price     float64      `json:"price"`
	Window    []PricePoint `json:"window,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
