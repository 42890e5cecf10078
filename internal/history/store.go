package history

import (
	"sync"
	"time"

	"Quorum/internal/domain/models"
)

// Store is the append-only round log. No record is ever rewritten; metrics
// are recomputed from the trailing window on demand so correctness does not
// depend on update order. Old records are dropped from memory once maxSize
// is exceeded (the durable archive keeps the full history).
type Store struct {
	mu        sync.RWMutex
	records   []models.RoundRecord
	latest    map[string]models.RoundRecord
	total     int
	maxSize   int
	window    int
	threshold float64 // consensus-strength cutoff for the consensus rate
}

// New creates a history store. window bounds the metrics computation,
// threshold is the consensus-strength cutoff for the consensus rate.
func New(maxSize, window int, threshold float64) *Store {
	if maxSize <= 0 {
		maxSize = 10000
	}
	if window <= 0 || window > maxSize {
		window = 100
	}
	return &Store{
		latest:    make(map[string]models.RoundRecord),
		maxSize:   maxSize,
		window:    window,
		threshold: threshold,
	}
}

// Append records one round attempt. No-consensus and no-provider rounds are
// appended like any other so round reliability stays measurable.
func (s *Store) Append(rec models.RoundRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	s.records = append(s.records, rec)
	s.total++
	if rec.Symbol != "" {
		s.latest[rec.Symbol] = rec
	}
	if len(s.records) > s.maxSize {
		s.records = s.records[len(s.records)-s.maxSize:]
	}
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) []models.RoundRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]models.RoundRecord, 0, limit)
	for i := len(s.records) - 1; i >= len(s.records)-limit; i-- {
		out = append(out, s.records[i])
	}
	return out
}

// Latest returns the most recent record for a symbol.
func (s *Store) Latest(symbol string) (models.RoundRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.latest[symbol]
	return rec, ok
}

// Metrics recomputes the rolling snapshot over the trailing window.
func (s *Store) Metrics() models.MetricsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.MetricsSnapshot{TotalRounds: s.total}
	n := len(s.records)
	if n == 0 {
		return snap
	}
	start := n - s.window
	if start < 0 {
		start = 0
	}
	win := s.records[start:]

	var (
		reached    int
		latencySum time.Duration
		confSum    float64
		agreeSum   float64
		consensusN int
	)
	for _, rec := range win {
		latencySum += rec.Latency
		if rec.Outcome != models.OutcomeConsensus || rec.Result == nil {
			continue
		}
		consensusN++
		confSum += rec.Result.WeightedConfidence
		agreeSum += 1 - rec.Result.DivergenceScore
		if rec.Result.ConsensusStrength >= s.threshold {
			reached++
		}
	}

	snap.ConsensusRate = float64(reached) / float64(len(win))
	snap.AvgLatencyMS = float64(latencySum.Milliseconds()) / float64(len(win))
	if consensusN > 0 {
		snap.AvgConfidence = confSum / float64(consensusN)
		snap.AvgAgreement = agreeSum / float64(consensusN)
	}
	return snap
}
