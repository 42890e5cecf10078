package history

import (
	"fmt"
	"testing"
	"time"

	"Quorum/internal/domain/models"
)

func consensusRound(id, symbol string, strength, confidence, divergence float64, latency time.Duration) models.RoundRecord {
	return models.RoundRecord{
		RoundID: id,
		Symbol:  symbol,
		Outcome: models.OutcomeConsensus,
		Result: &models.ConsensusResult{
			RoundID:            id,
			Action:             models.ActionBuy,
			ConsensusStrength:  strength,
			WeightedConfidence: confidence,
			DivergenceScore:    divergence,
		},
		Latency:   latency,
		Timestamp: time.Now(),
	}
}

func failedRound(id, symbol string, outcome models.RoundOutcome, latency time.Duration) models.RoundRecord {
	return models.RoundRecord{RoundID: id, Symbol: symbol, Outcome: outcome, Latency: latency, Timestamp: time.Now()}
}

func TestAppendAndRecent(t *testing.T) {
	s := New(100, 10, 0.5)

	for i := 0; i < 5; i++ {
		s.Append(consensusRound(fmt.Sprintf("r%d", i), "BTCUSDT", 0.8, 80, 0.1, 10*time.Millisecond))
	}

	recent := s.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recent))
	}
	if recent[0].RoundID != "r4" || recent[2].RoundID != "r2" {
		t.Fatalf("expected newest first, got %v", recent)
	}

	all := s.Recent(0)
	if len(all) != 5 {
		t.Fatalf("limit 0 should return everything, got %d", len(all))
	}
}

func TestLatestPerSymbol(t *testing.T) {
	s := New(100, 10, 0.5)

	s.Append(consensusRound("r1", "BTCUSDT", 0.8, 80, 0.1, time.Millisecond))
	s.Append(consensusRound("r2", "ETHUSDT", 0.7, 70, 0.2, time.Millisecond))
	s.Append(failedRound("r3", "BTCUSDT", models.OutcomeNoConsensus, time.Millisecond))

	rec, ok := s.Latest("BTCUSDT")
	if !ok || rec.RoundID != "r3" {
		t.Fatalf("expected r3 as latest BTCUSDT round, got %v ok=%v", rec.RoundID, ok)
	}
	rec, ok = s.Latest("ETHUSDT")
	if !ok || rec.RoundID != "r2" {
		t.Fatalf("expected r2 as latest ETHUSDT round")
	}
	if _, ok := s.Latest("DOGEUSDT"); ok {
		t.Fatalf("unknown symbol should report no record")
	}
}

func TestMaxSizeTrimsOldest(t *testing.T) {
	s := New(3, 3, 0.5)

	for i := 0; i < 5; i++ {
		s.Append(consensusRound(fmt.Sprintf("r%d", i), "BTCUSDT", 0.8, 80, 0.1, time.Millisecond))
	}

	all := s.Recent(0)
	if len(all) != 3 {
		t.Fatalf("expected trim to 3, got %d", len(all))
	}
	if all[len(all)-1].RoundID != "r2" {
		t.Fatalf("oldest kept record should be r2, got %s", all[len(all)-1].RoundID)
	}
	if got := s.Metrics().TotalRounds; got != 5 {
		t.Fatalf("total should count trimmed rounds, got %d", got)
	}
}

func TestMetricsEmpty(t *testing.T) {
	s := New(100, 10, 0.5)

	snap := s.Metrics()
	if snap.TotalRounds != 0 || snap.ConsensusRate != 0 {
		t.Fatalf("unexpected snapshot for empty store %+v", snap)
	}
}

func TestMetricsWindow(t *testing.T) {
	s := New(100, 4, 0.5)

	// outside the window, should not affect the snapshot
	for i := 0; i < 10; i++ {
		s.Append(failedRound(fmt.Sprintf("old%d", i), "BTCUSDT", models.OutcomeNoConsensus, 100*time.Millisecond))
	}

	s.Append(consensusRound("r1", "BTCUSDT", 0.9, 90, 0.0, 20*time.Millisecond))
	s.Append(consensusRound("r2", "BTCUSDT", 0.8, 70, 0.2, 40*time.Millisecond))
	s.Append(consensusRound("r3", "BTCUSDT", 0.3, 50, 0.6, 20*time.Millisecond)) // below threshold
	s.Append(failedRound("r4", "BTCUSDT", models.OutcomeNoProviders, 20*time.Millisecond))

	snap := s.Metrics()
	if snap.TotalRounds != 14 {
		t.Fatalf("expected 14 total rounds, got %d", snap.TotalRounds)
	}
	if snap.ConsensusRate != 0.5 {
		t.Fatalf("expected consensus rate 0.5, got %v", snap.ConsensusRate)
	}
	if snap.AvgLatencyMS != 25 {
		t.Fatalf("expected avg latency 25ms, got %v", snap.AvgLatencyMS)
	}
	if snap.AvgConfidence != 70 {
		t.Fatalf("expected avg confidence 70, got %v", snap.AvgConfidence)
	}
}

func TestMetricsFailedRoundsDragRateDown(t *testing.T) {
	s := New(100, 10, 0.5)

	s.Append(consensusRound("r1", "BTCUSDT", 0.9, 90, 0.0, time.Millisecond))
	s.Append(failedRound("r2", "BTCUSDT", models.OutcomeNoConsensus, time.Millisecond))
	s.Append(failedRound("r3", "BTCUSDT", models.OutcomeNoProviders, time.Millisecond))
	s.Append(failedRound("r4", "BTCUSDT", models.OutcomeNoConsensus, time.Millisecond))

	if got := s.Metrics().ConsensusRate; got != 0.25 {
		t.Fatalf("failed attempts must count in the denominator, got rate %v", got)
	}
}
