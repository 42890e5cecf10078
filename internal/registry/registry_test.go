package registry

import (
	"errors"
	"testing"
	"time"

	"Quorum/internal/domain/models"
)

func testProviders() []models.Provider {
	return []models.Provider{
		{ID: "alpha", Name: "Alpha", Weight: 0.5},
		{ID: "beta", Name: "Beta", Weight: 0.3},
		{ID: "gamma", Name: "Gamma", Weight: 0.2, Status: models.StatusInactive},
	}
}

func TestNewDefaultsToActive(t *testing.T) {
	r := New(testProviders(), 3)

	active := r.ListActive()
	if len(active) != 2 {
		t.Fatalf("expected 2 active providers, got %d", len(active))
	}
	if active[0].ID != "alpha" || active[1].ID != "beta" {
		t.Fatalf("unexpected active set %v", active)
	}
	if len(r.List()) != 3 {
		t.Fatalf("expected 3 configured providers")
	}
}

func TestWeights(t *testing.T) {
	r := New(testProviders(), 3)

	w := r.Weights()
	if w["alpha"] != 0.5 || w["beta"] != 0.3 || w["gamma"] != 0.2 {
		t.Fatalf("unexpected weights %v", w)
	}
}

func TestRecordUsageFailureStreak(t *testing.T) {
	r := New(testProviders(), 3)

	// two failures are not enough to flip status
	for i := 0; i < 2; i++ {
		if err := r.RecordUsage("alpha", 10*time.Millisecond, false); err != nil {
			t.Fatalf("record usage: %v", err)
		}
	}
	p, _ := r.Get("alpha")
	if p.Status != models.StatusActive {
		t.Fatalf("status flipped early: %s", p.Status)
	}

	if err := r.RecordUsage("alpha", 10*time.Millisecond, false); err != nil {
		t.Fatalf("record usage: %v", err)
	}
	p, _ = r.Get("alpha")
	if p.Status != models.StatusError {
		t.Fatalf("expected error status after streak, got %s", p.Status)
	}
	if p.Failures != 3 || p.Calls != 3 {
		t.Fatalf("unexpected counters failures=%d calls=%d", p.Failures, p.Calls)
	}
}

func TestRecordUsageSuccessResetsStreak(t *testing.T) {
	r := New(testProviders(), 3)

	_ = r.RecordUsage("alpha", time.Millisecond, false)
	_ = r.RecordUsage("alpha", time.Millisecond, false)
	_ = r.RecordUsage("alpha", time.Millisecond, true)
	_ = r.RecordUsage("alpha", time.Millisecond, false)
	_ = r.RecordUsage("alpha", time.Millisecond, false)

	p, _ := r.Get("alpha")
	if p.Status != models.StatusActive {
		t.Fatalf("streak should have been reset, got %s", p.Status)
	}
}

func TestRecordUsageRecoversFromError(t *testing.T) {
	r := New(testProviders(), 2)

	_ = r.RecordUsage("beta", time.Millisecond, false)
	_ = r.RecordUsage("beta", time.Millisecond, false)
	p, _ := r.Get("beta")
	if p.Status != models.StatusError {
		t.Fatalf("expected error status, got %s", p.Status)
	}

	_ = r.RecordUsage("beta", time.Millisecond, true)
	p, _ = r.Get("beta")
	if p.Status != models.StatusActive {
		t.Fatalf("expected recovery to active, got %s", p.Status)
	}
}

func TestRecordUsageLatencyEWMA(t *testing.T) {
	r := New(testProviders(), 3)

	_ = r.RecordUsage("alpha", 100*time.Millisecond, true)
	p, _ := r.Get("alpha")
	if p.AvgLatency != 100*time.Millisecond {
		t.Fatalf("first sample should seed the average, got %v", p.AvgLatency)
	}

	_ = r.RecordUsage("alpha", 200*time.Millisecond, true)
	p, _ = r.Get("alpha")
	if p.AvgLatency <= 100*time.Millisecond || p.AvgLatency >= 200*time.Millisecond {
		t.Fatalf("average should move toward the new sample, got %v", p.AvgLatency)
	}
}

func TestRecordOutcomeAccuracy(t *testing.T) {
	r := New(testProviders(), 3)

	_ = r.RecordUsage("alpha", time.Millisecond, true)
	if err := r.RecordOutcome("alpha", true); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	p, _ := r.Get("alpha")
	if p.Accuracy != 1.0 {
		t.Fatalf("first outcome should seed accuracy, got %v", p.Accuracy)
	}

	_ = r.RecordUsage("alpha", time.Millisecond, true)
	_ = r.RecordOutcome("alpha", false)
	p, _ = r.Get("alpha")
	if p.Accuracy >= 1.0 || p.Accuracy <= 0.0 {
		t.Fatalf("accuracy should decay toward the miss, got %v", p.Accuracy)
	}
}

func TestSetStatus(t *testing.T) {
	r := New(testProviders(), 3)

	if err := r.SetStatus("gamma", models.StatusActive); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if len(r.ListActive()) != 3 {
		t.Fatalf("expected gamma to join the active set")
	}

	if err := r.SetStatus("gamma", "banana"); err == nil {
		t.Fatalf("expected invalid status to be rejected")
	}
}

func TestUnknownProvider(t *testing.T) {
	r := New(testProviders(), 3)

	if err := r.RecordUsage("nobody", time.Millisecond, true); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
	if _, err := r.Get("nobody"); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
	if err := r.SetStatus("nobody", models.StatusInactive); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}
