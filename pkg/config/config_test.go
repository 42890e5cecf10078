package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
environment: development
server:
  port: 8080
  read_timeout: 5s
  write_timeout: 10s
  shutdown_timeout: 15s
engine:
  deadline: 800ms
  max_concurrent_rounds: 8
  min_round_interval: 5s
  failure_threshold: 3
  history_size: 10000
  metrics_window: 100
  consensus_threshold: 0.5
risk:
  posture: moderate
  max_position_fraction: 0.10
  loss_band: 0.02
  gain_band: 0.04
thresholds:
  low_divergence: 0.3
  low_strength: 0.7
  high_divergence: 0.6
  high_strength: 0.4
providers:
  - id: momentum
    name: Momentum Model
    weight: 0.5
    type: mock
    latency_ms: 20
    specialties: [BTCUSDT]
  - id: quant
    name: Quant Service
    weight: 0.3
    type: http
    endpoint: http://quant:9000/recommend
  - id: sentiment
    name: Sentiment Model
    weight: 0.2
    type: mock
feed:
  enabled: true
  websocket_url: wss://example.test/ws
  symbols: [BTCUSDT, ETHUSDT]
  window_size: 60
  reconnect_delay: 5s
  ping_interval: 20s
kafka:
  enabled: true
  brokers: [localhost:9092]
  rounds_topic: quorum.rounds
  contexts_topic: quorum.contexts
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Deadline != 800*time.Millisecond {
		t.Fatalf("unexpected deadline %v", cfg.Engine.Deadline)
	}
	if len(cfg.Providers) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(cfg.Providers))
	}
	if cfg.Providers[1].Type != "http" || cfg.Providers[1].Endpoint == "" {
		t.Fatalf("unexpected provider config %+v", cfg.Providers[1])
	}
	if cfg.Risk.Posture != "moderate" {
		t.Fatalf("unexpected posture %s", cfg.Risk.Posture)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidateRejectsBadWeight(t *testing.T) {
	bad := `
environment: development
providers:
  - id: p1
    weight: 1.5
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected weight validation error")
	}
}

func TestValidateRejectsDuplicateProvider(t *testing.T) {
	bad := `
environment: development
providers:
  - id: p1
    weight: 0.5
  - id: p1
    weight: 0.5
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestValidateRejectsHTTPWithoutEndpoint(t *testing.T) {
	bad := `
environment: development
providers:
  - id: p1
    weight: 0.5
    type: http
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected endpoint validation error")
	}
}

func TestValidateRejectsUnknownPosture(t *testing.T) {
	bad := `
environment: development
risk:
  posture: yolo
providers:
  - id: p1
    weight: 0.5
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected posture validation error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "SOLUSDT,ADAUSDT")
	t.Setenv("RISK_POSTURE", "aggressive")

	cfg, err := LoadWithEnv(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Feed.Symbols) != 2 || cfg.Feed.Symbols[0] != "SOLUSDT" {
		t.Fatalf("env symbols not applied: %v", cfg.Feed.Symbols)
	}
	if cfg.Risk.Posture != "aggressive" {
		t.Fatalf("env posture not applied: %s", cfg.Risk.Posture)
	}
}
