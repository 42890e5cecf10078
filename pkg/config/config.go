package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig declares one decision source. Weight is a relative share
// in (0,1]; weights need not sum to 1 across providers.
type ProviderConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Weight      float64  `yaml:"weight"`
	Type        string   `yaml:"type"` // http or mock
	Endpoint    string   `yaml:"endpoint"`
	APIKey      string   `yaml:"api_key"`
	LatencyMS   int      `yaml:"latency_ms"` // simulated latency for mock providers
	Specialties []string `yaml:"specialties"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Engine struct {
		Deadline            time.Duration `yaml:"deadline"`              // per-round provider deadline
		MaxConcurrentRounds int           `yaml:"max_concurrent_rounds"` // cap on rounds in flight across symbols
		MinRoundInterval    time.Duration `yaml:"min_round_interval"`    // per-symbol throttle on the feed path
		PipelineBuffer      int           `yaml:"pipeline_buffer"`
		FailureThreshold    int           `yaml:"failure_threshold"` // consecutive failures before a provider errors out
		HistorySize         int           `yaml:"history_size"`
		MetricsWindow       int           `yaml:"metrics_window"`
		ConsensusThreshold  float64       `yaml:"consensus_threshold"` // strength cutoff for the consensus rate
		ProviderRateCap     float64       `yaml:"provider_rate_cap"`   // token bucket capacity per provider, 0 disables
		ProviderRatePerSec  float64       `yaml:"provider_rate_per_sec"`
	} `yaml:"engine"`
	Risk struct {
		Posture             string  `yaml:"posture"` // conservative, moderate, aggressive
		MaxPositionFraction float64 `yaml:"max_position_fraction"`
		LossBand            float64 `yaml:"loss_band"`
		GainBand            float64 `yaml:"gain_band"`
	} `yaml:"risk"`
	Thresholds struct {
		LowDivergence  float64 `yaml:"low_divergence"`
		LowStrength    float64 `yaml:"low_strength"`
		HighDivergence float64 `yaml:"high_divergence"`
		HighStrength   float64 `yaml:"high_strength"`
	} `yaml:"thresholds"`
	Providers []ProviderConfig `yaml:"providers"`
	Feed      struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		WindowSize     int           `yaml:"window_size"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		RoundsTopic   string   `yaml:"rounds_topic"`   // outbound round publications
		ContextsTopic string   `yaml:"contexts_topic"` // inbound round triggers
		LogsTopic     string   `yaml:"logs_topic"`     // aggregated error log shipping
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Feed.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("RISK_POSTURE"); v != "" {
		c.Risk.Posture = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ROUNDS_TOPIC"); v != "" {
		c.Kafka.RoundsTopic = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("providers cannot be empty")
	}
	seen := map[string]bool{}
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider id is required")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id '%s'", p.ID)
		}
		seen[p.ID] = true
		if p.Weight <= 0 || p.Weight > 1 {
			return fmt.Errorf("provider '%s' weight must be in (0,1], got %v", p.ID, p.Weight)
		}
		switch p.Type {
		case "http":
			if p.Endpoint == "" {
				return fmt.Errorf("provider '%s' endpoint is required for type http", p.ID)
			}
		case "mock", "":
		default:
			return fmt.Errorf("provider '%s' type must be 'http' or 'mock', got '%s'", p.ID, p.Type)
		}
	}
	switch c.Risk.Posture {
	case "conservative", "moderate", "aggressive", "":
	default:
		return fmt.Errorf("risk.posture must be conservative, moderate, or aggressive, got '%s'", c.Risk.Posture)
	}
	if c.Feed.Enabled && len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("feed.symbols cannot be empty when feed is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
