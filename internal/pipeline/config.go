// Package pipeline composes the per-symbol matching threads, the feed
// handler, and the publisher into one running engine (spec §4.7, C7),
// driven by a YAML configuration file matching chycee-cryptoGo's
// config-loading conventions (internal/infra/config.go): read, unmarshal
// with gopkg.in/yaml.v3, validate before anything is opened.
package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"clob/internal/logging"
)

// PriceBand is a symbol's dense-store tick range.
type PriceBand struct {
	MinTick int64 `yaml:"min_tick"`
	MaxTick int64 `yaml:"max_tick"`
}

// SymbolConfig describes one traded symbol and its store variant.
type SymbolConfig struct {
	ID        uint32    `yaml:"id"`
	Name      string    `yaml:"name"`
	PriceBand PriceBand `yaml:"price_band"`
	Store     string    `yaml:"store"` // "dense" or "sparse"
}

// KafkaFeedConfig names the broker/topic for a Kafka-sourced feed.
type KafkaFeedConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// FeedConfig selects and configures the inbound command source.
type FeedConfig struct {
	Source string          `yaml:"source"` // "file" or "kafka"
	Path   string          `yaml:"path"`
	Kafka  KafkaFeedConfig `yaml:"kafka"`
}

// BroadcastConfig configures the optional downstream Kafka fan-out
// (C11/C12).
type BroadcastConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Config is the full pipeline configuration (spec §6).
type Config struct {
	Symbols      []SymbolConfig  `yaml:"symbols"`
	Feed         FeedConfig      `yaml:"feed"`
	OutputDir    string          `yaml:"output_dir"`
	Cores        []int           `yaml:"cores"`
	Broadcast    BroadcastConfig `yaml:"broadcast"`
	OutboxDir    string          `yaml:"outbox_dir"`
	MetricsAddr  string          `yaml:"metrics_addr"`
	Log          logging.Config  `yaml:"log"`
}

// Load reads and validates the configuration at path. A validation
// failure is the caller's cue to exit with code 2 (spec §6 [ADD]),
// before any input file is opened.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("pipeline: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks structural requirements the rest of the pipeline
// assumes hold.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	seen := make(map[uint32]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if seen[s.ID] {
			return fmt.Errorf("duplicate symbol id %d", s.ID)
		}
		seen[s.ID] = true
		if s.Store != "dense" && s.Store != "sparse" {
			return fmt.Errorf("symbol %d: store must be \"dense\" or \"sparse\", got %q", s.ID, s.Store)
		}
		if s.Store == "dense" && s.PriceBand.MaxTick < s.PriceBand.MinTick {
			return fmt.Errorf("symbol %d: price_band.max_tick must be >= min_tick", s.ID)
		}
	}
	switch c.Feed.Source {
	case "file":
		if c.Feed.Path == "" {
			return fmt.Errorf("feed.path is required for file source")
		}
	case "kafka":
		if len(c.Feed.Kafka.Brokers) == 0 || c.Feed.Kafka.Topic == "" {
			return fmt.Errorf("feed.kafka.brokers and topic are required for kafka source")
		}
	default:
		return fmt.Errorf("feed.source must be \"file\" or \"kafka\", got %q", c.Feed.Source)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if len(c.Cores) != 0 && len(c.Cores) != len(c.Symbols)+2 {
		return fmt.Errorf("cores must be empty or list exactly [feed, engine_0..engine_%d, publisher]", len(c.Symbols)-1)
	}
	return nil
}
