// Package config loads the swingbot YAML configuration and applies
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration.
type Config struct {
	Storage Storage       `yaml:"storage"`
	Alpaca  Alpaca        `yaml:"alpaca"`
	Logging Logging       `yaml:"logging"`
	Trading TradingConfig `yaml:"trading"`
	Signals SignalConfig  `yaml:"signals"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	StatePath  string `yaml:"state_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca broker API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	DataFeed  string `yaml:"data_feed"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TradingConfig defines execution limits and behavior.
type TradingConfig struct {
	Broker               string  `yaml:"broker"` // "alpaca" or "simulator"
	Strategy             string  `yaml:"strategy"`
	MaxPositions         int     `yaml:"max_positions"`
	MaxPositionValue     float64 `yaml:"max_position_value"`
	MinConfidence        float64 `yaml:"min_confidence"`
	MaxVIX               float64 `yaml:"max_vix"`
	CooldownHours        float64 `yaml:"cooldown_hours"`
	CancelTimeoutSeconds int     `yaml:"cancel_timeout_seconds"`
	CallTimeoutSeconds   int     `yaml:"call_timeout_seconds"`
	CycleSeconds         int     `yaml:"cycle_seconds"`
	EntryPolicy          string  `yaml:"entry_policy"` // strict-priority-halt | skip-and-continue
	AnalyzeMode          bool    `yaml:"analyze_mode"`
	RateLimitPerMin      int     `yaml:"rate_limit_per_min"`
}

// SignalConfig controls signal-queue admission.
type SignalConfig struct {
	MaxSignals      int     `yaml:"max_signals"`
	DefaultTTLHours float64 `yaml:"default_ttl_hours"`
	InboxDir        string  `yaml:"inbox_dir"`
}

// CooldownDuration returns the configured cooldown window.
func (t TradingConfig) CooldownDuration() time.Duration {
	return time.Duration(t.CooldownHours * float64(time.Hour))
}

// DefaultTTL returns the configured signal TTL.
func (s SignalConfig) DefaultTTL() time.Duration {
	return time.Duration(s.DefaultTTLHours * float64(time.Hour))
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and validates the
// result. Validation failures are construction-time errors and fail loudly.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine could not safely run with.
func (c *Config) Validate() error {
	switch c.Trading.Broker {
	case "", "alpaca", "simulator":
	default:
		return fmt.Errorf("unknown broker %q", c.Trading.Broker)
	}
	switch c.Trading.EntryPolicy {
	case "", "strict-priority-halt", "skip-and-continue":
	default:
		return fmt.Errorf("unknown entry policy %q", c.Trading.EntryPolicy)
	}
	if c.Trading.MaxPositions < 0 {
		return fmt.Errorf("max_positions must be non-negative, got %d", c.Trading.MaxPositions)
	}
	if c.Trading.MaxPositionValue < 0 {
		return fmt.Errorf("max_position_value must be non-negative, got %f", c.Trading.MaxPositionValue)
	}
	if c.Trading.Broker != "simulator" && c.Alpaca.APIKey == "" {
		return fmt.Errorf("alpaca api_key is required for broker %q", c.Trading.Broker)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Trading.Broker == "" {
		cfg.Trading.Broker = "alpaca"
	}
	if cfg.Trading.Strategy == "" {
		cfg.Trading.Strategy = "llm-swing"
	}
	if cfg.Trading.MaxPositions == 0 {
		cfg.Trading.MaxPositions = 5
	}
	if cfg.Trading.MaxPositionValue == 0 {
		cfg.Trading.MaxPositionValue = 5000
	}
	if cfg.Trading.CooldownHours == 0 {
		cfg.Trading.CooldownHours = 24
	}
	if cfg.Trading.CancelTimeoutSeconds == 0 {
		cfg.Trading.CancelTimeoutSeconds = 30
	}
	if cfg.Trading.CallTimeoutSeconds == 0 {
		cfg.Trading.CallTimeoutSeconds = 30
	}
	if cfg.Trading.CycleSeconds == 0 {
		cfg.Trading.CycleSeconds = 300
	}
	if cfg.Signals.MaxSignals == 0 {
		cfg.Signals.MaxSignals = 50
	}
	if cfg.Signals.DefaultTTLHours == 0 {
		cfg.Signals.DefaultTTLHours = 24
	}
	if cfg.Alpaca.BaseURL == "" {
		cfg.Alpaca.BaseURL = "https://paper-api.alpaca.markets"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("STATE_PATH"); v != "" {
		cfg.Storage.StatePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars take highest priority; these are the canonical
	// names the SDK itself reads.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
