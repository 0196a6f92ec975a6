// Package config provides pricescout configuration loading.
// Precedence: defaults, then YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/pricescout/guard"
)

// StrategyName selects the execution strategy for new tasks.
type StrategyName string

const (
	StrategyDeterministic StrategyName = "deterministic"
	StrategyDirected      StrategyName = "directed"
)

// Config is the complete pricescout configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Execution ExecutionConfig `yaml:"execution"`
	Planner   PlannerConfig   `yaml:"planner"`
	Parser    ParserConfig    `yaml:"parser"`
	Guard     guard.Config    `yaml:"guard"`
	Sink      SinkConfig      `yaml:"sink"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port"`
	MetricsPort     int           `yaml:"metrics_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// TaskTimeout is the overall wall-clock ceiling per task; expiry is
	// surfaced as status timeout.
	TaskTimeout time.Duration `yaml:"task_timeout"`
}

// ExecutionConfig configures the browser and the strategies.
type ExecutionConfig struct {
	Strategy       StrategyName  `yaml:"strategy"`
	Headless       bool          `yaml:"headless"`
	ViewportWidth  int           `yaml:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height"`
	NavTimeout     time.Duration `yaml:"nav_timeout"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
	MaxTurns       int           `yaml:"max_turns"`
	SitesPath      string        `yaml:"sites_path"`
}

// PlannerConfig configures the remote vision planning service.
type PlannerConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

// ParserConfig configures the intent parsing collaborator.
type ParserConfig struct {
	// Mode is "llm" or "offline". Offline uses the deterministic keyword
	// parser, which needs no network and is what tests run against.
	Mode    string        `yaml:"mode"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// SinkConfig configures result persistence.
type SinkConfig struct {
	DataDir string `yaml:"data_dir"`
	// HistoryDB is the SQLite file for the task history store; empty
	// disables it.
	HistoryDB string `yaml:"history_db"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			MetricsPort:     9091,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			TaskTimeout:     5 * time.Minute,
		},
		Execution: ExecutionConfig{
			Strategy:       StrategyDeterministic,
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 800,
			NavTimeout:     30 * time.Second,
			SettleDelay:    1500 * time.Millisecond,
			MaxTurns:       20,
		},
		Planner: PlannerConfig{
			BaseURL:      "https://generativelanguage.googleapis.com",
			Model:        "gemini-2.0-flash",
			Timeout:      60 * time.Second,
			MaxRetries:   5,
			InitialDelay: 1 * time.Second,
		},
		Parser: ParserConfig{
			Mode:    "llm",
			Model:   "gemini-2.0-flash",
			Timeout: 30 * time.Second,
		},
		Guard: guard.DefaultConfig(),
		Sink: SinkConfig{
			DataDir:   "data",
			HistoryDB: "data/history.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Loader loads configuration with the defaults → YAML → env precedence.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "PRICESCOUT"}
}

// WithConfigPath sets the YAML file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load builds the effective configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", l.configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", l.configPath, err)
		}
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides the secrets and deployment knobs that commonly differ
// between environments. Everything else belongs in the YAML file.
func (l *Loader) applyEnv(cfg *Config) {
	if v := l.env("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.HTTPPort = port
		}
	}
	if v := l.env("METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = port
		}
	}
	if v := l.env("STRATEGY"); v != "" {
		cfg.Execution.Strategy = StrategyName(v)
	}
	if v := l.env("PLANNER_API_KEY"); v != "" {
		cfg.Planner.APIKey = v
	}
	if v := l.env("PLANNER_BASE_URL"); v != "" {
		cfg.Planner.BaseURL = v
	}
	if v := l.env("PARSER_API_KEY"); v != "" {
		cfg.Parser.APIKey = v
	}
	if v := l.env("DATA_DIR"); v != "" {
		cfg.Sink.DataDir = v
	}
	if v := l.env("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (l *Loader) env(key string) string {
	return os.Getenv(l.envPrefix + "_" + key)
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	switch c.Execution.Strategy {
	case StrategyDeterministic, StrategyDirected:
	default:
		return fmt.Errorf("unknown execution strategy %q", c.Execution.Strategy)
	}
	if c.Execution.MaxTurns <= 0 {
		return fmt.Errorf("execution.max_turns must be positive, got %d", c.Execution.MaxTurns)
	}
	if c.Execution.ViewportWidth <= 0 || c.Execution.ViewportHeight <= 0 {
		return fmt.Errorf("viewport dimensions must be positive")
	}
	if c.Server.TaskTimeout <= 0 {
		return fmt.Errorf("server.task_timeout must be positive")
	}
	return nil
}
