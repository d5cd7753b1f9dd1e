package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config contains the complete configuration for a self-improvement manager.
//
// It covers:
//   - Agent identity and initial behavior
//   - Auto-update scheduling (fixed interval or cron expression)
//   - Evaluation weights and trigger thresholds
//   - Optional durable cycle storage
//   - Optional LLM provider wiring for the managed agent
//
// Example:
//
//	config := &core.Config{
//	    AgentName:      "support-bot",
//	    AutoUpdate:     true,
//	    UpdateInterval: 30 * time.Minute,
//	    Storage: &core.StorageConfig{
//	        Provider: "sqlite",
//	        SQLitePath: "./cycles.db",
//	    },
//	}
type Config struct {
	// AgentName labels the managed agent in logs and stored records.
	AgentName string `json:"agent_name" yaml:"agent_name"`

	// InitialBehavior seeds the agent's behavior parameters.
	InitialBehavior map[string]float64 `json:"initial_behavior,omitempty" yaml:"initial_behavior,omitempty"`

	// AutoUpdate enables the background update loop.
	AutoUpdate bool `json:"auto_update" yaml:"auto_update"`

	// UpdateInterval is the delay between automatic cycles.
	// Defaults to one hour.
	UpdateInterval time.Duration `json:"update_interval" yaml:"update_interval"`

	// UpdateSchedule is an optional standard 5-field cron expression. When
	// set it overrides UpdateInterval.
	UpdateSchedule string `json:"update_schedule,omitempty" yaml:"update_schedule,omitempty"`

	// HistoryLimit caps each in-memory history; the oldest entries are
	// dropped first. Zero selects the default of 100; negative disables
	// the cap.
	HistoryLimit int `json:"history_limit,omitempty" yaml:"history_limit,omitempty"`

	// Evaluation tunes the performance evaluator.
	Evaluation EvaluationConfig `json:"evaluation" yaml:"evaluation"`

	// Trigger overrides the update trigger thresholds. Nil selects the
	// defaults.
	Trigger *TriggerConfig `json:"trigger,omitempty" yaml:"trigger,omitempty"`

	// Improvement overrides the self-evaluator thresholds. Nil selects
	// the defaults.
	Improvement *ImprovementConfig `json:"improvement,omitempty" yaml:"improvement,omitempty"`

	// Storage configures durable cycle history. Nil disables persistence.
	Storage *StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`

	// LLM configures the provider attached to the managed agent. Nil
	// leaves the agent without an invoker.
	LLM *LLMConfig `json:"llm,omitempty" yaml:"llm,omitempty"`
}

// EvaluationConfig tunes the performance evaluator.
type EvaluationConfig struct {
	// Weights maps dimension names to their contribution to the overall
	// score. Nil selects the standard weights.
	Weights map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`

	// MaxAcceptableResponseTime is the latency, in seconds, at which the
	// response-time component bottoms out. Zero selects the default of 5.
	MaxAcceptableResponseTime float64 `json:"max_acceptable_response_time,omitempty" yaml:"max_acceptable_response_time,omitempty"`
}

// TriggerConfig overrides individual update trigger thresholds. Zero fields
// keep their defaults (0.6 / 0.8 / 0.7 / 0.05 / 2), so a partial section
// only changes the thresholds it names.
type TriggerConfig struct {
	OverallScoreMin     float64 `json:"overall_score_min" yaml:"overall_score_min"`
	OverallScoreTarget  float64 `json:"overall_score_target" yaml:"overall_score_target"`
	UserSatisfactionMin float64 `json:"user_satisfaction_min" yaml:"user_satisfaction_min"`
	ErrorRateMax        float64 `json:"error_rate_max" yaml:"error_rate_max"`
	ImprovementAreasMax int     `json:"improvement_areas_max" yaml:"improvement_areas_max"`
}

// ImprovementConfig overrides individual self-evaluator thresholds. Zero
// fields keep their defaults (0.7 / 0.8 / 2.0).
type ImprovementConfig struct {
	SatisfactionMin float64 `json:"satisfaction_min" yaml:"satisfaction_min"`
	CompletionMin   float64 `json:"completion_min" yaml:"completion_min"`
	ResponseTimeMax float64 `json:"response_time_max" yaml:"response_time_max"`
}

// StorageConfig selects and configures a cycle store backend.
//
// Supported providers: sqlite, postgres, mysql.
type StorageConfig struct {
	// Provider is the backend name (sqlite, postgres, mysql).
	Provider string `json:"provider" yaml:"provider"`

	// SQLitePath is the database file path for the sqlite provider.
	SQLitePath string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`

	// DSN is the connection string for the postgres and mysql providers.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`

	// Table overrides the cycle table name.
	Table string `json:"table,omitempty" yaml:"table,omitempty"`
}

// LLMConfig configures the provider attached to the managed agent.
//
// Supported providers: openrouter, ollama. Both may be configured at once
// through Fallback, producing a chain that tries openrouter first.
type LLMConfig struct {
	// Provider is the primary backend name (openrouter, ollama).
	Provider string `json:"provider" yaml:"provider"`

	// APIKey authenticates requests; for openrouter it falls back to the
	// OPENROUTER_API_KEY environment variable.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the model name; each provider has its own default.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Fallback names a secondary provider to chain after the primary.
	Fallback string `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function searches for a .env file (up to 5 directory levels up), loads
// it when found, and then reads:
//
//   - AGENT_NAME
//   - AUTO_UPDATE ("true" enables the background loop)
//   - UPDATE_INTERVAL_SECONDS (default 3600)
//   - UPDATE_SCHEDULE (cron expression, overrides the interval)
//   - HISTORY_LIMIT (default 100)
//   - STORAGE_PROVIDER (sqlite, postgres, mysql; empty disables persistence)
//   - SQLITE_PATH, STORAGE_DSN, STORAGE_TABLE
//   - LLM_PROVIDER (openrouter, ollama; empty disables the agent invoker)
//   - LLM_API_KEY, LLM_MODEL, LLM_BASE_URL, LLM_FALLBACK
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	intervalSecs, err := strconv.Atoi(getEnvOrDefault("UPDATE_INTERVAL_SECONDS", "3600"))
	if err != nil {
		return nil, NewLoopError("LoadConfigFromEnv",
			fmt.Errorf("invalid UPDATE_INTERVAL_SECONDS: %w", err))
	}
	historyLimit, err := strconv.Atoi(getEnvOrDefault("HISTORY_LIMIT", "100"))
	if err != nil {
		return nil, NewLoopError("LoadConfigFromEnv",
			fmt.Errorf("invalid HISTORY_LIMIT: %w", err))
	}

	config := &Config{
		AgentName:      os.Getenv("AGENT_NAME"),
		AutoUpdate:     os.Getenv("AUTO_UPDATE") == "true",
		UpdateInterval: time.Duration(intervalSecs) * time.Second,
		UpdateSchedule: os.Getenv("UPDATE_SCHEDULE"),
		HistoryLimit:   historyLimit,
	}

	if provider := os.Getenv("STORAGE_PROVIDER"); provider != "" {
		config.Storage = &StorageConfig{
			Provider:   provider,
			SQLitePath: getEnvOrDefault("SQLITE_PATH", "./selfloop.db"),
			DSN:        os.Getenv("STORAGE_DSN"),
			Table:      os.Getenv("STORAGE_TABLE"),
		}
	}

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		config.LLM = &LLMConfig{
			Provider: provider,
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    os.Getenv("LLM_MODEL"),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
			Fallback: os.Getenv("LLM_FALLBACK"),
		}
	}

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, NewLoopError("LoadConfigFromEnvFile", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewLoopError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewLoopError("LoadConfigFromJSON", err)
	}
	return &config, nil
}

// LoadConfigFromYAML loads configuration from a YAML file.
func LoadConfigFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewLoopError("LoadConfigFromYAML", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, NewLoopError("LoadConfigFromYAML", err)
	}
	return &config, nil
}

// Validate validates the configuration.
//
// It checks that the update interval is positive, that any cron schedule
// parses, and that the storage and llm providers are known names.
func (c *Config) Validate() error {
	if c.UpdateInterval < 0 {
		return NewLoopError("Validate",
			fmt.Errorf("%w: negative update interval", ErrInvalidConfig))
	}
	if c.UpdateSchedule != "" {
		if _, err := cron.ParseStandard(c.UpdateSchedule); err != nil {
			return NewLoopError("Validate",
				fmt.Errorf("%w: bad update schedule %q: %v", ErrInvalidConfig, c.UpdateSchedule, err))
		}
	}
	if c.Storage != nil {
		switch c.Storage.Provider {
		case "sqlite", "postgres", "mysql":
		default:
			return NewLoopError("Validate",
				fmt.Errorf("%w: unknown storage provider %q", ErrInvalidConfig, c.Storage.Provider))
		}
	}
	if c.LLM != nil {
		switch c.LLM.Provider {
		case "openrouter", "ollama":
		default:
			return NewLoopError("Validate",
				fmt.Errorf("%w: unknown llm provider %q", ErrInvalidConfig, c.LLM.Provider))
		}
	}
	return nil
}

// historyLimit resolves the configured history cap: zero means the default
// of 100 and negative values disable the cap.
func (c *Config) historyLimit() int {
	switch {
	case c.HistoryLimit == 0:
		return 100
	case c.HistoryLimit < 0:
		return 0
	default:
		return c.HistoryLimit
	}
}

// updateInterval resolves the configured interval, defaulting to one hour.
func (c *Config) updateInterval() time.Duration {
	if c.UpdateInterval <= 0 {
		return time.Hour
	}
	return c.UpdateInterval
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files, first in the current
// directory and then up to 5 directory levels up. It returns the first match
// and whether one was found.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
