package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jwebster45206/turnkeeper/pkg/state"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"

	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"

	maxHistoryCapacity = 50
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level

	// LLM
	LLMProvider      string        `env:"LLM_PROVIDER" envDefault:"anthropic"`
	ModelName        string        `env:"MODEL_NAME"`
	BackendModelName string        `env:"BACKEND_MODEL_NAME"` // used for slice updates when set
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL"`
	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	OracleTimeout    time.Duration `env:"ORACLE_TIMEOUT" envDefault:"90s"`

	// Turn engine
	HistoryCapacity   int    `env:"HISTORY_CAPACITY" envDefault:"7"`
	MergePolicyRaw    string `env:"MERGE_POLICY" envDefault:"presence"`
	MergePolicy       state.MergePolicy
	BootstrapAttempts int  `env:"BOOTSTRAP_ATTEMPTS" envDefault:"5"`
	SliceAttempts     int  `env:"SLICE_ATTEMPTS" envDefault:"3"`
	NarrativeAttempts int  `env:"NARRATIVE_ATTEMPTS" envDefault:"5"`
	MaxTurnRestarts   int  `env:"MAX_TURN_RESTARTS" envDefault:"5"`
	SummarizeHistory  bool `env:"SUMMARIZE_HISTORY" envDefault:"true"`
	ShortenHistory    bool `env:"SHORTEN_HISTORY" envDefault:"false"`

	// Persistence
	StoreBackend string `env:"STORE_BACKEND" envDefault:"file"`
	SavePath     string `env:"SAVE_PATH" envDefault:"./saves/session.json"`
	RedisURL     string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"./saves/turnkeeper.db"`
	SaveSlot     string `env:"SAVE_SLOT" envDefault:"default"`

	// Console
	MetricsAddr   string `env:"METRICS_ADDR"`
	TranslateMenu bool   `env:"TRANSLATE_MENU" envDefault:"false"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)

	policy, err := state.ParseMergePolicy(cfg.MergePolicyRaw)
	if err != nil {
		return nil, err
	}
	cfg.MergePolicy = policy

	if cfg.ModelName == "" {
		cfg.ModelName = defaultModel(cfg.LLMProvider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.LLMProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY or OPENAI_BASE_URL is required for the openai provider"))
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	if c.OracleTimeout <= 0 {
		errs = append(errs, errors.New("ORACLE_TIMEOUT must be positive"))
	}
	if c.HistoryCapacity < 1 || c.HistoryCapacity > maxHistoryCapacity {
		errs = append(errs, fmt.Errorf("HISTORY_CAPACITY must be between 1 and %d", maxHistoryCapacity))
	}
	for name, v := range map[string]int{
		"BOOTSTRAP_ATTEMPTS": c.BootstrapAttempts,
		"SLICE_ATTEMPTS":     c.SliceAttempts,
		"NARRATIVE_ATTEMPTS": c.NarrativeAttempts,
	} {
		if v < 1 {
			errs = append(errs, fmt.Errorf("%s must be at least 1", name))
		}
	}
	if c.MaxTurnRestarts < 0 {
		errs = append(errs, errors.New("MAX_TURN_RESTARTS cannot be negative"))
	}

	switch c.StoreBackend {
	case BackendFile:
		switch strings.ToLower(filepath.Ext(c.SavePath)) {
		case ".json", ".yaml", ".yml":
		default:
			errs = append(errs, fmt.Errorf("SAVE_PATH %q must end in .json, .yaml or .yml", c.SavePath))
		}
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis backend"))
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	if strings.TrimSpace(c.SaveSlot) == "" {
		errs = append(errs, errors.New("SAVE_SLOT cannot be empty"))
	}

	return errors.Join(errs...)
}

// UpdateModel is the model used for slice updates and other bookkeeping calls.
func (c *Config) UpdateModel() string {
	if c.BackendModelName != "" {
		return c.BackendModelName
	}
	return c.ModelName
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderGemini:
		return "gemini-1.5-flash"
	default:
		return "claude-3-5-haiku-latest"
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
