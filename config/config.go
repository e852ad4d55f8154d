package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the content workflow system
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Search     SearchConfig     `mapstructure:"search"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Storage    StorageConfig    `mapstructure:"storage"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug         bool          `mapstructure:"debug"`
	LogLevel      string        `mapstructure:"log_level"`
	Listen        string        `mapstructure:"listen"`
	MinInputChars int           `mapstructure:"min_input_chars"`
	MaxRunTime    time.Duration `mapstructure:"max_run_time"`
}

// LLMConfig contains the text generation / embedding provider settings
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"` // openai, anthropic, gemini
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
}

// SearchConfig contains fact-check search provider settings
type SearchConfig struct {
	Provider      string        `mapstructure:"provider"` // duckduckgo, wikipedia, serper
	SerperAPIKey  string        `mapstructure:"serper_api_key"`
	WikipediaLang string        `mapstructure:"wikipedia_lang"`
	MaxResults    int           `mapstructure:"max_results"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

// ComplianceConfig controls how strictly content rules are enforced
type ComplianceConfig struct {
	Mode                string `mapstructure:"mode"` // standard, strict
	MaxRemediationLoops int    `mapstructure:"max_remediation_loops"`
}

// ScheduleConfig contains posting time heuristics settings
type ScheduleConfig struct {
	DefaultTimezone string        `mapstructure:"default_timezone"`
	StaggerWindow   time.Duration `mapstructure:"stagger_window"`
	// SlotOverrides maps a platform name to a cron expression that replaces
	// the built-in slot table for that platform.
	SlotOverrides map[string]string `mapstructure:"slot_overrides"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	CostTracking bool `mapstructure:"cost_tracking"`
}

// StorageConfig contains optional caching / persistence settings
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("postcraft")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("POSTCRAFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Config file is optional; defaults plus env are enough to run
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.listen", ":8090")
	viper.SetDefault("general.min_input_chars", 100)
	viper.SetDefault("general.max_run_time", "5m")

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.completion_model", "gpt-4o")
	viper.SetDefault("llm.embedding_model", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout", "30s")
	viper.SetDefault("llm.max_retries", 2)

	viper.SetDefault("search.provider", "duckduckgo")
	viper.SetDefault("search.wikipedia_lang", "en")
	viper.SetDefault("search.max_results", 5)
	viper.SetDefault("search.timeout", "30s")
	viper.SetDefault("search.max_retries", 3)

	viper.SetDefault("compliance.mode", "standard")
	viper.SetDefault("compliance.max_remediation_loops", 1)

	viper.SetDefault("schedule.default_timezone", "US/Eastern")
	viper.SetDefault("schedule.stagger_window", "30m")

	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.cost_tracking", true)

	viper.SetDefault("storage.redis.host", "")
	viper.SetDefault("storage.redis.port", 6379)
	viper.SetDefault("storage.redis.db", 0)
	viper.SetDefault("storage.redis.timeout", "5s")
	viper.SetDefault("storage.redis.cache_ttl", "6h")
}

// overrideFromEnv overrides configuration with well-known environment variables
func overrideFromEnv() {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("llm.api_key", apiKey)
	}
	if apiKey := os.Getenv("SERPER_API_KEY"); apiKey != "" {
		viper.Set("search.serper_api_key", apiKey)
	}
	if provider := os.Getenv("FACTCHECK_PROVIDER"); provider != "" {
		viper.Set("search.provider", provider)
	}
	if mode := os.Getenv("COMPLIANCE_MODE"); mode != "" {
		viper.Set("compliance.mode", mode)
	}
	if tz := os.Getenv("DEFAULT_TZ"); tz != "" {
		viper.Set("schedule.default_timezone", tz)
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		viper.Set("storage.redis.host", host)
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("storage.redis.port", p)
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		viper.Set("storage.redis.password", password)
	}
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	switch config.LLM.Provider {
	case "openai", "anthropic", "gemini":
	default:
		return fmt.Errorf("unsupported llm provider: %s", config.LLM.Provider)
	}

	switch config.Search.Provider {
	case "duckduckgo", "wikipedia", "serper":
	default:
		return fmt.Errorf("unsupported search provider: %s", config.Search.Provider)
	}
	if config.Search.Provider == "serper" && config.Search.SerperAPIKey == "" {
		return fmt.Errorf("search.serper_api_key is required when search.provider=serper")
	}

	switch config.Compliance.Mode {
	case "standard", "strict":
	default:
		return fmt.Errorf("compliance.mode must be standard or strict, got %q", config.Compliance.Mode)
	}

	if config.General.MinInputChars <= 0 {
		return fmt.Errorf("general.min_input_chars must be > 0")
	}
	if config.Schedule.StaggerWindow < 0 {
		return fmt.Errorf("schedule.stagger_window must not be negative")
	}
	return nil
}
