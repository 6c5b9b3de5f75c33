package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// AI provider selection. Provider "none" (or an empty API key for hosted
	// providers) disables the AI paths and every operation uses its fallback.
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Gateway: pacing, timeout and response cache for AI calls
	AIMinIntervalMs int `mapstructure:"ai_min_interval_ms" yaml:"ai_min_interval_ms"`
	AITimeoutSec    int `mapstructure:"ai_timeout_sec" yaml:"ai_timeout_sec"`
	CacheSize       int `mapstructure:"cache_size" yaml:"cache_size"`
	CacheSampleRows int `mapstructure:"cache_sample_rows" yaml:"cache_sample_rows"`

	// Rate queries: column name fragments used to find numerator/denominator
	RateNumeratorHints   []string `mapstructure:"rate_numerator_hints" yaml:"rate_numerator_hints"`
	RateDenominatorHints []string `mapstructure:"rate_denominator_hints" yaml:"rate_denominator_hints"`

	// Query history (sqlite)
	HistoryEnabled bool   `mapstructure:"history_enabled" yaml:"history_enabled"`
	HistoryPath    string `mapstructure:"history_path" yaml:"history_path"`

	// HTTP dashboard API
	ServeAddr   string   `mapstructure:"serve_addr" yaml:"serve_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Dir returns ~/.csvdash.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".csvdash"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.csvdash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CSVDASH")
	v.AutomaticEnv()

	v.SetDefault("api_key", "")
	v.SetDefault("provider", "gemini")
	v.SetDefault("model", "")
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("temperature", 0.4)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("retry_max_attempts", 2)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	// Gateway defaults
	v.SetDefault("ai_min_interval_ms", 1000)
	v.SetDefault("ai_timeout_sec", 10)
	v.SetDefault("cache_size", 50)
	v.SetDefault("cache_sample_rows", 10)
	v.SetDefault("rate_numerator_hints", []string{"open", "click", "response", "conversion"})
	v.SetDefault("rate_denominator_hints", []string{"sent", "email", "total", "deliver"})
	v.SetDefault("history_enabled", true)
	v.SetDefault("history_path", "")
	v.SetDefault("serve_addr", "127.0.0.1:8080")
	v.SetDefault("cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("log_level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.HistoryPath == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.HistoryPath = filepath.Join(dir, "history.db")
	}
	return &c, nil
}
