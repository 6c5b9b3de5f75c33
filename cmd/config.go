package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/csvdash/internal/ai"
	cfgpkg "github.com/KaramelBytes/csvdash/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set csvdash configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api_key: %s\n", mask(c.APIKey))
		fmt.Fprintf(out, "provider: %s\n", c.Provider)
		if c.Model != "" {
			fmt.Fprintf(out, "model: %s\n", c.Model)
		} else {
			fmt.Fprintf(out, "model: %s (default)\n", ai.DefaultModel(c.Provider))
		}
		fmt.Fprintf(out, "max_tokens: %d\n", c.MaxTokens)
		fmt.Fprintf(out, "temperature: %.3f\n", c.Temperature)
		if c.Provider == ai.ProviderOllama {
			fmt.Fprintf(out, "ollama_host: %s\n", c.OllamaHost)
		}
		fmt.Fprintf(out, "ai_min_interval_ms: %d\n", c.AIMinIntervalMs)
		fmt.Fprintf(out, "ai_timeout_sec: %d\n", c.AITimeoutSec)
		fmt.Fprintf(out, "cache_size: %d\n", c.CacheSize)
		fmt.Fprintf(out, "cache_sample_rows: %d\n", c.CacheSampleRows)
		fmt.Fprintf(out, "rate_numerator_hints: %s\n", strings.Join(c.RateNumeratorHints, ","))
		fmt.Fprintf(out, "rate_denominator_hints: %s\n", strings.Join(c.RateDenominatorHints, ","))
		fmt.Fprintf(out, "history_enabled: %t\n", c.HistoryEnabled)
		fmt.Fprintf(out, "history_path: %s\n", c.HistoryPath)
		fmt.Fprintf(out, "serve_addr: %s\n", c.ServeAddr)
		fmt.Fprintf(out, "cors_origins: %s\n", strings.Join(c.CORSOrigins, ","))
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := loadedConfig()
		if err != nil {
			return err
		}
		if err := setKey(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setKey(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	list := func() []string {
		var out []string
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, strings.ToLower(p))
			}
		}
		return out
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "provider":
		switch p := strings.ToLower(val); p {
		case ai.ProviderGemini, ai.ProviderOpenRouter, ai.ProviderOllama, ai.ProviderNone:
			c.Provider = p
		case "local":
			c.Provider = ai.ProviderOllama
		default:
			return fmt.Errorf("invalid provider: %s (use gemini, openrouter, ollama or none)", val)
		}
	case "model":
		c.Model = val
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v", val)
		}
		c.Temperature = f
	case "ollama_host":
		c.OllamaHost = val
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi()
	case "ai_min_interval_ms":
		c.AIMinIntervalMs, err = atoi()
	case "ai_timeout_sec":
		c.AITimeoutSec, err = atoi()
	case "cache_size":
		c.CacheSize, err = atoi()
	case "cache_sample_rows":
		c.CacheSampleRows, err = atoi()
	case "rate_numerator_hints":
		c.RateNumeratorHints = list()
	case "rate_denominator_hints":
		c.RateDenominatorHints = list()
	case "history_enabled":
		b, perr := strconv.ParseBool(val)
		if perr != nil {
			return fmt.Errorf("invalid bool for history_enabled: %v", val)
		}
		c.HistoryEnabled = b
	case "history_path":
		c.HistoryPath = val
	case "serve_addr":
		c.ServeAddr = val
	case "cors_origins":
		c.CORSOrigins = nil
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.CORSOrigins = append(c.CORSOrigins, p)
			}
		}
	case "log_level":
		switch l := strings.ToLower(val); l {
		case "debug", "info", "warn", "error":
			c.LogLevel = l
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
