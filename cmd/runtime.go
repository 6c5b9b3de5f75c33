package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/KaramelBytes/csvdash/internal/ai"
	cfgpkg "github.com/KaramelBytes/csvdash/internal/config"
	"github.com/KaramelBytes/csvdash/internal/dashboard"
	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/history"
	"github.com/KaramelBytes/csvdash/internal/intent"
	"github.com/KaramelBytes/csvdash/internal/profile"
)

// newLogger builds the service logger. CLI output stays on plain stdout; the
// logger writes to stderr and is quiet below warn unless --debug is set.
func newLogger(c *cfgpkg.Global, quiet bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	lvl := zapcore.InfoLevel
	if c != nil && c.LogLevel != "" {
		if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return nil, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
		}
	}
	if quiet && lvl < zapcore.WarnLevel {
		lvl = zapcore.WarnLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// newRuntime returns the configured provider runtime, or nil when AI is
// disabled: --no-ai, provider "none", or a hosted provider without a key.
func newRuntime(c *cfgpkg.Global) (ai.Runtime, error) {
	if noAI || c == nil {
		return nil, nil
	}
	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	if provider == "" || provider == ai.ProviderNone {
		return nil, nil
	}
	key := c.APIKey
	if key == "" && provider == ai.ProviderOpenRouter {
		key = os.Getenv("OPENROUTER_API_KEY")
	}
	if key == "" && provider == ai.ProviderGemini {
		key = os.Getenv("GEMINI_API_KEY")
	}
	if ai.NeedsAPIKey(provider) && key == "" {
		return nil, nil
	}
	rt, ok := ai.GetRuntime(provider, ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      key,
		Host:        c.OllamaHost,
	})
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (use one of %s, none)", c.Provider, strings.Join(ai.Providers(), ", "))
	}
	return rt, nil
}

// serviceOptions controls which shared services newServices opens.
type serviceOptions struct {
	// Quiet raises the log level to warn for one-shot commands.
	Quiet   bool
	History bool
}

// newServices wires config into the services shared by sessions. The returned
// cleanup closes whatever was opened.
func newServices(opt serviceOptions) (dashboard.Services, func(), error) {
	c, err := loadedConfig()
	if err != nil {
		return dashboard.Services{}, nil, err
	}
	log, err := newLogger(c, opt.Quiet)
	if err != nil {
		return dashboard.Services{}, nil, err
	}
	rt, err := newRuntime(c)
	if err != nil {
		_ = log.Sync()
		return dashboard.Services{}, nil, err
	}
	model := c.Model
	if model == "" {
		model = ai.DefaultModel(strings.ToLower(c.Provider))
	}
	gw := ai.NewGateway(rt, ai.GatewayOptions{
		Model:       model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		MinInterval: time.Duration(c.AIMinIntervalMs) * time.Millisecond,
		Timeout:     time.Duration(c.AITimeoutSec) * time.Second,
		CacheSize:   c.CacheSize,
	}, log)

	hints := intent.DefaultRateHints()
	if len(c.RateNumeratorHints) > 0 {
		hints.Numerator = c.RateNumeratorHints
	}
	if len(c.RateDenominatorHints) > 0 {
		hints.Denominator = c.RateDenominatorHints
	}

	svc := dashboard.Services{
		Gateway:     gw,
		Hints:       hints,
		LoadOptions: dataset.DefaultOptions(),
		Profile:     profile.DefaultOptions(),
		Log:         log,
	}
	closers := []func(){func() { _ = log.Sync() }}
	if opt.History && c.HistoryEnabled {
		st, err := history.Open(c.HistoryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: query history disabled: %v\n", err)
		} else {
			svc.History = st
			closers = append(closers, func() { _ = st.Close() })
		}
	}
	if gw.Enabled() {
		log.Debug("ai enabled", zap.String("provider", c.Provider), zap.String("model", model))
	}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return svc, cleanup, nil
}

// aiHint turns a provider failure into a user-facing explanation.
func aiHint(err error) string {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ai.ErrDisabled):
		return "AI disabled; set provider and api_key (see 'csvdash config show')"
	case errors.As(err, &unreach):
		return fmt.Sprintf("provider not reachable at %s. Check that it is running or set CSVDASH_OLLAMA_HOST", unreach.Host)
	case errors.As(err, &authErr):
		return "authentication failed: set CSVDASH_API_KEY or add api_key in config (~/.csvdash/config.yaml)"
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Sprintf("rate limited, try again in ~%ds", int(rlErr.RetryAfter.Seconds()))
		}
		return "rate limited by provider, please retry"
	case errors.As(err, &nfErr):
		return "model not found. Verify the model name with 'csvdash config set model <name>'"
	case errors.As(err, &brErr):
		return "request rejected by provider. Try a smaller max_tokens"
	case errors.As(err, &qErr):
		return "quota/billing issue. Check your provider account"
	case errors.As(err, &sErr):
		return "provider appears unavailable (server error). Please retry later"
	default:
		return err.Error()
	}
}

// warnFallback prints a warning when an AI step fell back for a reason other
// than AI being switched off.
func warnFallback(what string, err error) {
	if err == nil || errors.Is(err, ai.ErrDisabled) {
		return
	}
	fmt.Fprintf(os.Stderr, "⚠ Warning: %s used the local fallback: %s\n", what, aiHint(err))
}
