package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// GatewayOptions configures a Gateway.
type GatewayOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// MinInterval is the minimum spacing between provider calls.
	MinInterval time.Duration
	// Timeout bounds each provider call.
	Timeout   time.Duration
	CacheSize int
}

// DefaultGatewayOptions mirrors the config defaults.
func DefaultGatewayOptions() GatewayOptions {
	return GatewayOptions{
		MaxTokens:   1024,
		Temperature: 0.4,
		MinInterval: time.Second,
		Timeout:     10 * time.Second,
		CacheSize:   50,
	}
}

// GatewayStats counts what the gateway did.
type GatewayStats struct {
	Calls     int64 `json:"calls"`
	CacheHits int64 `json:"cache_hits"`
	Shared    int64 `json:"shared"`
	Failures  int64 `json:"failures"`
}

// Gateway owns every AI call made for a session. Calls are served from a
// bounded cache when possible; otherwise equal keys share one in-flight
// request, requests run one at a time, and successive requests are spaced by
// MinInterval.
type Gateway struct {
	rt      Runtime
	opt     GatewayOptions
	log     *zap.Logger
	cache   *LRU[string, string]
	group   singleflight.Group
	queue   chan struct{}
	limiter *Limiter

	calls, hits, shared, failures atomic.Int64
}

// NewGateway wraps rt. A nil runtime yields a disabled gateway whose
// Complete always returns ErrDisabled.
func NewGateway(rt Runtime, opt GatewayOptions, log *zap.Logger) *Gateway {
	def := DefaultGatewayOptions()
	if opt.MaxTokens <= 0 {
		opt.MaxTokens = def.MaxTokens
	}
	if opt.Timeout <= 0 {
		opt.Timeout = def.Timeout
	}
	if opt.CacheSize <= 0 {
		opt.CacheSize = def.CacheSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		rt:      rt,
		opt:     opt,
		log:     log.Named("ai"),
		cache:   NewLRU[string, string](opt.CacheSize),
		queue:   make(chan struct{}, 1),
		limiter: NewLimiter(opt.MinInterval),
	}
}

// Enabled reports whether a provider is attached.
func (g *Gateway) Enabled() bool { return g != nil && g.rt != nil }

// Model returns the configured model name.
func (g *Gateway) Model() string {
	if g == nil {
		return ""
	}
	return g.opt.Model
}

// MaxTokens returns the completion budget used for every call.
func (g *Gateway) MaxTokens() int {
	if g == nil {
		return DefaultGatewayOptions().MaxTokens
	}
	return g.opt.MaxTokens
}

// Stats returns a snapshot of the counters.
func (g *Gateway) Stats() GatewayStats {
	return GatewayStats{
		Calls:     g.calls.Load(),
		CacheHits: g.hits.Load(),
		Shared:    g.shared.Load(),
		Failures:  g.failures.Load(),
	}
}

// Complete returns the provider's text for prompt. key identifies the
// operation and its inputs; see CacheKey.
func (g *Gateway) Complete(ctx context.Context, key, prompt string) (string, error) {
	if !g.Enabled() {
		return "", ErrDisabled
	}
	if v, ok := g.cache.Get(key); ok {
		g.hits.Add(1)
		return v, nil
	}
	ch := g.group.DoChan(key, func() (any, error) {
		return g.call(context.WithoutCancel(ctx), key, prompt)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Shared {
			g.shared.Add(1)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (g *Gateway) call(ctx context.Context, key, prompt string) (string, error) {
	select {
	case g.queue <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-g.queue }()

	if v, ok := g.cache.Get(key); ok {
		g.hits.Add(1)
		return v, nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	cctx, cancel := context.WithTimeout(ctx, g.opt.Timeout)
	defer cancel()

	g.calls.Add(1)
	start := time.Now()
	resp, err := g.rt.Generate(cctx, UserPrompt(g.opt.Model, prompt, g.opt.MaxTokens, g.opt.Temperature))
	if err != nil {
		g.failures.Add(1)
		g.log.Warn("provider call failed", zap.String("op", opName(key)), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		g.failures.Add(1)
		return "", ErrEmptyResponse
	}
	g.cache.Add(key, text)
	g.log.Debug("provider call",
		zap.String("op", opName(key)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("request_id", resp.RequestID),
	)
	return text, nil
}

// CacheKey builds a stable key from an operation name and its inputs.
func CacheKey(op string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return op + ":" + hex.EncodeToString(h.Sum(nil))[:24]
}

func opName(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
