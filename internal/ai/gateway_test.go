package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubRuntime struct {
	mu       sync.Mutex
	calls    int
	inFlight int32
	maxSeen  int32
	delay    time.Duration
	reply    func(req GenerateRequest) (string, error)
}

func (s *stubRuntime) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		m := atomic.LoadInt32(&s.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&s.maxSeen, m, n) {
			break
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	text := "reply: " + req.Messages[0].Content
	if s.reply != nil {
		var err error
		if text, err = s.reply(req); err != nil {
			return nil, err
		}
	}
	return &GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: text}}}}, nil
}

func (s *stubRuntime) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func fastOptions() GatewayOptions {
	o := DefaultGatewayOptions()
	o.Model = "stub"
	o.MinInterval = 0
	o.Timeout = time.Second
	return o
}

func TestGatewayDisabled(t *testing.T) {
	g := NewGateway(nil, fastOptions(), zap.NewNop())
	if g.Enabled() {
		t.Fatalf("expected disabled gateway")
	}
	if _, err := g.Complete(context.Background(), "k", "p"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestGatewayCachesResponses(t *testing.T) {
	rt := &stubRuntime{}
	g := NewGateway(rt, fastOptions(), zap.NewNop())
	for i := 0; i < 3; i++ {
		out, err := g.Complete(context.Background(), CacheKey("suggest", "abc"), "hello")
		if err != nil || out != "reply: hello" {
			t.Fatalf("complete: %q %v", out, err)
		}
	}
	if rt.Calls() != 1 {
		t.Fatalf("expected one provider call, got %d", rt.Calls())
	}
	if st := g.Stats(); st.CacheHits != 2 {
		t.Fatalf("expected 2 cache hits, got %+v", st)
	}
}

func TestGatewayCoalescesEqualKeys(t *testing.T) {
	rt := &stubRuntime{delay: 100 * time.Millisecond}
	g := NewGateway(rt, fastOptions(), zap.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Complete(context.Background(), "same", "p"); err != nil {
				t.Errorf("complete: %v", err)
			}
		}()
	}
	wg.Wait()
	if rt.Calls() != 1 {
		t.Fatalf("expected equal keys to share one call, got %d", rt.Calls())
	}
}

func TestGatewaySerializesCalls(t *testing.T) {
	rt := &stubRuntime{delay: 20 * time.Millisecond}
	g := NewGateway(rt, fastOptions(), zap.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = g.Complete(context.Background(), fmt.Sprintf("k%d", i), "p")
		}(i)
	}
	wg.Wait()
	if rt.Calls() != 4 {
		t.Fatalf("expected 4 calls, got %d", rt.Calls())
	}
	if m := atomic.LoadInt32(&rt.maxSeen); m != 1 {
		t.Fatalf("expected calls to run one at a time, saw %d concurrent", m)
	}
}

func TestGatewaySpacesCalls(t *testing.T) {
	rt := &stubRuntime{}
	opt := fastOptions()
	opt.MinInterval = 80 * time.Millisecond
	g := NewGateway(rt, opt, zap.NewNop())
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := g.Complete(context.Background(), fmt.Sprintf("k%d", i), "p"); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
	if el := time.Since(start); el < 150*time.Millisecond {
		t.Fatalf("expected calls to be spaced by the min interval, took %v", el)
	}
}

func TestGatewayTimeoutAndFailureNotCached(t *testing.T) {
	rt := &stubRuntime{delay: time.Second}
	opt := fastOptions()
	opt.Timeout = 30 * time.Millisecond
	g := NewGateway(rt, opt, zap.NewNop())
	_, err := g.Complete(context.Background(), "slow", "p")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	rt.delay = 0
	if _, err := g.Complete(context.Background(), "slow", "p"); err != nil {
		t.Fatalf("expected retry after failure to reach provider: %v", err)
	}
	if rt.Calls() != 2 {
		t.Fatalf("failures must not be cached, calls=%d", rt.Calls())
	}
}

func TestGatewayEmptyReply(t *testing.T) {
	rt := &stubRuntime{reply: func(GenerateRequest) (string, error) { return "  ", nil }}
	g := NewGateway(rt, fastOptions(), zap.NewNop())
	if _, err := g.Complete(context.Background(), "k", "p"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestCacheKeyStable(t *testing.T) {
	a := CacheKey("interpret", "q", "h")
	if a != CacheKey("interpret", "q", "h") {
		t.Fatalf("key not stable")
	}
	if a == CacheKey("interpret", "qh") || a == CacheKey("summary", "q", "h") {
		t.Fatalf("distinct inputs must not collide")
	}
}
