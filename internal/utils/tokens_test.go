package utils_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/csvdash/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		min  int
	}{
		{"empty", "", 0},
		{"simple", "hello world", 2},
		{"long", strings.Repeat("a", 4000), 900},
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got < c.min {
			t.Errorf("%s: got %d < min %d", c.name, got, c.min)
		}
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	text := strings.Repeat("abcd ", 1000)
	trunc := utils.TruncateToTokenLimit(text, 300)
	if n := utils.CountTokens(trunc); n > 300 {
		t.Fatalf("tokens=%d exceeds limit", n)
	}
	if len(trunc) == 0 {
		t.Fatalf("expected non-empty truncation")
	}
}

func TestFitLines(t *testing.T) {
	lines := []string{strings.Repeat("x", 40), strings.Repeat("y", 40), strings.Repeat("z", 40)}
	if got := utils.FitLines(lines, 1000); len(got) != 3 {
		t.Fatalf("expected all lines, got %d", len(got))
	}
	if got := utils.FitLines(lines, 15); len(got) != 1 {
		t.Fatalf("expected one line within budget, got %d", len(got))
	}
	if got := utils.FitLines(lines, 0); len(got) != 1 {
		t.Fatalf("expected first line kept, got %d", len(got))
	}
}
