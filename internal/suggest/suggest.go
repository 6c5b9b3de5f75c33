// Package suggest proposes analysis questions for a dataset.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/KaramelBytes/csvdash/internal/ai"
	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/profile"
	"github.com/KaramelBytes/csvdash/internal/utils"
)

const (
	// MaxQuestions caps every suggestion list.
	MaxQuestions = 10
	// MinFallback is the length generic prompts pad the fallback list to.
	MinFallback = 8
	// minLength is the shortest question kept from a model reply.
	minLength = 10
)

var (
	errNoQuestions = errors.New("reply holds no usable questions")

	numbering = regexp.MustCompile(`^\d+[.)]\s+`)
	bullet    = regexp.MustCompile(`^[-*•]\s*`)
	// banned steers users away from tabular output, which is never charted.
	banned = regexp.MustCompile(`(?i)\b(table|tables|list|lists)\b`)
)

// Result is the outcome of Generate. Success is false when the model could
// not be used; Questions is populated either way.
type Result struct {
	Questions []string  `json:"questions"`
	Success   bool      `json:"success"`
	Source    ai.Source `json:"source"`
	Err       error     `json:"-"`
}

// Generator produces question lists, asking the gateway first.
type Generator struct {
	gw *ai.Gateway
	// FingerprintRows is the number of leading rows hashed into the cache key.
	FingerprintRows int
	// SampleRows is the number of rows shown to the model.
	SampleRows int
}

func NewGenerator(gw *ai.Gateway) *Generator {
	return &Generator{gw: gw, FingerprintRows: 10, SampleRows: 5}
}

// Generate never fails; see Result.
func (g *Generator) Generate(ctx context.Context, ds *dataset.Dataset, set *profile.Set) Result {
	var primary func(context.Context) ([]string, error)
	if g.gw.Enabled() {
		primary = func(ctx context.Context) ([]string, error) {
			key := ai.CacheKey("suggest", ds.Fingerprint(g.FingerprintRows))
			text, err := g.gw.Complete(ctx, key, g.prompt(ds, set))
			if err != nil {
				return nil, err
			}
			qs := Parse(text)
			if len(qs) == 0 {
				return nil, errNoQuestions
			}
			return qs, nil
		}
	}
	out := ai.WithFallback(ctx, primary, func() []string { return Fallback(set) })
	return Result{
		Questions: out.Value,
		Success:   out.Source == ai.SourceAI,
		Source:    out.Source,
		Err:       out.Err,
	}
}

func (g *Generator) prompt(ds *dataset.Dataset, set *profile.Set) string {
	budget := ai.PromptBudget(g.gw.Model(), g.gw.MaxTokens())
	var b strings.Builder
	b.WriteString("Based on this CSV dataset, generate 5-7 specific, actionable analysis questions.\n\n")
	fmt.Fprintf(&b, "Dataset info:\n- Total rows: %d\n", ds.Len())
	fmt.Fprintf(&b, "- Numeric columns: %s\n", orNone(set.Names(profile.Numeric)))
	fmt.Fprintf(&b, "- Categorical columns: %s\n", orNone(set.Names(profile.Categorical, profile.Boolean)))
	fmt.Fprintf(&b, "- Date columns: %s\n", orNone(set.Names(profile.Date)))
	fmt.Fprintf(&b, "- All columns: %s\n\n", strings.Join(ds.Columns, ", "))
	fmt.Fprintf(&b, "Column details (type and relevance tags):\n%s\n\n", strings.Join(utils.FitLines(set.SchemaLines(), budget/3), "\n"))
	fmt.Fprintf(&b, "Sample data (CSV):\n%s\n\n", utils.TruncateToTokenLimit(dataset.SampleText(ds, g.SampleRows), budget/3))
	b.WriteString(`Generate questions that:
1. Focus on meaningful patterns and business insights
2. Use specific column names from the dataset
3. Can be answered with a chart (bar, line, pie, scatter, histogram or area)
4. Cover different kinds of analysis: trends, comparisons, distributions, correlations, rankings
5. Never ask for a table or a list of records

Return ONLY the questions, one per line, without numbering or bullets.`)
	return b.String()
}

func orNone(names []string) string {
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, ", ")
}

// Parse extracts questions from a model reply, one per line. Numbering and
// bullets are stripped; short lines and lines asking for tabular output are
// dropped.
func Parse(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		q := strings.TrimSpace(line)
		q = bullet.ReplaceAllString(q, "")
		q = numbering.ReplaceAllString(q, "")
		q = strings.Trim(strings.TrimSpace(q), `"*`)
		if len(q) <= minLength || banned.MatchString(q) {
			continue
		}
		out = append(out, q)
		if len(out) == MaxQuestions {
			break
		}
	}
	return out
}

var (
	business = []string{
		"Show the key business performance indicators",
		"Compare the main business metrics across categories",
	}
	generic = []string{
		"Show the most significant relationships and trends in this dataset",
		"What stands out as unusual in this data?",
		"Show the main patterns across the dataset",
		"Compare the most important columns side by side",
		"Which categories contribute the most records?",
		"How are the numeric values spread out?",
		"Where are the largest differences between groups?",
		"Which values occur most often?",
	}
)

// Fallback builds questions from templates keyed on the column types
// present. At least one question names a real column.
func Fallback(set *profile.Set) []string {
	nums := set.Names(profile.Numeric)
	cats := set.Names(profile.Categorical, profile.Boolean)
	dates := set.Names(profile.Date)

	var out []string
	add := func(format string, args ...any) { out = append(out, fmt.Sprintf(format, args...)) }

	if len(nums) > 0 && len(cats) > 0 {
		num, cat := nums[0], cats[0]
		add("Which %s has the highest %s?", cat, num)
		add("Show top 10 %s ranked by %s", cat, num)
		add("Compare average %s by %s", num, cat)
		if set.HasTag(profile.TagFinancial) {
			add("What is the total %s by %s?", num, cat)
		}
		if set.HasTag(profile.TagPerformance) {
			add("Show performance ranking by %s with %s metrics", cat, num)
		}
	}
	if len(nums) > 0 {
		add("Show distribution of %s as a histogram", nums[0])
		add("Which records have the lowest %s?", nums[0])
		if len(nums) > 1 {
			add("What's the correlation between %s and %s?", nums[0], nums[1])
			add("Show scatter plot of %s vs %s", nums[0], nums[1])
		}
	}
	if len(cats) > 0 {
		add("Show percentage breakdown of %s as a pie chart", cats[0])
		add("What's the distribution of %s?", cats[0])
		if len(cats) > 1 {
			add("Compare count by %s and %s", cats[0], cats[1])
		}
	}
	if len(dates) > 0 && len(nums) > 0 {
		add("Show %s trend over %s", nums[0], dates[0])
		add("How has %s changed over time in %s?", nums[0], dates[0])
	}
	if len(out) == 0 && len(set.Columns) > 0 {
		add("What's the distribution of %s?", set.Columns[0].Name)
	}
	pool := generic
	if set.HasTag(profile.TagFinancial) || set.HasTag(profile.TagPerformance) || set.HasTag(profile.TagQuantity) {
		pool = append(append([]string{}, business...), generic...)
	}
	for _, q := range pool {
		if len(out) >= MinFallback {
			break
		}
		out = append(out, q)
	}
	if len(out) > MaxQuestions {
		out = out[:MaxQuestions]
	}
	return out
}
