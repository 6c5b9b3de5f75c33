package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/csvdash/internal/ai"
	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/engine"
	"github.com/KaramelBytes/csvdash/internal/intent"
	"github.com/KaramelBytes/csvdash/internal/profile"
	"github.com/KaramelBytes/csvdash/internal/utils"
)

const (
	// MaxWords is the longest summary kept as-is.
	MaxWords = 220
	// CapWords is the length a longer summary is cut to.
	CapWords = 200
	// SampleRecords is the number of result records shown to the model.
	SampleRecords = 10
)

var errNoKPIs = errors.New("kpi reply holds no metrics")

// Summarizer writes prose for results and datasets.
type Summarizer struct {
	gw *ai.Gateway
	// FingerprintRows is the number of rows hashed into cache keys.
	FingerprintRows int
}

// New returns a summarizer that asks gw first. A nil or disabled gateway
// means every summary comes from templates.
func New(gw *ai.Gateway) *Summarizer {
	return &Summarizer{gw: gw, FingerprintRows: 10}
}

// Summarize describes res in 150 to 200 words of business prose.
func (s *Summarizer) Summarize(ctx context.Context, ds *dataset.Dataset, in intent.Intent, res engine.Result) (string, ai.Source) {
	var primary func(context.Context) (string, error)
	if s.gw.Enabled() && !res.Failed() {
		primary = func(ctx context.Context) (string, error) {
			key := ai.CacheKey("summary", in.Query, string(res.Kind), ds.Fingerprint(s.FingerprintRows), tableText(res, SampleRecords))
			text, err := s.gw.Complete(ctx, key, s.resultPrompt(ds, in, res))
			if err != nil {
				return "", err
			}
			return Cap(text), nil
		}
	}
	out := ai.WithFallback(ctx, primary, func() string { return Fallback(in, res) })
	return out.Value, out.Source
}

func (s *Summarizer) resultPrompt(ds *dataset.Dataset, in intent.Intent, res engine.Result) string {
	budget := ai.PromptBudget(s.gw.Model(), s.gw.MaxTokens())
	var b strings.Builder
	b.WriteString("You are a senior data analyst providing insights to business stakeholders.\n\n")
	fmt.Fprintf(&b, "User query: %q\nQuery type: %s\nChart type: %s\n", in.Query, res.Type, res.Chart)
	fmt.Fprintf(&b, "Total records in dataset: %d\nResult rows: %d\n", ds.Len(), payloadLen(res))
	fmt.Fprintf(&b, "Key finding: %s\n\n", res.Summary)
	fmt.Fprintf(&b, "Result sample (CSV):\n%s\n\n", utils.TruncateToTokenLimit(tableText(res, SampleRecords), budget/2))
	b.WriteString(`Write a concise, business-friendly summary in exactly 150-200 words that covers:
- the key findings and what the numbers show
- notable patterns, trends or outliers
- business implications and a recommendation
- any data quality caveats

Use clear professional language without statistical jargon. Structure it as key finding, business impact,
recommendation. Write one flowing paragraph: no bullet points, no numbered lists, no headings.`)
	return b.String()
}

// Cap shortens text longer than MaxWords to its first CapWords words
// followed by "...".
func Cap(text string) string {
	words := strings.Fields(text)
	if len(words) <= MaxWords {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[:CapWords], " ") + "..."
}

// Fallback builds a summary from the result alone.
func Fallback(in intent.Intent, res engine.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis completed for query: %q. ", in.Query)
	switch d := res.Data.(type) {
	case *engine.Aggregate:
		fmt.Fprintf(&b, "Calculated %s of %s: %.2f. This provides insight into the central tendency of your %s data. ",
			d.Operation, d.Column, d.Value, d.Column)
	case *engine.GroupSeries:
		fmt.Fprintf(&b, "Data grouped by %s showing %d categories. This segmentation helps identify patterns and differences across groups. ",
			d.Column, len(d.Groups))
		if len(d.Groups) > 0 {
			top := d.Groups[0]
			fmt.Fprintf(&b, "%s leads with %s. ", top.Key, groupValue(d, top))
		}
	case *engine.PointSeries:
		fmt.Fprintf(&b, "Analyzed relationship between %s and %s using %d data points. Correlation analysis helps understand how these variables relate to each other. ",
			d.X, d.Y, len(d.Points))
	case *engine.TrendSeries:
		fmt.Fprintf(&b, "Tracked %s across %d values of %s. The trend view shows how the measure changes in order. ",
			d.Y, len(d.Points), d.X)
	case *engine.Histogram:
		fmt.Fprintf(&b, "Distributed %d values of %s into %d ranges between %.2f and %.2f. ",
			d.Total, d.Column, len(d.Bins), d.Min, d.Max)
	case *engine.Frequencies:
		fmt.Fprintf(&b, "Counted %d distinct values of %s. ", len(d.Items), d.Column)
		if len(d.Items) > 0 {
			fmt.Fprintf(&b, "The most frequent is %s with %d records. ", d.Items[0].Value, d.Items[0].Count)
		}
	case *engine.RowSet:
		switch {
		case res.Failed():
			fmt.Fprintf(&b, "The query could not be processed (%s), so a sample of %d records is shown instead. ", res.Error, len(d.Rows))
		case res.Type == intent.Sort:
			fmt.Fprintf(&b, "%s. This ranking helps prioritize and identify high-performing items. ", res.Summary)
		default:
			fmt.Fprintf(&b, "Processed %d records for analysis. The results provide valuable insights into your data patterns. ", d.Total)
		}
	default:
		b.WriteString("The results provide valuable insights into your data patterns. ")
	}
	b.WriteString("Review the chart and table views for detailed findings. Consider exploring related questions to gain deeper insights.")
	return b.String()
}

func groupValue(gs *engine.GroupSeries, g engine.Group) string {
	switch gs.Operation {
	case intent.Rate:
		return fmt.Sprintf("a rate of %.2f%%", g.Value)
	case intent.Count:
		return fmt.Sprintf("%d records", g.Count)
	default:
		return fmt.Sprintf("a %s of %.2f", gs.Operation, g.Value)
	}
}

// Overview describes the structure of a freshly loaded dataset.
func (s *Summarizer) Overview(ctx context.Context, ds *dataset.Dataset, set *profile.Set, rep dataset.CleanReport) (string, ai.Source) {
	var primary func(context.Context) (string, error)
	if s.gw.Enabled() {
		primary = func(ctx context.Context) (string, error) {
			key := ai.CacheKey("overview", ds.Fingerprint(s.FingerprintRows))
			return s.gw.Complete(ctx, key, s.overviewPrompt(ds, set))
		}
	}
	out := ai.WithFallback(ctx, primary, func() string { return OverviewFallback(ds, set, rep) })
	return out.Value, out.Source
}

func (s *Summarizer) overviewPrompt(ds *dataset.Dataset, set *profile.Set) string {
	budget := ai.PromptBudget(s.gw.Model(), s.gw.MaxTokens())
	lines := make([]string, 0, len(set.Columns))
	for _, c := range set.Columns {
		lines = append(lines, fmt.Sprintf("- %s: %s (%d unique values, samples: %s)",
			c.Name, c.Type, c.UniqueCount, strings.Join(c.SampleValues, ", ")))
	}
	var b strings.Builder
	b.WriteString("Analyze this CSV dataset structure:\n\n")
	fmt.Fprintf(&b, "Total Rows: %d\nColumns: %d\n\nColumn Analysis:\n%s\n\n",
		ds.Len(), len(ds.Columns), strings.Join(utils.FitLines(lines, budget/2), "\n"))
	fmt.Fprintf(&b, "Sample Data (CSV):\n%s\n\n", utils.TruncateToTokenLimit(dataset.SampleText(ds, 3), budget/4))
	b.WriteString(`Provide a comprehensive analysis including:
1. Dataset overview and main characteristics
2. Key columns and their significance
3. Data quality assessment
4. Potential relationships between columns
5. Most interesting aspects for analysis

Format as structured text, not JSON.`)
	return b.String()
}

// OverviewFallback describes the dataset from its profiles.
func OverviewFallback(ds *dataset.Dataset, set *profile.Set, rep dataset.CleanReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dataset %s has %s records across %d columns.\n", ds.Name, profile.FormatCount(ds.Len()), len(ds.Columns))
	if rep.Message != "" {
		b.WriteString(rep.Message + "\n")
	}
	b.WriteString("\nColumns:\n")
	for _, c := range set.Columns {
		fmt.Fprintf(&b, "- %s: %s, %d unique", c.Name, c.Type, c.UniqueCount)
		if c.Stats != nil {
			fmt.Fprintf(&b, ", range %.2f to %.2f, mean %.2f", c.Stats.Min, c.Stats.Max, c.Stats.Mean)
		}
		if c.NullCount > 0 {
			fmt.Fprintf(&b, ", %.1f%% missing", c.NullPercentage)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nData quality: %s.\n", set.Quality)
	if len(set.AnalysisTypes) > 0 {
		fmt.Fprintf(&b, "Suggested analyses: %s.\n", strings.Join(set.AnalysisTypes, ", "))
	}
	return b.String()
}

// KPIs returns headline metrics, from the model when possible.
func (s *Summarizer) KPIs(ctx context.Context, ds *dataset.Dataset, set *profile.Set) ([]profile.KPI, ai.Source) {
	var primary func(context.Context) ([]profile.KPI, error)
	if s.gw.Enabled() {
		primary = func(ctx context.Context) ([]profile.KPI, error) {
			key := ai.CacheKey("kpis", ds.Fingerprint(s.FingerprintRows))
			text, err := s.gw.Complete(ctx, key, kpiPrompt(ds, set))
			if err != nil {
				return nil, err
			}
			var kpis []profile.KPI
			if err := ai.DecodeJSON(text, &kpis); err != nil {
				return nil, err
			}
			out := kpis[:0]
			for _, k := range kpis {
				if strings.TrimSpace(k.Name) != "" {
					out = append(out, k)
				}
			}
			if len(out) == 0 {
				return nil, errNoKPIs
			}
			return out, nil
		}
	}
	out := ai.WithFallback(ctx, primary, func() []profile.KPI { return profile.KPIs(ds, set) })
	return out.Value, out.Source
}

func kpiPrompt(ds *dataset.Dataset, set *profile.Set) string {
	var b strings.Builder
	fmt.Fprintf(&b, "For data with %d rows and columns:\n%s\n\n", ds.Len(), strings.Join(set.SchemaLines(), "\n"))
	for _, c := range set.Columns {
		if c.Stats != nil {
			fmt.Fprintf(&b, "%s: min %.2f, max %.2f, mean %.2f\n", c.Name, c.Stats.Min, c.Stats.Max, c.Stats.Mean)
		}
	}
	b.WriteString(`
Calculate 3 key metrics that would be most relevant. For each metric provide a name, a value and a brief insight.
Return ONLY a valid JSON array without markdown formatting or code blocks.
Example format: [{"name": "Total Records", "value": "1000", "insight": "Large dataset"}]`)
	return b.String()
}

func payloadLen(res engine.Result) int {
	if res.Data == nil {
		return 0
	}
	return res.Data.Len()
}

// tableText renders the first n rows of the result table as CSV.
func tableText(res engine.Result, n int) string {
	if res.Data == nil {
		return ""
	}
	return dataset.SampleText(res.Dataset("result"), n)
}
