package intent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/csvdash/internal/ai"
	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/profile"
	"github.com/KaramelBytes/csvdash/internal/utils"
)

// errIncomplete marks a model reply that parsed but carries neither a
// visualization nor a data transformation.
var errIncomplete = errors.New("intent reply has no visualization or dataTransformation")

// Interpreter turns a free-text query into an Intent.
type Interpreter struct {
	gw    *ai.Gateway
	hints RateHints
	// SampleRows is the number of data rows shown to the model.
	SampleRows int
	// FingerprintRows is the number of rows hashed into cache keys.
	FingerprintRows int
}

// NewInterpreter returns an interpreter that asks gw first. A nil or disabled
// gateway means every query uses the rule table.
func NewInterpreter(gw *ai.Gateway, hints RateHints) *Interpreter {
	if len(hints.Numerator) == 0 && len(hints.Denominator) == 0 {
		hints = DefaultRateHints()
	}
	return &Interpreter{gw: gw, hints: hints, SampleRows: 3, FingerprintRows: 10}
}

// Interpret never fails: model errors, malformed replies and incomplete
// intents all fall through to Fallback.
func (it *Interpreter) Interpret(ctx context.Context, ds *dataset.Dataset, set *profile.Set, query string) Intent {
	var primary func(context.Context) (Intent, error)
	if it.gw.Enabled() {
		primary = func(ctx context.Context) (Intent, error) {
			return it.interpretAI(ctx, ds, set, query)
		}
	}
	out := ai.WithFallback(ctx, primary, func() Intent {
		return Fallback(ds, set, query, it.hints)
	})
	in := out.Value
	in.Source = out.Source
	return in
}

func (it *Interpreter) interpretAI(ctx context.Context, ds *dataset.Dataset, set *profile.Set, query string) (Intent, error) {
	key := ai.CacheKey("interpret", query, ds.Fingerprint(it.FingerprintRows))
	text, err := it.gw.Complete(ctx, key, it.prompt(ds, set, query))
	if err != nil {
		return Intent{}, err
	}
	var w wireIntent
	if err := ai.DecodeJSON(text, &w); err != nil {
		return Intent{}, err
	}
	if w.Visualization == nil && w.DataTransformation == nil {
		return Intent{}, errIncomplete
	}
	return fromWire(w, query, newSchema(ds, set), it.hints), nil
}

func (it *Interpreter) prompt(ds *dataset.Dataset, set *profile.Set, query string) string {
	budget := ai.PromptBudget(it.gw.Model(), it.gw.MaxTokens())
	schemaText := strings.Join(utils.FitLines(set.SchemaLines(), budget/2), "\n")
	sample := utils.TruncateToTokenLimit(dataset.SampleText(ds, it.SampleRows), budget/4)

	var b strings.Builder
	b.WriteString("You are an expert data analyst. Analyze this user query and choose the best visualization strategy.\n\n")
	fmt.Fprintf(&b, "Dataset: %d rows\nColumns:\n%s\n\nSample data (CSV):\n%s\n\n", ds.Len(), schemaText, sample)
	fmt.Fprintf(&b, "User query: %q\n\n", query)
	b.WriteString(`Chart guidance: bar compares categories, line shows trends over time, pie shows parts of a whole,
scatter relates two numeric columns, area shows cumulative data, histogram shows a distribution.
The x axis is the grouping or independent variable; the y axis is the measured value.

If the query asks for a rate or percentage of one numeric column over another, or groups by day of week,
fill dataTransformation; otherwise omit it.

Respond with JSON only, matching:
{
  "queryType": "aggregation|filter|groupby|correlation|trend|distribution|comparison",
  "targetColumns": ["primary_column", "secondary_column"],
  "operation": "sum|avg|count|max|min|group|filter|compare|trend",
  "filterConditions": {"column": ">value"},
  "chartType": "bar|line|pie|scatter|histogram|area",
  "xAxisLabel": "...",
  "yAxisLabel": "...",
  "chartTitle": "...",
  "visualization": {"type": "bar", "xAxis": "column", "yAxis": "column", "groupBy": "column", "reasoning": "..."},
  "dataTransformation": {
    "extractDayOfWeek": "date_column",
    "calculateRate": {"numerator": "column", "denominator": "column"},
    "groupByColumn": "column or day_of_week",
    "aggregationType": "average|sum",
    "sortBy": "rate|value|count",
    "sortOrder": "desc|asc",
    "limit": 10
  },
  "insights": "..."
}`)
	return b.String()
}

// Fallback interprets query with the rule table and column-name matching.
func Fallback(ds *dataset.Dataset, set *profile.Set, query string, hints RateHints) Intent {
	q := strings.ToLower(query)
	rule := Classify(q)
	sch := newSchema(ds, set)
	in := Intent{
		Query:   query,
		Type:    rule.Type,
		Chart:   rule.Chart,
		Columns: Mentioned(ds.Columns, query),
		Source:  ai.SourceFallback,
	}
	if op, ok := operationIn(q); ok {
		in.Operation = op
	}
	switch rule.Type {
	case GroupBy:
		if weekdayWords(q) {
			in.DayOfWeek = sch.pick(in.Columns, nil, profile.Date)
		}
		if rule.Name == "rate" {
			if num, den := sch.rateColumns(hints); num != "" && den != "" {
				in.Rate = &RateSpec{Numerator: num, Denominator: den}
			} else {
				in.Operation = Count
			}
		}
		if rule.Chart == Pie && in.Operation == "" {
			in.Operation = Sum
			if sch.first(in.Columns, nil, profile.Numeric) == "" {
				in.Operation = Count
			}
		}
		if l := limitIn(q, 0); l > 0 && limitWords(q) {
			in.Limit = l
		}
		in.SortOrder = sortOrderIn(q)
	case Sort:
		in.SortOrder = sortOrderIn(q)
		in.Limit = limitIn(q, 10)
	}
	sch.complete(&in)
	return in
}

type wireIntent struct {
	QueryType          string         `json:"queryType"`
	TargetColumns      []string       `json:"targetColumns"`
	Operation          string         `json:"operation"`
	FilterConditions   any            `json:"filterConditions"`
	ChartType          string         `json:"chartType"`
	XAxisLabel         string         `json:"xAxisLabel"`
	YAxisLabel         string         `json:"yAxisLabel"`
	ChartTitle         string         `json:"chartTitle"`
	Insights           any            `json:"insights"`
	Visualization      *wireVisual    `json:"visualization"`
	DataTransformation *wireTransform `json:"dataTransformation"`
}

type wireVisual struct {
	Type       string `json:"type"`
	ChartType  string `json:"chartType"`
	XAxis      string `json:"xAxis"`
	YAxis      string `json:"yAxis"`
	GroupBy    string `json:"groupBy"`
	XAxisLabel string `json:"xAxisLabel"`
	YAxisLabel string `json:"yAxisLabel"`
	ChartTitle string `json:"chartTitle"`
}

type wireTransform struct {
	// ExtractDayOfWeek is a column name, or true to use any date column.
	ExtractDayOfWeek any       `json:"extractDayOfWeek"`
	CalculateRate    *RateSpec `json:"calculateRate"`
	GroupByColumn    string    `json:"groupByColumn"`
	AggregationType  string    `json:"aggregationType"`
	SortBy           string    `json:"sortBy"`
	SortOrder        string    `json:"sortOrder"`
	Limit            flexInt   `json:"limit"`
}

// flexInt accepts 10, 10.0 and "10".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(v)
	return nil
}

func fromWire(w wireIntent, query string, sch schema, hints RateHints) Intent {
	rule := Classify(query)
	in := Intent{
		Query:      query,
		Type:       rule.Type,
		Chart:      rule.Chart,
		Title:      w.ChartTitle,
		XAxisLabel: w.XAxisLabel,
		YAxisLabel: w.YAxisLabel,
		Source:     ai.SourceAI,
	}
	if s, ok := w.Insights.(string); ok {
		in.Insights = s
	}
	if t, ok := ParseQueryType(w.QueryType); ok {
		in.Type = t
	}
	if op, ok := ParseOperation(w.Operation); ok {
		in.Operation = op
	}

	add := func(name string) string {
		c, ok := resolveColumn(sch.cols, name)
		if !ok {
			return ""
		}
		if !contained(in.Columns, c) {
			in.Columns = append(in.Columns, c)
		}
		return c
	}
	for _, c := range w.TargetColumns {
		add(c)
	}

	chartName := w.ChartType
	if v := w.Visualization; v != nil {
		if chartName == "" {
			chartName = v.Type
		}
		if chartName == "" {
			chartName = v.ChartType
		}
		if in.Title == "" {
			in.Title = v.ChartTitle
		}
		if in.XAxisLabel == "" {
			in.XAxisLabel = v.XAxisLabel
		}
		if in.YAxisLabel == "" {
			in.YAxisLabel = v.YAxisLabel
		}
		x, y, g := add(v.XAxis), add(v.YAxis), add(v.GroupBy)
		switch in.Type {
		case Trend, Correlation:
			in.X, in.Y = x, y
			if in.X == in.Y {
				in.Y = ""
			}
		case GroupBy:
			if g == "" && x != "" && !sch.is(x, profile.Numeric) {
				g = x
			}
			in.GroupBy = g
			if y != "" && y != g && sch.is(y, profile.Numeric) {
				in.Value = y
			}
		}
	}
	if c, ok := ParseChartType(chartName); ok {
		in.Chart = c
	}

	if m, ok := w.FilterConditions.(map[string]any); ok && len(m) > 0 {
		in.Filters = map[string]string{}
		for k, v := range m {
			if c, ok := resolveColumn(sch.cols, k); ok {
				in.Filters[c] = strings.TrimSpace(fmt.Sprint(v))
			}
		}
	}

	if t := w.DataTransformation; t != nil {
		applyTransform(&in, t, sch, hints)
	}
	sch.complete(&in)
	return in
}

func applyTransform(in *Intent, t *wireTransform, sch schema, hints RateHints) {
	in.Type = GroupBy
	switch v := t.ExtractDayOfWeek.(type) {
	case string:
		if c, ok := resolveColumn(sch.cols, v); ok {
			in.DayOfWeek = c
		} else if v != "" {
			in.DayOfWeek = sch.first(sch.cols, nil, profile.Date)
		}
	case bool:
		if v {
			in.DayOfWeek = sch.first(sch.cols, nil, profile.Date)
		}
	}

	if r := t.CalculateRate; r != nil {
		num, okN := resolveColumn(sch.cols, r.Numerator)
		den, okD := resolveColumn(sch.cols, r.Denominator)
		if !okN || !okD || num == den {
			hn, hd := sch.rateColumns(hints)
			if !okN {
				num = hn
			}
			if !okD || num == den {
				den = hd
			}
		}
		if num != "" && den != "" && num != den {
			in.Rate = &RateSpec{Numerator: num, Denominator: den}
		} else {
			in.Operation = Count
		}
	}

	g := strings.ToLower(t.GroupByColumn)
	switch {
	case in.DayOfWeek != "" && (g == "" || strings.Contains(g, "day")):
		in.GroupBy = ""
	case g != "":
		if c, ok := resolveColumn(sch.cols, t.GroupByColumn); ok {
			in.GroupBy = c
		}
	}

	if in.Rate == nil {
		switch strings.ToLower(t.AggregationType) {
		case "average", "avg", "mean":
			in.Operation = Mean
		case "sum", "total":
			in.Operation = Sum
		case "count":
			in.Operation = Count
		}
	}
	switch strings.ToLower(t.SortOrder) {
	case "asc", "ascending":
		in.SortOrder = Asc
	default:
		in.SortOrder = Desc
	}
	if t.Limit > 0 {
		in.Limit = int(t.Limit)
	}
}
