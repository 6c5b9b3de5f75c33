package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Rule maps a keyword predicate on the lower-cased query to an outcome.
// Rules are tried in order and the first match wins.
type Rule struct {
	Name  string
	Match func(q string) bool
	Type  QueryType
	Chart ChartType
}

// Rules is the fallback interpretation table.
var Rules = []Rule{
	{Name: "rate", Match: either(keywords("rate", "rates", "ratio"), contains("%")), Type: GroupBy, Chart: Bar},
	{Name: "aggregate-by", Match: pattern(`\b(average|avg|mean|sum|total|count|max|maximum|min|minimum)\b.*\bby\b`), Type: GroupBy, Chart: Bar},
	{Name: "average", Match: keywords("average", "mean"), Type: Aggregation, Chart: Bar},
	{Name: "group", Match: keywords("group", "grouped", "by", "compare", "comparison"), Type: GroupBy, Chart: Bar},
	{Name: "trend", Match: keywords("trend", "trends", "over time", "line"), Type: Trend, Chart: Line},
	{Name: "distribution", Match: keywords("distribution", "histogram"), Type: Distribution, Chart: Histogram},
	{Name: "correlation", Match: keywords("correlation", "correlate", "scatter", "relationship"), Type: Correlation, Chart: Scatter},
	{Name: "composition", Match: keywords("pie", "donut", "doughnut", "percentage", "proportion", "share"), Type: GroupBy, Chart: Pie},
	{Name: "ranking", Match: keywords("top", "highest", "lowest", "ranking", "rank", "bottom"), Type: Sort, Chart: Bar},
	{Name: "bubble", Match: keywords("bubble", "size"), Type: Correlation, Chart: Bubble},
	{Name: "cumulative", Match: keywords("area", "cumulative"), Type: Trend, Chart: Area},
	{Name: "totals", Match: keywords("sum", "total", "max", "maximum", "min", "minimum", "count", "how many"), Type: Aggregation, Chart: Bar},
}

// DefaultRule applies when nothing in Rules matches.
var DefaultRule = Rule{Name: "default", Match: func(string) bool { return true }, Type: Filter, Chart: Bar}

// Classify returns the first rule matching query.
func Classify(query string) Rule {
	q := strings.ToLower(query)
	for _, r := range Rules {
		if r.Match(q) {
			return r
		}
	}
	return DefaultRule
}

func keywords(words ...string) func(string) bool {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return pattern(`\b(` + strings.Join(quoted, "|") + `)\b`)
}

func pattern(expr string) func(string) bool {
	return regexp.MustCompile(expr).MatchString
}

func contains(sub string) func(string) bool {
	return func(q string) bool { return strings.Contains(q, sub) }
}

func either(fs ...func(string) bool) func(string) bool {
	return func(q string) bool {
		for _, f := range fs {
			if f(q) {
				return true
			}
		}
		return false
	}
}

var (
	operationWords = []struct {
		op    Operation
		match func(string) bool
	}{
		{Mean, keywords("average", "avg", "mean")},
		{Sum, keywords("sum", "total")},
		{Max, keywords("max", "maximum")},
		{Min, keywords("min", "minimum")},
		{Count, keywords("count", "how many", "number of")},
	}
	ascendingWords = keywords("lowest", "bottom", "least", "smallest", "worst", "ascending")
	weekdayWords   = keywords("day of week", "day of the week", "weekday", "weekdays")
	limitWords     = keywords("top", "bottom", "first")
	firstNumber    = regexp.MustCompile(`\b(\d{1,4})\b`)
)

// operationIn returns the aggregate named in q, if any.
func operationIn(q string) (Operation, bool) {
	for _, w := range operationWords {
		if w.match(q) {
			return w.op, true
		}
	}
	return "", false
}

func sortOrderIn(q string) SortOrder {
	if ascendingWords(q) {
		return Asc
	}
	return Desc
}

// limitIn returns the first small integer in q ("top 5"), or def.
func limitIn(q string, def int) int {
	if m := firstNumber.FindStringSubmatch(q); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return def
}
