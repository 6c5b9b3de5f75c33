package intent

import (
	"strings"

	"github.com/KaramelBytes/csvdash/internal/ai"
)

// QueryType is the operation a query resolves to.
type QueryType string

const (
	Aggregation  QueryType = "aggregation"
	GroupBy      QueryType = "groupby"
	Filter       QueryType = "filter"
	Correlation  QueryType = "correlation"
	Trend        QueryType = "trend"
	Distribution QueryType = "distribution"
	Sort         QueryType = "sort"
)

// Operation is the aggregate applied to a value column.
type Operation string

const (
	Mean  Operation = "mean"
	Sum   Operation = "sum"
	Max   Operation = "max"
	Min   Operation = "min"
	Count Operation = "count"
	Rate  Operation = "rate"
)

// ChartType is one of the renderable chart kinds. There is deliberately no
// table type: every intent yields a chart.
type ChartType string

const (
	Bar       ChartType = "bar"
	Line      ChartType = "line"
	Pie       ChartType = "pie"
	Doughnut  ChartType = "doughnut"
	Scatter   ChartType = "scatter"
	Bubble    ChartType = "bubble"
	Histogram ChartType = "histogram"
	Area      ChartType = "area"
)

// SortOrder orders grouped and ranked results.
type SortOrder string

const (
	Desc SortOrder = "desc"
	Asc  SortOrder = "asc"
)

// RateSpec names the columns of a ratio aggregate.
type RateSpec struct {
	Numerator   string `json:"numerator"`
	Denominator string `json:"denominator"`
}

// Intent is an executable interpretation of a query.
//
// Columns lists every column the query mentions; the role fields (GroupBy,
// Value, X, Y, Size) say how the executor uses them.
type Intent struct {
	Query     string    `json:"query"`
	Type      QueryType `json:"queryType"`
	Columns   []string  `json:"targetColumns"`
	Operation Operation `json:"operation,omitempty"`
	Chart     ChartType `json:"chartType"`

	GroupBy string `json:"groupBy,omitempty"`
	Value   string `json:"valueColumn,omitempty"`
	X       string `json:"xColumn,omitempty"`
	Y       string `json:"yColumn,omitempty"`
	Size    string `json:"sizeColumn,omitempty"`

	// DayOfWeek names a date column whose weekday becomes the group key.
	DayOfWeek string            `json:"extractDayOfWeek,omitempty"`
	Rate      *RateSpec         `json:"calculateRate,omitempty"`
	Filters   map[string]string `json:"filterConditions,omitempty"`
	SortOrder SortOrder         `json:"sortOrder,omitempty"`
	Limit     int               `json:"limit,omitempty"`

	Title      string `json:"chartTitle,omitempty"`
	XAxisLabel string `json:"xAxisLabel,omitempty"`
	YAxisLabel string `json:"yAxisLabel,omitempty"`
	Insights   string `json:"insights,omitempty"`

	Source ai.Source `json:"source"`
}

// WeekdayKey is the group column name used for day-of-week grouping.
const WeekdayKey = "day_of_week"

// GroupKey returns the name of the grouping column as it appears in results.
func (in Intent) GroupKey() string {
	if in.DayOfWeek != "" {
		return WeekdayKey
	}
	return in.GroupBy
}

var chartTypes = map[string]ChartType{
	"bar": Bar, "column": Bar, "table": Bar,
	"line": Line, "pie": Pie, "doughnut": Doughnut, "donut": Doughnut,
	"scatter": Scatter, "bubble": Bubble, "histogram": Histogram, "area": Area,
}

// ParseChartType maps a free-form chart name onto the enumeration. A table
// request becomes a bar chart.
func ParseChartType(s string) (ChartType, bool) {
	c, ok := chartTypes[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

var queryTypes = map[string]QueryType{
	"aggregation": Aggregation, "aggregate": Aggregation,
	"groupby": GroupBy, "group": GroupBy, "comparison": GroupBy, "compare": GroupBy,
	"filter": Filter, "display": Filter,
	"correlation": Correlation, "trend": Trend, "distribution": Distribution,
	"sort": Sort, "ranking": Sort, "top": Sort,
}

// ParseQueryType maps a query type name onto the enumeration.
func ParseQueryType(s string) (QueryType, bool) {
	q, ok := queryTypes[strings.ToLower(strings.TrimSpace(s))]
	return q, ok
}

var operations = map[string]Operation{
	"mean": Mean, "avg": Mean, "average": Mean,
	"sum": Sum, "total": Sum,
	"max": Max, "maximum": Max,
	"min": Min, "minimum": Min,
	"count": Count, "rate": Rate,
}

// ParseOperation maps an operation name onto the enumeration.
func ParseOperation(s string) (Operation, bool) {
	o, ok := operations[strings.ToLower(strings.TrimSpace(s))]
	return o, ok
}
