package engine

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/intent"
)

// Kind tags the payload carried by a Result.
type Kind string

const (
	KindAggregate   Kind = "aggregate"
	KindGroups      Kind = "groups"
	KindRows        Kind = "rows"
	KindPoints      Kind = "points"
	KindTrend       Kind = "trend"
	KindHistogram   Kind = "histogram"
	KindFrequencies Kind = "frequencies"
	KindError       Kind = "error"
)

// Payload is the typed data of a Result. Every payload can be flattened to a
// table for export.
type Payload interface {
	Kind() Kind
	Len() int
	Table() (columns []string, rows [][]string)
}

// Result is the outcome of executing an intent. Data's dynamic type matches
// Kind; a KindError result carries a *RowSet sample so there is always
// something to render.
type Result struct {
	Kind    Kind             `json:"kind"`
	Type    intent.QueryType `json:"queryType"`
	Chart   intent.ChartType `json:"chartType"`
	Summary string           `json:"summary"`
	Error   string           `json:"error,omitempty"`
	Data    Payload          `json:"data"`
}

// Failed reports whether execution degraded to a sample.
func (r Result) Failed() bool { return r.Kind == KindError }

// Dataset flattens the result to a table named name.
func (r Result) Dataset(name string) *dataset.Dataset {
	if r.Data == nil {
		return dataset.New(name, nil, nil)
	}
	cols, rows := r.Data.Table()
	out := make([]dataset.Row, len(rows))
	for i, row := range rows {
		out[i] = dataset.Row(row)
	}
	return dataset.New(name, cols, out)
}

// Aggregate is a single scalar over one column.
type Aggregate struct {
	Column    string           `json:"column"`
	Operation intent.Operation `json:"operation"`
	Value     float64          `json:"value"`
	// Count is the number of numeric values the aggregate ran over.
	Count int `json:"count"`
}

func (a *Aggregate) Kind() Kind { return KindAggregate }
func (a *Aggregate) Len() int   { return 1 }
func (a *Aggregate) Table() ([]string, [][]string) {
	return []string{a.Column, "operation"}, [][]string{{formatFloat(a.Value), string(a.Operation)}}
}

// Group is one bucket of a grouped result. Numerator and Denominator are set
// for rate aggregates.
type Group struct {
	Key         string  `json:"key"`
	Value       float64 `json:"value"`
	Count       int     `json:"count"`
	Numerator   float64 `json:"numerator,omitempty"`
	Denominator float64 `json:"denominator,omitempty"`
}

// GroupSeries is a grouped aggregate, ordered as requested.
type GroupSeries struct {
	Column      string           `json:"column"`
	ValueColumn string           `json:"valueColumn,omitempty"`
	Operation   intent.Operation `json:"operation"`
	Groups      []Group          `json:"groups"`
}

func (g *GroupSeries) Kind() Kind { return KindGroups }
func (g *GroupSeries) Len() int   { return len(g.Groups) }
func (g *GroupSeries) Table() ([]string, [][]string) {
	cols := []string{g.Column, "value", "count"}
	if g.Operation == intent.Rate {
		cols = append(cols, "total_numerator", "total_denominator")
	}
	rows := make([][]string, 0, len(g.Groups))
	for _, gr := range g.Groups {
		row := []string{gr.Key, formatFloat(gr.Value), strconv.Itoa(gr.Count)}
		if g.Operation == intent.Rate {
			row = append(row, formatFloat(gr.Numerator), formatFloat(gr.Denominator))
		}
		rows = append(rows, row)
	}
	return cols, rows
}

// Records returns one {group column: key, "value": v} map per group.
func (g *GroupSeries) Records() []map[string]any {
	out := make([]map[string]any, len(g.Groups))
	for i, gr := range g.Groups {
		out[i] = map[string]any{g.Column: gr.Key, "value": gr.Value}
	}
	return out
}

// RowSet is a slice of dataset rows. Total counts every matching row before
// truncation.
type RowSet struct {
	Columns []string      `json:"columns"`
	Rows    []dataset.Row `json:"rows"`
	Total   int           `json:"total"`
}

func (r *RowSet) Kind() Kind { return KindRows }
func (r *RowSet) Len() int   { return len(r.Rows) }
func (r *RowSet) Table() ([]string, [][]string) {
	rows := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = []string(row)
	}
	return r.Columns, rows
}

// Point is a numeric pair with an optional size for bubble charts.
type Point struct {
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
	Size *float64 `json:"r,omitempty"`
}

// PointSeries holds raw pairs for scatter rendering. No coefficient is
// computed.
type PointSeries struct {
	X      string  `json:"x"`
	Y      string  `json:"y"`
	Size   string  `json:"size,omitempty"`
	Points []Point `json:"points"`
}

func (p *PointSeries) Kind() Kind { return KindPoints }
func (p *PointSeries) Len() int   { return len(p.Points) }
func (p *PointSeries) Table() ([]string, [][]string) {
	cols := []string{p.X, p.Y}
	if p.Size != "" {
		cols = append(cols, p.Size)
	}
	rows := make([][]string, len(p.Points))
	for i, pt := range p.Points {
		row := []string{formatFloat(pt.X), formatFloat(pt.Y)}
		if p.Size != "" {
			s := ""
			if pt.Size != nil {
				s = formatFloat(*pt.Size)
			}
			row = append(row, s)
		}
		rows[i] = row
	}
	return cols, rows
}

// TrendPoint keeps the x value as written in the data.
type TrendPoint struct {
	X string  `json:"x"`
	Y float64 `json:"y"`
}

// TrendSeries is ordered by x ascending.
type TrendSeries struct {
	X      string       `json:"x"`
	Y      string       `json:"y"`
	Points []TrendPoint `json:"points"`
}

func (t *TrendSeries) Kind() Kind { return KindTrend }
func (t *TrendSeries) Len() int   { return len(t.Points) }
func (t *TrendSeries) Table() ([]string, [][]string) {
	rows := make([][]string, len(t.Points))
	for i, p := range t.Points {
		rows[i] = []string{p.X, formatFloat(p.Y)}
	}
	return []string{t.X, t.Y}, rows
}

// Bin is a half-open interval [Lo, Hi); the last bin also includes Hi.
type Bin struct {
	Label string  `json:"range"`
	Lo    float64 `json:"min"`
	Hi    float64 `json:"max"`
	Count int     `json:"count"`
}

// Histogram is an equal-width binning of a numeric column.
type Histogram struct {
	Column string  `json:"column"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Total  int     `json:"total"`
	Bins   []Bin   `json:"bins"`
}

func (h *Histogram) Kind() Kind { return KindHistogram }
func (h *Histogram) Len() int   { return len(h.Bins) }
func (h *Histogram) Table() ([]string, [][]string) {
	rows := make([][]string, len(h.Bins))
	for i, b := range h.Bins {
		rows[i] = []string{b.Label, strconv.Itoa(b.Count)}
	}
	return []string{"range", "count"}, rows
}

// Frequency is the count of one distinct value.
type Frequency struct {
	Value string `json:"category"`
	Count int    `json:"count"`
}

// Frequencies lists distinct values by count, most frequent first.
type Frequencies struct {
	Column string      `json:"column"`
	Items  []Frequency `json:"items"`
}

func (f *Frequencies) Kind() Kind { return KindFrequencies }
func (f *Frequencies) Len() int   { return len(f.Items) }
func (f *Frequencies) Table() ([]string, [][]string) {
	rows := make([][]string, len(f.Items))
	for i, it := range f.Items {
		rows[i] = []string{it.Value, strconv.Itoa(it.Count)}
	}
	return []string{f.Column, "count"}, rows
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func fixed2(f float64) string { return fmt.Sprintf("%.2f", f) }
