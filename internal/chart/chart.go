package chart

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/engine"
	"github.com/KaramelBytes/csvdash/internal/intent"
)

// Unavailable is the notice shown when no chart can be built.
const Unavailable = "Visualization unavailable"

// MaxPieSlices is the largest category count chosen as a pie when no chart
// type is requested.
const MaxPieSlices = 6

var palette = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#EC4899", "#84CC16", "#F97316", "#6366F1",
}

// Palette returns n colors, cycling when n exceeds the palette.
func Palette(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = palette[i%len(palette)]
	}
	return out
}

// Series is one dataset of a chart. Category charts use Data; scatter and
// bubble charts use Points.
type Series struct {
	Label  string         `json:"label"`
	Data   []float64      `json:"data,omitempty"`
	Points []engine.Point `json:"points,omitempty"`
	Color  string         `json:"color"`
}

// Config is handed to the rendering front end as is.
type Config struct {
	Type       intent.ChartType `json:"type,omitempty"`
	Title      string           `json:"title"`
	XAxisLabel string           `json:"xAxisLabel,omitempty"`
	YAxisLabel string           `json:"yAxisLabel,omitempty"`
	Labels     []string         `json:"labels,omitempty"`
	Datasets   []Series         `json:"datasets,omitempty"`
	Colors     []string         `json:"colors,omitempty"`
	ShowLegend bool             `json:"showLegend"`
	// Fallback is set when the requested chart could not be built and a
	// generic bar chart was substituted.
	Fallback bool   `json:"fallback,omitempty"`
	Notice   string `json:"notice,omitempty"`
}

// Available reports whether the config describes a chart.
func (c Config) Available() bool { return c.Type != "" }

var errShape = errors.New("result shape does not fit chart type")

// Select builds the chart for res. The intent's chart type is honored when
// the result can be drawn that way; without one the type follows the shape
// of the result. When neither works a bar chart of row counts is used, and
// when even that is impossible the config carries only a notice.
func Select(res engine.Result, in intent.Intent) Config {
	want := res.Chart
	if want == "" {
		want = in.Chart
	}
	if res.Failed() {
		want = intent.Bar
	}
	if want == "" {
		want = ByShape(res.Data)
	}
	if cfg, err := build(want, res.Data); err == nil {
		return decorate(cfg, res, in)
	}
	if cfg, err := fallbackBar(res.Data); err == nil {
		cfg.Fallback = true
		return decorate(cfg, res, in)
	}
	return Config{Title: titleFor(res, in), Notice: Unavailable}
}

// ByShape picks a chart type from the payload alone.
func ByShape(p engine.Payload) intent.ChartType {
	switch d := p.(type) {
	case *engine.PointSeries:
		if d.Size != "" {
			return intent.Bubble
		}
		return intent.Scatter
	case *engine.TrendSeries:
		return intent.Line
	case *engine.Histogram:
		return intent.Histogram
	case *engine.GroupSeries:
		return byCount(d.Len())
	case *engine.Frequencies:
		return byCount(d.Len())
	case *engine.RowSet:
		cols, rows := d.Table()
		roles := inferRoles(cols, rows)
		switch {
		case roles.label >= 0 && roles.dateLabel && roles.value >= 0:
			return intent.Line
		case roles.label < 0 && roles.value >= 0 && roles.second >= 0:
			return intent.Scatter
		case roles.label >= 0:
			return byCount(distinct(rows, roles.label))
		}
	}
	return intent.Bar
}

func byCount(n int) intent.ChartType {
	if n > 0 && n <= MaxPieSlices {
		return intent.Pie
	}
	return intent.Bar
}

func build(t intent.ChartType, p engine.Payload) (Config, error) {
	if p == nil || p.Len() == 0 {
		return Config{}, errShape
	}
	switch t {
	case intent.Scatter, intent.Bubble:
		return points(t, p)
	}
	labels, values, name, err := categories(p)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{Type: t, Labels: labels}
	switch t {
	case intent.Pie, intent.Doughnut:
		for _, v := range values {
			if v < 0 {
				return Config{}, errShape
			}
		}
		cfg.Colors = Palette(len(labels))
		cfg.ShowLegend = true
	default:
		cfg.Colors = Palette(1)
	}
	cfg.Datasets = []Series{{Label: name, Data: values, Color: cfg.Colors[0]}}
	return cfg, nil
}

// categories extracts one label and one value per category from p.
func categories(p engine.Payload) (labels []string, values []float64, name string, err error) {
	switch d := p.(type) {
	case *engine.GroupSeries:
		for _, g := range d.Groups {
			labels = append(labels, g.Key)
			values = append(values, g.Value)
		}
		return labels, values, seriesName(d), nil
	case *engine.Frequencies:
		for _, it := range d.Items {
			labels = append(labels, it.Value)
			values = append(values, float64(it.Count))
		}
		return labels, values, "Count", nil
	case *engine.Histogram:
		for _, b := range d.Bins {
			labels = append(labels, b.Label)
			values = append(values, float64(b.Count))
		}
		return labels, values, "Frequency", nil
	case *engine.TrendSeries:
		for _, pt := range d.Points {
			labels = append(labels, pt.X)
			values = append(values, pt.Y)
		}
		return labels, values, d.Y, nil
	case *engine.Aggregate:
		return []string{d.Column}, []float64{d.Value}, string(d.Operation), nil
	case *engine.RowSet:
		cols, rows := d.Table()
		roles := inferRoles(cols, rows)
		if roles.label < 0 || roles.value < 0 {
			return nil, nil, "", errShape
		}
		for _, r := range rows {
			v, ok := dataset.ParseNumber(r[roles.value])
			if !ok || r[roles.label] == "" {
				continue
			}
			labels = append(labels, r[roles.label])
			values = append(values, v)
		}
		if len(labels) == 0 {
			return nil, nil, "", errShape
		}
		return labels, values, cols[roles.value], nil
	}
	return nil, nil, "", errShape
}

func points(t intent.ChartType, p engine.Payload) (Config, error) {
	var ps *engine.PointSeries
	switch d := p.(type) {
	case *engine.PointSeries:
		ps = d
	case *engine.RowSet:
		cols, rows := d.Table()
		roles := inferRoles(cols, rows)
		if roles.value < 0 || roles.second < 0 {
			return Config{}, errShape
		}
		ps = &engine.PointSeries{X: cols[roles.value], Y: cols[roles.second]}
		for _, r := range rows {
			x, okX := dataset.ParseNumber(r[roles.value])
			y, okY := dataset.ParseNumber(r[roles.second])
			if okX && okY {
				ps.Points = append(ps.Points, engine.Point{X: x, Y: y})
			}
		}
	default:
		return Config{}, errShape
	}
	if len(ps.Points) == 0 {
		return Config{}, errShape
	}
	if t == intent.Bubble && ps.Size == "" {
		t = intent.Scatter
	}
	colors := Palette(1)
	return Config{
		Type:     t,
		Colors:   colors,
		Datasets: []Series{{Label: ps.Y + " vs " + ps.X, Points: ps.Points, Color: colors[0]}},
	}, nil
}

// fallbackBar counts rows per category, or plots rows by index when the
// table has no category column.
func fallbackBar(p engine.Payload) (Config, error) {
	if p == nil {
		return Config{}, errShape
	}
	cols, rows := p.Table()
	if len(cols) == 0 || len(rows) == 0 {
		return Config{}, errShape
	}
	roles := inferRoles(cols, rows)
	cfg := Config{Type: intent.Bar, Colors: Palette(1)}
	if roles.label >= 0 {
		counts := map[string]int{}
		for _, r := range rows {
			k := r[roles.label]
			if k == "" {
				continue
			}
			if counts[k] == 0 {
				cfg.Labels = append(cfg.Labels, k)
			}
			counts[k]++
		}
		data := make([]float64, len(cfg.Labels))
		for i, k := range cfg.Labels {
			data[i] = float64(counts[k])
		}
		cfg.Datasets = []Series{{Label: "Count", Data: data, Color: cfg.Colors[0]}}
		return cfg, nil
	}
	data := make([]float64, len(rows))
	label := "Row"
	for i, r := range rows {
		cfg.Labels = append(cfg.Labels, strconv.Itoa(i+1))
		data[i] = 1
		if roles.value >= 0 {
			data[i], _ = dataset.ParseNumber(r[roles.value])
		}
	}
	if roles.value >= 0 {
		label = cols[roles.value]
	}
	cfg.Datasets = []Series{{Label: label, Data: data, Color: cfg.Colors[0]}}
	return cfg, nil
}

var labelHints = []string{"name", "category", "group", "department", "type", "label", "region", "day", "week", "month", "segment"}

type roles struct {
	label     int
	dateLabel bool
	value     int
	second    int
}

// inferRoles picks the label column (a name hint, else the first mostly
// non-numeric column) and up to two numeric value columns.
func inferRoles(cols []string, rows [][]string) roles {
	r := roles{label: -1, value: -1, second: -1}
	numeric := make([]bool, len(cols))
	for i := range cols {
		numeric[i] = mostlyNumeric(rows, i)
	}
	for _, hint := range labelHints {
		for i, c := range cols {
			if !numeric[i] && strings.Contains(strings.ToLower(c), hint) {
				r.label = i
				break
			}
		}
		if r.label >= 0 {
			break
		}
	}
	if r.label < 0 {
		for i := range cols {
			if !numeric[i] {
				r.label = i
				break
			}
		}
	}
	for i := range cols {
		if !numeric[i] || i == r.label {
			continue
		}
		if r.value < 0 {
			r.value = i
		} else if r.second < 0 {
			r.second = i
		}
	}
	if r.label >= 0 {
		r.dateLabel = mostlyDates(rows, r.label)
	}
	return r
}

func mostlyNumeric(rows [][]string, i int) bool {
	n, ok := 0, 0
	for _, r := range rows {
		if i >= len(r) || r[i] == "" {
			continue
		}
		n++
		if _, isNum := dataset.ParseNumber(r[i]); isNum {
			ok++
		}
	}
	return n > 0 && float64(ok) >= 0.7*float64(n)
}

func mostlyDates(rows [][]string, i int) bool {
	n, ok := 0, 0
	for _, r := range rows {
		if i >= len(r) || r[i] == "" {
			continue
		}
		n++
		if _, isDate := dataset.ParseTime(r[i]); isDate {
			ok++
		}
	}
	return n > 0 && float64(ok) >= 0.7*float64(n)
}

func distinct(rows [][]string, i int) int {
	seen := map[string]struct{}{}
	for _, r := range rows {
		if r[i] != "" {
			seen[r[i]] = struct{}{}
		}
	}
	return len(seen)
}

func seriesName(g *engine.GroupSeries) string {
	switch g.Operation {
	case intent.Rate:
		return "Rate (%)"
	case intent.Count:
		return "Count"
	default:
		return fmt.Sprintf("%s of %s", titleCase(string(g.Operation)), g.ValueColumn)
	}
}

func decorate(cfg Config, res engine.Result, in intent.Intent) Config {
	cfg.Title = titleFor(res, in)
	x, y := axesFor(res.Data)
	cfg.XAxisLabel, cfg.YAxisLabel = x, y
	if in.XAxisLabel != "" {
		cfg.XAxisLabel = in.XAxisLabel
	}
	if in.YAxisLabel != "" {
		cfg.YAxisLabel = in.YAxisLabel
	}
	if cfg.Fallback {
		cfg.XAxisLabel, cfg.YAxisLabel = "", cfg.Datasets[0].Label
	}
	if len(cfg.Datasets) > 1 {
		cfg.ShowLegend = true
	}
	return cfg
}

func titleFor(res engine.Result, in intent.Intent) string {
	if in.Title != "" && !res.Failed() {
		return in.Title
	}
	switch d := res.Data.(type) {
	case *engine.Aggregate:
		return fmt.Sprintf("%s of %s", titleCase(string(d.Operation)), d.Column)
	case *engine.GroupSeries:
		return seriesName(d) + " by " + d.Column
	case *engine.PointSeries:
		return d.Y + " vs " + d.X
	case *engine.TrendSeries:
		return d.Y + " over " + d.X
	case *engine.Histogram:
		return "Distribution of " + d.Column
	case *engine.Frequencies:
		return "Distribution of " + d.Column
	}
	if res.Failed() {
		return "Sample data"
	}
	return "Query results"
}

func axesFor(p engine.Payload) (x, y string) {
	switch d := p.(type) {
	case *engine.Aggregate:
		return d.Column, string(d.Operation)
	case *engine.GroupSeries:
		return d.Column, seriesName(d)
	case *engine.PointSeries:
		return d.X, d.Y
	case *engine.TrendSeries:
		return d.X, d.Y
	case *engine.Histogram:
		return d.Column, "Frequency"
	case *engine.Frequencies:
		return d.Column, "Count"
	case *engine.RowSet:
		cols, rows := d.Table()
		r := inferRoles(cols, rows)
		if r.label >= 0 {
			x = cols[r.label]
		}
		if r.value >= 0 {
			y = cols[r.value]
		}
	}
	return x, y
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
