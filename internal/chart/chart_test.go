package chart_test

import (
	"fmt"
	"testing"

	"github.com/KaramelBytes/csvdash/internal/chart"
	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/engine"
	"github.com/KaramelBytes/csvdash/internal/intent"
	"github.com/KaramelBytes/csvdash/internal/profile"
)

func run(t *testing.T, query string) (engine.Result, intent.Intent) {
	t.Helper()
	ds := dataset.Sample()
	set := profile.Profile(ds, profile.DefaultOptions())
	in := intent.Fallback(ds, set, query, intent.DefaultRateHints())
	return engine.Execute(ds, in), in
}

func TestSelectGroupedBar(t *testing.T) {
	res, in := run(t, "average salary by department")
	cfg := chart.Select(res, in)
	if cfg.Type != intent.Bar || cfg.Fallback || !cfg.Available() {
		t.Fatalf("cfg=%+v", cfg)
	}
	if len(cfg.Labels) != 3 || len(cfg.Datasets) != 1 || len(cfg.Datasets[0].Data) != 3 {
		t.Fatalf("labels=%v datasets=%+v", cfg.Labels, cfg.Datasets)
	}
	if cfg.Title != "Mean of Salary by Department" || cfg.XAxisLabel != "Department" {
		t.Fatalf("title=%q x=%q", cfg.Title, cfg.XAxisLabel)
	}
}

func TestSelectHonorsRequestedType(t *testing.T) {
	res, in := run(t, "correlation between age and salary")
	cfg := chart.Select(res, in)
	if cfg.Type != intent.Scatter || len(cfg.Datasets[0].Points) != 10 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.XAxisLabel != "Age" || cfg.YAxisLabel != "Salary" {
		t.Fatalf("axes %q/%q", cfg.XAxisLabel, cfg.YAxisLabel)
	}

	in.Title, in.YAxisLabel = "Pay against age", "Annual pay"
	cfg = chart.Select(res, in)
	if cfg.Title != "Pay against age" || cfg.YAxisLabel != "Annual pay" {
		t.Fatalf("labels not taken from intent: %+v", cfg)
	}
}

func TestSelectByShape(t *testing.T) {
	groups := func(n int) *engine.GroupSeries {
		gs := &engine.GroupSeries{Column: "k", Operation: intent.Count}
		for i := 0; i < n; i++ {
			gs.Groups = append(gs.Groups, engine.Group{Key: fmt.Sprint(i), Value: float64(n - i), Count: n - i})
		}
		return gs
	}
	cases := []struct {
		name string
		data engine.Payload
		want intent.ChartType
	}{
		{"few groups", groups(4), intent.Pie},
		{"many groups", groups(8), intent.Bar},
		{"points", &engine.PointSeries{X: "a", Y: "b", Points: []engine.Point{{X: 1, Y: 2}}}, intent.Scatter},
		{"trend", &engine.TrendSeries{X: "d", Y: "v", Points: []engine.TrendPoint{{X: "2024", Y: 1}}}, intent.Line},
		{"histogram", engine.Bins("v", []float64{1, 2, 3, 4}), intent.Histogram},
		{"dated rows", &engine.RowSet{Columns: []string{"Date", "Sales"}, Rows: []dataset.Row{{"2024-01-01", "3"}, {"2024-01-02", "4"}}}, intent.Line},
		{"numeric rows", &engine.RowSet{Columns: []string{"A", "B"}, Rows: []dataset.Row{{"1", "3"}, {"2", "4"}}}, intent.Scatter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := chart.ByShape(tc.data); got != tc.want {
				t.Fatalf("ByShape=%s want %s", got, tc.want)
			}
			cfg := chart.Select(engine.Result{Kind: tc.data.Kind(), Data: tc.data}, intent.Intent{})
			if cfg.Type != tc.want || cfg.Fallback {
				t.Fatalf("Select type=%s fallback=%v", cfg.Type, cfg.Fallback)
			}
		})
	}
}

func TestPieColorsPerSlice(t *testing.T) {
	res, in := run(t, "group by department")
	in.Chart = intent.Pie
	res.Chart = intent.Pie
	cfg := chart.Select(res, in)
	if cfg.Type != intent.Pie || len(cfg.Colors) != 3 || !cfg.ShowLegend {
		t.Fatalf("cfg=%+v", cfg)
	}
	if got := chart.Palette(12); got[10] != got[0] || len(got) != 12 {
		t.Fatalf("palette does not cycle: %v", got)
	}
}

func TestSelectFallsBackToBar(t *testing.T) {
	// A pie cannot be drawn from point pairs.
	res, in := run(t, "correlation between age and salary")
	res.Chart = intent.Pie
	cfg := chart.Select(res, in)
	if cfg.Type != intent.Bar || !cfg.Fallback {
		t.Fatalf("cfg=%+v", cfg)
	}
	if len(cfg.Labels) != 10 || cfg.Labels[0] != "1" || cfg.Datasets[0].Data[0] != 28 {
		t.Fatalf("row index fallback: labels=%v data=%v", cfg.Labels, cfg.Datasets[0].Data)
	}

	// Negative slices cannot form a pie; rows are counted per category instead.
	rows := &engine.RowSet{Columns: []string{"Region", "Delta"}, Rows: []dataset.Row{{"N", "-3"}, {"S", "4"}, {"N", "1"}}}
	cfg = chart.Select(engine.Result{Kind: engine.KindRows, Chart: intent.Pie, Data: rows}, intent.Intent{Chart: intent.Pie})
	if cfg.Type != intent.Bar || !cfg.Fallback || len(cfg.Labels) != 2 || cfg.Datasets[0].Data[0] != 2 {
		t.Fatalf("count fallback: %+v", cfg)
	}
}

func TestDegradedResultStillCharts(t *testing.T) {
	ds := dataset.Sample()
	res := engine.Execute(ds, intent.Intent{Query: "x", Type: intent.Aggregation, Value: "Name", Chart: intent.Line})
	cfg := chart.Select(res, intent.Intent{Chart: intent.Line, Title: "ignored"})
	if cfg.Type != intent.Bar || cfg.Title != "Sample data" {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.XAxisLabel != "Name" || cfg.YAxisLabel != "Age" {
		t.Fatalf("axes %q/%q", cfg.XAxisLabel, cfg.YAxisLabel)
	}
}

func TestNothingToChart(t *testing.T) {
	res := engine.Result{Kind: engine.KindRows, Chart: intent.Bar, Data: &engine.RowSet{Columns: []string{"A"}}}
	cfg := chart.Select(res, intent.Intent{})
	if cfg.Available() || cfg.Notice != chart.Unavailable {
		t.Fatalf("cfg=%+v", cfg)
	}
}
