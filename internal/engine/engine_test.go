package engine_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/engine"
	"github.com/KaramelBytes/csvdash/internal/intent"
	"github.com/KaramelBytes/csvdash/internal/profile"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestAverageSalaryByDepartment(t *testing.T) {
	ds := dataset.Sample()
	set := profile.Profile(ds, profile.DefaultOptions())
	in := intent.Fallback(ds, set, "average salary by department", intent.DefaultRateHints())
	res := engine.Execute(ds, in)
	if res.Kind != engine.KindGroups || res.Chart != intent.Bar {
		t.Fatalf("kind=%s chart=%s err=%s", res.Kind, res.Chart, res.Error)
	}
	gs := res.Data.(*engine.GroupSeries)
	recs := gs.Records()
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	want := map[string]float64{"Engineering": 80500, "Marketing": 206000.0 / 3, "Sales": 181000.0 / 3}
	for _, r := range recs {
		if len(r) != 2 {
			t.Fatalf("record has extra fields: %v", r)
		}
		dept, _ := r["Department"].(string)
		v, _ := r["value"].(float64)
		if !near(v, want[dept]) {
			t.Errorf("%s: got %v want %v", dept, v, want[dept])
		}
	}
	if recs[0]["Department"] != "Engineering" {
		t.Fatalf("expected descending order, first=%v", recs[0])
	}
}

func emails() *dataset.Dataset {
	return dataset.New("emails.csv", []string{"Send_Date", "Segment", "Emails_Sent", "Opens"}, []dataset.Row{
		{"2024-01-01", "A", "1000", "100"},
		{"2024-01-01", "B", "10", "10"},
		{"2024-01-02", "A", "100", "20"},
		{"2024-01-02", "B", "100", "20"},
		{"not a date", "A", "500", "400"},
		{"2024-01-03", "B", "50", "5"},
	})
}

func TestRateIsRatioOfSums(t *testing.T) {
	in := intent.Intent{
		Type:      intent.GroupBy,
		Chart:     intent.Bar,
		DayOfWeek: "Send_Date",
		Rate:      &intent.RateSpec{Numerator: "Opens", Denominator: "Emails_Sent"},
	}
	res := engine.Execute(emails(), in)
	if res.Kind != engine.KindGroups {
		t.Fatalf("kind=%s err=%s", res.Kind, res.Error)
	}
	gs := res.Data.(*engine.GroupSeries)
	if gs.Column != intent.WeekdayKey || gs.Operation != intent.Rate {
		t.Fatalf("column=%q op=%q", gs.Column, gs.Operation)
	}
	byKey := map[string]engine.Group{}
	total := 0
	for _, g := range gs.Groups {
		byKey[g.Key] = g
		total += g.Count
	}
	if len(byKey) != 3 || total != 5 {
		t.Fatalf("groups=%v total=%d", gs.Groups, total)
	}
	mon, ok := byKey["Monday"]
	if !ok {
		t.Fatalf("no Monday group: %v", gs.Groups)
	}
	// 110 opens over 1010 sends, not the 55% mean of the per-row rates.
	if !near(mon.Value, 110.0/1010.0*100) || mon.Numerator != 110 || mon.Denominator != 1010 {
		t.Fatalf("monday=%+v", mon)
	}
	if gs.Groups[0].Key != "Tuesday" || !near(gs.Groups[0].Value, 20) {
		t.Fatalf("expected Tuesday first, got %+v", gs.Groups[0])
	}
	for _, k := range []string{"Invalid Date", "Unknown", ""} {
		if _, ok := byKey[k]; ok {
			t.Fatalf("unparseable dates produced group %q", k)
		}
	}
	if !strings.Contains(res.Summary, "Tuesday") {
		t.Fatalf("summary=%q", res.Summary)
	}
}

func TestGroupLimitAndOrder(t *testing.T) {
	ds := dataset.Sample()
	in := intent.Intent{Type: intent.GroupBy, GroupBy: "Department", Value: "Salary", Operation: intent.Sum, SortOrder: intent.Asc, Limit: 2}
	gs := engine.Execute(ds, in).Data.(*engine.GroupSeries)
	if len(gs.Groups) != 2 || gs.Groups[0].Key != "Sales" || gs.Groups[1].Key != "Marketing" {
		t.Fatalf("groups=%+v", gs.Groups)
	}
	in = intent.Intent{Type: intent.GroupBy, GroupBy: "Department", Operation: intent.Count}
	gs = engine.Execute(ds, in).Data.(*engine.GroupSeries)
	if gs.Groups[0].Key != "Engineering" || gs.Groups[0].Value != 4 {
		t.Fatalf("count groups=%+v", gs.Groups)
	}
}

func TestBinsCountEveryValue(t *testing.T) {
	seq := func(n int) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = float64(i + 1)
		}
		return out
	}
	cases := []struct {
		name string
		vals []float64
		bins int
	}{
		{"hundred", seq(100), 10},
		{"five", seq(5), 3},
		{"constant", []float64{5, 5, 5}, 1},
		{"negative", []float64{-3.5, -1, 0, 2.25, 7, 7}, 3},
		{"wide", seq(1000), 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := engine.Bins("v", tc.vals)
			if len(h.Bins) != tc.bins {
				t.Fatalf("bins=%d want %d", len(h.Bins), tc.bins)
			}
			sum := 0
			for _, b := range h.Bins {
				sum += b.Count
			}
			if sum != len(tc.vals) {
				t.Fatalf("bin counts sum to %d, want %d", sum, len(tc.vals))
			}
			last := h.Bins[len(h.Bins)-1]
			if last.Count == 0 || last.Hi != h.Max {
				t.Fatalf("max value not in last bin: %+v", last)
			}
		})
	}
}

func TestAggregateOperations(t *testing.T) {
	ds := dataset.Sample()
	cases := []struct {
		op   intent.Operation
		want float64
	}{
		{intent.Mean, 70900},
		{intent.Sum, 709000},
		{intent.Max, 95000},
		{intent.Min, 55000},
		{intent.Count, 10},
	}
	for _, tc := range cases {
		res := engine.Execute(ds, intent.Intent{Type: intent.Aggregation, Value: "salary", Operation: tc.op, Chart: intent.Bar})
		agg, ok := res.Data.(*engine.Aggregate)
		if !ok || res.Kind != engine.KindAggregate {
			t.Fatalf("%s: kind=%s err=%s", tc.op, res.Kind, res.Error)
		}
		if agg.Column != "Salary" || !near(agg.Value, tc.want) {
			t.Errorf("%s: got %s=%v want %v", tc.op, agg.Column, agg.Value, tc.want)
		}
	}
}

func TestExecutionErrorsDegrade(t *testing.T) {
	ds := dataset.Sample()
	cases := []struct {
		name string
		in   intent.Intent
		err  string
	}{
		{"non numeric", intent.Intent{Query: "avg name", Type: intent.Aggregation, Value: "Name", Chart: intent.Pie}, "no numeric values"},
		{"missing group", intent.Intent{Type: intent.GroupBy, GroupBy: "Region", Chart: intent.Bar}, "column not found"},
		{"missing trend y", intent.Intent{Type: intent.Trend, X: "Age", Chart: intent.Line}, "column not found"},
		{"bad filter", intent.Intent{Type: intent.Filter, Filters: map[string]string{"Salary": "> 1000000"}}, "no rows match"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := engine.Execute(ds, tc.in)
			if !res.Failed() || res.Chart != intent.Bar {
				t.Fatalf("kind=%s chart=%s", res.Kind, res.Chart)
			}
			if !strings.Contains(res.Error, tc.err) {
				t.Fatalf("error=%q want %q", res.Error, tc.err)
			}
			rows, ok := res.Data.(*engine.RowSet)
			if !ok || rows.Len() != ds.Len() {
				t.Fatalf("expected sample rows, got %#v", res.Data)
			}
		})
	}
}

func TestFilterRowsCapped(t *testing.T) {
	var rows []dataset.Row
	for i := 0; i < 150; i++ {
		v := fmt.Sprint(i)
		if i%10 == 0 {
			v = ""
		}
		rows = append(rows, dataset.Row{fmt.Sprintf("id%d", i), v})
	}
	ds := dataset.New("big.csv", []string{"ID", "Value"}, rows)
	res := engine.Execute(ds, intent.Intent{Type: intent.Filter, Columns: []string{"Value"}, Chart: intent.Bar})
	rs := res.Data.(*engine.RowSet)
	if rs.Len() != engine.MaxRows || rs.Total != 135 {
		t.Fatalf("len=%d total=%d", rs.Len(), rs.Total)
	}
}

func TestFilterConditions(t *testing.T) {
	ds := dataset.Sample()
	res := engine.Execute(ds, intent.Intent{
		Type:    intent.Filter,
		Columns: []string{"Name"},
		Filters: map[string]string{"Salary": ">70000", "Department": "!= marketing"},
	})
	rs := res.Data.(*engine.RowSet)
	if rs.Total != 3 {
		t.Fatalf("total=%d rows=%v", rs.Total, rs.Rows)
	}

	cases := []struct {
		expr, cell string
		want       bool
	}{
		{">= 10", "10", true},
		{"<10", "9.5", true},
		{"= Sales", "sales", true},
		{"==5", "5.0", true},
		{"!=5", "6", true},
		{"'Engineering'", "Engineering", true},
		{">b", "a", false},
		{"= x", "", false},
	}
	for _, tc := range cases {
		if got := engine.ParseCondition(tc.expr).Match(tc.cell); got != tc.want {
			t.Errorf("%q on %q: got %v", tc.expr, tc.cell, got)
		}
	}
}

func TestTopN(t *testing.T) {
	ds := dataset.Sample()
	res := engine.Execute(ds, intent.Intent{Type: intent.Sort, Value: "Salary", SortOrder: intent.Desc, Limit: 3})
	rs := res.Data.(*engine.RowSet)
	var names []string
	for _, r := range rs.Rows {
		names = append(names, r[0])
	}
	if strings.Join(names, ",") != "Mike Johnson,Lisa Garcia,John Smith" {
		t.Fatalf("top 3: %v", names)
	}
	res = engine.Execute(ds, intent.Intent{Type: intent.Sort, Value: "Salary", SortOrder: intent.Asc, Limit: 2})
	rs = res.Data.(*engine.RowSet)
	if rs.Rows[0][0] != "Sarah Wilson" || rs.Rows[1][0] != "Amy Taylor" {
		t.Fatalf("bottom 2: %v", rs.Rows)
	}
}

func TestCorrelationPoints(t *testing.T) {
	ds := dataset.Sample()
	res := engine.Execute(ds, intent.Intent{Type: intent.Correlation, X: "Age", Y: "Salary", Chart: intent.Scatter})
	ps := res.Data.(*engine.PointSeries)
	if ps.Len() != 10 || ps.Points[0].X != 28 || ps.Points[0].Y != 75000 || ps.Points[0].Size != nil {
		t.Fatalf("points=%+v", ps.Points)
	}
	res = engine.Execute(ds, intent.Intent{Type: intent.Correlation, X: "Age", Y: "Salary", Size: "Years_Experience", Chart: intent.Bubble})
	ps = res.Data.(*engine.PointSeries)
	if ps.Points[0].Size == nil || *ps.Points[0].Size != 3 || res.Chart != intent.Bubble {
		t.Fatalf("bubble points=%+v", ps.Points[0])
	}
}

func TestTrendOrdering(t *testing.T) {
	ds := dataset.New("t.csv", []string{"Month", "Sales"}, []dataset.Row{
		{"2024-03-01", "30"},
		{"2024-01-01", "10"},
		{"", "99"},
		{"2024-02-01", "20"},
		{"2024-04-01", "n/a"},
	})
	res := engine.Execute(ds, intent.Intent{Type: intent.Trend, X: "Month", Y: "Sales", Chart: intent.Line})
	ts := res.Data.(*engine.TrendSeries)
	if ts.Len() != 3 || ts.Points[0].X != "2024-01-01" || ts.Points[2].Y != 30 {
		t.Fatalf("points=%+v", ts.Points)
	}

	ds = dataset.New("n.csv", []string{"Step", "Score"}, []dataset.Row{{"10", "1"}, {"9", "2"}, {"100", "3"}})
	ts = engine.Execute(ds, intent.Intent{Type: intent.Trend, X: "Step", Y: "Score"}).Data.(*engine.TrendSeries)
	if ts.Points[0].X != "9" || ts.Points[2].X != "100" {
		t.Fatalf("numeric x not ordered: %+v", ts.Points)
	}
}

func TestDistribution(t *testing.T) {
	ds := dataset.Sample()
	res := engine.Execute(ds, intent.Intent{Type: intent.Distribution, Value: "Department", Chart: intent.Histogram})
	f, ok := res.Data.(*engine.Frequencies)
	if !ok || res.Chart != intent.Bar {
		t.Fatalf("kind=%s chart=%s", res.Kind, res.Chart)
	}
	if f.Items[0].Value != "Engineering" || f.Items[0].Count != 4 || f.Items[1].Value != "Marketing" {
		t.Fatalf("items=%+v", f.Items)
	}
	res = engine.Execute(ds, intent.Intent{Type: intent.Distribution, Value: "Age", Chart: intent.Histogram})
	h := res.Data.(*engine.Histogram)
	if h.Total != 10 || len(h.Bins) != 4 || h.Min != 26 || h.Max != 45 {
		t.Fatalf("histogram=%+v", h)
	}
}

func TestResultExportRoundTrip(t *testing.T) {
	ds := dataset.Sample()
	res := engine.Execute(ds, intent.Intent{Type: intent.Filter, Columns: []string{"Name"}, Filters: map[string]string{"Department": "Sales"}})
	view := res.Dataset("sales.csv")
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, view); err != nil {
		t.Fatal(err)
	}
	back, _, err := dataset.Read(&buf, "sales.csv", dataset.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(back.Columns, ",") != strings.Join(view.Columns, ",") || back.Len() != 3 {
		t.Fatalf("columns=%v rows=%d", back.Columns, back.Len())
	}
	for i := range view.Rows {
		if strings.Join(back.Rows[i], "|") != strings.Join(view.Rows[i], "|") {
			t.Fatalf("row %d: %v != %v", i, back.Rows[i], view.Rows[i])
		}
	}
}

func TestBinsExtremeRange(t *testing.T) {
	h := engine.Bins("v", []float64{-1e308, 0, 1e308})
	total := 0
	for _, b := range h.Bins {
		if math.IsInf(b.Lo, 0) || math.IsNaN(b.Lo) || math.IsInf(b.Hi, 0) || math.IsNaN(b.Hi) {
			t.Fatalf("non-finite bin %+v", b)
		}
		total += b.Count
	}
	if total != 3 || h.Bins[0].Lo != -1e308 || h.Bins[len(h.Bins)-1].Hi != 1e308 {
		t.Fatalf("bins=%+v", h.Bins)
	}
	if _, err := json.Marshal(h); err != nil {
		t.Fatalf("marshal: %v", err)
	}
}
