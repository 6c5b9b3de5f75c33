package profile_test

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/profile"
)

func mustRead(t *testing.T, csv string) *dataset.Dataset {
	t.Helper()
	ds, _, err := dataset.Read(strings.NewReader(csv), "t.csv", dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return ds
}

func TestProfileSampleTypesAndStats(t *testing.T) {
	set := profile.Profile(dataset.Sample(), profile.DefaultOptions())
	want := map[string]profile.Type{
		"Name":              profile.Text,
		"Age":               profile.Numeric,
		"Department":        profile.Categorical,
		"Salary":            profile.Numeric,
		"Years_Experience":  profile.Numeric,
		"Performance_Score": profile.Numeric,
	}
	for name, typ := range want {
		if got := set.TypeOf(name); got != typ {
			t.Errorf("%s: got %s want %s", name, got, typ)
		}
	}
	sal, ok := set.Get("salary")
	if !ok || sal.Stats == nil {
		t.Fatalf("expected salary stats")
	}
	s := sal.Stats
	if s.Min != 55000 || s.Max != 95000 || s.Mean != 70900 || s.Median != 69500 || s.Count != 10 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if s.StdDev <= 0 || math.IsNaN(s.StdDev) {
		t.Fatalf("bad stddev: %v", s.StdDev)
	}
	if got := set.Names(profile.Categorical); !reflect.DeepEqual(got, []string{"Department"}) {
		t.Fatalf("categorical names: %v", got)
	}
	if !reflect.DeepEqual(set.AnalysisTypes, []string{"correlation", "statistical", "categorical", "comparative"}) {
		t.Fatalf("analysis types: %v", set.AnalysisTypes)
	}
}

func TestProfileIsIdempotent(t *testing.T) {
	ds := dataset.Sample()
	a := profile.Profile(ds, profile.DefaultOptions())
	b := profile.Profile(ds, profile.DefaultOptions())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("profiles differ between runs")
	}
}

func TestDetectDateBooleanText(t *testing.T) {
	ds := mustRead(t, strings.Join([]string{
		"Order_Date,Active,Code,Weekday",
		"2024-01-01,yes,A1,Monday",
		"2024-01-02,no,B2,Tuesday",
		"2024-01-03,yes,C3,Wednesday",
		"2024-01-04,yes,D4,Thursday",
		"2024-01-05,no,E5,Friday",
	}, "\n"))
	set := profile.Profile(ds, profile.DefaultOptions())
	cases := map[string]profile.Type{
		"Order_Date": profile.Date,
		"Active":     profile.Boolean,
		"Code":       profile.Text,
		"Weekday":    profile.Text,
	}
	for name, typ := range cases {
		if got := set.TypeOf(name); got != typ {
			t.Errorf("%s: got %s want %s", name, got, typ)
		}
	}
}

func TestColumnQualityAndUsefulness(t *testing.T) {
	var b strings.Builder
	b.WriteString("ID,Const,Sparse,Label\n")
	for i := 0; i < 120; i++ {
		sparse := ""
		if i%3 == 0 {
			sparse = "x"
		}
		fmt.Fprintf(&b, "%d,same,%s,name%d\n", i, sparse, i)
	}
	set := profile.Profile(mustRead(t, b.String()), profile.DefaultOptions())

	id, _ := set.Get("ID")
	if id.Quality != "excellent" {
		t.Errorf("ID quality: %s", id.Quality)
	}
	c, _ := set.Get("Const")
	if c.Quality != "poor" || c.Useful {
		t.Errorf("Const: quality=%s useful=%v", c.Quality, c.Useful)
	}
	sp, _ := set.Get("Sparse")
	if sp.Quality != "poor" || sp.NullPercentage < 60 {
		t.Errorf("Sparse: quality=%s null=%.1f", sp.Quality, sp.NullPercentage)
	}
	lbl, _ := set.Get("Label")
	if lbl.Type != profile.Text || lbl.Useful {
		t.Errorf("Label: type=%s useful=%v", lbl.Type, lbl.Useful)
	}
}

func TestTagsAndKPIs(t *testing.T) {
	cases := map[string][]string{
		"Total_Revenue": {profile.TagFinancial},
		"Region":        {profile.TagGeographic},
		"Order Status":  {profile.TagStatus},
		"Name":          nil,
	}
	for name, want := range cases {
		if got := profile.Tags(name); !reflect.DeepEqual(got, want) {
			t.Errorf("Tags(%q) = %v want %v", name, got, want)
		}
	}

	ds := dataset.Sample()
	kpis := profile.KPIs(ds, profile.Profile(ds, profile.DefaultOptions()))
	if len(kpis) != 3 {
		t.Fatalf("expected 3 KPIs, got %d", len(kpis))
	}
	if kpis[0].Value != "10" || kpis[1].Value != "6" || kpis[2].Name != "Avg Age" || kpis[2].Value != "33.70" {
		t.Fatalf("unexpected KPIs: %+v", kpis)
	}
	if got := profile.FormatCount(1234567); got != "1,234,567" {
		t.Fatalf("FormatCount: %s", got)
	}
}
