package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/intent"
)

// MaxBins caps the number of histogram bins.
const MaxBins = 10

func trend(ds *dataset.Dataset, in intent.Intent) (Result, error) {
	xi, err := column(ds, in.X)
	if err != nil {
		return Result{}, err
	}
	yi, err := column(ds, in.Y)
	if err != nil {
		return Result{}, err
	}
	ts := &TrendSeries{X: ds.Columns[xi], Y: ds.Columns[yi]}
	for _, r := range ds.Rows {
		if r[xi] == "" {
			continue
		}
		if y, ok := dataset.ParseNumber(r[yi]); ok {
			ts.Points = append(ts.Points, TrendPoint{X: r[xi], Y: y})
		}
	}
	if len(ts.Points) == 0 {
		return Result{}, fmt.Errorf("%w in %s", ErrNoNumericData, ts.Y)
	}
	sortByX(ts.Points)
	return Result{
		Kind:    KindTrend,
		Summary: fmt.Sprintf("Trend analysis of %s over %s: %d data points", ts.Y, ts.X, len(ts.Points)),
		Data:    ts,
	}, nil
}

// sortByX orders points as dates when every x parses as one, else as numbers
// when every x is numeric, else lexically.
func sortByX(pts []TrendPoint) {
	times := make([]time.Time, len(pts))
	nums := make([]float64, len(pts))
	allTimes, allNums := true, true
	for i, p := range pts {
		if allTimes {
			times[i], allTimes = dataset.ParseTime(p.X)
		}
		if allNums {
			nums[i], allNums = dataset.ParseNumber(p.X)
		}
	}
	idx := make([]int, len(pts))
	for i := range idx {
		idx[i] = i
	}
	var less func(a, b int) bool
	switch {
	case allTimes:
		less = func(a, b int) bool { return times[a].Before(times[b]) }
	case allNums:
		less = func(a, b int) bool { return nums[a] < nums[b] }
	default:
		less = func(a, b int) bool { return pts[a].X < pts[b].X }
	}
	sort.SliceStable(idx, func(i, j int) bool { return less(idx[i], idx[j]) })
	sorted := make([]TrendPoint, len(pts))
	for i, k := range idx {
		sorted[i] = pts[k]
	}
	copy(pts, sorted)
}

// distribution bins numeric columns and counts categorical ones. A column is
// numeric when at least 70% of its non-null cells parse as numbers.
func distribution(ds *dataset.Dataset, in intent.Intent) (Result, error) {
	col := in.Value
	if col == "" && len(in.Columns) > 0 {
		col = in.Columns[0]
	}
	idx, err := column(ds, col)
	if err != nil {
		return Result{}, err
	}
	col = ds.Columns[idx]
	var raw []string
	var vals []float64
	for _, r := range ds.Rows {
		if r[idx] == "" {
			continue
		}
		raw = append(raw, r[idx])
		if v, ok := dataset.ParseNumber(r[idx]); ok {
			vals = append(vals, v)
		}
	}
	if len(raw) == 0 {
		return Result{}, fmt.Errorf("%w: %s is empty", ErrNoRows, col)
	}
	if float64(len(vals)) >= 0.7*float64(len(raw)) {
		h := Bins(col, vals)
		chart := in.Chart
		if chart == "" {
			chart = intent.Histogram
		}
		return Result{
			Kind:    KindHistogram,
			Chart:   chart,
			Summary: fmt.Sprintf("Distribution of %s: %d values from %s to %s", col, h.Total, fixed2(h.Min), fixed2(h.Max)),
			Data:    h,
		}, nil
	}
	f := CountValues(col, raw)
	chart := in.Chart
	if chart == intent.Histogram || chart == "" {
		chart = intent.Bar
	}
	return Result{
		Kind:    KindFrequencies,
		Chart:   chart,
		Summary: fmt.Sprintf("Distribution of %s: %d unique values", col, len(f.Items)),
		Data:    f,
	}, nil
}

// Bins splits vals into min(10, ceil(sqrt(n))) equal-width bins over
// [min, max]. Every value lands in exactly one bin; the last bin is closed.
func Bins(col string, vals []float64) *Histogram {
	h := &Histogram{Column: col, Total: len(vals)}
	if len(vals) == 0 {
		return h
	}
	h.Min, h.Max = vals[0], vals[0]
	for _, v := range vals {
		h.Min = math.Min(h.Min, v)
		h.Max = math.Max(h.Max, v)
	}
	k := int(math.Ceil(math.Sqrt(float64(len(vals)))))
	if k > MaxBins {
		k = MaxBins
	}
	// Half-width arithmetic keeps the span finite for values near ±MaxFloat64.
	half := (h.Max/2 - h.Min/2) / float64(k)
	if half == 0 {
		k = 1
	}
	edge := func(i int) float64 {
		return h.Min + float64(i)*half + float64(i)*half
	}
	h.Bins = make([]Bin, k)
	for i := range h.Bins {
		lo, hi := edge(i), edge(i+1)
		if i == k-1 {
			hi = h.Max
		}
		h.Bins[i] = Bin{Label: fmt.Sprintf("%.1f-%.1f", lo, hi), Lo: lo, Hi: hi}
	}
	for _, v := range vals {
		i := k - 1
		if half > 0 {
			i = int(math.Floor((v/2 - h.Min/2) / half))
		}
		if i >= k {
			i = k - 1
		}
		if i < 0 {
			i = 0
		}
		h.Bins[i].Count++
	}
	return h
}

// CountValues counts each distinct value, most frequent first and ties in
// lexical order.
func CountValues(col string, raw []string) *Frequencies {
	counts := map[string]int{}
	for _, v := range raw {
		counts[v]++
	}
	f := &Frequencies{Column: col, Items: make([]Frequency, 0, len(counts))}
	for v, n := range counts {
		f.Items = append(f.Items, Frequency{Value: v, Count: n})
	}
	sort.Slice(f.Items, func(i, j int) bool {
		if f.Items[i].Count != f.Items[j].Count {
			return f.Items[i].Count > f.Items[j].Count
		}
		return f.Items[i].Value < f.Items[j].Value
	})
	return f
}
