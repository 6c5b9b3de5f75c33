package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/intent"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrNoNumericData  = errors.New("no numeric values")
	ErrNoGroups       = errors.New("no valid groups")
	ErrNoRows         = errors.New("no rows match")
)

const (
	// MaxRows caps row-valued results.
	MaxRows = 100
	// SampleRows is the size of the sample attached to a degraded result.
	SampleRows = 20
)

// Execute runs in against ds. It never fails: an execution error yields a
// KindError result holding a sample of the data and an explanation.
func Execute(ds *dataset.Dataset, in intent.Intent) Result {
	if len(in.Filters) > 0 {
		filtered, err := applyFilters(ds, in.Filters)
		if err != nil {
			return degraded(ds, in, err)
		}
		ds = filtered
	}
	var (
		res Result
		err error
	)
	switch in.Type {
	case intent.Aggregation:
		res, err = aggregate(ds, in)
	case intent.GroupBy:
		res, err = groupBy(ds, in)
	case intent.Correlation:
		res, err = correlation(ds, in)
	case intent.Trend:
		res, err = trend(ds, in)
	case intent.Distribution:
		res, err = distribution(ds, in)
	case intent.Sort:
		res, err = topN(ds, in)
	default:
		res, err = filterRows(ds, in)
	}
	if err != nil {
		return degraded(ds, in, err)
	}
	res.Type = in.Type
	if res.Chart == "" {
		res.Chart = in.Chart
	}
	return res
}

func degraded(ds *dataset.Dataset, in intent.Intent, err error) Result {
	return Result{
		Kind:    KindError,
		Type:    in.Type,
		Chart:   intent.Bar,
		Summary: fmt.Sprintf("Could not process %q: showing sample data instead", in.Query),
		Error:   err.Error(),
		Data:    &RowSet{Columns: ds.Columns, Rows: ds.Head(SampleRows), Total: ds.Len()},
	}
}

func column(ds *dataset.Dataset, name string) (int, error) {
	if name == "" {
		return -1, fmt.Errorf("%w: no column given", ErrColumnNotFound)
	}
	i := ds.Index(name)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return i, nil
}

func numbers(ds *dataset.Dataset, idx int) []float64 {
	var out []float64
	for _, r := range ds.Rows {
		if v, ok := dataset.ParseNumber(r[idx]); ok {
			out = append(out, v)
		}
	}
	return out
}

func apply(op intent.Operation, vals []float64) float64 {
	switch op {
	case intent.Sum:
		return sum(vals)
	case intent.Max:
		m := math.Inf(-1)
		for _, v := range vals {
			m = math.Max(m, v)
		}
		return m
	case intent.Min:
		m := math.Inf(1)
		for _, v := range vals {
			m = math.Min(m, v)
		}
		return m
	case intent.Count:
		return float64(len(vals))
	default:
		return sum(vals) / float64(len(vals))
	}
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func aggregate(ds *dataset.Dataset, in intent.Intent) (Result, error) {
	col := in.Value
	if col == "" && len(in.Columns) > 0 {
		col = in.Columns[0]
	}
	idx, err := column(ds, col)
	if err != nil {
		return Result{}, err
	}
	col = ds.Columns[idx]
	vals := numbers(ds, idx)
	if len(vals) == 0 {
		return Result{}, fmt.Errorf("%w in %s", ErrNoNumericData, col)
	}
	op := in.Operation
	if op == "" || op == intent.Rate {
		op = intent.Mean
	}
	v := apply(op, vals)
	return Result{
		Kind:    KindAggregate,
		Summary: fmt.Sprintf("%s of %s: %s", op, col, fixed2(v)),
		Data:    &Aggregate{Column: col, Operation: op, Value: v, Count: len(vals)},
	}, nil
}

func filterRows(ds *dataset.Dataset, in intent.Intent) (Result, error) {
	cols := in.Columns
	if len(cols) == 0 && len(ds.Columns) > 0 {
		cols = ds.Columns[:1]
	}
	idx := make([]int, 0, len(cols))
	for _, c := range cols {
		i, err := column(ds, c)
		if err != nil {
			return Result{}, err
		}
		idx = append(idx, i)
	}
	var rows []dataset.Row
	total := 0
	for _, r := range ds.Rows {
		keep := true
		for _, i := range idx {
			if strings.TrimSpace(r[i]) == "" {
				keep = false
				break
			}
		}
		if !keep {
			continue
		}
		total++
		if len(rows) < MaxRows {
			rows = append(rows, r)
		}
	}
	return Result{
		Kind:    KindRows,
		Summary: fmt.Sprintf("Filtered data: %d records match the criteria", total),
		Data:    &RowSet{Columns: ds.Columns, Rows: rows, Total: total},
	}, nil
}

func topN(ds *dataset.Dataset, in intent.Intent) (Result, error) {
	idx, err := column(ds, in.Value)
	if err != nil {
		return Result{}, err
	}
	type keyed struct {
		v   float64
		row dataset.Row
	}
	var rows []keyed
	for _, r := range ds.Rows {
		if v, ok := dataset.ParseNumber(r[idx]); ok {
			rows = append(rows, keyed{v, r})
		}
	}
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("%w in %s", ErrNoNumericData, ds.Columns[idx])
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if in.SortOrder == intent.Asc {
			return rows[i].v < rows[j].v
		}
		return rows[i].v > rows[j].v
	})
	n := in.Limit
	if n <= 0 {
		n = 10
	}
	if n > len(rows) {
		n = len(rows)
	}
	out := make([]dataset.Row, n)
	for i := range out {
		out[i] = rows[i].row
	}
	word := "Top"
	if in.SortOrder == intent.Asc {
		word = "Bottom"
	}
	return Result{
		Kind:    KindRows,
		Summary: fmt.Sprintf("%s %d records by %s", word, n, ds.Columns[idx]),
		Data:    &RowSet{Columns: ds.Columns, Rows: out, Total: len(rows)},
	}, nil
}

func correlation(ds *dataset.Dataset, in intent.Intent) (Result, error) {
	xi, err := column(ds, in.X)
	if err != nil {
		return Result{}, err
	}
	yi, err := column(ds, in.Y)
	if err != nil {
		return Result{}, err
	}
	si := -1
	if in.Size != "" {
		if si, err = column(ds, in.Size); err != nil {
			return Result{}, err
		}
	}
	ps := &PointSeries{X: ds.Columns[xi], Y: ds.Columns[yi]}
	if si >= 0 {
		ps.Size = ds.Columns[si]
	}
	for _, r := range ds.Rows {
		x, okX := dataset.ParseNumber(r[xi])
		y, okY := dataset.ParseNumber(r[yi])
		if !okX || !okY {
			continue
		}
		p := Point{X: x, Y: y}
		if si >= 0 {
			s, ok := dataset.ParseNumber(r[si])
			if !ok {
				continue
			}
			p.Size = &s
		}
		ps.Points = append(ps.Points, p)
	}
	if len(ps.Points) == 0 {
		return Result{}, fmt.Errorf("%w: %s and %s have no numeric pairs", ErrNoNumericData, ps.X, ps.Y)
	}
	return Result{
		Kind:    KindPoints,
		Summary: fmt.Sprintf("Correlation between %s and %s: %d data points", ps.X, ps.Y, len(ps.Points)),
		Data:    ps,
	}, nil
}
