package engine

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/intent"
)

type bucket struct {
	key      string
	count    int
	vals     []float64
	num, den float64
}

// groupBy partitions rows by the grouping column, or by the weekday of a
// date column. Rows whose key is empty or whose date does not parse are left
// out so they never reach a rate denominator.
func groupBy(ds *dataset.Dataset, in intent.Intent) (Result, error) {
	keyOf, keyName, err := groupKey(ds, in)
	if err != nil {
		return Result{}, err
	}

	op := in.Operation
	vi, ni, di := -1, -1, -1
	switch {
	case in.Rate != nil:
		op = intent.Rate
		if ni, err = column(ds, in.Rate.Numerator); err != nil {
			return Result{}, err
		}
		if di, err = column(ds, in.Rate.Denominator); err != nil {
			return Result{}, err
		}
	case in.Value != "" && op != intent.Count:
		if vi, err = column(ds, in.Value); err != nil {
			return Result{}, err
		}
		if op == "" || op == intent.Rate {
			op = intent.Mean
		}
	default:
		op = intent.Count
	}

	index := map[string]*bucket{}
	var order []*bucket
	for _, r := range ds.Rows {
		key, ok := keyOf(r)
		if !ok {
			continue
		}
		b := index[key]
		if b == nil {
			b = &bucket{key: key}
			index[key] = b
			order = append(order, b)
		}
		b.count++
		switch {
		case op == intent.Rate:
			if v, ok := dataset.ParseNumber(r[ni]); ok {
				b.num += v
			}
			if v, ok := dataset.ParseNumber(r[di]); ok {
				b.den += v
			}
		case vi >= 0:
			if v, ok := dataset.ParseNumber(r[vi]); ok {
				b.vals = append(b.vals, v)
			}
		}
	}

	gs := &GroupSeries{Column: keyName, Operation: op}
	if vi >= 0 {
		gs.ValueColumn = ds.Columns[vi]
	}
	for _, b := range order {
		g := Group{Key: b.key, Count: b.count}
		switch {
		case op == intent.Rate:
			g.Numerator, g.Denominator = b.num, b.den
			if b.den > 0 {
				g.Value = b.num / b.den * 100
			}
		case op == intent.Count:
			g.Value = float64(b.count)
		default:
			if len(b.vals) == 0 {
				continue
			}
			g.Value = apply(op, b.vals)
		}
		gs.Groups = append(gs.Groups, g)
	}
	if len(gs.Groups) == 0 {
		return Result{}, fmt.Errorf("%w for %s", ErrNoGroups, keyName)
	}

	asc := in.SortOrder == intent.Asc
	sort.SliceStable(gs.Groups, func(i, j int) bool {
		a, b := gs.Groups[i], gs.Groups[j]
		if a.Value != b.Value {
			if asc {
				return a.Value < b.Value
			}
			return a.Value > b.Value
		}
		return a.Key < b.Key
	})
	if in.Limit > 0 && len(gs.Groups) > in.Limit {
		gs.Groups = gs.Groups[:in.Limit]
	}
	return Result{Kind: KindGroups, Summary: groupSummary(gs, asc), Data: gs}, nil
}

func groupKey(ds *dataset.Dataset, in intent.Intent) (func(dataset.Row) (string, bool), string, error) {
	if in.DayOfWeek != "" {
		i, err := column(ds, in.DayOfWeek)
		if err != nil {
			return nil, "", err
		}
		return func(r dataset.Row) (string, bool) { return dataset.Weekday(r[i]) }, intent.WeekdayKey, nil
	}
	i, err := column(ds, in.GroupBy)
	if err != nil {
		return nil, "", err
	}
	return func(r dataset.Row) (string, bool) { return r[i], r[i] != "" }, ds.Columns[i], nil
}

func groupSummary(gs *GroupSeries, asc bool) string {
	top := gs.Groups[0]
	rank := "highest"
	if asc {
		rank = "lowest"
	}
	switch gs.Operation {
	case intent.Rate:
		return fmt.Sprintf("%s has the %s rate at %s%% (%s/%s)", top.Key, rank, fixed2(top.Value), formatFloat(top.Numerator), formatFloat(top.Denominator))
	case intent.Count:
		return fmt.Sprintf("Grouped by %s: %d categories; %s has the %s count (%d)", gs.Column, len(gs.Groups), top.Key, rank, top.Count)
	default:
		return fmt.Sprintf("Grouped by %s: %d categories; %s has the %s %s of %s (%s)", gs.Column, len(gs.Groups), top.Key, rank, gs.Operation, gs.ValueColumn, fixed2(top.Value))
	}
}
