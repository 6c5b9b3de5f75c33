package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/KaramelBytes/csvdash/internal/dataset"
)

var condition = regexp.MustCompile(`^\s*(>=|<=|!=|==|=|>|<)?\s*(.*?)\s*$`)

// Condition is a parsed filter such as ">60000" or "!= Sales".
type Condition struct {
	Op    string
	Value string
}

// ParseCondition splits a filter expression into operator and operand. A
// bare operand means equality.
func ParseCondition(expr string) Condition {
	m := condition.FindStringSubmatch(expr)
	op := m[1]
	if op == "" || op == "==" {
		op = "="
	}
	return Condition{Op: op, Value: strings.Trim(m[2], `"'`)}
}

// Match compares cell against the condition, numerically when both sides
// are numbers and case-insensitively otherwise.
func (c Condition) Match(cell string) bool {
	if cell == "" {
		return false
	}
	a, okA := dataset.ParseNumber(cell)
	b, okB := dataset.ParseNumber(c.Value)
	if okA && okB {
		switch c.Op {
		case ">":
			return a > b
		case ">=":
			return a >= b
		case "<":
			return a < b
		case "<=":
			return a <= b
		case "!=":
			return a != b
		default:
			return a == b
		}
	}
	cmp := strings.Compare(strings.ToLower(cell), strings.ToLower(c.Value))
	switch c.Op {
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case "!=":
		return cmp != 0
	default:
		return cmp == 0
	}
}

// applyFilters keeps the rows that satisfy every condition.
func applyFilters(ds *dataset.Dataset, filters map[string]string) (*dataset.Dataset, error) {
	type bound struct {
		idx  int
		cond Condition
	}
	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)
	conds := make([]bound, 0, len(names))
	for _, name := range names {
		i, err := column(ds, name)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		conds = append(conds, bound{i, ParseCondition(filters[name])})
	}
	var rows []dataset.Row
	for _, r := range ds.Rows {
		keep := true
		for _, c := range conds {
			if !c.cond.Match(r[c.idx]) {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w the filter conditions", ErrNoRows)
	}
	return &dataset.Dataset{Name: ds.Name, Columns: ds.Columns, Rows: rows, Delimiter: ds.Delimiter}, nil
}
