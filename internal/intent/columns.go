package intent

import (
	"regexp"
	"strings"

	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/profile"
)

// RateHints are lower-case column name fragments used to find the numerator
// and denominator of a rate query.
type RateHints struct {
	Numerator   []string
	Denominator []string
}

// DefaultRateHints suit email-marketing style datasets.
func DefaultRateHints() RateHints {
	return RateHints{
		Numerator:   []string{"open", "click", "response", "conversion"},
		Denominator: []string{"sent", "email", "total", "deliver"},
	}
}

// Mentioned returns the columns whose name appears in query, in declaration
// order. Underscores in a column name also match spaces.
func Mentioned(columns []string, query string) []string {
	q := strings.ToLower(query)
	var out []string
	for _, c := range columns {
		lc := strings.ToLower(strings.TrimSpace(c))
		if lc == "" {
			continue
		}
		if strings.Contains(q, lc) || strings.Contains(q, strings.ReplaceAll(lc, "_", " ")) {
			out = append(out, c)
		}
	}
	return out
}

// ranked orders cols so that names appearing in query as whole words come
// before names that only appear inside a longer word ("age" in "average").
func ranked(cols []string, query string) []string {
	q := strings.ToLower(query)
	var whole, partial []string
	for _, c := range cols {
		lc := strings.ToLower(c)
		if wholeWord(q, lc) || wholeWord(q, strings.ReplaceAll(lc, "_", " ")) {
			whole = append(whole, c)
		} else {
			partial = append(partial, c)
		}
	}
	return append(whole, partial...)
}

func wholeWord(q, w string) bool {
	if w == "" {
		return false
	}
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`).MatchString(q)
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == ' ' || r == '-' }), " ")
}

// resolveColumn maps a loosely named column (from a model reply) to a real
// one: exact match first, then containment in either direction.
func resolveColumn(columns []string, name string) (string, bool) {
	n := normalizeName(name)
	if n == "" {
		return "", false
	}
	for _, c := range columns {
		if normalizeName(c) == n {
			return c, true
		}
	}
	for _, c := range columns {
		nc := normalizeName(c)
		if nc != "" && (strings.Contains(nc, n) || strings.Contains(n, nc)) {
			return c, true
		}
	}
	return "", false
}

// schema pairs the dataset's columns with their profiles for role lookup.
type schema struct {
	cols []string
	set  *profile.Set
}

func newSchema(ds *dataset.Dataset, set *profile.Set) schema {
	return schema{cols: ds.Columns, set: set}
}

func (s schema) is(col string, types ...profile.Type) bool {
	t := s.set.TypeOf(col)
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// first returns the first of cands with one of types, skipping excluded names.
func (s schema) first(cands []string, exclude []string, types ...profile.Type) string {
	for _, c := range cands {
		if contained(exclude, c) {
			continue
		}
		if len(types) == 0 || s.is(c, types...) {
			return c
		}
	}
	return ""
}

// pick prefers mentioned columns, then any column of the dataset.
func (s schema) pick(mentioned []string, exclude []string, types ...profile.Type) string {
	if c := s.first(mentioned, exclude, types...); c != "" {
		return c
	}
	return s.first(s.cols, exclude, types...)
}

func contained(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var groupTypes = []profile.Type{profile.Categorical, profile.Boolean}

func (s schema) groupColumn(mentioned []string, exclude []string) string {
	if c := s.first(mentioned, exclude, groupTypes...); c != "" {
		return c
	}
	if c := s.first(mentioned, exclude, profile.Text, profile.Date); c != "" {
		return c
	}
	if c := s.first(s.cols, exclude, groupTypes...); c != "" {
		return c
	}
	return s.first(s.cols, exclude, profile.Text, profile.Date)
}

// rateColumns finds numeric numerator and denominator columns by hint.
func (s schema) rateColumns(h RateHints) (num, den string) {
	byHint := func(hints []string, exclude string) string {
		for _, hint := range hints {
			for _, c := range s.cols {
				if c != exclude && s.is(c, profile.Numeric) && strings.Contains(strings.ToLower(c), hint) {
					return c
				}
			}
		}
		return ""
	}
	num = byHint(h.Numerator, "")
	den = byHint(h.Denominator, num)
	return num, den
}

// complete fills the role fields the executor needs from the mentioned
// columns, falling back to the first column of a suitable type.
func (s schema) complete(in *Intent) {
	if len(s.cols) == 0 {
		return
	}
	mentioned := ranked(in.Columns, in.Query)
	if len(in.Columns) == 0 {
		in.Columns = []string{s.cols[0]}
	}
	switch in.Type {
	case Aggregation:
		if in.Operation == "" || in.Operation == Rate {
			in.Operation = Mean
		}
		if in.Value == "" {
			in.Value = s.pick(mentioned, nil, profile.Numeric)
		}
		if in.Value == "" {
			in.Value = in.Columns[0]
		}
	case GroupBy:
		if in.GroupBy == "" && in.DayOfWeek == "" {
			in.GroupBy = s.groupColumn(mentioned, []string{in.Value})
			if in.GroupBy == "" {
				in.GroupBy = in.Columns[0]
			}
		}
		if in.Rate != nil {
			in.Operation = Rate
			in.Value = ""
			break
		}
		if in.Operation == Rate {
			in.Operation = ""
		}
		if in.Value == "" && in.Operation != Count {
			in.Value = s.first(mentioned, []string{in.GroupBy, in.DayOfWeek}, profile.Numeric)
			if in.Value == "" && in.Operation != "" {
				in.Value = s.first(s.cols, []string{in.GroupBy, in.DayOfWeek}, profile.Numeric)
			}
		}
		switch {
		case in.Value == "":
			in.Operation = Count
		case in.Operation == "":
			in.Operation = Mean
		}
		if in.SortOrder == "" {
			in.SortOrder = Desc
		}
	case Sort:
		if in.Value == "" {
			in.Value = s.pick(mentioned, nil, profile.Numeric)
		}
		if in.Value == "" {
			in.Value = in.Columns[0]
		}
		if in.SortOrder == "" {
			in.SortOrder = Desc
		}
		if in.Limit <= 0 {
			in.Limit = 10
		}
	case Correlation:
		if in.X == "" {
			in.X = s.pick(mentioned, nil, profile.Numeric)
		}
		if in.Y == "" {
			in.Y = s.pick(mentioned, []string{in.X}, profile.Numeric)
		}
		if in.Chart == Bubble && in.Size == "" {
			in.Size = s.pick(mentioned, []string{in.X, in.Y}, profile.Numeric)
		}
	case Trend:
		if in.X == "" {
			in.X = s.pick(mentioned, nil, profile.Date)
		}
		if in.X == "" {
			in.X = s.first(mentioned, nil, profile.Categorical, profile.Text)
		}
		if in.X == "" {
			in.X = in.Columns[0]
		}
		if in.Y == "" {
			in.Y = s.pick(mentioned, []string{in.X}, profile.Numeric)
		}
	case Distribution:
		if in.Value == "" {
			if len(mentioned) > 0 {
				in.Value = mentioned[0]
			} else if c := s.first(s.cols, nil, profile.Numeric); c != "" {
				in.Value = c
			} else {
				in.Value = in.Columns[0]
			}
		}
	}
}
