package profile

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/KaramelBytes/csvdash/internal/dataset"
)

// Type is the inferred kind of a column.
type Type string

const (
	Numeric     Type = "numeric"
	Categorical Type = "categorical"
	Date        Type = "date"
	Boolean     Type = "boolean"
	Text        Type = "text"
)

// Stats summarizes the numeric values of a column.
type Stats struct {
	Count  int     `json:"count" yaml:"count"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
}

// Column is the profile of a single column.
type Column struct {
	Name           string   `json:"name" yaml:"name"`
	Type           Type     `json:"type" yaml:"type"`
	Total          int      `json:"total" yaml:"total"`
	NonNull        int      `json:"non_null" yaml:"non_null"`
	NullCount      int      `json:"null_count" yaml:"null_count"`
	NullPercentage float64  `json:"null_percentage" yaml:"null_percentage"`
	UniqueCount    int      `json:"unique_count" yaml:"unique_count"`
	SampleValues   []string `json:"sample_values" yaml:"sample_values"`
	Stats          *Stats   `json:"stats,omitempty" yaml:"stats,omitempty"`
	Quality        string   `json:"quality" yaml:"quality"`
	Useful         bool     `json:"useful" yaml:"useful"`
	Tags           []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Set holds the profiles of every column in declaration order.
type Set struct {
	Columns       []Column `json:"columns" yaml:"columns"`
	Quality       string   `json:"quality" yaml:"quality"`
	AnalysisTypes []string `json:"analysis_types" yaml:"analysis_types"`
	index         map[string]int
}

// Get returns the profile of the named column (case-insensitive).
func (s *Set) Get(name string) (Column, bool) {
	if s == nil {
		return Column{}, false
	}
	if i, ok := s.index[strings.ToLower(name)]; ok {
		return s.Columns[i], true
	}
	return Column{}, false
}

// TypeOf returns the inferred type of a column, or Text when unknown.
func (s *Set) TypeOf(name string) Type {
	if c, ok := s.Get(name); ok {
		return c.Type
	}
	return Text
}

// Names lists the columns of the given types, in declaration order.
func (s *Set) Names(types ...Type) []string {
	var out []string
	for _, c := range s.Columns {
		for _, t := range types {
			if c.Type == t {
				out = append(out, c.Name)
				break
			}
		}
	}
	return out
}

// Options tunes inference.
type Options struct {
	// SampleSize is the number of leading non-null values used for type detection.
	SampleSize int
	// MaxCategories bounds the distinct values of a categorical column.
	MaxCategories int
}

// DefaultOptions returns the standard inference settings.
func DefaultOptions() Options {
	return Options{SampleSize: 50, MaxCategories: 20}
}

// Profile infers a type and summary for every column. It is a pure function
// of the dataset; calling it twice yields identical results.
func Profile(ds *dataset.Dataset, opt Options) *Set {
	if opt.SampleSize <= 0 {
		opt.SampleSize = DefaultOptions().SampleSize
	}
	if opt.MaxCategories <= 0 {
		opt.MaxCategories = DefaultOptions().MaxCategories
	}
	set := &Set{index: make(map[string]int, len(ds.Columns))}
	for i, name := range ds.Columns {
		values := ds.Column(name)
		set.Columns = append(set.Columns, profileColumn(name, values, opt))
		set.index[strings.ToLower(name)] = i
	}
	set.Quality = overallQuality(set.Columns)
	set.AnalysisTypes = analysisTypes(set.Columns)
	return set
}

func profileColumn(name string, values []string, opt Options) Column {
	c := Column{Name: name, Total: len(values)}
	seen := map[string]struct{}{}
	var sample []string
	for _, v := range values {
		if v == "" {
			continue
		}
		c.NonNull++
		if len(sample) < opt.SampleSize {
			sample = append(sample, v)
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			if len(c.SampleValues) < 5 {
				c.SampleValues = append(c.SampleValues, v)
			}
		}
	}
	c.UniqueCount = len(seen)
	c.NullCount = c.Total - c.NonNull
	if c.Total > 0 {
		c.NullPercentage = round2(float64(c.NullCount) / float64(c.Total) * 100)
	}
	c.Type = detectType(name, sample, opt)
	if c.Type == Numeric {
		c.Stats = numericStats(values)
	}
	c.Quality = columnQuality(c)
	c.Useful = useful(c)
	c.Tags = Tags(name)
	return c
}

func detectType(name string, sample []string, opt Options) Type {
	n := len(sample)
	if n == 0 {
		return Text
	}
	var nums, dates, bools int
	uniq := map[string]struct{}{}
	for _, v := range sample {
		if _, ok := dataset.ParseNumber(v); ok {
			nums++
		}
		if _, ok := dataset.ParseTime(v); ok {
			dates++
		}
		if dataset.IsBoolToken(v) {
			bools++
		}
		uniq[v] = struct{}{}
	}
	f := float64(n)
	switch {
	case float64(nums) >= 0.7*f:
		return Numeric
	case HasDateHint(name) || float64(dates) >= 0.7*f:
		return Date
	case float64(bools) >= 0.8*f:
		return Boolean
	case float64(len(uniq)) < 0.5*f && len(uniq) < opt.MaxCategories:
		return Categorical
	default:
		return Text
	}
}

var dateHints = map[string]bool{"date": true, "time": true, "year": true, "month": true, "day": true, "timestamp": true, "datetime": true}

// HasDateHint reports whether a column name contains a date-like word such
// as "date", "Order_Date" or "createdTime".
func HasDateHint(name string) bool {
	for _, w := range words(name) {
		if dateHints[w] {
			return true
		}
	}
	return false
}

// words splits a column name on separators and camel-case boundaries.
func words(name string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	var prev rune
	for _, r := range name {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
		prev = r
	}
	flush()
	return out
}

func numericStats(values []string) *Stats {
	var nums []float64
	for _, v := range values {
		if f, ok := dataset.ParseNumber(v); ok {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return nil
	}
	sort.Float64s(nums)
	var sum float64
	for _, f := range nums {
		sum += f
	}
	mean := sum / float64(len(nums))
	var sq float64
	for _, f := range nums {
		sq += (f - mean) * (f - mean)
	}
	return &Stats{
		Count:  len(nums),
		Min:    nums[0],
		Max:    nums[len(nums)-1],
		Mean:   mean,
		Median: Quantile(nums, 0.5),
		StdDev: math.Sqrt(sq / float64(len(nums))),
	}
}

// Quantile interpolates the q-th quantile of sorted values.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
