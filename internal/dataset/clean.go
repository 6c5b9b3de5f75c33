package dataset

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// CleanReport summarizes what Clean removed.
type CleanReport struct {
	OriginalRows    int      `json:"original_rows" yaml:"original_rows"`
	CleanedRows     int      `json:"cleaned_rows" yaml:"cleaned_rows"`
	RemovedRows     int      `json:"removed_rows" yaml:"removed_rows"`
	DuplicateRows   int      `json:"duplicate_rows" yaml:"duplicate_rows"`
	OriginalColumns int      `json:"original_columns" yaml:"original_columns"`
	ValidColumns    int      `json:"valid_columns" yaml:"valid_columns"`
	RemovedColumns  []string `json:"removed_columns,omitempty" yaml:"removed_columns,omitempty"`
	Completeness    float64  `json:"completeness" yaml:"completeness"`
	QualityScore    int      `json:"quality_score" yaml:"quality_score"`
	Quality         string   `json:"quality" yaml:"quality"`
	Message         string   `json:"message" yaml:"message"`
}

// genericHeader matches auto-generated column names such as "Column1",
// "field2", "Unnamed: 0" or a bare number.
var genericHeader = regexp.MustCompile(`(?i)^(column|field|unnamed|null|undefined)?[\s_:]*\d*$`)

// IsGenericHeader reports whether a header looks auto-generated.
func IsGenericHeader(h string) bool {
	h = strings.TrimSpace(h)
	if h == "" {
		return true
	}
	return genericHeader.MatchString(h)
}

// Clean turns a decoded table into a Dataset:
//  1. rows with no values are dropped
//  2. auto-named columns and columns filled in fewer than max(1, ceil(10%))
//     rows are dropped
//  3. rows with values in fewer than ceil(20%) of the kept columns are dropped
//  4. duplicate rows (same sorted value set) are dropped
func Clean(name string, raw *Raw) (*Dataset, CleanReport, error) {
	rep := CleanReport{OriginalRows: len(raw.Records), OriginalColumns: len(raw.Header)}
	header := make([]string, len(raw.Header))
	for i, h := range raw.Header {
		header[i] = strings.TrimSpace(h)
	}
	if len(header) == 0 {
		return nil, rep, inputErr(name, "no header row", nil)
	}

	rows := make([]Row, 0, len(raw.Records))
	for _, rec := range raw.Records {
		r := make(Row, len(header))
		empty := true
		for i := range header {
			if i < len(rec) {
				r[i] = strings.TrimSpace(rec[i])
				if r[i] != "" {
					empty = false
				}
			}
		}
		if !empty {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, rep, inputErr(name, "no data rows", nil)
	}

	minFill := int(math.Max(1, math.Ceil(float64(len(rows))*0.1)))
	var keep []int
	for i, h := range header {
		if IsGenericHeader(h) {
			rep.RemovedColumns = append(rep.RemovedColumns, h)
			continue
		}
		filled := 0
		for _, r := range rows {
			if r[i] != "" {
				filled++
			}
		}
		if filled < minFill {
			rep.RemovedColumns = append(rep.RemovedColumns, h)
			continue
		}
		keep = append(keep, i)
	}
	if len(keep) == 0 {
		return nil, rep, inputErr(name, "no columns with sufficient data", nil)
	}

	columns := uniqueNames(header, keep)
	minCells := int(math.Ceil(float64(len(keep)) * 0.2))
	seen := make(map[string]struct{}, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		nr := make(Row, len(keep))
		filled := 0
		for j, i := range keep {
			nr[j] = r[i]
			if nr[j] != "" {
				filled++
			}
		}
		if filled < minCells || filled == 0 {
			continue
		}
		k := rowKey(nr)
		if _, dup := seen[k]; dup {
			rep.DuplicateRows++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, nr)
	}
	if len(out) == 0 {
		return nil, rep, inputErr(name, "no rows with sufficient data", nil)
	}

	rep.CleanedRows = len(out)
	rep.RemovedRows = rep.OriginalRows - rep.CleanedRows
	rep.ValidColumns = len(columns)
	if rep.OriginalRows > 0 {
		rep.Completeness = float64(rep.CleanedRows) / float64(rep.OriginalRows) * 100
	}
	rep.QualityScore = qualityScore(rep.CleanedRows, rep.ValidColumns, rep.Completeness)
	rep.Quality = QualityLabel(rep.QualityScore)
	rep.Message = cleanMessage(rep)

	delim := raw.Delimiter
	if delim == 0 {
		delim = ','
	}
	return &Dataset{Name: name, Columns: columns, Rows: out, Delimiter: delim}, rep, nil
}

func uniqueNames(header []string, keep []int) []string {
	used := map[string]int{}
	out := make([]string, 0, len(keep))
	for _, i := range keep {
		n := header[i]
		key := strings.ToLower(n)
		used[key]++
		if c := used[key]; c > 1 {
			n = n + "_" + strconv.Itoa(c)
		}
		out = append(out, n)
	}
	return out
}

func rowKey(r Row) string {
	vals := make([]string, len(r))
	copy(vals, r)
	sort.Strings(vals)
	return strings.Join(vals, "\x1f")
}

func qualityScore(rows, cols int, completeness float64) int {
	score := 0
	switch {
	case rows >= 100:
		score += 25
	case rows >= 50:
		score += 20
	case rows >= 20:
		score += 15
	case rows >= 10:
		score += 10
	default:
		score += 5
	}
	switch {
	case cols >= 10:
		score += 25
	case cols >= 5:
		score += 20
	case cols >= 3:
		score += 15
	case cols >= 2:
		score += 10
	default:
		score += 5
	}
	return score + int(math.Round(completeness/2))
}

// QualityLabel maps a 0-100 score to Excellent, Good, Fair or Poor.
func QualityLabel(score int) string {
	switch {
	case score >= 85:
		return "Excellent"
	case score >= 70:
		return "Good"
	case score >= 50:
		return "Fair"
	default:
		return "Poor"
	}
}

func cleanMessage(rep CleanReport) string {
	msg := fmt.Sprintf("Processed %d valid records with %d columns.", rep.CleanedRows, rep.ValidColumns)
	if rep.RemovedRows > 0 || len(rep.RemovedColumns) > 0 {
		msg += fmt.Sprintf(" Removed %d low-quality rows", rep.RemovedRows)
		if n := len(rep.RemovedColumns); n > 0 {
			msg += fmt.Sprintf(", %d empty/invalid columns", n)
		}
		msg += "."
	}
	return msg
}
