package dataset

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	thousandsOnly = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+$`)
	boolToken     = regexp.MustCompile(`(?i)^(true|false|yes|no|1|0)$`)
	pureNumber    = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// ParseNumber coerces a cell to a float. It accepts currency symbols, percent
// signs, thousands separators and either decimal convention.
func ParseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	raw = strings.NewReplacer("%", "", "$", "", "€", "", "£", "", " ", "", "\u00a0", "").Replace(raw)
	if raw == "" || raw == "-" {
		return 0, false
	}
	if thousandsOnly.MatchString(raw) {
		raw = strings.ReplaceAll(raw, ",", "")
	} else {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		var dec, thou string
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ",", "."
		case cpos >= 0 && dpos >= 0:
			dec, thou = ".", ","
		case cpos >= 0:
			dec = ","
		default:
			dec = "."
		}
		if thou != "" {
			raw = strings.ReplaceAll(raw, thou, "")
		}
		if dec != "." {
			raw = strings.ReplaceAll(raw, dec, ".")
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "01/02/2006", "1/2/2006", "02/01/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05",
	"1/2/2006 15:04", "1/2/2006 15:04:05", "Jan 2, 2006", "January 2, 2006",
	"2 Jan 2006", "02-Jan-2006", "2006-01", "Jan 2006",
}

// ParseTime parses common date and datetime layouts. Bare numbers other than
// four digit years are not treated as dates.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if pureNumber.MatchString(s) {
		if len(s) == 4 {
			if y, err := strconv.Atoi(s); err == nil && y >= 1800 && y <= 2200 {
				return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC), true
			}
		}
		return time.Time{}, false
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsBoolToken reports whether s is one of true/false/yes/no/1/0.
func IsBoolToken(s string) bool {
	return boolToken.MatchString(strings.TrimSpace(s))
}

// Weekday returns the English weekday name of a date cell.
func Weekday(s string) (string, bool) {
	t, ok := ParseTime(s)
	if !ok {
		return "", false
	}
	return t.Weekday().String(), true
}
