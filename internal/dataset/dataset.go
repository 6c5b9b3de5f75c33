package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Row is a single record aligned to Dataset.Columns. An empty cell is null.
type Row []string

// Dataset is the cleaned, in-memory table a session works on.
type Dataset struct {
	Name      string
	Columns   []string
	Rows      []Row
	Delimiter rune
}

// New builds a dataset, padding or truncating rows to the column count.
func New(name string, columns []string, rows []Row) *Dataset {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, align(r, len(columns)))
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Name: name, Columns: cols, Rows: out, Delimiter: ','}
}

func align(r Row, n int) Row {
	if len(r) == n {
		return r
	}
	out := make(Row, n)
	copy(out, r)
	return out
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Index returns the position of the named column (case-insensitive) or -1.
func (d *Dataset) Index(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	for i, c := range d.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// Lookup resolves a user-supplied column name to its declared spelling.
func (d *Dataset) Lookup(name string) (string, bool) {
	i := d.Index(strings.TrimSpace(name))
	if i < 0 {
		return "", false
	}
	return d.Columns[i], true
}

// Column returns every value of the named column, nulls included.
func (d *Dataset) Column(name string) []string {
	i := d.Index(name)
	if i < 0 {
		return nil
	}
	out := make([]string, len(d.Rows))
	for r, row := range d.Rows {
		out[r] = row[i]
	}
	return out
}

// Head returns up to n leading rows.
func (d *Dataset) Head(n int) []Row {
	if n < 0 || n > len(d.Rows) {
		n = len(d.Rows)
	}
	return d.Rows[:n]
}

// Records converts rows to column-keyed maps. Null cells are omitted.
func (d *Dataset) Records(rows []Row) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, r := range rows {
		m := make(map[string]string, len(d.Columns))
		for i, c := range d.Columns {
			if i < len(r) && r[i] != "" {
				m[c] = r[i]
			}
		}
		out = append(out, m)
	}
	return out
}

// Fingerprint hashes the header and the first k rows. It keys cached AI
// responses so an unchanged dataset never triggers a second call.
func (d *Dataset) Fingerprint(k int) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(d.Columns, "\x1f")))
	for _, r := range d.Head(k) {
		h.Write([]byte{'\n'})
		h.Write([]byte(strings.Join(r, "\x1f")))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
