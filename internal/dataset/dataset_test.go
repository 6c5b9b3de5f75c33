package dataset_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/csvdash/internal/dataset"
)

var dirtyRows = []string{
	"Name,Column1,Dept,Score,123,Sparse",
	"Alice,x,Eng,10,1,note",
	"Bob,,Eng,20,2,",
	",,,,,",
	"Carol,,Sales,30,3,",
	"Alice,,Eng,10,4,",
	"Dan,,Sales,40,5,",
	"Eve,,Ops,50,6,",
	",,,,7,",
	"Frank,,Ops,60,8,",
	"Gina,,Eng,70,9,",
	"Hank,,Sales,80,10,",
	"Ivy,,Ops,90,11,",
}

func TestLoadFileCleansRowsAndColumns(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "staff.csv")
	if err := os.WriteFile(p, []byte(strings.Join(dirtyRows, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ds, rep, err := dataset.LoadFile(p, dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if want := []string{"Name", "Dept", "Score"}; !reflect.DeepEqual(ds.Columns, want) {
		t.Fatalf("columns: got %v want %v", ds.Columns, want)
	}
	if ds.Len() != 9 {
		t.Fatalf("rows: got %d want 9", ds.Len())
	}
	if rep.OriginalRows != 12 || rep.CleanedRows != 9 || rep.RemovedRows != 3 || rep.DuplicateRows != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if want := []string{"Column1", "123", "Sparse"}; !reflect.DeepEqual(rep.RemovedColumns, want) {
		t.Fatalf("removed columns: got %v want %v", rep.RemovedColumns, want)
	}
	if rep.Quality == "" || rep.Message == "" {
		t.Fatalf("expected quality label and message: %+v", rep)
	}
	for _, r := range ds.Rows {
		if len(r) != len(ds.Columns) {
			t.Fatalf("row not aligned to columns: %v", r)
		}
	}
}

func TestReadInputErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", "   \n"},
		{"header only", "a,b\n"},
		{"blank rows", "a,b\n,\n,\n"},
		{"generic headers", "Column1,Unnamed: 0\n1,2\n"},
	}
	for _, c := range cases {
		_, _, err := dataset.Read(strings.NewReader(c.in), "x.csv", dataset.DefaultOptions())
		var ie *dataset.InputError
		if !errors.As(err, &ie) {
			t.Errorf("%s: expected InputError, got %v", c.name, err)
		}
	}
}

func TestDuplicateHeadersAreRenamed(t *testing.T) {
	ds, _, err := dataset.Read(strings.NewReader("Value,value\n1,2\n3,4\n"), "d.csv", dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if want := []string{"Value", "value_2"}; !reflect.DeepEqual(ds.Columns, want) {
		t.Fatalf("got %v want %v", ds.Columns, want)
	}
}

func TestSniffDelimiter(t *testing.T) {
	cases := map[string]rune{
		"a,b,c\n1,2,3":      ',',
		"a;b;c\n1;2;3":      ';',
		"a\tb\tc\n1\t2\t3":  '\t',
		`"x;y",b,c` + "\n1": ',',
		"single":            ',',
	}
	for in, want := range cases {
		if got := dataset.SniffDelimiter(in); got != want {
			t.Errorf("SniffDelimiter(%q) = %q want %q", in, got, want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,234", 1234, true},
		{"$1,234.50", 1234.5, true},
		{"1.234,5", 1234.5, true},
		{"12%", 12, true},
		{"0,5", 0.5, true},
		{"-3.2e2", -320, true},
		{"€ 99", 99, true},
		{"abc", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"2024-01-01", 0, false},
	}
	for _, c := range cases {
		got, ok := dataset.ParseNumber(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("ParseNumber(%q) = %v,%v want %v,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseTimeAndWeekday(t *testing.T) {
	for _, s := range []string{"2024-01-01", "01/15/2024", "2024-03-05T10:00:00Z", "Jan 2, 2024", "2024"} {
		if _, ok := dataset.ParseTime(s); !ok {
			t.Errorf("expected %q to parse as a date", s)
		}
	}
	for _, s := range []string{"42", "hello", "", "12.5"} {
		if _, ok := dataset.ParseTime(s); ok {
			t.Errorf("expected %q to be rejected", s)
		}
	}
	if d, ok := dataset.Weekday("2024-01-01"); !ok || d != "Monday" {
		t.Fatalf("weekday: got %q,%v want Monday", d, ok)
	}
	if _, ok := dataset.Weekday("not a date"); ok {
		t.Fatalf("expected invalid date to be excluded")
	}
}

func TestCSVExportRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"sample", ""},
		{"semicolon", "a;b\n1,5;x\n2,5;\"quoted \"\"y\"\"\"\n"},
	}
	for _, c := range cases {
		var ds *dataset.Dataset
		if c.in == "" {
			ds = dataset.Sample()
		} else {
			var err error
			ds, _, err = dataset.Read(strings.NewReader(c.in), c.name+".csv", dataset.DefaultOptions())
			if err != nil {
				t.Fatalf("%s: read: %v", c.name, err)
			}
		}
		var buf bytes.Buffer
		if err := dataset.WriteCSV(&buf, ds); err != nil {
			t.Fatalf("%s: export: %v", c.name, err)
		}
		back, _, err := dataset.Read(&buf, c.name+".csv", dataset.DefaultOptions())
		if err != nil {
			t.Fatalf("%s: reread: %v", c.name, err)
		}
		if !reflect.DeepEqual(back.Columns, ds.Columns) || !reflect.DeepEqual(back.Rows, ds.Rows) {
			t.Fatalf("%s: round trip mismatch\n got %v %v\nwant %v %v", c.name, back.Columns, back.Rows, ds.Columns, ds.Rows)
		}
		if back.Delimiter != ds.Delimiter {
			t.Fatalf("%s: delimiter changed: %q -> %q", c.name, ds.Delimiter, back.Delimiter)
		}
	}
}

func TestXLSXExportRoundTrip(t *testing.T) {
	ds := dataset.Sample()
	var buf bytes.Buffer
	if err := dataset.WriteXLSX(&buf, ds); err != nil {
		t.Fatalf("export xlsx: %v", err)
	}
	back, _, err := dataset.Read(&buf, "employees.xlsx", dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("read xlsx: %v", err)
	}
	if !reflect.DeepEqual(back.Columns, ds.Columns) || back.Len() != ds.Len() {
		t.Fatalf("shape mismatch: %v/%d vs %v/%d", back.Columns, back.Len(), ds.Columns, ds.Len())
	}
	if got := back.Column("Department")[0]; got != "Engineering" {
		t.Fatalf("department: got %q", got)
	}
	if got := back.Column("Salary")[0]; got != "75000" {
		t.Fatalf("salary: got %q", got)
	}
}

func TestSampleAndLookup(t *testing.T) {
	ds := dataset.Sample()
	if ds.Len() != 10 || len(ds.Columns) != 6 {
		t.Fatalf("unexpected sample shape: %d x %d", ds.Len(), len(ds.Columns))
	}
	if name, ok := ds.Lookup("salary"); !ok || name != "Salary" {
		t.Fatalf("lookup: got %q,%v", name, ok)
	}
	if ds.Index("missing") != -1 {
		t.Fatalf("expected -1 for a missing column")
	}
	a := ds.Fingerprint(10)
	ds.Rows[0][3] = "1"
	if a == ds.Fingerprint(10) {
		t.Fatalf("fingerprint should change with the data")
	}
}
