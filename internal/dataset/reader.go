package dataset

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Raw is a decoded table before cleaning.
type Raw struct {
	Header    []string
	Records   [][]string
	Delimiter rune
}

// Reader decodes one file format into a Raw table.
type Reader interface {
	CanRead(name string) bool
	Read(r io.Reader, opt Options) (*Raw, error)
}

// Options tunes loading.
type Options struct {
	// Delimiter forces a CSV delimiter; zero sniffs it from the header line.
	Delimiter rune
	// MaxRows caps the number of data rows read; zero means no cap.
	MaxRows int
	// Sheet selects an XLSX sheet by name; empty selects the first sheet.
	Sheet string
}

// DefaultOptions returns sensible defaults for interactive use.
func DefaultOptions() Options {
	return Options{MaxRows: 100000}
}

var registry []Reader

// Register adds a reader to the registry. Later registrations take precedence.
func Register(r Reader) {
	registry = append([]Reader{r}, registry...)
}

func readerFor(name string) Reader {
	for _, r := range registry {
		if r.CanRead(name) {
			return r
		}
	}
	return csvReader{}
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}

// LoadFile reads, decodes and cleans the file at path.
func LoadFile(path string, opt Options) (*Dataset, CleanReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, CleanReport{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Read(f, filepath.Base(path), opt)
}

// Read decodes r using the reader registered for name and cleans the result.
func Read(r io.Reader, name string, opt Options) (*Dataset, CleanReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, CleanReport{}, fmt.Errorf("read dataset: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, CleanReport{}, inputErr(name, "file is empty", nil)
	}
	raw, err := readerFor(name).Read(bytes.NewReader(data), opt)
	if err != nil {
		return nil, CleanReport{}, inputErr(name, "cannot decode table", err)
	}
	return Clean(name, raw)
}
