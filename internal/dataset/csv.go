package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

type csvReader struct{}

func (csvReader) CanRead(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".csv") || strings.HasSuffix(n, ".tsv") || strings.HasSuffix(n, ".txt")
}

func (csvReader) Read(r io.Reader, opt Options) (*Raw, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = SniffDelimiter(string(first))
	}
	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header row")
		}
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	raw := &Raw{Header: header, Delimiter: delim}
	for {
		if opt.MaxRows > 0 && len(raw.Records) >= opt.MaxRows {
			break
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		raw.Records = append(raw.Records, rec)
	}
	return raw, nil
}

// SniffDelimiter picks the most frequent of comma, semicolon and tab on the
// first line, ignoring quoted sections. Comma wins ties.
func SniffDelimiter(sample string) rune {
	line := sample
	if i := strings.IndexAny(sample, "\r\n"); i >= 0 {
		line = sample[:i]
	}
	counts := map[rune]int{}
	inQuote := false
	for _, c := range line {
		switch {
		case c == '"':
			inQuote = !inQuote
		case !inQuote && (c == ',' || c == ';' || c == '\t'):
			counts[c]++
		}
	}
	best := ','
	for _, c := range []rune{';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
