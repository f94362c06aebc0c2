// Package payloads supplies the ordered (parameter, payload) test cases of
// a scan.
package payloads

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/maxvaer/sqlprobe/internal/scanner"
)

// ErrSourceUnavailable means the payload source could not be read at all.
var ErrSourceUnavailable = errors.New("payload source unavailable")

// Source is a finite, ordered sequence of test cases.
type Source interface {
	// Ref identifies the source in logs and sentinel events.
	Ref() string
	// Load returns every test case in submission order.
	Load() ([]scanner.TestCase, error)
}

// CSVSource reads test cases from a CSV file. Each record is interpreted
// positionally as parameter,payload; extra fields are ignored and shorter
// records are skipped. There is no header detection.
type CSVSource struct {
	path string
}

// NewCSVSource returns a Source backed by the CSV file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Ref() string { return s.path }

func (s *CSVSource) Load() ([]scanner.TestCase, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer f.Close()

	cases, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrSourceUnavailable, s.path, err)
	}
	return cases, nil
}

// Parse reads CSV records from r.
func Parse(r io.Reader) ([]scanner.TestCase, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var cases []scanner.TestCase
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return cases, nil
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			continue
		}
		cases = append(cases, scanner.TestCase{Parameter: record[0], Payload: record[1]})
	}
}

// SliceSource serves test cases from memory.
type SliceSource struct {
	Name  string
	Cases []scanner.TestCase
}

func (s *SliceSource) Ref() string { return s.Name }

func (s *SliceSource) Load() ([]scanner.TestCase, error) {
	return append([]scanner.TestCase(nil), s.Cases...), nil
}
