package output

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/maxvaer/sqlprobe/internal/scanner"
)

// Columns is the report header.
var Columns = []string{"URL", "Status", "Time", "Payload", "Vulnerable"}

// Table is the report of one session: one row per recorded result, in
// append order.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable builds the report table. Sentinel results are not part of it.
func NewTable(rs []scanner.ProbeResult) Table {
	t := Table{Header: append([]string(nil), Columns...)}
	for _, r := range rs {
		if r.IsSentinel() {
			continue
		}
		t.Rows = append(t.Rows, Row(r))
	}
	return t
}

// Row renders one result as report cells.
func Row(r scanner.ProbeResult) []string {
	return []string{
		r.URL,
		r.Status.String(),
		FormatElapsed(r.Elapsed),
		r.Payload,
		FormatBool(r.Vulnerable),
	}
}

// FormatElapsed renders seconds with two decimals.
func FormatElapsed(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 2, 64)
}

// FormatBool renders a verdict as True/False.
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// WriteCSV writes the table, header first, to w.
func (t Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// CSV returns the table encoded as CSV.
func (t Table) CSV() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
