package output

import (
	"encoding/csv"
	"io"

	"github.com/maxvaer/sqlprobe/internal/scanner"
)

// CSVWriter streams report rows in the same layout as Table.WriteCSV.
type CSVWriter struct {
	cw     *csv.Writer
	closer io.Closer
}

// NewCSVWriter creates a CSV report writer. An empty outputFile means stdout.
func NewCSVWriter(outputFile string) (*CSVWriter, error) {
	w, closer, err := openOutput(outputFile)
	if err != nil {
		return nil, err
	}
	return &CSVWriter{cw: csv.NewWriter(w), closer: closer}, nil
}

func (c *CSVWriter) WriteHeader() error { return c.cw.Write(Columns) }

func (c *CSVWriter) WriteResult(result *scanner.ProbeResult) error {
	return c.cw.Write(Row(*result))
}

// WriteFooter flushes buffered rows; CSV reports carry no footer.
func (c *CSVWriter) WriteFooter(Stats) error {
	c.cw.Flush()
	return c.cw.Error()
}

func (c *CSVWriter) Close() error { return closeOutput(c.closer) }
