package output

import (
	"io"
	"os"
	"time"

	"github.com/maxvaer/sqlprobe/internal/scanner"
)

// Stats holds aggregate scan statistics for report footers.
type Stats struct {
	State          string
	TotalCases     int
	Completed      int
	Dropped        int64
	Vulnerable     int64
	Duration       time.Duration
	RequestsPerSec float64
}

// Writer is implemented by each report format.
type Writer interface {
	WriteHeader() error
	WriteResult(result *scanner.ProbeResult) error
	WriteFooter(stats Stats) error
	Close() error
}

// WriteReport writes every non-sentinel result through w in order.
func WriteReport(w Writer, rs []scanner.ProbeResult, stats Stats) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	for i := range rs {
		if rs[i].IsSentinel() {
			continue
		}
		if err := w.WriteResult(&rs[i]); err != nil {
			return err
		}
	}
	return w.WriteFooter(stats)
}

// openOutput returns the destination for a report. An empty path means
// stdout, which is never closed.
func openOutput(path string) (io.Writer, io.Closer, error) {
	if path == "" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func closeOutput(c io.Closer) error {
	if c == nil {
		return nil
	}
	return c.Close()
}
