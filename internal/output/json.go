package output

import (
	"encoding/json"
	"io"

	"github.com/maxvaer/sqlprobe/internal/scanner"
)

type jsonEntry struct {
	URL        string         `json:"url"`
	Parameter  string         `json:"parameter,omitempty"`
	Status     scanner.Status `json:"status"`
	Time       float64        `json:"time"`
	Payload    string         `json:"payload"`
	Vulnerable bool           `json:"vulnerable"`
}

func newJSONEntry(r *scanner.ProbeResult) jsonEntry {
	return jsonEntry{
		URL:        r.URL,
		Parameter:  r.Parameter,
		Status:     r.Status,
		Time:       r.Elapsed,
		Payload:    r.Payload,
		Vulnerable: r.Vulnerable,
	}
}

type jsonReport struct {
	State      string      `json:"state,omitempty"`
	Total      int         `json:"total_cases"`
	Dropped    int64       `json:"dropped"`
	Vulnerable int64       `json:"vulnerable"`
	Duration   string      `json:"duration"`
	Results    []jsonEntry `json:"results"`
}

// JSONWriter writes the report as a single JSON document.
type JSONWriter struct {
	w       io.Writer
	closer  io.Closer
	entries []jsonEntry
}

// NewJSONWriter creates a JSON report writer. An empty outputFile means stdout.
func NewJSONWriter(outputFile string) (*JSONWriter, error) {
	w, closer, err := openOutput(outputFile)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{w: w, closer: closer}, nil
}

func (j *JSONWriter) WriteHeader() error { return nil }

func (j *JSONWriter) WriteResult(result *scanner.ProbeResult) error {
	j.entries = append(j.entries, newJSONEntry(result))
	return nil
}

func (j *JSONWriter) WriteFooter(stats Stats) error {
	entries := j.entries
	if entries == nil {
		entries = []jsonEntry{}
	}
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		State:      stats.State,
		Total:      stats.TotalCases,
		Dropped:    stats.Dropped,
		Vulnerable: stats.Vulnerable,
		Duration:   stats.Duration.String(),
		Results:    entries,
	})
}

func (j *JSONWriter) Close() error { return closeOutput(j.closer) }
