package output

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/maxvaer/sqlprobe/internal/scanner"
)

// Palette colors result lines. The zero value is not usable; call NewPalette.
type Palette struct {
	ok      *color.Color
	client  *color.Color
	server  *color.Color
	vuln    *color.Color
	dim     *color.Color
	noColor bool
}

// NewPalette returns the status and verdict colors. noColor disables them.
func NewPalette(noColor bool) *Palette {
	p := &Palette{
		ok:      color.New(color.FgGreen),
		client:  color.New(color.FgYellow),
		server:  color.New(color.FgRed),
		vuln:    color.New(color.FgRed, color.Bold),
		dim:     color.New(color.Faint),
		noColor: noColor,
	}
	if noColor {
		for _, c := range []*color.Color{p.ok, p.client, p.server, p.vuln, p.dim} {
			c.DisableColor()
		}
	} else {
		for _, c := range []*color.Color{p.ok, p.client, p.server, p.vuln, p.dim} {
			c.EnableColor()
		}
	}
	return p
}

func (p *Palette) status(code int) *color.Color {
	switch {
	case code >= 500:
		return p.server
	case code >= 400:
		return p.client
	default:
		return p.ok
	}
}

// Line renders one result as a single human readable line.
func (p *Palette) Line(r *scanner.ProbeResult) string {
	verdict := "     "
	if r.Vulnerable {
		verdict = p.vuln.Sprint("VULN ")
	}
	return fmt.Sprintf("%s %s  %6ss  %s  %s",
		verdict,
		p.status(r.Status.Code).Sprintf("%3d", r.Status.Code),
		FormatElapsed(r.Elapsed),
		r.URL,
		p.dim.Sprintf("[%s]", r.Payload),
	)
}

// Header returns the column header line.
func (p *Palette) Header() string {
	return p.dim.Sprint("      Code    Time  URL  [payload]")
}

// TextWriter writes colored text output to a writer.
type TextWriter struct {
	w       io.Writer
	closer  io.Closer
	palette *Palette
	quiet   bool
}

// NewTextWriter creates a text output writer. If outputFile is empty, stdout
// is used. Writing to a file always disables color.
func NewTextWriter(outputFile string, noColor, quiet bool) (*TextWriter, error) {
	w, closer, err := openOutput(outputFile)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		noColor = true
	}
	return &TextWriter{w: w, closer: closer, palette: NewPalette(noColor), quiet: quiet}, nil
}

func (t *TextWriter) WriteHeader() error {
	if t.quiet {
		return nil
	}
	_, err := fmt.Fprintln(t.w, t.palette.Header())
	return err
}

func (t *TextWriter) WriteResult(result *scanner.ProbeResult) error {
	_, err := fmt.Fprintln(t.w, t.palette.Line(result))
	return err
}

func (t *TextWriter) WriteFooter(stats Stats) error {
	if t.quiet {
		return nil
	}
	_, err := fmt.Fprintln(t.w, Summary(stats))
	return err
}

func (t *TextWriter) Close() error { return closeOutput(t.closer) }

// Summary is the one-line scan summary.
func Summary(stats Stats) string {
	return fmt.Sprintf("\nScan %s: %d/%d probes answered | Vulnerable: %d | Dropped: %d | Duration: %s | %.1f req/s",
		stats.State,
		stats.Completed, stats.TotalCases,
		stats.Vulnerable,
		stats.Dropped,
		stats.Duration.Round(time.Millisecond),
		stats.RequestsPerSec,
	)
}

// NewWriter returns the report writer for format.
func NewWriter(format, outputFile string, noColor, quiet bool) (Writer, error) {
	switch format {
	case "json":
		return NewJSONWriter(outputFile)
	case "text":
		return NewTextWriter(outputFile, noColor, quiet)
	case "csv", "":
		return NewCSVWriter(outputFile)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
