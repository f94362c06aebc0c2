package output

import (
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress shows scan progress on stderr. A nil *Progress is valid and
// does nothing, which is what quiet mode uses.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates a progress bar writing to w. The total is set later
// with SetTotal, once the payload source has been loaded.
func NewProgress(w io.Writer, quiet bool) *Progress {
	if quiet {
		return nil
	}
	if w == nil {
		w = os.Stderr
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription("[cyan]Probing...[reset]"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("req"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Progress{bar: bar}
}

// SetTotal sets the number of probes the bar counts towards.
func (p *Progress) SetTotal(n int) {
	if p == nil {
		return
	}
	p.bar.ChangeMax(n)
}

// Increment records one finished probe, answered or dropped.
func (p *Progress) Increment() {
	if p == nil {
		return
	}
	_ = p.bar.Add(1)
}

// Describe replaces the text shown in front of the bar.
func (p *Progress) Describe(s string) {
	if p == nil {
		return
	}
	p.bar.Describe(s)
}

// Clear erases the bar so a result line can be printed in its place. The
// bar redraws itself on the next update.
func (p *Progress) Clear() {
	if p == nil {
		return
	}
	_ = p.bar.Clear()
}

// Stop finishes and erases the bar.
func (p *Progress) Stop() {
	if p == nil {
		return
	}
	_ = p.bar.Exit()
}
