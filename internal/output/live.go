package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/maxvaer/sqlprobe/internal/filter"
	"github.com/maxvaer/sqlprobe/internal/scanner"
)

// LivePrinter prints results as they arrive. It is a results subscriber.
type LivePrinter struct {
	mu       sync.Mutex
	w        io.Writer
	palette  *Palette
	chain    *filter.Chain
	progress *Progress
	shown    int
	hidden   int
}

// NewLivePrinter creates a printer writing to w, or stdout if w is nil.
// chain and progress may be nil.
func NewLivePrinter(w io.Writer, noColor bool, chain *filter.Chain, progress *Progress) *LivePrinter {
	if w == nil {
		w = os.Stdout
	}
	return &LivePrinter{w: w, palette: NewPalette(noColor), chain: chain, progress: progress}
}

// OnResult prints one result unless the filter chain hides it.
func (l *LivePrinter) OnResult(r scanner.ProbeResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !r.IsSentinel() {
		l.progress.Increment()
	}
	if filtered, _ := l.chain.Apply(&r); filtered {
		l.hidden++
		return
	}
	l.shown++

	l.progress.Clear()
	switch r.Sentinel {
	case scanner.SentinelFileNotFound:
		fmt.Fprintf(l.w, "%s %s\n", l.palette.server.Sprint(r.Status.String()), r.Payload)
	case scanner.SentinelStopped:
		fmt.Fprintln(l.w, l.palette.client.Sprint(r.Status.String()))
	default:
		fmt.Fprintln(l.w, l.palette.Line(&r))
	}
}

// Counts returns how many results were printed and hidden.
func (l *LivePrinter) Counts() (shown, hidden int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shown, l.hidden
}
