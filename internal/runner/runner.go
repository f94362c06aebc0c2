package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/maxvaer/sqlprobe/internal/config"
	"github.com/maxvaer/sqlprobe/internal/detect"
	"github.com/maxvaer/sqlprobe/internal/filter"
	"github.com/maxvaer/sqlprobe/internal/hook"
	"github.com/maxvaer/sqlprobe/internal/logging"
	"github.com/maxvaer/sqlprobe/internal/metrics"
	"github.com/maxvaer/sqlprobe/internal/output"
	"github.com/maxvaer/sqlprobe/internal/payloads"
	"github.com/maxvaer/sqlprobe/internal/scanner"
	"github.com/maxvaer/sqlprobe/internal/session"
	"github.com/maxvaer/sqlprobe/pkg/version"
)

// Run executes one scan of opts.URL with the payloads in opts.PayloadsPath
// and writes the report. Cancelling ctx stops the scan; the report still
// holds every probe that completed.
func Run(ctx context.Context, opts *config.Options, log *zap.Logger) error {
	log = logging.OrNop(log)

	// 1. Classifier and pacing shared by every session.
	classifier, err := detect.NewClassifier(opts.TimeThreshold, opts.Timeout)
	if err != nil {
		return fmt.Errorf("creating classifier: %w", err)
	}
	throttler := scanner.NewThrottler(opts.Rate)

	// 2. Display filters and progress.
	chain := filter.NewChain()
	if len(opts.ExcludeStatus) > 0 {
		chain.Add(filter.NewStatusFilter(nil, opts.ExcludeStatus))
	}
	if opts.OnlyVulnerable {
		chain.Add(filter.VulnerableFilter{})
	}
	progress := output.NewProgress(os.Stderr, opts.Quiet)

	// 3. Optional live outputs that need the session ID.
	var stream *output.StreamWriter
	if opts.StreamFile != "" {
		stream, err = output.NewStreamWriter(opts.StreamFile)
		if err != nil {
			return err
		}
		defer stream.Close()
	}

	var mgr *session.Manager
	var collector *metrics.Collector
	if opts.MetricsAddr != "" {
		collector, err = metrics.New(func() float64 {
			if s := mgr.Current(); s != nil {
				return float64(s.InFlight())
			}
			return 0
		})
		if err != nil {
			return err
		}
	}

	// 4. Session factory: one requester per target.
	factory := func(target, sourceRef string) (*session.Session, error) {
		o := *opts
		o.URL = target
		req, err := scanner.NewRequester(&o)
		if err != nil {
			return nil, fmt.Errorf("creating requester: %w", err)
		}
		s := session.New(session.Config{
			Target:      target,
			Source:      payloads.NewCSVSource(sourceRef),
			Prober:      req,
			Classifier:  classifier,
			Concurrency: opts.Concurrency,
			Throttler:   throttler,
			QueueSize:   opts.QueueSize,
			Logger:      log,
			OnLoad:      progress.SetTotal,
			OnDrop: func(o scanner.Outcome) {
				progress.Increment()
				collector.ObserveDrop(o)
			},
		})
		if stream != nil {
			stream.SetSession(s.ID)
		}
		return s, nil
	}
	mgr = session.NewManager(factory, log)

	if collector != nil {
		addr, err := collector.Serve(ctx, opts.MetricsAddr)
		if err != nil {
			return err
		}
		log.Info("serving metrics", zap.String("addr", "http://"+addr.String()+"/metrics"))
	}

	// 5. Subscribers.
	reportToStdout := opts.OutputFile == ""
	var live io.Writer = os.Stdout
	if reportToStdout && opts.OutputFormat != "text" {
		live = os.Stderr
	}
	mgr.Subscribe(output.NewLivePrinter(live, opts.NoColor, chain, progress))
	if stream != nil {
		mgr.Subscribe(stream)
	}
	if collector != nil {
		mgr.Subscribe(collector)
	}
	if opts.OnResultCmd != "" {
		mgr.Subscribe(hook.NewRunner(opts.OnResultCmd, opts.OnlyVulnerable, log))
	}

	if !opts.Quiet {
		printBanner(opts)
	}

	// 6. Run.
	s, err := mgr.Start(ctx, opts.URL, opts.PayloadsPath)
	if err != nil {
		return err
	}
	restore := startStdinToggle(mgr, opts.Quiet)
	state, _ := mgr.Wait(context.Background())
	restore()
	progress.Stop()
	collector.ObserveSession(state.String())

	if stream != nil {
		if err := stream.Err(); err != nil {
			log.Warn("stream output incomplete", zap.Error(err))
		}
	}

	if state == session.Failed {
		return fmt.Errorf("%w: %s", payloads.ErrSourceUnavailable, opts.PayloadsPath)
	}

	// 7. Report.
	stats := sessionStats(state, s.Stats())
	if !(reportToStdout && opts.OutputFormat == "text") {
		out, err := output.NewWriter(opts.OutputFormat, opts.OutputFile, opts.NoColor, opts.Quiet)
		if err != nil {
			return fmt.Errorf("creating output writer: %w", err)
		}
		if err := output.WriteReport(out, s.Results(), stats); err != nil {
			out.Close()
			return fmt.Errorf("writing report: %w", err)
		}
		if err := out.Close(); err != nil {
			return err
		}
	}

	if !opts.Quiet {
		fmt.Fprintln(os.Stderr, output.Summary(stats))
		if opts.OutputFile != "" {
			fmt.Fprintf(os.Stderr, "[+] Report written to %s\n", opts.OutputFile)
		}
	}
	return nil
}

func sessionStats(state session.State, st session.Stats) output.Stats {
	rps := float64(0)
	if secs := (st.Duration - st.Paused).Seconds(); secs > 0 {
		rps = float64(int64(st.Completed)+st.Dropped) / secs
	}
	return output.Stats{
		State:          state.String(),
		TotalCases:     st.Total,
		Completed:      st.Completed,
		Dropped:        st.Dropped,
		Vulnerable:     st.Vulnerable,
		Duration:       st.Duration,
		RequestsPerSec: rps,
	}
}

func printBanner(opts *config.Options) {
	cyan := color.New(color.FgCyan)
	dim := color.New(color.Faint)
	white := color.New(color.FgHiWhite)
	yellow := color.New(color.FgYellow)
	if opts.NoColor {
		for _, c := range []*color.Color{cyan, dim, white, yellow} {
			c.DisableColor()
		}
	}

	w := os.Stderr
	cyan.Fprint(w, bannerArt)
	dim.Fprintf(w, "   v%s\n\n", strings.TrimPrefix(version.Version, "v"))

	rate := "unlimited"
	if opts.Rate > 0 {
		rate = fmt.Sprintf("%g req/s", opts.Rate)
	}

	dim.Fprintln(w, "  ──────────────────────────────────────")
	fmt.Fprintf(w, "  %s       %s\n", dim.Sprint("Target:"), white.Sprint(opts.URL))
	fmt.Fprintf(w, "  %s     %s\n", dim.Sprint("Payloads:"), white.Sprint(opts.PayloadsPath))
	fmt.Fprintf(w, "  %s  %s\n", dim.Sprint("Concurrency:"), yellow.Sprintf("%d (%d per host)", opts.Concurrency, opts.PerHost))
	fmt.Fprintf(w, "  %s      %s\n", dim.Sprint("Timeout:"), yellow.Sprintf("%s, slow above %s", opts.Timeout, opts.TimeThreshold))
	fmt.Fprintf(w, "  %s         %s\n", dim.Sprint("Rate:"), yellow.Sprint(rate))
	dim.Fprintln(w, "  ──────────────────────────────────────")
	if isInteractive() {
		dim.Fprintln(w, "  Enter/Space pauses, s stops")
	}
	fmt.Fprintln(w)
}

const bannerArt = `
             __             __
   ___ ___ _/ /__  _______  / /  ___
  (_-</ _ ` + "`" + `/ / _ \/ __/ _ \/ _ \/ -_)
 /___/\_, /_/ .__/_/  \___/_.__/\__/
       /_/ /_/
`
