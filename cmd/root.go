package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/maxvaer/sqlprobe/internal/config"
	"github.com/maxvaer/sqlprobe/internal/logging"
	"github.com/maxvaer/sqlprobe/internal/reqparse"
	"github.com/maxvaer/sqlprobe/internal/runner"
	"github.com/maxvaer/sqlprobe/pkg/version"
)

var opts = config.Default()

type flagGroup struct {
	title string
	flags []string
}

var helpGroups = []flagGroup{
	{"TARGET", []string{"url", "payloads", "request-file"}},
	{"ENGINE", []string{"concurrency", "per-host", "timeout", "time-threshold", "rate"}},
	{"HTTP", []string{"header", "user-agent", "proxy"}},
	{"OUTPUT", []string{"output", "format", "stream", "only-vulnerable", "exclude-status", "on-result", "quiet", "no-color", "verbose"}},
	{"CONFIGURATION", []string{"config", "metrics-addr"}},
}

var rootCmd = &cobra.Command{
	Use:     "sqlprobe -u <url> -p <payloads.csv> [flags]",
	Short:   "Concurrent SQL injection prober",
	Version: version.Version,
	Long: `sqlprobe sends one GET request per (parameter, payload) pair to a target
URL and flags responses that leak a database error or answer suspiciously
slowly. Results stream live and are written as a report when the scan ends.`,
	Example: `  sqlprobe -u http://example.com/item -p payloads.csv
  sqlprobe -u http://example.com/item -p payloads.csv -o report.csv
  sqlprobe -u http://example.com/item -p payloads.csv --format json -o report.json
  sqlprobe -u http://example.com/item -p payloads.csv -c 200 --per-host 20 --rate 100
  sqlprobe -r burp.req -p payloads.csv
  sqlprobe -u http://example.com/item -p payloads.csv --only-vulnerable --on-result "notify-send {url}"
  sqlprobe --config scan.yaml --metrics-addr :9090`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if opts.ConfigFile != "" {
			fc, err := config.LoadFile(opts.ConfigFile)
			if err != nil {
				return err
			}
			if err := fc.Apply(opts, cmd.Flags().Changed); err != nil {
				return err
			}
		}
		if opts.RequestFile != "" {
			if err := applyRequestFile(cmd); err != nil {
				return err
			}
		}
		if opts.URL == "" || opts.PayloadsPath == "" {
			_ = cmd.Help()
			fmt.Fprintln(os.Stderr)
			return fmt.Errorf("target and payloads required: use -u (or -r) and -p")
		}
		if !strings.HasPrefix(opts.URL, "http://") && !strings.HasPrefix(opts.URL, "https://") {
			opts.URL = "http://" + opts.URL
		}
		return opts.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		log := logging.New(opts.Verbose, opts.Quiet)
		defer func() { _ = log.Sync() }()

		return runner.Run(ctx, opts, log)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	f := rootCmd.Flags()

	// Target
	f.StringVarP(&opts.URL, "url", "u", "", "Target URL; payloads are injected into its query string")
	f.StringVarP(&opts.PayloadsPath, "payloads", "p", "", "CSV file of parameter,payload records")
	f.StringVarP(&opts.RequestFile, "request-file", "r", "", "Raw HTTP request file (e.g. Burp Suite export) supplying URL and headers")

	// Engine
	f.IntVarP(&opts.Concurrency, "concurrency", "c", config.DefaultConcurrency, "Maximum probes in flight")
	f.IntVar(&opts.PerHost, "per-host", config.DefaultPerHost, "Maximum open connections to the target host")
	f.DurationVar(&opts.Timeout, "timeout", config.DefaultTimeout, "Per-request timeout; slower probes are dropped")
	f.DurationVar(&opts.TimeThreshold, "time-threshold", config.DefaultTimeThreshold, "Flag responses slower than this as vulnerable")
	f.Float64Var(&opts.Rate, "rate", 0, "Maximum requests per second (0 = unlimited)")

	// HTTP
	f.StringSliceP("header", "H", nil, "Custom headers (Key: Value)")
	f.StringArrayVar(&opts.UserAgents, "user-agent", config.DefaultUserAgents, "User-Agent pool, one is picked per request")
	f.StringVar(&opts.Proxy, "proxy", "", "HTTP/SOCKS proxy URL")

	// Output
	f.StringVarP(&opts.OutputFile, "output", "o", "", "Report file path (default: stdout)")
	f.StringVar(&opts.OutputFormat, "format", "csv", "Report format: csv, json, text")
	f.StringVar(&opts.StreamFile, "stream", "", "Write every live event as JSON lines to this file (- for stdout)")
	f.BoolVar(&opts.OnlyVulnerable, "only-vulnerable", false, "Only show vulnerable results live")
	f.VarP(&intSliceValue{target: &opts.ExcludeStatus}, "exclude-status", "x", "Hide these status codes live (comma-separated)")
	f.StringVar(&opts.OnResultCmd, "on-result", "", "Shell command to run for each result (receives JSON on stdin)")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "Minimal output")
	f.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Debug logging, including dropped probes")

	// Configuration
	f.StringVar(&opts.ConfigFile, "config", "", "YAML config file; flags given on the command line win")
	f.StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	// Custom help: categorized flags like httpx.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		w := os.Stderr
		fmt.Fprint(w, helpBanner(cmd.Version))
		fmt.Fprintf(w, "%s\n\nUsage:\n  %s\n", cmd.Long, cmd.UseLine())
		fmt.Fprintf(w, "\nExamples:\n%s\n", cmd.Example)
		fmt.Fprintf(w, "\nFlags:\n")
		for _, g := range helpGroups {
			fmt.Fprintf(w, "\n%s:\n", g.title)
			for _, name := range g.flags {
				if f := cmd.Flags().Lookup(name); f != nil {
					fmt.Fprintln(w, formatFlag(f))
				}
			}
		}
		fmt.Fprintln(w)
	})

	// Parse headers from string slice into map before the config file is
	// applied, so explicit -H flags win over file headers.
	rootCmd.PreRunE = chainPreRun(func(cmd *cobra.Command, args []string) error {
		headers, _ := f.GetStringSlice("header")
		parsed, err := parseHeaders(headers)
		if err != nil {
			return err
		}
		if parsed != nil {
			opts.Headers = parsed
		}
		return nil
	}, rootCmd.PreRunE)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyRequestFile takes the target and headers from a captured request.
// Explicit -u, -H and --user-agent flags take precedence.
func applyRequestFile(cmd *cobra.Command) error {
	parsed, err := reqparse.ParseFile(opts.RequestFile)
	if err != nil {
		return fmt.Errorf("parsing request file: %w", err)
	}
	if !cmd.Flags().Changed("url") {
		opts.URL = parsed.URL
	}
	if opts.Headers == nil {
		opts.Headers = make(map[string]string)
	}
	for key, val := range parsed.Headers {
		if key == "User-Agent" {
			if !cmd.Flags().Changed("user-agent") {
				opts.UserAgents = []string{val}
			}
			continue
		}
		if _, exists := opts.Headers[key]; !exists {
			opts.Headers[key] = val
		}
	}
	if !opts.Quiet {
		fmt.Fprintf(os.Stderr, "[+] Loaded request from %s -> %s\n", opts.RequestFile, opts.URL)
		if parsed.Method != "GET" {
			fmt.Fprintf(os.Stderr, "[!] Captured method %s ignored, probes are sent as GET\n", parsed.Method)
		}
		if params := parsed.Params(); len(params) > 0 {
			fmt.Fprintf(os.Stderr, "[*] Query parameters in request: %s\n", strings.Join(params, ", "))
		}
	}
	return nil
}

func parseHeaders(headers []string) (map[string]string, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid header format %q, expected 'Key: Value'", h)
		}
		out[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return out, nil
}

// chainPreRun combines two PreRunE functions.
func chainPreRun(first, second func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if first != nil {
			if err := first(cmd, args); err != nil {
				return err
			}
		}
		return second(cmd, args)
	}
}

// intSliceValue implements pflag.Value for comma-separated int slices.
type intSliceValue struct {
	target *[]int
}

func (v *intSliceValue) String() string {
	if v.target == nil || len(*v.target) == 0 {
		return ""
	}
	parts := make([]string, len(*v.target))
	for i, val := range *v.target {
		parts[i] = strconv.Itoa(val)
	}
	return strings.Join(parts, ",")
}

func (v *intSliceValue) Set(s string) error {
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid status code %q: %w", p, err)
		}
		*v.target = append(*v.target, n)
	}
	return nil
}

func (v *intSliceValue) Type() string { return "ints" }

func formatFlag(f *pflag.Flag) string {
	var left string
	if f.Shorthand != "" {
		left = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	} else {
		left = fmt.Sprintf("    --%s", f.Name)
	}

	typ := f.Value.Type()
	if typ != "bool" {
		left += " " + typ
	}

	// Pad to fixed column width for aligned descriptions.
	const col = 36
	for len(left) < col {
		left += " "
	}

	right := f.Usage
	// Show default for non-zero values; the UA pool is too long to print.
	def := f.DefValue
	if f.Name != "user-agent" && def != "" && def != "false" && def != "0" && def != "0s" && def != "[]" {
		right += fmt.Sprintf(" (default %s)", def)
	}

	return "   " + left + right
}

func helpBanner(ver string) string {
	if ver != "dev" && ver != "" && !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	return fmt.Sprintf(`
             __             __
   ___ ___ _/ /__  _______  / /  ___
  (_-</ _ `+"`"+`/ / _ \/ __/ _ \/ _ \/ -_)
 /___/\_, /_/ .__/_/  \___/_.__/\__/
       /_/ /_/                        %s

`, ver)
}
