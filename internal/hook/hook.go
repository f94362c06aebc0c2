package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/maxvaer/sqlprobe/internal/logging"
	"github.com/maxvaer/sqlprobe/internal/scanner"
)

// DefaultTimeout bounds a single hook invocation.
const DefaultTimeout = 30 * time.Second

// resultJSON is the JSON payload sent to the hook command via stdin.
type resultJSON struct {
	URL        string  `json:"url"`
	Parameter  string  `json:"parameter"`
	Status     int     `json:"status"`
	Time       float64 `json:"time"`
	Payload    string  `json:"payload"`
	Vulnerable bool    `json:"vulnerable"`
}

// Runner executes a shell command for each result. It is a results
// subscriber; sentinel events are ignored.
type Runner struct {
	cmd            string
	onlyVulnerable bool
	timeout        time.Duration
	log            *zap.Logger
}

// NewRunner creates a hook runner. cmd is the shell command to execute.
// With onlyVulnerable set, clean results do not trigger the hook.
func NewRunner(cmd string, onlyVulnerable bool, log *zap.Logger) *Runner {
	return &Runner{
		cmd:            cmd,
		onlyVulnerable: onlyVulnerable,
		timeout:        DefaultTimeout,
		log:            logging.OrNop(log).Named("hook"),
	}
}

func (r *Runner) OnResult(result scanner.ProbeResult) {
	if result.IsSentinel() || (r.onlyVulnerable && !result.Vulnerable) {
		return
	}
	r.Run(&result)
}

// Expand replaces the {url}, {param}, {payload}, {status}, {time} and
// {vulnerable} placeholders in the command. Every value is quoted for the
// shell, so payload text is always a single literal argument.
func (r *Runner) Expand(result *scanner.ProbeResult) string {
	fields := placeholders(result)
	pairs := make([]string, 0, 2*len(fields))
	for _, f := range fields {
		pairs = append(pairs, "{"+f.name+"}", quoteArg(f.value))
	}
	return strings.NewReplacer(pairs...).Replace(r.cmd)
}

type field struct {
	name, value string
}

func placeholders(result *scanner.ProbeResult) []field {
	return []field{
		{"url", result.URL},
		{"param", result.Parameter},
		{"payload", result.Payload},
		{"status", strconv.Itoa(result.Status.Code)},
		{"time", strconv.FormatFloat(result.Elapsed, 'f', 2, 64)},
		{"vulnerable", strconv.FormatBool(result.Vulnerable)},
	}
}

// env exposes the same values as SQLPROBE_* variables.
func env(result *scanner.ProbeResult) []string {
	fields := placeholders(result)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, "SQLPROBE_"+strings.ToUpper(f.name)+"="+f.value)
	}
	return out
}

func quoteArg(v string) string {
	if runtime.GOOS == "windows" {
		return quoteCmd(v)
	}
	return quotePOSIX(v)
}

// quotePOSIX wraps v in single quotes; embedded quotes become '\''.
func quotePOSIX(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

// quoteCmd caret-escapes the metacharacters cmd.exe interprets.
func quoteCmd(v string) string {
	var b strings.Builder
	for _, c := range v {
		if strings.ContainsRune(`^&|<>()%!"`, c) {
			b.WriteByte('^')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Run executes the hook command with the result as JSON on stdin.
// Errors are logged but do not halt the scan.
func (r *Runner) Run(result *scanner.ProbeResult) {
	data, err := json.Marshal(resultJSON{
		URL:        result.URL,
		Parameter:  result.Parameter,
		Status:     result.Status.Code,
		Time:       result.Elapsed,
		Payload:    result.Payload,
		Vulnerable: result.Vulnerable,
	})
	if err != nil {
		r.log.Warn("marshal error", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	shell, args := shellCommand()
	cmd := exec.CommandContext(ctx, shell, append(args, r.Expand(result))...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Env = append(os.Environ(), env(result)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		r.log.Warn("hook failed",
			zap.String("url", result.URL),
			zap.Error(err),
			zap.String("stderr", strings.TrimSpace(stderr.String())),
		)
		return
	}

	if len(output) > 0 {
		r.log.Info("hook output", zap.String("url", result.URL), zap.String("output", strings.TrimSpace(string(output))))
	}
}

func shellCommand() (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}
	}
	return "sh", []string{"-c"}
}
