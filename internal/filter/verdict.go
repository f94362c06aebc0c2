package filter

import "github.com/maxvaer/sqlprobe/internal/scanner"

// VulnerableFilter hides every result that was not flagged vulnerable.
type VulnerableFilter struct{}

func (VulnerableFilter) Name() string { return "vulnerable-only" }

func (VulnerableFilter) ShouldFilter(result *scanner.ProbeResult) bool {
	return !result.Vulnerable
}
