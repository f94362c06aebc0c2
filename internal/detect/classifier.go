// Package detect classifies probe responses as SQL-injection hits by
// database error signatures and by response latency.
package detect

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeThreshold is the latency above which a response counts as a
// time-based blind injection hit.
const DefaultTimeThreshold = 1500 * time.Millisecond

// Classifier is safe for concurrent use. Its verdict depends only on its
// inputs and its construction-time configuration.
type Classifier struct {
	threshold float64 // seconds
	any       *regexp.Regexp
	each      []*regexp.Regexp
}

// NewClassifier builds a Classifier with the given latency threshold. The
// threshold must stay below the request timeout so a slow hit can still
// complete before being dropped.
func NewClassifier(threshold, timeout time.Duration) (*Classifier, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("time threshold must be positive, got %s", threshold)
	}
	if timeout > 0 && threshold >= timeout {
		return nil, fmt.Errorf("time threshold %s must be below request timeout %s", threshold, timeout)
	}
	return newClassifier(threshold), nil
}

// Default returns a Classifier with the 1.5s threshold.
func Default() *Classifier {
	return newClassifier(DefaultTimeThreshold)
}

func newClassifier(threshold time.Duration) *Classifier {
	parts := make([]string, len(Signatures))
	each := make([]*regexp.Regexp, len(Signatures))
	for i, s := range Signatures {
		parts[i] = s.Pattern
		each[i] = regexp.MustCompile(`(?i)` + s.Pattern)
	}
	return &Classifier{
		threshold: threshold.Seconds(),
		any:       regexp.MustCompile(`(?i)(` + strings.Join(parts, "|") + `)`),
		each:      each,
	}
}

// Threshold returns the latency threshold.
func (c *Classifier) Threshold() time.Duration {
	return time.Duration(c.threshold * float64(time.Second))
}

// Classify returns the verdict for one response. status is accepted for
// completeness; the verdict currently depends on body and elapsed only.
func (c *Classifier) Classify(status int, body []byte, elapsedSeconds float64) bool {
	return c.MatchesErrorSignature(body) || elapsedSeconds > c.threshold
}

// MatchesErrorSignature reports whether body contains a known database error.
func (c *Classifier) MatchesErrorSignature(body []byte) bool {
	return c.any.Match(body)
}

// Match returns the first signature found in body, for logging.
func (c *Classifier) Match(body []byte) (Signature, bool) {
	if !c.any.Match(body) {
		return Signature{}, false
	}
	for i, re := range c.each {
		if re.Match(body) {
			return Signatures[i], true
		}
	}
	return Signature{}, false
}
