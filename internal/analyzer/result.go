package analyzer

import (
	"strings"
	"time"
)

// Status is the classification assigned to a URL.
type Status string

// Status values, in increasing order of severity.
const (
	StatusSafe       Status = "safe"
	StatusSuspicious Status = "suspicious"
	StatusMalicious  Status = "malicious"
)

// ParseStatus maps a case-insensitive status string to a Status.
// ok is false for anything that is not one of the three known values.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusSafe:
		return StatusSafe, true
	case StatusSuspicious:
		return StatusSuspicious, true
	case StatusMalicious:
		return StatusMalicious, true
	}
	return StatusSafe, false
}

// Severity orders statuses: safe < suspicious < malicious.
func (s Status) Severity() int {
	switch s {
	case StatusSuspicious:
		return 1
	case StatusMalicious:
		return 2
	default:
		return 0
	}
}

// Failure messages carried in Result.Error.
const (
	ErrMsgNoURL     = "No URL provided"
	ErrMsgNoRuleset = "threat database unavailable"
	ErrMsgInternal  = "internal analysis error"

	remoteFailurePrefix = "remote classifier unavailable: "
)

// Result is the single output type of an analysis.
type Result struct {
	Status      Status   `json:"status"`
	Threats     []string `json:"threats"`             // Unique labels, order of first detection
	Confidence  int      `json:"confidence"`          // 0-100
	RiskScore   *int     `json:"riskScore,omitempty"` // Present only when scored locally
	Reasoning   string   `json:"reasoning,omitempty"` // Human-readable explanation
	Domain      string   `json:"domain"`              // Hostname, "" when the URL does not parse
	Timestamp   string   `json:"timestamp"`           // RFC 3339 creation time
	AIPowered   bool     `json:"aiPowered"`           // Produced by the remote classifier
	Whitelisted bool     `json:"whitelisted"`         // Short-circuited by the allowlist
	Degraded    bool     `json:"degraded,omitempty"`  // Produced by a fail-open path
	Error       string   `json:"error,omitempty"`     // Why the result is degraded

	// Source and FailureKind feed metrics and are not serialized.
	Source      Source `json:"-"`
	FailureKind string `json:"-"`
}

// degradedResult is the conservative fail-open answer.
func degradedResult(domain, msg string, now time.Time) Result {
	return Result{
		Status:     StatusSafe,
		Threats:    []string{},
		Confidence: 0,
		Domain:     domain,
		Timestamp:  formatTimestamp(now),
		Degraded:   true,
		Error:      msg,
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func intPtr(v int) *int { return &v }
