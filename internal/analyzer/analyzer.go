// Package analyzer turns a URL into a safe/suspicious/malicious verdict.
//
// Analysis runs in a fixed order: the trust allowlist may short-circuit,
// then an optional remote classifier is tried, and local additive scoring is
// used when no remote classifier is configured or when it fails. Analyze
// never returns an error and never panics; every failure is encoded in the
// Result as a degraded, fail-open verdict.
//
// The Analyzer holds only read-only state and is safe for concurrent use.
package analyzer

import (
	"context"
	"strings"
	"time"

	"github.com/olegrjumin/checkurl/internal/classifier"
	"github.com/olegrjumin/checkurl/internal/logging"
	"github.com/olegrjumin/checkurl/internal/ruleset"
)

// RemoteClassifier is the optional external classification capability.
type RemoteClassifier interface {
	Classify(ctx context.Context, rawURL string) (*classifier.Verdict, error)
}

// Source records which path produced a Result.
type Source string

const (
	SourceAllowlist Source = "allowlist"
	SourceRemote    Source = "remote"
	SourceLocal     Source = "local"
	SourceFallback  Source = "fallback"
	SourceDegraded  Source = "degraded"
)

// Options are the per-call settings, loaded once by the caller.
type Options struct {
	ProtectionLevel ProtectionLevel
	Ruleset         *ruleset.Ruleset
	// UseRemote allows the remote classifier for this call when one is
	// configured.
	UseRemote bool
}

// Config holds the Analyzer's collaborators.
type Config struct {
	Allowlist  *Allowlist
	Heuristics HeuristicConfig
	Remote     RemoteClassifier // nil disables remote classification
	Logger     *logging.Logger
}

// Analyzer is the analysis entry point.
type Analyzer struct {
	allowlist  *Allowlist
	heuristics HeuristicConfig
	remote     RemoteClassifier
	logger     *logging.Logger
	now        func() time.Time
}

// New creates an Analyzer. A nil Allowlist disables short-circuiting and a
// nil Logger discards log output.
func New(cfg Config) *Analyzer {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Analyzer{
		allowlist:  cfg.Allowlist,
		heuristics: cfg.Heuristics,
		remote:     cfg.Remote,
		logger:     logger,
		now:        time.Now,
	}
}

// HasRemote reports whether a remote classifier is configured.
func (a *Analyzer) HasRemote() bool {
	return a.remote != nil
}

// Analyze classifies rawURL.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string, opts Options) (result Result) {
	now := a.now()
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		result = degradedResult("", ErrMsgNoURL, now)
		result.Source = SourceDegraded
		return result
	}

	domain := ExtractDomain(rawURL)

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Analysis panicked", "url", rawURL, "panic", r)
			result = degradedResult(domain, ErrMsgInternal, now)
			result.Source = SourceDegraded
		}
	}()

	if wl := a.allowlist.Filter(rawURL, now); wl != nil {
		wl.Source = SourceAllowlist
		return *wl
	}

	base := PrimaryConfidenceBase
	source := SourceLocal
	var remoteErr error

	if opts.UseRemote && a.remote != nil {
		verdict, err := a.remote.Classify(ctx, rawURL)
		if err == nil {
			return a.remoteResult(verdict, domain, now)
		}
		remoteErr = err
		base = FallbackConfidenceBase
		source = SourceFallback
		a.logger.Warn("Remote classifier failed, using local scoring",
			"url", rawURL,
			"reason", classifier.FailureKind(err),
			"error", err,
		)
	}

	if opts.Ruleset == nil {
		result = degradedResult(domain, ErrMsgNoRuleset, now)
		result.Source = SourceDegraded
		return result
	}

	report := Score(rawURL, opts.Ruleset, a.heuristics)
	result = Result{
		Status:     Classify(report.RiskScore, opts.ProtectionLevel),
		Threats:    report.Threats,
		Confidence: LocalConfidence(base, report.RiskScore),
		RiskScore:  intPtr(report.RiskScore),
		Reasoning:  report.Reasoning(),
		Domain:     domain,
		Timestamp:  formatTimestamp(now),
		Source:     source,
	}
	if remoteErr != nil {
		result.Degraded = true
		result.FailureKind = classifier.FailureKind(remoteErr)
		result.Error = remoteFailurePrefix + result.FailureKind
	}
	return result
}

func (a *Analyzer) remoteResult(v *classifier.Verdict, domain string, now time.Time) Result {
	status, _ := ParseStatus(v.Status)
	threats := v.Threats
	if threats == nil {
		threats = []string{}
	}
	return Result{
		Status:     status,
		Threats:    threats,
		Confidence: v.Confidence,
		Reasoning:  v.Reasoning,
		Domain:     domain,
		Timestamp:  formatTimestamp(now),
		AIPowered:  true,
		Source:     SourceRemote,
	}
}
