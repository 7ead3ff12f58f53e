package analyzer

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/olegrjumin/checkurl/internal/ruleset"
)

// Points added per ruleset signature hit.
const (
	PatternPoints = 10
	DomainPoints  = 5
)

// Threat labels.
const (
	LabelScam              = "Scam"
	LabelMalware           = "Malware"
	LabelIdentityTheft     = "Identity Theft"
	LabelCryptoScam        = "Cryptocurrency Scam"
	LabelTechSupportScam   = "Tech Support Scam"
	LabelSuspiciousContent = "Suspicious Content"
	LabelSuspiciousDomain  = "Suspicious Domain"
)

// patternFamilies maps keyword families to labels. The first family whose
// keyword is contained in the matched pattern wins.
var patternFamilies = []struct {
	keyword string
	label   string
}{
	{"scam", LabelScam},
	{"malware", LabelMalware},
	{"fake-bank", LabelIdentityTheft},
	{"crypto", LabelCryptoScam},
	{"tech-support", LabelTechSupportScam},
}

// ScoreReport is the outcome of local scoring.
type ScoreReport struct {
	RiskScore int
	Threats   []string
	Signals   []Signal
}

// Score computes the additive risk score of rawURL. It is pure: the same URL,
// ruleset and heuristics always give the same report.
func Score(rawURL string, rs *ruleset.Ruleset, hc HeuristicConfig) ScoreReport {
	text := normalizeURL(rawURL)
	host := ExtractDomain(rawURL)

	report := ScoreReport{Threats: []string{}}
	seen := make(map[string]bool)
	addThreat := func(label string) {
		if !seen[label] {
			seen[label] = true
			report.Threats = append(report.Threats, label)
		}
	}

	if rs != nil {
		for _, p := range rs.MatchPatterns(text) {
			report.Signals = append(report.Signals, Signal{Kind: SignalPattern, Detail: p, Points: PatternPoints})
			addThreat(ThreatLabel(p))
		}
		for _, d := range rs.MatchDomains(text) {
			report.Signals = append(report.Signals, Signal{Kind: SignalDomain, Detail: d, Points: DomainPoints})
			addThreat(LabelSuspiciousDomain)
		}
	}

	report.Signals = append(report.Signals, hc.evaluate(text, host)...)

	for _, s := range report.Signals {
		report.RiskScore += s.Points
	}
	return report
}

// ThreatLabel categorizes a matched keyword pattern.
func ThreatLabel(pattern string) string {
	p := strings.ToLower(pattern)
	for _, f := range patternFamilies {
		if strings.Contains(p, f.keyword) {
			return f.label
		}
	}
	return LabelSuspiciousContent
}

// Reasoning renders the signals as a one-line explanation.
func (r ScoreReport) Reasoning() string {
	if len(r.Signals) == 0 {
		return "No threat signals detected"
	}
	parts := make([]string, 0, len(r.Signals))
	for _, s := range r.Signals {
		switch s.Kind {
		case SignalPattern:
			parts = append(parts, fmt.Sprintf("matched pattern %q (+%d)", s.Detail, s.Points))
		case SignalDomain:
			parts = append(parts, fmt.Sprintf("matched domain signature %q (+%d)", s.Detail, s.Points))
		default:
			parts = append(parts, fmt.Sprintf("%s (+%d)", s.Detail, s.Points))
		}
	}
	return fmt.Sprintf("Risk score %d: %s", r.RiskScore, strings.Join(parts, "; "))
}

// normalizeURL folds compatibility characters (fullwidth letters, ligatures)
// before lower-casing so they cannot dodge substring signatures.
func normalizeURL(rawURL string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(rawURL)))
}

// ExtractDomain returns the lower-cased hostname of an absolute URL, or ""
// when the URL cannot be parsed or has no host.
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}
