package analyzer

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

// Brand is a frequently impersonated company and the domain it owns.
type Brand struct {
	Name   string `json:"name" mapstructure:"name"`
	Domain string `json:"domain" mapstructure:"domain"`
}

// HeuristicWeights are the points each structural signal adds.
type HeuristicWeights struct {
	IPLiteral          int `json:"ipLiteral" mapstructure:"ip_literal"`
	LowTrustTLD        int `json:"lowTrustTld" mapstructure:"low_trust_tld"`
	Shortener          int `json:"shortener" mapstructure:"shortener"`
	IDN                int `json:"idn" mapstructure:"idn"`
	BrandImpersonation int `json:"brandImpersonation" mapstructure:"brand_impersonation"`
	Insecure           int `json:"insecure" mapstructure:"insecure"`
}

// HeuristicConfig is the structural half of the ruleset: URL shapes that are
// suspicious regardless of the keyword signatures.
type HeuristicConfig struct {
	LowTrustTLDs []string         `json:"lowTrustTlds" mapstructure:"low_trust_tlds"`
	Shorteners   []string         `json:"shorteners" mapstructure:"shorteners"`
	Brands       []Brand          `json:"brands" mapstructure:"brands"`
	Weights      HeuristicWeights `json:"weights" mapstructure:"weights"`
}

// DefaultHeuristics returns the built-in heuristic table.
func DefaultHeuristics() HeuristicConfig {
	return HeuristicConfig{
		LowTrustTLDs: []string{".tk", ".ml", ".ga", ".cf"},
		Shorteners: []string{
			"bit.ly", "tinyurl.com", "t.co", "goo.gl", "ow.ly",
			"is.gd", "buff.ly", "rebrand.ly", "cutt.ly",
		},
		Brands: []Brand{
			{Name: "paypal", Domain: "paypal.com"},
			{Name: "amazon", Domain: "amazon.com"},
			{Name: "microsoft", Domain: "microsoft.com"},
			{Name: "apple", Domain: "apple.com"},
			{Name: "google", Domain: "google.com"},
		},
		Weights: HeuristicWeights{
			IPLiteral:          6,
			LowTrustTLD:        5,
			Shortener:          4,
			IDN:                4,
			BrandImpersonation: 7,
			Insecure:           2,
		},
	}
}

// Signal kinds reported in a ScoreReport.
const (
	SignalPattern     = "pattern"
	SignalDomain      = "domain_signature"
	SignalIPLiteral   = "ip_literal"
	SignalLowTrustTLD = "low_trust_tld"
	SignalShortener   = "shortener"
	SignalIDN         = "idn"
	SignalBrand       = "brand_impersonation"
	SignalInsecure    = "insecure_transport"
)

// Signal is one contribution to a risk score.
type Signal struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
	Points int    `json:"points"`
}

const idnPrefix = "xn--"

// Used only when the URL has no parseable host.
var ipv4Pattern = regexp.MustCompile(`(?:^|[^0-9.])(?:[0-9]{1,3}\.){3}[0-9]{1,3}(?:[^0-9.]|$)`)

// evaluate runs every structural heuristic. text is the normalized,
// lower-cased URL and host its lower-cased hostname ("" if unparseable).
func (hc HeuristicConfig) evaluate(text, host string) []Signal {
	var signals []Signal
	add := func(kind, detail string, points int) {
		if points != 0 {
			signals = append(signals, Signal{Kind: kind, Detail: detail, Points: points})
		}
	}

	if isIPv4Host(text, host) {
		add(SignalIPLiteral, "host is a bare IPv4 address", hc.Weights.IPLiteral)
	}

	if host != "" {
		for _, tld := range hc.LowTrustTLDs {
			if strings.HasSuffix(host, strings.ToLower(tld)) {
				add(SignalLowTrustTLD, fmt.Sprintf("low-trust TLD %s", tld), hc.Weights.LowTrustTLD)
				break
			}
		}

		for _, s := range hc.Shorteners {
			if hostMatches(host, s) {
				add(SignalShortener, fmt.Sprintf("link shortener %s", s), hc.Weights.Shortener)
				break
			}
		}
	}

	if strings.Contains(text, idnPrefix) {
		add(SignalIDN, idnDetail(host), hc.Weights.IDN)
	}

	for _, b := range hc.Brands {
		name := strings.ToLower(b.Name)
		if name == "" || !strings.Contains(text, name) {
			continue
		}
		if !hostMatches(host, b.Domain) {
			add(SignalBrand, fmt.Sprintf("mentions %s but is not hosted on %s", b.Name, b.Domain), hc.Weights.BrandImpersonation)
			break
		}
	}

	if strings.HasPrefix(text, "http://") {
		add(SignalInsecure, "unencrypted http", hc.Weights.Insecure)
	}

	return signals
}

func isIPv4Host(text, host string) bool {
	if host != "" {
		addr, err := netip.ParseAddr(host)
		return err == nil && addr.Is4()
	}
	return ipv4Pattern.MatchString(text)
}

// hostMatches reports whether host is domain or one of its subdomains.
func hostMatches(host, domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if host == "" || domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func idnDetail(host string) string {
	if host == "" || !strings.Contains(host, idnPrefix) {
		return "punycode-encoded text"
	}
	decoded, err := idna.Lookup.ToUnicode(host)
	if err != nil || decoded == host {
		return fmt.Sprintf("punycode host %s", host)
	}
	return fmt.Sprintf("punycode host %s (%s)", host, decoded)
}
