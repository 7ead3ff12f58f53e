package analyzer

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// NavigationRule describes first-party navigation on the search provider.
// A rule matches when every non-empty field matches. Rules without a Host
// only apply to the provider's UI hosts.
type NavigationRule struct {
	Name       string `json:"name" mapstructure:"name"`
	Host       string `json:"host,omitempty" mapstructure:"host"`              // exact hostname
	Path       string `json:"path,omitempty" mapstructure:"path"`              // exact path
	PathPrefix string `json:"pathPrefix,omitempty" mapstructure:"path_prefix"` // path prefix
	QueryParam string `json:"queryParam,omitempty" mapstructure:"query_param"` // query key present
}

// AllowlistConfig is the data behind the trust allowlist.
type AllowlistConfig struct {
	TrustedDomains       []string `json:"trustedDomains" mapstructure:"trusted_domains"`
	SearchProviderDomain string   `json:"searchProviderDomain" mapstructure:"search_provider_domain"`
	// ProviderHosts are the hosts serving the provider's own UI. Other
	// subdomains host user content and are scored. Empty means the provider
	// domain and its www. host.
	ProviderHosts   []string         `json:"providerHosts" mapstructure:"provider_hosts"`
	NavigationRules []NavigationRule `json:"navigationRules" mapstructure:"navigation_rules"`
	// ScoredPaths are provider paths that always go through scoring, such as
	// outbound redirect endpoints.
	ScoredPaths []string `json:"scoredPaths" mapstructure:"scored_paths"`
}

// DefaultAllowlist returns the built-in trusted domains and Google
// navigation rules.
func DefaultAllowlist() AllowlistConfig {
	return AllowlistConfig{
		TrustedDomains: []string{
			"youtube.com", "facebook.com", "twitter.com", "x.com",
			"instagram.com", "linkedin.com", "wikipedia.org", "amazon.com",
			"apple.com", "microsoft.com", "github.com", "reddit.com",
			"bing.com", "duckduckgo.com", "yahoo.com", "bbc.com",
			"bbc.co.uk", "cnn.com", "nytimes.com", "theguardian.com",
			"reuters.com",
		},
		SearchProviderDomain: "google.com",
		ProviderHosts:        []string{"google.com", "www.google.com"},
		NavigationRules: []NavigationRule{
			{Name: "auth host", Host: "accounts.google.com"},
			{Name: "auth path", PathPrefix: "/accounts/"},
			{Name: "auth path", PathPrefix: "/servicelogin"},
			{Name: "auth path", PathPrefix: "/signin"},
			{Name: "localization path", PathPrefix: "/intl/"},
			{Name: "localization", Path: "/search", QueryParam: "hl"},
			{Name: "root page", Path: "/"},
			{Name: "home page", Path: "/webhp"},
			{Name: "search results", Path: "/search"},
			{Name: "result tab", Path: "/search", QueryParam: "tbm"},
			{Name: "result tab", Path: "/search", QueryParam: "udm"},
			{Name: "pagination", Path: "/search", QueryParam: "start"},
			{Name: "settings", PathPrefix: "/preferences"},
			{Name: "settings", PathPrefix: "/setprefs"},
			{Name: "settings", PathPrefix: "/advanced_search"},
		},
		ScoredPaths: []string{"/url", "/aclk", "/imgres", "/amp/"},
	}
}

// Allowlist short-circuits analysis for trusted destinations. It is
// read-only after construction.
type Allowlist struct {
	trusted     []string
	provider    string
	uiHosts     map[string]bool
	rules       []NavigationRule
	scoredPaths []string
}

// NewAllowlist normalizes cfg into an Allowlist.
func NewAllowlist(cfg AllowlistConfig) *Allowlist {
	a := &Allowlist{
		provider: normalizeDomain(cfg.SearchProviderDomain),
		uiHosts:  make(map[string]bool),
	}
	for _, h := range cfg.ProviderHosts {
		if h = normalizeDomain(h); h != "" {
			a.uiHosts[h] = true
		}
	}
	if len(a.uiHosts) == 0 && a.provider != "" {
		a.uiHosts[a.provider] = true
		a.uiHosts["www."+a.provider] = true
	}
	for _, d := range cfg.TrustedDomains {
		if d = normalizeDomain(d); d != "" {
			a.trusted = append(a.trusted, d)
		}
	}
	for _, r := range cfg.NavigationRules {
		r.Host = normalizeDomain(r.Host)
		r.Path = strings.ToLower(r.Path)
		r.PathPrefix = strings.ToLower(r.PathPrefix)
		r.QueryParam = strings.ToLower(r.QueryParam)
		a.rules = append(a.rules, r)
	}
	for _, p := range cfg.ScoredPaths {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			a.scoredPaths = append(a.scoredPaths, p)
		}
	}
	return a
}

func normalizeDomain(d string) string {
	return strings.TrimSuffix(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "."), ".")
}

// Match reports whether rawURL is trusted and why. Unparseable URLs are
// never trusted.
func (a *Allowlist) Match(rawURL string) (string, bool) {
	if a == nil {
		return "", false
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")

	for _, d := range a.trusted {
		if hostMatches(host, d) {
			return fmt.Sprintf("Trusted domain %s", d), true
		}
	}

	if a.provider == "" || !hostMatches(host, a.provider) {
		return "", false
	}

	path := strings.ToLower(u.EscapedPath())
	if path == "" {
		path = "/"
	}
	for _, p := range a.scoredPaths {
		if strings.HasPrefix(path, p) {
			return "", false
		}
	}

	query := lowerKeys(u.Query())
	for _, r := range a.rules {
		if r.Host == "" && !a.uiHosts[host] {
			continue
		}
		if r.matches(host, path, query) {
			return fmt.Sprintf("First-party %s navigation (%s)", a.provider, r.Name), true
		}
	}
	return "", false
}

// Filter returns a whitelisted result when rawURL is trusted, nil otherwise.
func (a *Allowlist) Filter(rawURL string, now time.Time) *Result {
	reason, ok := a.Match(rawURL)
	if !ok {
		return nil
	}
	return &Result{
		Status:      StatusSafe,
		Threats:     []string{},
		Confidence:  100,
		Reasoning:   reason,
		Domain:      ExtractDomain(rawURL),
		Timestamp:   formatTimestamp(now),
		Whitelisted: true,
	}
}

func (r NavigationRule) matches(host, path string, query map[string]bool) bool {
	if r.Host == "" && r.Path == "" && r.PathPrefix == "" && r.QueryParam == "" {
		return false
	}
	if r.Host != "" && host != r.Host {
		return false
	}
	if r.Path != "" && path != r.Path {
		return false
	}
	if r.PathPrefix != "" && !strings.HasPrefix(path, r.PathPrefix) {
		return false
	}
	if r.QueryParam != "" && !query[r.QueryParam] {
		return false
	}
	return true
}

func lowerKeys(v url.Values) map[string]bool {
	out := make(map[string]bool, len(v))
	for k := range v {
		out[strings.ToLower(k)] = true
	}
	return out
}
