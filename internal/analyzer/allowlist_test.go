package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegrjumin/checkurl/internal/ruleset"
)

func TestAllowlist_Match(t *testing.T) {
	a := NewAllowlist(DefaultAllowlist())

	tests := []struct {
		url  string
		want bool
	}{
		// trusted domains
		{"https://github.com/", true},
		{"https://gist.github.com/user/scam", true},
		{"https://WWW.BBC.CO.UK/news", true},
		{"https://notgithub.com/", false},
		{"https://github.com.evil.example/", false},

		// search provider navigation
		{"https://www.google.com/", true},
		{"https://www.google.com", true},
		{"https://google.com/search?q=free+iphone", true},
		{"https://www.google.com/webhp", true},
		{"https://accounts.google.com/v3/signin/identifier", true},
		{"https://www.google.com/ServiceLogin?continue=x", true},
		{"https://www.google.com/intl/en/about/", true},
		{"https://www.google.com/search?q=x&hl=de", true},
		{"https://www.google.com/search?q=x&tbm=isch", true},
		{"https://www.google.com/search?q=x&udm=2", true},
		{"https://www.google.com/search?q=x&start=10", true},
		{"https://www.google.com/preferences", true},
		{"https://www.google.com/advanced_search", true},

		// search provider paths that are scored
		{"https://www.google.com/url?q=https://evil.example&hl=en", false},
		{"https://www.google.com/aclk?sa=l&ai=x", false},
		{"https://www.google.com/imgres?imgurl=x", false},
		{"https://www.google.com/amp/s/evil.example", false},
		{"https://www.google.com/other?start=10", false},
		{"https://sites.google.com/view/free-iphone", false},

		// user content on provider subdomains, and UI-only parameters
		// outside the provider's UI pages
		{"https://sites.google.com/view/free-iphone?hl=en", false},
		{"https://sites.google.com/view/paypal-verify-account-scam?hl=en", false},
		{"https://docs.google.com/forms/d/e/claim-prize/viewform?udm=2", false},
		{"https://sites.google.com/search?tbm=isch", false},
		{"https://sites.google.com/", false},
		{"https://www.google.com/maps?hl=en", false},
		{"https://www.google.com/something?tbm=isch", false},

		// unparseable or hostless
		{"not a url", false},
		{"", false},
		{"://", false},
	}

	for _, tt := range tests {
		_, got := a.Match(tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func TestAllowlist_Filter(t *testing.T) {
	a := NewAllowlist(DefaultAllowlist())
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	res := a.Filter("https://docs.github.com/en", now)
	require.NotNil(t, res)
	assert.Equal(t, StatusSafe, res.Status)
	assert.Equal(t, 100, res.Confidence)
	assert.True(t, res.Whitelisted)
	assert.False(t, res.AIPowered)
	assert.Equal(t, "docs.github.com", res.Domain)
	assert.Equal(t, "Trusted domain github.com", res.Reasoning)
	assert.Equal(t, "2025-01-02T03:04:05Z", res.Timestamp)

	assert.Nil(t, a.Filter("https://example.org/", now))
}

func TestAllowlist_Custom(t *testing.T) {
	a := NewAllowlist(AllowlistConfig{
		TrustedDomains:       []string{" .Example.ORG. ", ""},
		SearchProviderDomain: "search.example",
		NavigationRules: []NavigationRule{
			{Name: "results", Path: "/results", QueryParam: "Q"},
			{Name: "empty rule"},
		},
		ScoredPaths: []string{"/out"},
	})

	_, ok := a.Match("https://shop.example.org/")
	assert.True(t, ok)

	reason, ok := a.Match("https://search.example/results?q=x")
	assert.True(t, ok)
	assert.Equal(t, "First-party search.example navigation (results)", reason)

	_, ok = a.Match("https://search.example/results")
	assert.False(t, ok, "rule needs its query parameter")

	_, ok = a.Match("https://search.example/out?q=x")
	assert.False(t, ok)

	_, ok = a.Match("https://search.example/anything")
	assert.False(t, ok, "empty rule matches nothing")

	_, ok = a.Match("https://www.search.example/results?q=x")
	assert.True(t, ok, "www host is a UI host by default")

	_, ok = a.Match("https://user.search.example/results?q=x")
	assert.False(t, ok, "other subdomains are scored")
}

func TestAllowlist_ProviderHosts(t *testing.T) {
	cfg := DefaultAllowlist()
	cfg.ProviderHosts = []string{"www.google.com"}
	a := NewAllowlist(cfg)

	_, ok := a.Match("https://www.google.com/search?q=x")
	assert.True(t, ok)

	_, ok = a.Match("https://google.com/search?q=x")
	assert.False(t, ok)

	reason, ok := a.Match("https://accounts.google.com/signin")
	assert.True(t, ok, "host rules apply outside the UI hosts")
	assert.Equal(t, "First-party google.com navigation (auth host)", reason)
}

func TestAnalyze_ProviderUserContentScored(t *testing.T) {
	a := New(Config{Allowlist: NewAllowlist(DefaultAllowlist()), Heuristics: DefaultHeuristics()})
	opts := Options{ProtectionLevel: LevelStandard, Ruleset: ruleset.Default(time.Now())}

	plain := a.Analyze(context.Background(), "https://sites.google.com/view/paypal-verify-account-scam", opts)
	withParam := a.Analyze(context.Background(), "https://sites.google.com/view/paypal-verify-account-scam?hl=en", opts)

	assert.False(t, withParam.Whitelisted)
	assert.Equal(t, StatusMalicious, withParam.Status)
	assert.Equal(t, plain.Status, withParam.Status)
	assert.Equal(t, *plain.RiskScore, *withParam.RiskScore)
}

func TestAllowlist_Nil(t *testing.T) {
	var a *Allowlist
	_, ok := a.Match("https://github.com/")
	assert.False(t, ok)
	assert.Nil(t, a.Filter("https://github.com/", time.Now()))
}
