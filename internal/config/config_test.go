package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegrjumin/checkurl/internal/analyzer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checkurl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, ProviderNone, cfg.Classifier.Provider)
	assert.Equal(t, 10*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, 5, cfg.Scan.Concurrency)
	assert.Equal(t, 5.0, cfg.Scan.RatePerSecond)
	assert.Equal(t, 1000, cfg.Scan.CacheSize)
	assert.Equal(t, 500, cfg.Scan.MaxLinks)
	assert.True(t, cfg.Metrics.Enabled)

	assert.Equal(t, analyzer.DefaultAllowlist(), cfg.Allowlist)
	assert.Equal(t, analyzer.DefaultHeuristics(), cfg.Heuristics)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
log:
  level: DEBUG
  format: console
classifier:
  provider: Gemini
  model: gemini-2.0-flash
  timeout: 3s
scan:
  concurrency: 8
allowlist:
  trusted_domains: [intranet.example]
heuristics:
  weights:
    insecure: 0
  brands:
    - name: acme
      domain: acme.example
`)

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, ProviderGemini, cfg.Classifier.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.Classifier.Model)
	assert.Equal(t, 3*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, 8, cfg.Scan.Concurrency)
	assert.Equal(t, []string{"intranet.example"}, cfg.Allowlist.TrustedDomains)
	assert.Equal(t, analyzer.DefaultAllowlist().NavigationRules, cfg.Allowlist.NavigationRules)

	assert.Zero(t, cfg.Heuristics.Weights.Insecure)
	assert.Equal(t, 6, cfg.Heuristics.Weights.IPLiteral, "unset weights keep defaults")
	assert.Equal(t, []analyzer.Brand{{Name: "acme", Domain: "acme.example"}}, cfg.Heuristics.Brands)
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHECKURL_SERVER_PORT", "7000")
	t.Setenv("CHECKURL_STORE_PATH", "/var/lib/checkurl")
	t.Setenv("CHECKURL_SCAN_RATE_PER_SECOND", "2.5")
	t.Setenv("CHECKURL_METRICS_ENABLED", "false")
	t.Setenv("CHECKURL_CLASSIFIER_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "/var/lib/checkurl", cfg.Store.Path)
	assert.Equal(t, 2.5, cfg.Scan.RatePerSecond)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "sk-test", cfg.Classifier.APIKey)
}

func TestLoad_APIKeyFallbackFollowsProvider(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		provider string
		ownKey   string
		want     string
	}{
		{name: "openai", provider: "openai", want: "sk-openai"},
		{name: "gemini", provider: "gemini", want: "gm-gemini"},
		{name: "gemini from file", file: "classifier:\n  provider: Gemini\n", want: "gm-gemini"},
		{name: "no provider", want: ""},
		{name: "own variable wins", provider: "gemini", ownKey: "own", want: "own"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("OPENAI_API_KEY", "sk-openai")
			t.Setenv("GEMINI_API_KEY", "gm-gemini")
			if tt.provider != "" {
				t.Setenv("CHECKURL_CLASSIFIER_PROVIDER", tt.provider)
			}
			if tt.ownKey != "" {
				t.Setenv("CHECKURL_CLASSIFIER_API_KEY", tt.ownKey)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			cfg, err := Load(viper.New(), path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Classifier.APIKey)
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("CHECKURL_SERVER_PORT", "9191")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"port", "server:\n  port: 70000\n", "server.port"},
		{"level", "log:\n  level: loud\n", "log.level"},
		{"format", "log:\n  format: xml\n", "log.format"},
		{"provider", "classifier:\n  provider: claude\n", "classifier.provider"},
		{"timeout", "classifier:\n  timeout: 0s\n", "classifier.timeout"},
		{"concurrency", "scan:\n  concurrency: 0\n", "scan.concurrency"},
		{"rate", "scan:\n  rate_per_second: -1\n", "scan.rate_per_second"},
		{"cache", "scan:\n  cache_size: 0\n", "scan.cache_size"},
		{"weight", "heuristics:\n  weights:\n    idn: -4\n", "heuristics.weights.idn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(viper.New(), writeConfig(t, tt.body))
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "server.port", Value: 0, Reason: "must be between 1 and 65535"}
	assert.Equal(t, "config validation error: server.port = 0 - must be between 1 and 65535", err.Error())
}
