package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/olegrjumin/checkurl/internal/analyzer"
)

// EnvPrefix prefixes every environment override, e.g. CHECKURL_SERVER_PORT.
const EnvPrefix = "CHECKURL"

// Classifier providers.
const (
	ProviderNone   = ""
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// providerKeyEnv names the API key variable each provider's own tooling reads.
var providerKeyEnv = map[string]string{
	ProviderOpenAI: "OPENAI_API_KEY",
	ProviderGemini: "GEMINI_API_KEY",
}

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig             `mapstructure:"server"`
	Log        LogConfig                `mapstructure:"log"`
	Store      StoreConfig              `mapstructure:"store"`
	Classifier ClassifierConfig         `mapstructure:"classifier"`
	Scan       ScanConfig               `mapstructure:"scan"`
	Allowlist  analyzer.AllowlistConfig `mapstructure:"allowlist"`
	Heuristics analyzer.HeuristicConfig `mapstructure:"heuristics"`
	Metrics    MetricsConfig            `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects persistence. An empty Path keeps everything in memory.
type StoreConfig struct {
	Path        string `mapstructure:"path"`
	RulesetFile string `mapstructure:"ruleset_file"`
	// RulesetRefresh is how often RulesetFile is re-read while serving when
	// the autoUpdate setting is on. Zero disables refreshing.
	RulesetRefresh time.Duration `mapstructure:"ruleset_refresh"`
}

// ClassifierConfig configures the optional remote classifier.
type ClassifierConfig struct {
	Provider  string        `mapstructure:"provider"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// ScanConfig tunes page link scanning.
type ScanConfig struct {
	Concurrency   int     `mapstructure:"concurrency"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	CacheSize     int     `mapstructure:"cache_size"`
	MaxLinks      int     `mapstructure:"max_links"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ValidationError reports a configuration value outside its allowed range.
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s = %v - %s", e.Field, e.Value, e.Reason)
}

// SetDefaults registers every key with its default so that environment
// overrides apply to all of them.
func SetDefaults(v *viper.Viper) {
	allow := analyzer.DefaultAllowlist()
	heur := analyzer.DefaultHeuristics()

	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.path", "")
	v.SetDefault("store.ruleset_file", "")
	v.SetDefault("store.ruleset_refresh", time.Hour)
	v.SetDefault("classifier.provider", ProviderNone)
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("classifier.model", "")
	v.SetDefault("classifier.base_url", "")
	v.SetDefault("classifier.timeout", 10*time.Second)
	v.SetDefault("classifier.user_agent", "checkurl/1.0")
	v.SetDefault("scan.concurrency", 5)
	v.SetDefault("scan.rate_per_second", 5.0)
	v.SetDefault("scan.cache_size", 1000)
	v.SetDefault("scan.max_links", 500)
	v.SetDefault("allowlist.trusted_domains", allow.TrustedDomains)
	v.SetDefault("allowlist.search_provider_domain", allow.SearchProviderDomain)
	v.SetDefault("allowlist.provider_hosts", allow.ProviderHosts)
	v.SetDefault("allowlist.scored_paths", allow.ScoredPaths)
	v.SetDefault("heuristics.low_trust_tlds", heur.LowTrustTLDs)
	v.SetDefault("heuristics.shorteners", heur.Shorteners)
	v.SetDefault("heuristics.weights.ip_literal", heur.Weights.IPLiteral)
	v.SetDefault("heuristics.weights.low_trust_tld", heur.Weights.LowTrustTLD)
	v.SetDefault("heuristics.weights.shortener", heur.Weights.Shortener)
	v.SetDefault("heuristics.weights.idn", heur.Weights.IDN)
	v.SetDefault("heuristics.weights.brand_impersonation", heur.Weights.BrandImpersonation)
	v.SetDefault("heuristics.weights.insecure", heur.Weights.Insecure)
	v.SetDefault("metrics.enabled", true)
}

// Load reads configuration from defaults, an optional YAML file and
// CHECKURL_* environment variables, in increasing precedence. configFile may
// be empty, in which case checkurl.yaml is looked up in the working
// directory and /etc/checkurl.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("checkurl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/checkurl")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The selected provider's native key variable is honoured as a fallback.
	keyEnv := []string{"classifier.api_key", EnvPrefix + "_CLASSIFIER_API_KEY"}
	provider := strings.ToLower(strings.TrimSpace(v.GetString("classifier.provider")))
	if native, ok := providerKeyEnv[provider]; ok {
		keyEnv = append(keyEnv, native)
	}
	if err := v.BindEnv(keyEnv...); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Structured lists have no per-key defaults.
	if len(cfg.Allowlist.NavigationRules) == 0 {
		cfg.Allowlist.NavigationRules = analyzer.DefaultAllowlist().NavigationRules
	}
	if len(cfg.Heuristics.Brands) == 0 {
		cfg.Heuristics.Brands = analyzer.DefaultHeuristics().Brands
	}

	cfg.Classifier.Provider = strings.ToLower(strings.TrimSpace(cfg.Classifier.Provider))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Value: c.Server.Port, Reason: "must be between 1 and 65535"}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Field: "log.level", Value: c.Log.Level, Reason: "must be one of debug, info, warn, error"}
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return &ValidationError{Field: "log.format", Value: c.Log.Format, Reason: "must be json or console"}
	}
	if c.Store.RulesetRefresh < 0 {
		return &ValidationError{Field: "store.ruleset_refresh", Value: c.Store.RulesetRefresh, Reason: "must not be negative"}
	}
	switch c.Classifier.Provider {
	case ProviderNone, ProviderOpenAI, ProviderGemini:
	default:
		return &ValidationError{Field: "classifier.provider", Value: c.Classifier.Provider, Reason: "must be empty, openai or gemini"}
	}
	if c.Classifier.Timeout <= 0 {
		return &ValidationError{Field: "classifier.timeout", Value: c.Classifier.Timeout, Reason: "must be positive"}
	}
	if c.Scan.Concurrency < 1 || c.Scan.Concurrency > 100 {
		return &ValidationError{Field: "scan.concurrency", Value: c.Scan.Concurrency, Reason: "must be between 1 and 100"}
	}
	if c.Scan.RatePerSecond < 0 {
		return &ValidationError{Field: "scan.rate_per_second", Value: c.Scan.RatePerSecond, Reason: "must not be negative"}
	}
	if c.Scan.CacheSize < 1 {
		return &ValidationError{Field: "scan.cache_size", Value: c.Scan.CacheSize, Reason: "must be positive"}
	}
	if c.Scan.MaxLinks < 1 {
		return &ValidationError{Field: "scan.max_links", Value: c.Scan.MaxLinks, Reason: "must be positive"}
	}
	w := c.Heuristics.Weights
	for field, value := range map[string]int{
		"heuristics.weights.ip_literal":          w.IPLiteral,
		"heuristics.weights.low_trust_tld":       w.LowTrustTLD,
		"heuristics.weights.shortener":           w.Shortener,
		"heuristics.weights.idn":                 w.IDN,
		"heuristics.weights.brand_impersonation": w.BrandImpersonation,
		"heuristics.weights.insecure":            w.Insecure,
	} {
		if value < 0 {
			return &ValidationError{Field: field, Value: value, Reason: "must not be negative"}
		}
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
