package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/olegrjumin/checkurl/internal/analyzer"
	"github.com/olegrjumin/checkurl/internal/classifier"
	"github.com/olegrjumin/checkurl/internal/config"
	"github.com/olegrjumin/checkurl/internal/httpclient"
	"github.com/olegrjumin/checkurl/internal/logging"
	"github.com/olegrjumin/checkurl/internal/metrics"
	"github.com/olegrjumin/checkurl/internal/service"
	"github.com/olegrjumin/checkurl/internal/store"
)

// app holds the wired components shared by every command.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	store   *store.Store
	metrics *metrics.Metrics
	service *service.Service
}

// newApp builds the component graph from configuration. Logs go to logOut so
// that commands writing results or protocol frames to stdout can move them.
func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	logger := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOut,
	})

	remote, err := newRemote(ctx, cfg.Classifier, logger)
	if err != nil {
		return nil, err
	}

	a := analyzer.New(analyzer.Config{
		Allowlist:  analyzer.NewAllowlist(cfg.Allowlist),
		Heuristics: cfg.Heuristics,
		Remote:     remote,
		Logger:     logger.With("component", "analyzer"),
	})

	st, err := openStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	svc := service.New(a, st, m, logger.With("component", "service"), service.Options{
		ScanConcurrency: cfg.Scan.Concurrency,
		RatePerSecond:   cfg.Scan.RatePerSecond,
		CacheSize:       cfg.Scan.CacheSize,
		MaxLinks:        cfg.Scan.MaxLinks,
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		metrics: m,
		service: svc,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("Failed to close store", "error", err)
	}
}

// newRemote returns nil when no provider or no API key is configured.
func newRemote(ctx context.Context, cfg config.ClassifierConfig, logger *logging.Logger) (analyzer.RemoteClassifier, error) {
	if cfg.Provider == config.ProviderNone {
		return nil, nil
	}
	if cfg.APIKey == "" {
		logger.Warn("Remote classifier has no API key, using local scoring only", "provider", cfg.Provider)
		return nil, nil
	}

	httpClient := httpclient.NewClient(cfg.Timeout, cfg.UserAgent)

	var completer classifier.Completer
	switch cfg.Provider {
	case config.ProviderOpenAI:
		completer = classifier.NewOpenAI(httpClient, logger.With("component", "openai"), cfg.APIKey, cfg.Model, cfg.BaseURL)
	case config.ProviderGemini:
		g, err := classifier.NewGemini(ctx, httpClient.HTTPClient(), cfg.APIKey, cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		completer = g
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}

	logger.Info("Remote classifier enabled", "provider", cfg.Provider, "model", cfg.Model)
	return classifier.NewRemote(completer, cfg.Timeout), nil
}

// openStore opens the configured backend, seeds defaults and applies the
// ruleset file when it carries a new version.
func openStore(cfg config.StoreConfig, logger *logging.Logger) (*store.Store, error) {
	var backend store.Backend = store.NewMemory()
	if cfg.Path != "" {
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		p, err := store.OpenPebble(cfg.Path)
		if err != nil {
			return nil, err
		}
		backend = p
	}

	st := store.New(backend)
	if err := st.Seed(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	if cfg.RulesetFile != "" {
		if _, err := refreshRuleset(st, cfg.RulesetFile, logger); err != nil {
			st.Close()
			return nil, err
		}
	}
	return st, nil
}

func refreshRuleset(st *store.Store, path string, logger *logging.Logger) (bool, error) {
	updated, err := st.UpdateRulesetFromFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to load threat database %s: %w", path, err)
	}
	if updated {
		rs, err := st.Ruleset()
		if err == nil {
			logger.Info("Threat database updated", "version", rs.Version(), "patterns", len(rs.Patterns()), "domains", len(rs.Domains()))
		}
	}
	return updated, nil
}
