package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/olegrjumin/checkurl/internal/analyzer"
	"github.com/olegrjumin/checkurl/internal/logging"
	"github.com/olegrjumin/checkurl/internal/metrics"
	"github.com/olegrjumin/checkurl/internal/ruleset"
	"github.com/olegrjumin/checkurl/internal/store"
	"github.com/olegrjumin/checkurl/pkg/lru"
)

// Store is the persistence the service needs.
type Store interface {
	Settings() (store.Settings, error)
	PutSettings(store.Settings) error
	Ruleset() (*ruleset.Ruleset, error)
	History() ([]store.HistoryEntry, error)
	AppendHistory(store.HistoryEntry) error
	ClearHistory() error
	Statistics() (store.Statistics, error)
	RecordScan(status string) (store.Statistics, error)
	ResetStatistics() (store.Statistics, error)
}

// Options tune page scanning.
type Options struct {
	ScanConcurrency int     // links analyzed in parallel
	RatePerSecond   float64 // analyses started per second during a page scan, 0 = unlimited
	CacheSize       int     // cached link verdicts
	MaxLinks        int     // links taken from one page
}

// DefaultOptions mirror the extension's batch pacing: five links per second.
func DefaultOptions() Options {
	return Options{
		ScanConcurrency: 5,
		RatePerSecond:   5,
		CacheSize:       1000,
		MaxLinks:        DefaultMaxLinks,
	}
}

// Service provides the business logic layer for URL analysis
// It sits between the transports (HTTP, MCP, CLI) and the analyzer
type Service struct {
	analyzer *analyzer.Analyzer
	store    Store
	metrics  *metrics.Metrics
	logger   *logging.Logger
	options  Options

	cache   *lru.Cache[cacheKey, analyzer.Result]
	limiter *rate.Limiter
}

type cacheKey struct {
	url     string
	level   analyzer.ProtectionLevel
	version string
	remote  bool
}

// New creates a new Service instance. m may be nil.
func New(a *analyzer.Analyzer, st Store, m *metrics.Metrics, logger *logging.Logger, opts Options) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	def := DefaultOptions()
	if opts.ScanConcurrency <= 0 {
		opts.ScanConcurrency = def.ScanConcurrency
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = def.CacheSize
	}
	if opts.MaxLinks <= 0 {
		opts.MaxLinks = def.MaxLinks
	}

	limit := rate.Inf
	burst := 0
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
		burst = max(1, int(opts.RatePerSecond))
	}

	return &Service{
		analyzer: a,
		store:    st,
		metrics:  m,
		logger:   logger,
		options:  opts,
		cache:    lru.New[cacheKey, analyzer.Result](opts.CacheSize),
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// callContext is the per-call state loaded once from the store.
type callContext struct {
	settings store.Settings
	options  analyzer.Options
}

func (s *Service) load() callContext {
	settings, err := s.store.Settings()
	if err != nil {
		s.logger.Warn("Failed to load settings, using defaults", "error", err)
		settings = store.DefaultSettings()
	}

	rs, err := s.store.Ruleset()
	if err != nil {
		// The analyzer degrades on a nil ruleset.
		s.logger.Error("Failed to load threat database", "error", err)
		rs = nil
	}

	return callContext{
		settings: settings,
		options: analyzer.Options{
			ProtectionLevel: analyzer.ParseProtectionLevel(settings.ProtectionLevel),
			Ruleset:         rs,
			UseRemote:       s.analyzer.HasRemote(),
		},
	}
}

// AnalyzeURL classifies a URL with the stored settings and ruleset, then
// records statistics and history. It never fails: problems are reported in
// the result.
func (s *Service) AnalyzeURL(ctx context.Context, rawURL string) analyzer.Result {
	cc := s.load()
	return s.analyzeAndRecord(ctx, rawURL, cc)
}

func (s *Service) analyzeAndRecord(ctx context.Context, rawURL string, cc callContext) analyzer.Result {
	s.logger.Debug("Analyzing URL", "url", rawURL, "level", cc.options.ProtectionLevel)

	start := time.Now()
	result := s.analyzer.Analyze(ctx, rawURL, cc.options)
	s.metrics.ObserveAnalysis(string(result.Status), string(result.Source), result.FailureKind, result.Whitelisted, time.Since(start))

	s.logger.Info("Analysis completed",
		"url", rawURL,
		"status", result.Status,
		"confidence", result.Confidence,
		"source", result.Source,
		"degraded", result.Degraded,
	)

	if strings.TrimSpace(rawURL) != "" {
		s.record(rawURL, result, cc.settings)
	}
	return result
}

// record persists statistics and history. Failures are logged and swallowed.
func (s *Service) record(rawURL string, result analyzer.Result, settings store.Settings) {
	if _, err := s.store.RecordScan(string(result.Status)); err != nil {
		s.logger.Error("Failed to update statistics", "error", err)
		s.metrics.IncPersistErrors(store.KeyStatistics)
	}

	if !settings.KeepScanHistory {
		return
	}
	entry := store.NewHistoryEntry(rawURL, string(result.Status), result.Timestamp, result.Threats, result.AIPowered)
	if err := s.store.AppendHistory(entry); err != nil {
		s.logger.Error("Failed to store scan history", "error", err)
		s.metrics.IncPersistErrors(store.KeyHistory)
	}
}

// Settings returns the current settings.
func (s *Service) Settings() (store.Settings, error) {
	return s.store.Settings()
}

// UpdateSettings replaces the settings after normalizing the protection level.
func (s *Service) UpdateSettings(settings store.Settings) (store.Settings, error) {
	settings.ProtectionLevel = string(analyzer.ParseProtectionLevel(settings.ProtectionLevel))
	if err := s.store.PutSettings(settings); err != nil {
		return store.Settings{}, err
	}
	s.logger.Info("Settings updated", "protection_level", settings.ProtectionLevel)
	return settings, nil
}

// History returns the scan history, newest first.
func (s *Service) History() ([]store.HistoryEntry, error) {
	return s.store.History()
}

// ClearHistory removes all history entries.
func (s *Service) ClearHistory() error {
	return s.store.ClearHistory()
}

// Statistics returns the running counters.
func (s *Service) Statistics() (store.Statistics, error) {
	return s.store.Statistics()
}

// ResetStatistics zeroes the counters.
func (s *Service) ResetStatistics() (store.Statistics, error) {
	stats, err := s.store.ResetStatistics()
	if err == nil {
		s.logger.Info("Statistics reset")
	}
	return stats, err
}
