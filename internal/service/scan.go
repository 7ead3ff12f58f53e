package service

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/olegrjumin/checkurl/internal/analyzer"
	"github.com/olegrjumin/checkurl/internal/classifier"
	"github.com/olegrjumin/checkurl/internal/ruleset"
)

// LinkVerdict is the analysis of one link found on a page.
type LinkVerdict struct {
	URL    string          `json:"url"`
	Result analyzer.Result `json:"result"`
	Cached bool            `json:"cached"`
}

// ScanCounts summarizes the link verdicts of a page.
type ScanCounts struct {
	Total      int `json:"total"`
	Safe       int `json:"safe"`
	Suspicious int `json:"suspicious"`
	Malicious  int `json:"malicious"`
}

// PageReport is the outcome of scanning a page and its links.
type PageReport struct {
	PageURL string           `json:"pageUrl"`
	Page    *analyzer.Result `json:"page,omitempty"` // nil unless scan-on-page-load is enabled
	Links   []LinkVerdict    `json:"links"`
	Counts  ScanCounts       `json:"counts"`
	// Flagged lists suspicious and malicious links in document order.
	Flagged   []string `json:"flagged"`
	Highlight bool     `json:"highlight"`
	Block     bool     `json:"block"`
}

// ScanPage analyzes pageURL and every link in its HTML body. Link analyses
// run with bounded concurrency, are paced by the rate limiter and are cached
// per URL, protection level and ruleset version.
func (s *Service) ScanPage(ctx context.Context, pageURL string, body io.Reader) (*PageReport, error) {
	return s.scanPage(ctx, pageURL, body, nil)
}

// scanPage does the work of ScanPage. onLink, when set, is called from worker
// goroutines as each link verdict becomes available.
func (s *Service) scanPage(ctx context.Context, pageURL string, body io.Reader, onLink func(LinkVerdict)) (*PageReport, error) {
	links, err := ExtractLinks(pageURL, body, s.options.MaxLinks)
	if err != nil {
		return nil, err
	}

	cc := s.load()
	s.metrics.IncPageScans()
	s.logger.Info("Scanning page", "url", pageURL, "links", len(links))

	report := &PageReport{
		PageURL:   pageURL,
		Links:     make([]LinkVerdict, len(links)),
		Flagged:   []string{},
		Highlight: cc.settings.AutoHighlightLinks,
		Block:     cc.settings.BlockMaliciousLinks,
	}

	if cc.settings.ScanOnPageLoad {
		page := s.analyzeAndRecord(ctx, pageURL, cc)
		report.Page = &page
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.ScanConcurrency)
	for i, link := range links {
		g.Go(func() error {
			v, err := s.scanLink(gctx, link, cc)
			if err != nil {
				return err
			}
			report.Links[i] = v
			if onLink != nil {
				onLink(v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("page scan interrupted: %w", err)
	}

	for _, v := range report.Links {
		report.Counts.Total++
		switch v.Result.Status {
		case analyzer.StatusMalicious:
			report.Counts.Malicious++
			report.Flagged = append(report.Flagged, v.URL)
		case analyzer.StatusSuspicious:
			report.Counts.Suspicious++
			report.Flagged = append(report.Flagged, v.URL)
		default:
			report.Counts.Safe++
		}
	}

	s.logger.Info("Page scan completed",
		"url", pageURL,
		"links", report.Counts.Total,
		"suspicious", report.Counts.Suspicious,
		"malicious", report.Counts.Malicious,
	)
	return report, nil
}

func (s *Service) scanLink(ctx context.Context, link string, cc callContext) (LinkVerdict, error) {
	key := cacheKey{
		url:     link,
		level:   cc.options.ProtectionLevel,
		version: rulesetVersion(cc.options.Ruleset),
		remote:  cc.options.UseRemote,
	}
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncScanCacheHits()
		return LinkVerdict{URL: link, Result: cached, Cached: true}, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return LinkVerdict{}, err
	}

	result := s.analyzeAndRecord(ctx, link, cc)
	// Degraded verdicts are retried on the next scan unless the remote can
	// never succeed without a restart.
	if !result.Degraded || result.FailureKind == classifier.FailureMissingCredential {
		s.cache.Put(key, result)
	}
	return LinkVerdict{URL: link, Result: result}, nil
}

func rulesetVersion(rs *ruleset.Ruleset) string {
	if rs == nil {
		return ""
	}
	return rs.Version()
}
