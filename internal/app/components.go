package app

import (
	"context"
	"fmt"

	"github.com/raysh454/sitepulse/internal/assessor"
	"github.com/raysh454/sitepulse/internal/enumerator"
	"github.com/raysh454/sitepulse/internal/fetcher"
	"github.com/raysh454/sitepulse/internal/linkcheck"
	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/pagespeed"
	"github.com/raysh454/sitepulse/internal/webclient"
)

// Discoverer finds the pages of a site.
type Discoverer interface {
	Discover(ctx context.Context, target string, opts enumerator.DiscoverOptions) (*model.DiscoveryResult, error)
}

// PageBatchAuditor audits pages and returns outcomes in input order.
type PageBatchAuditor interface {
	AuditAll(ctx context.Context, pageURLs []string, onPage fetcher.PageFunc) ([]model.PageOutcome, error)
}

// LinkValidator checks link liveness in batches.
type LinkValidator interface {
	Validate(ctx context.Context, urls []string, batchSize int, onBatch linkcheck.BatchFunc) ([]model.LinkCheckResult, error)
}

// ExternalScorer fetches category scores from an outside oracle.
type ExternalScorer interface {
	Run(ctx context.Context, target string, strategy pagespeed.Strategy) (*model.ExternalReport, error)
}

// Components are the pipeline stages an Auditor drives. External may be nil.
type Components struct {
	WebClient webclient.WebClient
	Discovery Discoverer
	Pages     PageBatchAuditor
	Links     LinkValidator
	External  ExternalScorer
}

// NewComponents builds the production pipeline sharing one web client.
func NewComponents(cfg *Config, logger logging.Logger) (*Components, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}

	wc, err := webclient.NewWebClient(cfg.WebClient, logger)
	if err != nil {
		return nil, fmt.Errorf("new webclient: %w", err)
	}

	rules := assessor.NewHTMLAssessor(cfg.Assessor, logger)
	pageAuditor := fetcher.NewPageAuditor(cfg.Fetcher, wc, rules, logger)

	comps := &Components{
		WebClient: wc,
		Discovery: enumerator.NewSpider(cfg.Discovery, wc, logger),
		Pages:     fetcher.New(cfg.Fetcher.MaxConcurrency, pageAuditor, logger),
		Links:     linkcheck.New(cfg.LinkCheck, wc, logger),
	}
	if cfg.PageSpeed.Enabled {
		comps.External = pagespeed.NewClient(cfg.PageSpeed, wc, logger)
	}
	return comps, nil
}

// Close releases the shared web client. In-flight requests are aborted.
func (c *Components) Close() error {
	if c == nil || c.WebClient == nil {
		return nil
	}
	if err := c.WebClient.Close(); err != nil {
		return fmt.Errorf("close webclient: %w", err)
	}
	return nil
}
