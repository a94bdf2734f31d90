package fetcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/raysh454/sitepulse/internal/assessor"
	"github.com/raysh454/sitepulse/internal/enumerator"
	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/webclient"
)

// Module: fetcher
// Fetches pages and audits their markup.
type PageAuditor struct {
	cfg      Config
	wc       webclient.WebClient
	assessor assessor.Assessor
	logger   logging.Logger
}

// NewPageAuditor creates an auditor over wc. A nil assessor uses the default rules.
func NewPageAuditor(cfg Config, wc webclient.WebClient, a assessor.Assessor, logger logging.Logger) *PageAuditor {
	if logger == nil {
		logger = logging.Nop()
	}
	if a == nil {
		a = assessor.NewHTMLAssessor(assessor.DefaultConfig(), logger)
	}
	return &PageAuditor{
		cfg:      cfg.withDefaults(),
		wc:       wc,
		assessor: a,
		logger:   logger.With(logging.Field{Key: "component", Value: "fetcher"}),
	}
}

// Audit fetches pageURL and runs the rules over it. It never returns an
// error: fetch and parse failures come back as the Failed variant.
func (p *PageAuditor) Audit(ctx context.Context, pageURL string) model.PageOutcome {
	start := time.Now()
	page, err := enumerator.FetchDocument(ctx, p.wc, pageURL, p.cfg.PageTimeout)
	if err != nil {
		failure := &model.PageFailure{
			URL:           pageURL,
			Reason:        err.Error(),
			FetchTimingMs: time.Since(start).Milliseconds(),
		}
		var se *enumerator.StatusError
		if errors.As(err, &se) {
			failure.HTTPStatus = se.Status
		}
		p.logger.Warn("page audit failed",
			logging.Field{Key: "url", Value: pageURL},
			logging.Field{Key: "error", Value: err.Error()})
		return model.PageOutcome{Failed: failure}
	}

	links := enumerator.ExtractLinks(page.Doc, page.URL)
	stats := p.assessor.Stats(page.Doc)
	stats.LinkCount = len(links.All)
	stats.InternalLinks = len(links.Internal)
	stats.ExternalLinks = len(links.External)

	rec := &model.PageAuditRecord{
		URL:            pageURL,
		HTTPStatus:     page.Response.StatusCode,
		Title:          assessor.PageTitle(page.Doc),
		Issues:         p.assessor.Assess(page.Doc, pageURL),
		ExtractedLinks: links.All,
		Stats:          stats,
	}
	rec.FetchTimingMs = time.Since(start).Milliseconds()

	p.logger.Debug("page audited",
		logging.Field{Key: "url", Value: pageURL},
		logging.Field{Key: "issues", Value: len(rec.Issues)},
		logging.Field{Key: "links", Value: len(rec.ExtractedLinks)},
		logging.Field{Key: "ms", Value: rec.FetchTimingMs})
	return model.PageOutcome{Ok: rec}
}

// Auditor audits a single page.
type Auditor interface {
	Audit(ctx context.Context, pageURL string) model.PageOutcome
}

// PageFunc is called once per finished page, in completion order, with the
// number of pages finished so far.
type PageFunc func(done int, pageURL string, outcome model.PageOutcome)

// Fetcher audits many pages with bounded concurrency.
type Fetcher struct {
	MaxConcurrency int
	auditor        Auditor
	logger         logging.Logger
}

// New creates a Fetcher around an auditor.
func New(maxConcurrency int, auditor Auditor, logger logging.Logger) *Fetcher {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Fetcher{
		MaxConcurrency: maxConcurrency,
		auditor:        auditor,
		logger:         logger.With(logging.Field{Key: "component", Value: "fetcher"}),
	}
}

// AuditAll audits pageURLs and returns their outcomes in input order.
// Cancellation is checked before each page is dispatched; on cancel the
// outcomes of dispatched pages are returned with ctx.Err().
func (f *Fetcher) AuditAll(ctx context.Context, pageURLs []string, onPage PageFunc) ([]model.PageOutcome, error) {
	results := make([]model.PageOutcome, len(pageURLs))
	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, f.MaxConcurrency)
	done := 0
	dispatched := 0

	for i, pageURL := range pageURLs {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		dispatched++

		wg.Add(1)
		go func(i int, pageURL string) {
			defer wg.Done()
			defer func() { <-sem }()

			out := f.auditor.Audit(ctx, pageURL)
			mu.Lock()
			results[i] = out
			done++
			n := done
			if onPage != nil {
				onPage(n, pageURL, out)
			}
			mu.Unlock()
		}(i, pageURL)
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		f.logger.Info("page audits canceled",
			logging.Field{Key: "dispatched", Value: dispatched},
			logging.Field{Key: "total", Value: len(pageURLs)})
		return results[:dispatched], err
	}
	return results, nil
}
