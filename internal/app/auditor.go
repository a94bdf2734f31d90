package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/raysh454/sitepulse/internal/enumerator"
	"github.com/raysh454/sitepulse/internal/linkcheck"
	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/pagespeed"
	"github.com/raysh454/sitepulse/internal/score"
	"github.com/raysh454/sitepulse/internal/utils"
)

var (
	ErrNilRequest      = errors.New("audit request is nil")
	ErrInvalidTarget   = errors.New("invalid target url")
	ErrDiscoveryFailed = enumerator.ErrDiscoveryFailed
)

var tracer = otel.Tracer("github.com/raysh454/sitepulse/internal/app")

// AuditRequest describes one audit run.
type AuditRequest struct {
	URL string `json:"url"`

	// SiteID is the store key the snapshot is saved under. Empty looks the
	// site up by URL.
	SiteID string `json:"site_id,omitempty"`

	// CrawlDepth caps the audited pages. Zero uses the configured default.
	CrawlDepth int `json:"crawl_depth,omitempty"`

	SkipPageSpeed bool               `json:"skip_pagespeed,omitempty"`
	Strategy      pagespeed.Strategy `json:"strategy,omitempty"`
}

// transitions lists the forward moves of the phase machine. Cancellation may
// reset any phase to idle and is not listed.
var transitions = map[model.Phase][]model.Phase{
	model.PhaseIdle:          {model.PhaseDiscovering},
	model.PhaseDiscovering:   {model.PhaseAuditing, model.PhaseError},
	model.PhaseAuditing:      {model.PhaseCheckingLinks, model.PhaseError},
	model.PhaseCheckingLinks: {model.PhasePageSpeed, model.PhaseError},
	model.PhasePageSpeed:     {model.PhaseComplete, model.PhaseError},
	model.PhaseComplete:      {model.PhaseDiscovering},
	model.PhaseError:         {model.PhaseDiscovering},
}

// CanTransition reports whether the machine may move from one phase to another.
func CanTransition(from, to model.Phase) bool {
	if to == model.PhaseIdle || from == to {
		return true
	}
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// run tracks the phase of one audit and forwards progress tuples.
type run struct {
	phase    model.Phase
	progress model.ProgressFunc
	logger   logging.Logger
}

func (r *run) enter(p model.Phase, total int, label string) {
	if !CanTransition(r.phase, p) {
		r.logger.Error("illegal phase transition",
			logging.Field{Key: "from", Value: string(r.phase)},
			logging.Field{Key: "to", Value: string(p)})
	}
	r.phase = p
	r.emit(0, total, "", label)
}

func (r *run) emit(current, total int, url, label string) {
	if r.progress == nil {
		return
	}
	r.progress(model.Progress{Phase: r.phase, Current: current, Total: total, CurrentURL: url, Label: label})
}

// Auditor drives discovery, page audits, link checks and the external score
// fetch for one site, then scores and stores the result.
type Auditor struct {
	cfg    *Config
	comps  *Components
	store  SnapshotStore
	logger logging.Logger
}

// NewAuditor wires the pipeline. A nil store skips persistence.
func NewAuditor(cfg *Config, comps *Components, store SnapshotStore, logger logging.Logger) *Auditor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Auditor{
		cfg:    cfg,
		comps:  comps,
		store:  store,
		logger: logger.With(logging.Field{Key: "component", Value: "auditor"}),
	}
}

// Run audits req.URL and returns the stored snapshot.
//
// Only a discovery failure aborts the run; it ends in the error phase and the
// returned error wraps ErrDiscoveryFailed. Cancellation is checked before
// every phase and every unit of work; once seen, Run resets to idle, stores
// nothing and returns ctx.Err().
func (a *Auditor) Run(ctx context.Context, req *AuditRequest, progress model.ProgressFunc) (*model.AuditSnapshot, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	target := utils.EnsureScheme(req.URL)
	if _, err := utils.ParseTarget(target); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	depth := a.cfg.ClampDepth(req.CrawlDepth)

	ctx, span := tracer.Start(ctx, "audit", trace.WithAttributes(
		attribute.String("audit.url", target),
		attribute.Int("audit.depth", depth)))
	defer span.End()

	r := &run{phase: model.PhaseIdle, progress: progress, logger: a.logger}
	snap := &model.AuditSnapshot{
		TargetURL:  target,
		CrawlDepth: depth,
		StartedAt:  time.Now().UTC(),
	}

	// discovering
	if err := ctx.Err(); err != nil {
		return nil, a.canceled(r, span, err)
	}
	r.enter(model.PhaseDiscovering, 0, "Discovering pages")
	found, err := a.discover(ctx, r, target, depth)
	if err != nil {
		if ctx.Err() != nil {
			return nil, a.canceled(r, span, ctx.Err())
		}
		return nil, a.fail(r, span, err)
	}
	snap.SiteName = found.SiteName
	pages := found.Pages
	if len(pages) > depth {
		pages = pages[:depth]
	}

	// auditing
	if err := ctx.Err(); err != nil {
		return nil, a.canceled(r, span, err)
	}
	r.enter(model.PhaseAuditing, len(pages), "Auditing pages")
	snap.Pages, err = a.auditPages(ctx, r, pages)
	if err != nil {
		return nil, a.canceled(r, span, err)
	}

	// checking-links
	if err := ctx.Err(); err != nil {
		return nil, a.canceled(r, span, err)
	}
	links := pageLinks(snap.Pages)
	r.enter(model.PhaseCheckingLinks, len(links), "Checking links")
	snap.Links, err = a.checkLinks(ctx, r, links)
	if err != nil {
		return nil, a.canceled(r, span, err)
	}

	// pagespeed
	if err := ctx.Err(); err != nil {
		return nil, a.canceled(r, span, err)
	}
	r.enter(model.PhasePageSpeed, 1, "Running PageSpeed analysis")
	if ext := a.external(ctx, req, target); ext != nil {
		snap.ExternalScores = &ext.Scores
		snap.CoreWebVitals = &ext.CoreWebVitals
		snap.Opportunities = ext.Opportunities
	}
	if err := ctx.Err(); err != nil {
		return nil, a.canceled(r, span, err)
	}
	r.emit(1, 1, target, "Running PageSpeed analysis")

	res := score.Aggregate(snap.Pages, snap.Links, snap.ExternalScores)
	snap.HealthScore = res.HealthScore
	snap.CategoryScores = res.Categories
	snap.CompletedAt = time.Now().UTC()

	if a.store != nil {
		if err := a.store.Save(ctx, req.SiteID, snap); err != nil {
			return snap, a.fail(r, span, fmt.Errorf("save snapshot: %w", err))
		}
	}

	r.enter(model.PhaseComplete, len(snap.Pages), "Audit complete")
	span.SetAttributes(attribute.Int("audit.health", snap.HealthScore))
	a.logger.Info("audit complete",
		logging.Field{Key: "url", Value: target},
		logging.Field{Key: "pages", Value: len(snap.Pages)},
		logging.Field{Key: "links", Value: len(snap.Links)},
		logging.Field{Key: "health", Value: snap.HealthScore})
	return snap, nil
}

func (a *Auditor) discover(ctx context.Context, r *run, target string, depth int) (*model.DiscoveryResult, error) {
	ctx, span := tracer.Start(ctx, "audit.discover")
	defer span.End()

	res, err := a.comps.Discovery.Discover(ctx, target, enumerator.DiscoverOptions{
		Depth: depth,
		OnDeepCrawl: func(found int) {
			r.emit(found, depth, "", fmt.Sprintf("Found %d pages, discovering more", found))
		},
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("pages.found", len(res.Pages)))
	r.emit(len(res.Pages), len(res.Pages), "", "Discovery complete")
	return res, nil
}

// auditPages keeps records in discovery order regardless of completion order.
func (a *Auditor) auditPages(ctx context.Context, r *run, pages []string) ([]model.PageAuditRecord, error) {
	ctx, span := tracer.Start(ctx, "audit.pages", trace.WithAttributes(attribute.Int("pages.total", len(pages))))
	defer span.End()

	outcomes, err := a.comps.Pages.AuditAll(ctx, pages, func(done int, pageURL string, _ model.PageOutcome) {
		r.emit(done, len(pages), pageURL, fmt.Sprintf("Auditing page %d of %d", done, len(pages)))
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	records := make([]model.PageAuditRecord, 0, len(outcomes))
	failed := 0
	for _, out := range outcomes {
		rec := out.Record()
		if rec.Failed() {
			failed++
		}
		records = append(records, rec)
	}
	span.SetAttributes(attribute.Int("pages.failed", failed))
	return records, nil
}

func (a *Auditor) checkLinks(ctx context.Context, r *run, links []string) ([]model.LinkCheckResult, error) {
	ctx, span := tracer.Start(ctx, "audit.links", trace.WithAttributes(attribute.Int("links.total", len(links))))
	defer span.End()

	results, err := a.comps.Links.Validate(ctx, links, a.cfg.LinkCheck.BatchSize, func(done, total int, _ []model.LinkCheckResult) {
		r.emit(done, total, "", fmt.Sprintf("Checking links (%d of %d)", done, total))
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	broken := 0
	for _, l := range results {
		if l.Broken() {
			broken++
		}
	}
	span.SetAttributes(attribute.Int("links.broken", broken))
	return results, nil
}

// external returns nil when the oracle is disabled, skipped or failing.
func (a *Auditor) external(ctx context.Context, req *AuditRequest, target string) *model.ExternalReport {
	if a.comps.External == nil || req.SkipPageSpeed {
		return nil
	}
	ctx, span := tracer.Start(ctx, "audit.pagespeed")
	defer span.End()

	rep, err := a.comps.External.Run(ctx, target, req.Strategy)
	if err != nil {
		recordError(span, err)
		a.logger.Warn("pagespeed unavailable, using fallback scores",
			logging.Field{Key: "url", Value: target},
			logging.Field{Key: "error", Value: err.Error()})
		return nil
	}
	return rep
}

func (a *Auditor) canceled(r *run, span trace.Span, err error) error {
	span.SetStatus(codes.Error, "canceled")
	r.enter(model.PhaseIdle, 0, "Audit canceled")
	a.logger.Info("audit canceled", logging.Field{Key: "phase", Value: "idle"})
	return err
}

func (a *Auditor) fail(r *run, span trace.Span, err error) error {
	recordError(span, err)
	r.enter(model.PhaseError, 0, err.Error())
	a.logger.Error("audit failed", logging.Field{Key: "error", Value: err.Error()})
	return err
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// pageLinks is the de-duplicated union of extracted links in page order.
func pageLinks(pages []model.PageAuditRecord) []string {
	var all []string
	for _, p := range pages {
		all = append(all, p.ExtractedLinks...)
	}
	return linkcheck.Dedupe(all)
}
