package enumerator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/raysh454/sitepulse/internal/assessor"
	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/utils"
	"github.com/raysh454/sitepulse/internal/webclient"
)

// ErrDiscoveryFailed is returned when the target page itself cannot be fetched.
var ErrDiscoveryFailed = errors.New("discovery failed")

// DiscoverOptions tunes a single discovery run.
type DiscoverOptions struct {
	// Depth is the crawl depth the caller intends to audit. Discovery runs a
	// deep crawl when it found fewer pages than this.
	Depth int

	// OnDeepCrawl, if set, is called before the deep crawl starts.
	OnDeepCrawl func(found int)
}

type Spider struct {
	wc       webclient.WebClient
	cfg      Config
	logger   logging.Logger
	sitemaps *SitemapResolver
}

var _ Enumerator = (*Spider)(nil)

func NewSpider(cfg Config, wc webclient.WebClient, logger logging.Logger) *Spider {
	if logger == nil {
		logger = logging.Nop()
	}
	cfg = cfg.withDefaults()
	return &Spider{
		wc:       wc,
		cfg:      cfg,
		logger:   logger.With(logging.Field{Key: "component", Value: "spider"}),
		sitemaps: NewSitemapResolver(wc, cfg, logger),
	}
}

// WithSitemapResolver replaces the default sitemap resolver.
func (s *Spider) WithSitemapResolver(r *SitemapResolver) *Spider {
	s.sitemaps = r
	return s
}

// Enumerate returns the discovered pages of target.
func (s *Spider) Enumerate(ctx context.Context, target string) ([]string, error) {
	res, err := s.Discover(ctx, target, DiscoverOptions{})
	if err != nil {
		return nil, err
	}
	return res.Pages, nil
}

// Discover finds the pages of the site behind target. When the target page
// cannot be fetched, the result carries Error and the returned error wraps
// ErrDiscoveryFailed.
func (s *Spider) Discover(ctx context.Context, target string, opts DiscoverOptions) (*model.DiscoveryResult, error) {
	target = utils.EnsureScheme(target)
	tu, err := utils.ParseTarget(target)
	if err != nil {
		return s.failed("", err)
	}
	origin := utils.Origin(tu)

	page, err := FetchDocument(ctx, s.wc, target, s.cfg.PageTimeout)
	if err != nil {
		s.logger.Warn("target unreachable",
			logging.Field{Key: "url", Value: target},
			logging.Field{Key: "error", Value: err.Error()})
		return s.failed(origin, err)
	}

	res := &model.DiscoveryResult{
		SiteName:   assessor.PageTitle(page.Doc),
		BaseOrigin: utils.Origin(page.URL),
	}
	if res.SiteName == "" {
		res.SiteName = page.URL.Hostname()
	}

	set := newPageSet()
	set.add(utils.NormalizePageURL(tu))
	set.add(ExtractLinks(page.Doc, page.URL).InternalPages()...)
	set.add(s.sitemaps.Resolve(ctx, page.URL)...)

	if opts.Depth > set.len() && set.len() > 1 {
		if opts.OnDeepCrawl != nil {
			opts.OnDeepCrawl(set.len())
		}
		set.add(s.deepCrawl(ctx, utils.NormalizePageURL(tu), set.sorted())...)
	}

	pages := set.sorted()
	if len(pages) > s.cfg.MaxPages {
		pages = pages[:s.cfg.MaxPages]
	}
	res.Pages = pages

	s.logger.Info("discovery complete",
		logging.Field{Key: "url", Value: target},
		logging.Field{Key: "pages", Value: len(pages)})
	return res, nil
}

func (s *Spider) failed(origin string, err error) (*model.DiscoveryResult, error) {
	return &model.DiscoveryResult{
		BaseOrigin: origin,
		Pages:      []string{},
		Error:      err.Error(),
	}, fmt.Errorf("%w: %w", ErrDiscoveryFailed, err)
}

// deepCrawl fetches up to DeepCrawlPages already-known pages other than the
// target and returns their internal page links.
func (s *Spider) deepCrawl(ctx context.Context, target string, known []string) []string {
	batch := make([]string, 0, s.cfg.DeepCrawlPages)
	for _, u := range known {
		if len(batch) == s.cfg.DeepCrawlPages {
			break
		}
		if u != target {
			batch = append(batch, u)
		}
	}

	results := make([][]string, len(batch))
	var g errgroup.Group
	g.SetLimit(s.cfg.DeepCrawlPages)
	for i, u := range batch {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			page, err := FetchDocument(ctx, s.wc, u, s.cfg.PageTimeout)
			if err != nil {
				s.logger.Debug("deep crawl fetch failed",
					logging.Field{Key: "url", Value: u},
					logging.Field{Key: "error", Value: err.Error()})
				return nil
			}
			results[i] = ExtractLinks(page.Doc, page.URL).InternalPages()
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for _, r := range results {
		out = append(out, r...)
	}
	s.logger.Debug("deep crawl done",
		logging.Field{Key: "fetched", Value: len(batch)},
		logging.Field{Key: "links", Value: len(out)})
	return out
}

type pageSet struct {
	seen  map[string]struct{}
	pages []string
}

func newPageSet() *pageSet {
	return &pageSet{seen: make(map[string]struct{})}
}

func (p *pageSet) add(urls ...string) {
	for _, u := range urls {
		if _, ok := p.seen[u]; ok {
			continue
		}
		p.seen[u] = struct{}{}
		p.pages = append(p.pages, u)
	}
}

func (p *pageSet) len() int { return len(p.pages) }

func (p *pageSet) sorted() []string {
	out := make([]string, len(p.pages))
	copy(out, p.pages)
	sort.Strings(out)
	return out
}
