package enumerator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/utils"
	"github.com/raysh454/sitepulse/internal/webclient"
)

// maxIndexDepth bounds how far nested sitemap indexes are followed.
const maxIndexDepth = 2

var locRe = regexp.MustCompile(`(?is)<loc>\s*(.*?)\s*</loc>`)

// SitemapStrategy yields the sitemap documents to read for an origin.
type SitemapStrategy interface {
	Name() string
	Candidates(ctx context.Context, origin *url.URL) ([]string, error)
}

// StopPolicy decides whether the locations found by one strategy end the search.
type StopPolicy func(found []string) bool

// FirstNonEmpty stops at the first strategy that produced any page.
func FirstNonEmpty(found []string) bool { return len(found) > 0 }

// PathStrategy probes a fixed path on the origin.
type PathStrategy struct {
	Path string
}

func (s PathStrategy) Name() string { return "path:" + s.Path }

func (s PathStrategy) Candidates(_ context.Context, origin *url.URL) ([]string, error) {
	return []string{utils.Origin(origin) + s.Path}, nil
}

// RobotsStrategy reads the Sitemap: lines of /robots.txt.
type RobotsStrategy struct {
	wc  webclient.WebClient
	cfg Config
}

func (s RobotsStrategy) Name() string { return "robots" }

func (s RobotsStrategy) Candidates(ctx context.Context, origin *url.URL) ([]string, error) {
	resp, err := s.wc.Do(ctx, &webclient.Request{
		Method:  http.MethodGet,
		URL:     utils.Origin(origin) + "/robots.txt",
		Headers: http.Header{},
		Timeout: s.cfg.SitemapTimeout,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("robots.txt: HTTP %d", resp.StatusCode)
	}
	return parseRobotsSitemaps(resp.Body), nil
}

func parseRobotsSitemaps(body []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if len(line) < len("sitemap:") || !strings.EqualFold(line[:len("sitemap:")], "sitemap:") {
			continue
		}
		if loc := strings.TrimSpace(line[len("sitemap:"):]); loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

// SitemapResolver turns an origin into the page URLs its sitemaps list.
type SitemapResolver struct {
	wc         webclient.WebClient
	cfg        Config
	logger     logging.Logger
	strategies []SitemapStrategy
	stop       StopPolicy
}

// NewSitemapResolver builds a resolver. With no strategies given, the
// configured paths are probed in order followed by robots.txt.
func NewSitemapResolver(wc webclient.WebClient, cfg Config, logger logging.Logger, strategies ...SitemapStrategy) *SitemapResolver {
	if logger == nil {
		logger = logging.Nop()
	}
	cfg = cfg.withDefaults()
	if len(strategies) == 0 {
		strategies = DefaultStrategies(wc, cfg)
	}
	return &SitemapResolver{
		wc:         wc,
		cfg:        cfg,
		logger:     logger.With(logging.Field{Key: "component", Value: "sitemap"}),
		strategies: strategies,
		stop:       FirstNonEmpty,
	}
}

// DefaultStrategies returns the path probes from cfg then robots.txt.
func DefaultStrategies(wc webclient.WebClient, cfg Config) []SitemapStrategy {
	out := make([]SitemapStrategy, 0, len(cfg.SitemapPaths)+1)
	for _, p := range cfg.SitemapPaths {
		out = append(out, PathStrategy{Path: p})
	}
	if !cfg.SkipRobots {
		out = append(out, RobotsStrategy{wc: wc, cfg: cfg})
	}
	return out
}

// WithStopPolicy replaces the short-circuit rule.
func (r *SitemapResolver) WithStopPolicy(p StopPolicy) *SitemapResolver {
	r.stop = p
	return r
}

// Resolve tries each strategy in order. Fetch failures fall through to the
// next strategy; an absent sitemap yields an empty slice, never an error.
func (r *SitemapResolver) Resolve(ctx context.Context, origin *url.URL) []string {
	var found []string
	seen := make(map[string]struct{})
	for _, s := range r.strategies {
		if ctx.Err() != nil {
			break
		}
		docs, err := s.Candidates(ctx, origin)
		if err != nil {
			r.logger.Debug("sitemap strategy failed",
				logging.Field{Key: "strategy", Value: s.Name()},
				logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		var locs []string
		for _, d := range docs {
			locs = append(locs, r.fetch(ctx, d, 0)...)
		}
		for _, p := range r.filter(origin, locs) {
			if _, dup := seen[p]; dup || len(found) >= r.cfg.MaxPages {
				continue
			}
			seen[p] = struct{}{}
			found = append(found, p)
		}
		if r.stop(found) {
			r.logger.Info("sitemap resolved",
				logging.Field{Key: "strategy", Value: s.Name()},
				logging.Field{Key: "pages", Value: len(found)})
			break
		}
	}
	if found == nil {
		found = []string{}
	}
	return found
}

// fetch reads one sitemap document and expands it if it is an index.
func (r *SitemapResolver) fetch(ctx context.Context, docURL string, depth int) []string {
	resp, err := r.wc.Do(ctx, &webclient.Request{
		Method:  http.MethodGet,
		URL:     docURL,
		Headers: http.Header{},
		Timeout: r.cfg.SitemapTimeout,
	})
	if err != nil {
		r.logger.Debug("sitemap fetch failed",
			logging.Field{Key: "url", Value: docURL},
			logging.Field{Key: "error", Value: err.Error()})
		return nil
	}
	if !resp.OK() {
		r.logger.Debug("sitemap not found",
			logging.Field{Key: "url", Value: docURL},
			logging.Field{Key: "status", Value: resp.StatusCode})
		return nil
	}

	pages, children := parseSitemap(resp.Body)
	if len(children) == 0 || depth >= maxIndexDepth {
		return pages
	}
	if len(children) > r.cfg.MaxSitemapChildren {
		children = children[:r.cfg.MaxSitemapChildren]
	}

	results := make([][]string, len(children))
	var g errgroup.Group
	g.SetLimit(r.cfg.MaxSitemapChildren)
	for i, child := range children {
		g.Go(func() error {
			results[i] = r.fetch(ctx, child, depth+1)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		pages = append(pages, res...)
	}
	return pages
}

// filter keeps same-origin, non-.xml locations, normalized.
func (r *SitemapResolver) filter(origin *url.URL, locs []string) []string {
	out := make([]string, 0, len(locs))
	for _, loc := range locs {
		u, err := url.Parse(strings.TrimSpace(loc))
		if err != nil || u.Host == "" {
			continue
		}
		if !utils.SameOrigin(u, origin) {
			continue
		}
		if strings.HasSuffix(strings.ToLower(u.Path), ".xml") {
			continue
		}
		out = append(out, utils.NormalizePageURL(u))
	}
	return out
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

type sitemapDoc struct {
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

// parseSitemap splits a urlset or sitemapindex into page and child
// locations. Documents that are not well-formed XML are scanned for <loc>.
func parseSitemap(body []byte) (pages, children []string) {
	var doc sitemapDoc
	if err := xml.Unmarshal(body, &doc); err == nil {
		for _, u := range doc.URLs {
			if loc := strings.TrimSpace(u.Loc); loc != "" {
				pages = append(pages, loc)
			}
		}
		for _, s := range doc.Sitemaps {
			if loc := strings.TrimSpace(s.Loc); loc != "" {
				children = append(children, loc)
			}
		}
		return pages, children
	}

	isIndex := bytes.Contains(bytes.ToLower(body), []byte("<sitemapindex"))
	for _, m := range locRe.FindAllSubmatch(body, -1) {
		loc := html.UnescapeString(strings.TrimSpace(string(m[1])))
		if loc == "" {
			continue
		}
		if isIndex {
			children = append(children, loc)
		} else {
			pages = append(pages, loc)
		}
	}
	return pages, children
}
