package enumerator_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/raysh454/sitepulse/internal/enumerator"
	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/webclient"
)

// site serves routes verbatim, replacing {{origin}} with the server URL.
// Unknown paths answer 404.
func site(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, ".xml"):
			w.Header().Set("Content-Type", "application/xml")
		case strings.HasSuffix(r.URL.Path, ".txt"):
			w.Header().Set("Content-Type", "text/plain")
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		_, _ = w.Write([]byte(strings.ReplaceAll(body, "{{origin}}", ts.URL)))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newWebClient(t *testing.T, ts *httptest.Server) webclient.WebClient {
	t.Helper()
	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, logging.Nop(), ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	t.Cleanup(func() { _ = wc.Close() })
	return wc
}

func urlset(locs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, l := range locs {
		fmt.Fprintf(&b, "<url><loc>%s</loc></url>", l)
	}
	b.WriteString("</urlset>")
	return b.String()
}

func sitemapIndex(locs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, l := range locs {
		fmt.Fprintf(&b, "<sitemap><loc>%s</loc></sitemap>", l)
	}
	b.WriteString("</sitemapindex>")
	return b.String()
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

// ─── Link extraction ───────────────────────────────────────────────────

func TestExtractLinks_ResolvesFiltersAndPartitions(t *testing.T) {
	t.Parallel()
	markup := `<html><body>
<a href="/a">a</a>
<a href="/a#section">a again</a>
<a href="#top">top</a>
<a href="mailto:x@y.test">mail</a>
<a href="tel:123">tel</a>
<a href="JavaScript:void(0)">js</a>
<a href="https://other.test/x">ext</a>
<a href="b?q=1">relative</a>
<a href="/logo.png">img</a>
<a href="ftp://files.test/f">ftp</a>
</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatal(err)
	}
	ls := enumerator.ExtractLinks(doc, mustParse(t, "https://site.test/dir/page"))

	wantAll := []string{
		"https://site.test/a",
		"https://other.test/x",
		"https://site.test/dir/b?q=1",
		"https://site.test/logo.png",
	}
	if !reflect.DeepEqual(ls.All, wantAll) {
		t.Errorf("All = %v, want %v", ls.All, wantAll)
	}
	if want := []string{"https://other.test/x"}; !reflect.DeepEqual(ls.External, want) {
		t.Errorf("External = %v, want %v", ls.External, want)
	}
	if len(ls.Internal) != 3 {
		t.Errorf("Internal = %v, want 3 entries", ls.Internal)
	}
	wantPages := []string{"https://site.test/a", "https://site.test/dir/b?q=1"}
	if got := ls.InternalPages(); !reflect.DeepEqual(got, wantPages) {
		t.Errorf("InternalPages = %v, want %v", got, wantPages)
	}
}

func TestExtractLinks_HonorsBaseHref(t *testing.T) {
	t.Parallel()
	markup := `<html><head><base href="/docs/"></head><body><a href="intro">x</a></body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatal(err)
	}
	ls := enumerator.ExtractLinks(doc, mustParse(t, "https://site.test/index"))
	if want := []string{"https://site.test/docs/intro"}; !reflect.DeepEqual(ls.All, want) {
		t.Errorf("All = %v, want %v", ls.All, want)
	}
}

// ─── Sitemap resolution ────────────────────────────────────────────────

func TestSitemapResolver_FallsThroughToRobots(t *testing.T) {
	t.Parallel()
	ts := site(t, map[string]string{
		"/robots.txt": "User-agent: *\nSitemap: {{origin}}/maps/custom.xml\n",
		"/maps/custom.xml": urlset(
			"{{origin}}/found",
			"https://elsewhere.test/skip",
			"{{origin}}/nested.xml",
		),
	})
	r := enumerator.NewSitemapResolver(newWebClient(t, ts), enumerator.DefaultConfig(), nil)

	got := r.Resolve(context.Background(), mustParse(t, ts.URL))
	if want := []string{ts.URL + "/found"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %v, want %v", got, want)
	}
}

func TestSitemapResolver_AbsentSitemapIsEmptyNotError(t *testing.T) {
	t.Parallel()
	ts := site(t, map[string]string{"/": "<html></html>"})
	r := enumerator.NewSitemapResolver(newWebClient(t, ts), enumerator.DefaultConfig(), nil)

	got := r.Resolve(context.Background(), mustParse(t, ts.URL))
	if got == nil || len(got) != 0 {
		t.Errorf("Resolve = %#v, want empty non-nil slice", got)
	}
}

func TestSitemapResolver_StopPolicy(t *testing.T) {
	t.Parallel()
	ts := site(t, map[string]string{
		"/first.xml":  urlset("{{origin}}/one"),
		"/second.xml": urlset("{{origin}}/two"),
	})
	wc := newWebClient(t, ts)
	strategies := []enumerator.SitemapStrategy{
		enumerator.PathStrategy{Path: "/missing.xml"},
		enumerator.PathStrategy{Path: "/first.xml"},
		enumerator.PathStrategy{Path: "/second.xml"},
	}
	origin := mustParse(t, ts.URL)

	firstOnly := enumerator.NewSitemapResolver(wc, enumerator.DefaultConfig(), nil, strategies...)
	if got, want := firstOnly.Resolve(context.Background(), origin), []string{ts.URL + "/one"}; !reflect.DeepEqual(got, want) {
		t.Errorf("first-non-empty: got %v, want %v", got, want)
	}

	all := enumerator.NewSitemapResolver(wc, enumerator.DefaultConfig(), nil, strategies...).
		WithStopPolicy(func([]string) bool { return false })
	if got, want := all.Resolve(context.Background(), origin), []string{ts.URL + "/one", ts.URL + "/two"}; !reflect.DeepEqual(got, want) {
		t.Errorf("never-stop: got %v, want %v", got, want)
	}
}

func TestSitemapResolver_IndexChildrenCapped(t *testing.T) {
	t.Parallel()
	routes := map[string]string{}
	var children []string
	for i := 0; i < 12; i++ {
		path := fmt.Sprintf("/child-%02d.xml", i)
		routes[path] = urlset(fmt.Sprintf("{{origin}}/p%02d", i))
		children = append(children, "{{origin}}"+path)
	}
	routes["/sitemap.xml"] = sitemapIndex(children...)
	ts := site(t, routes)

	r := enumerator.NewSitemapResolver(newWebClient(t, ts), enumerator.DefaultConfig(), nil)
	got := r.Resolve(context.Background(), mustParse(t, ts.URL))
	if len(got) != 10 {
		t.Fatalf("got %d pages, want 10 (children capped): %v", len(got), got)
	}
	for i, u := range got {
		if want := fmt.Sprintf("%s/p%02d", ts.URL, i); u != want {
			t.Errorf("page %d = %s, want %s", i, u, want)
		}
	}
}

func TestSitemapResolver_MaxPagesCap(t *testing.T) {
	t.Parallel()
	var locs []string
	for i := 0; i < 20; i++ {
		locs = append(locs, fmt.Sprintf("{{origin}}/p%d", i))
	}
	ts := site(t, map[string]string{"/sitemap.xml": urlset(locs...)})

	cfg := enumerator.DefaultConfig()
	cfg.MaxPages = 5
	r := enumerator.NewSitemapResolver(newWebClient(t, ts), cfg, nil)
	if got := r.Resolve(context.Background(), mustParse(t, ts.URL)); len(got) != 5 {
		t.Errorf("got %d pages, want 5", len(got))
	}
}

// ─── Discovery ─────────────────────────────────────────────────────────

func TestDiscover_SitemapIndexWithThreeChildren(t *testing.T) {
	t.Parallel()
	routes := map[string]string{
		"/": `<html><head><title>Sitemap Shop</title></head><body>no links</body></html>`,
	}
	var children []string
	for c := 1; c <= 3; c++ {
		var locs []string
		for p := 1; p <= 10; p++ {
			locs = append(locs, fmt.Sprintf("{{origin}}/section-%d/page-%d", c, p))
		}
		path := fmt.Sprintf("/sitemap-%d.xml", c)
		routes[path] = urlset(locs...)
		children = append(children, "{{origin}}"+path)
	}
	routes["/sitemap.xml"] = sitemapIndex(children...)
	ts := site(t, routes)

	spider := enumerator.NewSpider(enumerator.DefaultConfig(), newWebClient(t, ts), nil)
	res, err := spider.Discover(context.Background(), ts.URL, enumerator.DiscoverOptions{})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(res.Pages) != 31 {
		t.Fatalf("got %d pages, want 31: %v", len(res.Pages), res.Pages)
	}
	if res.Pages[0] != ts.URL+"/" {
		t.Errorf("first page = %s, want target %s/", res.Pages[0], ts.URL)
	}
	if res.SiteName != "Sitemap Shop" {
		t.Errorf("SiteName = %q", res.SiteName)
	}
	if res.BaseOrigin != ts.URL {
		t.Errorf("BaseOrigin = %q, want %q", res.BaseOrigin, ts.URL)
	}
	for i := 1; i < len(res.Pages); i++ {
		if res.Pages[i-1] >= res.Pages[i] {
			t.Fatalf("pages not sorted/unique at %d: %q >= %q", i, res.Pages[i-1], res.Pages[i])
		}
	}
}

func TestDiscover_MergesLinksAndSitemapWithoutDuplicates(t *testing.T) {
	t.Parallel()
	ts := site(t, map[string]string{
		"/":            `<html><body><a href="/about">About</a><a href="/about#team">Team</a><a href="/style.css">css</a></body></html>`,
		"/sitemap.xml": urlset("{{origin}}/about", "{{origin}}/contact"),
	})
	spider := enumerator.NewSpider(enumerator.DefaultConfig(), newWebClient(t, ts), nil)

	res, err := spider.Discover(context.Background(), ts.URL, enumerator.DiscoverOptions{})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{ts.URL + "/", ts.URL + "/about", ts.URL + "/contact"}
	if !reflect.DeepEqual(res.Pages, want) {
		t.Errorf("Pages = %v, want %v", res.Pages, want)
	}
	host := mustParse(t, ts.URL).Hostname()
	if res.SiteName != host {
		t.Errorf("SiteName = %q, want hostname %q", res.SiteName, host)
	}
}

func TestDiscover_DeepCrawl(t *testing.T) {
	t.Parallel()
	ts := site(t, map[string]string{
		"/":    `<html><body><a href="/a">a</a><a href="/b">b</a></body></html>`,
		"/a":   `<html><body><a href="/a/1">a1</a><a href="/">home</a></body></html>`,
		"/b":   `<html><body><a href="/b/1">b1</a></body></html>`,
		"/a/1": `<html><body><a href="/never">deeper than one round</a></body></html>`,
	})
	spider := enumerator.NewSpider(enumerator.DefaultConfig(), newWebClient(t, ts), nil)

	shallow, err := spider.Discover(context.Background(), ts.URL, enumerator.DiscoverOptions{Depth: 3})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if want := []string{ts.URL + "/", ts.URL + "/a", ts.URL + "/b"}; !reflect.DeepEqual(shallow.Pages, want) {
		t.Errorf("depth 3: Pages = %v, want %v", shallow.Pages, want)
	}

	var found int
	deep, err := spider.Discover(context.Background(), ts.URL, enumerator.DiscoverOptions{
		Depth:       10,
		OnDeepCrawl: func(n int) { found = n },
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{ts.URL + "/", ts.URL + "/a", ts.URL + "/a/1", ts.URL + "/b", ts.URL + "/b/1"}
	if !reflect.DeepEqual(deep.Pages, want) {
		t.Errorf("depth 10: Pages = %v, want %v", deep.Pages, want)
	}
	if found != 3 {
		t.Errorf("OnDeepCrawl got %d, want 3", found)
	}
}

func TestDiscover_NoDeepCrawlForSinglePage(t *testing.T) {
	t.Parallel()
	ts := site(t, map[string]string{"/": `<html><body>alone</body></html>`})
	spider := enumerator.NewSpider(enumerator.DefaultConfig(), newWebClient(t, ts), nil)

	called := false
	res, err := spider.Discover(context.Background(), ts.URL, enumerator.DiscoverOptions{
		Depth:       10,
		OnDeepCrawl: func(int) { called = true },
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if called {
		t.Error("deep crawl ran for a single-page site")
	}
	if len(res.Pages) != 1 {
		t.Errorf("Pages = %v, want only the target", res.Pages)
	}
}

func TestDiscover_TargetFailure(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)
	spider := enumerator.NewSpider(enumerator.DefaultConfig(), newWebClient(t, ts), nil)

	res, err := spider.Discover(context.Background(), ts.URL, enumerator.DiscoverOptions{})
	if !errors.Is(err, enumerator.ErrDiscoveryFailed) {
		t.Fatalf("err = %v, want ErrDiscoveryFailed", err)
	}
	var se *enumerator.StatusError
	if !errors.As(err, &se) || se.Status != http.StatusInternalServerError {
		t.Errorf("err = %v, want StatusError 500", err)
	}
	if res == nil || res.Error != "HTTP 500" || len(res.Pages) != 0 {
		t.Errorf("result = %+v, want error HTTP 500 and no pages", res)
	}
}

func TestDiscover_InvalidTarget(t *testing.T) {
	t.Parallel()
	spider := enumerator.NewSpider(enumerator.DefaultConfig(), nil, nil)
	_, err := spider.Discover(context.Background(), "   ", enumerator.DiscoverOptions{})
	if !errors.Is(err, enumerator.ErrDiscoveryFailed) {
		t.Errorf("err = %v, want ErrDiscoveryFailed", err)
	}
}

func TestSpider_Enumerate(t *testing.T) {
	t.Parallel()
	ts := site(t, map[string]string{
		"/": `<html><body><a href="/x">x</a></body></html>`,
	})
	var e enumerator.Enumerator = enumerator.NewSpider(enumerator.DefaultConfig(), newWebClient(t, ts), nil)
	got, err := e.Enumerate(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if want := []string{ts.URL + "/", ts.URL + "/x"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
