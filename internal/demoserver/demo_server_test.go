package demoserver_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/raysh454/sitepulse/internal/assessor"
	"github.com/raysh454/sitepulse/internal/demoserver"
)

func newDemo(t *testing.T) (*demoserver.DemoServer, *httptest.Server) {
	t.Helper()
	d := demoserver.NewDemoServer(demoserver.DefaultConfig())
	ts := httptest.NewServer(d.Handler())
	t.Cleanup(ts.Close)
	return d, ts
}

func get(t *testing.T, client *http.Client, u string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func issueTypes(t *testing.T, html string) []string {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var out []string
	for _, is := range assessor.Assess(doc, "") {
		out = append(out, string(is.Type))
	}
	sort.Strings(out)
	return out
}

func TestDemoServer_VersionOnePagesTriggerFindings(t *testing.T) {
	t.Parallel()
	_, ts := newDemo(t)

	for path, want := range demoserver.Findings {
		_, body := get(t, ts.Client(), ts.URL+path)
		want = append([]string(nil), want...)
		sort.Strings(want)
		if got := issueTypes(t, body); strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("%s issues = %v, want %v", path, got, want)
		}
	}
}

func TestDemoServer_VersionTwoPagesAreClean(t *testing.T) {
	t.Parallel()
	d, ts := newDemo(t)
	d.SetAllVersions(2)

	for path := range demoserver.Findings {
		_, body := get(t, ts.Client(), ts.URL+path)
		if got := issueTypes(t, body); len(got) != 0 {
			t.Errorf("%s issues = %v, want none", path, got)
		}
	}
}

func TestDemoServer_SitemapIndexAndRobots(t *testing.T) {
	t.Parallel()
	_, ts := newDemo(t)

	_, index := get(t, ts.Client(), ts.URL+"/sitemap.xml")
	if !strings.Contains(index, "<sitemapindex") || !strings.Contains(index, ts.URL+"/sitemap-pages.xml") {
		t.Errorf("sitemap index = %s", index)
	}
	_, pages := get(t, ts.Client(), ts.URL+"/sitemap-pages.xml")
	for path := range demoserver.Findings {
		if !strings.Contains(pages, "<loc>"+ts.URL+path+"</loc>") {
			t.Errorf("sitemap missing %s:\n%s", path, pages)
		}
	}
	_, robots := get(t, ts.Client(), ts.URL+"/robots.txt")
	if !strings.Contains(robots, "Sitemap: "+ts.URL+"/sitemap.xml") {
		t.Errorf("robots = %q", robots)
	}
}

func TestDemoServer_BrokenAndRedirectLinks(t *testing.T) {
	t.Parallel()
	_, ts := newDemo(t)
	client := ts.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	if resp, _ := get(t, client, ts.URL+"/old-page"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("/old-page status = %d, want 404", resp.StatusCode)
	}
	resp, _ := get(t, client, ts.URL+"/moved")
	if resp.StatusCode != http.StatusMovedPermanently || resp.Header.Get("Location") != "/about" {
		t.Errorf("/moved = %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestDemoServer_ControlEndpoints(t *testing.T) {
	t.Parallel()
	_, ts := newDemo(t)
	client := ts.Client()

	resp, err := client.PostForm(ts.URL+"/demo/set-version", url.Values{"path": {"/about"}, "version": {"9"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set-version status = %d", resp.StatusCode)
	}
	_, body := get(t, client, ts.URL+"/about")
	if !strings.Contains(body, "<h2>Our story</h2>") {
		t.Error("expected /about capped at version 2")
	}

	resp, err = client.PostForm(ts.URL+"/demo/set-version", url.Values{"path": {"/nope"}, "version": {"1"}})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown page status = %d, want 404", resp.StatusCode)
	}

	resp, err = client.Post(ts.URL+"/demo/reset", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	_, body = get(t, client, ts.URL+"/about")
	if !strings.Contains(body, "<h3>Our story</h3>") {
		t.Error("expected /about reset to version 1")
	}

	if resp, _ := get(t, client, ts.URL+"/demo/set-version"); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET set-version status = %d", resp.StatusCode)
	}
}
