package fetcher_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/raysh454/sitepulse/internal/fetcher"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/testutil"
)

const samplePage = `<!doctype html><html lang="en"><head>
<title>Short</title>
</head><body>
<h1>Hello</h1>
<p>three little words</p>
<img src="/a.png">
<a href="/about">about</a>
<a href="https://other.test/">other</a>
<a href="mailto:x@y.test">mail</a>
</body></html>`

func hasType(issues []model.Issue, typ model.IssueType) bool {
	for _, is := range issues {
		if is.Type == typ {
			return true
		}
	}
	return false
}

// ─── PageAuditor ───────────────────────────────────────────────────────

func TestPageAuditor_Audit_Ok(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{Pages: map[string]string{"https://site.test/": samplePage}}
	pa := fetcher.NewPageAuditor(fetcher.DefaultConfig(), wc, nil, &testutil.DummyLogger{})

	out := pa.Audit(context.Background(), "https://site.test/")
	if out.Failed != nil || out.Ok == nil {
		t.Fatalf("outcome = %+v, want Ok", out)
	}
	rec := out.Ok
	if rec.URL != "https://site.test/" || rec.HTTPStatus != 200 || rec.Title != "Short" {
		t.Errorf("record header = %q %d %q", rec.URL, rec.HTTPStatus, rec.Title)
	}
	if !hasType(rec.Issues, model.IssueTitleTooShort) || !hasType(rec.Issues, model.IssueImgMissingAlt) {
		t.Errorf("issues = %+v, want title_too_short and img_missing_alt", rec.Issues)
	}
	if hasType(rec.Issues, model.IssueH1Missing) {
		t.Error("unexpected h1_missing")
	}
	want := []string{"https://site.test/about", "https://other.test/"}
	if fmt.Sprint(rec.ExtractedLinks) != fmt.Sprint(want) {
		t.Errorf("links = %v, want %v", rec.ExtractedLinks, want)
	}
	st := rec.Stats
	if st.LinkCount != 2 || st.InternalLinks != 1 || st.ExternalLinks != 1 {
		t.Errorf("link stats = %+v", st)
	}
	if st.H1Count != 1 || st.ImgCount != 1 || st.ImgMissingAlt != 1 {
		t.Errorf("markup stats = %+v", st)
	}
	if rec.FetchTimingMs < 0 {
		t.Errorf("FetchTimingMs = %d", rec.FetchTimingMs)
	}
}

func TestPageAuditor_Audit_NonSuccessStatus(t *testing.T) {
	t.Parallel()
	wc := &testutil.DummyWebClient{
		Pages:    map[string]string{"https://site.test/gone": "<html></html>"},
		Statuses: map[string]int{"https://site.test/gone": 404},
	}
	pa := fetcher.NewPageAuditor(fetcher.DefaultConfig(), wc, nil, nil)

	out := pa.Audit(context.Background(), "https://site.test/gone")
	if out.Ok != nil || out.Failed == nil {
		t.Fatalf("outcome = %+v, want Failed", out)
	}
	if out.Failed.HTTPStatus != 404 || out.Failed.Reason != "HTTP 404" {
		t.Errorf("failure = %+v", out.Failed)
	}
	rec := out.Record()
	if !rec.Failed() || len(rec.Issues) != 0 || len(rec.ExtractedLinks) != 0 || rec.HTTPStatus != 404 {
		t.Errorf("record = %+v", rec)
	}
}

func TestPageAuditor_Audit_NetworkFailure(t *testing.T) {
	t.Parallel()
	logger := &testutil.DummyLogger{}
	wc := &testutil.DummyWebClient{FailURLs: map[string]bool{"https://site.test/x": true}}
	pa := fetcher.NewPageAuditor(fetcher.DefaultConfig(), wc, nil, logger)

	out := pa.Audit(context.Background(), "https://site.test/x")
	if out.Failed == nil || out.Failed.URL != "https://site.test/x" || out.Failed.Reason == "" {
		t.Fatalf("outcome = %+v, want Failed with reason", out)
	}
	if len(logger.Warns) != 1 {
		t.Errorf("warns = %v, want one", logger.Warns)
	}
}

// ─── Fetcher.AuditAll ──────────────────────────────────────────────────

type stubAuditor struct {
	mu    sync.Mutex
	calls int
	hook  func(n int)
}

func (s *stubAuditor) Audit(_ context.Context, pageURL string) model.PageOutcome {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()
	if s.hook != nil {
		s.hook(n)
	}
	return model.PageOutcome{Ok: &model.PageAuditRecord{URL: pageURL}}
}

func TestFetcher_AuditAll_PreservesInputOrder(t *testing.T) {
	t.Parallel()
	urls := []string{"https://s.test/1", "https://s.test/2", "https://s.test/3", "https://s.test/4", "https://s.test/5"}
	f := fetcher.New(3, &stubAuditor{}, nil)

	var seen []int
	got, err := f.AuditAll(context.Background(), urls, func(done int, _ string, _ model.PageOutcome) {
		seen = append(seen, done)
	})
	if err != nil {
		t.Fatalf("AuditAll: %v", err)
	}
	for i, out := range got {
		if out.Ok == nil || out.Ok.URL != urls[i] {
			t.Errorf("result %d = %+v, want %s", i, out, urls[i])
		}
	}
	if fmt.Sprint(seen) != "[1 2 3 4 5]" {
		t.Errorf("progress = %v", seen)
	}
}

func TestFetcher_AuditAll_StopsDispatchOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stub := &stubAuditor{hook: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	f := fetcher.New(1, stub, nil)
	urls := []string{"https://s.test/1", "https://s.test/2", "https://s.test/3", "https://s.test/4"}

	got, err := f.AuditAll(ctx, urls, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d outcomes, want 2", len(got))
	}
	if stub.calls != 2 {
		t.Errorf("auditor called %d times, want 2", stub.calls)
	}
}
