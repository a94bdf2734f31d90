package score_test

import (
	"testing"

	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/score"
)

func issues(sevs ...model.Severity) []model.Issue {
	out := make([]model.Issue, len(sevs))
	for i, s := range sevs {
		out[i] = model.Issue{Type: model.IssueH1Missing, Severity: s}
	}
	return out
}

func TestAggregate_EmptyInputIsBounded(t *testing.T) {
	t.Parallel()
	res := score.Aggregate(nil, nil, nil)
	if res.HealthScore != 85 {
		t.Errorf("HealthScore = %d, want 85 (neutral external, perfect issues and links)", res.HealthScore)
	}
	if res.IssueScore != 100 || res.LinkScore != 100 || res.ExternalAverage != 50 {
		t.Errorf("components = %+v", res)
	}
	want := model.CategoryScores{Performance: 100, Accessibility: 100, SEO: 100, BestPractices: 100}
	if res.Categories != want || !res.FallbackCategories {
		t.Errorf("categories = %+v fallback=%v", res.Categories, res.FallbackCategories)
	}
}

func TestAggregate_Formula(t *testing.T) {
	t.Parallel()
	pages := []model.PageAuditRecord{
		{Issues: []model.Issue{
			{Type: model.IssueH1Missing, Severity: model.SeverityCritical},
			{Type: model.IssueFontNoSwap, Severity: model.SeverityMedium},
		}},
		{Issues: []model.Issue{}},
	}
	links := []model.LinkCheckResult{
		{URL: "a", OK: true, Status: 200},
		{URL: "b", OK: false, Status: 404},
		{URL: "c", OK: false, Status: 301, RedirectTarget: "d"},
		{URL: "e", OK: true, Status: 200},
		{URL: "f", OK: true, Status: 200},
		{URL: "g", OK: true, Status: 200},
		{URL: "h", OK: true, Status: 200},
		{URL: "i", OK: true, Status: 200},
		{URL: "j", OK: true, Status: 200},
		{URL: "k", OK: true, Status: 200},
	}
	ext := &model.CategoryScores{Performance: 80, Accessibility: 90, SEO: 100, BestPractices: 70}

	res := score.Aggregate(pages, links, ext)
	// penalty (10+2)/2 = 6 -> 94; one broken of ten -> 50; external 85.
	if res.IssueScore != 94 || res.LinkScore != 50 || res.ExternalAverage != 85 {
		t.Fatalf("components = %+v", res)
	}
	// 0.3*85 + 0.5*94 + 0.2*50 = 25.5 + 47 + 10 = 82.5 -> 83
	if res.HealthScore != 83 {
		t.Errorf("HealthScore = %d, want 83", res.HealthScore)
	}
	if res.Categories != *ext || res.FallbackCategories {
		t.Errorf("categories = %+v, want external values", res.Categories)
	}
}

func TestAggregate_MonotonicInCriticalIssues(t *testing.T) {
	t.Parallel()
	prev := 101
	for n := 0; n <= 40; n++ {
		sevs := make([]model.Severity, n)
		for i := range sevs {
			sevs[i] = model.SeverityCritical
		}
		pages := []model.PageAuditRecord{{Issues: issues(sevs...)}}
		got := score.Aggregate(pages, nil, nil).HealthScore
		if got > prev {
			t.Fatalf("score rose from %d to %d at %d criticals", prev, got, n)
		}
		if got < 0 || got > 100 {
			t.Fatalf("score %d out of range", got)
		}
		prev = got
	}
	if prev != 35 {
		t.Errorf("floor score = %d, want 35 (issue component clamped to 0)", prev)
	}
}

func TestAggregate_AllLinksBrokenClampsToZero(t *testing.T) {
	t.Parallel()
	links := []model.LinkCheckResult{{URL: "x", Error: model.LinkErrorTimeout}, {URL: "y", Status: 500}}
	if got := score.LinkScore(links); got != 0 {
		t.Errorf("LinkScore = %v, want 0", got)
	}
}

func TestFallbackCategories_PercentOfChecksPassed(t *testing.T) {
	t.Parallel()
	pages := []model.PageAuditRecord{{Issues: []model.Issue{
		{Type: model.IssueH1Missing, Severity: model.SeverityCritical},
		{Type: model.IssueFontNoSwap, Severity: model.SeverityMedium},
		{Type: model.IssueFontNoSwap, Severity: model.SeverityMedium},
	}}}

	got := score.FallbackCategories(pages, nil)
	want := model.CategoryScores{Performance: 75, Accessibility: 80, SEO: 88, BestPractices: 100}
	if got != want {
		t.Errorf("no broken links: got %+v, want %+v", got, want)
	}

	got = score.FallbackCategories(pages, []model.LinkCheckResult{{URL: "x", Status: 404}})
	want = model.CategoryScores{Performance: 75, Accessibility: 80, SEO: 75, BestPractices: 75}
	if got != want {
		t.Errorf("with broken link: got %+v, want %+v", got, want)
	}
}

func TestFailedChecks_GroupsIssueFamilies(t *testing.T) {
	t.Parallel()
	pages := []model.PageAuditRecord{
		{Issues: []model.Issue{{Type: model.IssueTitleTooShort}}},
		{Issues: []model.Issue{{Type: model.IssueTitleMissing}}},
	}
	failed := score.FailedChecks(pages, nil)
	if len(failed) != 1 || !failed["title"] {
		t.Errorf("failed = %v, want only title", failed)
	}
}

// ─── Grades and ratings ────────────────────────────────────────────────

func TestGrade(t *testing.T) {
	t.Parallel()
	cases := map[int]string{100: "Excellent", 90: "Excellent", 89: "Good", 70: "Good", 69: "Needs Work", 50: "Needs Work", 49: "Poor", 0: "Poor"}
	for s, want := range cases {
		if got := score.Grade(s); got != want {
			t.Errorf("Grade(%d) = %q, want %q", s, got, want)
		}
	}
}

func TestRateVital(t *testing.T) {
	t.Parallel()
	cases := []struct {
		v     score.Vital
		value float64
		want  string
	}{
		{score.VitalLCP, 2500, "good"},
		{score.VitalLCP, 2501, "needs-improvement"},
		{score.VitalLCP, 4001, "poor"},
		{score.VitalINP, 150, "good"},
		{score.VitalINP, 500, "needs-improvement"},
		{score.VitalCLS, 0.1, "good"},
		{score.VitalCLS, 0.3, "poor"},
		{score.Vital("ttfb"), 1, "unknown"},
	}
	for _, tc := range cases {
		if got := score.RateVital(tc.v, tc.value); got != tc.want {
			t.Errorf("RateVital(%s, %v) = %q, want %q", tc.v, tc.value, got, tc.want)
		}
	}
}
