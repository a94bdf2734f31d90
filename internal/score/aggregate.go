package score

import (
	"math"

	"github.com/raysh454/sitepulse/internal/assessor"
	"github.com/raysh454/sitepulse/internal/model"
)

// Blend weights of the health score.
const (
	WeightExternal = 0.3
	WeightIssues   = 0.5
	WeightLinks    = 0.2

	// NeutralExternal stands in for the external average when no report exists.
	NeutralExternal = 50.0
)

// severityPenalty is the per-issue deduction, averaged over pages.
var severityPenalty = map[model.Severity]float64{
	model.SeverityCritical: 10,
	model.SeverityHigh:     5,
	model.SeverityMedium:   2,
	model.SeverityLow:      0.5,
}

// BrokenLinksCheck is the pseudo-check that fails when any link is broken.
const BrokenLinksCheck = "broken_links"

// brokenLinksCategories are the buckets the broken-link check counts towards.
var brokenLinksCategories = []assessor.ScoreCategory{assessor.ScoreSEO, assessor.ScoreBestPractices}

// Result is the outcome of Aggregate.
type Result struct {
	HealthScore int                  `json:"healthScore"`
	Categories  model.CategoryScores `json:"categoryScores"`

	// Components of HealthScore before weighting.
	ExternalAverage float64 `json:"externalAverage"`
	IssueScore      float64 `json:"issueScore"`
	LinkScore       float64 `json:"linkScore"`

	// FallbackCategories is true when Categories came from the rule catalog
	// rather than the external report.
	FallbackCategories bool `json:"fallbackCategories"`
}

// Aggregate folds page issues, link results and an optional external report
// into the health and category scores. It is deterministic and every score
// lies in [0, 100], including for zero pages or zero links.
func Aggregate(pages []model.PageAuditRecord, links []model.LinkCheckResult, external *model.CategoryScores) Result {
	res := Result{
		ExternalAverage: NeutralExternal,
		IssueScore:      IssueScore(pages),
		LinkScore:       LinkScore(links),
	}
	if external != nil {
		res.ExternalAverage = external.Average()
	}

	blended := WeightExternal*res.ExternalAverage + WeightIssues*res.IssueScore + WeightLinks*res.LinkScore
	res.HealthScore = clamp(int(math.Round(blended)))

	if external != nil {
		res.Categories = *external
	} else {
		res.Categories = FallbackCategories(pages, links)
		res.FallbackCategories = true
	}
	return res
}

// IssueScore is 100 minus the severity-weighted issue count per page.
func IssueScore(pages []model.PageAuditRecord) float64 {
	var penalty float64
	for _, p := range pages {
		for _, is := range p.Issues {
			penalty += severityPenalty[is.Severity]
		}
	}
	n := len(pages)
	if n == 0 {
		n = 1
	}
	return math.Max(0, 100-penalty/float64(n))
}

// LinkScore is 100 minus 500 times the broken fraction. No links scores 100.
func LinkScore(links []model.LinkCheckResult) float64 {
	if len(links) == 0 {
		return 100
	}
	broken := 0
	for _, l := range links {
		if l.Broken() {
			broken++
		}
	}
	return math.Max(0, 100-500*float64(broken)/float64(len(links)))
}

// FallbackCategories scores each bucket as the percentage of its checks that
// produced no issue on any page. Every check weighs the same regardless of
// how many issues it raised.
func FallbackCategories(pages []model.PageAuditRecord, links []model.LinkCheckResult) model.CategoryScores {
	failed := FailedChecks(pages, links)
	pct := func(cat assessor.ScoreCategory) int {
		total, passed := 0, 0
		for _, ch := range assessor.Catalog() {
			if !ch.Counts(cat) {
				continue
			}
			total++
			if !failed[ch.ID] {
				passed++
			}
		}
		for _, c := range brokenLinksCategories {
			if c == cat {
				total++
				if !failed[BrokenLinksCheck] {
					passed++
				}
			}
		}
		if total == 0 {
			return 100
		}
		return clamp(int(math.Round(100 * float64(passed) / float64(total))))
	}
	return model.CategoryScores{
		Performance:   pct(assessor.ScorePerformance),
		Accessibility: pct(assessor.ScoreAccessibility),
		SEO:           pct(assessor.ScoreSEO),
		BestPractices: pct(assessor.ScoreBestPractices),
	}
}

// FailedChecks returns the IDs of checks that raised at least one issue.
func FailedChecks(pages []model.PageAuditRecord, links []model.LinkCheckResult) map[string]bool {
	failed := make(map[string]bool)
	for _, p := range pages {
		for _, is := range p.Issues {
			if ch, ok := assessor.CheckFor(is.Type); ok {
				failed[ch.ID] = true
			}
		}
	}
	for _, l := range links {
		if l.Broken() {
			failed[BrokenLinksCheck] = true
			break
		}
	}
	return failed
}

func clamp(v int) int {
	return max(0, min(100, v))
}
