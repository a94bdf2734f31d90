package score

import (
	"sort"

	"github.com/raysh454/sitepulse/internal/model"
)

// IssueDelta is the change in the count of one issue type between two audits.
type IssueDelta struct {
	Type     model.IssueType `json:"type"`
	Severity model.Severity  `json:"severity,omitempty"`
	Base     int             `json:"base"`
	Head     int             `json:"head"`
	Delta    int             `json:"delta"`
}

// CategoryDelta is the change of one category score.
type CategoryDelta struct {
	Category string `json:"category"`
	Base     int    `json:"base"`
	Head     int    `json:"head"`
	Delta    int    `json:"delta"`
}

// ScoreDelta compares two audits of the same site.
type ScoreDelta struct {
	URL         string          `json:"url"`
	BaseID      string          `json:"base_id"`
	HeadID      string          `json:"head_id"`
	BaseScore   int             `json:"base_score"`
	HeadScore   int             `json:"head_score"`
	Delta       int             `json:"delta"`
	Categories  []CategoryDelta `json:"categories"`
	IssueDeltas []IssueDelta    `json:"issue_deltas"`
}

// DiffSnapshots computes score and issue-count changes from base to head.
// Either side may be nil and then counts as empty.
func DiffSnapshots(base, head *model.AuditSnapshot) *ScoreDelta {
	sd := &ScoreDelta{
		Categories:  []CategoryDelta{},
		IssueDeltas: []IssueDelta{},
	}
	var bc, hc model.CategoryScores
	if base != nil {
		sd.BaseID = base.ID
		sd.BaseScore = base.HealthScore
		sd.URL = base.TargetURL
		bc = base.CategoryScores
	}
	if head != nil {
		sd.HeadID = head.ID
		sd.HeadScore = head.HealthScore
		sd.URL = head.TargetURL
		hc = head.CategoryScores
	}
	sd.Delta = sd.HeadScore - sd.BaseScore

	for _, c := range []struct {
		name       string
		base, head int
	}{
		{"performance", bc.Performance, hc.Performance},
		{"accessibility", bc.Accessibility, hc.Accessibility},
		{"seo", bc.SEO, hc.SEO},
		{"bestPractices", bc.BestPractices, hc.BestPractices},
	} {
		sd.Categories = append(sd.Categories, CategoryDelta{
			Category: c.name, Base: c.base, Head: c.head, Delta: c.head - c.base,
		})
	}

	baseCounts, sev := countIssues(base, nil)
	headCounts, sev := countIssues(head, sev)

	seen := make(map[model.IssueType]struct{})
	for t := range baseCounts {
		seen[t] = struct{}{}
	}
	for t := range headCounts {
		seen[t] = struct{}{}
	}
	for t := range seen {
		b, h := baseCounts[t], headCounts[t]
		if b == h {
			continue
		}
		sd.IssueDeltas = append(sd.IssueDeltas, IssueDelta{
			Type: t, Severity: sev[t], Base: b, Head: h, Delta: h - b,
		})
	}

	// Most changed first; ties by type for a stable order.
	sort.Slice(sd.IssueDeltas, func(i, j int) bool {
		ai, aj := abs(sd.IssueDeltas[i].Delta), abs(sd.IssueDeltas[j].Delta)
		if ai != aj {
			return ai > aj
		}
		return sd.IssueDeltas[i].Type < sd.IssueDeltas[j].Type
	})
	return sd
}

func countIssues(s *model.AuditSnapshot, sev map[model.IssueType]model.Severity) (map[model.IssueType]int, map[model.IssueType]model.Severity) {
	if sev == nil {
		sev = make(map[model.IssueType]model.Severity)
	}
	counts := make(map[model.IssueType]int)
	if s == nil {
		return counts, sev
	}
	for _, p := range s.Pages {
		for _, is := range p.Issues {
			counts[is.Type]++
			sev[is.Type] = is.Severity
		}
	}
	return counts, sev
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
