package assessor

import "github.com/raysh454/sitepulse/internal/model"

// ScoreCategory is one of the four headline score buckets.
type ScoreCategory string

const (
	ScorePerformance   ScoreCategory = "performance"
	ScoreAccessibility ScoreCategory = "accessibility"
	ScoreSEO           ScoreCategory = "seo"
	ScoreBestPractices ScoreCategory = "bestPractices"
)

// ScoreCategories lists the buckets in display order.
var ScoreCategories = []ScoreCategory{ScorePerformance, ScoreAccessibility, ScoreSEO, ScoreBestPractices}

// Check describes one rule: the issue types it can emit and the score
// buckets it counts towards.
type Check struct {
	ID         string
	Types      []model.IssueType
	Categories []ScoreCategory
}

// Counts reports whether the check belongs to bucket c.
func (ch Check) Counts(c ScoreCategory) bool {
	for _, cat := range ch.Categories {
		if cat == c {
			return true
		}
	}
	return false
}

var checkByType = func() map[model.IssueType]Check {
	m := make(map[model.IssueType]Check)
	for _, r := range rules {
		for _, t := range r.check.Types {
			m[t] = r.check
		}
	}
	return m
}()

// Catalog returns every check in execution order.
func Catalog() []Check {
	out := make([]Check, len(rules))
	for i, r := range rules {
		out[i] = r.check
	}
	return out
}

// CheckFor maps an issue type to the check that emits it.
func CheckFor(t model.IssueType) (Check, bool) {
	ch, ok := checkByType[t]
	return ch, ok
}
