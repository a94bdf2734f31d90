package assessor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
)

// Assessor inspects a parsed page. Implementations perform no I/O and return
// the same ordered issues for the same markup.
type Assessor interface {
	Assess(doc *goquery.Document, pageURL string) []model.Issue
	Stats(doc *goquery.Document) model.PageStats
}

// HTMLAssessor runs the static markup rules.
type HTMLAssessor struct {
	cfg    Config
	logger logging.Logger
}

var _ Assessor = (*HTMLAssessor)(nil)

// NewHTMLAssessor builds an assessor; zero thresholds in cfg take their defaults.
func NewHTMLAssessor(cfg Config, logger logging.Logger) *HTMLAssessor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &HTMLAssessor{
		cfg:    cfg.withDefaults(),
		logger: logger.With(logging.Field{Key: "component", Value: "assessor"}),
	}
}

// Assess runs every rule in order and concatenates their issues.
func (a *HTMLAssessor) Assess(doc *goquery.Document, pageURL string) []model.Issue {
	issues := make([]model.Issue, 0, len(rules))
	for _, r := range rules {
		issues = append(issues, r.run(a.cfg, doc)...)
	}
	a.logger.Debug("assessed page",
		logging.Field{Key: "url", Value: pageURL},
		logging.Field{Key: "issues", Value: len(issues)})
	return issues
}

// Stats counts headings, images and words. Link counters are left for the
// caller, which owns link extraction.
func (a *HTMLAssessor) Stats(doc *goquery.Document) model.PageStats {
	return CollectStats(doc)
}

// Assess runs the rules with default thresholds.
func Assess(doc *goquery.Document, pageURL string) []model.Issue {
	return NewHTMLAssessor(DefaultConfig(), nil).Assess(doc, pageURL)
}

// CollectStats computes the markup counters of a page.
func CollectStats(doc *goquery.Document) model.PageStats {
	var st model.PageStats
	st.H1Count = doc.Find("h1").Length()
	st.HeadingCount = doc.Find(headingSelector).Length()

	imgs := doc.Find("img")
	st.ImgCount = imgs.Length()
	imgs.Each(func(_ int, img *goquery.Selection) {
		alt, ok := img.Attr("alt")
		switch {
		case !ok:
			st.ImgMissingAlt++
		case strings.TrimSpace(alt) == "":
			st.ImgEmptyAlt++
		}
		if missingDimensions(img) {
			st.ImgMissingDimensions++
		}
	})

	if body := doc.Find("body").First(); body.Length() > 0 {
		var b strings.Builder
		for _, n := range body.Nodes {
			visibleText(n, &b)
		}
		st.WordCount = len(strings.Fields(b.String()))
	}
	return st
}

// visibleText appends the text under n, skipping script, style and template content.
func visibleText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visibleText(c, b)
	}
}
