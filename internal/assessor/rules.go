package assessor

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/utils"
)

// rule is one independent check. Rules run in slice order.
type rule struct {
	check Check
	run   func(cfg Config, doc *goquery.Document) []model.Issue
}

var rules = []rule{
	{check: Check{ID: "h1", Categories: []ScoreCategory{ScoreSEO, ScoreAccessibility},
		Types: []model.IssueType{model.IssueH1Missing, model.IssueH1Multiple, model.IssueH1Empty}}, run: checkH1},
	{check: Check{ID: "title", Categories: []ScoreCategory{ScoreSEO},
		Types: []model.IssueType{model.IssueTitleMissing, model.IssueTitleEmpty, model.IssueTitleTooShort, model.IssueTitleTooLong}}, run: checkTitle},
	{check: Check{ID: "meta_desc", Categories: []ScoreCategory{ScoreSEO},
		Types: []model.IssueType{model.IssueMetaDescMissing, model.IssueMetaDescEmpty, model.IssueMetaDescTooShort, model.IssueMetaDescTooLong}}, run: checkMetaDescription},
	{check: Check{ID: "img_alt", Categories: []ScoreCategory{ScoreAccessibility, ScoreSEO},
		Types: []model.IssueType{model.IssueImgMissingAlt, model.IssueImgMissingAltSummary}}, run: checkImageAlt},
	{check: Check{ID: "img_dimensions", Categories: []ScoreCategory{ScorePerformance, ScoreBestPractices},
		Types: []model.IssueType{model.IssueImgMissingDimensions}}, run: checkImageDimensions},
	{check: Check{ID: "heading_skip", Categories: []ScoreCategory{ScoreAccessibility},
		Types: []model.IssueType{model.IssueHeadingSkip}}, run: checkHeadingHierarchy},
	{check: Check{ID: "canonical", Categories: []ScoreCategory{ScoreSEO},
		Types: []model.IssueType{model.IssueCanonicalMissing}}, run: checkCanonical},
	{check: Check{ID: "open_graph", Categories: []ScoreCategory{ScoreSEO, ScoreBestPractices},
		Types: []model.IssueType{model.IssueOGMissing}}, run: checkOpenGraph},
	{check: Check{ID: "lang", Categories: []ScoreCategory{ScoreAccessibility},
		Types: []model.IssueType{model.IssueLangMissing}}, run: checkLang},
	{check: Check{ID: "viewport", Categories: []ScoreCategory{ScoreAccessibility, ScoreSEO},
		Types: []model.IssueType{model.IssueViewportMissing}}, run: checkViewport},
	{check: Check{ID: "font_display", Categories: []ScoreCategory{ScorePerformance},
		Types: []model.IssueType{model.IssueFontNoSwap}}, run: checkFontDisplay},
	{check: Check{ID: "render_blocking_js", Categories: []ScoreCategory{ScorePerformance, ScoreBestPractices},
		Types: []model.IssueType{model.IssueRenderBlockingJS}}, run: checkRenderBlockingJS},
	{check: Check{ID: "render_blocking_css", Categories: []ScoreCategory{ScorePerformance},
		Types: []model.IssueType{model.IssueRenderBlockingCSS}}, run: checkRenderBlockingCSS},
}

func issue(t model.IssueType, sev model.Severity, cat model.Category, msg, element string) model.Issue {
	return model.Issue{Type: t, Severity: sev, Category: cat, Message: msg, Element: element}
}

// getAttr safely retrieves an attribute value from a goquery selection.
func getAttr(sel *goquery.Selection, name string) string {
	val, _ := sel.Attr(name)
	return val
}

func textOf(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

func checkH1(_ Config, doc *goquery.Document) []model.Issue {
	h1s := doc.Find("h1")
	var out []model.Issue
	switch n := h1s.Length(); {
	case n == 0:
		return []model.Issue{issue(model.IssueH1Missing, model.SeverityCritical, model.CategoryHeadings, "Missing H1 tag", "")}
	case n > 1:
		texts := make([]string, 0, n)
		h1s.Each(func(_ int, h *goquery.Selection) {
			texts = append(texts, utils.Truncate(textOf(h), 60))
		})
		out = append(out, issue(model.IssueH1Multiple, model.SeverityHigh, model.CategoryHeadings,
			fmt.Sprintf("Multiple H1 tags (%d found)", n), strings.Join(texts, " | ")))
	}
	h1s.Each(func(_ int, h *goquery.Selection) {
		if textOf(h) != "" {
			return
		}
		outer, _ := goquery.OuterHtml(h)
		out = append(out, issue(model.IssueH1Empty, model.SeverityHigh, model.CategoryHeadings, "Empty H1 tag", utils.Truncate(outer, 100)))
	})
	return out
}

// findTitle returns the document title element, ignoring inline SVG titles.
func findTitle(doc *goquery.Document) *goquery.Selection {
	if t := doc.Find("head title").First(); t.Length() > 0 {
		return t
	}
	return doc.Find("title").Not("svg title").First()
}

// PageTitle returns the trimmed document title, or "".
func PageTitle(doc *goquery.Document) string {
	return textOf(findTitle(doc))
}

func checkTitle(cfg Config, doc *goquery.Document) []model.Issue {
	el := findTitle(doc)
	if el.Length() == 0 {
		return []model.Issue{issue(model.IssueTitleMissing, model.SeverityCritical, model.CategoryMeta, "Missing title tag", "")}
	}
	title := textOf(el)
	n := utf8.RuneCountInString(title)
	rng := fmt.Sprintf("recommended %d-%d", cfg.TitleMin, cfg.TitleMax)
	switch {
	case title == "":
		return []model.Issue{issue(model.IssueTitleEmpty, model.SeverityCritical, model.CategoryMeta, "Empty title tag", "")}
	case n < cfg.TitleMin:
		return []model.Issue{issue(model.IssueTitleTooShort, model.SeverityMedium, model.CategoryMeta,
			fmt.Sprintf("Title too short (%d chars, %s)", n, rng), title)}
	case n > cfg.TitleMax:
		return []model.Issue{issue(model.IssueTitleTooLong, model.SeverityMedium, model.CategoryMeta,
			fmt.Sprintf("Title too long (%d chars, %s)", n, rng), utils.Truncate(title, 80)+"...")}
	}
	return nil
}

func checkMetaDescription(cfg Config, doc *goquery.Document) []model.Issue {
	meta := doc.Find(`meta[name="description"]`).First()
	if meta.Length() == 0 {
		return []model.Issue{issue(model.IssueMetaDescMissing, model.SeverityHigh, model.CategoryMeta, "Missing meta description", "")}
	}
	desc := strings.TrimSpace(getAttr(meta, "content"))
	n := utf8.RuneCountInString(desc)
	rng := fmt.Sprintf("recommended %d-%d", cfg.DescMin, cfg.DescMax)
	switch {
	case desc == "":
		return []model.Issue{issue(model.IssueMetaDescEmpty, model.SeverityHigh, model.CategoryMeta, "Empty meta description", "")}
	case n < cfg.DescMin:
		return []model.Issue{issue(model.IssueMetaDescTooShort, model.SeverityMedium, model.CategoryMeta,
			fmt.Sprintf("Meta description too short (%d chars, %s)", n, rng), desc)}
	case n > cfg.DescMax:
		return []model.Issue{issue(model.IssueMetaDescTooLong, model.SeverityMedium, model.CategoryMeta,
			fmt.Sprintf("Meta description too long (%d chars, %s)", n, rng), utils.Truncate(desc, 100)+"...")}
	}
	return nil
}

func imageSource(img *goquery.Selection) string {
	src := getAttr(img, "src")
	if src == "" {
		src = getAttr(img, "data-src")
	}
	return utils.Truncate(src, 100)
}

func checkImageAlt(cfg Config, doc *goquery.Document) []model.Issue {
	var out []model.Issue
	missing := 0
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if _, ok := img.Attr("alt"); ok {
			return
		}
		missing++
		if missing <= cfg.MaxAltIssues {
			out = append(out, issue(model.IssueImgMissingAlt, model.SeverityHigh, model.CategoryImages, "Image missing alt attribute", imageSource(img)))
		}
	})
	if missing > cfg.MaxAltIssues {
		out = append(out, issue(model.IssueImgMissingAltSummary, model.SeverityHigh, model.CategoryImages,
			fmt.Sprintf("%d images missing alt text (showing first %d)", missing, cfg.MaxAltIssues), ""))
	}
	return out
}

// missingDimensions reports an image with neither width nor height set.
func missingDimensions(img *goquery.Selection) bool {
	return getAttr(img, "width") == "" && getAttr(img, "height") == ""
}

func checkImageDimensions(_ Config, doc *goquery.Document) []model.Issue {
	n := doc.Find("img").FilterFunction(func(_ int, img *goquery.Selection) bool {
		return missingDimensions(img)
	}).Length()
	if n == 0 {
		return nil
	}
	return []model.Issue{issue(model.IssueImgMissingDimensions, model.SeverityMedium, model.CategoryImages,
		fmt.Sprintf("%d images missing width/height attributes (CLS risk)", n), "")}
}

const headingSelector = "h1, h2, h3, h4, h5, h6"

func headingLevel(h *goquery.Selection) int {
	name := goquery.NodeName(h)
	if len(name) != 2 || name[0] != 'h' {
		return 0
	}
	lvl, err := strconv.Atoi(name[1:])
	if err != nil {
		return 0
	}
	return lvl
}

func checkHeadingHierarchy(_ Config, doc *goquery.Document) []model.Issue {
	var out []model.Issue
	prev := 0
	doc.Find(headingSelector).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		lvl := headingLevel(h)
		if prev > 0 && lvl > prev+1 {
			out = append(out, issue(model.IssueHeadingSkip, model.SeverityMedium, model.CategoryHeadings,
				fmt.Sprintf("Heading hierarchy skips from H%d to H%d", prev, lvl), utils.Truncate(textOf(h), 60)))
			return false
		}
		prev = lvl
		return true
	})
	return out
}

func checkCanonical(_ Config, doc *goquery.Document) []model.Issue {
	if doc.Find(`link[rel="canonical"]`).Length() > 0 {
		return nil
	}
	return []model.Issue{issue(model.IssueCanonicalMissing, model.SeverityMedium, model.CategorySEO, "Missing canonical tag", "")}
}

var openGraphTags = []string{"og:title", "og:description", "og:image"}

func checkOpenGraph(_ Config, doc *goquery.Document) []model.Issue {
	var missing []string
	for _, tag := range openGraphTags {
		if doc.Find(`meta[property="`+tag+`"]`).Length() == 0 {
			missing = append(missing, tag)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []model.Issue{issue(model.IssueOGMissing, model.SeverityLow, model.CategorySEO,
		"Missing Open Graph tags: "+strings.Join(missing, ", "), "")}
}

func checkLang(_ Config, doc *goquery.Document) []model.Issue {
	root := doc.Find("html").First()
	if root.Length() == 0 || strings.TrimSpace(getAttr(root, "lang")) != "" {
		return nil
	}
	return []model.Issue{issue(model.IssueLangMissing, model.SeverityMedium, model.CategoryAccessibility, "Missing lang attribute on <html>", "")}
}

func checkViewport(_ Config, doc *goquery.Document) []model.Issue {
	if doc.Find(`meta[name="viewport"]`).Length() > 0 {
		return nil
	}
	return []model.Issue{issue(model.IssueViewportMissing, model.SeverityHigh, model.CategoryAccessibility, "Missing viewport meta tag", "")}
}

func checkFontDisplay(_ Config, doc *goquery.Document) []model.Issue {
	var out []model.Issue
	doc.Find(`link[href*="fonts.googleapis.com"]`).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href := getAttr(link, "href")
		if strings.Contains(href, "display=swap") || strings.Contains(href, "display=optional") {
			return true
		}
		out = append(out, issue(model.IssueFontNoSwap, model.SeverityMedium, model.CategoryPerformance,
			"Google Font loaded without display=swap", utils.Truncate(href, 100)))
		return false
	})
	return out
}

func checkRenderBlockingJS(_ Config, doc *goquery.Document) []model.Issue {
	n := doc.Find("head script[src]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		_, async := s.Attr("async")
		_, deferred := s.Attr("defer")
		return !async && !deferred && !strings.Contains(strings.ToLower(getAttr(s, "type")), "module")
	}).Length()
	if n == 0 {
		return nil
	}
	plural := ""
	if n > 1 {
		plural = "s"
	}
	return []model.Issue{issue(model.IssueRenderBlockingJS, model.SeverityMedium, model.CategoryPerformance,
		fmt.Sprintf("%d render-blocking JavaScript file%s in <head>", n, plural), "")}
}

func checkRenderBlockingCSS(cfg Config, doc *goquery.Document) []model.Issue {
	n := doc.Find(`head link[rel="stylesheet"]`).FilterFunction(func(_ int, s *goquery.Selection) bool {
		media := strings.TrimSpace(strings.ToLower(getAttr(s, "media")))
		return media == "" || media == "all"
	}).Length()
	if n <= cfg.BlockingCSSThreshold {
		return nil
	}
	return []model.Issue{issue(model.IssueRenderBlockingCSS, model.SeverityMedium, model.CategoryPerformance,
		fmt.Sprintf("%d render-blocking CSS files in <head>", n), "")}
}
