package model

// Severity ranks how much an issue hurts the page.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// Category groups issues for display.
type Category string

const (
	CategoryMeta          Category = "meta"
	CategoryHeadings      Category = "headings"
	CategoryImages        Category = "images"
	CategoryLinks         Category = "links"
	CategoryPerformance   Category = "performance"
	CategoryAccessibility Category = "accessibility"
	CategorySEO           Category = "seo"
)

// IssueType names the check that produced an issue.
type IssueType string

const (
	IssueH1Missing            IssueType = "h1_missing"
	IssueH1Multiple           IssueType = "h1_multiple"
	IssueH1Empty              IssueType = "h1_empty"
	IssueTitleMissing         IssueType = "title_missing"
	IssueTitleEmpty           IssueType = "title_empty"
	IssueTitleTooShort        IssueType = "title_too_short"
	IssueTitleTooLong         IssueType = "title_too_long"
	IssueMetaDescMissing      IssueType = "meta_desc_missing"
	IssueMetaDescEmpty        IssueType = "meta_desc_empty"
	IssueMetaDescTooShort     IssueType = "meta_desc_too_short"
	IssueMetaDescTooLong      IssueType = "meta_desc_too_long"
	IssueImgMissingAlt        IssueType = "img_missing_alt"
	IssueImgMissingAltSummary IssueType = "img_missing_alt_summary"
	IssueImgMissingDimensions IssueType = "img_missing_dimensions"
	IssueHeadingSkip          IssueType = "heading_skip"
	IssueCanonicalMissing     IssueType = "canonical_missing"
	IssueOGMissing            IssueType = "og_missing"
	IssueLangMissing          IssueType = "lang_missing"
	IssueViewportMissing      IssueType = "viewport_missing"
	IssueFontNoSwap           IssueType = "font_no_swap"
	IssueRenderBlockingJS     IssueType = "render_blocking_js"
	IssueRenderBlockingCSS    IssueType = "render_blocking_css"
)

// Issue is a single rule violation found on a page.
type Issue struct {
	Type     IssueType `json:"type"`
	Severity Severity  `json:"severity"`
	Category Category  `json:"category"`
	Message  string    `json:"message"`
	Element  string    `json:"element,omitempty"`
}
