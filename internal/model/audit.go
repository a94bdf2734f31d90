package model

import "time"

// PageStats are the counters collected while auditing a page.
type PageStats struct {
	H1Count              int `json:"h1Count"`
	ImgCount             int `json:"imgCount"`
	ImgMissingAlt        int `json:"imgMissingAlt"`
	ImgEmptyAlt          int `json:"imgEmptyAlt"`
	ImgMissingDimensions int `json:"imgMissingDimensions"`
	LinkCount            int `json:"linkCount"`
	InternalLinks        int `json:"internalLinks"`
	ExternalLinks        int `json:"externalLinks"`
	WordCount            int `json:"wordCount"`
	HeadingCount         int `json:"headingCount"`
}

// PageAuditRecord is the audit result for one page. Failed audits carry Error
// and have no issues or links.
type PageAuditRecord struct {
	URL            string    `json:"url"`
	HTTPStatus     int       `json:"httpStatus,omitempty"`
	Title          string    `json:"title"`
	Issues         []Issue   `json:"issues"`
	ExtractedLinks []string  `json:"extractedLinks"`
	Stats          PageStats `json:"stats"`
	FetchTimingMs  int64     `json:"fetchTimingMs"`
	Error          string    `json:"error,omitempty"`
}

// Failed reports whether the record is a failure sentinel.
func (r PageAuditRecord) Failed() bool { return r.Error != "" }

// PageFailure describes why a page could not be audited.
type PageFailure struct {
	URL           string `json:"url"`
	Reason        string `json:"reason"`
	HTTPStatus    int    `json:"httpStatus,omitempty"`
	FetchTimingMs int64  `json:"fetchTimingMs"`
}

// PageOutcome holds exactly one of Ok or Failed.
type PageOutcome struct {
	Ok     *PageAuditRecord
	Failed *PageFailure
}

// Record flattens the outcome into a PageAuditRecord. Failures become a record
// with Error set and empty issues and links.
func (o PageOutcome) Record() PageAuditRecord {
	switch {
	case o.Ok != nil:
		return *o.Ok
	case o.Failed != nil:
		return PageAuditRecord{
			URL:            o.Failed.URL,
			HTTPStatus:     o.Failed.HTTPStatus,
			Issues:         []Issue{},
			ExtractedLinks: []string{},
			FetchTimingMs:  o.Failed.FetchTimingMs,
			Error:          o.Failed.Reason,
		}
	default:
		return PageAuditRecord{Issues: []Issue{}, ExtractedLinks: []string{}, Error: "no outcome"}
	}
}

// LinkError classifies a failed link check.
type LinkError string

const (
	LinkErrorNone    LinkError = ""
	LinkErrorTimeout LinkError = "timeout"
	LinkErrorNetwork LinkError = "network"
	LinkErrorOther   LinkError = "other"
)

// LinkCheckResult is the liveness result for one unique link.
type LinkCheckResult struct {
	URL            string    `json:"url"`
	Status         int       `json:"status,omitempty"`
	OK             bool      `json:"ok"`
	RedirectTarget string    `json:"redirect,omitempty"`
	Error          LinkError `json:"error,omitempty"`
}

// Broken is the scoring notion of a dead link: not ok and not redirected.
func (l LinkCheckResult) Broken() bool {
	return !l.OK && l.RedirectTarget == ""
}

// DiscoveryResult is the set of pages found for a site.
type DiscoveryResult struct {
	SiteName   string   `json:"siteName"`
	BaseOrigin string   `json:"baseOrigin"`
	Pages      []string `json:"pages"`
	Error      string   `json:"error,omitempty"`
}

// CategoryScores are 0-100 scores per Lighthouse-style category.
type CategoryScores struct {
	Performance   int `json:"performance"`
	Accessibility int `json:"accessibility"`
	SEO           int `json:"seo"`
	BestPractices int `json:"bestPractices"`
}

// Average is the mean of the four scores.
func (c CategoryScores) Average() float64 {
	return float64(c.Performance+c.Accessibility+c.SEO+c.BestPractices) / 4
}

// Metric is one core web vital measurement.
type Metric struct {
	Value    float64 `json:"value"`
	Category string  `json:"category"`
}

// CoreWebVitals holds LCP (ms), INP (ms) and CLS.
type CoreWebVitals struct {
	LCP Metric `json:"lcp"`
	INP Metric `json:"inp"`
	CLS Metric `json:"cls"`
}

// Opportunity is an optimization hint from the external oracle.
type Opportunity struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Savings     string  `json:"savings,omitempty"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// ExternalReport is what the external performance oracle returns.
type ExternalReport struct {
	Strategy      string         `json:"strategy"`
	Scores        CategoryScores `json:"scores"`
	CoreWebVitals CoreWebVitals  `json:"coreWebVitals"`
	Opportunities []Opportunity  `json:"opportunities"`
}

// AuditSnapshot is the complete result of one audit run.
type AuditSnapshot struct {
	ID             string            `json:"id,omitempty"`
	TargetURL      string            `json:"targetUrl"`
	SiteName       string            `json:"siteName"`
	CrawlDepth     int               `json:"crawlDepth"`
	Pages          []PageAuditRecord `json:"pages"`
	Links          []LinkCheckResult `json:"links"`
	ExternalScores *CategoryScores   `json:"externalScores,omitempty"`
	CoreWebVitals  *CoreWebVitals    `json:"coreWebVitals,omitempty"`
	Opportunities  []Opportunity     `json:"opportunities,omitempty"`
	HealthScore    int               `json:"healthScore"`
	CategoryScores CategoryScores    `json:"categoryScores"`
	StartedAt      time.Time         `json:"startedAt"`
	CompletedAt    time.Time         `json:"completedAt"`
}

// SiteSummary is the list view of a stored site.
type SiteSummary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	CrawlDepth  int        `json:"crawlDepth"`
	HealthScore *int       `json:"healthScore,omitempty"`
	LastAudit   *time.Time `json:"lastAudit,omitempty"`
}
