package pagespeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/utils"
	"github.com/raysh454/sitepulse/internal/webclient"
)

// ErrAPI is returned when the PageSpeed API answers with a non-2xx status.
var ErrAPI = errors.New("pagespeed api error")

// opportunityAudits are the Lighthouse audits reported as optimization hints.
var opportunityAudits = []string{
	"render-blocking-resources",
	"uses-responsive-images",
	"offscreen-images",
	"unminified-css",
	"unminified-javascript",
	"unused-css-rules",
	"unused-javascript",
	"uses-optimized-images",
	"modern-image-formats",
	"uses-text-compression",
	"uses-rel-preconnect",
	"server-response-time",
	"redirects",
	"uses-http2",
	"efficient-animated-content",
	"duplicated-javascript",
	"legacy-javascript",
	"total-byte-weight",
	"dom-size",
	"font-display",
}

var markdownLinkRe = regexp.MustCompile(`\[.*?\]\(.*?\)`)

// Client queries the PageSpeed Insights v5 API.
type Client struct {
	cfg    Config
	wc     webclient.WebClient
	logger logging.Logger
}

func NewClient(cfg Config, wc webclient.WebClient, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{
		cfg:    cfg.withDefaults(),
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "pagespeed"}),
	}
}

// Run analyzes target. An empty strategy uses the configured one.
func (c *Client) Run(ctx context.Context, target string, strategy Strategy) (*model.ExternalReport, error) {
	if strategy == "" {
		strategy = c.cfg.Strategy
	}
	q := url.Values{}
	q.Set("url", target)
	q.Set("strategy", string(strategy))
	for _, cat := range []string{"PERFORMANCE", "ACCESSIBILITY", "SEO", "BEST_PRACTICES"} {
		q.Add("category", cat)
	}
	if c.cfg.APIKey != "" {
		q.Set("key", c.cfg.APIKey)
	}

	resp, err := c.wc.Do(ctx, &webclient.Request{
		Method:  http.MethodGet,
		URL:     c.cfg.Endpoint + "?" + q.Encode(),
		Headers: http.Header{"Accept": []string{"application/json"}},
		Timeout: c.cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("pagespeed request: %w", err)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %d", ErrAPI, resp.StatusCode)
	}

	var body psiResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode pagespeed response: %w", err)
	}
	report := body.report(strategy)

	c.logger.Info("pagespeed report",
		logging.Field{Key: "url", Value: target},
		logging.Field{Key: "strategy", Value: string(strategy)},
		logging.Field{Key: "performance", Value: report.Scores.Performance},
		logging.Field{Key: "opportunities", Value: len(report.Opportunities)})
	return report, nil
}

type psiResponse struct {
	LoadingExperience struct {
		Metrics map[string]psiFieldMetric `json:"metrics"`
	} `json:"loadingExperience"`
	LighthouseResult struct {
		Categories map[string]struct {
			Score *float64 `json:"score"`
		} `json:"categories"`
		Audits map[string]psiAudit `json:"audits"`
	} `json:"lighthouseResult"`
}

type psiFieldMetric struct {
	Percentile float64 `json:"percentile"`
	Category   string  `json:"category"`
}

type psiAudit struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	DisplayValue string   `json:"displayValue"`
	Score        *float64 `json:"score"`
	NumericValue float64  `json:"numericValue"`
}

func (r *psiResponse) report(strategy Strategy) *model.ExternalReport {
	lr := r.LighthouseResult
	return &model.ExternalReport{
		Strategy: string(strategy),
		Scores: model.CategoryScores{
			Performance:   r.categoryScore("performance"),
			Accessibility: r.categoryScore("accessibility"),
			SEO:           r.categoryScore("seo"),
			BestPractices: r.categoryScore("best-practices"),
		},
		CoreWebVitals: model.CoreWebVitals{
			LCP: vital(r.LoadingExperience.Metrics, "LARGEST_CONTENTFUL_PAINT_MS", lr.Audits, "largest-contentful-paint"),
			INP: vital(r.LoadingExperience.Metrics, "INTERACTION_TO_NEXT_PAINT", lr.Audits, "interaction-to-next-paint"),
			CLS: vital(r.LoadingExperience.Metrics, "CUMULATIVE_LAYOUT_SHIFT_SCORE", lr.Audits, "cumulative-layout-shift"),
		},
		Opportunities: opportunities(lr.Audits),
	}
}

func (r *psiResponse) categoryScore(key string) int {
	cat, ok := r.LighthouseResult.Categories[key]
	if !ok || cat.Score == nil {
		return 0
	}
	return int(math.Round(*cat.Score * 100))
}

// vital prefers real-user field data and falls back to the lab audit.
func vital(field map[string]psiFieldMetric, fieldKey string, audits map[string]psiAudit, auditKey string) model.Metric {
	if m, ok := field[fieldKey]; ok {
		cat := strings.ToLower(m.Category)
		if cat == "" {
			cat = "unknown"
		}
		return model.Metric{Value: m.Percentile, Category: cat}
	}
	if a, ok := audits[auditKey]; ok {
		return model.Metric{Value: a.NumericValue, Category: labCategory(a.Score)}
	}
	return model.Metric{Category: "unknown"}
}

func labCategory(score *float64) string {
	s := 0.0
	if score != nil {
		s = *score
	}
	switch {
	case s >= 0.9:
		return "good"
	case s >= 0.5:
		return "needs-improvement"
	default:
		return "poor"
	}
}

// opportunities lists failing hint audits, worst score first.
func opportunities(audits map[string]psiAudit) []model.Opportunity {
	out := []model.Opportunity{}
	for _, id := range opportunityAudits {
		a, ok := audits[id]
		if !ok || a.Score == nil || *a.Score >= 0.9 {
			continue
		}
		out = append(out, model.Opportunity{
			ID:          id,
			Title:       a.Title,
			Savings:     a.DisplayValue,
			Description: utils.Truncate(markdownLinkRe.ReplaceAllString(a.Description, ""), 200),
			Score:       *a.Score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}
