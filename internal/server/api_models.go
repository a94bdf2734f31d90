package server

import (
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/pagespeed"
)

// StartAuditRequest is the payload of POST /audits.
type StartAuditRequest struct {
	URL           string             `json:"url" example:"https://example.com"`
	SiteID        string             `json:"siteId,omitempty" example:"3f1c2a9e-8d7b-4c1e-9a0f-2b6d5e4c3a21"`
	CrawlDepth    int                `json:"crawlDepth,omitempty" example:"10"`
	SkipPageSpeed bool               `json:"skipPageSpeed,omitempty" example:"false"`
	Strategy      pagespeed.Strategy `json:"strategy,omitempty" example:"mobile"`
}

// SiteDetailResponse is a stored site with its latest audit, if any.
type SiteDetailResponse struct {
	Site   model.SiteSummary    `json:"site"`
	Latest *model.AuditSnapshot `json:"latest,omitempty"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"not found"`
}
