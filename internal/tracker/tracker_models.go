package tracker

import (
	"time"

	"github.com/raysh454/sitepulse/internal/score"
)

// Version is one stored audit of a site.
type Version struct {
	ID          string    `json:"id"`
	SiteID      string    `json:"site_id"`
	Parent      string    `json:"parent,omitempty"`
	BlobID      string    `json:"blob_id,omitempty"`
	HealthScore int       `json:"health_score"`
	PageCount   int       `json:"page_count"`
	IssueCount  int       `json:"issue_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// DiffChunk is a run of report lines that changed between two versions.
type DiffChunk struct {
	Type    string `json:"type"` // "added" | "removed"
	Content string `json:"content"`
}

// DiffResult compares two versions of the same site.
type DiffResult struct {
	BaseID string            `json:"base_id,omitempty"`
	HeadID string            `json:"head_id"`
	Chunks []DiffChunk       `json:"chunks"`
	Score  *score.ScoreDelta `json:"score"`
}
