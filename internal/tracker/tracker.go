package tracker

import (
	"context"
	"errors"

	"github.com/raysh454/sitepulse/internal/model"
)

var (
	ErrVersionNotFound  = errors.New("version not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrSiteMismatch     = errors.New("versions belong to different sites")
)

// Tracker keeps the audit history of every site.
// Implementations must be safe for concurrent use.
type Tracker interface {
	// Commit stores a completed snapshot as the new head of siteID.
	Commit(ctx context.Context, siteID string, snap *model.AuditSnapshot) (*Version, error)

	// Get loads the snapshot stored in a version.
	Get(ctx context.Context, versionID string) (*model.AuditSnapshot, error)

	// Version returns the metadata of one version, or ErrVersionNotFound.
	Version(ctx context.Context, versionID string) (*Version, error)

	// Latest loads the most recent snapshot of a site, or ErrSnapshotNotFound.
	Latest(ctx context.Context, siteID string) (*model.AuditSnapshot, error)

	// List returns versions of a site, newest first. limit <= 0 means 10.
	List(ctx context.Context, siteID string, limit int) ([]*Version, error)

	// Diff compares two versions. An empty baseID uses the head's parent.
	Diff(ctx context.Context, baseID, headID string) (*DiffResult, error)

	// DeleteSite drops every version of a site.
	DeleteSite(ctx context.Context, siteID string) error

	Close() error
}
