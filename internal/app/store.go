package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/raysh454/sitepulse/internal/indexer"
	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/registry"
	"github.com/raysh454/sitepulse/internal/tracker"
)

var (
	ErrNilSnapshot      = errors.New("snapshot is nil")
	ErrSnapshotNotFound = tracker.ErrSnapshotNotFound
	ErrSiteURLConflict  = errors.New("site url belongs to another site")
)

//go:generate mockgen -source=store.go -destination=store_mock_test.go -package=app

// SnapshotStore persists completed audits keyed by site id.
type SnapshotStore interface {
	// Save stores snap as the latest audit of siteID. An unknown site is
	// created from the snapshot's URL and name; an empty siteID looks the
	// site up by URL. An unknown siteID whose URL is already registered under
	// another id fails with ErrSiteURLConflict.
	Save(ctx context.Context, siteID string, snap *model.AuditSnapshot) error

	// Load returns the latest audit of a site.
	Load(ctx context.Context, siteID string) (*model.AuditSnapshot, error)

	// List returns every known site, most recently audited first.
	List(ctx context.Context) ([]model.SiteSummary, error)

	// Delete removes a site and its history.
	Delete(ctx context.Context, siteID string) error
}

// SiteStore implements SnapshotStore on the site registry and the
// versioned snapshot tracker. Index, when set, keeps the page inventory.
type SiteStore struct {
	Registry *registry.Registry
	Tracker  tracker.Tracker
	Index    indexer.PageIndex

	db     *sql.DB
	logger logging.Logger
}

var _ SnapshotStore = (*SiteStore)(nil)

// NewSiteStore wraps an existing registry and tracker.
func NewSiteStore(reg *registry.Registry, tr tracker.Tracker, logger logging.Logger) *SiteStore {
	if logger == nil {
		logger = logging.Nop()
	}
	return &SiteStore{
		Registry: reg,
		Tracker:  tr,
		logger:   logger.With(logging.Field{Key: "component", Value: "site-store"}),
	}
}

// OpenSiteStore opens sites.db and the history tracker under the configured
// storage root, creating directories as needed.
func OpenSiteStore(cfg *Config, logger logging.Logger) (*SiteStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	root, err := cfg.StorageDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(root, "sites.db"))
	if err != nil {
		return nil, fmt.Errorf("open sites db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		logger.Warn("failed to apply sqlite pragmas", logging.Field{Key: "error", Value: err.Error()})
	}

	reg, err := registry.NewRegistry(db, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("new registry: %w", err)
	}
	ix, err := indexer.NewIndex(db, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("new page index: %w", err)
	}

	trCfg := cfg.Tracker
	if trCfg.StoragePath == "" {
		trCfg.StoragePath = filepath.Join(root, "history")
	}
	tr, err := tracker.NewSQLiteTracker(trCfg, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("new tracker: %w", err)
	}

	s := NewSiteStore(reg, tr, logger)
	s.Index = ix
	s.db = db
	return s, nil
}

// resolveSite finds or registers the site a snapshot belongs to.
func (s *SiteStore) resolveSite(ctx context.Context, siteID string, snap *model.AuditSnapshot) (*registry.Site, error) {
	if siteID != "" {
		site, err := s.Registry.GetSite(ctx, siteID)
		if err == nil {
			return site, nil
		}
		if !errors.Is(err, registry.ErrSiteNotFound) {
			return nil, err
		}
	}
	site, err := s.Registry.CreateSite(ctx, siteID, snap.SiteName, snap.TargetURL, snap.CrawlDepth)
	if errors.Is(err, registry.ErrSiteExists) {
		if siteID != "" && site.ID != siteID {
			return nil, fmt.Errorf("%w: %s is registered as %s", ErrSiteURLConflict, site.URL, site.ID)
		}
		return site, nil
	}
	return site, err
}

func (s *SiteStore) Save(ctx context.Context, siteID string, snap *model.AuditSnapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	site, err := s.resolveSite(ctx, siteID, snap)
	if err != nil {
		return fmt.Errorf("resolve site: %w", err)
	}

	v, err := s.Tracker.Commit(ctx, site.ID, snap)
	if err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	// The snapshot is committed; the rows below are derived from it and a
	// failure only leaves them stale.
	if err := s.Registry.UpdateSite(ctx, site.ID, "", snap.CrawlDepth); err != nil {
		s.logger.Warn("site update failed",
			logging.Field{Key: "site_id", Value: site.ID},
			logging.Field{Key: "error", Value: err.Error()})
	}
	if err := s.Registry.RecordAudit(ctx, site.ID, v.Timestamp, snap.HealthScore); err != nil {
		s.logger.Warn("recording last audit failed",
			logging.Field{Key: "site_id", Value: site.ID},
			logging.Field{Key: "error", Value: err.Error()})
	}
	if s.Index != nil {
		fresh, err := s.Index.RecordAudit(ctx, site.ID, v.ID, snap.Pages, v.Timestamp)
		if err != nil {
			s.logger.Warn("page index update failed",
				logging.Field{Key: "site_id", Value: site.ID},
				logging.Field{Key: "error", Value: err.Error()})
		} else if len(fresh) > 0 {
			s.logger.Info("new pages indexed",
				logging.Field{Key: "site_id", Value: site.ID},
				logging.Field{Key: "count", Value: len(fresh)})
		}
	}

	s.logger.Info("snapshot saved",
		logging.Field{Key: "site_id", Value: site.ID},
		logging.Field{Key: "version_id", Value: v.ID},
		logging.Field{Key: "health", Value: snap.HealthScore})
	return nil
}

func (s *SiteStore) Load(ctx context.Context, siteID string) (*model.AuditSnapshot, error) {
	if _, err := s.Registry.GetSite(ctx, siteID); err != nil {
		return nil, err
	}
	return s.Tracker.Latest(ctx, siteID)
}

func (s *SiteStore) List(ctx context.Context) ([]model.SiteSummary, error) {
	sites, err := s.Registry.ListSites(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.SiteSummary, 0, len(sites))
	for i := range sites {
		out = append(out, sites[i].Summary())
	}
	return out, nil
}

func (s *SiteStore) Delete(ctx context.Context, siteID string) error {
	if err := s.Registry.DeleteSite(ctx, siteID); err != nil {
		return err
	}
	if err := s.Tracker.DeleteSite(ctx, siteID); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if s.Index != nil {
		if err := s.Index.DeleteSite(ctx, siteID); err != nil {
			return fmt.Errorf("delete page index: %w", err)
		}
	}
	s.logger.Info("site deleted", logging.Field{Key: "site_id", Value: siteID})
	return nil
}

// Site returns the registry row of a site.
func (s *SiteStore) Site(ctx context.Context, siteID string) (*registry.Site, error) {
	return s.Registry.GetSite(ctx, siteID)
}

// History lists stored audits of a site, newest first.
func (s *SiteStore) History(ctx context.Context, siteID string, limit int) ([]*tracker.Version, error) {
	if _, err := s.Registry.GetSite(ctx, siteID); err != nil {
		return nil, err
	}
	return s.Tracker.List(ctx, siteID, limit)
}

// Pages lists the page inventory of a site. An empty status lists all pages.
func (s *SiteStore) Pages(ctx context.Context, siteID, status string, limit int) ([]indexer.Page, error) {
	if _, err := s.Registry.GetSite(ctx, siteID); err != nil {
		return nil, err
	}
	if s.Index == nil {
		return []indexer.Page{}, nil
	}
	return s.Index.ListPages(ctx, siteID, status, limit)
}

// Version loads one stored audit of a site.
func (s *SiteStore) Version(ctx context.Context, versionID string) (*model.AuditSnapshot, error) {
	return s.Tracker.Get(ctx, versionID)
}

// Diff compares two audits of a site. An empty headID uses the latest audit
// and an empty baseID the one before head. A headID of another site fails
// with tracker.ErrSiteMismatch.
func (s *SiteStore) Diff(ctx context.Context, siteID, baseID, headID string) (*tracker.DiffResult, error) {
	if headID != "" {
		if _, err := s.Registry.GetSite(ctx, siteID); err != nil {
			return nil, err
		}
		head, err := s.Tracker.Version(ctx, headID)
		if err != nil {
			return nil, err
		}
		if head.SiteID != siteID {
			return nil, fmt.Errorf("%w: version %s is not an audit of site %s", tracker.ErrSiteMismatch, headID, siteID)
		}
	} else {
		versions, err := s.History(ctx, siteID, 1)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, ErrSnapshotNotFound
		}
		headID = versions[0].ID
	}
	return s.Tracker.Diff(ctx, baseID, headID)
}

// Close releases the tracker and the registry database.
func (s *SiteStore) Close() error {
	var firstErr error
	if s.Tracker != nil {
		if err := s.Tracker.Close(); err != nil {
			firstErr = fmt.Errorf("close tracker: %w", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close sites db: %w", err)
		}
	}
	return firstErr
}
