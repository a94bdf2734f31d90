package registry

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/utils"
)

//go:embed schema.sql
var schemaFS embed.FS

var (
	ErrSiteNotFound = errors.New("site not found")
	ErrSiteExists   = errors.New("site already exists")
)

// Site is a registered website.
type Site struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	CrawlDepth  int    `json:"crawl_depth"`
	CreatedAt   int64  `json:"created_at"`
	LastAuditAt int64  `json:"last_audit_at,omitempty"`
	HealthScore *int   `json:"health_score,omitempty"`
}

// Summary converts the row into the list view used by callers.
func (s *Site) Summary() model.SiteSummary {
	out := model.SiteSummary{
		ID:          s.ID,
		Name:        s.Name,
		URL:         s.URL,
		CrawlDepth:  s.CrawlDepth,
		HealthScore: s.HealthScore,
	}
	if s.LastAuditAt > 0 {
		ts := time.Unix(s.LastAuditAt, 0).UTC()
		out.LastAudit = &ts
	}
	return out
}

// Registry stores site metadata in SQLite.
type Registry struct {
	db     *sql.DB
	logger logging.Logger
}

// NewRegistry runs the embedded migrations and returns a Registry.
func NewRegistry(db *sql.DB, logger logging.Logger) (*Registry, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Registry{db: db, logger: logger.With(logging.Field{Key: "component", Value: "registry"})}, nil
}

// defaultName derives a display name from a canonical URL.
func defaultName(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil || u.Hostname() == "" {
		return canonical
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// CreateSite registers a site. The URL is canonicalized and must be unique.
// An empty id gets a fresh uuid; an empty name falls back to the hostname.
func (r *Registry) CreateSite(ctx context.Context, id, name, rawURL string, crawlDepth int) (*Site, error) {
	canonical, err := utils.CanonicalSiteURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid site url: %w", err)
	}
	if existing, err := r.GetSiteByURL(ctx, canonical); err == nil {
		return existing, fmt.Errorf("%w: %s", ErrSiteExists, canonical)
	} else if !errors.Is(err, ErrSiteNotFound) {
		return nil, err
	}

	if id == "" {
		id = uuid.New().String()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultName(canonical)
	}
	now := time.Now().Unix()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sites (id, name, url, crawl_depth, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, canonical, crawlDepth, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert site: %w", err)
	}
	r.logger.Info("site created", logging.Field{Key: "site_id", Value: id}, logging.Field{Key: "url", Value: canonical})

	return &Site{ID: id, Name: name, URL: canonical, CrawlDepth: crawlDepth, CreatedAt: now}, nil
}

const siteColumns = `id, name, url, crawl_depth, created_at, last_audit_at, health_score`

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(row scanner) (*Site, error) {
	var s Site
	var lastAudit, health sql.NullInt64
	if err := row.Scan(&s.ID, &s.Name, &s.URL, &s.CrawlDepth, &s.CreatedAt, &lastAudit, &health); err != nil {
		return nil, err
	}
	if lastAudit.Valid {
		s.LastAuditAt = lastAudit.Int64
	}
	if health.Valid {
		h := int(health.Int64)
		s.HealthScore = &h
	}
	return &s, nil
}

// GetSite returns a site by id.
func (r *Registry) GetSite(ctx context.Context, id string) (*Site, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = ? LIMIT 1`, id)
	s, err := scanSite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSiteNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetSiteByURL returns a site by its URL in any spelling CanonicalSiteURL accepts.
func (r *Registry) GetSiteByURL(ctx context.Context, rawURL string) (*Site, error) {
	canonical, err := utils.CanonicalSiteURL(rawURL)
	if err != nil {
		return nil, ErrSiteNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE url = ? LIMIT 1`, canonical)
	s, err := scanSite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSiteNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListSites returns every site, most recently audited first.
func (r *Registry) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+siteColumns+` FROM sites ORDER BY COALESCE(last_audit_at, created_at) DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Site{}
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// UpdateSite changes the name and crawl depth of a site. Zero values keep
// the stored ones.
func (r *Registry) UpdateSite(ctx context.Context, id, name string, crawlDepth int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sites
		SET name = COALESCE(NULLIF(?, ''), name),
		    crawl_depth = CASE WHEN ? > 0 THEN ? ELSE crawl_depth END
		WHERE id = ?`,
		strings.TrimSpace(name), crawlDepth, crawlDepth, id)
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	return requireRow(res)
}

// RecordAudit stores the time and health score of the latest audit.
func (r *Registry) RecordAudit(ctx context.Context, id string, ts time.Time, healthScore int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sites SET last_audit_at = ?, health_score = ? WHERE id = ?`,
		ts.Unix(), healthScore, id)
	if err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return requireRow(res)
}

// DeleteSite removes a site row.
func (r *Registry) DeleteSite(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete site: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSiteNotFound
	}
	return nil
}
