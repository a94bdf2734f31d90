package indexer

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/utils"
)

//go:embed schema.sql
var schemaFS embed.FS

// Page states.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusMissing = "missing"
)

type PageIndex interface {
	RecordAudit(ctx context.Context, siteID, versionID string, pages []model.PageAuditRecord, at time.Time) ([]string, error)
	ListPages(ctx context.Context, siteID, status string, limit int) ([]Page, error)
	DeleteSite(ctx context.Context, siteID string) error
}

var _ PageIndex = (*Index)(nil)

// Index keeps the inventory of pages seen across the audits of each site.
type Index struct {
	db     *sql.DB
	logger logging.Logger
}

// Page is one inventory row. A page that an audit no longer reached is kept
// with StatusMissing.
type Page struct {
	ID            string `json:"id"`
	SiteID        string `json:"site_id"`
	RawURL        string `json:"raw_url"`
	CanonicalURL  string `json:"canonical_url"`
	Path          string `json:"path"`
	FirstSeenAt   int64  `json:"first_seen_at"`
	LastSeenAt    int64  `json:"last_seen_at"`
	LastVersionID string `json:"last_version_id,omitempty"`
	LastAuditedAt int64  `json:"last_audited_at,omitempty"`
	Status        string `json:"status"`
	HTTPStatus    int    `json:"http_status,omitempty"`
	IssueCount    int    `json:"issue_count"`
	LastError     string `json:"last_error,omitempty"`
}

func NewIndex(db *sql.DB, logger logging.Logger) (*Index, error) {
	if db == nil {
		return nil, errors.New("db is nil")
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
	return &Index{db: db, logger: logger.With(logging.Field{Key: "component", Value: "page-index"})}, nil
}

// canonicalize maps a page URL to its inventory key.
func canonicalize(raw string) (string, *url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, err
	}
	if u.Host == "" {
		return "", nil, fmt.Errorf("url %q has no host", raw)
	}
	return utils.NormalizePageURL(u), u, nil
}

// RecordAudit upserts every page of one audit under versionID and marks the
// site's other pages missing. Returns the canonical URLs seen for the first time.
func (ix *Index) RecordAudit(ctx context.Context, siteID, versionID string, pages []model.PageAuditRecord, at time.Time) ([]string, error) {
	now := at.Unix()

	// Single transaction for the batch to keep behavior consistent.
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	// If Commit() succeeds, Rollback() will return sql.ErrTxDone which we can ignore.
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			ix.logger.Warn("index: tx rollback failed", logging.Field{Key: "error", Value: rerr.Error()})
		}
	}()

	stmtInsert, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO pages
		(id, site_id, raw_url, canonical_url, path, first_seen_at, last_seen_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmtInsert.Close()

	stmtUpdate, err := tx.PrepareContext(ctx, `
		UPDATE pages
		SET raw_url         = ?,
		    last_seen_at    = ?,
		    last_version_id = ?,
		    last_audited_at = ?,
		    status          = ?,
		    http_status     = ?,
		    issue_count     = ?,
		    meta = CASE WHEN ? = '' THEN json_remove(meta, '$.last_error')
		                ELSE json_set(meta, '$.last_error', ?) END
		WHERE site_id = ? AND canonical_url = ?`)
	if err != nil {
		return nil, err
	}
	defer stmtUpdate.Close()

	fresh := make([]string, 0, len(pages))
	for _, p := range pages {
		canon, u, err := canonicalize(p.URL)
		if err != nil {
			ix.logger.Warn("index: canonicalize failed", logging.Field{Key: "url", Value: p.URL}, logging.Field{Key: "err", Value: err.Error()})
			continue
		}
		status := StatusOK
		if p.Failed() {
			status = StatusFailed
		}

		path := u.EscapedPath()
		if path == "" {
			path = "/"
		}

		res, err := stmtInsert.ExecContext(ctx, uuid.New().String(), siteID, p.URL, canon, path, now, now, status)
		if err != nil {
			return nil, err
		}
		ra, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if ra > 0 {
			fresh = append(fresh, canon)
		}

		if _, err := stmtUpdate.ExecContext(ctx, p.URL, now, versionID, now, status, p.HTTPStatus, len(p.Issues),
			p.Error, p.Error, siteID, canon); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE pages SET status = ?
		WHERE site_id = ? AND (last_version_id IS NULL OR last_version_id != ?)`,
		StatusMissing, siteID, versionID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return fresh, nil
}

// ListPages returns a site's pages, most recently seen first. An empty status
// lists all; limit <= 0 means no limit.
func (ix *Index) ListPages(ctx context.Context, siteID, status string, limit int) ([]Page, error) {
	if limit <= 0 {
		limit = -1
	}
	q := `SELECT id, site_id, raw_url, canonical_url, path, first_seen_at, last_seen_at,
	             last_version_id, last_audited_at, status, http_status, issue_count,
	             COALESCE(json_extract(meta, '$.last_error'), '')
	      FROM pages WHERE site_id = ?`
	args := []any{siteID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY last_seen_at DESC, canonical_url ASC LIMIT ?`
	args = append(args, limit)

	rows, err := ix.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Page{}
	for rows.Next() {
		var p Page
		var lastVersion sql.NullString
		var lastAudited sql.NullInt64
		if err := rows.Scan(&p.ID, &p.SiteID, &p.RawURL, &p.CanonicalURL, &p.Path, &p.FirstSeenAt, &p.LastSeenAt,
			&lastVersion, &lastAudited, &p.Status, &p.HTTPStatus, &p.IssueCount, &p.LastError); err != nil {
			return nil, err
		}
		p.LastVersionID = lastVersion.String
		p.LastAuditedAt = lastAudited.Int64
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteSite drops the inventory of a site.
func (ix *Index) DeleteSite(ctx context.Context, siteID string) error {
	_, err := ix.db.ExecContext(ctx, `DELETE FROM pages WHERE site_id = ?`, siteID)
	return err
}
