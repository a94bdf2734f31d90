package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/tracker/blobstore"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteTracker keeps version metadata in SQLite and snapshot JSON in a
// compressed content-addressed blob store.
type SQLiteTracker struct {
	db     *sql.DB
	store  *blobstore.Blobstore
	logger logging.Logger
	config Config
}

var _ Tracker = (*SQLiteTracker)(nil)

// NewSQLiteTracker opens (or creates) <StoragePath>/history.db and <StoragePath>/blobs.
func NewSQLiteTracker(config Config, logger logging.Logger) (*SQLiteTracker, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if config.StoragePath == "" {
		return nil, errors.New("tracker: storage path is required")
	}
	if err := os.MkdirAll(config.StoragePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(config.StoragePath, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	store, err := blobstore.New(filepath.Join(config.StoragePath, "blobs"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create blobstore: %w", err)
	}

	logger = logger.With(logging.Field{Key: "component", Value: "tracker"})
	logger.Info("SQLiteTracker initialized", logging.Field{Key: "storage_path", Value: config.StoragePath})

	return &SQLiteTracker{db: db, store: store, logger: logger, config: config}, nil
}

// Commit stores snap as the new head version of siteID.
func (t *SQLiteTracker) Commit(ctx context.Context, siteID string, snap *model.AuditSnapshot) (*Version, error) {
	if snap == nil {
		return nil, errors.New("snapshot cannot be nil")
	}
	if siteID == "" {
		return nil, errors.New("site id cannot be empty")
	}

	versionID := uuid.New().String()
	stored := *snap
	stored.ID = versionID
	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	blobID, err := t.store.Put(data)
	if err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	ts := time.Now()
	if !snap.CompletedAt.IsZero() {
		ts = snap.CompletedAt
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			t.logger.Warn("Failed to rollback transaction", logging.Field{Key: "error", Value: rbErr.Error()})
		}
	}()

	var parentID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM versions WHERE site_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		siteID).Scan(&parentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to read head: %w", err)
	}

	v := &Version{
		ID:          versionID,
		SiteID:      siteID,
		Parent:      parentID,
		BlobID:      blobID,
		HealthScore: snap.HealthScore,
		PageCount:   len(snap.Pages),
		IssueCount:  countIssues(snap),
		Timestamp:   time.Unix(ts.Unix(), 0),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO versions (id, site_id, parent_id, blob_id, health_score, page_count, issue_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.SiteID, nullableString(parentID), v.BlobID, v.HealthScore, v.PageCount, v.IssueCount, ts.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert version: %w", err)
	}

	if parentID != "" {
		if err := t.storeDiff(ctx, tx, parentID, &stored); err != nil {
			t.logger.Warn("Failed to compute diff, continuing", logging.Field{Key: "error", Value: err.Error()})
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if t.config.MaxHistory > 0 {
		if err := t.prune(ctx, siteID, t.config.MaxHistory); err != nil {
			t.logger.Warn("Failed to prune history", logging.Field{Key: "error", Value: err.Error()})
		}
	}

	t.logger.Info("Commit successful",
		logging.Field{Key: "site_id", Value: siteID},
		logging.Field{Key: "version_id", Value: versionID},
		logging.Field{Key: "health_score", Value: snap.HealthScore})
	return v, nil
}

func (t *SQLiteTracker) storeDiff(ctx context.Context, tx *sql.Tx, parentID string, head *model.AuditSnapshot) error {
	var blobID string
	if err := tx.QueryRowContext(ctx, `SELECT blob_id FROM versions WHERE id = ?`, parentID).Scan(&blobID); err != nil {
		return fmt.Errorf("load parent: %w", err)
	}
	base, err := t.loadBlob(blobID)
	if err != nil {
		return err
	}
	diffJSON, err := json.Marshal(computeDiff(parentID, head.ID, base, head))
	if err != nil {
		return fmt.Errorf("marshal diff: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO diffs (id, base_version_id, head_version_id, diff_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.New().String(), parentID, head.ID, string(diffJSON), time.Now().Unix())
	return err
}

// Get loads the snapshot of a version.
func (t *SQLiteTracker) Get(ctx context.Context, versionID string) (*model.AuditSnapshot, error) {
	var blobID string
	err := t.db.QueryRowContext(ctx, `SELECT blob_id FROM versions WHERE id = ?`, versionID).Scan(&blobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, versionID)
		}
		return nil, fmt.Errorf("failed to query version: %w", err)
	}
	return t.loadBlob(blobID)
}

// Version returns the row of one version.
func (t *SQLiteTracker) Version(ctx context.Context, versionID string) (*Version, error) {
	var v Version
	var parentID sql.NullString
	var ts int64
	err := t.db.QueryRowContext(ctx, `
		SELECT id, site_id, parent_id, blob_id, health_score, page_count, issue_count, created_at
		FROM versions WHERE id = ?
	`, versionID).Scan(&v.ID, &v.SiteID, &parentID, &v.BlobID, &v.HealthScore, &v.PageCount, &v.IssueCount, &ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, versionID)
		}
		return nil, fmt.Errorf("failed to query version: %w", err)
	}
	v.Parent = parentID.String
	v.Timestamp = time.Unix(ts, 0)
	return &v, nil
}

// Latest loads the head snapshot of a site.
func (t *SQLiteTracker) Latest(ctx context.Context, siteID string) (*model.AuditSnapshot, error) {
	var blobID string
	err := t.db.QueryRowContext(ctx,
		`SELECT blob_id FROM versions WHERE site_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		siteID).Scan(&blobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: site %s", ErrSnapshotNotFound, siteID)
		}
		return nil, fmt.Errorf("failed to query head: %w", err)
	}
	return t.loadBlob(blobID)
}

func (t *SQLiteTracker) loadBlob(blobID string) (*model.AuditSnapshot, error) {
	data, err := t.store.Get(blobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	var snap model.AuditSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// List returns versions of a site, newest first.
func (t *SQLiteTracker) List(ctx context.Context, siteID string, limit int) ([]*Version, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, site_id, parent_id, blob_id, health_score, page_count, issue_count, created_at
		FROM versions
		WHERE site_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, siteID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()

	versions := []*Version{}
	for rows.Next() {
		var v Version
		var parentID sql.NullString
		var ts int64
		if err := rows.Scan(&v.ID, &v.SiteID, &parentID, &v.BlobID, &v.HealthScore, &v.PageCount, &v.IssueCount, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		v.Parent = parentID.String
		v.Timestamp = time.Unix(ts, 0)
		versions = append(versions, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}
	return versions, nil
}

// Diff compares baseID with headID, using the cached diff when one exists.
func (t *SQLiteTracker) Diff(ctx context.Context, baseID, headID string) (*DiffResult, error) {
	var headSite string
	var parent sql.NullString
	err := t.db.QueryRowContext(ctx, `SELECT site_id, parent_id FROM versions WHERE id = ?`, headID).Scan(&headSite, &parent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, headID)
		}
		return nil, err
	}
	if baseID == "" {
		baseID = parent.String
	}

	if baseID != "" {
		var baseSite string
		if err := t.db.QueryRowContext(ctx, `SELECT site_id FROM versions WHERE id = ?`, baseID).Scan(&baseSite); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, baseID)
			}
			return nil, err
		}
		if baseSite != headSite {
			return nil, ErrSiteMismatch
		}

		var diffJSON string
		err := t.db.QueryRowContext(ctx,
			`SELECT diff_json FROM diffs WHERE base_version_id = ? AND head_version_id = ? LIMIT 1`,
			baseID, headID).Scan(&diffJSON)
		if err == nil {
			var cached DiffResult
			if err := json.Unmarshal([]byte(diffJSON), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	head, err := t.Get(ctx, headID)
	if err != nil {
		return nil, err
	}
	var base *model.AuditSnapshot
	if baseID != "" {
		if base, err = t.Get(ctx, baseID); err != nil {
			return nil, err
		}
	}
	return computeDiff(baseID, headID, base, head), nil
}

// DeleteSite removes every version of siteID plus blobs no other version uses.
func (t *SQLiteTracker) DeleteSite(ctx context.Context, siteID string) error {
	ids, err := t.versionIDs(ctx, `SELECT id FROM versions WHERE site_id = ?`, siteID)
	if err != nil {
		return err
	}
	if err := t.deleteVersions(ctx, ids); err != nil {
		return err
	}
	t.logger.Info("Deleted site history", logging.Field{Key: "site_id", Value: siteID}, logging.Field{Key: "versions", Value: len(ids)})
	return nil
}

// prune keeps the newest keep versions of a site.
func (t *SQLiteTracker) prune(ctx context.Context, siteID string, keep int) error {
	ids, err := t.versionIDs(ctx, `
		SELECT id FROM versions WHERE site_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT -1 OFFSET ?
	`, siteID, keep)
	if err != nil {
		return err
	}
	return t.deleteVersions(ctx, ids)
}

func (t *SQLiteTracker) versionIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query versions: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *SQLiteTracker) deleteVersions(ctx context.Context, ids []string) error {
	for _, id := range ids {
		var blobID string
		if err := t.db.QueryRowContext(ctx, `SELECT blob_id FROM versions WHERE id = ?`, id).Scan(&blobID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return err
		}
		if _, err := t.db.ExecContext(ctx, `DELETE FROM diffs WHERE base_version_id = ? OR head_version_id = ?`, id, id); err != nil {
			return fmt.Errorf("failed to delete diffs: %w", err)
		}
		if _, err := t.db.ExecContext(ctx, `UPDATE versions SET parent_id = NULL WHERE parent_id = ?`, id); err != nil {
			return fmt.Errorf("failed to detach children: %w", err)
		}
		if _, err := t.db.ExecContext(ctx, `DELETE FROM versions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete version: %w", err)
		}

		var refs int
		if err := t.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM versions WHERE blob_id = ?`, blobID).Scan(&refs); err != nil {
			return err
		}
		if refs == 0 {
			if err := t.store.Delete(blobID); err != nil {
				t.logger.Warn("Failed to delete blob", logging.Field{Key: "blob_id", Value: blobID}, logging.Field{Key: "error", Value: err.Error()})
			}
		}
	}
	return nil
}

// Close releases the database and blob store.
func (t *SQLiteTracker) Close() error {
	storeErr := t.store.Close()
	if err := t.db.Close(); err != nil {
		return err
	}
	return storeErr
}
