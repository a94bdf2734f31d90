package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raysh454/sitepulse/internal/logging"
	"github.com/raysh454/sitepulse/internal/model"
)

// NewInMemoryTracker returns a Tracker that keeps history in process memory.
// Used for ephemeral runs and tests.
func NewInMemoryTracker(cfg Config, logger logging.Logger) Tracker {
	if logger == nil {
		logger = logging.Nop()
	}
	return &inMemoryTracker{
		cfg:      cfg,
		logger:   logger.With(logging.Field{Key: "component", Value: "tracker"}),
		versions: make(map[string]*memVersion),
		bySite:   make(map[string][]string),
	}
}

type memVersion struct {
	Version
	snap *model.AuditSnapshot
}

type inMemoryTracker struct {
	cfg    Config
	logger logging.Logger

	mu       sync.RWMutex
	versions map[string]*memVersion
	bySite   map[string][]string // oldest first
}

var _ Tracker = (*inMemoryTracker)(nil)

func (t *inMemoryTracker) Commit(ctx context.Context, siteID string, snap *model.AuditSnapshot) (*Version, error) {
	if snap == nil {
		return nil, errors.New("snapshot cannot be nil")
	}
	if siteID == "" {
		return nil, errors.New("site id cannot be empty")
	}
	stored := *snap
	stored.ID = uuid.New().String()
	ts := time.Now()
	if !snap.CompletedAt.IsZero() {
		ts = snap.CompletedAt
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	history := t.bySite[siteID]
	v := Version{
		ID:          stored.ID,
		SiteID:      siteID,
		HealthScore: snap.HealthScore,
		PageCount:   len(snap.Pages),
		IssueCount:  countIssues(snap),
		Timestamp:   ts,
	}
	if len(history) > 0 {
		v.Parent = history[len(history)-1]
	}
	t.versions[v.ID] = &memVersion{Version: v, snap: &stored}
	history = append(history, v.ID)
	if t.cfg.MaxHistory > 0 && len(history) > t.cfg.MaxHistory {
		drop := len(history) - t.cfg.MaxHistory
		for _, id := range history[:drop] {
			delete(t.versions, id)
		}
		history = append([]string(nil), history[drop:]...)
		t.versions[history[0]].Parent = ""
	}
	t.bySite[siteID] = history

	out := v
	return &out, nil
}

func (t *inMemoryTracker) Get(ctx context.Context, versionID string) (*model.AuditSnapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	mv, ok := t.versions[versionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, versionID)
	}
	snap := *mv.snap
	return &snap, nil
}

func (t *inMemoryTracker) Version(ctx context.Context, versionID string) (*Version, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	mv, ok := t.versions[versionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, versionID)
	}
	v := mv.Version
	return &v, nil
}

func (t *inMemoryTracker) Latest(ctx context.Context, siteID string) (*model.AuditSnapshot, error) {
	t.mu.RLock()
	history := t.bySite[siteID]
	t.mu.RUnlock()
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: site %s", ErrSnapshotNotFound, siteID)
	}
	return t.Get(ctx, history[len(history)-1])
}

func (t *inMemoryTracker) List(ctx context.Context, siteID string, limit int) ([]*Version, error) {
	if limit <= 0 {
		limit = 10
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	history := t.bySite[siteID]
	out := []*Version{}
	for i := len(history) - 1; i >= 0 && len(out) < limit; i-- {
		v := t.versions[history[i]].Version
		out = append(out, &v)
	}
	return out, nil
}

func (t *inMemoryTracker) Diff(ctx context.Context, baseID, headID string) (*DiffResult, error) {
	t.mu.RLock()
	head, ok := t.versions[headID]
	if !ok {
		t.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, headID)
	}
	if baseID == "" {
		baseID = head.Parent
	}
	var baseSnap *model.AuditSnapshot
	if baseID != "" {
		base, ok := t.versions[baseID]
		if !ok {
			t.mu.RUnlock()
			return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, baseID)
		}
		if base.SiteID != head.SiteID {
			t.mu.RUnlock()
			return nil, ErrSiteMismatch
		}
		baseSnap = base.snap
	}
	headSnap := head.snap
	t.mu.RUnlock()
	return computeDiff(baseID, headID, baseSnap, headSnap), nil
}

func (t *inMemoryTracker) DeleteSite(ctx context.Context, siteID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range t.bySite[siteID] {
		delete(t.versions, id)
	}
	delete(t.bySite, siteID)
	return nil
}

func (t *inMemoryTracker) Close() error { return nil }
