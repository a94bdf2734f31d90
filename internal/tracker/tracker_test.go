package tracker_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/testutil"
	"github.com/raysh454/sitepulse/internal/tracker"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type trackerFactory struct {
	name string
	make func(t *testing.T, cfg tracker.Config) tracker.Tracker
}

var factories = []trackerFactory{
	{"sqlite", func(t *testing.T, cfg tracker.Config) tracker.Tracker {
		cfg.StoragePath = t.TempDir()
		tr, err := tracker.NewSQLiteTracker(cfg, &testutil.DummyLogger{})
		if err != nil {
			t.Fatalf("NewSQLiteTracker: %v", err)
		}
		t.Cleanup(func() { _ = tr.Close() })
		return tr
	}},
	{"memory", func(t *testing.T, cfg tracker.Config) tracker.Tracker {
		return tracker.NewInMemoryTracker(cfg, nil)
	}},
}

func snapshot(minute int, health int, issues ...model.Issue) *model.AuditSnapshot {
	if issues == nil {
		issues = []model.Issue{}
	}
	return &model.AuditSnapshot{
		TargetURL:   "https://a.test",
		SiteName:    "A",
		HealthScore: health,
		Pages: []model.PageAuditRecord{{
			URL:            "https://a.test/",
			Title:          "A",
			Issues:         issues,
			ExtractedLinks: []string{},
		}},
		Links:       []model.LinkCheckResult{},
		CompletedAt: t0.Add(time.Duration(minute) * time.Minute),
	}
}

var (
	h1Missing  = model.Issue{Type: model.IssueH1Missing, Severity: model.SeverityCritical, Category: model.CategoryHeadings, Message: "Missing H1 tag"}
	titleShort = model.Issue{Type: model.IssueTitleTooShort, Severity: model.SeverityMedium, Category: model.CategoryMeta, Message: "Title too short (5 chars)"}
)

func forEach(t *testing.T, cfg tracker.Config, fn func(t *testing.T, tr tracker.Tracker)) {
	for _, f := range factories {
		t.Run(f.name, func(t *testing.T) {
			t.Parallel()
			fn(t, f.make(t, cfg))
		})
	}
}

// ─── Commit / Get / Latest ─────────────────────────────────────────────

func TestTracker_CommitAndLatest(t *testing.T) {
	t.Parallel()
	forEach(t, tracker.Config{}, func(t *testing.T, tr tracker.Tracker) {
		ctx := context.Background()
		v, err := tr.Commit(ctx, "site-1", snapshot(0, 72, h1Missing))
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		if v.ID == "" || v.SiteID != "site-1" || v.Parent != "" || v.HealthScore != 72 || v.IssueCount != 1 || v.PageCount != 1 {
			t.Errorf("version = %+v", v)
		}

		got, err := tr.Latest(ctx, "site-1")
		if err != nil {
			t.Fatalf("Latest: %v", err)
		}
		if got.ID != v.ID || got.HealthScore != 72 || len(got.Pages) != 1 || got.Pages[0].Issues[0].Type != model.IssueH1Missing {
			t.Errorf("latest = %+v", got)
		}
		if !got.CompletedAt.Equal(t0) {
			t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, t0)
		}

		byID, err := tr.Get(ctx, v.ID)
		if err != nil || byID.ID != v.ID {
			t.Errorf("Get = %+v, %v", byID, err)
		}

		meta, err := tr.Version(ctx, v.ID)
		if err != nil {
			t.Fatalf("Version: %v", err)
		}
		if meta.ID != v.ID || meta.SiteID != "site-1" || meta.HealthScore != 72 {
			t.Errorf("Version = %+v", meta)
		}
	})
}

func TestTracker_CommitRejectsBadInput(t *testing.T) {
	t.Parallel()
	forEach(t, tracker.Config{}, func(t *testing.T, tr tracker.Tracker) {
		if _, err := tr.Commit(context.Background(), "site", nil); err == nil {
			t.Error("expected error for nil snapshot")
		}
		if _, err := tr.Commit(context.Background(), "", snapshot(0, 1)); err == nil {
			t.Error("expected error for empty site id")
		}
	})
}

func TestTracker_NotFound(t *testing.T) {
	t.Parallel()
	forEach(t, tracker.Config{}, func(t *testing.T, tr tracker.Tracker) {
		ctx := context.Background()
		if _, err := tr.Latest(ctx, "nope"); !errors.Is(err, tracker.ErrSnapshotNotFound) {
			t.Errorf("Latest err = %v, want ErrSnapshotNotFound", err)
		}
		if _, err := tr.Get(ctx, "nope"); !errors.Is(err, tracker.ErrVersionNotFound) {
			t.Errorf("Get err = %v, want ErrVersionNotFound", err)
		}
		if _, err := tr.Version(ctx, "nope"); !errors.Is(err, tracker.ErrVersionNotFound) {
			t.Errorf("Version err = %v, want ErrVersionNotFound", err)
		}
		if _, err := tr.Diff(ctx, "", "nope"); !errors.Is(err, tracker.ErrVersionNotFound) {
			t.Errorf("Diff err = %v, want ErrVersionNotFound", err)
		}
	})
}

// ─── History ───────────────────────────────────────────────────────────

func TestTracker_ListNewestFirstWithParents(t *testing.T) {
	t.Parallel()
	forEach(t, tracker.Config{}, func(t *testing.T, tr tracker.Tracker) {
		ctx := context.Background()
		var ids []string
		for i := 0; i < 3; i++ {
			v, err := tr.Commit(ctx, "site", snapshot(i, 50+i))
			if err != nil {
				t.Fatalf("Commit %d: %v", i, err)
			}
			ids = append(ids, v.ID)
		}
		if _, err := tr.Commit(ctx, "other", snapshot(10, 1)); err != nil {
			t.Fatal(err)
		}

		vs, err := tr.List(ctx, "site", 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(vs) != 3 {
			t.Fatalf("got %d versions, want 3", len(vs))
		}
		for i, want := range []string{ids[2], ids[1], ids[0]} {
			if vs[i].ID != want {
				t.Errorf("versions[%d] = %s, want %s", i, vs[i].ID, want)
			}
		}
		if vs[0].Parent != ids[1] || vs[1].Parent != ids[0] || vs[2].Parent != "" {
			t.Errorf("parent chain broken: %+v %+v %+v", vs[0], vs[1], vs[2])
		}

		limited, _ := tr.List(ctx, "site", 1)
		if len(limited) != 1 || limited[0].ID != ids[2] {
			t.Errorf("limited list = %+v", limited)
		}
	})
}

func TestTracker_MaxHistoryPrunesOldest(t *testing.T) {
	t.Parallel()
	forEach(t, tracker.Config{MaxHistory: 2}, func(t *testing.T, tr tracker.Tracker) {
		ctx := context.Background()
		var first string
		for i := 0; i < 3; i++ {
			v, err := tr.Commit(ctx, "site", snapshot(i, i))
			if err != nil {
				t.Fatalf("Commit: %v", err)
			}
			if i == 0 {
				first = v.ID
			}
		}
		vs, _ := tr.List(ctx, "site", 10)
		if len(vs) != 2 {
			t.Fatalf("got %d versions, want 2", len(vs))
		}
		if _, err := tr.Get(ctx, first); !errors.Is(err, tracker.ErrVersionNotFound) {
			t.Errorf("oldest version still readable: %v", err)
		}
	})
}

// ─── Diff ──────────────────────────────────────────────────────────────

func TestTracker_DiffReportsChangedFindings(t *testing.T) {
	t.Parallel()
	forEach(t, tracker.Config{}, func(t *testing.T, tr tracker.Tracker) {
		ctx := context.Background()
		base, err := tr.Commit(ctx, "site", snapshot(0, 60, h1Missing))
		if err != nil {
			t.Fatal(err)
		}
		head, err := tr.Commit(ctx, "site", snapshot(1, 80, titleShort))
		if err != nil {
			t.Fatal(err)
		}

		for _, baseID := range []string{"", base.ID} {
			d, err := tr.Diff(ctx, baseID, head.ID)
			if err != nil {
				t.Fatalf("Diff(%q): %v", baseID, err)
			}
			if d.BaseID != base.ID || d.HeadID != head.ID {
				t.Errorf("ids = %s..%s", d.BaseID, d.HeadID)
			}
			var added, removed string
			for _, c := range d.Chunks {
				switch c.Type {
				case "added":
					added += c.Content
				case "removed":
					removed += c.Content
				}
			}
			if !strings.Contains(removed, "h1_missing") || strings.Contains(removed, "title_too_short") {
				t.Errorf("removed = %q", removed)
			}
			if !strings.Contains(added, "title_too_short") || strings.Contains(added, "h1_missing") {
				t.Errorf("added = %q", added)
			}
			if d.Score == nil || d.Score.Delta != 20 {
				t.Errorf("score delta = %+v, want +20", d.Score)
			}
		}
	})
}

func TestTracker_DiffFirstVersionIsAllAdded(t *testing.T) {
	t.Parallel()
	forEach(t, tracker.Config{}, func(t *testing.T, tr tracker.Tracker) {
		v, err := tr.Commit(context.Background(), "site", snapshot(0, 60, h1Missing))
		if err != nil {
			t.Fatal(err)
		}
		d, err := tr.Diff(context.Background(), "", v.ID)
		if err != nil {
			t.Fatalf("Diff: %v", err)
		}
		if len(d.Chunks) != 1 || d.Chunks[0].Type != "added" {
			t.Errorf("chunks = %+v, want one added chunk", d.Chunks)
		}
	})
}

func TestTracker_DiffAcrossSitesRejected(t *testing.T) {
	t.Parallel()
	forEach(t, tracker.Config{}, func(t *testing.T, tr tracker.Tracker) {
		ctx := context.Background()
		a, _ := tr.Commit(ctx, "a", snapshot(0, 1))
		b, _ := tr.Commit(ctx, "b", snapshot(1, 2))
		if _, err := tr.Diff(ctx, a.ID, b.ID); !errors.Is(err, tracker.ErrSiteMismatch) {
			t.Errorf("err = %v, want ErrSiteMismatch", err)
		}
	})
}

// ─── Delete ────────────────────────────────────────────────────────────

func TestTracker_DeleteSite(t *testing.T) {
	t.Parallel()
	forEach(t, tracker.Config{}, func(t *testing.T, tr tracker.Tracker) {
		ctx := context.Background()
		for i := 0; i < 2; i++ {
			if _, err := tr.Commit(ctx, "gone", snapshot(i, i)); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := tr.Commit(ctx, "kept", snapshot(5, 5)); err != nil {
			t.Fatal(err)
		}

		if err := tr.DeleteSite(ctx, "gone"); err != nil {
			t.Fatalf("DeleteSite: %v", err)
		}
		if _, err := tr.Latest(ctx, "gone"); !errors.Is(err, tracker.ErrSnapshotNotFound) {
			t.Errorf("Latest after delete err = %v", err)
		}
		if vs, _ := tr.List(ctx, "gone", 10); len(vs) != 0 {
			t.Errorf("versions left: %d", len(vs))
		}
		if _, err := tr.Latest(ctx, "kept"); err != nil {
			t.Errorf("other site affected: %v", err)
		}
	})
}

// ─── Persistence ───────────────────────────────────────────────────────

func TestSQLiteTracker_SurvivesReopen(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	tr, err := tracker.NewSQLiteTracker(tracker.Config{StoragePath: dir}, nil)
	if err != nil {
		t.Fatalf("NewSQLiteTracker: %v", err)
	}
	v, err := tr.Commit(ctx, "site", snapshot(0, 91))
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	tr, err = tracker.NewSQLiteTracker(tracker.Config{StoragePath: dir}, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer tr.Close()
	got, err := tr.Latest(ctx, "site")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.ID != v.ID || got.HealthScore != 91 {
		t.Errorf("reopened snapshot = %+v", got)
	}
}

func TestNewSQLiteTracker_RequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := tracker.NewSQLiteTracker(tracker.Config{}, nil); err == nil {
		t.Error("expected error for empty storage path")
	}
}

func TestReportText_SortedAndIncludesBrokenLinks(t *testing.T) {
	t.Parallel()
	snap := snapshot(0, 0, titleShort, h1Missing)
	snap.Links = []model.LinkCheckResult{{URL: "https://a.test/dead", Status: 404}}
	snap.Pages = append(snap.Pages, model.PageAuditRecord{URL: "https://a.test/x", Error: "HTTP 500"})

	lines := strings.Split(strings.TrimSpace(tracker.ReportText(snap)), "\n")
	want := []string{
		"https://a.test/ [critical] h1_missing: Missing H1 tag",
		"https://a.test/ [medium] title_too_short: Title too short (5 chars)",
		"https://a.test/dead [broken-link] HTTP 404",
		"https://a.test/x [error] HTTP 500",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("report =\n%s\nwant\n%s", strings.Join(lines, "\n"), strings.Join(want, "\n"))
	}
}
