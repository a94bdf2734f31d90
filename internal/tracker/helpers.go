package tracker

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/score"
	"github.com/sergi/go-diff/diffmatchpatch"
)

//go:embed schema.sql
var schemaFS embed.FS

// applySchema sets pragmas and creates the tables.
func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// ReportText renders the issues and broken links of a snapshot as sorted
// lines, one finding per line. It is the text that version diffs compare.
func ReportText(snap *model.AuditSnapshot) string {
	if snap == nil {
		return ""
	}
	var lines []string
	for _, p := range snap.Pages {
		if p.Failed() {
			lines = append(lines, fmt.Sprintf("%s [error] %s", p.URL, p.Error))
			continue
		}
		for _, is := range p.Issues {
			line := fmt.Sprintf("%s [%s] %s: %s", p.URL, is.Severity, is.Type, is.Message)
			if is.Element != "" {
				line += " (" + is.Element + ")"
			}
			lines = append(lines, line)
		}
	}
	for _, l := range snap.BrokenLinks() {
		reason := string(l.Error)
		if l.Status != 0 {
			reason = fmt.Sprintf("HTTP %d", l.Status)
		}
		lines = append(lines, fmt.Sprintf("%s [broken-link] %s", l.URL, reason))
	}
	sort.Strings(lines)
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// computeDiff line-diffs the reports of two snapshots and attaches the score delta.
func computeDiff(baseID, headID string, base, head *model.AuditSnapshot) *DiffResult {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(ReportText(base), ReportText(head))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	chunks := make([]DiffChunk, 0)
	for _, d := range diffs {
		var typ string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			typ = "added"
		case diffmatchpatch.DiffDelete:
			typ = "removed"
		default:
			continue
		}
		if strings.TrimSpace(d.Text) == "" {
			continue
		}
		chunks = append(chunks, DiffChunk{Type: typ, Content: d.Text})
	}

	return &DiffResult{
		BaseID: baseID,
		HeadID: headID,
		Chunks: chunks,
		Score:  score.DiffSnapshots(base, head),
	}
}

func countIssues(snap *model.AuditSnapshot) int {
	if snap == nil {
		return 0
	}
	return snap.TotalIssues()
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
