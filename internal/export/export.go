// Package export renders audit snapshots as downloadable reports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/raysh454/sitepulse/internal/model"
)

const (
	IssuesSheet = "Issues"
	LinksSheet  = "Broken Links"

	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	issueHeader = []string{"Page URL", "Issue Type", "Severity", "Category", "Message", "Element"}
	linkHeader  = []string{"URL", "Status", "Error"}

	unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// FileName is the download name of a report, e.g. "Example_health_audit.csv".
func FileName(snap *model.AuditSnapshot, ext string) string {
	name := "website"
	if snap != nil {
		if n := strings.Trim(unsafeNameRe.ReplaceAllString(snap.SiteName, "_"), "_"); n != "" {
			name = n
		}
	}
	return name + "_health_audit." + strings.TrimPrefix(ext, ".")
}

// issueRows flattens every page issue into one row. Pages that could not be
// audited get a single page_error row.
func issueRows(snap *model.AuditSnapshot) [][]string {
	var rows [][]string
	for _, p := range snap.Pages {
		if p.Failed() {
			rows = append(rows, []string{p.URL, "page_error", "", "", p.Error, ""})
			continue
		}
		for _, is := range p.Issues {
			rows = append(rows, []string{
				p.URL,
				string(is.Type),
				string(is.Severity),
				string(is.Category),
				is.Message,
				is.Element,
			})
		}
	}
	return rows
}

// linkRows lists every link that did not check out ok.
func linkRows(snap *model.AuditSnapshot) [][]string {
	var rows [][]string
	for _, l := range snap.Links {
		if l.OK {
			continue
		}
		status := "N/A"
		if l.Status != 0 {
			status = strconv.Itoa(l.Status)
		}
		rows = append(rows, []string{l.URL, status, string(l.Error)})
	}
	return rows
}

// WriteCSV writes the issue table followed by a Broken Links section when
// any link failed.
func WriteCSV(w io.Writer, snap *model.AuditSnapshot) error {
	if snap == nil {
		return fmt.Errorf("export csv: nil snapshot")
	}
	cw := csv.NewWriter(w)
	records := append([][]string{issueHeader}, issueRows(snap)...)
	if links := linkRows(snap); len(links) > 0 {
		records = append(records, []string{}, []string{LinksSheet}, linkHeader)
		records = append(records, links...)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with an Issues sheet and a Broken Links sheet.
func WriteXLSX(w io.Writer, snap *model.AuditSnapshot) error {
	if snap == nil {
		return fmt.Errorf("export xlsx: nil snapshot")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", IssuesSheet); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	if _, err := f.NewSheet(LinksSheet); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}

	if err := writeSheet(f, IssuesSheet, issueHeader, issueRows(snap), bold); err != nil {
		return err
	}
	if err := writeSheet(f, LinksSheet, linkHeader, linkRows(snap), bold); err != nil {
		return err
	}
	_ = f.SetColWidth(IssuesSheet, "A", "A", 50)
	_ = f.SetColWidth(IssuesSheet, "E", "F", 60)
	_ = f.SetColWidth(LinksSheet, "A", "A", 70)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string, headerStyle int) error {
	all := append([][]string{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return fmt.Errorf("export xlsx %s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	return nil
}
