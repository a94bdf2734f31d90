package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/raysh454/sitepulse/internal/model"
	"github.com/raysh454/sitepulse/internal/score"
)

const maxOpportunities = 5

type styles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	box     lipgloss.Style
	bands   map[string]lipgloss.Style
	sev     map[model.Severity]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		heading: r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#888888")),
		box:     r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		bands: map[string]lipgloss.Style{
			"good":    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#00C853")),
			"average": r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFAB00")),
			"poor":    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF1744")),
		},
		sev: map[model.Severity]lipgloss.Style{
			model.SeverityCritical: r.NewStyle().Foreground(lipgloss.Color("#FF1744")),
			model.SeverityHigh:     r.NewStyle().Foreground(lipgloss.Color("#FF6D00")),
			model.SeverityMedium:   r.NewStyle().Foreground(lipgloss.Color("#FFAB00")),
			model.SeverityLow:      r.NewStyle().Foreground(lipgloss.Color("#2979FF")),
			model.SeverityInfo:     r.NewStyle().Foreground(lipgloss.Color("#888888")),
		},
	}
}

func (s styles) score(v int) string {
	return s.bands[score.Band(v)].Render(fmt.Sprintf("%3d", v))
}

// RenderReport writes a terminal summary of snap. Colors are only emitted
// when w is a terminal.
func RenderReport(w io.Writer, snap *model.AuditSnapshot) error {
	if snap == nil {
		return fmt.Errorf("render report: nil snapshot")
	}
	st := newStyles(lipgloss.NewRenderer(w))
	var b strings.Builder

	name := snap.SiteName
	if name == "" {
		name = snap.TargetURL
	}
	b.WriteString(st.title.Render("SitePulse audit: "+name) + "\n")
	t := snap.Totals()
	b.WriteString(st.muted.Render(fmt.Sprintf("%s  %d pages  %d links checked  %s",
		snap.TargetURL, t.Pages, len(snap.Links), snap.CompletedAt.Format("2006-01-02 15:04 MST"))) + "\n\n")

	cs := snap.CategoryScores
	summary := []string{
		fmt.Sprintf("Health score    %s/100  %s", st.score(snap.HealthScore), score.Grade(snap.HealthScore)),
		fmt.Sprintf("Performance     %s", st.score(cs.Performance)),
		fmt.Sprintf("Accessibility   %s", st.score(cs.Accessibility)),
		fmt.Sprintf("SEO             %s", st.score(cs.SEO)),
		fmt.Sprintf("Best practices  %s", st.score(cs.BestPractices)),
	}
	b.WriteString(st.box.Render(strings.Join(summary, "\n")) + "\n\n")

	writeIssues(&b, st, snap)
	writeLinks(&b, st, snap)
	writeExternal(&b, st, snap)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeIssues(b *strings.Builder, st styles, snap *model.AuditSnapshot) {
	fmt.Fprintf(b, "%s\n", st.heading.Render(fmt.Sprintf("Issues (%d)", snap.TotalIssues())))
	counts := snap.IssueCounts()
	parts := make([]string, 0, len(model.Severities))
	for _, sev := range model.Severities {
		parts = append(parts, st.sev[sev].Render(fmt.Sprintf("%s %d", sev, counts[sev])))
	}
	b.WriteString("  " + strings.Join(parts, "  ") + "\n")

	for _, p := range snap.Pages {
		if p.Failed() {
			fmt.Fprintf(b, "\n  %s  %s\n", p.URL, st.sev[model.SeverityCritical].Render("failed: "+p.Error))
			continue
		}
		if len(p.Issues) == 0 {
			continue
		}
		fmt.Fprintf(b, "\n  %s\n", p.URL)
		for _, is := range p.Issues {
			fmt.Fprintf(b, "    %s %s\n", st.sev[is.Severity].Render(fmt.Sprintf("%-8s", is.Severity)), is.Message)
		}
	}
	b.WriteString("\n")
}

func writeLinks(b *strings.Builder, st styles, snap *model.AuditSnapshot) {
	broken := snap.BrokenLinks()
	fmt.Fprintf(b, "%s\n", st.heading.Render(fmt.Sprintf("Broken links (%d)", len(broken))))
	if len(broken) == 0 {
		b.WriteString(st.muted.Render("  none") + "\n")
	}
	for _, l := range broken {
		status := "N/A"
		if l.Status != 0 {
			status = fmt.Sprint(l.Status)
		}
		line := fmt.Sprintf("  %-4s %s", status, l.URL)
		if l.Error != model.LinkErrorNone {
			line += st.muted.Render(" (" + string(l.Error) + ")")
		}
		b.WriteString(line + "\n")
	}

	if redirects := snap.RedirectLinks(); len(redirects) > 0 {
		fmt.Fprintf(b, "\n%s\n", st.heading.Render(fmt.Sprintf("Redirects (%d)", len(redirects))))
		for _, l := range redirects {
			target := l.RedirectTarget
			if target == "" {
				target = "?"
			}
			fmt.Fprintf(b, "  %s -> %s\n", l.URL, target)
		}
	}
	b.WriteString("\n")
}

func writeExternal(b *strings.Builder, st styles, snap *model.AuditSnapshot) {
	if snap.CoreWebVitals == nil && len(snap.Opportunities) == 0 {
		b.WriteString(st.muted.Render("PageSpeed data unavailable; category scores are estimated from the audit.") + "\n")
		return
	}
	if v := snap.CoreWebVitals; v != nil {
		fmt.Fprintf(b, "%s\n", st.heading.Render("Core Web Vitals"))
		fmt.Fprintf(b, "  LCP  %.0f ms  %s\n", v.LCP.Value, v.LCP.Category)
		fmt.Fprintf(b, "  INP  %.0f ms  %s\n", v.INP.Value, v.INP.Category)
		fmt.Fprintf(b, "  CLS  %.2f     %s\n", v.CLS.Value, v.CLS.Category)
	}
	if len(snap.Opportunities) > 0 {
		fmt.Fprintf(b, "\n%s\n", st.heading.Render("Opportunities"))
		for i, o := range snap.Opportunities {
			if i == maxOpportunities {
				fmt.Fprintf(b, "  %s\n", st.muted.Render(fmt.Sprintf("... and %d more", len(snap.Opportunities)-i)))
				break
			}
			line := "  " + o.Title
			if o.Savings != "" {
				line += st.muted.Render("  " + o.Savings)
			}
			b.WriteString(line + "\n")
		}
	}
}

// ProgressPrinter returns a ProgressFunc that writes one line per phase and
// per page to w.
func ProgressPrinter(w io.Writer) model.ProgressFunc {
	last := model.PhaseIdle
	return func(p model.Progress) {
		switch {
		case p.Phase != last:
			last = p.Phase
			fmt.Fprintf(w, "==> %s\n", p.Label)
		case p.CurrentURL != "":
			fmt.Fprintf(w, "    [%d/%d] %s\n", p.Current, p.Total, p.CurrentURL)
		case p.Total > 0:
			fmt.Fprintf(w, "    %s\n", p.Label)
		}
	}
}
