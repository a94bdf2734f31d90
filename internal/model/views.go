package model

// BrokenLinks returns links shown as broken: not ok, not timed out and not a 301/302.
func (s *AuditSnapshot) BrokenLinks() []LinkCheckResult {
	var out []LinkCheckResult
	for _, l := range s.Links {
		if !l.OK && l.Error != LinkErrorTimeout && l.Status != 301 && l.Status != 302 {
			out = append(out, l)
		}
	}
	return out
}

// RedirectLinks returns links answered with a 301/302 or followed to another URL.
func (s *AuditSnapshot) RedirectLinks() []LinkCheckResult {
	var out []LinkCheckResult
	for _, l := range s.Links {
		if l.Status == 301 || l.Status == 302 || l.RedirectTarget != "" {
			out = append(out, l)
		}
	}
	return out
}

// IssueCounts tallies issues by severity across all pages.
func (s *AuditSnapshot) IssueCounts() map[Severity]int {
	out := make(map[Severity]int, len(Severities))
	for _, sev := range Severities {
		out[sev] = 0
	}
	for _, p := range s.Pages {
		for _, is := range p.Issues {
			out[is.Severity]++
		}
	}
	return out
}

// TotalIssues is the number of issues across all pages.
func (s *AuditSnapshot) TotalIssues() int {
	n := 0
	for _, p := range s.Pages {
		n += len(p.Issues)
	}
	return n
}

// Totals sums the page stats of every audited page.
type Totals struct {
	Pages  int `json:"pages"`
	Images int `json:"images"`
	Links  int `json:"links"`
	Words  int `json:"words"`
}

// Totals returns site-wide counters.
func (s *AuditSnapshot) Totals() Totals {
	t := Totals{Pages: len(s.Pages)}
	for _, p := range s.Pages {
		t.Images += p.Stats.ImgCount
		t.Links += p.Stats.LinkCount
		t.Words += p.Stats.WordCount
	}
	return t
}
