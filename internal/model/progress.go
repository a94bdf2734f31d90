package model

// Phase is a state of the audit pipeline.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseDiscovering   Phase = "discovering"
	PhaseAuditing      Phase = "auditing"
	PhaseCheckingLinks Phase = "checking-links"
	PhasePageSpeed     Phase = "pagespeed"
	PhaseComplete      Phase = "complete"
	PhaseError         Phase = "error"
)

// Progress is one progress tuple pushed while an audit runs.
type Progress struct {
	Phase      Phase  `json:"phase"`
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	CurrentURL string `json:"currentUrl,omitempty"`
	Label      string `json:"label"`
}

// ProgressFunc receives progress tuples. It must not block for long.
type ProgressFunc func(Progress)
