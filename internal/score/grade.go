package score

// Grade labels a 0-100 score.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 70:
		return "Good"
	case score >= 50:
		return "Needs Work"
	default:
		return "Poor"
	}
}

// Band is the traffic-light bucket of a score: good >= 90, average >= 50.
func Band(score int) string {
	switch {
	case score >= 90:
		return "good"
	case score >= 50:
		return "average"
	default:
		return "poor"
	}
}

// Vital names a core web vital.
type Vital string

const (
	VitalLCP Vital = "lcp"
	VitalINP Vital = "inp"
	VitalCLS Vital = "cls"
)

type threshold struct{ good, poor float64 }

var vitalThresholds = map[Vital]threshold{
	VitalLCP: {good: 2500, poor: 4000},
	VitalINP: {good: 200, poor: 500},
	VitalCLS: {good: 0.1, poor: 0.25},
}

// RateVital rates a measurement as good, needs-improvement or poor.
func RateVital(v Vital, value float64) string {
	t, ok := vitalThresholds[v]
	if !ok {
		return "unknown"
	}
	switch {
	case value <= t.good:
		return "good"
	case value <= t.poor:
		return "needs-improvement"
	default:
		return "poor"
	}
}
