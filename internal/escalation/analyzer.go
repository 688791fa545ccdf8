// Package escalation detects worsening severity trends in a user's
// recent classification history.
package escalation

import (
	"log/slog"

	"github.com/ashita-ai/monban/internal/model"
)

// Recommendation strings surfaced to support staff.
const (
	RecommendIntervention     = "Consider immediate human intervention"
	RecommendEscalate         = "Escalate to senior support"
	RecommendMonitor          = "Continue normal monitoring"
	RecommendInsufficientData = "Insufficient history for escalation analysis"
)

// seniorSupportRatio is the high-level ratio above which a
// non-escalating user is still routed to senior support.
const seniorSupportRatio = 0.3

// Analyzer inspects the last window of classification records for a
// user and decides whether their reports are escalating.
type Analyzer struct {
	logger     *slog.Logger
	window     int
	minHistory int
	alertRatio float64
}

// New creates an analyzer. window is the number of recent records
// inspected (default 10), minHistory the minimum records required
// for a verdict (default 3), and alertRatio the high-level ratio
// above which the recommendation becomes immediate intervention even
// without a rising trend (default 0.5).
func New(logger *slog.Logger, window, minHistory int, alertRatio float64) *Analyzer {
	if window <= 0 {
		window = 10
	}
	if minHistory < 2 {
		minHistory = 3
	}
	if alertRatio <= 0 {
		alertRatio = 0.5
	}
	return &Analyzer{logger: logger, window: window, minHistory: minHistory, alertRatio: alertRatio}
}

// Analyze evaluates the records of a single user, oldest first.
// With fewer than minHistory records the report is always
// non-escalating.
func (a *Analyzer) Analyze(userID string, records []model.ClassificationRecord) model.EscalationReport {
	if len(records) < a.minHistory {
		return model.EscalationReport{
			UserID:         userID,
			WindowSize:     len(records),
			Recommendation: RecommendInsufficientData,
		}
	}

	if len(records) > a.window {
		records = records[len(records)-a.window:]
	}

	levels := make([]int, len(records))
	for i, rec := range records {
		levels[i] = rec.Level
	}

	escalating := halfTransitionsRising(levels) || lastThreeRising(levels)
	ratio := highLevelRatio(levels)

	report := model.EscalationReport{
		UserID:         userID,
		Escalating:     escalating,
		WindowSize:     len(levels),
		Levels:         levels,
		HighLevelRatio: ratio,
		Recommendation: recommend(escalating, ratio, a.alertRatio),
	}

	if escalating {
		a.logger.Warn("escalation: pattern detected",
			"user_id", userID,
			"levels", levels,
			"high_level_ratio", ratio,
			"recommendation", report.Recommendation,
		)
	}
	return report
}

// halfTransitionsRising reports whether at least half of the
// consecutive level transitions strictly increase.
func halfTransitionsRising(levels []int) bool {
	transitions := len(levels) - 1
	if transitions == 0 {
		return false
	}
	var rising int
	for i := 1; i < len(levels); i++ {
		if levels[i] > levels[i-1] {
			rising++
		}
	}
	return rising*2 >= transitions
}

// lastThreeRising reports whether the last three levels are
// non-decreasing and end strictly above where they started.
func lastThreeRising(levels []int) bool {
	if len(levels) < 3 {
		return false
	}
	tail := levels[len(levels)-3:]
	return tail[0] <= tail[1] && tail[1] <= tail[2] && tail[2] > tail[0]
}

// highLevelRatio is the fraction of records at level 4 or above.
func highLevelRatio(levels []int) float64 {
	if len(levels) == 0 {
		return 0
	}
	var high int
	for _, lvl := range levels {
		if lvl >= 4 {
			high++
		}
	}
	return float64(high) / float64(len(levels))
}

// recommend maps the verdict to an action. A rising trend or a window
// dominated by high levels calls for intervention; a moderate
// concentration of high levels alone routes to senior support.
func recommend(escalating bool, ratio, alertRatio float64) string {
	switch {
	case escalating || ratio > alertRatio:
		return RecommendIntervention
	case ratio > seniorSupportRatio:
		return RecommendEscalate
	default:
		return RecommendMonitor
	}
}
