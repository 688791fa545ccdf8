package dedupe

import (
	"log/slog"

	"github.com/ashita-ai/monban/internal/model"
)

// Match describes a similar existing incident found by the detector.
type Match struct {
	Incident model.Incident `json:"incident"`
	Score    float64        `json:"score"`
	Signals  Signals        `json:"signals"`
	Exact    bool           `json:"exact"`
}

// Detector finds duplicates among open incidents and recurrences
// among resolved ones. The two comparisons use separate thresholds:
// blocking a new report calls for more tolerance than flagging a
// resolved issue as returned.
type Detector struct {
	logger            *slog.Logger
	openThreshold     float64
	resolvedThreshold float64
}

// NewDetector creates a detector. Non-positive thresholds fall back
// to 0.5 (open) and 0.6 (resolved).
func NewDetector(logger *slog.Logger, openThreshold, resolvedThreshold float64) *Detector {
	if openThreshold <= 0 {
		openThreshold = 0.5
	}
	if resolvedThreshold <= 0 {
		resolvedThreshold = 0.6
	}
	return &Detector{
		logger:            logger,
		openThreshold:     openThreshold,
		resolvedThreshold: resolvedThreshold,
	}
}

// FindDuplicate checks description against open incidents. A score
// strictly above the open threshold, or an exact normalized-hash
// match, is a duplicate.
func (d *Detector) FindDuplicate(description string, open []model.Incident) (Match, bool) {
	match, ok := d.best(description, open, d.openThreshold)
	if ok {
		d.logger.Info("dedupe: duplicate of open incident",
			"incident_id", match.Incident.ID,
			"score", match.Score,
			"exact", match.Exact,
		)
	}
	return match, ok
}

// FindRecurrence checks description against resolved and closed
// incidents. A score strictly above the resolved threshold, or an
// exact hash match, marks the report as a recurrence.
func (d *Detector) FindRecurrence(description string, resolved []model.Incident) (Match, bool) {
	match, ok := d.best(description, resolved, d.resolvedThreshold)
	if ok {
		d.logger.Info("dedupe: recurrence of resolved incident",
			"incident_id", match.Incident.ID,
			"score", match.Score,
			"exact", match.Exact,
		)
	}
	return match, ok
}

// best scans candidates for the highest-scoring match above the
// threshold. An exact hash match wins immediately with score 1.0;
// equal scores break toward the most recently created incident.
func (d *Detector) best(description string, candidates []model.Incident, threshold float64) (Match, bool) {
	key := HashKey(description)

	var best Match
	var found bool
	for _, inc := range candidates {
		if inc.NormalizedHash != "" && inc.NormalizedHash == key {
			return Match{Incident: inc, Score: 1.0, Exact: true}, true
		}

		sig := Score(description, inc.Description)
		total := sig.Total()
		if total <= threshold {
			continue
		}
		if !found || total > best.Score ||
			(total == best.Score && inc.CreatedAt.After(best.Incident.CreatedAt)) {
			best = Match{Incident: inc, Score: total, Signals: sig}
			found = true
		}
	}
	return best, found
}
