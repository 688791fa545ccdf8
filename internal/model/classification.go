package model

import "time"

// Classification is the outcome of severity classification for one
// piece of issue text. Level runs 1 (informational) to 5 (critical).
type Classification struct {
	Level           int      `json:"level"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	MatchedPatterns []string `json:"matched_patterns,omitempty"`
}

// ClassificationRecord is one entry in a user's classification
// history, consumed by the escalation analyzer.
type ClassificationRecord struct {
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	Level      int       `json:"level"`
	Confidence float64   `json:"confidence"`
	RecordedAt time.Time `json:"recorded_at"`
}

// EscalationReport is the analyzer's verdict over a user's recent
// classification window.
type EscalationReport struct {
	UserID         string  `json:"user_id"`
	Escalating     bool    `json:"escalating"`
	WindowSize     int     `json:"window_size"`
	Levels         []int   `json:"levels"`
	HighLevelRatio float64 `json:"high_level_ratio"`
	Recommendation string  `json:"recommendation"`
}
