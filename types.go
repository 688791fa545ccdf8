package monban

// RepeatNotice describes a resolved issue that came back. Passed to
// Notifier implementations registered with WithNotifier.
type RepeatNotice struct {
	UserID      string
	UserEmail   string // empty when the user has no contact on file
	IncidentID  string // the resolved incident that recurred
	Description string
	Score       float64
}

// IncidentEvent is the public shape of an incident-created event
// delivered to EventHook implementations.
type IncidentEvent struct {
	IncidentID string
	UserID     string
	Category   string
	Level      int
	Repeated   bool
}

// EscalationEvent is the public shape of an escalation verdict
// delivered to EventHook implementations.
type EscalationEvent struct {
	UserID         string
	WindowSize     int
	Levels         []int
	HighLevelRatio float64
	Recommendation string
}
