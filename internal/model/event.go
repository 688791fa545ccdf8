package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the category of a triage event.
type EventType string

const (
	EventClassificationComplete EventType = "ClassificationComplete"
	EventEscalationDetected     EventType = "EscalationDetected"
	EventIncidentCreated        EventType = "IncidentCreated"
	EventMetricsUpdate          EventType = "MetricsUpdate"
)

// EventPayload is implemented by the closed set of payload types
// below. Subscribers type-switch on the concrete payload rather than
// digging through loose maps.
type EventPayload interface {
	EventType() EventType
}

// Event is one record on the in-process bus. Events are never
// mutated after publish.
type Event struct {
	ID            uuid.UUID    `json:"id"`
	Type          EventType    `json:"type"`
	Source        string       `json:"source"`
	Target        *string      `json:"target,omitempty"`
	CorrelationID *uuid.UUID   `json:"correlation_id,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
	Payload       EventPayload `json:"payload"`
}

// ClassificationCompletePayload is the payload for ClassificationComplete events.
type ClassificationCompletePayload struct {
	UserID     string  `json:"user_id"`
	Text       string  `json:"text"`
	Level      int     `json:"level"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

func (ClassificationCompletePayload) EventType() EventType { return EventClassificationComplete }

// EscalationDetectedPayload is the payload for EscalationDetected events.
type EscalationDetectedPayload struct {
	UserID         string  `json:"user_id"`
	WindowSize     int     `json:"window_size"`
	Levels         []int   `json:"levels"`
	HighLevelRatio float64 `json:"high_level_ratio"`
	Recommendation string  `json:"recommendation"`
}

func (EscalationDetectedPayload) EventType() EventType { return EventEscalationDetected }

// IncidentCreatedPayload is the payload for IncidentCreated events.
type IncidentCreatedPayload struct {
	IncidentID string   `json:"incident_id"`
	UserID     string   `json:"user_id"`
	Category   Category `json:"category"`
	Level      int      `json:"level"`
	Repeated   bool     `json:"repeated"`
}

func (IncidentCreatedPayload) EventType() EventType { return EventIncidentCreated }

// MetricsUpdatePayload is the payload for MetricsUpdate events.
type MetricsUpdatePayload struct {
	TotalEvents   int64               `json:"total_events"`
	EventsByType  map[EventType]int64 `json:"events_by_type"`
	LastEventTime time.Time           `json:"last_event_time"`
}

func (MetricsUpdatePayload) EventType() EventType { return EventMetricsUpdate }
