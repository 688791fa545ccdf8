// Package triage orchestrates the decision pipeline around incident
// creation: severity classification, duplicate and recurrence
// checks, persistence, and escalation analysis.
package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashita-ai/monban/internal/bus"
	"github.com/ashita-ai/monban/internal/classify"
	"github.com/ashita-ai/monban/internal/dedupe"
	"github.com/ashita-ai/monban/internal/escalation"
	"github.com/ashita-ai/monban/internal/model"
	"github.com/ashita-ai/monban/internal/notify"
	"github.com/ashita-ai/monban/internal/storage"
)

// State names one step of the report pipeline. Each request runs its
// own pipeline; state is never shared between requests, so a blocked
// or failed report cannot wedge later ones.
type State string

const (
	StateIdle       State = "idle"
	StatePreCheck   State = "pre_check"
	StateBlocked    State = "blocked"
	StateProceeding State = "proceeding"
	StateCreated    State = "created"
	StatePostCheck  State = "post_check"
	StateDone       State = "done"
)

// Store is the incident persistence the orchestrator needs.
// *storage.DB satisfies it.
type Store interface {
	CreateIncident(ctx context.Context, inc model.Incident) (model.Incident, error)
	OpenIncidents(ctx context.Context, userID string) ([]model.Incident, error)
	ResolvedIncidents(ctx context.Context, userID string) ([]model.Incident, error)
	GetContact(ctx context.Context, userID string) (model.Contact, error)
}

// Request is one incoming issue report.
type Request struct {
	UserID       string
	Category     model.Category
	Description  string
	DateObserved string
}

// Result is the pipeline outcome. State is StateBlocked when an open
// duplicate stopped creation, otherwise StateDone.
type Result struct {
	State          State                   `json:"state"`
	Classification model.Classification    `json:"classification"`
	Incident       *model.Incident         `json:"incident,omitempty"`
	Duplicate      *dedupe.Match           `json:"duplicate,omitempty"`
	Repeated       *dedupe.Match           `json:"repeated,omitempty"`
	Escalation     *model.EscalationReport `json:"escalation,omitempty"`
}

const source = "triage"

// Orchestrator wires the decision components together.
type Orchestrator struct {
	store      Store
	classifier *classify.Classifier
	history    *classify.History
	detector   *dedupe.Detector
	analyzer   *escalation.Analyzer
	bus        *bus.Bus
	notifier   notify.Notifier
	logger     *slog.Logger
}

// New creates an orchestrator. A nil notifier falls back to the noop
// implementation.
func New(
	store Store,
	classifier *classify.Classifier,
	history *classify.History,
	detector *dedupe.Detector,
	analyzer *escalation.Analyzer,
	b *bus.Bus,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Orchestrator {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Orchestrator{
		store:      store,
		classifier: classifier,
		history:    history,
		detector:   detector,
		analyzer:   analyzer,
		bus:        b,
		notifier:   notifier,
		logger:     logger,
	}
}

// Classify runs severity classification without the rest of the
// pipeline.
func (o *Orchestrator) Classify(text string) model.Classification {
	return o.classifier.Classify(text)
}

// ProcessReport runs the full pipeline for one report. A duplicate of
// an open incident yields StateBlocked with the match attached; that
// is a normal outcome, not an error. Errors are reserved for invalid
// input and store failures.
func (o *Orchestrator) ProcessReport(ctx context.Context, req Request) (Result, error) {
	state := StateIdle
	o.transition(&state, StatePreCheck, req.UserID)

	if strings.TrimSpace(req.Description) == "" {
		return Result{State: state}, model.ErrEmptyDescription
	}

	result := Result{Classification: o.classifier.Classify(req.Description)}

	// Duplicate check against the user's open incidents.
	open, err := o.store.OpenIncidents(ctx, req.UserID)
	if err != nil {
		return result, fmt.Errorf("triage: load open incidents: %w", err)
	}
	if match, ok := o.detector.FindDuplicate(req.Description, open); ok {
		o.transition(&state, StateBlocked, req.UserID)
		result.State = state
		result.Duplicate = &match
		return result, nil
	}

	// Recurrence check against resolved incidents. A hit does not
	// block; it flags the report and notifies support.
	resolved, err := o.store.ResolvedIncidents(ctx, req.UserID)
	if err != nil {
		return result, fmt.Errorf("triage: load resolved incidents: %w", err)
	}
	if match, ok := o.detector.FindRecurrence(req.Description, resolved); ok {
		result.Repeated = &match
		o.sendRepeatNotice(ctx, req, match)
	}

	rec := model.ClassificationRecord{
		UserID:     req.UserID,
		Text:       req.Description,
		Level:      result.Classification.Level,
		Confidence: result.Classification.Confidence,
		RecordedAt: time.Now().UTC(),
	}
	o.history.Record(rec)
	o.bus.Publish(ctx, model.Event{
		Type:   model.EventClassificationComplete,
		Source: source,
		Payload: model.ClassificationCompletePayload{
			UserID:     req.UserID,
			Text:       req.Description,
			Level:      result.Classification.Level,
			Confidence: result.Classification.Confidence,
			Reasoning:  result.Classification.Reasoning,
		},
	})

	o.transition(&state, StateProceeding, req.UserID)

	inc, err := o.store.CreateIncident(ctx, model.Incident{
		UserID:         req.UserID,
		Category:       req.Category,
		Description:    req.Description,
		DateObserved:   req.DateObserved,
		Level:          result.Classification.Level,
		Status:         model.StatusOpen,
		NormalizedHash: dedupe.HashKey(req.Description),
	})
	if err != nil {
		return result, fmt.Errorf("triage: create incident: %w", err)
	}
	result.Incident = &inc
	o.transition(&state, StateCreated, req.UserID)

	o.transition(&state, StatePostCheck, req.UserID)
	report := o.analyzer.Analyze(req.UserID, o.history.ForUser(req.UserID))
	result.Escalation = &report
	if report.Escalating {
		o.bus.Publish(ctx, model.Event{
			Type:   model.EventEscalationDetected,
			Source: source,
			Payload: model.EscalationDetectedPayload{
				UserID:         report.UserID,
				WindowSize:     report.WindowSize,
				Levels:         report.Levels,
				HighLevelRatio: report.HighLevelRatio,
				Recommendation: report.Recommendation,
			},
		})
	}

	o.bus.Publish(ctx, model.Event{
		Type:   model.EventIncidentCreated,
		Source: source,
		Payload: model.IncidentCreatedPayload{
			IncidentID: inc.ID,
			UserID:     inc.UserID,
			Category:   inc.Category,
			Level:      inc.Level,
			Repeated:   result.Repeated != nil,
		},
	})

	o.transition(&state, StateDone, req.UserID)
	result.State = state
	return result, nil
}

// sendRepeatNotice notifies support about a recurrence. Failures are
// logged; notification must never fail the report.
func (o *Orchestrator) sendRepeatNotice(ctx context.Context, req Request, match dedupe.Match) {
	notice := notify.RepeatNotice{
		UserID:      req.UserID,
		IncidentID:  match.Incident.ID,
		Description: req.Description,
		Score:       match.Score,
	}
	if contact, err := o.store.GetContact(ctx, req.UserID); err == nil {
		notice.UserEmail = contact.Email
	} else if !errors.Is(err, storage.ErrNotFound) {
		o.logger.Warn("triage: contact lookup failed", "user_id", req.UserID, "error", err)
	}

	if err := o.notifier.NotifyRepeatedIssue(ctx, notice); err != nil {
		o.logger.Error("triage: repeat notice failed",
			"user_id", req.UserID,
			"incident_id", match.Incident.ID,
			"error", err,
		)
	}
}

func (o *Orchestrator) transition(state *State, next State, userID string) {
	o.logger.Debug("triage: state transition",
		"from", string(*state), "to", string(next), "user_id", userID)
	*state = next
}
