package triage

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/monban/internal/bus"
	"github.com/ashita-ai/monban/internal/classify"
	"github.com/ashita-ai/monban/internal/dedupe"
	"github.com/ashita-ai/monban/internal/escalation"
	"github.com/ashita-ai/monban/internal/model"
	"github.com/ashita-ai/monban/internal/notify"
	"github.com/ashita-ai/monban/internal/storage"
)

type recordingNotifier struct {
	notices []notify.RepeatNotice
}

func (r *recordingNotifier) NotifyRepeatedIssue(_ context.Context, n notify.RepeatNotice) error {
	r.notices = append(r.notices, n)
	return nil
}

type fixture struct {
	orch     *Orchestrator
	store    *storage.DB
	bus      *bus.Bus
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.Default()

	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "triage.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	b := bus.New(logger, 100)
	notifier := &recordingNotifier{}

	orch := New(
		db,
		classify.New(logger, 2),
		classify.NewHistory(20),
		dedupe.NewDetector(logger, 0.5, 0.6),
		escalation.New(logger, 10, 3, 0.5),
		b,
		notifier,
		logger,
	)
	return &fixture{orch: orch, store: db, bus: b, notifier: notifier}
}

func report(userID, description string) Request {
	return Request{
		UserID:       userID,
		Category:     model.CategorySoftware,
		Description:  description,
		DateObserved: "2026-08-27",
	}
}

func TestProcessReportCreatesIncident(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.orch.ProcessReport(ctx, report("u1", "the game has a bug and keeps freezing"))
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	require.NotNil(t, result.Incident)
	assert.Equal(t, "BUG-00001", result.Incident.ID)
	assert.Equal(t, 3, result.Incident.Level, "incident carries the classified level")
	assert.Equal(t, model.StatusOpen, result.Incident.Status)
	assert.NotEmpty(t, result.Incident.NormalizedHash)
	assert.Nil(t, result.Duplicate)
	assert.Nil(t, result.Repeated)

	events := f.bus.Events(nil, 0)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventClassificationComplete, events[0].Type)
	assert.Equal(t, model.EventIncidentCreated, events[1].Type)
}

func TestProcessReportEmptyDescription(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.ProcessReport(context.Background(), report("u1", "   "))

	assert.ErrorIs(t, err, model.ErrEmptyDescription)
	assert.Empty(t, f.bus.Events(nil, 0), "nothing is published for rejected input")
}

func TestProcessReportBlockedOnOpenDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.orch.ProcessReport(ctx, report("u1", "cannot login to my account"))
	require.NoError(t, err)
	require.Equal(t, StateDone, first.State)
	eventsBefore := len(f.bus.Events(nil, 0))

	second, err := f.orch.ProcessReport(ctx, report("u1", "unable to access my account"))
	require.NoError(t, err, "a blocked report is a normal outcome, not an error")

	assert.Equal(t, StateBlocked, second.State)
	assert.Nil(t, second.Incident)
	require.NotNil(t, second.Duplicate)
	assert.Equal(t, first.Incident.ID, second.Duplicate.Incident.ID)

	incidents, err := f.store.ListIncidents(ctx, "u1", "", 0)
	require.NoError(t, err)
	assert.Len(t, incidents, 1, "no second incident is persisted")
	assert.Len(t, f.bus.Events(nil, 0), eventsBefore, "a blocked report publishes nothing")
}

func TestProcessReportRepeatedIssueNotifiesSupport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.UpsertContact(ctx, model.Contact{UserID: "u1", Email: "u1@example.com"}))

	first, err := f.orch.ProcessReport(ctx, report("u1", "save file corrupted after update"))
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateStatus(ctx, "u1", first.Incident.ID, model.StatusResolved))

	second, err := f.orch.ProcessReport(ctx, report("u1", "save file corrupted after update again"))
	require.NoError(t, err)

	assert.Equal(t, StateDone, second.State, "a recurrence proceeds to creation")
	require.NotNil(t, second.Repeated)
	assert.Equal(t, first.Incident.ID, second.Repeated.Incident.ID)
	require.NotNil(t, second.Incident)

	require.Len(t, f.notifier.notices, 1)
	notice := f.notifier.notices[0]
	assert.Equal(t, "u1", notice.UserID)
	assert.Equal(t, first.Incident.ID, notice.IncidentID)
	assert.Equal(t, "u1@example.com", notice.UserEmail)

	// The created event carries the repeated flag.
	filter := model.EventIncidentCreated
	created := f.bus.Events(&filter, 0)
	payload := created[len(created)-1].Payload.(model.IncidentCreatedPayload)
	assert.True(t, payload.Repeated)
}

func TestProcessReportTimestampsHistory(t *testing.T) {
	f := newFixture(t)

	before := time.Now().UTC()
	_, err := f.orch.ProcessReport(context.Background(), report("u1", "the game has a bug and keeps freezing"))
	require.NoError(t, err)

	recs := f.orch.history.ForUser("u1")
	require.Len(t, recs, 1)
	assert.False(t, recs[0].RecordedAt.IsZero(), "history records carry their recording time")
	assert.False(t, recs[0].RecordedAt.Before(before))
}

func TestProcessReportEscalationDetected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Three reports with rising severity: level 1, then 3, then 5.
	_, err := f.orch.ProcessReport(ctx, report("u1", "how do I change settings"))
	require.NoError(t, err)
	_, err = f.orch.ProcessReport(ctx, report("u1", "the game has a bug and keeps freezing"))
	require.NoError(t, err)
	result, err := f.orch.ProcessReport(ctx, report("u1", "urgent emergency the server is down"))
	require.NoError(t, err)

	require.NotNil(t, result.Escalation)
	assert.True(t, result.Escalation.Escalating)

	filter := model.EventEscalationDetected
	events := f.bus.Events(&filter, 0)
	require.Len(t, events, 1)
	payload := events[0].Payload.(model.EscalationDetectedPayload)
	assert.Equal(t, "u1", payload.UserID)
	assert.Equal(t, []int{1, 3, 5}, payload.Levels)
}

func TestProcessReportBlockedDoesNotWedgePipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.ProcessReport(ctx, report("u1", "cannot login to my account"))
	require.NoError(t, err)

	blocked, err := f.orch.ProcessReport(ctx, report("u1", "cannot login to my account"))
	require.NoError(t, err)
	require.Equal(t, StateBlocked, blocked.State)

	// An unrelated report from the same user still goes through.
	after, err := f.orch.ProcessReport(ctx, report("u1", "the leaderboard shows wrong scores"))
	require.NoError(t, err)
	assert.Equal(t, StateDone, after.State)
	require.NotNil(t, after.Incident)
	assert.Equal(t, "BUG-00002", after.Incident.ID)
}

func TestProcessReportUsersAreIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.ProcessReport(ctx, report("alice", "cannot login to my account"))
	require.NoError(t, err)

	// The same complaint from another user is not a duplicate.
	result, err := f.orch.ProcessReport(ctx, report("bob", "cannot login to my account"))
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	require.NotNil(t, result.Incident)
	assert.Equal(t, "BUG-00001", result.Incident.ID)
}

func TestClassifyPassthrough(t *testing.T) {
	f := newFixture(t)

	c := f.orch.Classify("urgent emergency the server is down")
	assert.Equal(t, 5, c.Level)
}
