package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/monban/internal/bus"
	"github.com/ashita-ai/monban/internal/classify"
	"github.com/ashita-ai/monban/internal/dedupe"
	"github.com/ashita-ai/monban/internal/escalation"
	"github.com/ashita-ai/monban/internal/model"
	"github.com/ashita-ai/monban/internal/notify"
	"github.com/ashita-ai/monban/internal/storage"
	"github.com/ashita-ai/monban/internal/triage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.Default()

	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "server.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	b := bus.New(logger, 100)
	orch := triage.New(
		db,
		classify.New(logger, 2),
		classify.NewHistory(20),
		dedupe.NewDetector(logger, 0.5, 0.6),
		escalation.New(logger, 10, 3, 0.5),
		b,
		notify.Noop{},
		logger,
	)

	return New(ServerConfig{
		DB:                  db,
		Orchestrator:        orch,
		Bus:                 b,
		Logger:              logger,
		Version:             "test",
		MaxRequestBodyBytes: 1 << 20,
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, target))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) model.ErrorDetail {
	t.Helper()
	var envelope struct {
		Error model.ErrorDetail `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error
}

func createReport(t *testing.T, s *Server, userID, description string) triage.Result {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/v1/reports", model.CreateReportRequest{
		UserID:      userID,
		Category:    "software",
		Description: description,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var result triage.Result
	decodeData(t, rec, &result)
	return result
}

func TestHandleCreateReport(t *testing.T) {
	s := newTestServer(t)

	result := createReport(t, s, "u1", "the game has a bug and keeps freezing")

	assert.Equal(t, triage.StateDone, result.State)
	require.NotNil(t, result.Incident)
	assert.Equal(t, "BUG-00001", result.Incident.ID)
	assert.Equal(t, 3, result.Incident.Level)
	assert.NotEmpty(t, result.Incident.DateObserved, "empty date_observed defaults to today")
}

func TestHandleCreateReportDuplicateConflict(t *testing.T) {
	s := newTestServer(t)

	createReport(t, s, "u1", "cannot login to my account")

	rec := doJSON(t, s, http.MethodPost, "/v1/reports", model.CreateReportRequest{
		UserID:      "u1",
		Category:    "account",
		Description: "unable to access my account",
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, model.ErrCodeDuplicate, detail.Code)
	assert.NotNil(t, detail.Details, "conflict carries the pipeline result")
}

func TestHandleCreateReportValidation(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]model.CreateReportRequest{
		"missing user":      {Category: "software", Description: "it broke"},
		"bad category":      {UserID: "u1", Category: "hardware", Description: "it broke"},
		"empty description": {UserID: "u1", Category: "software", Description: "   "},
		"vague date":        {UserID: "u1", Category: "software", Description: "it broke", DateObserved: "recently"},
	}

	for name, req := range cases {
		rec := doJSON(t, s, http.MethodPost, "/v1/reports", req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		assert.Equal(t, model.ErrCodeInvalidInput, decodeError(t, rec).Code, name)
	}
}

func TestHandleCreateReportDateErrors(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/v1/reports", model.CreateReportRequest{
		UserID: "u1", Category: "software", Description: "it broke", DateObserved: "recently",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "too vague")

	// A day count that overflows int is malformed, not vague.
	rec = doJSON(t, s, http.MethodPost, "/v1/reports", model.CreateReportRequest{
		UserID: "u1", Category: "software", Description: "it broke", DateObserved: "99999999999999999999 days ago",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	detail := decodeError(t, rec)
	assert.Contains(t, detail.Message, "invalid date_observed")
	assert.NotContains(t, detail.Message, "too vague")
}

func TestHandleCreateReportUnknownField(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/v1/reports", map[string]any{
		"user_id": "u1", "category": "software", "description": "x", "bogus": true,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleClassify(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/v1/classify", model.ClassifyRequest{
		Text: "urgent emergency the server is down",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var c model.Classification
	decodeData(t, rec, &c)
	assert.Equal(t, 5, c.Level)
	assert.InDelta(t, 1.0, c.Confidence, 0.001)
}

func TestHandleListIncidents(t *testing.T) {
	s := newTestServer(t)

	createReport(t, s, "u1", "the leaderboard shows wrong scores")
	createReport(t, s, "u1", "cannot login to my account")
	createReport(t, s, "u2", "payment went through twice")

	rec := doJSON(t, s, http.MethodGet, "/v1/incidents?user_id=u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data  []model.Incident `json:"data"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Total)
	for _, inc := range envelope.Data {
		assert.Equal(t, "u1", inc.UserID)
	}
}

func TestHandleListIncidentsRequiresUser(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/v1/incidents", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetIncident(t *testing.T) {
	s := newTestServer(t)
	created := createReport(t, s, "u1", "the game has a bug and keeps freezing")

	rec := doJSON(t, s, http.MethodGet, "/v1/incidents/"+created.Incident.ID+"?user_id=u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var inc model.Incident
	decodeData(t, rec, &inc)
	assert.Equal(t, created.Incident.ID, inc.ID)

	rec = doJSON(t, s, http.MethodGet, "/v1/incidents/BUG-00099?user_id=u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, model.ErrCodeNotFound, decodeError(t, rec).Code)
}

func TestHandleUpdateStatus(t *testing.T) {
	s := newTestServer(t)
	created := createReport(t, s, "u1", "the game has a bug and keeps freezing")

	rec := doJSON(t, s, http.MethodPost, "/v1/incidents/"+created.Incident.ID+"/status", model.UpdateStatusRequest{
		UserID: "u1",
		Status: "resolved",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/v1/incidents/"+created.Incident.ID+"?user_id=u1", nil)
	var inc model.Incident
	decodeData(t, rec, &inc)
	assert.Equal(t, model.StatusResolved, inc.Status)
}

func TestHandleUpdateStatusNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/v1/incidents/BUG-00042/status", model.UpdateStatusRequest{
		UserID: "u1",
		Status: "closed",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSetContact(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPut, "/v1/contacts/u1", model.SetContactRequest{
		Email: "u1@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var contact model.Contact
	decodeData(t, rec, &contact)
	assert.Equal(t, "u1", contact.UserID)
	assert.Equal(t, "u1@example.com", contact.Email)
}

func TestHandleListEvents(t *testing.T) {
	s := newTestServer(t)

	createReport(t, s, "u1", "the game has a bug and keeps freezing")

	rec := doJSON(t, s, http.MethodGet, "/v1/events?type=IncidentCreated", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data  []json.RawMessage `json:"data"`
		Total int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 1, envelope.Total)
}

func TestHandleMetrics(t *testing.T) {
	s := newTestServer(t)

	createReport(t, s, "u1", "the game has a bug and keeps freezing")

	rec := doJSON(t, s, http.MethodGet, "/v1/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var metrics bus.Metrics
	decodeData(t, rec, &metrics)
	assert.Equal(t, int64(2), metrics.TotalEvents)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.HealthResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "ok", resp.Store)
}
