package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ashita-ai/monban/internal/bus"
	"github.com/ashita-ai/monban/internal/datetext"
	"github.com/ashita-ai/monban/internal/model"
	"github.com/ashita-ai/monban/internal/storage"
	"github.com/ashita-ai/monban/internal/triage"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	db                  *storage.DB
	orchestrator        *triage.Orchestrator
	bus                 *bus.Bus
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
}

// HandlersDeps holds all dependencies for constructing Handlers.
type HandlersDeps struct {
	DB                  *storage.DB
	Orchestrator        *triage.Orchestrator
	Bus                 *bus.Bus
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		db:                  d.DB,
		orchestrator:        d.Orchestrator,
		bus:                 d.Bus,
		logger:              d.Logger,
		startedAt:           time.Now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
	}
}

// HandleCreateReport handles POST /v1/reports. A duplicate of an open
// incident is answered with 409 and the existing incident; the report
// is not filed twice.
func (h *Handlers) HandleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req model.CreateReportRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "user_id is required")
		return
	}

	category, err := model.ParseCategory(req.Category)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	dateObserved, err := datetext.Resolve(req.DateObserved, time.Now())
	if err != nil {
		if errors.Is(err, datetext.ErrVague) {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
				"date_observed is too vague; provide a specific date such as \"yesterday\", \"3 days ago\", or 2026-08-01")
			return
		}
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid date_observed: "+err.Error())
		return
	}

	result, err := h.orchestrator.ProcessReport(r.Context(), triage.Request{
		UserID:       req.UserID,
		Category:     category,
		Description:  req.Description,
		DateObserved: dateObserved,
	})
	if err != nil {
		if errors.Is(err, model.ErrEmptyDescription) {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "description must not be empty")
			return
		}
		h.logger.Error("create report failed", "user_id", req.UserID, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to process report")
		return
	}

	if result.State == triage.StateBlocked {
		writeJSONError(w, r, http.StatusConflict, model.ErrorDetail{
			Code:    model.ErrCodeDuplicate,
			Message: "a similar incident is already open for this user",
			Details: result,
		})
		return
	}

	writeJSON(w, r, http.StatusCreated, result)
}

// HandleClassify handles POST /v1/classify. Classification only; no
// incident is filed and no history is recorded.
func (h *Handlers) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req model.ClassifyRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}

	writeJSON(w, r, http.StatusOK, h.orchestrator.Classify(req.Text))
}

// HandleListIncidents handles GET /v1/incidents?user_id=&status=&limit=.
func (h *Handlers) HandleListIncidents(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "user_id query parameter is required")
		return
	}

	var status model.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := model.ParseStatus(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
			return
		}
		status = parsed
	}

	limit := queryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}

	incidents, err := h.db.ListIncidents(r.Context(), userID, status, limit)
	if err != nil {
		h.logger.Error("list incidents failed", "user_id", userID, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to list incidents")
		return
	}

	writeList(w, r, incidents, len(incidents), limit)
}

// HandleGetIncident handles GET /v1/incidents/{incident_id}?user_id=.
func (h *Handlers) HandleGetIncident(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "user_id query parameter is required")
		return
	}
	incidentID := r.PathValue("incident_id")

	inc, err := h.db.GetIncident(r.Context(), userID, incidentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "incident not found")
			return
		}
		h.logger.Error("get incident failed", "user_id", userID, "incident_id", incidentID, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to load incident")
		return
	}

	writeJSON(w, r, http.StatusOK, inc)
}

// HandleUpdateStatus handles POST /v1/incidents/{incident_id}/status.
func (h *Handlers) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateStatusRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "user_id is required")
		return
	}

	status, err := model.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	incidentID := r.PathValue("incident_id")
	if err := h.db.UpdateStatus(r.Context(), req.UserID, incidentID, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "incident not found")
			return
		}
		h.logger.Error("update status failed", "user_id", req.UserID, "incident_id", incidentID, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to update status")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"incident_id": incidentID,
		"user_id":     req.UserID,
		"status":      status,
	})
}

// HandleSetContact handles PUT /v1/contacts/{user_id}.
func (h *Handlers) HandleSetContact(w http.ResponseWriter, r *http.Request) {
	var req model.SetContactRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if req.Email == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "email is required")
		return
	}

	contact := model.Contact{UserID: r.PathValue("user_id"), Email: req.Email}
	if err := h.db.UpsertContact(r.Context(), contact); err != nil {
		h.logger.Error("set contact failed", "user_id", contact.UserID, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to save contact")
		return
	}

	writeJSON(w, r, http.StatusOK, contact)
}

// HandleListEvents handles GET /v1/events?type=&limit=.
func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	var filter *model.EventType
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := model.EventType(raw)
		filter = &t
	}

	limit := queryInt(r, "limit", 50)
	events := h.bus.Events(filter, limit)
	writeList(w, r, events, len(events), limit)
}

// HandleMetrics handles GET /v1/metrics with event bus counters.
func (h *Handlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.bus.Metrics())
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := model.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Store:   "ok",
		Uptime:  int64(time.Since(h.startedAt).Seconds()),
	}

	status := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("health check store ping failed", "error", err)
		resp.Status = "degraded"
		resp.Store = "unavailable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, r, status, resp)
}

// queryInt reads an integer query parameter, falling back to def on
// absence or garbage.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
