package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/monban/internal/datetext"
	"github.com/ashita-ai/monban/internal/model"
	"github.com/ashita-ai/monban/internal/storage"
	"github.com/ashita-ai/monban/internal/triage"
)

func (s *Server) registerTools() {
	// report_issue — file a new issue report through the full pipeline.
	s.mcpServer.AddTool(
		mcplib.NewTool("report_issue",
			mcplib.WithDescription(`File a support issue on behalf of a user.

WHEN TO USE: Whenever a user describes a problem with the product,
their account, or the platform. The report runs the full triage
pipeline: severity classification, duplicate detection against the
user's open incidents, and recurrence detection against resolved ones.

A duplicate of an open incident is NOT filed again; the result names
the existing incident so you can tell the user it is already being
worked on. A recurrence of a resolved incident IS filed and support
is notified automatically.

EXAMPLE: user says "I can't log in since yesterday" →
report_issue(user_id="u-42", category="account",
description="cannot log in to my account", date_observed="yesterday")

date_observed accepts natural phrases ("yesterday", "3 days ago",
"last monday") and calendar dates. If the phrase is too vague to pin
to a day the tool asks you to get a specific date from the user.`),
			mcplib.WithString("user_id",
				mcplib.Description("Identifier of the reporting user"),
				mcplib.Required(),
			),
			mcplib.WithString("category",
				mcplib.Description("Issue category: software, platform, account, or other"),
				mcplib.Required(),
			),
			mcplib.WithString("description",
				mcplib.Description("What the user reported, in their own words"),
				mcplib.Required(),
			),
			mcplib.WithString("date_observed",
				mcplib.Description("When the problem was observed; natural language or YYYY-MM-DD. Defaults to today."),
			),
		),
		s.handleReportIssue,
	)

	// list_reports — a user's incidents.
	s.mcpServer.AddTool(
		mcplib.NewTool("list_reports",
			mcplib.WithDescription(`List a user's filed incidents, newest first.

WHEN TO USE: When a user asks about the status of their reports, or
before filing to see what is already open. Optionally filter by
status (open, in progress, resolved, closed).`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("user_id",
				mcplib.Description("Identifier of the user whose incidents to list"),
				mcplib.Required(),
			),
			mcplib.WithString("status",
				mcplib.Description("Optional: only show incidents with this status (open, in progress, resolved, closed)"),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum results to return"),
				mcplib.Min(1),
				mcplib.Max(100),
				mcplib.DefaultNumber(10),
			),
		),
		s.handleListReports,
	)

	// update_report_status — move an incident through its lifecycle.
	s.mcpServer.AddTool(
		mcplib.NewTool("update_report_status",
			mcplib.WithDescription(`Update the lifecycle status of a user's incident.

WHEN TO USE: When support resolves or closes an issue, or starts
working on it. Incident IDs are per user, so both user_id and
incident_id are required.

EXAMPLE: update_report_status(user_id="u-42", incident_id="BUG-00003",
status="resolved")`),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("user_id",
				mcplib.Description("Identifier of the incident's owner"),
				mcplib.Required(),
			),
			mcplib.WithString("incident_id",
				mcplib.Description("Incident identifier, e.g. BUG-00003"),
				mcplib.Required(),
			),
			mcplib.WithString("status",
				mcplib.Description("New status: open, in progress, resolved, or closed"),
				mcplib.Required(),
			),
		),
		s.handleUpdateReportStatus,
	)

	// classify_text — severity classification without filing anything.
	s.mcpServer.AddTool(
		mcplib.NewTool("classify_text",
			mcplib.WithDescription(`Classify the severity of an issue description without filing a report.

WHEN TO USE: To preview how urgent a problem is before deciding what
to do, or to explain to a user why their issue was triaged at a given
level. Returns the level (1 lowest to 5 highest), a confidence score,
and the matched indicators.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("text",
				mcplib.Description("Issue description to classify"),
				mcplib.Required(),
			),
		),
		s.handleClassifyText,
	)

	// set_contact_email — where repeat-issue notices mention the user.
	s.mcpServer.AddTool(
		mcplib.NewTool("set_contact_email",
			mcplib.WithDescription(`Record or update a user's contact email.

WHEN TO USE: When a user provides or corrects their email address.
The address is included in the notices support receives when the
user's resolved issues come back.`),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("user_id",
				mcplib.Description("Identifier of the user"),
				mcplib.Required(),
			),
			mcplib.WithString("email",
				mcplib.Description("Contact email address"),
				mcplib.Required(),
			),
		),
		s.handleSetContactEmail,
	)
}

func (s *Server) handleReportIssue(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	userID := request.GetString("user_id", "")
	if userID == "" {
		return errorResult("user_id is required"), nil
	}

	category, err := model.ParseCategory(request.GetString("category", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid category: %v", err)), nil
	}

	description := request.GetString("description", "")
	if description == "" {
		return errorResult("description is required"), nil
	}

	dateObserved, err := datetext.Resolve(request.GetString("date_observed", ""), time.Now())
	if err != nil {
		if errors.Is(err, datetext.ErrVague) {
			return errorResult("date_observed is too vague to record; please ask the user for a specific date (e.g. \"yesterday\", \"3 days ago\", or 2026-08-01) and retry"), nil
		}
		return errorResult(fmt.Sprintf("invalid date_observed: %v", err)), nil
	}

	result, err := s.orchestrator.ProcessReport(ctx, triage.Request{
		UserID:       userID,
		Category:     category,
		Description:  description,
		DateObserved: dateObserved,
	})
	if err != nil {
		if errors.Is(err, model.ErrEmptyDescription) {
			return errorResult("description must not be empty"), nil
		}
		return errorResult(fmt.Sprintf("failed to process report: %v", err)), nil
	}

	if result.State == triage.StateBlocked {
		return jsonResult(map[string]any{
			"status":            "duplicate",
			"message":           fmt.Sprintf("This matches open incident %s; no new incident was filed. Tell the user it is already being worked on.", result.Duplicate.Incident.ID),
			"existing_incident": result.Duplicate.Incident,
			"similarity":        result.Duplicate.Score,
		}), nil
	}

	resp := map[string]any{
		"status":         "created",
		"incident":       result.Incident,
		"classification": result.Classification,
	}
	if result.Repeated != nil {
		resp["repeated_issue"] = map[string]any{
			"resolved_incident_id": result.Repeated.Incident.ID,
			"similarity":           result.Repeated.Score,
			"note":                 "this issue came back after being resolved; support has been notified",
		}
	}
	if result.Escalation != nil && result.Escalation.Escalating {
		resp["escalation"] = result.Escalation
	}
	return jsonResult(resp), nil
}

func (s *Server) handleListReports(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	userID := request.GetString("user_id", "")
	if userID == "" {
		return errorResult("user_id is required"), nil
	}

	var status model.Status
	if raw := request.GetString("status", ""); raw != "" {
		parsed, err := model.ParseStatus(raw)
		if err != nil {
			return errorResult(fmt.Sprintf("invalid status: %v", err)), nil
		}
		status = parsed
	}

	limit := request.GetInt("limit", 10)

	incidents, err := s.store.ListIncidents(ctx, userID, status, limit)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list incidents: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"user_id":   userID,
		"incidents": incidents,
		"total":     len(incidents),
	}), nil
}

func (s *Server) handleUpdateReportStatus(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	userID := request.GetString("user_id", "")
	incidentID := request.GetString("incident_id", "")
	if userID == "" || incidentID == "" {
		return errorResult("user_id and incident_id are required"), nil
	}

	status, err := model.ParseStatus(request.GetString("status", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("invalid status: %v", err)), nil
	}

	if err := s.store.UpdateStatus(ctx, userID, incidentID, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errorResult(fmt.Sprintf("incident %s not found for user %s", incidentID, userID)), nil
		}
		return errorResult(fmt.Sprintf("failed to update status: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"incident_id": incidentID,
		"user_id":     userID,
		"status":      status,
	}), nil
}

func (s *Server) handleClassifyText(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	text := request.GetString("text", "")
	if text == "" {
		return errorResult("text is required"), nil
	}

	return jsonResult(s.orchestrator.Classify(text)), nil
}

func (s *Server) handleSetContactEmail(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	userID := request.GetString("user_id", "")
	email := request.GetString("email", "")
	if userID == "" || email == "" {
		return errorResult("user_id and email are required"), nil
	}

	if err := s.store.UpsertContact(ctx, model.Contact{UserID: userID, Email: email}); err != nil {
		return errorResult(fmt.Sprintf("failed to save contact: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"user_id": userID,
		"email":   email,
		"status":  "saved",
	}), nil
}
