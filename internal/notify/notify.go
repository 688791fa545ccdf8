// Package notify delivers repeated-issue notices to the support channel.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// RepeatNotice describes a new report that matches a previously
// resolved incident.
type RepeatNotice struct {
	UserID      string
	UserEmail   string // empty when the user has no contact on file
	IncidentID  string // the resolved incident that recurred
	Description string
	Score       float64
}

// Notifier sends repeat notices out of the triage pipeline.
type Notifier interface {
	NotifyRepeatedIssue(ctx context.Context, notice RepeatNotice) error
}

// Noop discards all notices. Used when no channel is configured.
type Noop struct{}

func (Noop) NotifyRepeatedIssue(context.Context, RepeatNotice) error { return nil }

// Config holds SMTP settings for the mailer.
type Config struct {
	Host         string
	Port         int
	User         string
	Pass         string
	From         string
	SupportEmail string
}

// Mailer sends repeat notices over SMTP. With no host configured it
// logs the notice instead of sending (dev mode).
type Mailer struct {
	cfg    Config
	logger *slog.Logger
}

// NewMailer creates an SMTP notifier.
func NewMailer(cfg Config, logger *slog.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

// NotifyRepeatedIssue mails the support address about the recurrence.
func (m *Mailer) NotifyRepeatedIssue(ctx context.Context, notice RepeatNotice) error {
	subject, body := composeRepeatNotice(notice)

	if m.cfg.Host == "" {
		m.logger.Info("notify: repeated issue (dev mode — SMTP not configured)",
			"user_id", notice.UserID,
			"incident_id", notice.IncidentID,
			"score", notice.Score,
		)
		return nil
	}

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.cfg.From, m.cfg.SupportEmail, subject, body,
	)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{m.cfg.SupportEmail}, []byte(msg)); err != nil {
		return fmt.Errorf("notify: send repeat notice: %w", err)
	}

	m.logger.Info("notify: repeat notice sent",
		"user_id", notice.UserID, "incident_id", notice.IncidentID)
	return nil
}

func composeRepeatNotice(notice RepeatNotice) (subject, body string) {
	subject = fmt.Sprintf("Repeated issue: %s reported again by %s", notice.IncidentID, notice.UserID)
	body = fmt.Sprintf(
		"A previously resolved incident appears to have recurred.\r\n\r\n"+
			"User: %s\r\nResolved incident: %s\r\nSimilarity score: %.2f\r\n\r\nNew report:\r\n%s\r\n",
		notice.UserID, notice.IncidentID, notice.Score, notice.Description,
	)
	if notice.UserEmail != "" {
		body += fmt.Sprintf("\r\nUser contact: %s\r\n", notice.UserEmail)
	}
	return subject, body
}
