package monban

import "context"

// Notifier delivers repeated-issue notices to support. When provided
// via WithNotifier it replaces the built-in SMTP mailer. Failures are
// logged but never fail the originating report.
type Notifier interface {
	NotifyRepeatedIssue(ctx context.Context, notice RepeatNotice) error
}

// EventHook receives async notifications when triage events occur.
// Multiple hooks may be registered via multiple WithEventHook calls.
// Hook methods run in goroutines — they must not block indefinitely.
// Failures are logged but do not fail the originating request.
type EventHook interface {
	OnIncidentCreated(ctx context.Context, event IncidentEvent) error
	OnEscalationDetected(ctx context.Context, event EscalationEvent) error
}
