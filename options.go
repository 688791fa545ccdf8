package monban

import "log/slog"

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	port         int
	databasePath string
	logger       *slog.Logger
	version      string
	notifier     Notifier
	eventHooks   []EventHook
}

// WithPort overrides the TCP port from config (MONBAN_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithDatabasePath overrides the SQLite file path from config
// (MONBAN_DATABASE_PATH env var). Use ":memory:" for an ephemeral store.
func WithDatabasePath(path string) Option {
	return func(o *resolvedOptions) { o.databasePath = path }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithNotifier replaces the built-in SMTP mailer for repeated-issue notices.
// Only the last call wins.
func WithNotifier(n Notifier) Option {
	return func(o *resolvedOptions) { o.notifier = n }
}

// WithEventHook registers an event hook to receive triage lifecycle
// notifications. Multiple hooks may be registered; all registered hooks
// receive every event.
func WithEventHook(hook EventHook) Option {
	return func(o *resolvedOptions) { o.eventHooks = append(o.eventHooks, hook) }
}
