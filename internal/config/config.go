// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	MaxRequestBodyBytes int64 // Maximum request body size in bytes.

	// Store settings.
	DatabasePath string // SQLite file path; ":memory:" for ephemeral.

	// Triage settings.
	DefaultLevel               int     // Severity assigned when no rule matches.
	HistoryLimit               int     // Per-user classification history cap (FIFO).
	DuplicateOpenThreshold     float64 // Similarity above this against an open incident blocks creation.
	DuplicateResolvedThreshold float64 // Similarity above this against a resolved incident marks a recurrence.
	EscalationWindow           int     // Number of recent records the analyzer inspects.
	EscalationMinHistory       int     // Minimum records before the analyzer produces a verdict.
	HighLevelAlertRatio        float64 // High-level ratio at which the recommendation becomes immediate intervention.
	EventHistoryLimit          int     // Bus history ring size.

	// MetricsInterval is how often a MetricsUpdate event is published
	// on the bus. Zero disables the publisher.
	MetricsInterval time.Duration

	// SMTP settings for repeated-issue notifications.
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SupportEmail string // Destination for repeated-issue notices.

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel        string
	ShutdownTimeout time.Duration // Per-phase graceful shutdown budget.
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                       envInt("MONBAN_PORT", 8080),
		ReadTimeout:                envDuration("MONBAN_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:               envDuration("MONBAN_WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBodyBytes:        int64(envInt("MONBAN_MAX_REQUEST_BODY_BYTES", 1*1024*1024)), // 1 MB default
		DatabasePath:               envStr("MONBAN_DATABASE_PATH", "monban.db"),
		DefaultLevel:               envInt("MONBAN_DEFAULT_LEVEL", 2),
		HistoryLimit:               envInt("MONBAN_HISTORY_LIMIT", 20),
		DuplicateOpenThreshold:     envFloat("MONBAN_DUPLICATE_OPEN_THRESHOLD", 0.5),
		DuplicateResolvedThreshold: envFloat("MONBAN_DUPLICATE_RESOLVED_THRESHOLD", 0.6),
		EscalationWindow:           envInt("MONBAN_ESCALATION_WINDOW", 10),
		EscalationMinHistory:       envInt("MONBAN_ESCALATION_MIN_HISTORY", 3),
		HighLevelAlertRatio:        envFloat("MONBAN_HIGH_LEVEL_ALERT_RATIO", 0.5),
		EventHistoryLimit:          envInt("MONBAN_EVENT_HISTORY_LIMIT", 1000),
		MetricsInterval:            envDuration("MONBAN_METRICS_INTERVAL", 30*time.Second),
		SMTPHost:                   envStr("MONBAN_SMTP_HOST", ""),
		SMTPPort:                   envInt("MONBAN_SMTP_PORT", 587),
		SMTPUser:                   envStr("MONBAN_SMTP_USER", ""),
		SMTPPassword:               envStr("MONBAN_SMTP_PASSWORD", ""),
		SMTPFrom:                   envStr("MONBAN_SMTP_FROM", "noreply@monban.dev"),
		SupportEmail:               envStr("MONBAN_SUPPORT_EMAIL", "support@monban.dev"),
		OTELEndpoint:               envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:               envStr("OTEL_EXPORTER_OTLP_INSECURE", "") == "true",
		ServiceName:                envStr("OTEL_SERVICE_NAME", "monban"),
		LogLevel:                   envStr("MONBAN_LOG_LEVEL", "info"),
		ShutdownTimeout:            envDuration("MONBAN_SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that configuration values are internally consistent.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("config: MONBAN_DATABASE_PATH is required")
	}
	if c.DefaultLevel < 1 || c.DefaultLevel > 5 {
		return fmt.Errorf("config: MONBAN_DEFAULT_LEVEL must be between 1 and 5")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("config: MONBAN_HISTORY_LIMIT must be positive")
	}
	if c.DuplicateOpenThreshold <= 0 || c.DuplicateOpenThreshold > 1 {
		return fmt.Errorf("config: MONBAN_DUPLICATE_OPEN_THRESHOLD must be in (0, 1]")
	}
	if c.DuplicateResolvedThreshold <= 0 || c.DuplicateResolvedThreshold > 1 {
		return fmt.Errorf("config: MONBAN_DUPLICATE_RESOLVED_THRESHOLD must be in (0, 1]")
	}
	if c.EscalationMinHistory < 2 {
		return fmt.Errorf("config: MONBAN_ESCALATION_MIN_HISTORY must be at least 2")
	}
	if c.EscalationWindow < c.EscalationMinHistory {
		return fmt.Errorf("config: MONBAN_ESCALATION_WINDOW must be >= MONBAN_ESCALATION_MIN_HISTORY")
	}
	if c.EventHistoryLimit <= 0 {
		return fmt.Errorf("config: MONBAN_EVENT_HISTORY_LIMIT must be positive")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: MONBAN_MAX_REQUEST_BODY_BYTES must be positive")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
