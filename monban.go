// Package monban is the public API for embedding the Monban support
// triage server.
//
// Consumers import this package to construct and extend the server
// without forking it:
//
//	app, err := monban.New(
//	    monban.WithVersion(version),
//	    monban.WithLogger(logger),
//	    monban.WithEventHook(myPagerHook{}),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: monban (root)
// imports internal/*, but internal/* never imports monban (root).
// Public types (RepeatNotice, IncidentEvent, etc.) are standalone
// structs with no internal imports; the adapters live here because
// this is the only file that sees both sides of the boundary.
package monban

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/monban/internal/bus"
	"github.com/ashita-ai/monban/internal/classify"
	"github.com/ashita-ai/monban/internal/config"
	"github.com/ashita-ai/monban/internal/dedupe"
	"github.com/ashita-ai/monban/internal/escalation"
	"github.com/ashita-ai/monban/internal/mcp"
	"github.com/ashita-ai/monban/internal/model"
	"github.com/ashita-ai/monban/internal/notify"
	"github.com/ashita-ai/monban/internal/server"
	"github.com/ashita-ai/monban/internal/storage"
	"github.com/ashita-ai/monban/internal/telemetry"
	"github.com/ashita-ai/monban/internal/triage"
)

// App is the Monban server lifecycle. Construct with New(), run with Run().
// App has no public fields — use New() options to configure it.
type App struct {
	cfg          config.Config
	db           *storage.DB
	srv          *server.Server
	bus          *bus.Bus
	otelShutdown func(context.Context) error
	logger       *slog.Logger
	version      string
}

// New initialises the Monban server. It opens the SQLite store, wires
// the triage pipeline, and returns a ready-to-run App. It does NOT
// start any goroutines or accept HTTP connections — call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.databasePath != "" {
		cfg.DatabasePath = o.databasePath
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("monban starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	db, err := storage.Open(context.Background(), cfg.DatabasePath, logger)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("storage: %w", err)
	}

	// Event bus with registered hooks.
	b := bus.New(logger, cfg.EventHistoryLimit)
	for _, hook := range o.eventHooks {
		registerHook(b, hook, logger)
	}

	// Notifier — external override takes priority over the SMTP mailer.
	var notifier notify.Notifier
	if o.notifier != nil {
		notifier = &notifierAdapter{inner: o.notifier}
	} else {
		notifier = notify.NewMailer(notify.Config{
			Host:         cfg.SMTPHost,
			Port:         cfg.SMTPPort,
			User:         cfg.SMTPUser,
			Pass:         cfg.SMTPPassword,
			From:         cfg.SMTPFrom,
			SupportEmail: cfg.SupportEmail,
		}, logger)
	}

	orch := triage.New(
		db,
		classify.New(logger, cfg.DefaultLevel),
		classify.NewHistory(cfg.HistoryLimit),
		dedupe.NewDetector(logger, cfg.DuplicateOpenThreshold, cfg.DuplicateResolvedThreshold),
		escalation.New(logger, cfg.EscalationWindow, cfg.EscalationMinHistory, cfg.HighLevelAlertRatio),
		b,
		notifier,
		logger,
	)

	mcpSrv := mcp.New(orch, db, logger, version)

	srv := server.New(server.ServerConfig{
		DB:                  db,
		Orchestrator:        orch,
		Bus:                 b,
		Logger:              logger,
		MCPServer:           mcpSrv.MCPServer(),
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	return &App{
		cfg:          cfg,
		db:           db,
		srv:          srv,
		bus:          b,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Handler returns the root HTTP handler for use in tests and custom
// transports.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// Run starts the HTTP server and the periodic metrics publisher, then
// blocks until ctx is cancelled or a fatal server error occurs. On
// return, Shutdown is called automatically — callers should not call
// Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		a.metricsLoop(gctx)
		return nil
	})

	<-gctx.Done()

	shutdownErr := a.Shutdown(context.Background())
	if err := g.Wait(); err != nil {
		return err
	}
	return shutdownErr
}

// metricsLoop periodically publishes a MetricsUpdate event so
// subscribers (and /v1/events consumers) see a heartbeat of bus
// activity.
func (a *App) metricsLoop(ctx context.Context) {
	if a.cfg.MetricsInterval <= 0 {
		return
	}
	ticker := time.NewTicker(a.cfg.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := a.bus.Metrics()
			a.bus.Publish(ctx, model.Event{
				Type:   model.EventMetricsUpdate,
				Source: "app",
				Payload: model.MetricsUpdatePayload{
					TotalEvents:   m.TotalEvents,
					EventsByType:  m.EventsByType,
					LastEventTime: m.LastEventTime,
				},
			})
		}
	}
}

// Shutdown drains in-flight HTTP requests, then closes the store and
// the OTEL providers.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("monban shutting down")

	httpCtx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}

	_ = a.otelShutdown(context.Background())
	if err := a.db.Close(); err != nil {
		a.logger.Error("store close error", "error", err)
	}

	a.logger.Info("monban stopped")
	return nil
}

// notifierAdapter bridges the public Notifier to the internal
// notify.Notifier.
type notifierAdapter struct {
	inner Notifier
}

func (a *notifierAdapter) NotifyRepeatedIssue(ctx context.Context, n notify.RepeatNotice) error {
	return a.inner.NotifyRepeatedIssue(ctx, RepeatNotice{
		UserID:      n.UserID,
		UserEmail:   n.UserEmail,
		IncidentID:  n.IncidentID,
		Description: n.Description,
		Score:       n.Score,
	})
}

// registerHook subscribes a public EventHook to the bus. Hook methods
// run in their own goroutines so a slow hook cannot stall publishers.
func registerHook(b *bus.Bus, hook EventHook, logger *slog.Logger) {
	b.Subscribe(model.EventIncidentCreated, "hook.incident_created", func(evt model.Event) {
		payload, ok := evt.Payload.(model.IncidentCreatedPayload)
		if !ok {
			return
		}
		go func() {
			if err := hook.OnIncidentCreated(context.Background(), IncidentEvent{
				IncidentID: payload.IncidentID,
				UserID:     payload.UserID,
				Category:   string(payload.Category),
				Level:      payload.Level,
				Repeated:   payload.Repeated,
			}); err != nil {
				logger.Error("event hook: incident created failed", "error", err)
			}
		}()
	})

	b.Subscribe(model.EventEscalationDetected, "hook.escalation_detected", func(evt model.Event) {
		payload, ok := evt.Payload.(model.EscalationDetectedPayload)
		if !ok {
			return
		}
		go func() {
			if err := hook.OnEscalationDetected(context.Background(), EscalationEvent{
				UserID:         payload.UserID,
				WindowSize:     payload.WindowSize,
				Levels:         payload.Levels,
				HighLevelRatio: payload.HighLevelRatio,
				Recommendation: payload.Recommendation,
			}); err != nil {
				logger.Error("event hook: escalation detected failed", "error", err)
			}
		}()
	})
}
