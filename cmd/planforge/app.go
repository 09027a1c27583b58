package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luminaide/planforge/agent"
	"github.com/luminaide/planforge/config"
	"github.com/luminaide/planforge/events"
	"github.com/luminaide/planforge/httpapi"
	"github.com/luminaide/planforge/llm"
	"github.com/luminaide/planforge/metrics"
	"github.com/luminaide/planforge/planner"
	"github.com/luminaide/planforge/reference"
	"github.com/luminaide/planforge/session"
)

// App wires the service together and owns its lifecycle.
type App struct {
	config     *config.Config
	logger     *slog.Logger
	configPath string
}

func newApp(cfg *config.Config, logger *slog.Logger, configPath string) *App {
	return &App{
		config:     cfg,
		logger:     logger,
		configPath: configPath,
	}
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails.
func (a *App) Run(ctx context.Context) error {
	llmClient := llm.NewClient(llm.WithLogger(a.logger))

	gateway := agent.NewGateway(llmClient, agentSettings(a.config), agent.WithLogger(a.logger))

	orchestrator := planner.New(gateway, planner.Config{
		AgentTimeout:        a.config.Agents.Timeout,
		RunDeadline:         a.config.Planning.RunDeadline,
		MaxTokens:           a.config.Agents.MaxTokens,
		EscalationThreshold: a.config.Planning.EscalationThreshold,
	}, planner.WithLogger(a.logger))

	store := session.NewStore()

	handlerOpts := []httpapi.HandlerOption{httpapi.WithLogger(a.logger)}

	if a.config.NATS.URL != "" {
		publisher, err := events.Connect(a.config.NATS.URL, a.config.NATS.SubjectPrefix, a.logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		handlerOpts = append(handlerOpts, httpapi.WithPublisher(publisher))
	}

	if a.config.Reference.Enabled {
		fetcher := reference.NewFetcher(
			reference.WithLogger(a.logger),
			reference.WithHTTPClient(&http.Client{Timeout: a.config.Reference.Timeout}),
		)
		handlerOpts = append(handlerOpts, httpapi.WithReferenceFetcher(fetcher))
	}

	handler := httpapi.NewPlanHandler(store, orchestrator, handlerOpts...)

	mux := http.NewServeMux()
	handler.RegisterHTTPHandlers("/plans", mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", handleHealthz)

	server := &http.Server{
		Addr:    a.config.Server.Listen,
		Handler: mux,
		// No WriteTimeout: SSE responses are long-lived by design.
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.runJanitor(ctx, store)

	if a.configPath != "" {
		watcher := config.NewWatcher(a.configPath, func(cfg *config.Config) {
			gateway.UpdateSettings(agentSettings(cfg))
		}, a.logger)
		go func() {
			if err := watcher.Start(ctx); err != nil {
				a.logger.Warn("Config watcher stopped", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	a.logger.Info("Planforge listening",
		"addr", a.config.Server.Listen,
		"visual_model", a.config.Agents.Visual.Model,
		"architecture_model", a.config.Agents.Architecture.Model,
		"nats", a.config.NATS.URL != "")

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// runJanitor sweeps expired sessions on a fixed interval.
func (a *App) runJanitor(ctx context.Context, store *session.Store) {
	interval := a.config.Planning.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.SweepExpired(time.Now()); removed > 0 {
				a.logger.Info("Swept expired sessions", "removed", removed)
			}
			metrics.SetActiveSessions(store.Len())
		}
	}
}

// agentSettings converts config into gateway settings.
func agentSettings(cfg *config.Config) agent.Settings {
	temperature := cfg.Agents.Temperature

	return agent.Settings{
		Visual: llm.Endpoint{
			Provider: cfg.Agents.Visual.Provider,
			Model:    cfg.Agents.Visual.Model,
			URL:      cfg.Agents.Visual.URL,
		},
		Architecture: llm.Endpoint{
			Provider: cfg.Agents.Architecture.Provider,
			Model:    cfg.Agents.Architecture.Model,
			URL:      cfg.Agents.Architecture.URL,
		},
		Temperature: &temperature,
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
