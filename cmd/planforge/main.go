// Package main provides the planforge binary entry point. Planforge is the
// dual-agent planning service: it runs two specialist reasoning agents over
// the same app concept, reconciles their proposals into one build plan, and
// streams progress to clients over SSE.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	// Register LLM providers via init()
	_ "github.com/luminaide/planforge/llm/providers"

	"github.com/luminaide/planforge/config"
	"github.com/spf13/cobra"
)

const (
	// Version is the planforge release version.
	Version = "0.1.0"
	// BuildTime is stamped by the release build.
	BuildTime = "dev"
	appName   = "planforge"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Dual-agent application planning service",
		Long: `Planforge plans web applications with two independently specialized
reasoning agents. Their proposals are reconciled into a single build plan, or
escalated for human adjudication when they disagree too much. Progress is
streamed to clients as server-sent events.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var (
		configPath string
		listen     string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the planning service",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel, logFormat)
			slog.SetDefault(logger)

			var cfg *config.Config
			var err error
			if configPath != "" {
				cfg, err = config.NewLoader(logger).LoadFile(configPath)
			} else {
				cfg, err = config.NewLoader(logger).Load()
			}
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if listen != "" {
				cfg.Server.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app := newApp(cfg, logger, configPath)
			return app.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (overrides discovery)")
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s (built %s)\n", appName, Version, BuildTime)
		},
	}
}

// newLogger builds the process-wide slog logger.
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
