// Package main is the entry point for the routelens binary.
// It runs a demo HTTP service with the routed-request trace emission
// pipeline wired end to end: OTLP tracing, Prometheus metrics, and
// hot-reloaded configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/routelens/routelens/pkg/config"
	"github.com/routelens/routelens/pkg/emitter"
	"github.com/routelens/routelens/pkg/logging"
	"github.com/routelens/routelens/pkg/metrics"
	"github.com/routelens/routelens/pkg/payload"
	"github.com/routelens/routelens/pkg/policy"
	"github.com/routelens/routelens/pkg/routing"
	"github.com/routelens/routelens/pkg/telemetry"
)

const (
	defaultAddr     = ":8080"
	defaultLogLevel = "info"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for routelens
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "routelens",
		Short: "Routed-request trace emission pipeline",
		Long: `Runs an HTTP service demonstrating the routelens pipeline: each routed
request emits at most one size-budgeted trace event to the configured
tracing transport, with Prometheus metrics describing emission outcomes.

Example:
  routelens --config routelens.yaml --addr :8080`,
		RunE: run,
	}

	rootCmd.Flags().StringP("config", "c", "", "Path to configuration file (YAML)")
	rootCmd.Flags().StringP("addr", "a", defaultAddr, "Address to listen on")
	rootCmd.Flags().StringP("log-level", "l", defaultLogLevel, "Log level (debug, info, warn, error)")

	return rootCmd
}

func run(cmd *cobra.Command, _ []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("get config flag: %w", err)
	}
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return fmt.Errorf("get addr flag: %w", err)
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return fmt.Errorf("get log-level flag: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var provider *config.FileProvider
	cfg := config.Default()
	if configPath != "" {
		provider, err = config.NewFileProvider(configPath, nil)
		if err != nil {
			return err
		}
		defer provider.Close()
		cfg = provider.Current()
	}
	if cmd.Flags().Changed("log-level") || cfg.Logging.Level == "" {
		cfg.Logging.Level = logLevel
	}
	if cmd.Flags().Changed("addr") || cfg.Server.Addr == "" {
		cfg.Server.Addr = addr
	}

	logger := logging.Setup(logging.Config{Level: cfg.Logging.Level, JSON: cfg.Logging.JSON})

	shutdown, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Environment: cfg.Telemetry.Environment,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     cfg.Telemetry.Headers,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	var sink emitter.EventSink
	if cfg.Telemetry.Endpoint != "" {
		sink = telemetry.NewSpanEventSink()
	} else {
		sink = telemetry.NewLogSink(logger)
		logger.Info("no OTLP endpoint configured, writing trace events to the log")
	}

	var eligibility emitter.EligibilityPolicy
	if cfg.Policy.ModulePath != "" {
		// #nosec G304 -- File path is configured at startup
		module, err := os.ReadFile(cfg.Policy.ModulePath)
		if err != nil {
			return fmt.Errorf("read policy module: %w", err)
		}
		eligibility, err = policy.NewEligibility(ctx, policy.Options{
			Entrypoint: cfg.Policy.Entrypoint,
			Module:     string(module),
			ModuleName: cfg.Policy.ModulePath,
		})
		if err != nil {
			return err
		}
	}

	emitterMetrics := metrics.NewEmitterMetrics()

	em := emitter.New(sink, emitter.Options{
		BudgetBytes: cfg.Emitter.BudgetBytes,
		Policy:      eligibility,
		Metrics:     emitterMetrics,
		Logger:      logger,
	})
	em.SetEnabled(cfg.Emitter.Enabled)

	if provider != nil {
		go applyReloads(ctx, provider.Subscribe(), em, logger)
	}

	router := routing.NewRouter(em)
	if err := registerDemoRoutes(router); err != nil {
		return err
	}

	scope := routing.NewRequestScope(em)
	traced := otelhttp.NewHandler(scope.Wrap(router), "routelens.router")

	mux := http.NewServeMux()
	mux.Handle("/metrics", emitterMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", traced)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("routelens listening", "addr", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
	}

	return nil
}

// applyReloads pushes configuration changes into the running emitter.
func applyReloads(ctx context.Context, updates <-chan config.Config, em *emitter.Emitter, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			em.SetEnabled(cfg.Emitter.Enabled)
			em.SetBudget(cfg.Emitter.BudgetBytes)
			logger.Debug("applied emitter config",
				"enabled", cfg.Emitter.Enabled,
				"budget_bytes", cfg.Emitter.BudgetBytes)
		}
	}
}

// registerDemoRoutes installs a few targets so the pipeline has traffic to
// trace out of the box.
func registerDemoRoutes(router *routing.Router) error {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "echo %s %s\n", r.Method, r.URL.Path)
	})

	routes := []routing.Route{
		{
			Pattern:    "/echo",
			TargetName: "EchoHandler",
			Handler:    echo,
			Args: func(r *http.Request) payload.Args {
				args := payload.Args{}
				for key, values := range r.URL.Query() {
					if len(values) > 0 {
						args = append(args, payload.Arg{Key: key, Value: values[0]})
					}
				}
				return args
			},
		},
		{
			Pattern:    "/static/",
			TargetName: "StaticFiles",
			Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}),
		},
	}

	for _, route := range routes {
		if err := router.Register(route); err != nil {
			return err
		}
	}
	return nil
}
