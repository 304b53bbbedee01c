package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/browsermatrix/internal/api"
	"github.com/shehryarbajwa/browsermatrix/internal/catalog"
	"github.com/shehryarbajwa/browsermatrix/internal/config"
	"github.com/shehryarbajwa/browsermatrix/internal/logging"
	"github.com/shehryarbajwa/browsermatrix/internal/orchestrator"
	"github.com/shehryarbajwa/browsermatrix/internal/provider"
	"github.com/shehryarbajwa/browsermatrix/internal/ratelimit"
)

type serveFlags struct {
	addr            string
	requestsPerHour int
	withLocal       bool
	providers       providerFlags
}

func newServeCmd(g *globalFlags) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept runs over HTTP",
		Long: `Serves the run API:

  POST /v1/runs              start a run (rate limited per user)
  GET  /v1/runs              list runs
  GET  /v1/runs/{id}         poll a run
  GET  /v1/runs/{id}/events  websocket of task transitions
  GET  /v1/providers         registered providers
  GET  /metrics              Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), g, f)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", ":8080", "Address to listen on")
	cmd.Flags().IntVar(&f.requestsPerHour, "requests-per-hour", 100, "Runs each user may start per hour")
	cmd.Flags().BoolVar(&f.withLocal, "local", false, "Register the docker-backed local provider")
	f.providers.register(cmd)

	return cmd
}

func serve(parent context.Context, g *globalFlags, f *serveFlags) error {
	if err := config.LoadEnv(g.envFile); err != nil {
		return err
	}

	logger, err := logging.New(g.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := interruptible(parent)
	defer stop()

	tables := catalog.Default()
	registry, pool, err := f.providers.registry(tables, logger, f.withLocal)
	if err != nil {
		return err
	}
	defer registry.Close()

	if pool != nil {
		logger.Info("Ensuring browser image is available")
		pullCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		err := pool.EnsureImage(pullCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to prepare browser image: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := orchestrator.NewMetrics(reg)
	startLimiter := f.providers.startLimiter()

	newRunner := func(p provider.Provider) *orchestrator.Runner {
		return orchestrator.NewRunner(orchestrator.Options{
			Provider:     p,
			Tables:       tables,
			Logger:       logger,
			StartLimiter: startLimiter,
			Metrics:      metrics,
		})
	}

	handler := api.NewHandler(ctx, registry, newRunner, api.NewStore(), logger)
	rateLimiter := ratelimit.NewLimiter(f.requestsPerHour, time.Hour, max(f.requestsPerHour/10, 1))
	router := handler.SetupRoutes(rateLimiter, f.requestsPerHour, reg)

	srv := &http.Server{
		Addr:         f.addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			zap.String("addr", f.addr),
			zap.Strings("providers", registry.Names()),
			zap.Int("requestsPerHour", f.requestsPerHour))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server stopped cleanly")
	return nil
}
