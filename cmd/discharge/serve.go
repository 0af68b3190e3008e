package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	exporthandler "github.com/jwalitptl/discharge-api/internal/handler/export"
	"github.com/jwalitptl/discharge-api/internal/handler/health"
	patienthandler "github.com/jwalitptl/discharge-api/internal/handler/patient"
	"github.com/jwalitptl/discharge-api/internal/handler/prometheus"
	summaryhandler "github.com/jwalitptl/discharge-api/internal/handler/summary"
	"github.com/jwalitptl/discharge-api/internal/middleware"
	"github.com/jwalitptl/discharge-api/internal/router"
	"github.com/jwalitptl/discharge-api/internal/repository/sqlstore"
	"github.com/jwalitptl/discharge-api/internal/service/export"
	"github.com/jwalitptl/discharge-api/internal/service/patient"
	"github.com/jwalitptl/discharge-api/internal/service/summary"
	"github.com/jwalitptl/discharge-api/pkg/metrics"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath)
		},
	}
}

func runServer(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	var (
		promHandler *prometheus.Handler
		m           *metrics.Metrics
	)
	if cfg.Metrics.Enabled {
		promHandler = prometheus.New(cfg.Metrics.Namespace)
		m = metrics.NewMetrics(cfg.Metrics.Namespace, promHandler.Registry())
	}

	patients, err := loadPatients(cfg, log, m)
	if err != nil {
		return fmt.Errorf("failed to load patient records: %w", err)
	}

	db, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	ledger := sqlstore.NewSummaryLedger(db, m)

	generator, err := newGenerator(cfg, m, log)
	if err != nil {
		return err
	}

	artifacts, err := newArtifactStore(ctx, cfg)
	if err != nil {
		return err
	}

	broker, err := newBroker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer broker.Close()

	summarySvc := summary.NewService(
		patients,
		ledger,
		generator,
		summary.NewDraftStore(cfg.Drafts.TTL),
		broker,
		summary.Config{Lengths: cfg.LengthHints(), EventChannel: cfg.Events.Channel},
		log,
	)
	exportSvc := export.NewService(patients, summarySvc, artifacts, m, log)

	r := router.NewRouter(
		health.NewHandler(ledger, patients.Len),
		promHandler,
		[]router.Handler{
			patienthandler.NewHandler(patient.NewService(patients)),
			summaryhandler.NewHandler(summarySvc),
			exporthandler.NewHandler(exportSvc),
		},
		router.RouterConfig{
			Mode:             cfg.Server.Mode,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RPS),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig: middleware.CORSConfig{
				AllowOrigins: cfg.CORS.AllowedOrigins,
				AllowMethods: cfg.CORS.AllowedMethods,
				AllowHeaders: cfg.CORS.AllowedHeaders,
				MaxAge:       cfg.CORS.MaxAge,
			},
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			RequestTimeout: cfg.Server.WriteTimeout,
		},
		log,
	)
	r.Setup()

	srv := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-quit:
	}

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server exited properly")
	return nil
}
