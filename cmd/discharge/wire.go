package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/jwalitptl/discharge-api/internal/config"
	"github.com/jwalitptl/discharge-api/internal/repository/flatfile"
	"github.com/jwalitptl/discharge-api/internal/repository/sqlstore"
	"github.com/jwalitptl/discharge-api/pkg/circuitbreaker"
	"github.com/jwalitptl/discharge-api/pkg/logger"
	"github.com/jwalitptl/discharge-api/pkg/messaging"
	"github.com/jwalitptl/discharge-api/pkg/messaging/redis"
	"github.com/jwalitptl/discharge-api/pkg/metrics"
	"github.com/jwalitptl/discharge-api/pkg/storage"
	"github.com/jwalitptl/discharge-api/pkg/textgen"
)

func loadConfig(path string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	// httputil reports 5xx causes through the global logger.
	zlog.Logger = log
	return cfg, log, nil
}

// loadPatients treats an unreadable file or header as fatal and reports
// coerced rows through logs and metrics.
func loadPatients(cfg *config.Config, log zerolog.Logger, m *metrics.Metrics) (*flatfile.Store, error) {
	store, report, err := flatfile.Load(cfg.Data.PatientsFile, log)
	if err != nil {
		return nil, err
	}

	if m != nil {
		m.RecordsLoaded.Set(float64(report.Loaded))
		m.RecordLoadWarnings.WithLabelValues("date").Set(float64(report.DateWarnings))
		m.RecordLoadWarnings.WithLabelValues("skipped_row").Set(float64(report.SkippedRows))
		m.RecordLoadWarnings.WithLabelValues("duplicate_id").Set(float64(report.DuplicateIDs))
	}

	event := log.Info()
	if report.Warnings() > 0 {
		event = log.Warn()
	}
	event.
		Str("file", cfg.Data.PatientsFile).
		Int("rows", report.Rows).
		Int("loaded", report.Loaded).
		Int("date_warnings", report.DateWarnings).
		Int("skipped_rows", report.SkippedRows).
		Int("duplicate_ids", report.DuplicateIDs).
		Msg("patient records loaded")

	return store, nil
}

func openLedger(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlstore.NewDB(sqlstore.Config{
		Driver:          cfg.Ledger.Driver,
		DSN:             cfg.Ledger.DSN,
		MaxOpenConns:    cfg.Ledger.MaxOpenConns,
		MaxIdleConns:    cfg.Ledger.MaxIdleConns,
		ConnMaxLifetime: cfg.Ledger.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	if err := sqlstore.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newGenerator(cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) (textgen.Generator, error) {
	gc := cfg.Generation
	backend, err := textgen.New(textgen.Config{
		Backend:  gc.Backend,
		Endpoint: gc.Endpoint,
		Model:    gc.Model,
		APIKey:   gc.APIKey,
		Timeout:  gc.Timeout,
	}, &http.Client{Timeout: gc.Timeout})
	if err != nil {
		return nil, err
	}

	return textgen.NewResilient(backend, textgen.ResilientConfig{
		Timeout:         gc.Timeout,
		MaxRetries:      gc.MaxRetries,
		InitialInterval: gc.RetryInitialInterval,
		MaxInterval:     gc.RetryMaxInterval,
		Breaker: circuitbreaker.Settings{
			MaxRequests:      1,
			Timeout:          gc.BreakerTimeout,
			FailureThreshold: gc.BreakerFailures,
		},
	}, m, log), nil
}

func newArtifactStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	ec := cfg.Export
	switch ec.Backend {
	case storage.BackendS3:
		client, err := storage.NewS3Client(ctx, storage.S3Config{
			Bucket:   ec.Bucket,
			Prefix:   ec.Prefix,
			Region:   ec.Region,
			Endpoint: ec.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		return storage.NewS3Store(client, ec.Bucket, ec.Prefix), nil
	case storage.BackendFS:
		return storage.NewFSStore(ec.Dir)
	default:
		return nil, fmt.Errorf("unknown export backend %q", ec.Backend)
	}
}

// newBroker falls back to dropping events when no redis is configured.
func newBroker(ctx context.Context, cfg *config.Config, log zerolog.Logger) (messaging.Broker, error) {
	if cfg.Events.RedisURL == "" {
		return messaging.NopBroker{}, nil
	}
	return redis.NewRedisBroker(ctx, redis.Config{
		URL:        cfg.Events.RedisURL,
		MaxRetries: 3,
		PoolSize:   10,
	}, log)
}
