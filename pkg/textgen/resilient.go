package textgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/discharge-api/pkg/circuitbreaker"
	"github.com/jwalitptl/discharge-api/pkg/metrics"
)

// ResilientConfig bounds a single logical generation call.
type ResilientConfig struct {
	// Timeout applies to each attempt.
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Breaker         circuitbreaker.Settings
}

// Resilient adds per-attempt timeouts, bounded retries and a circuit breaker
// around another Generator. Every error it returns wraps ErrUnavailable.
type Resilient struct {
	next    Generator
	cfg     ResilientConfig
	breaker *circuitbreaker.CircuitBreaker[string]
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewResilient(next Generator, cfg ResilientConfig, m *metrics.Metrics, logger zerolog.Logger) *Resilient {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = "textgen-" + next.Name()
	}
	if cfg.Breaker.IsSuccessful == nil {
		cfg.Breaker.IsSuccessful = healthyBackend
	}

	return &Resilient{
		next:    next,
		cfg:     cfg,
		breaker: circuitbreaker.NewCircuitBreaker[string](cfg.Breaker),
		metrics: m,
		logger:  logger.With().Str("component", "textgen").Str("backend", next.Name()).Logger(),
	}
}

func (r *Resilient) Name() string { return r.next.Name() }

func (r *Resilient) Generate(ctx context.Context, req Request) (string, error) {
	start := time.Now()

	operation := func() (string, error) {
		text, err := r.breaker.Execute(func() (string, error) {
			return r.attempt(ctx, req)
		})
		if err == nil {
			return text, nil
		}
		if !retryable(ctx, err) {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = r.cfg.InitialInterval
	schedule.MaxInterval = r.cfg.MaxInterval
	schedule.MaxElapsedTime = 0

	notify := func(err error, wait time.Duration) {
		if r.metrics != nil {
			r.metrics.GenerationRetries.Inc()
		}
		r.logger.Warn().Err(err).Dur("wait", wait).Msg("generation attempt failed, retrying")
	}

	text, err := backoff.RetryNotifyWithData(operation,
		backoff.WithContext(backoff.WithMaxRetries(schedule, r.cfg.MaxRetries), ctx),
		notify,
	)

	if r.metrics != nil {
		r.metrics.GenerationRequests.WithLabelValues(r.next.Name(), metrics.Status(err)).Inc()
		r.metrics.GenerationLatency.WithLabelValues(r.next.Name()).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		r.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("generation failed")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return text, nil
}

func (r *Resilient) attempt(ctx context.Context, req Request) (string, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	return r.next.Generate(ctx, req)
}

// healthyBackend keeps rejected requests and caller cancellations from
// counting against the breaker; only transport, timeout and transient status
// failures trip it.
func healthyBackend(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var statusErr *StatusError
	return errors.As(err, &statusErr) && !statusErr.Transient()
}

// retryable is false for an open breaker, a cancelled caller and client
// errors the backend will keep rejecting.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || circuitbreaker.IsOpen(err) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	return true
}
