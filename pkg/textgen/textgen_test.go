package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/discharge-api/pkg/circuitbreaker"
	"github.com/jwalitptl/discharge-api/pkg/logger"
	"github.com/jwalitptl/discharge-api/pkg/metrics"
)

func TestHuggingFace_Generate(t *testing.T) {
	var got huggingFaceRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gpt2", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"generated_text":"Patient discharged in good condition."}]`))
	}))
	defer server.Close()

	gen := NewHuggingFace(HuggingFaceConfig{Endpoint: server.URL, Token: "secret"}, server.Client())
	text, err := gen.Generate(context.Background(), Request{Prompt: "hello", MaxLength: 100})

	require.NoError(t, err)
	assert.Equal(t, "Patient discharged in good condition.", text)
	assert.Equal(t, "hello", got.Inputs)
	assert.Equal(t, 100, got.Parameters.MaxLength)
	assert.Equal(t, 1, got.Parameters.NumReturnSequences)
}

func TestHuggingFace_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"Model gpt2 is currently loading"}`))
	}))
	defer server.Close()

	gen := NewHuggingFace(HuggingFaceConfig{Endpoint: server.URL}, server.Client())
	_, err := gen.Generate(context.Background(), Request{Prompt: "hello"})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.True(t, statusErr.Transient())
}

func TestHuggingFace_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := NewHuggingFace(HuggingFaceConfig{Endpoint: server.URL}, server.Client()).
		Generate(context.Background(), Request{Prompt: "hello"})
	assert.Error(t, err)
}

func TestGemini_Generate(t *testing.T) {
	var got geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "k1", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Stable. "},{"text":"Discharged."}]}}]}`))
	}))
	defer server.Close()

	gen := NewGemini(GeminiConfig{Endpoint: server.URL, APIKey: "k1"}, server.Client())
	text, err := gen.Generate(context.Background(), Request{Prompt: "hello", MaxLength: 200})

	require.NoError(t, err)
	assert.Equal(t, "Stable. Discharged.", text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "hello", got.Contents[0].Parts[0].Text)
	assert.Equal(t, 200, got.GenerationConfig.MaxOutputTokens)
}

func TestGemini_BadRequestIsNotTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewGemini(GeminiConfig{Endpoint: server.URL, APIKey: "k"}, server.Client()).
		Generate(context.Background(), Request{Prompt: "hello"})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.False(t, statusErr.Transient())
}

func TestEcho_TruncatesToMaxLength(t *testing.T) {
	text, err := Echo{}.Generate(context.Background(), Request{Prompt: "one two  three four", MaxLength: 2})
	require.NoError(t, err)
	assert.Equal(t, "one two", text)

	text, err = Echo{}.Generate(context.Background(), Request{Prompt: "one two", MaxLength: 0})
	require.NoError(t, err)
	assert.Equal(t, "one two", text)
}

func TestNew_Backends(t *testing.T) {
	gen, err := New(Config{Backend: BackendEcho}, nil)
	require.NoError(t, err)
	assert.Equal(t, BackendEcho, gen.Name())

	gen, err = New(Config{Backend: BackendHuggingFace}, nil)
	require.NoError(t, err)
	assert.Equal(t, BackendHuggingFace, gen.Name())

	_, err = New(Config{Backend: BackendGemini}, nil)
	assert.Error(t, err)

	_, err = New(Config{Backend: "markov"}, nil)
	assert.Error(t, err)
}

type stubGenerator struct {
	calls atomic.Int32
	fn    func(ctx context.Context, call int32) (string, error)
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(ctx context.Context, req Request) (string, error) {
	return s.fn(ctx, s.calls.Add(1))
}

func fastConfig() ResilientConfig {
	return ResilientConfig{
		Timeout:         50 * time.Millisecond,
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Breaker:         circuitbreaker.Settings{FailureThreshold: 100, Timeout: time.Minute},
	}
}

func TestResilient_RetriesTransientErrors(t *testing.T) {
	stub := &stubGenerator{fn: func(_ context.Context, call int32) (string, error) {
		if call < 3 {
			return "", &StatusError{Backend: "stub", StatusCode: http.StatusBadGateway}
		}
		return "ok", nil
	}}
	m := metrics.NewMetrics("test", prometheus.NewRegistry())

	text, err := NewResilient(stub, fastConfig(), m, logger.Nop()).Generate(context.Background(), Request{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), stub.calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GenerationRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationRequests.WithLabelValues("stub", "success")))
}

func TestResilient_GivesUpAfterMaxRetries(t *testing.T) {
	stub := &stubGenerator{fn: func(context.Context, int32) (string, error) {
		return "", errors.New("connection reset")
	}}

	_, err := NewResilient(stub, fastConfig(), nil, logger.Nop()).Generate(context.Background(), Request{Prompt: "p"})

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), stub.calls.Load())
}

func TestResilient_DoesNotRetryClientErrors(t *testing.T) {
	stub := &stubGenerator{fn: func(context.Context, int32) (string, error) {
		return "", &StatusError{Backend: "stub", StatusCode: http.StatusUnauthorized}
	}}

	_, err := NewResilient(stub, fastConfig(), nil, logger.Nop()).Generate(context.Background(), Request{Prompt: "p"})

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestResilient_TimesOutEachAttempt(t *testing.T) {
	stub := &stubGenerator{fn: func(ctx context.Context, _ int32) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	cfg := fastConfig()
	cfg.MaxRetries = 0

	start := time.Now()
	_, err := NewResilient(stub, cfg, nil, logger.Nop()).Generate(context.Background(), Request{Prompt: "p"})

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResilient_OpenBreakerFailsFast(t *testing.T) {
	stub := &stubGenerator{fn: func(context.Context, int32) (string, error) {
		return "", errors.New("down")
	}}
	cfg := fastConfig()
	cfg.MaxRetries = 0
	cfg.Breaker.FailureThreshold = 1
	gen := NewResilient(stub, cfg, nil, logger.Nop())

	_, err := gen.Generate(context.Background(), Request{Prompt: "p"})
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = gen.Generate(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestResilient_ClientErrorsDoNotOpenBreaker(t *testing.T) {
	stub := &stubGenerator{fn: func(_ context.Context, call int32) (string, error) {
		if call <= 5 {
			return "", &StatusError{Backend: "stub", StatusCode: http.StatusBadRequest, Body: "prompt too long"}
		}
		return "ok", nil
	}}
	cfg := fastConfig()
	cfg.MaxRetries = 0
	cfg.Breaker.FailureThreshold = 2
	gen := NewResilient(stub, cfg, nil, logger.Nop())

	for i := 0; i < 5; i++ {
		_, err := gen.Generate(context.Background(), Request{Prompt: "p"})
		require.ErrorIs(t, err, ErrUnavailable)
	}

	text, err := gen.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(6), stub.calls.Load())
}

func TestResilient_TransientStatusOpensBreaker(t *testing.T) {
	stub := &stubGenerator{fn: func(context.Context, int32) (string, error) {
		return "", &StatusError{Backend: "stub", StatusCode: http.StatusBadGateway}
	}}
	cfg := fastConfig()
	cfg.MaxRetries = 0
	cfg.Breaker.FailureThreshold = 2
	gen := NewResilient(stub, cfg, nil, logger.Nop())

	for i := 0; i < 3; i++ {
		_, _ = gen.Generate(context.Background(), Request{Prompt: "p"})
	}
	assert.Equal(t, int32(2), stub.calls.Load())
}
