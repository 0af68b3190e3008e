// Package textgen talks to pretrained text-generation models.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnavailable wraps every failure a caller may retry later.
var ErrUnavailable = errors.New("text generation unavailable")

const (
	BackendHuggingFace = "huggingface"
	BackendGemini      = "gemini"
	BackendEcho        = "echo"
)

// Request is one generation call. MaxLength is a length hint passed through
// to the model.
type Request struct {
	Prompt    string
	MaxLength int
}

type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// StatusError is a non-2xx response from a backend.
type StatusError struct {
	Backend    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Backend, e.StatusCode, e.Body)
}

// Transient reports whether the call may succeed when repeated.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Config selects and configures a backend.
type Config struct {
	Backend  string
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// New builds the backend named by cfg.Backend.
func New(cfg Config, client *http.Client) (Generator, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	switch cfg.Backend {
	case BackendHuggingFace:
		return NewHuggingFace(HuggingFaceConfig{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			Token:    cfg.APIKey,
		}, client), nil
	case BackendGemini:
		if cfg.APIKey == "" {
			return nil, errors.New("gemini backend requires an api key")
		}
		return NewGemini(GeminiConfig{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			APIKey:   cfg.APIKey,
		}, client), nil
	case BackendEcho:
		return Echo{}, nil
	default:
		return nil, fmt.Errorf("unknown generation backend %q", cfg.Backend)
	}
}
