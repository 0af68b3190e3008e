package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultHuggingFaceEndpoint = "https://api-inference.huggingface.co"
	DefaultHuggingFaceModel    = "gpt2"
)

type HuggingFaceConfig struct {
	Endpoint string
	Model    string
	Token    string
}

type huggingFaceRequest struct {
	Inputs     string                `json:"inputs"`
	Parameters huggingFaceParameters `json:"parameters"`
}

type huggingFaceParameters struct {
	MaxLength          int `json:"max_length,omitempty"`
	NumReturnSequences int `json:"num_return_sequences"`
}

type huggingFaceResponse []struct {
	GeneratedText string `json:"generated_text"`
}

// HuggingFace calls the hosted inference API for a text-generation model.
type HuggingFace struct {
	url    string
	token  string
	client *http.Client
}

func NewHuggingFace(cfg HuggingFaceConfig, client *http.Client) *HuggingFace {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultHuggingFaceEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = DefaultHuggingFaceModel
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &HuggingFace{
		url:    endpoint + "/models/" + model,
		token:  cfg.Token,
		client: client,
	}
}

func (h *HuggingFace) Name() string { return BackendHuggingFace }

func (h *HuggingFace) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(huggingFaceRequest{
		Inputs: req.Prompt,
		Parameters: huggingFaceParameters{
			MaxLength:          req.MaxLength,
			NumReturnSequences: 1,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("huggingface request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read huggingface response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Backend: BackendHuggingFace, StatusCode: resp.StatusCode, Body: snippet(raw)}
	}

	var out huggingFaceResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode huggingface response: %w", err)
	}
	if len(out) == 0 {
		return "", errors.New("huggingface returned no sequences")
	}
	return out[0].GeneratedText, nil
}

const maxResponseBytes = 1 << 20

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
