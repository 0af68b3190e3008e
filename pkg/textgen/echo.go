package textgen

import (
	"context"
	"strings"
)

// Echo returns the prompt, cut to MaxLength words. It needs no network and
// is meant for local development.
type Echo struct{}

func (Echo) Name() string { return BackendEcho }

func (Echo) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	words := strings.Fields(req.Prompt)
	if req.MaxLength > 0 && len(words) > req.MaxLength {
		words = words[:req.MaxLength]
	}
	return strings.Join(words, " "), nil
}
