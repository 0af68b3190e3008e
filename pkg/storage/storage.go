// Package storage writes exported artifacts to a filesystem directory or an
// S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

var ErrInvalidName = errors.New("invalid artifact name")

// Store persists one named artifact and returns where it ended up.
type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// cleanName rejects names that could escape the store root.
func cleanName(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return path.Clean(name), nil
}
