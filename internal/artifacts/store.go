// Package artifacts persists composite images and result records.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jonathan/luxury-studio/internal/types"
)

// Artifact name suffixes.
const (
	CompositeSuffix = "_composite.png"
	ResultSuffix    = "_result.json"
)

// Sentinel errors.
var (
	ErrNotFound    = errors.New("artifact not found")
	ErrInvalidName = errors.New("invalid artifact name")
)

// Store saves the outputs of a run, keyed by the product file name.
type Store interface {
	// SaveCandidate stores the composite as PNG and returns its reference.
	SaveCandidate(ctx context.Context, name string, image []byte) (string, error)
	// SaveResult stores the record and returns its reference.
	SaveResult(ctx context.Context, name string, record *types.ResultRecord) (string, error)
	// LoadResult reads a record previously written by SaveResult.
	LoadResult(ctx context.Context, name string) (*types.ResultRecord, error)
}

// BaseName returns the artifact stem for a product file name: the base name
// without directory or artifact suffix. The extension is kept so that
// ring.png and ring.jpg map to different artifacts. Names that reduce to
// nothing are rejected.
func BaseName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, ResultSuffix)
	base = strings.TrimSuffix(base, CompositeSuffix)
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("%w %q", ErrInvalidName, name)
	}
	return base, nil
}
