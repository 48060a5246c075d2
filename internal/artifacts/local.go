package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/jonathan/luxury-studio/internal/imageutil"
	"github.com/jonathan/luxury-studio/internal/schemas"
	"github.com/jonathan/luxury-studio/internal/types"
)

// LocalStore writes artifacts into a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the output directory if needed and returns a store over it.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the output directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// SaveCandidate implements Store.
func (s *LocalStore) SaveCandidate(_ context.Context, name string, image []byte) (string, error) {
	base, err := BaseName(name)
	if err != nil {
		return "", err
	}
	data, err := imageutil.EncodePNG(image)
	if err != nil {
		return "", fmt.Errorf("failed to convert composite for %s: %w", name, err)
	}

	path := filepath.Join(s.dir, base+CompositeSuffix)
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("Composite saved")
	return path, nil
}

// SaveResult implements Store.
func (s *LocalStore) SaveResult(_ context.Context, name string, record *types.ResultRecord) (string, error) {
	base, err := BaseName(name)
	if err != nil {
		return "", err
	}
	data, err := MarshalRecord(record)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, base+ResultSuffix)
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	log.Debug().Str("path", path).Str("status", string(record.Status)).Msg("Result record saved")
	return path, nil
}

// LoadResult implements Store.
func (s *LocalStore) LoadResult(_ context.Context, name string) (*types.ResultRecord, error) {
	base, err := BaseName(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, base+ResultSuffix))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, base)
		}
		return nil, fmt.Errorf("failed to read result record: %w", err)
	}
	return UnmarshalRecord(data)
}

// writeFile writes through a temporary file in the same directory so readers
// never see a partial artifact. Each call gets its own temporary file.
func writeFile(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// MarshalRecord encodes a record and checks it against the result record schema.
func MarshalRecord(record *types.ResultRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("nil result record")
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result record: %w", err)
	}
	if err := schemas.ValidateNamed(schemas.ResultRecord, string(data)); err != nil {
		return nil, fmt.Errorf("result record is invalid: %w", err)
	}
	return data, nil
}

// UnmarshalRecord decodes a persisted record.
func UnmarshalRecord(data []byte) (*types.ResultRecord, error) {
	var record types.ResultRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse result record: %w", err)
	}
	return &record, nil
}
