// Package artifact persists pipeline outputs as flat files inside one working
// directory. All workers hand their results to the coordinating goroutine;
// only the coordinator writes through this store, so no two writers ever race
// on the same path.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"ideapipe/internal/safeio"
	"ideapipe/internal/util/jsonutil"
)

// Store writes and reads artifacts under a root-locked working directory.
type Store struct {
	fs  *safeio.SafeFS
	log *zap.Logger
}

// NewStore creates dir if needed and locks the store to it.
func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("artifact: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create %s: %w", dir, err)
	}
	fs, err := safeio.NewSafeFS(dir)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{fs: fs, log: log}, nil
}

// Dir returns the absolute working directory.
func (s *Store) Dir() string { return s.fs.Root() }

// SaveJSON writes v as indented JSON to name (relative to the working dir).
func (s *Store) SaveJSON(name string, v any) error {
	b, err := jsonutil.MarshalNoEscapeIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact: encode %s: %w", name, err)
	}
	if err := s.fs.WriteFile(name, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("artifact: write %s: %w", name, err)
	}
	s.log.Debug("saved artifact", zap.String("name", name), zap.Int("bytes", len(b)))
	return nil
}

// LoadJSON reads name and unmarshals it into v.
func (s *Store) LoadJSON(name string, v any) error {
	b, err := s.fs.ReadFile(name)
	if err != nil {
		return fmt.Errorf("artifact: read %s: %w", name, err)
	}
	if err := jsonutil.UnmarshalFlex(b, v); err != nil {
		return fmt.Errorf("artifact: decode %s: %w", name, err)
	}
	return nil
}

// SaveText writes a plain-text artifact.
func (s *Store) SaveText(name, text string) error {
	if err := s.fs.WriteFile(name, []byte(text), 0o644); err != nil {
		return fmt.Errorf("artifact: write %s: %w", name, err)
	}
	s.log.Debug("saved artifact", zap.String("name", name), zap.Int("bytes", len(text)))
	return nil
}

// ReadText reads a plain-text artifact.
func (s *Store) ReadText(name string) (string, error) {
	b, err := s.fs.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("artifact: read %s: %w", name, err)
	}
	return string(b), nil
}

// List returns the file names directly under the named subdirectory. A missing
// directory yields an empty list.
func (s *Store) List(dir string) ([]string, error) {
	if _, err := s.fs.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether an artifact is present.
func (s *Store) Exists(name string) bool {
	_, err := s.fs.Stat(name)
	return err == nil
}
