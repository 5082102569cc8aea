package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore handles file system storage for JSON files
type FSStore struct {
	basePath string
}

// NewFSStore creates a new file system store
func NewFSStore(basePath string) (*FSStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{basePath: basePath}, nil
}

// Path returns the absolute location of filename inside the store.
func (s *FSStore) Path(filename string) string {
	return filepath.Join(s.basePath, filename)
}

// SaveJSON writes data as JSON, replacing any previous content atomically.
// The value is written to a temporary file in the same directory, synced and
// renamed over the target, so a reader sees either the old or the new file.
func (s *FSStore) SaveJSON(filename string, data interface{}) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmp, err := os.CreateTemp(s.basePath, "."+filename+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(jsonData); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path(filename)); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	committed = true

	syncDir(s.basePath)
	return nil
}

// LoadJSON loads JSON data from a file. It reports false when the file does not exist.
func (s *FSStore) LoadJSON(filename string, data interface{}) (bool, error) {
	jsonData, err := os.ReadFile(s.Path(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(jsonData, data); err != nil {
		return true, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return true, nil
}

// Delete deletes a file. A missing file is not an error.
func (s *FSStore) Delete(filename string) error {
	err := os.Remove(s.Path(filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// syncDir flushes the directory entry after a rename. Not every platform
// supports fsync on directories, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
