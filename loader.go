package valutatrade

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// LoadJSON decodes the JSON file at path into v.
//
// A missing or empty file leaves v untouched and returns found == false.
// Decoding errors are wrapped with ErrPersistence.
func LoadJSON(path string, v any) (found bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: could not read %q: %w", ErrPersistence, path, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: could not decode %q: %w", ErrPersistence, path, err)
	}
	return true, nil
}

// SaveJSON writes v as indented JSON to path.
//
// The content is written to a temporary file in the same directory, synced,
// then renamed over path, so readers see either the old or the new content.
func SaveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: could not encode %q: %w", ErrPersistence, path, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: could not create directory %q: %w", ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: could not create temporary file for %q: %w", ErrPersistence, path, err)
	}
	// no-op once the rename succeeded.
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: could not write %q: %w", ErrPersistence, tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: could not sync %q: %w", ErrPersistence, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: could not close %q: %w", ErrPersistence, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: could not replace %q: %w", ErrPersistence, path, err)
	}
	return nil
}
