package orderstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	stateFileMode   = 0o600
	tempFilePattern = ".orders-*.json.tmp"
)

// JSONFile keeps the record in a single indented json document mapping account names to
// lists of order ids.
type JSONFile struct {
	path string
}

var _ Backend = JSONFile{}

func NewJSONFile(path string) JSONFile {
	return JSONFile{path: filepath.Clean(path)}
}

func (f JSONFile) Path() string {
	return f.path
}

func (f JSONFile) Load(ctx context.Context) (map[string][]OrderID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string][]OrderID{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrCorrupt, f.path, err)
	}

	seen := map[string][]OrderID{}
	err = json.Unmarshal(contents, &seen)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrCorrupt, f.path, err)
	}
	if seen == nil {
		// the document was `null`
		seen = map[string][]OrderID{}
	}
	return seen, nil
}

// Save writes to a temporary file next to the state file and renames it over the state
// file once it is fully written and synced.
func (f JSONFile) Save(ctx context.Context, seen map[string][]OrderID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if seen == nil {
		seen = map[string][]OrderID{}
	}

	encoded, err := json.MarshalIndent(seen, "", "  ")
	if err != nil {
		return fmt.Errorf("encode order state: %w", err)
	}
	encoded = append(encoded, '\n')

	tempFile, err := os.CreateTemp(filepath.Dir(f.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tempName := tempFile.Name()

	cleanup := true
	defer func() {
		if cleanup {
			_ = tempFile.Close()
			_ = os.Remove(tempName)
		}
	}()

	if err := tempFile.Chmod(stateFileMode); err != nil {
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if _, err := tempFile.Write(encoded); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tempName, f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	cleanup = false
	return nil
}

// CheckWritable fails when the directory of the state file does not accept new files.
func (f JSONFile) CheckWritable() error {
	scratch, err := os.CreateTemp(filepath.Dir(f.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("state directory is not writable: %w", err)
	}
	name := scratch.Name()
	_ = scratch.Close()
	return os.Remove(name)
}
