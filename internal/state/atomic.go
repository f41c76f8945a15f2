package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// AtomicWriteOpts configures a single atomic write (spec §4.4, "Atomic
// writes").
type AtomicWriteOpts struct {
	// Lock, when true, guards the write with a FileLock so concurrent
	// writers to the same path serialize instead of interleaving.
	Lock bool

	// StaleAfter is the staleness timeout passed to FileLock.Acquire. It
	// defaults to 5s when zero.
	StaleAfter time.Duration
}

// WriteFileAtomic serializes data to a temp sibling of path and renames it
// into place, optionally under a FileLock. This is the core primitive
// backing every state file write described in spec §4.4.
func WriteFileAtomic(path string, data []byte, perm os.FileMode, opts AtomicWriteOpts) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: creating directory %q: %w", dir, err)
	}

	var lock *FileLock
	if opts.Lock {
		staleAfter := opts.StaleAfter
		if staleAfter <= 0 {
			staleAfter = lockRetryCeiling
		}
		lock = NewFileLock(path)
		if err := lock.Acquire(staleAfter); err != nil {
			return err
		}
		defer lock.Release() //nolint:errcheck
	}

	if err := atomicWriteFile(path, data, perm); err != nil {
		return fmt.Errorf("state: writing %q: %w", path, err)
	}
	return nil
}

// WriteYAMLAtomic marshals v to YAML and writes it atomically to path.
func WriteYAMLAtomic(path string, v interface{}, opts AtomicWriteOpts) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: marshaling %q: %w", path, err)
	}
	return WriteFileAtomic(path, data, 0o644, opts)
}

// WriteJSONAtomic marshals v to indented JSON and writes it atomically to
// path. Used for meta.json, the one state file convention that fixes to
// JSON rather than YAML.
func WriteJSONAtomic(path string, v interface{}, opts AtomicWriteOpts) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshaling %q: %w", path, err)
	}
	return WriteFileAtomic(path, data, 0o644, opts)
}

// ReadJSON unmarshals the JSON file at path into v. A missing file is not an
// error; v is left unmodified and the second return value is false.
func ReadJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("state: reading %q: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("state: parsing %q: %w", path, err)
	}
	return true, nil
}

// ReadYAML unmarshals the YAML file at path into v. A missing file is not an
// error; v is left unmodified and the second return value is false.
func ReadYAML(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("state: reading %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("state: parsing %q: %w", path, err)
	}
	return true, nil
}
