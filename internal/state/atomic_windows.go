//go:build windows

package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// atomicWriteFile writes data to a file atomically on Windows, where
// renameio's fsync-before-rename guarantee is unavailable. The temp sibling
// is named "<base>.tmp.<epoch>.<rand>" per spec §4.4.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	f, err := os.CreateTemp(dir, fmt.Sprintf("%s.tmp.%d.*", base, time.Now().UnixNano()))
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp) //nolint:errcheck

	if _, err := f.Write(data); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)

	var lastErr error
	for attempt := 0; attempt < 10; attempt++ {
		if err := os.Rename(tmp, path); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if _, statErr := os.Stat(path); statErr == nil {
			_ = os.Remove(path)
			if err := os.Rename(tmp, path); err == nil {
				return nil
			} else {
				lastErr = err
			}
		}
		time.Sleep(time.Duration(attempt+1) * 5 * time.Millisecond)
	}
	return lastErr
}
