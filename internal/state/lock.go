package state

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// lockRetryInterval and lockRetryCeiling implement the lock-acquire retry
// loop described in spec §4.4: 50ms backoff up to a 5s ceiling.
const (
	lockRetryInterval = 50 * time.Millisecond
	lockRetryCeiling  = 5 * time.Second
)

// FileLock is an advisory lockfile for a single state file path. Content is
// the locking process's PID; a lock is considered stale once its mtime is
// older than 2x the caller-supplied staleness timeout, matching spec §4.4.
type FileLock struct {
	path    string // <target path>.lock
	acquired bool
}

// NewFileLock returns a FileLock guarding targetPath.
func NewFileLock(targetPath string) *FileLock {
	return &FileLock{path: targetPath + ".lock"}
}

// Acquire attempts to create the lockfile, retrying with backoff up to
// lockRetryCeiling. A lock older than 2*staleAfter is treated as abandoned
// and removed before the next attempt.
func (l *FileLock) Acquire(staleAfter time.Duration) error {
	deadline := time.Now().Add(lockRetryCeiling)
	for {
		if err := l.tryCreate(); err == nil {
			l.acquired = true
			return nil
		} else if !os.IsExist(err) {
			return fmt.Errorf("state: acquiring lock %q: %w", l.path, err)
		}

		l.removeIfStale(staleAfter)

		if time.Now().After(deadline) {
			return fmt.Errorf("state: acquiring lock %q: timed out after %s", l.path, lockRetryCeiling)
		}
		time.Sleep(lockRetryInterval)
	}
}

// Release removes the lockfile. It is a no-op if the lock was never
// acquired by this instance.
func (l *FileLock) Release() error {
	if !l.acquired {
		return nil
	}
	l.acquired = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("state: releasing lock %q: %w", l.path, err)
	}
	return nil
}

func (l *FileLock) tryCreate() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	pid := strconv.Itoa(os.Getpid())
	_, err = f.WriteString(pid)
	return err
}

func (l *FileLock) removeIfStale(staleAfter time.Duration) {
	info, err := os.Stat(l.path)
	if err != nil {
		return
	}
	if time.Since(info.ModTime()) > 2*staleAfter {
		_ = os.Remove(l.path)
	}
}

// contentDigest returns a short lowercase hex xxhash64 digest of data. No
// code in this package calls it: lockfiles are named <target>.lock and
// staleness is judged by the lockfile's mtime.
func contentDigest(data string) string {
	h := xxhash.Sum64String(data)
	return strings.ToLower(strconv.FormatUint(h, 16))
}
