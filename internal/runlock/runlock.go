// Package runlock serializes sync runs per connection using OS file locks.
// CLI invocations, the daemon and the scheduler all funnel through the same
// lock file, so a connection never runs twice at once no matter who triggers
// it. The lock is released automatically when the process exits, including
// crashes.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout is how long Acquire waits before giving up. Manual
	// runs fail fast; the scheduler treats the failure as AlreadyRunning.
	DefaultTimeout = 500 * time.Millisecond

	initialBackoff = 5 * time.Millisecond
	maxBackoff     = 50 * time.Millisecond
)

// ErrHeld is returned when another process (or goroutine) is already
// synchronizing the connection.
var ErrHeld = errors.New("connection sync already running")

// Lock is an exclusive per-connection run lock backed by a file in the lock
// directory.
type Lock struct {
	path string
	file *os.File
}

// New returns an unacquired lock for the given connection.
func New(dir, connectionID string) *Lock {
	return &Lock{path: FilePath(dir, connectionID)}
}

// FilePath returns the lock file location for a connection. Cleanup code
// uses it to remove the file when the connection is deleted.
func FilePath(dir, connectionID string) string {
	return filepath.Join(dir, connectionID+".lock")
}

// Acquire attempts to take the lock, retrying with backoff until the timeout
// expires. On timeout it returns ErrHeld wrapped with holder diagnostics.
func (l *Lock) Acquire(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	l.file = f

	deadline := time.Now().Add(timeout)
	backoff := initialBackoff

	for {
		if err := l.tryLock(); err == nil {
			l.writeHolder()
			return nil
		}

		if time.Now().After(deadline) {
			holder := readHolder(l.path)
			l.file.Close()
			l.file = nil
			if holder == "" {
				return ErrHeld
			}
			return fmt.Errorf("%w (holder %s)", ErrHeld, holder)
		}

		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// Release drops the lock and clears the holder info. Safe to call on an
// unacquired lock.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	l.file.Truncate(0)
	l.unlock()
	l.file.Close()
	l.file = nil
	return nil
}

// writeHolder records the owning process in the lock file for diagnostics.
func (l *Lock) writeHolder() {
	if l.file == nil {
		return
	}
	l.file.Truncate(0)
	l.file.Seek(0, 0)
	fmt.Fprintf(l.file, "pid:%d\ntime:%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	l.file.Sync()
}

// Probe reports whether the connection's lock is currently held and by whom,
// without taking it for longer than the check itself.
func Probe(dir, connectionID string) (held bool, holder string) {
	path := FilePath(dir, connectionID)
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return false, ""
	}
	defer f.Close()

	probe := &Lock{path: path, file: f}
	if err := probe.tryLock(); err != nil {
		return true, readHolder(path)
	}
	probe.unlock()
	return false, ""
}

// readHolder parses the holder info written by writeHolder and flags dead
// processes as stale.
func readHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	var pid, timestamp string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if strings.HasPrefix(line, "pid:") {
			pid = strings.TrimPrefix(line, "pid:")
		} else if strings.HasPrefix(line, "time:") {
			timestamp = strings.TrimPrefix(line, "time:")
		}
	}
	if pid == "" {
		return ""
	}

	if pidInt, err := strconv.Atoi(pid); err == nil && !isProcessAlive(pidInt) {
		return fmt.Sprintf("pid:%s since %s (stale, process dead)", pid, timestamp)
	}
	return fmt.Sprintf("pid:%s since %s", pid, timestamp)
}
