package filestore

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryInterval = 200 * time.Millisecond

// acquireLock takes the single-writer lock on dir, retrying until timeout.
func acquireLock(dir string, timeout time.Duration) (*flock.Flock, error) {
	path := filepath.Join(dir, lockFile)
	l := flock.New(path)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("cannot acquire index lock: %w", err)
		}
		if locked {
			return l, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("index is in use by another process (lock: %s)", path)
		}
		time.Sleep(lockRetryInterval)
	}
}
