package system

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

var ErrAlreadyRunning = errors.New("another instance is already running")

// AcquireInstanceLock takes the daemon lock file without blocking. The
// returned lock is held until Unlock.
func AcquireInstanceLock(path string) (*flock.Flock, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("error locking %s: %w", path, err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	return fl, nil
}
