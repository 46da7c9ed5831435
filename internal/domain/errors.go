package domain

import "errors"

var (
	ErrProfileNotFound       = errors.New("profile not found")
	ErrNotInstalled          = errors.New("profile has no install path")
	ErrBusy                  = errors.New("another operation is in progress")
	ErrNotRunning            = errors.New("server is not running")
	ErrAlreadyRunning        = errors.New("server is already running")
	ErrIllegalTransition     = errors.New("illegal status transition")
	ErrDriftDetected         = errors.New("configuration on disk differs from stored configuration")
	ErrNoPendingStart        = errors.New("no start is waiting for a decision")
	ErrRemoteConsoleDisabled = errors.New("remote console is not enabled for this profile")
	ErrInvalidDuration       = errors.New("duration must be greater than zero")
	ErrNoTimedOperation      = errors.New("no timed operation is active")
)
