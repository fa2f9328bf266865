package vcs

import (
	"errors"
	"fmt"
)

// Common errors returned by repository synchronization.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, vcs.ErrSync) {
//	    // keep serving the previous snapshot
//	}
var (
	// ErrSync is matched by every failure to bring the local working copy
	// in line with the remote.
	ErrSync = errors.New("repository sync failed")

	// ErrAuth is returned when the remote rejects the configured credentials.
	ErrAuth = errors.New("authentication failed")

	// ErrNoRemote is returned when no remote URL is configured and no local
	// working copy exists to fall back on.
	ErrNoRemote = errors.New("no remote configured")
)

// Sync operations reported in SyncError.Op.
const (
	OpClone = "clone"
	OpPull  = "pull"
	OpOpen  = "open"
	OpReset = "reset"
)

// SyncError describes a failed clone, pull or open of the working copy.
type SyncError struct {
	Op   string
	Path string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is makes every SyncError match ErrSync.
func (e *SyncError) Is(target error) bool {
	return target == ErrSync
}

// IsRetryable returns true if the error is likely to succeed on retry.
// Authentication and configuration failures are not retryable; anything
// else (network, transient lock on the working copy) is worth another try
// on the next read or webhook.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrNoRemote) {
		return false
	}
	return errors.Is(err, ErrSync)
}
