package services

import (
	"errors"
	"fmt"
)

// Error kinds carried by SyncError. Match them with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrCollection    = errors.New("collection error")
	ErrRepository    = errors.New("repository error")
	ErrState         = errors.New("local state error")
)

// SyncError reports why a reconciliation attempt was abandoned.
type SyncError struct {
	Kind     error
	Op       string
	Hostname string
	Err      error
}

func (e *SyncError) Error() string {
	if e.Hostname == "" {
		return fmt.Sprintf("sync %s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("sync %s %s: %v: %v", e.Op, e.Hostname, e.Kind, e.Err)
}

func (e *SyncError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Retryable reports whether the next scheduled attempt may succeed without
// operator action.
func (e *SyncError) Retryable() bool {
	return !errors.Is(e.Kind, ErrConfiguration)
}

func newSyncError(kind error, op, hostname string, err error) *SyncError {
	return &SyncError{Kind: kind, Op: op, Hostname: hostname, Err: err}
}
