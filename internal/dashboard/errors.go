package dashboard

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned while the filter domain is still loading.
	ErrNotReady = errors.New("dashboard: not ready")
	// ErrClosed is returned once the orchestrator has been closed.
	ErrClosed = errors.New("dashboard: closed")
	// ErrInvalidParams wraps every rejected user selection.
	ErrInvalidParams = errors.New("dashboard: invalid parameters")
)

// DomainLoadError is the terminal failure to load the filter domain.
type DomainLoadError struct {
	Err error
}

func (e *DomainLoadError) Error() string {
	return fmt.Sprintf("loading filter values failed: %v", e.Err)
}

func (e *DomainLoadError) Unwrap() error { return e.Err }

// RefreshError is a failed refresh batch. Op names the failing call.
type RefreshError struct {
	Seq uint64
	Op  string
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh failed (%s): %v", e.Op, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }
