package client

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend request.
type Kind string

// Failure kinds reported by RequestError.
const (
	KindNetwork  Kind = "network"
	KindTimeout  Kind = "timeout"
	KindCanceled Kind = "canceled"
	KindStatus   Kind = "status"
	KindDecode   Kind = "decode"
	KindInvalid  Kind = "invalid"
)

// RequestError describes a failed call to the KPI backend.
type RequestError struct {
	Op     string
	Kind   Kind
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsKind reports whether err is a RequestError of the given kind.
func IsKind(err error, kind Kind) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind == kind
	}
	return false
}
