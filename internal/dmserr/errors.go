// Package dmserr defines the error taxonomy shared across the engine.
// Callers classify failures with errors.Is against the sentinels below.
package dmserr

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable means a downstream collaborator call failed.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrFileNotFound means an operation referenced an untracked path or id.
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidDocument means an unsupported type or insufficient content.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrNetwork means an outbound request failed at the transport level.
	ErrNetwork = errors.New("network error")
)

// NotFound returns an ErrFileNotFound wrapping the offending identifier.
func NotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrFileNotFound, id)
}

// Unavailable returns an ErrServiceUnavailable naming the collaborator and
// wrapping the underlying cause.
func Unavailable(service string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrServiceUnavailable, service, err)
}

// Network returns an ErrNetwork naming the collaborator and wrapping the
// underlying transport failure.
func Network(service string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrNetwork, service, err)
}
