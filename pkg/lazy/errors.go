package lazy

import (
	"errors"
	"fmt"
)

var (
	// ErrMemberNotFound indicates a read of a name that was neither declared
	// nor set on the host.
	ErrMemberNotFound = errors.New("member not found")

	// ErrInitPanic indicates an initializer panicked. The panic is re-raised
	// after the member is marked as failed.
	ErrInitPanic = errors.New("initializer panicked")

	// ErrSignature indicates a cleanup method was located but its signature
	// cannot be called in the registered mode.
	//
	// Supported signatures are func(), func() error and func(func(error)).
	// The last one is only accepted for asynchronous registrations.
	ErrSignature = errors.New("unsupported cleanup signature")
)

// InitError wraps an error returned by a member initializer.
type InitError struct {
	Member string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize member %q: %v", e.Member, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// CleanupError wraps an error reported by a cleanup action during a drain.
type CleanupError struct {
	Name   string
	Method string
	Async  bool
	Err    error
}

func (e *CleanupError) Error() string {
	mode := "sync"
	if e.Async {
		mode = "async"
	}
	return fmt.Sprintf("cleanup %q (%s %s): %v", e.Name, mode, e.Method, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}
