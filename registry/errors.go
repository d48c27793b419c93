package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrNilHandle is returned for operations on a nil *Handle.
	ErrNilHandle = errors.New("registry: nil handle")

	// ErrForeignHandle is returned when a handle is passed to a registry
	// other than the one that issued it.
	ErrForeignHandle = errors.New("registry: handle belongs to another registry")
)

// StaleHandleError is returned when a handle is used after [Registry.Release].
type StaleHandleError struct {
	Interface string
	ID        uint64
}

func (e *StaleHandleError) Error() string {
	return fmt.Sprintf("registry: stale handle %d (%s): object has been released", e.ID, e.Interface)
}

// DetachedObjectError is returned for operations through a proxy whose
// handle has been released. A detached proxy never reattaches.
type DetachedObjectError struct {
	Interface string
	ID        uint64
}

func (e *DetachedObjectError) Error() string {
	return fmt.Sprintf("registry: detached %s object (handle %d)", e.Interface, e.ID)
}
