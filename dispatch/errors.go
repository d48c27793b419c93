package dispatch

import (
	"errors"
	"fmt"
)

// ErrNilProxy is returned for crossings through a nil proxy.
var ErrNilProxy = errors.New("dispatch: nil proxy")

// UnknownInterfaceError is returned when no binding table exists for an
// interface, e.g. a handle registered under an undeclared name.
type UnknownInterfaceError struct {
	Interface string
}

func (e *UnknownInterfaceError) Error() string {
	return fmt.Sprintf("dispatch: unknown interface %q", e.Interface)
}

// UnknownMemberError is returned when a member is neither in the binding
// table nor served by an indexer.
type UnknownMemberError struct {
	Interface string
	Member    string
	Static    bool
}

func (e *UnknownMemberError) Error() string {
	if e.Static {
		return fmt.Sprintf("dispatch: %s has no static member %q", e.Interface, e.Member)
	}
	return fmt.Sprintf("dispatch: %s has no member %q", e.Interface, e.Member)
}

// UnknownEventError is returned for listener operations on an event type
// the interface does not declare.
type UnknownEventError struct {
	Interface string
	Event     string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("dispatch: %s has no %q event", e.Interface, e.Event)
}

// NotConstructibleError is returned when script constructs an interface that
// only native code may create. Native code is never reached.
type NotConstructibleError struct {
	Interface string
	Reason    string
}

func (e *NotConstructibleError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("dispatch: %s is not constructible", e.Interface)
	}
	return fmt.Sprintf("dispatch: %s is not constructible: %s", e.Interface, e.Reason)
}

// ReadOnlyPropertyError is returned when script writes a member that has no
// set access. Native state is never touched.
type ReadOnlyPropertyError struct {
	Interface string
	Member    string
}

func (e *ReadOnlyPropertyError) Error() string {
	return fmt.Sprintf("dispatch: cannot assign to read only property %q of %s", e.Member, e.Interface)
}

// NotCallableError is returned when script calls a member that is not a
// method.
type NotCallableError struct {
	Interface string
	Member    string
}

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("dispatch: %s.%s is not a function", e.Interface, e.Member)
}
