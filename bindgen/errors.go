package bindgen

import (
	"errors"
	"fmt"

	"github.com/joeycumines/go-bindbridge/value"
)

// RangeError is returned when a numeric value is outside the domain of its
// rule, e.g. an int64 beyond the safe integer range or with a fractional
// part.
type RangeError struct {
	Value value.Value
	// Path locates the value, e.g. "Element.width" or "resize: argument 1".
	Path    string
	Message string
}

func (e *RangeError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// TypeError is returned when a value does not have the shape its rule
// requires.
type TypeError struct {
	Expected string
	Got      string
	Path     string
	Message  string
}

func (e *TypeError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// GenerateError is returned by [Generate] for members that cannot be bound.
type GenerateError struct {
	Interface string
	Member    string
	Message   string
}

func (e *GenerateError) Error() string {
	if e.Member == "" {
		return e.Interface + ": " + e.Message
	}
	return e.Interface + "." + e.Member + ": " + e.Message
}

func newRangeError(v value.Value, reason string) *RangeError {
	return &RangeError{Value: v, Message: fmt.Sprintf("value %s %s", v, reason)}
}

func newTypeError(r *Rule, v value.Value) *TypeError {
	return &TypeError{
		Expected: r.String(),
		Got:      v.Kind().String(),
		Message:  fmt.Sprintf("expected %s, got %s", r, v.Kind()),
	}
}

// withPath prefixes the location of a conversion error, so the outermost
// caller's segment comes first, e.g. "Shape.move: argument 1.points[2]".
func withPath(err error, segment string) error {
	join := func(path string) string {
		switch {
		case path == "":
			return segment
		case path[0] == '.' || path[0] == '[':
			return segment + path
		default:
			return segment + ": " + path
		}
	}
	var (
		rangeErr *RangeError
		typeErr  *TypeError
	)
	switch {
	case errors.As(err, &rangeErr):
		rangeErr.Path = join(rangeErr.Path)
	case errors.As(err, &typeErr):
		typeErr.Path = join(typeErr.Path)
	}
	return err
}
