package gojabind

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/joeycumines/go-bindbridge/bindgen"
	"github.com/joeycumines/go-bindbridge/dispatch"
	"github.com/joeycumines/go-bindbridge/registry"
)

// errorNames maps dispatch errors to the name of the thrown Error.
var errorNames = [...]struct {
	is   func(err error) bool
	name string
}{
	{isError[*dispatch.UnknownMemberError], "UnknownMemberError"},
	{isError[*dispatch.ReadOnlyPropertyError], "ReadOnlyPropertyError"},
	{isError[*dispatch.NotConstructibleError], "NotConstructibleError"},
	{isError[*dispatch.UnknownEventError], "UnknownEventError"},
	{isError[*dispatch.UnknownInterfaceError], "UnknownInterfaceError"},
	{isError[*registry.DetachedObjectError], "DetachedObjectError"},
	{isError[*registry.StaleHandleError], "StaleHandleError"},
}

func isError[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// throw panics with err as a script exception. It must only be called from
// code run by the script engine.
func (x *Binding) throw(err error) {
	panic(x.jsError(err))
}

func (x *Binding) typeError(format string, args ...any) error {
	return &bindgen.TypeError{Message: fmt.Sprintf(format, args...)}
}

// jsError converts err to a script error object. Range and type errors use
// the engine's constructors; anything else is an Error named for its Go type.
func (x *Binding) jsError(err error) *goja.Object {
	rt := x.runtime

	var exception *goja.Exception
	if errors.As(err, &exception) {
		if obj, ok := exception.Value().(*goja.Object); ok {
			return obj
		}
	}

	var rangeErr *bindgen.RangeError
	if errors.As(err, &rangeErr) {
		if ctor, ok := goja.AssertConstructor(rt.Get("RangeError")); ok {
			if obj, cerr := ctor(nil, rt.ToValue(err.Error())); cerr == nil {
				return obj
			}
		}
	}

	var typeErr *bindgen.TypeError
	var notCallable *dispatch.NotCallableError
	if errors.As(err, &typeErr) || errors.As(err, &notCallable) {
		return rt.NewTypeError(err.Error())
	}

	obj := rt.NewGoError(err)
	for _, v := range errorNames {
		if v.is(err) {
			_ = obj.Set("name", v.name)
			break
		}
	}
	return obj
}
