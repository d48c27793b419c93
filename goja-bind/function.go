package gojabind

import (
	"github.com/dop251/goja"

	"github.com/joeycumines/go-bindbridge/value"
)

// jsFunction is a script function held by native code.
type jsFunction struct {
	binding *Binding
	obj     *goja.Object
	fn      goja.Callable
}

// function wraps a script callable. Wrapping the same function twice yields
// values that are [value.Function.SameAs] each other.
func (x *Binding) function(v goja.Value) (*jsFunction, error) {
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, x.typeError("%s is not a function", v.String())
	}
	return &jsFunction{binding: x, obj: v.ToObject(x.runtime), fn: fn}, nil
}

func (x *jsFunction) Call(this value.Value, args ...value.Value) (value.Value, error) {
	b := x.binding
	jsThis, err := b.fromValue(this)
	if err != nil {
		return value.Value{}, err
	}
	jsArgs := make([]goja.Value, len(args))
	for i, arg := range args {
		if jsArgs[i], err = b.fromValue(arg); err != nil {
			return value.Value{}, err
		}
	}
	result, err := x.fn(jsThis, jsArgs...)
	if err != nil {
		return value.Value{}, err
	}
	return b.toValue(result, nil)
}

func (x *jsFunction) SameAs(other value.Function) bool {
	o, ok := other.(*jsFunction)
	return ok && o.obj == x.obj
}

// scriptFunction returns fn as a script function: the original object for
// functions that came from script, otherwise a wrapper calling fn.
func (x *Binding) scriptFunction(fn value.Function) goja.Value {
	if f, ok := fn.(*jsFunction); ok && f.binding == x {
		return f.obj
	}
	return x.runtime.ToValue(func(call goja.FunctionCall) goja.Value {
		this, err := x.toValue(call.This, nil)
		if err != nil {
			x.throw(err)
		}
		args, err := x.args(call.Arguments, nil)
		if err != nil {
			x.throw(err)
		}
		result, err := fn.Call(this, args...)
		if err != nil {
			x.throw(err)
		}
		return x.mustScript(result)
	})
}
