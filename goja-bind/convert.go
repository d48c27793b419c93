package gojabind

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/dop251/goja"

	"github.com/joeycumines/go-bindbridge/bindgen"
	"github.com/joeycumines/go-bindbridge/dispatch"
	"github.com/joeycumines/go-bindbridge/registry"
	"github.com/joeycumines/go-bindbridge/value"
)

// FromScript converts a script value without a marshalling rule: objects
// other than bound objects, functions and arrays are carried opaquely.
func (x *Binding) FromScript(v goja.Value) (value.Value, error) {
	return x.toValue(v, nil)
}

// ToScript converts a value for delivery to script.
func (x *Binding) ToScript(v value.Value) (goja.Value, error) {
	return x.fromValue(v)
}

// args converts call arguments, using the parameter rules to decide the
// shape of object arguments.
func (x *Binding) args(in []goja.Value, params []bindgen.Param) ([]value.Value, error) {
	out := make([]value.Value, len(in))
	for i, v := range in {
		var rule *bindgen.Rule
		if i < len(params) {
			rule = params[i].Rule
		}
		nv, err := x.toValue(v, rule)
		if err != nil {
			return nil, err
		}
		out[i] = nv
	}
	return out, nil
}

// toValue converts a script value. Primitives map directly. Object values
// are shaped by rule: dictionary rules read the declared fields, array and
// iterator rules read array elements, and scalar rules coerce with script
// semantics. Other objects become opaque, keeping their identity.
func (x *Binding) toValue(v goja.Value, rule *bindgen.Rule) (value.Value, error) {
	switch {
	case v == nil || goja.IsUndefined(v):
		return value.Undefined(), nil
	case goja.IsNull(v):
		return value.Null(), nil
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return primitiveToValue(v, rule)
	}

	if p := x.proxyOf(obj); p != nil {
		if err := p.Check(); err != nil {
			return value.Value{}, err
		}
		return value.Object(p.Handle()), nil
	}
	if _, ok := goja.AssertFunction(obj); ok {
		fn, err := x.function(obj)
		if err != nil {
			return value.Value{}, err
		}
		return value.Func(fn), nil
	}

	for rule != nil && rule.Kind == bindgen.RuleNullable {
		rule = rule.Elem
	}
	if rule == nil {
		return value.Opaque(obj), nil
	}
	switch rule.Kind {
	case bindgen.RuleDictionary:
		return x.dictToValue(obj, rule)
	case bindgen.RuleArray, bindgen.RuleIterator:
		return x.arrayToValue(obj, rule.Elem)
	case bindgen.RuleBoolean:
		return value.Bool(obj.ToBoolean()), nil
	case bindgen.RuleDouble, bindgen.RuleInt64:
		return value.Number(obj.ToFloat()), nil
	case bindgen.RuleString:
		return value.String(obj.String()), nil
	}
	return value.Opaque(obj), nil
}

// primitiveToValue converts a non-object value. Scalar rules coerce with
// script semantics; any other rule keeps BigInt and Symbol values opaque.
func primitiveToValue(v goja.Value, rule *bindgen.Rule) (value.Value, error) {
	for rule != nil && rule.Kind == bindgen.RuleNullable {
		rule = rule.Elem
	}
	_, isSymbol := v.(*goja.Symbol)
	bigInt, isBigInt := v.Export().(*big.Int)
	if isSymbol {
		isBigInt = false
	}

	kind := bindgen.RuleAny
	if rule != nil {
		kind = rule.Kind
	}
	switch kind {
	case bindgen.RuleBoolean:
		return value.Bool(v.ToBoolean()), nil
	case bindgen.RuleString, bindgen.RuleDouble, bindgen.RuleInt64:
		switch {
		case isSymbol:
			return value.Value{}, &bindgen.TypeError{Expected: rule.String(), Got: "symbol", Message: "cannot convert a Symbol value to " + rule.String()}
		case kind == bindgen.RuleString:
			return value.String(v.String()), nil
		case isBigInt && kind == bindgen.RuleInt64:
			if !bigInt.IsInt64() {
				return value.Value{}, &bindgen.RangeError{Value: value.Opaque(v), Message: "BigInt is outside the int64 range"}
			}
			return value.Int64(bigInt.Int64()), nil
		case isBigInt:
			return value.Value{}, &bindgen.TypeError{Expected: rule.String(), Got: "bigint", Message: "cannot convert a BigInt value to " + rule.String()}
		}
		return value.Number(v.ToFloat()), nil
	}

	if isSymbol || isBigInt {
		return value.Opaque(v), nil
	}
	switch e := v.Export().(type) {
	case bool:
		return value.Bool(e), nil
	case int64:
		return value.Number(float64(e)), nil
	case float64:
		return value.Number(e), nil
	case string:
		return value.String(e), nil
	}
	return value.Opaque(v), nil
}

func (x *Binding) dictToValue(obj *goja.Object, rule *bindgen.Rule) (value.Value, error) {
	shape := x.dispatch.Tables().Dictionary(rule.Name)
	d := value.NewDict()
	if shape == nil {
		return value.DictOf(d), nil
	}
	for _, f := range shape.Fields {
		fv := obj.Get(f.Name)
		if fv == nil {
			continue
		}
		nv, err := x.toValue(fv, f.Rule)
		if err != nil {
			return value.Value{}, fmt.Errorf("%s.%s: %w", shape.Name, f.Name, err)
		}
		d.Set(f.Name, nv)
	}
	return value.DictOf(d), nil
}

func (x *Binding) arrayToValue(obj *goja.Object, elem *bindgen.Rule) (value.Value, error) {
	if obj.ClassName() != "Array" {
		return value.Opaque(obj), nil
	}
	n := obj.Get("length").ToInteger()
	out := make([]value.Value, n)
	for i := range out {
		nv, err := x.toValue(obj.Get(strconv.Itoa(i)), elem)
		if err != nil {
			return value.Value{}, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = nv
	}
	return value.ListOf(out...), nil
}

// fromValue converts a value for delivery to script.
func (x *Binding) fromValue(v value.Value) (goja.Value, error) {
	rt := x.runtime
	switch v.Kind() {
	case value.KindUndefined:
		return goja.Undefined(), nil
	case value.KindNull:
		return goja.Null(), nil
	case value.KindBool:
		b, _ := v.BoolValue()
		return rt.ToValue(b), nil
	case value.KindNumber:
		f, _ := v.NumberValue()
		return rt.ToValue(f), nil
	case value.KindInt64:
		i, _ := v.Int64Value()
		return rt.ToValue(float64(i)), nil
	case value.KindString:
		s, _ := v.StringValue()
		return rt.ToValue(s), nil
	case value.KindObject:
		h, ok := v.Ref().(*registry.Handle)
		if !ok {
			return nil, fmt.Errorf("gojabind: unsupported object reference %T", v.Ref())
		}
		return x.objectFor(h)
	case value.KindFunction:
		return x.scriptFunction(v.Function()), nil
	case value.KindList:
		items := v.List().Values()
		out := make([]any, len(items))
		for i, item := range items {
			sv, err := x.fromValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = sv
		}
		return rt.NewArray(out...), nil
	case value.KindDict:
		d := v.Dict()
		obj := rt.NewObject()
		for _, k := range d.Keys() {
			item, _ := d.Get(k)
			sv, err := x.fromValue(item)
			if err != nil {
				return nil, err
			}
			_ = obj.Set(k, sv)
		}
		return obj, nil
	case value.KindOpaque:
		switch payload := v.OpaquePayload().(type) {
		case goja.Value:
			return payload, nil
		case *dispatch.Cursor:
			return x.iteratorObject(payload), nil
		default:
			return rt.ToValue(payload), nil
		}
	default:
		return nil, fmt.Errorf("gojabind: unsupported value kind %s", v.Kind())
	}
}

// mustScript converts v, throwing on failure. It must only be called from
// code run by the script engine.
func (x *Binding) mustScript(v value.Value) goja.Value {
	sv, err := x.fromValue(v)
	if err != nil {
		x.throw(err)
	}
	return sv
}

// iteratorObject exposes a cursor through the iterator protocol.
func (x *Binding) iteratorObject(cursor *dispatch.Cursor) *goja.Object {
	rt := x.runtime
	obj := rt.NewObject()
	_ = obj.Set("next", func(goja.FunctionCall) goja.Value {
		v, done := cursor.Next()
		result := rt.NewObject()
		_ = result.Set("value", x.mustScript(v))
		_ = result.Set("done", done)
		return result
	})
	_ = obj.SetSymbol(goja.SymIterator, func(goja.FunctionCall) goja.Value {
		return obj
	})
	_ = obj.SetSymbol(goja.SymToStringTag, "Iterator")
	return obj
}
