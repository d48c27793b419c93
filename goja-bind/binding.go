package gojabind

import (
	"errors"

	"github.com/dop251/goja"
	"github.com/joeycumines/logiface"

	"github.com/joeycumines/go-bindbridge/bindgen"
	"github.com/joeycumines/go-bindbridge/dispatch"
	"github.com/joeycumines/go-bindbridge/registry"
)

// Binding exposes a [dispatch.Runtime] to one [goja.Runtime].
type Binding struct {
	runtime  *goja.Runtime
	dispatch *dispatch.Runtime
	logger   *logiface.Logger[logiface.Event]
	// proxySym is a private symbol; reading it through a proxy object yields
	// the wrapped *registry.Proxy.
	proxySym *goja.Symbol
	ctors    map[string]*goja.Object
	protos   map[string]*goja.Object
	order    []string
}

// New builds the constructor and prototype of every interface in the
// dispatch runtime's tables. It panics if runtime is nil.
func New(runtime *goja.Runtime, rt *dispatch.Runtime, opts ...Option) (*Binding, error) {
	if runtime == nil {
		panic("gojabind: runtime must not be nil")
	}
	if rt == nil {
		return nil, errors.New("gojabind: nil dispatch runtime")
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	x := &Binding{
		runtime:  runtime,
		dispatch: rt,
		logger:   cfg.logger,
		proxySym: goja.NewSymbol("bindbridge.proxy"),
		ctors:    make(map[string]*goja.Object),
		protos:   make(map[string]*goja.Object),
	}
	for _, t := range rt.Tables().All() {
		x.class(t)
	}
	x.logger.Debug().
		Int(`interfaces`, len(x.order)).
		Log(`bound interfaces`)
	return x, nil
}

// Runtime returns the goja runtime.
func (x *Binding) Runtime() *goja.Runtime { return x.runtime }

// Dispatch returns the dispatch runtime.
func (x *Binding) Dispatch() *dispatch.Runtime { return x.dispatch }

// Bind defines every constructor as a global of the runtime.
func (x *Binding) Bind() error {
	global := x.runtime.GlobalObject()
	for _, name := range x.order {
		if err := global.Set(name, x.ctors[name]); err != nil {
			return err
		}
	}
	return nil
}

// SetupExports defines every constructor on exports.
func (x *Binding) SetupExports(exports *goja.Object) {
	for _, name := range x.order {
		_ = exports.Set(name, x.ctors[name])
	}
}

// Constructor returns the constructor of iface, or nil.
func (x *Binding) Constructor(iface string) *goja.Object { return x.ctors[iface] }

// Prototype returns the prototype of iface instances, or nil.
func (x *Binding) Prototype(iface string) *goja.Object { return x.protos[iface] }

// Object returns the script object of h, creating it if the handle has no
// live proxy.
func (x *Binding) Object(h *registry.Handle) (*goja.Object, error) {
	return x.objectFor(h)
}

// Handle returns the handle wrapped by the script object v, or nil.
func (x *Binding) Handle(v goja.Value) *registry.Handle {
	if p := x.proxyOf(v); p != nil {
		return p.Handle()
	}
	return nil
}

// RegisterFinalizer arranges for onCollect to run on the loop once the
// script object of h has been garbage collected.
func (x *Binding) RegisterFinalizer(h *registry.Handle, onCollect func(h *registry.Handle)) error {
	return x.dispatch.RegisterFinalizer(h, onCollect)
}

// class returns the constructor for t, building it and its ancestors on
// first use.
func (x *Binding) class(t *bindgen.Table) *goja.Object {
	if ctor, ok := x.ctors[t.Interface]; ok {
		return ctor
	}
	rt := x.runtime
	iface := t.Interface

	proto := rt.NewObject()
	if t.Parent != "" {
		if parent := x.dispatch.Tables().Table(t.Parent); parent != nil {
			x.class(parent)
			_ = proto.SetPrototype(x.protos[t.Parent])
		}
	}

	ctor := rt.ToValue(func(call goja.ConstructorCall) *goja.Object {
		args, err := x.args(call.Arguments, t.Constructor.Params)
		if err != nil {
			x.throw(err)
		}
		h, err := x.dispatch.Construct(iface, args)
		if err != nil {
			x.throw(err)
		}
		obj, err := x.objectFor(h)
		if err != nil {
			x.throw(err)
		}
		return obj
	}).(*goja.Object)

	_ = ctor.Set("prototype", proto)
	_ = proto.DefineDataProperty("constructor", ctor, goja.FLAG_TRUE, goja.FLAG_FALSE, goja.FLAG_FALSE)
	_ = proto.SetSymbol(goja.SymToStringTag, iface)

	for _, d := range t.Members {
		if d.Access.Has(bindgen.AccessCall) && d != t.Iterator {
			_ = proto.Set(d.Name, x.method(d.Name))
		}
	}
	if len(t.Events) != 0 {
		if t.Member("addEventListener") == nil {
			_ = proto.Set("addEventListener", x.addEventListener)
		}
		if t.Member("removeEventListener") == nil {
			_ = proto.Set("removeEventListener", x.removeEventListener)
		}
	}
	for _, d := range t.Statics {
		x.static(ctor, iface, d)
	}

	x.ctors[iface] = ctor
	x.protos[iface] = proto
	x.order = append(x.order, iface)
	return ctor
}

// method returns the shared prototype function of an instance method.
func (x *Binding) method(name string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		p := x.proxyOf(call.This)
		if p == nil {
			panic(x.runtime.NewTypeError("Illegal invocation"))
		}
		var params []bindgen.Param
		if t := x.dispatch.Tables().Table(p.Handle().RefInterface()); t != nil {
			if d := t.Member(name); d != nil {
				params = d.Params
			}
		}
		args, err := x.args(call.Arguments, params)
		if err != nil {
			x.throw(err)
		}
		result, err := x.dispatch.Call(p, name, args)
		if err != nil {
			x.throw(err)
		}
		return x.mustScript(result)
	}
}

func (x *Binding) static(ctor *goja.Object, iface string, d *bindgen.Descriptor) {
	name := d.Name
	if d.Access.Has(bindgen.AccessCall) {
		params := d.Params
		_ = ctor.Set(name, func(call goja.FunctionCall) goja.Value {
			args, err := x.args(call.Arguments, params)
			if err != nil {
				x.throw(err)
			}
			result, err := x.dispatch.CallStatic(iface, name, args)
			if err != nil {
				x.throw(err)
			}
			return x.mustScript(result)
		})
		return
	}
	getter := x.runtime.ToValue(func(goja.FunctionCall) goja.Value {
		result, err := x.dispatch.GetStatic(iface, name)
		if err != nil {
			x.throw(err)
		}
		return x.mustScript(result)
	})
	_ = ctor.DefineAccessorProperty(name, getter, nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

func (x *Binding) addEventListener(call goja.FunctionCall) goja.Value {
	p := x.proxyOf(call.This)
	if p == nil {
		panic(x.runtime.NewTypeError("Illegal invocation"))
	}
	event := call.Argument(0).String()
	listener := call.Argument(1)
	if goja.IsUndefined(listener) || goja.IsNull(listener) {
		return goja.Undefined()
	}
	fn, err := x.function(listener)
	if err != nil {
		x.throw(err)
	}
	var once bool
	if opts, ok := call.Argument(2).(*goja.Object); ok {
		if v := opts.Get("once"); v != nil {
			once = v.ToBoolean()
		}
	}
	if _, err := x.dispatch.AddEventListener(p, event, fn, once); err != nil {
		x.throw(err)
	}
	return goja.Undefined()
}

func (x *Binding) removeEventListener(call goja.FunctionCall) goja.Value {
	p := x.proxyOf(call.This)
	if p == nil {
		panic(x.runtime.NewTypeError("Illegal invocation"))
	}
	event := call.Argument(0).String()
	listener := call.Argument(1)
	if goja.IsUndefined(listener) || goja.IsNull(listener) {
		return goja.Undefined()
	}
	fn, err := x.function(listener)
	if err != nil {
		x.throw(err)
	}
	if _, err := x.dispatch.RemoveEventListener(p, event, fn); err != nil {
		x.throw(err)
	}
	return goja.Undefined()
}
