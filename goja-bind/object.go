package gojabind

import (
	"errors"
	"strconv"

	"github.com/dop251/goja"

	"github.com/joeycumines/go-bindbridge/bindgen"
	"github.com/joeycumines/go-bindbridge/registry"
	"github.com/joeycumines/go-bindbridge/value"
)

// objectFor returns the live script object of h, or builds a new one.
func (x *Binding) objectFor(h *registry.Handle) (*goja.Object, error) {
	p, err := x.dispatch.Registry().BindProxy(h, func(p *registry.Proxy) any {
		return x.newObject(p)
	})
	if err != nil {
		return nil, err
	}
	obj, ok := p.Payload().(*goja.Object)
	if !ok {
		return nil, errors.New("gojabind: handle is bound to another engine")
	}
	return obj, nil
}

// proxyOf returns the proxy wrapped by v, or nil if v is not one of this
// binding's objects.
func (x *Binding) proxyOf(v goja.Value) *registry.Proxy {
	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		return nil
	}
	sv := obj.GetSymbol(x.proxySym)
	if sv == nil || goja.IsUndefined(sv) {
		return nil
	}
	p, _ := sv.Export().(*registry.Proxy)
	return p
}

// newObject builds the proxy object of p. Property access runs through the
// dispatch runtime; anything else falls back to the target, whose
// prototype is the interface prototype.
func (x *Binding) newObject(p *registry.Proxy) *goja.Object {
	rt := x.runtime
	iface := p.Handle().RefInterface()
	table := x.dispatch.Tables().Table(iface)
	target := rt.NewObject()
	if proto := x.protos[iface]; proto != nil {
		_ = target.SetPrototype(proto)
	}
	self := rt.ToValue(p)
	trap := &objectTrap{binding: x, proxy: p, table: table, target: target}

	proxy := rt.NewProxy(target, &goja.ProxyTrapConfig{
		Get: func(_ *goja.Object, property string, _ goja.Value) goja.Value {
			return trap.get(property)
		},
		GetIdx: func(_ *goja.Object, property int, _ goja.Value) goja.Value {
			return trap.get(strconv.Itoa(property))
		},
		GetSym: func(_ *goja.Object, property *goja.Symbol, _ goja.Value) goja.Value {
			switch property {
			case x.proxySym:
				return self
			case goja.SymIterator:
				if table != nil && table.Iterator != nil {
					return trap.iterator()
				}
			}
			if v := target.GetSymbol(property); v != nil {
				return v
			}
			return goja.Undefined()
		},
		Set: func(_ *goja.Object, property string, v goja.Value, _ goja.Value) bool {
			trap.set(property, v)
			return true
		},
		SetIdx: func(_ *goja.Object, property int, v goja.Value, _ goja.Value) bool {
			trap.set(strconv.Itoa(property), v)
			return true
		},
		Has: func(_ *goja.Object, property string) bool {
			return trap.has(property)
		},
		HasIdx: func(_ *goja.Object, property int) bool {
			return trap.has(strconv.Itoa(property))
		},
		HasSym: func(_ *goja.Object, property *goja.Symbol) bool {
			switch property {
			case x.proxySym:
				return true
			case goja.SymIterator:
				if table != nil && table.Iterator != nil {
					return true
				}
			}
			return target.GetSymbol(property) != nil
		},
	})
	obj := rt.ToValue(proxy).ToObject(rt)

	if b := x.logger.Debug(); b.Enabled() {
		b.Uint64(`handle`, p.Handle().RefID()).
			Str(`interface`, iface).
			Log(`created script object`)
	}
	return obj
}

type objectTrap struct {
	binding *Binding
	proxy   *registry.Proxy
	table   *bindgen.Table
	target  *goja.Object
	iter    goja.Value
}

// rule returns the rule for values assigned to property, or nil.
func (x *objectTrap) rule(property string) *bindgen.Rule {
	if x.table == nil {
		return nil
	}
	if d := x.table.Member(property); d != nil {
		return d.Value
	}
	if x.table.Indexer != nil {
		return x.table.Indexer.Value
	}
	return nil
}

func (x *objectTrap) get(property string) goja.Value {
	b := x.binding
	if x.table != nil {
		if d := x.table.Member(property); d != nil {
			v, err := b.dispatch.Get(x.proxy, property)
			if err != nil {
				b.throw(err)
			}
			if d.Access.Has(bindgen.AccessCall) {
				// the shared prototype function
				if fn := x.target.Get(property); fn != nil {
					return fn
				}
			}
			return b.mustScript(v)
		}
	}
	if v := x.target.Get(property); v != nil {
		return v
	}
	v, err := b.dispatch.Get(x.proxy, property)
	if err != nil {
		b.throw(err)
	}
	return b.mustScript(v)
}

func (x *objectTrap) set(property string, v goja.Value) {
	b := x.binding
	nv, err := b.toValue(v, x.rule(property))
	if err != nil {
		b.throw(err)
	}
	if err := b.dispatch.Set(x.proxy, property, nv); err != nil {
		b.throw(err)
	}
}

func (x *objectTrap) has(property string) bool {
	if x.table != nil && x.table.Member(property) != nil {
		return true
	}
	if x.target.Get(property) != nil {
		return true
	}
	if x.table == nil || x.table.Indexer == nil {
		return false
	}
	v, err := x.binding.dispatch.Get(x.proxy, property)
	return err == nil && !v.IsUndefined()
}

// iterator returns the [Symbol.iterator] function of the object.
func (x *objectTrap) iterator() goja.Value {
	if x.iter != nil {
		return x.iter
	}
	b := x.binding
	x.iter = b.runtime.ToValue(func(call goja.FunctionCall) goja.Value {
		p := b.proxyOf(call.This)
		if p == nil {
			p = x.proxy
		}
		cursor, err := b.dispatch.Iterate(p)
		if err != nil {
			b.throw(err)
		}
		return b.mustScript(value.Opaque(cursor))
	})
	return x.iter
}
