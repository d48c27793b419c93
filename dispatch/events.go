package dispatch

import (
	"errors"

	"github.com/joeycumines/go-bindbridge/bindgen"
	"github.com/joeycumines/go-bindbridge/registry"
	"github.com/joeycumines/go-bindbridge/value"
)

// Method is a method read off a proxy. Calling it dispatches through
// [Runtime.Call] on that proxy; this is ignored.
type Method struct {
	runtime *Runtime
	proxy   *registry.Proxy
	name    string
}

// Name returns the method name.
func (x *Method) Name() string { return x.name }

// Proxy returns the proxy the method was read from.
func (x *Method) Proxy() *registry.Proxy { return x.proxy }

func (x *Method) Call(_ value.Value, args ...value.Value) (value.Value, error) {
	return x.runtime.Call(x.proxy, x.name, args)
}

// SameAs reports whether other is the same method of the same proxy.
func (x *Method) SameAs(other value.Function) bool {
	o, ok := other.(*Method)
	return ok && o.runtime == x.runtime && o.proxy == x.proxy && o.name == x.name
}

func (x *Runtime) eventCrossing(p *registry.Proxy, event string, access bindgen.Access) (*crossing, error) {
	c, err := x.enter(p)
	if err != nil {
		return c, err
	}
	c.stage = StageDescriptorLookup
	c.sel.Member = event
	c.sel.Access = access
	if !c.table.HasEvent(event) {
		return c, &UnknownEventError{Interface: c.sel.Interface, Event: event}
	}
	c.desc = c.table.EventAccessor(event)
	return c, nil
}

// AddEventListener records fn on the listener list of the proxy's handle.
// Adding the same function twice is a no-op.
func (x *Runtime) AddEventListener(p *registry.Proxy, event string, fn value.Function, once bool) (registry.ListenerID, error) {
	c, err := x.eventCrossing(p, event, bindgen.AccessEvent)
	if err != nil {
		return 0, c.fail(err)
	}
	c.stage = StageInvoke
	id, err := c.handle.AddListener(event, fn, once)
	if err != nil {
		return 0, c.fail(err)
	}
	return id, nil
}

// RemoveEventListener removes a listener added with [Runtime.AddEventListener].
func (x *Runtime) RemoveEventListener(p *registry.Proxy, event string, fn value.Function) (bool, error) {
	c, err := x.eventCrossing(p, event, bindgen.AccessEvent)
	if err != nil {
		return false, c.fail(err)
	}
	return c.handle.RemoveListener(event, fn), nil
}

// SetEventHandler assigns the on<event> handler. Null and undefined clear
// it.
func (x *Runtime) SetEventHandler(p *registry.Proxy, event string, v value.Value) error {
	c, err := x.eventCrossing(p, event, bindgen.AccessSet|bindgen.AccessEvent)
	if err != nil {
		return c.fail(err)
	}
	return x.setHandler(c, c.desc, v)
}

func (x *Runtime) setHandler(c *crossing, d *bindgen.Descriptor, v value.Value) error {
	c.stage = StageMarshal
	nv, err := d.ValueToNative(x.tables, c.sel.Interface, v)
	if err != nil {
		return c.fail(err)
	}
	c.stage = StageInvoke
	if err := c.handle.SetHandler(d.Event, nv.Function()); err != nil {
		return c.fail(err)
	}
	c.stage = StageExit
	return nil
}

// GetEventHandler returns the on<event> handler, or nil.
func (x *Runtime) GetEventHandler(p *registry.Proxy, event string) (value.Function, error) {
	c, err := x.eventCrossing(p, event, bindgen.AccessGet|bindgen.AccessEvent)
	if err != nil {
		return nil, c.fail(err)
	}
	return c.handle.Handler(event), nil
}

// EmitEvent delivers an event from native code to the listeners of h. It is
// safe to call from any goroutine: delivery is queued onto the loop (or held
// for [Runtime.Drain]). Listeners are called with the handle as this, which
// the script side maps back to the handle's proxy. A handle released
// before delivery receives nothing.
func (x *Runtime) EmitEvent(h *registry.Handle, event string, payload value.Value) error {
	if _, err := x.registry.Lookup(h); err != nil {
		return err
	}
	t := x.tables.Table(h.RefInterface())
	if t == nil {
		return &UnknownInterfaceError{Interface: h.RefInterface()}
	}
	if !t.HasEvent(event) {
		return &UnknownEventError{Interface: h.RefInterface(), Event: event}
	}
	return x.submit(func() { x.deliver(h, event, payload) })
}

func (x *Runtime) deliver(h *registry.Handle, event string, payload value.Value) {
	this := value.Object(h)
	err := h.Dispatch(event, func(fn value.Function) error {
		_, err := fn.Call(this, payload)
		return err
	})
	if err == nil {
		return
	}
	var stale *registry.StaleHandleError
	if errors.As(err, &stale) {
		x.logger.Debug().
			Uint64(`handle`, h.RefID()).
			Str(`event`, event).
			Log(`dropped event for released handle`)
		return
	}
	if x.listenerError != nil {
		x.listenerError(err)
		return
	}
	x.logger.Warning().
		Uint64(`handle`, h.RefID()).
		Str(`event`, event).
		Err(err).
		Log(`event listener failed`)
}

// Release releases h on the script thread, detaching its proxy. With a loop
// configured the release is queued and Release only reports submission
// errors; a handle already released fails immediately with
// [registry.StaleHandleError].
func (x *Runtime) Release(h *registry.Handle) error {
	if _, err := x.registry.Lookup(h); err != nil {
		return err
	}
	if x.loop == nil {
		return x.registry.Release(h)
	}
	return x.loop.Submit(func() {
		if err := x.registry.Release(h); err != nil {
			x.logger.Debug().
				Uint64(`handle`, h.RefID()).
				Err(err).
				Log(`queued release failed`)
		}
	})
}

// RegisterFinalizer arranges for onCollect to run on the script thread once
// the script engine has collected the proxy of h.
func (x *Runtime) RegisterFinalizer(h *registry.Handle, onCollect func(h *registry.Handle)) error {
	if onCollect == nil {
		return nil
	}
	return x.registry.RegisterFinalizer(h, func(h *registry.Handle) {
		if err := x.submit(func() { onCollect(h) }); err != nil {
			x.logger.Warning().
				Uint64(`handle`, h.RefID()).
				Err(err).
				Log(`finalizer dropped`)
		}
	})
}

func (x *Runtime) submit(task func()) error {
	if x.loop != nil {
		return x.loop.Submit(task)
	}
	x.mu.Lock()
	x.pending = append(x.pending, task)
	x.mu.Unlock()
	return nil
}

// Drain runs the deliveries queued without a loop, including any queued
// while draining, and returns how many ran. It must be called from the
// script thread.
func (x *Runtime) Drain() int {
	var n int
	for {
		x.mu.Lock()
		tasks := x.pending
		x.pending = nil
		x.mu.Unlock()
		if len(tasks) == 0 {
			return n
		}
		for _, task := range tasks {
			task()
			n++
		}
	}
}
