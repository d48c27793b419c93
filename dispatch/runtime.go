// Package dispatch implements boundary crossings between script and native
// objects.
//
// Every crossing runs the same sequence of stages: Enter snapshots the
// target handle and its native object, DescriptorLookup finds the member in
// the binding table (falling through to the indexer when the interface has
// one), Marshal converts arguments, Invoke calls native code, Unmarshal
// converts the result, and Exit returns to the caller. Errors from any stage
// are returned as values; they never leave the registry inconsistent.
//
// A [Runtime] is meant to be driven from the single script thread. Native
// code may call [Runtime.EmitEvent] and [Runtime.Release] from any
// goroutine: both are queued onto the configured [Loop].
package dispatch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/joeycumines/logiface"

	"github.com/joeycumines/go-bindbridge/bindgen"
	"github.com/joeycumines/go-bindbridge/registry"
	"github.com/joeycumines/go-bindbridge/value"
)

// Stage is a step of a boundary crossing.
type Stage uint8

const (
	StageEnter Stage = iota
	StageDescriptorLookup
	StageFallthrough
	StageMarshal
	StageInvoke
	StageUnmarshal
	StageExit
)

var stageNames = [...]string{
	StageEnter:            "enter",
	StageDescriptorLookup: "descriptor lookup",
	StageFallthrough:      "fallthrough",
	StageMarshal:          "marshal",
	StageInvoke:           "invoke",
	StageUnmarshal:        "unmarshal",
	StageExit:             "exit",
}

func (x Stage) String() string {
	if int(x) < len(stageNames) {
		return stageNames[x]
	}
	return fmt.Sprintf("Stage(%d)", uint8(x))
}

// Runtime dispatches crossings against a set of binding tables. Use [New].
type Runtime struct {
	tables        *bindgen.Tables
	registry      *registry.Registry
	logger        *logiface.Logger[logiface.Event]
	loop          Loop
	listenerError func(err error)
	classes       map[string]Class
	pending       []func()
	mu            sync.Mutex
}

// New returns a runtime dispatching against tables, with handles tracked
// by reg.
func New(tables *bindgen.Tables, reg *registry.Registry, opts ...Option) (*Runtime, error) {
	if tables == nil {
		return nil, errors.New("dispatch: nil tables")
	}
	if reg == nil {
		return nil, errors.New("dispatch: nil registry")
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		tables:        tables,
		registry:      reg,
		logger:        cfg.logger,
		loop:          cfg.loop,
		listenerError: cfg.listenerError,
		classes:       make(map[string]Class),
	}, nil
}

// Tables returns the binding tables.
func (x *Runtime) Tables() *bindgen.Tables { return x.tables }

// Registry returns the handle registry.
func (x *Runtime) Registry() *registry.Registry { return x.registry }

// RegisterClass installs the native constructor and static members of
// iface, replacing any previous class.
func (x *Runtime) RegisterClass(iface string, class Class) error {
	if x.tables.Table(iface) == nil {
		return &UnknownInterfaceError{Interface: iface}
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.classes[iface] = class
	return nil
}

func (x *Runtime) class(iface string) (Class, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	c, ok := x.classes[iface]
	return c, ok
}

// Wrap registers a native object created by native code as an instance of
// iface.
func (x *Runtime) Wrap(native Native, iface string) (*registry.Handle, error) {
	if native == nil {
		return nil, errors.New("dispatch: nil native object")
	}
	if x.tables.Table(iface) == nil {
		return nil, &UnknownInterfaceError{Interface: iface}
	}
	return x.registry.Register(native, iface)
}

// crossing is the state of one boundary crossing.
type crossing struct {
	rt     *Runtime
	handle *registry.Handle
	native Native
	table  *bindgen.Table
	desc   *bindgen.Descriptor
	sel    Selector
	stage  Stage
}

// enter snapshots the proxy's handle and native object. Work started on the
// snapshot completes even if the handle is released meanwhile.
func (x *Runtime) enter(p *registry.Proxy) (*crossing, error) {
	c := &crossing{rt: x, stage: StageEnter}
	if p == nil {
		return c, ErrNilProxy
	}
	if err := p.Check(); err != nil {
		return c, err
	}
	h := p.Handle()
	c.handle = h
	c.sel.Interface = h.RefInterface()
	if _, err := x.registry.Lookup(h); err != nil {
		var stale *registry.StaleHandleError
		if errors.As(err, &stale) {
			// released between the check and the lookup
			return c, &registry.DetachedObjectError{Interface: stale.Interface, ID: stale.ID}
		}
		return c, err
	}
	native := h.Native()
	if native == nil {
		return c, &registry.DetachedObjectError{Interface: h.RefInterface(), ID: h.RefID()}
	}
	n, ok := native.(Native)
	if !ok {
		return c, fmt.Errorf("dispatch: %s handle %d: %T does not implement dispatch.Native", h.RefInterface(), h.RefID(), native)
	}
	c.native = n
	if c.table = x.tables.Table(h.RefInterface()); c.table == nil {
		return c, &UnknownInterfaceError{Interface: h.RefInterface()}
	}
	return c, nil
}

// lookup finds the instance member, falling through to the indexer. The
// returned descriptor is nil for unknown members.
func (c *crossing) lookup(name string, access bindgen.Access) *bindgen.Descriptor {
	c.stage = StageDescriptorLookup
	c.sel.Member = name
	c.sel.Access = access
	if d := c.table.Member(name); d != nil {
		c.desc = d
		return d
	}
	c.stage = StageFallthrough
	if d := c.table.Indexer; d != nil {
		c.desc = d
		c.sel.Indexed = true
		return d
	}
	return nil
}

func (c *crossing) unknown() error {
	return &UnknownMemberError{Interface: c.sel.Interface, Member: c.sel.Member, Static: c.sel.Static}
}

func (c *crossing) invoke(args []value.Value) (value.Value, error) {
	c.stage = StageInvoke
	return c.native.InvokeNative(c.sel, args)
}

// fail logs err against the stage it happened in.
func (c *crossing) fail(err error) error {
	if b := c.rt.logger.Debug(); b.Enabled() {
		b.Str(`interface`, c.sel.Interface).
			Str(`member`, c.sel.Member).
			Str(`stage`, c.stage.String()).
			Err(err).
			Log(`crossing failed`)
	}
	return err
}

// Get reads a property, or the indexer entry for a name that is not a
// member. Reading a method yields a [Method] bound to the proxy; reading an
// event accessor yields its handler or null.
func (x *Runtime) Get(p *registry.Proxy, name string) (value.Value, error) {
	c, err := x.enter(p)
	if err != nil {
		return value.Value{}, c.fail(err)
	}
	d := c.lookup(name, bindgen.AccessGet)
	switch {
	case d == nil:
		return value.Value{}, c.fail(c.unknown())
	case d.Access.Has(bindgen.AccessEvent):
		c.stage = StageExit
		return value.Func(c.handle.Handler(d.Event)), nil
	case d.Access.Has(bindgen.AccessCall):
		c.stage = StageExit
		return value.Func(&Method{runtime: x, proxy: p, name: d.Name}), nil
	case !d.Access.Has(bindgen.AccessGet):
		return value.Value{}, c.fail(c.unknown())
	}

	result, err := c.invoke(nil)
	if err != nil {
		return value.Value{}, c.fail(err)
	}

	c.stage = StageUnmarshal
	if c.sel.Indexed && result.IsUndefined() {
		return result, nil
	}
	result, err = d.ResultToScript(x.tables, c.sel.Interface, result)
	if err != nil {
		return value.Value{}, c.fail(err)
	}
	c.stage = StageExit
	return result, nil
}

// Set writes a property, or the indexer entry for a name that is not a
// member. Writing a member without set access fails with
// [ReadOnlyPropertyError] before native code is reached.
func (x *Runtime) Set(p *registry.Proxy, name string, v value.Value) error {
	c, err := x.enter(p)
	if err != nil {
		return c.fail(err)
	}
	d := c.lookup(name, bindgen.AccessSet)
	switch {
	case d == nil:
		return c.fail(c.unknown())
	case d.Access.Has(bindgen.AccessEvent):
		return x.setHandler(c, d, v)
	case !d.Access.Has(bindgen.AccessSet):
		return c.fail(&ReadOnlyPropertyError{Interface: c.sel.Interface, Member: name})
	}

	c.stage = StageMarshal
	nv, err := d.ValueToNative(x.tables, c.sel.Interface, v)
	if err != nil {
		return c.fail(err)
	}

	if _, err := c.invoke([]value.Value{nv}); err != nil {
		return c.fail(err)
	}
	c.stage = StageExit
	return nil
}

// Call invokes a method. Methods returning an iterator yield an opaque
// value holding a fresh *[Cursor].
func (x *Runtime) Call(p *registry.Proxy, name string, args []value.Value) (value.Value, error) {
	c, err := x.enter(p)
	if err != nil {
		return value.Value{}, c.fail(err)
	}
	c.stage = StageDescriptorLookup
	c.sel.Member = name
	c.sel.Access = bindgen.AccessCall
	d := c.table.Member(name)
	switch {
	case d == nil:
		return value.Value{}, c.fail(c.unknown())
	case !d.Access.Has(bindgen.AccessCall):
		return value.Value{}, c.fail(&NotCallableError{Interface: c.sel.Interface, Member: name})
	}
	c.desc = d
	return c.call(d, args)
}

func (c *crossing) call(d *bindgen.Descriptor, args []value.Value) (value.Value, error) {
	c.stage = StageMarshal
	nargs, err := d.ArgsToNative(c.rt.tables, c.sel.Interface, args)
	if err != nil {
		return value.Value{}, c.fail(err)
	}

	result, err := c.invoke(nargs)
	if err != nil {
		return value.Value{}, c.fail(err)
	}

	c.stage = StageUnmarshal
	result, err = d.ResultToScript(c.rt.tables, c.sel.Interface, result)
	if err != nil {
		return value.Value{}, c.fail(err)
	}
	if d.Value.Kind == bindgen.RuleIterator {
		result = value.Opaque(newCursor(result.List()))
	}
	c.stage = StageExit
	return result, nil
}

// Iterate calls the iteration entry point, returning a new cursor over the
// collection as of this call.
func (x *Runtime) Iterate(p *registry.Proxy) (*Cursor, error) {
	c, err := x.enter(p)
	if err != nil {
		return nil, c.fail(err)
	}
	c.stage = StageDescriptorLookup
	c.sel.Access = bindgen.AccessIterate
	d := c.table.Iterator
	if d == nil {
		c.sel.Member = "@@iterator"
		return nil, c.fail(c.unknown())
	}
	c.desc = d
	c.sel.Member = d.Name

	result, err := c.invoke(nil)
	if err != nil {
		return nil, c.fail(err)
	}

	c.stage = StageUnmarshal
	result, err = d.ResultToScript(x.tables, c.sel.Interface, result)
	if err != nil {
		return nil, c.fail(err)
	}
	c.stage = StageExit
	return newCursor(result.List()), nil
}

// Construct runs the constructor of iface. Interfaces that are not
// constructible fail with [NotConstructibleError] before native code is
// reached.
func (x *Runtime) Construct(iface string, args []value.Value) (*registry.Handle, error) {
	c := &crossing{rt: x, stage: StageEnter, sel: Selector{Interface: iface, Member: "constructor", Access: bindgen.AccessConstruct}}
	t := x.tables.Table(iface)
	if t == nil {
		return nil, c.fail(&UnknownInterfaceError{Interface: iface})
	}

	c.stage = StageDescriptorLookup
	d := t.Constructor
	if !t.Constructible || d.Effect == bindgen.EffectNotConstructible {
		return nil, c.fail(&NotConstructibleError{Interface: iface})
	}
	class, ok := x.class(iface)
	if !ok || class.Construct == nil {
		return nil, c.fail(&NotConstructibleError{Interface: iface, Reason: "no native class registered"})
	}

	c.stage = StageMarshal
	nargs, err := d.ArgsToNative(x.tables, iface, args)
	if err != nil {
		return nil, c.fail(err)
	}

	c.stage = StageInvoke
	native, err := class.Construct(nargs)
	if err != nil {
		return nil, c.fail(err)
	}
	if native == nil {
		return nil, c.fail(fmt.Errorf("dispatch: %s constructor returned nil", iface))
	}

	c.stage = StageUnmarshal
	h, err := x.registry.Register(native, iface)
	if err != nil {
		return nil, c.fail(err)
	}
	c.stage = StageExit
	return h, nil
}

func (x *Runtime) static(iface, name string, access bindgen.Access) (*crossing, *bindgen.Descriptor, error) {
	c := &crossing{rt: x, stage: StageEnter, sel: Selector{Interface: iface, Member: name, Access: access, Static: true}}
	t := x.tables.Table(iface)
	if t == nil {
		return c, nil, &UnknownInterfaceError{Interface: iface}
	}
	class, _ := x.class(iface)

	c.stage = StageDescriptorLookup
	d := t.Static(name)
	if d == nil || class.Static == nil {
		return c, nil, c.unknown()
	}
	c.native = class.Static
	c.desc = d
	return c, d, nil
}

// CallStatic invokes a static method of iface.
func (x *Runtime) CallStatic(iface, name string, args []value.Value) (value.Value, error) {
	c, d, err := x.static(iface, name, bindgen.AccessCall)
	if err != nil {
		return value.Value{}, c.fail(err)
	}
	if !d.Access.Has(bindgen.AccessCall) {
		return value.Value{}, c.fail(&NotCallableError{Interface: iface, Member: name})
	}
	return c.call(d, args)
}

// GetStatic reads a static property of iface.
func (x *Runtime) GetStatic(iface, name string) (value.Value, error) {
	c, d, err := x.static(iface, name, bindgen.AccessGet)
	if err != nil {
		return value.Value{}, c.fail(err)
	}
	if !d.Access.Has(bindgen.AccessGet) || d.Access.Has(bindgen.AccessCall) {
		return value.Value{}, c.fail(c.unknown())
	}

	result, err := c.invoke(nil)
	if err != nil {
		return value.Value{}, c.fail(err)
	}

	c.stage = StageUnmarshal
	result, err = d.ResultToScript(x.tables, iface, result)
	if err != nil {
		return value.Value{}, c.fail(err)
	}
	c.stage = StageExit
	return result, nil
}
