// Package registry tracks native objects crossing into script.
//
// A [Registry] issues one [Handle] per registered native object and keeps at
// most one live [Proxy] per handle, so crossing the same object twice yields
// the same script-visible object. Proxies are referenced weakly: script-side
// visibility never extends the lifetime of the native object, and releasing
// a handle permanently detaches its proxy.
//
// Lookups are safe from any goroutine. Callers are expected to funnel
// [Registry.BindProxy] and [Registry.Release] through the script thread.
package registry

import (
	"errors"
	"runtime"
	"sync"
	"weak"

	"github.com/joeycumines/logiface"
)

// Registry maps handle IDs to handles. Use [New].
type Registry struct {
	logger    *logiface.Logger[logiface.Event]
	onCollect func(h *Handle)
	handles   map[uint64]*Handle
	nextID    uint64
	mu        sync.RWMutex
}

// collectKey identifies one proxy generation of a handle.
type collectKey struct {
	id  uint64
	gen uint64
}

// New returns an empty registry.
func New(opts ...Option) (*Registry, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Registry{
		logger:    cfg.logger,
		onCollect: cfg.onCollect,
		handles:   make(map[uint64]*Handle),
		nextID:    1,
	}, nil
}

// Register issues a new handle for native, as an instance of iface. The same
// native object registered twice gets two handles.
func (x *Registry) Register(native any, iface string) (*Handle, error) {
	if iface == "" {
		return nil, errors.New("registry: interface name required")
	}

	h := &Handle{
		registry:       x,
		native:         native,
		iface:          iface,
		listeners:      make(map[string][]listenerEntry),
		nextListenerID: 1,
	}

	x.mu.Lock()
	h.id = x.nextID
	x.nextID++
	x.handles[h.id] = h
	x.mu.Unlock()

	x.logger.Debug().
		Uint64(`handle`, h.id).
		Str(`interface`, iface).
		Log(`registered handle`)

	return h, nil
}

// Get returns the registered handle with the ID.
func (x *Registry) Get(id uint64) (*Handle, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	h, ok := x.handles[id]
	return h, ok
}

// Len returns the number of registered handles.
func (x *Registry) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.handles)
}

func (x *Registry) check(h *Handle) error {
	if h == nil {
		return ErrNilHandle
	}
	if h.registry != x {
		return ErrForeignHandle
	}
	return nil
}

// Lookup returns the live proxy of h, or nil if none is bound or the last
// one has been collected. It fails with [StaleHandleError] after release.
func (x *Registry) Lookup(h *Handle) (*Proxy, error) {
	if err := x.check(h); err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.released {
		return nil, h.stale()
	}
	return h.proxy.Value(), nil
}

// BindProxy returns the live proxy of h, creating one if there is none. For
// a new proxy, build is called (with the handle locked, so it must not use
// the registry) to produce the payload, which must keep the proxy reachable
// for as long as the script object exists. It fails with
// [StaleHandleError] after release.
func (x *Registry) BindProxy(h *Handle, build func(p *Proxy) any) (*Proxy, error) {
	if err := x.check(h); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil, h.stale()
	}
	if p := h.proxy.Value(); p != nil {
		return p, nil
	}

	p := &Proxy{handle: h}
	if build != nil {
		p.payload = build(p)
	}
	h.proxyGen++
	h.proxy = weak.Make(p)
	runtime.AddCleanup(p, x.collected, collectKey{id: h.id, gen: h.proxyGen})

	x.logger.Debug().
		Uint64(`handle`, h.id).
		Uint64(`generation`, h.proxyGen).
		Log(`bound proxy`)

	return p, nil
}

// Release unregisters h, dropping the native reference and every listener,
// and permanently detaches its live proxy, if any. Releasing twice fails
// with [StaleHandleError].
func (x *Registry) Release(h *Handle) error {
	if err := x.check(h); err != nil {
		return err
	}

	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return h.stale()
	}
	h.released = true
	h.native = nil
	h.listeners = make(map[string][]listenerEntry)
	h.finalizers = nil
	p := h.proxy.Value()
	h.proxy = weak.Pointer[Proxy]{}
	h.mu.Unlock()

	if p != nil {
		p.detached.Store(true)
	}

	x.mu.Lock()
	delete(x.handles, h.id)
	x.mu.Unlock()

	x.logger.Debug().
		Uint64(`handle`, h.id).
		Str(`interface`, h.iface).
		Bool(`detached`, p != nil).
		Log(`released handle`)

	return nil
}

// collected runs on the cleanup goroutine once a proxy is unreachable.
func (x *Registry) collected(key collectKey) {
	h, ok := x.Get(key.id)
	if !ok {
		return
	}

	h.mu.Lock()
	current := !h.released && h.proxyGen == key.gen
	var finalizers []func(h *Handle)
	if current {
		finalizers, h.finalizers = h.finalizers, nil
	}
	h.mu.Unlock()
	if !current {
		return
	}

	x.logger.Debug().
		Uint64(`handle`, key.id).
		Uint64(`generation`, key.gen).
		Log(`proxy collected`)

	for _, fn := range finalizers {
		fn(h)
	}
	if x.onCollect != nil {
		x.onCollect(h)
	}
}

// RegisterFinalizer arranges for fn to be called once, on the cleanup
// goroutine, after the current or next proxy of h is collected by the script
// engine. Finalizers are dropped on release.
func (x *Registry) RegisterFinalizer(h *Handle, fn func(h *Handle)) error {
	if err := x.check(h); err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return h.stale()
	}
	h.finalizers = append(h.finalizers, fn)
	return nil
}
