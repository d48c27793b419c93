package registry

import (
	"sync"
	"sync/atomic"
	"weak"
)

// Handle is the stable native-side identity of one bridged object. It is
// created by [Registry.Register] and implements value.Ref, so it crosses the
// boundary as an object reference.
//
// The registry holds the only strong reference to the native object; proxies
// reach it through their handle, so releasing the handle ends native
// visibility regardless of what script retains.
type Handle struct {
	registry       *Registry
	native         any
	listeners      map[string][]listenerEntry
	finalizers     []func(h *Handle)
	proxy          weak.Pointer[Proxy]
	iface          string
	id             uint64
	proxyGen       uint64
	nextListenerID ListenerID
	mu             sync.RWMutex
	released       bool
}

// RefID returns the handle ID, unique within its registry. IDs start at 1.
func (x *Handle) RefID() uint64 { return x.id }

// RefInterface returns the interface name the handle was registered with.
func (x *Handle) RefInterface() string { return x.iface }

// Native returns the native object, or nil once released.
func (x *Handle) Native() any {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.native
}

// Released reports whether [Registry.Release] has been called for the handle.
func (x *Handle) Released() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.released
}

func (x *Handle) stale() error {
	return &StaleHandleError{Interface: x.iface, ID: x.id}
}

// Proxy is the native-side record of the script-visible representative of a
// handle. The registry only keeps a weak pointer to it: whatever the script
// engine uses as the object (the payload) must keep the *Proxy reachable,
// and once the engine drops the object the proxy is collected.
type Proxy struct {
	handle   *Handle
	payload  any
	detached atomic.Bool
}

// Handle returns the proxied handle. It stays valid after detachment, for
// error reporting.
func (x *Proxy) Handle() *Handle { return x.handle }

// Payload returns the value built by [Registry.BindProxy], e.g. the engine
// object.
func (x *Proxy) Payload() any { return x.payload }

// Detached reports whether the proxy's handle has been released.
func (x *Proxy) Detached() bool { return x.detached.Load() }

// Check returns a [DetachedObjectError] if the proxy is detached.
func (x *Proxy) Check() error {
	if x.detached.Load() {
		return &DetachedObjectError{Interface: x.handle.iface, ID: x.handle.id}
	}
	return nil
}
