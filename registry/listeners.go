package registry

import (
	"errors"

	"github.com/joeycumines/go-bindbridge/value"
)

// ListenerID identifies a listener registered with [Handle.AddListener].
type ListenerID uint64

type listenerEntry struct {
	fn      value.Function
	id      ListenerID
	once    bool
	handler bool // the on<event> slot
}

// AddListener appends fn to the listener list of event. Every proxy of the
// handle shares the list.
//
// Adding a function that is already registered for event (compared with
// value.Function.SameAs) is a no-op returning the existing ID. A nil fn
// returns 0.
func (x *Handle) AddListener(event string, fn value.Function, once bool) (ListenerID, error) {
	if fn == nil {
		return 0, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.released {
		return 0, x.stale()
	}

	for _, entry := range x.listeners[event] {
		if !entry.handler && entry.fn.SameAs(fn) {
			return entry.id, nil
		}
	}

	id := x.nextListener()
	x.listeners[event] = append(x.listeners[event], listenerEntry{
		id:   id,
		fn:   fn,
		once: once,
	})
	return id, nil
}

func (x *Handle) nextListener() ListenerID {
	id := x.nextListenerID
	x.nextListenerID++
	return id
}

// RemoveListener removes the listener registered for event that is the same
// function as fn. The handler slot is not affected.
func (x *Handle) RemoveListener(event string, fn value.Function) bool {
	if fn == nil {
		return false
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.removeLocked(event, func(entry listenerEntry) bool {
		return !entry.handler && entry.fn.SameAs(fn)
	})
}

// RemoveListenerByID removes a listener by the ID returned from
// [Handle.AddListener].
func (x *Handle) RemoveListenerByID(event string, id ListenerID) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.removeLocked(event, func(entry listenerEntry) bool {
		return entry.id == id
	})
}

func (x *Handle) removeLocked(event string, match func(entry listenerEntry) bool) bool {
	entries := x.listeners[event]
	for i, entry := range entries {
		if match(entry) {
			if len(entries) == 1 {
				delete(x.listeners, event)
			} else {
				x.listeners[event] = append(entries[:i:i], entries[i+1:]...)
			}
			return true
		}
	}
	return false
}

// SetHandler assigns the on<event> handler slot. The slot keeps the list
// position of its first assignment; assigning nil removes it.
func (x *Handle) SetHandler(event string, fn value.Function) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.released {
		return x.stale()
	}

	entries := x.listeners[event]
	for i, entry := range entries {
		if entry.handler {
			if fn == nil {
				x.removeLocked(event, func(entry listenerEntry) bool { return entry.handler })
			} else {
				entries[i].fn = fn
			}
			return nil
		}
	}
	if fn != nil {
		x.listeners[event] = append(entries, listenerEntry{
			id:      x.nextListener(),
			fn:      fn,
			handler: true,
		})
	}
	return nil
}

// Handler returns the on<event> handler, or nil.
func (x *Handle) Handler(event string) value.Function {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, entry := range x.listeners[event] {
		if entry.handler {
			return entry.fn
		}
	}
	return nil
}

// Listeners returns a snapshot of the functions registered for event,
// including the handler slot, in dispatch order.
func (x *Handle) Listeners(event string) []value.Function {
	x.mu.RLock()
	defer x.mu.RUnlock()
	entries := x.listeners[event]
	if len(entries) == 0 {
		return nil
	}
	fns := make([]value.Function, len(entries))
	for i, entry := range entries {
		fns[i] = entry.fn
	}
	return fns
}

// ListenerCount returns the number of functions registered for event,
// including the handler slot.
func (x *Handle) ListenerCount(event string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.listeners[event])
}

// Dispatch calls call for every function registered for event, in order.
// The list is copied before the first call, so listeners added or removed
// during dispatch take effect from the next dispatch. Once-listeners are
// removed after the pass. Errors from call do not stop the pass; they are
// joined and returned.
func (x *Handle) Dispatch(event string, call func(fn value.Function) error) error {
	x.mu.RLock()
	if x.released {
		x.mu.RUnlock()
		return x.stale()
	}
	entries := make([]listenerEntry, len(x.listeners[event]))
	copy(entries, x.listeners[event])
	x.mu.RUnlock()

	var (
		removeIDs []ListenerID
		errs      []error
	)
	for _, entry := range entries {
		if err := call(entry.fn); err != nil {
			errs = append(errs, err)
		}
		if entry.once {
			removeIDs = append(removeIDs, entry.id)
		}
	}

	if len(removeIDs) > 0 {
		x.mu.Lock()
		for _, id := range removeIDs {
			x.removeLocked(event, func(entry listenerEntry) bool { return entry.id == id })
		}
		x.mu.Unlock()
	}

	return errors.Join(errs...)
}
