package dispatch

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-bindbridge/bindgen"
	"github.com/joeycumines/go-bindbridge/registry"
	"github.com/joeycumines/go-bindbridge/value"
)

func TestRuntime_eventsDrain(t *testing.T) {
	rt := newTestRuntime(t)
	h, p := wrap(t, rt, newFakeNative(nil), "X")

	listener, handler := &recordFunc{}, &recordFunc{}
	id, err := rt.AddEventListener(p, "change", listener, false)
	require.NoError(t, err)
	assert.NotZero(t, id)
	again, err := rt.AddEventListener(p, "change", listener, false)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	require.NoError(t, rt.Set(p, "onchange", value.Func(handler)))
	v, err := rt.Get(p, "onchange")
	require.NoError(t, err)
	assert.True(t, v.Function().SameAs(handler))
	fn, err := rt.GetEventHandler(p, "change")
	require.NoError(t, err)
	assert.True(t, fn.SameAs(handler))

	require.NoError(t, rt.EmitEvent(h, "change", value.String("payload")))
	assert.Empty(t, listener.args, "delivery waits for the script thread")
	assert.Equal(t, 1, rt.Drain())
	assert.Zero(t, rt.Drain())

	for _, f := range []*recordFunc{listener, handler} {
		require.Len(t, f.args, 1)
		assert.Equal(t, []value.Value{value.String("payload")}, f.args[0])
		assert.Same(t, h, f.this[0].Ref(), "listeners observe the handle as this")
	}

	require.NoError(t, rt.SetEventHandler(p, "change", value.Null()))
	v, err = rt.Get(p, "onchange")
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	removed, err := rt.RemoveEventListener(p, "change", listener)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Zero(t, h.ListenerCount("change"))

	var typeErr *bindgen.TypeError
	require.ErrorAs(t, rt.Set(p, "onchange", value.String("not a function")), &typeErr)
	assert.Equal(t, "X.onchange", typeErr.Path)
}

func TestRuntime_eventErrors(t *testing.T) {
	var (
		mu     sync.Mutex
		caught []error
	)
	rt := newTestRuntime(t, WithListenerErrorHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		caught = append(caught, err)
	}))
	h, p := wrap(t, rt, newFakeNative(nil), "X")

	var unknownEvent *UnknownEventError
	_, err := rt.AddEventListener(p, "click", &recordFunc{}, false)
	require.ErrorAs(t, err, &unknownEvent)
	assert.Equal(t, "click", unknownEvent.Event)
	require.ErrorAs(t, rt.EmitEvent(h, "click", value.Undefined()), &unknownEvent)

	boom := errors.New("boom")
	failing, ok := &recordFunc{err: boom}, &recordFunc{}
	_, err = rt.AddEventListener(p, "change", failing, true)
	require.NoError(t, err)
	_, err = rt.AddEventListener(p, "change", ok, false)
	require.NoError(t, err)

	require.NoError(t, rt.EmitEvent(h, "change", value.Undefined()))
	rt.Drain()
	require.Len(t, caught, 1)
	assert.ErrorIs(t, caught[0], boom)
	assert.Len(t, ok.args, 1, "a failing listener does not stop delivery")
	assert.Equal(t, 1, h.ListenerCount("change"), "once-listeners are removed")

	// queued before release, delivered after: dropped
	require.NoError(t, rt.EmitEvent(h, "change", value.Undefined()))
	require.NoError(t, rt.Release(h))
	assert.Equal(t, 1, rt.Drain())
	assert.Len(t, ok.args, 1)

	var stale *registry.StaleHandleError
	require.ErrorAs(t, rt.EmitEvent(h, "change", value.Undefined()), &stale)
	var detached *registry.DetachedObjectError
	_, err = rt.AddEventListener(p, "change", ok, false)
	require.ErrorAs(t, err, &detached)
}

func TestRuntime_eventLoop(t *testing.T) {
	var buf bytes.Buffer
	loop := newTestLoop(t)
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(stumpy.L.LevelDebug()),
	).Logger()
	rt := newTestRuntime(t, WithLoop(loop), WithLogger(logger))

	var (
		h *registry.Handle
		p *registry.Proxy
	)
	delivered := make(chan value.Value, 8)
	onLoop(t, loop, func() {
		h, p = wrap(t, rt, newFakeNative(map[string]value.Value{"width": value.Number(42.5)}), "X")
		_, err := rt.AddEventListener(p, "change", funcOf(func(this value.Value, args ...value.Value) {
			assert.Same(t, h, this.Ref())
			delivered <- args[0]
		}), false)
		require.NoError(t, err)
	})

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, rt.EmitEvent(h, "change", value.Int64(int64(i))))
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for range 4 {
		select {
		case v := <-delivered:
			i, ok := v.Int64Value()
			require.True(t, ok)
			seen[i] = true
		case <-time.After(5 * time.Second):
			t.Fatal("event not delivered")
		}
	}
	assert.Len(t, seen, 4)
	assert.Zero(t, rt.Drain(), "nothing is held back when a loop is configured")

	// release from a producer goroutine is funnelled through the loop
	done := make(chan error, 1)
	go func() { done <- rt.Release(h) }()
	require.NoError(t, <-done)

	var err error
	onLoop(t, loop, func() { _, err = rt.Get(p, "width") })
	var detached *registry.DetachedObjectError
	require.ErrorAs(t, err, &detached)
	assert.Contains(t, buf.String(), `"msg":"crossing failed"`)
	assert.Contains(t, buf.String(), `"stage":"enter"`)
}

type funcOf func(this value.Value, args ...value.Value)

func (f funcOf) Call(this value.Value, args ...value.Value) (value.Value, error) {
	f(this, args...)
	return value.Undefined(), nil
}

func (f funcOf) SameAs(value.Function) bool { return false }
