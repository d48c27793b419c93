package dispatch

import (
	"context"
	"testing"

	"github.com/joeycumines/go-eventloop"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-bindbridge/bindgen"
	"github.com/joeycumines/go-bindbridge/decl"
	"github.com/joeycumines/go-bindbridge/registry"
	"github.com/joeycumines/go-bindbridge/resolve"
	"github.com/joeycumines/go-bindbridge/value"
)

const testSource = `
interface EventTarget {}

interface X extends EventTarget {
  readonly width: double;
  count: int64;
  ratio: double;
  payload: any;
  onchange: EventHandler;
  scale(factor: double, origin?: Point): double;
  entries(): Iterator<string>;
  [Symbol.iterator](): Iterator<double>;
  static create(width: double): X;
  static readonly version: string;
}

interface Bitmap {
  readonly pixels: int64;
}

interface Canvas {
  [key: string]: Bitmap | null;
  new(width: double): void;
}

interface Surface {
  new(): void;
}

@Dictionary
interface Point {
  x?: double = 0;
  y?: double = 0;
}
`

func newTestTables(t testing.TB) *bindgen.Tables {
	t.Helper()
	f, err := decl.Parse("test.d.ts", testSource)
	require.NoError(t, err)
	model, err := resolve.Resolve(f)
	require.NoError(t, err)
	tables, err := bindgen.Generate(model)
	require.NoError(t, err)
	return tables
}

func newTestRuntime(t testing.TB, opts ...Option) *Runtime {
	t.Helper()
	reg, err := registry.New()
	require.NoError(t, err)
	rt, err := New(newTestTables(t), reg, opts...)
	require.NoError(t, err)
	return rt
}

// newTestLoop starts a real event loop, stopped on cleanup.
func newTestLoop(t testing.TB) *eventloop.Loop {
	t.Helper()
	loop, err := eventloop.New()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

// onLoop runs fn on the loop and waits for it.
func onLoop(t testing.TB, loop Loop, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.NoError(t, loop.Submit(func() {
		defer close(done)
		fn()
	}))
	<-done
}

// fakeNative stores properties in a map and records every selector.
type fakeNative struct {
	props  map[string]value.Value
	invoke func(sel Selector, args []value.Value) (value.Value, error)
	calls  []Selector
	args   [][]value.Value
}

func newFakeNative(props map[string]value.Value) *fakeNative {
	if props == nil {
		props = make(map[string]value.Value)
	}
	return &fakeNative{props: props}
}

func (x *fakeNative) InvokeNative(sel Selector, args []value.Value) (value.Value, error) {
	x.calls = append(x.calls, sel)
	x.args = append(x.args, args)
	if x.invoke != nil {
		return x.invoke(sel, args)
	}
	switch sel.Access {
	case bindgen.AccessGet:
		v, ok := x.props[sel.Member]
		if !ok {
			return value.Undefined(), nil
		}
		return v, nil
	case bindgen.AccessSet:
		x.props[sel.Member] = args[0]
	}
	return value.Undefined(), nil
}

// wrap registers native as iface and binds a proxy for it.
func wrap(t testing.TB, rt *Runtime, native Native, iface string) (*registry.Handle, *registry.Proxy) {
	t.Helper()
	h, err := rt.Wrap(native, iface)
	require.NoError(t, err)
	p, err := rt.Registry().BindProxy(h, nil)
	require.NoError(t, err)
	return h, p
}

type recordFunc struct {
	err  error
	this []value.Value
	args [][]value.Value
}

func (x *recordFunc) Call(this value.Value, args ...value.Value) (value.Value, error) {
	x.this = append(x.this, this)
	x.args = append(x.args, args)
	return value.Undefined(), x.err
}

func (x *recordFunc) SameAs(other value.Function) bool {
	o, ok := other.(*recordFunc)
	return ok && o == x
}
