package gojabind

import (
	"bytes"
	"context"
	"testing"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-bindbridge/bindgen"
	"github.com/joeycumines/go-bindbridge/decl"
	"github.com/joeycumines/go-bindbridge/dispatch"
	"github.com/joeycumines/go-bindbridge/registry"
	"github.com/joeycumines/go-bindbridge/resolve"
	"github.com/joeycumines/go-bindbridge/value"
)

const testSource = `
interface EventTarget {}

interface Node extends EventTarget {
  readonly width: double;
  count: int64;
  payload: any;
  label: string;
  ratio: double;
  onchange: EventHandler;
  scale(factor: double, origin?: Point): double;
  child(): Node | null;
  names(): Iterator<string>;
  [Symbol.iterator](): Iterator<double>;
  static create(width: double): Node;
  static readonly version: string;
  new(width: double): void;
}

interface Bitmap {
  readonly pixels: int64;
}

interface Canvas {
  [key: string]: Bitmap | null;
}

@Dictionary
interface Point {
  x?: double = 0;
  y?: double = 0;
}
`

// node is the native side of Node.
type node struct {
	payload value.Value
	label   value.Value
	ratio   value.Value
	child   *registry.Handle
	names   []string
	values  []float64
	width   float64
	count   int64
}

func (x *node) InvokeNative(sel dispatch.Selector, args []value.Value) (value.Value, error) {
	switch sel.Member {
	case "width":
		return value.Number(x.width), nil
	case "count":
		if sel.Access == bindgen.AccessSet {
			x.count, _ = args[0].Int64Value()
			return value.Undefined(), nil
		}
		return value.Int64(x.count), nil
	case "payload":
		if sel.Access == bindgen.AccessSet {
			x.payload = args[0]
			return value.Undefined(), nil
		}
		return x.payload, nil
	case "label":
		if sel.Access == bindgen.AccessSet {
			x.label = args[0]
			return value.Undefined(), nil
		}
		return x.label, nil
	case "ratio":
		if sel.Access == bindgen.AccessSet {
			x.ratio = args[0]
			return value.Undefined(), nil
		}
		return x.ratio, nil
	case "scale":
		factor, _ := args[0].NumberValue()
		var origin float64
		if d := args[1].Dict(); d != nil {
			v, _ := d.Get("x")
			origin, _ = v.NumberValue()
		}
		return value.Number(x.width*factor + origin), nil
	case "child":
		if x.child == nil {
			return value.Null(), nil
		}
		return value.Object(x.child), nil
	case "names":
		out := make([]value.Value, len(x.names))
		for i, s := range x.names {
			out[i] = value.String(s)
		}
		return value.ListOf(out...), nil
	case "[Symbol.iterator]":
		out := make([]value.Value, len(x.values))
		for i, f := range x.values {
			out[i] = value.Number(f)
		}
		return value.ListOf(out...), nil
	}
	return value.Undefined(), nil
}

// canvas stores indexed bitmaps.
type canvas struct {
	items map[string]value.Value
}

func (x *canvas) InvokeNative(sel dispatch.Selector, args []value.Value) (value.Value, error) {
	switch sel.Access {
	case bindgen.AccessGet:
		if v, ok := x.items[sel.Member]; ok {
			return v, nil
		}
	case bindgen.AccessSet:
		if args[0].IsNull() {
			delete(x.items, sel.Member)
		} else {
			x.items[sel.Member] = args[0]
		}
	}
	return value.Undefined(), nil
}

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

// newTestDispatch returns a dispatch runtime with the Node class
// registered.
func newTestDispatch(t testing.TB, opts ...dispatch.Option) *dispatch.Runtime {
	t.Helper()
	reg, err := registry.New()
	require.NoError(t, err)
	rt, err := dispatch.New(newTestTables(t), reg, opts...)
	require.NoError(t, err)
	require.NoError(t, rt.RegisterClass("Node", dispatch.Class{
		Construct: func(args []value.Value) (dispatch.Native, error) {
			width, _ := args[0].NumberValue()
			return &node{width: width, values: []float64{1, 2, 3}}, nil
		},
		Static: dispatch.NativeFunc(func(sel dispatch.Selector, args []value.Value) (value.Value, error) {
			switch sel.Member {
			case "version":
				return value.String("1.0"), nil
			case "create":
				width, _ := args[0].NumberValue()
				h, err := rt.Wrap(&node{width: width}, "Node")
				if err != nil {
					return value.Value{}, err
				}
				return value.Object(h), nil
			}
			return value.Undefined(), nil
		}),
	}))
	return rt
}

func newTestLogger(buf *bytes.Buffer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(stumpy.L.LevelDebug()),
	).Logger()
}

type testEnv struct {
	rt *goja.Runtime
	d  *dispatch.Runtime
	b  *Binding
}

func newTestEnv(t testing.TB, d *dispatch.Runtime, opts ...Option) *testEnv {
	t.Helper()
	rt := goja.New()
	b, err := New(rt, d, opts...)
	require.NoError(t, err)
	require.NoError(t, b.Bind())
	return &testEnv{rt: rt, d: d, b: b}
}

func (e *testEnv) run(t testing.TB, code string) goja.Value {
	t.Helper()
	v, err := e.rt.RunString(code)
	require.NoError(t, err)
	return v
}

// errorName runs code expected to throw, returning the thrown error's name.
func (e *testEnv) errorName(t testing.TB, code string) string {
	t.Helper()
	return e.run(t, `(() => { try { `+code+` } catch (e) { return e.name } return 'no error' })()`).String()
}

// global wraps native as iface and defines its script object as a global.
func (e *testEnv) global(t testing.TB, name string, native dispatch.Native, iface string) *registry.Handle {
	t.Helper()
	h, err := e.d.Wrap(native, iface)
	require.NoError(t, err)
	obj, err := e.b.Object(h)
	require.NoError(t, err)
	require.NoError(t, e.rt.Set(name, obj))
	return h
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
func onLoop(t testing.TB, loop dispatch.Loop, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.NoError(t, loop.Submit(func() {
		defer close(done)
		fn()
	}))
	<-done
}
