package dispatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-bindbridge/bindgen"
	"github.com/joeycumines/go-bindbridge/registry"
	"github.com/joeycumines/go-bindbridge/value"
)

func TestRuntime_widthScenario(t *testing.T) {
	rt := newTestRuntime(t)
	native := newFakeNative(map[string]value.Value{"width": value.Number(42.5)})
	h, p := wrap(t, rt, native, "X")

	v, err := rt.Get(p, "width")
	require.NoError(t, err)
	assert.Equal(t, value.Number(42.5), v)

	err = rt.Set(p, "width", value.Number(1))
	var readOnly *ReadOnlyPropertyError
	require.ErrorAs(t, err, &readOnly)
	assert.Equal(t, "X", readOnly.Interface)
	assert.Equal(t, "width", readOnly.Member)
	assert.Len(t, native.calls, 1, "the failed write never reaches native code")
	assert.Equal(t, value.Number(42.5), native.props["width"])

	require.NoError(t, rt.Release(h))

	_, err = rt.Get(p, "width")
	var detached *registry.DetachedObjectError
	require.ErrorAs(t, err, &detached)
	assert.Equal(t, h.RefID(), detached.ID)

	_, err = rt.Registry().Lookup(h)
	var stale *registry.StaleHandleError
	require.ErrorAs(t, err, &stale)
	require.ErrorAs(t, rt.Release(h), &stale)
}

func TestRuntime_numbers(t *testing.T) {
	rt := newTestRuntime(t)
	native := newFakeNative(nil)
	_, p := wrap(t, rt, native, "X")

	err := rt.Set(p, "count", value.Number(9007199254740993))
	var rangeErr *bindgen.RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "X.count", rangeErr.Path)
	assert.Empty(t, native.calls)

	require.ErrorAs(t, rt.Set(p, "count", value.Number(2.5)), &rangeErr)

	require.NoError(t, rt.Set(p, "count", value.Number(9007199254740991)))
	assert.Equal(t, value.Int64(9007199254740991), native.props["count"])
	v, err := rt.Get(p, "count")
	require.NoError(t, err)
	assert.Equal(t, value.Number(9007199254740991), v)

	require.NoError(t, rt.Set(p, "ratio", value.Number(0.1)))
	v, err = rt.Get(p, "ratio")
	require.NoError(t, err)
	f, ok := v.NumberValue()
	require.True(t, ok)
	if f != 0.1 {
		t.Errorf("got %v, want 0.1", f)
	}

	// native values that cannot cross exactly are rejected on the way out
	native.props["count"] = value.Int64(1 << 60)
	_, err = rt.Get(p, "count")
	require.ErrorAs(t, err, &rangeErr)
}

func TestRuntime_anyIdentity(t *testing.T) {
	rt := newTestRuntime(t)
	_, p := wrap(t, rt, newFakeNative(nil), "X")

	payload := &struct{ n int }{1}
	for _, in := range []value.Value{
		value.Opaque(payload),
		value.String("s"),
		value.Number(3),
		value.Null(),
	} {
		require.NoError(t, rt.Set(p, "payload", in))
		out, err := rt.Get(p, "payload")
		require.NoError(t, err)
		assert.True(t, value.Same(in, out), "%v", in)
	}
}

func TestRuntime_unknownMembers(t *testing.T) {
	rt := newTestRuntime(t)
	_, p := wrap(t, rt, newFakeNative(nil), "X")

	var unknown *UnknownMemberError
	_, err := rt.Get(p, "nope")
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Member)
	require.ErrorAs(t, rt.Set(p, "nope", value.Null()), &unknown)
	_, err = rt.Call(p, "nope", nil)
	require.ErrorAs(t, err, &unknown)

	var notCallable *NotCallableError
	_, err = rt.Call(p, "width", nil)
	require.ErrorAs(t, err, &notCallable)

	var readOnly *ReadOnlyPropertyError
	require.ErrorAs(t, rt.Set(p, "scale", value.Null()), &readOnly)

	_, err = rt.Get(nil, "width")
	assert.ErrorIs(t, err, ErrNilProxy)

	_, bp := wrap(t, rt, newFakeNative(nil), "Bitmap")
	_, err = rt.Iterate(bp)
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "@@iterator", unknown.Member)

	reg := rt.Registry()
	h, err := reg.Register(newFakeNative(nil), "Undeclared")
	require.NoError(t, err)
	up, err := reg.BindProxy(h, nil)
	require.NoError(t, err)
	var unknownIface *UnknownInterfaceError
	_, err = rt.Get(up, "width")
	require.ErrorAs(t, err, &unknownIface)

	h, err = reg.Register("not native", "X")
	require.NoError(t, err)
	np, err := reg.BindProxy(h, nil)
	require.NoError(t, err)
	_, err = rt.Get(np, "width")
	assert.Error(t, err)
}

func TestRuntime_indexer(t *testing.T) {
	rt := newTestRuntime(t)
	canvas := newFakeNative(nil)
	_, p := wrap(t, rt, canvas, "Canvas")
	bitmap, _ := wrap(t, rt, newFakeNative(nil), "Bitmap")

	v, err := rt.Get(p, "missing")
	require.NoError(t, err)
	assert.True(t, v.IsUndefined())
	require.Len(t, canvas.calls, 1)
	assert.Equal(t, Selector{Interface: "Canvas", Member: "missing", Access: bindgen.AccessGet, Indexed: true}, canvas.calls[0])

	require.NoError(t, rt.Set(p, "main", value.Object(bitmap)))
	v, err = rt.Get(p, "main")
	require.NoError(t, err)
	assert.Same(t, bitmap, v.Ref())

	x, _ := wrap(t, rt, newFakeNative(nil), "X")
	var typeErr *bindgen.TypeError
	require.ErrorAs(t, rt.Set(p, "main", value.Object(x)), &typeErr)
	assert.Equal(t, "Bitmap", typeErr.Expected)
	assert.Equal(t, "X", typeErr.Got)
}

func TestRuntime_methods(t *testing.T) {
	rt := newTestRuntime(t)
	native := newFakeNative(nil)
	native.invoke = func(sel Selector, args []value.Value) (value.Value, error) {
		if sel.Member == "scale" {
			return value.Number(args[0].ToNumber() * 2), nil
		}
		return value.Undefined(), nil
	}
	_, p := wrap(t, rt, native, "X")

	v, err := rt.Call(p, "scale", []value.Value{value.String("21")})
	require.NoError(t, err)
	assert.Equal(t, value.Number(42), v)
	require.Len(t, native.args[0], 2)
	assert.True(t, native.args[0][1].IsUndefined(), "absent optional argument")

	_, err = rt.Call(p, "scale", []value.Value{value.Number(1), value.DictOf(value.NewDict().Set("y", value.Number(5)))})
	require.NoError(t, err)
	origin := native.args[1][1].Dict()
	require.NotNil(t, origin)
	assert.Equal(t, []string{"x", "y"}, origin.Keys())
	x, _ := origin.Get("x")
	assert.Equal(t, value.Number(0), x)

	var typeErr *bindgen.TypeError
	_, err = rt.Call(p, "scale", nil)
	require.ErrorAs(t, err, &typeErr)
	assert.Len(t, native.calls, 2)

	m1, err := rt.Get(p, "scale")
	require.NoError(t, err)
	m2, err := rt.Get(p, "scale")
	require.NoError(t, err)
	require.NotNil(t, m1.Function())
	assert.True(t, m1.Function().SameAs(m2.Function()))
	v, err = m1.Function().Call(value.Undefined(), value.Number(4))
	require.NoError(t, err)
	assert.Equal(t, value.Number(8), v)
}

func TestRuntime_iteratorIndependence(t *testing.T) {
	rt := newTestRuntime(t)
	items := []value.Value{value.Number(1), value.Number(2), value.Number(3)}
	native := newFakeNative(nil)
	native.invoke = func(sel Selector, _ []value.Value) (value.Value, error) {
		switch sel.Access {
		case bindgen.AccessIterate:
			return value.ListOf(items...), nil
		case bindgen.AccessCall:
			return value.ListOf(value.String("a"), value.String("b")), nil
		}
		return value.Undefined(), nil
	}
	_, p := wrap(t, rt, native, "X")

	a, err := rt.Iterate(p)
	require.NoError(t, err)
	b, err := rt.Iterate(p)
	require.NoError(t, err)
	require.NotSame(t, a, b)

	v, done := a.Next()
	assert.Equal(t, value.Number(1), v)
	assert.False(t, done)
	v, done = a.Next()
	assert.Equal(t, value.Number(2), v)
	assert.False(t, done)

	assert.False(t, b.Done())
	assert.True(t, b.Value().IsUndefined(), "b has not advanced")
	v, _ = b.Next()
	assert.Equal(t, value.Number(1), v)

	items[2] = value.Number(99)
	v, _ = a.Next()
	assert.Equal(t, value.Number(3), v, "cursors keep the snapshot taken at creation")
	v, done = a.Next()
	assert.True(t, done)
	assert.True(t, v.IsUndefined())
	_, done = a.Next()
	assert.True(t, done, "cursors are not restartable")
	assert.Equal(t, value.Number(1), b.Value())

	res, err := rt.Call(p, "entries", nil)
	require.NoError(t, err)
	cursor, ok := res.OpaquePayload().(*Cursor)
	require.True(t, ok)
	v, _ = cursor.Next()
	assert.Equal(t, value.String("a"), v)

	native.invoke = func(Selector, []value.Value) (value.Value, error) {
		return value.ListOf(value.String("not a double")), nil
	}
	var typeErr *bindgen.TypeError
	_, err = rt.Iterate(p)
	require.ErrorAs(t, err, &typeErr)
}

func TestRuntime_construct(t *testing.T) {
	rt := newTestRuntime(t)

	called := false
	require.NoError(t, rt.RegisterClass("Bitmap", Class{Construct: func([]value.Value) (Native, error) {
		called = true
		return newFakeNative(nil), nil
	}}))
	var notConstructible *NotConstructibleError
	_, err := rt.Construct("Bitmap", nil)
	require.ErrorAs(t, err, &notConstructible)
	assert.Equal(t, "Bitmap", notConstructible.Interface)
	assert.False(t, called, "native code is never reached")

	_, err = rt.Construct("Surface", nil)
	require.ErrorAs(t, err, &notConstructible)
	assert.NotEmpty(t, notConstructible.Reason)

	var gotArgs []value.Value
	require.NoError(t, rt.RegisterClass("Canvas", Class{Construct: func(args []value.Value) (Native, error) {
		gotArgs = args
		return newFakeNative(nil), nil
	}}))
	h, err := rt.Construct("Canvas", []value.Value{value.String("640")})
	require.NoError(t, err)
	assert.Equal(t, "Canvas", h.RefInterface())
	assert.Equal(t, []value.Value{value.Number(640)}, gotArgs)
	_, ok := rt.Registry().Get(h.RefID())
	assert.True(t, ok)

	var typeErr *bindgen.TypeError
	_, err = rt.Construct("Canvas", nil)
	require.ErrorAs(t, err, &typeErr)

	boom := errors.New("boom")
	require.NoError(t, rt.RegisterClass("Canvas", Class{Construct: func([]value.Value) (Native, error) {
		return nil, boom
	}}))
	_, err = rt.Construct("Canvas", []value.Value{value.Number(1)})
	assert.ErrorIs(t, err, boom)

	var unknownIface *UnknownInterfaceError
	_, err = rt.Construct("Nope", nil)
	require.ErrorAs(t, err, &unknownIface)
	require.ErrorAs(t, rt.RegisterClass("Nope", Class{}), &unknownIface)
}

func TestRuntime_statics(t *testing.T) {
	rt := newTestRuntime(t)

	var unknown *UnknownMemberError
	_, err := rt.CallStatic("X", "create", []value.Value{value.Number(1)})
	require.ErrorAs(t, err, &unknown, "no class registered")
	assert.True(t, unknown.Static)

	require.NoError(t, rt.RegisterClass("X", Class{Static: NativeFunc(func(sel Selector, args []value.Value) (value.Value, error) {
		require.True(t, sel.Static)
		switch sel.Member {
		case "create":
			h, err := rt.Wrap(newFakeNative(map[string]value.Value{"width": args[0]}), "X")
			if err != nil {
				return value.Value{}, err
			}
			return value.Object(h), nil
		case "version":
			return value.String("1.0"), nil
		}
		return value.Undefined(), nil
	})}))

	v, err := rt.CallStatic("X", "create", []value.Value{value.Number(7)})
	require.NoError(t, err)
	h, ok := v.Ref().(*registry.Handle)
	require.True(t, ok)
	assert.Equal(t, "X", h.RefInterface())

	v, err = rt.GetStatic("X", "version")
	require.NoError(t, err)
	assert.Equal(t, value.String("1.0"), v)

	_, err = rt.CallStatic("X", "nope", nil)
	require.ErrorAs(t, err, &unknown)
	var notCallable *NotCallableError
	_, err = rt.CallStatic("X", "version", nil)
	require.ErrorAs(t, err, &notCallable)
	_, err = rt.GetStatic("X", "create")
	require.ErrorAs(t, err, &unknown)
}

func TestRuntime_releaseMidCall(t *testing.T) {
	rt := newTestRuntime(t)
	native := newFakeNative(nil)
	h, p := wrap(t, rt, native, "X")
	native.invoke = func(Selector, []value.Value) (value.Value, error) {
		require.NoError(t, rt.Registry().Release(h))
		return value.Number(1.5), nil
	}

	v, err := rt.Get(p, "ratio")
	require.NoError(t, err, "the crossing completes on its snapshot")
	assert.Equal(t, value.Number(1.5), v)
	assert.True(t, p.Detached())

	_, err = rt.Get(p, "ratio")
	var detached *registry.DetachedObjectError
	require.ErrorAs(t, err, &detached)
	assert.Len(t, native.calls, 1)

	again, err := rt.Registry().BindProxy(h, nil)
	assert.Nil(t, again, "a released handle is never resurrected")
	var stale *registry.StaleHandleError
	require.ErrorAs(t, err, &stale)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "descriptor lookup", StageDescriptorLookup.String())
	assert.Equal(t, "Stage(42)", Stage(42).String())
}
