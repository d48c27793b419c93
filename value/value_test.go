package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type testRef struct {
	id    uint64
	iface string
}

func (r *testRef) RefID() uint64        { return r.id }
func (r *testRef) RefInterface() string { return r.iface }

type testFunc struct{ name string }

func (f *testFunc) Call(Value, ...Value) (Value, error) { return String(f.name), nil }
func (f *testFunc) SameAs(other Function) bool {
	o, ok := other.(*testFunc)
	return ok && o.name == f.name
}

func TestZeroValue_IsUndefined(t *testing.T) {
	var v Value
	if !v.IsUndefined() {
		t.Fatalf("got kind %s, want undefined", v.Kind())
	}
	if !v.IsNullish() {
		t.Error("expected zero value to be nullish")
	}
}

func TestObject_NilRefIsNull(t *testing.T) {
	if k := Object(nil).Kind(); k != KindNull {
		t.Errorf("got %s, want null", k)
	}
	if k := Func(nil).Kind(); k != KindNull {
		t.Errorf("got %s, want null", k)
	}
}

func TestToBoolean(t *testing.T) {
	for _, tc := range []struct {
		v    Value
		want bool
	}{
		{Undefined(), false},
		{Null(), false},
		{Bool(true), true},
		{Number(0), false},
		{Number(math.NaN()), false},
		{Number(-1), true},
		{Int64(0), false},
		{String(""), false},
		{String("0"), true},
		{ListOf(), true},
		{Object(&testRef{id: 1}), true},
	} {
		if got := tc.v.ToBoolean(); got != tc.want {
			t.Errorf("%v: got %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestToNumber(t *testing.T) {
	require.True(t, math.IsNaN(Undefined().ToNumber()))
	require.Equal(t, 0.0, Null().ToNumber())
	require.Equal(t, 1.0, Bool(true).ToNumber())
	require.Equal(t, 42.5, String(" 42.5 ").ToNumber())
	require.Equal(t, 255.0, String("0xff").ToNumber())
	require.Equal(t, 0.0, String("").ToNumber())
	require.True(t, math.IsInf(String("-Infinity").ToNumber(), -1))
	require.True(t, math.IsNaN(String("abc").ToNumber()))
	require.Equal(t, 7.0, ListOf(Number(7)).ToNumber())
	require.True(t, math.IsNaN(ListOf(Number(1), Number(2)).ToNumber()))
}

func TestToString(t *testing.T) {
	require.Equal(t, "undefined", Undefined().ToString())
	require.Equal(t, "0.1", Number(0.1).ToString())
	require.Equal(t, "NaN", Number(math.NaN()).ToString())
	require.Equal(t, "-9007199254740991", Int64(-9007199254740991).ToString())
	require.Equal(t, "1,,b", ListOf(Number(1), Null(), String("b")).ToString())
	require.Equal(t, "[object HTMLElement]", Object(&testRef{iface: "HTMLElement"}).ToString())
}

func TestSame(t *testing.T) {
	r1 := &testRef{id: 1}
	r2 := &testRef{id: 1}
	require.True(t, Same(Object(r1), Object(r1)))
	require.False(t, Same(Object(r1), Object(r2)), "distinct refs with equal ids are distinct objects")
	require.True(t, Same(Number(math.NaN()), Number(math.NaN())))
	require.False(t, Same(Number(1), Int64(1)))
	require.True(t, Same(Func(&testFunc{"a"}), Func(&testFunc{"a"})))
	require.False(t, Same(Func(&testFunc{"a"}), Func(&testFunc{"b"})))

	payload := &struct{ n int }{1}
	require.True(t, Same(Opaque(payload), Opaque(payload)))
	require.False(t, Same(Opaque(payload), Opaque(&struct{ n int }{1})))

	// uncomparable payloads never panic
	require.False(t, Same(Opaque([]int{1}), Opaque([]int{1})))

	l := ListOf(Number(1))
	require.True(t, Same(l, l))
	require.False(t, Same(l, ListOf(Number(1))))
}

func TestDict_Order(t *testing.T) {
	d := NewDict().Set("b", Number(1)).Set("a", Number(2)).Set("b", Number(3))
	require.Equal(t, []string{"b", "a"}, d.Keys())
	v, ok := d.Get("b")
	require.True(t, ok)
	require.Equal(t, 3.0, v.ToNumber())

	d.Delete("b")
	require.Equal(t, []string{"a"}, d.Keys())
	d.Delete("missing")
	require.Equal(t, 1, d.Len())

	var nilDict *Dict
	require.Equal(t, 0, nilDict.Len())
	_, ok = nilDict.Get("a")
	require.False(t, ok)
}

func TestAccessors_WrongKind(t *testing.T) {
	v := String("x")
	if _, ok := v.NumberValue(); ok {
		t.Error("expected NumberValue to report false for a string")
	}
	require.Nil(t, v.Ref())
	require.Nil(t, v.Function())
	require.Nil(t, v.List())
	require.Nil(t, v.Dict())
	require.Nil(t, v.OpaquePayload())
	require.Equal(t, 0, v.List().Len())
	require.True(t, v.List().At(3).IsUndefined())
}

func TestFormatNumber(t *testing.T) {
	for _, tc := range [...]struct {
		in   float64
		want string
	}{
		{1e-7, "1e-7"},
		{0.000001, "0.000001"},
		{0.0000015, "0.0000015"},
		{1.5e-10, "1.5e-10"},
		{123.456, "123.456"},
		{-42, "-42"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1.25e21, "1.25e+21"},
		{9007199254740993, "9007199254740992"},
		{math.Copysign(0, -1), "0"},
		{math.Inf(-1), "-Infinity"},
		{math.NaN(), "NaN"},
	} {
		if got := FormatNumber(tc.in); got != tc.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStringToNumber(t *testing.T) {
	for _, tc := range [...]struct {
		in   string
		want float64
	}{
		{"1e400", math.Inf(1)},
		{"-1e400", math.Inf(-1)},
		{"1e-400", 0},
		{"0b101", 5},
		{"0o17", 15},
		{"0XFF", 255},
		{"\t\n 12\u00a0\uFEFF", 12},
		{".5", 0.5},
		{"5.", 5},
		{"+Infinity", math.Inf(1)},
	} {
		if got := String(tc.in).ToNumber(); got != tc.want {
			t.Errorf("ToNumber(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	for _, in := range []string{"inf", "Inf", "infinity", "NaN", "nan", "0b102", "-0x10", "0x", "1_000", "0x1p3", "1e", "e5", "."} {
		if got := String(in).ToNumber(); !math.IsNaN(got) {
			t.Errorf("ToNumber(%q) = %v, want NaN", in, got)
		}
	}
}

func TestDict_zeroValue(t *testing.T) {
	var d Dict
	d.Set("a", Number(1)).Set("b", Number(2))
	require.Equal(t, []string{"a", "b"}, d.Keys())
	v, ok := d.Get("a")
	require.True(t, ok)
	require.Equal(t, Number(1), v)
	d.Delete("a")
	require.Equal(t, 1, d.Len())

	var empty Dict
	empty.Delete("missing")
	require.Equal(t, 0, empty.Len())
}
