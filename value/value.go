// Package value implements the canonical representation of values crossing
// the boundary between a script engine and native code.
//
// A [Value] is a tagged variant. The zero Value is undefined. Containers
// ([List] and [Dict]) hold further Values; object and function references
// carry identity, and opaque values carry an engine-owned payload that native
// code stores and returns without interpreting it.
package value

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Kind identifies the variant held by a [Value].
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindInt64
	KindString
	KindObject
	KindFunction
	KindList
	KindDict
	KindOpaque
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindInt64:
		return "int64"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	case KindList:
		return "list"
	case KindDict:
		return "dictionary"
	case KindOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Ref is a reference to a native object, typically a registry handle.
// Two references are the same object iff they are == comparable and equal.
type Ref interface {
	RefID() uint64
	RefInterface() string
}

// Function is a callable reference owned by the script engine.
type Function interface {
	Call(this Value, args ...Value) (Value, error)
	// SameAs reports whether other refers to the same script function.
	SameAs(other Function) bool
}

// Value is the tagged variant. Use the constructor functions; the zero
// value is undefined.
type Value struct {
	ref  any
	str  string
	num  float64
	i64  int64
	kind Kind
	b    bool
}

var (
	undefinedValue = Value{}
	nullValue      = Value{kind: KindNull}
)

// Undefined returns the undefined value.
func Undefined() Value { return undefinedValue }

// Null returns the null value.
func Null() Value { return nullValue }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns an IEEE-754 double value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int64 returns an exact 64-bit integer value.
func Int64(i int64) Value { return Value{kind: KindInt64, i64: i} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Object returns an object reference. A nil ref yields null.
func Object(ref Ref) Value {
	if ref == nil {
		return nullValue
	}
	return Value{kind: KindObject, ref: ref}
}

// Func returns a function reference. A nil fn yields null.
func Func(fn Function) Value {
	if fn == nil {
		return nullValue
	}
	return Value{kind: KindFunction, ref: fn}
}

// ListOf returns a list value holding vals. The slice is not copied.
func ListOf(vals ...Value) Value {
	return Value{kind: KindList, ref: &List{items: vals}}
}

// DictOf returns a dictionary value. A nil d yields an empty dictionary.
func DictOf(d *Dict) Value {
	if d == nil {
		d = NewDict()
	}
	return Value{kind: KindDict, ref: d}
}

// Opaque wraps an engine-owned payload. Native code must not interpret it.
func Opaque(payload any) Value {
	return Value{kind: KindOpaque, ref: payload}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether v is undefined.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNullish reports whether v is null or undefined.
func (v Value) IsNullish() bool { return v.kind == KindNull || v.kind == KindUndefined }

// BoolValue returns the boolean payload and whether v is a boolean.
func (v Value) BoolValue() (bool, bool) { return v.b, v.kind == KindBool }

// NumberValue returns the double payload and whether v is a number.
func (v Value) NumberValue() (float64, bool) { return v.num, v.kind == KindNumber }

// Int64Value returns the integer payload and whether v is an int64.
func (v Value) Int64Value() (int64, bool) { return v.i64, v.kind == KindInt64 }

// StringValue returns the string payload and whether v is a string.
func (v Value) StringValue() (string, bool) { return v.str, v.kind == KindString }

// Ref returns the object reference, or nil.
func (v Value) Ref() Ref {
	if v.kind != KindObject {
		return nil
	}
	r, _ := v.ref.(Ref)
	return r
}

// Function returns the function reference, or nil.
func (v Value) Function() Function {
	if v.kind != KindFunction {
		return nil
	}
	f, _ := v.ref.(Function)
	return f
}

// List returns the list payload, or nil.
func (v Value) List() *List {
	if v.kind != KindList {
		return nil
	}
	l, _ := v.ref.(*List)
	return l
}

// Dict returns the dictionary payload, or nil.
func (v Value) Dict() *Dict {
	if v.kind != KindDict {
		return nil
	}
	d, _ := v.ref.(*Dict)
	return d
}

// OpaquePayload returns the payload of an opaque value, or nil.
func (v Value) OpaquePayload() any {
	if v.kind != KindOpaque {
		return nil
	}
	return v.ref
}

// ToBoolean converts v using script truthiness rules.
func (v Value) ToBoolean() bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindInt64:
		return v.i64 != 0
	case KindString:
		return v.str != ""
	default:
		return true
	}
}

// ToNumber converts v using script numeric conversion rules.
func (v Value) ToNumber() float64 {
	switch v.kind {
	case KindUndefined:
		return math.NaN()
	case KindNull:
		return 0
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindNumber:
		return v.num
	case KindInt64:
		return float64(v.i64)
	case KindString:
		return stringToNumber(v.str)
	case KindList:
		l := v.List()
		switch l.Len() {
		case 0:
			return 0
		case 1:
			return l.At(0).ToNumber()
		}
		return math.NaN()
	default:
		return math.NaN()
	}
}

// ToString converts v using script string conversion rules. Object-like
// values use a bracketed tag rather than invoking any script code.
func (v Value) ToString() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return FormatNumber(v.num)
	case KindInt64:
		return strconv.FormatInt(v.i64, 10)
	case KindString:
		return v.str
	case KindList:
		l := v.List()
		parts := make([]string, l.Len())
		for i := range parts {
			if e := l.At(i); !e.IsNullish() {
				parts[i] = e.ToString()
			}
		}
		return strings.Join(parts, ",")
	case KindObject:
		if r := v.Ref(); r != nil {
			return "[object " + r.RefInterface() + "]"
		}
		return "[object Object]"
	case KindFunction:
		return "function () { [native code] }"
	default:
		return "[object Object]"
	}
}

// String implements [fmt.Stringer], for diagnostics.
func (v Value) String() string {
	if v.kind == KindString {
		return strconv.Quote(v.str)
	}
	return v.ToString()
}

// FormatNumber formats f the way a script engine prints numbers: the
// shortest round-tripping digits, in decimal form for magnitudes in
// [1e-7, 1e21), otherwise as d.ddde±x.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	var sign string
	if f < 0 {
		sign, f = "-", -f
	}
	// mantissa digits and decimal exponent, from d.ddde±xx
	e := strconv.FormatFloat(f, 'e', -1, 64)
	i := strings.IndexByte(e, 'e')
	digits := strings.Replace(e[:i], ".", "", 1)
	exp, _ := strconv.Atoi(e[i+1:])
	k, n := len(digits), exp+1

	switch {
	case k <= n && n <= 21:
		return sign + digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return sign + digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return sign + "0." + strings.Repeat("0", -n) + digits
	}
	mantissa := digits[:1]
	if k > 1 {
		mantissa += "." + digits[1:]
	}
	if exp < 0 {
		return sign + mantissa + "e-" + strconv.Itoa(-exp)
	}
	return sign + mantissa + "e+" + strconv.Itoa(exp)
}

// decimalLiteral matches StrDecimalLiteral without the Infinity forms.
var decimalLiteral = regexp.MustCompile(`^[+-]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

// stringToNumber implements the script string-to-number conversion.
func stringToNumber(s string) float64 {
	s = strings.TrimFunc(s, func(r rune) bool { return unicode.IsSpace(r) || r == '\uFEFF' })
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			return parseRadix(s[2:], base)
		}
	}
	if !decimalLiteral.MatchString(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	// out of range parses as ±Inf or 0
	return f
}

func parseRadix(s string, base int) float64 {
	var f float64
	for _, r := range s {
		var d int
		switch {
		case r >= '0' && r <= '9':
			d = int(r - '0')
		case r >= 'a' && r <= 'z':
			d = int(r-'a') + 10
		case r >= 'A' && r <= 'Z':
			d = int(r-'A') + 10
		default:
			return math.NaN()
		}
		if d >= base {
			return math.NaN()
		}
		f = f*float64(base) + float64(d)
	}
	return f
}

// Same reports whether a and b are observably the same value: reference
// identity for objects, functions, containers and opaque payloads; value
// equality for primitives. NaN is the same as NaN.
func Same(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		if math.IsNaN(a.num) {
			return math.IsNaN(b.num)
		}
		return a.num == b.num
	case KindInt64:
		return a.i64 == b.i64
	case KindString:
		return a.str == b.str
	case KindFunction:
		fa, fb := a.Function(), b.Function()
		return fa == fb || (fa != nil && fb != nil && fa.SameAs(fb))
	default:
		return sameRef(a.ref, b.ref)
	}
}

func sameRef(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
