package bindgen

import (
	"fmt"
	"math"

	"github.com/joeycumines/go-bindbridge/decl"
	"github.com/joeycumines/go-bindbridge/value"
)

const (
	// maxSafeInteger is the largest integer a double represents exactly.
	maxSafeInteger = int64(1<<53 - 1)
	minSafeInteger = -maxSafeInteger
)

// RuleKind selects a marshalling rule.
type RuleKind uint8

const (
	RuleBoolean RuleKind = iota + 1
	RuleDouble
	RuleInt64
	RuleString
	RuleAny
	RuleVoid
	RuleFunction
	RuleInterface
	RuleDictionary
	RuleNullable
	RuleArray
	RuleIterator
)

var ruleKindNames = [...]string{
	RuleBoolean:    "RuleBoolean",
	RuleDouble:     "RuleDouble",
	RuleInt64:      "RuleInt64",
	RuleString:     "RuleString",
	RuleAny:        "RuleAny",
	RuleVoid:       "RuleVoid",
	RuleFunction:   "RuleFunction",
	RuleInterface:  "RuleInterface",
	RuleDictionary: "RuleDictionary",
	RuleNullable:   "RuleNullable",
	RuleArray:      "RuleArray",
	RuleIterator:   "RuleIterator",
}

// String returns the Go identifier of the kind.
func (k RuleKind) String() string {
	if int(k) < len(ruleKindNames) && ruleKindNames[k] != "" {
		return ruleKindNames[k]
	}
	return fmt.Sprintf("RuleKind(%d)", uint8(k))
}

// Rule describes how one value crosses the boundary. Name is set for
// interface and dictionary rules, Elem for nullable, array and iterator
// rules.
type Rule struct {
	Elem *Rule
	Name string
	Kind RuleKind
}

// String renders the rule in declaration syntax.
func (x *Rule) String() string {
	if x == nil {
		return "void"
	}
	switch x.Kind {
	case RuleBoolean:
		return "boolean"
	case RuleDouble:
		return "double"
	case RuleInt64:
		return "int64"
	case RuleString:
		return "string"
	case RuleAny:
		return "any"
	case RuleVoid:
		return "void"
	case RuleFunction:
		return "Function"
	case RuleInterface, RuleDictionary:
		return x.Name
	case RuleNullable:
		return x.Elem.String() + " | null"
	case RuleArray:
		if x.Elem.Kind == RuleNullable {
			return "(" + x.Elem.String() + ")[]"
		}
		return x.Elem.String() + "[]"
	case RuleIterator:
		return "Iterator<" + x.Elem.String() + ">"
	default:
		return x.Kind.String()
	}
}

// ruleFor maps a resolved type to its rule.
func ruleFor(t *decl.TypeRef) (*Rule, error) {
	if t == nil {
		return &Rule{Kind: RuleVoid}, nil
	}
	var r Rule
	switch t.Kind {
	case decl.TypeBoolean:
		r.Kind = RuleBoolean
	case decl.TypeNumber, decl.TypeDouble:
		r.Kind = RuleDouble
	case decl.TypeInt64:
		r.Kind = RuleInt64
	case decl.TypeString:
		r.Kind = RuleString
	case decl.TypeAny:
		r.Kind = RuleAny
	case decl.TypeVoid:
		r.Kind = RuleVoid
	case decl.TypeFunction:
		r.Kind = RuleFunction
	case decl.TypeInterface:
		r.Kind, r.Name = RuleInterface, t.Name
	case decl.TypeDictionary:
		r.Kind, r.Name = RuleDictionary, t.Name
	case decl.TypeNullable:
		r.Kind = RuleNullable
	case decl.TypeArray:
		r.Kind = RuleArray
	case decl.TypeIterator:
		r.Kind = RuleIterator
	default:
		return nil, fmt.Errorf("unresolved type %s", t)
	}
	if t.Elem != nil {
		elem, err := ruleFor(t.Elem)
		if err != nil {
			return nil, err
		}
		r.Elem = elem
	}
	return &r, nil
}

// Nullable reports whether the rule admits null and undefined.
func (x *Rule) Nullable() bool {
	return x.Kind == RuleNullable || x.Kind == RuleAny || x.Kind == RuleVoid
}

// ToNative converts a script value to its native representation: int64
// rules yield [value.KindInt64], double rules [value.KindNumber], and so on.
// Null and undefined become null for nullable rules.
func (x *Rule) ToNative(tables *Tables, v value.Value) (value.Value, error) {
	switch x.Kind {
	case RuleVoid:
		return value.Undefined(), nil
	case RuleAny:
		return v, nil
	case RuleBoolean:
		return value.Bool(v.ToBoolean()), nil
	case RuleDouble:
		return value.Number(v.ToNumber()), nil
	case RuleString:
		return value.String(v.ToString()), nil
	case RuleInt64:
		if i, ok := v.Int64Value(); ok {
			if i < minSafeInteger || i > maxSafeInteger {
				return value.Value{}, newRangeError(v, "is outside the safe integer range")
			}
			return v, nil
		}
		i, err := toSafeInteger(v, v.ToNumber())
		if err != nil {
			return value.Value{}, err
		}
		return value.Int64(i), nil
	case RuleNullable:
		if v.IsNullish() {
			return value.Null(), nil
		}
		return x.Elem.ToNative(tables, v)
	case RuleFunction:
		if v.Kind() != value.KindFunction {
			return value.Value{}, newTypeError(x, v)
		}
		return v, nil
	case RuleInterface:
		if err := x.checkRef(tables, v); err != nil {
			return value.Value{}, err
		}
		return v, nil
	case RuleDictionary:
		return x.dictToNative(tables, v)
	case RuleArray, RuleIterator:
		l := v.List()
		if l == nil {
			return value.Value{}, newTypeError(x, v)
		}
		out := make([]value.Value, l.Len())
		for i := range out {
			e, err := x.Elem.ToNative(tables, l.At(i))
			if err != nil {
				return value.Value{}, withPath(err, fmt.Sprintf("[%d]", i))
			}
			out[i] = e
		}
		return value.ListOf(out...), nil
	default:
		return value.Value{}, fmt.Errorf("bindgen: invalid rule %s", x.Kind)
	}
}

// ToScript converts a native value for delivery to script. It fails rather
// than lose precision or deliver a value of the wrong shape. Iterator
// rules check and return the snapshot list; the caller builds the cursor.
func (x *Rule) ToScript(tables *Tables, v value.Value) (value.Value, error) {
	switch x.Kind {
	case RuleVoid:
		return value.Undefined(), nil
	case RuleAny:
		return v, nil
	case RuleBoolean:
		if v.Kind() != value.KindBool {
			return value.Value{}, newTypeError(x, v)
		}
		return v, nil
	case RuleString:
		if v.Kind() != value.KindString {
			return value.Value{}, newTypeError(x, v)
		}
		return v, nil
	case RuleDouble:
		switch v.Kind() {
		case value.KindNumber:
			return v, nil
		case value.KindInt64:
			return value.Number(v.ToNumber()), nil
		}
		return value.Value{}, newTypeError(x, v)
	case RuleInt64:
		switch v.Kind() {
		case value.KindInt64:
			i, _ := v.Int64Value()
			if i < minSafeInteger || i > maxSafeInteger {
				return value.Value{}, newRangeError(v, "cannot be represented exactly in script")
			}
			return value.Number(float64(i)), nil
		case value.KindNumber:
			f, _ := v.NumberValue()
			i, err := toSafeInteger(v, f)
			if err != nil {
				return value.Value{}, err
			}
			return value.Number(float64(i)), nil
		}
		return value.Value{}, newTypeError(x, v)
	case RuleNullable:
		if v.IsNullish() {
			return value.Null(), nil
		}
		return x.Elem.ToScript(tables, v)
	case RuleFunction:
		if v.Kind() != value.KindFunction {
			return value.Value{}, newTypeError(x, v)
		}
		return v, nil
	case RuleInterface:
		if err := x.checkRef(tables, v); err != nil {
			return value.Value{}, err
		}
		return v, nil
	case RuleDictionary:
		if v.Kind() != value.KindDict {
			return value.Value{}, newTypeError(x, v)
		}
		return x.dictToNative(tables, v)
	case RuleArray, RuleIterator:
		l := v.List()
		if l == nil {
			return value.Value{}, newTypeError(x, v)
		}
		out := make([]value.Value, l.Len())
		for i := range out {
			e, err := x.Elem.ToScript(tables, l.At(i))
			if err != nil {
				return value.Value{}, withPath(err, fmt.Sprintf("[%d]", i))
			}
			out[i] = e
		}
		return value.ListOf(out...), nil
	default:
		return value.Value{}, fmt.Errorf("bindgen: invalid rule %s", x.Kind)
	}
}

func toSafeInteger(v value.Value, f float64) (int64, error) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, newRangeError(v, "is not a finite integer")
	case f != math.Trunc(f):
		return 0, newRangeError(v, "has a fractional part")
	case f < float64(minSafeInteger) || f > float64(maxSafeInteger):
		return 0, newRangeError(v, "is outside the safe integer range")
	}
	return int64(f), nil
}

func (x *Rule) checkRef(tables *Tables, v value.Value) error {
	ref := v.Ref()
	if ref == nil {
		return newTypeError(x, v)
	}
	if !tables.IsA(ref.RefInterface(), x.Name) {
		return &TypeError{
			Expected: x.Name,
			Got:      ref.RefInterface(),
			Message:  fmt.Sprintf("expected %s, got %s", x.Name, ref.RefInterface()),
		}
	}
	return nil
}

// dictToNative validates v against the dictionary shape: required fields
// must be present, defaults fill absent optional fields, and unknown keys
// are dropped. Null and undefined are treated as an empty dictionary.
func (x *Rule) dictToNative(tables *Tables, v value.Value) (value.Value, error) {
	shape := tables.Dictionary(x.Name)
	if shape == nil {
		return value.Value{}, fmt.Errorf("bindgen: unknown dictionary %s", x.Name)
	}
	in := v.Dict()
	if in == nil && !v.IsNullish() {
		return value.Value{}, newTypeError(x, v)
	}
	out := value.NewDict()
	for _, f := range shape.Fields {
		fv, ok := in.Get(f.Name)
		if !ok || fv.IsUndefined() {
			switch {
			case f.HasDefault:
				out.Set(f.Name, f.Default)
			case f.Required:
				return value.Value{}, &TypeError{
					Expected: x.Name,
					Got:      v.Kind().String(),
					Message:  fmt.Sprintf("%s: required field %q is missing", x.Name, f.Name),
				}
			}
			continue
		}
		nv, err := f.Rule.ToNative(tables, fv)
		if err != nil {
			return value.Value{}, withPath(err, "."+f.Name)
		}
		out.Set(f.Name, nv)
	}
	return value.DictOf(out), nil
}
