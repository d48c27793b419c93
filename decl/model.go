package decl

import (
	"fmt"
	"strings"

	"github.com/joeycumines/go-bindbridge/value"
)

// Symbol names accepted in [Symbol.xxx] member positions.
const (
	SymbolIterator = "iterator"
)

// EventHandlerType is the type name that marks a property as an event
// accessor.
const EventHandlerType = "EventHandler"

// Pos is a source location. Line and Column are 1-based.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// File is the parse result for a single declaration source.
type File struct {
	Name         string
	Interfaces   []*Interface
	Mixins       []*Mixin
	Dictionaries []*Dictionary
	// Includes holds standalone "X includes M;" statements, in source order.
	Includes []*Include
}

// Interface is a native object kind exposed to script.
type Interface struct {
	Name string
	// Bases lists the names after extends, in source order. The resolver
	// splits them into the parent interface and applied mixins.
	Bases       []string
	Annotations []string
	Members     []*Member
	// Constructor is nil when the interface cannot be constructed from
	// script.
	Constructor *Member
	Pos         Pos
}

// Constructible reports whether script code may construct the interface.
func (x *Interface) Constructible() bool { return x.Constructor != nil }

// Mixin is a reusable member set applied to interfaces by composition.
type Mixin struct {
	Name        string
	Bases       []string
	Annotations []string
	Members     []*Member
	Pos         Pos
}

// Dictionary is an identity-less value shape.
type Dictionary struct {
	Name        string
	Parent      string
	Annotations []string
	Fields      []*Field
	Pos         Pos
}

// Include applies Mixin to Interface.
type Include struct {
	Interface string
	Mixin     string
	Pos       Pos
}

// MemberKind discriminates members.
type MemberKind uint8

const (
	MemberProperty MemberKind = iota + 1
	MemberMethod
	MemberEvent
)

func (k MemberKind) String() string {
	switch k {
	case MemberProperty:
		return "property"
	case MemberMethod:
		return "method"
	case MemberEvent:
		return "event"
	default:
		return fmt.Sprintf("MemberKind(%d)", uint8(k))
	}
}

// Member is a property, method or event accessor.
type Member struct {
	Name string
	Kind MemberKind
	// Type is the property type or method return type.
	Type   *TypeRef
	Params []*Param
	// KeyType is set for indexers.
	KeyType  *TypeRef
	Symbol   string
	ReadOnly bool
	Optional bool
	Static   bool
	Indexer  bool
	Pos      Pos
}

// Key returns the name the member occupies in a flattened member table.
// Indexers and symbol members use reserved keys that cannot collide with
// identifiers.
func (x *Member) Key() string {
	switch {
	case x.Indexer:
		return "[]"
	case x.Symbol != "":
		return "@@" + x.Symbol
	case x.Static:
		return "static " + x.Name
	default:
		return x.Name
	}
}

// EventName returns the event type for an event accessor, e.g. "click" for
// "onclick".
func (x *Member) EventName() string {
	if x.Kind != MemberEvent {
		return ""
	}
	return strings.TrimPrefix(x.Name, "on")
}

// Param is a method or constructor parameter.
type Param struct {
	Name     string
	Type     *TypeRef
	Optional bool
}

// Field is a dictionary field.
type Field struct {
	Name     string
	Type     *TypeRef
	Optional bool
	// Default is set when HasDefault is true.
	Default    value.Value
	HasDefault bool
	Pos        Pos
}

// TypeKind discriminates type references.
type TypeKind uint8

const (
	TypeBoolean TypeKind = iota + 1
	TypeNumber
	TypeDouble
	TypeInt64
	TypeString
	TypeAny
	TypeVoid
	TypeFunction
	// TypeNamed is an unresolved name, as produced by the parser.
	TypeNamed
	TypeInterface
	TypeDictionary
	TypeNullable
	TypeArray
	TypeIterator
)

func (k TypeKind) String() string {
	switch k {
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeDouble:
		return "double"
	case TypeInt64:
		return "int64"
	case TypeString:
		return "string"
	case TypeAny:
		return "any"
	case TypeVoid:
		return "void"
	case TypeFunction:
		return "function"
	case TypeNamed:
		return "named"
	case TypeInterface:
		return "interface"
	case TypeDictionary:
		return "dictionary"
	case TypeNullable:
		return "nullable"
	case TypeArray:
		return "array"
	case TypeIterator:
		return "iterator"
	default:
		return fmt.Sprintf("TypeKind(%d)", uint8(k))
	}
}

// TypeRef references a type. TypeRefs are treated as immutable once built.
type TypeRef struct {
	Elem *TypeRef
	// Name is set for named, interface and dictionary kinds, and records
	// the spelling of function types (Function or EventHandler).
	Name string
	Kind TypeKind
}

// Primitive returns a TypeRef of the given scalar kind.
func Primitive(kind TypeKind) *TypeRef { return &TypeRef{Kind: kind} }

// Named returns an unresolved named TypeRef.
func Named(name string) *TypeRef { return &TypeRef{Kind: TypeNamed, Name: name} }

// NullableOf wraps t; nullable of nullable collapses.
func NullableOf(t *TypeRef) *TypeRef {
	if t.Kind == TypeNullable {
		return t
	}
	return &TypeRef{Kind: TypeNullable, Elem: t}
}

// ArrayOf returns an array TypeRef of t.
func ArrayOf(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeArray, Elem: t} }

// IteratorOf returns an iterator TypeRef of t.
func IteratorOf(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeIterator, Elem: t} }

// String renders the type in declaration syntax.
func (x *TypeRef) String() string {
	if x == nil {
		return "void"
	}
	switch x.Kind {
	case TypeNamed, TypeInterface, TypeDictionary:
		return x.Name
	case TypeFunction:
		if x.Name != "" {
			return x.Name
		}
		return "Function"
	case TypeNullable:
		return x.Elem.String() + " | null"
	case TypeArray:
		if x.Elem.Kind == TypeNullable {
			return "(" + x.Elem.String() + ")[]"
		}
		return x.Elem.String() + "[]"
	case TypeIterator:
		return "Iterator<" + x.Elem.String() + ">"
	default:
		return x.Kind.String()
	}
}

// Walk calls fn for x and every nested element type, outermost first.
func (x *TypeRef) Walk(fn func(*TypeRef)) {
	for t := x; t != nil; t = t.Elem {
		fn(t)
	}
}
