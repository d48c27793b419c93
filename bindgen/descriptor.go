// Package bindgen generates binding descriptors from a resolved model.
//
// A [Table] per interface lists one [Descriptor] for every flattened member,
// plus a constructor descriptor, and the [Rule] marshalling every value that
// crosses the boundary. The tables are plain data: [Emit] writes Go source
// that rebuilds them with [NewTables], so a program can bind without
// carrying the declarations.
package bindgen

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/joeycumines/go-bindbridge/decl"
	"github.com/joeycumines/go-bindbridge/value"
)

// Access is a set of boundary operations a descriptor supports.
type Access uint8

const (
	AccessGet Access = 1 << iota
	AccessSet
	AccessCall
	AccessConstruct
	AccessIterate
	AccessEvent
)

var accessNames = [...]struct {
	a    Access
	name string
}{
	{AccessGet, "AccessGet"},
	{AccessSet, "AccessSet"},
	{AccessCall, "AccessCall"},
	{AccessConstruct, "AccessConstruct"},
	{AccessIterate, "AccessIterate"},
	{AccessEvent, "AccessEvent"},
}

// Has reports whether x includes every operation in a.
func (x Access) Has(a Access) bool { return x&a == a }

// String joins the Go identifiers of the set, e.g. "AccessGet|AccessSet".
func (x Access) String() string {
	if x == 0 {
		return "0"
	}
	var parts []string
	for _, v := range accessNames {
		if x.Has(v.a) {
			parts = append(parts, v.name)
		}
	}
	return strings.Join(parts, "|")
}

// Effect marks what a crossing through the descriptor may cause beyond
// returning a value.
type Effect uint8

const (
	// EffectNone marks reads.
	EffectNone Effect = iota
	// EffectMutates marks crossings that may change native state.
	EffectMutates
	// EffectNotConstructible marks a constructor that always fails with
	// NotConstructibleError, without reaching native code.
	EffectNotConstructible
)

func (x Effect) String() string {
	switch x {
	case EffectNone:
		return "EffectNone"
	case EffectMutates:
		return "EffectMutates"
	case EffectNotConstructible:
		return "EffectNotConstructible"
	default:
		return fmt.Sprintf("Effect(%d)", uint8(x))
	}
}

// Param describes one method or constructor parameter.
type Param struct {
	Rule     *Rule
	Name     string
	Optional bool
}

// Descriptor describes how a single member crosses the boundary.
type Descriptor struct {
	// Value is the property type or method return type.
	Value  *Rule
	Name   string
	Key    string
	Origin string
	// Event is the event name served by an event accessor.
	Event   string
	Params  []Param
	MinArgs int
	Kind    decl.MemberKind
	Access  Access
	Effect  Effect
	// ReadOnly is set for properties without set access.
	ReadOnly bool
	Static   bool
	Optional bool
}

// Path names the member for error messages, e.g. "Element.width".
func (x *Descriptor) Path(iface string) string {
	if x.Static {
		return iface + "." + x.Name + " (static)"
	}
	return iface + "." + x.Name
}

// ArgsToNative checks arity and converts script arguments. Extra arguments
// are dropped; absent optional arguments are passed as undefined.
func (x *Descriptor) ArgsToNative(tables *Tables, iface string, args []value.Value) ([]value.Value, error) {
	if len(args) < x.MinArgs {
		return nil, &TypeError{
			Path:    x.Path(iface),
			Message: fmt.Sprintf("expected at least %d arguments, got %d", x.MinArgs, len(args)),
		}
	}
	out := make([]value.Value, len(x.Params))
	for i, p := range x.Params {
		if i >= len(args) || (p.Optional && args[i].IsUndefined()) {
			continue
		}
		v, err := p.Rule.ToNative(tables, args[i])
		if err != nil {
			return nil, withPath(err, fmt.Sprintf("%s: argument %d", x.Path(iface), i+1))
		}
		out[i] = v
	}
	return out, nil
}

// ValueToNative converts a value assigned from script.
func (x *Descriptor) ValueToNative(tables *Tables, iface string, v value.Value) (value.Value, error) {
	nv, err := x.Value.ToNative(tables, v)
	if err != nil {
		return value.Value{}, withPath(err, x.Path(iface))
	}
	return nv, nil
}

// ResultToScript converts a native result for delivery to script.
func (x *Descriptor) ResultToScript(tables *Tables, iface string, v value.Value) (value.Value, error) {
	sv, err := x.Value.ToScript(tables, v)
	if err != nil {
		return value.Value{}, withPath(err, x.Path(iface))
	}
	return sv, nil
}

// Table is the binding table of one interface.
type Table struct {
	// Constructor is always set. Its Effect is EffectNotConstructible when
	// Constructible is false.
	Constructor *Descriptor
	// Indexer and Iterator are also listed in Members. [NewTables] sets
	// them.
	Indexer   *Descriptor
	Iterator  *Descriptor
	Interface string
	Parent    string
	Ancestors []string
	Mixins    []string
	// Members lists instance descriptors in flattened declaration order.
	Members       []*Descriptor
	Statics       []*Descriptor
	Events        []string
	Constructible bool

	members map[string]*Descriptor
	statics map[string]*Descriptor
	events  map[string]*Descriptor
}

// Member returns the instance descriptor for a script property name, or nil.
// The indexer and iteration members are reachable only through Indexer and
// Iterator.
func (x *Table) Member(name string) *Descriptor { return x.members[name] }

// Static returns the static descriptor for name, or nil.
func (x *Table) Static(name string) *Descriptor { return x.statics[name] }

// EventAccessor returns the event accessor serving the event type, or nil.
func (x *Table) EventAccessor(event string) *Descriptor { return x.events[event] }

// HasEvent reports whether the interface declares the event type.
func (x *Table) HasEvent(event string) bool { return x.events[event] != nil }

// FieldShape is one field of a DictShape.
type FieldShape struct {
	Rule       *Rule
	Default    value.Value
	Name       string
	Required   bool
	HasDefault bool
}

// DictShape is the binding shape of a dictionary. Fields are in flattened
// order, parent fields first.
type DictShape struct {
	Name   string
	Parent string
	Fields []FieldShape
}

// Tables holds every binding table and dictionary shape. It is immutable.
type Tables struct {
	tables    map[string]*Table
	dicts     map[string]*DictShape
	order     []*Table
	dictOrder []*DictShape
}

// NewTables indexes tables and dictionary shapes. Generated code calls it
// to rebuild what [Generate] produced. The Indexer and Iterator fields of
// each table are set from its Members.
func NewTables(tables []*Table, dicts []*DictShape) *Tables {
	x := &Tables{
		tables:    make(map[string]*Table, len(tables)),
		dicts:     make(map[string]*DictShape, len(dicts)),
		order:     slices.Clone(tables),
		dictOrder: slices.Clone(dicts),
	}
	for _, t := range tables {
		t.members = make(map[string]*Descriptor, len(t.Members))
		t.statics = make(map[string]*Descriptor, len(t.Statics))
		t.events = make(map[string]*Descriptor)
		for _, d := range t.Members {
			switch {
			case d.Key == "[]":
				t.Indexer = d
			case d.Key == "@@"+decl.SymbolIterator:
				t.Iterator = d
			default:
				t.members[d.Name] = d
			}
			if d.Event != "" {
				t.events[d.Event] = d
			}
		}
		for _, d := range t.Statics {
			t.statics[d.Name] = d
		}
		x.tables[t.Interface] = t
	}
	for _, d := range dicts {
		x.dicts[d.Name] = d
	}
	return x
}

// Table returns the table for the interface, or nil.
func (x *Tables) Table(iface string) *Table { return x.tables[iface] }

// All returns the tables in declaration order.
func (x *Tables) All() []*Table { return slices.Clone(x.order) }

// Dictionary returns the named dictionary shape, or nil.
func (x *Tables) Dictionary(name string) *DictShape { return x.dicts[name] }

// Dictionaries returns the dictionary shapes in declaration order.
func (x *Tables) Dictionaries() []*DictShape { return slices.Clone(x.dictOrder) }

// IsA reports whether sub is super or inherits from it.
func (x *Tables) IsA(sub, super string) bool {
	t := x.tables[sub]
	if t == nil {
		return false
	}
	return sub == super || slices.Contains(t.Ancestors, super)
}
