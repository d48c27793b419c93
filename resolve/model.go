// Package resolve links parsed declarations into an immutable, flattened
// model.
//
// Resolution indexes every declaration by name, classifies the names listed
// after extends into a parent interface and applied mixins, rejects dangling
// references and cycles, then flattens each interface's member table. The
// flattening order is the parent's table, then each applied mixin in
// application order, then the interface's own members. A member keeps the
// position of its first appearance and takes the value of its last, so own
// members override mixin members, which override inherited members, and a
// later mixin overrides an earlier one.
//
// A [Model] is read-only once returned and may be shared between goroutines.
package resolve

import (
	"golang.org/x/exp/slices"

	"github.com/joeycumines/go-bindbridge/decl"
)

// Model is the resolved declaration set.
type Model struct {
	interfaces   map[string]*Interface
	dictionaries map[string]*Dictionary
	ifaceOrder   []string
	dictOrder    []string
}

// Interface is a fully resolved interface.
type Interface struct {
	Name string
	// Parent is the extended interface, or empty.
	Parent string
	// Mixins lists the applied mixins in application order, including those
	// pulled in by mixins extending other mixins.
	Mixins []string
	// Ancestors is the parent chain, nearest first.
	Ancestors []string
	// Constructor is nil unless the interface itself declares one.
	Constructor *Member
	// Members is the flattened instance member table, in flattened order.
	// It includes the indexer and the iteration member when present.
	Members []*Member
	// Statics is the flattened static member table.
	Statics []*Member
	// Events lists event names of the event members, in flattened order.
	Events []string
	Pos    decl.Pos

	index map[string]*Member
}

// Constructible reports whether script code may construct the interface.
func (x *Interface) Constructible() bool { return x.Constructor != nil }

// Member returns the flattened member for key, see [decl.Member.Key].
func (x *Interface) Member(key string) *Member { return x.index[key] }

// Indexer returns the string-keyed indexer member, or nil.
func (x *Interface) Indexer() *Member { return x.index["[]"] }

// Iterator returns the iteration protocol member, or nil.
func (x *Interface) Iterator() *Member { return x.index["@@"+decl.SymbolIterator] }

// Member is a resolved member. Named type references in Type and Params
// are replaced by interface or dictionary references.
type Member struct {
	decl.Member
	// Origin names the interface or mixin that declared the member.
	Origin string

	source *decl.Member
}

// Dictionary is a resolved dictionary with its parent's fields merged in.
type Dictionary struct {
	Name   string
	Parent string
	// Fields lists parent fields first, then own fields. An own field
	// redeclaring a parent field replaces it in place.
	Fields []*decl.Field
	Pos    decl.Pos
}

// Field returns the named field, or nil.
func (x *Dictionary) Field(name string) *decl.Field {
	for _, f := range x.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Interface returns the named interface, or nil. Mixins are not returned.
func (x *Model) Interface(name string) *Interface { return x.interfaces[name] }

// Dictionary returns the named dictionary, or nil.
func (x *Model) Dictionary(name string) *Dictionary { return x.dictionaries[name] }

// Interfaces returns all interfaces in declaration order.
func (x *Model) Interfaces() []*Interface {
	out := make([]*Interface, 0, len(x.ifaceOrder))
	for _, name := range x.ifaceOrder {
		out = append(out, x.interfaces[name])
	}
	return out
}

// Dictionaries returns all dictionaries in declaration order.
func (x *Model) Dictionaries() []*Dictionary {
	out := make([]*Dictionary, 0, len(x.dictOrder))
	for _, name := range x.dictOrder {
		out = append(out, x.dictionaries[name])
	}
	return out
}

// IsA reports whether sub is super or inherits from it. Mixins carry no
// identity and never satisfy IsA.
func (x *Model) IsA(sub, super string) bool {
	iface := x.interfaces[sub]
	if iface == nil {
		return false
	}
	return sub == super || slices.Contains(iface.Ancestors, super)
}
