package resolve

import (
	"fmt"
	"strings"

	"github.com/joeycumines/go-bindbridge/decl"
)

// DuplicateDeclarationError is returned when two declarations share a name
// and kind. Interfaces and mixins share one namespace; dictionaries have
// their own.
type DuplicateDeclarationError struct {
	Kind   string
	Name   string
	First  decl.Pos
	Second decl.Pos
}

func (e *DuplicateDeclarationError) Error() string {
	return fmt.Sprintf("%s: duplicate %s %s (first declared at %s)", e.Second, e.Kind, e.Name, e.First)
}

// UnknownBaseError is returned when an extends or includes reference does
// not name a usable declaration.
type UnknownBaseError struct {
	Name string
	Base string
	Pos  decl.Pos
	// NotMixin is set when Base exists but a mixin was required.
	NotMixin bool
}

func (e *UnknownBaseError) Error() string {
	if e.NotMixin {
		return fmt.Sprintf("%s: %s: %s is not a mixin", e.Pos, e.Name, e.Base)
	}
	return fmt.Sprintf("%s: %s: unknown base %s", e.Pos, e.Name, e.Base)
}

// InheritanceCycleError is returned when following extends or mixin edges
// revisits a name on the current path. Path starts and ends with the same
// name.
type InheritanceCycleError struct {
	Path []string
}

func (e *InheritanceCycleError) Error() string {
	return "inheritance cycle: " + strings.Join(e.Path, " -> ")
}

// MultipleBaseError is returned when an interface extends more than one
// non-mixin interface.
type MultipleBaseError struct {
	Name  string
	Bases []string
	Pos   decl.Pos
}

func (e *MultipleBaseError) Error() string {
	return fmt.Sprintf("%s: %s extends more than one interface: %s", e.Pos, e.Name, strings.Join(e.Bases, ", "))
}

// UnknownTypeError is returned when a type reference names neither an
// interface nor a dictionary.
type UnknownTypeError struct {
	Decl   string
	Member string
	Type   string
	Pos    decl.Pos
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("%s: %s.%s: unknown type %s", e.Pos, e.Decl, e.Member, e.Type)
}

// ConflictingIndexerError is returned when an interface ends up with more
// than one indexer, or more than one iteration member, across its own,
// inherited and mixed-in members.
type ConflictingIndexerError struct {
	Interface string
	// Key is the member key, "[]" or "@@iterator".
	Key     string
	Origins []string
}

func (e *ConflictingIndexerError) Error() string {
	what := "indexers"
	if e.Key != "[]" {
		what = "iteration members"
	}
	return fmt.Sprintf("%s has conflicting %s from %s", e.Interface, what, strings.Join(e.Origins, " and "))
}

// DuplicateMemberError is returned when one declaration declares the same
// member key twice.
type DuplicateMemberError struct {
	Decl   string
	Member string
	Pos    decl.Pos
}

func (e *DuplicateMemberError) Error() string {
	return fmt.Sprintf("%s: %s declares %s more than once", e.Pos, e.Decl, e.Member)
}
