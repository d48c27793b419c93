package bindgen

import (
	"bytes"
	"fmt"
	"go/format"
	"math"
	"strconv"

	"github.com/joeycumines/go-bindbridge/decl"
	"github.com/joeycumines/go-bindbridge/value"
)

const (
	importBindgen = "github.com/joeycumines/go-bindbridge/bindgen"
	importDecl    = "github.com/joeycumines/go-bindbridge/decl"
	importValue   = "github.com/joeycumines/go-bindbridge/value"
)

// EmitOptions configures [Emit].
type EmitOptions struct {
	// Package is the package clause of the generated file. Defaults to
	// "bindings".
	Package string
	// Var is the name of the generated *bindgen.Tables variable. Defaults
	// to "Tables".
	Var string
	// Source, if set, is listed in the generated header.
	Source []string
}

// Emit writes gofmt'd Go source declaring a variable that rebuilds tables
// through [NewTables].
func Emit(tables *Tables, opts EmitOptions) ([]byte, error) {
	if opts.Package == "" {
		opts.Package = "bindings"
	}
	if opts.Var == "" {
		opts.Var = "Tables"
	}
	if !isIdent(opts.Package) || !isIdent(opts.Var) {
		return nil, fmt.Errorf("bindgen: invalid identifier in emit options: package %q, var %q", opts.Package, opts.Var)
	}

	e := &emitter{}
	e.printf("// Code generated by bindgen. DO NOT EDIT.\n")
	for _, src := range opts.Source {
		e.printf("// source: %s\n", src)
	}
	e.printf("\npackage %s\n\n", opts.Package)

	body := &emitter{}
	body.printf("// %s holds the generated binding tables.\n", opts.Var)
	body.printf("var %s = bindgen.NewTables(\n", opts.Var)
	body.printf("[]*bindgen.Table{\n")
	for _, t := range tables.All() {
		body.table(t)
	}
	body.printf("},\n[]*bindgen.DictShape{\n")
	for _, d := range tables.Dictionaries() {
		if err := body.dict(d); err != nil {
			return nil, err
		}
	}
	body.printf("},\n)\n")

	e.printf("import (\n%q\n", importBindgen)
	if body.usesDecl {
		e.printf("%q\n", importDecl)
	}
	if body.usesValue {
		e.printf("%q\n", importValue)
	}
	e.printf(")\n\n")
	e.buf.Write(body.buf.Bytes())

	src, err := format.Source(e.buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("bindgen: formatting generated source: %w", err)
	}
	return src, nil
}

type emitter struct {
	buf       bytes.Buffer
	usesDecl  bool
	usesValue bool
}

func (e *emitter) printf(format string, args ...any) { fmt.Fprintf(&e.buf, format, args...) }

func (e *emitter) strings(field string, values []string) {
	if len(values) == 0 {
		return
	}
	e.printf("%s: []string{", field)
	for i, v := range values {
		if i != 0 {
			e.printf(", ")
		}
		e.printf("%q", v)
	}
	e.printf("},\n")
}

func (e *emitter) table(t *Table) {
	e.printf("{\n")
	e.printf("Interface: %q,\n", t.Interface)
	if t.Parent != "" {
		e.printf("Parent: %q,\n", t.Parent)
	}
	e.strings("Ancestors", t.Ancestors)
	e.strings("Mixins", t.Mixins)
	e.strings("Events", t.Events)
	if t.Constructible {
		e.printf("Constructible: true,\n")
	}
	e.printf("Constructor: &bindgen.Descriptor")
	e.descriptor(t.Constructor)
	if len(t.Members) != 0 {
		e.printf("Members: []*bindgen.Descriptor{\n")
		for _, d := range t.Members {
			e.descriptor(d)
		}
		e.printf("},\n")
	}
	if len(t.Statics) != 0 {
		e.printf("Statics: []*bindgen.Descriptor{\n")
		for _, d := range t.Statics {
			e.descriptor(d)
		}
		e.printf("},\n")
	}
	e.printf("},\n")
}

var memberKindNames = map[decl.MemberKind]string{
	decl.MemberProperty: "MemberProperty",
	decl.MemberMethod:   "MemberMethod",
	decl.MemberEvent:    "MemberEvent",
}

func (e *emitter) descriptor(d *Descriptor) {
	e.printf("{\n")
	e.printf("Value: ")
	e.rule(d.Value)
	e.printf(",\n")
	e.printf("Name: %q,\nKey: %q,\n", d.Name, d.Key)
	if d.Origin != "" {
		e.printf("Origin: %q,\n", d.Origin)
	}
	if d.Event != "" {
		e.printf("Event: %q,\n", d.Event)
	}
	if len(d.Params) != 0 {
		e.printf("Params: []bindgen.Param{\n")
		for _, p := range d.Params {
			e.printf("{Rule: ")
			e.rule(p.Rule)
			e.printf(", Name: %q", p.Name)
			if p.Optional {
				e.printf(", Optional: true")
			}
			e.printf("},\n")
		}
		e.printf("},\n")
	}
	if d.MinArgs != 0 {
		e.printf("MinArgs: %d,\n", d.MinArgs)
	}
	if name, ok := memberKindNames[d.Kind]; ok {
		e.usesDecl = true
		e.printf("Kind: decl.%s,\n", name)
	}
	if d.Access != 0 {
		e.printf("Access: ")
		first := true
		for _, v := range accessNames {
			if d.Access.Has(v.a) {
				if !first {
					e.printf(" | ")
				}
				first = false
				e.printf("bindgen.%s", v.name)
			}
		}
		e.printf(",\n")
	}
	if d.Effect != EffectNone {
		e.printf("Effect: bindgen.%s,\n", d.Effect)
	}
	if d.ReadOnly {
		e.printf("ReadOnly: true,\n")
	}
	if d.Static {
		e.printf("Static: true,\n")
	}
	if d.Optional {
		e.printf("Optional: true,\n")
	}
	e.printf("},\n")
}

func (e *emitter) rule(r *Rule) {
	if r == nil {
		e.printf("nil")
		return
	}
	e.printf("&bindgen.Rule{")
	if r.Elem != nil {
		e.printf("Elem: ")
		e.rule(r.Elem)
		e.printf(", ")
	}
	if r.Name != "" {
		e.printf("Name: %q, ", r.Name)
	}
	e.printf("Kind: bindgen.%s}", r.Kind)
}

func (e *emitter) dict(d *DictShape) error {
	e.printf("{\nName: %q,\n", d.Name)
	if d.Parent != "" {
		e.printf("Parent: %q,\n", d.Parent)
	}
	if len(d.Fields) != 0 {
		e.printf("Fields: []bindgen.FieldShape{\n")
		for _, f := range d.Fields {
			e.printf("{\nRule: ")
			e.rule(f.Rule)
			e.printf(",\n")
			if f.HasDefault {
				e.printf("Default: ")
				if err := e.value(f.Default); err != nil {
					return fmt.Errorf("bindgen: %s.%s: %w", d.Name, f.Name, err)
				}
				e.printf(",\n")
			}
			e.printf("Name: %q,\n", f.Name)
			if f.Required {
				e.printf("Required: true,\n")
			}
			if f.HasDefault {
				e.printf("HasDefault: true,\n")
			}
			e.printf("},\n")
		}
		e.printf("},\n")
	}
	e.printf("},\n")
	return nil
}

// value writes a constructor expression for a default value.
func (e *emitter) value(v value.Value) error {
	e.usesValue = true
	switch v.Kind() {
	case value.KindUndefined:
		e.printf("value.Undefined()")
	case value.KindNull:
		e.printf("value.Null()")
	case value.KindBool:
		b, _ := v.BoolValue()
		e.printf("value.Bool(%t)", b)
	case value.KindNumber:
		f, _ := v.NumberValue()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("cannot emit number %s", v)
		}
		e.printf("value.Number(%s)", strconv.FormatFloat(f, 'g', -1, 64))
	case value.KindInt64:
		i, _ := v.Int64Value()
		e.printf("value.Int64(%d)", i)
	case value.KindString:
		s, _ := v.StringValue()
		e.printf("value.String(%q)", s)
	case value.KindList:
		e.printf("value.ListOf(")
		for i, elem := range v.List().Values() {
			if i != 0 {
				e.printf(", ")
			}
			if err := e.value(elem); err != nil {
				return err
			}
		}
		e.printf(")")
	default:
		return fmt.Errorf("cannot emit %s default", v.Kind())
	}
	return nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
