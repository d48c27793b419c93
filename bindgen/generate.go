package bindgen

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/joeycumines/go-bindbridge/decl"
	"github.com/joeycumines/go-bindbridge/resolve"
)

// Generate builds the binding tables for every interface and dictionary in
// the model. The output is deterministic: tables follow declaration order
// and descriptors follow flattened member order. On error no tables are
// returned.
func Generate(model *resolve.Model) (*Tables, error) {
	var (
		errs   []error
		tables []*Table
		shapes []*DictShape
	)

	for _, iface := range model.Interfaces() {
		t, err := generateTable(iface)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tables = append(tables, t)
	}

	for _, dict := range model.Dictionaries() {
		shape := &DictShape{Name: dict.Name, Parent: dict.Parent}
		for _, f := range dict.Fields {
			rule, err := ruleFor(f.Type)
			if err == nil {
				err = checkValueRule(rule)
			}
			if err != nil {
				errs = append(errs, &GenerateError{Interface: dict.Name, Member: f.Name, Message: err.Error()})
				continue
			}
			shape.Fields = append(shape.Fields, FieldShape{
				Rule:       rule,
				Default:    f.Default,
				Name:       f.Name,
				Required:   !f.Optional,
				HasDefault: f.HasDefault,
			})
		}
		shapes = append(shapes, shape)
	}

	if len(errs) != 0 {
		return nil, errors.Join(errs...)
	}

	out := NewTables(tables, shapes)

	// defaults are normalized once every shape is known
	for _, shape := range shapes {
		for i := range shape.Fields {
			f := &shape.Fields[i]
			if !f.HasDefault {
				continue
			}
			v, err := f.Rule.ToNative(out, f.Default)
			if err != nil {
				errs = append(errs, &GenerateError{Interface: shape.Name, Member: f.Name, Message: "invalid default: " + err.Error()})
				continue
			}
			f.Default = v
		}
	}
	if len(errs) != 0 {
		return nil, errors.Join(errs...)
	}

	return out, nil
}

func generateTable(iface *resolve.Interface) (*Table, error) {
	var errs []error
	t := &Table{
		Interface:     iface.Name,
		Parent:        iface.Parent,
		Ancestors:     slices.Clone(iface.Ancestors),
		Mixins:        slices.Clone(iface.Mixins),
		Events:        slices.Clone(iface.Events),
		Constructible: iface.Constructible(),
	}

	t.Constructor = &Descriptor{
		Value:  &Rule{Kind: RuleInterface, Name: iface.Name},
		Name:   iface.Name,
		Key:    "constructor",
		Origin: iface.Name,
		Kind:   decl.MemberMethod,
		Access: AccessConstruct,
		Effect: EffectNotConstructible,
	}
	if ctor := iface.Constructor; ctor != nil {
		params, err := paramsFor(&ctor.Member)
		if err != nil {
			errs = append(errs, &GenerateError{Interface: iface.Name, Member: "constructor", Message: err.Error()})
		}
		t.Constructor.Params = params
		t.Constructor.MinArgs = minArgs(params)
		t.Constructor.Effect = EffectMutates
	}

	for _, m := range iface.Members {
		d, err := descriptorFor(m)
		if err != nil {
			errs = append(errs, &GenerateError{Interface: iface.Name, Member: m.Name, Message: err.Error()})
			continue
		}
		t.Members = append(t.Members, d)
	}
	for _, m := range iface.Statics {
		d, err := descriptorFor(m)
		if err != nil {
			errs = append(errs, &GenerateError{Interface: iface.Name, Member: m.Name, Message: err.Error()})
			continue
		}
		t.Statics = append(t.Statics, d)
	}

	if len(errs) != 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

func descriptorFor(m *resolve.Member) (*Descriptor, error) {
	rule, err := ruleFor(m.Type)
	if err != nil {
		return nil, err
	}
	d := &Descriptor{
		Value:    rule,
		Name:     m.Name,
		Key:      m.Key(),
		Origin:   m.Origin,
		Kind:     m.Kind,
		Static:   m.Static,
		Optional: m.Optional,
		ReadOnly: m.ReadOnly,
	}

	switch {
	case m.Symbol != "":
		if rule.Kind != RuleIterator {
			return nil, fmt.Errorf("iteration member must return an iterator, not %s", rule)
		}
		d.Access = AccessIterate
		d.Effect = EffectNone
		return d, checkValueRule(rule.Elem)

	case m.Kind == decl.MemberMethod:
		if d.Params, err = paramsFor(&m.Member); err != nil {
			return nil, err
		}
		d.MinArgs = minArgs(d.Params)
		d.Access = AccessCall
		d.Effect = EffectMutates
		if rule.Kind == RuleIterator {
			return d, checkValueRule(rule.Elem)
		}
		return d, checkValueRule(rule)

	case m.Kind == decl.MemberEvent:
		if rule.Kind == RuleFunction {
			d.Value = &Rule{Kind: RuleNullable, Elem: rule}
		}
		d.Event = m.EventName()
		d.Access = AccessGet | AccessSet | AccessEvent
		d.Effect = EffectMutates
		return d, nil

	default:
		d.Access = AccessGet
		d.Effect = EffectNone
		if !m.ReadOnly {
			d.Access |= AccessSet
			d.Effect = EffectMutates
		}
		return d, checkValueRule(rule)
	}
}

func paramsFor(m *decl.Member) ([]Param, error) {
	if len(m.Params) == 0 {
		return nil, nil
	}
	params := make([]Param, len(m.Params))
	for i, p := range m.Params {
		rule, err := ruleFor(p.Type)
		if err != nil {
			return nil, err
		}
		if err := checkValueRule(rule); err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		params[i] = Param{Rule: rule, Name: p.Name, Optional: p.Optional}
	}
	return params, nil
}

func minArgs(params []Param) (n int) {
	for _, p := range params {
		if p.Optional {
			break
		}
		n++
	}
	return n
}

// checkValueRule rejects iterator rules outside return positions.
func checkValueRule(r *Rule) error {
	for ; r != nil; r = r.Elem {
		if r.Kind == RuleIterator {
			return errors.New("iterator types are only valid as return types")
		}
	}
	return nil
}
