package resolve

import (
	"errors"
	"strings"

	cycle "github.com/joeycumines/go-detect-cycle/floyds"
	"golang.org/x/exp/slices"

	"github.com/joeycumines/go-bindbridge/decl"
)

type (
	resolver struct {
		ifaces     map[string]*decl.Interface
		mixins     map[string]*decl.Mixin
		dicts      map[string]*decl.Dictionary
		positions  map[string]decl.Pos
		ifaceOrder []string
		mixinOrder []string
		dictOrder  []string
		includes   []*decl.Include
		parents    map[string]string
		// applied holds the directly applied mixins of each interface or
		// mixin, in application order.
		applied     map[string][]string
		dictParents map[string]string
		members     map[*decl.Member]*Member
		tables      map[string]*table
		fields      map[string][]*decl.Field
		reported    map[string]bool
		errs        []error
	}

	table struct {
		members map[string]*Member
		keys    []string
	}

	// node is a vertex of the inheritance graph. Dictionaries live in their
	// own namespace.
	node struct {
		name string
		dict bool
	}
)

// Resolve links the declarations of all files into a Model. Every problem
// found is reported, joined with errors.Join; on error the Model is nil.
func Resolve(files ...*decl.File) (*Model, error) {
	r := &resolver{
		ifaces:      make(map[string]*decl.Interface),
		mixins:      make(map[string]*decl.Mixin),
		dicts:       make(map[string]*decl.Dictionary),
		positions:   make(map[string]decl.Pos),
		parents:     make(map[string]string),
		applied:     make(map[string][]string),
		dictParents: make(map[string]string),
		members:     make(map[*decl.Member]*Member),
		tables:      make(map[string]*table),
		fields:      make(map[string][]*decl.Field),
		reported:    make(map[string]bool),
	}

	r.index(files)
	if len(r.errs) == 0 {
		r.link()
	}
	if len(r.errs) == 0 {
		r.checkCycles()
	}
	var model *Model
	if len(r.errs) == 0 {
		model = r.flatten()
	}
	if len(r.errs) != 0 {
		return nil, errors.Join(r.errs...)
	}
	return model, nil
}

func (r *resolver) fail(err error) { r.errs = append(r.errs, err) }

func (r *resolver) index(files []*decl.File) {
	declare := func(kind, name string, pos decl.Pos) bool {
		if first, ok := r.positions[name]; ok {
			r.fail(&DuplicateDeclarationError{Kind: kind, Name: name, First: first, Second: pos})
			return false
		}
		r.positions[name] = pos
		return true
	}
	for _, f := range files {
		if f == nil {
			continue
		}
		for _, x := range f.Interfaces {
			if declare("interface", x.Name, x.Pos) {
				r.ifaces[x.Name] = x
				r.ifaceOrder = append(r.ifaceOrder, x.Name)
			}
		}
		for _, x := range f.Mixins {
			if declare("mixin", x.Name, x.Pos) {
				r.mixins[x.Name] = x
				r.mixinOrder = append(r.mixinOrder, x.Name)
			}
		}
		for _, x := range f.Dictionaries {
			if first, ok := r.dicts[x.Name]; ok {
				r.fail(&DuplicateDeclarationError{Kind: "dictionary", Name: x.Name, First: first.Pos, Second: x.Pos})
				continue
			}
			r.dicts[x.Name] = x
			r.dictOrder = append(r.dictOrder, x.Name)
		}
		r.includes = append(r.includes, f.Includes...)
	}
}

func (r *resolver) apply(name, mixin string) {
	if !slices.Contains(r.applied[name], mixin) {
		r.applied[name] = append(r.applied[name], mixin)
	}
}

func (r *resolver) link() {
	for _, name := range r.ifaceOrder {
		x := r.ifaces[name]
		var parents []string
		for _, base := range x.Bases {
			switch {
			case r.mixins[base] != nil:
				r.apply(name, base)
			case r.ifaces[base] != nil:
				parents = append(parents, base)
			default:
				r.fail(&UnknownBaseError{Name: name, Base: base, Pos: x.Pos})
			}
		}
		switch len(parents) {
		case 0:
		case 1:
			r.parents[name] = parents[0]
		default:
			r.fail(&MultipleBaseError{Name: name, Bases: parents, Pos: x.Pos})
		}
	}

	for _, name := range r.mixinOrder {
		x := r.mixins[name]
		for _, base := range x.Bases {
			switch {
			case r.mixins[base] != nil:
				r.apply(name, base)
			case r.ifaces[base] != nil:
				r.fail(&UnknownBaseError{Name: name, Base: base, Pos: x.Pos, NotMixin: true})
			default:
				r.fail(&UnknownBaseError{Name: name, Base: base, Pos: x.Pos})
			}
		}
	}

	for _, inc := range r.includes {
		if r.ifaces[inc.Interface] == nil {
			r.fail(&UnknownBaseError{Name: inc.Interface + " includes " + inc.Mixin, Base: inc.Interface, Pos: inc.Pos})
			continue
		}
		switch {
		case r.mixins[inc.Mixin] != nil:
			r.apply(inc.Interface, inc.Mixin)
		case r.ifaces[inc.Mixin] != nil:
			r.fail(&UnknownBaseError{Name: inc.Interface, Base: inc.Mixin, Pos: inc.Pos, NotMixin: true})
		default:
			r.fail(&UnknownBaseError{Name: inc.Interface, Base: inc.Mixin, Pos: inc.Pos})
		}
	}

	for _, name := range r.dictOrder {
		x := r.dicts[name]
		if x.Parent == "" {
			continue
		}
		if r.dicts[x.Parent] == nil {
			r.fail(&UnknownBaseError{Name: name, Base: x.Parent, Pos: x.Pos})
			continue
		}
		r.dictParents[name] = x.Parent
	}
}

func (r *resolver) checkCycles() {
	deps := make(map[node][]node)
	var roots []node
	for _, name := range r.ifaceOrder {
		k := node{name: name}
		roots = append(roots, k)
		if parent, ok := r.parents[name]; ok {
			deps[k] = append(deps[k], node{name: parent})
		}
		for _, m := range r.applied[name] {
			deps[k] = append(deps[k], node{name: m})
		}
	}
	for _, name := range r.mixinOrder {
		k := node{name: name}
		roots = append(roots, k)
		for _, m := range r.applied[name] {
			deps[k] = append(deps[k], node{name: m})
		}
	}
	for _, name := range r.dictOrder {
		k := node{name: name, dict: true}
		roots = append(roots, k)
		if parent, ok := r.dictParents[name]; ok {
			deps[k] = append(deps[k], node{name: parent, dict: true})
		}
	}

	if path := dependencyCycle(deps, roots); path != nil {
		names := make([]string, len(path))
		for i, v := range path {
			names[i] = v.name
		}
		r.fail(&InheritanceCycleError{Path: names})
	}
}

// dependencyCycle returns the first cycle reachable from roots, as a path
// that starts and ends on the same node, or nil.
func dependencyCycle[E comparable](deps map[E][]E, roots []E) []E {
	var (
		path  []E
		clean = make(map[E]bool)
		check func(k E, f cycle.BranchingDetector) []E
	)
	check = func(k E, f cycle.BranchingDetector) []E {
		for _, v := range deps[k] {
			if clean[v] {
				continue
			}
			if found := func() []E {
				nf := f.Hare(v)
				defer nf.Clear()
				path = append(path, v)
				defer func() { path = path[:len(path)-1] }()
				if !f.Ok() || slices.Contains(path[:len(path)-1], v) {
					return cyclePath(path)
				}
				return check(v, nf)
			}(); found != nil {
				return found
			}
		}
		clean[k] = true
		return nil
	}
	for _, k := range roots {
		if clean[k] {
			continue
		}
		path = append(path[:0], k)
		if found := check(k, cycle.NewBranchingDetector(k, nil)); found != nil {
			return found
		}
	}
	return nil
}

// cyclePath trims path to its first repeated segment.
func cyclePath[E comparable](path []E) []E {
	seen := make(map[E]int, len(path))
	for j, v := range path {
		if i, ok := seen[v]; ok {
			return slices.Clone(path[i : j+1])
		}
		seen[v] = j
	}
	return slices.Clone(path)
}

func newTable() *table { return &table{members: make(map[string]*Member)} }

// put adds m under its key. The first appearance fixes the position and a
// later one replaces the value, except for indexers and iteration members,
// which must come from a single declaration.
func (r *resolver) put(owner string, t *table, m *Member) {
	key := m.Key()
	existing, ok := t.members[key]
	if !ok {
		t.keys = append(t.keys, key)
		t.members[key] = m
		return
	}
	if existing.source == m.source {
		return
	}
	if key == "[]" || strings.HasPrefix(key, "@@") {
		if id := owner + "\x00" + key; !r.reported[id] {
			r.reported[id] = true
			r.fail(&ConflictingIndexerError{Interface: owner, Key: key, Origins: []string{existing.Origin, m.Origin}})
		}
		return
	}
	t.members[key] = m
}

func (r *resolver) merge(owner string, dst, src *table) {
	for _, key := range src.keys {
		r.put(owner, dst, src.members[key])
	}
}

func (r *resolver) addOwn(owner string, t *table, members []*decl.Member) {
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		key := m.Key()
		if seen[key] {
			r.fail(&DuplicateMemberError{Decl: owner, Member: m.Name, Pos: m.Pos})
			continue
		}
		seen[key] = true
		r.put(owner, t, r.member(owner, m))
	}
}

func (r *resolver) mixinTable(name string) *table {
	if t, ok := r.tables[name]; ok {
		return t
	}
	t := newTable()
	for _, base := range r.applied[name] {
		r.merge(name, t, r.mixinTable(base))
	}
	r.addOwn(name, t, r.mixins[name].Members)
	r.tables[name] = t
	return t
}

func (r *resolver) interfaceTable(name string) *table {
	if t, ok := r.tables[name]; ok {
		return t
	}
	t := newTable()
	if parent, ok := r.parents[name]; ok {
		r.merge(name, t, r.interfaceTable(parent))
	}
	for _, m := range r.applied[name] {
		r.merge(name, t, r.mixinTable(m))
	}
	r.addOwn(name, t, r.ifaces[name].Members)
	r.tables[name] = t
	return t
}

// mixinClosure appends name and the mixins it extends, bases first.
func (r *resolver) mixinClosure(out []string, name string) []string {
	for _, base := range r.applied[name] {
		out = r.mixinClosure(out, base)
	}
	if !slices.Contains(out, name) {
		out = append(out, name)
	}
	return out
}

func (r *resolver) member(origin string, m *decl.Member) *Member {
	if rm, ok := r.members[m]; ok {
		return rm
	}
	rm := &Member{Member: *m, Origin: origin, source: m}
	rm.Type = r.resolveType(origin, m.Name, m.Pos, m.Type)
	if m.Params != nil {
		rm.Params = make([]*decl.Param, len(m.Params))
		for i, p := range m.Params {
			rm.Params[i] = &decl.Param{
				Name:     p.Name,
				Type:     r.resolveType(origin, m.Name, m.Pos, p.Type),
				Optional: p.Optional,
			}
		}
	}
	r.members[m] = rm
	return rm
}

// resolveType returns a copy of t with named references resolved. Names
// resolve to interfaces before dictionaries.
func (r *resolver) resolveType(owner, member string, pos decl.Pos, t *decl.TypeRef) *decl.TypeRef {
	if t == nil {
		return nil
	}
	out := *t
	if t.Kind == decl.TypeNamed {
		switch {
		case r.ifaces[t.Name] != nil:
			out.Kind = decl.TypeInterface
		case r.dicts[t.Name] != nil:
			out.Kind = decl.TypeDictionary
		default:
			r.fail(&UnknownTypeError{Decl: owner, Member: member, Type: t.Name, Pos: pos})
		}
	}
	out.Elem = r.resolveType(owner, member, pos, t.Elem)
	return &out
}

func (r *resolver) dictFields(name string) []*decl.Field {
	if fields, ok := r.fields[name]; ok {
		return fields
	}
	var fields []*decl.Field
	if parent, ok := r.dictParents[name]; ok {
		fields = slices.Clone(r.dictFields(parent))
	}
	seen := make(map[string]bool)
	for _, f := range r.dicts[name].Fields {
		if seen[f.Name] {
			r.fail(&DuplicateMemberError{Decl: name, Member: f.Name, Pos: f.Pos})
			continue
		}
		seen[f.Name] = true
		rf := *f
		rf.Type = r.resolveType(name, f.Name, f.Pos, f.Type)
		if i := slices.IndexFunc(fields, func(v *decl.Field) bool { return v.Name == f.Name }); i >= 0 {
			fields[i] = &rf
		} else {
			fields = append(fields, &rf)
		}
	}
	r.fields[name] = fields
	return fields
}

func (r *resolver) flatten() *Model {
	model := &Model{
		interfaces:   make(map[string]*Interface, len(r.ifaceOrder)),
		dictionaries: make(map[string]*Dictionary, len(r.dictOrder)),
		ifaceOrder:   slices.Clone(r.ifaceOrder),
		dictOrder:    slices.Clone(r.dictOrder),
	}

	for _, name := range r.ifaceOrder {
		x := r.ifaces[name]
		t := r.interfaceTable(name)
		iface := &Interface{
			Name:   name,
			Parent: r.parents[name],
			Pos:    x.Pos,
			index:  t.members,
		}
		for _, m := range r.applied[name] {
			iface.Mixins = r.mixinClosure(iface.Mixins, m)
		}
		for p := r.parents[name]; p != ""; p = r.parents[p] {
			iface.Ancestors = append(iface.Ancestors, p)
		}
		if x.Constructor != nil {
			iface.Constructor = r.member(name, x.Constructor)
		}
		for _, key := range t.keys {
			m := t.members[key]
			if m.Static {
				iface.Statics = append(iface.Statics, m)
				continue
			}
			iface.Members = append(iface.Members, m)
			if m.Kind == decl.MemberEvent {
				iface.Events = append(iface.Events, m.EventName())
			}
		}
		model.interfaces[name] = iface
	}

	// mixins that no interface applies still get their types checked
	for _, name := range r.mixinOrder {
		r.mixinTable(name)
	}

	for _, name := range r.dictOrder {
		x := r.dicts[name]
		model.dictionaries[name] = &Dictionary{
			Name:   name,
			Parent: x.Parent,
			Fields: r.dictFields(name),
			Pos:    x.Pos,
		}
	}

	return model
}
