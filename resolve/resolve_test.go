package resolve

import (
	"errors"
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-bindbridge/decl"
)

func parse(t *testing.T, src string) *decl.File {
	t.Helper()
	f, err := decl.Parse(t.Name()+".d.ts", src)
	require.NoError(t, err)
	return f
}

func mustResolve(t *testing.T, srcs ...string) *Model {
	t.Helper()
	files := make([]*decl.File, len(srcs))
	for i, src := range srcs {
		files[i] = parse(t, src)
	}
	model, err := Resolve(files...)
	require.NoError(t, err)
	require.NotNil(t, model)
	return model
}

func mustFail(t *testing.T, src string) error {
	t.Helper()
	model, err := Resolve(parse(t, src))
	require.Error(t, err)
	require.Nil(t, model)
	return err
}

func keys(members []*Member) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Key()
	}
	return out
}

func origins(members []*Member) map[string]string {
	out := make(map[string]string, len(members))
	for _, m := range members {
		out[m.Key()] = m.Origin
	}
	return out
}

const treeSource = `
interface EventTarget {
  addListener(type: string, fn: Function): void;
  readonly kind: string;
}

@Mixin
interface ParentNode {
  readonly childElementCount: int64;
  kind: string;
}

@Mixin
interface ChildNode {
  remove(): void;
  kind: string;
}

interface Node extends EventTarget {
  readonly nodeName: string;
  onload: EventHandler;
  static create(): Node;
}

interface Element extends Node, ParentNode {
  id: string;
  nodeName: string;
  [Symbol.iterator](): Iterator<Element>;
  new(tag: string): void;
}

Element includes ChildNode;
`

func TestResolve_flatten(t *testing.T) {
	model := mustResolve(t, treeSource)

	elem := model.Interface("Element")
	require.NotNil(t, elem)
	assert.Equal(t, "Node", elem.Parent)
	if diff := deep.Equal(elem.Ancestors, []string{"Node", "EventTarget"}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(elem.Mixins, []string{"ParentNode", "ChildNode"}); diff != nil {
		t.Error(diff)
	}

	// parent first, then mixins, then own; positions are first appearance
	if diff := deep.Equal(keys(elem.Members), []string{
		"addListener",
		"kind",
		"nodeName",
		"onload",
		"childElementCount",
		"remove",
		"id",
		"@@iterator",
	}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(origins(elem.Members), map[string]string{
		"addListener":       "EventTarget",
		"kind":              "ChildNode",
		"nodeName":          "Element",
		"onload":            "Node",
		"childElementCount": "ParentNode",
		"remove":            "ChildNode",
		"id":                "Element",
		"@@iterator":        "Element",
	}); diff != nil {
		t.Error(diff)
	}

	assert.Equal(t, []string{"static create"}, keys(elem.Statics))
	assert.Equal(t, []string{"load"}, elem.Events)
	assert.True(t, elem.Constructible())
	assert.False(t, model.Interface("Node").Constructible())
	require.NotNil(t, elem.Iterator())
	assert.Equal(t, decl.TypeInterface, elem.Iterator().Type.Elem.Kind)
	assert.Nil(t, elem.Indexer())

	// mixins are not interfaces
	assert.Nil(t, model.Interface("ParentNode"))

	names := make([]string, 0)
	for _, x := range model.Interfaces() {
		names = append(names, x.Name)
	}
	assert.Equal(t, []string{"EventTarget", "Node", "Element"}, names)
}

func TestResolve_flattenedSize(t *testing.T) {
	model := mustResolve(t, `
interface A { a: string; b: string; c(): void; }
interface B extends A { b: double; d: string; }
interface C extends B { a: boolean; c(x: string): void; e: string; }
`)
	for _, tc := range [...]struct {
		name string
		size int
	}{
		{"A", 3},
		{"B", 4},
		{"C", 5},
	} {
		if got := len(model.Interface(tc.name).Members); got != tc.size {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.size)
		}
	}
}

func TestResolve_overridePrecedence(t *testing.T) {
	model := mustResolve(t, `
interface A { m(): void; n(): void; }
@Mixin interface M1 { m(): void; p: string; q: string; }
@Mixin interface M2 { p: double; }
interface B extends A, M1, M2 { m(): string; }
interface C extends A {}
`)

	b := model.Interface("B")
	assert.Equal(t, "B", b.Member("m").Origin)
	assert.Equal(t, decl.TypeString, b.Member("m").Type.Kind)
	assert.Equal(t, "A", b.Member("n").Origin)
	assert.Equal(t, "M2", b.Member("p").Origin, "last applied mixin wins")
	assert.Equal(t, "M1", b.Member("q").Origin)
	assert.Equal(t, []string{"m", "n", "p", "q"}, keys(b.Members))

	c := model.Interface("C")
	assert.Equal(t, "A", c.Member("m").Origin)
}

func TestResolve_sharedMembers(t *testing.T) {
	model := mustResolve(t, `
@Mixin interface M { readonly [key: string]: any; }
interface A extends M {}
interface B extends A, M {}
`)
	b := model.Interface("B")
	require.NotNil(t, b.Indexer())
	assert.Equal(t, "M", b.Indexer().Origin)
	assert.Same(t, model.Interface("A").Indexer(), b.Indexer())
}

func TestResolve_isA(t *testing.T) {
	model := mustResolve(t, treeSource)
	assert.True(t, model.IsA("Element", "Element"))
	assert.True(t, model.IsA("Element", "Node"))
	assert.True(t, model.IsA("Element", "EventTarget"))
	assert.False(t, model.IsA("Node", "Element"))
	assert.False(t, model.IsA("Element", "ParentNode"))
	assert.False(t, model.IsA("Missing", "Missing"))
}

func TestResolve_dictionaries(t *testing.T) {
	model := mustResolve(t, `
@Dictionary interface Base { a: string; b?: double = 1; }
@Dictionary interface Point extends Base { b?: double = 2; c?: Point; el?: Element | null; }
interface Element {}
@Dictionary interface Element { x: double; }
`)
	p := model.Dictionary("Point")
	require.NotNil(t, p)
	names := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"a", "b", "c", "el"}, names)
	assert.Equal(t, decl.TypeDictionary, p.Field("c").Type.Kind)
	// interfaces take precedence over dictionaries of the same name
	assert.Equal(t, decl.TypeInterface, p.Field("el").Type.Elem.Kind)
	assert.Nil(t, p.Field("missing"))

	b, _ := p.Field("b").Default.NumberValue()
	assert.Equal(t, 2.0, b)
	assert.Len(t, model.Dictionaries(), 3)
}

func TestResolve_acrossFiles(t *testing.T) {
	model := mustResolve(t,
		`interface A { x: B; }`,
		`interface B extends A {} A includes M;`,
		`@Mixin interface M { y: string; }`,
	)
	// mixins precede own members
	assert.Equal(t, []string{"y", "x"}, keys(model.Interface("B").Members))
}

func TestResolve_cycle(t *testing.T) {
	for _, tc := range [...]struct {
		name string
		src  string
		path []string
	}{
		{
			name: "self",
			src:  `interface A extends A {}`,
			path: []string{"A", "A"},
		},
		{
			name: "extends",
			src:  `interface A extends C {} interface B extends A {} interface C extends B {}`,
			path: []string{"A", "C", "B", "A"},
		},
		{
			name: "mixins",
			src:  `@Mixin interface M extends N {} @Mixin interface N extends M {} interface A extends M {}`,
			path: []string{"M", "N", "M"},
		},
		{
			name: "dictionaries",
			src:  `@Dictionary interface D extends E {} @Dictionary interface E extends D {}`,
			path: []string{"D", "E", "D"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := mustFail(t, tc.src)
			var cycleErr *InheritanceCycleError
			require.True(t, errors.As(err, &cycleErr), "%v", err)
			if diff := deep.Equal(cycleErr.Path, tc.path); diff != nil {
				t.Error(diff)
			}
		})
	}
}

func TestResolve_noCycleDiamond(t *testing.T) {
	model := mustResolve(t, `
@Mixin interface M { m: string; }
interface A extends M {}
interface B extends A, M {}
interface C extends B, M {}
C includes M;
`)
	assert.Equal(t, []string{"m"}, keys(model.Interface("C").Members))
}

func TestResolve_errors(t *testing.T) {
	t.Run("unknown base", func(t *testing.T) {
		var target *UnknownBaseError
		require.ErrorAs(t, mustFail(t, `interface A extends Missing {}`), &target)
		assert.Equal(t, "A", target.Name)
		assert.Equal(t, "Missing", target.Base)
		assert.False(t, target.NotMixin)
	})
	t.Run("include not mixin", func(t *testing.T) {
		var target *UnknownBaseError
		require.ErrorAs(t, mustFail(t, `interface A {} interface B {} A includes B;`), &target)
		assert.True(t, target.NotMixin)
	})
	t.Run("mixin extends interface", func(t *testing.T) {
		var target *UnknownBaseError
		require.ErrorAs(t, mustFail(t, `interface A {} @Mixin interface M extends A {}`), &target)
		assert.True(t, target.NotMixin)
	})
	t.Run("duplicate", func(t *testing.T) {
		var target *DuplicateDeclarationError
		require.ErrorAs(t, mustFail(t, "interface A {}\n@Mixin interface A {}"), &target)
		assert.Equal(t, "A", target.Name)
		assert.Equal(t, 1, target.First.Line)
		assert.Equal(t, 2, target.Second.Line)
	})
	t.Run("duplicate dictionary", func(t *testing.T) {
		var target *DuplicateDeclarationError
		require.ErrorAs(t, mustFail(t, `@Dictionary interface D {} @Dictionary interface D {}`), &target)
		assert.Equal(t, "dictionary", target.Kind)
	})
	t.Run("multiple base", func(t *testing.T) {
		var target *MultipleBaseError
		require.ErrorAs(t, mustFail(t, `interface A {} interface B {} interface C extends A, B {}`), &target)
		assert.Equal(t, []string{"A", "B"}, target.Bases)
	})
	t.Run("unknown type", func(t *testing.T) {
		var target *UnknownTypeError
		require.ErrorAs(t, mustFail(t, `interface A { f(x: Nope[]): void; }`), &target)
		assert.Equal(t, "Nope", target.Type)
		assert.Equal(t, "f", target.Member)
	})
	t.Run("mixin is not a type", func(t *testing.T) {
		var target *UnknownTypeError
		require.ErrorAs(t, mustFail(t, `@Mixin interface M {} interface A { m: M; }`), &target)
	})
	t.Run("conflicting indexer", func(t *testing.T) {
		var target *ConflictingIndexerError
		require.ErrorAs(t, mustFail(t, `
interface A { [key: string]: any; }
interface B extends A { [name: string]: string; }
`), &target)
		assert.Equal(t, "B", target.Interface)
		assert.Equal(t, []string{"A", "B"}, target.Origins)
	})
	t.Run("conflicting iterator", func(t *testing.T) {
		var target *ConflictingIndexerError
		require.ErrorAs(t, mustFail(t, `
@Mixin interface M { [Symbol.iterator](): Iterator<any>; }
@Mixin interface N { [Symbol.iterator](): Iterator<string>; }
interface A extends M, N {}
`), &target)
		assert.Equal(t, "@@iterator", target.Key)
	})
	t.Run("duplicate member", func(t *testing.T) {
		var target *DuplicateMemberError
		require.ErrorAs(t, mustFail(t, `interface A { f(): void; f(x: string): void; }`), &target)
		assert.Equal(t, "f", target.Member)
	})
	t.Run("aggregated", func(t *testing.T) {
		err := mustFail(t, `interface A extends X {} interface B extends Y {}`)
		var joined interface{ Unwrap() []error }
		require.ErrorAs(t, err, &joined)
		assert.Len(t, joined.Unwrap(), 2)
	})
}
