// Package decl implements the declaration model consumed by the binding
// compiler, and the parser for its textual declaration surface.
//
// # Declaration Syntax
//
// Declarations use a TypeScript-declaration flavoured syntax. Annotations
// select the declaration kind:
//
//	@Mixin
//	interface ParentNode {
//	    readonly childElementCount: int64;
//	}
//
//	interface Element extends Node, ParentNode {
//	    id: string;
//	    onclick: EventHandler;
//	    getAttribute(name: string): string | null;
//	    readonly [key: string]: any;
//	    [Symbol.iterator](): Iterator<Node>;
//	    new(tagName: string): void;
//	}
//
//	Element includes ChildNode;
//
//	@Dictionary
//	interface EventInit {
//	    bubbles?: boolean = false;
//	    detail?: any;
//	}
//
// An interface is constructible from script only when it declares a
// constructor signature (new). Names listed after extends may refer to mixins
// or to at most one parent interface; the resolver decides which.
//
// # Type Mapping
//
//   - boolean, string, any, void
//   - number, double → IEEE-754 double
//   - int64 → exact 64-bit integer, limited to the safe integer range
//   - Function → function reference; EventHandler → function reference that
//     marks the property as an event accessor
//   - T[] and Array<T> → list of T; Iterator<T> → iteration protocol
//   - T | null, T | undefined → nullable T
//
// Parse errors carry the file, line and column of the offending token; a file
// that fails to parse yields no declarations at all.
package decl
