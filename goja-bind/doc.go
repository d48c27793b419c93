// Package gojabind exposes dispatch runtimes to the [goja] JavaScript
// runtime.
//
// Every interface in the binding tables becomes a constructor function.
// Native objects cross into script as proxy objects whose property traps
// run the dispatch pipeline, so members, the indexer and the iteration
// protocol behave like ordinary JavaScript properties:
//
//	const c = new Canvas(640);
//	c.width;                   // get crossing
//	c.main = bitmap;           // indexer set crossing
//	for (const b of c) {}      // Symbol.iterator
//	c.onload = () => {};       // event handler slot
//	c.addEventListener('load', fn, {once: true});
//
// Methods live on the interface prototypes, and each native object has
// exactly one proxy object at a time, so identity comparisons behave as
// expected. Dispatch errors are thrown as JavaScript errors: RangeError and
// TypeError use the engine's constructors, every other error is an Error
// whose name is the Go type name, e.g. "ReadOnlyPropertyError".
//
// # Usage
//
//	rt := goja.New()
//	b, _ := gojabind.New(rt, dispatcher)
//	_ = b.Bind() // constructors as globals
//
// or through require:
//
//	registry := require.NewRegistry()
//	registry.RegisterNativeModule("bindings", gojabind.Require(dispatcher))
//	registry.Enable(rt)
//
// A [goja.Runtime] is not goroutine safe: all script work, and every
// dispatch call it makes, must happen on the loop goroutine.
//
// [goja]: github.com/dop251/goja
package gojabind
