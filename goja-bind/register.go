package gojabind

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"

	"github.com/joeycumines/go-bindbridge/dispatch"
)

// Require returns a [require.ModuleLoader] exporting one constructor per
// bound interface:
//
//	registry := require.NewRegistry()
//	registry.RegisterNativeModule("bindings", gojabind.Require(dispatcher))
//	registry.Enable(runtime)
//
// then, in script:
//
//	const { Canvas } = require('bindings');
//
// Each runtime requiring the module gets its own [Binding].
func Require(rt *dispatch.Runtime, opts ...Option) require.ModuleLoader {
	return func(runtime *goja.Runtime, module *goja.Object) {
		b, err := New(runtime, rt, opts...)
		if err != nil {
			panic(runtime.NewGoError(err))
		}
		exports := module.Get("exports").(*goja.Object)
		b.SetupExports(exports)
	}
}
