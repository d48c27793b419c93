package dispatch

import (
	"github.com/joeycumines/go-bindbridge/bindgen"
	"github.com/joeycumines/go-bindbridge/value"
)

// Selector identifies the member a crossing invokes.
type Selector struct {
	Interface string
	// Member is the member name, or the key for indexed access.
	Member string
	Access bindgen.Access
	Static bool
	// Indexed is set when the crossing fell through to the indexer.
	Indexed bool
}

// Native is implemented by native objects bound to script.
//
// Arguments have already been converted by the member's marshalling rules,
// so an int64 parameter arrives as [value.KindInt64]. For AccessGet args is
// empty, for AccessSet it holds the new value. Results are converted back
// before reaching script; returning a value of the wrong shape fails the
// crossing rather than reaching script. Iteration members return a list.
type Native interface {
	InvokeNative(sel Selector, args []value.Value) (value.Value, error)
}

// NativeFunc adapts a function to [Native].
type NativeFunc func(sel Selector, args []value.Value) (value.Value, error)

func (f NativeFunc) InvokeNative(sel Selector, args []value.Value) (value.Value, error) {
	return f(sel, args)
}

// Class is the native side of an interface's constructor and static
// members, see [Runtime.RegisterClass].
type Class struct {
	// Construct creates the native object for a script constructor call.
	// The runtime registers it. Only consulted for constructible
	// interfaces.
	Construct func(args []value.Value) (Native, error)
	// Static serves static members; the selector has Static set.
	Static Native
}
