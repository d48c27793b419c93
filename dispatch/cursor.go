package dispatch

import (
	"github.com/joeycumines/go-bindbridge/value"
)

// Cursor is a single-use, forward-only iterator over the snapshot taken when
// it was created. Cursors are independent of each other.
type Cursor struct {
	items []value.Value
	value value.Value
	pos   int
	done  bool
}

func newCursor(snapshot *value.List) *Cursor {
	return &Cursor{items: snapshot.Values()}
}

// Next advances the cursor, returning the new value and done state. Once
// done, Next keeps returning (undefined, true).
func (x *Cursor) Next() (value.Value, bool) {
	if x.pos >= len(x.items) {
		x.items = nil
		x.value = value.Undefined()
		x.done = true
		return x.value, true
	}
	x.value = x.items[x.pos]
	x.pos++
	return x.value, false
}

// Done reports the done state of the most recent Next.
func (x *Cursor) Done() bool { return x.done }

// Value returns the value of the most recent Next.
func (x *Cursor) Value() value.Value { return x.value }
