package value

import (
	"golang.org/x/exp/slices"
)

// List is an ordered sequence of values.
type List struct {
	items []Value
}

// Len returns the number of elements. It is safe to call on a nil List.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// At returns the element at index i, or undefined when out of range.
func (l *List) At(i int) Value {
	if l == nil || i < 0 || i >= len(l.items) {
		return undefinedValue
	}
	return l.items[i]
}

// Values returns a copy of the elements.
func (l *List) Values() []Value {
	if l == nil {
		return nil
	}
	return slices.Clone(l.items)
}

// Dict is an ordered string-keyed mapping, the shape used for dictionary
// values. Keys keep their first insertion order.
type Dict struct {
	fields map[string]Value
	keys   []string
}

// NewDict returns an empty dictionary.
func NewDict() *Dict {
	return &Dict{fields: make(map[string]Value)}
}

// Len returns the number of fields.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the field names in insertion order.
func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.keys)
}

// Get returns the field value and whether it is present.
func (d *Dict) Get(key string) (Value, bool) {
	if d == nil {
		return undefinedValue, false
	}
	v, ok := d.fields[key]
	return v, ok
}

// Set stores a field, returning d for chaining. The zero Dict is ready
// to use.
func (d *Dict) Set(key string, val Value) *Dict {
	if d.fields == nil {
		d.fields = make(map[string]Value)
	}
	if _, ok := d.fields[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.fields[key] = val
	return d
}

// Delete removes a field.
func (d *Dict) Delete(key string) {
	if _, ok := d.fields[key]; !ok {
		return
	}
	delete(d.fields, key)
	if i := slices.Index(d.keys, key); i >= 0 {
		d.keys = slices.Delete(d.keys, i, i+1)
	}
}
