package configbag

import (
	"maps"
	"reflect"
)

// slotKey identifies a storage slot by the Go type it holds.
type slotKey = reflect.Type

// unsetMarker masks values of a type stored in older layers.
type unsetMarker struct{}

// appendList holds the values of an append-semantics slot for one layer.
type appendList[T any] struct {
	items []T
}

func keyOf[T any]() slotKey {
	return reflect.TypeFor[T]()
}

func appendKeyOf[T any]() slotKey {
	return reflect.TypeFor[appendList[T]]()
}

// Layer is a named, mutable set of typed entries.
//
// Contract:
//   - Concurrency: a Layer is not safe for concurrent mutation. Freeze it
//     before sharing.
type Layer struct {
	name   string
	values map[slotKey]any
}

// NewLayer creates an empty layer with a diagnostic name.
func NewLayer(name string) *Layer {
	return &Layer{
		name:   name,
		values: make(map[slotKey]any),
	}
}

// Name returns the diagnostic name of the layer.
func (l *Layer) Name() string {
	return l.name
}

// Len returns the number of slots defined in the layer.
func (l *Layer) Len() int {
	return len(l.values)
}

// Freeze returns an immutable snapshot of the layer. Later mutations of l do
// not affect the snapshot.
func (l *Layer) Freeze() *FrozenLayer {
	return &FrozenLayer{
		name:   l.name,
		values: maps.Clone(l.values),
	}
}

// Put stores v in the slot for T, replacing any value T already has in l.
// Lookups through a Bag return the value from the newest layer that defines T.
func Put[T any](l *Layer, v T) {
	l.values[keyOf[T]()] = v
}

// Unset masks any value of T stored in older layers of a bag.
func Unset[T any](l *Layer) {
	l.values[keyOf[T]()] = unsetMarker{}
}

// Append adds v to the append slot for T. Unlike Put, appended values from
// all layers are visible through LoadAll.
func Append[T any](l *Layer, v T) {
	key := appendKeyOf[T]()
	list, _ := l.values[key].(*appendList[T])
	next := &appendList[T]{}
	if list != nil {
		next.items = append(next.items, list.items...)
	}
	next.items = append(next.items, v)
	l.values[key] = next
}

// Get returns the value of T defined directly in l.
func Get[T any](l *Layer) (T, bool) {
	return lookup[T](l.values)
}

func lookup[T any](values map[slotKey]any) (T, bool) {
	var zero T
	raw, ok := values[keyOf[T]()]
	if !ok {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

// FrozenLayer is an immutable layer. It is safe to share by reference across
// goroutines.
type FrozenLayer struct {
	name   string
	values map[slotKey]any
}

// Name returns the diagnostic name of the layer.
func (f *FrozenLayer) Name() string {
	return f.name
}

// Thaw returns a mutable copy of the layer.
func (f *FrozenLayer) Thaw() *Layer {
	return &Layer{
		name:   f.name,
		values: maps.Clone(f.values),
	}
}

// GetFrozen returns the value of T defined directly in f.
func GetFrozen[T any](f *FrozenLayer) (T, bool) {
	return lookup[T](f.values)
}
