package configbag

// Bag is an ordered stack of frozen layers topped by one mutable head layer.
//
// Contract:
//   - Concurrency: frozen layers are shared read-only. The head layer belongs to
//     the goroutine driving the call and is not safe for concurrent mutation.
//   - Ownership: With returns a new Bag; the receiver and any bag previously
//     derived from it are unaffected.
type Bag struct {
	layers []*FrozenLayer // oldest first
	head   *Layer
}

// New creates a bag over layers (oldest first) with an empty head layer
// named name.
func New(name string, layers ...*FrozenLayer) *Bag {
	b := &Bag{
		layers: make([]*FrozenLayer, 0, len(layers)),
		head:   NewLayer(name),
	}
	for _, l := range layers {
		if l != nil {
			b.layers = append(b.layers, l)
		}
	}
	return b
}

// With returns a bag with layer stacked above the receiver's frozen layers.
// The receiver's head is frozen into the new bag beneath layer so that values
// stored so far keep their precedence order.
func (b *Bag) With(layer *FrozenLayer) *Bag {
	next := &Bag{
		layers: make([]*FrozenLayer, 0, len(b.layers)+2),
		head:   NewLayer(b.head.name),
	}
	next.layers = append(next.layers, b.layers...)
	if b.head.Len() > 0 {
		next.layers = append(next.layers, b.head.Freeze())
	}
	if layer != nil {
		next.layers = append(next.layers, layer)
	}
	return next
}

// Head returns the bag's mutable head layer.
func (b *Bag) Head() *Layer {
	return b.head
}

// LayerNames returns the diagnostic names of all layers, oldest first, ending
// with the head layer.
func (b *Bag) LayerNames() []string {
	names := make([]string, 0, len(b.layers)+1)
	for _, l := range b.layers {
		names = append(names, l.name)
	}
	return append(names, b.head.name)
}

// Store puts v into the head layer of b.
func Store[T any](b *Bag, v T) {
	Put(b.head, v)
}

// Load returns the value of T from the newest layer that defines it. A layer
// that Unset T hides every older value.
func Load[T any](b *Bag) (T, bool) {
	var zero T
	key := keyOf[T]()

	if raw, ok := b.head.values[key]; ok {
		return asValue[T](raw)
	}
	for i := len(b.layers) - 1; i >= 0; i-- {
		if raw, ok := b.layers[i].values[key]; ok {
			return asValue[T](raw)
		}
	}
	return zero, false
}

// LoadOr returns the value of T or fallback when no layer defines it.
func LoadOr[T any](b *Bag, fallback T) T {
	if v, ok := Load[T](b); ok {
		return v
	}
	return fallback
}

// LoadAll returns every value appended for T across all layers, oldest layer
// first and in append order within each layer.
func LoadAll[T any](b *Bag) []T {
	key := appendKeyOf[T]()

	var out []T
	collect := func(values map[slotKey]any) {
		if list, ok := values[key].(*appendList[T]); ok {
			out = append(out, list.items...)
		}
	}
	for _, l := range b.layers {
		collect(l.values)
	}
	collect(b.head.values)
	return out
}

func asValue[T any](raw any) (T, bool) {
	var zero T
	if _, masked := raw.(unsetMarker); masked {
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}
