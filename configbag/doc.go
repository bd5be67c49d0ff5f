// Package configbag implements the layered, type-keyed configuration store
// that carries cross-cutting values through a call: the active time source,
// the sleep implementation, the retry token bucket and anything interceptors
// or runtime plugins choose to publish.
//
// A Layer is a named, mutable set of entries keyed by Go type. Freezing a
// layer produces an immutable FrozenLayer. A Bag is an ordered stack of
// frozen layers plus one mutable head layer owned by the call; lookups return
// the value from the newest layer that defines the type, falling through to
// older layers otherwise. Extending a bag with With never mutates the
// receiver, so frozen layers can be shared across concurrent calls.
//
// Layer names are diagnostic labels only; they do not participate in lookup.
//
// # Usage
//
//	defaults := configbag.NewLayer("defaults")
//	configbag.Put(defaults, clock.NewSharedTimeSource(clock.SystemClock{}))
//
//	bag := configbag.New("call", defaults.Freeze())
//	configbag.Store(bag, clock.NewSharedTimeSource(clock.StaticTimeSource(epoch)))
//
//	ts, _ := configbag.Load[clock.SharedTimeSource](bag) // the static source
package configbag
