// Package convert registers alternate wire representations for model types.
// A conversion pairs a declared type with an alternate target type and the
// transforms between them. Conversions for one type form an ordered list:
// decoding tries each alternate in turn, encoding picks the single
// conversion matched by the native value's runtime type.
package convert

import (
	"sync"
	"sync/atomic"

	"github.com/goshape/goshape/modeltype"
)

// Conversion describes one alternate representation of a declared type.
type Conversion struct {
	// Target is the alternate model type seen on the wire.
	Target modeltype.Type
	// Decode transforms a decoded Target value into the native value.
	Decode func(v any) (any, error)
	// Encode transforms a native value into a Target value.
	Encode func(v any) (any, error)
	// Matches selects this conversion for encoding based on the native
	// value's runtime type. Nil matches every value.
	Matches func(v any) bool
	// Context overrides the visible conversions while the Target sub-node
	// compiles, supporting wrapper-to-contained-value conversions that must
	// not leak into the contained value's own fields.
	Context *Override
}

// Registry holds the process-wide conversion lists per type. The zero value
// is ready to use.
type Registry struct {
	mu         sync.RWMutex
	byType     map[string][]Conversion
	generation atomic.Uint64
}

var global Registry

// Default returns the process-wide registry.
func Default() *Registry { return &global }

// Register appends conversions for t, preserving registration order. It
// bumps the registry generation so cached compiled nodes are invalidated
// before the next compilation.
func (r *Registry) Register(t modeltype.Type, convs ...Conversion) {
	if len(convs) == 0 {
		return
	}
	r.mu.Lock()
	if r.byType == nil {
		r.byType = make(map[string][]Conversion)
	}
	sig := t.Signature()
	r.byType[sig] = append(r.byType[sig], convs...)
	r.mu.Unlock()
	r.generation.Add(1)
}

// Resolve returns the ordered conversion list for t under the given
// override. An override entry for t replaces the registry's list entirely.
func (r *Registry) Resolve(t modeltype.Type, ov *Override) []Conversion {
	sig := t.Signature()
	if ov != nil {
		if convs, ok := ov.lookup(sig); ok {
			return convs
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byType[sig]
}

// Generation returns a counter incremented on every registration. Compilers
// key their caches on it so registration conservatively drops all nodes.
func (r *Registry) Generation() uint64 { return r.generation.Load() }

// Reset drops all registered conversions. Intended for tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.byType = nil
	r.mu.Unlock()
	r.generation.Add(1)
}

// Register appends conversions for t on the default registry.
func Register(t modeltype.Type, convs ...Conversion) {
	global.Register(t, convs...)
}

// Override is an immutable conversion set layered over the registry for one
// compilation. Each override carries a process-unique identity: the same
// type compiled under different overrides yields distinct cached nodes.
type Override struct {
	byType map[string][]Conversion
	id     uint64
}

var nextOverrideID atomic.Uint64

// NewOverride snapshots the given per-type conversion lists.
func NewOverride(entries map[modeltype.Type][]Conversion) *Override {
	byType := make(map[string][]Conversion, len(entries))
	for t, convs := range entries {
		byType[t.Signature()] = append([]Conversion(nil), convs...)
	}
	return &Override{byType: byType, id: nextOverrideID.Add(1)}
}

// ID returns the override's identity; the zero value stands for no override.
func (o *Override) ID() uint64 {
	if o == nil {
		return 0
	}
	return o.id
}

func (o *Override) lookup(sig string) ([]Conversion, bool) {
	if o == nil {
		return nil, false
	}
	convs, ok := o.byType[sig]
	return convs, ok
}
