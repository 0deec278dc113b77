package registry

import (
	"reflect"
	"slices"
	"sync"

	"github.com/aretw0/folio/pkg/domain"
)

// Constructor returns a fresh, unkeyed node of one type with its defaults set.
type Constructor func() domain.Node

// Codec moves the variant fields of a node to and from a record. The reserved
// "type" and "children" fields are handled by the snapshot codec.
type Codec interface {
	Encode(n domain.Node, rec domain.Record) error
	Decode(rec domain.Record, n domain.Node) error
}

// Binding is what a type tag resolves to.
type Binding struct {
	Tag   string
	New   Constructor
	Codec Codec
}

// Registry maps type tags to bindings. Each editor owns one.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[string]Binding),
	}
}

// Register binds tag to a constructor and codec. A nil codec means the node
// type encodes itself through domain.FieldCodec.
//
// Registering the same constructor and codec again is a no-op. A different
// constructor or codec for a bound tag fails with DuplicateTypeError.
func (r *Registry) Register(tag string, ctor Constructor, codec Codec) error {
	if codec == nil {
		codec = RecordCodec{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bindings[tag]; ok {
		if sameFunc(existing.New, ctor) && sameCodec(existing.Codec, codec) {
			return nil
		}
		return &domain.DuplicateTypeError{Tag: tag}
	}
	r.bindings[tag] = Binding{Tag: tag, New: ctor, Codec: codec}
	return nil
}

// Resolve looks up the binding of tag.
// Returns UnknownTypeError if nothing is registered under it.
func (r *Registry) Resolve(tag string) (Binding, error) {
	r.mu.RLock()
	b, ok := r.bindings[tag]
	r.mu.RUnlock()

	if !ok {
		return Binding{}, &domain.UnknownTypeError{Tag: tag}
	}
	return b, nil
}

// Has reports whether tag is bound.
func (r *Registry) Has(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bindings[tag]
	return ok
}

// Tags returns the bound tags in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	tags := make([]string, 0, len(r.bindings))
	for t := range r.bindings {
		tags = append(tags, t)
	}
	r.mu.RUnlock()
	slices.Sort(tags)
	return tags
}

// Types is the read-only side of a Registry.
type Types interface {
	Resolve(tag string) (Binding, error)
	Has(tag string) bool
	Tags() []string
}

// ReadOnly returns a view of r that cannot bind new tags.
func ReadOnly(r *Registry) Types { return view{r: r} }

type view struct{ r *Registry }

func (v view) Resolve(tag string) (Binding, error) { return v.r.Resolve(tag) }
func (v view) Has(tag string) bool                 { return v.r.Has(tag) }
func (v view) Tags() []string                      { return v.r.Tags() }

// sameFunc compares constructors by code pointer. Two closures built from the
// same literal compare equal, which is what re-registration needs.
func sameFunc(a, b Constructor) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// sameCodec reports whether a and b are equal values of one comparable type.
func sameCodec(a, b Codec) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	return ta.Comparable() && a == b
}
