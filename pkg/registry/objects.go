package registry

import "fmt"

// Handle addresses one object in an ObjectRegistry. Handles stay valid
// until Reset.
type Handle int

// ObjectRegistry stores components in an arena addressed by Handle, with a
// name index on top.
type ObjectRegistry struct {
	arena  []any
	names  []string
	byName map[string]Handle
}

// NewObjectRegistry returns an empty registry.
func NewObjectRegistry() *ObjectRegistry {
	return &ObjectRegistry{byName: make(map[string]Handle)}
}

// Add stores obj under name.
func (r *ObjectRegistry) Add(name string, obj any) (Handle, error) {
	if _, ok := r.byName[name]; ok {
		return NoHandle, &DuplicateNameError{Name: name, What: "object"}
	}
	h := Handle(len(r.arena))
	r.arena = append(r.arena, obj)
	r.names = append(r.names, name)
	r.byName[name] = h
	return h, nil
}

// Get returns the object at h, or nil.
func (r *ObjectRegistry) Get(h Handle) any {
	if h < 0 || int(h) >= len(r.arena) {
		return nil
	}
	return r.arena[h]
}

// Handle returns the handle registered for name.
func (r *ObjectRegistry) Handle(name string) (Handle, bool) {
	h, ok := r.byName[name]
	return h, ok
}

// Lookup returns the object registered under name.
func (r *ObjectRegistry) Lookup(name string) (any, bool) {
	h, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.arena[h], true
}

// Names returns registered names in registration order.
func (r *ObjectRegistry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered objects.
func (r *ObjectRegistry) Len() int { return len(r.arena) }

// Reset drops every object.
func (r *ObjectRegistry) Reset() {
	r.arena = nil
	r.names = nil
	r.byName = make(map[string]Handle)
}

// GetAs returns the object registered under name narrowed to T. It fails
// with NotFoundError for unknown names and CapabilityError when the object
// does not implement T.
func GetAs[T any](r *ObjectRegistry, name string) (T, error) {
	var zero T
	obj, ok := r.Lookup(name)
	if !ok {
		return zero, &NotFoundError{Name: name, What: "object"}
	}
	t, ok := obj.(T)
	if !ok {
		return zero, &CapabilityError{
			Name: name,
			Want: fmt.Sprintf("%T", (*T)(nil))[1:],
			Got:  fmt.Sprintf("%T", obj),
		}
	}
	return t, nil
}

// LookupAs is GetAs without the error detail.
func LookupAs[T any](r *ObjectRegistry, name string) (T, bool) {
	t, err := GetAs[T](r, name)
	return t, err == nil
}

// MustGetAs is like GetAs but panics on error.
func MustGetAs[T any](r *ObjectRegistry, name string) T {
	t, err := GetAs[T](r, name)
	if err != nil {
		panic(err)
	}
	return t
}
