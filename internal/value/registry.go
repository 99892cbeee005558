package value

import "sync"

// Factory builds the empty shell of a revived object of some class.
type Factory func(class string) *Object

// Registry decides which object classes survive revival. Objects whose class
// is not registered come back as plain "Object" unless the registry is
// permissive, in which case the class tag is kept as is.
type Registry struct {
	mu         sync.RWMutex
	factories  map[string]Factory
	permissive bool
}

// NewRegistry returns a strict registry that knows the built-in classes.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	for _, class := range []string{"Object", "Array", "Error", "TypeError", "RangeError", "Date", "Map", "Set", "RegExp"} {
		r.Register(class, nil)
	}
	return r
}

// PermissiveRegistry returns a registry that keeps every class tag. It is
// meant for display, where a faithful class name matters more than behaviour.
func PermissiveRegistry() *Registry {
	r := NewRegistry()
	r.permissive = true
	return r
}

// Register makes class revivable. A nil factory produces a plain object
// carrying the class tag.
func (r *Registry) Register(class string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[class] = f
}

// Known reports whether class has been registered.
func (r *Registry) Known(class string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[class]
	return ok
}

func (r *Registry) shell(class string) *Object {
	r.mu.RLock()
	f, ok := r.factories[class]
	permissive := r.permissive
	r.mu.RUnlock()

	switch {
	case ok && f != nil:
		o := f(class)
		o.Shape = KindObject
		if o.Class == "" {
			o.Class = class
		}
		return o
	case ok, permissive:
		return NewObject(class)
	default:
		return NewObject("Object")
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry is the shared strict registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
