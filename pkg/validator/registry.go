package validator

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/githubnext/ocsfc/pkg/logger"
)

var registryLog = logger.New("validator:registry")

// Registry holds a compiled validator set: every object by name and every
// event by name and class uid. Lazy references resolve through it.
type Registry struct {
	mu         sync.RWMutex
	version    string
	objects    map[string]*Object
	events     map[string]*Event
	byClassUID map[int64]*Event
}

// NewRegistry returns an empty registry for the given corpus version.
func NewRegistry(version string) *Registry {
	return &Registry{
		version:    version,
		objects:    make(map[string]*Object),
		events:     make(map[string]*Event),
		byClassUID: make(map[int64]*Event),
	}
}

// Version returns the corpus version the set was compiled from.
func (r *Registry) Version() string {
	return r.version
}

// Register adds o under its name and returns it. Registering a second object
// with the same name panics; compiled sets never do.
func (r *Registry) Register(o *Object) *Object {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.objects[o.Name()]; exists {
		panic(fmt.Sprintf("validator: object %q registered twice", o.Name()))
	}
	r.objects[o.Name()] = o
	return o
}

// RegisterEvent adds e under its name and class uid and returns it.
func (r *Registry) RegisterEvent(e *Event) *Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[e.Name()]; exists {
		panic(fmt.Sprintf("validator: event %q registered twice", e.Name()))
	}
	r.events[e.Name()] = e
	r.byClassUID[e.ClassUID()] = e
	return e
}

// Object returns the object registered as name.
func (r *Registry) Object(name string) (*Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.objects[name]
	return o, ok
}

// Event returns the event registered as name.
func (r *Registry) Event(name string) (*Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[name]
	return e, ok
}

// EventByClassUID returns the event whose compiled class uid is uid.
func (r *Registry) EventByClassUID(uid int64) (*Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byClassUID[uid]
	return e, ok
}

// ObjectNames returns the registered object names sorted.
func (r *Registry) ObjectNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.objects))
}

// EventNames returns the registered event names sorted.
func (r *Registry) EventNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.events))
}

// Lazy returns a validator for the object registered as name that looks the
// object up on first use. The name need not be registered yet.
func (r *Registry) Lazy(name string) Validator {
	return Lazy(Defer(func() *Object {
		o, ok := r.Object(name)
		if !ok {
			registryLog.Printf("Lazy reference to unregistered object %q", name)
			return nil
		}
		return o
	}))
}
