package lazy

import "sync"

// Cleanup describes how one registry entry is torn down.
type Cleanup struct {
	// Method locates the cleanup action.
	Method Method

	// Async marks the action as completing through a callback.
	Async bool
}

// Registry is the insertion-ordered set of cleanup descriptors of a Binder.
//
// Overwriting an existing name replaces its descriptor and keeps the name's
// original position. The registry is never cleared by a drain.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]Cleanup
}

type registryEntry struct {
	name    string
	cleanup Cleanup
}

func newRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Cleanup),
	}
}

func (r *Registry) set(name string, c Cleanup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = c
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Cleanup, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[name]
	return c, ok
}

// Names returns the registered cleanup names in drain order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered cleanups.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// snapshot copies the entries in drain order so cleanups may register
// further entries without deadlocking the walk.
func (r *Registry) snapshot() []registryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]registryEntry, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, registryEntry{name: name, cleanup: r.entries[name]})
	}
	return out
}

// Registrar is the registration handle passed to an initializer. It records
// cleanup descriptors in the binder's registry on behalf of one member.
type Registrar struct {
	member   string
	registry *Registry
}

// Member returns the name of the member being initialized.
func (r Registrar) Member() string {
	return r.member
}

// Register records a synchronous cleanup under name, or under the member's
// own name when name is empty. The zero Method guesses the cleanup method.
func (r Registrar) Register(name string, method Method) {
	r.add(name, method, false)
}

// Async records an asynchronous cleanup. Arguments are as for Register.
func (r Registrar) Async(name string, method Method) {
	r.add(name, method, true)
}

func (r Registrar) add(name string, method Method, async bool) {
	if r.registry == nil {
		return
	}
	if name == "" {
		name = r.member
	}
	r.registry.set(name, Cleanup{Method: method, Async: async})
}
