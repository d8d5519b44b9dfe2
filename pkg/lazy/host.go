package lazy

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of a host member.
type State int

const (
	// StateAbsent means the name is unknown to the host.
	StateAbsent State = iota

	// StatePending means the member is declared and its initializer has not run.
	StatePending

	// StateResolved means the member holds a plain value.
	StateResolved

	// StateFailed means the initializer returned an error or panicked.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// cell holds one member. once guards the pending -> resolved transition;
// every other field is guarded by the owning Host's mutex.
type cell struct {
	once  sync.Once
	init  func() (any, error)
	state State
	value any
	err   error
}

// Host is a named set of members, each either pending or resolved.
//
// A Host is safe for concurrent use. Members are resolved at most once even
// when several goroutines read a pending member at the same time; the host
// lock is not held while an initializer runs, so initializers may read other
// members of the same host.
type Host struct {
	mu    sync.RWMutex
	cells map[string]*cell
	order []string
}

// NewHost creates an empty host.
func NewHost() *Host {
	return &Host{
		cells: make(map[string]*cell),
	}
}

// Get returns the value of a member, running its initializer on first read.
//
// Reading a member from within its own initializer never returns.
func (h *Host) Get(name string) (any, error) {
	h.mu.RLock()
	c, ok := h.cells[name]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMemberNotFound, name)
	}

	c.once.Do(func() { h.resolve(c) })

	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.value, c.err
}

// resolve runs the pending initializer of c and stores the outcome.
func (h *Host) resolve(c *cell) {
	h.mu.RLock()
	init := c.init
	h.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			h.mu.Lock()
			c.init = nil
			c.state = StateFailed
			c.err = fmt.Errorf("%w: %v", ErrInitPanic, r)
			h.mu.Unlock()
			panic(r)
		}
	}()

	value, err := init()

	h.mu.Lock()
	defer h.mu.Unlock()
	c.init = nil
	if err != nil {
		c.state = StateFailed
		c.err = err
		return
	}
	c.state = StateResolved
	c.value = value
}

// Set stores a plain value under name.
//
// Setting a pending member discharges it: its initializer never runs. Setting
// an unknown name adds a plain member. Like reading it, setting a member from
// within its own initializer never returns.
func (h *Host) Set(name string, value any) {
	h.mu.Lock()
	c, ok := h.cells[name]
	if !ok {
		h.put(name, resolvedCell(value))
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	discharged := false
	c.once.Do(func() {
		h.mu.Lock()
		c.init = nil
		c.state = StateResolved
		c.value = value
		h.mu.Unlock()
		discharged = true
	})
	if discharged {
		return
	}

	h.mu.Lock()
	c.state = StateResolved
	c.value = value
	c.err = nil
	h.mu.Unlock()
}

// Peek returns the value of a resolved member without triggering any
// initializer. ok is false for pending, failed and unknown members.
func (h *Host) Peek(name string) (value any, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, found := h.cells[name]
	if !found || c.state != StateResolved {
		return nil, false
	}
	return c.value, true
}

// State reports the lifecycle state of a member.
func (h *Host) State(name string) State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.cells[name]
	if !ok {
		return StateAbsent
	}
	return c.state
}

// Resolved reports whether the member holds a value.
func (h *Host) Resolved(name string) bool {
	return h.State(name) == StateResolved
}

// Has reports whether the host knows the name, in any state.
func (h *Host) Has(name string) bool {
	return h.State(name) != StateAbsent
}

// Names returns member names in the order they were first added.
func (h *Host) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, len(h.order))
	copy(names, h.order)
	return names
}

// declare installs a pending cell under name, replacing any previous member.
func (h *Host) declare(name string, init func() (any, error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.put(name, &cell{init: init, state: StatePending})
}

// put stores c under name. Caller must hold h.mu.
func (h *Host) put(name string, c *cell) {
	if _, exists := h.cells[name]; !exists {
		h.order = append(h.order, name)
	}
	h.cells[name] = c
}

func resolvedCell(value any) *cell {
	c := &cell{state: StateResolved, value: value}
	c.once.Do(func() {})
	return c
}

// Get reads a member and asserts its type.
func Get[T any](h *Host, name string) (T, error) {
	var zero T
	v, err := h.Get(name)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("member %q holds %T, not %T", name, v, zero)
	}
	return typed, nil
}

// MustGet is like Get but panics on error. It suits initializers reading
// siblings that are known to be declared.
func MustGet[T any](h *Host, name string) T {
	v, err := Get[T](h, name)
	if err != nil {
		panic(err)
	}
	return v
}
