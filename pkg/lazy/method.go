package lazy

import (
	"fmt"
	"reflect"
)

// guessOrder lists the method names tried for a Guess cleanup, highest
// priority first.
var guessOrder = []string{"End", "Close", "Destroy"}

// Method describes how a cleanup action is found at drain time.
//
// The zero value is Guess.
type Method struct {
	name  string
	sync  func() error
	async func(done func(error))
}

// Guess tries the resolved member for End, Close and Destroy, in that order.
var Guess = Method{}

// Named locates the method called name on the resolved member.
func Named(name string) Method {
	return Method{name: name}
}

// Func uses fn itself as the cleanup action.
//
// Registered asynchronously, fn is called and its result is reported as the
// completion of the action.
func Func(fn func() error) Method {
	return Method{sync: fn}
}

// AsyncFunc uses fn itself as an asynchronous cleanup action. fn must call
// done exactly once. It can only be registered with Registrar.Async.
func AsyncFunc(fn func(done func(error))) Method {
	return Method{async: fn}
}

// IsGuess reports whether the method looks up a cleanup name.
func (m Method) IsGuess() bool {
	return m.name == "" && m.sync == nil && m.async == nil
}

// IsFunc reports whether the method carries its own callable.
func (m Method) IsFunc() bool {
	return m.sync != nil || m.async != nil
}

func (m Method) String() string {
	switch {
	case m.sync != nil:
		return "func"
	case m.async != nil:
		return "async func"
	case m.name != "":
		return m.name
	default:
		return "guess"
	}
}

// action is a resolved cleanup callable. Exactly one of sync and async is set.
type action struct {
	label string
	sync  func() error
	async func(done func(error))
}

// run invokes a synchronous action.
func (a action) run() error {
	return a.sync()
}

// dispatch invokes the action in asynchronous mode. Sync-shaped actions
// complete before dispatch returns.
func (a action) dispatch(done func(error)) {
	if a.async != nil {
		a.async(done)
		return
	}
	done(a.sync())
}

// resolveAction turns a cleanup descriptor into a callable.
//
// target is the resolved member value; ok is false when the member is not
// resolved. found is false when there is nothing to call, which is not an
// error. A guessed candidate whose signature cannot be called is passed over
// for the next name; only an explicitly named method reports ErrSignature.
func resolveAction(c Cleanup, target any, ok bool) (a action, found bool, err error) {
	m := c.Method

	if m.IsFunc() {
		if m.async != nil && !c.Async {
			return action{}, false, fmt.Errorf("%w: func(func(error)) registered as synchronous", ErrSignature)
		}
		return action{label: m.String(), sync: m.sync, async: m.async}, true, nil
	}

	if !ok || target == nil {
		return action{}, false, nil
	}

	rv := reflect.ValueOf(target)
	candidates := guessOrder
	if !m.IsGuess() {
		candidates = []string{m.name}
	}

	for _, name := range candidates {
		mv := rv.MethodByName(name)
		if !mv.IsValid() {
			continue
		}
		a, err := bindMethod(name, mv, c.Async)
		if err != nil {
			if m.IsGuess() {
				// A guessed name with another shape is not a teardown method.
				continue
			}
			return action{}, false, fmt.Errorf("%T.%s: %w", target, name, err)
		}
		return a, true, nil
	}

	return action{}, false, nil
}

// bindMethod adapts a method value to an action.
func bindMethod(name string, mv reflect.Value, async bool) (action, error) {
	switch fn := mv.Interface().(type) {
	case func():
		return action{label: name, sync: func() error {
			fn()
			return nil
		}}, nil
	case func() error:
		return action{label: name, sync: fn}, nil
	case func(func(error)):
		if !async {
			return action{}, fmt.Errorf("%w: %s", ErrSignature, mv.Type())
		}
		return action{label: name, async: fn}, nil
	default:
		return action{}, fmt.Errorf("%w: %s", ErrSignature, mv.Type())
	}
}
