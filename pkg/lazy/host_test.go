package lazy

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostGet(t *testing.T) {
	t.Run("UnknownMember", func(t *testing.T) {
		h := NewHost()

		_, err := h.Get("missing")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMemberNotFound)
		assert.Contains(t, err.Error(), `"missing"`)
	})

	t.Run("PlainValue", func(t *testing.T) {
		h := NewHost()
		h.Set("port", 8080)

		v, err := h.Get("port")

		require.NoError(t, err)
		assert.Equal(t, 8080, v)
		assert.Equal(t, StateResolved, h.State("port"))
	})

	t.Run("InitializesOnce", func(t *testing.T) {
		h := NewHost()
		calls := 0
		On(h).Declare("counter", func(*Host, Registrar, Options) (any, error) {
			calls++
			return calls, nil
		})

		first, err := h.Get("counter")
		require.NoError(t, err)
		second, err := h.Get("counter")
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
		assert.Equal(t, 1, first)
		assert.Equal(t, 1, second)
	})

	t.Run("ConcurrentFirstReads", func(t *testing.T) {
		h := NewHost()
		var calls atomic.Int32
		release := make(chan struct{})
		On(h).Declare("slow", func(*Host, Registrar, Options) (any, error) {
			calls.Add(1)
			<-release
			return "ready", nil
		})

		var wg sync.WaitGroup
		results := make([]any, 16)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := h.Get("slow")
				assert.NoError(t, err)
				results[i] = v
			}(i)
		}
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for _, v := range results {
			assert.Equal(t, "ready", v)
		}
	})
}

func TestHostFailedInitializer(t *testing.T) {
	h := NewHost()
	boom := errors.New("boom")
	calls := 0
	On(h).Declare("broken", func(*Host, Registrar, Options) (any, error) {
		calls++
		return nil, boom
	})

	_, err := h.Get("broken")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "broken", initErr.Member)

	_, err = h.Get("broken")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "failed initializers are not retried")
	assert.Equal(t, StateFailed, h.State("broken"))

	_, ok := h.Peek("broken")
	assert.False(t, ok)

	h.Set("broken", "recovered")
	v, err := h.Get("broken")
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
}

func TestHostPanickingInitializer(t *testing.T) {
	h := NewHost()
	On(h).Declare("panics", func(*Host, Registrar, Options) (any, error) {
		panic("kaboom")
	})

	assert.PanicsWithValue(t, "kaboom", func() {
		_, _ = h.Get("panics")
	})

	assert.Equal(t, StateFailed, h.State("panics"))
	_, err := h.Get("panics")
	assert.ErrorIs(t, err, ErrInitPanic)
}

func TestHostSet(t *testing.T) {
	t.Run("DischargesPendingMember", func(t *testing.T) {
		h := NewHost()
		called := false
		On(h).Declare("db", func(*Host, Registrar, Options) (any, error) {
			called = true
			return "real", nil
		})

		h.Set("db", "stub")
		v, err := h.Get("db")

		require.NoError(t, err)
		assert.Equal(t, "stub", v)
		assert.False(t, called)
	})

	t.Run("OverwritesResolvedMember", func(t *testing.T) {
		h := NewHost()
		On(h).Declare("n", func(*Host, Registrar, Options) (any, error) {
			return 1, nil
		})
		_, err := h.Get("n")
		require.NoError(t, err)

		h.Set("n", 2)

		v, err := h.Get("n")
		require.NoError(t, err)
		assert.Equal(t, 2, v)
	})
}

func TestHostIntrospection(t *testing.T) {
	h := NewHost()
	bind := On(h)
	bind.Declare("a", func(*Host, Registrar, Options) (any, error) { return "A", nil })
	h.Set("b", "B")
	bind.Declare("c", func(*Host, Registrar, Options) (any, error) { return "C", nil })

	assert.Equal(t, []string{"a", "b", "c"}, h.Names())
	assert.True(t, h.Has("a"))
	assert.False(t, h.Has("z"))
	assert.Equal(t, StatePending, h.State("a"))
	assert.Equal(t, StateAbsent, h.State("z"))
	assert.False(t, h.Resolved("a"))
	assert.True(t, h.Resolved("b"))

	_, ok := h.Peek("a")
	assert.False(t, ok, "peek must not initialize")
	assert.Equal(t, StatePending, h.State("a"))

	_, err := h.Get("a")
	require.NoError(t, err)
	v, ok := h.Peek("a")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	bind.Declare("a", func(*Host, Registrar, Options) (any, error) { return "A2", nil })
	assert.Equal(t, []string{"a", "b", "c"}, h.Names(), "redeclaring keeps position")
	assert.Equal(t, StatePending, h.State("a"))
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateAbsent, "absent"},
		{StatePending, "pending"},
		{StateResolved, "resolved"},
		{StateFailed, "failed"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestGenericGet(t *testing.T) {
	h := NewHost()
	h.Set("name", "lazyhost")
	h.Set("nothing", nil)

	s, err := Get[string](h, "name")
	require.NoError(t, err)
	assert.Equal(t, "lazyhost", s)

	_, err = Get[int](h, "name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds string")

	ptr, err := Get[*Host](h, "nothing")
	require.NoError(t, err)
	assert.Nil(t, ptr)

	_, err = Get[string](h, "missing")
	assert.ErrorIs(t, err, ErrMemberNotFound)

	assert.Equal(t, "lazyhost", MustGet[string](h, "name"))
	assert.Panics(t, func() { MustGet[string](h, "missing") })
}
