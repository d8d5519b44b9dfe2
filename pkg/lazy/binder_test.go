package lazy

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareReceivesHost(t *testing.T) {
	h := NewHost()
	bind := On(h)
	var seen *Host
	bind.Declare("self", func(host *Host, _ Registrar, _ Options) (any, error) {
		seen = host
		return nil, nil
	})

	_, err := h.Get("self")
	require.NoError(t, err)

	assert.Same(t, h, seen)
	assert.Same(t, h, bind.Host())
}

func TestDeclareCrossReference(t *testing.T) {
	h := NewHost()
	bind := On(h)
	var trace strings.Builder
	configCalls := 0

	bind.Declare("config", func(*Host, Registrar, Options) (any, error) {
		configCalls++
		trace.WriteString("config;")
		return "cfg", nil
	})
	bind.Declare("test", func(host *Host, _ Registrar, _ Options) (any, error) {
		cfg, err := Get[string](host, "config")
		if err != nil {
			return nil, err
		}
		trace.WriteString("test;")
		return cfg + "+test", nil
	})

	first, err := h.Get("test")
	require.NoError(t, err)
	second, err := h.Get("test")
	require.NoError(t, err)

	assert.Equal(t, "config;test;", trace.String())
	assert.Equal(t, 1, configCalls)
	assert.Equal(t, "cfg+test", first)
	assert.Equal(t, first, second)
	assert.True(t, h.Resolved("config"))
}

func TestDeclareSiblingFailurePropagates(t *testing.T) {
	h := NewHost()
	bind := On(h)
	bind.Declare("dep", func(*Host, Registrar, Options) (any, error) {
		return nil, assert.AnError
	})
	bind.Declare("top", func(host *Host, _ Registrar, _ Options) (any, error) {
		return host.Get("dep")
	})

	_, err := h.Get("top")

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "top", initErr.Member)
	assert.Equal(t, StateFailed, h.State("dep"))
	assert.Equal(t, StateFailed, h.State("top"))
}

func TestDeclareOptions(t *testing.T) {
	t.Run("ExactValue", func(t *testing.T) {
		h := NewHost()
		declared := Options{"path": "/tmp/kv"}
		var got Options
		On(h).Declare("kv", func(_ *Host, _ Registrar, opts Options) (any, error) {
			got = opts
			return nil, nil
		}, declared)

		_, err := h.Get("kv")
		require.NoError(t, err)

		assert.Equal(t, reflect.ValueOf(declared).Pointer(), reflect.ValueOf(got).Pointer())
	})

	t.Run("EmptyWhenOmitted", func(t *testing.T) {
		h := NewHost()
		var got Options
		On(h).Declare("kv", func(_ *Host, _ Registrar, opts Options) (any, error) {
			got = opts
			return nil, nil
		})

		_, err := h.Get("kv")
		require.NoError(t, err)

		require.NotNil(t, got)
		assert.Len(t, got, 0)
	})

	t.Run("NilBecomesEmpty", func(t *testing.T) {
		h := NewHost()
		var got Options
		On(h).Declare("kv", func(_ *Host, _ Registrar, opts Options) (any, error) {
			got = opts
			return nil, nil
		}, nil)

		_, err := h.Get("kv")
		require.NoError(t, err)

		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("Merged", func(t *testing.T) {
		h := NewHost()
		var got Options
		On(h).Declare("kv", func(_ *Host, _ Registrar, opts Options) (any, error) {
			got = opts
			return nil, nil
		}, Options{"a": 1, "b": 1}, Options{"b": 2})

		_, err := h.Get("kv")
		require.NoError(t, err)

		assert.Equal(t, Options{"a": 1, "b": 2}, got)
	})
}

func TestOptionsDecode(t *testing.T) {
	type settings struct {
		Path     string        `mapstructure:"path"`
		InMemory bool          `mapstructure:"in_memory"`
		Timeout  time.Duration `mapstructure:"timeout"`
		Port     int           `mapstructure:"port"`
	}

	opts := Options{
		"path":      "/var/lib/kv",
		"in_memory": "true",
		"timeout":   "30s",
		"port":      8080.0,
	}

	var s settings
	require.NoError(t, opts.Decode(&s))

	assert.Equal(t, "/var/lib/kv", s.Path)
	assert.True(t, s.InMemory)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, 8080, s.Port)

	err := Options{"port": "not-a-number"}.Decode(&s)
	assert.Error(t, err)
}

func TestDeclareReplacesPreviousDeclaration(t *testing.T) {
	h := NewHost()
	bind := On(h)
	bind.Declare("db", func(*Host, Registrar, Options) (any, error) {
		t.Fatal("replaced initializer must not run")
		return nil, nil
	})
	bind.Declare("db", func(*Host, Registrar, Options) (any, error) {
		return "second", nil
	})

	v, err := h.Get("db")
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestRegistrar(t *testing.T) {
	t.Run("DefaultsToMemberName", func(t *testing.T) {
		h := NewHost()
		bind := On(h)
		bind.Declare("db", func(_ *Host, reg Registrar, _ Options) (any, error) {
			assert.Equal(t, "db", reg.Member())
			reg.Register("", Guess)
			return nil, nil
		})

		_, err := h.Get("db")
		require.NoError(t, err)

		c, ok := bind.Registry().Lookup("db")
		require.True(t, ok)
		assert.True(t, c.Method.IsGuess())
		assert.False(t, c.Async)
	})

	t.Run("MultipleNames", func(t *testing.T) {
		h := NewHost()
		bind := On(h)
		bind.Declare("pool", func(_ *Host, reg Registrar, _ Options) (any, error) {
			reg.Register("pool", Named("Close"))
			reg.Async("conns", Guess)
			return nil, nil
		})

		_, err := h.Get("pool")
		require.NoError(t, err)

		assert.Equal(t, []string{"pool", "conns"}, bind.Registry().Names())
		c, ok := bind.Registry().Lookup("conns")
		require.True(t, ok)
		assert.True(t, c.Async)
	})

	t.Run("OverwriteKeepsPosition", func(t *testing.T) {
		h := NewHost()
		bind := On(h)
		bind.Declare("a", func(_ *Host, reg Registrar, _ Options) (any, error) {
			reg.Register("first", Guess)
			reg.Register("second", Guess)
			reg.Async("first", Named("Shutdown"))
			return nil, nil
		})

		_, err := h.Get("a")
		require.NoError(t, err)

		assert.Equal(t, []string{"first", "second"}, bind.Registry().Names())
		assert.Equal(t, 2, bind.Registry().Len())
		c, _ := bind.Registry().Lookup("first")
		assert.True(t, c.Async)
		assert.Equal(t, "Shutdown", c.Method.String())
	})

	t.Run("ZeroValueIsNoop", func(t *testing.T) {
		var reg Registrar
		assert.NotPanics(t, func() {
			reg.Register("x", Guess)
			reg.Async("x", Guess)
		})
	})

	t.Run("RegistriesArePerBinder", func(t *testing.T) {
		h := NewHost()
		one := On(h)
		two := On(h)
		one.Declare("a", func(_ *Host, reg Registrar, _ Options) (any, error) {
			reg.Register("", Guess)
			return nil, nil
		})

		_, err := h.Get("a")
		require.NoError(t, err)

		assert.Equal(t, 1, one.Registry().Len())
		assert.Equal(t, 0, two.Registry().Len())
	})
}

type recordingMetrics struct {
	inits     []string
	initErrs  int
	cleanups  []string
	skipped   []string
	maxActive int
}

func (m *recordingMetrics) ObserveInit(member string, _ time.Duration, err error) {
	m.inits = append(m.inits, member)
	if err != nil {
		m.initErrs++
	}
}

func (m *recordingMetrics) ObserveCleanup(name string, async bool, _ time.Duration, _ error) {
	if async {
		name += "(async)"
	}
	m.cleanups = append(m.cleanups, name)
}

func (m *recordingMetrics) RecordCleanupSkipped(name string) {
	m.skipped = append(m.skipped, name)
}

func (m *recordingMetrics) RecordOutstanding(count int) {
	if count > m.maxActive {
		m.maxActive = count
	}
}

func TestBinderMetrics(t *testing.T) {
	h := NewHost()
	m := &recordingMetrics{}
	bind := On(h, WithMetrics(m), WithName("test"))

	bind.Declare("ok", func(_ *Host, reg Registrar, _ Options) (any, error) {
		reg.Register("", Func(func() error { return nil }))
		reg.Async("later", Func(func() error { return nil }))
		return &closer{}, nil
	})
	bind.Declare("bad", func(*Host, Registrar, Options) (any, error) {
		return nil, assert.AnError
	})
	bind.Declare("unread", func(_ *Host, reg Registrar, _ Options) (any, error) {
		return nil, nil
	})

	_, err := h.Get("ok")
	require.NoError(t, err)
	_, err = h.Get("bad")
	require.Error(t, err)

	bind.Registry().set("unread", Cleanup{Method: Guess})

	require.NoError(t, bind.Drain())

	assert.Equal(t, []string{"ok", "bad"}, m.inits)
	assert.Equal(t, 1, m.initErrs)
	assert.Equal(t, []string{"ok", "later(async)"}, m.cleanups)
	assert.Equal(t, []string{"unread"}, m.skipped)
	assert.Equal(t, 1, m.maxActive)
}
