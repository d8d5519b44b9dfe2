package runtime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/lazyhost/pkg/config"
	"github.com/marmos91/lazyhost/pkg/lazy"
	"github.com/marmos91/lazyhost/pkg/resources"
)

func testConfig(members ...config.MemberConfig) *config.Config {
	cfg := &config.Config{Host: "test", Members: members}
	config.ApplyDefaults(cfg)
	return cfg
}

func scratch(name string, warm bool) config.MemberConfig {
	return config.MemberConfig{Name: name, Kind: "tempdir", Warm: warm}
}

func TestNew(t *testing.T) {
	t.Run("NilConfig", func(t *testing.T) {
		_, err := New(context.Background(), nil)
		require.Error(t, err)
	})

	t.Run("UnknownKind", func(t *testing.T) {
		_, err := New(context.Background(), testConfig(config.MemberConfig{Name: "cache", Kind: "redis"}))
		require.ErrorIs(t, err, resources.ErrUnknownKind)
	})

	t.Run("DeclaresWithoutOpening", func(t *testing.T) {
		r, err := New(context.Background(), testConfig(
			scratch("scratch", false),
			config.MemberConfig{Name: "kv", Kind: "badger", Warm: true, Options: map[string]any{"in_memory": true}},
		))
		require.NoError(t, err)

		assert.NotEmpty(t, r.RunID())
		assert.Equal(t, []string{"scratch", "kv"}, r.Host().Names())
		assert.Equal(t, 0, r.Binder().Registry().Len())

		members := r.Members()
		require.Len(t, members, 2)
		assert.Equal(t, MemberInfo{Name: "scratch", Kind: "tempdir", State: "pending", Cleanup: "guess"}, members[0])
		assert.Equal(t, MemberInfo{Name: "kv", Kind: "badger", State: "pending", Warm: true, Cleanup: "guess"}, members[1])
	})
}

func TestMembersCleanupLabel(t *testing.T) {
	r, err := New(context.Background(), testConfig(
		config.MemberConfig{Name: "web", Kind: "http"},
		config.MemberConfig{Name: "tmp", Kind: "tempdir", Cleanup: config.CleanupConfig{Method: "none"}},
	))
	require.NoError(t, err)

	members := r.Members()
	assert.Equal(t, "async Shutdown", members[0].Cleanup)
	assert.Equal(t, "none", members[1].Cleanup)
}

func TestWarm(t *testing.T) {
	r, err := New(context.Background(), testConfig(
		scratch("cold", false),
		scratch("hot", true),
	))
	require.NoError(t, err)

	require.NoError(t, r.Warm(context.Background()))
	assert.Equal(t, lazy.StatePending, r.Host().State("cold"))
	assert.Equal(t, lazy.StateResolved, r.Host().State("hot"))
	assert.Equal(t, []string{"hot"}, r.Binder().Registry().Names())

	require.NoError(t, r.Shutdown())
}

func TestWarmFailureStopsEarly(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	r, err := New(context.Background(), testConfig(
		scratch("first", true),
		config.MemberConfig{Name: "broken", Kind: "tempdir", Warm: true, Options: map[string]any{"dir": blocker}},
		scratch("never", true),
	))
	require.NoError(t, err)

	err = r.Warm(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `warm "broken"`)
	assert.Equal(t, lazy.StateFailed, r.Host().State("broken"))
	assert.Equal(t, lazy.StatePending, r.Host().State("never"))
}

func TestServe(t *testing.T) {
	r, err := New(context.Background(), testConfig(scratch("scratch", true)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()

	require.Eventually(t, func() bool {
		return r.Host().Resolved("scratch")
	}, 5*time.Second, 10*time.Millisecond)

	dir, err := lazy.Get[*resources.TempDir](r.Host(), "scratch")
	require.NoError(t, err)
	assert.DirExists(t, dir.Path())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.NoDirExists(t, dir.Path())

	assert.NoError(t, r.Serve(context.Background()), "Serve runs once")
	assert.NoError(t, r.Shutdown(), "drain already happened")
}

func TestServeWarmFailureDrains(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	r, err := New(context.Background(), testConfig(
		scratch("first", true),
		config.MemberConfig{Name: "broken", Kind: "tempdir", Warm: true, Options: map[string]any{"dir": blocker}},
	))
	require.NoError(t, err)

	err = r.Serve(context.Background())
	require.Error(t, err)

	first, err := lazy.Get[*resources.TempDir](r.Host(), "first")
	require.NoError(t, err)
	assert.NoDirExists(t, first.Path(), "warmed members are drained after a failed start")
}

func TestShutdown(t *testing.T) {
	t.Run("SyncErrorStopsDrain", func(t *testing.T) {
		r, err := New(context.Background(), testConfig())
		require.NoError(t, err)

		ran := false
		r.Binder().Declare("failing", func(_ *lazy.Host, reg lazy.Registrar, _ lazy.Options) (any, error) {
			reg.Register("failing", lazy.Func(func() error { return errors.New("boom") }))
			reg.Register("after", lazy.Func(func() error { ran = true; return nil }))
			return struct{}{}, nil
		})
		_, err = r.Host().Get("failing")
		require.NoError(t, err)

		err = r.Shutdown()
		var cleanupErr *lazy.CleanupError
		require.ErrorAs(t, err, &cleanupErr)
		assert.Equal(t, "failing", cleanupErr.Name)
		assert.False(t, ran)

		assert.Same(t, err, r.Shutdown(), "later calls return the first outcome")
	})

	t.Run("AsyncError", func(t *testing.T) {
		r, err := New(context.Background(), testConfig())
		require.NoError(t, err)

		r.Binder().Declare("flush", func(_ *lazy.Host, reg lazy.Registrar, _ lazy.Options) (any, error) {
			reg.Async("flush", lazy.AsyncFunc(func(done func(error)) {
				go done(errors.New("flush failed"))
			}))
			return struct{}{}, nil
		})
		_, err = r.Host().Get("flush")
		require.NoError(t, err)

		err = r.Shutdown()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "flush failed")
	})

	t.Run("Timeout", func(t *testing.T) {
		cfg := testConfig()
		cfg.ShutdownTimeout = 50 * time.Millisecond
		r, err := New(context.Background(), cfg)
		require.NoError(t, err)

		r.Binder().Declare("stuck", func(_ *lazy.Host, reg lazy.Registrar, _ lazy.Options) (any, error) {
			reg.Async("stuck", lazy.AsyncFunc(func(func(error)) {}))
			return struct{}{}, nil
		})
		_, err = r.Host().Get("stuck")
		require.NoError(t, err)

		require.ErrorIs(t, r.Shutdown(), ErrShutdownTimeout)
	})
}
