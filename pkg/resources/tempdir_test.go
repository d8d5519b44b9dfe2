package resources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/lazyhost/pkg/config"
	"github.com/marmos91/lazyhost/pkg/lazy"
)

func TestTempDirMember(t *testing.T) {
	t.Run("PatternAndJoin", func(t *testing.T) {
		parent := filepath.Join(t.TempDir(), "nested")
		host, b := newBinder()
		declare(t, b, config.MemberConfig{
			Name:    "scratch",
			Kind:    "tempdir",
			Options: map[string]any{"dir": parent, "pattern": "job-*"},
		})

		dir := lazy.MustGet[*TempDir](host, "scratch")
		assert.Equal(t, parent, filepath.Dir(dir.Path()))
		assert.True(t, strings.HasPrefix(filepath.Base(dir.Path()), "job-"))
		assert.Equal(t, filepath.Join(dir.Path(), "a", "b.txt"), dir.Join("a", "b.txt"))

		require.NoError(t, os.WriteFile(dir.Join("b.txt"), []byte("x"), 0o600))
		require.NoError(t, b.Drain())
		assert.NoDirExists(t, dir.Path())
		assert.NoError(t, dir.Destroy(), "second destroy is a no-op")
	})

	t.Run("DefaultPattern", func(t *testing.T) {
		host, b := newBinder()
		declare(t, b, config.MemberConfig{Name: "scratch", Kind: "tempdir", Options: map[string]any{"dir": t.TempDir()}})

		dir := lazy.MustGet[*TempDir](host, "scratch")
		assert.True(t, strings.HasPrefix(filepath.Base(dir.Path()), "lazyhost-"))
		require.NoError(t, b.Drain())
	})

	t.Run("Keep", func(t *testing.T) {
		host, b := newBinder()
		declare(t, b, config.MemberConfig{
			Name:    "scratch",
			Kind:    "tempdir",
			Options: map[string]any{"dir": t.TempDir(), "keep": true},
		})

		dir := lazy.MustGet[*TempDir](host, "scratch")
		require.NoError(t, b.Drain())
		assert.DirExists(t, dir.Path())
	})
}
