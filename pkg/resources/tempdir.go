package resources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/marmos91/lazyhost/internal/logger"
)

func init() {
	Register(Kind{
		Name:        "tempdir",
		Description: "Scratch directory created on first read and removed by Destroy",
		Open:        openTempDir,
	})
}

// TempDirOptions configures a tempdir member.
type TempDirOptions struct {
	// Dir is the parent directory. Empty uses os.TempDir().
	Dir string `mapstructure:"dir"`

	// Pattern is passed to os.MkdirTemp.
	// Default: "lazyhost-*"
	Pattern string `mapstructure:"pattern"`

	// Keep leaves the directory in place on Destroy.
	Keep bool `mapstructure:"keep"`
}

// TempDir is a scratch directory owned by one member.
type TempDir struct {
	path string
	keep bool

	mu        sync.Mutex
	destroyed bool
}

func openTempDir(_ context.Context, env Env) (any, error) {
	var opts TempDirOptions
	if err := decodeOptions(env, &opts); err != nil {
		return nil, err
	}
	if opts.Pattern == "" {
		opts.Pattern = "lazyhost-*"
	}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create parent directory: %w", err)
		}
	}

	path, err := os.MkdirTemp(opts.Dir, opts.Pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	logger.Debug("Temp dir created", logger.KeyMember, env.Member, logger.KeyPath, path)
	return &TempDir{path: path, keep: opts.Keep}, nil
}

// Path returns the directory path.
func (d *TempDir) Path() string {
	return d.path
}

// Join returns a path inside the directory.
func (d *TempDir) Join(elem ...string) string {
	return filepath.Join(append([]string{d.path}, elem...)...)
}

// Ping fails once the directory is gone.
func (d *TempDir) Ping(context.Context) error {
	info, err := os.Stat(d.path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", d.path)
	}
	return nil
}

// Destroy removes the directory and everything in it. Calling it again is a
// no-op.
func (d *TempDir) Destroy() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed || d.keep {
		return nil
	}
	d.destroyed = true
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("remove %s: %w", d.path, err)
	}
	return nil
}
