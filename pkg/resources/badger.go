package resources

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/marmos91/lazyhost/internal/bytesize"
	"github.com/marmos91/lazyhost/internal/logger"
)

func init() {
	Register(Kind{
		Name:        "badger",
		Description: "Embedded BadgerDB key-value store, closed with Close",
		Open:        openBadger,
	})
}

// BadgerOptions configures a badger member.
type BadgerOptions struct {
	// Path is the data directory. Required unless InMemory is set.
	Path string `mapstructure:"path"`

	// InMemory keeps all data in memory.
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites fsyncs every write.
	SyncWrites bool `mapstructure:"sync_writes"`

	// ValueLogFileSize caps a single value log file ("64Mi", "1Gi").
	ValueLogFileSize bytesize.ByteSize `mapstructure:"value_log_file_size"`

	// ReadOnly opens an existing directory without writing to it.
	ReadOnly bool `mapstructure:"read_only"`
}

func (o BadgerOptions) validate() error {
	switch {
	case o.InMemory && o.Path != "":
		return errors.New("path and in_memory are mutually exclusive")
	case !o.InMemory && o.Path == "":
		return errors.New("path is required unless in_memory is set")
	case o.InMemory && o.ReadOnly:
		return errors.New("read_only requires a path")
	}
	return nil
}

func (o BadgerOptions) badgerOptions() badger.Options {
	opts := badger.DefaultOptions(o.Path).
		WithInMemory(o.InMemory).
		WithSyncWrites(o.SyncWrites).
		WithReadOnly(o.ReadOnly).
		WithLogger(nil)
	if o.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(o.ValueLogFileSize.Int64())
	}
	return opts
}

func openBadger(_ context.Context, env Env) (any, error) {
	var opts BadgerOptions
	if err := decodeOptions(env, &opts); err != nil {
		return nil, err
	}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("member %q: %w", env.Member, err)
	}

	if opts.Path != "" && !opts.ReadOnly {
		if err := os.MkdirAll(opts.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create badger directory: %w", err)
		}
	}

	db, err := badger.Open(opts.badgerOptions())
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	if m := env.Metrics.Badger; m != nil {
		m.RecordOpen(env.Member, opts.InMemory)
		lsm, vlog := db.Size()
		m.RecordSize(env.Member, lsm, vlog)
	}

	logger.Debug("Badger opened",
		logger.KeyMember, env.Member,
		logger.KeyPath, opts.Path,
		"in_memory", opts.InMemory)
	return db, nil
}
