// Package resources turns configured members into lazy initializers.
//
// Every kind opens one type of resource (an embedded key-value store, an SQL
// database, a connection pool, an object store client, an HTTP server or a
// scratch directory) and registers the cleanup that tears it down when the
// host drains. Kinds register themselves from init; the configuration
// validator only accepts registered kind names.
package resources

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/lazyhost/internal/logger"
	"github.com/marmos91/lazyhost/internal/telemetry"
	"github.com/marmos91/lazyhost/pkg/config"
	"github.com/marmos91/lazyhost/pkg/lazy"
)

// ErrUnknownKind is returned by Declare for a kind nobody registered.
var ErrUnknownKind = errors.New("unknown resource kind")

// Cleanup method keywords accepted in config.CleanupConfig.Method.
const (
	CleanupGuess = "guess"
	CleanupNone  = "none"
)

// Env is what a kind sees when its member is first read.
type Env struct {
	// Host is the host the member lives on. Kinds may read siblings from it.
	Host *lazy.Host

	// Member is the name being initialized.
	Member string

	// Options are the member's configured options.
	Options lazy.Options

	// Metrics receives kind-specific observations. Its fields may be nil.
	Metrics Metrics
}

// Metrics groups the optional per-kind metrics sinks.
type Metrics struct {
	Badger BadgerMetrics
	S3     S3Metrics
}

// BadgerMetrics receives observations from badger members.
type BadgerMetrics interface {
	RecordOpen(member string, inMemory bool)
	RecordSize(member string, lsm, vlog int64)
}

// S3Metrics receives observations from s3 members.
type S3Metrics interface {
	ObserveOperation(member, operation string, duration time.Duration, err error)
}

// Kind describes one resource type.
type Kind struct {
	// Name is the value of MemberConfig.Kind selecting this kind.
	Name string

	// Description is shown by the CLI.
	Description string

	// Cleanup is registered when the member leaves cleanup.method empty.
	// The zero value guesses the method.
	Cleanup lazy.Cleanup

	// Open creates the member value.
	Open func(ctx context.Context, env Env) (any, error)
}

var (
	kindsMu sync.RWMutex
	kinds   = map[string]Kind{}
)

// Register adds a kind and makes its name valid in configuration files.
// Registering a name twice replaces the earlier kind.
func Register(k Kind) {
	name := strings.ToLower(k.Name)
	k.Name = name

	kindsMu.Lock()
	kinds[name] = k
	kindsMu.Unlock()

	config.RegisterKinds(name)
}

// Lookup returns the kind registered under name.
func Lookup(name string) (Kind, bool) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	k, ok := kinds[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// Kinds returns all registered kinds sorted by name.
func Kinds() []Kind {
	kindsMu.RLock()
	out := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k)
	}
	kindsMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CleanupFor resolves the cleanup registered for a member of kind k.
// register is false when the member asked for no cleanup at all.
func CleanupFor(k Kind, c config.CleanupConfig) (cleanup lazy.Cleanup, register bool) {
	method := strings.TrimSpace(c.Method)
	switch strings.ToLower(method) {
	case "":
		return k.Cleanup, true
	case CleanupNone:
		return lazy.Cleanup{}, false
	case CleanupGuess:
		return lazy.Cleanup{Method: lazy.Guess, Async: c.Async}, true
	default:
		return lazy.Cleanup{Method: lazy.Named(method), Async: c.Async}, true
	}
}

// Declare declares member m on b. The resource is opened on the member's
// first read, under ctx with its cancellation removed, so members read
// late in the run still open.
func Declare(ctx context.Context, b *lazy.Binder, m config.MemberConfig, mx Metrics) error {
	kind, ok := Lookup(m.Kind)
	if !ok {
		return fmt.Errorf("member %q: %w %q", m.Name, ErrUnknownKind, m.Kind)
	}
	cleanup, register := CleanupFor(kind, m.Cleanup)
	base := context.WithoutCancel(ctx)

	b.Declare(m.Name, func(h *lazy.Host, reg lazy.Registrar, opts lazy.Options) (any, error) {
		spanCtx, span := telemetry.StartMemberSpan(base, reg.Member(), kind.Name)
		defer span.End()

		start := time.Now()
		value, err := kind.Open(spanCtx, Env{Host: h, Member: reg.Member(), Options: opts, Metrics: mx})
		if err != nil {
			telemetry.RecordError(spanCtx, err)
			return nil, fmt.Errorf("open %s: %w", kind.Name, err)
		}

		if register {
			if cleanup.Async {
				reg.Async("", cleanup.Method)
			} else {
				reg.Register("", cleanup.Method)
			}
		}

		logger.InfoCtx(spanCtx, "Member opened",
			logger.KeyMember, reg.Member(),
			logger.KeyKind, kind.Name,
			logger.KeyCleanup, CleanupLabel(cleanup, register),
			logger.KeyDurationMs, logger.Duration(start))
		return value, nil
	}, lazy.Options(m.Options))

	return nil
}

// CleanupLabel renders a resolved cleanup for logs and listings.
func CleanupLabel(c lazy.Cleanup, register bool) string {
	if !register {
		return CleanupNone
	}
	if c.Async {
		return "async " + c.Method.String()
	}
	return c.Method.String()
}

// decodeOptions decodes env.Options into out and prefixes errors with the
// member name.
func decodeOptions(env Env, out any) error {
	if err := env.Options.Decode(out); err != nil {
		return fmt.Errorf("member %q: %w", env.Member, err)
	}
	return nil
}
