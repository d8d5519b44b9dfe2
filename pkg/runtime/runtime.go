// Package runtime assembles a lazy host from configuration and runs its
// lifecycle: declare members, warm the ones flagged warm, wait for the
// context, then drain every cleanup exactly once.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/lazyhost/internal/logger"
	"github.com/marmos91/lazyhost/internal/telemetry"
	"github.com/marmos91/lazyhost/pkg/config"
	"github.com/marmos91/lazyhost/pkg/lazy"
	"github.com/marmos91/lazyhost/pkg/metrics"
	prommetrics "github.com/marmos91/lazyhost/pkg/metrics/prometheus"
	"github.com/marmos91/lazyhost/pkg/resources"
)

// ErrShutdownTimeout is returned by Shutdown when asynchronous cleanups are
// still running after the configured shutdown timeout.
var ErrShutdownTimeout = errors.New("cleanups did not complete before the shutdown timeout")

// Runtime owns one host and the binder its members are declared on.
type Runtime struct {
	cfg    *config.Config
	runID  string
	ctx    context.Context
	host   *lazy.Host
	binder *lazy.Binder

	metricsServer *metrics.Server

	serveOnce sync.Once
	drainOnce sync.Once
	drainErr  error
}

// MemberInfo describes a configured member and its current state.
type MemberInfo struct {
	Name    string `json:"name" yaml:"name"`
	Kind    string `json:"kind" yaml:"kind"`
	State   string `json:"state" yaml:"state"`
	Warm    bool   `json:"warm" yaml:"warm"`
	Cleanup string `json:"cleanup" yaml:"cleanup"`
}

// New builds a runtime from cfg. Every member is declared, none is opened.
//
// When cfg.Metrics.Enabled is set a fresh Prometheus registry is installed.
func New(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("runtime: nil config")
	}

	runID := uuid.NewString()
	ctx = logger.WithContext(ctx, logger.NewLogContext(runID, cfg.Host))

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	host := lazy.NewHost()
	binder := lazy.On(host,
		lazy.WithName(cfg.Host),
		lazy.WithMetrics(metrics.NewLazyMetrics()),
	)

	r := &Runtime{
		cfg:    cfg,
		runID:  runID,
		ctx:    ctx,
		host:   host,
		binder: binder,
	}

	mx := resourceMetrics()
	for _, m := range cfg.Members {
		if err := resources.Declare(ctx, binder, m, mx); err != nil {
			return nil, err
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port > 0 {
		r.metricsServer = metrics.NewServer(":" + strconv.Itoa(cfg.Metrics.Port))
	}

	logger.DebugCtx(ctx, "Runtime created", logger.KeyCount, len(cfg.Members))
	return r, nil
}

// resourceMetrics returns the per-kind sinks, left nil when metrics are off.
func resourceMetrics() resources.Metrics {
	var mx resources.Metrics
	if !metrics.IsEnabled() {
		return mx
	}
	mx.Badger = prommetrics.NewBadgerMetrics()
	mx.S3 = prommetrics.NewS3Metrics()
	return mx
}

// RunID is the identifier stamped on this run's logs and traces.
func (r *Runtime) RunID() string { return r.runID }

// Host returns the runtime's host.
func (r *Runtime) Host() *lazy.Host { return r.host }

// Binder returns the binder members are declared on.
func (r *Runtime) Binder() *lazy.Binder { return r.binder }

// Context returns the run's logging context.
func (r *Runtime) Context() context.Context { return r.ctx }

// Members reports configured members in declaration order.
func (r *Runtime) Members() []MemberInfo {
	out := make([]MemberInfo, 0, len(r.cfg.Members))
	for _, m := range r.cfg.Members {
		info := MemberInfo{
			Name:  m.Name,
			Kind:  m.Kind,
			State: r.host.State(m.Name).String(),
			Warm:  m.Warm,
		}
		if kind, ok := resources.Lookup(m.Kind); ok {
			c, register := resources.CleanupFor(kind, m.Cleanup)
			info.Cleanup = resources.CleanupLabel(c, register)
		}
		out = append(out, info)
	}
	return out
}

// Warm reads every member flagged warm, in declaration order, and stops at
// the first failure.
func (r *Runtime) Warm(ctx context.Context) error {
	ctx = logger.WithContext(ctx, logger.FromContext(r.ctx))
	for _, m := range r.cfg.Members {
		if !m.Warm {
			continue
		}
		if err := r.warmMember(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) warmMember(ctx context.Context, m config.MemberConfig) error {
	ctx, span := telemetry.StartSpan(ctx, "lazyhost.warm",
		trace.WithAttributes(telemetry.Member(m.Name), telemetry.Kind(m.Kind), telemetry.RunID(r.runID)))
	defer span.End()

	start := time.Now()
	if _, err := r.host.Get(m.Name); err != nil {
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "Member warm-up failed", logger.KeyMember, m.Name, logger.KeyError, err)
		return fmt.Errorf("warm %q: %w", m.Name, err)
	}
	logger.InfoCtx(ctx, "Member warmed",
		logger.KeyMember, m.Name,
		logger.KeyKind, m.Kind,
		logger.KeyDurationMs, logger.Duration(start))
	return nil
}

// Serve runs the lifecycle once: it starts the metrics server, warms
// members, blocks until ctx is done and drains. A failed warm-up drains
// straight away and returns the warm-up error. Later calls return nil.
func (r *Runtime) Serve(ctx context.Context) error {
	var err error
	r.serveOnce.Do(func() {
		err = r.serve(ctx)
	})
	return err
}

func (r *Runtime) serve(ctx context.Context) error {
	logger.InfoCtx(r.ctx, "Starting lazyhost runtime", logger.KeyCount, len(r.cfg.Members))

	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()
	metricsErr := make(chan error, 1)
	if r.metricsServer != nil {
		if err := r.metricsServer.Listen(); err != nil {
			return err
		}
		go func() { metricsErr <- r.metricsServer.Serve(metricsCtx) }()
	}

	if err := r.Warm(ctx); err != nil {
		if drainErr := r.Shutdown(); drainErr != nil {
			logger.ErrorCtx(r.ctx, "Drain after failed warm-up reported an error", logger.KeyError, drainErr)
		}
		return err
	}

	logger.InfoCtx(r.ctx, "Runtime is running")

	var runErr error
	select {
	case <-ctx.Done():
		logger.InfoCtx(r.ctx, "Shutdown signal received", "reason", ctx.Err())
	case err := <-metricsErr:
		if err != nil {
			logger.ErrorCtx(r.ctx, "Metrics server failed - initiating shutdown", logger.KeyError, err)
			runErr = err
		}
	}

	if err := r.Shutdown(); err != nil {
		return err
	}
	logger.InfoCtx(r.ctx, "lazyhost runtime stopped")
	return runErr
}

// Shutdown drains the binder's cleanups. Only the first call drains; later
// calls return the first outcome. It waits at most the configured shutdown
// timeout for asynchronous cleanups.
func (r *Runtime) Shutdown() error {
	r.drainOnce.Do(func() {
		r.drainErr = r.drain()
	})
	return r.drainErr
}

func (r *Runtime) drain() error {
	registered := r.binder.Registry().Len()
	ctx, span := telemetry.StartDrainSpan(r.ctx, registered, telemetry.RunID(r.runID))
	defer span.End()

	logger.InfoCtx(ctx, "Draining cleanups", logger.KeyCount, registered)
	start := time.Now()

	result := make(chan error, 1)
	if err := r.binder.End(func(err error) { result <- err }); err != nil {
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "Cleanup failed, drain stopped", logger.KeyError, err)
		return err
	}

	timer := time.NewTimer(r.cfg.ShutdownTimeout)
	defer timer.Stop()

	select {
	case err := <-result:
		if err != nil {
			telemetry.RecordError(ctx, err)
			logger.ErrorCtx(ctx, "Asynchronous cleanup failed", logger.KeyError, err)
			return err
		}
	case <-timer.C:
		telemetry.RecordError(ctx, ErrShutdownTimeout)
		logger.ErrorCtx(ctx, "Drain timed out", "timeout", r.cfg.ShutdownTimeout.String())
		return ErrShutdownTimeout
	}

	logger.InfoCtx(ctx, "Drain completed", logger.KeyDurationMs, logger.Duration(start))
	return nil
}
