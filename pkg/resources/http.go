package resources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/lazyhost/internal/logger"
	"github.com/marmos91/lazyhost/pkg/lazy"
	"github.com/marmos91/lazyhost/pkg/metrics"
)

func init() {
	Register(Kind{
		Name:        "http",
		Description: "HTTP server with health, member and metrics endpoints, stopped with an asynchronous Shutdown",
		Cleanup:     lazy.Cleanup{Method: lazy.Named("Shutdown"), Async: true},
		Open:        openHTTPServer,
	})
}

// HTTPOptions configures an http member.
type HTTPOptions struct {
	// Address is the listen address. Port 0 picks a free port.
	// Default: "127.0.0.1:8080"
	Address string `mapstructure:"address"`

	// HealthOf names sibling members checked by /health/ready. They are
	// read, and therefore initialized, when the server starts.
	HealthOf []string `mapstructure:"health_of"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `mapstructure:"check_timeout"`

	// ShutdownTimeout bounds the graceful shutdown.
	// Default: 5s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (o *HTTPOptions) applyDefaults() {
	if o.Address == "" {
		o.Address = "127.0.0.1:8080"
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 60 * time.Second
	}
	if o.CheckTimeout <= 0 {
		o.CheckTimeout = 2 * time.Second
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 5 * time.Second
	}
}

type sibling struct {
	name  string
	value any
}

// HTTPServer is a running HTTP server owned by one member.
//
// Endpoints:
//   - GET /health: liveness
//   - GET /health/ready: checks every health_of sibling
//   - GET /members: names and states of the host's members
//   - GET /metrics: Prometheus metrics (404 when metrics are disabled)
type HTTPServer struct {
	member   string
	host     *lazy.Host
	siblings []sibling
	opts     HTTPOptions

	listener net.Listener
	server   *http.Server

	shutdownOnce sync.Once
	shutdownErr  error
	served       chan struct{}
}

func openHTTPServer(_ context.Context, env Env) (any, error) {
	var opts HTTPOptions
	if err := decodeOptions(env, &opts); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	siblings := make([]sibling, 0, len(opts.HealthOf))
	for _, name := range opts.HealthOf {
		if name == env.Member {
			return nil, fmt.Errorf("member %q: health_of cannot name the member itself", env.Member)
		}
		value, err := env.Host.Get(name)
		if err != nil {
			return nil, fmt.Errorf("health_of %q: %w", name, err)
		}
		siblings = append(siblings, sibling{name: name, value: value})
	}

	ln, err := net.Listen("tcp", opts.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", opts.Address, err)
	}

	s := &HTTPServer{
		member:   env.Member,
		host:     env.Host,
		siblings: siblings,
		opts:     opts,
		listener: ln,
		served:   make(chan struct{}),
	}
	s.server = &http.Server{
		Handler:      s.routes(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
	}

	go s.serve()

	logger.Info("HTTP server listening", logger.KeyMember, env.Member, logger.KeyAddress, s.Addr())
	return s, nil
}

func (s *HTTPServer) serve() {
	defer close(s.served)
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server failed", logger.KeyMember, s.member, logger.KeyError, err)
	}
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", s.liveness)
		r.Get("/ready", s.readiness)
	})
	r.Get("/members", s.members)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

// Addr returns the address the server is listening on.
func (s *HTTPServer) Addr() string {
	return s.listener.Addr().String()
}

// URL returns the base URL of the server.
func (s *HTTPServer) URL() string {
	return "http://" + s.Addr()
}

// Shutdown stops the server gracefully in the background and reports the
// outcome to done. Later calls report the first outcome again.
func (s *HTTPServer) Shutdown(done func(error)) {
	go func() {
		s.shutdownOnce.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(ctx); err != nil {
				s.shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
			}
			<-s.served
			logger.Info("HTTP server stopped", logger.KeyMember, s.member)
		})
		done(s.shutdownErr)
	}()
}

// response is the body of every JSON endpoint.
type response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// MemberStatus is one entry of the /members listing.
type MemberStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

func (s *HTTPServer) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Data:      map[string]string{"member": s.member},
	})
}

func (s *HTTPServer) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.siblings))
	var failed []string
	for _, sib := range s.siblings {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.CheckTimeout)
		err := Check(ctx, sib.value)
		cancel()
		if err != nil {
			checks[sib.name] = err.Error()
			failed = append(failed, sib.name)
			continue
		}
		checks[sib.name] = "ok"
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, response{
			Status:    "unhealthy",
			Timestamp: time.Now().UTC(),
			Data:      checks,
			Error:     fmt.Sprintf("%d member(s) not ready: %v", len(failed), failed),
		})
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "healthy", Timestamp: time.Now().UTC(), Data: checks})
}

func (s *HTTPServer) members(w http.ResponseWriter, _ *http.Request) {
	names := s.host.Names()
	out := make([]MemberStatus, 0, len(names))
	for _, name := range names {
		out = append(out, MemberStatus{Name: name, State: s.host.State(name).String()})
	}
	writeJSON(w, http.StatusOK, response{Status: "ok", Timestamp: time.Now().UTC(), Data: out})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", logger.KeyError, err)
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Debug("HTTP request completed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			logger.KeyDurationMs, logger.Duration(start))
	})
}
