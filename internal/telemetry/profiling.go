package telemetry

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/grafana/pyroscope-go"
)

// ProfilingConfig configures Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool

	// ServiceName is the application name shown in Pyroscope
	ServiceName    string
	ServiceVersion string

	// HostName is added as the "host" tag
	HostName string

	// Endpoint is the Pyroscope server URL, e.g. "http://localhost:4040"
	Endpoint string

	// ProfileTypes selects the collected profiles, see profileTypes for the
	// accepted names. Duplicates are collected once.
	ProfileTypes []string
}

// profileTypes maps configuration names to Pyroscope profile types.
var profileTypes = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// Sampling rates applied when mutex or block profiles are requested.
const (
	mutexProfileFraction = 5
	blockProfileRate     = 5
)

var (
	profilingMu      sync.Mutex
	profilingEnabled bool
)

// InitProfiling starts Pyroscope continuous profiling. The returned function
// stops the profiler; with profiling disabled it is a no-op.
func InitProfiling(cfg ProfilingConfig) (func() error, error) {
	profilingMu.Lock()
	defer profilingMu.Unlock()

	if !cfg.Enabled {
		profilingEnabled = false
		return func() error { return nil }, nil
	}

	types, err := resolveProfileTypes(cfg.ProfileTypes)
	if err != nil {
		return nil, err
	}
	enableRuntimeProfiles(types)

	p, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags:            profileTags(cfg),
		ProfileTypes:    types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	profilingEnabled = true

	return func() error {
		profilingMu.Lock()
		defer profilingMu.Unlock()
		profilingEnabled = false
		return p.Stop()
	}, nil
}

func resolveProfileTypes(names []string) ([]pyroscope.ProfileType, error) {
	seen := make(map[pyroscope.ProfileType]bool, len(names))
	out := make([]pyroscope.ProfileType, 0, len(names))
	for _, name := range names {
		pt, err := parseProfileType(name)
		if err != nil {
			return nil, fmt.Errorf("invalid profile type %q: %w", name, err)
		}
		if !seen[pt] {
			seen[pt] = true
			out = append(out, pt)
		}
	}
	return out, nil
}

// enableRuntimeProfiles turns on the runtime sampling that mutex and block
// profiles depend on.
func enableRuntimeProfiles(types []pyroscope.ProfileType) {
	for _, pt := range types {
		switch pt {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			runtime.SetMutexProfileFraction(mutexProfileFraction)
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			runtime.SetBlockProfileRate(blockProfileRate)
		}
	}
}

func profileTags(cfg ProfilingConfig) map[string]string {
	tags := map[string]string{"version": cfg.ServiceVersion}
	if cfg.HostName != "" {
		tags["host"] = cfg.HostName
	}
	return tags
}

// IsProfilingEnabled reports whether a profiler is running.
func IsProfilingEnabled() bool {
	profilingMu.Lock()
	defer profilingMu.Unlock()
	return profilingEnabled
}

func parseProfileType(name string) (pyroscope.ProfileType, error) {
	if pt, ok := profileTypes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return pt, nil
	}
	valid := make([]string, 0, len(profileTypes))
	for k := range profileTypes {
		valid = append(valid, k)
	}
	sort.Strings(valid)
	return "", fmt.Errorf("unknown profile type %q (valid: %s)", name, strings.Join(valid, ", "))
}
