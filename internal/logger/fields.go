package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging. Use them consistently so log
// lines from the core, the runtime and the CLI can be aggregated together.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"
	KeyRunID   = "run_id" // runtime instance identifier

	// Host and members
	KeyHost     = "host"     // binder label
	KeyMember   = "member"   // member name on the host
	KeyKind     = "kind"     // resource kind backing a member
	KeyState    = "state"    // member state: pending, resolved, failed
	KeyResolved = "resolved" // whether the member held a value at drain time
	KeyWarm     = "warm"     // member is read eagerly at start

	// Cleanup
	KeyCleanup = "cleanup" // cleanup name in the registry
	KeyMethod  = "method"  // cleanup method: guess, func, or a method name
	KeyAsync   = "async"   // cleanup completes through a callback
	KeyCount   = "count"   // number of entries processed

	// Resources
	KeyPath     = "path"
	KeyAddress  = "address"
	KeyDriver   = "driver"
	KeyBucket   = "bucket"
	KeyRegion   = "region"
	KeyEndpoint = "endpoint"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyOperation  = "operation"
	KeyConfig     = "config" // configuration file path
)

// Attribute helpers for call sites that prefer typed slog.Attr values.

func Member(name string) slog.Attr {
	return slog.String(KeyMember, name)
}

func Kind(kind string) slog.Attr {
	return slog.String(KeyKind, kind)
}

func Cleanup(name string) slog.Attr {
	return slog.String(KeyCleanup, name)
}

func Method(name string) slog.Attr {
	return slog.String(KeyMethod, name)
}

func Async(async bool) slog.Attr {
	return slog.Bool(KeyAsync, async)
}

func RunID(id string) slog.Attr {
	return slog.String(KeyRunID, id)
}

func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// DurationMs records the time elapsed since start in milliseconds.
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}

// Err returns an error attribute; a nil error yields an empty string value.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
