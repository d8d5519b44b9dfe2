package lazy

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Options is the per-member options value handed to an initializer.
//
// An initializer declared without options receives an empty, non-nil map.
type Options map[string]any

// Decode decodes the options into out using mapstructure.
//
// Input is weakly typed so values read from YAML or environment variables
// ("true", "30s", 8080.0) land in bool, time.Duration and int fields. Fields
// implementing encoding.TextUnmarshaler are decoded from strings.
func (o Options) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("create options decoder: %w", err)
	}
	if err := decoder.Decode(map[string]any(o)); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return nil
}

// mergeOptions returns the options handed to an initializer. A single value is
// passed through as is, several values are merged left to right into a new map.
func mergeOptions(opts []Options) Options {
	switch len(opts) {
	case 0:
		return Options{}
	case 1:
		if opts[0] == nil {
			return Options{}
		}
		return opts[0]
	}

	merged := Options{}
	for _, o := range opts {
		for k, v := range o {
			merged[k] = v
		}
	}
	return merged
}

// Metrics receives lifecycle observations from a Binder.
//
// Implementations must be safe for concurrent use. A nil Metrics passed to
// WithMetrics disables collection.
type Metrics interface {
	// ObserveInit records a completed initializer call.
	ObserveInit(member string, duration time.Duration, err error)

	// ObserveCleanup records a completed cleanup action.
	ObserveCleanup(name string, async bool, duration time.Duration, err error)

	// RecordCleanupSkipped records a registry entry with nothing to call.
	RecordCleanupSkipped(name string)

	// RecordOutstanding records the number of asynchronous cleanups in flight.
	RecordOutstanding(count int)
}

// BinderOption configures a Binder.
type BinderOption func(*Binder)

// WithMetrics attaches a Metrics sink to the binder.
func WithMetrics(m Metrics) BinderOption {
	return func(b *Binder) {
		b.metrics = m
	}
}

// WithName sets the label used in the binder's log lines.
func WithName(name string) BinderOption {
	return func(b *Binder) {
		b.name = name
	}
}
