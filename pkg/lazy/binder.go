package lazy

import (
	"time"

	"github.com/marmos91/lazyhost/internal/logger"
)

// Initializer produces the value of a member on its first read.
//
// h is the host the member lives on and may be used to read sibling members.
// reg records cleanup descriptors. opts is the options value given to
// Declare, or an empty map.
type Initializer func(h *Host, reg Registrar, opts Options) (any, error)

// Binder declares lazy members on one host and owns their cleanup registry.
type Binder struct {
	host     *Host
	registry *Registry
	metrics  Metrics
	name     string
}

// On returns a binder for host with a fresh, empty registry.
func On(host *Host, opts ...BinderOption) *Binder {
	b := &Binder{
		host:     host,
		registry: newRegistry(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Host returns the host the binder declares members on.
func (b *Binder) Host() *Host {
	return b.host
}

// Registry returns the binder's cleanup registry.
func (b *Binder) Registry() *Registry {
	return b.registry
}

// Declare installs a pending member. The first read of name calls init and
// stores its result; later reads return the stored value.
//
// Declaring a name again replaces the previous member entirely. When several
// options values are given they are merged in order; a single value is
// passed to init unchanged.
func (b *Binder) Declare(name string, init Initializer, opts ...Options) {
	options := mergeOptions(opts)
	reg := Registrar{member: name, registry: b.registry}

	b.host.declare(name, func() (any, error) {
		logger.Debug("Initializing member", logger.KeyHost, b.name, logger.KeyMember, name)
		start := time.Now()

		value, err := init(b.host, reg, options)

		if b.metrics != nil {
			b.metrics.ObserveInit(name, time.Since(start), err)
		}
		if err != nil {
			return nil, &InitError{Member: name, Err: err}
		}

		logger.Debug("Member initialized",
			logger.KeyHost, b.name,
			logger.KeyMember, name,
			logger.KeyDurationMs, logger.Duration(start))
		return value, nil
	})

	logger.Debug("Member declared", logger.KeyHost, b.name, logger.KeyMember, name)
}
