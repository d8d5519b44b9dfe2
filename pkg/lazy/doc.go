// Package lazy provides deferred member construction and coordinated teardown.
//
// A Host is a named set of members. A Binder, obtained with On, declares
// members on the host whose value is produced by an Initializer the first
// time the member is read, and keeps a Registry describing how each
// initialized member has to be torn down at shutdown.
//
// # Declaring members
//
//	host := lazy.NewHost()
//	bind := lazy.On(host)
//
//	bind.Declare("config", func(h *lazy.Host, reg lazy.Registrar, opts lazy.Options) (any, error) {
//	    return loadConfig(opts)
//	})
//
//	bind.Declare("db", func(h *lazy.Host, reg lazy.Registrar, opts lazy.Options) (any, error) {
//	    cfg, err := lazy.Get[*Config](h, "config") // triggers config's initializer
//	    if err != nil {
//	        return nil, err
//	    }
//	    reg.Register("", lazy.Guess) // Close() is found on the value at shutdown
//	    return openDB(cfg)
//	})
//
// An initializer runs at most once. Its return value replaces the pending
// member and later reads return it directly. Writing a member with Host.Set
// before it was read discharges the initializer, which then never runs.
//
// # Cleanup registration
//
// The Registrar handed to an initializer records cleanup descriptors under
// a cleanup name (the member name when empty):
//
//	reg.Register("", lazy.Guess)            // try End, Close, Destroy on the value
//	reg.Register("", lazy.Named("Flush"))   // call value.Flush()
//	reg.Register("cache", lazy.Func(fn))    // call fn itself
//	reg.Async("", lazy.Named("Shutdown"))   // value.Shutdown(done func(error))
//
// # Draining
//
// End walks the registry in registration order. Synchronous cleanups run
// inline and the first failure aborts the walk and is returned. Asynchronous
// cleanups are dispatched with a completion callback. The done callback fires
// once every dispatched cleanup completed, with the first reported error:
//
//	if err := bind.End(func(err error) { ... }); err != nil {
//	    // a synchronous cleanup failed, done will not be called
//	}
//
// Drain is the blocking form of End.
//
// Members that were never read are not cleaned up: the drain peeks at the host
// and never triggers an initializer.
package lazy
