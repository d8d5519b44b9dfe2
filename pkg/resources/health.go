package resources

import (
	"context"
	"errors"
)

// ErrClosed is reported by Check for a member that has already been closed.
var ErrClosed = errors.New("resource closed")

// Pinger is implemented by members that can actively check their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

type closedReporter interface {
	IsClosed() bool
}

// Check reports whether a member value is usable. Values that expose
// neither Ping nor IsClosed are assumed healthy.
func Check(ctx context.Context, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch v := value.(type) {
	case Pinger:
		return v.Ping(ctx)
	case closedReporter:
		if v.IsClosed() {
			return ErrClosed
		}
	}
	return nil
}
