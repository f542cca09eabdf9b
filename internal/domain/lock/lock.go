package lock

import (
	"context"
	"errors"
)

// ErrTimeout means the key stayed held by someone else for the whole wait.
var ErrTimeout = errors.New("lock: acquire timed out")

// Locker grants exclusive ownership of a key. Release must be called exactly
// once after a successful Acquire.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
