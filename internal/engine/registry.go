package engine

import (
	"context"
	"sync"

	. "github.com/cricklet/chessforge/internal/helpers"
	"golang.org/x/sync/singleflight"
)

// Factory creates and initializes a session.
type Factory func(ctx context.Context) (*Session, Error)

// Registry owns the process's engine session. The session is created by the
// first Acquire and shared until it terminates; Shutdown is the only way it is
// torn down.
type Registry struct {
	factory Factory
	group   singleflight.Group

	mu       sync.Mutex
	session  *Session
	shutdown bool
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{factory: factory}
}

func (r *Registry) current() (*Session, Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return nil, Errorf("registry: %w", ErrTerminated)
	}
	if r.session != nil && !r.session.State().isTerminal() {
		return r.session, NilError
	}
	return nil, NilError
}

// Acquire returns the live session, creating one if there is none or the
// previous one terminated. Concurrent callers share a single creation.
func (r *Registry) Acquire(ctx context.Context) (*Session, Error) {
	session, err := r.current()
	if err.HasError() || session != nil {
		return session, err
	}

	results := r.group.DoChan("session", func() (any, error) {
		session, err := r.current()
		if err.HasError() {
			return nil, err
		}
		if session != nil {
			return session, nil
		}

		// shared by every waiting caller, so it isn't tied to this one
		session, err = r.factory(context.WithoutCancel(ctx))
		if err.HasError() {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.shutdown {
			session.Terminate()
			return nil, Errorf("registry: %w", ErrTerminated)
		}
		r.session = session
		return session, nil
	})

	select {
	case result := <-results:
		if result.Err != nil {
			return nil, Wrap(result.Err)
		}
		return result.Val.(*Session), NilError
	case <-ctx.Done():
		return nil, Wrap(ctx.Err())
	}
}

// Shutdown terminates the session, if any, and refuses later Acquires.
func (r *Registry) Shutdown() Error {
	r.mu.Lock()
	session := r.session
	r.session = nil
	r.shutdown = true
	r.mu.Unlock()

	if session != nil {
		return session.Terminate()
	}
	return NilError
}
