package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cricklet/chessforge/internal/engine/enginetest"
	. "github.com/cricklet/chessforge/internal/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeFactory(created *atomic.Int32) Factory {
	return func(ctx context.Context) (*Session, Error) {
		created.Add(1)
		fake := enginetest.NewEngine()
		session := NewSession(fake.Channel(), WithName("registry"), WithLogger(&SilentLogger))
		err := session.Initialize(ctx)
		if err.HasError() {
			return nil, err
		}
		return session, NilError
	}
}

func TestRegistryCreatesOnce(t *testing.T) {
	created := atomic.Int32{}
	registry := NewRegistry(fakeFactory(&created))
	defer registry.Shutdown()

	n := 16
	sessions := make([]*Session, n)
	wg := sync.WaitGroup{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := registry.Acquire(testContext(t))
			assert.True(t, IsNil(err), err)
			sessions[i] = session
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	for _, session := range sessions {
		assert.Same(t, sessions[0], session)
	}
	assert.Equal(t, Idle, sessions[0].State())
}

func TestRegistryReplacesTerminatedSession(t *testing.T) {
	created := atomic.Int32{}
	registry := NewRegistry(fakeFactory(&created))
	defer registry.Shutdown()

	first, err := registry.Acquire(testContext(t))
	require.True(t, IsNil(err), err)
	require.True(t, IsNil(first.Terminate()))

	second, err := registry.Acquire(testContext(t))
	require.True(t, IsNil(err), err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), created.Load())

	again, err := registry.Acquire(testContext(t))
	require.True(t, IsNil(err), err)
	assert.Same(t, second, again)
}

func TestRegistryShutdown(t *testing.T) {
	created := atomic.Int32{}
	registry := NewRegistry(fakeFactory(&created))

	session, err := registry.Acquire(testContext(t))
	require.True(t, IsNil(err), err)

	require.True(t, IsNil(registry.Shutdown()))
	assert.Equal(t, Terminated, session.State())

	_, err = registry.Acquire(testContext(t))
	assert.True(t, errors.Is(err, ErrTerminated), err)
	assert.Equal(t, int32(1), created.Load())

	require.True(t, IsNil(registry.Shutdown()))
}

func TestRegistryFactoryError(t *testing.T) {
	calls := atomic.Int32{}
	registry := NewRegistry(func(ctx context.Context) (*Session, Error) {
		calls.Add(1)
		return nil, Errorf("no engine: %w", ErrTransportClosed)
	})

	_, err := registry.Acquire(testContext(t))
	assert.True(t, errors.Is(err, ErrTransportClosed), err)

	// failures aren't cached
	_, err = registry.Acquire(testContext(t))
	assert.True(t, errors.Is(err, ErrTransportClosed), err)
	assert.Equal(t, int32(2), calls.Load())
}
