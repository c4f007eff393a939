package threadlayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/threadlayer/api"
	"github.com/momentics/threadlayer/backend"
	"github.com/momentics/threadlayer/internal/backendtest"
)

func resetDefault(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		_ = Shutdown()
		defaultMu.Lock()
		defaultLayer = nil
		defaultMu.Unlock()
	})
}

func TestDefault_ConfigErrorNotCached(t *testing.T) {
	resetDefault(t)

	t.Setenv(EnvNumThreads, "lots")
	_, err := Default()
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrConfig)

	t.Setenv(EnvNumThreads, "2")
	t.Setenv(EnvLayer, backend.NameWorkqueue)
	l, err := Default()
	require.NoError(t, err)
	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, l, again)
}

func TestDefault_PackageFunctions(t *testing.T) {
	resetDefault(t)
	t.Setenv(EnvNumThreads, "4")
	t.Setenv(EnvLayer, backend.NameWorkqueue)

	_, err := Name()
	assert.ErrorIs(t, err, api.ErrNotInitialized)
	assert.Equal(t, api.NotWorkerThread, ThreadID())

	require.NoError(t, EnsureReady())
	name, err := Name()
	require.NoError(t, err)
	assert.Equal(t, backend.NameWorkqueue, name)

	require.NoError(t, SetNumThreads(2))
	n, err := NumThreads()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, SetChunkSize(3))
	c, err := ChunkSize()
	require.NoError(t, err)
	assert.Equal(t, 3, c)

	counter := backendtest.NewCounter(20)
	require.NoError(t, ParallelFor(backendtest.Increment, counter.Domain(), 0, 1))
	backendtest.AssertOnce(t, counter)

	require.NoError(t, Shutdown())
	assert.ErrorIs(t, EnsureReady(), api.ErrClosed)
}
