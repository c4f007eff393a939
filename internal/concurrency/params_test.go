package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/threadlayer/api"
)

func TestParams_LaunchOnce(t *testing.T) {
	var p Params
	require.Error(t, p.Launch(0))
	require.NoError(t, p.Launch(4))
	assert.Equal(t, 4, p.Launched())
	assert.Equal(t, 4, p.ThreadCount())

	err := p.Launch(8)
	require.Error(t, err)
	assert.Equal(t, api.ErrCodeInit, api.CodeOf(err))
	assert.Equal(t, 4, p.Launched())
}

func TestParams_SetThreadCountBounds(t *testing.T) {
	var p Params
	require.NoError(t, p.Launch(4))

	for _, n := range []int{0, 5, -1} {
		err := p.SetThreadCount(n)
		require.Error(t, err, "n=%d", n)
		assert.ErrorIs(t, err, api.ErrOutOfRange)
		assert.Contains(t, err.Error(), "between 1 and 4")
		assert.Equal(t, 4, p.ThreadCount(), "rejected write must not change state")
	}

	require.NoError(t, p.SetThreadCount(1))
	assert.Equal(t, 1, p.ThreadCount())
	require.NoError(t, p.SetThreadCount(4))
	assert.Equal(t, 4, p.ThreadCount())
}

func TestParams_ChunkSize(t *testing.T) {
	var p Params
	assert.Equal(t, 0, p.ChunkSize())
	require.NoError(t, p.SetChunkSize(16))
	assert.Equal(t, 16, p.ChunkSize())
	require.Error(t, p.SetChunkSize(-1))
	assert.Equal(t, 16, p.ChunkSize())
	require.NoError(t, p.SetChunkSize(0))
	assert.Equal(t, 0, p.ChunkSize())
}

func TestParams_Active(t *testing.T) {
	var p Params
	require.NoError(t, p.Launch(8))
	require.NoError(t, p.SetThreadCount(6))
	assert.Equal(t, 6, p.Active(0))
	assert.Equal(t, 3, p.Active(3))
	assert.Equal(t, 6, p.Active(100))
}

func TestParams_ConcurrentWritersNeverTear(t *testing.T) {
	var p Params
	require.NoError(t, p.Launch(64))

	var wg sync.WaitGroup
	for w := 1; w <= 8; w++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for range 1000 {
				_ = p.SetThreadCount(n)
				got := p.ThreadCount()
				if got < 1 || got > 8 {
					t.Errorf("observed impossible thread count %d", got)
					return
				}
			}
		}(w)
	}
	wg.Wait()
}
