package threadlayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/threadlayer/api"
	"github.com/momentics/threadlayer/backend"
	"github.com/momentics/threadlayer/fake"
)

func TestControl_Reload(t *testing.T) {
	fb := fake.NewBackend(backend.NameWorkqueue)
	l := newTestLayer(t, Config{NumThreads: 4, Layer: "default"}, WithRegistry(registryOf(fb)))
	ctrl := l.Control()

	require.NoError(t, ctrl.SetConfig(map[string]any{keyNumThreads: 2, keyChunkSize: 3}))
	n, _ := l.NumThreads()
	c, _ := l.ChunkSize()
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, c)

	// text and decoded-JSON shapes
	require.NoError(t, ctrl.SetConfig(map[string]any{keyNumThreads: "3", keyChunkSize: float64(5)}))
	n, _ = l.NumThreads()
	c, _ = l.ChunkSize()
	assert.Equal(t, 3, n)
	assert.Equal(t, 5, c)
}

func TestControl_RejectedReloadChangesNothing(t *testing.T) {
	fb := fake.NewBackend(backend.NameWorkqueue)
	l := newTestLayer(t, Config{NumThreads: 4, Layer: "default", ChunkSize: 2}, WithRegistry(registryOf(fb)))
	ctrl := l.Control()

	tests := []struct {
		name string
		cfg  map[string]any
		want error
	}{
		{"threads above launched", map[string]any{keyNumThreads: 9, keyChunkSize: 7}, api.ErrOutOfRange},
		{"zero threads", map[string]any{keyNumThreads: 0}, api.ErrOutOfRange},
		{"negative chunk", map[string]any{keyNumThreads: 1, keyChunkSize: -3}, api.ErrOutOfRange},
		{"fractional chunk", map[string]any{keyChunkSize: 2.5}, api.ErrConfig},
		{"unparsable threads", map[string]any{keyNumThreads: "many"}, api.ErrConfig},
		{"swap layer", map[string]any{keyLayer: backend.NameTeam, keyPinThreads: true}, api.ErrConfig},
		{"pin threads", map[string]any{keyPinThreads: true}, api.ErrConfig},
		{"layer of wrong type", map[string]any{keyLayer: 3}, api.ErrConfig},
		{"unknown key", map[string]any{keyNumThreads: 2, "max_threads": 8}, api.ErrConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ctrl.SetConfig(tt.cfg), tt.want)
			n, _ := l.NumThreads()
			c, _ := l.ChunkSize()
			assert.Equal(t, 4, n)
			assert.Equal(t, 2, c)
			snapshot := ctrl.GetConfig()
			assert.Equal(t, 4, snapshot[keyNumThreads])
			assert.Equal(t, "default", snapshot[keyLayer])
			assert.Equal(t, false, snapshot[keyPinThreads])
			assert.NotContains(t, snapshot, "max_threads")
		})
	}
}

func TestControl_ReloadAcceptsUnchangedFixedKeys(t *testing.T) {
	fb := fake.NewBackend(backend.NameWorkqueue)
	l := newTestLayer(t, Config{NumThreads: 4, Layer: "Default"}, WithRegistry(registryOf(fb)))

	require.NoError(t, l.Control().SetConfig(map[string]any{
		keyNumThreads: 3,
		keyLayer:      "DEFAULT",
		keyPinThreads: false,
	}))
	n, _ := l.NumThreads()
	assert.Equal(t, 3, n)
}

// Writes through the Layer and through Control go through one update path,
// so the snapshot always matches the backend afterwards.
func TestControl_SnapshotMatchesBackend(t *testing.T) {
	fb := fake.NewBackend(backend.NameWorkqueue)
	l := newTestLayer(t, Config{NumThreads: 8, Layer: "default"}, WithRegistry(registryOf(fb)))
	require.NoError(t, l.EnsureReady())
	ctrl := l.Control()

	var g errgroup.Group
	for i := 1; i <= 8; i++ {
		g.Go(func() error {
			for range 50 {
				if err := l.SetNumThreads(i); err != nil {
					return err
				}
				if err := ctrl.SetConfig(map[string]any{keyNumThreads: 9 - i, keyChunkSize: i}); err != nil {
					return err
				}
				if err := l.SetChunkSize(9 - i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	n, _ := l.NumThreads()
	c, _ := l.ChunkSize()
	snapshot := ctrl.GetConfig()
	assert.Equal(t, n, snapshot[keyNumThreads])
	assert.Equal(t, c, snapshot[keyChunkSize])
}

func TestControl_Probes(t *testing.T) {
	fb := fake.NewBackend(backend.NameWorkqueue)
	l := newTestLayer(t, Config{NumThreads: 3, Layer: "default", ChunkSize: 6}, WithRegistry(registryOf(fb)))

	stats := l.Control().Stats()
	assert.Equal(t, "uninitialized", stats["debug.layer.state"])
	assert.Equal(t, "", stats["debug.layer.name"])
	assert.Equal(t, 6, stats["debug.layer.chunk_size"])

	require.NoError(t, l.EnsureReady())
	stats = l.Control().Stats()
	assert.Equal(t, "ready", stats["debug.layer.state"])
	assert.Equal(t, backend.NameWorkqueue, stats["debug.layer.name"])
	assert.Equal(t, 3, stats["debug.layer.num_threads"])
	assert.Equal(t, 3, stats["debug.layer.launched_threads"])
	assert.Contains(t, stats, "debug.platform.cpus")
	assert.Contains(t, stats, "debug.platform.affinity")
}

func TestToInt(t *testing.T) {
	for _, v := range []any{7, int32(7), int64(7), uint(7), float64(7), " 7 "} {
		n, err := toInt(v)
		require.NoError(t, err, "%T", v)
		assert.Equal(t, 7, n)
	}
	for _, v := range []any{7.5, "x", true, nil} {
		_, err := toInt(v)
		assert.Error(t, err, "%T", v)
	}
}
