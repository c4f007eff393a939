package control

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_ListenerMayReadStore(t *testing.T) {
	cs := NewConfigStore()
	cs.Seed(map[string]any{"a": 1})

	var before map[string]any
	cs.OnReload(func(map[string]any) error {
		before = cs.GetSnapshot()
		return nil
	})
	require.NoError(t, cs.SetConfig(map[string]any{"a": 2}))
	assert.Equal(t, map[string]any{"a": 1}, before, "update is committed after listeners run")
	assert.Equal(t, map[string]any{"a": 2}, cs.GetSnapshot())
}

func TestConfigStore_FirstErrorStops(t *testing.T) {
	cs := NewConfigStore()
	calls := 0
	bad := errors.New("no")
	cs.OnReload(func(map[string]any) error { calls++; return bad })
	cs.OnReload(func(map[string]any) error { calls++; return nil })
	assert.ErrorIs(t, cs.SetConfig(map[string]any{"a": 1}), bad)
	assert.Equal(t, 1, calls)
	assert.Empty(t, cs.GetSnapshot())
}

func TestConfigStore_SnapshotIsCopy(t *testing.T) {
	cs := NewConfigStore()
	cs.Seed(map[string]any{"a": 1})
	snap := cs.GetSnapshot()
	snap["a"] = 99
	assert.Equal(t, 1, cs.GetSnapshot()["a"])
}

func TestMetricsRegistry_Add(t *testing.T) {
	mr := NewMetricsRegistry()
	assert.True(t, mr.Updated().IsZero())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				mr.Add("calls", 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(800), mr.GetSnapshot()["calls"])
	assert.False(t, mr.Updated().IsZero())

	mr.Set("calls", "reset")
	assert.Equal(t, int64(1), mr.Add("calls", 1))
}

func TestDebugProbes(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	dp.RegisterProbe("nested", func() any {
		dp.RegisterProbe("late", func() any { return true })
		return "ok"
	})

	state := dp.DumpState()
	assert.Equal(t, "ok", state["nested"])
	assert.Positive(t, state["platform.cpus"])
	assert.Contains(t, state, "platform.affinity")
	assert.IsType(t, map[string]bool{}, state["platform.cpu_features"])
	assert.IsType(t, uint64(0), state["platform.total_memory"])
	assert.Contains(t, dp.DumpState(), "late")
}
