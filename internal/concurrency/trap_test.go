package concurrency

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/threadlayer/api"
)

func TestPanicTrap_NoPanic(t *testing.T) {
	var trap PanicTrap
	ran := false
	trap.Run(1, func() { ran = true })
	assert.True(t, ran)
	assert.NotPanics(t, trap.Rethrow)
}

func TestPanicTrap_FirstPanicWins(t *testing.T) {
	var trap PanicTrap
	boom := errors.New("boom")

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trap.Run(i+1, func() { panic(boom) })
		}()
	}
	wg.Wait()

	defer func() {
		r := recover()
		require.NotNil(t, r)
		kp, ok := r.(*api.KernelPanic)
		require.True(t, ok, "unexpected panic value %T", r)
		assert.ErrorIs(t, kp, boom)
		assert.NotEmpty(t, kp.Stack)
		assert.GreaterOrEqual(t, kp.ThreadID, 1)
	}()
	trap.Rethrow()
}
