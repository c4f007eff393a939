package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/threadlayer/api"
)

func TestWorkers_EnterLeave(t *testing.T) {
	var ids Workers
	assert.Equal(t, api.NotWorkerThread, ids.Current())

	var wg sync.WaitGroup
	got := make([]int, 4)
	for i := range got {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			leave := ids.Enter(id)
			defer leave()
			got[id-1] = ids.Current()
		}(i + 1)
	}
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3, 4}, got)
	assert.Equal(t, api.NotWorkerThread, ids.Current())
}

func TestWorkers_ScopedPerBackend(t *testing.T) {
	var a, b Workers
	done := make(chan [2]int)
	go func() {
		leave := a.Enter(7)
		defer leave()
		done <- [2]int{a.Current(), b.Current()}
	}()
	ids := <-done
	assert.Equal(t, 7, ids[0])
	assert.Equal(t, api.NotWorkerThread, ids[1])
}
