package scheduler

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockRegistry_TryAcquire(t *testing.T) {
	registry := NewLockRegistry()

	release, ok := registry.TryAcquire(LedgerWriterLock)
	require.True(t, ok)
	require.NotNil(t, release)

	// A second attempt while held must not block.
	again, ok := registry.TryAcquire(LedgerWriterLock)
	assert.False(t, ok)
	assert.Nil(t, again)

	release()

	release, ok = registry.TryAcquire(LedgerWriterLock)
	require.True(t, ok)
	release()
}

func TestLockRegistry_NamesAreIndependent(t *testing.T) {
	registry := NewLockRegistry()

	releaseA, ok := registry.TryAcquire("a")
	require.True(t, ok)
	defer releaseA()

	releaseB, ok := registry.TryAcquire("b")
	require.True(t, ok)
	releaseB()
}

func TestLockRegistry_AcquireSerializes(t *testing.T) {
	registry := NewLockRegistry()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := registry.Acquire(LedgerWriterLock)
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, counter)
}
