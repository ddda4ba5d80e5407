package storage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock(t *testing.T) {
	dir := t.TempDir()
	a := NewFileLock(dir, ".usage.lock")
	b := NewFileLock(dir, ".usage.lock")

	require.NoError(t, a.Lock())
	assert.FileExists(t, a.Path())

	ok, err := a.TryLock()
	require.NoError(t, err)
	assert.False(t, ok, "held within the process")

	require.NoError(t, a.Unlock())
	require.NoError(t, a.Unlock(), "double unlock is a no-op")

	ok, err = b.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Unlock())
}

func TestFileLock_ConcurrentUnlockReleasesOnce(t *testing.T) {
	l := NewFileLock(t.TempDir(), ".usage.lock")
	require.NoError(t, l.Lock())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Unlock())
		}()
	}
	wg.Wait()

	ok, err := l.TryLock()
	require.NoError(t, err)
	assert.True(t, ok, "lock is free after concurrent unlocks")
	require.NoError(t, l.Unlock())
}
