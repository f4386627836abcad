package locks

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLockSerializesSameKey(t *testing.T) {
	registry := NewRegistry()

	var active int32
	var overlapped int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = registry.WithLock("batch-1", func() error {
				if atomic.AddInt32(&active, 1) > 1 {
					atomic.StoreInt32(&overlapped, 1)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}

	wg.Wait()
	assert.Zero(t, overlapped, "two holders inside the same batch lock")
}

func TestWithLockDifferentKeysDoNotContend(t *testing.T) {
	registry := NewRegistry()

	release := make(chan struct{})
	held := make(chan struct{})

	go func() {
		_ = registry.WithLock("batch-a", func() error {
			close(held)
			<-release
			return nil
		})
	}()

	<-held

	done := make(chan struct{})
	go func() {
		_ = registry.WithLock("batch-b", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated batch blocked behind another batch's lock")
	}
	close(release)
}

func TestWithLockReleasesOnError(t *testing.T) {
	registry := NewRegistry()

	err := registry.WithLock("batch-1", func() error {
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	// Lock must be free again.
	reacquired := make(chan struct{})
	go func() {
		_ = registry.WithLock("batch-1", func() error { return nil })
		close(reacquired)
	}()

	select {
	case <-reacquired:
	case <-time.After(time.Second):
		t.Fatal("lock not released after error")
	}
}

func TestDrop(t *testing.T) {
	registry := NewRegistry()

	_ = registry.WithLock("batch-1", func() error { return nil })
	_ = registry.WithLock("batch-2", func() error { return nil })
	require.Equal(t, 2, registry.Len())

	registry.Drop("batch-1")
	assert.Equal(t, 1, registry.Len())

	// Dropping an unknown key is a no-op.
	registry.Drop("batch-404")
	assert.Equal(t, 1, registry.Len())
}
