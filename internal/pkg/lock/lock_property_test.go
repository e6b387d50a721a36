package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestProperty_SerialisesPerKey checks that concurrent read-modify-write
// sequences on one key never interleave, and that idle keys are dropped.
func TestProperty_SerialisesPerKey(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")
		keys := rapid.IntRange(1, 3).Draw(t, "keys")

		kl := NewKeyedLock()
		counters := make([]int, keys)

		var wg sync.WaitGroup
		for i := 0; i < numOps; i++ {
			for k := 0; k < keys; k++ {
				wg.Add(1)
				go func(key int) {
					defer wg.Done()
					_ = kl.WithLock(context.Background(), int64(key), 0, func() error {
						v := counters[key]
						time.Sleep(time.Microsecond)
						counters[key] = v + 1
						return nil
					})
				}(k)
			}
		}
		wg.Wait()

		for k, c := range counters {
			if c != numOps {
				t.Fatalf("key %d: counter %d, want %d", k, c, numOps)
			}
		}
		if kl.Len() != 0 {
			t.Fatalf("%d idle keys left in the map", kl.Len())
		}
	})
}

func TestKeyedLock_Timeout(t *testing.T) {
	kl := NewKeyedLock()
	require.NoError(t, kl.Lock(context.Background(), 1))

	err := kl.WithLock(context.Background(), 1, 20*time.Millisecond, func() error {
		t.Fatal("must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)

	// other keys are independent
	assert.True(t, kl.TryLock(2))
	kl.Unlock(2)

	kl.Unlock(1)
	assert.Zero(t, kl.Len())
}

func TestKeyedLock_TryLock(t *testing.T) {
	kl := NewKeyedLock()
	assert.True(t, kl.TryLock(5))
	assert.False(t, kl.TryLock(5))
	kl.Unlock(5)
	assert.True(t, kl.TryLock(5))
	kl.Unlock(5)
	assert.Zero(t, kl.Len())
}

func TestKeyedLock_UnlockUnheldPanics(t *testing.T) {
	kl := NewKeyedLock()
	assert.Panics(t, func() { kl.Unlock(9) })
}
