package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCachesPositiveResults(t *testing.T) {
	c := New(Options{TTL: time.Minute})
	var loads int32

	loader := func(ctx context.Context, key string) (interface{}, bool, error) {
		atomic.AddInt32(&loads, 1)
		return "value-" + key, true, nil
	}

	for i := 0; i < 5; i++ {
		val, ok, err := c.Get(context.Background(), "a", loader)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "value-a", val)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestGetNegativeCaching(t *testing.T) {
	c := New(Options{TTL: time.Minute, NegativeTTL: time.Minute})
	var loads int32
	wantErr := errors.New("not found")

	loader := func(ctx context.Context, key string) (interface{}, bool, error) {
		atomic.AddInt32(&loads, 1)
		return nil, false, wantErr
	}

	for i := 0; i < 3; i++ {
		_, ok, err := c.Get(context.Background(), "missing", loader)
		assert.False(t, ok)
		assert.ErrorIs(t, err, wantErr)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestGetDoesNotStoreNegativesWithoutNegativeTTL(t *testing.T) {
	c := New(Options{TTL: time.Minute})
	var loads int32

	loader := func(ctx context.Context, key string) (interface{}, bool, error) {
		atomic.AddInt32(&loads, 1)
		return nil, false, nil
	}

	_, ok, _ := c.Get(context.Background(), "k", loader)
	assert.False(t, ok)
	_, ok, _ = c.Get(context.Background(), "k", loader)
	assert.False(t, ok)

	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestGetCollapsesConcurrentLoads(t *testing.T) {
	c := New(Options{TTL: time.Minute})
	var loads int32
	gate := make(chan struct{})

	loader := func(ctx context.Context, key string) (interface{}, bool, error) {
		atomic.AddInt32(&loads, 1)
		<-gate
		return "v", true, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, ok, err := c.Get(context.Background(), "hot", loader)
			assert.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v", val)
		}()
	}

	// Let all goroutines pile up on the singleflight before releasing
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestEvictionCapsEntries(t *testing.T) {
	c := New(Options{TTL: time.Minute, MaxEntries: 2})

	loader := func(ctx context.Context, key string) (interface{}, bool, error) {
		return key, true, nil
	}

	keys := []string{"a", "b", "c", "d"}
	for _, k := range keys {
		_, _, _ = c.Get(context.Background(), k, loader)
	}

	assert.LessOrEqual(t, c.Len(), 2)
}

func TestInvalidateForcesReload(t *testing.T) {
	c := New(Options{TTL: time.Minute})
	var loads int32

	loader := func(ctx context.Context, key string) (interface{}, bool, error) {
		atomic.AddInt32(&loads, 1)
		return "v", true, nil
	}

	_, _, _ = c.Get(context.Background(), "k", loader)
	c.Invalidate("k")
	_, _, _ = c.Get(context.Background(), "k", loader)

	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestGetConcurrentHitsOneKey(t *testing.T) {
	c := New(Options{TTL: time.Minute})
	var loads int32

	loader := func(ctx context.Context, key string) (interface{}, bool, error) {
		atomic.AddInt32(&loads, 1)
		return "hot", true, nil
	}

	_, _, err := c.Get(context.Background(), "k", loader)
	require.NoError(t, err)

	// Cache hits take only the read lock, so hot-key traffic must not
	// mutate the shared entry.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				val, ok, err := c.Get(context.Background(), "k", loader)
				assert.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, "hot", val)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}
