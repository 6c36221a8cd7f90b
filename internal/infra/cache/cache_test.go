package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, "value1", val)
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	_, ok := c.Get("nonexistent")
	assert.False(t, ok)
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	assert.False(t, ok, "expected cache entry to be expired")
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	assert.False(t, ok)
}

func TestCache_GetOrLoadCollapsesConcurrentMisses(t *testing.T) {
	c := cache.New[*domain.Province](time.Minute)
	defer c.Close()

	var loads int32
	release := make(chan struct{})
	load := func(context.Context) (*domain.Province, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return &domain.Province{ID: "prov-hav", Name: "La Habana"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, _, err := c.GetOrLoad(context.Background(), "prov-hav", load)
			if assert.NoError(t, err) {
				assert.Equal(t, "La Habana", p.Name)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))

	_, hit, err := c.GetOrLoad(context.Background(), "prov-hav", load)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestCache_GetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := cache.New[string](time.Minute)
	defer c.Close()

	_, _, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) {
		return "", errors.New("down")
	})
	require.Error(t, err)

	_, ok := c.Get("k")
	assert.False(t, ok)
}
