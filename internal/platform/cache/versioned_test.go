package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Versioned, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "test", time.Minute), mr
}

func TestVersionedFetchUsesCacheUntilBump(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	var calls atomic.Int32
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return []string{"Y001", "Y002"}, nil
	}

	key, ver, err := c.BuildKey(ctx, "yarn-codes", "list", "all")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)
	assert.Equal(t, "test:yarn-codes:list:all:v1", key)

	var got []string
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, []string{"Y001", "Y002"}, got)
	assert.Equal(t, int32(1), calls.Load())

	newVer, err := c.Bump(ctx, "yarn-codes")
	require.NoError(t, err)
	assert.Equal(t, int64(2), newVer)

	key, _, err = c.BuildKey(ctx, "yarn-codes", "list", "all")
	require.NoError(t, err)
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, int32(2), calls.Load())
}

func TestVersionedNamespacesAreIndependent(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	_, err := c.Bump(ctx, "item-codes")
	require.NoError(t, err)

	ver, err := c.Version(ctx, "yarn-codes")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ver)
}

func TestVersionedWithoutClientCallsLoader(t *testing.T) {
	c := NewVersioned(nil, "", time.Minute)
	var got map[string]int
	err := c.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) {
		return map[string]int{"a": 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got["a"])

	ver, err := c.Bump(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)
	ver, err = c.Version(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, int64(2), ver)
}

func TestListenForInvalidation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, _ := newTestCache(t)

	got := make(chan string, 1)
	require.NoError(t, c.ListenForInvalidation(ctx, func(ns string, ver int64) {
		if ver == 1 {
			got <- ns
		}
	}))

	_, err := c.Bump(ctx, "client-codes")
	require.NoError(t, err)

	select {
	case ns := <-got:
		assert.Equal(t, "client-codes", ns)
	case <-time.After(2 * time.Second):
		t.Fatal("bump notification not received")
	}
}
