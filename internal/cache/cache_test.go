package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/claimcheck/internal/model"
)

func TestKey_Distinct(t *testing.T) {
	assert.NotEqual(t, Key("emb", "a", "bc"), Key("emb", "ab", "c"))
	assert.NotEqual(t, Key("emb", "a"), Key("online", "a"))
	assert.Equal(t, Key("emb", "x", "y"), Key("emb", "x", "y"))
	assert.Contains(t, Key("emb", "x"), "claimcheck:v1:emb:")
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	in := []byte("hello")
	require.NoError(t, c.Set("k", in, 0))
	in[0] = 'j'

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	key := Key("test", "a")

	require.NoError(t, c.Set(key, []byte("v"), time.Hour))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	require.NoError(t, c.Set(key, []byte("v"), time.Nanosecond))
	time.Sleep(2 * time.Millisecond)
	_, ok = c.Get(key)
	assert.False(t, ok)

	assert.NoError(t, c.Delete(key))
}

func TestLayeredCache_PromotesFromDisk(t *testing.T) {
	dir := t.TempDir()
	key := Key("test", "promote")

	disk := NewDiskCache(dir, time.Hour)
	require.NoError(t, disk.Set(key, []byte("from-disk"), 0))

	c := NewLayeredCache(time.Minute, dir, time.Hour)
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "from-disk", string(got))

	got, ok = c.memory.Get(key)
	require.True(t, ok)
	assert.Equal(t, "from-disk", string(got))
}

func TestLayeredCache_MemoryOnly(t *testing.T) {
	c := NewLayeredCache(time.Minute, "", 0)
	require.NoError(t, c.Set("k", []byte("v"), 0))
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))
	assert.NoError(t, c.Clear())
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	c := NewRedisCache(client, "t:", time.Minute)
	require.NoError(t, c.Set("a", []byte("1"), 0))
	require.NoError(t, c.Set("b", []byte("2"), 0))
	require.NoError(t, client.Set(t.Context(), "other", "x", 0).Err())

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", string(got))
	assert.True(t, mr.Exists("t:a"))

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	require.NoError(t, c.Set("c", []byte("3"), 0))
	require.NoError(t, c.Clear())
	assert.False(t, mr.Exists("t:c"))
	assert.True(t, mr.Exists("other"))
}

func TestNew_Backends(t *testing.T) {
	c, err := New(t.Context(), model.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(t.Context(), model.CacheConfig{Enabled: true, Backend: "layered", TTL: 60, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LayeredCache{}, c)

	mr := miniredis.RunT(t)
	c, err = New(t.Context(), model.CacheConfig{Enabled: true, Backend: "redis", TTL: 60, RedisAddr: mr.Addr()})
	require.NoError(t, err)
	require.IsType(t, &RedisCache{}, c)
	require.NoError(t, c.Set("k", []byte("v"), 0))
	assert.True(t, mr.Exists("claimcheck:cache:k"))

	_, err = New(t.Context(), model.CacheConfig{Enabled: true, Backend: "memcached"})
	assert.Error(t, err)
}
