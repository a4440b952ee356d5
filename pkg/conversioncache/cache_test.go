package conversioncache

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetMiss(t *testing.T) {
	c := New(t.TempDir())
	_, ok, err := c.Get(Key{BookID: "1", TargetFormat: "pdf"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_PutThenGet(t *testing.T) {
	dir := t.TempDir()
	c := New(filepath.Join(dir, "cache"))

	src := filepath.Join(dir, "source.pdf")
	require.NoError(t, os.WriteFile(src, []byte("content"), 0o644))

	key := Key{BookID: "42", TargetFormat: "pdf"}
	dest, err := c.Put(key, src)
	require.NoError(t, err)

	_, statErr := os.Stat(src)
	assert.True(t, os.IsNotExist(statErr), "source should be moved, not copied")

	path, ok, err := c.Get(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, dest, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestCache_PutOverwritesPriorArtifact(t *testing.T) {
	dir := t.TempDir()
	c := New(filepath.Join(dir, "cache"))
	key := Key{BookID: "1", TargetFormat: "epub"}

	src1 := filepath.Join(dir, "v1.epub")
	require.NoError(t, os.WriteFile(src1, []byte("first"), 0o644))
	_, err := c.Put(key, src1)
	require.NoError(t, err)

	src2 := filepath.Join(dir, "v2.epub")
	require.NoError(t, os.WriteFile(src2, []byte("second"), 0o644))
	_, err = c.Put(key, src2)
	require.NoError(t, err)

	path, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestCache_GetOrConvert_GeneratesOnMiss(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	key := Key{BookID: "1", TargetFormat: "pdf"}

	var calls int32
	generate := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		path := filepath.Join(dir, "generated.pdf")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		return path, nil
	}

	path, err := c.GetOrConvert(context.Background(), key, generate)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCache_GetOrConvert_SingleFlight(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	key := Key{BookID: "1", TargetFormat: "pdf"}

	var calls int32
	start := make(chan struct{})

	generate := func(ctx context.Context) (string, error) {
		<-start
		n := atomic.AddInt32(&calls, 1)
		path := filepath.Join(dir, "gen", time.Now().Format("150405")+"-"+strconv.Itoa(int(n))+".pdf")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		return path, nil
	}

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			path, err := c.GetOrConvert(context.Background(), key, generate)
			assert.NoError(t, err)
			results[idx] = path
		}(i)
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "exactly one underlying conversion should run")
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}
