package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis starts an in-memory redis and a client connected to it.
func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Ping(context.Background()).Err())

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedis(client, time.Minute, nil), mr
}

func TestAcquireSave_SecondSaveRejected(t *testing.T) {
	r, _ := setupTestRedis(t)
	ctx := context.Background()

	ok, err := r.AcquireSave(ctx, "ev-1", "save-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.AcquireSave(ctx, "ev-1", "save-b")
	require.NoError(t, err)
	assert.False(t, ok, "a second save for the same event must be rejected")

	// Other events are independent.
	ok, err = r.AcquireSave(ctx, "ev-2", "save-c")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseSave_OnlyOwnerReleases(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()

	ok, err := r.AcquireSave(ctx, "ev-1", "owner")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, r.ReleaseSave(ctx, "ev-1", "intruder"))
	assert.True(t, mr.Exists(saveKey("ev-1")))

	require.NoError(t, r.ReleaseSave(ctx, "ev-1", "owner"))
	assert.False(t, mr.Exists(saveKey("ev-1")))

	// Releasing an absent marker is a no-op.
	assert.NoError(t, r.ReleaseSave(ctx, "ev-1", "owner"))
}

func TestAcquireSave_MarkerExpires(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()

	ok, err := r.AcquireSave(ctx, "ev-1", "crashed-save")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = r.AcquireSave(ctx, "ev-1", "next-save")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquireSave_ConcurrentSavesOneWinner(t *testing.T) {
	r, _ := setupTestRedis(t)
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := r.AcquireSave(ctx, "ev-race", fmt.Sprintf("save-%d", n))
			if err == nil && ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestReviewed_MarkUnmark(t *testing.T) {
	r, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.MarkReviewed(ctx, "m1"))
	require.NoError(t, r.MarkReviewed(ctx, "m2"))
	require.NoError(t, r.MarkReviewed(ctx, "m1"))

	set, err := r.Reviewed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, set.IDs())

	require.NoError(t, r.UnmarkReviewed(ctx, "m1"))
	set, err = r.Reviewed(ctx)
	require.NoError(t, err)
	assert.False(t, set.Contains("m1"))
	assert.True(t, set.Contains("m2"))
}
