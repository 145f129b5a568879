package locks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLockerAcquireAndRelease(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLocker(client, WithTTL(5*time.Second), WithRetryInterval(5*time.Millisecond))
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "checkpoint-seq:shp-1:dir-1")
	require.NoError(t, err)

	assert.True(t, mr.Exists("lock:checkpoint-seq:shp-1:dir-1"))
	assert.Equal(t, 5*time.Second, mr.TTL("lock:checkpoint-seq:shp-1:dir-1"))

	unlock()
	assert.False(t, mr.Exists("lock:checkpoint-seq:shp-1:dir-1"))
}

func TestRedisLockerWaitsForHolder(t *testing.T) {
	_, client := newTestRedis(t)
	l := NewRedisLocker(client, WithRetryInterval(5*time.Millisecond))
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := l.Lock(ctx, "k")
		if err == nil {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first is held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second lock not acquired after release")
	}
}

func TestRedisLockerHonorsContext(t *testing.T) {
	_, client := newTestRedis(t)
	l := NewRedisLocker(client, WithRetryInterval(5*time.Millisecond))

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "k")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRedisLockerExpiredHolderCannotReleaseNewLease(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLocker(client, WithTTL(time.Second), WithRetryInterval(5*time.Millisecond))
	ctx := context.Background()

	stale, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists("lock:k"))

	fresh, err := l.Lock(ctx, "k")
	require.NoError(t, err)
	defer fresh()

	stale()
	assert.True(t, mr.Exists("lock:k"))
}

func TestRedisLockerReportsConnectionErrors(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLocker(client)
	mr.Close()

	_, err := l.Lock(context.Background(), "k")
	assert.Error(t, err)
}

func TestRedisLockerRenewsLeaseWhileHeld(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedisLocker(client, WithTTL(300*time.Millisecond), WithRetryInterval(5*time.Millisecond))
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	// Outlive the original TTL several times over; the holder keeps the key
	// and a competing caller cannot take it.
	for i := 0; i < 4; i++ {
		time.Sleep(150 * time.Millisecond)
		mr.FastForward(100 * time.Millisecond)
		require.True(t, mr.Exists("lock:k"), "lease expired on step %d", i)
	}

	tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(tctx, "k")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	unlock()
	assert.False(t, mr.Exists("lock:k"))
}
