package lock

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lyzr/raffle/common/logger"
	"github.com/lyzr/raffle/common/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerExclusive(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	release, err := l.Acquire(ctx, "generation", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "generation", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	// other keys are independent
	releaseOther, err := l.Acquire(ctx, "other", time.Minute)
	require.NoError(t, err)
	releaseOther()

	release()
	release()

	again, err := l.Acquire(ctx, "generation", time.Minute)
	require.NoError(t, err)
	again()
}

func TestLocalLockerExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.now = func() time.Time { return now }

	stale, err := l.Acquire(ctx, "generation", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := l.Acquire(ctx, "generation", time.Minute)
	require.NoError(t, err)

	// the stale holder must not drop the new hold
	stale()
	_, err = l.Acquire(ctx, "generation", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	fresh()
}

func TestLocalLockerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalLocker().Acquire(ctx, "generation", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalLockerSingleWinner(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Acquire(ctx, "generation", time.Minute); err == nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := goredis.NewClient(&goredis.Options{Addr: "localhost:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("redis not available: %v", err)
	}
	log := logger.NewWithWriter(io.Discard, "error", "json")
	client := redis.NewClient(rdb, log)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLocker(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()
	log := logger.NewWithWriter(io.Discard, "error", "json")
	key := "test-generation-" + time.Now().Format("150405.000000000")

	first := NewRedisLocker(client, log)
	second := NewRedisLocker(client, log)

	release, err := first.Acquire(ctx, key, 5*time.Second)
	require.NoError(t, err)

	_, err = second.Acquire(ctx, key, 5*time.Second)
	assert.ErrorIs(t, err, ErrLockHeld)

	release()

	releaseSecond, err := second.Acquire(ctx, key, 5*time.Second)
	require.NoError(t, err)

	// a second release from the first holder must not drop the new owner
	release()
	_, err = first.Acquire(ctx, key, 5*time.Second)
	assert.ErrorIs(t, err, ErrLockHeld)

	releaseSecond()
}
