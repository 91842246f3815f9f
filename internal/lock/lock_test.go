package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLockUnlock(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	l := NewLocker(client, "record:rec_1", "worker-a")
	require.NoError(t, l.Lock(ctx, time.Minute))

	// second holder cannot take the same key
	other := NewLocker(client, "record:rec_1", "worker-b")
	assert.Error(t, other.Lock(ctx, time.Minute))

	require.NoError(t, l.Unlock(ctx))
	assert.NoError(t, other.Lock(ctx, time.Minute))
}

func TestUnlock_WrongHolder(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	l := NewLocker(client, "record:rec_2", "worker-a")
	require.NoError(t, l.Lock(ctx, time.Minute))

	imposter := NewLocker(client, "record:rec_2", "worker-b")
	assert.Error(t, imposter.Unlock(ctx))
}

func TestExtendLock(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	l := NewLocker(client, "record:rec_3", "worker-a")
	require.NoError(t, l.Lock(ctx, time.Second))
	assert.NoError(t, l.ExtendLock(ctx, time.Minute))
}

func TestWaitLock_ContextCancelled(t *testing.T) {
	client := newTestClient(t)

	held := NewLocker(client, "record:rec_4", "worker-a")
	require.NoError(t, held.Lock(context.Background(), time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	waiter := NewLocker(client, "record:rec_4", "worker-b")
	assert.Error(t, waiter.WaitLock(ctx, time.Minute, time.Second))
}
