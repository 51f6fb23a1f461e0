package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLockAndUnlock(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	locker := NewLocker(client, "lock:lp_1", "holder-a")
	assert.NoError(t, locker.Lock(ctx, time.Minute))

	// A second holder cannot take the same key while it is held.
	other := NewLocker(client, "lock:lp_1", "holder-b")
	assert.Error(t, other.Lock(ctx, time.Minute))

	assert.NoError(t, locker.Unlock(ctx))
	assert.NoError(t, other.Lock(ctx, time.Minute))
}

func TestUnlockRequiresHolder(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	locker := NewLocker(client, "lock:lp_2", "holder-a")
	assert.NoError(t, locker.Lock(ctx, time.Minute))

	impostor := NewLocker(client, "lock:lp_2", "holder-b")
	assert.Error(t, impostor.Unlock(ctx))

	// The real holder can still release it.
	assert.NoError(t, locker.Unlock(ctx))
}

func TestWaitLockAcquiresAfterRelease(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	first := NewLocker(client, "lock:lp_3", "holder-a")
	assert.NoError(t, first.Lock(ctx, time.Minute))

	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = first.Unlock(ctx)
	}()

	second := NewLocker(client, "lock:lp_3", "holder-b")
	assert.NoError(t, second.WaitLock(ctx, time.Minute, 2*time.Second))
}

func TestWaitLockTimesOut(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	first := NewLocker(client, "lock:lp_4", "holder-a")
	assert.NoError(t, first.Lock(ctx, time.Minute))

	second := NewLocker(client, "lock:lp_4", "holder-b")
	assert.Error(t, second.WaitLock(ctx, time.Minute, 300*time.Millisecond))
}
