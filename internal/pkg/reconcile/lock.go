package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/AlunoSync/AlunoSync/internal/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// syncLeaseTTL caps how long a crashed run can block the next one.
const syncLeaseTTL = 10 * time.Minute

// SyncLock is a per-user Redis lease (SET NX) so a manual trigger and a
// scheduled run for the same account never interleave. Without a Redis
// client the lock degrades to a no-op.
type SyncLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSyncLock() *SyncLock {
	return &SyncLock{client: cache.GetClient(), ttl: syncLeaseTTL}
}

func syncLeaseKey(userID uint) string {
	return fmt.Sprintf("sync:lease:%d", userID)
}

func (l *SyncLock) Acquire(ctx context.Context, userID uint) (bool, error) {
	if l.client == nil {
		return true, nil
	}
	return l.client.SetNX(ctx, syncLeaseKey(userID), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
}

func (l *SyncLock) Release(ctx context.Context, userID uint) {
	if l.client == nil {
		return
	}
	l.client.Del(ctx, syncLeaseKey(userID))
}
