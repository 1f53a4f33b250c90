package counter

import (
	"context"
	"strconv"

	"github.com/AlunoSync/AlunoSync/internal/pkg/cache"
)

const (
	syncCountersKey  = "sync:counters"
	sweepCountersKey = "sweep:counters"
)

// Sync counter fields.
const (
	FieldSalesProcessed  = "sales_processed"
	FieldStudentsCreated = "students_created"
	FieldStudentsUpdated = "students_updated"
	FieldSyncErrors      = "sync_errors"
	FieldWebhooksHandled = "webhooks_handled"
	FieldWebhooksIgnored = "webhooks_ignored"
)

// Sweep counter fields.
const (
	FieldMembersChecked = "members_checked"
	FieldMembersRemoved = "members_removed"
	FieldMembersKept    = "members_kept"
	FieldSweepErrors    = "sweep_errors"
)

// AddSync increments a sync counter in Redis. Metrics are best effort: a nil
// cache client or a Redis error never fails the caller.
func AddSync(field string, n int) {
	addHash(syncCountersKey, field, n)
}

// AddSweep increments a sweep counter in Redis.
func AddSweep(field string, n int) {
	addHash(sweepCountersKey, field, n)
}

func addHash(key, field string, n int) {
	if n == 0 {
		return
	}
	rdb := cache.GetClient()
	if rdb == nil {
		return
	}
	_ = rdb.HIncrBy(context.Background(), key, field, int64(n)).Err()
}

// Snapshot returns the current sync and sweep counters.
func Snapshot() (map[string]int64, error) {
	rdb := cache.GetClient()
	if rdb == nil {
		return map[string]int64{}, nil
	}
	ctx := context.Background()

	out := make(map[string]int64)
	for _, key := range []string{syncCountersKey, sweepCountersKey} {
		data, err := rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		for field, v := range data {
			n, perr := strconv.ParseInt(v, 10, 64)
			if perr != nil {
				continue
			}
			out[field] = n
		}
	}
	return out, nil
}
