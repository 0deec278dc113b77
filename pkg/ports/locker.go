package ports

import (
	"context"
	"time"
)

// DefaultLockTTL bounds how long a crashed replica can keep a document locked.
const DefaultLockTTL = 30 * time.Second

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes edits of one document across replicas.
type DistributedLocker interface {
	// Lock blocks until key is held, ctx is done or the implementation gives up.
	// The lock expires after ttl even if the returned UnlockFunc is never called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
