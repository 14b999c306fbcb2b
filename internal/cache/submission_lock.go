package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SubmissionLock serializes in-flight submissions for the same (test, user).
// Losing the lock is not a conflict by itself; the unique index on
// responses remains the source of truth.
type SubmissionLock interface {
	// Acquire returns acquired=false when another submission holds the lock.
	// The returned release func is safe to call once acquired is true.
	Acquire(ctx context.Context, testID, userID string) (release func(), acquired bool, err error)
}

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type submissionLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubmissionLock creates a Redis backed submission lock
func NewSubmissionLock(client *redis.Client, ttl time.Duration) SubmissionLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &submissionLock{
		client: client,
		ttl:    ttl,
	}
}

func (l *submissionLock) key(testID, userID string) string {
	return fmt.Sprintf("submit:%s:%s", testID, userID)
}

func (l *submissionLock) Acquire(ctx context.Context, testID, userID string) (func(), bool, error) {
	key := l.key(testID, userID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// detached from the request so a cancelled client still frees the key
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
