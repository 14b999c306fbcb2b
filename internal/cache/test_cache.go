package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ipasurvey/internal/model"

	"github.com/redis/go-redis/v9"
)

// TestCache keeps recently read tests so submission bursts do not hit Mongo
// for every existence check
type TestCache interface {
	Get(ctx context.Context, id string) (*model.Test, error)
	Set(ctx context.Context, test *model.Test) error
	Delete(ctx context.Context, id string) error
}

type testCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTestCache creates a new test cache
func NewTestCache(client *redis.Client, ttl time.Duration) TestCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &testCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *testCache) key(id string) string {
	return fmt.Sprintf("test:%s", id)
}

func (c *testCache) Get(ctx context.Context, id string) (*model.Test, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var test model.Test
	if err := json.Unmarshal(data, &test); err != nil {
		return nil, err
	}
	return &test, nil
}

func (c *testCache) Set(ctx context.Context, test *model.Test) error {
	data, err := json.Marshal(test)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(test.ID), data, c.ttl).Err()
}

func (c *testCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
