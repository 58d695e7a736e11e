package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"tripnav/internal/model"
)

// redisTTL keeps stale graph versions from accumulating forever.
const redisTTL = 6 * time.Hour

// Redis is a PlanCache backed by a Redis instance, for deployments running
// several API replicas against one road dataset.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{rdb: redis.NewClient(opt)}, nil
}

func (c *Redis) Get(k Key) (model.PlanResult, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := c.rdb.Get(ctx, k.String()).Bytes()
	if err != nil {
		return model.PlanResult{}, false
	}
	var v model.PlanResult
	if err := json.Unmarshal(data, &v); err != nil {
		return model.PlanResult{}, false
	}
	return v, true
}

func (c *Redis) Put(k Key, v model.PlanResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, k.String(), data, redisTTL).Err()
}
