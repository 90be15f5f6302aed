/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package redis wraps the redis client used by the list-based sample source.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisClient datatype to hold redis client attributes.
type RedisClient struct {
	Client redis.UniversalClient
}

// NewRedisClient returns a new Redis Client. One address gives a single-node
// client, several give a cluster client, and a master name gives a failover
// client.
func NewRedisClient(options *redis.UniversalOptions) *RedisClient {
	client := new(RedisClient)
	client.Client = redis.NewUniversalClient(options)
	return client
}

// PopBatch removes and returns up to count entries from the head of a list.
// A missing key is an empty batch.
func (cl *RedisClient) PopBatch(ctx context.Context, key string, count int) ([]string, error) {
	vals, err := cl.Client.LPopCount(ctx, key, count).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop from list %q, %w", key, err)
	}
	return vals, nil
}

// Push appends entries to the tail of a list.
func (cl *RedisClient) Push(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return cl.Client.RPush(ctx, key, args...).Err()
}

// Close closes the client.
func (cl *RedisClient) Close() error {
	return cl.Client.Close()
}
