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

package redis

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyHook answers commands without a server.
type replyHook struct {
	reply func(cmd redis.Cmder)
	seen  []string
}

func (h *replyHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("no server in tests")
	}
}

func (h *replyHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.seen = append(h.seen, cmd.Name())
		h.reply(cmd)
		return cmd.Err()
	}
}

func (h *replyHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func newHookedClient(t *testing.T, reply func(cmd redis.Cmder)) (*RedisClient, *replyHook) {
	t.Helper()
	client := NewRedisClient(&redis.UniversalOptions{Addrs: []string{"127.0.0.1:6379"}})
	hook := &replyHook{reply: reply}
	client.Client.AddHook(hook)
	t.Cleanup(func() { _ = client.Close() })
	return client, hook
}

func TestPopBatch(t *testing.T) {
	client, hook := newHookedClient(t, func(cmd redis.Cmder) {
		cmd.(*redis.StringSliceCmd).SetVal([]string{"a", "b"})
	})
	vals, err := client.PopBatch(context.Background(), "samples", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, vals)
	assert.Equal(t, []string{"lpop"}, hook.seen)
}

func TestPopBatch_MissingKey(t *testing.T) {
	client, _ := newHookedClient(t, func(cmd redis.Cmder) {
		cmd.SetErr(redis.Nil)
	})
	vals, err := client.PopBatch(context.Background(), "samples", 10)
	assert.NoError(t, err)
	assert.Empty(t, vals)
}

func TestPopBatch_Error(t *testing.T) {
	client, _ := newHookedClient(t, func(cmd redis.Cmder) {
		cmd.SetErr(errors.New("LOADING"))
	})
	_, err := client.PopBatch(context.Background(), "samples", 10)
	assert.ErrorContains(t, err, "LOADING")
}

func TestPush(t *testing.T) {
	client, hook := newHookedClient(t, func(cmd redis.Cmder) {
		cmd.(*redis.IntCmd).SetVal(2)
	})
	assert.NoError(t, client.Push(context.Background(), "samples", "a", "b"))
	assert.Equal(t, []string{"rpush"}, hook.seen)
}

func TestRedisClient_AgainstServer(t *testing.T) {
	t.SkipNow() // needs a redis server on localhost:6379
	ctx := context.Background()
	client := NewRedisClient(&redis.UniversalOptions{Addrs: []string{":6379"}})
	defer func() { _ = client.Close() }()
	require.NoError(t, client.Push(ctx, "qos-scaler-test", "1", "2", "3"))
	vals, err := client.PopBatch(ctx, "qos-scaler-test", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, vals)
}
