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

// Package redis polls samples that workers push to a redis list.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/numaproj/qos-scaler/pkg/shared/logging"
	"github.com/numaproj/qos-scaler/pkg/sources"
)

const Transport = "redis"

// Popper removes a batch of entries from the head of a list.
type Popper interface {
	PopBatch(ctx context.Context, key string, count int) ([]string, error)
}

type redisSource struct {
	client       Popper
	key          string
	batchSize    int
	pollInterval time.Duration
	ingester     *sources.Ingester
	logger       *zap.SugaredLogger
}

var _ sources.Source = (*redisSource)(nil)

type Option func(*redisSource)

// WithBatchSize sets the number of entries popped at once.
func WithBatchSize(n int) Option {
	return func(o *redisSource) {
		o.batchSize = n
	}
}

// WithPollInterval sets the wait between two polls of an empty list.
func WithPollInterval(d time.Duration) Option {
	return func(o *redisSource) {
		o.pollInterval = d
	}
}

// New returns a source popping samples from the list at key.
func New(ctx context.Context, client Popper, key string, ingester *sources.Ingester, opts ...Option) (*redisSource, error) {
	r := &redisSource{
		client:       client,
		key:          key,
		batchSize:    100,
		pollInterval: time.Second,
		ingester:     ingester,
		logger:       logging.FromContext(ctx).Named("redis-source"),
	}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	if r.key == "" {
		return nil, errors.New("redis source requires a list key")
	}
	if r.batchSize <= 0 {
		return nil, fmt.Errorf("invalid batch size %d", r.batchSize)
	}
	if r.pollInterval <= 0 {
		return nil, fmt.Errorf("invalid poll interval %v", r.pollInterval)
	}
	return r, nil
}

// Start polls the list until the context is cancelled. A full batch is
// followed by another pop right away so a backlog is drained quickly.
func (rs *redisSource) Start(ctx context.Context) error {
	ctx = logging.WithLogger(ctx, rs.logger)
	ticker := time.NewTicker(rs.pollInterval)
	defer ticker.Stop()
	for {
		rs.drain(ctx)
		select {
		case <-ctx.Done():
			rs.logger.Info("Stopped redis source")
			return nil
		case <-ticker.C:
		}
	}
}

func (rs *redisSource) drain(ctx context.Context) {
	for ctx.Err() == nil {
		entries, err := rs.client.PopBatch(ctx, rs.key, rs.batchSize)
		if err != nil {
			if ctx.Err() == nil {
				rs.logger.Warnw("Failed to poll samples", zap.String("key", rs.key), zap.Error(err))
			}
			return
		}
		for _, e := range entries {
			rs.ingester.Ingest(ctx, []byte(e))
		}
		if len(entries) < rs.batchSize {
			return
		}
	}
}
