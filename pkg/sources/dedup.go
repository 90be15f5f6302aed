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

package sources

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
)

const defaultDedupCacheSize = 10000

// Deduper remembers the latest samples by stage, worker and timestamp so
// that a redelivered sample is counted once.
type Deduper struct {
	cache *lru.Cache[string, struct{}]
}

// NewDeduper returns a deduper remembering up to size samples.
func NewDeduper(size int) (*Deduper, error) {
	if size <= 0 {
		size = defaultDedupCacheSize
	}
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedup cache, %w", err)
	}
	return &Deduper{cache: cache}, nil
}

// Seen records the sample and returns true if it was recorded before.
func (d *Deduper) Seen(s v1alpha1.Sample) bool {
	key := fmt.Sprintf("%s/%s/%d", s.StageID, s.WorkerID, s.Timestamp.UnixNano())
	found, _ := d.cache.ContainsOrAdd(key, struct{}{})
	return found
}
