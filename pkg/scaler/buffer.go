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

package scaler

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
)

// SampleBuffer collects the samples of the producers between two ticks. Add
// never waits on a tick: Drain swaps the pending slice for an empty one under
// the lock and works on the old slice afterwards.
type SampleBuffer struct {
	lock    sync.Mutex
	samples []v1alpha1.Sample
	added   *atomic.Uint64
	drained *atomic.Uint64
}

func NewSampleBuffer() *SampleBuffer {
	return &SampleBuffer{
		added:   atomic.NewUint64(0),
		drained: atomic.NewUint64(0),
	}
}

// Add appends samples, it is safe for concurrent use.
func (b *SampleBuffer) Add(samples ...v1alpha1.Sample) {
	if len(samples) == 0 {
		return
	}
	b.lock.Lock()
	b.samples = append(b.samples, samples...)
	b.lock.Unlock()
	b.added.Add(uint64(len(samples)))
}

// Drain returns every sample added since the previous Drain.
func (b *SampleBuffer) Drain() []v1alpha1.Sample {
	b.lock.Lock()
	r := b.samples
	b.samples = nil
	b.lock.Unlock()
	b.drained.Add(uint64(len(r)))
	return r
}

// Len returns the number of pending samples.
func (b *SampleBuffer) Len() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.samples)
}

// Added returns the number of samples ever added.
func (b *SampleBuffer) Added() uint64 {
	return b.added.Load()
}

// Drained returns the number of samples ever drained.
func (b *SampleBuffer) Drained() uint64 {
	return b.drained.Load()
}
