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

package optimize

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/topology"
)

// ErrUnknownEngine is returned by New for a name nothing registered.
var ErrUnknownEngine = errors.New("unknown decision engine")

// Engine turns the samples of one tick into a Decision. An Engine is called
// from a single goroutine and may keep state between calls.
type Engine interface {
	Decide(ctx context.Context, samples []v1alpha1.Sample, current v1alpha1.Allocation) (*v1alpha1.Decision, error)
}

// Factory builds an Engine.
type Factory func(params Params) (Engine, error)

// Params carries everything an engine may need. Zero values are replaced by
// defaults in New.
type Params struct {
	Topology *topology.Topology
	// TargetLatency is the end-to-end latency target.
	TargetLatency time.Duration
	// LatencySlack is added to the theoretical lower bound before comparing it with the target.
	LatencySlack time.Duration
	// WindowSize is the number of ticks kept per stage.
	WindowSize int
	// SampleInterval is the period one arrival-count sample covers.
	SampleInterval time.Duration
	// TotalBudget is the total number of workers, 0 uses the sum of the current allocation.
	TotalBudget int
	// MaxSearchBudget caps the minimum budget search.
	MaxSearchBudget int
	// CorrectionSpan is the smoothing span of the correction ratio.
	CorrectionSpan float64
	// SendQueueWarnThreshold and RecvQueueWarnThreshold are mean queue
	// lengths above which a warning is logged.
	SendQueueWarnThreshold float64
	RecvQueueWarnThreshold float64
}

func (p Params) withDefaults() Params {
	if p.WindowSize <= 0 {
		p.WindowSize = v1alpha1.DefaultWindowSize
	}
	if p.SampleInterval <= 0 {
		p.SampleInterval = time.Duration(v1alpha1.DefaultSampleIntervalSeconds) * time.Second
	}
	if p.MaxSearchBudget <= 0 {
		p.MaxSearchBudget = v1alpha1.DefaultMaxSearchBudget
	}
	if p.CorrectionSpan <= 0 {
		p.CorrectionSpan = v1alpha1.DefaultCorrectionSpan
	}
	if p.SendQueueWarnThreshold <= 0 {
		p.SendQueueWarnThreshold = v1alpha1.DefaultSendQueueWarn
	}
	if p.RecvQueueWarnThreshold <= 0 {
		p.RecvQueueWarnThreshold = v1alpha1.DefaultRecvQueueCapacity * v1alpha1.DefaultRecvQueueWarnRatio
	}
	return p
}

var (
	registryLock sync.RWMutex
	registry     = map[string]Factory{}
)

func init() {
	Register(v1alpha1.DefaultEngine, func(p Params) (Engine, error) { return NewQueueingEngine(p) })
	Register("static", func(p Params) (Engine, error) { return NewStaticEngine(), nil })
}

// Register makes an engine available under name, replacing any previous one.
func Register(name string, factory Factory) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[name] = factory
}

// New builds the engine registered under name.
func New(name string, params Params) (Engine, error) {
	registryLock.RLock()
	factory, ok := registry[name]
	registryLock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q, registered engines are %v", ErrUnknownEngine, name, Names())
	}
	return factory(params.withDefaults())
}

// Names returns the registered engine names, sorted.
func Names() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
