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

// Package scaler runs the control loop: on every tick it drains the sample
// buffer, asks the decision engine for an allocation and sends a
// reconfiguration request when the recommendation differs from the
// allocation in effect.
package scaler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/coordinator"
	"github.com/numaproj/qos-scaler/pkg/metrics"
	"github.com/numaproj/qos-scaler/pkg/optimize"
	"github.com/numaproj/qos-scaler/pkg/queueing"
	"github.com/numaproj/qos-scaler/pkg/shared/logging"
	"github.com/numaproj/qos-scaler/pkg/topology"
)

// State of the control loop.
type State int32

const (
	StateIdle State = iota
	StateComputing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateComputing:
		return "COMPUTING"
	default:
		return "UNKNOWN"
	}
}

var errNotReady = errors.New("control loop has not completed a tick yet")

type Scaler struct {
	engine      optimize.Engine
	coordinator coordinator.Coordinator
	buffer      *SampleBuffer
	topology    *topology.Topology
	options     *options

	state        *atomic.Int32
	ticks        *atomic.Uint64
	lastDecision *atomic.Pointer[v1alpha1.Decision]
	// current is written by the tick goroutine only, the lock guards readers of Current.
	lock    sync.RWMutex
	current v1alpha1.Allocation
}

// NewScaler returns a Scaler instance.
func NewScaler(engine optimize.Engine, coord coordinator.Coordinator, buffer *SampleBuffer, topo *topology.Topology, opts ...Option) *Scaler {
	scalerOpts := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(scalerOpts)
		}
	}
	return &Scaler{
		engine:       engine,
		coordinator:  coord,
		buffer:       buffer,
		topology:     topo,
		options:      scalerOpts,
		state:        atomic.NewInt32(int32(StateIdle)),
		ticks:        atomic.NewUint64(0),
		lastDecision: atomic.NewPointer[v1alpha1.Decision](nil),
		current:      topo.DeclaredAllocation(),
	}
}

// Start runs the control loop until the context is cancelled. A tick in
// progress when that happens runs to completion, and no request is sent
// after Start returns.
func (s *Scaler) Start(ctx context.Context) error {
	log := logging.FromContext(ctx).Named("control-loop")
	ctx = logging.WithLogger(ctx, log)
	s.setCurrent(s.fetchCurrentAllocation(ctx))
	log.Infow("Starting control loop", zap.Duration("interval", s.options.interval),
		zap.Duration("initialDelay", s.options.firstTickDelay()), zap.Stringer("allocation", s.Current()))

	delay := time.NewTimer(s.options.firstTickDelay())
	defer delay.Stop()
	select {
	case <-ctx.Done():
		log.Info("Stopped control loop before the first tick")
		return nil
	case <-delay.C:
	}

	ticker := time.NewTicker(s.options.interval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			break
		}
		s.tick(context.WithoutCancel(ctx))
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
	log.Info("Stopped control loop")
	return nil
}

func (s *Scaler) fetchCurrentAllocation(ctx context.Context) v1alpha1.Allocation {
	log := logging.FromContext(ctx)
	declared := s.topology.DeclaredAllocation()
	live, err := s.coordinator.CurrentAllocation(ctx)
	if err != nil {
		log.Warnw("Failed to get the current allocation, using the declared worker counts", zap.Error(err))
		return declared
	}
	return declared.Merge(live)
}

// tick runs one iteration of the control loop.
func (s *Scaler) tick(ctx context.Context) {
	log := logging.FromContext(ctx)
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateComputing)) {
		log.Warn("A tick is already in progress, skipping")
		return
	}
	defer s.state.Store(int32(StateIdle))
	start := time.Now()
	defer func() {
		metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()

	samples := s.buffer.Drain()
	current := s.Current()
	decision, err := s.engine.Decide(ctx, samples, current.Clone())
	if err != nil {
		log.Errorw("Failed to compute a decision", zap.Int("samples", len(samples)), zap.Error(err))
		return
	}
	s.lastDecision.Store(decision)
	s.ticks.Inc()
	s.recordDecision(current, decision)
	log.Infow("Decision", zap.String("status", string(decision.Status)), zap.Int("samples", len(samples)),
		zap.Stringer("current", current), zap.Stringer("recommended", decision.RecommendedAllocation),
		zap.Stringer("minimum", decision.MinimumAllocation), zap.Float64("correctionRatio", decision.CorrectionRatio))

	if !decision.IsFeasible() {
		log.Infow("Decision is infeasible, skipping reconfiguration")
		return
	}
	target := decision.RecommendedAllocation
	if target.Equal(current) {
		log.Debugw("Recommended allocation is already in effect")
		return
	}
	s.reconfigure(ctx, current, target)
}

func (s *Scaler) reconfigure(ctx context.Context, current, target v1alpha1.Allocation) {
	log := logging.FromContext(ctx)
	req := &v1alpha1.ReconfigurationRequest{
		ID:                   uuid.NewString(),
		TargetWorkerCounts:   target.Clone(),
		TotalPhysicalWorkers: v1alpha1.PhysicalWorkers(target.Total(), s.options.maxWorkersPerHost),
		MaxWaitSeconds:       s.options.rebalanceWaitSeconds,
	}
	log = log.With(zap.String("id", req.ID))
	rctx, cancel := context.WithTimeout(ctx, s.options.reconfigureTimeout)
	defer cancel()
	ack, err := s.coordinator.Reconfigure(rctx, req)
	switch {
	case err != nil:
		metrics.Reconfigurations.WithLabelValues(metrics.ResultError).Inc()
		log.Errorw("Failed to reconfigure, keeping the current allocation until the next tick", zap.Error(err))
		return
	case ack == nil || !ack.Success:
		metrics.Reconfigurations.WithLabelValues(metrics.ResultRejected).Inc()
		msg := ""
		if ack != nil {
			msg = ack.Message
		}
		log.Warnw("Reconfiguration was rejected, keeping the current allocation until the next tick", zap.String("message", msg))
		return
	}
	metrics.Reconfigurations.WithLabelValues(metrics.ResultSuccess).Inc()
	adopted := target.Clone()
	if len(ack.EffectiveAllocation) > 0 {
		adopted = current.Merge(ack.EffectiveAllocation)
	}
	s.setCurrent(adopted)
	log.Infow("Reconfigured", zap.Stringer("from", current), zap.Stringer("to", adopted),
		zap.Int("physicalWorkers", req.TotalPhysicalWorkers))
}

func (s *Scaler) recordDecision(current v1alpha1.Allocation, d *v1alpha1.Decision) {
	metrics.Decisions.WithLabelValues(string(d.Status)).Inc()
	metrics.CorrectionRatio.Set(d.CorrectionRatio)
	if !queueing.IsUnbounded(d.EstimatedLatencySeconds) {
		metrics.EstimatedLatency.Set(d.EstimatedLatencySeconds)
	}
	for kind, alloc := range map[string]v1alpha1.Allocation{
		metrics.KindCurrent:     current,
		metrics.KindRecommended: d.RecommendedAllocation,
		metrics.KindMinimum:     d.MinimumAllocation,
	} {
		for stageID, n := range alloc {
			metrics.StageWorkers.WithLabelValues(stageID, kind).Set(float64(n))
		}
	}
}

// Current returns the allocation in effect.
func (s *Scaler) Current() v1alpha1.Allocation {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.current.Clone()
}

func (s *Scaler) setCurrent(alloc v1alpha1.Allocation) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.current = alloc
}

// State returns whether a tick is in progress.
func (s *Scaler) State() State {
	return State(s.state.Load())
}

// Ticks returns the number of completed ticks.
func (s *Scaler) Ticks() uint64 {
	return s.ticks.Load()
}

// LastDecision returns the decision of the latest tick, nil before the first one.
func (s *Scaler) LastDecision() *v1alpha1.Decision {
	return s.lastDecision.Load()
}

// IsHealthy reports ready once a tick has completed.
func (s *Scaler) IsHealthy(context.Context) error {
	if s.Ticks() == 0 {
		return errNotReady
	}
	return nil
}
