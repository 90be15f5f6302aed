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

	"go.uber.org/zap"

	"github.com/numaproj/qos-scaler/pkg/aggregate"
	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/queueing"
	"github.com/numaproj/qos-scaler/pkg/shared/logging"
	"github.com/numaproj/qos-scaler/pkg/topology"
)

// QueueingEngine models every processing stage as an M/M/c queue built from
// a rolling window of samples and sizes the stages with the allocation
// search. Source stages are not queue-limited: their latency is only used as
// the observed end-to-end latency and their worker counts are kept.
type QueueingEngine struct {
	params     Params
	topology   *topology.Topology
	sources    *aggregate.Histories
	processing *aggregate.Histories
	correction *CorrectionRatio
}

// NewQueueingEngine validates the parameters and returns an engine with empty histories.
func NewQueueingEngine(params Params) (*QueueingEngine, error) {
	params = params.withDefaults()
	if params.Topology == nil {
		return nil, errors.New("queueing engine requires a topology")
	}
	if params.TargetLatency <= 0 {
		return nil, fmt.Errorf("target latency must be positive, got %v", params.TargetLatency)
	}
	return &QueueingEngine{
		params:     params,
		topology:   params.Topology,
		sources:    aggregate.NewHistories(params.WindowSize),
		processing: aggregate.NewHistories(params.WindowSize),
		correction: NewCorrectionRatio(params.CorrectionSpan),
	}, nil
}

// Decide aggregates the samples of this tick into the histories, rebuilds the
// queueing network and runs both allocation searches. Infeasibility is
// reported through the decision status, never as an error.
func (e *QueueingEngine) Decide(ctx context.Context, samples []v1alpha1.Sample, current v1alpha1.Allocation) (*v1alpha1.Decision, error) {
	log := logging.FromContext(ctx).Named("queueing-engine")

	results := aggregate.Aggregate(samples)
	for stageID := range results {
		if _, ok := e.topology.Role(stageID); !ok {
			log.Debugw("Ignoring samples of a stage not in the topology", zap.String("stage", stageID))
		}
	}
	e.sources.Record(results, e.topology.IsSource)
	e.processing.Record(results, e.topology.IsProcessing)

	net := e.buildNetwork(log, current)
	e.warnQueues(log)

	// Stages outside the model keep their current count and are not part of the searchable budget.
	fixed := current.Filter(func(stageID string) bool {
		_, modeled := net.Node(stageID)
		return !modeled
	})
	total := e.params.TotalBudget
	if total <= 0 {
		total = current.Total()
	}
	budget := total - fixed.Total()

	decision := &v1alpha1.Decision{
		Status:                  v1alpha1.DecisionFeasible,
		EstimatedLatencySeconds: queueing.Unbounded,
		Budget:                  budget,
	}
	if net.Len() == 0 {
		log.Warnw("No processing stage has reported samples yet, skipping the allocation search")
		decision.Status = v1alpha1.DecisionInfeasible
		decision.CorrectionRatio = e.correction.Value()
		return decision, nil
	}

	modeled := current.Filter(func(stageID string) bool {
		_, ok := net.Node(stageID)
		return ok
	})
	estimated := net.CompletionTime(modeled)
	decision.EstimatedLatencySeconds = estimated
	if observed, ok := e.observedLatency(); ok {
		if e.correction.Observe(observed, estimated) {
			log.Debugw("Updated correction ratio", zap.Float64("observedSeconds", observed),
				zap.Float64("estimatedSeconds", estimated), zap.Float64("ratio", e.correction.Value()))
		}
	}
	ratio := e.correction.Value()
	decision.CorrectionRatio = ratio

	target := e.params.TargetLatency.Seconds()
	slack := e.params.LatencySlack.Seconds()
	if minimum, minBudget, err := MinimumBudgetForTarget(net, target, slack, ratio, e.params.MaxSearchBudget); err != nil {
		log.Warnw("No allocation meets the latency target", zap.Float64("targetSeconds", target), zap.Error(err))
		decision.Status = v1alpha1.DecisionInfeasible
	} else {
		decision.MinimumAllocation = fixed.Merge(minimum)
		log.Infow("Minimum allocation for the latency target", zap.Int("budget", minBudget),
			zap.Stringer("allocation", decision.MinimumAllocation))
	}
	if recommended, err := SuggestAllocation(net, budget); err != nil {
		log.Warnw("Budget is below the minimum stable allocation", zap.Int("budget", budget), zap.Error(err))
		decision.Status = v1alpha1.DecisionInfeasible
	} else {
		decision.RecommendedAllocation = fixed.Merge(recommended)
		log.Infow("Recommended allocation", zap.Int("budget", budget),
			zap.Stringer("allocation", decision.RecommendedAllocation),
			zap.Float64("estimatedSeconds", net.CompletionTime(recommended)*ratio))
	}
	return decision, nil
}

// buildNetwork derives λ and μ of every processing stage that has a history,
// in topology order. Stages that never reported are left out.
func (e *QueueingEngine) buildNetwork(log *zap.SugaredLogger, current v1alpha1.Allocation) *queueing.Network {
	net := queueing.NewNetwork()
	perSecond := e.params.SampleInterval.Seconds()
	for _, stageID := range e.topology.ProcessingIDs() {
		r, ok := e.processing.Combined(stageID)
		if !ok {
			log.Warnw("Stage has never reported samples, leaving it out of the model", zap.String("stage", stageID))
			continue
		}
		workers := current[stageID]
		if workers <= 0 {
			workers = r.Workers
		}
		arrivals, ok := r.ArrivalCount().Mean()
		if !ok {
			log.Warnw("Stage reported no arrival counts, assuming no load", zap.String("stage", stageID))
		}
		lambda := arrivals * float64(workers) / perSecond
		mu := 0.0
		if latency, ok := r.CompletionLatency().Mean(); ok && latency > 0 {
			mu = 1000 / latency
		}
		node, err := queueing.NewServiceNode(lambda, mu)
		if err != nil {
			log.Warnw("Stage cannot be modeled, treating it as unstable", zap.String("stage", stageID), zap.Error(err))
		}
		net.Add(stageID, node)
		log.Infow("Stage model", zap.String("stage", stageID), zap.Int("workers", workers),
			zap.Float64("lambda", lambda), zap.Float64("mu", mu), zap.Float64("rho", node.Utilization(workers)),
			zap.Float64("outboundQueue", r.OutboundQueue().MeanOr(0)), zap.Float64("inboundQueue", r.InboundQueue().MeanOr(0)))
	}
	return net
}

// observedLatency returns the mean completion latency of the source stages in seconds.
func (e *QueueingEngine) observedLatency() (float64, bool) {
	sum, n := 0.0, 0
	for _, stageID := range e.topology.SourceIDs() {
		r, ok := e.sources.Combined(stageID)
		if !ok {
			continue
		}
		if latency, ok := r.CompletionLatency().Mean(); ok {
			sum += latency
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n) / 1000, true
}

func (e *QueueingEngine) warnQueues(log *zap.SugaredLogger) {
	for _, stageID := range e.topology.ProcessingIDs() {
		r, ok := e.processing.Combined(stageID)
		if !ok {
			continue
		}
		if q, ok := r.OutboundQueue().Mean(); ok && q > e.params.SendQueueWarnThreshold {
			log.Warnw("Outbound queue is building up", zap.String("stage", stageID), zap.Float64("mean", q),
				zap.Float64("hottestWorker", r.HottestOutboundQueue), zap.Float64("p95", r.P95OutboundQueue))
		}
		if q, ok := r.InboundQueue().Mean(); ok && q > e.params.RecvQueueWarnThreshold {
			log.Warnw("Inbound queue is building up", zap.String("stage", stageID), zap.Float64("mean", q),
				zap.Float64("hottestWorker", r.HottestInboundQueue), zap.Float64("p95", r.P95InboundQueue))
		}
	}
}
