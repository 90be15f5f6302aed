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

package aggregate

import (
	"github.com/montanaflynn/stats"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	sharedstats "github.com/numaproj/qos-scaler/pkg/stats"
)

var metricIndex = func() map[v1alpha1.MetricName]int {
	m := make(map[v1alpha1.MetricName]int, len(v1alpha1.MetricNames))
	for i, n := range v1alpha1.MetricNames {
		m[n] = i
	}
	return m
}()

// StageResult holds the combined statistics of one stage, either for a single
// tick or for a merged window of ticks. It is built in one go and not
// modified afterwards.
type StageResult struct {
	StageID string
	// Workers is the number of distinct workers that reported.
	Workers int
	// HottestOutboundQueue and HottestInboundQueue are the largest per-worker mean queue lengths.
	HottestOutboundQueue float64
	HottestInboundQueue  float64
	// P95OutboundQueue and P95InboundQueue are the 95th percentile of per-worker mean queue lengths.
	P95OutboundQueue float64
	P95InboundQueue  float64

	metrics [5]sharedstats.Accumulator
}

// Metric returns the accumulator of a metric, empty if the metric is unknown or never reported.
func (r StageResult) Metric(name v1alpha1.MetricName) sharedstats.Accumulator {
	if i, ok := metricIndex[name]; ok {
		return r.metrics[i]
	}
	return sharedstats.Accumulator{}
}

func (r StageResult) CompletionLatency() sharedstats.Accumulator {
	return r.Metric(v1alpha1.MetricCompletionLatency)
}

func (r StageResult) ExecuteDuration() sharedstats.Accumulator {
	return r.Metric(v1alpha1.MetricExecuteDuration)
}

func (r StageResult) OutboundQueue() sharedstats.Accumulator {
	return r.Metric(v1alpha1.MetricOutboundQueue)
}

func (r StageResult) InboundQueue() sharedstats.Accumulator {
	return r.Metric(v1alpha1.MetricInboundQueue)
}

func (r StageResult) ArrivalCount() sharedstats.Accumulator {
	return r.Metric(v1alpha1.MetricArrivalCount)
}

// IsEmpty returns true if no metric of the stage holds a value.
func (r StageResult) IsEmpty() bool {
	for _, a := range r.metrics {
		if !a.IsEmpty() {
			return false
		}
	}
	return true
}

// Combine merges results of the same stage. Queue diagnostics and the worker
// count are taken from the last result, which is the most recent one when
// called on a History.
func Combine(results ...StageResult) (StageResult, bool) {
	if len(results) == 0 {
		return StageResult{}, false
	}
	last := results[len(results)-1]
	combined := StageResult{
		StageID:              last.StageID,
		Workers:              last.Workers,
		HottestOutboundQueue: last.HottestOutboundQueue,
		HottestInboundQueue:  last.HottestInboundQueue,
		P95OutboundQueue:     last.P95OutboundQueue,
		P95InboundQueue:      last.P95InboundQueue,
	}
	for _, r := range results {
		for i := range combined.metrics {
			combined.metrics[i] = combined.metrics[i].Merge(r.metrics[i])
		}
	}
	return combined, true
}

type workerStats [5]sharedstats.Accumulator

// Aggregate computes one StageResult per stage from the samples of a tick.
// Stages without samples do not appear in the result, samples with no
// recognized metric are ignored.
func Aggregate(samples []v1alpha1.Sample) map[string]StageResult {
	byStage := make(map[string]map[string]*workerStats)
	for _, s := range samples {
		var ws *workerStats
		for name, value := range s.Metrics {
			i, ok := metricIndex[name]
			if !ok {
				continue
			}
			if ws == nil {
				workers, ok := byStage[s.StageID]
				if !ok {
					workers = make(map[string]*workerStats)
					byStage[s.StageID] = workers
				}
				if ws, ok = workers[s.WorkerID]; !ok {
					ws = &workerStats{}
					workers[s.WorkerID] = ws
				}
			}
			ws[i] = ws[i].Incorporate(value)
		}
	}

	results := make(map[string]StageResult, len(byStage))
	for stageID, workers := range byStage {
		results[stageID] = buildStageResult(stageID, workers)
	}
	return results
}

func buildStageResult(stageID string, workers map[string]*workerStats) StageResult {
	r := StageResult{StageID: stageID, Workers: len(workers)}
	outbound := make(stats.Float64Data, 0, len(workers))
	inbound := make(stats.Float64Data, 0, len(workers))
	outIdx, inIdx := metricIndex[v1alpha1.MetricOutboundQueue], metricIndex[v1alpha1.MetricInboundQueue]
	for _, ws := range workers {
		for i := range r.metrics {
			r.metrics[i] = r.metrics[i].Merge(ws[i])
		}
		if m, ok := ws[outIdx].Mean(); ok {
			outbound = append(outbound, m)
		}
		if m, ok := ws[inIdx].Mean(); ok {
			inbound = append(inbound, m)
		}
	}
	r.HottestOutboundQueue, r.P95OutboundQueue = queueDiagnostics(outbound)
	r.HottestInboundQueue, r.P95InboundQueue = queueDiagnostics(inbound)
	return r
}

func queueDiagnostics(perWorkerMeans stats.Float64Data) (float64, float64) {
	if len(perWorkerMeans) == 0 {
		return 0, 0
	}
	hottest, err := stats.Max(perWorkerMeans)
	if err != nil {
		return 0, 0
	}
	p95, err := stats.Percentile(perWorkerMeans, 95)
	if err != nil {
		p95 = hottest
	}
	return hottest, p95
}
