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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/shared/logging"
	"github.com/numaproj/qos-scaler/pkg/topology"
)

func testContext() context.Context {
	return logging.WithLogger(context.Background(), logging.NewNopLogger())
}

func twoStageTopology(t *testing.T) *topology.Topology {
	t.Helper()
	topo, err := topology.New(
		topology.Stage{ID: "source", Role: topology.RoleSource, Workers: 1},
		topology.Stage{ID: "processing", Role: topology.RoleProcessing, Upstream: []string{"source"}, Workers: 2},
	)
	require.NoError(t, err)
	return topo
}

// twoStageTick reports λ=10/s and μ=15/s for the processing stage with two
// workers and a 1s sample interval, and 100ms end-to-end latency at the source.
func twoStageTick() []v1alpha1.Sample {
	now := time.Unix(1700000000, 0)
	processing := map[v1alpha1.MetricName]float64{
		v1alpha1.MetricCompletionLatency: 1000.0 / 15,
		v1alpha1.MetricArrivalCount:      5,
	}
	return []v1alpha1.Sample{
		{StageID: "source", WorkerID: "s-0", Timestamp: now, Metrics: map[v1alpha1.MetricName]float64{v1alpha1.MetricCompletionLatency: 100}},
		{StageID: "processing", WorkerID: "p-0", Timestamp: now, Metrics: processing},
		{StageID: "processing", WorkerID: "p-1", Timestamp: now, Metrics: processing},
	}
}

func newTwoStageEngine(t *testing.T, target time.Duration) Engine {
	t.Helper()
	e, err := New("queueing", Params{
		Topology:       twoStageTopology(t),
		TargetLatency:  target,
		WindowSize:     3,
		SampleInterval: time.Second,
		TotalBudget:    5,
	})
	require.NoError(t, err)
	return e
}

func TestQueueingEngine_Decide(t *testing.T) {
	e := newTwoStageEngine(t, 150*time.Millisecond)
	current := v1alpha1.Allocation{"source": 1, "processing": 2}

	d, err := e.Decide(testContext(), twoStageTick(), current)
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.DecisionFeasible, d.Status)
	assert.True(t, d.IsFeasible())
	assert.Equal(t, 4, d.Budget)
	assert.Equal(t, v1alpha1.Allocation{"source": 1, "processing": 4}, d.RecommendedAllocation)
	assert.Equal(t, v1alpha1.Allocation{"source": 1, "processing": 2}, d.MinimumAllocation)
	assert.InDelta(t, 0.075, d.EstimatedLatencySeconds, 1e-9)
	assert.InDelta(t, 0.1/0.075, d.CorrectionRatio, 1e-9)
}

func TestQueueingEngine_TargetBelowServiceTime(t *testing.T) {
	e := newTwoStageEngine(t, 60*time.Millisecond)
	current := v1alpha1.Allocation{"source": 1, "processing": 2}

	d, err := e.Decide(testContext(), twoStageTick(), current)
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.DecisionInfeasible, d.Status)
	assert.Nil(t, d.MinimumAllocation)
	assert.Equal(t, v1alpha1.Allocation{"source": 1, "processing": 4}, d.RecommendedAllocation)
}

func TestQueueingEngine_BudgetBelowMinimum(t *testing.T) {
	e, err := New("queueing", Params{
		Topology:       twoStageTopology(t),
		TargetLatency:  150 * time.Millisecond,
		SampleInterval: time.Second,
		TotalBudget:    1,
	})
	require.NoError(t, err)
	d, err := e.Decide(testContext(), twoStageTick(), v1alpha1.Allocation{"source": 1, "processing": 2})
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.DecisionInfeasible, d.Status)
	assert.Nil(t, d.RecommendedAllocation)
	assert.Equal(t, 0, d.Budget)
}

func TestQueueingEngine_TransportGap(t *testing.T) {
	e := newTwoStageEngine(t, 150*time.Millisecond)
	current := v1alpha1.Allocation{"source": 1, "processing": 2}
	first, err := e.Decide(testContext(), twoStageTick(), current)
	require.NoError(t, err)

	// nothing reported this tick, the window keeps the previous data
	second, err := e.Decide(testContext(), nil, current)
	require.NoError(t, err)
	assert.Equal(t, first.RecommendedAllocation, second.RecommendedAllocation)
	assert.Equal(t, first.MinimumAllocation, second.MinimumAllocation)
	assert.InDelta(t, first.EstimatedLatencySeconds, second.EstimatedLatencySeconds, 1e-12)
}

func TestQueueingEngine_NothingReportedYet(t *testing.T) {
	e := newTwoStageEngine(t, 150*time.Millisecond)
	d, err := e.Decide(testContext(), nil, v1alpha1.Allocation{"source": 1, "processing": 2})
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.DecisionInfeasible, d.Status)
	assert.Nil(t, d.RecommendedAllocation)
	assert.Nil(t, d.MinimumAllocation)
	assert.Equal(t, 1.0, d.CorrectionRatio)
}

func TestQueueingEngine_NeverSeenStageKeepsItsWorkers(t *testing.T) {
	topo, err := topology.New(
		topology.Stage{ID: "source", Role: topology.RoleSource, Workers: 1},
		topology.Stage{ID: "processing", Role: topology.RoleProcessing, Upstream: []string{"source"}, Workers: 2},
		topology.Stage{ID: "sink", Role: topology.RoleProcessing, Upstream: []string{"processing"}, Workers: 3},
	)
	require.NoError(t, err)
	e, err := New("queueing", Params{
		Topology:       topo,
		TargetLatency:  150 * time.Millisecond,
		SampleInterval: time.Second,
		TotalBudget:    8,
	})
	require.NoError(t, err)

	samples := append(twoStageTick(), v1alpha1.Sample{StageID: "unknown", WorkerID: "x", Metrics: map[v1alpha1.MetricName]float64{v1alpha1.MetricCompletionLatency: 1}})
	d, err := e.Decide(testContext(), samples, v1alpha1.Allocation{"source": 1, "processing": 2, "sink": 3})
	require.NoError(t, err)
	assert.Equal(t, 4, d.Budget)
	assert.Equal(t, v1alpha1.Allocation{"source": 1, "processing": 4, "sink": 3}, d.RecommendedAllocation)
}

func TestQueueingEngine_StageWithoutLatencyIsUnstable(t *testing.T) {
	e := newTwoStageEngine(t, 150*time.Millisecond)
	samples := []v1alpha1.Sample{
		{StageID: "processing", WorkerID: "p-0", Metrics: map[v1alpha1.MetricName]float64{v1alpha1.MetricArrivalCount: 5}},
	}
	d, err := e.Decide(testContext(), samples, v1alpha1.Allocation{"source": 1, "processing": 2})
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.DecisionInfeasible, d.Status)
	assert.Nil(t, d.RecommendedAllocation)
	assert.Nil(t, d.MinimumAllocation)
}

func TestNewQueueingEngine_Validation(t *testing.T) {
	_, err := NewQueueingEngine(Params{TargetLatency: time.Second})
	assert.Error(t, err)
	_, err = NewQueueingEngine(Params{Topology: twoStageTopology(t)})
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	assert.Contains(t, Names(), "queueing")
	assert.Contains(t, Names(), "static")

	_, err := New("does-not-exist", Params{})
	assert.ErrorIs(t, err, ErrUnknownEngine)

	Register("test-fixed", func(p Params) (Engine, error) {
		assert.Equal(t, v1alpha1.DefaultWindowSize, p.WindowSize)
		return NewStaticEngine(), nil
	})
	e, err := New("test-fixed", Params{})
	require.NoError(t, err)
	assert.IsType(t, &StaticEngine{}, e)
}

func TestStaticEngine(t *testing.T) {
	e, err := New("static", Params{})
	require.NoError(t, err)
	current := v1alpha1.Allocation{"source": 1, "processing": 2}
	d, err := e.Decide(testContext(), twoStageTick(), current)
	require.NoError(t, err)
	assert.True(t, d.IsFeasible())
	assert.Equal(t, current, d.RecommendedAllocation)
	assert.Equal(t, current, d.MinimumAllocation)

	// the decision does not alias the caller's allocation
	d.RecommendedAllocation["processing"] = 9
	assert.Equal(t, 2, current["processing"])
}
