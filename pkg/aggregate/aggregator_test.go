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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	sharedstats "github.com/numaproj/qos-scaler/pkg/stats"
)

func sample(stage, worker string, metrics map[v1alpha1.MetricName]float64) v1alpha1.Sample {
	return v1alpha1.Sample{StageID: stage, WorkerID: worker, Timestamp: time.Unix(1700000000, 0), Metrics: metrics}
}

func tick(stage string, latencies ...float64) []v1alpha1.Sample {
	r := make([]v1alpha1.Sample, 0, len(latencies))
	for i, l := range latencies {
		r = append(r, sample(stage, string(rune('a'+i%2)), map[v1alpha1.MetricName]float64{
			v1alpha1.MetricCompletionLatency: l,
			v1alpha1.MetricArrivalCount:      l / 2,
		}))
	}
	return r
}

func TestAggregate(t *testing.T) {
	samples := []v1alpha1.Sample{
		sample("split", "w1", map[v1alpha1.MetricName]float64{v1alpha1.MetricCompletionLatency: 10, v1alpha1.MetricOutboundQueue: 1}),
		sample("split", "w1", map[v1alpha1.MetricName]float64{v1alpha1.MetricCompletionLatency: 20, v1alpha1.MetricOutboundQueue: 3}),
		sample("split", "w2", map[v1alpha1.MetricName]float64{v1alpha1.MetricCompletionLatency: 30, v1alpha1.MetricOutboundQueue: 10}),
		sample("count", "w3", map[v1alpha1.MetricName]float64{v1alpha1.MetricExecuteDuration: 4, v1alpha1.MetricInboundQueue: 100}),
		sample("ignored", "w4", map[v1alpha1.MetricName]float64{"cpu": 0.5}),
	}
	results := Aggregate(samples)
	require.Len(t, results, 2)
	assert.NotContains(t, results, "ignored")

	split := results["split"]
	assert.Equal(t, "split", split.StageID)
	assert.Equal(t, 2, split.Workers)
	assert.Equal(t, uint64(3), split.CompletionLatency().Count())
	assert.InDelta(t, 20.0, split.CompletionLatency().MeanOr(0), 1e-9)
	assert.True(t, split.ExecuteDuration().IsEmpty())
	assert.InDelta(t, 10.0, split.HottestOutboundQueue, 1e-9)
	assert.InDelta(t, 14.0/3.0, split.OutboundQueue().MeanOr(0), 1e-9)

	count := results["count"]
	assert.Equal(t, 1, count.Workers)
	assert.InDelta(t, 100.0, count.HottestInboundQueue, 1e-9)
	assert.InDelta(t, 100.0, count.P95InboundQueue, 1e-9)
	assert.True(t, count.Metric("unknown").IsEmpty())
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
}

func TestHistory_KeepsLastWindow(t *testing.T) {
	h := NewHistory(3)
	_, ok := h.Combined()
	assert.False(t, ok)

	ticks := [][]float64{{100, 110}, {10, 20, 30}, {40}, {50, 60}}
	for _, l := range ticks {
		h.Push(Aggregate(tick("split", l...))["split"])
	}
	assert.Equal(t, 3, h.Len())

	combined, ok := h.Combined()
	require.True(t, ok)
	want := sharedstats.Of(10, 20, 30, 40, 50, 60)
	assert.Equal(t, want.Count(), combined.CompletionLatency().Count())
	assert.InDelta(t, want.MeanOr(0), combined.CompletionLatency().MeanOr(0), 1e-9)
	wv, _ := want.Variance()
	cv, _ := combined.CompletionLatency().Variance()
	assert.InDelta(t, wv, cv, 1e-9)
	assert.Equal(t, 2, combined.Workers)
	assert.Len(t, h.Items(), 3)
}

func TestHistories_SkipsStagesWithoutSamples(t *testing.T) {
	hs := NewHistories(2)
	hs.Record(Aggregate(append(tick("split", 10), tick("count", 5)...)), nil)
	hs.Record(Aggregate(tick("split", 20)), nil)
	hs.Record(Aggregate(tick("split", 30)), func(id string) bool { return id != "split" })

	split, ok := hs.Combined("split")
	require.True(t, ok)
	assert.InDelta(t, 15.0, split.CompletionLatency().MeanOr(0), 1e-9)

	count, ok := hs.Combined("count")
	require.True(t, ok)
	assert.Equal(t, uint64(1), count.CompletionLatency().Count())

	assert.False(t, hs.Has("sink"))
	_, ok = hs.Combined("sink")
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{"split", "count"}, hs.Stages())
}
