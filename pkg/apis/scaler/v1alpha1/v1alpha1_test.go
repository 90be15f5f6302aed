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

package v1alpha1

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocation(t *testing.T) {
	a := Allocation{"split": 4, "count": 2}
	assert.Equal(t, 6, a.Total())
	b := a.Clone()
	assert.True(t, a.Equal(b))
	b["count"] = 3
	assert.False(t, a.Equal(b))
	assert.Equal(t, 2, a["count"])
	assert.False(t, a.Equal(Allocation{"split": 4}))
	assert.Nil(t, Allocation(nil).Clone())
	assert.Equal(t, "{count:2, split:4}", a.String())

	merged := Allocation{"spout": 1}.Merge(a)
	assert.Equal(t, Allocation{"spout": 1, "split": 4, "count": 2}, merged)
	assert.Equal(t, Allocation{"spout": 1}, merged.Filter(func(id string) bool { return id == "spout" }))
}

func TestPhysicalWorkers(t *testing.T) {
	tests := []struct {
		total, perHost, want int
	}{
		{0, 10, 0},
		{10, 10, 1},
		{15, 10, 1},
		{16, 10, 2},
		{20, 10, 2},
		{3, 10, 1},
		{7, 4, 2},
		{5, 0, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PhysicalWorkers(tt.total, tt.perHost), "total=%d perHost=%d", tt.total, tt.perHost)
	}
}

func TestMetricNameIsKnown(t *testing.T) {
	assert.True(t, MetricArrivalCount.IsKnown())
	assert.False(t, MetricName("cpu").IsKnown())
}
