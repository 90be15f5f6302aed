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

import "time"

// MetricName is one of the fixed set of metrics the decision engine understands.
type MetricName string

const (
	MetricCompletionLatency MetricName = "completion-latency"
	MetricExecuteDuration   MetricName = "execute-duration"
	MetricOutboundQueue     MetricName = "outbound-queue-length"
	MetricInboundQueue      MetricName = "inbound-queue-length"
	MetricArrivalCount      MetricName = "arrival-count"
)

// MetricNames lists the recognized metrics in a stable order.
var MetricNames = []MetricName{
	MetricCompletionLatency,
	MetricExecuteDuration,
	MetricOutboundQueue,
	MetricInboundQueue,
	MetricArrivalCount,
}

// IsKnown returns whether the metric belongs to the recognized vocabulary.
func (m MetricName) IsKnown() bool {
	for _, n := range MetricNames {
		if n == m {
			return true
		}
	}
	return false
}

// Sample is one report from a single worker of a stage. Latencies and
// durations are in milliseconds, queue lengths and arrival counts are
// plain counts over the reporting period.
type Sample struct {
	StageID   string
	WorkerID  string
	Timestamp time.Time
	Metrics   map[MetricName]float64
}

// Value returns the value of a metric in the sample, if present.
func (s Sample) Value(name MetricName) (float64, bool) {
	v, ok := s.Metrics[name]
	return v, ok
}
