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

import "github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"

// Reasons a sample is dropped, used as metric label values.
const (
	ReasonMalformed     = "malformed"
	ReasonNoKnownMetric = "no_known_metric"
	ReasonDuplicate     = "duplicate"
)

// metricNameMapping maps the names used on the wire to the recognized
// metrics. The recognized names map to themselves.
var metricNameMapping = map[string]v1alpha1.MetricName{
	"complete-latency": v1alpha1.MetricCompletionLatency,
	"execute":          v1alpha1.MetricExecuteDuration,
	"__sendqueue":      v1alpha1.MetricOutboundQueue,
	"__receive":        v1alpha1.MetricInboundQueue,
	"__arrival":        v1alpha1.MetricArrivalCount,
}

func init() {
	for _, n := range v1alpha1.MetricNames {
		metricNameMapping[string(n)] = n
	}
}

// Translate maps transport metric names to recognized metrics and drops
// anything unrecognized. The result is nil when nothing is recognized.
func Translate(raw map[string]float64) map[v1alpha1.MetricName]float64 {
	var r map[v1alpha1.MetricName]float64
	for name, v := range raw {
		m, ok := metricNameMapping[name]
		if !ok {
			continue
		}
		if r == nil {
			r = make(map[v1alpha1.MetricName]float64, len(raw))
		}
		r[m] = v
	}
	return r
}
