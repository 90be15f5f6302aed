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
	"math"

	"github.com/numaproj/qos-scaler/pkg/queueing"
)

const defaultCorrectionSpan = 10.0

// CorrectionRatio learns how much the model underestimates the observed
// latency. Every observation contributes max(1, observed/estimated) to an
// exponentially weighted moving average with the decay 2/(span+1). The
// value starts at 1 and never goes below it.
type CorrectionRatio struct {
	alpha float64
	value float64
	init  bool
}

// NewCorrectionRatio returns a ratio smoothed over roughly span observations.
// A span of 1 keeps only the last observation.
func NewCorrectionRatio(span float64) *CorrectionRatio {
	if span < 1 || math.IsNaN(span) {
		span = defaultCorrectionSpan
	}
	return &CorrectionRatio{alpha: 2.0 / (span + 1.0), value: 1}
}

// Observe folds one observed/estimated pair into the ratio. Pairs where
// either side is not a positive finite number are ignored, and false is
// returned.
func (r *CorrectionRatio) Observe(observed, estimated float64) bool {
	if !(observed > 0) || !(estimated > 0) || math.IsInf(observed, 0) || queueing.IsUnbounded(estimated) {
		return false
	}
	sample := math.Max(1, observed/estimated)
	if !r.init {
		r.value = sample
		r.init = true
		return true
	}
	r.value += r.alpha * (sample - r.value)
	return true
}

// Value returns the current ratio.
func (r *CorrectionRatio) Value() float64 {
	return math.Max(1, r.value)
}

// Reset forgets every observation.
func (r *CorrectionRatio) Reset() {
	r.value = 1
	r.init = false
}
