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

package stats

import (
	"fmt"
	"math"
)

// Accumulator keeps the running count, mean and sum of squared deviations
// of a set of values. It is a value type, every operation returns a new one.
type Accumulator struct {
	count uint64
	mean  float64
	m2    float64
}

// Of returns an accumulator over the given values.
func Of(values ...float64) Accumulator {
	var a Accumulator
	for _, v := range values {
		a = a.Incorporate(v)
	}
	return a
}

// Incorporate returns a new accumulator with one more value, using Welford's update.
func (a Accumulator) Incorporate(value float64) Accumulator {
	n := a.count + 1
	delta := value - a.mean
	mean := a.mean + delta/float64(n)
	return Accumulator{
		count: n,
		mean:  mean,
		m2:    a.m2 + delta*(value-mean),
	}
}

// Merge combines two independently computed accumulators with the parallel
// variance formula. Merge is associative and commutative up to rounding.
func (a Accumulator) Merge(other Accumulator) Accumulator {
	if other.count == 0 {
		return a
	}
	if a.count == 0 {
		return other
	}
	n1, n2 := float64(a.count), float64(other.count)
	n := n1 + n2
	delta := other.mean - a.mean
	return Accumulator{
		count: a.count + other.count,
		mean:  a.mean + delta*n2/n,
		m2:    a.m2 + other.m2 + delta*delta*n1*n2/n,
	}
}

// Count returns the number of values seen.
func (a Accumulator) Count() uint64 {
	return a.count
}

// IsEmpty returns true if no value has been incorporated.
func (a Accumulator) IsEmpty() bool {
	return a.count == 0
}

// Mean returns the mean, ok is false when the accumulator is empty.
func (a Accumulator) Mean() (float64, bool) {
	if a.count == 0 {
		return math.NaN(), false
	}
	return a.mean, true
}

// Variance returns the population variance, ok is false when the accumulator is empty.
func (a Accumulator) Variance() (float64, bool) {
	if a.count == 0 {
		return math.NaN(), false
	}
	return a.m2 / float64(a.count), true
}

// SampleVariance returns the unbiased variance, ok is false with fewer than two values.
func (a Accumulator) SampleVariance() (float64, bool) {
	if a.count < 2 {
		return math.NaN(), false
	}
	return a.m2 / float64(a.count-1), true
}

// StdDev returns the population standard deviation.
func (a Accumulator) StdDev() (float64, bool) {
	v, ok := a.Variance()
	if !ok {
		return v, false
	}
	return math.Sqrt(v), true
}

// MeanOr returns the mean, or def when empty.
func (a Accumulator) MeanOr(def float64) float64 {
	if m, ok := a.Mean(); ok {
		return m
	}
	return def
}

// MergeAll folds all accumulators into one.
func MergeAll(accs ...Accumulator) Accumulator {
	var r Accumulator
	for _, a := range accs {
		r = r.Merge(a)
	}
	return r
}

func (a Accumulator) String() string {
	if a.count == 0 {
		return "{count: 0}"
	}
	v, _ := a.Variance()
	return fmt.Sprintf("{count: %d, mean: %.4f, var: %.4f}", a.count, a.mean, v)
}
