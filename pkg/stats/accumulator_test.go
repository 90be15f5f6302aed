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
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

const epsilon = 1e-9

func populationMeanVariance(values []float64) (float64, float64) {
	mean := stat.Mean(values, nil)
	// gonum returns the unbiased variance, rescale to population.
	variance := stat.Variance(values, nil) * float64(len(values)-1) / float64(len(values))
	return mean, variance
}

func TestAccumulator_Empty(t *testing.T) {
	var a Accumulator
	assert.True(t, a.IsEmpty())
	_, ok := a.Mean()
	assert.False(t, ok)
	_, ok = a.Variance()
	assert.False(t, ok)
	_, ok = a.StdDev()
	assert.False(t, ok)
	assert.Equal(t, 42.0, a.MeanOr(42))
	assert.Equal(t, "{count: 0}", a.String())
}

func TestAccumulator_Incorporate(t *testing.T) {
	a := Of(2, 4, 4, 4, 5, 5, 7, 9)
	assert.Equal(t, uint64(8), a.Count())
	m, ok := a.Mean()
	require.True(t, ok)
	assert.InDelta(t, 5.0, m, epsilon)
	v, _ := a.Variance()
	assert.InDelta(t, 4.0, v, epsilon)
	sd, _ := a.StdDev()
	assert.InDelta(t, 2.0, sd, epsilon)
	sv, ok := a.SampleVariance()
	require.True(t, ok)
	assert.InDelta(t, 32.0/7.0, sv, epsilon)

	_, ok = Of(1).SampleVariance()
	assert.False(t, ok)
}

func TestAccumulator_MergeWithEmpty(t *testing.T) {
	a := Of(1, 2, 3)
	assert.Equal(t, a, a.Merge(Accumulator{}))
	assert.Equal(t, a, Accumulator{}.Merge(a))
}

func TestAccumulator_MergeMatchesDirectComputation(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	values := make([]float64, 200)
	for i := range values {
		values[i] = r.ExpFloat64() * 100
	}
	wantMean, wantVar := populationMeanVariance(values)

	for _, split := range []int{0, 1, 17, 100, 199, 200} {
		left, right := Of(values[:split]...), Of(values[split:]...)
		for name, merged := range map[string]Accumulator{
			"left-right": left.Merge(right),
			"right-left": right.Merge(left),
		} {
			m, ok := merged.Mean()
			require.True(t, ok)
			v, _ := merged.Variance()
			assert.InDelta(t, wantMean, m, epsilon, "split %d %s", split, name)
			assert.InDelta(t, wantVar, v, epsilon*wantVar, "split %d %s", split, name)
			assert.Equal(t, uint64(len(values)), merged.Count())
		}
	}
}

func TestAccumulator_MergeAssociative(t *testing.T) {
	a, b, c := Of(1, 5, 9), Of(2.5, 3.5), Of(100, 0, 42, 17)
	x := a.Merge(b).Merge(c)
	y := a.Merge(b.Merge(c))
	z := MergeAll(c, a, b)
	for _, acc := range []Accumulator{y, z} {
		assert.Equal(t, x.Count(), acc.Count())
		assert.InDelta(t, x.MeanOr(math.NaN()), acc.MeanOr(math.NaN()), epsilon)
		xv, _ := x.Variance()
		av, _ := acc.Variance()
		assert.InDelta(t, xv, av, epsilon)
	}
}
