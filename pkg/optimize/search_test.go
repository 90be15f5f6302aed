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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/queueing"
)

func chain(t *testing.T, lambdas, mus []float64) *queueing.Network {
	t.Helper()
	require.Equal(t, len(lambdas), len(mus))
	net := queueing.NewNetwork()
	for i := range lambdas {
		node, err := queueing.NewServiceNode(lambdas[i], mus[i])
		require.NoError(t, err)
		net.Add(string(rune('a'+i)), node)
	}
	return net
}

func TestSuggestAllocation(t *testing.T) {
	net := chain(t, []float64{5, 12, 25}, []float64{10, 10, 10})
	minimums, err := net.MinimumAllocation()
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.Allocation{"a": 1, "b": 2, "c": 3}, minimums)

	t.Run("below minimum", func(t *testing.T) {
		_, err := SuggestAllocation(net, minimums.Total()-1)
		assert.ErrorIs(t, err, ErrInfeasible)
	})

	t.Run("exactly minimum", func(t *testing.T) {
		alloc, err := SuggestAllocation(net, minimums.Total())
		require.NoError(t, err)
		assert.Equal(t, minimums, alloc)
	})

	for k := 1; k <= 10; k++ {
		budget := minimums.Total() + k
		alloc, err := SuggestAllocation(net, budget)
		require.NoError(t, err)
		assert.Equal(t, budget, alloc.Total())
		for id, c := range minimums {
			assert.GreaterOrEqual(t, alloc[id], c)
		}
		assert.False(t, queueing.IsUnbounded(net.CompletionTime(alloc)))
	}
}

func TestSuggestAllocation_MonotoneInBudget(t *testing.T) {
	net := chain(t, []float64{5, 5, 5}, []float64{20, 15, 10})
	prev := math.Inf(1)
	for budget := 3; budget < 20; budget++ {
		alloc, err := SuggestAllocation(net, budget)
		require.NoError(t, err)
		ct := net.CompletionTime(alloc)
		assert.LessOrEqual(t, ct, prev*(1+1e-12))
		prev = ct
	}
}

func TestSuggestAllocation_TiesGoToFirstStage(t *testing.T) {
	net := chain(t, []float64{5, 5}, []float64{10, 10})
	alloc, err := SuggestAllocation(net, 3)
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.Allocation{"a": 2, "b": 1}, alloc)
	alloc, err = SuggestAllocation(net, 4)
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.Allocation{"a": 2, "b": 2}, alloc)
}

func TestSuggestAllocation_InvalidStage(t *testing.T) {
	net := chain(t, []float64{5}, []float64{10})
	net.Add("broken", queueing.ServiceNode{Lambda: 1, Mu: 0})
	_, err := SuggestAllocation(net, 100)
	assert.ErrorIs(t, err, ErrInfeasible)
	assert.ErrorIs(t, err, queueing.ErrModelInvalid)

	_, err = SuggestAllocation(queueing.NewNetwork(), 5)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestMinimumBudgetForTarget(t *testing.T) {
	net := chain(t, []float64{5, 5, 5}, []float64{20, 15, 10})
	lowerBound := net.LowerBound()
	assert.InDelta(t, 1.0/20+1.0/15+1.0/10, lowerBound, 1e-12)

	for _, target := range []float64{0.5, 0.3, 0.25, 0.22} {
		alloc, budget, err := MinimumBudgetForTarget(net, target, 0, 1, 1024)
		require.NoError(t, err, "target %v", target)
		assert.Equal(t, budget, alloc.Total())
		assert.LessOrEqual(t, net.CompletionTime(alloc), target)

		suggested, err := SuggestAllocation(net, budget)
		require.NoError(t, err)
		assert.Equal(t, alloc, suggested)

		below, err := SuggestAllocation(net, budget-1)
		if err == nil {
			assert.Greater(t, net.CompletionTime(below), target, "target %v", target)
		} else {
			assert.ErrorIs(t, err, ErrInfeasible)
		}
	}

	t.Run("loose target needs only the minimums", func(t *testing.T) {
		alloc, budget, err := MinimumBudgetForTarget(net, 0.5, 0, 1, 1024)
		require.NoError(t, err)
		assert.Equal(t, 3, budget)
		assert.Equal(t, v1alpha1.Allocation{"a": 1, "b": 1, "c": 1}, alloc)
	})

	t.Run("tighter target adds a worker to the slowest stage", func(t *testing.T) {
		alloc, budget, err := MinimumBudgetForTarget(net, 0.3, 0, 1, 1024)
		require.NoError(t, err)
		assert.Equal(t, 4, budget)
		assert.Equal(t, v1alpha1.Allocation{"a": 1, "b": 1, "c": 2}, alloc)
	})
}

func TestMinimumBudgetForTarget_Infeasible(t *testing.T) {
	net := chain(t, []float64{5, 5, 5}, []float64{20, 15, 10})
	lowerBound := net.LowerBound()
	tests := []struct {
		name      string
		target    float64
		slack     float64
		maxBudget int
	}{
		{name: "target below lower bound", target: 0.2, maxBudget: 1024},
		{name: "target equals lower bound", target: lowerBound, maxBudget: 1024},
		{name: "slack pushes bound past target", target: 0.25, slack: 0.04, maxBudget: 1024},
		{name: "search budget exhausted", target: 0.22, maxBudget: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := MinimumBudgetForTarget(net, tt.target, tt.slack, 1, tt.maxBudget)
			assert.ErrorIs(t, err, ErrInfeasible)
		})
	}
}

func TestMinimumBudgetForTarget_CorrectionRatio(t *testing.T) {
	net := chain(t, []float64{5, 5, 5}, []float64{20, 15, 10})
	_, plain, err := MinimumBudgetForTarget(net, 0.5, 0, 1, 1024)
	require.NoError(t, err)
	alloc, corrected, err := MinimumBudgetForTarget(net, 0.5, 0, 2, 1024)
	require.NoError(t, err)
	assert.Greater(t, corrected, plain)
	assert.LessOrEqual(t, 2*net.CompletionTime(alloc), 0.5)

	// ratios below 1 are treated as 1
	_, lowered, err := MinimumBudgetForTarget(net, 0.5, 0, 0.5, 1024)
	require.NoError(t, err)
	assert.Equal(t, plain, lowered)
}
