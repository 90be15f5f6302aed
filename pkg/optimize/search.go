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
	"errors"
	"fmt"
	"math"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/queueing"
)

// ErrInfeasible is returned when no allocation satisfies the request.
var ErrInfeasible = errors.New("infeasible allocation")

// SuggestAllocation distributes budget workers over the stages of the network.
//
// Every stage starts at its minimum stable worker count. Each remaining
// worker goes to the stage whose completion time drops the most by getting
// one more worker, ties going to the earliest stage in network order. The
// result always adds up to budget. This is a greedy heuristic; it works well
// for M/M/c stages but is not guaranteed to be optimal.
//
// ErrInfeasible is returned when the minimum requirements exceed the budget
// or a stage has an invalid model.
func SuggestAllocation(net *queueing.Network, budget int) (v1alpha1.Allocation, error) {
	alloc, err := minimumAllocation(net)
	if err != nil {
		return nil, err
	}
	if min := alloc.Total(); min > budget {
		return nil, fmt.Errorf("%w: minimum requirement %d exceeds budget %d", ErrInfeasible, min, budget)
	}
	stages := net.Stages()
	for remaining := budget - alloc.Total(); remaining > 0; remaining-- {
		assignOne(stages, alloc)
	}
	return alloc, nil
}

// MinimumBudgetForTarget returns the allocation with the smallest budget
// whose modeled completion time, multiplied by correctionRatio, is within
// target (seconds), together with that budget.
//
// It fails right away when the sum of the service times plus slack already
// reaches the target, since no number of workers can help then. Otherwise it
// walks the budget up from the sum of the minimum requirements. Completion
// time does not increase with the budget, so the first budget that meets the
// target is the minimal one. Extending the greedy allocation by one worker
// gives exactly SuggestAllocation(budget+1), so the walk does not restart the
// search at every step. Budgets above maxBudget are not explored.
func MinimumBudgetForTarget(net *queueing.Network, target, slack, correctionRatio float64, maxBudget int) (v1alpha1.Allocation, int, error) {
	if correctionRatio < 1 || math.IsNaN(correctionRatio) {
		correctionRatio = 1
	}
	lowerBound := net.LowerBound()
	if queueing.IsUnbounded(lowerBound) || lowerBound+slack >= target {
		return nil, 0, fmt.Errorf("%w: lower bound %.4fs plus slack %.4fs is not below target %.4fs", ErrInfeasible, lowerBound, slack, target)
	}
	alloc, err := minimumAllocation(net)
	if err != nil {
		return nil, 0, err
	}
	stages := net.Stages()
	budget := alloc.Total()
	for {
		if budget > maxBudget {
			return nil, 0, fmt.Errorf("%w: target %.4fs not reached within budget %d", ErrInfeasible, target, maxBudget)
		}
		if net.CompletionTime(alloc)*correctionRatio <= target {
			return alloc, budget, nil
		}
		assignOne(stages, alloc)
		budget++
	}
}

func minimumAllocation(net *queueing.Network) (v1alpha1.Allocation, error) {
	if net.Len() == 0 {
		return nil, fmt.Errorf("%w: no stage to allocate", ErrInfeasible)
	}
	alloc, err := net.MinimumAllocation()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfeasible, err)
	}
	return alloc, nil
}

// assignOne gives one more worker to the stage with the largest marginal gain.
func assignOne(stages []queueing.Stage, alloc v1alpha1.Allocation) string {
	best, bestGain := -1, math.Inf(-1)
	for i, s := range stages {
		c := alloc[s.ID]
		gain := s.Node.CompletionTime(c) - s.Node.CompletionTime(c+1)
		if gain > bestGain {
			best, bestGain = i, gain
		}
	}
	id := stages[best].ID
	alloc[id]++
	return id
}
