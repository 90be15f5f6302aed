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

// DecisionStatus tells whether the latency target can be met.
type DecisionStatus string

const (
	DecisionFeasible   DecisionStatus = "FEASIBLE"
	DecisionInfeasible DecisionStatus = "INFEASIBLE"
)

// Decision is the outcome of one control-loop tick. It is consumed right away
// and never persisted.
type Decision struct {
	Status DecisionStatus
	// MinimumAllocation is the smallest allocation meeting the latency target, nil when infeasible.
	MinimumAllocation Allocation
	// RecommendedAllocation is the best allocation within the available budget, nil when infeasible.
	RecommendedAllocation Allocation
	// EstimatedLatencySeconds is the modeled completion time of the current allocation.
	EstimatedLatencySeconds float64
	// CorrectionRatio is the smoothed observed/modeled latency ratio, always >= 1.
	CorrectionRatio float64
	// Budget is the number of workers available to processing stages.
	Budget int
}

// IsFeasible returns true when both allocations were produced.
func (d *Decision) IsFeasible() bool {
	return d != nil && d.Status == DecisionFeasible
}
