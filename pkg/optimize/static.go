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
	"context"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
)

// StaticEngine never changes anything: it recommends the current allocation.
// It is useful to watch a pipeline without resizing it.
type StaticEngine struct{}

func NewStaticEngine() *StaticEngine {
	return &StaticEngine{}
}

func (StaticEngine) Decide(_ context.Context, _ []v1alpha1.Sample, current v1alpha1.Allocation) (*v1alpha1.Decision, error) {
	return &v1alpha1.Decision{
		Status:                  v1alpha1.DecisionFeasible,
		MinimumAllocation:       current.Clone(),
		RecommendedAllocation:   current.Clone(),
		EstimatedLatencySeconds: 0,
		CorrectionRatio:         1,
		Budget:                  current.Total(),
	}, nil
}
