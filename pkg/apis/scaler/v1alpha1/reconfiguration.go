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

// ReconfigurationRequest asks the cluster coordinator to run the pipeline
// with the given worker counts.
type ReconfigurationRequest struct {
	// ID correlates the request with coordinator logs and annotations.
	ID                   string
	TargetWorkerCounts   Allocation
	TotalPhysicalWorkers int
	// MaxWaitSeconds is passed through to the coordinator when set.
	MaxWaitSeconds *int
}

// Acknowledgment is the coordinator's answer to a ReconfigurationRequest.
type Acknowledgment struct {
	Success bool
	// EffectiveAllocation is optional, when present it replaces the requested counts as the live allocation.
	EffectiveAllocation Allocation
	Message             string
}

// PhysicalWorkers converts an executor count into a number of physical
// workers holding at most perHost executors each. The remainder rounds up
// only when it exceeds half of perHost. Any non-empty allocation needs at
// least one worker.
func PhysicalWorkers(totalExecutors, perHost int) int {
	if totalExecutors <= 0 {
		return 0
	}
	if perHost <= 0 {
		perHost = 1
	}
	n := totalExecutors / perHost
	if totalExecutors%perHost > perHost/2 {
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}
