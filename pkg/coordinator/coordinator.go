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

// Package coordinator applies reconfiguration requests to the cluster that
// runs the pipeline and reports the allocation currently in effect.
package coordinator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/shared/logging"
)

// Coordinator is the cluster side of the control loop.
type Coordinator interface {
	// CurrentAllocation returns the worker counts in effect.
	CurrentAllocation(ctx context.Context) (v1alpha1.Allocation, error)
	// Reconfigure asks the cluster to run the requested worker counts. It
	// returns an error when the request could not be delivered, and an
	// unsuccessful acknowledgment when the cluster refused it.
	Reconfigure(ctx context.Context, req *v1alpha1.ReconfigurationRequest) (*v1alpha1.Acknowledgment, error)
}

// DryRun keeps the allocation in memory and acknowledges every request. It
// lets the control loop run against a pipeline it must not touch.
type DryRun struct {
	lock       sync.RWMutex
	allocation v1alpha1.Allocation
	requests   []v1alpha1.ReconfigurationRequest
}

var _ Coordinator = (*DryRun)(nil)

func NewDryRun(initial v1alpha1.Allocation) *DryRun {
	return &DryRun{allocation: initial.Clone()}
}

func (d *DryRun) CurrentAllocation(context.Context) (v1alpha1.Allocation, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.allocation.Clone(), nil
}

func (d *DryRun) Reconfigure(ctx context.Context, req *v1alpha1.ReconfigurationRequest) (*v1alpha1.Acknowledgment, error) {
	logging.FromContext(ctx).Infow("Dry run, not reconfiguring the pipeline",
		zap.String("id", req.ID),
		zap.Stringer("target", req.TargetWorkerCounts),
		zap.Int("physicalWorkers", req.TotalPhysicalWorkers))
	d.lock.Lock()
	defer d.lock.Unlock()
	d.allocation = req.TargetWorkerCounts.Clone()
	d.requests = append(d.requests, *req)
	return &v1alpha1.Acknowledgment{Success: true, EffectiveAllocation: d.allocation.Clone()}, nil
}

// Requests returns the requests received so far.
func (d *DryRun) Requests() []v1alpha1.ReconfigurationRequest {
	d.lock.RLock()
	defer d.lock.RUnlock()
	r := make([]v1alpha1.ReconfigurationRequest, len(d.requests))
	copy(r, d.requests)
	return r
}
