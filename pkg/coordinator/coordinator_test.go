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

package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/shared/logging"
)

func TestDryRun(t *testing.T) {
	ctx := logging.WithLogger(context.Background(), logging.NewNopLogger())
	initial := v1alpha1.Allocation{"source": 1, "processing": 2}
	d := NewDryRun(initial)
	initial["processing"] = 7

	current, err := d.CurrentAllocation(ctx)
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.Allocation{"source": 1, "processing": 2}, current)

	req := &v1alpha1.ReconfigurationRequest{ID: "r1", TargetWorkerCounts: v1alpha1.Allocation{"source": 1, "processing": 4}, TotalPhysicalWorkers: 1}
	ack, err := d.Reconfigure(ctx, req)
	require.NoError(t, err)
	assert.True(t, ack.Success)
	assert.Equal(t, req.TargetWorkerCounts, ack.EffectiveAllocation)

	current, err = d.CurrentAllocation(ctx)
	require.NoError(t, err)
	assert.Equal(t, v1alpha1.Allocation{"source": 1, "processing": 4}, current)
	require.Len(t, d.Requests(), 1)
	assert.Equal(t, "r1", d.Requests()[0].ID)
}
