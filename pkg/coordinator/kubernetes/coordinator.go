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

// Package kubernetes implements a coordinator that runs every stage of the
// pipeline as a Deployment and resizes it by patching its replica count.
package kubernetes

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	appv1 "k8s.io/api/apps/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/coordinator"
	"github.com/numaproj/qos-scaler/pkg/shared/logging"
)

const defaultPollInterval = time.Second

// Coordinator maps stage "x" to the Deployment named prefix + "x".
type Coordinator struct {
	client       kubernetes.Interface
	namespace    string
	prefix       string
	stageIDs     []string
	pollInterval time.Duration
}

var _ coordinator.Coordinator = (*Coordinator)(nil)

// New returns a coordinator managing the Deployments of the given stages.
func New(client kubernetes.Interface, namespace, prefix string, stageIDs []string) *Coordinator {
	ids := append([]string(nil), stageIDs...)
	sort.Strings(ids)
	return &Coordinator{
		client:       client,
		namespace:    namespace,
		prefix:       prefix,
		stageIDs:     ids,
		pollInterval: defaultPollInterval,
	}
}

// DeploymentName returns the name of the Deployment running a stage.
func (c *Coordinator) DeploymentName(stageID string) string {
	return c.prefix + stageID
}

// CurrentAllocation reads the replica count of every stage Deployment.
func (c *Coordinator) CurrentAllocation(ctx context.Context) (v1alpha1.Allocation, error) {
	alloc := make(v1alpha1.Allocation, len(c.stageIDs))
	var errs error
	for _, id := range c.stageIDs {
		deploy, err := c.client.AppsV1().Deployments(c.namespace).Get(ctx, c.DeploymentName(id), metav1.GetOptions{})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to get deployment of stage %q, %w", id, err))
			continue
		}
		alloc[id] = replicasOf(deploy)
	}
	if errs != nil {
		return nil, errs
	}
	return alloc, nil
}

// Reconfigure patches the replicas of every stage in the request. The
// request ID and the physical worker count are recorded as annotations. When
// MaxWaitSeconds is set, it waits up to that long for the Deployments to
// become ready and acknowledges unsuccessfully if they do not.
func (c *Coordinator) Reconfigure(ctx context.Context, req *v1alpha1.ReconfigurationRequest) (*v1alpha1.Acknowledgment, error) {
	log := logging.FromContext(ctx).With(zap.String("id", req.ID))
	ids := make([]string, 0, len(req.TargetWorkerCounts))
	for id := range req.TargetWorkerCounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	effective := make(v1alpha1.Allocation, len(ids))
	var errs error
	for _, id := range ids {
		replicas := req.TargetWorkerCounts[id]
		patch, err := replicasPatch(id, replicas, req)
		if err != nil {
			return nil, err
		}
		deploy, err := c.client.AppsV1().Deployments(c.namespace).Patch(ctx, c.DeploymentName(id), types.MergePatchType, patch, metav1.PatchOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				log.Warnw("Deployment of stage not found, skipping", zap.String("stage", id), zap.String("deployment", c.DeploymentName(id)))
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("failed to patch deployment of stage %q, %w", id, err))
			continue
		}
		effective[id] = replicasOf(deploy)
		log.Infow("Stage replicas changed.", zap.String("stage", id), zap.String("deployment", deploy.Name), zap.Int("to", replicas))
	}
	if errs != nil {
		return nil, errs
	}

	if req.MaxWaitSeconds != nil && *req.MaxWaitSeconds > 0 {
		timeout := time.Duration(*req.MaxWaitSeconds) * time.Second
		if err := c.waitForReady(ctx, effective, timeout); err != nil {
			return &v1alpha1.Acknowledgment{
				Success:             false,
				EffectiveAllocation: nil,
				Message:             fmt.Sprintf("deployments not ready after %v, %v", timeout, err),
			}, nil
		}
	}
	return &v1alpha1.Acknowledgment{Success: true, EffectiveAllocation: effective}, nil
}

func (c *Coordinator) waitForReady(ctx context.Context, alloc v1alpha1.Allocation, timeout time.Duration) error {
	return wait.PollUntilContextTimeout(ctx, c.pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		for id, want := range alloc {
			deploy, err := c.client.AppsV1().Deployments(c.namespace).Get(ctx, c.DeploymentName(id), metav1.GetOptions{})
			if err != nil {
				return false, err
			}
			if int(deploy.Status.ReadyReplicas) != want || deploy.Status.ObservedGeneration < deploy.Generation {
				return false, nil
			}
		}
		return true, nil
	})
}

func replicasPatch(stageID string, replicas int, req *v1alpha1.ReconfigurationRequest) ([]byte, error) {
	patch := map[string]interface{}{
		"metadata": map[string]interface{}{
			"annotations": map[string]string{
				v1alpha1.KeyStageID:              stageID,
				v1alpha1.KeyReconfigurationID:    req.ID,
				v1alpha1.KeyTotalPhysicalWorkers: strconv.Itoa(req.TotalPhysicalWorkers),
			},
		},
		"spec": map[string]interface{}{
			"replicas": replicas,
		},
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal replicas patch, %w", err)
	}
	return data, nil
}

// replicasOf returns the desired replicas, which default to 1 when unset.
func replicasOf(deploy *appv1.Deployment) int {
	if deploy.Spec.Replicas == nil {
		return 1
	}
	return int(*deploy.Spec.Replicas)
}
