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

package queueing

import (
	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
)

// Stage is a named ServiceNode in a Network.
type Stage struct {
	ID   string
	Node ServiceNode
}

// Network is the queueing network of a chain of stages. The order of the
// stages is the order used everywhere the stages are iterated, which keeps
// the allocation search deterministic.
type Network struct {
	stages []Stage
	index  map[string]int
}

// NewNetwork builds a network from stages in pipeline order. A later stage
// with a duplicate ID replaces the earlier one in place.
func NewNetwork(stages ...Stage) *Network {
	n := &Network{index: make(map[string]int, len(stages))}
	for _, s := range stages {
		n.Add(s.ID, s.Node)
	}
	return n
}

// Add appends a stage, or replaces the node of an existing one.
func (n *Network) Add(id string, node ServiceNode) {
	if i, ok := n.index[id]; ok {
		n.stages[i].Node = node
		return
	}
	n.index[id] = len(n.stages)
	n.stages = append(n.stages, Stage{ID: id, Node: node})
}

// Stages returns a copy of the stages in order.
func (n *Network) Stages() []Stage {
	r := make([]Stage, len(n.stages))
	copy(r, n.stages)
	return r
}

// Len returns the number of stages.
func (n *Network) Len() int {
	return len(n.stages)
}

// Node returns the node of a stage.
func (n *Network) Node(id string) (ServiceNode, bool) {
	i, ok := n.index[id]
	if !ok {
		return ServiceNode{}, false
	}
	return n.stages[i].Node, true
}

// CompletionTime returns the end-to-end completion time in seconds of the
// network under an allocation. It stops at the first unstable stage and
// returns Unbounded, as does a nil allocation or a stage missing from it.
func (n *Network) CompletionTime(allocation v1alpha1.Allocation) float64 {
	if allocation == nil {
		return Unbounded
	}
	total := 0.0
	for _, s := range n.stages {
		c, ok := allocation[s.ID]
		if !ok {
			return Unbounded
		}
		t := s.Node.CompletionTime(c)
		if IsUnbounded(t) {
			return Unbounded
		}
		total += t
	}
	return total
}

// IsStable returns whether every stage is stable under the allocation.
func (n *Network) IsStable(allocation v1alpha1.Allocation) bool {
	for _, s := range n.stages {
		if !s.Node.IsStable(allocation[s.ID]) {
			return false
		}
	}
	return true
}

// LowerBound returns Σ 1/μ, the completion time no allocation can beat.
func (n *Network) LowerBound() float64 {
	total := 0.0
	for _, s := range n.stages {
		t := s.Node.ServiceTime()
		if IsUnbounded(t) {
			return Unbounded
		}
		total += t
	}
	return total
}

// MinimumAllocation returns the minimum stable worker count of every stage.
// It fails with ErrModelInvalid if any stage cannot be modeled.
func (n *Network) MinimumAllocation() (v1alpha1.Allocation, error) {
	r := make(v1alpha1.Allocation, len(n.stages))
	for _, s := range n.stages {
		c, err := s.Node.MinimumWorkers()
		if err != nil {
			return nil, err
		}
		r[s.ID] = c
	}
	return r, nil
}
