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

package topology

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"sigs.k8s.io/yaml"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
)

// ErrInvalidTopology wraps every validation failure.
var ErrInvalidTopology = errors.New("invalid topology")

// Role tells how a stage is treated by the decision engine. Source stages are
// not queue-limited and keep their worker count, processing stages are
// modeled as queues and resized.
type Role string

const (
	RoleSource     Role = "source"
	RoleProcessing Role = "processing"
)

// Stage describes one stage of the pipeline.
type Stage struct {
	ID       string   `json:"id"`
	Role     Role     `json:"role"`
	Upstream []string `json:"upstream,omitempty"`
	// Workers is the declared worker count, used when the coordinator cannot report the live one.
	Workers int `json:"workers"`
}

// Topology is a validated pipeline description.
type Topology struct {
	stages []Stage
	byID   map[string]int
	// order holds stage indexes in topological order
	order []int
}

type topologyFile struct {
	Stages []Stage `json:"stages"`
}

// Load reads and validates a YAML or JSON topology file.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file %q, %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML or JSON topology document.
func Parse(data []byte) (*Topology, error) {
	f := &topologyFile{}
	if err := yaml.UnmarshalStrict(data, f); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal, %v", ErrInvalidTopology, err)
	}
	return New(f.Stages...)
}

// New validates the stages and returns a Topology.
func New(stages ...Stage) (*Topology, error) {
	t := &Topology{
		stages: make([]Stage, len(stages)),
		byID:   make(map[string]int, len(stages)),
	}
	copy(t.stages, stages)
	if err := t.validate(); err != nil {
		return nil, err
	}
	order, err := t.sort()
	if err != nil {
		return nil, err
	}
	t.order = order
	return t, nil
}

func (t *Topology) validate() error {
	var errs error
	if len(t.stages) == 0 {
		return fmt.Errorf("%w: no stages", ErrInvalidTopology)
	}
	processing := 0
	for i, s := range t.stages {
		if s.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("stage #%d has no id", i))
			continue
		}
		if _, ok := t.byID[s.ID]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate stage id %q", s.ID))
			continue
		}
		t.byID[s.ID] = i
		switch s.Role {
		case RoleSource:
		case RoleProcessing:
			processing++
		default:
			errs = multierr.Append(errs, fmt.Errorf("stage %q has unknown role %q", s.ID, s.Role))
		}
		if s.Workers < 0 {
			errs = multierr.Append(errs, fmt.Errorf("stage %q has negative workers %d", s.ID, s.Workers))
		}
	}
	for _, s := range t.stages {
		for _, u := range s.Upstream {
			if _, ok := t.byID[u]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("stage %q has unknown upstream %q", s.ID, u))
			}
			if u == s.ID {
				errs = multierr.Append(errs, fmt.Errorf("stage %q is its own upstream", s.ID))
			}
		}
	}
	if processing == 0 {
		errs = multierr.Append(errs, errors.New("no processing stage"))
	}
	if errs != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTopology, errs)
	}
	return nil
}

// sort orders the stages topologically, breaking ties by declaration order.
func (t *Topology) sort() ([]int, error) {
	inDegree := make([]int, len(t.stages))
	downstream := make([][]int, len(t.stages))
	for i, s := range t.stages {
		for _, u := range s.Upstream {
			j := t.byID[u]
			downstream[j] = append(downstream[j], i)
			inDegree[i]++
		}
	}
	order := make([]int, 0, len(t.stages))
	done := make([]bool, len(t.stages))
	for len(order) < len(t.stages) {
		progressed := false
		for i := range t.stages {
			if done[i] || inDegree[i] > 0 {
				continue
			}
			done[i] = true
			order = append(order, i)
			for _, d := range downstream[i] {
				inDegree[d]--
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, fmt.Errorf("%w: cycle detected", ErrInvalidTopology)
		}
	}
	return order, nil
}

// Stages returns the stages in topological order.
func (t *Topology) Stages() []Stage {
	r := make([]Stage, 0, len(t.order))
	for _, i := range t.order {
		r = append(r, t.stages[i])
	}
	return r
}

// Stage returns a stage by ID.
func (t *Topology) Stage(id string) (Stage, bool) {
	i, ok := t.byID[id]
	if !ok {
		return Stage{}, false
	}
	return t.stages[i], true
}

// Role returns the role of a stage.
func (t *Topology) Role(id string) (Role, bool) {
	s, ok := t.Stage(id)
	return s.Role, ok
}

// IsSource returns whether a stage is a source stage.
func (t *Topology) IsSource(id string) bool {
	r, ok := t.Role(id)
	return ok && r == RoleSource
}

// IsProcessing returns whether a stage is a processing stage.
func (t *Topology) IsProcessing(id string) bool {
	r, ok := t.Role(id)
	return ok && r == RoleProcessing
}

// SourceIDs returns the source stage IDs in topological order.
func (t *Topology) SourceIDs() []string {
	return t.idsWithRole(RoleSource)
}

// ProcessingIDs returns the processing stage IDs in topological order.
func (t *Topology) ProcessingIDs() []string {
	return t.idsWithRole(RoleProcessing)
}

func (t *Topology) idsWithRole(role Role) []string {
	var r []string
	for _, i := range t.order {
		if t.stages[i].Role == role {
			r = append(r, t.stages[i].ID)
		}
	}
	return r
}

// DeclaredAllocation returns the worker counts declared in the topology.
func (t *Topology) DeclaredAllocation() v1alpha1.Allocation {
	r := make(v1alpha1.Allocation, len(t.stages))
	for _, s := range t.stages {
		r[s.ID] = s.Workers
	}
	return r
}
