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

import (
	"fmt"
	"sort"
	"strings"
)

// Allocation maps a stage ID to its number of parallel workers.
type Allocation map[string]int

// Total returns the number of workers across all stages.
func (a Allocation) Total() int {
	total := 0
	for _, c := range a {
		total += c
	}
	return total
}

// Clone returns a copy of the allocation, nil stays nil.
func (a Allocation) Clone() Allocation {
	if a == nil {
		return nil
	}
	r := make(Allocation, len(a))
	for k, v := range a {
		r[k] = v
	}
	return r
}

// Equal reports whether both allocations assign the same counts to the same stages.
func (a Allocation) Equal(b Allocation) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// Filter returns the subset of the allocation whose stage IDs satisfy keep.
func (a Allocation) Filter(keep func(stageID string) bool) Allocation {
	r := make(Allocation)
	for k, v := range a {
		if keep(k) {
			r[k] = v
		}
	}
	return r
}

// Merge returns a new allocation with the entries of b written over a.
func (a Allocation) Merge(b Allocation) Allocation {
	r := a.Clone()
	if r == nil {
		r = make(Allocation, len(b))
	}
	for k, v := range b {
		r[k] = v
	}
	return r
}

// String renders the allocation with sorted keys so log lines are stable.
func (a Allocation) String() string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", k, a[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
