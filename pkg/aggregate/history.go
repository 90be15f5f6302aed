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

package aggregate

// History is a fixed-capacity sequence of StageResult, the oldest result is
// evicted when a new one is pushed at capacity. It is owned by the tick
// goroutine and is not safe for concurrent use.
type History struct {
	capacity int
	slots    []StageResult
}

// NewHistory returns an empty History keeping at most capacity results.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		capacity: capacity,
		slots:    make([]StageResult, 0, capacity),
	}
}

// Push appends a result, evicting the oldest one at capacity.
func (h *History) Push(r StageResult) {
	if len(h.slots) >= h.capacity {
		copy(h.slots, h.slots[1:])
		h.slots = h.slots[:len(h.slots)-1]
	}
	h.slots = append(h.slots, r)
}

// Len returns the number of results held.
func (h *History) Len() int {
	return len(h.slots)
}

// Items returns a copy of the results, oldest first.
func (h *History) Items() []StageResult {
	r := make([]StageResult, len(h.slots))
	_ = copy(r, h.slots)
	return r
}

// Combined merges every result in the window, ok is false when the history is empty.
func (h *History) Combined() (StageResult, bool) {
	return Combine(h.slots...)
}

// Histories keeps one History per stage, all of the same capacity.
type Histories struct {
	capacity int
	byStage  map[string]*History
}

func NewHistories(capacity int) *Histories {
	return &Histories{
		capacity: capacity,
		byStage:  make(map[string]*History),
	}
}

// Record pushes the tick results of the stages accepted by keep. Stages
// without a result this tick are left untouched.
func (hs *Histories) Record(results map[string]StageResult, keep func(stageID string) bool) {
	for stageID, r := range results {
		if keep != nil && !keep(stageID) {
			continue
		}
		if r.IsEmpty() {
			continue
		}
		h, ok := hs.byStage[stageID]
		if !ok {
			h = NewHistory(hs.capacity)
			hs.byStage[stageID] = h
		}
		h.Push(r)
	}
}

// Combined returns the merged window of a stage, ok is false if the stage never reported.
func (hs *Histories) Combined(stageID string) (StageResult, bool) {
	h, ok := hs.byStage[stageID]
	if !ok {
		return StageResult{}, false
	}
	return h.Combined()
}

// Has returns whether the stage has ever reported.
func (hs *Histories) Has(stageID string) bool {
	h, ok := hs.byStage[stageID]
	return ok && h.Len() > 0
}

// Stages returns the IDs of the stages with a history.
func (hs *Histories) Stages() []string {
	r := make([]string, 0, len(hs.byStage))
	for id := range hs.byStage {
		r = append(r, id)
	}
	return r
}
