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

// Package queueing models each processing stage as an M/M/c queue and a
// pipeline as the chain of its stages.
//
// A ServiceNode answers how long a job spends in a stage (waiting plus
// service) for a given number of workers. A Network sums the stage times
// along the pipeline. An unstable stage (c·μ ≤ λ) has an unbounded
// completion time, represented by +Inf, which makes the whole network
// unbounded.
package queueing
