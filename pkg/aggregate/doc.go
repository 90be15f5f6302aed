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

// Package aggregate turns the raw samples of one control-loop tick into
// per-stage statistics and keeps a fixed number of past ticks per stage.
//
// Samples are grouped by stage and then by worker. Every worker gets its own
// accumulator per metric, and the worker accumulators are merged into one
// StageResult. A History keeps the last N results of a stage; its combined
// view is what the queueing model is built from.
package aggregate
