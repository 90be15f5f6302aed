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

// Package optimize decides how many workers each pipeline stage should run.
//
// SuggestAllocation spreads a fixed budget of workers over the stages of a
// queueing network, MinimumBudgetForTarget finds the smallest budget whose
// allocation meets a latency target. An Engine runs once per control-loop
// tick: it turns the tick's samples into a queueing network and calls both
// searches. Engines are looked up by name in a registry so that the
// implementation can be chosen from configuration.
package optimize
