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

const (
	Project = "qos-scaler"

	EnvDebug  = "QOS_SCALER_DEBUG"
	EnvPPROF  = "QOS_SCALER_PPROF"
	EnvPrefix = "QOS_SCALER"

	// Label and annotation keys written by the kubernetes coordinator.
	KeyStageID              = "qos-scaler.numaproj.io/stage"
	KeyReconfigurationID    = "qos-scaler.numaproj.io/reconfiguration-id"
	KeyTotalPhysicalWorkers = "qos-scaler.numaproj.io/physical-workers"

	DefaultEngine                = "queueing"
	DefaultWindowSize            = 3
	DefaultIntervalSeconds       = 30
	DefaultSampleIntervalSeconds = 10
	DefaultMaxWorkersPerHost     = 10
	DefaultReconfigureTimeout    = 30
	DefaultMaxSearchBudget       = 1024
	DefaultCorrectionSpan        = 10
	DefaultSendQueueWarn         = 5.0
	DefaultRecvQueueCapacity     = 1024
	DefaultRecvQueueWarnRatio    = 0.6
	DefaultMetricsPort           = 9090
)
