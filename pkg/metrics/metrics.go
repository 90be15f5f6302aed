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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "qos_scaler"

const (
	LabelVersion   = "version"
	LabelPlatform  = "platform"
	LabelStatus    = "status"
	LabelResult    = "result"
	LabelReason    = "reason"
	LabelTransport = "transport"
	LabelStage     = "stage"
	LabelKind      = "kind"
)

// Values of LabelKind on StageWorkers.
const (
	KindCurrent     = "current"
	KindRecommended = "recommended"
	KindMinimum     = "minimum"
)

// Values of LabelResult on Reconfigurations.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "A metric with a constant value '1', labeled by the binary version and platform",
	}, []string{LabelVersion, LabelPlatform})
)

// Control loop metrics
var (
	// Decisions counts the decisions made, by status.
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_total",
		Help:      "Total number of decisions, by status",
	}, []string{LabelStatus})

	// Reconfigurations counts the reconfiguration requests sent, by result.
	Reconfigurations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reconfigurations_total",
		Help:      "Total number of reconfiguration requests, by result",
	}, []string{LabelResult})

	EstimatedLatency = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "estimated_latency_seconds",
		Help:      "Modeled end-to-end latency of the current allocation",
	})

	CorrectionRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "correction_ratio",
		Help:      "Smoothed ratio between observed and modeled latency",
	})

	// StageWorkers is the worker count of a stage in the current, recommended and minimum allocations.
	StageWorkers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stage_workers",
		Help:      "Worker count of a stage, by allocation kind",
	}, []string{LabelStage, LabelKind})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tick_duration_seconds",
		Help:      "Time spent in one control loop tick",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})
)

// Sample ingestion metrics
var (
	SamplesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "samples_ingested_total",
		Help:      "Total number of samples accepted, by transport",
	}, []string{LabelTransport})

	SamplesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "samples_dropped_total",
		Help:      "Total number of samples dropped, by reason",
	}, []string{LabelReason})
)
