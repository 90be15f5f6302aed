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

// Package sources receives worker samples from a transport, translates them
// to the metric vocabulary of the decision engine and hands them to a Sink.
package sources

import (
	"context"

	"go.uber.org/zap"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/metrics"
	"github.com/numaproj/qos-scaler/pkg/shared/logging"
)

// Sink receives decoded samples. It must be safe for concurrent use.
type Sink interface {
	Add(samples ...v1alpha1.Sample)
}

// Source delivers samples until its context is cancelled.
type Source interface {
	// Start blocks until the context is cancelled or the source fails.
	Start(ctx context.Context) error
}

// Ingester decodes payloads, drops duplicates and forwards the rest to a Sink.
type Ingester struct {
	transport string
	sink      Sink
	deduper   *Deduper
}

// NewIngester returns an ingester for a transport. A nil deduper disables
// duplicate suppression.
func NewIngester(transport string, sink Sink, deduper *Deduper) *Ingester {
	return &Ingester{transport: transport, sink: sink, deduper: deduper}
}

// Ingest handles one payload and returns the number of samples accepted.
func (i *Ingester) Ingest(ctx context.Context, payload []byte) int {
	log := logging.FromContext(ctx)
	samples, err := Decode(payload)
	if err != nil {
		metrics.SamplesDropped.WithLabelValues(ReasonMalformed).Inc()
		log.Warnw("Dropping malformed sample payload", zap.String("transport", i.transport), zap.Error(err))
		return 0
	}
	accepted := samples[:0]
	for _, s := range samples {
		switch {
		case len(s.Metrics) == 0:
			metrics.SamplesDropped.WithLabelValues(ReasonNoKnownMetric).Inc()
		case i.deduper != nil && i.deduper.Seen(s):
			metrics.SamplesDropped.WithLabelValues(ReasonDuplicate).Inc()
		default:
			accepted = append(accepted, s)
		}
	}
	if len(accepted) > 0 {
		i.sink.Add(accepted...)
		metrics.SamplesIngested.WithLabelValues(i.transport).Add(float64(len(accepted)))
	}
	return len(accepted)
}
