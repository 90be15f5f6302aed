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

package sources

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
)

// Envelope is the wire format of a sample. Timestamp is in Unix milliseconds.
type Envelope struct {
	Stage     string             `json:"stage"`
	Worker    string             `json:"worker"`
	Timestamp int64              `json:"timestamp"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Sample converts the envelope, translating the metric names.
func (e Envelope) Sample() (v1alpha1.Sample, error) {
	if e.Stage == "" {
		return v1alpha1.Sample{}, errors.New("sample without stage")
	}
	if e.Worker == "" {
		return v1alpha1.Sample{}, fmt.Errorf("sample of stage %q without worker", e.Stage)
	}
	return v1alpha1.Sample{
		StageID:   e.Stage,
		WorkerID:  e.Worker,
		Timestamp: time.UnixMilli(e.Timestamp),
		Metrics:   Translate(e.Metrics),
	}, nil
}

// Decode parses a payload holding one envelope or an array of envelopes.
// A single invalid envelope fails the whole payload.
func Decode(payload []byte) ([]v1alpha1.Sample, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, errors.New("empty payload")
	}
	var envelopes []Envelope
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &envelopes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal samples, %w", err)
		}
	} else {
		var e Envelope
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sample, %w", err)
		}
		envelopes = append(envelopes, e)
	}
	samples := make([]v1alpha1.Sample, 0, len(envelopes))
	for _, e := range envelopes {
		s, err := e.Sample()
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// Encode renders samples in the wire format, used by tests and tools that publish samples.
func Encode(samples ...v1alpha1.Sample) ([]byte, error) {
	envelopes := make([]Envelope, 0, len(samples))
	for _, s := range samples {
		m := make(map[string]float64, len(s.Metrics))
		for k, v := range s.Metrics {
			m[string(k)] = v
		}
		envelopes = append(envelopes, Envelope{Stage: s.StageID, Worker: s.WorkerID, Timestamp: s.Timestamp.UnixMilli(), Metrics: m})
	}
	return json.Marshal(envelopes)
}
