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

package scaler

import (
	"time"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
)

type options struct {
	// Period between two ticks of the control loop.
	interval time.Duration
	// Delay before the first tick, negative means twice the interval.
	initialDelay time.Duration
	// Number of executors a physical worker can host.
	maxWorkersPerHost int
	// Upper bound of the wait for a reconfiguration acknowledgment.
	reconfigureTimeout time.Duration
	// Wait passed to the coordinator with every request, nil when unset.
	rebalanceWaitSeconds *int
}

type Option func(*options)

func defaultOptions() *options {
	return &options{
		interval:           time.Duration(v1alpha1.DefaultIntervalSeconds) * time.Second,
		initialDelay:       -1,
		maxWorkersPerHost:  v1alpha1.DefaultMaxWorkersPerHost,
		reconfigureTimeout: time.Duration(v1alpha1.DefaultReconfigureTimeout) * time.Second,
	}
}

func (o *options) firstTickDelay() time.Duration {
	if o.initialDelay < 0 {
		return 2 * o.interval
	}
	return o.initialDelay
}

// WithInterval sets the period between two ticks.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
	}
}

// WithInitialDelay sets the delay before the first tick, a negative value means twice the interval.
func WithInitialDelay(d time.Duration) Option {
	return func(o *options) {
		o.initialDelay = d
	}
}

// WithMaxWorkersPerHost sets how many executors share one physical worker.
func WithMaxWorkersPerHost(n int) Option {
	return func(o *options) {
		o.maxWorkersPerHost = n
	}
}

// WithReconfigureTimeout sets the bounded wait for a reconfiguration acknowledgment.
func WithReconfigureTimeout(d time.Duration) Option {
	return func(o *options) {
		o.reconfigureTimeout = d
	}
}

// WithRebalanceWaitSeconds sets the wait passed along with every request, a negative value leaves it unset.
func WithRebalanceWaitSeconds(n int) Option {
	return func(o *options) {
		if n < 0 {
			o.rebalanceWaitSeconds = nil
			return
		}
		o.rebalanceWaitSeconds = &n
	}
}
