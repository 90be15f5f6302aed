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

package queueing

import (
	"errors"
	"fmt"
	"math"
)

// ErrModelInvalid is returned when a node cannot be modeled, i.e. its service rate is not positive.
var ErrModelInvalid = errors.New("invalid service model, service rate must be positive")

// Unbounded is the completion time of an unstable stage or network.
var Unbounded = math.Inf(1)

// IsUnbounded returns whether a completion time is unbounded.
func IsUnbounded(t float64) bool {
	return math.IsInf(t, 1) || math.IsNaN(t)
}

// ServiceNode is the M/M/c model of one stage. Rates are per second.
type ServiceNode struct {
	// Lambda is the arrival rate to the stage.
	Lambda float64
	// Mu is the service rate of a single worker.
	Mu float64
}

// NewServiceNode returns a node, with ErrModelInvalid if mu is not positive.
// The node is returned either way so that it can still take part in a
// network as a permanently unstable stage.
func NewServiceNode(lambda, mu float64) (ServiceNode, error) {
	n := ServiceNode{Lambda: lambda, Mu: mu}
	if !n.IsValid() {
		return n, fmt.Errorf("%w: lambda=%v, mu=%v", ErrModelInvalid, lambda, mu)
	}
	return n, nil
}

// IsValid returns whether the node has a positive, finite service rate and a non-negative arrival rate.
func (n ServiceNode) IsValid() bool {
	return n.Mu > 0 && !math.IsInf(n.Mu, 0) && !math.IsNaN(n.Mu) && n.Lambda >= 0 && !math.IsNaN(n.Lambda)
}

// Load returns the offered load a = λ/μ, in number of busy workers.
func (n ServiceNode) Load() float64 {
	return n.Lambda / n.Mu
}

// Utilization returns ρ = λ/(c·μ).
func (n ServiceNode) Utilization(c int) float64 {
	if c <= 0 {
		return math.Inf(1)
	}
	return n.Lambda / (float64(c) * n.Mu)
}

// IsStable returns whether c workers can keep up with the arrivals, i.e. c·μ > λ.
func (n ServiceNode) IsStable(c int) bool {
	return n.IsValid() && c > 0 && float64(c)*n.Mu > n.Lambda
}

// MinimumWorkers returns the smallest c with c·μ > λ.
func (n ServiceNode) MinimumWorkers() (int, error) {
	if !n.IsValid() {
		return 0, fmt.Errorf("%w: lambda=%v, mu=%v", ErrModelInvalid, n.Lambda, n.Mu)
	}
	c := int(math.Floor(n.Lambda/n.Mu)) + 1
	// guard against rounding when λ/μ is just below an integer
	for c > 1 && float64(c-1)*n.Mu > n.Lambda {
		c--
	}
	for float64(c)*n.Mu <= n.Lambda {
		c++
	}
	return c, nil
}

// ErlangC returns the probability that an arriving job has to wait with c workers.
// It is computed from the Erlang-B recurrence, which does not overflow for large c:
//
//	B(0) = 1, B(k) = a·B(k-1) / (k + a·B(k-1))
//	C(c) = c·B(c) / (c - a·(1 - B(c)))
//
// The result is only meaningful for a stable node.
func (n ServiceNode) ErlangC(c int) float64 {
	a := n.Load()
	b := 1.0
	for k := 1; k <= c; k++ {
		b = a * b / (float64(k) + a*b)
	}
	return float64(c) * b / (float64(c) - a*(1-b))
}

// WaitingTime returns the expected time in queue Wq = C(c) / (c·μ - λ), Unbounded if unstable.
func (n ServiceNode) WaitingTime(c int) float64 {
	if !n.IsStable(c) {
		return Unbounded
	}
	return n.ErlangC(c) / (float64(c)*n.Mu - n.Lambda)
}

// CompletionTime returns the expected time a job spends in the stage with c
// workers, 1/μ + Wq, in seconds. It is Unbounded when the stage is unstable
// at c, including c = 0, or when the model is invalid.
func (n ServiceNode) CompletionTime(c int) float64 {
	wq := n.WaitingTime(c)
	if IsUnbounded(wq) {
		return Unbounded
	}
	return 1/n.Mu + wq
}

// ServiceTime returns 1/μ, the completion time with infinitely many workers.
func (n ServiceNode) ServiceTime() float64 {
	if !n.IsValid() {
		return Unbounded
	}
	return 1 / n.Mu
}

func (n ServiceNode) String() string {
	return fmt.Sprintf("{lambda: %.4f, mu: %.4f}", n.Lambda, n.Mu)
}
