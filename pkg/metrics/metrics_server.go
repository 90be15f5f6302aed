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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/shared/logging"
)

// metricsServer runs an HTTP server to:
// 1. Expose metrics;
// 2. Serve liveness and readiness endpoints.
type metricsServer struct {
	port              int
	readHeaderTimeout time.Duration
	healthCheckers    []HealthChecker
}

type Option func(*metricsServer)

// WithPort sets the listening port, 0 picks a free one.
func WithPort(port int) Option {
	return func(m *metricsServer) {
		m.port = port
	}
}

// WithHealthChecker adds a checker consulted by /readyz.
func WithHealthChecker(h HealthChecker) Option {
	return func(m *metricsServer) {
		if h != nil {
			m.healthCheckers = append(m.healthCheckers, h)
		}
	}
}

// NewMetricsServer returns a metrics server, which can be used to start an HTTP service to expose Prometheus metrics.
func NewMetricsServer(opts ...Option) *metricsServer {
	m := &metricsServer{
		port:              v1alpha1.DefaultMetricsPort,
		readHeaderTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Handler returns the HTTP handler of the server.
func (ms *metricsServer) Handler(ctx context.Context) http.Handler {
	log := logging.FromContext(ctx)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		for _, h := range ms.healthCheckers {
			if err := h.IsHealthy(r.Context()); err != nil {
				log.Debugw("Readiness check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	pprofEnabled := os.Getenv(v1alpha1.EnvDebug) == "true" || os.Getenv(v1alpha1.EnvPPROF) == "true"
	if pprofEnabled {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		log.Info("Not enabling pprof debug endpoints")
	}
	return mux
}

// Start starts the HTTP service to expose metrics, it returns a shutdown
// function and an error if the port cannot be bound.
func (ms *metricsServer) Start(ctx context.Context) (func(ctx context.Context) error, error) {
	log := logging.FromContext(ctx)
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", ms.port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d, %w", ms.port, err)
	}
	httpServer := &http.Server{
		Handler:           ms.Handler(ctx),
		ReadHeaderTimeout: ms.readHeaderTimeout,
	}
	go func() {
		log.Infow("Starting metrics HTTP server", zap.String("address", ln.Addr().String()))
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("Metrics server stopped unexpectedly", zap.Error(err))
		}
		log.Info("Metrics server shutdown")
	}()
	return httpServer.Shutdown, nil
}
