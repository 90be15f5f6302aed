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
	"net/http/httptest"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/shared/logging"
)

type fakeHealthChecker struct {
	err error
}

func (f *fakeHealthChecker) IsHealthy(context.Context) error {
	return f.err
}

func testContext() context.Context {
	return logging.WithLogger(context.Background(), logging.NewNopLogger())
}

func Test_NewMetricsServer(t *testing.T) {
	ms := NewMetricsServer()
	assert.Equal(t, v1alpha1.DefaultMetricsPort, ms.port)
	ms = NewMetricsServer(WithPort(19090), WithHealthChecker(&fakeHealthChecker{}), WithHealthChecker(nil), nil)
	assert.Equal(t, 19090, ms.port)
	assert.Len(t, ms.healthCheckers, 1)
}

func Test_MetricsServer_Endpoints(t *testing.T) {
	checker := &fakeHealthChecker{err: errors.New("first tick has not completed")}
	ms := NewMetricsServer(WithHealthChecker(checker))
	server := httptest.NewServer(ms.Handler(testContext()))
	defer server.Close()

	Decisions.WithLabelValues(string(v1alpha1.DecisionFeasible)).Inc()

	e := httpexpect.Default(t, server.URL)
	e.GET("/livez").Expect().Status(204)
	e.GET("/readyz").Expect().Status(503).Body().Contains("first tick")
	checker.err = nil
	e.GET("/readyz").Expect().Status(204)
	e.GET("/metrics").Expect().Status(200).Body().Contains("qos_scaler_decisions_total")
	e.GET("/debug/pprof/").Expect().Status(404)
}

func Test_MetricsServer_StartAndShutdown(t *testing.T) {
	ms := NewMetricsServer(WithPort(0))
	shutdown, err := ms.Start(testContext())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
