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

package commands

import (
	"context"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"k8s.io/client-go/kubernetes"

	qosscaler "github.com/numaproj/qos-scaler"
	"github.com/numaproj/qos-scaler/pkg/coordinator"
	k8scoordinator "github.com/numaproj/qos-scaler/pkg/coordinator/kubernetes"
	"github.com/numaproj/qos-scaler/pkg/metrics"
	"github.com/numaproj/qos-scaler/pkg/optimize"
	"github.com/numaproj/qos-scaler/pkg/scaler"
	redisclient "github.com/numaproj/qos-scaler/pkg/shared/clients/redis"
	"github.com/numaproj/qos-scaler/pkg/shared/config"
	"github.com/numaproj/qos-scaler/pkg/shared/logging"
	"github.com/numaproj/qos-scaler/pkg/shared/util"
	"github.com/numaproj/qos-scaler/pkg/sources"
	natssource "github.com/numaproj/qos-scaler/pkg/sources/nats"
	redissource "github.com/numaproj/qos-scaler/pkg/sources/redis"
	"github.com/numaproj/qos-scaler/pkg/topology"
)

func NewRunCommand() *cobra.Command {
	var configFile string

	command := &cobra.Command{
		Use:   "run",
		Short: "Start the autoscaler control loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger().Named("run")
			logger.Infow("Starting qos-scaler", "version", qosscaler.GetVersion())
			conf, err := config.Load(configFile)
			if err != nil {
				return err
			}
			topo, err := topology.Load(conf.TopologyFile)
			if err != nil {
				return fmt.Errorf("failed to load topology, %w", err)
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx = logging.WithLogger(ctx, logger)
			return run(ctx, conf, topo)
		},
	}
	command.Flags().StringVar(&configFile, "config", "", "Path of the configuration file, settings can also be passed as QOS_SCALER_* environment variables")
	return command
}

func run(ctx context.Context, conf *config.Config, topo *topology.Topology) error {
	logger := logging.FromContext(ctx)

	engine, err := optimize.New(conf.Engine, optimize.Params{
		Topology:               topo,
		TargetLatency:          conf.TargetLatency(),
		LatencySlack:           conf.LatencySlack(),
		WindowSize:             conf.WindowSize,
		SampleInterval:         conf.SampleInterval(),
		TotalBudget:            conf.TotalWorkerBudget,
		MaxSearchBudget:        conf.MaxSearchBudget,
		CorrectionSpan:         conf.CorrectionSpan,
		SendQueueWarnThreshold: conf.SendQueueWarnThreshold,
		RecvQueueWarnThreshold: conf.RecvQueueWarnThreshold(),
	})
	if err != nil {
		return err
	}

	coord, err := newCoordinator(conf, topo)
	if err != nil {
		return err
	}

	buffer := scaler.NewSampleBuffer()
	deduper, err := sources.NewDeduper(conf.DedupCacheSize)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	var srcs []sources.Source
	if n := conf.Source.NATS; n.Enabled() {
		var opts []natssource.Option
		if n.User != "" {
			opts = append(opts, natssource.WithUserInfo(n.User, n.Password))
		}
		if n.Token != "" {
			opts = append(opts, natssource.WithToken(n.Token))
		}
		src, err := natssource.New(gCtx, n.URL, n.Subject, n.Queue, sources.NewIngester(natssource.Transport, buffer, deduper), opts...)
		if err != nil {
			return err
		}
		srcs = append(srcs, src)
	}
	if r := conf.Source.Redis; r.Enabled() {
		client := redisclient.NewRedisClient(&redis.UniversalOptions{
			Addrs:      r.Addrs,
			MasterName: r.MasterName,
			Password:   r.Password,
		})
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warnw("Failed to close redis client", zap.Error(err))
			}
		}()
		src, err := redissource.New(gCtx, client, r.Key, sources.NewIngester(redissource.Transport, buffer, deduper),
			redissource.WithBatchSize(r.BatchSize), redissource.WithPollInterval(r.PollInterval()))
		if err != nil {
			return err
		}
		srcs = append(srcs, src)
	}
	if len(srcs) == 0 {
		logger.Warn("No sample source configured, only samples added in process will be used")
	}
	for _, src := range srcs {
		src := src
		g.Go(func() error {
			return src.Start(gCtx)
		})
	}

	s := scaler.NewScaler(engine, coord, buffer, topo,
		scaler.WithInterval(conf.Interval()),
		scaler.WithInitialDelay(conf.InitialDelay()),
		scaler.WithMaxWorkersPerHost(conf.MaxWorkersPerHost),
		scaler.WithReconfigureTimeout(conf.ReconfigureTimeout()),
		scaler.WithRebalanceWaitSeconds(conf.RebalanceWaitSeconds),
	)

	if conf.MetricsPort > 0 {
		v := qosscaler.GetVersion()
		metrics.BuildInfo.WithLabelValues(v.Version, v.Platform).Set(1)
		ms := metrics.NewMetricsServer(metrics.WithPort(conf.MetricsPort), metrics.WithHealthChecker(s))
		shutdown, err := ms.Start(gCtx)
		if err != nil {
			return fmt.Errorf("failed to start metrics server, %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warnw("Failed to shutdown metrics server", zap.Error(err))
			}
		}()
	}

	g.Go(func() error {
		return s.Start(gCtx)
	})
	logger.Infow("Control loop started",
		"engine", conf.Engine,
		"coordinator", conf.Coordinator.Kind,
		"stages", len(topo.Stages()),
		"goVersion", runtime.Version())
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("Control loop stopped")
	return nil
}

func newCoordinator(conf *config.Config, topo *topology.Topology) (coordinator.Coordinator, error) {
	switch conf.Coordinator.Kind {
	case config.CoordinatorKubernetes:
		k := conf.Coordinator.Kubernetes
		restConfig, err := util.K8sRestConfig(k.Kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to get kubernetes rest config, %w", err)
		}
		client, err := kubernetes.NewForConfig(restConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create kubernetes client, %w", err)
		}
		ids := make([]string, 0, len(topo.Stages()))
		for _, st := range topo.Stages() {
			ids = append(ids, st.ID)
		}
		return k8scoordinator.New(client, k.Namespace, k.DeploymentPrefix, ids), nil
	default:
		return coordinator.NewDryRun(topo.DeclaredAllocation()), nil
	}
}
