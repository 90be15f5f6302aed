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

// Package config loads the scaler configuration from a YAML file,
// environment variables prefixed with QOS_SCALER_ and defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/shared/util"
)

const (
	CoordinatorDryRun     = "dryrun"
	CoordinatorKubernetes = "kubernetes"
)

type Config struct {
	// TargetLatencyMillis is the end-to-end latency target, it must be positive.
	TargetLatencyMillis float64 `mapstructure:"targetLatencyMillis"`
	// WindowSize is the number of ticks kept per stage.
	WindowSize      int `mapstructure:"windowSize"`
	IntervalSeconds int `mapstructure:"intervalSeconds"`
	// InitialDelaySeconds is the delay before the first tick, negative means twice the interval.
	InitialDelaySeconds int `mapstructure:"initialDelaySeconds"`
	// SampleIntervalSeconds is the reporting period of one worker sample.
	SampleIntervalSeconds float64 `mapstructure:"sampleIntervalSeconds"`
	MaxWorkersPerHost     int     `mapstructure:"maxWorkersPerHost"`
	// TotalWorkerBudget is the total number of workers, 0 uses the current allocation.
	TotalWorkerBudget int `mapstructure:"totalWorkerBudget"`
	// RebalanceWaitSeconds is passed with every reconfiguration request, negative leaves it unset.
	RebalanceWaitSeconds      int     `mapstructure:"rebalanceWaitSeconds"`
	ReconfigureTimeoutSeconds int     `mapstructure:"reconfigureTimeoutSeconds"`
	LatencySlackMillis        float64 `mapstructure:"latencySlackMillis"`
	MaxSearchBudget           int     `mapstructure:"maxSearchBudget"`
	CorrectionSpan            float64 `mapstructure:"correctionSpan"`
	SendQueueWarnThreshold    float64 `mapstructure:"sendQueueWarnThreshold"`
	RecvQueueCapacity         int     `mapstructure:"recvQueueCapacity"`
	RecvQueueWarnRatio        float64 `mapstructure:"recvQueueWarnRatio"`
	// Engine is the name of a registered decision engine.
	Engine         string `mapstructure:"engine"`
	MetricsPort    int    `mapstructure:"metricsPort"`
	TopologyFile   string `mapstructure:"topologyFile"`
	DedupCacheSize int    `mapstructure:"dedupCacheSize"`

	Source      SourceConfig      `mapstructure:"source"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
}

type SourceConfig struct {
	NATS  NATSConfig  `mapstructure:"nats"`
	Redis RedisConfig `mapstructure:"redis"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	Queue   string `mapstructure:"queue"`
	User    string `mapstructure:"user"`
	// Password and Token are usually set through the environment.
	Password string `mapstructure:"password"`
	Token    string `mapstructure:"token"`
}

// Enabled returns whether samples are received over NATS.
func (n NATSConfig) Enabled() bool {
	return n.URL != ""
}

type RedisConfig struct {
	Addrs               []string `mapstructure:"addrs"`
	MasterName          string   `mapstructure:"masterName"`
	Password            string   `mapstructure:"password"`
	Key                 string   `mapstructure:"key"`
	BatchSize           int      `mapstructure:"batchSize"`
	PollIntervalSeconds float64  `mapstructure:"pollIntervalSeconds"`
}

// Enabled returns whether samples are polled from redis.
func (r RedisConfig) Enabled() bool {
	return len(r.Addrs) > 0
}

type CoordinatorConfig struct {
	Kind       string           `mapstructure:"kind"`
	Kubernetes KubernetesConfig `mapstructure:"kubernetes"`
}

type KubernetesConfig struct {
	Namespace        string `mapstructure:"namespace"`
	DeploymentPrefix string `mapstructure:"deploymentPrefix"`
	// Kubeconfig is the path of a kubeconfig file, empty means $KUBECONFIG, ~/.kube/config or in-cluster.
	Kubeconfig string `mapstructure:"kubeconfig"`
}

var defaults = map[string]interface{}{
	"targetLatencyMillis":                     0,
	"windowSize":                              v1alpha1.DefaultWindowSize,
	"intervalSeconds":                         v1alpha1.DefaultIntervalSeconds,
	"initialDelaySeconds":                     -1,
	"sampleIntervalSeconds":                   v1alpha1.DefaultSampleIntervalSeconds,
	"maxWorkersPerHost":                       v1alpha1.DefaultMaxWorkersPerHost,
	"totalWorkerBudget":                       0,
	"rebalanceWaitSeconds":                    -1,
	"reconfigureTimeoutSeconds":               v1alpha1.DefaultReconfigureTimeout,
	"latencySlackMillis":                      0,
	"maxSearchBudget":                         v1alpha1.DefaultMaxSearchBudget,
	"correctionSpan":                          v1alpha1.DefaultCorrectionSpan,
	"sendQueueWarnThreshold":                  v1alpha1.DefaultSendQueueWarn,
	"recvQueueCapacity":                       v1alpha1.DefaultRecvQueueCapacity,
	"recvQueueWarnRatio":                      v1alpha1.DefaultRecvQueueWarnRatio,
	"engine":                                  v1alpha1.DefaultEngine,
	"metricsPort":                             v1alpha1.DefaultMetricsPort,
	"topologyFile":                            "",
	"dedupCacheSize":                          10000,
	"source.nats.url":                         "",
	"source.nats.subject":                     "qos-scaler.samples",
	"source.nats.queue":                       "qos-scaler",
	"source.nats.user":                        "",
	"source.nats.password":                    "",
	"source.nats.token":                       "",
	"source.redis.addrs":                      []string{},
	"source.redis.masterName":                 "",
	"source.redis.password":                   "",
	"source.redis.key":                        "qos-scaler:samples",
	"source.redis.batchSize":                  100,
	"source.redis.pollIntervalSeconds":        1,
	"coordinator.kind":                        CoordinatorDryRun,
	"coordinator.kubernetes.namespace":        "default",
	"coordinator.kubernetes.deploymentPrefix": "",
	"coordinator.kubernetes.kubeconfig":       "",
}

// Load reads the configuration. An empty path uses defaults and the environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(v1alpha1.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load configuration file. %w", err)
		}
	}
	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("failed unmarshal configuration file. %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate reports every invalid option at once.
func (c *Config) Validate() error {
	var errs error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.TargetLatencyMillis > 0, "targetLatencyMillis must be positive, got %v", c.TargetLatencyMillis)
	check(c.WindowSize >= 1, "windowSize must be at least 1, got %d", c.WindowSize)
	check(c.IntervalSeconds > 0, "intervalSeconds must be positive, got %d", c.IntervalSeconds)
	check(c.SampleIntervalSeconds > 0, "sampleIntervalSeconds must be positive, got %v", c.SampleIntervalSeconds)
	check(c.MaxWorkersPerHost >= 1, "maxWorkersPerHost must be at least 1, got %d", c.MaxWorkersPerHost)
	check(c.TotalWorkerBudget >= 0, "totalWorkerBudget must not be negative, got %d", c.TotalWorkerBudget)
	check(c.ReconfigureTimeoutSeconds > 0, "reconfigureTimeoutSeconds must be positive, got %d", c.ReconfigureTimeoutSeconds)
	check(c.LatencySlackMillis >= 0, "latencySlackMillis must not be negative, got %v", c.LatencySlackMillis)
	check(c.MaxSearchBudget >= 1, "maxSearchBudget must be at least 1, got %d", c.MaxSearchBudget)
	check(c.CorrectionSpan >= 1, "correctionSpan must be at least 1, got %v", c.CorrectionSpan)
	check(c.SendQueueWarnThreshold > 0, "sendQueueWarnThreshold must be positive, got %v", c.SendQueueWarnThreshold)
	check(c.RecvQueueCapacity > 0, "recvQueueCapacity must be positive, got %d", c.RecvQueueCapacity)
	check(c.RecvQueueWarnRatio > 0 && c.RecvQueueWarnRatio <= 1, "recvQueueWarnRatio must be in (0, 1], got %v", c.RecvQueueWarnRatio)
	check(c.Engine != "", "engine must not be empty")
	check(c.MetricsPort >= 0 && c.MetricsPort <= 65535, "metricsPort must be in [0, 65535], got %d", c.MetricsPort)
	check(c.TopologyFile != "", "topologyFile is required")
	if c.Source.NATS.Enabled() {
		check(c.Source.NATS.Subject != "", "source.nats.subject is required with source.nats.url")
	}
	if c.Source.Redis.Enabled() {
		check(c.Source.Redis.Key != "", "source.redis.key is required with source.redis.addrs")
		check(c.Source.Redis.BatchSize > 0, "source.redis.batchSize must be positive, got %d", c.Source.Redis.BatchSize)
		check(c.Source.Redis.PollIntervalSeconds > 0, "source.redis.pollIntervalSeconds must be positive, got %v", c.Source.Redis.PollIntervalSeconds)
	}
	switch c.Coordinator.Kind {
	case CoordinatorDryRun:
	case CoordinatorKubernetes:
		check(c.Coordinator.Kubernetes.Namespace != "", "coordinator.kubernetes.namespace is required")
	default:
		check(false, "coordinator.kind must be %q or %q, got %q", CoordinatorDryRun, CoordinatorKubernetes, c.Coordinator.Kind)
	}
	return errs
}

func (c *Config) TargetLatency() time.Duration {
	return time.Duration(c.TargetLatencyMillis * float64(time.Millisecond))
}

func (c *Config) LatencySlack() time.Duration {
	return time.Duration(c.LatencySlackMillis * float64(time.Millisecond))
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// InitialDelay returns the delay before the first tick, negative when unset.
func (c *Config) InitialDelay() time.Duration {
	if c.InitialDelaySeconds < 0 {
		return -1
	}
	return time.Duration(c.InitialDelaySeconds) * time.Second
}

func (c *Config) SampleInterval() time.Duration {
	return util.SecondsToDuration(c.SampleIntervalSeconds)
}

func (c *Config) ReconfigureTimeout() time.Duration {
	return time.Duration(c.ReconfigureTimeoutSeconds) * time.Second
}

// RecvQueueWarnThreshold returns the inbound queue length that triggers a warning.
func (c *Config) RecvQueueWarnThreshold() float64 {
	return float64(c.RecvQueueCapacity) * c.RecvQueueWarnRatio
}

func (r RedisConfig) PollInterval() time.Duration {
	return util.SecondsToDuration(r.PollIntervalSeconds)
}
