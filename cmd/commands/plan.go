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
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/numaproj/qos-scaler/pkg/apis/scaler/v1alpha1"
	"github.com/numaproj/qos-scaler/pkg/optimize"
	"github.com/numaproj/qos-scaler/pkg/queueing"
)

// planModel is a hand written queueing model, stages listed in pipeline order.
type planModel struct {
	Stages []struct {
		ID     string  `json:"id"`
		Lambda float64 `json:"lambda"`
		Mu     float64 `json:"mu"`
	} `json:"stages"`
}

func NewPlanCommand() *cobra.Command {
	var (
		modelFile string
		target    time.Duration
		slack     time.Duration
		budget    int
		maxBudget int
	)

	command := &cobra.Command{
		Use:   "plan",
		Short: "Compute allocations offline from a queueing model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelFile == "" {
				cmd.HelpFunc()(cmd, args)
				return errors.New("--model is required")
			}
			if target <= 0 && budget <= 0 {
				return errors.New("at least one of --target or --budget must be positive")
			}
			data, err := os.ReadFile(modelFile)
			if err != nil {
				return fmt.Errorf("failed to read model, %w", err)
			}
			net, err := parsePlanModel(data)
			if err != nil {
				return err
			}
			return printPlan(cmd.OutOrStdout(), net, target, slack, budget, maxBudget)
		},
	}
	command.Flags().StringVar(&modelFile, "model", "", "YAML file with the stages, e.g. 'stages: [{id: a, lambda: 5, mu: 20}]'")
	command.Flags().DurationVar(&target, "target", 0, "End-to-end latency target, e.g. 300ms")
	command.Flags().DurationVar(&slack, "slack", 0, "Slack added to the lower bound before comparing it with the target")
	command.Flags().IntVar(&budget, "budget", 0, "Total number of workers to distribute")
	command.Flags().IntVar(&maxBudget, "max-budget", v1alpha1.DefaultMaxSearchBudget, "Upper bound of the minimum budget search")
	return command
}

func parsePlanModel(data []byte) (*queueing.Network, error) {
	model := planModel{}
	if err := yaml.UnmarshalStrict(data, &model); err != nil {
		return nil, fmt.Errorf("failed to parse model, %w", err)
	}
	if len(model.Stages) == 0 {
		return nil, errors.New("model has no stages")
	}
	net := queueing.NewNetwork()
	for _, s := range model.Stages {
		if s.ID == "" {
			return nil, errors.New("model stage without id")
		}
		node, err := queueing.NewServiceNode(s.Lambda, s.Mu)
		if err != nil {
			return nil, fmt.Errorf("stage %q, %w", s.ID, err)
		}
		net.Add(s.ID, node)
	}
	return net, nil
}

func printPlan(w io.Writer, net *queueing.Network, target, slack time.Duration, budget, maxBudget int) error {
	fmt.Fprintf(w, "lower bound: %.4fs\n", net.LowerBound())
	if target > 0 {
		alloc, total, err := optimize.MinimumBudgetForTarget(net, target.Seconds(), slack.Seconds(), 1, maxBudget)
		switch {
		case errors.Is(err, optimize.ErrInfeasible):
			fmt.Fprintf(w, "target %v: infeasible (%v)\n", target, err)
		case err != nil:
			return err
		default:
			fmt.Fprintf(w, "target %v: minimum budget %d, allocation %v, estimated %.4fs\n",
				target, total, alloc, net.CompletionTime(alloc))
		}
	}
	if budget > 0 {
		alloc, err := optimize.SuggestAllocation(net, budget)
		switch {
		case errors.Is(err, optimize.ErrInfeasible):
			fmt.Fprintf(w, "budget %d: infeasible (%v)\n", budget, err)
		case err != nil:
			return err
		default:
			fmt.Fprintf(w, "budget %d: allocation %v, estimated %.4fs\n",
				budget, alloc, net.CompletionTime(alloc))
		}
	}
	return nil
}
