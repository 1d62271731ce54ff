package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ryftlabs/launchconf"
	"github.com/ryftlabs/launchconf/launch"
)

func newPlanCommand(opts *rootOptions) *cobra.Command {
	var reward string

	cmd := &cobra.Command{
		Use:   "plan [path=value ...]",
		Short: "Build a launch plan from the resolved configuration",
		Long: `Plan resolves and validates the configuration, decodes it into the
training spec, and prints the launch handoff: run id, world size, and the
key worker settings. With --reward the named in-process reward function
replaces worker.reward.reward_function and must be registered.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := buildResolver(opts, args)
			if err != nil {
				return err
			}
			if reward != "" {
				if _, ok := launch.LookupReward(reward); !ok {
					return fmt.Errorf("reward function %q is not registered (have: %s)",
						reward, strings.Join(launch.RewardNames(), ", "))
				}
				resolver = resolver.WithOverrides(launchconf.Override{
					Path: launchconf.MustParsePath("worker.reward.reward_function"),
					Raw:  reward,
				})
			}

			res, err := resolver.Resolve()
			if err != nil {
				return err
			}

			planner := launch.NewPlanner(opts.logger)
			plan, err := planner.Plan(res)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run_id:         %s\n", plan.RunID)
			fmt.Fprintf(out, "created_at:     %s\n", plan.CreatedAt.Format("2006-01-02T15:04:05Z"))
			fmt.Fprintf(out, "experiment:     %s/%s\n", plan.Spec.Trainer.ProjectName, plan.Spec.Trainer.ExperimentName)
			fmt.Fprintf(out, "world_size:     %d (%d nodes x %d gpus)\n",
				plan.WorldSize, plan.Spec.Trainer.NNodes, plan.Spec.Trainer.NGPUsPerNode)
			fmt.Fprintf(out, "model:          %s\n", plan.Spec.Worker.Actor.Model.ModelPath)
			fmt.Fprintf(out, "adv_estimator:  %s\n", plan.Spec.Algorithm.AdvEstimator)
			fmt.Fprintf(out, "rollout:        %s (tp=%d, n=%d)\n",
				plan.Spec.Worker.Rollout.Name,
				plan.Spec.Worker.Rollout.TensorParallelSize,
				plan.Spec.Worker.Rollout.N)
			fmt.Fprintf(out, "reward:         %s:%s", plan.Spec.Worker.Reward.RewardType, plan.Spec.Worker.Reward.RewardFunction)
			if plan.Reward != nil {
				fmt.Fprint(out, " (registered in-process)")
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&reward, "reward", "", "use this registered reward function")

	return cmd
}
