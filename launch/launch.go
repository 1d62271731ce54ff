// FILE: launchconf/launch/launch.go
package launch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ryftlabs/launchconf"
)

// Plan is a launch handoff built from a resolved configuration: the typed
// spec, the raw tree for anything the struct does not model, and run
// identity. Reward holds the in-process scorer when the configuration
// names one that is registered; it stays nil for external scorer paths,
// which the trainer loads itself.
type Plan struct {
	RunID     string
	CreatedAt time.Time
	Spec      TrainingSpec
	Resolved  *launchconf.Node
	WorldSize int
	Reward    RewardFn
}

// Entrypoint is implemented by the training runtime that consumes a plan.
type Entrypoint interface {
	Run(ctx context.Context, plan *Plan) error
}

// EntrypointFunc adapts a function to the Entrypoint interface.
type EntrypointFunc func(ctx context.Context, plan *Plan) error

func (f EntrypointFunc) Run(ctx context.Context, plan *Plan) error {
	return f(ctx, plan)
}

// Planner turns resolved configurations into launch plans.
type Planner struct {
	logger zerolog.Logger
}

// NewPlanner creates a planner logging through the given logger.
func NewPlanner(logger zerolog.Logger) *Planner {
	return &Planner{logger: logger}
}

// Plan builds a launch plan from a resolved result. It refuses a result
// carrying schema violations or one that fails to decode; it does not
// judge the values themselves, that is the trainer's job. World size is
// nnodes times n_gpus_per_node, computed here once so every consumer logs
// the same number.
func (p *Planner) Plan(res *launchconf.Result) (*Plan, error) {
	if !res.Valid() {
		for _, v := range res.Violations {
			p.logger.Warn().
				Str("path", v.Path.String()).
				Str("code", v.Code.String()).
				Msg(v.Detail)
		}
		return nil, fmt.Errorf("configuration has %d schema violations", len(res.Violations))
	}

	var spec TrainingSpec
	if err := res.Scan("", &spec); err != nil {
		return nil, fmt.Errorf("decode training spec: %w", err)
	}

	plan := &Plan{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Spec:      spec,
		Resolved:  res.Config,
		WorldSize: spec.Trainer.NNodes * spec.Trainer.NGPUsPerNode,
	}

	if spec.Worker.Reward.RewardType == "function" && spec.Worker.Reward.RewardFunction != "" {
		if fn, ok := LookupReward(spec.Worker.Reward.RewardFunction); ok {
			plan.Reward = fn
		} else {
			p.logger.Warn().
				Str("reward_function", spec.Worker.Reward.RewardFunction).
				Strs("registered", RewardNames()).
				Msg("reward function not registered in-process, trainer must load it")
		}
	}

	p.logger.Info().
		Str("run_id", plan.RunID).
		Str("experiment", spec.Trainer.ExperimentName).
		Str("adv_estimator", spec.Algorithm.AdvEstimator).
		Str("rollout", spec.Worker.Rollout.Name).
		Int("world_size", plan.WorldSize).
		Msg("launch plan ready")

	return plan, nil
}

// Launch hands the plan to an entrypoint and logs the outcome.
func (p *Planner) Launch(ctx context.Context, ep Entrypoint, plan *Plan) error {
	start := time.Now()
	p.logger.Info().Str("run_id", plan.RunID).Msg("starting training run")
	if err := ep.Run(ctx, plan); err != nil {
		p.logger.Error().
			Str("run_id", plan.RunID).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("training run failed")
		return fmt.Errorf("run %s: %w", plan.RunID, err)
	}
	p.logger.Info().
		Str("run_id", plan.RunID).
		Dur("elapsed", time.Since(start)).
		Msg("training run finished")
	return nil
}
