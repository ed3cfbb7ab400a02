package orchestration

import (
	"errors"
	"fmt"

	"github.com/greenswitch/greenswitch/internal/endpoint"
	"github.com/greenswitch/greenswitch/internal/pipeline"
)

// Orchestrator runs the deployment state machine over a prepared Context.
type Orchestrator struct{}

func NewOrchestrator() *Orchestrator {
	return &Orchestrator{}
}

// Deploy runs the deployment to completion. A deliberate pause at the
// operator step is a successful outcome: the blue environment is live and a
// green-only invocation resumes the rollout.
func (o *Orchestrator) Deploy(ctx *Context) error {
	if ctx.Options.GreenOnly {
		if err := o.rederiveState(ctx); err != nil {
			return fmt.Errorf("cannot resume green deployment: %w", err)
		}
		return RunSteps(ctx, []Step{newGreenStep()})
	}

	steps := []Step{
		initStep{},
		provisionStep{},
		accessStep{},
		installStep{},
		endpointStep{},
		pipelineStep{},
		newBlueStep(),
		operatorStep{},
		newGreenStep(),
	}

	err := RunSteps(ctx, steps)
	if errors.Is(err, ErrPaused) {
		return nil
	}
	return err
}

// rederiveState rebuilds the deployment state from the live resources
// instead of trusting anything remembered from the first invocation.
func (o *Orchestrator) rederiveState(ctx *Context) error {
	if !ctx.Infra.HasState(ctx) {
		return errors.New("no provisioned infrastructure found, run a full deploy first")
	}

	outputs, err := ctx.Infra.Outputs(ctx)
	if err != nil {
		return err
	}
	ctx.State.Outputs = outputs

	if err := (initStep{}).Run(ctx); err != nil {
		return err
	}
	if err := (accessStep{}).Run(ctx); err != nil {
		return err
	}

	// A single probe confirms the CI server survived since the blue run.
	ep, err := endpoint.WaitForEndpoint(ctx, (endpointStep{}).probe(ctx), ctx.Timeouts.EndpointInterval, ctx.Timeouts.EndpointInterval)
	if err != nil {
		return fmt.Errorf("CI server is no longer reachable: %w", err)
	}
	ctx.State.EndpointURL = ep.URL

	if err := (pipelineStep{}).Run(ctx); err != nil {
		return err
	}

	ctx.State.LastRunColor = pipeline.ColorBlue
	return nil
}
