package orchestration

import (
	"errors"
	"fmt"
	"time"
)

// ErrPaused signals that the deployment stopped deliberately at the operator
// pause and should be resumed with a green-only invocation.
var ErrPaused = errors.New("deployment paused awaiting operator update")

// Step is one stage of the deployment state machine.
type Step interface {
	ID() PhaseID
	Run(ctx *Context) error
}

// RunSteps executes steps sequentially, stopping at the first failure and
// leaving all resources in place for inspection or resume.
func RunSteps(ctx *Context, steps []Step) error {
	start := time.Now()
	ctx.Observer.Printf("Starting deployment %s with %d phases...", ctx.RunID, len(steps))

	for i, step := range steps {
		stepStart := time.Now()
		name := fmt.Sprintf("%s (%d/%d)", step.ID(), i+1, len(steps))

		ctx.State.Phase = step.ID()
		ctx.Observer.Event(Event{Type: EventPhaseStarted, Phase: step.ID(), Message: "starting"})

		if err := step.Run(ctx); err != nil {
			if errors.Is(err, ErrPaused) {
				ctx.Observer.Event(Event{Type: EventPhasePaused, Phase: step.ID(), Message: "paused"})
				return err
			}
			ctx.State.Phase = PhaseFailed
			ctx.Observer.Event(Event{Type: EventPhaseFailed, Phase: step.ID(), Message: err.Error()})
			return fmt.Errorf("%s phase failed: %w", step.ID(), err)
		}

		ctx.Observer.Printf("[%s] completed in %v", name, time.Since(stepStart).Round(time.Millisecond))
	}

	ctx.State.Phase = PhaseDone
	ctx.Observer.Printf("Deployment completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}
