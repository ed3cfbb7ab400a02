package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/greenswitch/greenswitch/internal/platform/jenkins"
)

// buildAPI is the slice of the CI client the trigger needs.
type buildAPI interface {
	TriggerJob(ctx context.Context, name string) (int64, error)
	QueueExecutable(ctx context.Context, queueID int64) (int64, bool, error)
	LastBuildNumber(ctx context.Context, job string) (int64, error)
	BuildInfo(ctx context.Context, job string, number int64) (*jenkins.Build, error)
	PendingInput(ctx context.Context, job string, number int64) (*jenkins.InputAction, error)
	ProceedInput(ctx context.Context, job string, number int64, input *jenkins.InputAction) error
}

// Trigger starts runs of the deployment job and waits for their results.
type Trigger struct {
	ci  buildAPI
	job string
}

func NewTrigger(ci buildAPI, job string) *Trigger {
	return &Trigger{ci: ci, job: job}
}

// Trigger queues a run of the deployment job.
func (t *Trigger) Trigger(ctx context.Context, color Color) (*Run, error) {
	queueID, err := t.ci.TriggerJob(ctx, t.job)
	if err != nil {
		return nil, fmt.Errorf("failed to trigger %s run: %w", color, err)
	}

	return &Run{
		QueueID:   queueID,
		Color:     color,
		Status:    StatusPending,
		StartedAt: time.Now(),
	}, nil
}

// AwaitCompletion polls the run until it finishes or timeout elapses. A
// timeout is not an error: the run is returned with StatusTimedOut and the
// caller decides what to do about a build that may still be executing.
// Transient API errors while polling are retried on the next tick, bounded
// by the same deadline; rejected credentials abort immediately since they do
// not heal on their own. Green runs auto-approve a paused input step so the
// promotion gate inside the pipeline does not deadlock against the operator
// pause out here.
func (t *Trigger) AwaitCompletion(ctx context.Context, run *Run, timeout, interval time.Duration) (*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := t.poll(ctx, run)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				run.Status = StatusTimedOut
				run.EndedAt = time.Now()
				return run, nil
			}
			var authErr *jenkins.AuthError
			if errors.As(err, &authErr) {
				return nil, err
			}
		}
		if err == nil && done {
			run.EndedAt = time.Now()
			return run, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				run.Status = StatusTimedOut
				run.EndedAt = time.Now()
				return run, nil
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll advances the run one step: resolve the build number if still queued,
// otherwise read the build state.
func (t *Trigger) poll(ctx context.Context, run *Run) (bool, error) {
	if run.Number == 0 {
		number, found, err := t.ci.QueueExecutable(ctx, run.QueueID)
		if err != nil {
			return false, fmt.Errorf("failed to resolve %s run: %w", run.Color, err)
		}
		if number == 0 {
			if found {
				// Still queued; the build does not exist yet. Falling back
				// to the job's last build here would attribute this run to
				// an earlier, finished build.
				return false, nil
			}
			// Queue item expired after the build started; the job's latest
			// build is the one it launched.
			number, err = t.ci.LastBuildNumber(ctx, t.job)
			if err != nil {
				return false, fmt.Errorf("failed to resolve %s run: %w", run.Color, err)
			}
			if number == 0 {
				return false, nil
			}
		}
		run.Number = number
		run.Status = StatusRunning
	}

	build, err := t.ci.BuildInfo(ctx, t.job, run.Number)
	if err != nil {
		return false, fmt.Errorf("failed to poll %s run: %w", run.Color, err)
	}

	if build.Building || build.Result == "" {
		if run.Color == ColorGreen {
			if err := t.approvePendingInput(ctx, run); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	switch build.Result {
	case "SUCCESS":
		run.Status = StatusSucceeded
	default:
		run.Status = StatusFailed
	}
	return true, nil
}

func (t *Trigger) approvePendingInput(ctx context.Context, run *Run) error {
	input, err := t.ci.PendingInput(ctx, t.job, run.Number)
	if err != nil {
		return fmt.Errorf("failed to check %s run for pending input: %w", run.Color, err)
	}
	if input == nil {
		return nil
	}
	if err := t.ci.ProceedInput(ctx, t.job, run.Number, input); err != nil {
		return fmt.Errorf("failed to approve %s run input: %w", run.Color, err)
	}
	return nil
}
