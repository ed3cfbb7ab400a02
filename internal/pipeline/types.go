// Package pipeline configures the deployment job on the CI server and
// drives blue and green runs of it.
package pipeline

import "time"

// Status is the lifecycle state of a pipeline run.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusTimedOut  Status = "TIMED_OUT"
)

// Color identifies which side of the blue-green pair a run deploys.
type Color string

const (
	ColorNone  Color = "NONE"
	ColorBlue  Color = "BLUE"
	ColorGreen Color = "GREEN"
)

// Run is one triggered execution of the deployment job. Number stays zero
// until the queue item is scheduled onto an executor.
type Run struct {
	QueueID   int64
	Number    int64
	Color     Color
	Status    Status
	StartedAt time.Time
	EndedAt   time.Time
}
