package scheduler

import (
	"context"
	"time"

	"pricing-engine/internal/pipeline"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobResult is the outcome of one job execution.
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory bounds the results kept per scheduler.
const maxHistory = 100

// PipelineJob runs the daily pricing pipeline.
type PipelineJob struct {
	Daily *pipeline.Daily
}

// Name returns the job name.
func (PipelineJob) Name() string { return "daily-pricing" }

// Run executes one pipeline run.
func (j PipelineJob) Run(ctx context.Context) error {
	_, err := j.Daily.Run(ctx)
	return err
}
