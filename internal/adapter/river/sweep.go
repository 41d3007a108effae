package river

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"

	"github.com/neomorfeo/innkeep/internal/app"
)

// QueueSweeps runs sweep jobs one at a time so runs never overlap.
const QueueSweeps = "sweeps"

// SweepJobArgs asks for one cleanup sweep.
type SweepJobArgs struct {
	OrganizationID string `json:"organization_id,omitempty"`
	PropertyID     string `json:"property_id,omitempty"`
	DryRun         bool   `json:"dry_run,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (SweepJobArgs) Kind() string { return "reservation.sweep" }

// InsertOpts routes sweeps to their own single-worker queue.
func (SweepJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueSweeps, MaxAttempts: 3}
}

// SweepRunner runs a cleanup sweep.
type SweepRunner interface {
	Run(ctx context.Context, opts app.SweepOptions) (app.SweepReport, error)
}

var errNoSweepRunner = errors.New("sweep worker has no runner")

// SweepWorker runs cleanup sweeps from the queue. The runner is bound after
// the client exists, since the sweeper itself publishes through the client.
type SweepWorker struct {
	river.WorkerDefaults[SweepJobArgs]

	mu     sync.RWMutex
	runner SweepRunner
	logger *slog.Logger
}

// NewSweepWorker creates a worker with no runner bound yet.
func NewSweepWorker(logger *slog.Logger) *SweepWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepWorker{logger: logger}
}

// Use binds the sweeper jobs are run with. Call it before starting the client.
func (w *SweepWorker) Use(runner SweepRunner) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.runner = runner
}

// Timeout bounds a single sweep run.
func (w *SweepWorker) Timeout(*river.Job[SweepJobArgs]) time.Duration {
	return 10 * time.Minute
}

// Work runs one sweep. Per-reservation failures are part of the report; only
// a failure to list candidates fails the job, so River retries it.
func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepJobArgs]) error {
	w.mu.RLock()
	runner := w.runner
	w.mu.RUnlock()
	if runner == nil {
		return errNoSweepRunner
	}

	report, err := runner.Run(ctx, app.SweepOptions{
		OrganizationID: job.Args.OrganizationID,
		PropertyID:     job.Args.PropertyID,
		DryRun:         job.Args.DryRun,
	})
	if err != nil {
		return fmt.Errorf("running sweep: %w", err)
	}

	w.logger.InfoContext(ctx, "sweep job finished",
		"job_id", job.ID,
		"attempt", job.Attempt,
		"scanned", report.Scanned,
		"applied", report.Applied,
		"failed", report.Failed,
	)
	return nil
}

// ParseSchedule parses a standard five-field cron spec ("*/15 * * * *") or
// a descriptor such as "@hourly" into a River periodic schedule.
func ParseSchedule(spec string) (river.PeriodicSchedule, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing sweep schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// PeriodicSweep enqueues a full sweep on schedule.
func PeriodicSweep(schedule river.PeriodicSchedule) *river.PeriodicJob {
	return river.NewPeriodicJob(
		schedule,
		func() (river.JobArgs, *river.InsertOpts) {
			return SweepJobArgs{}, nil
		},
		nil,
	)
}
