package river

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
)

// Options configures the job side of the service.
type Options struct {
	// Approvals stores approval requests. Required.
	Approvals ApprovalStore
	// Sweeps runs sweep jobs. Nil leaves sweep jobs unprocessed.
	Sweeps *SweepWorker
	// SweepSchedule is a cron spec for periodic sweeps. Empty, or no Sweeps
	// worker, disables them.
	SweepSchedule string
	Logger        *slog.Logger
}

// Setup creates a River client with the reservation workers registered and
// runs River's internal migrations. The caller must call client.Start() to
// begin processing jobs and client.Stop() for graceful shutdown.
func Setup(ctx context.Context, db *sql.DB, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	driver := riversqlite.New(db)

	// Run River's own migrations (creates river_job, river_leader, etc.).
	// These are separate from the app's goose migrations.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &EventWorker{Logger: logger})
	river.AddWorker(workers, &ApprovalWorker{Store: opts.Approvals, Logger: logger})
	if opts.Sweeps != nil {
		river.AddWorker(workers, opts.Sweeps)
	}

	var periodic []*river.PeriodicJob
	if opts.SweepSchedule != "" && opts.Sweeps != nil {
		schedule, err := ParseSchedule(opts.SweepSchedule)
		if err != nil {
			return nil, err
		}
		periodic = append(periodic, PeriodicSweep(schedule))
	}

	client, err := river.NewClient(driver, &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
			QueueSweeps:        {MaxWorkers: 1},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, nil
}
