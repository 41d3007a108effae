package river

import (
	"context"
	"log/slog"
	"slices"

	"github.com/riverqueue/river"
)

// channelSources are booking sources synced through the channel manager.
var channelSources = []string{"OTA", "BOOKING_COM", "EXPEDIA", "AIRBNB"}

// EventWorker processes applied transitions from the River queue.
// For now it logs the change and whether the channel manager must hear
// about it; delivery to the channel manager and guest mail hang off here.
type EventWorker struct {
	river.WorkerDefaults[TransitionJobArgs]
	Logger *slog.Logger
}

// Work processes a single transition job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[TransitionJobArgs]) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "processing reservation transition",
		"event", job.Args.Event,
		"reservation_id", job.Args.ReservationID,
		"status", job.Args.Status,
		"channel_sync", slices.Contains(channelSources, job.Args.BookingSource),
		"notify_guest", job.Args.GuestEmail != "",
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
