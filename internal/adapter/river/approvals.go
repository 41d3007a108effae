package river

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// Compile-time check: ApprovalNotifier implements domain.ApprovalNotifier.
var _ domain.ApprovalNotifier = (*ApprovalNotifier)(nil)

// ApprovalJobArgs is a transition waiting for manager review.
type ApprovalJobArgs struct {
	ID            string    `json:"id"`
	ReservationID string    `json:"reservation_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	RequestedBy   string    `json:"requested_by"`
	Role          string    `json:"role"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (ApprovalJobArgs) Kind() string { return "reservation.approval_requested" }

// ApprovalStore records approval requests.
type ApprovalStore interface {
	SaveApprovalRequest(ctx context.Context, req domain.ApprovalRequest) error
}

// ApprovalNotifier implements domain.ApprovalNotifier by enqueuing River jobs.
type ApprovalNotifier struct {
	client *Client
}

// NewApprovalNotifier creates a notifier backed by the given River client.
func NewApprovalNotifier(client *Client) *ApprovalNotifier {
	return &ApprovalNotifier{client: client}
}

func (n *ApprovalNotifier) RequestApproval(ctx context.Context, req domain.ApprovalRequest) error {
	_, err := n.client.Insert(ctx, ApprovalJobArgs{
		ID:            req.ID,
		ReservationID: req.ReservationID,
		From:          string(req.From),
		To:            string(req.To),
		RequestedBy:   req.RequestedBy,
		Role:          string(req.Role),
		Reason:        req.Reason,
		CreatedAt:     req.CreatedAt,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing approval job: %w", err)
	}
	return nil
}

// ApprovalWorker stores approval requests so managers can review them.
type ApprovalWorker struct {
	river.WorkerDefaults[ApprovalJobArgs]
	Store  ApprovalStore
	Logger *slog.Logger
}

// Work persists a single approval request.
func (w *ApprovalWorker) Work(ctx context.Context, job *river.Job[ApprovalJobArgs]) error {
	a := job.Args
	err := w.Store.SaveApprovalRequest(ctx, domain.ApprovalRequest{
		ID:            a.ID,
		ReservationID: a.ReservationID,
		From:          domain.Status(a.From),
		To:            domain.Status(a.To),
		RequestedBy:   a.RequestedBy,
		Role:          domain.Role(a.Role),
		Reason:        a.Reason,
		CreatedAt:     a.CreatedAt,
	})
	if err != nil {
		return err
	}

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "approval requested",
		"reservation_id", a.ReservationID,
		"from", a.From,
		"to", a.To,
		"role", a.Role,
		"reason", a.Reason,
		"job_id", job.ID,
	)
	return nil
}
