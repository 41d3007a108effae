package sqlite

import (
	"context"
	"fmt"

	"github.com/neomorfeo/innkeep/internal/domain"
)

type approvalRow struct {
	ID            string `db:"id"`
	ReservationID string `db:"reservation_id"`
	From          string `db:"from_status"`
	To            string `db:"to_status"`
	RequestedBy   string `db:"requested_by"`
	Role          string `db:"role"`
	Reason        string `db:"reason"`
	CreatedAt     string `db:"created_at"`
}

// SaveApprovalRequest records a transition waiting for manager review.
// Saving the same request twice is a no-op, so job retries are safe.
func (s *Store) SaveApprovalRequest(ctx context.Context, req domain.ApprovalRequest) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO approval_requests (id, reservation_id, from_status, to_status, requested_by, role, reason, created_at)
		 VALUES (:id, :reservation_id, :from_status, :to_status, :requested_by, :role, :reason, :created_at)
		 ON CONFLICT (id) DO NOTHING`,
		approvalRow{
			ID:            req.ID,
			ReservationID: req.ReservationID,
			From:          string(req.From),
			To:            string(req.To),
			RequestedBy:   req.RequestedBy,
			Role:          string(req.Role),
			Reason:        req.Reason,
			CreatedAt:     formatTime(req.CreatedAt),
		},
	)
	if err != nil {
		return fmt.Errorf("saving approval request: %w", err)
	}
	return nil
}

// ApprovalRequests lists the approval requests of a reservation, oldest first.
func (s *Store) ApprovalRequests(ctx context.Context, reservationID string) ([]domain.ApprovalRequest, error) {
	var rows []approvalRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, reservation_id, from_status, to_status, requested_by, role, reason, created_at
		 FROM approval_requests WHERE reservation_id = ? ORDER BY created_at, rowid`,
		reservationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing approval requests: %w", err)
	}

	out := make([]domain.ApprovalRequest, 0, len(rows))
	for _, row := range rows {
		createdAt, err := parseTime("created_at", row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("approval request %s: %w", row.ID, err)
		}
		out = append(out, domain.ApprovalRequest{
			ID:            row.ID,
			ReservationID: row.ReservationID,
			From:          domain.Status(row.From),
			To:            domain.Status(row.To),
			RequestedBy:   row.RequestedBy,
			Role:          domain.Role(row.Role),
			Reason:        row.Reason,
			CreatedAt:     createdAt,
		})
	}
	return out, nil
}
