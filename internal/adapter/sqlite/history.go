package sqlite

import (
	"context"
	"fmt"

	"github.com/neomorfeo/innkeep/internal/domain"
)

type statusChangeRow struct {
	ID            string `db:"id"`
	ReservationID string `db:"reservation_id"`
	From          string `db:"from_status"`
	To            string `db:"to_status"`
	Reason        string `db:"reason"`
	UserID        string `db:"user_id"`
	Automatic     int    `db:"automatic"`
	CreatedAt     string `db:"created_at"`
}

func (s *Store) Append(ctx context.Context, c domain.StatusChange) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO status_history (id, reservation_id, from_status, to_status, reason, user_id, automatic, created_at)
		 VALUES (:id, :reservation_id, :from_status, :to_status, :reason, :user_id, :automatic, :created_at)`,
		statusChangeRow{
			ID:            c.ID,
			ReservationID: c.ReservationID,
			From:          string(c.From),
			To:            string(c.To),
			Reason:        c.Reason,
			UserID:        c.UserID,
			Automatic:     boolToInt(c.Automatic),
			CreatedAt:     formatTime(c.CreatedAt),
		},
	)
	if err != nil {
		return fmt.Errorf("appending status change: %w", err)
	}
	return nil
}

// Recent returns the newest entries first. Entries written within the same
// second keep their insertion order.
func (s *Store) Recent(ctx context.Context, reservationID string, limit int) ([]domain.StatusChange, error) {
	var rows []statusChangeRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, reservation_id, from_status, to_status, reason, user_id, automatic, created_at
		 FROM status_history WHERE reservation_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		reservationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing status history: %w", err)
	}

	out := make([]domain.StatusChange, 0, len(rows))
	for _, row := range rows {
		createdAt, err := parseTime("created_at", row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("status change %s: %w", row.ID, err)
		}
		out = append(out, domain.StatusChange{
			ID:            row.ID,
			ReservationID: row.ReservationID,
			From:          domain.Status(row.From),
			To:            domain.Status(row.To),
			Reason:        row.Reason,
			UserID:        row.UserID,
			Automatic:     row.Automatic != 0,
			CreatedAt:     createdAt,
		})
	}
	return out, nil
}
