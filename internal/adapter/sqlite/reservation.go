package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// ErrAlreadyExists is returned when an insert collides with an existing id.
var ErrAlreadyExists = errors.New("record already exists")

const reservationColumns = `id, organization_id, property_id, room_id,
	guest_name, guest_email, guest_phone, guest_type, booking_source,
	status, check_in, check_out, payment_status,
	total_amount, paid_amount, deposit_amount, adults, children,
	created_at, updated_at`

type reservationRow struct {
	ID             string `db:"id"`
	OrganizationID string `db:"organization_id"`
	PropertyID     string `db:"property_id"`
	RoomID         string `db:"room_id"`
	GuestName      string `db:"guest_name"`
	GuestEmail     string `db:"guest_email"`
	GuestPhone     string `db:"guest_phone"`
	GuestType      string `db:"guest_type"`
	BookingSource  string `db:"booking_source"`
	Status         string `db:"status"`
	CheckIn        string `db:"check_in"`
	CheckOut       string `db:"check_out"`
	PaymentStatus  string `db:"payment_status"`
	TotalAmount    string `db:"total_amount"`
	PaidAmount     string `db:"paid_amount"`
	DepositAmount  string `db:"deposit_amount"`
	Adults         int    `db:"adults"`
	Children       int    `db:"children"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

func toReservationRow(r domain.Reservation) reservationRow {
	return reservationRow{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		PropertyID:     r.PropertyID,
		RoomID:         r.RoomID,
		GuestName:      r.GuestName,
		GuestEmail:     r.GuestEmail,
		GuestPhone:     r.GuestPhone,
		GuestType:      r.GuestType,
		BookingSource:  r.BookingSource,
		Status:         string(r.Status),
		CheckIn:        formatTime(r.CheckIn),
		CheckOut:       formatTime(r.CheckOut),
		PaymentStatus:  string(r.PaymentStatus),
		TotalAmount:    r.TotalAmount.String(),
		PaidAmount:     r.PaidAmount.String(),
		DepositAmount:  r.DepositAmount.String(),
		Adults:         r.Adults,
		Children:       r.Children,
		CreatedAt:      formatTime(r.CreatedAt),
		UpdatedAt:      formatTime(r.UpdatedAt),
	}
}

func (row reservationRow) toDomain() (domain.Reservation, error) {
	r := domain.Reservation{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		PropertyID:     row.PropertyID,
		RoomID:         row.RoomID,
		GuestName:      row.GuestName,
		GuestEmail:     row.GuestEmail,
		GuestPhone:     row.GuestPhone,
		GuestType:      row.GuestType,
		BookingSource:  row.BookingSource,
		Status:         domain.Status(row.Status),
		PaymentStatus:  domain.PaymentStatus(row.PaymentStatus),
		Adults:         row.Adults,
		Children:       row.Children,
	}

	var err error
	times := []struct {
		field string
		value string
		dst   *time.Time
	}{
		{"check_in", row.CheckIn, &r.CheckIn},
		{"check_out", row.CheckOut, &r.CheckOut},
		{"created_at", row.CreatedAt, &r.CreatedAt},
		{"updated_at", row.UpdatedAt, &r.UpdatedAt},
	}
	for _, t := range times {
		if *t.dst, err = parseTime(t.field, t.value); err != nil {
			return domain.Reservation{}, fmt.Errorf("reservation %s: %w", row.ID, err)
		}
	}

	amounts := []struct {
		field string
		value string
		dst   *decimal.Decimal
	}{
		{"total_amount", row.TotalAmount, &r.TotalAmount},
		{"paid_amount", row.PaidAmount, &r.PaidAmount},
		{"deposit_amount", row.DepositAmount, &r.DepositAmount},
	}
	for _, a := range amounts {
		if *a.dst, err = decimal.NewFromString(a.value); err != nil {
			return domain.Reservation{}, fmt.Errorf("reservation %s: parsing %s: %w", row.ID, a.field, err)
		}
	}

	return r, nil
}

// CreateReservation inserts a new reservation.
func (s *Store) CreateReservation(ctx context.Context, r domain.Reservation) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO reservations (`+reservationColumns+`)
		 VALUES (:id, :organization_id, :property_id, :room_id,
		         :guest_name, :guest_email, :guest_phone, :guest_type, :booking_source,
		         :status, :check_in, :check_out, :payment_status,
		         :total_amount, :paid_amount, :deposit_amount, :adults, :children,
		         :created_at, :updated_at)`,
		toReservationRow(r),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("reservation %s: %w", r.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("inserting reservation: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (domain.Reservation, error) {
	var row reservationRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("getting reservation: %w", err)
	}
	return row.toDomain()
}

func (s *Store) List(ctx context.Context, filter domain.ListFilter) ([]domain.Reservation, error) {
	var (
		where []string
		args  []any
	)

	if filter.OrganizationID != "" {
		where = append(where, "organization_id = ?")
		args = append(args, filter.OrganizationID)
	}
	if filter.PropertyID != "" {
		where = append(where, "property_id = ?")
		args = append(args, filter.PropertyID)
	}
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN (?)")
		args = append(args, statusStrings(filter.Statuses))
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY check_in, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	return s.selectReservations(ctx, "listing reservations", query, args...)
}

// FindOverlapping returns reservations on the same room whose stay intersects
// [From, To). Stored timestamps share one fixed-width UTC layout, so text
// comparison orders them correctly.
func (s *Store) FindOverlapping(ctx context.Context, q domain.OverlapQuery) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE room_id = ? AND check_in < ? AND check_out > ? AND id != ?`
	args := []any{q.RoomID, formatTime(q.To), formatTime(q.From), q.ExcludeID}

	if len(q.Statuses) > 0 {
		query += ` AND status IN (?)`
		args = append(args, statusStrings(q.Statuses))
	}
	query += ` ORDER BY id`

	return s.selectReservations(ctx, "finding overlapping reservations", query, args...)
}

func (s *Store) selectReservations(ctx context.Context, op, query string, args ...any) ([]domain.Reservation, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var rows []reservationRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]domain.Reservation, 0, len(rows))
	for _, row := range rows {
		r, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, r domain.Reservation) error {
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	result, err := s.db.NamedExecContext(ctx,
		`UPDATE reservations SET
		    organization_id = :organization_id, property_id = :property_id, room_id = :room_id,
		    guest_name = :guest_name, guest_email = :guest_email, guest_phone = :guest_phone,
		    guest_type = :guest_type, booking_source = :booking_source,
		    status = :status, check_in = :check_in, check_out = :check_out,
		    payment_status = :payment_status, total_amount = :total_amount,
		    paid_amount = :paid_amount, deposit_amount = :deposit_amount,
		    adults = :adults, children = :children, updated_at = :updated_at
		 WHERE id = :id`,
		toReservationRow(r),
	)
	if err != nil {
		return fmt.Errorf("updating reservation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrReservationNotFound
	}

	return nil
}

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
