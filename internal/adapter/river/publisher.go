package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// TransitionJobArgs carries an applied status change to the async side:
// channel-manager sync and guest notifications. It includes a snapshot of
// the reservation as it was after the change, so the worker never needs to
// query the database.
type TransitionJobArgs struct {
	Event          string `json:"event"`
	ReservationID  string `json:"reservation_id"`
	OrganizationID string `json:"organization_id"`
	PropertyID     string `json:"property_id"`
	RoomID         string `json:"room_id,omitempty"`
	Status         string `json:"status"`
	BookingSource  string `json:"booking_source,omitempty"`
	GuestEmail     string `json:"guest_email,omitempty"`
	CheckIn        string `json:"check_in"`
	CheckOut       string `json:"check_out"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (TransitionJobArgs) Kind() string { return "reservation.transitioned" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

const dateFormat = "2006-01-02T15:04:05Z"

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues an applied transition as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, r domain.Reservation) error {
	_, err := p.client.Insert(ctx, TransitionJobArgs{
		Event:          string(event),
		ReservationID:  r.ID,
		OrganizationID: r.OrganizationID,
		PropertyID:     r.PropertyID,
		RoomID:         r.RoomID,
		Status:         string(r.Status),
		BookingSource:  r.BookingSource,
		GuestEmail:     r.GuestEmail,
		CheckIn:        r.CheckIn.UTC().Format(dateFormat),
		CheckOut:       r.CheckOut.UTC().Format(dateFormat),
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing transition job: %w", err)
	}
	return nil
}
