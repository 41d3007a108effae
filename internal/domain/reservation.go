package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a reservation.
type Status string

const (
	StatusPendingConfirmation Status = "PENDING_CONFIRMATION"
	StatusConfirmed           Status = "CONFIRMED"
	StatusInHouse             Status = "IN_HOUSE"
	StatusCheckedOut          Status = "CHECKED_OUT"
	StatusCancelled           Status = "CANCELLED"
	StatusNoShow              Status = "NO_SHOW"

	// Display-only labels. They are derived from a stored status and the
	// current day and are never persisted.
	StatusCheckinDue  Status = "CHECKIN_DUE"
	StatusCheckoutDue Status = "CHECKOUT_DUE"
)

// StoredStatuses lists every status a reservation can be persisted with.
var StoredStatuses = []Status{
	StatusPendingConfirmation,
	StatusConfirmed,
	StatusInHouse,
	StatusCheckedOut,
	StatusCancelled,
	StatusNoShow,
}

// ParseStatus normalizes s and returns the stored status it names.
// Display-only labels are rejected.
func ParseStatus(s string) (Status, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if normalized == "CONFIRMATION_PENDING" {
		return StatusPendingConfirmation, nil
	}
	for _, st := range StoredStatuses {
		if string(st) == normalized {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown reservation status: %q", s)
}

// DisplayStatus returns the label shown for a reservation on the calendar day of now.
// A confirmed reservation arriving today reads CHECKIN_DUE, an in-house guest
// leaving today reads CHECKOUT_DUE.
func DisplayStatus(r Reservation, now time.Time) Status {
	switch r.Status {
	case StatusConfirmed:
		if sameDay(r.CheckIn, now) {
			return StatusCheckinDue
		}
	case StatusInHouse:
		if sameDay(r.CheckOut, now) {
			return StatusCheckoutDue
		}
	}
	return r.Status
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// Event represents an action that triggers a status transition.
type Event string

const (
	EventConfirm    Event = "confirm"
	EventCheckIn    Event = "check_in"
	EventCheckOut   Event = "check_out"
	EventCancel     Event = "cancel"
	EventMarkNoShow Event = "mark_no_show"
)

// Transition defines a valid status change: an event moves a reservation from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines all valid status changes in the reservation lifecycle.
// This is domain knowledge consumed by the FSM adapter.
var Transitions = []Transition{
	{Event: EventConfirm, Src: StatusPendingConfirmation, Dst: StatusConfirmed},
	{Event: EventCancel, Src: StatusPendingConfirmation, Dst: StatusCancelled},
	{Event: EventCheckIn, Src: StatusConfirmed, Dst: StatusInHouse},
	{Event: EventCancel, Src: StatusConfirmed, Dst: StatusCancelled},
	{Event: EventMarkNoShow, Src: StatusConfirmed, Dst: StatusNoShow},
	{Event: EventCheckOut, Src: StatusInHouse, Dst: StatusCheckedOut},
	{Event: EventCancel, Src: StatusInHouse, Dst: StatusCancelled},
}

// EventFor returns the event that moves a reservation from src to dst.
func EventFor(src, dst Status) (Event, bool) {
	for _, t := range Transitions {
		if t.Src == src && t.Dst == dst {
			return t.Event, true
		}
	}
	return "", false
}

// PaymentStatus is the settlement state of a reservation's folio.
type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "UNPAID"
	PaymentPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentPaid          PaymentStatus = "PAID"
	PaymentRefunded      PaymentStatus = "REFUNDED"
)

// Reservation is a read-only snapshot of a booking as the engine sees it.
type Reservation struct {
	ID             string
	OrganizationID string
	PropertyID     string
	RoomID         string

	GuestName     string
	GuestEmail    string
	GuestPhone    string
	GuestType     string
	BookingSource string

	Status   Status
	CheckIn  time.Time
	CheckOut time.Time

	PaymentStatus PaymentStatus
	TotalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	DepositAmount decimal.Decimal

	Adults   int
	Children int

	CreatedAt time.Time
	UpdatedAt time.Time
}

var hundred = decimal.NewFromInt(100)

// PaymentPercentage returns how much of the required deposit has been paid, 0–100.
// The deposit is the basis; without one the total is used. When no amounts are
// recorded at all the payment status decides: PAID=100, PARTIALLY_PAID=50, else 0.
func (r Reservation) PaymentPercentage() float64 {
	basis := r.DepositAmount
	if !basis.IsPositive() {
		basis = r.TotalAmount
	}
	return r.percentOf(basis)
}

// PaidPercentOfTotal returns the paid share of the total amount due, 0–100.
func (r Reservation) PaidPercentOfTotal() float64 {
	return r.percentOf(r.TotalAmount)
}

func (r Reservation) percentOf(basis decimal.Decimal) float64 {
	if !basis.IsPositive() {
		return paymentStatusPercentage(r.PaymentStatus)
	}
	pct := r.PaidAmount.Div(basis).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	if pct.IsNegative() {
		return 0
	}
	return pct.InexactFloat64()
}

func paymentStatusPercentage(s PaymentStatus) float64 {
	switch s {
	case PaymentPaid:
		return 100
	case PaymentPartiallyPaid:
		return 50
	default:
		return 0
	}
}

// Occupancy is the number of guests staying.
func (r Reservation) Occupancy() int {
	return r.Adults + r.Children
}

// Room is a bookable unit of a property.
type Room struct {
	ID         string
	PropertyID string
	Name       string
	Capacity   int
}

// Property is a managed hotel, hostel or rental owned by an organization.
type Property struct {
	ID             string
	OrganizationID string
	Name           string
}

// StatusChange is one entry of a reservation's status history.
type StatusChange struct {
	ID            string
	ReservationID string
	From          Status
	To            Status
	Reason        string
	UserID        string
	Automatic     bool
	CreatedAt     time.Time
}

// ApprovalRequest asks a manager to review a transition the engine would not apply on its own.
type ApprovalRequest struct {
	ID            string
	ReservationID string
	From          Status
	To            Status
	RequestedBy   string
	Role          Role
	Reason        string
	CreatedAt     time.Time
}
