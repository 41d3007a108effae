package main

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/innkeep/internal/adapter/sqlite"
	"github.com/neomorfeo/innkeep/internal/domain"
)

const (
	demoOrganization = "org-demo"
	demoProperty     = "prop-demo"
)

// seedDemo loads a small property whose reservations exercise every sweep
// path relative to now. Existing records are left untouched.
func seedDemo(ctx context.Context, store *sqlite.Store, now time.Time) error {
	if err := ignoreExisting(store.CreateProperty(ctx, domain.Property{
		ID:             demoProperty,
		OrganizationID: demoOrganization,
		Name:           "Harbour Inn",
	})); err != nil {
		return err
	}

	rooms := []domain.Room{
		{ID: "room-101", PropertyID: demoProperty, Name: "101", Capacity: 2},
		{ID: "room-102", PropertyID: demoProperty, Name: "102", Capacity: 2},
		{ID: "room-201", PropertyID: demoProperty, Name: "201 Family Suite", Capacity: 5},
	}
	for _, r := range rooms {
		if err := ignoreExisting(store.CreateRoom(ctx, r)); err != nil {
			return err
		}
	}

	today := now.Truncate(24 * time.Hour).Add(15 * time.Hour)
	for _, r := range demoReservations(today) {
		if err := ignoreExisting(store.CreateReservation(ctx, r)); err != nil {
			return err
		}
	}
	return nil
}

func demoReservations(today time.Time) []domain.Reservation {
	day := 24 * time.Hour
	booking := func(id, room, guest, source string, status domain.Status, arrive time.Time, nights int, total, paid int64, pay domain.PaymentStatus) domain.Reservation {
		return domain.Reservation{
			ID:             id,
			OrganizationID: demoOrganization,
			PropertyID:     demoProperty,
			RoomID:         room,
			GuestName:      guest,
			GuestEmail:     id + "@guests.example.com",
			BookingSource:  source,
			Status:         status,
			CheckIn:        arrive,
			CheckOut:       arrive.Add(time.Duration(nights)*day - 4*time.Hour),
			PaymentStatus:  pay,
			TotalAmount:    decimal.NewFromInt(total),
			PaidAmount:     decimal.NewFromInt(paid),
			DepositAmount:  decimal.NewFromInt(total / 3),
			Adults:         2,
			CreatedAt:      arrive.Add(-14 * day),
			UpdatedAt:      arrive.Add(-14 * day),
		}
	}

	return []domain.Reservation{
		// Arriving today, fully paid.
		booking("demo-arrival", "room-101", "Ada Lovelace", "DIRECT", domain.StatusConfirmed, today, 3, 540, 540, domain.PaymentPaid),
		// In house, leaving yesterday: the sweep checks it out.
		booking("demo-overstay", "room-102", "Alan Turing", "BOOKING_COM", domain.StatusInHouse, today.Add(-4*day), 3, 420, 420, domain.PaymentPaid),
		// Pending for two weeks without payment: the sweep cancels it.
		booking("demo-stale", "room-201", "Grace Hopper", "EXPEDIA", domain.StatusPendingConfirmation, today.Add(10*day), 2, 600, 0, domain.PaymentUnpaid),
		// Confirmed two days ago and never arrived: the sweep marks a no-show.
		booking("demo-no-show", "room-201", "Edsger Dijkstra", "AIRBNB", domain.StatusConfirmed, today.Add(-2*day), 4, 880, 300, domain.PaymentPartiallyPaid),
		// Future stay with a deposit paid.
		booking("demo-future", "room-101", "Barbara Liskov", "DIRECT", domain.StatusConfirmed, today.Add(7*day), 2, 300, 100, domain.PaymentPartiallyPaid),
	}
}

func ignoreExisting(err error) error {
	if errors.Is(err, sqlite.ErrAlreadyExists) {
		return nil
	}
	return err
}
