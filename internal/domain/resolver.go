package domain

import "time"

// ResolveStatus infers the status a reservation should have given elapsed time
// and payment percentage (0–100). It is pure; scheduled automation decides
// whether to attempt the returned transition.
//
// Precedence:
//   - CHECKED_OUT stays CHECKED_OUT
//   - IN_HOUSE past check-out becomes CHECKED_OUT
//   - CONFIRMED, fully paid, past check-in becomes IN_HOUSE
//   - PENDING_CONFIRMATION fully paid becomes IN_HOUSE past check-in, else CONFIRMED
//   - anything else is unchanged
func ResolveStatus(current Status, paymentPercentage float64, checkIn, checkOut, now time.Time) Status {
	fullyPaid := paymentPercentage >= 100
	pastCheckIn := !now.Before(checkIn)

	switch {
	case current == StatusCheckedOut:
		return current
	case current == StatusInHouse && !now.Before(checkOut):
		return StatusCheckedOut
	case current == StatusConfirmed && pastCheckIn && fullyPaid:
		return StatusInHouse
	case current == StatusPendingConfirmation && fullyPaid:
		if pastCheckIn {
			return StatusInHouse
		}
		return StatusConfirmed
	default:
		return current
	}
}
