// Package integrity runs cross-record consistency checks over a reservation,
// its room, its property, its payment figures and its status history.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// Compile-time check: Checker implements domain.IntegrityChecker.
var _ domain.IntegrityChecker = (*Checker)(nil)

// DefaultTimeout bounds each store read made by a check.
const DefaultTimeout = 2 * time.Second

// Stores are the read collaborators of the checker. Reservations is also
// written by AutoFix.
type Stores struct {
	Reservations domain.ReservationRepository
	Rooms        domain.RoomRepository
	Properties   domain.PropertyRepository
	History      domain.StatusHistoryRepository
}

// Checker implements domain.IntegrityChecker.
type Checker struct {
	stores  Stores
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithTimeout sets the per-read timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChecker creates a checker over stores.
func NewChecker(stores Stores, opts ...Option) *Checker {
	c := &Checker{
		stores:  stores,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// findings collects issues and warnings from concurrently running checks.
type findings struct {
	mu       sync.Mutex
	issues   []domain.DataIntegrityIssue
	warnings []string
}

func (f *findings) add(issue domain.DataIntegrityIssue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issues = append(f.issues, issue)
}

func (f *findings) warn(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warnings = append(f.warnings, msg)
}

func (f *findings) result() domain.DataIntegrityResult {
	domain.SortIssues(f.issues)
	slices.Sort(f.warnings)
	return domain.DataIntegrityResult{Issues: f.issues, Warnings: f.warnings}
}

// Check runs every consistency check for tc. Checks run concurrently and never
// fail the call: collaborator failures are reported as missing_data issues.
func (c *Checker) Check(ctx context.Context, tc domain.TransitionContext) domain.DataIntegrityResult {
	f := &findings{}

	res, ok := c.snapshot(ctx, tc, f)
	if !ok {
		return f.result()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.checkSelf(res, tc, f)
		return nil
	})
	g.Go(func() error {
		c.checkPayments(res, f)
		return nil
	})
	g.Go(func() error {
		c.checkGuest(res, tc, f)
		return nil
	})
	g.Go(func() error {
		c.checkRoom(gctx, res, tc, f)
		return nil
	})
	g.Go(func() error {
		c.checkProperty(gctx, res, tc, f)
		return nil
	})
	g.Go(func() error {
		c.checkHistory(gctx, res, tc, f)
		return nil
	})
	_ = g.Wait()

	return f.result()
}

func (c *Checker) snapshot(ctx context.Context, tc domain.TransitionContext, f *findings) (domain.Reservation, bool) {
	if tc.Reservation != nil {
		return *tc.Reservation, true
	}

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.stores.Reservations.GetByID(rctx, tc.ReservationID)
	if err != nil {
		c.readFailure(ctx, f, "reservation "+tc.ReservationID, []string{"reservation_id"}, err)
		return domain.Reservation{}, false
	}
	return res, true
}

// readFailure turns a failed store read into an issue. Timeouts are medium,
// anything else is critical.
func (c *Checker) readFailure(ctx context.Context, f *findings, what string, fields []string, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		c.logger.WarnContext(ctx, "integrity read timed out", "record", what, "timeout", c.timeout)
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueMissingData,
			Severity:       domain.SeverityMedium,
			Description:    fmt.Sprintf("could not verify %s: the lookup timed out", what),
			AffectedFields: fields,
		})
		f.warn(fmt.Sprintf("integrity check incomplete: %s lookup timed out", what))
		return
	}

	if isNotFound(err) {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueMissingData,
			Severity:       domain.SeverityCritical,
			Description:    fmt.Sprintf("%s does not exist", what),
			AffectedFields: fields,
		})
		return
	}

	c.logger.ErrorContext(ctx, "integrity read failed", "record", what, "error", err)
	f.add(domain.DataIntegrityIssue{
		Type:           domain.IssueMissingData,
		Severity:       domain.SeverityCritical,
		Description:    fmt.Sprintf("could not verify %s", what),
		AffectedFields: fields,
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrReservationNotFound) ||
		errors.Is(err, domain.ErrRoomNotFound) ||
		errors.Is(err, domain.ErrPropertyNotFound)
}

// checkSelf verifies the reservation on its own: date order, adult count and
// that the snapshot agrees with the status the caller believes it has.
func (c *Checker) checkSelf(res domain.Reservation, tc domain.TransitionContext, f *findings) {
	var undated []string
	if res.CheckIn.IsZero() {
		undated = append(undated, "check_in")
	}
	if res.CheckOut.IsZero() {
		undated = append(undated, "check_out")
	}
	if len(undated) > 0 {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueMissingData,
			Severity:       domain.SeverityHigh,
			Description:    "stay dates are missing: " + strings.Join(undated, ", "),
			AffectedFields: undated,
			SuggestedFix:   "record the check-in and check-out dates",
		})
	}

	if !res.CheckIn.IsZero() && !res.CheckOut.IsZero() && !res.CheckIn.Before(res.CheckOut) {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueInconsistency,
			Severity:       domain.SeverityHigh,
			Description:    "check-in must be before check-out",
			AffectedFields: []string{"check_in", "check_out"},
			SuggestedFix:   "correct the stay dates",
		})
	}

	if res.Adults < 1 {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueInconsistency,
			Severity:       domain.SeverityMedium,
			Description:    fmt.Sprintf("adult count is %d, at least one adult is required", res.Adults),
			AffectedFields: []string{"adults"},
			SuggestedFix:   "set adults to 1",
			AutoFixable:    true,
			Fix:            domain.FixClampAdults,
		})
	}

	if tc.CurrentStatus != "" && res.Status != "" && res.Status != tc.CurrentStatus {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueInconsistency,
			Severity:       domain.SeverityHigh,
			Description:    fmt.Sprintf("reservation is %s but the change assumes %s", res.Status, tc.CurrentStatus),
			AffectedFields: []string{"status"},
			SuggestedFix:   "reload the reservation and retry",
		})
	}
}

// checkPayments verifies the money figures.
func (c *Checker) checkPayments(res domain.Reservation, f *findings) {
	amounts := []struct {
		field string
		label string
		neg   bool
	}{
		{"total_amount", "total amount", res.TotalAmount.IsNegative()},
		{"paid_amount", "paid amount", res.PaidAmount.IsNegative()},
		{"deposit_amount", "deposit amount", res.DepositAmount.IsNegative()},
	}
	negative := false
	for _, a := range amounts {
		if !a.neg {
			continue
		}
		negative = true
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueInconsistency,
			Severity:       domain.SeverityMedium,
			Description:    fmt.Sprintf("%s is negative", a.label),
			AffectedFields: []string{a.field},
		})
	}
	if negative {
		return
	}

	if res.DepositAmount.GreaterThan(res.TotalAmount) {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueInconsistency,
			Severity:       domain.SeverityMedium,
			Description:    fmt.Sprintf("deposit %s exceeds total %s", res.DepositAmount, res.TotalAmount),
			AffectedFields: []string{"deposit_amount", "total_amount"},
			SuggestedFix:   "clamp the deposit to the total amount",
			AutoFixable:    true,
			Fix:            domain.FixClampDeposit,
		})
	}

	if !res.TotalAmount.IsPositive() {
		return
	}

	if res.PaidAmount.GreaterThan(res.TotalAmount) {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueInconsistency,
			Severity:       domain.SeverityLow,
			Description:    fmt.Sprintf("paid amount %s exceeds total %s", res.PaidAmount, res.TotalAmount),
			AffectedFields: []string{"paid_amount", "total_amount"},
			SuggestedFix:   "refund the overpayment",
		})
	}

	if expected := expectedPaymentStatus(res); expected != "" && res.PaymentStatus != expected && res.PaymentStatus != domain.PaymentRefunded {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueInconsistency,
			Severity:       domain.SeverityLow,
			Description:    fmt.Sprintf("payment status is %s but the amounts say %s", res.PaymentStatus, expected),
			AffectedFields: []string{"payment_status", "paid_amount"},
		})
	}
}

func expectedPaymentStatus(res domain.Reservation) domain.PaymentStatus {
	switch {
	case res.PaidAmount.IsZero():
		return domain.PaymentUnpaid
	case res.PaidAmount.LessThan(res.TotalAmount):
		return domain.PaymentPartiallyPaid
	default:
		return domain.PaymentPaid
	}
}

// checkGuest verifies the guest details; contact info matters only at check-in.
func (c *Checker) checkGuest(res domain.Reservation, tc domain.TransitionContext, f *findings) {
	if len([]rune(strings.TrimSpace(res.GuestName))) < 2 {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueMissingData,
			Severity:       domain.SeverityMedium,
			Description:    "guest name is missing",
			AffectedFields: []string{"guest_name"},
		})
	}

	if tc.NewStatus == domain.StatusInHouse &&
		strings.TrimSpace(res.GuestEmail) == "" && strings.TrimSpace(res.GuestPhone) == "" {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueMissingData,
			Severity:       domain.SeverityMedium,
			Description:    "guest contact details are required for check-in",
			AffectedFields: []string{"guest_email", "guest_phone"},
		})
	}
}

// checkRoom resolves the room, checks capacity and ownership, and looks for
// overlapping stays when the guest is checking in.
func (c *Checker) checkRoom(ctx context.Context, res domain.Reservation, tc domain.TransitionContext, f *findings) {
	if res.RoomID == "" {
		if tc.NewStatus == domain.StatusInHouse {
			f.add(domain.DataIntegrityIssue{
				Type:           domain.IssueMissingData,
				Severity:       domain.SeverityHigh,
				Description:    "no room is assigned for check-in",
				AffectedFields: []string{"room_id"},
			})
		}
		return
	}

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	room, err := c.stores.Rooms.GetRoom(rctx, res.RoomID)
	cancel()
	if err != nil {
		if isNotFound(err) {
			f.add(domain.DataIntegrityIssue{
				Type:           domain.IssueInvalidReference,
				Severity:       domain.SeverityCritical,
				Description:    fmt.Sprintf("room %s does not exist", res.RoomID),
				AffectedFields: []string{"room_id"},
				RelatedRecords: []string{res.RoomID},
			})
			return
		}
		c.readFailure(ctx, f, "room "+res.RoomID, []string{"room_id"}, err)
		return
	}

	if room.PropertyID != "" && res.PropertyID != "" && room.PropertyID != res.PropertyID {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueInvalidReference,
			Severity:       domain.SeverityCritical,
			Description:    fmt.Sprintf("room %s belongs to another property", room.ID),
			AffectedFields: []string{"room_id", "property_id"},
			RelatedRecords: []string{room.ID},
		})
	}

	if room.Capacity > 0 && res.Occupancy() > room.Capacity {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueConflict,
			Severity:       domain.SeverityHigh,
			Description:    fmt.Sprintf("%d guests exceed the capacity of room %s (%d)", res.Occupancy(), room.Name, room.Capacity),
			AffectedFields: []string{"adults", "children", "room_id"},
			RelatedRecords: []string{room.ID},
		})
	}

	if tc.NewStatus != domain.StatusInHouse {
		return
	}

	octx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	overlapping, err := c.stores.Reservations.FindOverlapping(octx, domain.OverlapQuery{
		RoomID:    res.RoomID,
		From:      res.CheckIn,
		To:        res.CheckOut,
		Statuses:  []domain.Status{domain.StatusConfirmed, domain.StatusInHouse},
		ExcludeID: res.ID,
	})
	if err != nil {
		c.readFailure(ctx, f, "room availability", []string{"room_id"}, err)
		return
	}
	if len(overlapping) == 0 {
		return
	}

	related := make([]string, 0, len(overlapping))
	for _, o := range overlapping {
		related = append(related, o.ID)
	}
	slices.Sort(related)
	f.add(domain.DataIntegrityIssue{
		Type:           domain.IssueConflict,
		Severity:       domain.SeverityHigh,
		Description:    fmt.Sprintf("room %s is already booked for these dates", room.Name),
		AffectedFields: []string{"room_id", "check_in", "check_out"},
		SuggestedFix:   "move one of the reservations to another room",
		RelatedRecords: related,
	})
}

// checkProperty resolves the property and verifies organization ownership.
func (c *Checker) checkProperty(ctx context.Context, res domain.Reservation, tc domain.TransitionContext, f *findings) {
	if tc.PropertyID != "" && res.PropertyID != "" && tc.PropertyID != res.PropertyID {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueInvalidReference,
			Severity:       domain.SeverityCritical,
			Description:    "reservation does not belong to the selected property",
			AffectedFields: []string{"property_id"},
			RelatedRecords: []string{res.PropertyID},
		})
	}

	propertyID := res.PropertyID
	if propertyID == "" {
		propertyID = tc.PropertyID
	}
	if propertyID == "" {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueMissingData,
			Severity:       domain.SeverityCritical,
			Description:    "reservation has no property",
			AffectedFields: []string{"property_id"},
		})
		return
	}

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	prop, err := c.stores.Properties.GetProperty(rctx, propertyID)
	if err != nil {
		if isNotFound(err) {
			f.add(domain.DataIntegrityIssue{
				Type:           domain.IssueInvalidReference,
				Severity:       domain.SeverityCritical,
				Description:    fmt.Sprintf("property %s does not exist", propertyID),
				AffectedFields: []string{"property_id"},
				RelatedRecords: []string{propertyID},
			})
			return
		}
		c.readFailure(ctx, f, "property "+propertyID, []string{"property_id"}, err)
		return
	}

	if tc.OrganizationID != "" && prop.OrganizationID != tc.OrganizationID {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueInvalidReference,
			Severity:       domain.SeverityCritical,
			Description:    "property does not belong to the organization",
			AffectedFields: []string{"property_id", "organization_id"},
			RelatedRecords: []string{prop.ID},
		})
	}
}

// checkHistory compares the latest recorded status with the claimed current status.
func (c *Checker) checkHistory(ctx context.Context, res domain.Reservation, tc domain.TransitionContext, f *findings) {
	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	recent, err := c.stores.History.Recent(rctx, res.ID, 1)
	if err != nil {
		c.readFailure(ctx, f, "status history", []string{"status"}, err)
		return
	}
	if len(recent) == 0 {
		return
	}

	claimed := tc.CurrentStatus
	if claimed == "" {
		claimed = res.Status
	}
	if latest := recent[0]; latest.To != claimed {
		f.add(domain.DataIntegrityIssue{
			Type:           domain.IssueInconsistency,
			Severity:       domain.SeverityHigh,
			Description:    fmt.Sprintf("last recorded status is %s but the reservation claims %s", latest.To, claimed),
			AffectedFields: []string{"status"},
			RelatedRecords: []string{latest.ID},
		})
	}
}
