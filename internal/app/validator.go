package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// ValidatorConfig holds the time-window and payment thresholds.
type ValidatorConfig struct {
	NoShowMinHours  float64
	NoShowWarnHours float64

	EarlyCheckInDays  int
	LateCheckInDays   int
	EarlyCheckOutDays int
	LateCheckOutDays  int

	ConfirmMinPaidPercent float64
	CheckInMinPaidPercent float64
}

// DefaultValidatorConfig returns the standard thresholds.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{
		NoShowMinHours:        6,
		NoShowWarnHours:       72,
		EarlyCheckInDays:      1,
		LateCheckInDays:       1,
		EarlyCheckOutDays:     1,
		LateCheckOutDays:      1,
		ConfirmMinPaidPercent: 20,
		CheckInMinPaidPercent: 50,
	}
}

// Validator composes the status graph, role policy, business rules and
// integrity checks into one decision per proposed transition.
type Validator struct {
	graph        domain.StatusGraph
	policy       domain.PermissionPolicy
	rules        domain.RuleEvaluator
	integrity    domain.IntegrityChecker
	reservations domain.ReservationRepository
	cfg          ValidatorConfig
	logger       *slog.Logger
}

// NewValidator creates the orchestrator. reservations is only used when a
// context arrives without a snapshot.
func NewValidator(
	graph domain.StatusGraph,
	policy domain.PermissionPolicy,
	rules domain.RuleEvaluator,
	integrity domain.IntegrityChecker,
	reservations domain.ReservationRepository,
	cfg ValidatorConfig,
	logger *slog.Logger,
) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		graph:        graph,
		policy:       policy,
		rules:        rules,
		integrity:    integrity,
		reservations: reservations,
		cfg:          cfg,
		logger:       logger,
	}
}

// Validate runs every step for tc and returns the merged result. Every step
// runs even after an error so the caller sees all problems at once; the only
// early return is a reservation that cannot be loaded.
func (v *Validator) Validate(ctx context.Context, tc domain.TransitionContext) (domain.ValidationResult, error) {
	var result domain.ValidationResult

	if tc.Reservation == nil {
		res, err := v.reservations.GetByID(ctx, tc.ReservationID)
		if err != nil {
			v.missingReservation(ctx, &result, tc.ReservationID, err)
			return result, nil
		}
		tc.Reservation = &res
	}
	tc = fillFromSnapshot(tc)

	v.checkGraph(&result, tc)
	v.checkPolicy(&result, tc)
	v.checkRules(ctx, &result, tc)
	v.checkIntegrity(ctx, &result, tc)
	v.checkTimeWindows(&result, tc)
	v.checkPayments(&result, tc)

	return result, nil
}

func (v *Validator) missingReservation(ctx context.Context, result *domain.ValidationResult, id string, err error) {
	desc := fmt.Sprintf("reservation %s not found", id)
	if !errors.Is(err, domain.ErrReservationNotFound) {
		v.logger.ErrorContext(ctx, "loading reservation for validation",
			"reservation_id", id,
			"error", err,
		)
		desc = fmt.Sprintf("reservation %s could not be loaded", id)
	}
	result.AddError(desc)
	result.DataIntegrityIssues = append(result.DataIntegrityIssues,
		formatIssue(domain.DataIntegrityIssue{
			Type:        domain.IssueMissingData,
			Severity:    domain.SeverityCritical,
			Description: desc,
		}))
}

// fillFromSnapshot completes identifiers the caller left empty.
func fillFromSnapshot(tc domain.TransitionContext) domain.TransitionContext {
	res := tc.Reservation
	if tc.ReservationID == "" {
		tc.ReservationID = res.ID
	}
	if tc.CurrentStatus == "" {
		tc.CurrentStatus = res.Status
	}
	if tc.PropertyID == "" {
		tc.PropertyID = res.PropertyID
	}
	if tc.OrganizationID == "" {
		tc.OrganizationID = res.OrganizationID
	}
	return tc
}

func (v *Validator) checkGraph(result *domain.ValidationResult, tc domain.TransitionContext) {
	switch {
	case tc.CurrentStatus == tc.NewStatus:
		result.AddError(fmt.Sprintf("reservation is already %s", tc.CurrentStatus))
	case !v.graph.Allows(tc.CurrentStatus, tc.NewStatus):
		result.AddError(fmt.Sprintf("cannot change status from %s to %s", tc.CurrentStatus, tc.NewStatus))
	}
}

func (v *Validator) checkPolicy(result *domain.ValidationResult, tc domain.TransitionContext) {
	if d := v.policy.Check(tc.UserRole, tc.CurrentStatus, tc.NewStatus); d.RequiresApproval() {
		result.RequireApproval(d.Reason)
	}
}

func (v *Validator) checkRules(ctx context.Context, result *domain.ValidationResult, tc domain.TransitionContext) {
	partial, err := v.rules.Evaluate(ctx, tc)
	if err != nil {
		v.logger.WarnContext(ctx, "business rules unavailable",
			"organization_id", tc.OrganizationID,
			"reservation_id", tc.ReservationID,
			"error", err,
		)
		result.AddWarning("business rules unavailable; the change was not checked against them")
		result.RequireApproval("business rules could not be evaluated")
		return
	}
	result.Merge(partial)
}

func (v *Validator) checkIntegrity(ctx context.Context, result *domain.ValidationResult, tc domain.TransitionContext) {
	ir := v.integrity.Check(ctx, tc)
	for _, issue := range ir.Issues {
		result.DataIntegrityIssues = append(result.DataIntegrityIssues, formatIssue(issue))
		switch {
		case issue.Blocking():
			result.AddError(issue.Description)
		case issue.Escalates():
			result.RequireApproval("data integrity: " + issue.Description)
		}
	}
	result.Warnings = append(result.Warnings, ir.Warnings...)
}

func formatIssue(issue domain.DataIntegrityIssue) string {
	return fmt.Sprintf("%s (%s): %s", issue.Type, issue.Severity, issue.Description)
}

func (v *Validator) checkTimeWindows(result *domain.ValidationResult, tc domain.TransitionContext) {
	switch tc.NewStatus {
	case domain.StatusNoShow:
		since, ok := tc.HoursSinceCheckIn()
		if !ok {
			result.AddError("a no-show cannot be recorded without a check-in time")
			return
		}
		if since < v.cfg.NoShowMinHours {
			result.AddError(fmt.Sprintf("a no-show can only be recorded %g hours after the check-in time", v.cfg.NoShowMinHours))
			return
		}
		if since > v.cfg.NoShowWarnHours {
			result.AddWarning(fmt.Sprintf("check-in time passed more than %g hours ago", v.cfg.NoShowWarnHours))
		}

	case domain.StatusInHouse:
		until, ok := tc.HoursUntilCheckIn()
		if !ok {
			return
		}
		if days := until / 24; days > float64(v.cfg.EarlyCheckInDays) {
			result.AddWarning(fmt.Sprintf("check-in is %s days before the booked date", formatDays(days)))
		} else if -days > float64(v.cfg.LateCheckInDays) {
			result.AddWarning(fmt.Sprintf("check-in is %s days after the booked date", formatDays(-days)))
		}

	case domain.StatusCheckedOut:
		after, ok := tc.HoursAfterCheckOut()
		if !ok {
			return
		}
		if days := after / 24; -days > float64(v.cfg.EarlyCheckOutDays) {
			result.AddWarning(fmt.Sprintf("check-out is %s days before the booked date", formatDays(-days)))
		} else if days > float64(v.cfg.LateCheckOutDays) {
			result.AddWarning(fmt.Sprintf("check-out is %s days after the booked date", formatDays(days)))
		}
	}
}

func formatDays(d float64) string {
	return fmt.Sprintf("%.1f", d)
}

func (v *Validator) checkPayments(result *domain.ValidationResult, tc domain.TransitionContext) {
	res := tc.Reservation
	paid := res.PaidPercentOfTotal()

	switch tc.NewStatus {
	case domain.StatusConfirmed:
		if res.PaymentStatus != domain.PaymentPaid && res.PaymentStatus != domain.PaymentPartiallyPaid {
			result.AddError("a payment is required before the reservation can be confirmed")
			return
		}
		if paid < v.cfg.ConfirmMinPaidPercent {
			result.AddError(fmt.Sprintf("at least %g%% of the total must be paid to confirm (paid %.0f%%)", v.cfg.ConfirmMinPaidPercent, paid))
		}

	case domain.StatusInHouse:
		if paid < v.cfg.CheckInMinPaidPercent {
			result.AddError(fmt.Sprintf("at least %g%% of the total must be paid to check in (paid %.0f%%)", v.cfg.CheckInMinPaidPercent, paid))
		}

	case domain.StatusCheckedOut:
		if res.PaymentStatus != domain.PaymentPaid {
			result.AddWarning(fmt.Sprintf("guest is checking out with payment status %s", res.PaymentStatus))
		}
	}
}
