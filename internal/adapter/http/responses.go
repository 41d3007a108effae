package http

import (
	"time"

	"github.com/neomorfeo/innkeep/internal/app"
	"github.com/neomorfeo/innkeep/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// ReservationResponse is the API representation of a reservation.
type ReservationResponse struct {
	ID                string  `json:"id" doc:"Unique identifier"`
	OrganizationID    string  `json:"organization_id"`
	PropertyID        string  `json:"property_id"`
	RoomID            string  `json:"room_id"`
	GuestName         string  `json:"guest_name"`
	GuestEmail        string  `json:"guest_email,omitempty"`
	BookingSource     string  `json:"booking_source,omitempty"`
	Status            string  `json:"status" doc:"Stored lifecycle state"`
	DisplayStatus     string  `json:"display_status" doc:"Status shown today; CHECKIN_DUE or CHECKOUT_DUE on the arrival or departure day"`
	CheckIn           string  `json:"check_in" doc:"Check-in instant (ISO 8601)"`
	CheckOut          string  `json:"check_out" doc:"Check-out instant (ISO 8601)"`
	PaymentStatus     string  `json:"payment_status"`
	TotalAmount       string  `json:"total_amount"`
	PaidAmount        string  `json:"paid_amount"`
	DepositAmount     string  `json:"deposit_amount"`
	PaymentPercentage float64 `json:"payment_percentage" doc:"Paid share of the deposit, 0-100"`
	Adults            int     `json:"adults"`
	Children          int     `json:"children"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

func toReservationResponse(r domain.Reservation, now time.Time) ReservationResponse {
	return ReservationResponse{
		ID:                r.ID,
		OrganizationID:    r.OrganizationID,
		PropertyID:        r.PropertyID,
		RoomID:            r.RoomID,
		GuestName:         r.GuestName,
		GuestEmail:        r.GuestEmail,
		BookingSource:     r.BookingSource,
		Status:            string(r.Status),
		DisplayStatus:     string(domain.DisplayStatus(r, now)),
		CheckIn:           r.CheckIn.UTC().Format(timeFormat),
		CheckOut:          r.CheckOut.UTC().Format(timeFormat),
		PaymentStatus:     string(r.PaymentStatus),
		TotalAmount:       r.TotalAmount.StringFixed(2),
		PaidAmount:        r.PaidAmount.StringFixed(2),
		DepositAmount:     r.DepositAmount.StringFixed(2),
		PaymentPercentage: r.PaymentPercentage(),
		Adults:            r.Adults,
		Children:          r.Children,
		CreatedAt:         r.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:         r.UpdatedAt.UTC().Format(timeFormat),
	}
}

// ValidationResponse is the API representation of a validation decision.
type ValidationResponse struct {
	IsValid                bool     `json:"is_valid"`
	Errors                 []string `json:"errors"`
	Warnings               []string `json:"warnings"`
	RequiresApproval       bool     `json:"requires_approval"`
	ApprovalReason         string   `json:"approval_reason,omitempty"`
	BusinessRuleViolations []string `json:"business_rule_violations"`
	DataIntegrityIssues    []string `json:"data_integrity_issues"`
}

func toValidationResponse(r domain.ValidationResult) ValidationResponse {
	return ValidationResponse{
		IsValid:                r.IsValid(),
		Errors:                 orEmpty(r.Errors),
		Warnings:               orEmpty(r.Warnings),
		RequiresApproval:       r.RequiresApproval,
		ApprovalReason:         r.ApprovalReason,
		BusinessRuleViolations: orEmpty(r.BusinessRuleViolations),
		DataIntegrityIssues:    orEmpty(r.DataIntegrityIssues),
	}
}

// IntegrityResponse is the API representation of a consistency check.
type IntegrityResponse struct {
	Passed   bool                        `json:"passed" doc:"True when no critical or high severity issue was found"`
	Issues   []domain.DataIntegrityIssue `json:"issues"`
	Warnings []string                    `json:"warnings"`
}

func toIntegrityResponse(r domain.DataIntegrityResult) IntegrityResponse {
	issues := r.Issues
	if issues == nil {
		issues = []domain.DataIntegrityIssue{}
	}
	return IntegrityResponse{
		Passed:   r.Passed(),
		Issues:   issues,
		Warnings: orEmpty(r.Warnings),
	}
}

// RuleResponse is the API representation of a business rule.
type RuleResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Category    string                 `json:"category"`
	Priority    int                    `json:"priority"`
	PropertyID  string                 `json:"property_id,omitempty" doc:"Empty when the rule applies to every property"`
	Active      bool                   `json:"active"`
	Conditions  []domain.RuleCondition `json:"conditions"`
	Actions     []domain.RuleAction    `json:"actions"`
}

func toRuleResponse(r domain.BusinessRule) RuleResponse {
	return RuleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    string(r.Category),
		Priority:    r.Priority,
		PropertyID:  r.PropertyID,
		Active:      r.Active,
		Conditions:  r.Conditions,
		Actions:     r.Actions,
	}
}

// ApprovalResponse is the API representation of a pending approval request.
type ApprovalResponse struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	To          string `json:"to"`
	RequestedBy string `json:"requested_by"`
	Role        string `json:"role"`
	Reason      string `json:"reason"`
	CreatedAt   string `json:"created_at"`
}

func toApprovalResponse(a domain.ApprovalRequest) ApprovalResponse {
	return ApprovalResponse{
		ID:          a.ID,
		From:        string(a.From),
		To:          string(a.To),
		RequestedBy: a.RequestedBy,
		Role:        string(a.Role),
		Reason:      a.Reason,
		CreatedAt:   a.CreatedAt.UTC().Format(timeFormat),
	}
}

// SweepResponse wraps a sweep report.
type SweepResponse struct {
	DryRun          bool                  `json:"dry_run"`
	StartedAt       string                `json:"started_at"`
	FinishedAt      string                `json:"finished_at"`
	Scanned         int                   `json:"scanned"`
	Applied         int                   `json:"applied"`
	WouldApply      int                   `json:"would_apply"`
	PendingApproval int                   `json:"pending_approval"`
	Rejected        int                   `json:"rejected"`
	Failed          int                   `json:"failed"`
	Changes         []SweepChangeResponse `json:"changes"`
}

type SweepChangeResponse struct {
	ReservationID string             `json:"reservation_id"`
	From          string             `json:"from"`
	To            string             `json:"to"`
	Inferred      string             `json:"inferred"`
	Reason        string             `json:"reason"`
	Outcome       string             `json:"outcome"`
	Validation    ValidationResponse `json:"validation"`
	Error         string             `json:"error,omitempty"`
}

func toSweepResponse(r app.SweepReport) SweepResponse {
	changes := make([]SweepChangeResponse, len(r.Changes))
	for i, c := range r.Changes {
		changes[i] = SweepChangeResponse{
			ReservationID: c.ReservationID,
			From:          string(c.From),
			To:            string(c.To),
			Inferred:      string(c.Inferred),
			Reason:        c.Reason,
			Outcome:       string(c.Outcome),
			Validation:    toValidationResponse(c.Validation),
			Error:         c.Error,
		}
	}
	return SweepResponse{
		DryRun:          r.DryRun,
		StartedAt:       r.StartedAt.UTC().Format(timeFormat),
		FinishedAt:      r.FinishedAt.UTC().Format(timeFormat),
		Scanned:         r.Scanned,
		Applied:         r.Applied,
		WouldApply:      r.WouldApply,
		PendingApproval: r.PendingApproval,
		Rejected:        r.Rejected,
		Failed:          r.Failed,
		Changes:         changes,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
