package rules

import (
	"context"
	"slices"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// Compile-time check: StaticRepository implements domain.RuleRepository.
var _ domain.RuleRepository = (*StaticRepository)(nil)

// OTA channels whose cancellations must be pushed back to the channel manager.
var otaSources = []string{"OTA", "BOOKING_COM", "EXPEDIA", "AIRBNB"}

// DefaultRules returns the rule set every organization starts with.
func DefaultRules() []domain.BusinessRule {
	return []domain.BusinessRule{
		{
			ID:          "default-min-payment-confirmation",
			Name:        "Minimum payment for confirmation",
			Description: "Unpaid reservations cannot be confirmed.",
			Category:    domain.CategoryPaymentRequirement,
			Priority:    100,
			Active:      true,
			Conditions: []domain.RuleCondition{
				{Fact: domain.FactTargetStatus, Operator: domain.OpEquals, Value: domain.String(string(domain.StatusConfirmed))},
				{Fact: domain.FactPaymentStatus, Operator: domain.OpEquals, Value: domain.String(string(domain.PaymentUnpaid))},
			},
			Actions: []domain.RuleAction{
				{Type: domain.ActionDeny, Message: "a minimum payment is required before the reservation can be confirmed"},
			},
		},
		{
			ID:          "default-late-cancellation",
			Name:        "Late cancellation",
			Description: "Manual cancellations within 24 hours of check-in need manager review.",
			Category:    domain.CategoryTimeConstraint,
			Priority:    90,
			Active:      true,
			Conditions: []domain.RuleCondition{
				{Fact: domain.FactTargetStatus, Operator: domain.OpEquals, Value: domain.String(string(domain.StatusCancelled))},
				{Fact: domain.FactHoursUntilCheckIn, Operator: domain.OpLessThan, Value: domain.Number(24)},
				{Fact: domain.FactIsAutomatic, Operator: domain.OpEquals, Value: domain.Bool(false)},
			},
			Actions: []domain.RuleAction{
				{Type: domain.ActionRequireApproval, Message: "cancellation is within 24 hours of check-in"},
			},
		},
		{
			ID:          "default-early-check-in",
			Name:        "Early check-in",
			Description: "Warn when a guest checks in more than two hours before the scheduled time.",
			Category:    domain.CategoryTimeConstraint,
			Priority:    50,
			Active:      true,
			Conditions: []domain.RuleCondition{
				{Fact: domain.FactTargetStatus, Operator: domain.OpEquals, Value: domain.String(string(domain.StatusInHouse))},
				{Fact: domain.FactHoursUntilCheckIn, Operator: domain.OpGreaterThan, Value: domain.Number(2)},
			},
			Actions: []domain.RuleAction{
				{Type: domain.ActionAddWarning, Message: "guest is checking in more than 2 hours early"},
			},
		},
		{
			ID:          "default-ota-cancellation",
			Name:        "OTA booking cancellation",
			Description: "Cancellations of channel bookings must be synced to the channel manager.",
			Category:    domain.CategoryGuestPolicy,
			Priority:    40,
			Active:      true,
			Conditions: []domain.RuleCondition{
				{Fact: domain.FactTargetStatus, Operator: domain.OpEquals, Value: domain.String(string(domain.StatusCancelled))},
				{Fact: domain.FactBookingSource, Operator: domain.OpIn, Value: domain.StringList(otaSources...)},
			},
			Actions: []domain.RuleAction{
				{Type: domain.ActionSendNotification, Value: domain.String("channel_manager"), Message: "channel manager will be notified of the cancellation"},
			},
		},
		{
			ID:          "default-no-show-fee",
			Name:        "No-show fee",
			Description: "The first night is charged when a guest does not arrive.",
			Category:    domain.CategoryPaymentRequirement,
			Priority:    30,
			Active:      true,
			Conditions: []domain.RuleCondition{
				{Fact: domain.FactTargetStatus, Operator: domain.OpEquals, Value: domain.String(string(domain.StatusNoShow))},
			},
			Actions: []domain.RuleAction{
				{Type: domain.ActionSetFee, Value: domain.Number(100), Message: "first night is charged as a no-show fee"},
			},
		},
	}
}

// StaticRepository serves a fixed rule set. Rules without an organization
// apply to every organization.
type StaticRepository struct {
	rules []domain.BusinessRule
}

// NewStaticRepository creates a repository over rules. With no rules it serves DefaultRules.
func NewStaticRepository(rules ...domain.BusinessRule) *StaticRepository {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &StaticRepository{rules: slices.Clone(rules)}
}

func (s *StaticRepository) ListRules(_ context.Context, organizationID string) ([]domain.BusinessRule, error) {
	out := make([]domain.BusinessRule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.OrganizationID != "" && r.OrganizationID != organizationID {
			continue
		}
		if r.OrganizationID == "" {
			r.OrganizationID = organizationID
		}
		out = append(out, r)
	}
	return out, nil
}
