// Package rules evaluates declarative business rules against a transition context.
package rules

import (
	"slices"
	"strings"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// Fact extracts the named fact from tc. Missing data and unknown facts yield null.
// Time facts are measured against tc.Now.
func Fact(tc domain.TransitionContext, fact domain.FactType) domain.Value {
	res := tc.Reservation

	switch fact {
	case domain.FactSourceStatus:
		return stringOrNull(string(tc.CurrentStatus))
	case domain.FactTargetStatus:
		return stringOrNull(string(tc.NewStatus))
	case domain.FactUserRole:
		return stringOrNull(string(tc.UserRole))
	case domain.FactIsAutomatic:
		return domain.Bool(tc.IsAutomatic)
	case domain.FactHoursUntilCheckIn:
		return hours(tc.HoursUntilCheckIn())
	case domain.FactHoursSinceCheckIn:
		return hours(tc.HoursSinceCheckIn())
	case domain.FactHoursAfterCheckOut:
		return hours(tc.HoursAfterCheckOut())
	}

	if res == nil {
		return domain.Null()
	}

	switch fact {
	case domain.FactPaymentStatus:
		return stringOrNull(string(res.PaymentStatus))
	case domain.FactPaymentPercentage:
		return domain.Number(res.PaymentPercentage())
	case domain.FactGuestType:
		return stringOrNull(res.GuestType)
	case domain.FactBookingSource:
		return stringOrNull(res.BookingSource)
	default:
		return domain.Null()
	}
}

func stringOrNull(s string) domain.Value {
	if s == "" {
		return domain.Null()
	}
	return domain.String(s)
}

func hours(h float64, ok bool) domain.Value {
	if !ok {
		return domain.Null()
	}
	return domain.Number(h)
}

// Evaluate reports whether cond holds for tc. It fails closed: unknown
// operators and kind mismatches are false, and a null fact only satisfies
// equals(null).
func Evaluate(tc domain.TransitionContext, cond domain.RuleCondition) bool {
	return compare(Fact(tc, cond.Fact), cond.Operator, cond.Value)
}

func compare(fact domain.Value, op domain.Operator, want domain.Value) bool {
	if fact.IsNull() {
		return op == domain.OpEquals && want.IsNull()
	}

	switch op {
	case domain.OpEquals:
		return fact.Equal(want)
	case domain.OpNotEquals:
		return fact.Kind() == want.Kind() && !fact.Equal(want)
	case domain.OpGreaterThan, domain.OpGreaterThanOrEqual, domain.OpLessThan, domain.OpLessThanOrEqual:
		a, ok := fact.Num()
		if !ok {
			return false
		}
		b, ok := want.Num()
		if !ok {
			return false
		}
		return order(op, a, b)
	case domain.OpIn, domain.OpNotIn:
		s, ok := fact.Str()
		if !ok {
			return false
		}
		list, ok := want.List()
		if !ok {
			return false
		}
		found := slices.Contains(list, s)
		if op == domain.OpIn {
			return found
		}
		return !found
	case domain.OpContains:
		s, ok := fact.Str()
		if !ok {
			return false
		}
		sub, ok := want.Str()
		if !ok {
			return false
		}
		return strings.Contains(s, sub)
	default:
		return false
	}
}

func order(op domain.Operator, a, b float64) bool {
	switch op {
	case domain.OpGreaterThan:
		return a > b
	case domain.OpGreaterThanOrEqual:
		return a >= b
	case domain.OpLessThan:
		return a < b
	case domain.OpLessThanOrEqual:
		return a <= b
	default:
		return false
	}
}

// Matches reports whether every condition of rule holds. A rule without
// conditions always matches.
func Matches(tc domain.TransitionContext, rule domain.BusinessRule) bool {
	for _, cond := range rule.Conditions {
		if !Evaluate(tc, cond) {
			return false
		}
	}
	return true
}
