package domain

// RuleCategory groups business rules by the concern they guard.
type RuleCategory string

const (
	CategoryTimeConstraint     RuleCategory = "time_constraint"
	CategoryPaymentRequirement RuleCategory = "payment_requirement"
	CategoryRolePermission     RuleCategory = "role_permission"
	CategoryRoomAvailability   RuleCategory = "room_availability"
	CategoryGuestPolicy        RuleCategory = "guest_policy"
)

// FactType names a fact extracted from a TransitionContext.
type FactType string

const (
	FactSourceStatus       FactType = "source_status"
	FactTargetStatus       FactType = "target_status"
	FactUserRole           FactType = "user_role"
	FactHoursUntilCheckIn  FactType = "hours_until_check_in"
	FactHoursSinceCheckIn  FactType = "hours_since_check_in"
	FactHoursAfterCheckOut FactType = "hours_after_check_out"
	FactPaymentStatus      FactType = "payment_status"
	FactPaymentPercentage  FactType = "payment_percentage"
	FactGuestType          FactType = "guest_type"
	FactBookingSource      FactType = "booking_source"
	FactIsAutomatic        FactType = "is_automatic"
)

// Operator compares a fact with a condition value.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpGreaterThan        Operator = "greater_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThan           Operator = "less_than"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "not_in"
	OpContains           Operator = "contains"
)

// ActionType is the effect a matching rule has on a validation result.
type ActionType string

const (
	ActionAllow            ActionType = "allow"
	ActionDeny             ActionType = "deny"
	ActionRequireApproval  ActionType = "require_approval"
	ActionAddWarning       ActionType = "add_warning"
	ActionAddError         ActionType = "add_error"
	ActionSetFee           ActionType = "set_fee"
	ActionSendNotification ActionType = "send_notification"
)

// RuleCondition is a (fact, operator, value) triple.
type RuleCondition struct {
	Fact     FactType `json:"fact"`
	Operator Operator `json:"operator"`
	Value    Value    `json:"value"`
}

// RuleAction is applied to the result when its rule matches.
type RuleAction struct {
	Type    ActionType `json:"type"`
	Value   Value      `json:"value"`
	Message string     `json:"message,omitempty"`
}

// BusinessRule is a declarative, immutable rule. Higher priorities are evaluated first.
type BusinessRule struct {
	ID             string
	OrganizationID string
	PropertyID     string // empty applies to every property of the organization
	Name           string
	Description    string
	Category       RuleCategory
	Priority       int
	Active         bool
	Conditions     []RuleCondition
	Actions        []RuleAction
}

// AppliesTo reports whether the rule is active and in scope for the property.
func (r BusinessRule) AppliesTo(propertyID string) bool {
	if !r.Active {
		return false
	}
	return r.PropertyID == "" || r.PropertyID == propertyID
}
