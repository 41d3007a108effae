package domain

import (
	"context"
	"time"
)

// ReservationRepository defines the persistence contract for reservations.
type ReservationRepository interface {
	GetByID(ctx context.Context, id string) (Reservation, error)
	List(ctx context.Context, filter ListFilter) ([]Reservation, error)
	FindOverlapping(ctx context.Context, query OverlapQuery) ([]Reservation, error)
	Update(ctx context.Context, reservation Reservation) error
}

// ListFilter holds optional criteria for listing reservations.
type ListFilter struct {
	OrganizationID string
	PropertyID     string
	Statuses       []Status
	Limit          int
	Offset         int
}

// OverlapQuery selects reservations on a room whose stay intersects [From, To).
type OverlapQuery struct {
	RoomID    string
	From      time.Time
	To        time.Time
	Statuses  []Status
	ExcludeID string
}

// RoomRepository resolves room references.
type RoomRepository interface {
	GetRoom(ctx context.Context, id string) (Room, error)
}

// PropertyRepository resolves property references.
type PropertyRepository interface {
	GetProperty(ctx context.Context, id string) (Property, error)
}

// StatusHistoryRepository stores the status history of reservations.
type StatusHistoryRepository interface {
	// Recent returns at most limit entries, newest first.
	Recent(ctx context.Context, reservationID string, limit int) ([]StatusChange, error)
	Append(ctx context.Context, change StatusChange) error
}

// RuleRepository supplies the business rules of an organization.
type RuleRepository interface {
	ListRules(ctx context.Context, organizationID string) ([]BusinessRule, error)
}

// EventPublisher defines the contract for emitting events about applied transitions.
// Channel-manager sync and guest notifications hang off these events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, reservation Reservation) error
}

// ApprovalNotifier routes transitions that need manager review.
type ApprovalNotifier interface {
	RequestApproval(ctx context.Context, request ApprovalRequest) error
}

// StatusGraph answers which status changes the lifecycle allows.
type StatusGraph interface {
	Targets(src Status) []Status
	IsTerminal(s Status) bool
	Allows(src, dst Status) bool
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}

// PermissionDecision is the verdict of the role policy for one transition.
type PermissionDecision struct {
	Restricted bool
	Critical   bool
	Reason     string
}

// RequiresApproval reports whether the actor may not execute the transition alone.
func (d PermissionDecision) RequiresApproval() bool {
	return d.Restricted || d.Critical
}

// PermissionPolicy decides whether a role may execute a transition unilaterally.
type PermissionPolicy interface {
	Check(role Role, src, dst Status) PermissionDecision
}

// RuleEvaluator evaluates the business rules in scope for a transition.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, tc TransitionContext) (ValidationResult, error)
}

// IntegrityChecker runs cross-record consistency checks and applies safe fixes.
type IntegrityChecker interface {
	Check(ctx context.Context, tc TransitionContext) DataIntegrityResult
	AutoFix(ctx context.Context, reservationID string, issues []DataIntegrityIssue) (AutoFixResult, error)
}

// TransitionValidator produces the full decision for a proposed transition.
type TransitionValidator interface {
	Validate(ctx context.Context, tc TransitionContext) (ValidationResult, error)
}
