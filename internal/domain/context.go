package domain

import "time"

// Role is the acting user's role within an organization.
type Role string

const (
	RoleSuperAdmin      Role = "SUPER_ADMIN"
	RoleOrgOwner        Role = "ORG_OWNER"
	RoleOrgAdmin        Role = "ORG_ADMIN"
	RolePropertyManager Role = "PROPERTY_MGR"
	RoleFrontDesk       Role = "FRONT_DESK"
	RoleAccountant      Role = "ACCOUNTANT"
	RoleHousekeeping    Role = "HOUSEKEEPING"
	RoleMaintenance     Role = "MAINTENANCE"

	// RoleSystem is used by scheduled automation.
	RoleSystem Role = "SYSTEM"
)

var roleRank = map[Role]int{
	RoleSuperAdmin:      100,
	RoleOrgOwner:        90,
	RoleOrgAdmin:        80,
	RolePropertyManager: 70,
	RoleSystem:          70,
	RoleFrontDesk:       40,
	RoleAccountant:      40,
	RoleHousekeeping:    20,
	RoleMaintenance:     20,
}

// AtLeast reports whether r ranks at or above other. Unknown roles rank below everything.
func (r Role) AtLeast(other Role) bool {
	rank, ok := roleRank[r]
	if !ok {
		return false
	}
	return rank >= roleRank[other]
}

// Known reports whether r is a recognized role.
func (r Role) Known() bool {
	_, ok := roleRank[r]
	return ok
}

// TransitionContext is the unit of work passed through the engine for one
// proposed status change.
type TransitionContext struct {
	ReservationID  string
	CurrentStatus  Status
	NewStatus      Status
	Reason         string
	UserID         string
	UserRole       Role
	PropertyID     string
	OrganizationID string
	IsAutomatic    bool

	// Reservation is an optional snapshot. When nil the validator loads it.
	Reservation *Reservation

	// Now is the only clock the engine reads.
	Now time.Time
}

// HoursUntilCheckIn returns the hours from Now to check-in; negative once check-in has passed.
func (tc TransitionContext) HoursUntilCheckIn() (float64, bool) {
	if tc.Reservation == nil || tc.Reservation.CheckIn.IsZero() {
		return 0, false
	}
	return tc.Reservation.CheckIn.Sub(tc.Now).Hours(), true
}

// HoursSinceCheckIn returns the hours elapsed since check-in; negative before it.
func (tc TransitionContext) HoursSinceCheckIn() (float64, bool) {
	h, ok := tc.HoursUntilCheckIn()
	return -h, ok
}

// HoursAfterCheckOut returns the hours elapsed since check-out; negative before it.
func (tc TransitionContext) HoursAfterCheckOut() (float64, bool) {
	if tc.Reservation == nil || tc.Reservation.CheckOut.IsZero() {
		return 0, false
	}
	return tc.Now.Sub(tc.Reservation.CheckOut).Hours(), true
}
