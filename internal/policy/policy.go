// Package policy decides which status changes a role may execute without
// manager approval.
package policy

import (
	"fmt"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// Compile-time check: RolePolicy implements domain.PermissionPolicy.
var _ domain.PermissionPolicy = (*RolePolicy)(nil)

// Pair is a (source, target) status change.
type Pair struct {
	Src domain.Status
	Dst domain.Status
}

func (p Pair) String() string {
	return fmt.Sprintf("%s → %s", p.Src, p.Dst)
}

// RolePolicy holds the per-role restriction table and the critical pairs.
// Roles at or above Elevated bypass the table and the critical pairs.
type RolePolicy struct {
	Restricted map[domain.Role][]Pair
	Critical   []Pair
	Elevated   domain.Role
}

// DefaultRolePolicy returns the standard hotel operations policy.
func DefaultRolePolicy() *RolePolicy {
	operational := []Pair{
		{domain.StatusPendingConfirmation, domain.StatusConfirmed},
		{domain.StatusPendingConfirmation, domain.StatusCancelled},
		{domain.StatusConfirmed, domain.StatusCancelled},
		{domain.StatusConfirmed, domain.StatusNoShow},
		{domain.StatusInHouse, domain.StatusCancelled},
	}

	return &RolePolicy{
		Restricted: map[domain.Role][]Pair{
			domain.RoleHousekeeping: operational,
			domain.RoleMaintenance:  operational,
			domain.RoleFrontDesk: {
				{domain.StatusPendingConfirmation, domain.StatusConfirmed},
			},
			domain.RoleAccountant: {
				{domain.StatusPendingConfirmation, domain.StatusConfirmed},
				{domain.StatusConfirmed, domain.StatusInHouse},
				{domain.StatusConfirmed, domain.StatusNoShow},
				{domain.StatusInHouse, domain.StatusCheckedOut},
			},
		},
		Critical: []Pair{
			{domain.StatusConfirmed, domain.StatusCancelled},
			{domain.StatusInHouse, domain.StatusCancelled},
		},
		Elevated: domain.RolePropertyManager,
	}
}

// Check returns the verdict for role executing src → dst.
func (p *RolePolicy) Check(role domain.Role, src, dst domain.Status) domain.PermissionDecision {
	if role.AtLeast(p.Elevated) {
		return domain.PermissionDecision{}
	}

	pair := Pair{Src: src, Dst: dst}
	var d domain.PermissionDecision

	switch {
	case !role.Known():
		d.Restricted = true
		d.Reason = fmt.Sprintf("role %q is not recognized; %s requires manager approval", role, pair)
	case p.restricts(role, pair):
		d.Restricted = true
		d.Reason = fmt.Sprintf("role %s may not change status %s without manager approval", role, pair)
	}

	if p.isCritical(pair) {
		d.Critical = true
		if d.Reason == "" {
			d.Reason = fmt.Sprintf("%s is a critical change and requires manager approval", pair)
		}
	}
	return d
}

func (p *RolePolicy) restricts(role domain.Role, pair Pair) bool {
	for _, r := range p.Restricted[role] {
		if r == pair {
			return true
		}
	}
	return false
}

func (p *RolePolicy) isCritical(pair Pair) bool {
	for _, c := range p.Critical {
		if c == pair {
			return true
		}
	}
	return false
}
