package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is a permission role an actor holds on an account.
type Role string

const (
	RolePrimaryHolder   Role = "PRIMARY_HOLDER"
	RoleSecondaryHolder Role = "SECONDARY_HOLDER"
	RoleProxy           Role = "PROXY"
	RoleObserver        Role = "OBSERVER"
	RoleAdministrator   Role = "ADMINISTRATOR"
	RoleBeneficiary     Role = "BENEFICIARY"
)

// Permission is a capability checked against the roles an actor holds.
type Permission string

const (
	PermissionView         Permission = "view"
	PermissionDeposit      Permission = "deposit"
	PermissionWithdraw     Permission = "withdraw"
	PermissionTransfer     Permission = "transfer"
	PermissionSubscribe    Permission = "subscribe"
	PermissionRedeem       Permission = "redeem"
	PermissionManage       Permission = "manage"
	PermissionManageGrants Permission = "manage_grants"
)

var (
	anyRole     = []Role{RolePrimaryHolder, RoleSecondaryHolder, RoleProxy, RoleObserver, RoleAdministrator, RoleBeneficiary}
	movingRoles = []Role{RolePrimaryHolder, RoleSecondaryHolder, RoleProxy}
	ownerRoles  = []Role{RolePrimaryHolder}
)

var permissionRoles = map[Permission][]Role{
	PermissionView:         anyRole,
	PermissionDeposit:      anyRole,
	PermissionWithdraw:     movingRoles,
	PermissionTransfer:     movingRoles,
	PermissionSubscribe:    movingRoles,
	PermissionRedeem:       movingRoles,
	PermissionManage:       ownerRoles,
	PermissionManageGrants: ownerRoles,
}

// RolesFor returns the roles that carry permission p.
func RolesFor(p Permission) []Role {
	roles := permissionRoles[p]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// Allows reports whether r carries permission p.
func (r Role) Allows(p Permission) bool {
	for _, allowed := range permissionRoles[p] {
		if allowed == r {
			return true
		}
	}
	return false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range anyRole {
		if known == r {
			return true
		}
	}
	return false
}

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// RoleGrant links an actor to an account with a role.
type RoleGrant struct {
	StartedAt time.Time
	EndedAt   *time.Time
	ID        string
	AccountID string
	ActorID   string
	Role      Role
	Active    bool
}

// Revoke deactivates the grant.
func (g *RoleGrant) Revoke(now time.Time) error {
	if !g.Active {
		return fmt.Errorf("%w: %s", ErrGrantInactive, g.ID)
	}
	g.Active = false
	g.EndedAt = &now
	return nil
}

// ActorKind distinguishes individual and institutional clients.
type ActorKind string

const (
	ActorKindIndividual    ActorKind = "INDIVIDUAL"
	ActorKindInstitutional ActorKind = "INSTITUTIONAL"
)

// Actor is an authenticated party known to the identity collaborator.
type Actor struct {
	CreatedAt   time.Time
	ID          string
	DisplayName string
	Kind        ActorKind
	Active      bool
}
