package domain

import (
	"errors"
	"testing"
	"time"
)

func TestRole_Allows(t *testing.T) {
	tests := []struct {
		role       Role
		permission Permission
		want       bool
	}{
		{RolePrimaryHolder, PermissionManage, true},
		{RoleSecondaryHolder, PermissionManage, false},
		{RoleSecondaryHolder, PermissionWithdraw, true},
		{RoleProxy, PermissionTransfer, true},
		{RoleProxy, PermissionRedeem, true},
		{RoleObserver, PermissionWithdraw, false},
		{RoleObserver, PermissionDeposit, true},
		{RoleBeneficiary, PermissionDeposit, true},
		{RoleAdministrator, PermissionSubscribe, false},
		{RoleAdministrator, PermissionView, true},
		{Role("OWNER"), PermissionView, false},
	}

	for _, tt := range tests {
		if got := tt.role.Allows(tt.permission); got != tt.want {
			t.Fatalf("%s.Allows(%s) = %v, want %v", tt.role, tt.permission, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" proxy ")
	if err != nil || role != RoleProxy {
		t.Fatalf("expected PROXY, got %q err=%v", role, err)
	}

	if _, err := ParseRole("owner"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestRolesForReturnsCopy(t *testing.T) {
	roles := RolesFor(PermissionManage)
	roles[0] = RoleObserver

	if !RolePrimaryHolder.Allows(PermissionManage) {
		t.Fatalf("permission table must not be mutable through RolesFor")
	}
}

func TestRoleGrant_Revoke(t *testing.T) {
	now := time.Now().UTC()
	g := &RoleGrant{ID: "g-1", Active: true}

	if err := g.Revoke(now); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if g.Active || g.EndedAt == nil {
		t.Fatalf("expected inactive grant with end timestamp, got %+v", g)
	}
	if err := g.Revoke(now); !errors.Is(err, ErrGrantInactive) {
		t.Fatalf("expected ErrGrantInactive, got %v", err)
	}
}
