// internal/app/system/authz/authz.go

// Package authz answers capability questions about the current
// operator. The role catalog itself is owned by an external service;
// this package only consults it (or the roles carried on the verified
// identity) and fails closed on any doubt.
package authz

import (
	"context"
	"net/http"
	"strings"

	"github.com/baymark/rollcall/internal/app/system/auth"
	"github.com/baymark/rollcall/internal/domain/models"
)

// AdminCapability is the capability gating roster commits.
const AdminCapability = "roster_admin"

// RoleLookup answers whether an operator holds a capability. The
// production implementation calls the organization's role service; it
// is a black box here.
type RoleLookup interface {
	HasCapability(ctx context.Context, operatorID, capability string) (bool, error)
}

// OperatorCtx returns the operator's ID, display name, and a found
// flag. Absent or malformed identities come back as not found so
// callers can fail closed.
func OperatorCtx(r *http.Request) (id string, name string, ok bool) {
	op, ok := auth.CurrentOperator(r)
	if !ok || op.ID == "" {
		return "", "", false
	}
	return op.ID, op.Name, true
}

// OperatorHasRole reports whether the verified identity carries the
// given role (case-insensitive).
func OperatorHasRole(r *http.Request, role string) bool {
	op, ok := auth.CurrentOperator(r)
	if !ok {
		return false
	}
	for _, have := range op.Roles {
		if strings.EqualFold(have, role) {
			return true
		}
	}
	return false
}

// HasAdminRole reports whether an embedded role list grants the admin
// capability: either the capability name itself or the account-level
// admin role qualifies. Every gate that falls back from the external
// lookup to embedded roles must go through this one check.
func HasAdminRole(roleList []string) bool {
	for _, have := range roleList {
		if strings.EqualFold(have, AdminCapability) || strings.EqualFold(have, models.RoleAdmin) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the current operator may commit roster
// changes, preferring the external lookup and falling back to the
// identity's embedded roles when no lookup is configured.
func IsAdmin(ctx context.Context, r *http.Request, lookup RoleLookup) bool {
	id, _, ok := OperatorCtx(r)
	if !ok {
		return false
	}
	if lookup != nil {
		has, err := lookup.HasCapability(ctx, id, AdminCapability)
		if err == nil {
			return has
		}
		// Lookup failure: fall through to embedded roles rather than
		// silently granting.
	}
	op, ok := auth.CurrentOperator(r)
	if !ok {
		return false
	}
	return HasAdminRole(op.Roles)
}
