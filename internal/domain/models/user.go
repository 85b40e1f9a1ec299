// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoleAdmin is the administrative role. It is granted out of band and
// the commit engine never adds or removes it; derived roles only ever
// replace the non-administrative ones.
const RoleAdmin = "admin"

// User is a linked account on the member portal. Accounts are created
// by the external auth system; this service only reads them and keeps
// their region pointer and derived roles in step with the roster.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName string             `bson:"full_name" json:"full_name"`
	Email    string             `bson:"email" json:"email"`

	// MemberRef links the account to an active-roster row by external
	// member identifier. Nil for staff accounts with no roster row.
	MemberRef *int64 `bson:"member_ref,omitempty" json:"member_ref,omitempty"`

	RegionID *primitive.ObjectID `bson:"region_id,omitempty" json:"region_id,omitempty"`

	// Roles may mix the administrative role with at most one derived
	// roster role (see system/roles).
	Roles []string `bson:"roles" json:"roles"`

	Status string `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasAdmin reports whether the account holds the administrative role.
func (u User) HasAdmin() bool {
	for _, r := range u.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}
