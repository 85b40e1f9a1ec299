// internal/domain/models/member.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Inactivation reasons assigned by an operator when a member disappears
// from an imported roster.
const (
	ReasonTransferred = "transferred" // moved to another organization (or internal move, see RemovalDecision)
	ReasonDeceased    = "deceased"
	ReasonResigned    = "resigned"
	ReasonExpelled    = "expelled"
	ReasonLeave       = "leave" // leave of absence; member stays active
	ReasonPromoted    = "promoted"
	ReasonOther       = "other"
)

// Member is one row of the persisted active roster. Members are keyed by
// Ref, the stable external identifier carried by every roster export.
// Rows are never deleted; departure is recorded by flipping Active and
// filling the Inactive* fields.
type Member struct {
	ID  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Ref int64              `bson:"ref" json:"ref"` // external member identifier (unique)

	FullName   string `bson:"full_name" json:"full_name"`
	FullNameCI string `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped

	// Organizational labels exactly as they appeared in the last import
	// that touched this member. Resolution to catalog IDs happens at
	// commit time and may fail without blocking the import.
	CommandLabel  string `bson:"command_label,omitempty" json:"command_label,omitempty"`
	RegionLabel   string `bson:"region_label,omitempty" json:"region_label,omitempty"`
	DivisionLabel string `bson:"division_label,omitempty" json:"division_label,omitempty"`

	RankLabel    string `bson:"rank_label" json:"rank_label"`
	TraineeLabel string `bson:"trainee_label,omitempty" json:"trainee_label,omitempty"`

	// Equipment / qualification flags from the attribute export.
	Uniformed     bool `bson:"uniformed" json:"uniformed"`
	RadioEquipped bool `bson:"radio_equipped" json:"radio_equipped"`
	FirstAider    bool `bson:"first_aider" json:"first_aider"`
	Instructor    bool `bson:"instructor" json:"instructor"`

	JoinedOn *time.Time `bson:"joined_on,omitempty" json:"joined_on,omitempty"`

	// Resolved hierarchy references (derived, not authoritative input).
	DivisionID *primitive.ObjectID `bson:"division_id,omitempty" json:"division_id,omitempty"`
	RegionID   *primitive.ObjectID `bson:"region_id,omitempty" json:"region_id,omitempty"`

	Active bool `bson:"active" json:"active"`
	Linked bool `bson:"linked" json:"linked"` // a user account references this member

	InactiveReason string     `bson:"inactive_reason,omitempty" json:"inactive_reason,omitempty"`
	InactiveNote   string     `bson:"inactive_note,omitempty" json:"inactive_note,omitempty"`
	InactivatedAt  *time.Time `bson:"inactivated_at,omitempty" json:"inactivated_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
