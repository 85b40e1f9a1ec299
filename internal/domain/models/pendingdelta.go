// internal/domain/models/pendingdelta.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pending delta kinds raised by the commit engine when an import shows
// a suspicious pattern worth a human look.
const (
	DeltaNewActive       = "new_active"        // appeared with no prior history
	DeltaLeftLeaveRoster = "left_leave_roster" // disappeared from the leave-of-absence list
)

// Pending delta statuses.
const (
	DeltaPending  = "pending"
	DeltaResolved = "resolved"
)

// PendingDelta is one entry of the anomaly queue. Entries are resolved
// by an operator, or automatically when a matching counter-event shows
// up in a later commit (a member returning within a day of vanishing).
type PendingDelta struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Ref           int64              `bson:"ref" json:"ref"`
	FullName      string             `bson:"full_name" json:"full_name"`
	DivisionLabel string             `bson:"division_label,omitempty" json:"division_label,omitempty"`
	Kind          string             `bson:"kind" json:"kind"`
	Priority      int                `bson:"priority" json:"priority"`
	Extra         map[string]string  `bson:"extra,omitempty" json:"extra,omitempty"`
	Status        string             `bson:"status" json:"status"`
	ResolvedBy    string             `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time         `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}
