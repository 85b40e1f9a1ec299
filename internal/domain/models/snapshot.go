// internal/domain/models/snapshot.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DivisionCount is the per-division slice of a roster snapshot.
type DivisionCount struct {
	DivisionID *primitive.ObjectID `bson:"division_id,omitempty" json:"division_id,omitempty"`
	Name       string              `bson:"name" json:"name"` // division label at snapshot time
	Total      int                 `bson:"total" json:"total"`
	Linked     int                 `bson:"linked" json:"linked"`
	Unlinked   int                 `bson:"unlinked" json:"unlinked"`
}

// Snapshot is a point-in-time aggregate of the active roster, written
// once per successful commit.
type Snapshot struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TakenAt     time.Time          `bson:"taken_at" json:"taken_at"`
	TotalActive int                `bson:"total_active" json:"total_active"`
	Divisions   []DivisionCount    `bson:"divisions" json:"divisions"`
	BatchKind   string             `bson:"batch_kind" json:"batch_kind"` // e.g. "roster_import"
	Operator    string             `bson:"operator" json:"operator"`
	Note        string             `bson:"note,omitempty" json:"note,omitempty"`
}

// FieldChange is one field-level mutation of one member, linked to the
// snapshot written by the commit that applied it. Values are stored
// string-normalized for uniform display.
type FieldChange struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SnapshotID primitive.ObjectID `bson:"snapshot_id" json:"snapshot_id"`
	Ref        int64              `bson:"ref" json:"ref"`
	Field      string             `bson:"field" json:"field"`
	OldValue   string             `bson:"old_value" json:"old_value"`
	NewValue   string             `bson:"new_value" json:"new_value"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
