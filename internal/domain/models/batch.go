// internal/domain/models/batch.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Batch stages. A batch moves upload → review → done; reset discards it
// back to upload at any point.
const (
	StageUpload = "upload"
	StageReview = "review"
	StageDone   = "done"
)

// Selection categories inside a batch under review.
const (
	CategoryNew         = "new"
	CategoryUpdated     = "updated"
	CategoryRemoved     = "removed"
	CategoryTransferred = "transferred"
)

// SourceFile records where one of the two roster exports came from.
type SourceFile struct {
	Name     string `bson:"name" json:"name"`
	RowCount int    `bson:"row_count" json:"row_count"`
}

// RemovalDecision is the operator's disposition for one member the
// classifier marked as removed. It is mandatory for every selected
// removal before the batch may leave review.
type RemovalDecision struct {
	Ref    int64  `bson:"ref" json:"ref"`
	Reason string `bson:"reason" json:"reason"` // one of the Reason* constants
	Note   string `bson:"note,omitempty" json:"note,omitempty"`

	// Promoted: required destination.
	DestRankID *primitive.ObjectID `bson:"dest_rank_id,omitempty" json:"dest_rank_id,omitempty"`

	// Promoted or transferred-with-destination.
	DestRegionID   *primitive.ObjectID `bson:"dest_region_id,omitempty" json:"dest_region_id,omitempty"`
	DestDivisionID *primitive.ObjectID `bson:"dest_division_id,omitempty" json:"dest_division_id,omitempty"`

	// Transferred: destination lookup state. While LookupPending is true
	// the batch may not be executed; LookupFound distinguishes an
	// internal move (destination resolved) from a departure fallback.
	LookupPending bool `bson:"lookup_pending,omitempty" json:"lookup_pending,omitempty"`
	LookupFound   bool `bson:"lookup_found,omitempty" json:"lookup_found,omitempty"`

	DecidedAt time.Time `bson:"decided_at" json:"decided_at"`
}

// ImportBatch is one reconciliation batch from file intake through
// operator confirmation. The batch ID is a UUID handed to the client;
// batches are single-operator and carry all review state server-side.
type ImportBatch struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	BatchID string             `bson:"batch_id" json:"batch_id"` // UUID
	Stage   string             `bson:"stage" json:"stage"`
	DryRun  bool               `bson:"dry_run" json:"dry_run"`

	Operator string `bson:"operator" json:"operator"` // operator who opened the batch

	HierarchyFile SourceFile `bson:"hierarchy_file" json:"hierarchy_file"`
	AttributeFile SourceFile `bson:"attribute_file" json:"attribute_file"`

	Delta *DeltaResult `bson:"delta,omitempty" json:"delta,omitempty"`

	// Per-category selection sets: refs chosen by the operator. Always a
	// subset of the corresponding Delta category.
	SelectedNew         []int64 `bson:"selected_new" json:"selected_new"`
	SelectedUpdated     []int64 `bson:"selected_updated" json:"selected_updated"`
	SelectedRemoved     []int64 `bson:"selected_removed" json:"selected_removed"`
	SelectedTransferred []int64 `bson:"selected_transferred" json:"selected_transferred"`

	// Removal dispositions keyed by stringified ref (Mongo map keys must
	// be strings).
	Decisions map[string]RemovalDecision `bson:"decisions,omitempty" json:"decisions,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
