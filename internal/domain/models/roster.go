// internal/domain/models/roster.go
package models

import "time"

// RosterRow is one member as it appears in an imported roster, merged
// upstream from the two export files (hierarchy + attributes). Rows are
// transient: they exist only inside a classification run and the batch
// that carries it.
type RosterRow struct {
	Ref int64 `bson:"ref" json:"ref"` // external member identifier; must be > 0 to be usable

	FullName      string `bson:"full_name" json:"full_name"`
	CommandLabel  string `bson:"command_label,omitempty" json:"command_label,omitempty"`
	RegionLabel   string `bson:"region_label,omitempty" json:"region_label,omitempty"`
	DivisionLabel string `bson:"division_label,omitempty" json:"division_label,omitempty"`
	RankLabel     string `bson:"rank_label" json:"rank_label"`
	TraineeLabel  string `bson:"trainee_label,omitempty" json:"trainee_label,omitempty"`

	Uniformed     bool `bson:"uniformed" json:"uniformed"`
	RadioEquipped bool `bson:"radio_equipped" json:"radio_equipped"`
	FirstAider    bool `bson:"first_aider" json:"first_aider"`
	Instructor    bool `bson:"instructor" json:"instructor"`

	JoinedOn *time.Time `bson:"joined_on,omitempty" json:"joined_on,omitempty"`
}

// Comparable field names reported in MemberChange.ChangedFields and
// logged per field in the change log. Kept as data so the classifier,
// the commit engine, and the history store agree on spelling.
const (
	FieldFullName      = "full_name"
	FieldCommandLabel  = "command_label"
	FieldRegionLabel   = "region_label"
	FieldDivisionLabel = "division_label"
	FieldRankLabel     = "rank_label"
	FieldTraineeLabel  = "trainee_label"
	FieldUniformed     = "uniformed"
	FieldRadioEquipped = "radio_equipped"
	FieldFirstAider    = "first_aider"
	FieldInstructor    = "instructor"
	FieldJoinedOn      = "joined_on"
)

// MemberChange pairs the persisted row with its replacement and names
// the fields that differ.
type MemberChange struct {
	Before        Member    `bson:"before" json:"before"`
	After         RosterRow `bson:"after" json:"after"`
	ChangedFields []string  `bson:"changed_fields" json:"changed_fields"`
}

// MemberTransfer marks a member who vanished from the detected region's
// roster but is still active elsewhere. The destination labels are the
// member's current placement; the member is not a removal candidate.
type MemberTransfer struct {
	Member            Member `bson:"member" json:"member"`
	DestRegionLabel   string `bson:"dest_region_label" json:"dest_region_label"`
	DestDivisionLabel string `bson:"dest_division_label" json:"dest_division_label"`
}

// DeltaStats aggregates per-run counters for operator display.
type DeltaStats struct {
	RowsTotal      int `bson:"rows_total" json:"rows_total"`
	RowsBadRef     int `bson:"rows_bad_ref" json:"rows_bad_ref"` // skipped: missing or non-positive ref
	ActiveInRegion int `bson:"active_in_region" json:"active_in_region"`
}

// DeltaResult is the outcome of classifying one imported roster against
// the active member set. It is never persisted on its own; the batch
// that owns it carries it through review.
type DeltaResult struct {
	New            []RosterRow      `bson:"new" json:"new"`
	Updated        []MemberChange   `bson:"updated" json:"updated"`
	Removed        []Member         `bson:"removed" json:"removed"`
	Transferred    []MemberTransfer `bson:"transferred" json:"transferred"`
	UnchangedCount int              `bson:"unchanged_count" json:"unchanged_count"`
	DetectedRegion string           `bson:"detected_region" json:"detected_region"` // folded region label
	Stats          DeltaStats       `bson:"stats" json:"stats"`
}
