// internal/app/system/delta/delta.go

// Package delta diffs an imported roster against the persisted active
// membership. It is pure: classification reads its inputs and returns a
// result, leaving persistence to the commit engine.
package delta

import (
	"errors"
	"fmt"
	"time"

	"github.com/baymark/rollcall/internal/app/system/normalize"
	"github.com/baymark/rollcall/internal/domain/models"
)

// Guard defaults. A run that would remove nearly everyone in a sizable
// region is far more likely a corrupted identifier column than a real
// exodus.
const (
	DefaultRemovalRateLimit = 0.95
	DefaultMinGuardedSize   = 10
)

// ErrNoUsableRows is returned when every imported row lacked a valid
// positive member reference.
var ErrNoUsableRows = errors.New("no usable roster rows")

// MassRemovalError aborts a classification whose removal rate tripped
// the safety guard. Nothing is persisted.
type MassRemovalError struct {
	Removals       int
	ActiveInRegion int
}

func (e *MassRemovalError) Error() string {
	return fmt.Sprintf("mass removal guard: %d of %d active members in the detected region would be removed",
		e.Removals, e.ActiveInRegion)
}

// Options tunes the safety guard. Zero values fall back to defaults.
type Options struct {
	RemovalRateLimit float64
	MinGuardedSize   int
}

func (o Options) rateLimit() float64 {
	if o.RemovalRateLimit > 0 {
		return o.RemovalRateLimit
	}
	return DefaultRemovalRateLimit
}

func (o Options) minGuarded() int {
	if o.MinGuardedSize > 0 {
		return o.MinGuardedSize
	}
	return DefaultMinGuardedSize
}

// Classify diffs the imported rows against the full active member set.
// The active set must not be pre-filtered to one region: cross-region
// transfer detection needs every active placement.
func Classify(rows []models.RosterRow, active []models.Member, opts Options) (*models.DeltaResult, error) {
	res := &models.DeltaResult{}
	res.Stats.RowsTotal = len(rows)

	// A reference appears at most once per run; the last occurrence of
	// a duplicated reference wins, matching commit semantics.
	usable := make(map[int64]models.RosterRow)
	var order []int64
	for _, row := range rows {
		if row.Ref <= 0 {
			res.Stats.RowsBadRef++
			continue
		}
		if _, seen := usable[row.Ref]; !seen {
			order = append(order, row.Ref)
		}
		usable[row.Ref] = row
	}
	if len(usable) == 0 {
		return nil, ErrNoUsableRows
	}

	res.DetectedRegion = detectRegion(usable, order)

	activeByRef := make(map[int64][]models.Member, len(active))
	for _, m := range active {
		activeByRef[m.Ref] = append(activeByRef[m.Ref], m)
	}

	for _, ref := range order {
		row := usable[ref]
		placements, ok := activeByRef[ref]
		if !ok {
			res.New = append(res.New, row)
			continue
		}
		before := pickPlacement(placements, res.DetectedRegion)
		changed := changedFields(before, row)
		if len(changed) == 0 {
			res.UnchangedCount++
			continue
		}
		res.Updated = append(res.Updated, models.MemberChange{
			Before:        before,
			After:         row,
			ChangedFields: changed,
		})
	}

	// Active members of the detected region missing from the import
	// are either transfers (same reference active elsewhere) or
	// removal candidates.
	for _, m := range active {
		if normalize.Region(m.RegionLabel) != res.DetectedRegion {
			continue
		}
		res.Stats.ActiveInRegion++
		if _, imported := usable[m.Ref]; imported {
			continue
		}
		if dest, ok := findTransfer(m, activeByRef[m.Ref]); ok {
			res.Transferred = append(res.Transferred, models.MemberTransfer{
				Member:            m,
				DestRegionLabel:   dest.RegionLabel,
				DestDivisionLabel: dest.DivisionLabel,
			})
			continue
		}
		res.Removed = append(res.Removed, m)
	}

	if res.Stats.ActiveInRegion > opts.minGuarded() {
		rate := float64(len(res.Removed)) / float64(res.Stats.ActiveInRegion)
		if rate >= opts.rateLimit() {
			return nil, &MassRemovalError{
				Removals:       len(res.Removed),
				ActiveInRegion: res.Stats.ActiveInRegion,
			}
		}
	}

	return res, nil
}

// detectRegion majority-votes the folded region labels of the usable
// rows. Ties break toward the label seen first.
func detectRegion(usable map[int64]models.RosterRow, order []int64) string {
	counts := make(map[string]int)
	var winner string
	best := 0
	for _, ref := range order {
		key := normalize.Region(usable[ref].RegionLabel)
		if key == "" {
			continue
		}
		counts[key]++
		if counts[key] > best {
			best = counts[key]
			winner = key
		}
	}
	return winner
}

// pickPlacement chooses which active placement to diff against when a
// reference somehow holds more than one. The detected region's
// placement wins; otherwise the first.
func pickPlacement(placements []models.Member, detectedRegion string) models.Member {
	for _, m := range placements {
		if normalize.Region(m.RegionLabel) == detectedRegion {
			return m
		}
	}
	return placements[0]
}

// findTransfer looks for the same reference active under a different
// division or region; that placement is the transfer destination.
func findTransfer(m models.Member, placements []models.Member) (models.Member, bool) {
	for _, other := range placements {
		if !other.Active {
			continue
		}
		sameDivision := normalize.Division(other.DivisionLabel) == normalize.Division(m.DivisionLabel)
		sameRegion := normalize.Region(other.RegionLabel) == normalize.Region(m.RegionLabel)
		if !sameDivision || !sameRegion {
			return other, true
		}
	}
	return models.Member{}, false
}

// changedFields lists the comparable fields where the imported row
// differs from the stored member. Labels compare folded; names compare
// trimmed but case-sensitive so legitimate renames are caught.
func changedFields(before models.Member, after models.RosterRow) []string {
	var changed []string

	if normalize.Name(after.FullName) != normalize.Name(before.FullName) {
		changed = append(changed, models.FieldFullName)
	}
	if normalize.Fold(after.CommandLabel) != normalize.Fold(before.CommandLabel) {
		changed = append(changed, models.FieldCommandLabel)
	}
	if normalize.Region(after.RegionLabel) != normalize.Region(before.RegionLabel) {
		changed = append(changed, models.FieldRegionLabel)
	}
	if normalize.Division(after.DivisionLabel) != normalize.Division(before.DivisionLabel) {
		changed = append(changed, models.FieldDivisionLabel)
	}
	if normalize.Fold(after.RankLabel) != normalize.Fold(before.RankLabel) {
		changed = append(changed, models.FieldRankLabel)
	}
	if normalize.Fold(after.TraineeLabel) != normalize.Fold(before.TraineeLabel) {
		changed = append(changed, models.FieldTraineeLabel)
	}
	if after.Uniformed != before.Uniformed {
		changed = append(changed, models.FieldUniformed)
	}
	if after.RadioEquipped != before.RadioEquipped {
		changed = append(changed, models.FieldRadioEquipped)
	}
	if after.FirstAider != before.FirstAider {
		changed = append(changed, models.FieldFirstAider)
	}
	if after.Instructor != before.Instructor {
		changed = append(changed, models.FieldInstructor)
	}
	if !sameDay(after.JoinedOn, before.JoinedOn) {
		changed = append(changed, models.FieldJoinedOn)
	}

	return changed
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
