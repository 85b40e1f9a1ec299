// internal/app/store/members/upsert.go
package memberstore

import (
	"context"
	"errors"
	"time"

	"github.com/baymark/rollcall/internal/app/system/normalize"
	"github.com/baymark/rollcall/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Entry is one roster row ready to be written, with the hierarchy
// pointers the commit engine resolved for it. Validation and
// deduplication happen before entries reach the store.
type Entry struct {
	Row        models.RosterRow
	DivisionID *primitive.ObjectID
	RegionID   *primitive.ObjectID
}

// UpsertBatchResult holds counts from a batch upsert.
type UpsertBatchResult struct {
	Inserted int
	Updated  int
}

// UpsertBatch creates or updates members keyed by ref.
//
// For each entry:
//   - ref not found: inserts a new active member
//   - ref found: replaces the comparable fields
//
// Races against a concurrent insert of the same ref fall back to an
// update; the unique ref index guarantees no duplicate rows either way.
func (s *Store) UpsertBatch(ctx context.Context, entries []Entry) (UpsertBatchResult, error) {
	var result UpsertBatchResult
	if len(entries) == 0 {
		return result, nil
	}

	refs := make([]int64, 0, len(entries))
	byRef := make(map[int64]Entry, len(entries))
	for _, e := range entries {
		refs = append(refs, e.Row.Ref)
		byRef[e.Row.Ref] = e
	}

	// Batch fetch the refs that already exist.
	cur, err := s.c.Find(ctx, bson.M{"ref": bson.M{"$in": refs}},
		options.Find().SetProjection(bson.M{"ref": 1}))
	if err != nil {
		return result, err
	}
	defer cur.Close(ctx)

	existing := make(map[int64]struct{}, len(refs))
	for cur.Next(ctx) {
		var row struct {
			Ref int64 `bson:"ref"`
		}
		if err := cur.Decode(&row); err != nil {
			return result, err
		}
		existing[row.Ref] = struct{}{}
	}
	if err := cur.Err(); err != nil {
		return result, err
	}

	now := time.Now().UTC()

	var toInsert []interface{}
	var insertRefs []int64
	var toUpdate []Entry
	for _, ref := range refs {
		e := byRef[ref]
		if _, found := existing[ref]; found {
			toUpdate = append(toUpdate, e)
			continue
		}
		toInsert = append(toInsert, newMemberDoc(e, now))
		insertRefs = append(insertRefs, ref)
	}

	if len(toInsert) > 0 {
		opts := options.InsertMany().SetOrdered(false)
		_, err := s.c.InsertMany(ctx, toInsert, opts)
		if err != nil {
			var bulkErr mongo.BulkWriteException
			if !errors.As(err, &bulkErr) {
				return result, err
			}
			// Duplicate key means a concurrent writer got there first;
			// retry those as updates. Anything else is fatal.
			for _, we := range bulkErr.WriteErrors {
				if we.Code != 11000 {
					return result, err
				}
				if we.Index >= 0 && we.Index < len(insertRefs) {
					toUpdate = append(toUpdate, byRef[insertRefs[we.Index]])
				}
			}
			result.Inserted = len(toInsert) - len(bulkErr.WriteErrors)
		} else {
			result.Inserted = len(toInsert)
		}
	}

	if len(toUpdate) > 0 {
		writes := make([]mongo.WriteModel, 0, len(toUpdate))
		for _, e := range toUpdate {
			writes = append(writes, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"ref": e.Row.Ref}).
				SetUpdate(bson.M{"$set": changeSet(e, now)}))
		}
		opts := options.BulkWrite().SetOrdered(false)
		res, err := s.c.BulkWrite(ctx, writes, opts)
		if err != nil {
			return result, err
		}
		result.Updated = int(res.ModifiedCount + res.UpsertedCount)
	}

	return result, nil
}

// newMemberDoc builds a fresh active member from an import entry.
func newMemberDoc(e Entry, now time.Time) models.Member {
	return models.Member{
		Ref:           e.Row.Ref,
		FullName:      e.Row.FullName,
		FullNameCI:    normalize.Fold(e.Row.FullName),
		CommandLabel:  e.Row.CommandLabel,
		RegionLabel:   e.Row.RegionLabel,
		DivisionLabel: e.Row.DivisionLabel,
		RankLabel:     e.Row.RankLabel,
		TraineeLabel:  e.Row.TraineeLabel,
		Uniformed:     e.Row.Uniformed,
		RadioEquipped: e.Row.RadioEquipped,
		FirstAider:    e.Row.FirstAider,
		Instructor:    e.Row.Instructor,
		JoinedOn:      e.Row.JoinedOn,
		DivisionID:    e.DivisionID,
		RegionID:      e.RegionID,
		Active:        true,
		Linked:        false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// changeSet builds the $set document for an update-path entry.
func changeSet(e Entry, now time.Time) bson.M {
	set := bson.M{
		"full_name":      e.Row.FullName,
		"full_name_ci":   normalize.Fold(e.Row.FullName),
		"command_label":  e.Row.CommandLabel,
		"region_label":   e.Row.RegionLabel,
		"division_label": e.Row.DivisionLabel,
		"rank_label":     e.Row.RankLabel,
		"trainee_label":  e.Row.TraineeLabel,
		"uniformed":      e.Row.Uniformed,
		"radio_equipped": e.Row.RadioEquipped,
		"first_aider":    e.Row.FirstAider,
		"instructor":     e.Row.Instructor,
		"active":         true,
		"updated_at":     now,
	}
	if e.Row.JoinedOn != nil {
		set["joined_on"] = *e.Row.JoinedOn
	}
	if e.DivisionID != nil {
		set["division_id"] = *e.DivisionID
	}
	if e.RegionID != nil {
		set["region_id"] = *e.RegionID
	}
	return set
}
