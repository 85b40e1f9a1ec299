// internal/app/store/members/memberstore.go
package memberstore

// Terminology: Member Identifiers
//   - ID / _id: the MongoDB ObjectID of the roster row
//   - Ref / ref: the external member identifier carried by every roster
//     export; the unique key imports reconcile against

import (
	"context"
	"time"

	"github.com/baymark/rollcall/internal/app/system/normalize"
	"github.com/baymark/rollcall/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("members")}
}

// EnsureIndexes creates the unique ref index that makes the import
// upsert idempotent, plus the region/active index the classifier's
// candidate query uses.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ref", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "active", Value: 1},
				{Key: "region_label", Value: 1},
			},
		},
	})
	return err
}

// GetByRef loads one member by external identifier.
func (s *Store) GetByRef(ctx context.Context, ref int64) (models.Member, error) {
	var m models.Member
	err := s.c.FindOne(ctx, bson.M{"ref": ref}).Decode(&m)
	if err != nil {
		return models.Member{}, err
	}
	return m, nil
}

// ListActive returns every active member, all regions. The classifier
// needs the unfiltered set to tell transfers from departures.
func (s *Store) ListActive(ctx context.Context) ([]models.Member, error) {
	cur, err := s.c.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var members []models.Member
	if err := cur.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// Inactivate flips a member to inactive with the operator-assigned
// reason. This is the only write path that clears Active.
func (s *Store) Inactivate(ctx context.Context, ref int64, reason, note string) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx, bson.M{"ref": ref}, bson.M{
		"$set": bson.M{
			"active":          false,
			"inactive_reason": reason,
			"inactive_note":   note,
			"inactivated_at":  now,
			"updated_at":      now,
		},
	})
	return err
}

// Promote moves a member to a new rank and region. The member stays
// active; the stale division pointer is cleared until the next import
// of the destination region places them.
func (s *Store) Promote(ctx context.Context, ref int64, rankLabel string, regionID primitive.ObjectID) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx, bson.M{"ref": ref}, bson.M{
		"$set": bson.M{
			"rank_label": rankLabel,
			"region_id":  regionID,
			"updated_at": now,
		},
		"$unset": bson.M{"division_id": ""},
	})
	return err
}

// Transfer repoints a member at a new division/region. Active is
// untouched.
func (s *Store) Transfer(ctx context.Context, ref int64, divisionID, regionID *primitive.ObjectID, divisionLabel, regionLabel string) error {
	now := time.Now().UTC()
	set := bson.M{
		"division_label": divisionLabel,
		"region_label":   regionLabel,
		"updated_at":     now,
	}
	unset := bson.M{}
	if divisionID != nil {
		set["division_id"] = *divisionID
	} else {
		unset["division_id"] = ""
	}
	if regionID != nil {
		set["region_id"] = *regionID
	} else {
		unset["region_id"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"ref": ref}, update)
	return err
}

// ApplyChange replaces a member's comparable fields with the imported
// row, carrying the freshly resolved hierarchy pointers.
func (s *Store) ApplyChange(ctx context.Context, ref int64, after models.RosterRow, divisionID, regionID *primitive.ObjectID) error {
	now := time.Now().UTC()
	set := bson.M{
		"full_name":      after.FullName,
		"full_name_ci":   normalize.Fold(after.FullName),
		"command_label":  after.CommandLabel,
		"region_label":   after.RegionLabel,
		"division_label": after.DivisionLabel,
		"rank_label":     after.RankLabel,
		"trainee_label":  after.TraineeLabel,
		"uniformed":      after.Uniformed,
		"radio_equipped": after.RadioEquipped,
		"first_aider":    after.FirstAider,
		"instructor":     after.Instructor,
		"updated_at":     now,
	}
	if after.JoinedOn != nil {
		set["joined_on"] = *after.JoinedOn
	}
	if divisionID != nil {
		set["division_id"] = *divisionID
	}
	if regionID != nil {
		set["region_id"] = *regionID
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"ref": ref}, bson.M{"$set": set})
	return err
}

// ActiveCountsByDivision aggregates the active roster per division
// label for the history snapshot: total, linked, unlinked.
func (s *Store) ActiveCountsByDivision(ctx context.Context) ([]models.DivisionCount, int, error) {
	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"active": true}},
		{"$group": bson.M{
			"_id":         "$division_label",
			"division_id": bson.M{"$first": "$division_id"},
			"total":       bson.M{"$sum": 1},
			"linked":      bson.M{"$sum": bson.M{"$cond": []interface{}{"$linked", 1, 0}}},
		}},
		{"$sort": bson.M{"_id": 1}},
	})
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var counts []models.DivisionCount
	total := 0
	for cur.Next(ctx) {
		var row struct {
			Label      string              `bson:"_id"`
			DivisionID *primitive.ObjectID `bson:"division_id"`
			Total      int                 `bson:"total"`
			Linked     int                 `bson:"linked"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, 0, err
		}
		counts = append(counts, models.DivisionCount{
			DivisionID: row.DivisionID,
			Name:       row.Label,
			Total:      row.Total,
			Linked:     row.Linked,
			Unlinked:   row.Total - row.Linked,
		})
		total += row.Total
	}
	if err := cur.Err(); err != nil {
		return nil, 0, err
	}
	return counts, total, nil
}
