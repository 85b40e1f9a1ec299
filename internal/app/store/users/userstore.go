// internal/app/store/users/userstore.go
package userstore

// Linked accounts are owned by the external portal; this store only
// reads them and applies the two writes the commit engine is allowed:
// propagating a region change and replacing derived roles.

import (
	"context"
	"time"

	"github.com/baymark/rollcall/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "member_ref", Value: 1}},
	})
	return err
}

// GetByMemberRef loads the account linked to a roster member, if any.
// Returns mongo.ErrNoDocuments when the member has no account.
func (s *Store) GetByMemberRef(ctx context.Context, ref int64) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"member_ref": ref}).Decode(&u)
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// SetRegion repoints the linked account at a new region.
func (s *Store) SetRegion(ctx context.Context, id primitive.ObjectID, regionID primitive.ObjectID) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"region_id":  regionID,
			"updated_at": time.Now().UTC(),
		},
	})
	return err
}

// ReplaceDerivedRoles swaps the account's non-administrative roles for
// the given one. The administrative role, if held, is preserved
// untouched. An empty derived role removes nothing: accounts keep
// their current roles when no new role was derived.
func (s *Store) ReplaceDerivedRoles(ctx context.Context, id primitive.ObjectID, derived string) error {
	if derived == "" {
		return nil
	}

	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return err
	}

	roles := []string{}
	if u.HasAdmin() {
		roles = append(roles, models.RoleAdmin)
	}
	roles = append(roles, derived)

	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"roles":      roles,
			"updated_at": time.Now().UTC(),
		},
	})
	return err
}
