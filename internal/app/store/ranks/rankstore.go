// internal/app/store/ranks/rankstore.go
package rankstore

import (
	"context"
	"errors"
	"time"

	"github.com/baymark/rollcall/internal/app/system/normalize"
	"github.com/baymark/rollcall/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateRank = errors.New("a rank with this name already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("ranks")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name_ci", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *Store) Create(ctx context.Context, rank models.Rank) (models.Rank, error) {
	now := time.Now().UTC()
	rank.ID = primitive.NewObjectID()
	rank.NameCI = normalize.Fold(rank.Name)
	rank.CreatedAt = now
	rank.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, rank)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Rank{}, ErrDuplicateRank
		}
		return models.Rank{}, err
	}
	return rank, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Rank, error) {
	var rank models.Rank
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&rank)
	if err != nil {
		return models.Rank{}, err
	}
	return rank, nil
}

// List returns the rank catalog ordered by seniority.
func (s *Store) List(ctx context.Context) ([]models.Rank, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ranks []models.Rank
	if err := cur.All(ctx, &ranks); err != nil {
		return nil, err
	}
	return ranks, nil
}
