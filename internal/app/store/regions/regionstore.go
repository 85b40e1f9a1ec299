// internal/app/store/regions/regionstore.go
package regionstore

import (
	"context"
	"errors"
	"time"

	"github.com/baymark/rollcall/internal/app/system/normalize"
	"github.com/baymark/rollcall/internal/app/system/status"
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

var ErrDuplicateRegion = errors.New("a region with this name already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("regions")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name_ci", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *Store) Create(ctx context.Context, region models.Region) (models.Region, error) {
	now := time.Now().UTC()
	region.ID = primitive.NewObjectID()
	region.NameCI = normalize.Region(region.Name)
	if region.Status == "" {
		region.Status = status.Active
	}
	region.CreatedAt = now
	region.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, region)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Region{}, ErrDuplicateRegion
		}
		return models.Region{}, err
	}
	return region, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Region, error) {
	var region models.Region
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&region)
	if err != nil {
		return models.Region{}, err
	}
	return region, nil
}

func (s *Store) ListActive(ctx context.Context) ([]models.Region, error) {
	cur, err := s.c.Find(ctx, bson.M{"status": status.Active})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var regions []models.Region
	if err := cur.All(ctx, &regions); err != nil {
		return nil, err
	}
	return regions, nil
}
