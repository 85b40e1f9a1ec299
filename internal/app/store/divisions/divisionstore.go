// internal/app/store/divisions/divisionstore.go
package divisionstore

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

var ErrDuplicateDivision = errors.New("a division with this name already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("divisions")}
}

// EnsureIndexes creates the unique folded-name index the resolver
// depends on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name_ci", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *Store) Create(ctx context.Context, div models.Division) (models.Division, error) {
	now := time.Now().UTC()
	div.ID = primitive.NewObjectID()
	div.NameCI = normalize.Division(div.Name)
	div.AliasCI = normalize.Division(div.Alias)
	if div.Status == "" {
		div.Status = status.Active
	}
	div.CreatedAt = now
	div.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, div)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Division{}, ErrDuplicateDivision
		}
		return models.Division{}, err
	}
	return div, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Division, error) {
	var div models.Division
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&div)
	if err != nil {
		return models.Division{}, err
	}
	return div, nil
}

// ListActive returns the full active division catalog, the working set
// of a hierarchy resolution run.
func (s *Store) ListActive(ctx context.Context) ([]models.Division, error) {
	cur, err := s.c.Find(ctx, bson.M{"status": status.Active})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var divs []models.Division
	if err := cur.All(ctx, &divs); err != nil {
		return nil, err
	}
	return divs, nil
}
