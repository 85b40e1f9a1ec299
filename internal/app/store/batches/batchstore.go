// internal/app/store/batches/batchstore.go
package batchstore

import (
	"context"
	"time"

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
	return &Store{c: db.Collection("import_batches")}
}

// EnsureIndexes creates the unique batch UUID index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "batch_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *Store) Create(ctx context.Context, b models.ImportBatch) (models.ImportBatch, error) {
	now := time.Now().UTC()
	b.ID = primitive.NewObjectID()
	b.CreatedAt = now
	b.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, b)
	if err != nil {
		return models.ImportBatch{}, err
	}
	return b, nil
}

func (s *Store) GetByBatchID(ctx context.Context, batchID string) (models.ImportBatch, error) {
	var b models.ImportBatch
	err := s.c.FindOne(ctx, bson.M{"batch_id": batchID}).Decode(&b)
	if err != nil {
		return models.ImportBatch{}, err
	}
	return b, nil
}

// Replace stores the whole batch back. Batches are single-operator;
// last write wins is acceptable here.
func (s *Store) Replace(ctx context.Context, b models.ImportBatch) error {
	b.UpdatedAt = time.Now().UTC()
	_, err := s.c.ReplaceOne(ctx, bson.M{"batch_id": b.BatchID}, b)
	return err
}

// Delete discards a batch ("new import" reset).
func (s *Store) Delete(ctx context.Context, batchID string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"batch_id": batchID})
	return err
}

// ListRecent returns the newest batches for the operator overview.
func (s *Store) ListRecent(ctx context.Context, limit int64) ([]models.ImportBatch, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var batches []models.ImportBatch
	if err := cur.All(ctx, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}
