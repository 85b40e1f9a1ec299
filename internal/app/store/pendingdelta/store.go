// internal/app/store/pendingdelta/store.go
package pendingdelta

import (
	"context"
	"time"

	"github.com/baymark/rollcall/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages the anomaly queue the commit engine feeds.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("pending_deltas")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "ref", Value: 1}, {Key: "kind", Value: 1}, {Key: "status", Value: 1}}},
	})
	return err
}

// Add inserts anomaly rows raised by one commit.
func (s *Store) Add(ctx context.Context, deltas []models.PendingDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(deltas))
	for i, d := range deltas {
		d.ID = primitive.NewObjectID()
		if d.Status == "" {
			d.Status = models.DeltaPending
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		docs[i] = d
	}
	_, err := s.c.InsertMany(ctx, docs)
	return err
}

// FindRecentPending returns a pending entry of the given kind for the
// ref, created at or after the cutoff. Used by the commit engine to
// auto-resolve a member who vanished and promptly returned.
func (s *Store) FindRecentPending(ctx context.Context, ref int64, kind string, since time.Time) (models.PendingDelta, error) {
	var d models.PendingDelta
	err := s.c.FindOne(ctx, bson.M{
		"ref":        ref,
		"kind":       kind,
		"status":     models.DeltaPending,
		"created_at": bson.M{"$gte": since},
	}).Decode(&d)
	if err != nil {
		return models.PendingDelta{}, err
	}
	return d, nil
}

// Resolve marks one entry resolved, recording who (an operator name or
// "auto") and when.
func (s *Store) Resolve(ctx context.Context, id primitive.ObjectID, resolvedBy string) error {
	now := time.Now().UTC()
	_, err := s.c.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"status":      models.DeltaResolved,
			"resolved_by": resolvedBy,
			"resolved_at": now,
		},
	})
	return err
}

// ListPending returns open anomalies, newest first.
func (s *Store) ListPending(ctx context.Context, limit int64) ([]models.PendingDelta, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"status": models.DeltaPending}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var deltas []models.PendingDelta
	if err := cur.All(ctx, &deltas); err != nil {
		return nil, err
	}
	return deltas, nil
}
