// internal/app/store/history/historystore.go
package historystore

import (
	"context"
	"time"

	"github.com/baymark/rollcall/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages the append-only history: roster snapshots and the
// per-field change log that hangs off them.
type Store struct {
	snapshots *mongo.Collection
	changes   *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		snapshots: db.Collection("roster_snapshots"),
		changes:   db.Collection("field_changes"),
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.snapshots.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "taken_at", Value: -1}},
	})
	if err != nil {
		return err
	}
	_, err = s.changes.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "snapshot_id", Value: 1}}},
		{Keys: bson.D{{Key: "ref", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

// AddSnapshot persists one point-in-time roster aggregate and returns
// it with its assigned ID.
func (s *Store) AddSnapshot(ctx context.Context, snap models.Snapshot) (models.Snapshot, error) {
	snap.ID = primitive.NewObjectID()
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}
	_, err := s.snapshots.InsertOne(ctx, snap)
	if err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}

// AddFieldChanges appends the field-level change rows for one commit.
func (s *Store) AddFieldChanges(ctx context.Context, changes []models.FieldChange) error {
	if len(changes) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, len(changes))
	for i, ch := range changes {
		ch.ID = primitive.NewObjectID()
		if ch.CreatedAt.IsZero() {
			ch.CreatedAt = now
		}
		docs[i] = ch
	}
	_, err := s.changes.InsertMany(ctx, docs)
	return err
}

// LatestSnapshot returns the most recent snapshot, if any.
func (s *Store) LatestSnapshot(ctx context.Context) (models.Snapshot, error) {
	var snap models.Snapshot
	opts := options.FindOne().SetSort(bson.D{{Key: "taken_at", Value: -1}})
	err := s.snapshots.FindOne(ctx, bson.M{}, opts).Decode(&snap)
	if err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}

// ChangesBySnapshot lists the change log rows written with one commit.
func (s *Store) ChangesBySnapshot(ctx context.Context, snapshotID primitive.ObjectID) ([]models.FieldChange, error) {
	cur, err := s.changes.Find(ctx, bson.M{"snapshot_id": snapshotID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var changes []models.FieldChange
	if err := cur.All(ctx, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// ChangesByRef lists a member's change history, newest first.
func (s *Store) ChangesByRef(ctx context.Context, ref int64, limit int64) ([]models.FieldChange, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.changes.Find(ctx, bson.M{"ref": ref}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var changes []models.FieldChange
	if err := cur.All(ctx, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}
