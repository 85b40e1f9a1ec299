package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/baymark/rollcall/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateRegion creates a test region with the given name.
func (f *Fixtures) CreateRegion(ctx context.Context, name string) models.Region {
	f.t.Helper()

	now := time.Now().UTC()
	region := models.Region{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("regions").InsertOne(ctx, region); err != nil {
		f.t.Fatalf("failed to create test region: %v", err)
	}
	return region
}

// CreateDivision creates a test division under the given region.
func (f *Fixtures) CreateDivision(ctx context.Context, name string, regionID *primitive.ObjectID) models.Division {
	f.t.Helper()

	now := time.Now().UTC()
	div := models.Division{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		RegionID:  regionID,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("divisions").InsertOne(ctx, div); err != nil {
		f.t.Fatalf("failed to create test division: %v", err)
	}
	return div
}

// CreateRank creates a test rank with the given name and order.
func (f *Fixtures) CreateRank(ctx context.Context, name string, order int) models.Rank {
	f.t.Helper()

	now := time.Now().UTC()
	rank := models.Rank{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("ranks").InsertOne(ctx, rank); err != nil {
		f.t.Fatalf("failed to create test rank: %v", err)
	}
	return rank
}

// CreateMember creates an active test member with the given reference
// and placement labels.
func (f *Fixtures) CreateMember(ctx context.Context, ref int64, name, region, division, rank string) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Member{
		ID:            primitive.NewObjectID(),
		Ref:           ref,
		FullName:      name,
		FullNameCI:    text.Fold(name),
		RegionLabel:   region,
		DivisionLabel: division,
		RankLabel:     rank,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test member: %v", err)
	}
	return m
}

// CreateLinkedUser creates a test account linked to the given member
// reference.
func (f *Fixtures) CreateLinkedUser(ctx context.Context, fullName, email string, memberRef int64, roles []string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		FullName:  fullName,
		Email:     email,
		MemberRef: &memberRef,
		Roles:     roles,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}

	if _, err := f.db.Collection("members").UpdateOne(ctx,
		bson.M{"ref": memberRef},
		bson.M{"$set": bson.M{"linked": true}},
	); err != nil {
		f.t.Fatalf("failed to mark member linked: %v", err)
	}
	return user
}

// CreatePendingDelta inserts a pending anomaly entry directly.
func (f *Fixtures) CreatePendingDelta(ctx context.Context, ref int64, kind string, createdAt time.Time) models.PendingDelta {
	f.t.Helper()

	pd := models.PendingDelta{
		ID:        primitive.NewObjectID(),
		Ref:       ref,
		Kind:      kind,
		Priority:  2,
		Status:    models.DeltaPending,
		CreatedAt: createdAt,
	}
	if _, err := f.db.Collection("pending_deltas").InsertOne(ctx, pd); err != nil {
		f.t.Fatalf("failed to create test pending delta: %v", err)
	}
	return pd
}
