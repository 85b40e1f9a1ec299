package memberstore_test

import (
	"testing"
	"time"

	memberstore "github.com/baymark/rollcall/internal/app/store/members"
	"github.com/baymark/rollcall/internal/domain/models"
	"github.com/baymark/rollcall/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func rosterRow(ref int64, name, region, division, rank string) models.RosterRow {
	return models.RosterRow{
		Ref:           ref,
		FullName:      name,
		RegionLabel:   region,
		DivisionLabel: division,
		RankLabel:     rank,
	}
}

func TestUpsertBatch_InsertsAndUpdates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx := testutil.TestContext(t)

	fx := testutil.NewFixtures(t, db)
	fx.CreateMember(ctx, 100, "Existing Member", "Region One", "Division Harbor", "Sergeant")

	res, err := store.UpsertBatch(ctx, []memberstore.Entry{
		{Row: rosterRow(100, "Existing Member", "Region One", "Division Harbor", "Lieutenant")},
		{Row: rosterRow(200, "Brand New", "Region One", "Division Harbor", "Private")},
	})
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}
	if res.Inserted != 1 {
		t.Errorf("expected 1 inserted, got %d", res.Inserted)
	}
	if res.Updated != 1 {
		t.Errorf("expected 1 updated, got %d", res.Updated)
	}

	existing, err := store.GetByRef(ctx, 100)
	if err != nil {
		t.Fatalf("GetByRef(100) failed: %v", err)
	}
	if existing.RankLabel != "Lieutenant" {
		t.Errorf("expected rank updated to Lieutenant, got %q", existing.RankLabel)
	}

	fresh, err := store.GetByRef(ctx, 200)
	if err != nil {
		t.Fatalf("GetByRef(200) failed: %v", err)
	}
	if !fresh.Active {
		t.Error("expected new member to be active")
	}
	if fresh.FullNameCI == "" {
		t.Error("expected FullNameCI to be set")
	}
	if fresh.Linked {
		t.Error("expected new member to be unlinked")
	}
}

func TestUpsertBatch_ReactivatesInactive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx := testutil.TestContext(t)

	fx := testutil.NewFixtures(t, db)
	fx.CreateMember(ctx, 300, "Left And Back", "Region One", "Division Harbor", "Private")
	if err := store.Inactivate(ctx, 300, models.ReasonResigned, ""); err != nil {
		t.Fatalf("Inactivate failed: %v", err)
	}

	_, err := store.UpsertBatch(ctx, []memberstore.Entry{
		{Row: rosterRow(300, "Left And Back", "Region One", "Division Harbor", "Private")},
	})
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	m, err := store.GetByRef(ctx, 300)
	if err != nil {
		t.Fatalf("GetByRef failed: %v", err)
	}
	if !m.Active {
		t.Error("expected member to be active again after reimport")
	}
}

func TestInactivate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx := testutil.TestContext(t)

	fx := testutil.NewFixtures(t, db)
	fx.CreateMember(ctx, 400, "Departing Member", "Region One", "Division Harbor", "Private")

	if err := store.Inactivate(ctx, 400, models.ReasonDeceased, "passed in June"); err != nil {
		t.Fatalf("Inactivate failed: %v", err)
	}

	m, err := store.GetByRef(ctx, 400)
	if err != nil {
		t.Fatalf("GetByRef failed: %v", err)
	}
	if m.Active {
		t.Error("expected member to be inactive")
	}
	if m.InactiveReason != models.ReasonDeceased {
		t.Errorf("expected reason %q, got %q", models.ReasonDeceased, m.InactiveReason)
	}
	if m.InactiveNote != "passed in June" {
		t.Errorf("unexpected note %q", m.InactiveNote)
	}
	if m.InactivatedAt == nil {
		t.Error("expected InactivatedAt to be set")
	}
}

func TestPromote_ClearsDivision(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx := testutil.TestContext(t)

	fx := testutil.NewFixtures(t, db)
	region := fx.CreateRegion(ctx, "Region Two")
	division := fx.CreateDivision(ctx, "Division Harbor", nil)
	m := fx.CreateMember(ctx, 500, "Rising Star", "Region One", "Division Harbor", "Captain")
	_, err := db.Collection("members").UpdateByID(ctx, m.ID,
		bson.M{"$set": bson.M{"division_id": division.ID}})
	if err != nil {
		t.Fatalf("seeding division_id failed: %v", err)
	}

	if err := store.Promote(ctx, 500, "Major", region.ID); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}

	got, err := store.GetByRef(ctx, 500)
	if err != nil {
		t.Fatalf("GetByRef failed: %v", err)
	}
	if !got.Active {
		t.Error("expected promoted member to stay active")
	}
	if got.RankLabel != "Major" {
		t.Errorf("expected rank Major, got %q", got.RankLabel)
	}
	if got.RegionID == nil || *got.RegionID != region.ID {
		t.Error("expected region to be repointed")
	}
	if got.DivisionID != nil {
		t.Error("expected division pointer to be cleared")
	}
}

func TestTransfer_NilIDsUnsetPointers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx := testutil.TestContext(t)

	fx := testutil.NewFixtures(t, db)
	region := fx.CreateRegion(ctx, "Region Two")
	division := fx.CreateDivision(ctx, "Division Valley", nil)
	fx.CreateMember(ctx, 600, "Moving Member", "Region One", "Division Harbor", "Private")

	if err := store.Transfer(ctx, 600, &division.ID, &region.ID, "Division Valley", "Region Two"); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	got, err := store.GetByRef(ctx, 600)
	if err != nil {
		t.Fatalf("GetByRef failed: %v", err)
	}
	if got.DivisionLabel != "Division Valley" || got.RegionLabel != "Region Two" {
		t.Errorf("labels not updated: %q / %q", got.DivisionLabel, got.RegionLabel)
	}
	if got.DivisionID == nil || got.RegionID == nil {
		t.Fatal("expected hierarchy pointers to be set")
	}
	if !got.Active {
		t.Error("expected transferred member to stay active")
	}

	// Unresolvable destination clears the stale pointers.
	if err := store.Transfer(ctx, 600, nil, nil, "Division Unknown", "Region Unknown"); err != nil {
		t.Fatalf("second Transfer failed: %v", err)
	}
	got, err = store.GetByRef(ctx, 600)
	if err != nil {
		t.Fatalf("GetByRef failed: %v", err)
	}
	if got.DivisionID != nil || got.RegionID != nil {
		t.Error("expected hierarchy pointers to be unset")
	}
}

func TestApplyChange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx := testutil.TestContext(t)

	fx := testutil.NewFixtures(t, db)
	fx.CreateMember(ctx, 700, "Old Name", "Region One", "Division Harbor", "Private")

	joined := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	after := models.RosterRow{
		Ref:           700,
		FullName:      "New Name",
		RegionLabel:   "Region One",
		DivisionLabel: "Division Harbor",
		RankLabel:     "Corporal",
		Uniformed:     true,
		JoinedOn:      &joined,
	}
	regionID := primitive.NewObjectID()
	if err := store.ApplyChange(ctx, 700, after, nil, &regionID); err != nil {
		t.Fatalf("ApplyChange failed: %v", err)
	}

	got, err := store.GetByRef(ctx, 700)
	if err != nil {
		t.Fatalf("GetByRef failed: %v", err)
	}
	if got.FullName != "New Name" {
		t.Errorf("expected name replaced, got %q", got.FullName)
	}
	if got.FullNameCI != "new name" {
		t.Errorf("expected folded name to track, got %q", got.FullNameCI)
	}
	if got.RankLabel != "Corporal" || !got.Uniformed {
		t.Error("expected rank and flags replaced")
	}
	if got.JoinedOn == nil || !got.JoinedOn.Equal(joined) {
		t.Error("expected joined date to be set")
	}
	if got.RegionID == nil || *got.RegionID != regionID {
		t.Error("expected region pointer to be set")
	}
}

func TestListActive_ExcludesInactive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx := testutil.TestContext(t)

	fx := testutil.NewFixtures(t, db)
	fx.CreateMember(ctx, 801, "Active One", "Region One", "Division Harbor", "Private")
	fx.CreateMember(ctx, 802, "Active Two", "Region Two", "Division Valley", "Private")
	fx.CreateMember(ctx, 803, "Gone Member", "Region One", "Division Harbor", "Private")
	if err := store.Inactivate(ctx, 803, models.ReasonResigned, ""); err != nil {
		t.Fatalf("Inactivate failed: %v", err)
	}

	members, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 active members, got %d", len(members))
	}
	for _, m := range members {
		if m.Ref == 803 {
			t.Error("inactive member returned by ListActive")
		}
	}
}

func TestActiveCountsByDivision(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := memberstore.New(db)
	ctx := testutil.TestContext(t)

	fx := testutil.NewFixtures(t, db)
	fx.CreateMember(ctx, 901, "Harbor One", "Region One", "Division Harbor", "Private")
	fx.CreateMember(ctx, 902, "Harbor Two", "Region One", "Division Harbor", "Private")
	fx.CreateMember(ctx, 903, "Valley One", "Region One", "Division Valley", "Private")
	fx.CreateLinkedUser(ctx, "Harbor One", "one@test.com", 901, nil)
	fx.CreateMember(ctx, 904, "Gone", "Region One", "Division Harbor", "Private")
	if err := store.Inactivate(ctx, 904, models.ReasonResigned, ""); err != nil {
		t.Fatalf("Inactivate failed: %v", err)
	}

	counts, total, err := store.ActiveCountsByDivision(ctx)
	if err != nil {
		t.Fatalf("ActiveCountsByDivision failed: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 divisions, got %d", len(counts))
	}

	byName := map[string]models.DivisionCount{}
	for _, c := range counts {
		byName[c.Name] = c
	}
	harbor := byName["Division Harbor"]
	if harbor.Total != 2 || harbor.Linked != 1 || harbor.Unlinked != 1 {
		t.Errorf("harbor counts wrong: %+v", harbor)
	}
	valley := byName["Division Valley"]
	if valley.Total != 1 || valley.Linked != 0 {
		t.Errorf("valley counts wrong: %+v", valley)
	}
}
