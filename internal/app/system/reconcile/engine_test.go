// internal/app/system/reconcile/engine_test.go
package reconcile

import (
	"errors"
	"testing"
	"time"

	divisionstore "github.com/baymark/rollcall/internal/app/store/divisions"
	historystore "github.com/baymark/rollcall/internal/app/store/history"
	memberstore "github.com/baymark/rollcall/internal/app/store/members"
	"github.com/baymark/rollcall/internal/app/store/pendingdelta"
	rankstore "github.com/baymark/rollcall/internal/app/store/ranks"
	regionstore "github.com/baymark/rollcall/internal/app/store/regions"
	userstore "github.com/baymark/rollcall/internal/app/store/users"
	"github.com/baymark/rollcall/internal/domain/models"
	"github.com/baymark/rollcall/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func removal(ref int64, reason string) Removal {
	return Removal{
		Member:   models.Member{Ref: ref, FullName: "Member", Active: true},
		Decision: models.RemovalDecision{Ref: ref, Reason: reason},
	}
}

func TestPartitionRemovals(t *testing.T) {
	destDiv := primitive.NewObjectID()
	destReg := primitive.NewObjectID()

	transferFound := removal(1, models.ReasonTransferred)
	transferFound.Decision.LookupFound = true
	transferFound.Decision.DestDivisionID = &destDiv
	transferFound.Decision.DestRegionID = &destReg

	transferLost := removal(2, models.ReasonTransferred)

	g := PartitionRemovals([]Removal{
		transferFound,
		transferLost,
		removal(3, models.ReasonDeceased),
		removal(4, models.ReasonResigned),
		removal(5, models.ReasonExpelled),
		removal(6, models.ReasonOther),
		removal(7, models.ReasonPromoted),
		removal(8, models.ReasonLeave),
	})

	if len(g.Transfer) != 1 || g.Transfer[0].Member.Ref != 1 {
		t.Fatalf("transfer group wrong: %+v", g.Transfer)
	}
	if len(g.Inactivate) != 5 {
		t.Fatalf("expected 5 inactivations (incl. unresolved transfer), got %d", len(g.Inactivate))
	}
	if len(g.Promote) != 1 || g.Promote[0].Member.Ref != 7 {
		t.Fatalf("promote group wrong: %+v", g.Promote)
	}
	if len(g.Leave) != 1 || g.Leave[0].Member.Ref != 8 {
		t.Fatalf("leave group wrong: %+v", g.Leave)
	}
}

func TestDedupeByRefLastWins(t *testing.T) {
	rows := dedupeByRef([]models.RosterRow{
		{Ref: 1, RankLabel: "Private"},
		{Ref: 2, RankLabel: "Corporal"},
		{Ref: 1, RankLabel: "Sergeant"},
		{Ref: 0, RankLabel: "NoRef"},
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Ref != 1 || rows[0].RankLabel != "Sergeant" {
		t.Fatalf("last occurrence did not win: %+v", rows[0])
	}
}

func TestCommitUnauthorized(t *testing.T) {
	e := NewEngine(nil, nil, nil, nil, nil, nil, nil, nil, nil, zap.NewNop())
	_, err := e.Commit(testutil.TestContext(t), Operator{ID: "op1", Name: "Op"}, Request{})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func newTestEngine(t *testing.T) (*Engine, *testutil.Fixtures, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	e := NewEngine(
		memberstore.New(db),
		userstore.New(db),
		historystore.New(db),
		pendingdelta.New(db),
		rankstore.New(db),
		divisionstore.New(db),
		regionstore.New(db),
		nil, // role lookup: fall back to embedded roles
		nil, // audit logger: no-op in tests
		zap.NewNop(),
	)
	return e, testutil.NewFixtures(t, db), db
}

func adminOp() Operator {
	return Operator{ID: "op1", Name: "Test Admin", Roles: []string{models.RoleAdmin}}
}

func TestCommitEndToEnd(t *testing.T) {
	e, fx, db := newTestEngine(t)
	ctx := testutil.TestContext(t)

	region := fx.CreateRegion(ctx, "Region One")
	regionTwo := fx.CreateRegion(ctx, "Region Two")
	fx.CreateDivision(ctx, "Division Harbor", &region.ID)
	destDiv := fx.CreateDivision(ctx, "Division Valley", &regionTwo.ID)
	rank := fx.CreateRank(ctx, "Captain", 5)

	fx.CreateMember(ctx, 101, "Ana Reyes", "Region One", "Division Harbor", "Sergeant")
	fx.CreateMember(ctx, 102, "Ben Cole", "Region One", "Division Harbor", "Private")
	fx.CreateMember(ctx, 103, "Caio Lima", "Region One", "Division Harbor", "Corporal")
	fx.CreateMember(ctx, 104, "Dan Wood", "Region One", "Division Harbor", "Lieutenant")
	fx.CreateMember(ctx, 105, "Eve Moss", "Region One", "Division Harbor", "Private")

	// 201 vanished from the leave list an hour ago and now returns.
	fx.CreatePendingDelta(ctx, 201, models.DeltaLeftLeaveRoster, time.Now().UTC().Add(-time.Hour))

	before := models.Member{Ref: 101, FullName: "Ana Reyes", RegionLabel: "Region One", DivisionLabel: "Division Harbor", RankLabel: "Sergeant", Active: true}
	after := models.RosterRow{Ref: 101, FullName: "Ana Reyes", RegionLabel: "Region One", DivisionLabel: "Division Harbor", RankLabel: "Lieutenant"}

	transfer := removal(103, models.ReasonTransferred)
	transfer.Decision.LookupFound = true
	transfer.Decision.DestDivisionID = &destDiv.ID
	transfer.Decision.DestRegionID = &regionTwo.ID

	promote := removal(104, models.ReasonPromoted)
	promote.Decision.DestRankID = &rank.ID
	promote.Decision.DestRegionID = &region.ID

	req := Request{
		BatchID: "batch-1",
		New: []models.RosterRow{
			{Ref: 200, FullName: "Nina Park", RegionLabel: "Region One", DivisionLabel: "Division Harbor", RankLabel: "Private"},
			{Ref: 201, FullName: "Gil Soto", RegionLabel: "Region One", DivisionLabel: "Division Harbor", RankLabel: "Private"},
			{Ref: 202, FullName: "No Rank", RegionLabel: "Region One", DivisionLabel: "Division Harbor"},
		},
		Updated: []models.MemberChange{
			{Before: before, After: after, ChangedFields: []string{models.FieldRankLabel}},
		},
		Removals: []Removal{
			removal(102, models.ReasonDeceased),
			transfer,
			promote,
			removal(105, models.ReasonLeave),
		},
	}

	res, err := e.Commit(ctx, adminOp(), req)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if res.Inserted != 2 || res.SkippedNoRank != 1 {
		t.Fatalf("inserted=%d skippedNoRank=%d, want 2 and 1", res.Inserted, res.SkippedNoRank)
	}
	if res.Updated != 1 || res.Inactivated != 1 || res.Transferred != 1 || res.Promoted != 1 || res.OnLeave != 1 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if res.SnapshotID.IsZero() {
		t.Fatal("expected a snapshot id")
	}

	members := memberstore.New(db)

	added, err := members.GetByRef(ctx, 200)
	if err != nil {
		t.Fatalf("new member not inserted: %v", err)
	}
	if !added.Active || added.DivisionID == nil || added.RegionID == nil {
		t.Fatalf("new member missing placement: %+v", added)
	}

	updated, _ := members.GetByRef(ctx, 101)
	if updated.RankLabel != "Lieutenant" {
		t.Fatalf("update not applied: %+v", updated)
	}

	dead, _ := members.GetByRef(ctx, 102)
	if dead.Active || dead.InactiveReason != models.ReasonDeceased {
		t.Fatalf("inactivation not applied: %+v", dead)
	}

	moved, _ := members.GetByRef(ctx, 103)
	if !moved.Active || moved.DivisionLabel != "Division Valley" {
		t.Fatalf("transfer must keep active and move labels: %+v", moved)
	}

	promoted, _ := members.GetByRef(ctx, 104)
	if !promoted.Active || promoted.RankLabel != "Captain" || promoted.RegionID == nil {
		t.Fatalf("promotion not applied: %+v", promoted)
	}

	onLeave, _ := members.GetByRef(ctx, 105)
	if !onLeave.Active {
		t.Fatal("leave of absence must never clear active")
	}

	// 201's departure entry auto-resolved; 200 raised a new anomaly and
	// 105 a leave one.
	pending := pendingdelta.New(db)
	open, err := pending.ListPending(ctx, 50)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	kinds := map[int64]string{}
	for _, pd := range open {
		kinds[pd.Ref] = pd.Kind
	}
	if _, still := kinds[201]; still {
		t.Fatal("returning member's pending entry was not auto-resolved")
	}
	if kinds[200] != models.DeltaNewActive {
		t.Fatalf("expected new_active anomaly for 200, got %v", kinds)
	}
	if kinds[105] != models.DeltaLeftLeaveRoster {
		t.Fatalf("expected left_leave_roster anomaly for 105, got %v", kinds)
	}

	history := historystore.New(db)
	snap, err := history.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if snap.ID != res.SnapshotID {
		t.Fatalf("snapshot id mismatch: %v vs %v", snap.ID, res.SnapshotID)
	}
	changes, err := history.ChangesBySnapshot(ctx, snap.ID)
	if err != nil {
		t.Fatalf("ChangesBySnapshot: %v", err)
	}
	if len(changes) != 1 || changes[0].Field != models.FieldRankLabel || changes[0].NewValue != "Lieutenant" {
		t.Fatalf("field change log wrong: %+v", changes)
	}
}

func TestCommitDryRunPersistsNothing(t *testing.T) {
	e, fx, db := newTestEngine(t)
	ctx := testutil.TestContext(t)

	region := fx.CreateRegion(ctx, "Region One")
	fx.CreateDivision(ctx, "Division Harbor", &region.ID)
	fx.CreateMember(ctx, 102, "Ben Cole", "Region One", "Division Harbor", "Private")

	req := Request{
		BatchID: "batch-2",
		DryRun:  true,
		New: []models.RosterRow{
			{Ref: 200, FullName: "Nina Park", RegionLabel: "Region One", DivisionLabel: "Division Harbor", RankLabel: "Private"},
		},
		Removals: []Removal{removal(102, models.ReasonResigned)},
	}

	res, err := e.Commit(ctx, adminOp(), req)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !res.DryRun || res.Inserted != 1 || res.Inactivated != 1 {
		t.Fatalf("dry-run counts wrong: %+v", res)
	}
	if !res.SnapshotID.IsZero() {
		t.Fatal("dry run must not persist a snapshot")
	}
	if len(res.Anomalies) != 1 || res.Anomalies[0].Ref != 200 {
		t.Fatalf("dry run should still report anomalies: %+v", res.Anomalies)
	}

	members := memberstore.New(db)
	if _, err := members.GetByRef(ctx, 200); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("dry run inserted a member: %v", err)
	}
	untouched, _ := members.GetByRef(ctx, 102)
	if !untouched.Active {
		t.Fatal("dry run inactivated a member")
	}

	pending := pendingdelta.New(db)
	open, _ := pending.ListPending(ctx, 10)
	if len(open) != 0 {
		t.Fatalf("dry run persisted pending deltas: %+v", open)
	}
}

func TestCommitRegionPropagation(t *testing.T) {
	e, fx, db := newTestEngine(t)
	ctx := testutil.TestContext(t)

	regionOne := fx.CreateRegion(ctx, "Region One")
	regionTwo := fx.CreateRegion(ctx, "Region Two")
	fx.CreateDivision(ctx, "Division Harbor", &regionOne.ID)
	fx.CreateDivision(ctx, "Division Valley", &regionTwo.ID)
	fx.CreateMember(ctx, 101, "Ana Reyes", "Region One", "Division Harbor", "Sergeant")
	fx.CreateLinkedUser(ctx, "Ana Reyes", "ana@test.com", 101, nil)

	before := models.Member{Ref: 101, FullName: "Ana Reyes", RegionLabel: "Region One", DivisionLabel: "Division Harbor", RankLabel: "Sergeant", Active: true}
	after := models.RosterRow{Ref: 101, FullName: "Ana Reyes", RegionLabel: "Region Two", DivisionLabel: "Division Valley", RankLabel: "Sergeant"}

	req := Request{
		BatchID: "batch-3",
		Updated: []models.MemberChange{{
			Before:        before,
			After:         after,
			ChangedFields: []string{models.FieldRegionLabel, models.FieldDivisionLabel},
		}},
	}

	if _, err := e.Commit(ctx, adminOp(), req); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	users := userstore.New(db)
	u, err := users.GetByMemberRef(ctx, 101)
	if err != nil {
		t.Fatalf("GetByMemberRef: %v", err)
	}
	if u.RegionID == nil || *u.RegionID != regionTwo.ID {
		t.Fatalf("linked account region not propagated: %+v", u.RegionID)
	}
}

func TestCommitDerivedRoleKeepsAdmin(t *testing.T) {
	e, fx, db := newTestEngine(t)
	ctx := testutil.TestContext(t)

	region := fx.CreateRegion(ctx, "Region One")
	fx.CreateDivision(ctx, "Division Harbor", &region.ID)
	fx.CreateMember(ctx, 101, "Ana Reyes", "Region One", "Division Harbor", "Sergeant")
	fx.CreateLinkedUser(ctx, "Ana Reyes", "ana@test.com", 101, []string{models.RoleAdmin, "moderator"})

	before := models.Member{Ref: 101, FullName: "Ana Reyes", RegionLabel: "Region One", DivisionLabel: "Division Harbor", RankLabel: "Sergeant", Active: true}
	after := models.RosterRow{Ref: 101, FullName: "Ana Reyes", RegionLabel: "Region One", DivisionLabel: "Division Harbor", RankLabel: "Division Director"}

	req := Request{
		BatchID: "batch-4",
		Updated: []models.MemberChange{{
			Before:        before,
			After:         after,
			ChangedFields: []string{models.FieldRankLabel},
		}},
	}

	if _, err := e.Commit(ctx, adminOp(), req); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	users := userstore.New(db)
	u, err := users.GetByMemberRef(ctx, 101)
	if err != nil {
		t.Fatalf("GetByMemberRef: %v", err)
	}
	hasAdmin, hasDirector, hasModerator := false, false, false
	for _, r := range u.Roles {
		switch r {
		case models.RoleAdmin:
			hasAdmin = true
		case "division_director":
			hasDirector = true
		case "moderator":
			hasModerator = true
		}
	}
	if !hasAdmin {
		t.Fatal("admin role must never be touched")
	}
	if !hasDirector {
		t.Fatalf("derived role missing: %v", u.Roles)
	}
	if hasModerator {
		t.Fatalf("previous derived role should be replaced: %v", u.Roles)
	}
}

// Both authorization gates fall back to the same embedded role set, so
// an operator accepted by the HTTP gate is accepted here too.
func TestAuthorizedRoleFallback(t *testing.T) {
	e := &Engine{log: zap.NewNop()}
	ctx := testutil.TestContext(t)

	cases := []struct {
		roles []string
		want  bool
	}{
		{[]string{models.RoleAdmin}, true},
		{[]string{"roster_admin"}, true},
		{[]string{"Admin"}, true},
		{[]string{"moderator"}, false},
		{nil, false},
	}
	for _, tc := range cases {
		op := Operator{ID: "op1", Name: "Op", Roles: tc.roles}
		if got := e.authorized(ctx, op); got != tc.want {
			t.Errorf("authorized(roles=%v) = %v, want %v", tc.roles, got, tc.want)
		}
	}
}

func TestCommitSkippedRowsRaiseNoAnomaly(t *testing.T) {
	e, fx, db := newTestEngine(t)
	ctx := testutil.TestContext(t)

	region := fx.CreateRegion(ctx, "Region One")
	fx.CreateDivision(ctx, "Division Harbor", &region.ID)

	req := Request{
		BatchID: "batch-5",
		New: []models.RosterRow{
			{Ref: 300, FullName: "Has Rank", RegionLabel: "Region One", DivisionLabel: "Division Harbor", RankLabel: "Private"},
			{Ref: 301, FullName: "No Rank", RegionLabel: "Region One", DivisionLabel: "Division Harbor"},
		},
	}
	res, err := e.Commit(ctx, adminOp(), req)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.Inserted != 1 || res.SkippedNoRank != 1 {
		t.Fatalf("inserted=%d skippedNoRank=%d, want 1 and 1", res.Inserted, res.SkippedNoRank)
	}
	for _, pd := range res.Anomalies {
		if pd.Ref == 301 {
			t.Fatalf("skipped row surfaced in the anomaly preview: %+v", pd)
		}
	}

	open, err := pendingdelta.New(db).ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	sawInserted := false
	for _, pd := range open {
		if pd.Ref == 301 {
			t.Fatalf("skipped row raised a pending delta: %+v", pd)
		}
		if pd.Ref == 300 && pd.Kind == models.DeltaNewActive {
			sawInserted = true
		}
	}
	if !sawInserted {
		t.Fatal("inserted row should still raise its new-active anomaly")
	}
}

func TestCommitReimportedInactiveCountsAsUpdate(t *testing.T) {
	e, fx, db := newTestEngine(t)
	ctx := testutil.TestContext(t)

	region := fx.CreateRegion(ctx, "Region One")
	fx.CreateDivision(ctx, "Division Harbor", &region.ID)
	fx.CreateMember(ctx, 400, "Rae Voss", "Region One", "Division Harbor", "Private")

	members := memberstore.New(db)
	if err := members.Inactivate(ctx, 400, models.ReasonResigned, ""); err != nil {
		t.Fatalf("Inactivate: %v", err)
	}

	req := Request{
		BatchID: "batch-6",
		New: []models.RosterRow{
			{Ref: 400, FullName: "Rae Voss", RegionLabel: "Region One", DivisionLabel: "Division Harbor", RankLabel: "Private"},
			{Ref: 401, FullName: "Nina Park", RegionLabel: "Region One", DivisionLabel: "Division Harbor", RankLabel: "Private"},
		},
	}

	dry := req
	dry.DryRun = true
	res, err := e.Commit(ctx, adminOp(), dry)
	if err != nil {
		t.Fatalf("dry-run Commit: %v", err)
	}
	if res.Inserted != 1 || res.Updated != 1 {
		t.Fatalf("dry-run inserted=%d updated=%d, want 1 and 1", res.Inserted, res.Updated)
	}
	if still, _ := members.GetByRef(ctx, 400); still.Active {
		t.Fatal("dry run reactivated a member")
	}

	res, err = e.Commit(ctx, adminOp(), req)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.Inserted != 1 || res.Updated != 1 {
		t.Fatalf("inserted=%d updated=%d, want 1 and 1", res.Inserted, res.Updated)
	}
	back, err := members.GetByRef(ctx, 400)
	if err != nil || !back.Active {
		t.Fatalf("re-imported member not reactivated: %v %+v", err, back)
	}
	if _, err := members.GetByRef(ctx, 401); err != nil {
		t.Fatalf("new member not inserted: %v", err)
	}
}
