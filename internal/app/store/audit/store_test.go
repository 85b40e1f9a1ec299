package audit_test

import (
	"testing"
	"time"

	"github.com/baymark/rollcall/internal/app/store/audit"
	"github.com/baymark/rollcall/internal/testutil"
)

func ref(v int64) *int64 { return &v }

func seedEvents(t *testing.T, store *audit.Store) {
	t.Helper()
	ctx := testutil.TestContext(t)
	now := time.Now().UTC()

	events := []audit.Event{
		{
			Timestamp: now.Add(-3 * time.Minute),
			Category:  audit.CategoryImport,
			EventType: audit.EventBatchCreated,
			ActorID:   "op-1",
			BatchID:   "batch-a",
			Success:   true,
		},
		{
			Timestamp: now.Add(-2 * time.Minute),
			Category:  audit.CategoryImport,
			EventType: audit.EventBatchCommitted,
			ActorID:   "op-1",
			BatchID:   "batch-a",
			Success:   true,
			Details:   map[string]string{"inserted": "3"},
		},
		{
			Timestamp: now.Add(-1 * time.Minute),
			Category:  audit.CategoryMember,
			EventType: audit.EventMemberInactivated,
			ActorID:   "op-1",
			MemberRef: ref(101),
			BatchID:   "batch-a",
			Success:   true,
			Details:   map[string]string{"reason": "resigned"},
		},
		{
			Timestamp: now,
			Category:  audit.CategoryImport,
			EventType: audit.EventMassRemovalBlock,
			ActorID:   "op-2",
			BatchID:   "batch-b",
			Success:   false,
			FailureReason: "removal rate over limit",
		},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}
}

func TestLogDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx := testutil.TestContext(t)

	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryImport,
		EventType: audit.EventBatchCreated,
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetRecent(ctx, 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID default")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp default")
	}
}

func TestGetByBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx := testutil.TestContext(t)
	seedEvents(t, store)

	events, err := store.GetByBatch(ctx, "batch-a", 0)
	if err != nil {
		t.Fatalf("GetByBatch failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events for batch-a, got %d", len(events))
	}
	// Newest first.
	if events[0].EventType != audit.EventMemberInactivated {
		t.Errorf("expected newest event first, got %q", events[0].EventType)
	}
}

func TestGetByMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx := testutil.TestContext(t)
	seedEvents(t, store)

	events, err := store.GetByMember(ctx, 101, 0)
	if err != nil {
		t.Fatalf("GetByMember failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event for ref 101, got %d", len(events))
	}
	if events[0].Details["reason"] != "resigned" {
		t.Error("expected details to round-trip")
	}
}

func TestQueryByCategoryAndOutcome(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx := testutil.TestContext(t)
	seedEvents(t, store)

	events, err := store.Query(ctx, audit.QueryFilter{
		Category:  audit.CategoryImport,
		EventType: audit.EventMassRemovalBlock,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 guard event, got %d", len(events))
	}
	if events[0].Success {
		t.Error("expected guard event to be marked unsuccessful")
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{Category: audit.CategoryImport})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 import events, got %d", n)
	}
}

func TestQueryTimeWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx := testutil.TestContext(t)
	seedEvents(t, store)

	start := time.Now().UTC().Add(-90 * time.Second)
	events, err := store.Query(ctx, audit.QueryFilter{StartTime: &start})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events in window, got %d", len(events))
	}
}
