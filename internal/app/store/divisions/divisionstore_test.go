package divisionstore_test

import (
	"errors"
	"testing"

	divisionstore "github.com/baymark/rollcall/internal/app/store/divisions"
	"github.com/baymark/rollcall/internal/domain/models"
	"github.com/baymark/rollcall/internal/testutil"
)

func TestCreate_NormalizesNames(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := divisionstore.New(db)
	ctx := testutil.TestContext(t)

	div, err := store.Create(ctx, models.Division{
		Name:  "Division São Vicente",
		Alias: "SV",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if div.ID.IsZero() {
		t.Error("expected ID to be assigned")
	}
	if div.NameCI != "sao vicente" {
		t.Errorf("expected folded name without the division prefix, got %q", div.NameCI)
	}
	if div.AliasCI != "sv" {
		t.Errorf("expected folded alias, got %q", div.AliasCI)
	}
	if div.Status != "active" {
		t.Errorf("expected default active status, got %q", div.Status)
	}

	got, err := store.GetByID(ctx, div.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Division São Vicente" {
		t.Errorf("expected original name preserved, got %q", got.Name)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := divisionstore.New(db)
	ctx := testutil.TestContext(t)

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	if _, err := store.Create(ctx, models.Division{Name: "Division Harbor"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	// Same folded name, different surface form.
	_, err := store.Create(ctx, models.Division{Name: "DIVISION HARBOR"})
	if !errors.Is(err, divisionstore.ErrDuplicateDivision) {
		t.Fatalf("expected ErrDuplicateDivision, got %v", err)
	}
}

func TestListActive_SkipsInactive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := divisionstore.New(db)
	ctx := testutil.TestContext(t)

	if _, err := store.Create(ctx, models.Division{Name: "Division Harbor"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, models.Division{Name: "Division Valley", Status: "inactive"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	divs, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(divs) != 1 {
		t.Fatalf("expected 1 active division, got %d", len(divs))
	}
	if divs[0].Name != "Division Harbor" {
		t.Errorf("unexpected division %q", divs[0].Name)
	}
}
