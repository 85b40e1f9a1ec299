package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/baymark/rollcall/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsureSchemaCreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)

	deps := DBDeps{RollCallMongoDatabase: db}

	if err := EnsureSchema(ctx, nil, AppConfig{}, deps, testLogger()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	cur, err := db.Collection("members").Indexes().List(ctx)
	if err != nil {
		t.Fatalf("listing member indexes: %v", err)
	}
	var specs []bson.M
	if err := cur.All(ctx, &specs); err != nil {
		t.Fatalf("decoding index specs: %v", err)
	}

	var refUnique bool
	for _, spec := range specs {
		key, _ := spec["key"].(bson.M)
		if key == nil {
			continue
		}
		if _, ok := key["ref"]; ok {
			if u, _ := spec["unique"].(bool); u {
				refUnique = true
			}
		}
	}
	if !refUnique {
		t.Error("expected a unique index on members.ref")
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)

	deps := DBDeps{RollCallMongoDatabase: db}

	for i := 0; i < 2; i++ {
		if err := EnsureSchema(ctx, nil, AppConfig{}, deps, testLogger()); err != nil {
			t.Fatalf("EnsureSchema run %d failed: %v", i+1, err)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	valid := AppConfig{
		MongoURI:             "mongodb://localhost:27017",
		OperatorCookieKey:    "test-key",
		RemovalRatePercent:   95,
		MinGuardedRegionSize: 10,
	}
	if err := ValidateConfig(nil, valid, testLogger()); err != nil {
		t.Fatalf("expected valid config to pass: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"bad mongo uri", func(c *AppConfig) { c.MongoURI = "not-a-uri" }},
		{"empty cookie key", func(c *AppConfig) { c.OperatorCookieKey = "" }},
		{"zero rate percent", func(c *AppConfig) { c.RemovalRatePercent = 0 }},
		{"rate percent over 100", func(c *AppConfig) { c.RemovalRatePercent = 101 }},
		{"negative guarded size", func(c *AppConfig) { c.MinGuardedRegionSize = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			if err := ValidateConfig(nil, cfg, testLogger()); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestBuildHandlerServesHealth(t *testing.T) {
	db := testutil.SetupTestDB(t)

	deps := DBDeps{
		RollCallMongoClient:   db.Client(),
		RollCallMongoDatabase: db,
	}
	appCfg := AppConfig{
		OperatorCookieKey:    "test-key",
		RemovalRatePercent:   95,
		MinGuardedRegionSize: 10,
	}

	h, err := BuildHandler(&config.CoreConfig{}, appCfg, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /health, got %d: %s", rec.Code, rec.Body.String())
	}

	// Import routes require an operator; anonymous requests get 401.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/imports", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 from anonymous /imports, got %d", rec.Code)
	}
}
