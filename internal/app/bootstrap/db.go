// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/baymark/rollcall/internal/app/store/audit"
	batchstore "github.com/baymark/rollcall/internal/app/store/batches"
	divisionstore "github.com/baymark/rollcall/internal/app/store/divisions"
	historystore "github.com/baymark/rollcall/internal/app/store/history"
	memberstore "github.com/baymark/rollcall/internal/app/store/members"
	"github.com/baymark/rollcall/internal/app/store/pendingdelta"
	rankstore "github.com/baymark/rollcall/internal/app/store/ranks"
	regionstore "github.com/baymark/rollcall/internal/app/store/regions"
	userstore "github.com/baymark/rollcall/internal/app/store/users"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB establishes the MongoDB connection used by every store.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return DBDeps{}, fmt.Errorf("mongodb ping: %w", err)
	}

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase))

	return DBDeps{
		RollCallMongoClient:   client,
		RollCallMongoDatabase: client.Database(appCfg.MongoDatabase),
	}, nil
}

// EnsureSchema creates the indexes every store relies on. Index
// creation is idempotent, so this runs on every startup.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.RollCallMongoDatabase

	type indexed interface {
		EnsureIndexes(ctx context.Context) error
	}
	stores := map[string]indexed{
		"members":        memberstore.New(db),
		"divisions":      divisionstore.New(db),
		"regions":        regionstore.New(db),
		"ranks":          rankstore.New(db),
		"batches":        batchstore.New(db),
		"users":          userstore.New(db),
		"history":        historystore.New(db),
		"pending_deltas": pendingdelta.New(db),
		"audit_events":   audit.New(db),
	}

	for name, s := range stores {
		if err := s.EnsureIndexes(ctx); err != nil {
			logger.Error("index creation failed",
				zap.String("store", name), zap.Error(err))
			return fmt.Errorf("ensure indexes for %s: %w", name, err)
		}
	}

	return nil
}
