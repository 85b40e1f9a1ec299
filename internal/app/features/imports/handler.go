// internal/app/features/imports/handler.go
package imports

import (
	batchstore "github.com/baymark/rollcall/internal/app/store/batches"
	memberstore "github.com/baymark/rollcall/internal/app/store/members"
	"github.com/baymark/rollcall/internal/app/system/auditlog"
	"github.com/baymark/rollcall/internal/app/system/authz"
	"github.com/baymark/rollcall/internal/app/system/delta"
	"github.com/baymark/rollcall/internal/app/system/reconcile"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides the JSON API for the staged import workflow: batch
// intake, review, selection editing, and guarded execution.
type Handler struct {
	DB      *mongo.Database
	Batches *batchstore.Store
	Members *memberstore.Store
	Engine  *reconcile.Engine
	Audit   *auditlog.Logger
	Lookup  authz.RoleLookup
	Guard   delta.Options
	Log     *zap.Logger
}

func NewHandler(
	db *mongo.Database,
	batches *batchstore.Store,
	members *memberstore.Store,
	engine *reconcile.Engine,
	auditLog *auditlog.Logger,
	lookup authz.RoleLookup,
	guard delta.Options,
	log *zap.Logger,
) *Handler {
	return &Handler{
		DB:      db,
		Batches: batches,
		Members: members,
		Engine:  engine,
		Audit:   auditLog,
		Lookup:  lookup,
		Guard:   guard,
		Log:     log,
	}
}
