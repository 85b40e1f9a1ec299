// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	healthfeature "github.com/baymark/rollcall/internal/app/features/health"
	importsfeature "github.com/baymark/rollcall/internal/app/features/imports"
	"github.com/baymark/rollcall/internal/app/store/audit"
	batchstore "github.com/baymark/rollcall/internal/app/store/batches"
	divisionstore "github.com/baymark/rollcall/internal/app/store/divisions"
	historystore "github.com/baymark/rollcall/internal/app/store/history"
	memberstore "github.com/baymark/rollcall/internal/app/store/members"
	"github.com/baymark/rollcall/internal/app/store/pendingdelta"
	rankstore "github.com/baymark/rollcall/internal/app/store/ranks"
	regionstore "github.com/baymark/rollcall/internal/app/store/regions"
	userstore "github.com/baymark/rollcall/internal/app/store/users"
	"github.com/baymark/rollcall/internal/app/system/auditlog"
	"github.com/baymark/rollcall/internal/app/system/auth"
	"github.com/baymark/rollcall/internal/app/system/delta"
	"github.com/baymark/rollcall/internal/app/system/reconcile"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and any Startup hooks have completed. RollCall is a JSON API behind
// an auth gateway: the only middleware applied globally is the operator
// cookie verifier, and the mounted features are the import workflow and
// the health check.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.RollCallMongoDatabase

	members := memberstore.New(db)
	users := userstore.New(db)
	divisions := divisionstore.New(db)
	regions := regionstore.New(db)
	ranks := rankstore.New(db)
	batches := batchstore.New(db)
	history := historystore.New(db)
	pending := pendingdelta.New(db)

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Import: appCfg.AuditLogImport,
		Member: appCfg.AuditLogMember,
	})

	// Role lookup is nil until the organization's role service client
	// is configured; the engine then falls back to the roles carried
	// on the verified operator identity.
	engine := reconcile.NewEngine(members, users, history, pending,
		ranks, divisions, regions, nil, auditLog, logger)

	guard := delta.Options{
		RemovalRateLimit: float64(appCfg.RemovalRatePercent) / 100,
		MinGuardedSize:   appCfg.MinGuardedRegionSize,
	}

	verifier := auth.NewVerifier(appCfg.OperatorCookieKey, logger)

	r := chi.NewRouter()

	// Global auth middleware: verifies the gateway's operator cookie
	// and loads the operator into the request context.
	r.Use(verifier.LoadOperator)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.RollCallMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Staged roster imports: upload, review, execute
	importsHandler := importsfeature.NewHandler(db, batches, members,
		engine, auditLog, nil, guard, logger)
	r.Mount("/imports", importsfeature.Routes(importsHandler))

	return r, nil
}
