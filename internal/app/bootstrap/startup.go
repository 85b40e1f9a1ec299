// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/baymark/rollcall/internal/app/store/pendingdelta"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
//
// RollCall has no caches or templates to warm; it only surfaces the
// open anomaly backlog so operators see on boot whether a prior import
// left questions behind.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	pending, err := pendingdelta.New(deps.RollCallMongoDatabase).ListPending(ctx, 1000)
	if err != nil {
		logger.Warn("could not count open anomalies", zap.Error(err))
		return nil
	}
	if len(pending) > 0 {
		logger.Info("open roster anomalies awaiting review",
			zap.Int("count", len(pending)))
	}
	return nil
}
