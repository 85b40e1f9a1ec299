// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for RollCall.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, operator_cookie_key, etc.
//   - Environment variables: ROLLCALL_MONGO_URI, ROLLCALL_OPERATOR_COOKIE_KEY, etc.
//   - Command-line flags: --mongo_uri, --operator_cookie_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "rollcall", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Operator identity
	{Name: "operator_cookie_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Signing key for the operator identity cookie (must match the auth gateway)"},

	// Audit logging settings
	{Name: "audit_log_import", Default: "all", Desc: "Import event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_member", Default: "all", Desc: "Member event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Mass-removal guard
	{Name: "removal_rate_percent", Default: 95, Desc: "Reject a batch removing at least this percent of a region's active members"},
	{Name: "min_guarded_region_size", Default: 10, Desc: "Regions with this many actives or fewer bypass the mass-removal guard"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific
// to this app and can be extended as the app grows.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "ROLLCALL", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		OperatorCookieKey: appValues.String("operator_cookie_key"),

		AuditLogImport: appValues.String("audit_log_import"),
		AuditLogMember: appValues.String("audit_log_member"),

		RemovalRatePercent:   appValues.Int("removal_rate_percent"),
		MinGuardedRegionSize: appValues.Int("min_guarded_region_size"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// RollCall validates the MongoDB URI format and the guard bounds to
// catch configuration errors early, before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.OperatorCookieKey == "" {
		return fmt.Errorf("operator_cookie_key must not be empty")
	}

	if appCfg.RemovalRatePercent < 1 || appCfg.RemovalRatePercent > 100 {
		return fmt.Errorf("removal_rate_percent must be between 1 and 100, got %d", appCfg.RemovalRatePercent)
	}
	if appCfg.MinGuardedRegionSize < 0 {
		return fmt.Errorf("min_guarded_region_size must not be negative, got %d", appCfg.MinGuardedRegionSize)
	}

	return nil
}
