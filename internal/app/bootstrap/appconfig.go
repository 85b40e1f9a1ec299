// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration: ports, TLS, log levels,
// and the rest of the framework surface live in CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Operator identity verification.
	//
	// RollCall does not run its own login flow; the auth gateway in
	// front of it sets a signed cookie naming the operator. This key
	// must match the gateway's signing key.
	OperatorCookieKey string

	// Audit logging destinations: "all" (db+log), "db", "log", or "off".
	AuditLogImport string // batch lifecycle events
	AuditLogMember string // member mutation events

	// Mass-removal guard tuning. A processed batch that would remove
	// RemovalRatePercent percent or more of a region's active members
	// is rejected, unless the region holds MinGuardedRegionSize or
	// fewer actives.
	RemovalRatePercent   int
	MinGuardedRegionSize int
}
