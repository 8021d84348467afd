// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP ports,
// TLS, logging level and format, and request body limits. AppConfig holds
// what is specific to GroupHub: the MongoDB connection, the custom-field
// allowlist, automatic groups, bulk assignment tuning, notification
// retention and audit settings.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Notifications
	SiteName                  string        // Shown in notification subjects and bodies
	SystemSender              string        // Username notifications are sent from
	NotificationRetention     time.Duration // How long queued notifications are kept
	NotificationPurgeInterval time.Duration // How often old notifications are purged

	// Groups
	CustomFieldAllowlist []string // Custom-field keys writable through the API (empty = none)
	AutomaticGroups      []string // System-managed groups provisioned at startup

	// Bulk assignment
	BulkAsyncThreshold int           // Rosters larger than this are queued (0 = always inline)
	BulkConcurrency    int           // Parallel per-user units within one bulk assignment
	BulkWorkers        int           // Background bulk jobs running at once
	BulkQueueCapacity  int           // Bulk jobs waiting to run
	BulkJobTimeout     time.Duration // Upper bound for one background bulk job
	BulkJobRetention   time.Duration // How long finished bulk jobs can be polled

	// Audit logging: "all" (db+log), "db", "log", or "off"
	AuditLogAdmin  string
	AuditLogSystem string

	// Operation timeouts (see system/timeouts)
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutBatch  time.Duration
}
