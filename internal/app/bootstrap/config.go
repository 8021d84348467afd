// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/grouphub/internal/app/system/normalize"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for GroupHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, bulk_workers, etc.
//   - Environment variables: GROUPHUB_MONGO_URI, GROUPHUB_BULK_WORKERS, etc.
//   - Command-line flags: --mongo_uri, --bulk_workers, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "grouphub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Notifications
	{Name: "site_name", Default: "GroupHub", Desc: "Site name used in notifications"},
	{Name: "system_sender", Default: "system", Desc: "Username notifications are sent from"},
	{Name: "notification_retention", Default: "720h", Desc: "How long queued notifications are kept (e.g., 720h)"},
	{Name: "notification_purge_interval", Default: "1h", Desc: "How often old notifications are purged"},

	// Groups
	{Name: "custom_field_allowlist", Default: "", Desc: "Comma-separated custom-field keys writable through the API (empty allows none)"},
	{Name: "automatic_groups", Default: "", Desc: "Comma-separated names of system-managed groups provisioned at startup"},

	// Bulk assignment
	{Name: "bulk_async_threshold", Default: 200, Desc: "Rosters larger than this run as background jobs (0 = always inline)"},
	{Name: "bulk_concurrency", Default: 8, Desc: "Parallel per-user units within one bulk assignment"},
	{Name: "bulk_workers", Default: 2, Desc: "Background bulk jobs running at once"},
	{Name: "bulk_queue_capacity", Default: 64, Desc: "Bulk jobs waiting to run before new ones are refused"},
	{Name: "bulk_job_timeout", Default: "10m", Desc: "Upper bound for one background bulk job"},
	{Name: "bulk_job_retention", Default: "1h", Desc: "How long finished bulk jobs can be polled"},

	// Audit logging settings
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_system", Default: "all", Desc: "System event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Timeouts
	{Name: "timeout_ping", Default: "2s", Desc: "Health check timeout"},
	{Name: "timeout_short", Default: "5s", Desc: "Single-document operation timeout"},
	{Name: "timeout_medium", Default: "15s", Desc: "Multi-document operation timeout"},
	{Name: "timeout_batch", Default: "2m", Desc: "Inline bulk assignment and estimation timeout"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, GROUPHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "GROUPHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		// Notifications
		SiteName:                  appValues.String("site_name"),
		SystemSender:              appValues.String("system_sender"),
		NotificationRetention:     appValues.Duration("notification_retention", 30*24*time.Hour),
		NotificationPurgeInterval: appValues.Duration("notification_purge_interval", time.Hour),

		// Groups
		CustomFieldAllowlist: normalize.Tokens(appValues.String("custom_field_allowlist")),
		AutomaticGroups:      normalize.Tokens(appValues.String("automatic_groups")),

		// Bulk assignment
		BulkAsyncThreshold: appValues.Int("bulk_async_threshold"),
		BulkConcurrency:    appValues.Int("bulk_concurrency"),
		BulkWorkers:        appValues.Int("bulk_workers"),
		BulkQueueCapacity:  appValues.Int("bulk_queue_capacity"),
		BulkJobTimeout:     appValues.Duration("bulk_job_timeout", 10*time.Minute),
		BulkJobRetention:   appValues.Duration("bulk_job_retention", time.Hour),

		// Audit logging
		AuditLogAdmin:  appValues.String("audit_log_admin"),
		AuditLogSystem: appValues.String("audit_log_system"),

		// Timeouts
		TimeoutPing:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutBatch:  appValues.Duration("timeout_batch", timeouts.DefaultBatch),
	}

	return coreCfg, appCfg, nil
}

var auditModes = map[string]bool{"": true, "all": true, "db": true, "log": true, "off": true}

// ValidateConfig performs app-specific config validation.
//
// GroupHub validates the MongoDB URI format to catch configuration
// errors early, before attempting to connect, and rejects settings that
// would leave bulk assignment or the audit trail misconfigured.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateAppConfig(appCfg)
}

func validateAppConfig(appCfg AppConfig) error {
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)", appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}
	if appCfg.SystemSender == "" {
		return fmt.Errorf("system_sender must be set")
	}
	if appCfg.BulkAsyncThreshold < 0 {
		return fmt.Errorf("bulk_async_threshold must not be negative")
	}
	for name, v := range map[string]int{
		"bulk_concurrency":    appCfg.BulkConcurrency,
		"bulk_workers":        appCfg.BulkWorkers,
		"bulk_queue_capacity": appCfg.BulkQueueCapacity,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", name, v)
		}
	}
	if appCfg.NotificationRetention <= 0 || appCfg.NotificationPurgeInterval <= 0 {
		return fmt.Errorf("notification_retention and notification_purge_interval must be positive")
	}
	for name, v := range map[string]string{
		"audit_log_admin":  appCfg.AuditLogAdmin,
		"audit_log_system": appCfg.AuditLogSystem,
	} {
		if !auditModes[v] {
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", name, v)
		}
	}
	return nil
}
