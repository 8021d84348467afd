// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	groupstore "github.com/dalemusser/grouphub/internal/app/store/groups"
	"github.com/dalemusser/grouphub/internal/app/system/auditlog"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// It registers the custom-field allowlist, provisions the configured
// automatic groups and starts the background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	deps.Fields.Register(appCfg.CustomFieldAllowlist...)
	if keys := deps.Fields.Keys(); len(keys) > 0 {
		logger.Info("custom fields writable", zap.Strings("keys", keys))
	} else {
		logger.Info("no custom fields writable; custom_field_allowlist is empty")
	}

	if err := provisionAutomaticGroups(ctx, deps.MongoDatabase, deps.Audit, appCfg.AutomaticGroups, logger); err != nil {
		return err
	}

	deps.BulkJobs.Start()
	deps.NotificationPurge.Start()
	return nil
}

// provisionAutomaticGroups makes sure every named group exists and is
// marked automatic.
func provisionAutomaticGroups(ctx context.Context, db *mongo.Database, audit *auditlog.Logger, names []string, logger *zap.Logger) error {
	if len(names) == 0 {
		return nil
	}
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), logger, "provision automatic groups")
	defer cancel()

	store := groupstore.New(db)
	for _, name := range names {
		g, err := store.EnsureAutomatic(ctx, name)
		if err != nil {
			logger.Error("provision automatic group failed", zap.String("group", name), zap.Error(err))
			return fmt.Errorf("provision automatic group %q: %w", name, err)
		}
		audit.AutomaticGroupProvisioned(ctx, g.ID, g.Name)
		logger.Info("automatic group ready", zap.String("group", g.Name), zap.String("group_id", g.ID.Hex()))
	}

	n, err := store.Count(ctx, true)
	if err != nil {
		return fmt.Errorf("count automatic groups: %w", err)
	}
	logger.Info("automatic groups provisioned", zap.Int("configured", len(names)), zap.Int64("total", n))
	return nil
}
