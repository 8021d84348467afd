// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/grouphub/internal/app/groupadmin"
	auditstore "github.com/dalemusser/grouphub/internal/app/store/audit"
	notificationstore "github.com/dalemusser/grouphub/internal/app/store/notifications"
	"github.com/dalemusser/grouphub/internal/app/system/auditlog"
	"github.com/dalemusser/grouphub/internal/app/system/bulkjobs"
	"github.com/dalemusser/grouphub/internal/app/system/fieldallow"
	"github.com/dalemusser/grouphub/internal/app/system/indexes"
	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"github.com/dalemusser/grouphub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB applies the configured timeouts, connects to MongoDB and
// builds the back-end dependencies the later hooks share. Background
// workers are created here but started in Startup.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Batch:  appCfg.TimeoutBatch,
	})

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize),
		zap.Uint64("min_pool", appCfg.MongoMinPoolSize))

	return newDeps(client, appCfg, logger), nil
}

// newDeps assembles the shared dependencies around a connected client.
func newDeps(client *mongo.Client, appCfg AppConfig, logger *zap.Logger) DBDeps {
	db := client.Database(appCfg.MongoDatabase)
	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Fields:        fieldallow.NewRegistry(),
		Audit: auditlog.New(auditstore.New(db), logger, auditlog.Config{
			Admin:  appCfg.AuditLogAdmin,
			System: appCfg.AuditLogSystem,
		}),
		BulkJobs: bulkjobs.New[groupadmin.BulkOutcome](logger, bulkjobs.Options{
			Workers:   appCfg.BulkWorkers,
			Capacity:  appCfg.BulkQueueCapacity,
			Timeout:   appCfg.BulkJobTimeout,
			Retention: appCfg.BulkJobRetention,
		}),
		NotificationPurge: workers.NewNotificationPurge(notificationstore.New(db), logger,
			appCfg.NotificationPurgeInterval, appCfg.NotificationRetention),
	}
}

// EnsureSchema creates or reconciles the indexes of every collection.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Batch(), logger, "ensure indexes")
	defer cancel()
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	return nil
}
