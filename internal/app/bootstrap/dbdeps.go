// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/grouphub/internal/app/groupadmin"
	"github.com/dalemusser/grouphub/internal/app/system/auditlog"
	"github.com/dalemusser/grouphub/internal/app/system/bulkjobs"
	"github.com/dalemusser/grouphub/internal/app/system/fieldallow"
	"github.com/dalemusser/grouphub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
//
// WAFFLE passes DBDeps by value to every later hook, so state created in
// one hook and used in another lives behind pointers.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Fields is the custom-field allowlist; Startup registers the
	// configured keys.
	Fields *fieldallow.Registry
	// Audit records group administration events.
	Audit *auditlog.Logger
	// BulkJobs runs large bulk assignments in the background.
	BulkJobs *bulkjobs.Queue[groupadmin.BulkOutcome]
	// NotificationPurge removes expired notifications.
	NotificationPurge *workers.NotificationPurge
}
